package checkin

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/facebookgo/clock"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	types "github.com/yungbote/checkin-engine/internal/domain"
	"github.com/yungbote/checkin-engine/internal/observability"
	"github.com/yungbote/checkin-engine/internal/platform/logger"
)

const DefaultWorkers = 4

type OrchestratorDeps struct {
	Log      *logger.Logger
	Clock    clock.Clock
	Location *time.Location
	Window   WindowConfig
	Roster   Roster
	Pipeline *Pipeline
	Workers  int
}

// Orchestrator turns a trigger (scheduled window or admin request) into
// per-client pipeline runs on a bounded pool.
type Orchestrator struct {
	log      *logger.Logger
	clock    clock.Clock
	loc      *time.Location
	window   WindowConfig
	roster   Roster
	pipeline *Pipeline
	workers  int
}

func NewOrchestrator(deps OrchestratorDeps) (*Orchestrator, error) {
	if deps.Log == nil {
		return nil, &ConfigError{Field: "log", Err: errors.New("missing logger")}
	}
	if deps.Roster == nil {
		return nil, &ConfigError{Field: "roster", Err: errors.New("missing roster")}
	}
	if deps.Pipeline == nil {
		return nil, &ConfigError{Field: "pipeline", Err: errors.New("missing pipeline")}
	}
	if err := deps.Window.Validate(); err != nil {
		return nil, err
	}
	if deps.Clock == nil {
		deps.Clock = clock.New()
	}
	if deps.Location == nil {
		deps.Location = time.UTC
	}
	if deps.Workers <= 0 {
		deps.Workers = DefaultWorkers
	}
	return &Orchestrator{
		log:      deps.Log.With("service", "CheckinOrchestrator"),
		clock:    deps.Clock,
		loc:      deps.Location,
		window:   deps.Window,
		roster:   deps.Roster,
		pipeline: deps.Pipeline,
		workers:  deps.Workers,
	}, nil
}

type TriggerRequest struct {
	ClientID *uuid.UUID
	CoachID  *uuid.UUID
	Force    bool
}

type RunSummary struct {
	Trigger    string    `json:"trigger"`
	WeekStart  string    `json:"week_start"`
	WindowOpen bool      `json:"window_open"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Outcomes   []Outcome `json:"results"`
}

// Counts tallies outcomes by status.
func (s RunSummary) Counts() map[string]int {
	out := map[string]int{}
	for _, o := range s.Outcomes {
		out[o.Status]++
	}
	return out
}

func (o *Orchestrator) WindowOpen(now time.Time) bool {
	return IsTriggerWindow(now, o.loc, o.window)
}

// CurrentWeekStart is the dedupe key a run started now would use.
func (o *Orchestrator) CurrentWeekStart() string {
	return WeekStart(o.clock.Now(), o.loc, o.window.Weekday)
}

func (o *Orchestrator) WindowOpenNow() bool {
	return o.WindowOpen(o.clock.Now())
}

// RunScheduled checks the window and processes the active roster when it is
// open. A closed window returns an empty summary.
func (o *Orchestrator) RunScheduled(ctx context.Context) (RunSummary, error) {
	now := o.clock.Now()
	if !o.WindowOpen(now) {
		return RunSummary{
			Trigger:    TriggerScheduled,
			WeekStart:  WeekStart(now, o.loc, o.window.Weekday),
			StartedAt:  now,
			FinishedAt: now,
			Outcomes:   []Outcome{},
		}, nil
	}
	return o.RunWindow(ctx)
}

// RunWindow processes every active client without re-checking the window.
// The scheduler calls it once it has seen the window open.
func (o *Orchestrator) RunWindow(ctx context.Context) (RunSummary, error) {
	rctx, cancel := o.rosterContext(ctx)
	clients, err := o.roster.ListActiveClients(rctx)
	cancel()
	if err != nil {
		return RunSummary{}, fmt.Errorf("list active clients: %w", err)
	}
	sum := o.runClients(ctx, TriggerScheduled, clients, false)
	sum.WindowOpen = true
	return sum, nil
}

// Trigger runs the identical pipeline outside the window. With no client or
// coach it targets every active client.
func (o *Orchestrator) Trigger(ctx context.Context, req TriggerRequest) (RunSummary, error) {
	clients, err := o.resolveTargets(ctx, req)
	if err != nil {
		return RunSummary{}, err
	}
	sum := o.runClients(ctx, TriggerManual, clients, req.Force)
	sum.WindowOpen = o.WindowOpen(sum.StartedAt)
	return sum, nil
}

func (o *Orchestrator) resolveTargets(ctx context.Context, req TriggerRequest) ([]*types.Client, error) {
	ctx, cancel := o.rosterContext(ctx)
	defer cancel()
	var clients []*types.Client
	switch {
	case req.ClientID != nil:
		c, err := o.roster.GetClient(ctx, *req.ClientID)
		if err != nil {
			return nil, err
		}
		clients = []*types.Client{c}
	case req.CoachID != nil:
		cs, err := o.roster.ListClientsForCoach(ctx, *req.CoachID)
		if err != nil {
			return nil, fmt.Errorf("list clients for coach: %w", err)
		}
		clients = cs
	default:
		cs, err := o.roster.ListActiveClients(ctx)
		if err != nil {
			return nil, fmt.Errorf("list active clients: %w", err)
		}
		clients = cs
	}
	return clients, nil
}

func (o *Orchestrator) rosterContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, o.pipeline.timeouts.Roster)
}

func (o *Orchestrator) runClients(ctx context.Context, trigger string, clients []*types.Client, force bool) RunSummary {
	asOf := o.clock.Now()
	sum := RunSummary{
		Trigger:   trigger,
		WeekStart: WeekStart(asOf, o.loc, o.window.Weekday),
		StartedAt: asOf,
		Outcomes:  make([]Outcome, len(clients)),
	}
	observability.Current().IncCheckinRun(trigger)
	o.log.Info("checkin run started", "trigger", trigger, "week_start", sum.WeekStart, "clients", len(clients), "force", force)

	opts := RunOptions{AsOf: asOf, Force: force, Trigger: trigger}
	var g errgroup.Group
	g.SetLimit(o.workers)
	for i, c := range clients {
		g.Go(func() error {
			sum.Outcomes[i] = o.runOne(ctx, c, opts)
			return nil
		})
	}
	_ = g.Wait()

	sum.FinishedAt = o.clock.Now()
	counts := sum.Counts()
	o.log.Info("checkin run finished",
		"trigger", trigger,
		"week_start", sum.WeekStart,
		StatusSent, counts[StatusSent],
		StatusForced, counts[StatusForced],
		StatusSkipped, counts[StatusSkipped],
		StatusFailed, counts[StatusFailed],
	)
	return sum
}

func (o *Orchestrator) runOne(ctx context.Context, c *types.Client, opts RunOptions) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			o.log.Error("checkin pipeline panic", "panic", r, "stack", string(debug.Stack()))
			out = Outcome{Status: StatusFailed, Stage: "panic", Summary: "internal error", Err: fmt.Errorf("panic: %v", r)}
			if c != nil {
				out.ClientID, out.ClientName = c.ID, c.DisplayName
			}
		}
	}()
	if c != nil && !c.Active && !opts.Force {
		return Outcome{
			ClientID:   c.ID,
			ClientName: c.DisplayName,
			WeekStart:  WeekStart(opts.AsOf, o.loc, o.window.Weekday),
			Status:     StatusSkipped,
			Summary:    "client inactive",
		}
	}
	return o.pipeline.Run(ctx, c, opts)
}

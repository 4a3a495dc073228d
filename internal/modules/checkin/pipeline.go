package checkin

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/facebookgo/clock"
	"github.com/google/uuid"

	types "github.com/yungbote/checkin-engine/internal/domain"
	"github.com/yungbote/checkin-engine/internal/observability"
	"github.com/yungbote/checkin-engine/internal/platform/dbctx"
	"github.com/yungbote/checkin-engine/internal/platform/logger"
)

const (
	StatusSent    = "sent"
	StatusSkipped = "skipped"
	StatusFailed  = "failed"
	StatusForced  = "forced"

	TriggerScheduled = "scheduled"
	TriggerManual    = "manual"

	DefaultLeaseTTL = 5 * time.Minute
)

type PipelineDeps struct {
	Log      *logger.Logger
	Clock    clock.Clock
	Location *time.Location
	Window   WindowConfig

	Aggregator *Aggregator
	Settings   SettingsStore
	Narrative  NarrativeGenerator
	Guard      *Guard
	Delivery   Delivery

	// Optional collaborators.
	Renderer  ReportRenderer
	Artifacts ArtifactStore
	Lease     Lease
	LeaseTTL  time.Duration

	Timeouts StageTimeouts
}

type Pipeline struct {
	log      *logger.Logger
	clock    clock.Clock
	loc      *time.Location
	window   WindowConfig
	deps     PipelineDeps
	timeouts StageTimeouts
	stages   []stage
}

func NewPipeline(deps PipelineDeps) (*Pipeline, error) {
	switch {
	case deps.Log == nil:
		return nil, &ConfigError{Field: "log", Err: errors.New("missing logger")}
	case deps.Aggregator == nil:
		return nil, &ConfigError{Field: "aggregator", Err: errors.New("missing aggregator")}
	case deps.Narrative == nil:
		return nil, &ConfigError{Field: "narrative", Err: errors.New("missing narrative generator")}
	case deps.Guard == nil:
		return nil, &ConfigError{Field: "guard", Err: errors.New("missing idempotency guard")}
	case deps.Delivery == nil:
		return nil, &ConfigError{Field: "delivery", Err: errors.New("missing delivery")}
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
	if deps.LeaseTTL <= 0 {
		deps.LeaseTTL = DefaultLeaseTTL
	}
	p := &Pipeline{
		log:      deps.Log.With("service", "CheckinPipeline"),
		clock:    deps.Clock,
		loc:      deps.Location,
		window:   deps.Window,
		deps:     deps,
		timeouts: deps.Timeouts.withDefaults(),
	}
	p.stages = p.buildStages()
	return p, nil
}

type RunOptions struct {
	// AsOf anchors the aggregation window and the week key. Zero means now.
	AsOf    time.Time
	Force   bool
	Trigger string
}

type Outcome struct {
	ClientID   uuid.UUID  `json:"client_id"`
	ClientName string     `json:"client_name,omitempty"`
	WeekStart  string     `json:"week_start"`
	Status     string     `json:"status"`
	Stage      string     `json:"stage,omitempty"`
	Summary    string     `json:"summary"`
	MessageID  *uuid.UUID `json:"message_id,omitempty"`
	Err        error      `json:"-"`
}

func (o Outcome) String() string {
	name := o.ClientName
	if name == "" {
		name = o.ClientID.String()
	}
	if o.Stage != "" && o.Status != StatusSent && o.Status != StatusForced {
		return fmt.Sprintf("%s [%s] %s at %s: %s", name, o.WeekStart, o.Status, o.Stage, o.Summary)
	}
	return fmt.Sprintf("%s [%s] %s: %s", name, o.WeekStart, o.Status, o.Summary)
}

type runState struct {
	client    *types.Client
	opts      RunOptions
	asOf      time.Time
	weekStart string

	bundle  WeeklyBundle
	metrics AdherenceMetrics
	nc      NarrativeContext

	narrative   string
	filtered    string
	artifactKey string
	artifactURL string

	release  func()
	inserted bool
	message  *types.ChatMessage
}

// Run drives one client through every stage. It never panics out and never
// returns an error; the Outcome carries the result.
func (p *Pipeline) Run(ctx context.Context, client *types.Client, opts RunOptions) (out Outcome) {
	if client == nil {
		return Outcome{Status: StatusFailed, Summary: "missing client", Err: ErrClientNotFound}
	}
	if opts.AsOf.IsZero() {
		opts.AsOf = p.clock.Now()
	}
	if opts.Trigger == "" {
		opts.Trigger = TriggerScheduled
	}
	st := &runState{
		client:    client,
		opts:      opts,
		asOf:      opts.AsOf,
		weekStart: WeekStart(opts.AsOf, p.loc, p.window.Weekday),
	}
	defer func() {
		if st.release != nil {
			st.release()
		}
	}()
	defer func() {
		if r := recover(); r != nil {
			serr := p.onFailure(st, "panic", fmt.Errorf("panic: %v", r), true)
			out = p.finish(st, StatusFailed, "panic", "internal error", serr)
		}
	}()

	for _, s := range p.stages {
		if s.Skip != nil && s.Skip(st) {
			continue
		}
		err := p.runStage(ctx, s, st)
		if err == nil {
			continue
		}
		switch {
		case errors.Is(err, ErrAlreadySent):
			return p.finish(st, StatusSkipped, s.Name, "already sent for week "+st.weekStart, nil)
		case errors.Is(err, errLeaseHeld):
			return p.finish(st, StatusSkipped, s.Name, "in flight on another worker", nil)
		case s.Optional:
			p.onFailure(st, s.Name, err, false)
		default:
			serr := p.onFailure(st, s.Name, err, true)
			return p.finish(st, StatusFailed, s.Name, failureSummary(err), serr)
		}
	}

	if st.inserted {
		return p.finish(st, StatusSent, "", "check-in delivered", nil)
	}
	return p.finish(st, StatusForced, "", "check-in re-sent (forced)", nil)
}

func (p *Pipeline) finish(st *runState, status, stageName, summary string, err error) Outcome {
	out := Outcome{
		ClientID:  st.client.ID,
		WeekStart: st.weekStart,
		Status:    status,
		Stage:     stageName,
		Summary:   summary,
		Err:       err,
	}
	out.ClientName = st.client.DisplayName
	if st.message != nil {
		id := st.message.ID
		out.MessageID = &id
	}
	observability.Current().IncCheckinOutcome(status)
	p.log.Info("checkin client finished",
		"client_id", st.client.ID.String(),
		"week_start", st.weekStart,
		"trigger", st.opts.Trigger,
		"status", status,
		"stage", stageName,
	)
	return out
}

func failureSummary(err error) string {
	switch ErrorKind(err) {
	case "transient_source":
		return "activity data unavailable, will retry"
	case "generation":
		return "narrative generation failed"
	case "config":
		return "misconfigured"
	default:
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "timed out"
		}
		return "storage error, will retry"
	}
}

// -------------------- stages --------------------

func (p *Pipeline) buildStages() []stage {
	return []stage{
		{
			Name:    StageGuardCheck,
			Timeout: p.timeouts.Record,
			Skip:    func(st *runState) bool { return st.opts.Force },
			Run:     p.guardCheck,
		},
		{Name: StageAggregate, Timeout: p.timeouts.Aggregate, Run: p.aggregate},
		{Name: StageCompute, Run: p.compute},
		{Name: StageBuildContext, Run: p.buildContext},
		{
			Name:     StageLease,
			Timeout:  p.timeouts.Record,
			Optional: true,
			Skip:     func(*runState) bool { return p.deps.Lease == nil },
			Run:      p.acquireLease,
		},
		{Name: StageGenerate, Timeout: p.timeouts.Generate, Run: p.generate},
		{Name: StageFilter, Timeout: p.timeouts.Filter, Optional: true, Run: p.filter},
		{
			Name:     StageRender,
			Timeout:  p.timeouts.Render,
			Optional: true,
			Skip:     func(*runState) bool { return p.deps.Renderer == nil },
			Run:      p.render,
		},
		{Name: StageRecord, Timeout: p.timeouts.Record, Run: p.record},
		{
			Name:     StageBroadcast,
			Timeout:  p.timeouts.Broadcast,
			Optional: true,
			Skip:     func(st *runState) bool { return st.message == nil },
			Run:      p.broadcast,
		},
	}
}

func (p *Pipeline) guardCheck(ctx context.Context, st *runState) error {
	sent, err := p.deps.Guard.HasCheckinForWeek(ctx, st.client.ID, st.weekStart)
	if err != nil {
		return fmt.Errorf("ledger pre-check: %w", err)
	}
	if sent {
		return ErrAlreadySent
	}
	return nil
}

func (p *Pipeline) aggregate(ctx context.Context, st *runState) error {
	bundle, err := p.deps.Aggregator.Gather(ctx, st.client, st.asOf)
	if err != nil {
		return err
	}
	st.bundle = bundle
	return nil
}

func (p *Pipeline) compute(_ context.Context, st *runState) error {
	st.metrics = Compute(st.bundle)
	return nil
}

func (p *Pipeline) buildContext(_ context.Context, st *runState) error {
	st.nc = BuildContext(st.client, st.metrics, st.bundle, st.weekStart)
	return nil
}

func leaseKey(clientID uuid.UUID, weekStart string) string {
	return "checkin:lease:" + clientID.String() + ":" + weekStart
}

func (p *Pipeline) acquireLease(ctx context.Context, st *runState) error {
	release, ok, err := p.deps.Lease.Acquire(ctx, leaseKey(st.client.ID, st.weekStart), p.deps.LeaseTTL)
	if err != nil {
		return fmt.Errorf("acquire lease: %w", err)
	}
	if !ok {
		return errLeaseHeld
	}
	st.release = release
	if st.opts.Force {
		return nil
	}
	// Another worker may have finished between the pre-check and the lease.
	sent, err := p.deps.Guard.HasCheckinForWeek(ctx, st.client.ID, st.weekStart)
	if err != nil {
		return fmt.Errorf("ledger re-check: %w", err)
	}
	if sent {
		return ErrAlreadySent
	}
	return nil
}

func (p *Pipeline) generate(ctx context.Context, st *runState) error {
	text, err := p.deps.Narrative.Generate(ctx, st.nc)
	if err != nil {
		return &GenerationError{Err: err}
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return &GenerationError{Err: errors.New("empty narrative")}
	}
	st.narrative = text
	st.filtered = text
	return nil
}

func (p *Pipeline) filter(ctx context.Context, st *runState) error {
	cfg := DefaultFilterConfig()
	if p.deps.Settings != nil {
		got, err := p.deps.Settings.FilterConfig(ctx, st.client.CoachID)
		if err != nil {
			p.log.Warn("filter settings unavailable, using defaults",
				"coach_id", st.client.CoachID.String(), "error", err)
		} else {
			cfg = got
		}
	}
	out, err := ApplyFilter(st.narrative, cfg)
	if err != nil {
		return err
	}
	if strings.TrimSpace(out) == "" {
		return &FilterError{Rule: "result", Err: errors.New("filter removed all content")}
	}
	st.filtered = out
	return nil
}

func artifactFilename(clientID uuid.UUID, weekStart string) string {
	return "checkins/" + clientID.String() + "/" + weekStart + ".png"
}

func (p *Pipeline) render(ctx context.Context, st *runState) error {
	png, err := p.deps.Renderer.Render(ctx, ReportInput{
		Client:    st.client,
		WeekStart: st.weekStart,
		Metrics:   st.metrics,
		Bundle:    st.bundle,
	})
	if err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	if p.deps.Artifacts == nil || len(png) == 0 {
		return nil
	}
	key, url, err := p.deps.Artifacts.SaveArtifact(ctx, png, artifactFilename(st.client.ID, st.weekStart))
	if err != nil {
		return fmt.Errorf("save artifact: %w", err)
	}
	st.artifactKey, st.artifactURL = key, url
	return nil
}

func (p *Pipeline) record(ctx context.Context, st *runState) error {
	rec := &types.CheckinRecord{
		ClientID:    st.client.ID,
		WeekStart:   st.weekStart,
		Content:     st.filtered,
		ArtifactKey: st.artifactKey,
	}
	msg := FilteredMessage{
		Text:        st.filtered,
		MessageType: types.MessageTypeWeeklyCheckin,
		WeekStart:   st.weekStart,
		ArtifactKey: st.artifactKey,
		ArtifactURL: st.artifactURL,
		Metrics:     st.metrics,
		Forced:      st.opts.Force,
	}
	var persisted *types.ChatMessage
	inserted, err := p.deps.Guard.RecordCheckin(ctx, rec, st.opts.Force, func(dbc dbctx.Context) error {
		m, err := p.deps.Delivery.PersistChatMessage(dbc, st.client, msg)
		if err != nil {
			return fmt.Errorf("persist chat message: %w", err)
		}
		persisted = m
		return nil
	})
	if err != nil {
		return err
	}
	st.inserted = inserted
	st.message = persisted
	return nil
}

func (p *Pipeline) broadcast(ctx context.Context, st *runState) error {
	return p.deps.Delivery.Broadcast(ctx, st.client, st.message)
}

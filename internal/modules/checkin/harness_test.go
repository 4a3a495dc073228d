package checkin

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/facebookgo/clock"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/checkin-engine/internal/data/repos"
	"github.com/yungbote/checkin-engine/internal/data/repos/testutil"
	types "github.com/yungbote/checkin-engine/internal/domain"
	"github.com/yungbote/checkin-engine/internal/platform/dbctx"
)

// Monday 2026-10-19 09:10 in New York (EDT).
var mondayInWindow = time.Date(2026, 10, 19, 13, 10, 0, 0, time.UTC)

const mondayWeek = "2026-10-19"

func mustLoc(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := LoadLocation(name)
	if err != nil {
		t.Fatalf("LoadLocation(%s): %v", name, err)
	}
	return loc
}

func mockClockAt(at time.Time) *clock.Mock {
	m := clock.NewMock()
	m.Add(at.Sub(m.Now()))
	return m
}

type fakeNarrative struct {
	mu       sync.Mutex
	calls    int
	contexts []NarrativeContext
	failFor  map[string]error
	text     string
}

func (f *fakeNarrative) Generate(_ context.Context, nc NarrativeContext) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.contexts = append(f.contexts, nc)
	if err, ok := f.failFor[nc.Client.Name]; ok {
		return "", err
	}
	if f.text != "" {
		return f.text, nil
	}
	return "Nice work this week, " + nc.Client.Name + ". Keep logging.", nil
}

func (f *fakeNarrative) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type recordingDelivery struct {
	chat repos.ChatMessageRepo

	mu         sync.Mutex
	persisted  []FilteredMessage
	broadcasts int
	persistErr error
}

func (d *recordingDelivery) PersistChatMessage(dbc dbctx.Context, client *types.Client, msg FilteredMessage) (*types.ChatMessage, error) {
	if d.persistErr != nil {
		return nil, d.persistErr
	}
	rows, err := d.chat.Create(dbc, []*types.ChatMessage{{
		ClientID:    client.ID,
		CoachID:     client.CoachID,
		Sender:      types.SenderAI,
		MessageType: msg.MessageType,
		Content:     msg.Text,
	}})
	if err != nil {
		return nil, err
	}
	d.mu.Lock()
	d.persisted = append(d.persisted, msg)
	d.mu.Unlock()
	return rows[0], nil
}

func (d *recordingDelivery) Broadcast(context.Context, *types.Client, *types.ChatMessage) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.broadcasts++
	return errors.New("no subscribers")
}

type staticSettings struct {
	cfg FilterConfig
	err error
}

func (s staticSettings) FilterConfig(context.Context, uuid.UUID) (FilterConfig, error) {
	return s.cfg, s.err
}

type heldLease struct{}

func (heldLease) Acquire(context.Context, string, time.Duration) (func(), bool, error) {
	return nil, false, nil
}

type harness struct {
	db        *gorm.DB
	clock     *clock.Mock
	loc       *time.Location
	narrative *fakeNarrative
	delivery  *recordingDelivery
	ledger    repos.CheckinRecordRepo
	chat      repos.ChatMessageRepo
	pipeline  *Pipeline
	orch      *Orchestrator
}

func newHarness(t *testing.T, mutate ...func(*PipelineDeps)) *harness {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	h := &harness{
		db:        db,
		clock:     mockClockAt(mondayInWindow),
		loc:       mustLoc(t, "America/New_York"),
		narrative: &fakeNarrative{failFor: map[string]error{}},
		ledger:    repos.NewCheckinRecordRepo(db, log),
		chat:      repos.NewChatMessageRepo(db, log),
	}
	h.delivery = &recordingDelivery{chat: h.chat}

	deps := PipelineDeps{
		Log:      log,
		Clock:    h.clock,
		Location: h.loc,
		Window:   DefaultWindowConfig(),
		Aggregator: NewAggregator(NewRepoActivitySource(
			repos.NewMacroLogRepo(db, log),
			repos.NewWeightEntryRepo(db, log),
			h.chat,
		), DefaultChatHistoryLimit),
		Settings:  staticSettings{cfg: DefaultFilterConfig()},
		Narrative: h.narrative,
		Guard:     NewGuard(db, h.ledger, log),
		Delivery:  h.delivery,
	}
	for _, fn := range mutate {
		fn(&deps)
	}
	p, err := NewPipeline(deps)
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	h.pipeline = p

	o, err := NewOrchestrator(OrchestratorDeps{
		Log:      log,
		Clock:    h.clock,
		Location: h.loc,
		Window:   DefaultWindowConfig(),
		Roster:   NewRepoRoster(repos.NewClientRepo(db, log)),
		Pipeline: p,
		Workers:  4,
	})
	if err != nil {
		t.Fatalf("NewOrchestrator: %v", err)
	}
	h.orch = o
	return h
}

// seedWeek writes the standard fixture: five of seven days logged at 95%
// calories and 80% protein, plus one weigh-in.
func (h *harness) seedWeek(t *testing.T, name string) *types.Client {
	t.Helper()
	ctx := context.Background()
	c := testutil.SeedClient(t, ctx, h.db, uuid.New(), name)
	for d := 1; d <= 5; d++ {
		at := mondayInWindow.Add(-time.Duration(d)*24*time.Hour - 2*time.Hour)
		testutil.SeedMacroLog(t, ctx, h.db, c.ID, at, 1900, 2000, 120, 150)
	}
	testutil.SeedWeight(t, ctx, h.db, c.ID, mondayInWindow.Add(-36*time.Hour), 196.4)
	testutil.SeedChat(t, ctx, h.db, c, types.SenderClient, "Hit my protein most days.", mondayInWindow.Add(-48*time.Hour))
	return c
}

func (h *harness) messages(t *testing.T, clientID uuid.UUID) []*types.ChatMessage {
	t.Helper()
	rows, err := h.chat.ListByClientAndType(dbctx.Context{Ctx: context.Background()}, clientID, types.MessageTypeWeeklyCheckin, 50)
	if err != nil {
		t.Fatalf("ListByClientAndType: %v", err)
	}
	return rows
}

func (h *harness) records(t *testing.T) []*types.CheckinRecord {
	t.Helper()
	rows, err := h.ledger.ListByWeek(dbctx.Context{Ctx: context.Background()}, mondayWeek)
	if err != nil {
		t.Fatalf("ListByWeek: %v", err)
	}
	return rows
}

// blockingLedger answers Exists only once its context is done.
type blockingLedger struct {
	repos.CheckinRecordRepo
}

func (blockingLedger) Exists(dbc dbctx.Context, _ uuid.UUID, _ string) (bool, error) {
	<-dbc.Ctx.Done()
	return false, dbc.Ctx.Err()
}

// slowNarrative never produces text before its context ends.
type slowNarrative struct{}

func (slowNarrative) Generate(ctx context.Context, _ NarrativeContext) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func shortTimeouts(d time.Duration) StageTimeouts {
	return StageTimeouts{Roster: d, Aggregate: d, Generate: d, Filter: d, Render: d, Record: d, Broadcast: d}
}

// runWithin fails the test if Run does not return inside limit.
func runWithin(t *testing.T, p *Pipeline, c *types.Client, opts RunOptions, limit time.Duration) Outcome {
	t.Helper()
	done := make(chan Outcome, 1)
	go func() { done <- p.Run(context.Background(), c, opts) }()
	select {
	case out := <-done:
		return out
	case <-time.After(limit):
		t.Fatalf("pipeline still running after %s", limit)
		return Outcome{}
	}
}

package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/facebookgo/clock"

	"github.com/yungbote/checkin-engine/internal/modules/checkin"
	"github.com/yungbote/checkin-engine/internal/observability"
	"github.com/yungbote/checkin-engine/internal/platform/logger"
)

const DefaultPollInterval = 15 * time.Minute

var ErrAlreadyRunning = errors.New("scheduler already running")

type State string

const (
	StateIdle       State = "idle"
	StatePolling    State = "polling"
	StateWindowOpen State = "window_open"
	StateProcessing State = "processing"
)

// Runner is the slice of the orchestrator the scheduler drives.
type Runner interface {
	WindowOpen(now time.Time) bool
	RunWindow(ctx context.Context) (checkin.RunSummary, error)
}

// Handle owns the poll loop. Nothing about it is global; the app builds one
// and starts it explicitly.
type Handle struct {
	log      *logger.Logger
	clock    clock.Clock
	interval time.Duration
	runner   Runner

	// OnSummary, when set, receives every finished window run.
	OnSummary func(checkin.RunSummary)

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	ticker  *clock.Ticker
	wg      sync.WaitGroup

	busy  atomic.Bool
	state atomic.Value
}

func New(baseLog *logger.Logger, clk clock.Clock, interval time.Duration, runner Runner) (*Handle, error) {
	if baseLog == nil {
		return nil, &checkin.ConfigError{Field: "log", Err: errors.New("missing logger")}
	}
	if runner == nil {
		return nil, &checkin.ConfigError{Field: "runner", Err: errors.New("missing runner")}
	}
	if interval <= 0 {
		return nil, &checkin.ConfigError{Field: "poll_interval", Err: fmt.Errorf("must be positive, got %s", interval)}
	}
	if clk == nil {
		clk = clock.New()
	}
	h := &Handle{
		log:      baseLog.With("component", "CheckinScheduler"),
		clock:    clk,
		interval: interval,
		runner:   runner,
	}
	h.state.Store(StateIdle)
	return h, nil
}

func (h *Handle) State() State {
	s, _ := h.state.Load().(State)
	return s
}

func (h *Handle) Running() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.running
}

// Start checks the window once right away and then on every tick. It
// returns ErrAlreadyRunning if the loop is live.
func (h *Handle) Start(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.running {
		return ErrAlreadyRunning
	}
	loopCtx, cancel := context.WithCancel(ctx)
	h.cancel = cancel
	h.ticker = h.clock.Ticker(h.interval)
	h.running = true
	h.state.Store(StatePolling)

	h.log.Info("Starting checkin scheduler", "poll_interval", h.interval.String())

	h.wg.Add(1)
	go h.loop(loopCtx, h.ticker)
	return nil
}

// Stop cancels the loop and waits for an in-progress cycle. Safe to call
// more than once.
func (h *Handle) Stop() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	h.running = false
	cancel, ticker := h.cancel, h.ticker
	h.cancel, h.ticker = nil, nil
	h.mu.Unlock()

	cancel()
	ticker.Stop()
	h.wg.Wait()
	h.state.Store(StateIdle)
	h.log.Info("Checkin scheduler stopped")
}

func (h *Handle) loop(ctx context.Context, ticker *clock.Ticker) {
	defer h.wg.Done()

	h.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.tick(ctx)
		}
	}
}

func (h *Handle) tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if !h.busy.CompareAndSwap(false, true) {
		h.log.Warn("Skipping scheduler tick; previous cycle still running")
		observability.Current().IncSchedulerSkippedTick()
		return
	}
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		defer h.busy.Store(false)
		h.cycle(ctx)
	}()
}

func (h *Handle) cycle(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			h.log.Error("Scheduler cycle panic", "panic", r)
		}
		if ctx.Err() == nil {
			h.state.Store(StatePolling)
		}
	}()

	now := h.clock.Now()
	if !h.runner.WindowOpen(now) {
		return
	}
	h.state.Store(StateWindowOpen)
	h.log.Info("Check-in window open", "now", now.UTC().Format(time.RFC3339))

	h.state.Store(StateProcessing)
	sum, err := h.runner.RunWindow(ctx)
	if err != nil {
		h.log.Warn("Check-in window run failed; retrying next tick", "error", err)
		return
	}
	if h.OnSummary != nil {
		h.OnSummary(sum)
	}
}

package checkin

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/checkin-engine/internal/observability"
)

const tracerName = "github.com/yungbote/checkin-engine/internal/modules/checkin"

// -------------------- Public API --------------------

const (
	StageGuardCheck   = "guard_check"
	StageAggregate    = "aggregate"
	StageCompute      = "compute"
	StageBuildContext = "build_context"
	StageLease        = "lease"
	StageGenerate     = "generate"
	StageFilter       = "filter"
	StageRender       = "render"
	StageRecord       = "record"
	StageBroadcast    = "broadcast"
)

type StageTimeouts struct {
	// Roster bounds the client list fetch that precedes a run.
	Roster    time.Duration
	Aggregate time.Duration
	Generate  time.Duration
	Filter    time.Duration
	Render    time.Duration
	Record    time.Duration
	Broadcast time.Duration
}

func DefaultStageTimeouts() StageTimeouts {
	return StageTimeouts{
		Roster:    15 * time.Second,
		Aggregate: 30 * time.Second,
		Generate:  90 * time.Second,
		Filter:    5 * time.Second,
		Render:    20 * time.Second,
		Record:    15 * time.Second,
		Broadcast: 5 * time.Second,
	}
}

func (t StageTimeouts) withDefaults() StageTimeouts {
	def := DefaultStageTimeouts()
	if t.Roster <= 0 {
		t.Roster = def.Roster
	}
	if t.Aggregate <= 0 {
		t.Aggregate = def.Aggregate
	}
	if t.Generate <= 0 {
		t.Generate = def.Generate
	}
	if t.Filter <= 0 {
		t.Filter = def.Filter
	}
	if t.Render <= 0 {
		t.Render = def.Render
	}
	if t.Record <= 0 {
		t.Record = def.Record
	}
	if t.Broadcast <= 0 {
		t.Broadcast = def.Broadcast
	}
	return t
}

// stage is one step of the per-client pipeline. Optional stages log their
// failure and let the pipeline continue.
type stage struct {
	Name     string
	Timeout  time.Duration
	Optional bool
	Skip     func(st *runState) bool
	Run      func(ctx context.Context, st *runState) error
}

// -------------------- tight helpers --------------------

// isStop reports errors that end a run early without counting as a failure.
func isStop(err error) bool {
	return errors.Is(err, ErrAlreadySent) || errors.Is(err, errLeaseHeld)
}

func (p *Pipeline) runStage(ctx context.Context, s stage, st *runState) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	sctx := ctx
	cancel := context.CancelFunc(func() {})
	if s.Timeout > 0 {
		sctx, cancel = context.WithTimeout(ctx, s.Timeout)
	}
	defer cancel()

	sctx, span := otel.Tracer(tracerName).Start(sctx, observability.CheckinSpanPrefix+s.Name, trace.WithAttributes(
		attribute.String("checkin.stage", s.Name),
		attribute.String("checkin.week_start", st.weekStart),
		attribute.String("checkin.trigger", st.opts.Trigger),
		attribute.Bool("checkin.force", st.opts.Force),
	))
	defer span.End()

	start := p.clock.Now()
	err := s.Run(sctx, st)
	status := "ok"
	switch {
	case err == nil:
	case isStop(err):
		status = "skipped"
		span.SetAttributes(attribute.String("checkin.skip_reason", err.Error()))
	default:
		status = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	observability.Current().ObserveCheckinStage(s.Name, status, p.clock.Now().Sub(start))
	return err
}

// onFailure is the single place stage failures are logged and counted.
func (p *Pipeline) onFailure(st *runState, stageName string, err error, fatal bool) *StageError {
	serr := &StageError{ClientID: st.client.ID, Stage: stageName, Err: err}
	kind := ErrorKind(err)
	observability.Current().IncCheckinStageFailure(stageName, kind)
	kv := []interface{}{
		"client_id", st.client.ID.String(),
		"coach_id", st.client.CoachID.String(),
		"week_start", st.weekStart,
		"stage", stageName,
		"kind", kind,
		"error", err,
	}
	if fatal {
		p.log.Error("checkin stage failed", kv...)
	} else {
		p.log.Warn("checkin stage degraded", kv...)
	}
	return serr
}

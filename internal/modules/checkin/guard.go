package checkin

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/checkin-engine/internal/data/repos"
	types "github.com/yungbote/checkin-engine/internal/domain"
	"github.com/yungbote/checkin-engine/internal/platform/dbctx"
	"github.com/yungbote/checkin-engine/internal/platform/logger"
)

// Guard owns the (client, week) ledger. The unique constraint behind
// TryInsert is the only thing that decides whether a check-in was sent.
type Guard struct {
	db     *gorm.DB
	ledger repos.CheckinRecordRepo
	log    *logger.Logger
}

func NewGuard(db *gorm.DB, ledger repos.CheckinRecordRepo, baseLog *logger.Logger) *Guard {
	return &Guard{db: db, ledger: ledger, log: baseLog.With("component", "CheckinGuard")}
}

// HasCheckinForWeek is a read-only pre-check; a false result is not a promise.
func (g *Guard) HasCheckinForWeek(ctx context.Context, clientID uuid.UUID, weekStart string) (bool, error) {
	return g.ledger.Exists(dbctx.Context{Ctx: ctx}, clientID, weekStart)
}

// RecordCheckin inserts rec and runs onRecorded in the same transaction, so
// the ledger row and whatever onRecorded writes commit together.
//
// On conflict it returns ErrAlreadySent unless force is set, in which case
// onRecorded still runs and inserted is false. The existing row is never
// touched.
func (g *Guard) RecordCheckin(ctx context.Context, rec *types.CheckinRecord, force bool, onRecorded func(dbctx.Context) error) (bool, error) {
	if rec == nil {
		return false, fmt.Errorf("nil checkin record")
	}
	inserted := false
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		ok, err := g.ledger.TryInsert(dbc, rec)
		if err != nil {
			return fmt.Errorf("insert checkin record: %w", err)
		}
		if !ok && !force {
			return ErrAlreadySent
		}
		inserted = ok
		if onRecorded == nil {
			return nil
		}
		return onRecorded(dbc)
	})
	if err != nil {
		if errors.Is(err, ErrAlreadySent) {
			return false, ErrAlreadySent
		}
		return false, err
	}
	return inserted, nil
}

package activity

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/checkin-engine/internal/domain"
	"github.com/yungbote/checkin-engine/internal/platform/dbctx"
	"github.com/yungbote/checkin-engine/internal/platform/logger"
)

type WeightEntryRepo interface {
	Create(dbc dbctx.Context, rows []*types.WeightEntry) ([]*types.WeightEntry, error)
	// ListInRange returns readings with from <= recorded_at < to, newest first.
	ListInRange(dbc dbctx.Context, clientID uuid.UUID, from, to time.Time) ([]*types.WeightEntry, error)
}

type weightEntryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewWeightEntryRepo(db *gorm.DB, baseLog *logger.Logger) WeightEntryRepo {
	return &weightEntryRepo{db: db, log: baseLog.With("repo", "WeightEntryRepo")}
}

func (r *weightEntryRepo) Create(dbc dbctx.Context, rows []*types.WeightEntry) ([]*types.WeightEntry, error) {
	if len(rows) == 0 {
		return []*types.WeightEntry{}, nil
	}
	tx := dbc.Tx
	if tx == nil {
		tx = r.db
	}
	if err := tx.WithContext(dbc.Ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *weightEntryRepo) ListInRange(dbc dbctx.Context, clientID uuid.UUID, from, to time.Time) ([]*types.WeightEntry, error) {
	if clientID == uuid.Nil {
		return nil, fmt.Errorf("missing client_id")
	}
	tx := dbc.Tx
	if tx == nil {
		tx = r.db
	}
	out := []*types.WeightEntry{}
	if err := tx.WithContext(dbc.Ctx).
		Where("client_id = ? AND recorded_at >= ? AND recorded_at < ?", clientID, from.UTC(), to.UTC()).
		Order("recorded_at DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

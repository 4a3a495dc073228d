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

type MacroLogRepo interface {
	Create(dbc dbctx.Context, rows []*types.MacroLogEntry) ([]*types.MacroLogEntry, error)
	// ListInRange returns entries with from <= logged_at < to, newest first.
	ListInRange(dbc dbctx.Context, clientID uuid.UUID, from, to time.Time) ([]*types.MacroLogEntry, error)
}

type macroLogRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMacroLogRepo(db *gorm.DB, baseLog *logger.Logger) MacroLogRepo {
	return &macroLogRepo{db: db, log: baseLog.With("repo", "MacroLogRepo")}
}

func (r *macroLogRepo) Create(dbc dbctx.Context, rows []*types.MacroLogEntry) ([]*types.MacroLogEntry, error) {
	if len(rows) == 0 {
		return []*types.MacroLogEntry{}, nil
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

func (r *macroLogRepo) ListInRange(dbc dbctx.Context, clientID uuid.UUID, from, to time.Time) ([]*types.MacroLogEntry, error) {
	if clientID == uuid.Nil {
		return nil, fmt.Errorf("missing client_id")
	}
	tx := dbc.Tx
	if tx == nil {
		tx = r.db
	}
	out := []*types.MacroLogEntry{}
	if err := tx.WithContext(dbc.Ctx).
		Where("client_id = ? AND logged_at >= ? AND logged_at < ?", clientID, from.UTC(), to.UTC()).
		Order("logged_at DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

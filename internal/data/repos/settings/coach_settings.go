package settings

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/checkin-engine/internal/domain"
	"github.com/yungbote/checkin-engine/internal/platform/dbctx"
	"github.com/yungbote/checkin-engine/internal/platform/logger"
)

type CoachSettingsRepo interface {
	// GetByCoachID returns (nil, nil) when the coach has no settings row.
	GetByCoachID(dbc dbctx.Context, coachID uuid.UUID) (*types.CoachSettings, error)
	Upsert(dbc dbctx.Context, row *types.CoachSettings) error
}

type coachSettingsRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCoachSettingsRepo(db *gorm.DB, baseLog *logger.Logger) CoachSettingsRepo {
	return &coachSettingsRepo{db: db, log: baseLog.With("repo", "CoachSettingsRepo")}
}

func (r *coachSettingsRepo) GetByCoachID(dbc dbctx.Context, coachID uuid.UUID) (*types.CoachSettings, error) {
	if coachID == uuid.Nil {
		return nil, fmt.Errorf("missing coach_id")
	}
	tx := dbc.Tx
	if tx == nil {
		tx = r.db
	}
	var out types.CoachSettings
	err := tx.WithContext(dbc.Ctx).Where("coach_id = ?", coachID).Take(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *coachSettingsRepo) Upsert(dbc dbctx.Context, row *types.CoachSettings) error {
	if row == nil || row.CoachID == uuid.Nil {
		return fmt.Errorf("missing coach_id")
	}
	tx := dbc.Tx
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "coach_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"filter_rules", "updated_at"}),
		}).
		Create(row).Error
}

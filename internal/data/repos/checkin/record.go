package checkin

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/checkin-engine/internal/domain"
	"github.com/yungbote/checkin-engine/internal/platform/dbctx"
	"github.com/yungbote/checkin-engine/internal/platform/logger"
)

type CheckinRecordRepo interface {
	Exists(dbc dbctx.Context, clientID uuid.UUID, weekStart string) (bool, error)
	// TryInsert writes the row unless one already exists for
	// (client_id, week_start). It reports whether this call inserted it.
	TryInsert(dbc dbctx.Context, row *types.CheckinRecord) (bool, error)
	GetByClientWeek(dbc dbctx.Context, clientID uuid.UUID, weekStart string) (*types.CheckinRecord, error)
	ListByWeek(dbc dbctx.Context, weekStart string) ([]*types.CheckinRecord, error)
}

type checkinRecordRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCheckinRecordRepo(db *gorm.DB, baseLog *logger.Logger) CheckinRecordRepo {
	return &checkinRecordRepo{db: db, log: baseLog.With("repo", "CheckinRecordRepo")}
}

func (r *checkinRecordRepo) Exists(dbc dbctx.Context, clientID uuid.UUID, weekStart string) (bool, error) {
	if clientID == uuid.Nil || weekStart == "" {
		return false, fmt.Errorf("missing client_id or week_start")
	}
	tx := dbc.Tx
	if tx == nil {
		tx = r.db
	}
	var n int64
	if err := tx.WithContext(dbc.Ctx).
		Model(&types.CheckinRecord{}).
		Where("client_id = ? AND week_start = ?", clientID, weekStart).
		Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *checkinRecordRepo) TryInsert(dbc dbctx.Context, row *types.CheckinRecord) (bool, error) {
	if row == nil || row.ClientID == uuid.Nil || row.WeekStart == "" {
		return false, fmt.Errorf("missing client_id or week_start")
	}
	tx := dbc.Tx
	if tx == nil {
		tx = r.db
	}
	res := tx.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "client_id"}, {Name: "week_start"}},
			DoNothing: true,
		}).
		Create(row)
	if res.Error != nil {
		if IsUniqueViolation(res.Error) {
			return false, nil
		}
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *checkinRecordRepo) GetByClientWeek(dbc dbctx.Context, clientID uuid.UUID, weekStart string) (*types.CheckinRecord, error) {
	tx := dbc.Tx
	if tx == nil {
		tx = r.db
	}
	var out types.CheckinRecord
	err := tx.WithContext(dbc.Ctx).
		Where("client_id = ? AND week_start = ?", clientID, weekStart).
		Take(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *checkinRecordRepo) ListByWeek(dbc dbctx.Context, weekStart string) ([]*types.CheckinRecord, error) {
	tx := dbc.Tx
	if tx == nil {
		tx = r.db
	}
	out := []*types.CheckinRecord{}
	if err := tx.WithContext(dbc.Ctx).
		Where("week_start = ?", weekStart).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// IsUniqueViolation recognizes a duplicate-key error surfaced by the driver
// instead of being absorbed by ON CONFLICT.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

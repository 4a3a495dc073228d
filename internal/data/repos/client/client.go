package client

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/checkin-engine/internal/domain"
	"github.com/yungbote/checkin-engine/internal/platform/dbctx"
	"github.com/yungbote/checkin-engine/internal/platform/logger"
)

type ClientRepo interface {
	Create(dbc dbctx.Context, rows []*types.Client) ([]*types.Client, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Client, error)
	ListActive(dbc dbctx.Context) ([]*types.Client, error)
	ListByCoach(dbc dbctx.Context, coachID uuid.UUID) ([]*types.Client, error)
}

type clientRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewClientRepo(db *gorm.DB, baseLog *logger.Logger) ClientRepo {
	return &clientRepo{db: db, log: baseLog.With("repo", "ClientRepo")}
}

func (r *clientRepo) Create(dbc dbctx.Context, rows []*types.Client) ([]*types.Client, error) {
	if len(rows) == 0 {
		return []*types.Client{}, nil
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

// GetByID returns (nil, nil) when the client does not exist.
func (r *clientRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Client, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("missing client_id")
	}
	tx := dbc.Tx
	if tx == nil {
		tx = r.db
	}
	var out types.Client
	err := tx.WithContext(dbc.Ctx).Where("id = ?", id).Take(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *clientRepo) ListActive(dbc dbctx.Context) ([]*types.Client, error) {
	tx := dbc.Tx
	if tx == nil {
		tx = r.db
	}
	out := []*types.Client{}
	if err := tx.WithContext(dbc.Ctx).
		Where("active = ?", true).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *clientRepo) ListByCoach(dbc dbctx.Context, coachID uuid.UUID) ([]*types.Client, error) {
	if coachID == uuid.Nil {
		return nil, fmt.Errorf("missing coach_id")
	}
	tx := dbc.Tx
	if tx == nil {
		tx = r.db
	}
	out := []*types.Client{}
	if err := tx.WithContext(dbc.Ctx).
		Where("coach_id = ? AND active = ?", coachID, true).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

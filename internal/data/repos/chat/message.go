package chat

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/checkin-engine/internal/domain"
	"github.com/yungbote/checkin-engine/internal/platform/dbctx"
	"github.com/yungbote/checkin-engine/internal/platform/logger"
)

type ChatMessageRepo interface {
	Create(dbc dbctx.Context, rows []*types.ChatMessage) ([]*types.ChatMessage, error)
	// ListRecentInRange returns at most limit messages between a client and
	// coach with from <= created_at < to, newest first.
	ListRecentInRange(dbc dbctx.Context, clientID, coachID uuid.UUID, from, to time.Time, limit int) ([]*types.ChatMessage, error)
	ListByClientAndType(dbc dbctx.Context, clientID uuid.UUID, messageType string, limit int) ([]*types.ChatMessage, error)
}

type chatMessageRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewChatMessageRepo(db *gorm.DB, baseLog *logger.Logger) ChatMessageRepo {
	return &chatMessageRepo{db: db, log: baseLog.With("repo", "ChatMessageRepo")}
}

func (r *chatMessageRepo) Create(dbc dbctx.Context, rows []*types.ChatMessage) ([]*types.ChatMessage, error) {
	if len(rows) == 0 {
		return []*types.ChatMessage{}, nil
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	if err := txx.WithContext(dbc.Ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *chatMessageRepo) ListRecentInRange(dbc dbctx.Context, clientID, coachID uuid.UUID, from, to time.Time, limit int) ([]*types.ChatMessage, error) {
	if clientID == uuid.Nil {
		return nil, fmt.Errorf("missing client_id")
	}
	if limit <= 0 || limit > 200 {
		limit = 20
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	q := txx.WithContext(dbc.Ctx).
		Model(&types.ChatMessage{}).
		Where("client_id = ? AND created_at >= ? AND created_at < ?", clientID, from.UTC(), to.UTC())
	if coachID != uuid.Nil {
		q = q.Where("coach_id = ?", coachID)
	}
	out := []*types.ChatMessage{}
	if err := q.Order("created_at DESC").Limit(limit).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *chatMessageRepo) ListByClientAndType(dbc dbctx.Context, clientID uuid.UUID, messageType string, limit int) ([]*types.ChatMessage, error) {
	if clientID == uuid.Nil {
		return nil, fmt.Errorf("missing client_id")
	}
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	out := []*types.ChatMessage{}
	if err := txx.WithContext(dbc.Ctx).
		Where("client_id = ? AND message_type = ?", clientID, messageType).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

package chat

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	SenderAI     = "ai"
	SenderClient = "client"
	SenderCoach  = "coach"

	MessageTypeText          = "text"
	MessageTypeWeeklyCheckin = "weekly_checkin"
)

type ChatMessage struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ClientID uuid.UUID `gorm:"type:uuid;not null;index:idx_chat_message_client_created,priority:1" json:"client_id"`
	CoachID  uuid.UUID `gorm:"type:uuid;not null;index" json:"coach_id"`

	Sender      string         `gorm:"column:sender;not null;index" json:"sender"`
	MessageType string         `gorm:"column:message_type;not null;default:'text'" json:"message_type"`
	Content     string         `gorm:"column:content;type:text;not null;default:''" json:"content"`
	Metadata    datatypes.JSON `gorm:"column:metadata" json:"metadata,omitempty"`

	CreatedAt time.Time `gorm:"not null;index:idx_chat_message_client_created,priority:2" json:"created_at"`
}

func (ChatMessage) TableName() string { return "chat_message" }

func (m *ChatMessage) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	return nil
}

func (m *ChatMessage) FromClient() bool { return m != nil && m.Sender == SenderClient }

package coaching

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CoachSettings holds per-coach knobs. FilterRules is a JSON array of
// {kind, pattern, replacement, limit} objects applied to outgoing check-ins.
type CoachSettings struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CoachID     uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex" json:"coach_id"`
	FilterRules datatypes.JSON `gorm:"column:filter_rules" json:"filter_rules,omitempty"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

func (CoachSettings) TableName() string { return "coach_settings" }

func (s *CoachSettings) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

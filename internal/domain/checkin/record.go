package checkin

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CheckinRecord is the idempotency ledger row. At most one exists per
// (client_id, week_start); rows are never updated or deleted by the engine.
type CheckinRecord struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ClientID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_checkin_record_client_week,priority:1" json:"client_id"`
	WeekStart   string    `gorm:"column:week_start;type:varchar(10);not null;uniqueIndex:idx_checkin_record_client_week,priority:2" json:"week_start"`
	Content     string    `gorm:"column:content;type:text;not null;default:''" json:"content"`
	ArtifactKey string    `gorm:"column:artifact_key;not null;default:''" json:"artifact_key,omitempty"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
}

func (CheckinRecord) TableName() string { return "checkin_record" }

func (r *CheckinRecord) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	return nil
}

package coaching

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type WeightEntry struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ClientID   uuid.UUID `gorm:"type:uuid;not null;index:idx_weight_entry_client_recorded,priority:1" json:"client_id"`
	RecordedAt time.Time `gorm:"not null;index:idx_weight_entry_client_recorded,priority:2" json:"recorded_at"`
	Weight     float64   `gorm:"column:weight;not null" json:"weight"`
	Unit       string    `gorm:"column:unit;not null;default:'lb'" json:"unit"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (WeightEntry) TableName() string { return "weight_entry" }

func (w *WeightEntry) BeforeCreate(*gorm.DB) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	return nil
}

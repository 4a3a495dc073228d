package coaching

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MacroLogEntry is one nutrition upload. Rows are immutable once written.
type MacroLogEntry struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ClientID uuid.UUID `gorm:"type:uuid;not null;index:idx_macro_log_client_logged,priority:1" json:"client_id"`
	LoggedAt time.Time `gorm:"not null;index:idx_macro_log_client_logged,priority:2" json:"logged_at"`

	Calories float64 `gorm:"column:calories;not null;default:0" json:"calories"`
	Protein  float64 `gorm:"column:protein;not null;default:0" json:"protein"`
	Carbs    float64 `gorm:"column:carbs;not null;default:0" json:"carbs"`
	Fat      float64 `gorm:"column:fat;not null;default:0" json:"fat"`

	TargetCalories float64 `gorm:"column:target_calories;not null;default:0" json:"target_calories"`
	TargetProtein  float64 `gorm:"column:target_protein;not null;default:0" json:"target_protein"`
	TargetCarbs    float64 `gorm:"column:target_carbs;not null;default:0" json:"target_carbs"`
	TargetFat      float64 `gorm:"column:target_fat;not null;default:0" json:"target_fat"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (MacroLogEntry) TableName() string { return "macro_log_entry" }

func (m *MacroLogEntry) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

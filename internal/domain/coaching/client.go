package coaching

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Client is owned by the account/profile subsystem. The check-in engine only reads it.
type Client struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CoachID uuid.UUID `gorm:"type:uuid;not null;index" json:"coach_id"`

	DisplayName    string  `gorm:"column:display_name;not null;default:''" json:"display_name"`
	ProgramGoal    string  `gorm:"column:program_goal;not null;default:''" json:"program_goal"`
	BaselineWeight float64 `gorm:"column:baseline_weight;not null;default:0" json:"baseline_weight"`
	GoalWeight     float64 `gorm:"column:goal_weight;not null;default:0" json:"goal_weight"`
	Timezone       string  `gorm:"column:timezone;not null;default:'UTC'" json:"timezone"`
	Active         bool    `gorm:"column:active;not null;default:true;index" json:"active"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Client) TableName() string { return "client" }

func (c *Client) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/checkin-engine/internal/data/repos/activity"
	"github.com/yungbote/checkin-engine/internal/data/repos/chat"
	"github.com/yungbote/checkin-engine/internal/data/repos/checkin"
	"github.com/yungbote/checkin-engine/internal/data/repos/client"
	"github.com/yungbote/checkin-engine/internal/data/repos/settings"
	"github.com/yungbote/checkin-engine/internal/platform/logger"
)

type ClientRepo = client.ClientRepo

type MacroLogRepo = activity.MacroLogRepo
type WeightEntryRepo = activity.WeightEntryRepo

type ChatMessageRepo = chat.ChatMessageRepo

type CheckinRecordRepo = checkin.CheckinRecordRepo

type CoachSettingsRepo = settings.CoachSettingsRepo

func NewClientRepo(db *gorm.DB, baseLog *logger.Logger) ClientRepo {
	return client.NewClientRepo(db, baseLog)
}

func NewMacroLogRepo(db *gorm.DB, baseLog *logger.Logger) MacroLogRepo {
	return activity.NewMacroLogRepo(db, baseLog)
}
func NewWeightEntryRepo(db *gorm.DB, baseLog *logger.Logger) WeightEntryRepo {
	return activity.NewWeightEntryRepo(db, baseLog)
}

func NewChatMessageRepo(db *gorm.DB, baseLog *logger.Logger) ChatMessageRepo {
	return chat.NewChatMessageRepo(db, baseLog)
}

func NewCheckinRecordRepo(db *gorm.DB, baseLog *logger.Logger) CheckinRecordRepo {
	return checkin.NewCheckinRecordRepo(db, baseLog)
}

func NewCoachSettingsRepo(db *gorm.DB, baseLog *logger.Logger) CoachSettingsRepo {
	return settings.NewCoachSettingsRepo(db, baseLog)
}

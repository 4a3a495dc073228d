package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/checkin-engine/internal/data/repos"
	"github.com/yungbote/checkin-engine/internal/platform/logger"
)

type Repos struct {
	Client        repos.ClientRepo
	MacroLog      repos.MacroLogRepo
	WeightEntry   repos.WeightEntryRepo
	ChatMessage   repos.ChatMessageRepo
	CheckinRecord repos.CheckinRecordRepo
	CoachSettings repos.CoachSettingsRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Client:        repos.NewClientRepo(db, log),
		MacroLog:      repos.NewMacroLogRepo(db, log),
		WeightEntry:   repos.NewWeightEntryRepo(db, log),
		ChatMessage:   repos.NewChatMessageRepo(db, log),
		CheckinRecord: repos.NewCheckinRecordRepo(db, log),
		CoachSettings: repos.NewCoachSettingsRepo(db, log),
	}
}

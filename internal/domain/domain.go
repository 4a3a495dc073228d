package domain

import (
	"github.com/yungbote/checkin-engine/internal/domain/chat"
	"github.com/yungbote/checkin-engine/internal/domain/checkin"
	"github.com/yungbote/checkin-engine/internal/domain/coaching"
)

const (
	SenderAI     = chat.SenderAI
	SenderClient = chat.SenderClient
	SenderCoach  = chat.SenderCoach

	MessageTypeText          = chat.MessageTypeText
	MessageTypeWeeklyCheckin = chat.MessageTypeWeeklyCheckin
)

type (
	Client        = coaching.Client
	MacroLogEntry = coaching.MacroLogEntry
	WeightEntry   = coaching.WeightEntry
	CoachSettings = coaching.CoachSettings

	ChatMessage = chat.ChatMessage

	CheckinRecord = checkin.CheckinRecord
)

// Models lists every table the engine migrates.
func Models() []any {
	return []any{
		&Client{},
		&MacroLogEntry{},
		&WeightEntry{},
		&CoachSettings{},
		&ChatMessage{},
		&CheckinRecord{},
	}
}

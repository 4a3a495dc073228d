package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/checkin-engine/internal/domain"
)

func SeedClient(tb testing.TB, ctx context.Context, tx *gorm.DB, coachID uuid.UUID, name string) *types.Client {
	tb.Helper()
	c := &types.Client{
		ID:             uuid.New(),
		CoachID:        coachID,
		DisplayName:    name,
		ProgramGoal:    "fat loss",
		BaselineWeight: 200,
		GoalWeight:     180,
		Timezone:       "America/New_York",
		Active:         true,
	}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed client: %v", err)
	}
	return c
}

func SeedMacroLog(tb testing.TB, ctx context.Context, tx *gorm.DB, clientID uuid.UUID, at time.Time, calories, targetCalories, protein, targetProtein float64) *types.MacroLogEntry {
	tb.Helper()
	m := &types.MacroLogEntry{
		ClientID:       clientID,
		LoggedAt:       at.UTC(),
		Calories:       calories,
		TargetCalories: targetCalories,
		Protein:        protein,
		TargetProtein:  targetProtein,
	}
	if err := tx.WithContext(ctx).Create(m).Error; err != nil {
		tb.Fatalf("seed macro log: %v", err)
	}
	return m
}

func SeedWeight(tb testing.TB, ctx context.Context, tx *gorm.DB, clientID uuid.UUID, at time.Time, weight float64) *types.WeightEntry {
	tb.Helper()
	w := &types.WeightEntry{ClientID: clientID, RecordedAt: at.UTC(), Weight: weight, Unit: "lb"}
	if err := tx.WithContext(ctx).Create(w).Error; err != nil {
		tb.Fatalf("seed weight: %v", err)
	}
	return w
}

func SeedChat(tb testing.TB, ctx context.Context, tx *gorm.DB, client *types.Client, sender, content string, at time.Time) *types.ChatMessage {
	tb.Helper()
	m := &types.ChatMessage{
		ClientID:    client.ID,
		CoachID:     client.CoachID,
		Sender:      sender,
		MessageType: types.MessageTypeText,
		Content:     content,
		CreatedAt:   at.UTC(),
	}
	if err := tx.WithContext(ctx).Create(m).Error; err != nil {
		tb.Fatalf("seed chat: %v", err)
	}
	return m
}

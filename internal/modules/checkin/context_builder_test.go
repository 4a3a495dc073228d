package checkin

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	types "github.com/yungbote/checkin-engine/internal/domain"
)

func TestBuildContextOrdersAndCaps(t *testing.T) {
	base := time.Date(2026, 10, 12, 8, 0, 0, 0, time.UTC)
	client := &types.Client{ID: uuid.New(), DisplayName: " Riley ", ProgramGoal: "recomp", GoalWeight: 170, Timezone: "UTC"}

	// Deliberately oldest first so the builder has to sort.
	var macros []*types.MacroLogEntry
	for d := 0; d < 7; d++ {
		macros = append(macros, &types.MacroLogEntry{LoggedAt: base.Add(time.Duration(d) * 24 * time.Hour), Calories: float64(1000 + d), TargetCalories: 2000})
	}
	macros = append(macros, nil)
	var weights []*types.WeightEntry
	for d := 0; d < 4; d++ {
		weights = append(weights, &types.WeightEntry{RecordedAt: base.Add(time.Duration(d) * 24 * time.Hour), Weight: float64(180 - d)})
	}
	var chat []*types.ChatMessage
	for i := 0; i < 8; i++ {
		sender := types.SenderClient
		if i%4 == 0 {
			sender = types.SenderCoach
		}
		chat = append(chat, &types.ChatMessage{Sender: sender, Content: "msg", CreatedAt: base.Add(time.Duration(i) * time.Hour)})
	}
	chat[7].Content = strings.Repeat("é", 400)

	nc := BuildContext(client, AdherenceMetrics{UploadCount: 7}, WeeklyBundle{MacroLogs: macros, WeightEntries: weights, ChatHistory: chat}, "2026-10-12")

	if nc.Client.Name != "Riley" || nc.Client.Goal != "recomp" {
		t.Fatalf("profile: got=%+v", nc.Client)
	}
	if len(nc.RecentMacros) != 5 {
		t.Fatalf("macros: want=5 got=%d", len(nc.RecentMacros))
	}
	if nc.RecentMacros[0].Calories != 1006 || nc.RecentMacros[4].Calories != 1002 {
		t.Fatalf("macros not newest first: %+v", nc.RecentMacros)
	}
	if nc.RecentMacros[0].CalorieCompliance != 50.3 {
		t.Fatalf("display compliance: want=50.3 got=%v", nc.RecentMacros[0].CalorieCompliance)
	}
	if len(nc.RecentWeights) != 3 || nc.RecentWeights[0].Weight != 177 {
		t.Fatalf("weights: got=%+v", nc.RecentWeights)
	}
	if len(nc.ClientExcerpts) != 5 {
		t.Fatalf("excerpts: want=5 got=%d", len(nc.ClientExcerpts))
	}
	first := nc.ClientExcerpts[0]
	if utf8.RuneCountInString(first) != maxExcerptRunes || !strings.HasSuffix(first, "…") {
		t.Fatalf("excerpt truncation: runes=%d", utf8.RuneCountInString(first))
	}
}

func TestBuildContextEmptyBundle(t *testing.T) {
	nc := BuildContext(&types.Client{DisplayName: "Sam"}, AdherenceMetrics{}, WeeklyBundle{}, "2026-10-12")
	if nc.RecentMacros == nil || nc.RecentWeights == nil || nc.ClientExcerpts == nil {
		t.Fatalf("expected non-nil empty slices: %+v", nc)
	}
	if len(nc.RecentMacros)+len(nc.RecentWeights)+len(nc.ClientExcerpts) != 0 {
		t.Fatalf("expected empty lists: %+v", nc)
	}
}

package checkin

import (
	"sort"
	"strings"
	"time"

	types "github.com/yungbote/checkin-engine/internal/domain"
)

const (
	maxContextMacros  = 5
	maxContextWeights = 3
	maxClientExcerpts = 5
	maxExcerptRunes   = 280
	excerptEllipsis   = "…"
	contextTimeLayout = time.RFC3339
)

type ClientProfile struct {
	Name           string  `json:"name"`
	Goal           string  `json:"goal,omitempty"`
	BaselineWeight float64 `json:"baseline_weight,omitempty"`
	GoalWeight     float64 `json:"goal_weight,omitempty"`
	Timezone       string  `json:"timezone,omitempty"`
}

type MacroSummary struct {
	LoggedAt          string  `json:"logged_at"`
	Calories          float64 `json:"calories"`
	TargetCalories    float64 `json:"target_calories"`
	Protein           float64 `json:"protein"`
	TargetProtein     float64 `json:"target_protein"`
	CalorieCompliance float64 `json:"calorie_compliance"`
	ProteinCompliance float64 `json:"protein_compliance"`
}

type WeightReading struct {
	RecordedAt string  `json:"recorded_at"`
	Weight     float64 `json:"weight"`
}

// NarrativeContext is the structured payload handed to the narrative
// generator. Every list is newest first.
type NarrativeContext struct {
	WeekStart      string           `json:"week_start"`
	Client         ClientProfile    `json:"client"`
	Metrics        AdherenceMetrics `json:"metrics"`
	RecentMacros   []MacroSummary   `json:"recent_macros"`
	RecentWeights  []WeightReading  `json:"recent_weights"`
	ClientExcerpts []string         `json:"client_excerpts"`
}

func BuildContext(client *types.Client, metrics AdherenceMetrics, bundle WeeklyBundle, weekStart string) NarrativeContext {
	nc := NarrativeContext{
		WeekStart:      weekStart,
		Metrics:        metrics,
		RecentMacros:   []MacroSummary{},
		RecentWeights:  []WeightReading{},
		ClientExcerpts: []string{},
	}
	if client != nil {
		nc.Client = ClientProfile{
			Name:           strings.TrimSpace(client.DisplayName),
			Goal:           strings.TrimSpace(client.ProgramGoal),
			BaselineWeight: client.BaselineWeight,
			GoalWeight:     client.GoalWeight,
			Timezone:       client.Timezone,
		}
	}

	macros := nonNil(bundle.MacroLogs)
	sortNewestFirst(macros, func(m *types.MacroLogEntry) time.Time { return m.LoggedAt })
	for _, m := range macros {
		if len(nc.RecentMacros) == maxContextMacros {
			break
		}
		nc.RecentMacros = append(nc.RecentMacros, MacroSummary{
			LoggedAt:          m.LoggedAt.UTC().Format(contextTimeLayout),
			Calories:          m.Calories,
			TargetCalories:    m.TargetCalories,
			Protein:           m.Protein,
			TargetProtein:     m.TargetProtein,
			CalorieCompliance: round1(Compliance(m.Calories, m.TargetCalories)),
			ProteinCompliance: round1(Compliance(m.Protein, m.TargetProtein)),
		})
	}

	weights := nonNil(bundle.WeightEntries)
	sortNewestFirst(weights, func(w *types.WeightEntry) time.Time { return w.RecordedAt })
	for _, w := range weights {
		if len(nc.RecentWeights) == maxContextWeights {
			break
		}
		nc.RecentWeights = append(nc.RecentWeights, WeightReading{
			RecordedAt: w.RecordedAt.UTC().Format(contextTimeLayout),
			Weight:     w.Weight,
		})
	}

	chat := nonNil(bundle.ChatHistory)
	sortNewestFirst(chat, func(m *types.ChatMessage) time.Time { return m.CreatedAt })
	for _, m := range chat {
		if len(nc.ClientExcerpts) == maxClientExcerpts {
			break
		}
		if !m.FromClient() {
			continue
		}
		text := strings.TrimSpace(m.Content)
		if text == "" {
			continue
		}
		nc.ClientExcerpts = append(nc.ClientExcerpts, truncateRunes(text, maxExcerptRunes))
	}
	return nc
}

func nonNil[T any](rows []*T) []*T {
	out := make([]*T, 0, len(rows))
	for _, r := range rows {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

func sortNewestFirst[T any](rows []*T, at func(*T) time.Time) {
	sort.SliceStable(rows, func(i, j int) bool { return at(rows[i]).After(at(rows[j])) })
}

// truncateRunes caps s at limit runes including the trailing ellipsis.
func truncateRunes(s string, limit int) string {
	r := []rune(s)
	if limit <= 0 || len(r) <= limit {
		return s
	}
	if limit == 1 {
		return excerptEllipsis
	}
	return strings.TrimSpace(string(r[:limit-1])) + excerptEllipsis
}

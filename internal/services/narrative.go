package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/yungbote/checkin-engine/internal/modules/checkin"
	"github.com/yungbote/checkin-engine/internal/platform/logger"
	"github.com/yungbote/checkin-engine/internal/platform/openai"
)

const narrativeSystemPrompt = `You are a supportive nutrition coach writing a short weekly check-in to a client.
Write 3 to 5 sentences in second person. Mention logging consistency, calorie and protein adherence, and weight trend when readings exist.
Celebrate wins, name one concrete focus for next week, and never give medical advice.
Use only the numbers in the provided JSON. Do not mention that you are an AI.`

// NarrativeService turns a week's context into prose through the model API.
type NarrativeService struct {
	log    *logger.Logger
	client openai.Client
}

func NewNarrativeService(baseLog *logger.Logger, client openai.Client) *NarrativeService {
	return &NarrativeService{
		log:    baseLog.With("service", "NarrativeService"),
		client: client,
	}
}

func (s *NarrativeService) Generate(ctx context.Context, nc checkin.NarrativeContext) (string, error) {
	payload, err := json.MarshalIndent(nc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode narrative context: %w", err)
	}
	user := "Weekly data for " + nc.Client.Name + ":\n" + string(payload)
	text, err := s.client.GenerateText(ctx, narrativeSystemPrompt, user)
	if err != nil {
		return "", err
	}
	s.log.Debug("Narrative generated",
		"week_start", nc.WeekStart,
		"model", s.client.Model(),
		"chars", len(text),
	)
	return strings.TrimSpace(text), nil
}

// TemplateNarrator writes a deterministic check-in from the metrics alone.
// It stands in for the model when no API key is configured.
type TemplateNarrator struct{}

func (TemplateNarrator) Generate(ctx context.Context, nc checkin.NarrativeContext) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m := nc.Metrics
	name := strings.TrimSpace(nc.Client.Name)
	if name == "" {
		name = "there"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s, here is your check-in for the week of %s. ", name, nc.WeekStart)
	switch {
	case m.UploadCount == 0:
		b.WriteString("We did not see any food logs this week, so let's aim for at least one log a day going forward. ")
	case m.UploadPercentage >= 85:
		fmt.Fprintf(&b, "You sent %d food logs this week (%d%% of a log a day), which is excellent consistency. ", m.UploadCount, m.UploadPercentage)
	default:
		fmt.Fprintf(&b, "You sent %d food logs this week (%d%% of a log a day). ", m.UploadCount, m.UploadPercentage)
	}
	if m.UploadCount > 0 {
		fmt.Fprintf(&b, "Calories averaged %.0f%% of target and protein %.0f%%. ", m.AvgCalorieCompliance, m.AvgProteinCompliance)
	}
	if m.WeightLogCount >= 2 {
		switch delta := m.WeightChange; {
		case math.Abs(delta) < 0.05:
			b.WriteString("Your weight held steady across the week. ")
		case delta < 0:
			fmt.Fprintf(&b, "Your weight moved down %.1f across the week. ", -delta)
		default:
			fmt.Fprintf(&b, "Your weight moved up %.1f across the week. ", delta)
		}
	}
	b.WriteString("Focus for next week: ")
	switch {
	case m.UploadPercentage < 70:
		b.WriteString("log every day, even the imperfect ones.")
	case m.AvgProteinCompliance < 90:
		b.WriteString("add a protein source to each meal.")
	default:
		b.WriteString("keep doing exactly what you are doing.")
	}
	return b.String(), nil
}

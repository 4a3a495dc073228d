package checkin

import (
	"context"
	"time"

	types "github.com/yungbote/checkin-engine/internal/domain"
)

const (
	aggregationWindow = 7 * 24 * time.Hour

	DefaultChatHistoryLimit = 20
)

type WeeklyBundle struct {
	From time.Time
	To   time.Time

	MacroLogs     []*types.MacroLogEntry
	WeightEntries []*types.WeightEntry
	ChatHistory   []*types.ChatMessage
}

type Aggregator struct {
	src       ActivitySource
	chatLimit int
}

func NewAggregator(src ActivitySource, chatLimit int) *Aggregator {
	if chatLimit <= 0 {
		chatLimit = DefaultChatHistoryLimit
	}
	return &Aggregator{src: src, chatLimit: chatLimit}
}

// Gather pulls the trailing seven days [asOf-7d, asOf) in UTC. Clients with
// no activity get empty slices, never an error.
func (a *Aggregator) Gather(ctx context.Context, client *types.Client, asOf time.Time) (WeeklyBundle, error) {
	to := asOf.UTC()
	from := to.Add(-aggregationWindow)
	out := WeeklyBundle{
		From:          from,
		To:            to,
		MacroLogs:     []*types.MacroLogEntry{},
		WeightEntries: []*types.WeightEntry{},
		ChatHistory:   []*types.ChatMessage{},
	}

	macros, err := a.src.RecentMacros(ctx, client.ID, from, to)
	if err != nil {
		return out, &TransientSourceError{Source: "macros", Err: err}
	}
	weights, err := a.src.WeightEntries(ctx, client.ID, from, to)
	if err != nil {
		return out, &TransientSourceError{Source: "weights", Err: err}
	}
	chat, err := a.src.RecentChat(ctx, client.ID, client.CoachID, from, to, a.chatLimit)
	if err != nil {
		return out, &TransientSourceError{Source: "chat", Err: err}
	}

	out.MacroLogs = append(out.MacroLogs, inRange(macros, from, to, func(m *types.MacroLogEntry) time.Time { return m.LoggedAt })...)
	out.WeightEntries = append(out.WeightEntries, inRange(weights, from, to, func(w *types.WeightEntry) time.Time { return w.RecordedAt })...)
	chat = inRange(chat, from, to, func(m *types.ChatMessage) time.Time { return m.CreatedAt })
	sortNewestFirst(chat, func(m *types.ChatMessage) time.Time { return m.CreatedAt })
	if len(chat) > a.chatLimit {
		chat = chat[:a.chatLimit]
	}
	out.ChatHistory = append(out.ChatHistory, chat...)
	return out, nil
}

// inRange drops nil rows and anything a source returned outside [from, to).
func inRange[T any](rows []*T, from, to time.Time, at func(*T) time.Time) []*T {
	out := make([]*T, 0, len(rows))
	for _, r := range rows {
		if r == nil {
			continue
		}
		ts := at(r)
		if ts.Before(from) || !ts.Before(to) {
			continue
		}
		out = append(out, r)
	}
	return out
}

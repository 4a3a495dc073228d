package checkin

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/checkin-engine/internal/data/repos"
	types "github.com/yungbote/checkin-engine/internal/domain"
	"github.com/yungbote/checkin-engine/internal/platform/dbctx"
)

type repoRoster struct {
	clients repos.ClientRepo
}

// NewRepoRoster exposes the client table as the roster collaborator.
func NewRepoRoster(clients repos.ClientRepo) Roster {
	return &repoRoster{clients: clients}
}

func (r *repoRoster) ListActiveClients(ctx context.Context) ([]*types.Client, error) {
	return r.clients.ListActive(dbctx.Context{Ctx: ctx})
}

func (r *repoRoster) ListClientsForCoach(ctx context.Context, coachID uuid.UUID) ([]*types.Client, error) {
	return r.clients.ListByCoach(dbctx.Context{Ctx: ctx}, coachID)
}

func (r *repoRoster) GetClient(ctx context.Context, clientID uuid.UUID) (*types.Client, error) {
	c, err := r.clients.GetByID(dbctx.Context{Ctx: ctx}, clientID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrClientNotFound
	}
	return c, nil
}

type repoActivitySource struct {
	macros  repos.MacroLogRepo
	weights repos.WeightEntryRepo
	chat    repos.ChatMessageRepo
}

func NewRepoActivitySource(macros repos.MacroLogRepo, weights repos.WeightEntryRepo, chat repos.ChatMessageRepo) ActivitySource {
	return &repoActivitySource{macros: macros, weights: weights, chat: chat}
}

func (s *repoActivitySource) RecentMacros(ctx context.Context, clientID uuid.UUID, from, to time.Time) ([]*types.MacroLogEntry, error) {
	return s.macros.ListInRange(dbctx.Context{Ctx: ctx}, clientID, from, to)
}

func (s *repoActivitySource) WeightEntries(ctx context.Context, clientID uuid.UUID, from, to time.Time) ([]*types.WeightEntry, error) {
	return s.weights.ListInRange(dbctx.Context{Ctx: ctx}, clientID, from, to)
}

func (s *repoActivitySource) RecentChat(ctx context.Context, clientID, coachID uuid.UUID, from, to time.Time, limit int) ([]*types.ChatMessage, error) {
	return s.chat.ListRecentInRange(dbctx.Context{Ctx: ctx}, clientID, coachID, from, to, limit)
}

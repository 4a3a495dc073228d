package checkin

import (
	"context"
	"time"

	"github.com/google/uuid"

	types "github.com/yungbote/checkin-engine/internal/domain"
	"github.com/yungbote/checkin-engine/internal/platform/dbctx"
)

type Roster interface {
	ListActiveClients(ctx context.Context) ([]*types.Client, error)
	ListClientsForCoach(ctx context.Context, coachID uuid.UUID) ([]*types.Client, error)
	GetClient(ctx context.Context, clientID uuid.UUID) (*types.Client, error)
}

// ActivitySource reads a client's stored activity. Ranges are half-open
// [from, to) in UTC and results are newest first.
type ActivitySource interface {
	RecentMacros(ctx context.Context, clientID uuid.UUID, from, to time.Time) ([]*types.MacroLogEntry, error)
	WeightEntries(ctx context.Context, clientID uuid.UUID, from, to time.Time) ([]*types.WeightEntry, error)
	RecentChat(ctx context.Context, clientID, coachID uuid.UUID, from, to time.Time, limit int) ([]*types.ChatMessage, error)
}

type NarrativeGenerator interface {
	Generate(ctx context.Context, nc NarrativeContext) (string, error)
}

type SettingsStore interface {
	FilterConfig(ctx context.Context, coachID uuid.UUID) (FilterConfig, error)
}

type ReportRenderer interface {
	Render(ctx context.Context, in ReportInput) ([]byte, error)
}

type ArtifactStore interface {
	// SaveArtifact stores data under filename and returns its key and a
	// URL clients can fetch it from.
	SaveArtifact(ctx context.Context, data []byte, filename string) (key string, url string, err error)
}

type Delivery interface {
	// PersistChatMessage runs inside the ledger transaction carried by dbc.
	PersistChatMessage(dbc dbctx.Context, client *types.Client, msg FilteredMessage) (*types.ChatMessage, error)
	// Broadcast is best-effort and runs after commit.
	Broadcast(ctx context.Context, client *types.Client, msg *types.ChatMessage) error
}

// Lease guards against two replicas generating the same check-in at once.
// It is an optimization only; the ledger constraint decides what is sent.
type Lease interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), ok bool, err error)
}

type ReportInput struct {
	Client    *types.Client
	WeekStart string
	Metrics   AdherenceMetrics
	Bundle    WeeklyBundle
}

type FilteredMessage struct {
	Text        string
	MessageType string
	WeekStart   string
	ArtifactKey string
	ArtifactURL string
	Metrics     AdherenceMetrics
	Forced      bool
}

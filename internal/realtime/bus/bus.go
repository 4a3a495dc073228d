package bus

import (
	"context"

	"github.com/yungbote/checkin-engine/internal/realtime"
)

// Bus fans hub messages out across replicas so a dashboard connected to any
// instance sees check-ins delivered by another.
type Bus interface {
	Publish(ctx context.Context, msg realtime.SSEMessage) error
	StartForwarder(ctx context.Context, onMsg func(m realtime.SSEMessage)) error
	Close() error
}

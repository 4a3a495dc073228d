package lease

import (
	"context"
	"sync"
	"time"

	"github.com/facebookgo/clock"
)

// Local is an in-process keyed lease. It only protects against overlap
// within one replica.
type Local struct {
	clock clock.Clock

	mu   sync.Mutex
	seq  uint64
	held map[string]localEntry
}

type localEntry struct {
	token   uint64
	expires time.Time
}

func NewLocal(clk clock.Clock) *Local {
	if clk == nil {
		clk = clock.New()
	}
	return &Local{clock: clk, held: map[string]localEntry{}}
}

// Acquire takes key for ttl. ok is false while another holder's lease is
// unexpired. The returned release is idempotent and never frees a lease
// that has since been taken by someone else.
func (l *Local) Acquire(_ context.Context, key string, ttl time.Duration) (func(), bool, error) {
	now := l.clock.Now()
	l.mu.Lock()
	defer l.mu.Unlock()
	if cur, ok := l.held[key]; ok && now.Before(cur.expires) {
		return nil, false, nil
	}
	l.seq++
	token := l.seq
	l.held[key] = localEntry{token: token, expires: now.Add(ttl)}

	var once sync.Once
	release := func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			if cur, ok := l.held[key]; ok && cur.token == token {
				delete(l.held, key)
			}
		})
	}
	return release, true, nil
}

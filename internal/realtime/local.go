package realtime

import (
	"context"
	"sync"

	"github.com/pmonetwork/pmo-network/internal/domain"
)

// LocalBroker delivers events to subscribers in the same process.
type LocalBroker struct {
	mu   sync.RWMutex
	subs map[string]map[chan domain.Event]struct{}
}

// NewLocalBroker creates an empty broker.
func NewLocalBroker() *LocalBroker {
	return &LocalBroker{subs: make(map[string]map[chan domain.Event]struct{})}
}

// Publish never blocks; a subscriber with a full buffer misses the event.
func (b *LocalBroker) Publish(_ context.Context, userID string, e domain.Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs[userID] {
		select {
		case ch <- e:
		default:
		}
	}
	return nil
}

func (b *LocalBroker) Subscribe(ctx context.Context, userID string) (<-chan domain.Event, func()) {
	ch := make(chan domain.Event, subscriberBuffer)

	b.mu.Lock()
	if b.subs[userID] == nil {
		b.subs[userID] = make(map[chan domain.Event]struct{})
	}
	b.subs[userID][ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs[userID], ch)
			if len(b.subs[userID]) == 0 {
				delete(b.subs, userID)
			}
			b.mu.Unlock()
			close(ch)
		})
	}
	go func() {
		<-ctx.Done()
		cancel()
	}()
	return ch, cancel
}

// Subscribers returns the number of live subscriptions for userID.
func (b *LocalBroker) Subscribers(userID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[userID])
}

package realtime

import (
	"context"
	"sync"

	"github.com/choplife/choplifeib/internal/logging"
)

// MemoryBus is a Bus for single-instance deployments.
type MemoryBus struct {
	mu          sync.Mutex
	subscribers map[uint]map[chan ProfileUpdate]struct{}
	closed      bool
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{subscribers: make(map[uint]map[chan ProfileUpdate]struct{})}
}

func (b *MemoryBus) Publish(_ context.Context, update ProfileUpdate) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for ch := range b.subscribers[update.UserID] {
		select {
		case ch <- update:
		default:
			logging.Component("realtime").Warn().Uint("user_id", update.UserID).Msg("subscriber full, dropping profile update")
		}
	}
	return nil
}

func (b *MemoryBus) Subscribe(ctx context.Context, userID uint) (<-chan ProfileUpdate, error) {
	ch := make(chan ProfileUpdate, subscriberBuffer)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return ch, nil
	}
	if b.subscribers[userID] == nil {
		b.subscribers[userID] = make(map[chan ProfileUpdate]struct{})
	}
	b.subscribers[userID][ch] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.remove(userID, ch)
	}()
	return ch, nil
}

func (b *MemoryBus) remove(userID uint, ch chan ProfileUpdate) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs, ok := b.subscribers[userID]
	if !ok {
		return
	}
	if _, ok := subs[ch]; !ok {
		return
	}
	delete(subs, ch)
	close(ch)
	if len(subs) == 0 {
		delete(b.subscribers, userID)
	}
}

// Close ends every open subscription.
func (b *MemoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for userID, subs := range b.subscribers {
		for ch := range subs {
			close(ch)
		}
		delete(b.subscribers, userID)
	}
	b.closed = true
	return nil
}

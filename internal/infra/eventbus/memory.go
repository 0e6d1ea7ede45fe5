package eventbus

import (
	"context"
	"sync"

	"github.com/jsnphil/kentobot-api-sub000/internal/app/command"
	"github.com/jsnphil/kentobot-api-sub000/internal/domain/event"
)

// MemoryBus captures published events in-process. Used in tests and
// dev mode.
type MemoryBus struct {
	mu     sync.Mutex
	events []event.Event
}

var _ command.EventBus = (*MemoryBus)(nil)

// NewMemoryBus creates an empty MemoryBus.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{}
}

// Publish appends the events to the capture list.
func (b *MemoryBus) Publish(ctx context.Context, events ...event.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, events...)
	return nil
}

// Events returns a copy of everything published so far.
func (b *MemoryBus) Events() []event.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]event.Event, len(b.events))
	copy(out, b.events)
	return out
}

// Reset clears the capture list.
func (b *MemoryBus) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = nil
}

package events

import (
	"context"
	"sync"

	"ranked-engine/internal/domain"
)

const TierChanged = "rank.tier_changed"

// TierChange is emitted after a report or placement moves a player across a
// tier boundary. The external role-reconciliation job consumes these; the
// core never writes roles or badges itself, so externally protected
// statuses are never force-overwritten from here.
type TierChange struct {
	PlayerID string
	Title    domain.GameTitle
	OldTier  string
	NewTier  string
	MatchID  string
}

type Event struct {
	Name    string
	Payload any
}

type Handler func(context.Context, Event) error

// Bus is a minimal in-process publish/subscribe fan-out.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
}

func NewBus() *Bus {
	return &Bus{handlers: map[string][]Handler{}}
}

func (b *Bus) Subscribe(name string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[name] = append(b.handlers[name], handler)
}

func (b *Bus) Publish(ctx context.Context, e Event) error {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.handlers[e.Name]...)
	b.mu.RUnlock()

	for _, handler := range handlers {
		if err := handler(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

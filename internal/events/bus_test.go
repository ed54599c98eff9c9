package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ranked-engine/internal/domain"
)

func TestPublishReachesAllSubscribers(t *testing.T) {
	bus := NewBus()
	var got []TierChange

	bus.Subscribe(TierChanged, func(_ context.Context, e Event) error {
		got = append(got, e.Payload.(TierChange))
		return nil
	})
	bus.Subscribe(TierChanged, func(_ context.Context, e Event) error {
		got = append(got, e.Payload.(TierChange))
		return nil
	})

	change := TierChange{PlayerID: "p1", Title: domain.TitleValorant, OldTier: "Gold 1", NewTier: "Gold 2"}
	require.NoError(t, bus.Publish(context.Background(), Event{Name: TierChanged, Payload: change}))

	require.Len(t, got, 2)
	assert.Equal(t, change, got[0])
}

func TestPublishPropagatesHandlerError(t *testing.T) {
	bus := NewBus()
	boom := errors.New("boom")
	bus.Subscribe(TierChanged, func(context.Context, Event) error { return boom })

	err := bus.Publish(context.Background(), Event{Name: TierChanged})
	assert.ErrorIs(t, err, boom)
}

func TestPublishWithoutSubscribersIsNoop(t *testing.T) {
	bus := NewBus()
	assert.NoError(t, bus.Publish(context.Background(), Event{Name: "nobody.listens"}))
}

package messaging

import (
	"context"
	"testing"
	"time"

	"artix/internal/shared/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusDeliversToSubscribers(t *testing.T) {
	bus := NewBus(4, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan events.Envelope, 1)
	require.NoError(t, bus.Subscribe(ctx, events.TopicContest, "test", func(_ context.Context, event events.Envelope) error {
		received <- event
		return nil
	}))

	require.NoError(t, bus.Publish(ctx, events.TopicContest, events.Envelope{EventID: "evt-1", EventType: "contest.vote.confirmed"}))

	select {
	case event := <-received:
		assert.Equal(t, "evt-1", event.EventID)
	case <-time.After(time.Second):
		t.Fatal("event was not delivered")
	}
}

func TestBusPublishWithoutSubscribers(t *testing.T) {
	bus := NewBus(0, nil)
	assert.NoError(t, bus.Publish(context.Background(), events.TopicAuction, events.Envelope{EventID: "evt-2"}))
}

package changefeed

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestHub_DeliversToMatchingKeyOnly(t *testing.T) {
	hub := NewHub()

	var got []Event
	cancel, err := hub.Subscribe(context.Background(), TopicProfile, "u-1", func(e Event) {
		got = append(got, e)
	})
	require.NoError(t, err)
	defer cancel()

	require.NoError(t, hub.Publish(context.Background(), Event{Topic: TopicProfile, Key: "u-2", Op: OpSaved}))
	require.NoError(t, hub.Publish(context.Background(), Event{Topic: TopicUser, Key: "u-1", Op: OpSaved}))
	require.NoError(t, hub.Publish(context.Background(), Event{Topic: TopicProfile, Key: "u-1", Op: OpDeleted}))

	require.Len(t, got, 1)
	assert.Equal(t, OpDeleted, got[0].Op)
	assert.False(t, got[0].At.IsZero())
}

func TestHub_CancelStopsDelivery(t *testing.T) {
	hub := NewHub()

	calls := 0
	cancel, err := hub.Subscribe(context.Background(), TopicUser, "u-1", func(Event) { calls++ })
	require.NoError(t, err)
	assert.Equal(t, 1, hub.Listeners(TopicUser, "u-1"))

	cancel()
	cancel() // idempotente

	_ = hub.Publish(context.Background(), Event{Topic: TopicUser, Key: "u-1"})
	assert.Equal(t, 0, calls)
	assert.Equal(t, 0, hub.Listeners(TopicUser, "u-1"))
}

func TestHub_ContextCancellationUnsubscribes(t *testing.T) {
	hub := NewHub()
	ctx, cancelCtx := context.WithCancel(context.Background())

	_, err := hub.Subscribe(ctx, TopicProfile, "u-1", func(Event) {})
	require.NoError(t, err)

	cancelCtx()
	assert.Eventually(t, func() bool {
		return hub.Listeners(TopicProfile, "u-1") == 0
	}, time.Second, 5*time.Millisecond)
}

func TestHub_RejectsInvalidSubscription(t *testing.T) {
	_, err := NewHub().Subscribe(context.Background(), TopicProfile, " ", func(Event) {})
	assert.ErrorIs(t, err, ErrInvalidSubscription)
}

func TestChannel(t *testing.T) {
	assert.Equal(t, "petwell:profile:u-1", Channel("", TopicProfile, "u-1"))
	assert.Equal(t, "app:user:u-1", Channel("app", TopicUser, "u-1"))
}

func TestHub_NoGoroutineLeakAfterCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	hub := NewHub()
	ctx, cancelCtx := context.WithCancel(context.Background())
	defer cancelCtx()

	for _, key := range []string{"u-1", "u-2", "u-3"} {
		cancel, err := hub.Subscribe(ctx, TopicProfile, key, func(Event) {})
		require.NoError(t, err)
		cancel()
	}
	assert.Equal(t, 0, hub.Listeners(TopicProfile, "u-1"))
}

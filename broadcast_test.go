package reaktor

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestBroadcastSlowSubscriberDoesNotBlockOthers verifies per-subscriber
// queues: one subscriber falling behind overflows alone, is named in the
// publish error, and delivery to the rest keeps working.
func TestBroadcastSlowSubscriberDoesNotBlockOthers(t *testing.T) {
	hub := NewBroadcast[string](Bounded(1))

	fast, err := hub.Subscribe()
	require.NoError(t, err)
	defer fast.Close()
	slow, err := hub.Subscribe()
	require.NoError(t, err)
	defer slow.Close()
	require.Equal(t, 2, hub.Len())

	require.NoError(t, hub.Publish("m1"))

	v, err := fast.TryRecv()
	require.NoError(t, err)
	require.Equal(t, "m1", v)

	err = hub.Publish("m2")
	require.ErrorIs(t, err, ErrNoCapacity)
	require.ErrorContains(t, err, "subscriber 1")

	v, err = fast.TryRecv()
	require.NoError(t, err)
	require.Equal(t, "m2", v)

	v, err = slow.TryRecv()
	require.NoError(t, err)
	require.Equal(t, "m1", v)
	_, err = slow.TryRecv()
	require.ErrorIs(t, err, ErrChannelEmpty)
}

// TestBroadcastNoHistory verifies a late subscriber only sees values
// published after it joined.
func TestBroadcastNoHistory(t *testing.T) {
	hub := NewBroadcast[int](Unbounded())

	early, err := hub.Subscribe()
	require.NoError(t, err)
	defer early.Close()
	require.NoError(t, hub.Publish(1))

	late, err := hub.Subscribe()
	require.NoError(t, err)
	defer late.Close()

	_, err = late.TryRecv()
	require.ErrorIs(t, err, ErrChannelEmpty)

	require.NoError(t, hub.Publish(2))
	v, err := late.TryRecv()
	require.NoError(t, err)
	require.Equal(t, 2, v)

	v, err = early.TryRecv()
	require.NoError(t, err)
	require.Equal(t, 1, v)
	v, err = early.TryRecv()
	require.NoError(t, err)
	require.Equal(t, 2, v)
}

// TestBroadcastClosedSubscriberIsReported verifies publishing past a closed
// subscriber names it without disturbing the others.
func TestBroadcastClosedSubscriberIsReported(t *testing.T) {
	hub := NewBroadcast[string](Unbounded())

	open, err := hub.Subscribe()
	require.NoError(t, err)
	defer open.Close()
	gone, err := hub.Subscribe()
	require.NoError(t, err)
	require.NoError(t, gone.Close())

	err = hub.Publish("x")
	require.ErrorIs(t, err, ErrChannelClosed)
	require.ErrorContains(t, err, "subscriber 1")

	v, err := open.TryRecv()
	require.NoError(t, err)
	require.Equal(t, "x", v)
}

// TestReactiveBroadcastPassesValuesThrough verifies the stage republishes
// values while handing them on unchanged, and republishes nothing for
// events or Continue.
func TestReactiveBroadcastPassesValuesThrough(t *testing.T) {
	hub := NewBroadcast[string](Unbounded())
	sub, err := hub.Subscribe()
	require.NoError(t, err)
	defer sub.Close()

	stage := NewReactiveBroadcast(hub)

	out := stage.React(Value("x"))
	require.Equal(t, KindValue, out.Kind())
	require.Equal(t, "x", out.Value())

	v, err := sub.TryRecv()
	require.NoError(t, err)
	require.Equal(t, "x", v)

	ev := Event{Token: 4, Ready: Readable}
	out = stage.React(FromEvent[string](ev))
	require.Equal(t, KindEvent, out.Kind())

	out = stage.React(Continue[string]())
	require.Equal(t, KindContinue, out.Kind())

	_, err = sub.TryRecv()
	require.ErrorIs(t, err, ErrChannelEmpty)
}

package reaktor

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

// pollable is a bare descriptor for registration tests.
type pollable int

func (p pollable) Fd() int {
	return int(p)
}

// TestEventedRegisterLifecycle verifies the full register, claim, mark and
// deregister cycle of an evented resource.
func TestEventedRegisterLifecycle(t *testing.T) {
	fake := newFakePoller()
	sys := newSystem(fake, SystemConfig{})

	ev := NewEvented(pollable(33))
	require.False(t, ev.Registered())

	require.NoError(t, ev.Register(sys, Readable))
	require.True(t, ev.Registered())
	require.Equal(t, Token(0), ev.Token())
	require.Equal(t, Readable, ev.Interest())
	require.Equal(t, Token(0), fake.adds[33])

	require.True(t, ev.Claims(Event{Token: 0, Ready: Readable}))
	require.False(t, ev.Claims(Event{Token: 1, Ready: Readable}))

	require.False(t, ev.Readable())
	ev.Mark(Readable | Writable)
	require.True(t, ev.Readable())
	require.True(t, ev.Writable())

	require.NoError(t, ev.Deregister())
	require.False(t, ev.Registered())
	require.False(t, ev.Claims(Event{Token: 0, Ready: Readable}))
	require.Equal(t, 1, fake.deletes)

	// Idempotent: a second deregister must not touch the poller again.
	require.NoError(t, ev.Deregister())
	require.Equal(t, 1, fake.deletes)

	// The freed token is available again.
	tok, err := sys.ReserveToken()
	require.NoError(t, err)
	require.Equal(t, Token(0), tok)
}

// TestEventedDoubleRegisterPanics verifies registering a live registration
// is treated as a programming error.
func TestEventedDoubleRegisterPanics(t *testing.T) {
	sys := newSystem(newFakePoller(), SystemConfig{})
	ev := NewEvented(pollable(5))
	require.NoError(t, ev.Register(sys, Readable))

	require.PanicsWithValue(t, "reaktor: resource is already registered", func() {
		_ = ev.Register(sys, Readable)
	})
}

// TestEventedRegisterRollsBackToken verifies a rejected registration frees
// the reserved token again.
func TestEventedRegisterRollsBackToken(t *testing.T) {
	fake := newFakePoller()
	fake.addErr = errors.New("add rejected")
	sys := newSystem(fake, SystemConfig{})

	ev := NewEvented(pollable(8))
	require.Error(t, ev.Register(sys, Readable))
	require.False(t, ev.Registered())

	tok, err := sys.ReserveToken()
	require.NoError(t, err)
	require.Equal(t, Token(0), tok)
}

// TestEventedReregisterReplacesInterest verifies interest replacement on a
// live registration, and that doing so unregistered panics.
func TestEventedReregisterReplacesInterest(t *testing.T) {
	fake := newFakePoller()
	sys := newSystem(fake, SystemConfig{})

	ev := NewEvented(pollable(12))
	require.NoError(t, ev.Register(sys, Readable))
	require.NoError(t, ev.Reregister(Readable|Writable))
	require.Equal(t, Readable|Writable, ev.Interest())
	require.Equal(t, 1, fake.mods)

	require.NoError(t, ev.Deregister())
	require.PanicsWithValue(t, "reaktor: resource is not registered", func() {
		_ = ev.Reregister(Writable)
	})
}

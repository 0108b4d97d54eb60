package reaktor

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type connState struct {
	addr  string
	bytes int
}

// TestSessionsTokensFollowListener verifies the usual server layout: the
// listener holds token zero and a table at offset one issues consecutive
// tokens for accepted connections, registering their descriptors under
// those tokens.
func TestSessionsTokensFollowListener(t *testing.T) {
	fake := newFakePoller()
	sys := newSystem(fake, SystemConfig{})

	listener := NewEvented(pollable(10))
	require.NoError(t, listener.Register(sys, Readable))
	require.Equal(t, Token(0), listener.Token())

	sessions := NewSessions[connState](sys, Bounded(8), 1)

	tok1, first, err := sessions.AddFd(connState{addr: "peer-1"}, 11, Readable|Writable)
	require.NoError(t, err)
	require.Equal(t, Token(1), tok1)
	require.Equal(t, Token(1), fake.adds[11])

	tok2, _, err := sessions.AddFd(connState{addr: "peer-2"}, 12, Readable|Writable)
	require.NoError(t, err)
	require.Equal(t, Token(2), tok2)
	require.Equal(t, Token(2), fake.adds[12])
	require.Equal(t, 2, sessions.Len())

	// State mutated through the returned pointer is what lookups see.
	first.bytes = 64
	got, ok := sessions.Get(tok1)
	require.True(t, ok)
	require.Equal(t, "peer-1", got.addr)
	require.Equal(t, 64, got.bytes)
}

// TestSessionsCapacityAndTokenReuse verifies a full bounded table rejects
// new sessions and hands the freed token out again after a removal.
func TestSessionsCapacityAndTokenReuse(t *testing.T) {
	sys := newSystem(newFakePoller(), SystemConfig{})
	sessions := NewSessions[connState](sys, Bounded(2), 1)

	tok1, _, err := sessions.Add(connState{addr: "a"})
	require.NoError(t, err)
	require.Equal(t, Token(1), tok1)

	_, _, err = sessions.Add(connState{addr: "b"})
	require.NoError(t, err)

	_, _, err = sessions.Add(connState{addr: "c"})
	require.ErrorIs(t, err, ErrNoCapacity)
	require.Equal(t, 2, sessions.Len())

	sessions.Remove(tok1)
	tok3, _, err := sessions.Add(connState{addr: "c"})
	require.NoError(t, err)
	require.Equal(t, tok1, tok3)
}

// TestSessionsStaleTokenReadsAsAbsent verifies lookups under removed or
// never-issued tokens report absence instead of failing.
func TestSessionsStaleTokenReadsAsAbsent(t *testing.T) {
	sessions := NewSessions[connState](nil, Unbounded(), 1)

	_, ok := sessions.Get(99)
	require.False(t, ok)

	tok, _, err := sessions.Add(connState{addr: "a"})
	require.NoError(t, err)
	sessions.Remove(tok)

	_, ok = sessions.Get(tok)
	require.False(t, ok)
}

// TestSessionsRemoveDeregistersOnce verifies removal detaches the stored
// descriptor exactly once even when called repeatedly.
func TestSessionsRemoveDeregistersOnce(t *testing.T) {
	fake := newFakePoller()
	sys := newSystem(fake, SystemConfig{})
	sessions := NewSessions[connState](sys, Unbounded(), 1)

	tok, _, err := sessions.AddFd(connState{addr: "a"}, 21, Readable)
	require.NoError(t, err)

	sessions.Remove(tok)
	require.Equal(t, 1, fake.deletes)
	require.Equal(t, 0, sessions.Len())

	sessions.Remove(tok)
	require.Equal(t, 1, fake.deletes)
}

// TestSessionsAddFdRollsBackOnRegistrationFailure verifies nothing is
// stored when the multiplexer rejects the descriptor.
func TestSessionsAddFdRollsBackOnRegistrationFailure(t *testing.T) {
	fake := newFakePoller()
	fake.addErr = errors.New("add rejected")
	sys := newSystem(fake, SystemConfig{})
	sessions := NewSessions[connState](sys, Bounded(4), 1)

	_, _, err := sessions.AddFd(connState{addr: "a"}, 31, Readable)
	require.Error(t, err)
	require.Equal(t, 0, sessions.Len())

	fake.addErr = nil
	tok, _, err := sessions.AddFd(connState{addr: "a"}, 31, Readable)
	require.NoError(t, err)
	require.Equal(t, Token(1), tok)
}

// TestSessionsAddFdWithoutSystemPanics verifies descriptor registration
// requires a bound System.
func TestSessionsAddFdWithoutSystemPanics(t *testing.T) {
	sessions := NewSessions[connState](nil, Unbounded(), 0)
	require.PanicsWithValue(t, "reaktor: AddFd requires a session table bound to a System", func() {
		_, _, _ = sessions.AddFd(connState{}, 5, Readable)
	})
}

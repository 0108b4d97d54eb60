package reaktor

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// newStreamPair builds a non-blocking socket pair and wraps one end in a
// Stream; the raw peer descriptor drives it from the outside.
func newStreamPair(t *testing.T) (*Stream, int) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	require.NoError(t, err)
	for _, fd := range fds {
		require.NoError(t, unix.SetNonblock(fd, true))
	}
	s := NewStream(NewNetConn(fds[0], "pair"))
	t.Cleanup(func() {
		s.Conn().Close()
		unix.Close(fds[1])
	})
	return s, fds[1]
}

// TestStreamReadNeedsReadinessHint verifies reads are gated on absorbed
// readiness: pending bytes stay untouched until an event marked the stream
// readable.
func TestStreamReadNeedsReadinessHint(t *testing.T) {
	s, peer := newStreamPair(t)

	_, err := unix.Write(peer, []byte("hi"))
	require.NoError(t, err)

	var buf [16]byte
	_, err = s.Read(buf[:])
	require.True(t, IsWouldBlock(err))

	s.Absorb(Readable)
	require.True(t, s.Readable())
	n, err := s.Read(buf[:])
	require.NoError(t, err)
	require.Equal(t, "hi", string(buf[:n]))
}

// TestStreamReadAvailableDrainsAndClearsHint verifies ReadAvailable stops
// cleanly at the would-block boundary and drops the readable hint.
func TestStreamReadAvailableDrainsAndClearsHint(t *testing.T) {
	s, peer := newStreamPair(t)

	_, err := unix.Write(peer, []byte("payload"))
	require.NoError(t, err)

	s.Absorb(Readable)
	var buf [64]byte
	n, err := s.ReadAvailable(buf[:])
	require.NoError(t, err)
	require.Equal(t, "payload", string(buf[:n]))
	require.False(t, s.Readable())

	// Nothing left and no hint: the next attempt skips the syscall.
	n, err = s.ReadAvailable(buf[:])
	require.NoError(t, err)
	require.Zero(t, n)
}

// TestStreamWriteAllReachesPeer verifies a fresh stream is writable and the
// peer sees exactly the written bytes.
func TestStreamWriteAllReachesPeer(t *testing.T) {
	s, peer := newStreamPair(t)

	n, err := s.WriteAll([]byte("hello"))
	require.NoError(t, err)
	require.Equal(t, 5, n)

	var buf [16]byte
	rn, err := unix.Read(peer, buf[:])
	require.NoError(t, err)
	require.Equal(t, "hello", string(buf[:rn]))
}

// TestStreamWriteWouldBlockKeepsTail verifies a saturated socket stops
// WriteAll without failing, clearing the writable hint so the caller waits
// for the next writable event before re-issuing the tail.
func TestStreamWriteWouldBlockKeepsTail(t *testing.T) {
	s, _ := newStreamPair(t)
	require.NoError(t, unix.SetsockoptInt(s.Conn().Fd(), unix.SOL_SOCKET, unix.SO_SNDBUF, 4096))

	payload := make([]byte, 1<<20)
	n, err := s.WriteAll(payload)
	require.NoError(t, err)
	require.Less(t, n, len(payload))
	require.False(t, s.Writable())

	// Without the hint the next write skips the syscall entirely.
	_, err = s.Write([]byte("x"))
	require.True(t, IsWouldBlock(err))
}

// TestStreamReadsEOFAfterPeerClose verifies end of stream flips the closed
// flag and surfaces as io.EOF after pending bytes were drained.
func TestStreamReadsEOFAfterPeerClose(t *testing.T) {
	s, peer := newStreamPair(t)

	_, err := unix.Write(peer, []byte("bye"))
	require.NoError(t, err)
	require.NoError(t, unix.Close(peer))

	s.Absorb(Readable | Closed)
	require.True(t, s.Closed())

	var buf [16]byte
	n, err := s.ReadAvailable(buf[:])
	require.ErrorIs(t, err, io.EOF)
	require.Equal(t, "bye", string(buf[:n]))
}

// TestDecodeText verifies payload decoding accepts UTF-8 and rejects
// everything else with a decode failure.
func TestDecodeText(t *testing.T) {
	t.Parallel()

	text, err := DecodeText([]byte("héllo"))
	require.NoError(t, err)
	require.Equal(t, "héllo", text)

	_, err = DecodeText([]byte{0xff, 0xfe, 0xfd})
	require.ErrorIs(t, err, ErrUtf8)
	require.NotErrorIs(t, err, ErrIo)
}

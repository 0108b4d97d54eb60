package reaktor

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestListenTCPRejectsBadAddress verifies malformed addresses fail with a
// parse failure before any socket is opened.
func TestListenTCPRejectsBadAddress(t *testing.T) {
	t.Parallel()

	_, err := ListenTCP("no-port")
	require.ErrorIs(t, err, ErrAddressParse)

	_, err = ListenTCP("999.0.0.1:80")
	require.ErrorIs(t, err, ErrAddressParse)
}

// TestListenTCPResolvesEphemeralPort verifies binding port zero reports the
// real bound address and an empty backlog reads as would-block.
func TestListenTCPResolvesEphemeralPort(t *testing.T) {
	t.Parallel()

	listener, err := ListenTCP("127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	addr := listener.Addr()
	require.True(t, strings.HasPrefix(addr, "127.0.0.1:"))
	require.NotEqual(t, "127.0.0.1:0", addr)

	_, err = listener.Accept()
	require.Error(t, err)
	require.True(t, IsWouldBlock(err))
	require.ErrorIs(t, err, ErrIo)
}

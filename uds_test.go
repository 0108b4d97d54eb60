package reaktor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestListenUDSLifecycle verifies the socket file appears on listen, a
// stale file is swept before binding and Close removes it again.
func TestListenUDSLifecycle(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "reaktor.sock")

	listener, err := ListenUDS(path)
	require.NoError(t, err)
	require.Equal(t, path, listener.Path())

	_, err = os.Stat(path)
	require.NoError(t, err)

	_, err = listener.Accept()
	require.Error(t, err)
	require.True(t, IsWouldBlock(err))

	require.NoError(t, listener.Close())
	_, err = os.Stat(path)
	require.True(t, os.IsNotExist(err))

	// A leftover file from a crashed run must not block the next bind.
	require.NoError(t, os.WriteFile(path, nil, 0o600))
	listener, err = ListenUDS(path)
	require.NoError(t, err)
	require.NoError(t, listener.Close())
}

// TestListenUDSRejectsEmptyPath verifies an empty socket path is a parse
// failure.
func TestListenUDSRejectsEmptyPath(t *testing.T) {
	t.Parallel()

	_, err := ListenUDS("")
	require.ErrorIs(t, err, ErrAddressParse)
}

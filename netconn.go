package reaktor

import (
	"errors"
	"io"
	"os"
	"syscall"

	"github.com/rs/zerolog/log"
	"golang.org/x/sys/unix"
)

const defSocketBufferSize = 8192

// NetConn is a non-blocking socket owned by a loop. Read and Write return
// the raw would-block errno untouched so stream stages can flip their
// readiness hints and try again on the next event; use IsWouldBlock to
// check for it.
type NetConn struct {
	fd   int
	addr string
}

// NewNetConn takes ownership of an already non-blocking descriptor. addr is
// the peer address kept for logging and routing.
func NewNetConn(fd int, addr string) *NetConn {
	return &NetConn{fd: fd, addr: addr}
}

// Fd returns the underlying descriptor.
func (c *NetConn) Fd() int {
	return c.fd
}

// RemoteAddr returns the peer address captured when the connection was
// accepted.
func (c *NetConn) RemoteAddr() string {
	return c.addr
}

func (c *NetConn) Read(p []byte) (int, error) {
	n, err := unix.Read(c.fd, p)
	if n < 0 {
		n = 0
	}
	if err != nil {
		return n, err
	}
	if n == 0 && len(p) > 0 {
		return 0, io.EOF
	}
	return n, nil
}

func (c *NetConn) Write(p []byte) (int, error) {
	n, err := unix.Write(c.fd, p)
	if n < 0 {
		n = 0
	}
	return n, err
}

// Close releases the descriptor. Deregister it first so its token is freed;
// the multiplexer itself forgets closed descriptors on its own.
func (c *NetConn) Close() error {
	if err := unix.Close(c.fd); err != nil {
		return ioError("close conn", os.NewSyscallError("close", err))
	}
	return nil
}

// IsWouldBlock reports whether err is the errno a non-blocking read, write
// or accept returns once the descriptor is drained. It sees through
// wrapped errors.
func IsWouldBlock(err error) bool {
	return errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK)
}

// ConnFd extracts the descriptor from a stdlib connection so it can be
// registered with a loop. The connection must stay alive for as long as the
// registration does; closing it invalidates the descriptor.
func ConnFd(conn syscall.Conn) (int, error) {
	raw, err := conn.SyscallConn()
	if err != nil {
		return 0, ioError("conn fd", err)
	}
	fd := -1
	if err := raw.Control(func(f uintptr) { fd = int(f) }); err != nil {
		return 0, ioError("conn fd", err)
	}
	return fd, nil
}

// setSocketOptions puts an accepted descriptor into the non-blocking shape
// the loop expects.
func setSocketOptions(fd int) error {
	if err := unix.SetNonblock(fd, true); err != nil {
		return ioError("socket options", os.NewSyscallError("set nonblock", err))
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_RCVBUF, defSocketBufferSize); err != nil {
		log.Error().Msgf("got error while setting socket options SO_RCVBUF: %+v", err)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_SNDBUF, defSocketBufferSize); err != nil {
		log.Error().Msgf("got error while setting socket options SO_SNDBUF: %+v", err)
	}
	return nil
}

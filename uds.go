package reaktor

import (
	"os"

	"github.com/rs/zerolog/log"
	"golang.org/x/sys/unix"
)

// UDSListener is a non-blocking unix domain listening socket.
type UDSListener struct {
	fd   int
	path string
}

// ListenUDS opens a non-blocking listener on the given socket path. A stale
// socket file left behind by a previous run is removed first.
func ListenUDS(path string) (*UDSListener, error) {
	if path == "" {
		return nil, &Error{Kind: ErrAddressParse, Op: "listen uds"}
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, ioError("listen uds", err)
	}
	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, ioError("listen uds", os.NewSyscallError("socket", err))
	}
	unix.CloseOnExec(fd)
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return nil, ioError("listen uds", os.NewSyscallError("set nonblock", err))
	}
	if err := unix.Bind(fd, &unix.SockaddrUnix{Name: path}); err != nil {
		unix.Close(fd)
		return nil, ioError("listen uds", os.NewSyscallError("bind", err))
	}
	if err := unix.Listen(fd, unix.SOMAXCONN); err != nil {
		unix.Close(fd)
		return nil, ioError("listen uds", os.NewSyscallError("listen", err))
	}
	return &UDSListener{fd: fd, path: path}, nil
}

// Fd returns the listening descriptor.
func (l *UDSListener) Fd() int {
	return l.fd
}

// Path returns the bound socket path.
func (l *UDSListener) Path() string {
	return l.path
}

// Accept takes one pending connection. An empty backlog is reported as a
// would-block i/o error; check it with IsWouldBlock.
func (l *UDSListener) Accept() (*NetConn, error) {
	fd, _, err := unix.Accept(l.fd)
	if err != nil {
		return nil, ioError("accept", os.NewSyscallError("accept", err))
	}
	unix.CloseOnExec(fd)
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return nil, ioError("accept", os.NewSyscallError("set nonblock", err))
	}
	return NewNetConn(fd, l.path), nil
}

// Close releases the listening descriptor and removes the socket file.
func (l *UDSListener) Close() error {
	err := unix.Close(l.fd)
	if rmErr := os.Remove(l.path); rmErr != nil && !os.IsNotExist(rmErr) {
		log.Debug().Msgf("got error while removing socket file %s: %+v", l.path, rmErr)
	}
	if err != nil {
		return ioError("close listener", os.NewSyscallError("close", err))
	}
	return nil
}

// ReactiveUDSListener emits accepted unix domain connections as values, one
// per poll.
type ReactiveUDSListener struct {
	ev *EventedReactor[*UDSListener]
}

// NewReactiveUDSListener registers listener for read readiness on sys.
func NewReactiveUDSListener(sys *System, listener *UDSListener) (*ReactiveUDSListener, error) {
	ev := NewEvented(listener)
	if err := ev.Register(sys, Readable); err != nil {
		return nil, err
	}
	return &ReactiveUDSListener{ev: ev}, nil
}

// Token returns the listener's token.
func (l *ReactiveUDSListener) Token() Token {
	return l.ev.Token()
}

// Inner returns the wrapped listener.
func (l *ReactiveUDSListener) Inner() *UDSListener {
	return l.ev.Inner()
}

// Deregister detaches the listener from its loop.
func (l *ReactiveUDSListener) Deregister() error {
	return l.ev.Deregister()
}

func (l *ReactiveUDSListener) React(r Reaction[Unit]) Reaction[Accepted] {
	switch r.Kind() {
	case KindEvent:
		if !l.ev.Claims(r.Event()) {
			return FromEvent[Accepted](r.Event())
		}
		l.ev.Mark(r.Event().Ready)
		return l.accept()
	case KindContinue:
		return l.accept()
	}
	return Continue[Accepted]()
}

func (l *ReactiveUDSListener) accept() Reaction[Accepted] {
	if !l.ev.Readable() {
		return Continue[Accepted]()
	}
	conn, err := l.ev.Inner().Accept()
	if err != nil {
		if IsWouldBlock(err) {
			l.ev.readable = false
			return Continue[Accepted]()
		}
		log.Error().Msgf("got error while accepting unix domain connection: %+v", err)
		return Continue[Accepted]()
	}
	if log.Debug().Enabled() {
		log.Debug().Msgf("accepted unix domain connection on %s", l.ev.Inner().Path())
	}
	return Value(Accepted{Conn: conn, Addr: conn.RemoteAddr()})
}

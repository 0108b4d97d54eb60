package reaktor

import (
	"net/netip"
	"os"

	"github.com/rs/zerolog/log"
	"golang.org/x/sys/unix"
)

// TCPListener is a non-blocking listening socket.
type TCPListener struct {
	fd   int
	addr string
}

// ListenTCP opens a non-blocking listener on addr, given as "host:port".
func ListenTCP(addr string) (*TCPListener, error) {
	ap, err := netip.ParseAddrPort(addr)
	if err != nil {
		return nil, &Error{Kind: ErrAddressParse, Op: "listen tcp", Err: err}
	}
	domain := unix.AF_INET
	if ap.Addr().Is6() && !ap.Addr().Is4In6() {
		domain = unix.AF_INET6
	}
	fd, err := unix.Socket(domain, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, ioError("listen tcp", os.NewSyscallError("socket", err))
	}
	unix.CloseOnExec(fd)
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return nil, ioError("listen tcp", os.NewSyscallError("set nonblock", err))
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return nil, ioError("listen tcp", os.NewSyscallError("setsockopt reuseaddr", err))
	}
	if err := unix.Bind(fd, sockaddrFromAddrPort(ap)); err != nil {
		unix.Close(fd)
		return nil, ioError("listen tcp", os.NewSyscallError("bind", err))
	}
	if err := unix.Listen(fd, unix.SOMAXCONN); err != nil {
		unix.Close(fd)
		return nil, ioError("listen tcp", os.NewSyscallError("listen", err))
	}
	return &TCPListener{fd: fd, addr: addr}, nil
}

// Fd returns the listening descriptor.
func (l *TCPListener) Fd() int {
	return l.fd
}

// Addr returns the bound address, resolving an ephemeral port.
func (l *TCPListener) Addr() string {
	sa, err := unix.Getsockname(l.fd)
	if err != nil {
		return l.addr
	}
	return sockaddrString(sa)
}

// Accept takes one pending connection, applies the socket options the loop
// expects and returns it. An empty backlog is reported as a would-block
// i/o error; check it with IsWouldBlock.
func (l *TCPListener) Accept() (*NetConn, error) {
	fd, sa, err := unix.Accept(l.fd)
	if err != nil {
		return nil, ioError("accept", os.NewSyscallError("accept", err))
	}
	unix.CloseOnExec(fd)
	if err := setSocketOptions(fd); err != nil {
		unix.Close(fd)
		return nil, err
	}
	return NewNetConn(fd, sockaddrString(sa)), nil
}

// Close releases the listening descriptor.
func (l *TCPListener) Close() error {
	if err := unix.Close(l.fd); err != nil {
		return ioError("close listener", os.NewSyscallError("close", err))
	}
	return nil
}

// Accepted is one accepted connection plus its peer address.
type Accepted struct {
	Conn *NetConn
	Addr string
}

// ReactiveTCPListener emits accepted connections as values, one per poll,
// so the loop's drain empties the whole backlog after a single readable
// event.
type ReactiveTCPListener struct {
	ev *EventedReactor[*TCPListener]
}

// NewReactiveTCPListener registers listener for read readiness on sys.
func NewReactiveTCPListener(sys *System, listener *TCPListener) (*ReactiveTCPListener, error) {
	ev := NewEvented(listener)
	if err := ev.Register(sys, Readable); err != nil {
		return nil, err
	}
	return &ReactiveTCPListener{ev: ev}, nil
}

// Token returns the listener's token.
func (l *ReactiveTCPListener) Token() Token {
	return l.ev.Token()
}

// Inner returns the wrapped listener.
func (l *ReactiveTCPListener) Inner() *TCPListener {
	return l.ev.Inner()
}

// Deregister detaches the listener from its loop.
func (l *ReactiveTCPListener) Deregister() error {
	return l.ev.Deregister()
}

func (l *ReactiveTCPListener) React(r Reaction[Unit]) Reaction[Accepted] {
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

func (l *ReactiveTCPListener) accept() Reaction[Accepted] {
	if !l.ev.Readable() {
		return Continue[Accepted]()
	}
	conn, err := l.ev.Inner().Accept()
	if err != nil {
		if IsWouldBlock(err) {
			l.ev.readable = false
			return Continue[Accepted]()
		}
		log.Error().Msgf("got error while accepting connection: %+v", err)
		return Continue[Accepted]()
	}
	if log.Debug().Enabled() {
		log.Debug().Msgf("accepted connection from %s", conn.RemoteAddr())
	}
	return Value(Accepted{Conn: conn, Addr: conn.RemoteAddr()})
}

func sockaddrFromAddrPort(ap netip.AddrPort) unix.Sockaddr {
	if ap.Addr().Is4() || ap.Addr().Is4In6() {
		sa := &unix.SockaddrInet4{Port: int(ap.Port())}
		a4 := ap.Addr().As4()
		copy(sa.Addr[:], a4[:])
		return sa
	}
	sa := &unix.SockaddrInet6{Port: int(ap.Port())}
	a16 := ap.Addr().As16()
	copy(sa.Addr[:], a16[:])
	return sa
}

func sockaddrString(sa unix.Sockaddr) string {
	switch a := sa.(type) {
	case *unix.SockaddrInet4:
		return netip.AddrPortFrom(netip.AddrFrom4(a.Addr), uint16(a.Port)).String()
	case *unix.SockaddrInet6:
		return netip.AddrPortFrom(netip.AddrFrom16(a.Addr), uint16(a.Port)).String()
	case *unix.SockaddrUnix:
		return a.Name
	}
	return ""
}

package reaktor

import (
	"io"
	"unicode/utf8"

	"golang.org/x/sys/unix"
)

// Stream couples a connection with the readiness hints delivered for it, so
// read and write attempts can skip the syscall entirely while the
// descriptor is known to be drained. Register the connection through
// Sessions.AddFd (or an EventedReactor) and feed delivered readiness in
// with Absorb.
type Stream struct {
	conn     *NetConn
	readable bool
	writable bool
	closed   bool
}

// NewStream wraps conn. Connections start writable: a freshly accepted
// socket accepts bytes until its send buffer fills.
func NewStream(conn *NetConn) *Stream {
	return &Stream{conn: conn, writable: true}
}

// Conn returns the wrapped connection.
func (s *Stream) Conn() *NetConn {
	return s.conn
}

// Absorb records readiness delivered for the stream's token.
func (s *Stream) Absorb(ready Readiness) {
	if ready.Has(Readable) {
		s.readable = true
	}
	if ready.Has(Writable) {
		s.writable = true
	}
	if ready.Has(Closed) {
		s.closed = true
	}
}

// Readable reports whether a read attempt is worthwhile.
func (s *Stream) Readable() bool {
	return s.readable
}

// Writable reports whether a write attempt is worthwhile.
func (s *Stream) Writable() bool {
	return s.writable
}

// Closed reports whether the peer hung up or the descriptor failed.
// Pending bytes may still be readable after Closed turns true.
func (s *Stream) Closed() bool {
	return s.closed
}

// Read reads once. On EAGAIN the readable hint is cleared and the raw errno
// returned; at end of stream the closed flag is set and io.EOF returned.
func (s *Stream) Read(p []byte) (int, error) {
	if !s.readable {
		return 0, unix.EAGAIN
	}
	n, err := s.conn.Read(p)
	if err != nil {
		if IsWouldBlock(err) {
			s.readable = false
		}
		if err == io.EOF {
			s.closed = true
		}
	}
	return n, err
}

// Write writes once. On EAGAIN the writable hint is cleared and the raw
// errno returned; the caller keeps the unwritten tail buffered until the
// next writable event.
func (s *Stream) Write(p []byte) (int, error) {
	if !s.writable {
		return 0, unix.EAGAIN
	}
	n, err := s.conn.Write(p)
	if err != nil && IsWouldBlock(err) {
		s.writable = false
	}
	return n, err
}

// ReadAvailable fills buf with everything currently readable. It stops
// cleanly when the descriptor is drained or buf is full; io.EOF is
// reported after any read bytes are returned, other failures come back
// wrapped as i/o errors.
func (s *Stream) ReadAvailable(buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := s.Read(buf[total:])
		total += n
		if err != nil {
			if IsWouldBlock(err) {
				return total, nil
			}
			if err == io.EOF {
				return total, io.EOF
			}
			return total, ioError("stream read", err)
		}
	}
	return total, nil
}

// WriteAll writes as much of p as the socket accepts right now and returns
// how far it got. A would-block stop is not a failure: the caller re-issues
// the tail once the next writable event arrives.
func (s *Stream) WriteAll(p []byte) (int, error) {
	total := 0
	for total < len(p) {
		n, err := s.Write(p[total:])
		total += n
		if err != nil {
			if IsWouldBlock(err) {
				return total, nil
			}
			return total, ioError("stream write", err)
		}
	}
	return total, nil
}

// DecodeText validates and converts a payload to a string. Invalid UTF-8
// is a decode failure, not an i/o one.
func DecodeText(p []byte) (string, error) {
	if !utf8.Valid(p) {
		return "", &Error{Kind: ErrUtf8, Op: "decode text"}
	}
	return string(p), nil
}

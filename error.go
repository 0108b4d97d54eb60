package reaktor

import (
	"errors"
	"fmt"
)

// Failure kinds form a closed set: every error this package returns matches
// exactly one of them under errors.Is.
var (
	// ErrIo marks multiplexer and descriptor failures. The syscall error
	// stays reachable through the wrap chain.
	ErrIo = errors.New("i/o failure")
	// ErrChannelClosed is returned by signal operations after the
	// receiving side was closed.
	ErrChannelClosed = errors.New("channel closed")
	// ErrChannelEmpty is returned by a non-blocking receive that found no
	// buffered value. It normally maps to a Continue reaction.
	ErrChannelEmpty = errors.New("channel empty")
	// ErrAddressParse marks malformed listen addresses.
	ErrAddressParse = errors.New("address parse failure")
	// ErrUtf8 marks payload decoding failures in transformation stages.
	ErrUtf8 = errors.New("invalid utf-8 payload")
	// ErrNoCapacity is returned when a bounded slab, session table or
	// signal queue is full.
	ErrNoCapacity = errors.New("no capacity left")
)

// Error couples a failure kind with the operation that hit it and the
// underlying cause, if any.
type Error struct {
	Kind error
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Err)
}

// Is matches on the failure kind, so errors.Is(err, ErrIo) holds for any
// wrapped i/o failure regardless of its cause.
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Err
}

func ioError(op string, err error) error {
	return &Error{Kind: ErrIo, Op: op, Err: err}
}

package reaktor

// Evented is any resource backed by a pollable file descriptor.
type Evented interface {
	Fd() int
}

// EventedReactor ties an Evented resource to a System registration. It is
// the building block the reactive wrappers (listeners, signals, streams)
// are made of rather than a Reactor itself: it owns the token, the interest
// set and the readiness hints delivered for the resource.
type EventedReactor[E Evented] struct {
	inner      E
	sys        *System
	token      Token
	interest   Readiness
	registered bool
	readable   bool
	writable   bool
}

// NewEvented wraps inner without registering it anywhere.
func NewEvented[E Evented](inner E) *EventedReactor[E] {
	return &EventedReactor[E]{inner: inner, token: -1}
}

// Register reserves a token from sys and registers the resource for
// interest under it. Registering an already registered resource is a
// programming error and panics. When the multiplexer rejects the
// registration the reserved token is freed again and the failure returned.
func (e *EventedReactor[E]) Register(sys *System, interest Readiness) error {
	if e.registered {
		panic("reaktor: resource is already registered")
	}
	token, err := sys.ReserveToken()
	if err != nil {
		return err
	}
	if err := sys.Register(e.inner.Fd(), token, interest); err != nil {
		sys.FreeToken(token)
		return err
	}
	e.sys = sys
	e.token = token
	e.interest = interest
	e.registered = true
	e.readable = false
	e.writable = false
	return nil
}

// Reregister replaces the interest set of a registered resource.
func (e *EventedReactor[E]) Reregister(interest Readiness) error {
	if !e.registered {
		panic("reaktor: resource is not registered")
	}
	if err := e.sys.Reregister(e.inner.Fd(), e.token, interest); err != nil {
		return err
	}
	e.interest = interest
	return nil
}

// Deregister detaches the resource from the multiplexer and frees its token
// for reuse. Deregistering an unregistered resource is a safe no-op. Local
// state is cleared even when the multiplexer reports a failure, so a second
// call never re-runs the detach.
func (e *EventedReactor[E]) Deregister() error {
	if !e.registered {
		return nil
	}
	err := e.sys.Deregister(e.inner.Fd(), e.token)
	e.registered = false
	e.sys = nil
	e.token = -1
	e.interest = 0
	e.readable = false
	e.writable = false
	return err
}

// Claims reports whether ev belongs to this resource.
func (e *EventedReactor[E]) Claims(ev Event) bool {
	return e.registered && ev.Token == e.token
}

// Mark records readiness delivered for the resource. The hints stay set
// until a read or write runs into EAGAIN and clears them.
func (e *EventedReactor[E]) Mark(ready Readiness) {
	if ready.Has(Readable) {
		e.readable = true
	}
	if ready.Has(Writable) {
		e.writable = true
	}
}

// Inner returns the wrapped resource.
func (e *EventedReactor[E]) Inner() E {
	return e.inner
}

// Token returns the multiplexer token; valid only while registered.
func (e *EventedReactor[E]) Token() Token {
	return e.token
}

// Interest returns the currently registered interest set.
func (e *EventedReactor[E]) Interest() Readiness {
	return e.interest
}

// Registered reports whether the resource currently holds a token.
func (e *EventedReactor[E]) Registered() bool {
	return e.registered
}

// Readable reports whether the resource was woken for reads since the last
// would-block.
func (e *EventedReactor[E]) Readable() bool {
	return e.readable
}

// Writable reports whether the resource was woken for writes since the last
// would-block.
func (e *EventedReactor[E]) Writable() bool {
	return e.writable
}

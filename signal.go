package reaktor

import (
	"sync"

	queue "github.com/eapache/queue/v2"
)

// signalCore is shared by the receiver and every sender of one channel.
type signalCore[T any] struct {
	mu       sync.Mutex
	buf      *queue.Queue[T]
	capacity Capacity
	closed   bool
	wake     *wakeFd
}

// SignalSender pushes values toward its receiver without ever blocking.
// Senders are cheap value types sharing one channel; copy them across
// goroutines freely.
type SignalSender[T any] struct {
	core *signalCore[T]
}

// Send enqueues v and wakes the receiving loop. A full bounded queue
// returns ErrNoCapacity; with Bounded(0) every send fails, since receivers
// are poll-driven and never synchronously ready. A closed channel returns
// ErrChannelClosed.
func (s SignalSender[T]) Send(v T) error {
	c := s.core
	if c == nil {
		panic("reaktor: send on a zero SignalSender")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return &Error{Kind: ErrChannelClosed, Op: "signal send"}
	}
	if !c.capacity.Allows(c.buf.Length()) {
		return &Error{Kind: ErrNoCapacity, Op: "signal send"}
	}
	c.buf.Add(v)
	return c.wake.notify()
}

// SignalReceiver owns the buffered values and the wake descriptor of a
// channel. It is Evented: register it (or wrap it in a ReactiveSignal) to
// consume values on a loop. The receiver is confined to its loop goroutine.
type SignalReceiver[T any] struct {
	core *signalCore[T]
}

// NewSignalReceiver creates the receiving half of a signal channel whose
// buffer is bounded by capacity.
func NewSignalReceiver[T any](capacity Capacity) (*SignalReceiver[T], error) {
	wake, err := newWakeFd()
	if err != nil {
		return nil, err
	}
	return &SignalReceiver[T]{core: &signalCore[T]{
		buf:      queue.New[T](),
		capacity: capacity,
		wake:     wake,
	}}, nil
}

// Sender returns a new sender for this channel.
func (r *SignalReceiver[T]) Sender() SignalSender[T] {
	return SignalSender[T]{core: r.core}
}

// TryRecv pops the next buffered value without blocking. An empty open
// channel returns ErrChannelEmpty, an empty closed one ErrChannelClosed.
func (r *SignalReceiver[T]) TryRecv() (T, error) {
	var zero T
	c := r.core
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.buf.Length() == 0 {
		if c.closed {
			return zero, &Error{Kind: ErrChannelClosed, Op: "signal recv"}
		}
		return zero, &Error{Kind: ErrChannelEmpty, Op: "signal recv"}
	}
	return c.buf.Remove(), nil
}

// Len returns the number of buffered values.
func (r *SignalReceiver[T]) Len() int {
	r.core.mu.Lock()
	defer r.core.mu.Unlock()
	return r.core.buf.Length()
}

// Fd returns the wake descriptor; it turns readable when values arrive.
func (r *SignalReceiver[T]) Fd() int {
	return r.core.wake.Fd()
}

// DrainWake consumes pending wake bytes. Call it when the wake descriptor
// fired, before pulling the buffered values.
func (r *SignalReceiver[T]) DrainWake() {
	r.core.wake.drain()
}

// Close rejects all further sends and releases the wake descriptors.
// Buffered values stay readable through TryRecv. Close from the owning
// goroutine, after deregistering the wake descriptor from any loop.
func (r *SignalReceiver[T]) Close() error {
	c := r.core
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.wake.close()
}

// ReactiveSignal plugs a SignalReceiver into an event tree: a wake event
// for its token (and every Continue poll) yields one buffered value.
type ReactiveSignal[T any] struct {
	ev *EventedReactor[*SignalReceiver[T]]
}

// NewReactiveSignal registers rx's wake descriptor with sys for reads.
func NewReactiveSignal[T any](sys *System, rx *SignalReceiver[T]) (*ReactiveSignal[T], error) {
	ev := NewEvented(rx)
	if err := ev.Register(sys, Readable); err != nil {
		return nil, err
	}
	return &ReactiveSignal[T]{ev: ev}, nil
}

// Token returns the wake token.
func (rs *ReactiveSignal[T]) Token() Token {
	return rs.ev.Token()
}

// Receiver returns the wrapped receiver.
func (rs *ReactiveSignal[T]) Receiver() *SignalReceiver[T] {
	return rs.ev.Inner()
}

// Deregister detaches the wake descriptor from the loop.
func (rs *ReactiveSignal[T]) Deregister() error {
	return rs.ev.Deregister()
}

// React turns buffered values into Value reactions one at a time. Foreign
// events pass through unconsumed; everything else polls the queue.
func (rs *ReactiveSignal[T]) React(r Reaction[Unit]) Reaction[T] {
	if r.Kind() == KindEvent {
		if !rs.ev.Claims(r.Event()) {
			return FromEvent[T](r.Event())
		}
		rs.ev.Inner().DrainWake()
	}
	v, err := rs.ev.Inner().TryRecv()
	if err != nil {
		return Continue[T]()
	}
	return Value(v)
}

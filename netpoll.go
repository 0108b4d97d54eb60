package reaktor

const (
	defEventsBufferSize = 128
	// blocked makes a wait last until an event arrives.
	blocked = -1
)

// Poller is the readiness multiplexer a System drives. Implementations
// deliver batches of ready tokens and never interpret them; everything a
// poller returns is convertible to an ErrIo failure.
type Poller interface {
	// Add registers fd under token for the given interest set.
	Add(fd int, token Token, interest Readiness) error
	// Mod replaces the interest set fd was registered with.
	Mod(fd int, token Token, interest Readiness) error
	// Delete detaches fd from the poller.
	Delete(fd int) error
	// Wait blocks up to msec milliseconds (blocked: indefinitely) and
	// invokes deliver once per ready token, returning the batch size.
	Wait(msec int, deliver func(Event)) (int, error)
	Close() error
}

package reaktor

import "strings"

// Token identifies a registered event source within one System. Tokens are
// issued in registration order and recycled after deregistration, so a
// token is only meaningful inside the loop that issued it and only while
// its registration is live.
type Token int

// Readiness is the bitmask of conditions a descriptor was woken for, and
// the interest set it gets registered with.
type Readiness uint8

const (
	Readable Readiness = 1 << iota
	Writable
	// Closed is set when the peer hung up or the descriptor entered an
	// error state. It usually arrives together with Readable so pending
	// bytes can still be drained.
	Closed
)

// Has reports whether every bit of r2 is set in r.
func (r Readiness) Has(r2 Readiness) bool {
	return r&r2 == r2
}

func (r Readiness) String() string {
	if r == 0 {
		return "none"
	}
	parts := make([]string, 0, 3)
	if r.Has(Readable) {
		parts = append(parts, "readable")
	}
	if r.Has(Writable) {
		parts = append(parts, "writable")
	}
	if r.Has(Closed) {
		parts = append(parts, "closed")
	}
	return strings.Join(parts, "|")
}

// Event is a single multiplexer wake-up: which token fired and what it is
// ready for. Events are immutable values constructed by the loop and do not
// carry payloads.
type Event struct {
	Token Token
	Ready Readiness
}

package reaktor

import "fmt"

// Unit is the payload type of stages that accept or produce no values.
type Unit = struct{}

// ReactionKind discriminates the three Reaction variants.
type ReactionKind uint8

const (
	// KindContinue means there is nothing to do right now.
	KindContinue ReactionKind = iota
	// KindEvent carries an unconsumed readiness event through the tree.
	KindEvent
	// KindValue carries a payload produced by a stage.
	KindValue
)

func (k ReactionKind) String() string {
	switch k {
	case KindContinue:
		return "continue"
	case KindEvent:
		return "event"
	case KindValue:
		return "value"
	}
	return fmt.Sprintf("reaction(%d)", uint8(k))
}

// Reaction is the closed result of a React call: a payload, an unconsumed
// event, or nothing. The zero value is Continue.
type Reaction[T any] struct {
	kind  ReactionKind
	event Event
	value T
}

// Value wraps a payload.
func Value[T any](v T) Reaction[T] {
	return Reaction[T]{kind: KindValue, value: v}
}

// FromEvent wraps an unconsumed readiness event.
func FromEvent[T any](ev Event) Reaction[T] {
	return Reaction[T]{kind: KindEvent, event: ev}
}

// Continue reports that nothing happened.
func Continue[T any]() Reaction[T] {
	return Reaction[T]{}
}

// Kind returns the variant discriminator.
func (r Reaction[T]) Kind() ReactionKind {
	return r.kind
}

// Value returns the payload; meaningful only when Kind is KindValue.
func (r Reaction[T]) Value() T {
	return r.value
}

// Event returns the carried event; meaningful only when Kind is KindEvent.
func (r Reaction[T]) Event() Event {
	return r.event
}

func (r Reaction[T]) String() string {
	switch r.kind {
	case KindValue:
		return fmt.Sprintf("Value(%v)", r.value)
	case KindEvent:
		return fmt.Sprintf("Event(token=%d, ready=%s)", r.event.Token, r.event.Ready)
	}
	return "Continue"
}

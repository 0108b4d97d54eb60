package reaktor

// Reactor is one stage of an event tree: it receives a Reaction and
// produces one. React must not block; slow work belongs on other
// goroutines, fed back into the loop through signal senders.
//
// A stage that can fail encodes the failure into its Output type; the
// Reaction algebra itself carries no errors.
type Reactor[In, Out any] interface {
	React(Reaction[In]) Reaction[Out]
}

// ReactorFunc adapts a plain function to the Reactor interface.
type ReactorFunc[In, Out any] func(Reaction[In]) Reaction[Out]

func (f ReactorFunc[In, Out]) React(r Reaction[In]) Reaction[Out] {
	return f(r)
}

// Consume is the identity stage: values, events and Continue all pass
// through unchanged. Useful as a chain terminator and in tests.
func Consume[T any]() Reactor[T, T] {
	return ReactorFunc[T, T](func(r Reaction[T]) Reaction[T] {
		return r
	})
}

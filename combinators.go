package reaktor

// Either carries the output of one branch of a combined reactor pair.
type Either[A, B any] struct {
	isB bool
	a   A
	b   B
}

// EitherA wraps a first-branch value.
func EitherA[A, B any](a A) Either[A, B] {
	return Either[A, B]{a: a}
}

// EitherB wraps a second-branch value.
func EitherB[A, B any](b B) Either[A, B] {
	return Either[A, B]{isB: true, b: b}
}

// A returns the first-branch value and whether it is present.
func (e Either[A, B]) A() (A, bool) {
	return e.a, !e.isB
}

// B returns the second-branch value and whether it is present.
func (e Either[A, B]) B() (B, bool) {
	return e.b, e.isB
}

// ChainReactor feeds values produced by its first stage into its second.
// Build one with Chain.
type ChainReactor[In, Mid, Out any] struct {
	first  Reactor[In, Mid]
	second Reactor[Mid, Out]
}

// Chain composes two stages into a value pipeline. A Value produced by
// first is fed to second and second's result returned. An Event returned by
// first passes through unconsumed without invoking second: events reach
// sibling evented stages through And, never through a chain. A Continue
// short-circuits the rest of the chain.
func Chain[In, Mid, Out any](first Reactor[In, Mid], second Reactor[Mid, Out]) *ChainReactor[In, Mid, Out] {
	if first == nil || second == nil {
		panic("reaktor: Chain requires two non-nil reactors")
	}
	return &ChainReactor[In, Mid, Out]{first: first, second: second}
}

func (c *ChainReactor[In, Mid, Out]) React(r Reaction[In]) Reaction[Out] {
	mid := c.first.React(r)
	switch mid.Kind() {
	case KindValue:
		return c.second.React(mid)
	case KindEvent:
		return FromEvent[Out](mid.Event())
	}
	return Continue[Out]()
}

// MapReactor transforms the values an inner stage produces. Build one with
// Map.
type MapReactor[In, Mid, Out any] struct {
	inner Reactor[In, Mid]
	fn    func(Mid) Out
}

// Map applies fn to every Value produced by inner. Events and Continue pass
// through untouched. fn runs once per value and may run on every dispatch,
// so it must be repeatable and must not share mutable state across stages.
func Map[In, Mid, Out any](inner Reactor[In, Mid], fn func(Mid) Out) *MapReactor[In, Mid, Out] {
	if inner == nil || fn == nil {
		panic("reaktor: Map requires a reactor and a transform")
	}
	return &MapReactor[In, Mid, Out]{inner: inner, fn: fn}
}

func (m *MapReactor[In, Mid, Out]) React(r Reaction[In]) Reaction[Out] {
	mid := m.inner.React(r)
	switch mid.Kind() {
	case KindValue:
		return Value(m.fn(mid.Value()))
	case KindEvent:
		return FromEvent[Out](mid.Event())
	}
	return Continue[Out]()
}

// AndReactor offers incoming events to two children. Build one with And.
type AndReactor[In, A, B any] struct {
	first  Reactor[In, A]
	second Reactor[In, B]
}

// And combines two evented subtrees. Every incoming event is offered to
// both children in order; at most one of them may claim it, so two combined
// subtrees must never register the same token. A claimed event yields the
// claiming child's value as an Either; should both children produce a value
// for the same input, the first child wins. An event neither child claims
// passes through unconsumed so an enclosing And can keep routing it.
//
// Continue polls the first child and falls back to the second when the
// first has nothing buffered, so repeated polling drains both sources. A
// Value input yields Continue: payloads travel inside chains, not across
// siblings.
func And[In, A, B any](first Reactor[In, A], second Reactor[In, B]) *AndReactor[In, A, B] {
	if first == nil || second == nil {
		panic("reaktor: And requires two non-nil reactors")
	}
	return &AndReactor[In, A, B]{first: first, second: second}
}

func (a *AndReactor[In, A, B]) React(r Reaction[In]) Reaction[Either[A, B]] {
	switch r.Kind() {
	case KindEvent:
		ra := a.first.React(r)
		rb := a.second.React(r)
		if ra.Kind() == KindValue {
			return Value(EitherA[A, B](ra.Value()))
		}
		if rb.Kind() == KindValue {
			return Value(EitherB[A, B](rb.Value()))
		}
		if ra.Kind() == KindEvent && rb.Kind() == KindEvent {
			return FromEvent[Either[A, B]](r.Event())
		}
		return Continue[Either[A, B]]()
	case KindContinue:
		if ra := a.first.React(r); ra.Kind() == KindValue {
			return Value(EitherA[A, B](ra.Value()))
		}
		if rb := a.second.React(r); rb.Kind() == KindValue {
			return Value(EitherB[A, B](rb.Value()))
		}
	}
	return Continue[Either[A, B]]()
}

// OrReactor routes Either values between two children that share an output
// type. Build one with Or.
type OrReactor[A, B, Out any] struct {
	first  Reactor[A, Out]
	second Reactor[B, Out]
}

// Or routes incoming Either values to the matching child: A-values to the
// first, B-values to the second. Events are offered to both children the
// way And offers them; Continue polls first, then second.
func Or[A, B, Out any](first Reactor[A, Out], second Reactor[B, Out]) *OrReactor[A, B, Out] {
	if first == nil || second == nil {
		panic("reaktor: Or requires two non-nil reactors")
	}
	return &OrReactor[A, B, Out]{first: first, second: second}
}

func (o *OrReactor[A, B, Out]) React(r Reaction[Either[A, B]]) Reaction[Out] {
	switch r.Kind() {
	case KindValue:
		if a, ok := r.Value().A(); ok {
			return o.first.React(Value(a))
		}
		b, _ := r.Value().B()
		return o.second.React(Value(b))
	case KindEvent:
		ra := o.first.React(FromEvent[A](r.Event()))
		rb := o.second.React(FromEvent[B](r.Event()))
		if ra.Kind() == KindValue {
			return ra
		}
		if rb.Kind() == KindValue {
			return rb
		}
		if ra.Kind() == KindEvent && rb.Kind() == KindEvent {
			return FromEvent[Out](r.Event())
		}
		return Continue[Out]()
	}
	if ra := o.first.React(Continue[A]()); ra.Kind() == KindValue {
		return ra
	}
	if rb := o.second.React(Continue[B]()); rb.Kind() == KindValue {
		return rb
	}
	return Continue[Out]()
}

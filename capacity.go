package reaktor

import "fmt"

// Capacity bounds how many elements a slab, session table or signal queue
// may hold at once.
type Capacity struct {
	limit   int
	bounded bool
}

// Unbounded places no limit on growth.
func Unbounded() Capacity {
	return Capacity{}
}

// Bounded limits storage to n elements. Bounded(0) rejects everything.
func Bounded(n int) Capacity {
	return Capacity{limit: n, bounded: true}
}

// Allows reports whether a collection currently holding length elements may
// accept one more.
func (c Capacity) Allows(length int) bool {
	return !c.bounded || length < c.limit
}

// Limit returns the configured bound; ok is false for unbounded capacities.
func (c Capacity) Limit() (limit int, ok bool) {
	return c.limit, c.bounded
}

func (c Capacity) String() string {
	if !c.bounded {
		return "unbounded"
	}
	return fmt.Sprintf("bounded(%d)", c.limit)
}

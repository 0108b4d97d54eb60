package reaktor

// Slab is pre-allocated storage addressed by external indexes shifted by a
// fixed offset. Freed slots go onto a LIFO free-list, so the most recently
// freed index is reused first. A bounded slab never grows; an unbounded one
// doubles when full, relocating entries, so pointers from Get are stable
// across inserts only in bounded slabs.
type Slab[T any] struct {
	entries  []slabEntry[T]
	next     int
	length   int
	offset   int
	capacity Capacity
}

type slabEntry[T any] struct {
	value    T
	next     int
	occupied bool
}

const defSlabSize = 64

// NewSlab allocates a slab whose external indexes start at offset. Bounded
// slabs allocate their full capacity up front.
func NewSlab[T any](capacity Capacity, offset int) *Slab[T] {
	size := defSlabSize
	if limit, ok := capacity.Limit(); ok {
		size = limit
	}
	s := &Slab[T]{
		entries:  make([]slabEntry[T], size),
		offset:   offset,
		capacity: capacity,
	}
	for i := range s.entries {
		s.entries[i].next = i + 1
	}
	return s
}

// Insert stores value in the lowest free slot and returns its external
// index. A full bounded slab returns ErrNoCapacity.
func (s *Slab[T]) Insert(value T) (int, error) {
	if !s.capacity.Allows(s.length) {
		return 0, &Error{Kind: ErrNoCapacity, Op: "slab insert"}
	}
	if s.next >= len(s.entries) {
		s.grow()
	}
	idx := s.next
	e := &s.entries[idx]
	s.next = e.next
	e.value = value
	e.occupied = true
	s.length++
	return idx + s.offset, nil
}

// Get returns a pointer to the value at external index idx. ok is false
// when idx is out of range or the slot is free; mutations through the
// pointer are visible to later lookups.
func (s *Slab[T]) Get(idx int) (*T, bool) {
	i := idx - s.offset
	if i < 0 || i >= len(s.entries) || !s.entries[i].occupied {
		return nil, false
	}
	return &s.entries[i].value, true
}

// Remove frees the slot at external index idx and returns its value.
// Removing a free or out-of-range index is a no-op.
func (s *Slab[T]) Remove(idx int) (T, bool) {
	var zero T
	i := idx - s.offset
	if i < 0 || i >= len(s.entries) || !s.entries[i].occupied {
		return zero, false
	}
	e := &s.entries[i]
	value := e.value
	e.value = zero
	e.occupied = false
	e.next = s.next
	s.next = i
	s.length--
	return value, true
}

// InRange reports whether idx falls inside the slab's addressable window.
func (s *Slab[T]) InRange(idx int) bool {
	i := idx - s.offset
	return i >= 0 && i < len(s.entries)
}

// Len returns the number of occupied slots.
func (s *Slab[T]) Len() int {
	return s.length
}

// Offset returns the external index of slot zero.
func (s *Slab[T]) Offset() int {
	return s.offset
}

// Capacity returns the growth policy the slab was built with.
func (s *Slab[T]) Capacity() Capacity {
	return s.capacity
}

func (s *Slab[T]) grow() {
	size := len(s.entries) * 2
	if size == 0 {
		size = defSlabSize
	}
	grown := make([]slabEntry[T], size)
	copy(grown, s.entries)
	for i := len(s.entries); i < size; i++ {
		grown[i].next = i + 1
	}
	s.entries = grown
}

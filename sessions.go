package reaktor

import "github.com/rs/zerolog/log"

// Sessions stores per-connection state keyed by Token. Tokens are unique
// among live sessions and recycled most-recent-first after removal, so a
// token must never be used once its session was removed. The table is
// confined to the loop goroutine that owns it and does no locking.
//
// Its token range starts at the configured offset; keep it disjoint from
// tokens handed out by the System (control channel, listeners, signals) by
// sizing the offset above them.
type Sessions[T any] struct {
	sys  *System
	slab *Slab[sessionEntry[T]]
}

type sessionEntry[T any] struct {
	value      T
	fd         int
	registered bool
}

// NewSessions creates a session table issuing tokens from offset upward.
// sys may be nil for plain storage; AddFd requires it.
func NewSessions[T any](sys *System, capacity Capacity, offset int) *Sessions[T] {
	return &Sessions[T]{
		sys:  sys,
		slab: NewSlab[sessionEntry[T]](capacity, offset),
	}
}

// Add stores a session and returns its token plus a pointer for immediate
// mutation. A full bounded table returns ErrNoCapacity and stores nothing.
func (s *Sessions[T]) Add(session T) (Token, *T, error) {
	idx, err := s.slab.Insert(sessionEntry[T]{value: session, fd: -1})
	if err != nil {
		return 0, nil, err
	}
	entry, _ := s.slab.Get(idx)
	if log.Debug().Enabled() {
		log.Debug().Msgf("added session on token %d, total sessions: %d", idx, s.slab.Len())
	}
	return Token(idx), &entry.value, nil
}

// AddFd stores a session and registers fd under the new token with the
// bound System, so events for the descriptor arrive carrying this token.
// The descriptor is deregistered again when the session is removed. When
// the registration fails the slot is rolled back and nothing is stored.
func (s *Sessions[T]) AddFd(session T, fd int, interest Readiness) (Token, *T, error) {
	if s.sys == nil {
		panic("reaktor: AddFd requires a session table bound to a System")
	}
	idx, err := s.slab.Insert(sessionEntry[T]{value: session, fd: fd, registered: true})
	if err != nil {
		return 0, nil, err
	}
	if err := s.sys.Register(fd, Token(idx), interest); err != nil {
		s.slab.Remove(idx)
		return 0, nil, err
	}
	entry, _ := s.slab.Get(idx)
	if log.Debug().Enabled() {
		log.Debug().Msgf("added session for fd %d on token %d, total sessions: %d", fd, idx, s.slab.Len())
	}
	return Token(idx), &entry.value, nil
}

// Get returns the session registered under token. A stale or foreign token
// yields ok == false. That is not an error: late events for removed
// sessions are expected and their reactions simply pass the event on.
// Hold the pointer only for the current reaction; an insert into an
// unbounded table may relocate entries.
func (s *Sessions[T]) Get(token Token) (*T, bool) {
	entry, ok := s.slab.Get(int(token))
	if !ok {
		return nil, false
	}
	return &entry.value, true
}

// Remove deregisters (when fd-attached) and drops the session under token,
// freeing the token for reuse. Removing an absent token is a no-op, so
// removal is idempotent.
func (s *Sessions[T]) Remove(token Token) {
	entry, ok := s.slab.Remove(int(token))
	if !ok {
		return
	}
	if entry.registered && s.sys != nil {
		if err := s.sys.Deregister(entry.fd, token); err != nil {
			log.Debug().Msgf("got error while deregistering session token %d: %+v", token, err)
		}
	}
	if log.Debug().Enabled() {
		log.Debug().Msgf("removed session on token %d, total sessions: %d", token, s.slab.Len())
	}
}

// Len returns the number of live sessions.
func (s *Sessions[T]) Len() int {
	return s.slab.Len()
}

// Offset returns the first token this table issues.
func (s *Sessions[T]) Offset() int {
	return s.slab.Offset()
}

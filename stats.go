package reaktor

import "go.uber.org/atomic"

// SystemStats counts what one loop has been doing. The counters are atomic
// so they can be read from outside the loop goroutine.
type SystemStats struct {
	name             string
	eventsDispatched *atomic.Uint64
	valuesDiscarded  *atomic.Uint64
	wakeCount        *atomic.Uint64
	tokensLive       *atomic.Int64
}

func newSystemStats(name string) *SystemStats {
	return &SystemStats{
		name:             name,
		eventsDispatched: atomic.NewUint64(0),
		valuesDiscarded:  atomic.NewUint64(0),
		wakeCount:        atomic.NewUint64(0),
		tokensLive:       atomic.NewInt64(0),
	}
}

// Name returns the owning system's name.
func (s *SystemStats) Name() string {
	return s.name
}

// EventsDispatched returns how many readiness events reached the root
// reactor.
func (s *SystemStats) EventsDispatched() uint64 {
	return s.eventsDispatched.Load()
}

// ValuesDiscarded returns how many values surfaced at the tree root and
// were dropped. The drop is intentional; a steadily climbing number usually
// means a result the tree was supposed to consume leaks out of it.
func (s *SystemStats) ValuesDiscarded() uint64 {
	return s.valuesDiscarded.Load()
}

// WakeCount returns how many times a wait returned.
func (s *SystemStats) WakeCount() uint64 {
	return s.wakeCount.Load()
}

// TokensLive returns the number of currently registered descriptors.
func (s *SystemStats) TokensLive() int64 {
	return s.tokensLive.Load()
}

package reaktor

import (
	"runtime"
	"time"

	"github.com/rs/zerolog/log"
	"go.uber.org/atomic"
)

// SystemConfig tunes one event loop.
type SystemConfig struct {
	// Name tags log lines and stats.
	Name string
	// LockOsThread pins the loop goroutine to its OS thread.
	LockOsThread bool
	// EventBufferSize caps how many events one wait may deliver.
	EventBufferSize int
	// WaitTimeout bounds a single wait so the loop can notice Stop and run
	// housekeeping without traffic; zero blocks indefinitely.
	WaitTimeout time.Duration
}

// SystemEvent is a control message consumed by the loop itself.
type SystemEvent uint8

const (
	// SystemStop ends the loop after the current batch.
	SystemStop SystemEvent = iota
)

// System owns one multiplexer and the registration table of everything
// polled through it. A System is confined to a single goroutine: construct
// it, register resources and run Start from that goroutine. Only signal
// senders and Stop may be shared across goroutines.
type System struct {
	name       string
	poller     Poller
	tokens     *Slab[Readiness]
	isRunning  *atomic.Bool
	stats      *SystemStats
	waitMsec   int
	lockThread bool

	control    *SignalReceiver[SystemEvent]
	controlTok Token
}

// NewSystem opens a multiplexer and an empty registration table. Nothing is
// registered up front (the control channel is wired lazily by Control), so
// the caller owns the token range from zero.
func NewSystem(config SystemConfig) (*System, error) {
	if log.Debug().Enabled() {
		log.Debug().Msgf("init system:%+v", config)
	} else {
		log.Info().Msgf("init system:%s", config.Name)
	}
	poller, err := OpenPoller(config.EventBufferSize)
	if err != nil {
		log.Error().Msgf("can't open poller: %+v", err)
		return nil, err
	}
	return newSystem(poller, config), nil
}

func newSystem(poller Poller, config SystemConfig) *System {
	name := config.Name
	if name == "" {
		name = "reaktor"
	}
	msec := blocked
	if config.WaitTimeout > 0 {
		msec = int(config.WaitTimeout / time.Millisecond)
	}
	return &System{
		name:       name,
		poller:     poller,
		tokens:     NewSlab[Readiness](Unbounded(), 0),
		isRunning:  atomic.NewBool(false),
		stats:      newSystemStats(name),
		waitMsec:   msec,
		lockThread: config.LockOsThread,
		controlTok: -1,
	}
}

// Name returns the configured loop name.
func (s *System) Name() string {
	return s.name
}

// Stats returns the loop's counters.
func (s *System) Stats() *SystemStats {
	return s.stats
}

// ReserveToken allocates the next free token without registering anything
// under it yet. Tokens issue in order and freed ones are reused
// most-recent-first.
func (s *System) ReserveToken() (Token, error) {
	idx, err := s.tokens.Insert(0)
	if err != nil {
		return 0, err
	}
	return Token(idx), nil
}

// FreeToken releases a reserved token for reuse. Freeing an unreserved or
// foreign token is a no-op.
func (s *System) FreeToken(token Token) {
	s.tokens.Remove(int(token))
}

// Register adds fd to the multiplexer under token. The token may come from
// ReserveToken or from a session table issuing its own range; only
// system-reserved tokens show up in the interest table.
func (s *System) Register(fd int, token Token, interest Readiness) error {
	if err := s.poller.Add(fd, token, interest); err != nil {
		return err
	}
	if slot, ok := s.tokens.Get(int(token)); ok {
		*slot = interest
	}
	s.stats.tokensLive.Inc()
	return nil
}

// Reregister replaces the interest set registered under token.
func (s *System) Reregister(fd int, token Token, interest Readiness) error {
	if err := s.poller.Mod(fd, token, interest); err != nil {
		return err
	}
	if slot, ok := s.tokens.Get(int(token)); ok {
		*slot = interest
	}
	return nil
}

// Deregister detaches fd from the multiplexer and frees token if it was
// system-reserved. The multiplexer failure, if any, is returned after the
// local bookkeeping is cleared.
func (s *System) Deregister(fd int, token Token) error {
	err := s.poller.Delete(fd)
	s.FreeToken(token)
	s.stats.tokensLive.Dec()
	return err
}

// Control returns a sender for loop control messages, wiring the control
// receiver into the loop on first use. The receiver takes the next free
// token, so register stages that rely on low tokens before wiring it.
func (s *System) Control() (SignalSender[SystemEvent], error) {
	if s.control != nil {
		return s.control.Sender(), nil
	}
	rx, err := NewSignalReceiver[SystemEvent](Unbounded())
	if err != nil {
		return SignalSender[SystemEvent]{}, err
	}
	token, err := s.ReserveToken()
	if err != nil {
		rx.Close()
		return SignalSender[SystemEvent]{}, err
	}
	if err := s.Register(rx.Fd(), token, Readable); err != nil {
		s.FreeToken(token)
		rx.Close()
		return SignalSender[SystemEvent]{}, err
	}
	s.control = rx
	s.controlTok = token
	log.Debug().Msgf("wired control channel for system %s on token %d", s.name, token)
	return rx.Sender(), nil
}

// Stop asks the loop to exit. With a wired control channel the loop wakes
// immediately; without one the flag is noticed at the next wake, so loops
// relying on plain Stop should run with a WaitTimeout.
func (s *System) Stop() {
	if s.control != nil {
		if err := s.control.Sender().Send(SystemStop); err != nil {
			log.Debug().Msgf("got error while sending stop to system %s: %+v", s.name, err)
		}
		return
	}
	s.isRunning.Store(false)
}

// Close releases the control channel and the multiplexer. Close only after
// the loop has stopped.
func (s *System) Close() error {
	if s.control != nil {
		if err := s.control.Close(); err != nil {
			log.Debug().Msgf("got error while closing control channel: %+v", err)
		}
		s.control = nil
		s.controlTok = -1
	}
	return s.poller.Close()
}

// Start runs sys's event loop until Stop is requested or the multiplexer
// fails. Each readiness event is dispatched into root; while the root keeps
// answering with a Value, it is polled again with Continue so buffered
// stages drain completely. A Value surfacing at the root is counted and
// deliberately discarded; results that matter are consumed by a stage
// inside the tree.
//
// Start is a free function because it introduces the root's type
// parameters; it must run on the goroutine owning sys.
func Start[In, Out any](sys *System, root Reactor[In, Out]) error {
	return sys.run(func(ev Event) {
		r := root.React(FromEvent[In](ev))
		for r.Kind() == KindValue {
			sys.stats.valuesDiscarded.Inc()
			r = root.React(Continue[In]())
		}
	})
}

func (s *System) run(dispatch func(Event)) error {
	if !s.isRunning.CompareAndSwap(false, true) {
		panic("reaktor: system " + s.name + " is already running")
	}
	defer s.isRunning.Store(false)
	if s.lockThread {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
	}
	log.Info().Msgf("starting system %s", s.name)
	stop := false
	for !stop && s.isRunning.Load() {
		evCount, err := s.poller.Wait(s.waitMsec, func(ev Event) {
			if s.control != nil && ev.Token == s.controlTok {
				if s.drainControl() {
					stop = true
				}
				return
			}
			s.stats.eventsDispatched.Inc()
			dispatch(ev)
		})
		if err != nil {
			log.Error().Msgf("got error while waiting for events in system %s: %+v", s.name, err)
			return err
		}
		s.stats.wakeCount.Inc()
		if evCount > 0 && log.Debug().Enabled() {
			log.Debug().Msgf("system %s processed %d events", s.name, evCount)
		}
	}
	log.Info().Msgf("system %s stopped", s.name)
	return nil
}

func (s *System) drainControl() (stop bool) {
	s.control.DrainWake()
	for {
		ev, err := s.control.TryRecv()
		if err != nil {
			return stop
		}
		if ev == SystemStop {
			stop = true
		}
	}
}

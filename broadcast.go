package reaktor

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
)

// Broadcast clones every published value to all current subscribers. Each
// subscriber owns an independently bounded queue and there is no history: a
// late subscriber only sees values published after Subscribe returned.
type Broadcast[T any] struct {
	mu       sync.RWMutex
	capacity Capacity
	subs     []broadcastSub[T]
	nextID   int
}

type broadcastSub[T any] struct {
	id int
	tx SignalSender[T]
}

// NewBroadcast creates a hub whose subscribers each buffer up to capacity
// values.
func NewBroadcast[T any](capacity Capacity) *Broadcast[T] {
	return &Broadcast[T]{capacity: capacity}
}

// Subscribe registers a new receiver and returns it; the caller wires it
// into its own loop, typically through a ReactiveSignal.
func (b *Broadcast[T]) Subscribe() (*SignalReceiver[T], error) {
	rx, err := NewSignalReceiver[T](b.capacity)
	if err != nil {
		return nil, err
	}
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs = append(b.subs, broadcastSub[T]{id: id, tx: rx.Sender()})
	b.mu.Unlock()
	return rx, nil
}

// Publish sends v to every subscriber. One undeliverable subscriber does
// not stop delivery to the rest; the returned error names each subscriber
// that overflowed or was closed, so the publisher knows who is not keeping
// up.
func (b *Broadcast[T]) Publish(v T) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var errs []error
	for _, sub := range b.subs {
		if err := sub.tx.Send(v); err != nil {
			errs = append(errs, fmt.Errorf("subscriber %d: %w", sub.id, err))
		}
	}
	return errors.Join(errs...)
}

// Len returns the current number of subscribers.
func (b *Broadcast[T]) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// ReactiveBroadcast republishes every value flowing through it and passes
// the value on unchanged. A Reaction cannot carry a publish failure, so
// failures are logged instead.
type ReactiveBroadcast[T any] struct {
	hub *Broadcast[T]
}

// NewReactiveBroadcast wraps hub as a pass-through stage.
func NewReactiveBroadcast[T any](hub *Broadcast[T]) *ReactiveBroadcast[T] {
	if hub == nil {
		panic("reaktor: ReactiveBroadcast requires a hub")
	}
	return &ReactiveBroadcast[T]{hub: hub}
}

func (rb *ReactiveBroadcast[T]) React(r Reaction[T]) Reaction[T] {
	if r.Kind() == KindValue {
		if err := rb.hub.Publish(r.Value()); err != nil {
			log.Error().Msgf("got error while broadcasting value: %+v", err)
		}
	}
	return r
}

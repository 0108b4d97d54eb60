package reaktor

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

const MagicNumber = uint64(2862933555777941757)

// JumpHash maps key uniformly onto [0, numBuckets) and moves only the
// minimal share of keys when the bucket count changes (Lamping & Veach's
// jump consistent hash).
func JumpHash(key uint64, numBuckets int) int {
	var bucket int64 = -1 // bucket number before the previous jump
	var jump int64 = 0    // bucket number before the current jump
	for jump < int64(numBuckets) {
		bucket = jump
		key = key*MagicNumber + 1
		jump = int64(float64(bucket+1) * (float64(int64(1)<<31) / float64((key>>33)+1)))
	}
	return int(bucket)
}

// RouteKey derives a stable routing key from raw bytes such as a peer
// address or a session id. The derivation is identical across processes and
// restarts.
func RouteKey(b []byte) uint64 {
	sum := blake2b.Sum256(b)
	return binary.BigEndian.Uint64(sum[:8])
}

// Fanout deterministically routes values across a fixed set of signal
// lanes: the same key always lands on the same lane while the lane set is
// unchanged. It is the usual bridge between an accept loop and a pool of
// worker systems.
type Fanout[T any] struct {
	lanes []SignalSender[T]
}

// NewFanout builds a router over the given lanes.
func NewFanout[T any](lanes ...SignalSender[T]) *Fanout[T] {
	if len(lanes) == 0 {
		panic("reaktor: Fanout requires at least one lane")
	}
	return &Fanout[T]{lanes: append([]SignalSender[T]{}, lanes...)}
}

// Route sends v down the lane selected by key.
func (f *Fanout[T]) Route(key uint64, v T) error {
	lane := JumpHash(key, len(f.lanes))
	if err := f.lanes[lane].Send(v); err != nil {
		return fmt.Errorf("lane %d: %w", lane, err)
	}
	return nil
}

// RouteBytes routes by the derived key of raw bytes.
func (f *Fanout[T]) RouteBytes(key []byte, v T) error {
	return f.Route(RouteKey(key), v)
}

// Lanes returns the number of lanes.
func (f *Fanout[T]) Lanes() int {
	return len(f.lanes)
}

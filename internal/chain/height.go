// Package chain provides the block-height source consumed by the token rate
// limiter and the AMM circuit breaker. The core is substrate-agnostic, so
// height derives from a deterministic slot clock rather than a settlement
// network; swapping in a real chain head only requires another Source.
package chain

import "time"

// Source reports the current block height. Heights are monotonic.
type Source interface {
	Height() uint64
}

// SlotClock derives height from wall time: one block per SlotSeconds since
// Genesis.
type SlotClock struct {
	Genesis     time.Time
	SlotSeconds int64
}

func NewSlotClock(slotSeconds int64) *SlotClock {
	return &SlotClock{Genesis: time.Unix(0, 0).UTC(), SlotSeconds: slotSeconds}
}

func (s *SlotClock) Height() uint64 {
	secs := s.SlotSeconds
	if secs <= 0 {
		secs = 12
	}
	elapsed := time.Since(s.Genesis)
	if elapsed < 0 {
		return 0
	}
	return uint64(elapsed / (time.Duration(secs) * time.Second))
}

// Fixed is a manually-advanced source for tests.
type Fixed struct {
	H uint64
}

func (f *Fixed) Height() uint64 { return f.H }

// Advance moves the fixed height forward by n blocks.
func (f *Fixed) Advance(n uint64) { f.H += n }

package probe

import (
	"context"
	"math/rand/v2"
	"time"
)

// Jitter produces human-like pauses between simulated user actions
type Jitter struct {
	clock  Clock
	rng    *rand.Rand
	keyMin time.Duration
	keyMax time.Duration
}

// NewJitter - creates a jitter provider seeded from the current time
func NewJitter(clock Clock, keyMin, keyMax time.Duration) *Jitter {
	seed := uint64(time.Now().UnixNano())
	return NewSeededJitter(clock, seed, keyMin, keyMax)
}

// NewSeededJitter - deterministic variant used by tests
func NewSeededJitter(clock Clock, seed uint64, keyMin, keyMax time.Duration) *Jitter {
	return &Jitter{
		clock:  clock,
		rng:    rand.New(rand.NewPCG(seed, seed^0x5deece66d)),
		keyMin: keyMin,
		keyMax: keyMax,
	}
}

// Between - uniform random duration in [lo, hi]
func (j *Jitter) Between(lo, hi time.Duration) time.Duration {
	if hi < lo {
		lo, hi = hi, lo
	}
	if hi == lo {
		return lo
	}
	return lo + time.Duration(j.rng.Int64N(int64(hi-lo)+1))
}

// Delay - blocks for a random duration in [lo, hi]
func (j *Jitter) Delay(ctx context.Context, lo, hi time.Duration) error {
	return j.clock.Sleep(ctx, j.Between(lo, hi))
}

// Pause - blocks for exactly d
func (j *Jitter) Pause(ctx context.Context, d time.Duration) error {
	return j.clock.Sleep(ctx, d)
}

// Keystroke - inter-character delay for typed text
func (j *Jitter) Keystroke() time.Duration {
	return j.Between(j.keyMin, j.keyMax)
}

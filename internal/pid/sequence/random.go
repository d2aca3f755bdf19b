package sequence

import (
	"context"
	"math/rand/v2"

	"prms/internal/pid"
)

// Random draws uniformly from [1, pid.MaxSequence] without tracking issued
// values. Duplicates are possible; never use it where identifiers persist.
type Random struct {
	intN func(n int) int
}

// NewRandom creates the reference mock allocator.
func NewRandom() *Random {
	return &Random{intN: rand.IntN}
}

// Next ignores period and returns a random value.
func (a *Random) Next(ctx context.Context, _ pid.Period) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return a.intN(pid.MaxSequence) + 1, nil
}

package sequence

import (
	"context"
	"sync"

	"prms/internal/pid"
)

// InMemory is a process-local counter per period. Counters start at 1 and
// are lost on restart, so it suits tests and single-process demos only.
type InMemory struct {
	mu       sync.Mutex
	counters map[pid.Period]int
}

// NewInMemory creates an empty in-memory allocator.
func NewInMemory() *InMemory {
	return &InMemory{counters: make(map[pid.Period]int)}
}

// Next returns the next value for period.
func (a *InMemory) Next(ctx context.Context, period pid.Period) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.counters[period]++
	return a.counters[period], nil
}

// Current returns the last value issued for period, or 0.
func (a *InMemory) Current(period pid.Period) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.counters[period]
}

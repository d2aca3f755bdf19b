package ops

import "math/rand/v2"

// Sampler keeps a fraction of events per action. Rates are fixed at
// construction and clamped to [0, 1].
type Sampler struct {
	fallback float64
	rates    map[string]float64
	random   func() float64
}

// NewSampler keeps defaultRate of all events, except actions listed in
// overrides which use their own rate.
func NewSampler(defaultRate float64, overrides map[string]float64) *Sampler {
	rates := make(map[string]float64, len(overrides))
	for action, rate := range overrides {
		rates[action] = clampRate(rate)
	}
	return &Sampler{
		fallback: clampRate(defaultRate),
		rates:    rates,
		random:   rand.Float64,
	}
}

// Keep reports whether an event for action should be stored.
func (s *Sampler) Keep(action string) bool {
	rate, ok := s.rates[action]
	if !ok {
		rate = s.fallback
	}
	switch rate {
	case 0:
		return false
	case 1:
		return true
	}
	return s.random() < rate //nolint:gosec // sampling needs no crypto rand
}

func clampRate(rate float64) float64 {
	return min(max(rate, 0), 1)
}

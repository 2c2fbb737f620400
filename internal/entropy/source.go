// Package entropy provides the seeded random source behind every
// probabilistic draw. Draw order is fixed (per person, then per group, in
// enumeration order), so a run is exactly reproducible from its seed.
package entropy

import "math/rand"

// Source is an injectable, seedable uniform random source.
type Source struct {
	rng *rand.Rand
}

// NewSource creates a source seeded with the given value.
func NewSource(seed int64) *Source {
	return &Source{rng: rand.New(rand.NewSource(seed))}
}

// Float returns a uniform float64 in [0, 1).
func (s *Source) Float() float64 {
	return s.rng.Float64()
}

// Chance performs one draw and returns true with probability p.
// p <= 0 never fires, p >= 1 always fires; one draw is consumed either way
// so the draw sequence stays aligned across parameterizations.
func (s *Source) Chance(p float64) bool {
	v := s.rng.Float64()
	if p <= 0 {
		return false
	}
	if p >= 1 {
		return true
	}
	return v < p
}

// Intn returns a uniform int in [0, n).
func (s *Source) Intn(n int) int {
	return s.rng.Intn(n)
}

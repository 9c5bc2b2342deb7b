// Package simrandom is the single seeded randomness source for a
// simulation. All outputs are a pure function of the seed and the call
// sequence, which is what makes two runs with identical seed, config, and
// delta produce bitwise-identical outputs (spec invariant 2).
//
// The wrapping-struct-around-*rand.Rand idiom, including an explicit
// deterministic constructor taking an int64 seed, follows the pack sibling
// luxfi-consensus's sampler package rather than katzenpost's own
// core/crypto/rand, which wraps a CSPRNG and is unsuitable for reproducible
// simulation.
package simrandom

import (
	"math"
	"math/rand"
)

// Source is the simulation's deterministic RNG service. Every exported
// operation in the package except SeededShuffle (which is keyed by its own
// seed) takes a *Source as its entropy supply so that
// generic helpers (Choice, Sample, Shuffle, ...) can operate over any
// element type without the package itself needing to know it.
type Source struct {
	rnd *rand.Rand

	deltaSeconds float64
	cachedF      map[float64]float64
}

// New creates a Source seeded deterministically. deltaSeconds is the fixed
// per-tick duration in seconds (Δ/1000), cached once because it never
// changes over the life of a simulation.
func New(seed int64, deltaSeconds float64) *Source {
	return &Source{
		rnd:          rand.New(rand.NewSource(seed)),
		deltaSeconds: deltaSeconds,
		cachedF:      make(map[float64]float64),
	}
}

// Intn returns a uniform int in [0, n).
func (s *Source) Intn(n int) int {
	return s.rnd.Intn(n)
}

// Float64 returns a uniform float in [0, 1).
func (s *Source) Float64() float64 {
	return s.rnd.Float64()
}

// Coin is a Bernoulli trial with success probability p.
func (s *Source) Coin(p float64) bool {
	return s.rnd.Float64() < p
}

// PoissonEvent returns true with probability 1 - exp(-rate*Δs). The scalar
// is cached per rate value since Δs is constant for the simulation's
// lifetime; the cache is invalid if Δ ever changed mid-run, which it does
// not in practice.
func (s *Source) PoissonEvent(rate float64) bool {
	f, ok := s.cachedF[rate]
	if !ok {
		f = 1.0 - math.Exp(-rate*s.deltaSeconds)
		s.cachedF[rate] = f
	}
	return s.rnd.Float64() < f
}

// PoissonDelay returns floor(1000*E) milliseconds where E is an exponential
// variate with the given rate (events per second), matching Python's
// random.expovariate(rate) = -ln(1-U)/rate.
func (s *Source) PoissonDelay(rate float64) int64 {
	return int64(1000 * s.rnd.ExpFloat64() / rate)
}

// Choice returns a uniformly random element of xs.
func Choice[T any](s *Source, xs []T) T {
	return xs[s.rnd.Intn(len(xs))]
}

// ChoiceWithWeights performs a single uniform draw scaled by the sum of
// weights, then a linear scan consuming that draw; ties are broken by the
// first index whose cumulative weight reaches or exceeds the draw.
func ChoiceWithWeights[T any](s *Source, xs []T, weights []float64) T {
	total := 0.0
	for _, w := range weights {
		total += w
	}
	r := s.rnd.Float64() * total
	for idx, w := range weights {
		r -= w
		if r <= 0 {
			return xs[idx]
		}
	}
	return xs[len(xs)-1]
}

// Sample draws k elements of xs without replacement.
func Sample[T any](s *Source, xs []T, k int) []T {
	perm := s.rnd.Perm(len(xs))
	out := make([]T, k)
	for i := 0; i < k; i++ {
		out[i] = xs[perm[i]]
	}
	return out
}

// Shuffle returns a new, independently ordered copy of xs.
func Shuffle[T any](s *Source, xs []T) []T {
	out := make([]T, len(xs))
	copy(out, xs)
	s.rnd.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

// SeededShuffle reorders xs in place using an RNG independent of the
// simulation's own draw sequence, keyed only by seed. It backs multicast
// schedule construction (spec §4.10), which must be reproducible from
// (source, members, k, nonce) alone.
func SeededShuffle[T any](xs []T, seed int64) {
	r := rand.New(rand.NewSource(seed))
	r.Shuffle(len(xs), func(i, j int) { xs[i], xs[j] = xs[j], xs[i] })
}

// Package rng provides the explicit random source threaded through population
// construction and the step kernels.
package rng

import (
	"math/rand/v2"
)

// Source is the uniform draw capability the engine needs. *rand.Rand
// satisfies it.
type Source interface {
	// Float64 returns a uniform value in [0, 1).
	Float64() float64
	// IntN returns a uniform value in [0, n). It panics if n <= 0.
	IntN(n int) int
}

// New returns a PCG-backed source for the given seed and stream. Distinct
// streams under the same seed are independent; the same (seed, stream) pair
// always yields the same sequence.
func New(seed int64, stream uint64) *rand.Rand {
	return rand.New(rand.NewPCG(uint64(seed), mix(stream)))
}

// ForRun returns the substream used by Monte Carlo run index run.
func ForRun(seed int64, run int) *rand.Rand {
	return New(seed, uint64(run))
}

// mix spreads consecutive stream indices across the second PCG word
// (splitmix64 finaliser).
func mix(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}

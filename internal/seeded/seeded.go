// Package seeded turns string seeds into reproducible pseudo-random streams.
// Output is identical across runs and platforms for the same seed, which is
// what the avatar renderer relies on. Not suitable for anything secret.
package seeded

import "unicode/utf16"

// Hash folds a string into a non-negative integer using a 31-multiplier
// rolling hash over UTF-16 code units with 32-bit signed wraparound.
func Hash(seed string) uint32 {
	var h int32
	for _, c := range utf16.Encode([]rune(seed)) {
		h = h*31 + int32(c)
	}
	if h < 0 {
		return uint32(-int64(h))
	}
	return uint32(h)
}

// Rand is a mulberry32 generator. The zero value is a valid stream for seed 0.
type Rand struct {
	state uint32
}

// New returns a generator whose sequence is fully determined by seed.
func New(seed uint32) *Rand {
	return &Rand{state: seed}
}

// Float64 returns the next value in [0, 1).
func (r *Rand) Float64() float64 {
	r.state += 0x6d2b79f5
	s := r.state
	t := (s ^ (s >> 15)) * (1 | s)
	t = (t + (t^(t>>7))*(61|t)) ^ t
	return float64(t^(t>>14)) / 4294967296
}

// Intn returns floor(Float64() * n). n must be positive.
func (r *Rand) Intn(n int) int {
	return int(r.Float64() * float64(n))
}

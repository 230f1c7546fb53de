// Package random provides the seeded random sources used by the generators.
//
// Every engine owns its Source. Two engines built from the same seed produce
// identical sequences, independent of how many other engines run alongside.
package random

import "math/rand/v2"

// Source is the random stream a generator draws from.
type Source interface {
	// Float64 returns a value in [0, 1).
	Float64() float64

	// IntN returns a value in [0, n). It panics if n <= 0.
	IntN(n int) int

	// NormFloat64 returns a standard normally distributed value.
	NormFloat64() float64
}

// Rand is a deterministic PCG-backed Source.
type Rand struct {
	r *rand.Rand
}

var _ Source = (*Rand)(nil)

// New returns a Source seeded with seed.
func New(seed uint64) *Rand {
	return &Rand{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Float64 returns a value in [0, 1).
func (r *Rand) Float64() float64 { return r.r.Float64() }

// IntN returns a value in [0, n).
func (r *Rand) IntN(n int) int { return r.r.IntN(n) }

// NormFloat64 returns a standard normally distributed value.
func (r *Rand) NormFloat64() float64 { return r.r.NormFloat64() }

// Signed returns a uniform value in [-amplitude, amplitude).
func Signed(src Source, amplitude float64) float64 {
	if amplitude == 0 {
		return 0
	}
	return (src.Float64()*2 - 1) * amplitude
}

// Range returns a uniform value in [lo, hi).
func Range(src Source, lo, hi float64) float64 {
	return lo + src.Float64()*(hi-lo)
}

// Fixed is a Source that replays a fixed sequence of Float64 values, cycling
// when exhausted. It is meant for tests that need exact draws.
type Fixed struct {
	Values []float64
	i      int
}

var _ Source = (*Fixed)(nil)

// Float64 returns the next value of the sequence, or 0 if it is empty.
func (f *Fixed) Float64() float64 {
	if len(f.Values) == 0 {
		return 0
	}
	v := f.Values[f.i%len(f.Values)]
	f.i++
	return v
}

// IntN scales the next value to [0, n).
func (f *Fixed) IntN(n int) int {
	v := int(f.Float64() * float64(n))
	return min(max(v, 0), n-1)
}

// NormFloat64 maps the next value from [0,1) to [-1,1).
func (f *Fixed) NormFloat64() float64 { return f.Float64()*2 - 1 }

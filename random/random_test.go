package random

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSameSeedSameSequence(t *testing.T) {
	a, b := New(42), New(42)
	for i := 0; i < 100; i++ {
		assert.Equal(t, a.Float64(), b.Float64())
		assert.Equal(t, a.IntN(17), b.IntN(17))
	}
}

func TestDifferentSeeds(t *testing.T) {
	a, b := New(1), New(2)
	same := 0
	for i := 0; i < 32; i++ {
		if a.Float64() == b.Float64() {
			same++
		}
	}
	assert.Less(t, same, 32)
}

func TestSigned(t *testing.T) {
	src := New(7)
	assert.Equal(t, 0.0, Signed(src, 0))
	for i := 0; i < 1000; i++ {
		v := Signed(src, 3)
		assert.GreaterOrEqual(t, v, -3.0)
		assert.Less(t, v, 3.0)
	}
}

func TestFixed(t *testing.T) {
	f := &Fixed{Values: []float64{0.25, 0.75}}
	assert.Equal(t, 0.25, f.Float64())
	assert.Equal(t, 0.75, f.Float64())
	assert.Equal(t, 0.25, f.Float64())
	assert.Equal(t, 1, f.IntN(2)) // 0.75 * 2
	assert.Equal(t, 0.0, (&Fixed{}).Float64())
}

package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEval(t *testing.T) {
	vars := map[string]float64{"s": 10, "x": 2, "p1": 0.5}
	tests := []struct {
		src  string
		want float64
	}{
		{"1", 1},
		{"s*0.5", 5},
		{"s * 0.5 + x", 7},
		{"(s + x) * 2", 24},
		{"-x", -2},
		{"--x", 2},
		{"s/4", 2.5},
		{"2^3^2", 512},
		{"-2^2", -4},
		{"x^-1", 0.5},
		{"1.5e2", 150},
		{".5 + p1", 1},
		{"s > 5", 1},
		{"s < 5", 0},
		{"s >= 10 && x == 2", 1},
		{"s = 10", 1},
		{"s != 10 || x <= 1", 0},
		{"!(s > 5)", 0},
		{"1 + 2 * 3 - 4 / 2", 5},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			got, err := Eval(tt.src, vars)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}
}

func TestEvalErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"unknown variable", "y + 1"},
		{"divide by zero", "1 / (x - 2)"},
		{"trailing operator", "x +"},
		{"unbalanced", "(x + 1"},
		{"stray paren", "x)"},
		{"empty", ""},
		{"code injection", "x; os.Exit(1)"},
		{"function call", "alert(1)"},
		{"bad rune", "x $ 2"},
		{"overflow", "10^400"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Eval(tt.src, map[string]float64{"x": 2})
			assert.Error(t, err)
		})
	}
}

func TestDivideByZeroSentinel(t *testing.T) {
	_, err := Eval("1/0", nil)
	assert.ErrorIs(t, err, ErrDivideByZero)
}

func TestShortCircuit(t *testing.T) {
	// The right side references an unknown variable but is never evaluated.
	v, err := Eval("0 && missing", nil)
	require.NoError(t, err)
	assert.Equal(t, 0.0, v)

	v, err = Eval("1 || missing", nil)
	require.NoError(t, err)
	assert.Equal(t, 1.0, v)
}

func TestParseReuse(t *testing.T) {
	e := MustParse("s * 2")
	assert.Equal(t, "s * 2", e.String())
	for i := 1; i <= 3; i++ {
		v, err := e.Eval(map[string]float64{"s": float64(i)})
		require.NoError(t, err)
		assert.Equal(t, float64(i*2), v)
	}
	assert.Panics(t, func() { MustParse("(") })
}

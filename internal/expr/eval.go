package expr

import (
	"fmt"
	"math"
)

type node interface {
	eval(vars map[string]float64) (float64, error)
}

type number float64

func (n number) eval(map[string]float64) (float64, error) { return float64(n), nil }

type variable string

func (v variable) eval(vars map[string]float64) (float64, error) {
	x, ok := vars[string(v)]
	if !ok {
		return 0, fmt.Errorf("expr: unknown variable %q", string(v))
	}
	return x, nil
}

type unary struct {
	op string
	x  node
}

func (u unary) eval(vars map[string]float64) (float64, error) {
	x, err := u.x.eval(vars)
	if err != nil {
		return 0, err
	}
	switch u.op {
	case "-":
		return -x, nil
	case "!":
		return boolf(x == 0), nil
	}
	return x, nil
}

type binary struct {
	op   string
	l, r node
}

func (b binary) eval(vars map[string]float64) (float64, error) {
	l, err := b.l.eval(vars)
	if err != nil {
		return 0, err
	}
	// Short-circuit logical operators.
	switch b.op {
	case "&&":
		if l == 0 {
			return 0, nil
		}
	case "||":
		if l != 0 {
			return 1, nil
		}
	}
	r, err := b.r.eval(vars)
	if err != nil {
		return 0, err
	}
	switch b.op {
	case "+":
		return l + r, nil
	case "-":
		return l - r, nil
	case "*":
		return l * r, nil
	case "/":
		if r == 0 {
			return 0, ErrDivideByZero
		}
		return l / r, nil
	case "^":
		return math.Pow(l, r), nil
	case "<":
		return boolf(l < r), nil
	case "<=":
		return boolf(l <= r), nil
	case ">":
		return boolf(l > r), nil
	case ">=":
		return boolf(l >= r), nil
	case "==":
		return boolf(l == r), nil
	case "!=":
		return boolf(l != r), nil
	case "&&", "||":
		return boolf(r != 0), nil
	}
	return 0, fmt.Errorf("expr: unknown operator %q", b.op)
}

func boolf(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

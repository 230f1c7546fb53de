package lsystem

import (
	"math"
	"strconv"
	"strings"
	"unicode"
)

// Symbol is one token of a rewritten string: a single rune, optionally
// followed by a parenthesized parameter list.
type Symbol struct {
	Name rune

	// Params holds the numeric value of each parameter. A parameter whose
	// raw text is not a number reads as 0.
	Params []float64

	// Raw holds each parameter's source text, re-emitted verbatim when the
	// symbol is copied through unchanged.
	Raw []string
}

// HasParams reports whether the symbol carried a parameter list.
func (s Symbol) HasParams() bool { return s.Raw != nil }

// First returns the first parameter, or 0 when there is none.
func (s Symbol) First() float64 {
	if len(s.Params) == 0 {
		return 0
	}
	return s.Params[0]
}

// String formats the symbol as it appears in a rewritten string.
func (s Symbol) String() string {
	var b strings.Builder
	s.writeTo(&b)
	return b.String()
}

func (s Symbol) writeTo(b *strings.Builder) {
	b.WriteRune(s.Name)
	if s.Raw == nil {
		return
	}
	b.WriteByte('(')
	for i, r := range s.Raw {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(r)
	}
	b.WriteByte(')')
}

// NewSymbol builds a symbol from evaluated parameter values.
func NewSymbol(name rune, params ...float64) Symbol {
	s := Symbol{Name: name}
	if len(params) == 0 {
		return s
	}
	s.Params = params
	s.Raw = make([]string, len(params))
	for i, v := range params {
		s.Raw[i] = FormatNumber(v)
	}
	return s
}

// FormatNumber renders v compactly with at most six decimals.
func FormatNumber(v float64) string {
	r := math.Round(v*1e6) / 1e6
	if r == 0 {
		r = 0 // drop negative zero
	}
	return strconv.FormatFloat(r, 'f', -1, 64)
}

// Tokenize splits s into symbols. Whitespace is skipped. A '(' directly
// after a symbol opens its parameter list; nested parentheses inside a
// parameter are kept as part of its text. Parameters are parsed as numeric
// literals only; anything else keeps its raw text and reads as 0.
//
// An unterminated parameter list is treated as plain symbols.
func Tokenize(s string) []Symbol {
	rs := []rune(s)
	out := make([]Symbol, 0, len(rs))
	for i := 0; i < len(rs); i++ {
		r := rs[i]
		if unicode.IsSpace(r) {
			continue
		}
		sym := Symbol{Name: r}
		if i+1 < len(rs) && rs[i+1] == '(' {
			if raw, end, ok := scanParams(rs, i+1); ok {
				sym.Raw = raw
				sym.Params = make([]float64, len(raw))
				for j, p := range raw {
					if v, err := strconv.ParseFloat(p, 64); err == nil {
						sym.Params[j] = v
					}
				}
				i = end
			}
		}
		out = append(out, sym)
	}
	return out
}

// scanParams reads a parenthesized list starting at rs[open] == '('.
// It returns the trimmed, comma-separated parts and the index of the
// closing parenthesis.
func scanParams(rs []rune, open int) ([]string, int, bool) {
	depth := 0
	start := open + 1
	parts := []string{}
	for i := open; i < len(rs); i++ {
		switch rs[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				if last := strings.TrimSpace(string(rs[start:i])); last != "" || len(parts) > 0 {
					parts = append(parts, last)
				}
				return parts, i, true
			}
		case ',':
			if depth == 1 {
				parts = append(parts, strings.TrimSpace(string(rs[start:i])))
				start = i + 1
			}
		}
	}
	return nil, 0, false
}

// Format joins symbols back into a string.
func Format(syms []Symbol) string {
	var b strings.Builder
	b.Grow(len(syms))
	for _, s := range syms {
		s.writeTo(&b)
	}
	return b.String()
}

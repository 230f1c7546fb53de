package expr

import (
	"fmt"
	"strconv"
	"unicode"
)

type tokenKind uint8

const (
	tokEOF tokenKind = iota
	tokNumber
	tokIdent
	tokOp
	tokLParen
	tokRParen
)

type token struct {
	kind tokenKind
	text string
	num  float64
	pos  int
}

// lex splits src into tokens.
func lex(src string) ([]token, error) {
	var toks []token
	rs := []rune(src)
	for i := 0; i < len(rs); {
		r := rs[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case unicode.IsDigit(r) || (r == '.' && i+1 < len(rs) && unicode.IsDigit(rs[i+1])):
			start := i
			for i < len(rs) && (unicode.IsDigit(rs[i]) || rs[i] == '.') {
				i++
			}
			if i < len(rs) && (rs[i] == 'e' || rs[i] == 'E') {
				j := i + 1
				if j < len(rs) && (rs[j] == '+' || rs[j] == '-') {
					j++
				}
				if j < len(rs) && unicode.IsDigit(rs[j]) {
					i = j
					for i < len(rs) && unicode.IsDigit(rs[i]) {
						i++
					}
				}
			}
			text := string(rs[start:i])
			v, err := strconv.ParseFloat(text, 64)
			if err != nil {
				return nil, fmt.Errorf("expr: bad number %q at %d", text, start)
			}
			toks = append(toks, token{kind: tokNumber, text: text, num: v, pos: start})
		case unicode.IsLetter(r) || r == '_':
			start := i
			for i < len(rs) && (unicode.IsLetter(rs[i]) || unicode.IsDigit(rs[i]) || rs[i] == '_') {
				i++
			}
			toks = append(toks, token{kind: tokIdent, text: string(rs[start:i]), pos: start})
		case r == '(':
			toks = append(toks, token{kind: tokLParen, text: "(", pos: i})
			i++
		case r == ')':
			toks = append(toks, token{kind: tokRParen, text: ")", pos: i})
			i++
		default:
			op, n := matchOp(rs[i:])
			if n == 0 {
				return nil, fmt.Errorf("expr: unexpected %q at %d", r, i)
			}
			toks = append(toks, token{kind: tokOp, text: op, pos: i})
			i += n
		}
	}
	return append(toks, token{kind: tokEOF, pos: len(rs)}), nil
}

var twoCharOps = []string{"<=", ">=", "==", "!=", "&&", "||"}

func matchOp(rs []rune) (string, int) {
	if len(rs) >= 2 {
		pair := string(rs[:2])
		for _, op := range twoCharOps {
			if pair == op {
				return op, 2
			}
		}
	}
	switch rs[0] {
	case '+', '-', '*', '/', '^', '<', '>', '!':
		return string(rs[0]), 1
	case '=':
		return "==", 1
	}
	return "", 0
}

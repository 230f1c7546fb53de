package lsystem

import (
	"fmt"
	"strconv"
	"strings"
)

// Rule is a production: Predecessor is replaced by Successor when the
// optional contexts and guard match.
type Rule struct {
	Predecessor rune

	// Formals names the predecessor's parameters, as in A(x,y). The first
	// parameter is always also bound to s, and parameter i to p<i>.
	Formals []string

	Successor string

	// Probability is a sampling weight. Zero means unweighted.
	Probability float64

	// Left and Right are the required neighbour symbols. Zero means any.
	Left, Right rune

	// Condition is a guard expression over the bound parameters.
	Condition string
}

// String formats the rule in the syntax accepted by ParseRule.
func (r Rule) String() string {
	var b strings.Builder
	if r.Left != 0 {
		b.WriteRune(r.Left)
		b.WriteString(" < ")
	}
	b.WriteRune(r.Predecessor)
	if len(r.Formals) > 0 {
		b.WriteString("(" + strings.Join(r.Formals, ",") + ")")
	}
	if r.Right != 0 {
		b.WriteString(" > ")
		b.WriteRune(r.Right)
	}
	if r.Condition != "" {
		b.WriteString(" : " + r.Condition)
	}
	b.WriteString(" -> " + r.Successor)
	if r.Probability > 0 {
		b.WriteString(" ; " + strconv.FormatFloat(r.Probability, 'g', -1, 64))
	}
	return b.String()
}

// ParseRule parses the textual rule syntax
//
//	[L <] P[(a,b)] [> R] [: guard] -> successor [; probability]
//
// "→" is accepted for "->". Whitespace around parts is ignored.
func ParseRule(src string) (Rule, error) {
	text := strings.ReplaceAll(src, "→", "->")
	lhs, rhs, ok := strings.Cut(text, "->")
	if !ok {
		return Rule{}, fmt.Errorf("lsystem: rule %q has no ->", src)
	}

	var r Rule
	succ, prob, hasProb := strings.Cut(rhs, ";")
	r.Successor = strings.TrimSpace(succ)
	if hasProb {
		p, err := strconv.ParseFloat(strings.TrimSpace(prob), 64)
		if err != nil || p < 0 {
			return Rule{}, fmt.Errorf("lsystem: rule %q has bad probability %q", src, strings.TrimSpace(prob))
		}
		r.Probability = p
	}

	head, cond, hasCond := strings.Cut(lhs, ":")
	if hasCond {
		r.Condition = strings.TrimSpace(cond)
	}
	if l, rest, found := strings.Cut(head, "<"); found {
		left := []rune(strings.TrimSpace(l))
		if len(left) != 1 {
			return Rule{}, fmt.Errorf("lsystem: rule %q: left context must be one symbol", src)
		}
		r.Left = left[0]
		head = rest
	}
	if p, rc, found := strings.Cut(head, ">"); found {
		right := []rune(strings.TrimSpace(rc))
		if len(right) != 1 {
			return Rule{}, fmt.Errorf("lsystem: rule %q: right context must be one symbol", src)
		}
		r.Right = right[0]
		head = p
	}

	pred := Tokenize(strings.TrimSpace(head))
	if len(pred) != 1 {
		return Rule{}, fmt.Errorf("lsystem: rule %q: predecessor must be one symbol", src)
	}
	r.Predecessor = pred[0].Name
	for _, f := range pred[0].Raw {
		if f != "" {
			r.Formals = append(r.Formals, f)
		}
	}
	return r, nil
}

// ParseRules parses one rule per non-empty line. Lines starting with # are
// comments.
func ParseRules(src string) ([]Rule, error) {
	var rules []Rule
	for i, line := range strings.Split(src, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		r, err := ParseRule(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		rules = append(rules, r)
	}
	return rules, nil
}

// MustParseRules is like ParseRules but panics on error. It is meant for
// package-level presets.
func MustParseRules(lines ...string) []Rule {
	rules, err := ParseRules(strings.Join(lines, "\n"))
	if err != nil {
		panic(err)
	}
	return rules
}

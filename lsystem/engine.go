package lsystem

import (
	"errors"
	"strconv"

	"github.com/gogpu/arbor"
	"github.com/gogpu/arbor/internal/expr"
	"github.com/gogpu/arbor/internal/metrics"
	"github.com/gogpu/arbor/random"
)

// DefaultMaxLength bounds the symbol count of a generation.
const DefaultMaxLength = 2_000_000

var errBrokenParam = errors.New("lsystem: parameter expression does not parse")

// Engine rewrites symbol strings. It owns its random source, so two engines
// with equally seeded sources produce the same output.
//
// An Engine is not safe for concurrent use.
type Engine struct {
	src       random.Source
	maxLength int
	ignore    map[rune]bool

	guards map[string]*expr.Expr
	// degraded counts expressions that fell back to a default during the
	// last Rewrite.
	degraded int
}

// Option configures an Engine.
type Option func(*Engine)

// WithMaxLength stops rewriting before a generation would exceed n symbols.
func WithMaxLength(n int) Option {
	return func(e *Engine) { e.maxLength = n }
}

// WithIgnore makes context matching skip the given symbols when looking for
// a neighbour, e.g. "+-[]" to match across turns and branch markers.
func WithIgnore(symbols string) Option {
	return func(e *Engine) {
		for _, r := range symbols {
			e.ignore[r] = true
		}
	}
}

// NewEngine returns an engine drawing from src. A nil src uses seed 0.
func NewEngine(src random.Source, opts ...Option) *Engine {
	if src == nil {
		src = random.New(0)
	}
	e := &Engine{
		src:       src,
		maxLength: DefaultMaxLength,
		ignore:    map[rune]bool{},
		guards:    map[string]*expr.Expr{},
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Degraded returns how many parameter or guard expressions failed during
// the last Rewrite and fell back to a default.
func (e *Engine) Degraded() int { return e.degraded }

// Rewrite applies rules to axiom for the given number of generations and
// returns the final string. Every generation is derived only from the
// previous one: all symbols are replaced simultaneously.
func (e *Engine) Rewrite(axiom string, rules []Rule, iterations int) string {
	return Format(e.RewriteSymbols(Tokenize(axiom), rules, iterations))
}

// RewriteSymbols is Rewrite on tokenized input.
func (e *Engine) RewriteSymbols(axiom []Symbol, rules []Rule, iterations int) []Symbol {
	e.degraded = 0
	byPred := make(map[rune][]int, len(rules))
	for i, r := range rules {
		byPred[r.Predecessor] = append(byPred[r.Predecessor], i)
	}

	cur := axiom
	for gen := 0; gen < iterations; gen++ {
		next := make([]Symbol, 0, len(cur)*2)
		for i, sym := range cur {
			cands := byPred[sym.Name]
			if len(cands) == 0 {
				next = append(next, sym)
				continue
			}
			rule, vars, ok := e.selectRule(cur, i, rules, cands)
			if !ok {
				next = append(next, sym)
				continue
			}
			next = compileTemplate(rule.Successor).expand(next, vars, sym.First(), e.noteDegraded)
		}
		if e.maxLength > 0 && len(next) > e.maxLength {
			arbor.Logger().Warn("lsystem: generation exceeds max length, stopping early",
				"generation", gen+1, "length", len(next), "max", e.maxLength)
			break
		}
		cur = next
		metrics.Generations.Inc()
		arbor.Logger().Debug("lsystem: generation", "n", gen+1, "symbols", len(cur))
	}
	metrics.Symbols.Add(float64(len(cur)))
	if e.degraded > 0 {
		arbor.Logger().Debug("lsystem: expressions fell back to defaults", "count", e.degraded)
	}
	return cur
}

// selectRule filters the candidate rules for cur[i] by context and guard
// and picks one. It returns the bound variables for successor expansion.
func (e *Engine) selectRule(cur []Symbol, i int, rules []Rule, cands []int) (Rule, map[string]float64, bool) {
	sym := cur[i]
	var matched []int
	for _, ci := range cands {
		r := &rules[ci]
		if r.Left != 0 && e.neighbour(cur, i, -1) != r.Left {
			continue
		}
		if r.Right != 0 && e.neighbour(cur, i, +1) != r.Right {
			continue
		}
		if r.Condition != "" && !e.guard(r.Condition, bindVars(sym, r.Formals)) {
			continue
		}
		matched = append(matched, ci)
	}
	if len(matched) == 0 {
		return Rule{}, nil, false
	}

	pick := matched[0]
	var weighted []int
	total := 0.0
	for _, ci := range matched {
		if p := rules[ci].Probability; p > 0 {
			weighted = append(weighted, ci)
			total += p
		}
	}
	if len(weighted) == 1 {
		pick = weighted[0]
	} else if len(weighted) > 1 {
		x := e.src.Float64() * total
		pick = weighted[len(weighted)-1]
		for _, ci := range weighted {
			x -= rules[ci].Probability
			if x < 0 {
				pick = ci
				break
			}
		}
	}
	r := rules[pick]
	return r, bindVars(sym, r.Formals), true
}

// neighbour returns the symbol dir steps away from i, skipping ignored
// symbols, or 0 at the string edge.
func (e *Engine) neighbour(cur []Symbol, i, dir int) rune {
	for j := i + dir; j >= 0 && j < len(cur); j += dir {
		if !e.ignore[cur[j].Name] {
			return cur[j].Name
		}
	}
	return 0
}

// guard evaluates a condition. A guard that fails to parse or evaluate
// counts as satisfied.
func (e *Engine) guard(cond string, vars map[string]float64) bool {
	g, ok := e.guards[cond]
	if !ok {
		g, _ = expr.Parse(cond)
		e.guards[cond] = g
	}
	if g == nil {
		e.noteDegraded(errBrokenParam)
		return true
	}
	v, err := g.Eval(vars)
	if err != nil {
		e.noteDegraded(err)
		return true
	}
	return v != 0
}

func (e *Engine) noteDegraded(error) { e.degraded++ }

// bindVars exposes a symbol's parameters as s (first), p0..pN, a0..aN and
// the rule's formal names.
func bindVars(sym Symbol, formals []string) map[string]float64 {
	vars := make(map[string]float64, 3*len(sym.Params)+1)
	if len(sym.Params) > 0 {
		vars["s"] = sym.Params[0]
	}
	for i, v := range sym.Params {
		vars["p"+strconv.Itoa(i)] = v
		vars["a"+strconv.Itoa(i)] = v
		if i < len(formals) {
			vars[formals[i]] = v
		}
	}
	return vars
}

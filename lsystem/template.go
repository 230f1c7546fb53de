package lsystem

import (
	"strconv"

	"github.com/gogpu/arbor/internal/cache"
	"github.com/gogpu/arbor/internal/expr"
)

// template is a pre-parsed successor. Each parameter is either a constant
// or an expression evaluated per match.
type template struct {
	syms []templateSym
}

type templateSym struct {
	name   rune
	params []templateParam // nil for a bare symbol
}

type templateParam struct {
	constant float64
	e        *expr.Expr // nil for constants
	broken   bool       // failed to parse; evaluates to the fallback
}

// templates memoizes parsed successors across engines. Parsing only depends
// on the successor text.
var templates = cache.New[string, *template](512)

func compileTemplate(successor string) *template {
	return templates.GetOrCreate(successor, func() *template {
		syms := Tokenize(successor)
		t := &template{syms: make([]templateSym, len(syms))}
		for i, s := range syms {
			ts := templateSym{name: s.Name}
			if s.Raw != nil {
				ts.params = make([]templateParam, len(s.Raw))
				for j, raw := range s.Raw {
					ts.params[j] = compileParam(raw)
				}
			}
			t.syms[i] = ts
		}
		return t
	})
}

func compileParam(raw string) templateParam {
	if v, err := strconv.ParseFloat(raw, 64); err == nil {
		return templateParam{constant: v}
	}
	e, err := expr.Parse(raw)
	if err != nil {
		return templateParam{broken: true}
	}
	return templateParam{e: e}
}

// expand appends the successor's symbols to dst, evaluating parameters
// against vars. A parameter that fails to evaluate takes fallback.
func (t *template) expand(dst []Symbol, vars map[string]float64, fallback float64, onErr func(error)) []Symbol {
	for _, ts := range t.syms {
		if ts.params == nil {
			dst = append(dst, Symbol{Name: ts.name})
			continue
		}
		vals := make([]float64, len(ts.params))
		for i, p := range ts.params {
			switch {
			case p.broken:
				vals[i] = fallback
				onErr(errBrokenParam)
			case p.e == nil:
				vals[i] = p.constant
			default:
				v, err := p.e.Eval(vars)
				if err != nil {
					v = fallback
					onErr(err)
				}
				vals[i] = v
			}
		}
		dst = append(dst, NewSymbol(ts.name, vals...))
	}
	return dst
}

package lsystem

func init() {
	with := func(mod func(*Params)) Params {
		p := DefaultParams()
		mod(&p)
		return p
	}

	register(Grammar{
		Name:   "koch",
		Axiom:  "F",
		Rules:  MustParseRules("F -> F+F-F-F+F"),
		Params: with(func(p *Params) { p.Angle = 90; p.Iterations = 3; p.Step = 5; p.WidthDecay = 1 }),
	})
	register(Grammar{
		Name:  "plant",
		Axiom: "X",
		Rules: MustParseRules(
			"X -> F+[[X]-X]-F[-FX]+X",
			"F -> FF",
		),
		Params: with(func(p *Params) { p.Angle = 25; p.Iterations = 5; p.Step = 4; p.AngleVariance = 4 }),
	})
	register(Grammar{
		Name:   "bush",
		Axiom:  "F",
		Rules:  MustParseRules("F -> FF+[+F-F-F]-[-F+F+F]"),
		Params: with(func(p *Params) { p.Angle = 22.5; p.Iterations = 4; p.Step = 6 }),
	})
	register(Grammar{
		Name:  "sierpinski",
		Axiom: "F-G-G",
		Rules: MustParseRules(
			"F -> F-G+F+G-F",
			"G -> GG",
		),
		Params: with(func(p *Params) { p.Angle = 120; p.Iterations = 5; p.Step = 4; p.WidthDecay = 1 }),
	})
	register(Grammar{
		Name:  "dragon",
		Axiom: "FX",
		Rules: MustParseRules(
			"X -> X+YF+",
			"Y -> -FX-Y",
		),
		Params: with(func(p *Params) { p.Angle = 90; p.Iterations = 10; p.Step = 4; p.WidthDecay = 1 }),
	})
	register(Grammar{
		Name:  "fern",
		Axiom: "X",
		Rules: MustParseRules(
			"X -> F[+X]F[-X]+X",
			"F -> FF",
		),
		Params: with(func(p *Params) { p.Angle = 20; p.Iterations = 6; p.Step = 2 }),
	})
	register(Grammar{
		Name:  "stochastic",
		Axiom: "F",
		Rules: MustParseRules(
			"F -> F[+F]F[-F]F ; 0.33",
			"F -> F[+F]F ; 0.33",
			"F -> F[-F]F ; 0.34",
		),
		Params: with(func(p *Params) { p.Angle = 25.7; p.Iterations = 5; p.Step = 3; p.AngleVariance = 6 }),
	})
	register(Grammar{
		Name:  "parametric",
		Axiom: "A(60)",
		Rules: MustParseRules(
			"A(s) : s > 2 -> F(s)[+A(s*0.62)][-A(s*0.62)]",
			"A(s) : s <= 2 -> F(s)",
		),
		Params: with(func(p *Params) { p.Angle = 35; p.Iterations = 9; p.AngleVariance = 5 }),
	})
	register(Grammar{
		Name:  "venation",
		Axiom: "A(40,0)",
		Rules: MustParseRules(
			"A(l,d) : d < 6 -> F(l)[+A(l*0.55,d+1)][-A(l*0.55,d+1)]@A(l*0.8,d+1)",
			"A(l,d) : d >= 6 -> F(l*0.5)",
		),
		Params: with(func(p *Params) { p.Angle = 48; p.Iterations = 7; p.WidthDecay = 0.6; p.Width = 3 }),
	})
	register(Grammar{
		Name:  "roots",
		Axiom: "|R",
		Rules: MustParseRules(
			"R -> F[-R][+R]FR ; 0.5",
			"R -> FF[-R]R ; 0.25",
			"R -> FF[+R]R ; 0.25",
		),
		Params: with(func(p *Params) { p.Angle = 18; p.Iterations = 5; p.Step = 3; p.AngleVariance = 12 }),
	})
}

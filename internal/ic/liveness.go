package ic

// UnneededVars returns the vars declared in b or its descendants that
// nothing needs. roots are needed unconditionally; callers pass the
// function's inputs and outputs.
//
// Keeping a var keeps what it depends on: the inputs of a side-effect-free
// instruction defining it, the other outputs of that instruction, its
// mapping source, and, for an aggregate, components written through it.
func (b *Block) UnneededVars(roots ...*Var) VarSet {
	g := newDepGraph()
	g.needed.AddAll(roots)

	declared := make(VarSet)
	Walk(b, Visitor{
		Block: func(b *Block) {
			for _, v := range b.Vars {
				declared.Add(v)
				if v.IsMapped() {
					g.edge(v, v.Mapping)
				}
			}
		},
		Instruction: g.instruction,
		Continuation: func(c Continuation) {
			g.needed.AddAll(c.RequiredVars(true))
			g.needed.AddAll(c.ConstructDefinedVars())
		},
	})
	for name, whole := range g.componentOf {
		if part, ok := g.written[name]; ok {
			g.edge(whole, part)
		}
	}

	work := g.needed.Sorted()
	for len(work) > 0 {
		v := work[len(work)-1]
		work = work[:len(work)-1]
		for _, dep := range g.edges[v.Name] {
			if !g.needed.Has(dep) {
				g.needed.Add(dep)
				work = append(work, dep)
			}
		}
	}

	unneeded := make(VarSet)
	for _, v := range declared {
		if !g.needed.Has(v) {
			unneeded.Add(v)
		}
	}
	return unneeded
}

// depGraph records that keeping a var keeps its dependencies.
type depGraph struct {
	needed VarSet
	edges  map[string][]*Var
	// componentOf maps an alias to the aggregate it is part of.
	componentOf map[string]*Var
	written     VarSet
}

func newDepGraph() *depGraph {
	return &depGraph{
		needed:      make(VarSet),
		edges:       make(map[string][]*Var),
		componentOf: make(map[string]*Var),
		written:     make(VarSet),
	}
}

func (g *depGraph) edge(from *Var, to ...*Var) {
	g.edges[from.Name] = append(g.edges[from.Name], to...)
}

func (g *depGraph) instruction(in *Instruction) {
	if in.Op.IsRefcount() {
		// Refcounts of removed vars go with them.
		v, amount := in.RefcountTarget()
		if amount.IsVar() {
			g.edge(v, amount.Var)
		}
		return
	}
	if comp, whole, ok := in.ComponentOf(); ok {
		g.componentOf[comp.Name] = whole
	}
	aliases := NewVarSet(in.InitializedAliases()...)
	for _, out := range in.Outputs {
		if !aliases.Has(out) {
			g.written.Add(out)
		}
	}

	if in.HasSideEffects() {
		g.needed.AddAll(in.InputVars())
		g.needed.AddAll(in.Outputs)
		return
	}
	inputs := in.InputVars()
	for _, out := range in.Outputs {
		g.edge(out, inputs...)
	}
	// Outputs of one instruction live or die together.
	if n := len(in.Outputs); n > 1 {
		for i, out := range in.Outputs {
			g.edge(out, in.Outputs[(i+1)%n])
		}
	}
}

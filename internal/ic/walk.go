package ic

// Visitor holds optional callbacks for a tree walk.
type Visitor struct {
	Block        func(b *Block)
	Instruction  func(in *Instruction)
	Continuation func(c Continuation)
}

// Walk visits b, its instructions and continuations, and all descendant
// blocks, in statement order.
func Walk(b *Block, v Visitor) {
	walk(b, v, false)
}

// WalkSyncChildren is Walk that does not descend into asynchronous
// continuations.
func WalkSyncChildren(b *Block, v Visitor) {
	walk(b, v, true)
}

func walk(b *Block, v Visitor, syncOnly bool) {
	if v.Block != nil {
		v.Block(b)
	}
	for _, s := range b.Statements {
		switch s := s.(type) {
		case *Instruction:
			if v.Instruction != nil {
				v.Instruction(s)
			}
		case Continuation:
			walkContinuation(s, v, syncOnly)
		}
	}
	for _, c := range b.Continuations {
		walkContinuation(c, v, syncOnly)
	}
	for _, cu := range b.Cleanups {
		if v.Instruction != nil {
			v.Instruction(cu.Action)
		}
	}
}

func walkContinuation(c Continuation, v Visitor, syncOnly bool) {
	if v.Continuation != nil {
		v.Continuation(c)
	}
	if syncOnly && c.IsAsync() {
		return
	}
	for _, child := range c.Blocks() {
		walk(child, v, syncOnly)
	}
}

// WalkProgram walks every function's main block.
func WalkProgram(p *Program, v Visitor) {
	for _, f := range p.Functions {
		Walk(f.MainBlock, v)
	}
}

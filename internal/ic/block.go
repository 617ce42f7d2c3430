package ic

import (
	"fmt"
	"log/slog"
)

// BlockKind records which construct owns a block.
type BlockKind int

const (
	BlockMain BlockKind = iota
	BlockNested
	BlockCase
	BlockElse
	BlockThen
	BlockForeachBody
	BlockWait
	BlockLoopBody
	BlockRangeBody
)

var blockKindNames = [...]string{"main", "nested", "case", "else", "then", "foreach_body", "wait", "loop_body", "range_body"}

func (k BlockKind) String() string {
	if int(k) < 0 || int(k) >= len(blockKindNames) {
		return fmt.Sprintf("block(%d)", int(k))
	}
	return blockKindNames[k]
}

// Statement is an entry in a block's ordered statement list: an
// *Instruction or a conditional continuation (*If, *Switch).
type Statement interface {
	statement()
}

// CleanupAction runs when the block finishes, on behalf of Var.
type CleanupAction struct {
	Var    *Var
	Action *Instruction
}

// Block is a sequence of statements in a single scope.
type Block struct {
	Kind          BlockKind
	Vars          []*Var
	Statements    []Statement
	Continuations []Continuation
	Cleanups      []CleanupAction
}

// NewBlock creates an empty block.
func NewBlock(kind BlockKind) *Block {
	return &Block{Kind: kind}
}

// Declare adds v to the block's variables. Declaring a name twice panics.
func (b *Block) Declare(v *Var) *Var {
	if b.IsDeclared(v) {
		panic(fmt.Sprintf("Declare: %s already declared in %s block", v.Name, b.Kind))
	}
	b.Vars = append(b.Vars, v)
	return v
}

// IsDeclared reports whether a var of the same name is declared here.
func (b *Block) IsDeclared(v *Var) bool {
	return containsVar(b.Vars, v)
}

// Add appends statements.
func (b *Block) Add(stmts ...Statement) {
	for _, s := range stmts {
		b.checkStatement(s)
	}
	b.Statements = append(b.Statements, stmts...)
}

// InsertStatement inserts s before position i.
func (b *Block) InsertStatement(i int, s Statement) {
	b.checkStatement(s)
	b.Statements = append(b.Statements, nil)
	copy(b.Statements[i+1:], b.Statements[i:])
	b.Statements[i] = s
}

// ReplaceStatement replaces the statement at i with stmts.
func (b *Block) ReplaceStatement(i int, stmts ...Statement) {
	rest := append([]Statement(nil), b.Statements[i+1:]...)
	b.Statements = append(append(b.Statements[:i], stmts...), rest...)
}

// RemoveStatement removes the statement at i.
func (b *Block) RemoveStatement(i int) {
	b.Statements = append(b.Statements[:i], b.Statements[i+1:]...)
}

func (b *Block) checkStatement(s Statement) {
	switch s.(type) {
	case *Instruction, *If, *Switch:
	default:
		panic(fmt.Sprintf("statement of type %T cannot appear in a statement list", s))
	}
}

// AddContinuation appends a non-conditional continuation. Conditionals
// belong in the statement list.
func (b *Block) AddContinuation(c Continuation) {
	if c.IsConditional() {
		panic(fmt.Sprintf("AddContinuation: %s is conditional; add it as a statement", c.Kind()))
	}
	b.Continuations = append(b.Continuations, c)
}

// RemoveContinuation removes c by identity.
func (b *Block) RemoveContinuation(c Continuation) bool {
	for i, x := range b.Continuations {
		if x == c {
			b.Continuations = append(b.Continuations[:i], b.Continuations[i+1:]...)
			return true
		}
	}
	return false
}

// AddCleanup registers an action to run at block end.
func (b *Block) AddCleanup(v *Var, action *Instruction) {
	b.Cleanups = append(b.Cleanups, CleanupAction{Var: v, Action: action})
}

// IsEmpty reports a block with nothing to execute. Declarations alone do
// not count.
func (b *Block) IsEmpty() bool {
	return len(b.Statements) == 0 && len(b.Continuations) == 0 && len(b.Cleanups) == 0
}

// Instructions returns the block's top-level instructions.
func (b *Block) Instructions() []*Instruction {
	var out []*Instruction
	for _, s := range b.Statements {
		if in, ok := s.(*Instruction); ok {
			out = append(out, in)
		}
	}
	return out
}

// AllContinuations returns conditional statements followed by the
// block's other continuations.
func (b *Block) AllContinuations() []Continuation {
	var out []Continuation
	for _, s := range b.Statements {
		if c, ok := s.(Continuation); ok {
			out = append(out, c)
		}
	}
	return append(out, b.Continuations...)
}

// InsertInline moves the contents of child into b. Statements go before
// position pos (appended when pos < 0); declarations already present by
// name are skipped.
func (b *Block) InsertInline(child *Block, pos int) {
	for _, v := range child.Vars {
		if !b.IsDeclared(v) {
			b.Vars = append(b.Vars, v)
		}
	}
	if pos < 0 || pos > len(b.Statements) {
		pos = len(b.Statements)
	}
	rest := append([]Statement(nil), b.Statements[pos:]...)
	b.Statements = append(append(b.Statements[:pos], child.Statements...), rest...)
	b.Continuations = append(b.Continuations, child.Continuations...)
	b.Cleanups = append(b.Cleanups, child.Cleanups...)
}

// Clone deep-copies the block.
func (b *Block) Clone() *Block {
	c := &Block{Kind: b.Kind, Vars: append([]*Var(nil), b.Vars...)}
	c.Statements = make([]Statement, len(b.Statements))
	for i, s := range b.Statements {
		switch s := s.(type) {
		case *Instruction:
			c.Statements[i] = s.Clone()
		case Continuation:
			c.Statements[i] = s.Clone().(Statement)
		}
	}
	c.Continuations = make([]Continuation, len(b.Continuations))
	for i, cont := range b.Continuations {
		c.Continuations[i] = cont.Clone()
	}
	c.Cleanups = make([]CleanupAction, len(b.Cleanups))
	for i, cu := range b.Cleanups {
		c.Cleanups[i] = CleanupAction{Var: cu.Var, Action: cu.Action.Clone()}
	}
	return c
}

// RenameVars rewrites vars throughout the block and its descendants.
//
// In RenameReplace mode declarations follow their replacement: a var
// replaced by a literal is no longer declared, and a mapped var whose
// mapping was replaced is re-declared with the new mapping after all
// other declarations. Replacing a mapped var itself panics.
func (b *Block) RenameVars(renames Renames, mode RenameMode) {
	if len(renames) == 0 {
		return
	}
	if mode == RenameReplace {
		renames = b.renameDeclarations(renames)
	}
	for _, s := range b.Statements {
		switch s := s.(type) {
		case *Instruction:
			s.RenameVars(renames, mode)
		case Continuation:
			s.RenameVars(renames, mode)
		}
	}
	for _, c := range b.Continuations {
		c.RenameVars(renames, mode)
	}
	for i := range b.Cleanups {
		if mode == RenameReplace {
			b.Cleanups[i].Var = renames.Var(b.Cleanups[i].Var)
		}
		b.Cleanups[i].Action.RenameVars(renames, mode)
	}
}

func (b *Block) renameDeclarations(renames Renames) Renames {
	var kept, remapped []*Var
	extended := renames
	copied := false
	for _, v := range b.Vars {
		rep, renamed := renames[v.Name]
		if renamed && v.IsMapped() {
			panic(fmt.Sprintf("RenameVars: cannot replace mapped var %s", v.Name))
		}
		switch {
		case renamed && rep.IsVar():
			kept = append(kept, rep.Var)
		case renamed:
			// Replaced by a literal: no storage left to declare.
		case v.IsMapped():
			mrep, ok := renames[v.Mapping.Name]
			if !ok {
				kept = append(kept, v)
				break
			}
			if !mrep.IsVar() {
				panic(fmt.Sprintf("RenameVars: mapping of %s replaced by literal %s", v.Name, mrep))
			}
			nv := v.WithMapping(mrep.Var)
			remapped = append(remapped, nv)
			if !copied {
				extended = make(Renames, len(renames)+1)
				for k, a := range renames {
					extended[k] = a
				}
				copied = true
			}
			extended[v.Name] = VarArg(nv)
		default:
			kept = append(kept, v)
		}
	}
	b.Vars = append(kept, remapped...)
	return extended
}

// RemoveVars drops declarations and cleanups of removed vars, and any
// side-effect-free instruction whose outputs are all removed.
func (b *Block) RemoveVars(removed VarSet) {
	if len(removed) == 0 {
		return
	}
	vars := b.Vars[:0]
	for _, v := range b.Vars {
		if !removed.Has(v) {
			vars = append(vars, v)
		}
	}
	b.Vars = vars

	stmts := b.Statements[:0]
	for _, s := range b.Statements {
		switch s := s.(type) {
		case *Instruction:
			if removable(s, removed) {
				continue
			}
		case Continuation:
			s.RemoveVars(removed)
		}
		stmts = append(stmts, s)
	}
	b.Statements = stmts

	for _, c := range b.Continuations {
		c.RemoveVars(removed)
	}

	cleanups := b.Cleanups[:0]
	for _, cu := range b.Cleanups {
		if removed.Has(cu.Var) {
			continue
		}
		cleanups = append(cleanups, cu)
	}
	b.Cleanups = cleanups
}

func removable(in *Instruction, removed VarSet) bool {
	if in.HasSideEffects() || len(in.Outputs) == 0 {
		return false
	}
	for _, out := range in.Outputs {
		if !removed.Has(out) {
			return false
		}
	}
	return true
}

// Generate emits the block: declarations, statements in order, the
// continuations (run-last ones after the others), then cleanups.
func (b *Block) Generate(logger *slog.Logger, be Backend, info *GenInfo) {
	for _, v := range b.Vars {
		be.Declare(v)
	}
	for _, s := range b.Statements {
		switch s := s.(type) {
		case *Instruction:
			s.Generate(be, info)
		case Continuation:
			s.Generate(logger, be, info)
		}
	}
	for _, c := range b.Continuations {
		if !c.RunLast() {
			c.Generate(logger, be, info)
		}
	}
	for _, c := range b.Continuations {
		if c.RunLast() {
			c.Generate(logger, be, info)
		}
	}
	for _, cu := range b.Cleanups {
		cu.Action.Generate(be, info)
	}
}

package ic

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
)

// If is a two-way synchronous conditional. The else block always exists
// and may be empty.
type If struct {
	contBase
	Cond Arg
	Then *Block
	Else *Block
}

// NewIf creates an if with empty branches.
func NewIf(cond Arg) *If {
	return &If{Cond: cond, Then: NewBlock(BlockThen), Else: NewBlock(BlockElse)}
}

func (*If) statement() {}

func (c *If) Kind() ContinuationKind            { return KindIf }
func (c *If) Blocks() []*Block                  { return []*Block{c.Then, c.Else} }
func (c *If) IsAsync() bool                     { return false }
func (c *If) IsLoop() bool                      { return false }
func (c *If) IsConditional() bool               { return true }
func (c *If) IsExhaustiveSyncConditional() bool { return true }
func (c *If) BlockingVars() []*Var              { return nil }
func (c *If) ConstructDefinedVars() []*Var      { return nil }
func (c *If) IsNoop() bool                      { return allBlocksEmpty(c) }

func (c *If) RequiredVars(bool) []*Var {
	if c.Cond.IsVar() {
		return []*Var{c.Cond.Var}
	}
	return nil
}

func (c *If) ChildContext(outer ExecContext) ExecContext {
	return syncChildContext(c, outer)
}

func (c *If) RenameVars(renames Renames, mode RenameMode) {
	c.renameBase(renames)
	c.Cond = renames.Arg(c.Cond)
	c.Then.RenameVars(renames, mode)
	c.Else.RenameVars(renames, mode)
}

func (c *If) RemoveVars(removed VarSet) {
	c.removeBase(removed)
	c.Then.RemoveVars(removed)
	c.Else.RemoveVars(removed)
}

// BranchPredict returns the branch taken for a literal condition.
func (c *If) BranchPredict() *Block {
	taken, ok := c.Cond.Truth()
	if !ok {
		return nil
	}
	if taken {
		return c.Then
	}
	return c.Else
}

func (c *If) TryInline(VarSet, VarSet, bool) *Block {
	return c.BranchPredict()
}

// Fuseable reports whether other tests the same condition.
func (c *If) Fuseable(other *If) bool {
	return c != other && c.Cond.Equal(other.Cond)
}

// Fuse appends other's branches to this one's.
func (c *If) Fuse(other *If) {
	if !c.Fuseable(other) {
		panic(fmt.Sprintf("Fuse: conditions %s and %s differ", c.Cond, other.Cond))
	}
	c.Then.InsertInline(other.Then, -1)
	c.Else.InsertInline(other.Else, -1)
}

func (c *If) Clone() Continuation {
	return &If{contBase: c.clone(), Cond: c.Cond, Then: c.Then.Clone(), Else: c.Else.Clone()}
}

func (c *If) Generate(logger *slog.Logger, b Backend, info *GenInfo) {
	hasElse := !c.Else.IsEmpty() || len(c.Else.Vars) > 0
	b.StartIf(c.Cond, hasElse)
	c.Then.Generate(logger, b, info)
	if hasElse {
		b.StartElse()
		c.Else.Generate(logger, b, info)
	}
	b.EndIf()
}

func (c *If) Pretty(sb *strings.Builder, indent string) {
	sb.WriteString(indent + "if (" + c.Cond.String() + ") {\n")
	c.Then.Pretty(sb, indent+Indent)
	if !c.Else.IsEmpty() || len(c.Else.Vars) > 0 {
		sb.WriteString(indent + "} else {\n")
		c.Else.Pretty(sb, indent+Indent)
	}
	sb.WriteString(indent + "}\n")
}

// Switch is a multi-way synchronous conditional on an int.
type Switch struct {
	contBase
	Cond    Arg
	Labels  []int64
	Cases   []*Block
	Default *Block
}

// NewSwitch creates a switch with an empty case per label. withDefault
// adds an empty default block.
func NewSwitch(cond Arg, labels []int64, withDefault bool) *Switch {
	s := &Switch{Cond: cond, Labels: append([]int64(nil), labels...)}
	for range labels {
		s.Cases = append(s.Cases, NewBlock(BlockCase))
	}
	if withDefault {
		s.Default = NewBlock(BlockCase)
	}
	return s
}

func (*Switch) statement() {}

func (c *Switch) Kind() ContinuationKind { return KindSwitch }

func (c *Switch) Blocks() []*Block {
	out := append([]*Block(nil), c.Cases...)
	if c.Default != nil {
		out = append(out, c.Default)
	}
	return out
}

func (c *Switch) IsAsync() bool                     { return false }
func (c *Switch) IsLoop() bool                      { return false }
func (c *Switch) IsConditional() bool               { return true }
func (c *Switch) IsExhaustiveSyncConditional() bool { return c.Default != nil }
func (c *Switch) BlockingVars() []*Var              { return nil }
func (c *Switch) ConstructDefinedVars() []*Var      { return nil }
func (c *Switch) IsNoop() bool                      { return allBlocksEmpty(c) }

func (c *Switch) RequiredVars(bool) []*Var {
	if c.Cond.IsVar() {
		return []*Var{c.Cond.Var}
	}
	return nil
}

func (c *Switch) ChildContext(outer ExecContext) ExecContext {
	return syncChildContext(c, outer)
}

func (c *Switch) RenameVars(renames Renames, mode RenameMode) {
	c.renameBase(renames)
	c.Cond = renames.Arg(c.Cond)
	for _, b := range c.Blocks() {
		b.RenameVars(renames, mode)
	}
}

func (c *Switch) RemoveVars(removed VarSet) {
	c.removeBase(removed)
	for _, b := range c.Blocks() {
		b.RemoveVars(removed)
	}
}

// BranchPredict returns the case taken for a literal condition. With no
// matching label and no default nothing executes, so an empty block is
// returned.
func (c *Switch) BranchPredict() *Block {
	if c.Cond.Kind != ArgInt {
		return nil
	}
	for i, l := range c.Labels {
		if l == c.Cond.Int {
			return c.Cases[i]
		}
	}
	if c.Default != nil {
		return c.Default
	}
	return NewBlock(BlockCase)
}

func (c *Switch) TryInline(VarSet, VarSet, bool) *Block {
	return c.BranchPredict()
}

func (c *Switch) Clone() Continuation {
	s := &Switch{contBase: c.clone(), Cond: c.Cond, Labels: append([]int64(nil), c.Labels...)}
	for _, b := range c.Cases {
		s.Cases = append(s.Cases, b.Clone())
	}
	if c.Default != nil {
		s.Default = c.Default.Clone()
	}
	return s
}

func (c *Switch) Generate(logger *slog.Logger, b Backend, info *GenInfo) {
	b.StartSwitch(c.Cond, c.Labels, c.Default != nil)
	for _, blk := range c.Blocks() {
		blk.Generate(logger, b, info)
		b.EndCase()
	}
	b.EndSwitch()
}

func (c *Switch) Pretty(sb *strings.Builder, indent string) {
	sb.WriteString(indent + "switch (" + c.Cond.String() + ") {\n")
	for i, blk := range c.Cases {
		sb.WriteString(indent + "case " + strconv.FormatInt(c.Labels[i], 10) + ":\n")
		blk.Pretty(sb, indent+Indent)
	}
	if c.Default != nil {
		sb.WriteString(indent + "default:\n")
		c.Default.Pretty(sb, indent+Indent)
	}
	sb.WriteString(indent + "}\n")
}

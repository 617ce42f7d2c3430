package ic

import (
	"log/slog"
	"strings"
)

// NestedBlock is a synchronous scope.
type NestedBlock struct {
	contBase
	Block *Block
}

// NewNestedBlock creates a nested block with an empty body.
func NewNestedBlock() *NestedBlock {
	return &NestedBlock{Block: NewBlock(BlockNested)}
}

func (n *NestedBlock) Kind() ContinuationKind            { return KindNestedBlock }
func (n *NestedBlock) Blocks() []*Block                  { return []*Block{n.Block} }
func (n *NestedBlock) IsAsync() bool                     { return false }
func (n *NestedBlock) IsLoop() bool                      { return false }
func (n *NestedBlock) IsConditional() bool               { return false }
func (n *NestedBlock) IsExhaustiveSyncConditional() bool { return false }
func (n *NestedBlock) RequiredVars(bool) []*Var          { return nil }
func (n *NestedBlock) BlockingVars() []*Var              { return nil }
func (n *NestedBlock) ConstructDefinedVars() []*Var      { return nil }
func (n *NestedBlock) IsNoop() bool                      { return n.Block.IsEmpty() }

func (n *NestedBlock) ChildContext(outer ExecContext) ExecContext {
	return syncChildContext(n, outer)
}

func (n *NestedBlock) RenameVars(renames Renames, mode RenameMode) {
	n.renameBase(renames)
	n.Block.RenameVars(renames, mode)
}

func (n *NestedBlock) RemoveVars(removed VarSet) {
	n.removeBase(removed)
	n.Block.RemoveVars(removed)
}

// TryInline inlines unless the block must run after its siblings.
func (n *NestedBlock) TryInline(VarSet, VarSet, bool) *Block {
	if n.runLast {
		return nil
	}
	return n.Block
}

func (n *NestedBlock) Clone() Continuation {
	return &NestedBlock{contBase: n.clone(), Block: n.Block.Clone()}
}

func (n *NestedBlock) Generate(logger *slog.Logger, b Backend, info *GenInfo) {
	b.StartNestedBlock()
	n.Block.Generate(logger, b, info)
	b.EndNestedBlock()
}

func (n *NestedBlock) Pretty(sb *strings.Builder, indent string) {
	header := "{"
	if n.runLast {
		header = "{ // run last"
	}
	sb.WriteString(indent + header + "\n")
	n.Block.Pretty(sb, indent+Indent)
	sb.WriteString(indent + "}\n")
}

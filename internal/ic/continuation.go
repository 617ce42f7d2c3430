package ic

import (
	"fmt"
	"log/slog"
	"strings"
)

// ContinuationKind enumerates the closed set of continuation variants.
type ContinuationKind int

const (
	KindNestedBlock ContinuationKind = iota
	KindIf
	KindSwitch
	KindLoop
	KindWait
	KindForeach
	KindRangeLoop
)

var continuationKindNames = [...]string{"nested", "if", "switch", "loop", "wait", "foreach", "range"}

func (k ContinuationKind) String() string {
	if int(k) < 0 || int(k) >= len(continuationKindNames) {
		return fmt.Sprintf("continuation(%d)", int(k))
	}
	return continuationKindNames[k]
}

// Continuation is a control structure owning one or more child blocks.
type Continuation interface {
	Kind() ContinuationKind
	Blocks() []*Block

	IsAsync() bool
	IsLoop() bool
	// IsConditional reports that at most one child block executes.
	IsConditional() bool
	// IsExhaustiveSyncConditional reports a synchronous conditional in
	// which exactly one child block executes.
	IsExhaustiveSyncConditional() bool

	// RequiredVars are vars the construct itself reads. With forDCE set,
	// dependencies that may be eliminated (implicit waits) are omitted.
	RequiredVars(forDCE bool) []*Var
	// BlockingVars are vars that must be closed before the child runs.
	BlockingVars() []*Var
	// ConstructDefinedVars are vars the construct declares for its body.
	ConstructDefinedVars() []*Var

	RenameVars(renames Renames, mode RenameMode)
	RemoveVars(removed VarSet)
	// TryInline returns a block to splice into the parent in place of the
	// continuation, or nil. The receiver may be modified either way.
	TryInline(closed, recClosed VarSet, keepExplicit bool) *Block
	IsNoop() bool

	RunLast() bool
	SetRunLast(bool)
	ChildContext(outer ExecContext) ExecContext

	PassedVars() []*Var
	KeepOpenVars() []*Var
	AddPassedVars(vars ...*Var)
	AddKeepOpenVars(vars ...*Var)

	Clone() Continuation
	Generate(logger *slog.Logger, b Backend, info *GenInfo)
	Pretty(sb *strings.Builder, indent string)
}

// contBase holds state shared by every continuation.
type contBase struct {
	runLast  bool
	passed   []*Var
	keepOpen []*Var
}

func (c *contBase) RunLast() bool      { return c.runLast }
func (c *contBase) SetRunLast(v bool)  { c.runLast = v }
func (c *contBase) PassedVars() []*Var { return c.passed }
func (c *contBase) KeepOpenVars() []*Var {
	return c.keepOpen
}

func (c *contBase) AddPassedVars(vars ...*Var) {
	c.passed = appendUnique(c.passed, vars)
}

func (c *contBase) AddKeepOpenVars(vars ...*Var) {
	c.keepOpen = appendUnique(c.keepOpen, vars)
}

func (c *contBase) renameBase(renames Renames) {
	renames.vars(c.passed)
	renames.vars(c.keepOpen)
}

func (c *contBase) removeBase(removed VarSet) {
	c.passed = withoutVars(c.passed, removed)
	c.keepOpen = withoutVars(c.keepOpen, removed)
}

func (c contBase) clone() contBase {
	return contBase{
		runLast:  c.runLast,
		passed:   append([]*Var(nil), c.passed...),
		keepOpen: append([]*Var(nil), c.keepOpen...),
	}
}

func appendUnique(list, vars []*Var) []*Var {
	for _, v := range vars {
		if !containsVar(list, v) {
			list = append(list, v)
		}
	}
	return list
}

func withoutVars(list []*Var, removed VarSet) []*Var {
	var out []*Var
	for _, v := range list {
		if !removed.Has(v) {
			out = append(out, v)
		}
	}
	return out
}

// syncChildContext is the child context of every synchronous continuation.
func syncChildContext(c Continuation, outer ExecContext) ExecContext {
	if c.IsAsync() {
		panic(fmt.Sprintf("ChildContext: %s is asynchronous", c.Kind()))
	}
	return outer
}

func allBlocksEmpty(c Continuation) bool {
	for _, b := range c.Blocks() {
		if !b.IsEmpty() {
			return false
		}
	}
	return true
}

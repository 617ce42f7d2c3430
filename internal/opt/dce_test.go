package opt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/weft/internal/ic"
)

// TestEliminateDeadCode_UnusedChain tests that a chain of unused copies is
// removed entirely.
func TestEliminateDeadCode_UnusedChain(t *testing.T) {
	a, y, z := future("a"), future("y"), future("z")
	f := ic.NewFunction("main", []*ic.Var{a}, nil, ic.TaskSync)
	f.MainBlock.Declare(y)
	f.MainBlock.Declare(z)
	f.MainBlock.Add(
		ic.AsyncOp(ic.BuiltinCopy, y, ic.VarArg(a)),
		ic.AsyncOp(ic.BuiltinCopy, z, ic.VarArg(y)),
	)

	stats := EliminateDeadCode(discardLogger(), f)

	assert.Empty(t, f.MainBlock.Statements)
	assert.Empty(t, f.MainBlock.Vars)
	assert.Equal(t, 2, stats.RemovedVars)
	assert.ElementsMatch(t, []string{"y", "z"}, stats.RemovedByName)
}

// TestEliminateDeadCode_SideEffectsKept tests that side-effecting
// instructions and their inputs survive.
func TestEliminateDeadCode_SideEffectsKept(t *testing.T) {
	a, y := future("a"), future("y")
	f := ic.NewFunction("main", []*ic.Var{a}, nil, ic.TaskSync)
	f.MainBlock.Declare(y)
	f.MainBlock.Add(
		ic.AsyncOp(ic.BuiltinCopy, y, ic.VarArg(a)),
		printOp(ic.VarArg(y)),
	)

	stats := EliminateDeadCode(discardLogger(), f)

	assert.Equal(t, []string{"y = copy(a)", "print(y)"}, instructionStrings(f.MainBlock))
	assert.Zero(t, stats.RemovedVars)
}

// TestEliminateDeadCode_MappedVars tests that a mapping source lives as
// long as the var mapped to it.
func TestEliminateDeadCode_MappedVars(t *testing.T) {
	build := func(keepOut bool) *ic.Function {
		name := typed("name", ic.TypeString)
		out := typed("out", ic.TypeFile).WithMapping(name)
		var outputs []*ic.Var
		if keepOut {
			outputs = []*ic.Var{out}
		}
		f := ic.NewFunction("main", nil, outputs, ic.TaskSync)
		f.MainBlock.Declare(name)
		if !keepOut {
			f.MainBlock.Declare(out)
		}
		f.MainBlock.Add(ic.Store(name, ic.StringArg("out.txt")))
		return f
	}

	kept := build(true)
	stats := EliminateDeadCode(discardLogger(), kept)
	assert.Zero(t, stats.RemovedVars)
	assert.Equal(t, []string{`name = store("out.txt")`}, instructionStrings(kept.MainBlock))

	unused := build(false)
	stats = EliminateDeadCode(discardLogger(), unused)
	assert.ElementsMatch(t, []string{"name", "out"}, stats.RemovedByName)
	assert.Empty(t, unused.MainBlock.Vars)
	assert.Empty(t, unused.MainBlock.Statements)
}

// TestEliminateDeadCode_WrittenComponentKept tests that writing a member
// of a needed struct keeps the write.
func TestEliminateDeadCode_WrittenComponentKept(t *testing.T) {
	pair := ic.StructType("pair", ic.StructField{Name: "a", Type: ic.TypeInt})
	s := typed("s", pair)
	m := ic.NewVar("m", ic.TypeInt, ic.StorageAlias, ic.DefLocalCompiler)

	build := func(outputs []*ic.Var) *ic.Function {
		f := ic.NewFunction("main", nil, outputs, ic.TaskSync)
		if len(outputs) == 0 {
			f.MainBlock.Declare(s)
		}
		f.MainBlock.Declare(m)
		f.MainBlock.Add(ic.StructLookup(m, s, "a"), ic.Store(m, ic.IntArg(1)))
		return f
	}

	kept := build([]*ic.Var{s})
	EliminateDeadCode(discardLogger(), kept)
	assert.Equal(t, []string{"m = struct_lookup(s, a)", "m = store(1)"}, instructionStrings(kept.MainBlock))

	dropped := build(nil)
	EliminateDeadCode(discardLogger(), dropped)
	assert.Empty(t, dropped.MainBlock.Statements)
}

// TestEliminateDeadCode_EmptyContinuationsRemoved tests that continuations
// emptied by removal are dropped in the same run.
func TestEliminateDeadCode_EmptyContinuationsRemoved(t *testing.T) {
	a, y := future("a"), future("y")
	cond := ic.NewVar("c", ic.ValBool, ic.StorageLocal, ic.DefLocalUser)
	f := ic.NewFunction("main", []*ic.Var{a}, nil, ic.TaskSync)
	f.MainBlock.Declare(cond)
	f.MainBlock.Add(ic.LocalOp(ic.BuiltinCopy, cond, ic.BoolArg(true)))
	w := newWait()
	w.Block.Declare(y)
	w.Block.Add(ic.AsyncOp(ic.BuiltinCopy, y, ic.VarArg(a)))
	f.MainBlock.AddContinuation(w)
	iff := ic.NewIf(ic.VarArg(cond))
	f.MainBlock.Add(iff)

	stats := EliminateDeadCode(discardLogger(), f)

	assert.Empty(t, f.MainBlock.Continuations)
	assert.Empty(t, f.MainBlock.Statements)
	assert.Equal(t, 2, stats.RemovedNoops)
	assert.Equal(t, 2, stats.RemovedVars)
}

// TestEliminateDeadCode_DropsRefcountsOfRemovedVars tests that refcount
// instructions go with their var.
func TestEliminateDeadCode_DropsRefcountsOfRemovedVars(t *testing.T) {
	x := future("x")
	f := ic.NewFunction("main", nil, nil, ic.TaskSync)
	f.MainBlock.Declare(x)
	f.MainBlock.Add(ic.Store(x, ic.IntArg(1)), ic.Refcount(ic.OpDecrReaders, x, ic.IntArg(1)))
	f.MainBlock.AddCleanup(x, ic.Refcount(ic.OpDecrWriters, x, ic.IntArg(1)))

	EliminateDeadCode(discardLogger(), f)

	assert.True(t, f.MainBlock.IsEmpty())
}

// TestEliminateDeadCode_Idempotent tests that a second run changes nothing.
func TestEliminateDeadCode_Idempotent(t *testing.T) {
	a, y, z := future("a"), future("y"), future("z")
	f := ic.NewFunction("main", []*ic.Var{a}, []*ic.Var{z}, ic.TaskSync)
	f.MainBlock.Declare(y)
	f.MainBlock.Add(
		ic.AsyncOp(ic.BuiltinCopy, y, ic.VarArg(a)),
		ic.AsyncOp(ic.BuiltinPlusInt, z, ic.VarArg(a), ic.IntArg(1)),
	)

	EliminateDeadCode(discardLogger(), f)
	first := f.String()
	stats := EliminateDeadCode(discardLogger(), f)

	require.Equal(t, first, f.String())
	assert.Zero(t, stats.RemovedVars)
	assert.Equal(t, 1, stats.Iterations)
}

package backend

import (
	"io"
	"log/slog"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"

	"github.com/roach88/weft/internal/ic"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func copyWaitProgram() *ic.Program {
	p := ic.NewProgram()
	p.AddRequiredPackage("turbine")
	p.AddBuiltin(&ic.Builtin{Name: "sleep", Impure: true})
	p.AddGlobalConst("greeting", ic.StringArg("hi"))

	x := ic.NewVar("x", ic.TypeInt, ic.StorageStack, ic.DefLocalUser)
	y := ic.NewVar("y", ic.TypeInt, ic.StorageStack, ic.DefLocalUser)
	f := ic.NewFunction("main", nil, nil, ic.TaskSync)
	f.MainBlock.Declare(x)
	f.MainBlock.Declare(y)
	f.MainBlock.Add(ic.Store(x, ic.IntArg(2)), ic.AsyncOp(ic.BuiltinCopy, y, ic.VarArg(x)))
	w := ic.NewWait("", []ic.WaitVar{{Var: y}}, ic.WaitOnly, false, ic.TaskLocal, nil)
	w.Block.Add(ic.AsyncOp(ic.BuiltinPrint, nil, ic.VarArg(y)))
	f.MainBlock.AddContinuation(w)
	p.AddFunction(f)
	return p
}

// TestListing_Program tests the listing of a whole program.
func TestListing_Program(t *testing.T) {
	l := NewListing()
	copyWaitProgram().Generate(discardLogger(), l)

	g := goldie.New(t, goldie.WithFixtureDir("testdata/golden"), goldie.WithNameSuffix(".golden"))
	g.Assert(t, "copy_wait_listing", []byte(l.String()))
}

// TestListing_If tests branch nesting and indentation.
func TestListing_If(t *testing.T) {
	flag := ic.NewVar("flag", ic.ValBool, ic.StorageLocal, ic.DefLocalUser)
	f := ic.NewFunction("main", []*ic.Var{flag}, nil, ic.TaskSync)
	c := ic.NewIf(ic.VarArg(flag))
	c.Then.Add(ic.AsyncOp(ic.BuiltinPrint, nil, ic.StringArg("yes")))
	c.Else.Add(ic.AsyncOp(ic.BuiltinPrint, nil, ic.StringArg("no")))
	f.MainBlock.Add(c)
	p := ic.NewProgram()
	p.AddFunction(f)

	l := NewListing()
	p.Generate(discardLogger(), l)

	want := []string{
		"header",
		"function main out[] in[flag] sync",
		"  if flag",
		`    async_op print - ["yes"]`,
		"  else",
		`    async_op print - ["no"]`,
		"  end if",
		"end function",
	}
	if diff := cmp.Diff(want, l.Lines()); diff != "" {
		t.Errorf("listing mismatch (-want +got):\n%s", diff)
	}
}

// TestListing_WaitProps tests the wait header with a name and properties.
func TestListing_WaitProps(t *testing.T) {
	y := ic.NewVar("y", ic.TypeInt, ic.StorageStack, ic.DefLocalUser)
	l := NewListing()
	l.StartWait("proc", []*ic.Var{y}, nil, nil, true, ic.TaskWorker,
		ic.TaskProps{ic.PropParallelism: ic.IntArg(4)})
	l.EndWait()

	assert.Equal(t, []string{
		"wait proc [y] passed[] keepopen[] recursive=true worker parallelism=4",
		"end wait",
	}, l.Lines())
}

// TestListing_Empty tests that an empty listing renders as nothing.
func TestListing_Empty(t *testing.T) {
	assert.Equal(t, "", NewListing().String())
}

// TestListing_Unbalanced tests that closing an unopened scope panics.
func TestListing_Unbalanced(t *testing.T) {
	l := NewListing()
	assert.Panics(t, func() { l.EndWait() })
}

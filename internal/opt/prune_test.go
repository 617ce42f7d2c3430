package opt

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/weft/internal/ic"
)

func callProgram() *ic.Program {
	p := ic.NewProgram()
	main := ic.NewFunction("main", nil, nil, ic.TaskSync)
	main.MainBlock.Add(ic.CallFunc("helper", nil, nil))
	helper := ic.NewFunction("helper", nil, nil, ic.TaskSync)
	x := helper.MainBlock.Declare(future("x"))
	helper.MainBlock.Add(ic.AsyncOp(ic.BuiltinStrcat, x, ic.StringArg("a")), printOp(ic.VarArg(x)))
	unused := ic.NewFunction("unused", nil, nil, ic.TaskSync)
	unused.MainBlock.Add(ic.CallForeign("sleep", nil, nil, true))
	for _, f := range []*ic.Function{main, helper, unused} {
		p.AddFunction(f)
	}
	p.AddBuiltin(&ic.Builtin{Name: "strcat_impl"})
	p.AddBuiltin(&ic.Builtin{Name: "sleep", Impure: true})
	p.OpImplementations[ic.BuiltinStrcat] = "strcat_impl"
	return p
}

// TestPruneFunctions_KeepsReachable tests that the call chain and builtins
// reached through op implementations survive.
func TestPruneFunctions_KeepsReachable(t *testing.T) {
	p := callProgram()

	stats := PruneFunctions(discardLogger(), p, "main")

	assert.Equal(t, []string{"unused"}, stats.Functions)
	assert.Equal(t, []string{"sleep"}, stats.Builtins)
	assert.NotNil(t, p.Function("helper"))
	assert.NotNil(t, p.Builtin("strcat_impl"))
	assert.Nil(t, p.Builtin("sleep"))
}

// TestPruneFunctions_EntryOnly tests that an entry with no calls is all
// that remains.
func TestPruneFunctions_EntryOnly(t *testing.T) {
	p := callProgram()

	stats := PruneFunctions(discardLogger(), p, "unused")

	assert.True(t, stats.Changed())
	assert.Len(t, p.Functions, 1)
	assert.Equal(t, "unused", p.Functions[0].Name)
	assert.Equal(t, []string{"strcat_impl"}, stats.Builtins)
}

// TestPruneFunctions_MissingEntry tests that a program without its entry
// function is left alone.
func TestPruneFunctions_MissingEntry(t *testing.T) {
	p := callProgram()
	before := p.String()

	stats := PruneFunctions(discardLogger(), p, "nope")

	assert.False(t, stats.Changed())
	assert.Equal(t, before, p.String())
}

// TestCallGraph_RecursiveGroups tests detection of self and mutual
// recursion.
func TestCallGraph_RecursiveGroups(t *testing.T) {
	g := CallGraph{
		"main": {"even", "loop"},
		"even": {"odd"},
		"odd":  {"even"},
		"loop": {"loop"},
		"leaf": {},
	}

	assert.Equal(t, [][]string{{"even", "odd"}, {"loop"}}, g.RecursiveGroups())
	assert.Equal(t, map[string]bool{"main": true, "even": true, "odd": true, "loop": true}, g.Reachable("main"))
}

// TestBuildCallGraph tests edges from calls and op implementations.
func TestBuildCallGraph(t *testing.T) {
	g := BuildCallGraph(callProgram())

	assert.Equal(t, []string{"helper"}, g["main"])
	assert.Equal(t, []string{"strcat_impl"}, g["helper"])
	assert.Equal(t, []string{"sleep"}, g["unused"])
}

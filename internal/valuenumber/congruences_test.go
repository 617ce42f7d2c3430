package valuenumber

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/weft/internal/ic"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func future(name string) *ic.Var {
	return ic.NewVar(name, ic.TypeInt, ic.StorageStack, ic.DefLocalUser)
}

func alias(name string) *ic.Var {
	return ic.NewVar(name, ic.TypeInt, ic.StorageAlias, ic.DefLocalCompiler)
}

func newState(vars ...*ic.Var) *Congruences {
	c := NewCongruences(discardLogger(), nil, "main")
	c.Declare(vars...)
	return c
}

func update(t *testing.T, c *Congruences, in *ic.Instruction, stmtIndex int) error {
	t.Helper()
	for _, vl := range in.Results() {
		if err := c.Update(vl, stmtIndex); err != nil {
			return err
		}
	}
	return nil
}

// TestCongruences_ConflictingStoresUnsafe tests that two constants for one
// single-assignment location are rejected.
func TestCongruences_ConflictingStoresUnsafe(t *testing.T) {
	x := future("x")
	c := newState(x)

	require.NoError(t, update(t, c, ic.Store(x, ic.IntArg(3)), 0))
	err := update(t, c, ic.Store(x, ic.IntArg(4)), 1)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrOptUnsafe)
	assert.True(t, IsUnsafe(err))
	var ue *UnsafeError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, "main", ue.Context)
}

// TestCongruences_DoubleAssignmentUnsafe tests a second write of the same
// value to one location.
func TestCongruences_DoubleAssignmentUnsafe(t *testing.T) {
	x := future("x")
	c := newState(x)

	require.NoError(t, update(t, c, ic.Store(x, ic.IntArg(3)), 0))
	err := update(t, c, ic.Store(x, ic.IntArg(3)), 1)

	var ue *UnsafeError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, UnsafeDoubleAssignment, ue.Code)
}

// TestCongruences_EqualValuesMerge tests that genuinely equal values merge
// without a contradiction.
func TestCongruences_EqualValuesMerge(t *testing.T) {
	x, y := future("x"), future("y")
	c := newState(x, y)

	require.NoError(t, update(t, c, ic.Store(x, ic.IntArg(3)), 0))
	require.NoError(t, update(t, c, ic.Store(y, ic.IntArg(3)), 1))

	r, ok := c.Replacement(ic.CongValue, y)
	require.True(t, ok)
	assert.Equal(t, "x", r.Var.Name)
	val, ok := c.ConstantValue(ic.VarArg(y))
	require.True(t, ok)
	assert.Equal(t, ic.IntArg(3), val)
}

// TestCongruences_CopyPrefersConstant tests that a constant is canonical
// over a var holding it.
func TestCongruences_CopyPrefersConstant(t *testing.T) {
	v := ic.NewVar("v", ic.ValInt, ic.StorageLocal, ic.DefLocalUser)
	c := newState(v)

	require.NoError(t, update(t, c, ic.LocalOp(ic.BuiltinCopy, v, ic.IntArg(7)), 0))

	r, ok := c.Replacement(ic.CongValue, v)
	require.True(t, ok)
	assert.Equal(t, ic.IntArg(7), r)
}

// TestCongruences_LoadInverse tests that a load implies a store. The
// closed location becomes canonical.
func TestCongruences_LoadInverse(t *testing.T) {
	x := future("x")
	v := ic.NewVar("v", ic.ValInt, ic.StorageLocal, ic.DefLocalUser)
	y := future("y")
	c := newState(x, v, y)

	require.NoError(t, update(t, c, ic.Load(v, x), 0))
	require.NoError(t, update(t, c, ic.Store(y, ic.VarArg(v)), 1))

	r, ok := c.Replacement(ic.CongValue, x)
	require.True(t, ok)
	assert.Equal(t, "y", r.Var.Name)
}

// TestCongruences_GlobalConstKnown tests that global constants hold their
// literal.
func TestCongruences_GlobalConstKnown(t *testing.T) {
	p := ic.NewProgram()
	k := p.AddGlobalConstValue(ic.IntArg(42))
	c := NewCongruences(discardLogger(), p, "main")

	val, ok := c.ConstantValue(ic.VarArg(k))
	require.True(t, ok)
	assert.Equal(t, ic.IntArg(42), val)
	assert.True(t, c.IsClosed(k, 0))
}

// TestCongruences_ClosedMonotonic tests that closedness holds at every later
// index and in descendant scopes entered later.
func TestCongruences_ClosedMonotonic(t *testing.T) {
	x := future("x")
	c := newState(x)
	c.MarkClosed(x, 3, false)

	assert.False(t, c.IsClosed(x, 2))
	for _, i := range []int{3, 4, 10, 1000} {
		assert.True(t, c.IsClosed(x, i), "index %d", i)
	}

	later := c.EnterContinuation(5)
	assert.True(t, later.IsClosed(x, 0))
	assert.True(t, later.EnterContinuation(0).IsClosed(x, 0))

	earlier := c.EnterContinuation(2)
	assert.False(t, earlier.IsClosed(x, 100))

	y := future("y")
	later.MarkClosed(y, 0, true)
	assert.True(t, later.IsRecClosed(y, 1))
	assert.False(t, c.IsClosed(y, 100), "child facts stay in the child")
}

// TestCongruences_LocalsAlwaysClosed tests untracked storage.
func TestCongruences_LocalsAlwaysClosed(t *testing.T) {
	v := ic.NewVar("v", ic.ValInt, ic.StorageLocal, ic.DefLocalUser)
	c := newState(v)
	assert.True(t, c.IsClosed(v, 0))
	assert.True(t, c.IsRecClosed(v, 0))
	assert.True(t, c.IsArgClosed(ic.IntArg(1), 0))
}

// TestCongruences_ClosedThroughAliasMerge tests that closedness recorded
// before an alias merge is visible through the canonical member.
func TestCongruences_ClosedThroughAliasMerge(t *testing.T) {
	a, b := alias("a"), alias("b")
	c := newState(a, b)

	c.MarkClosed(b, 0, false)
	assert.False(t, c.IsClosed(a, 1))

	require.NoError(t, update(t, c, ic.CopyRef(b, a), 1))

	assert.True(t, c.IsClosed(a, 2))
	assert.True(t, c.IsClosed(b, 2))
}

// TestCongruences_DistinctHandlesUnsafe tests that two direct handles
// cannot be made alias-congruent.
func TestCongruences_DistinctHandlesUnsafe(t *testing.T) {
	arr := ic.NewVar("A", ic.ArrayOf(ic.TypeInt), ic.StorageStack, ic.DefLocalUser)
	m1, m2 := future("m1"), future("m2")
	c := newState(arr, m1, m2)

	require.NoError(t, update(t, c, ic.ArrayStore(arr, ic.IntArg(0), m1), 0))
	err := update(t, c, ic.ArrayStore(arr, ic.IntArg(0), m2), 1)

	var ue *UnsafeError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, UnsafeConflictingAliases, ue.Code)
}

// TestCongruences_PrefersAccessible tests that an undeclared var is never
// chosen as canonical over a declared one.
func TestCongruences_PrefersAccessible(t *testing.T) {
	x, y := future("x"), future("y")
	c := newState(y)
	require.NoError(t, update(t, c, ic.AsyncOp(ic.BuiltinCopy, y, ic.VarArg(x)), 0))

	_, ok := c.Replacement(ic.CongValue, y)
	assert.False(t, ok)
	r, ok := c.Replacement(ic.CongValue, x)
	require.True(t, ok)
	assert.Equal(t, "y", r.Var.Name)
}

// TestCongruentSets_CanonicalizationIdempotent tests that finding the
// canonical member of a canonical member is a no-op.
func TestCongruentSets_CanonicalizationIdempotent(t *testing.T) {
	s := NewCongruentSets(ic.CongValue)
	vars := make([]ic.Arg, 6)
	for i := range vars {
		vars[i] = ic.VarArg(future(string(rune('a' + i))))
	}
	s.Union(vars[0], vars[1])
	s.Union(vars[2], vars[3])
	s.Union(s.FindArg(vars[1]), s.FindArg(vars[3]))
	s.Union(vars[4], s.FindArg(vars[2]))

	for _, a := range vars {
		canon := s.FindArg(a)
		assert.Equal(t, canon, s.FindArg(canon), "idempotent for %s", a)
		assert.True(t, s.IsCanonical(canon))
	}
	assert.Equal(t, "e", s.FindArg(vars[0]).Var.Name)
	assert.Equal(t, "f", s.FindArg(vars[5]).Var.Name)
	assert.Len(t, s.AllMerged(vars[4]), 4)
}

// TestCongruentSets_ChildLayer tests that merges in a child do not leak.
func TestCongruentSets_ChildLayer(t *testing.T) {
	parent := NewCongruentSets(ic.CongValue)
	x, y, z := ic.VarArg(future("x")), ic.VarArg(future("y")), ic.VarArg(future("z"))
	parent.Union(x, y)

	child := parent.Child()
	child.Union(x, z)

	assert.Equal(t, x, child.FindArg(y))
	assert.Equal(t, x, child.FindArg(z))
	assert.Equal(t, z, parent.FindArg(z))
	assert.Len(t, child.MergedThisScope(x), 1)

	reps := child.Replacements(nil)
	assert.Len(t, reps, 2)
	assert.Equal(t, x, reps["z"])
}

// TestCongruentSets_FindValue tests computed value lookups.
func TestCongruentSets_FindValue(t *testing.T) {
	s := NewCongruentSets(ic.CongValue)
	x := ic.VarArg(future("x"))
	key := ic.NewCV(ic.OpStore, "", ic.IntArg(1)).Key()

	_, ok := s.FindValue(key)
	assert.False(t, ok)

	s.AddValue(key, x)
	got, ok := s.FindValue(key)
	require.True(t, ok)
	assert.Equal(t, x, got)
}

// TestCongruences_ChildScopesSeeGlobalConsts tests that a nested scope
// resolves loads of global constants.
func TestCongruences_ChildScopesSeeGlobalConsts(t *testing.T) {
	prog := ic.NewProgram()
	g := prog.AddGlobalConst("greeting", ic.StringArg("hi"))
	c := NewCongruences(discardLogger(), prog, "main")

	for name, child := range map[string]*Congruences{
		"continuation": c.EnterContinuation(0),
		"loop":         c.EnterLoop(),
	} {
		got, ok := child.FindRetrieveResult(g)
		if assert.True(t, ok, name) {
			assert.Equal(t, ic.StringArg("hi"), got, name)
		}
	}
}

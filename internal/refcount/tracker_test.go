package refcount

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/weft/internal/ic"
)

func future(name string) *ic.Var {
	return ic.NewVar(name, ic.TypeInt, ic.StorageStack, ic.DefLocalUser)
}

func local(name string) *ic.Var {
	return ic.NewVar(name, ic.ValInt, ic.StorageLocal, ic.DefLocalUser)
}

func alias(name string, t *ic.Type) *ic.Var {
	return ic.NewVar(name, t, ic.StorageAlias, ic.DefLocalCompiler)
}

var pairType = ic.StructType("pair",
	ic.StructField{Name: "a", Type: ic.TypeInt},
	ic.StructField{Name: "b", Type: ic.TypeInt},
)

// TestRCTracker_CancelNetsToZero tests that cancelling +n then -n against
// pending counts leaves nothing pending.
func TestRCTracker_CancelNetsToZero(t *testing.T) {
	x := future("x")
	tr := NewRCTracker(nil)
	tr.Incr(x, ic.RCReaders, 3)
	tr.Incr(x, ic.RCReaders, -3)

	tr.Cancel(tr.CountKey(x), ic.RCReaders, 3)
	tr.Cancel(tr.CountKey(x), ic.RCReaders, -3)

	assert.NoError(t, tr.CheckZero())
}

// TestRCTracker_CancelOvershootPanics tests that netting past zero is a
// fatal accounting error.
func TestRCTracker_CancelOvershootPanics(t *testing.T) {
	x := future("x")
	tr := NewRCTracker(nil)
	tr.Incr(x, ic.RCWriters, -1)

	assert.Panics(t, func() { tr.Cancel(tr.CountKey(x), ic.RCWriters, 2) })
}

// TestRCTracker_CancelOfEmptyIncrementPanics tests the increment side.
func TestRCTracker_CancelOfEmptyIncrementPanics(t *testing.T) {
	x := future("x")
	tr := NewRCTracker(nil)

	assert.Panics(t, func() { tr.Cancel(tr.CountKey(x), ic.RCReaders, -1) })
}

// TestRCTracker_CheckZeroPerDirection tests that opposite pending counts
// do not excuse each other.
func TestRCTracker_CheckZeroPerDirection(t *testing.T) {
	x := future("x")
	tr := NewRCTracker(nil)
	tr.Incr(x, ic.RCReaders, 1)
	tr.Incr(x, ic.RCReaders, -1)

	err := tr.CheckZero()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "x readers incr: 1 pending")
	assert.Contains(t, err.Error(), "x readers decr: -1 pending")
}

func TestRCTracker_UntrackedVarsIgnored(t *testing.T) {
	v := local("v")
	s := ic.NewVar("s", pairType, ic.StorageStack, ic.DefLocalUser)
	tr := NewRCTracker(nil)

	tr.Incr(v, ic.RCReaders, 1)
	tr.Incr(s, ic.RCWriters, 1)

	assert.NoError(t, tr.CheckZero())
	assert.Zero(t, tr.Count(ic.RCReaders, v, DirIncr))
}

// TestRCTracker_CanonicalizeStructMember tests that counts on a struct
// member alias move to the struct.
func TestRCTracker_CanonicalizeStructMember(t *testing.T) {
	s := ic.NewVar("s", pairType, ic.StorageStack, ic.DefLocalUser)
	a := alias("a", ic.TypeInt)
	tr := NewRCTracker(nil)
	tr.Update(ic.StructLookup(a, s, "a"))

	tr.Incr(a, ic.RCReaders, 2)
	assert.Equal(t, "s.a", tr.CountKey(a).String())
	assert.Equal(t, int64(2), tr.Count(ic.RCReaders, a, DirIncr))

	tr.Canonicalize()

	assert.Zero(t, tr.Count(ic.RCReaders, a, DirIncr))
	assert.Equal(t, int64(2), tr.Count(ic.RCReaders, s, DirIncr))
	assert.Equal(t, []Candidate{{Var: s, Amount: 2}}, tr.VarCandidates(ic.RCReaders, DirIncr))
}

// TestRCTracker_RefCountVarThroughDeref tests that a dereferenced datum
// owns the refcount of paths below it.
func TestRCTracker_RefCountVarThroughDeref(t *testing.T) {
	r := ic.NewVar("r", ic.RefTo(pairType), ic.StorageStack, ic.DefLocalUser)
	d := alias("d", pairType)
	m := alias("m", ic.TypeInt)
	tr := NewRCTracker(nil)
	tr.Update(ic.LoadRef(d, r))
	tr.Update(ic.StructLookup(m, d, "b"))

	key := tr.CountKey(m)
	assert.Equal(t, "r.*.b", key.String())
	assert.Equal(t, d, tr.RefCountVar(key))
	assert.Equal(t, r, tr.RefCountVar(RootKey(r)))
}

func TestRCTracker_ChildSeesParentAliases(t *testing.T) {
	s := ic.NewVar("s", pairType, ic.StorageStack, ic.DefLocalUser)
	a := alias("a", ic.TypeInt)
	parent := NewRCTracker(nil)
	parent.Update(ic.StructLookup(a, s, "a"))

	child := NewRCTracker(parent.Aliases())
	assert.Equal(t, "s.a", child.CountKey(a).String())

	b := alias("b", ic.TypeInt)
	child.Update(ic.StructLookup(b, s, "b"))
	assert.Equal(t, "b", parent.CountKey(b).String())
}

func TestRCTracker_MergeAndReset(t *testing.T) {
	x, y := future("x"), future("y")
	changes := NewCounters[*ic.Var]()
	changes.Add(x, 2)
	changes.Add(y, 1)
	tr := NewRCTracker(nil)

	tr.Merge(changes, ic.RCWriters, DirIncr)
	assert.Equal(t, []Candidate{{Var: x, Amount: 2}, {Var: y, Amount: 1}}, tr.VarCandidates(ic.RCWriters, DirIncr))

	tr.Reset(ic.RCWriters, x, DirIncr)
	assert.Equal(t, []Candidate{{Var: y, Amount: 1}}, tr.VarCandidates(ic.RCWriters, DirIncr))

	tr.ResetAll()
	assert.NoError(t, tr.CheckZero())
}

func TestCounters(t *testing.T) {
	c := NewCounters[string]()
	assert.Equal(t, int64(2), c.Add("a", 2))
	assert.Equal(t, int64(0), c.Add("a", -2))
	assert.True(t, c.IsEmpty())

	c.Add("b", 1)
	c.Add("a", -1)
	o := NewCounters[string]()
	o.Add("a", 1)
	o.Add("c", 4)
	c.Merge(o)

	assert.Equal(t, []string{"b", "c"}, OrderedKeys(c))
	assert.Equal(t, 2, c.Len())
}

func TestDirOf(t *testing.T) {
	assert.Equal(t, DirIncr, DirOf(1))
	assert.Equal(t, DirIncr, DirOf(0))
	assert.Equal(t, DirDecr, DirOf(-1))
}

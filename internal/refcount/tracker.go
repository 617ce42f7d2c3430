package refcount

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/weft/internal/ic"
)

// Dir is the direction of a refcount change.
type Dir int

const (
	DirIncr Dir = iota
	DirDecr
)

func (d Dir) String() string {
	if d == DirDecr {
		return "decr"
	}
	return "incr"
}

// DirOf returns the direction of a signed amount. Zero counts as an
// increment.
func DirOf(amount int64) Dir {
	if amount < 0 {
		return DirDecr
	}
	return DirIncr
}

// RCTypes lists the refcount kinds in emission order.
var RCTypes = []ic.RefCountType{ic.RCReaders, ic.RCWriters}

// Candidate is an amount to apply to the var holding a refcount.
type Candidate struct {
	Var    *ic.Var
	Amount int64
}

// RCTracker accumulates pending refcount changes per key in four
// quadrants: readers and writers, each split into increments (positive)
// and decrements (negative).
type RCTracker struct {
	counts  [2][2]*Counters[string]
	keys    map[string]AliasKey
	aliases *AliasTracker
}

// NewRCTracker creates a tracker whose alias facts extend parent. parent
// may be nil.
func NewRCTracker(parent *AliasTracker) *RCTracker {
	t := &RCTracker{keys: make(map[string]AliasKey)}
	for rc := range t.counts {
		for dir := range t.counts[rc] {
			t.counts[rc][dir] = NewCounters[string]()
		}
	}
	if parent != nil {
		t.aliases = parent.Child()
	} else {
		t.aliases = NewAliasTracker()
	}
	return t
}

// Aliases returns the tracker's alias facts.
func (t *RCTracker) Aliases() *AliasTracker { return t.aliases }

func (t *RCTracker) counters(rc ic.RefCountType, dir Dir) *Counters[string] {
	return t.counts[rc][dir]
}

func (t *RCTracker) add(key AliasKey, rc ic.RefCountType, dir Dir, amount int64) int64 {
	s := key.String()
	t.keys[s] = key
	return t.counters(rc, dir).Add(s, amount)
}

// Update records alias facts from in. A newly bound alias whose type
// carries no refcount of a kind has its counts of that kind dropped.
func (t *RCTracker) Update(in *ic.Instruction) {
	for _, a := range t.aliases.Update(in) {
		for _, rc := range RCTypes {
			if !ic.TrackRefCount(a.Child, rc) {
				t.resetBoth(rc, a.Child)
			}
		}
	}
}

// CountKey returns the key counts for v are recorded under.
func (t *RCTracker) CountKey(v *ic.Var) AliasKey {
	return t.aliases.Canonical(v)
}

// RefCountVar returns the var whose refcount backs key: the datum bound
// at the deepest dereference in the path, else the root var.
func (t *RCTracker) RefCountVar(key AliasKey) *ic.Var {
	for i := len(key.Path) - 1; i >= 0; i-- {
		if key.Path[i] != DerefMarker {
			continue
		}
		v := t.aliases.FindVar(key.Prefix(i + 1))
		if v == nil {
			panic(fmt.Sprintf("refcount: no var bound for alias key %s", key.Prefix(i+1)))
		}
		return v
	}
	return key.Var
}

// Incr records amount (negative for a decrement) against v. Vars whose
// type carries no refcount of kind rc are ignored.
func (t *RCTracker) Incr(v *ic.Var, rc ic.RefCountType, amount int64) {
	if !ic.TrackRefCount(v, rc) || amount == 0 {
		return
	}
	t.add(t.CountKey(v), rc, DirOf(amount), amount)
}

// IncrKey records amount against key when the owning var can carry the
// refcount.
func (t *RCTracker) IncrKey(key AliasKey, rc ic.RefCountType, amount int64) {
	v := t.RefCountVar(key)
	if amount == 0 || !ic.TrackRefCount(v, rc) {
		return
	}
	t.add(key, rc, DirOf(amount), amount)
}

// Cancel applies amount to the counter of the opposite direction, so a
// positive amount cancels a pending decrement and a negative amount a
// pending increment. Overshooting zero panics.
func (t *RCTracker) Cancel(key AliasKey, rc ic.RefCountType, amount int64) {
	dir := DirOf(-amount)
	newCount := t.add(key, rc, dir, amount)
	oldCount := newCount - amount
	if oldCount < 0 && newCount > 0 || oldCount >= 0 && newCount < 0 {
		panic(fmt.Sprintf("refcount: cancel %s %s %s overshoots: %d + %d", key, rc, dir, oldCount, amount))
	}
}

// Merge adds changes keyed by var into the quadrant rc/dir.
func (t *RCTracker) Merge(changes *Counters[*ic.Var], rc ic.RefCountType, dir Dir) {
	for v, n := range changes.m {
		t.add(t.CountKey(v), rc, dir, n)
	}
}

// Canonicalize moves counts recorded under a non-canonical path onto
// the canonical key of the var owning the refcount.
func (t *RCTracker) Canonicalize() {
	for _, rc := range RCTypes {
		for _, dir := range []Dir{DirIncr, DirDecr} {
			c := t.counters(rc, dir)
			type move struct {
				key    AliasKey
				amount int64
			}
			var moves []move
			for _, s := range OrderedKeys(c) {
				key := t.keys[s]
				canon := t.CountKey(t.RefCountVar(key))
				if canon.String() == s {
					continue
				}
				moves = append(moves, move{canon, c.Count(s)})
				c.Reset(s)
			}
			for _, m := range moves {
				t.IncrKey(m.key, rc, m.amount)
			}
		}
	}
}

// Count returns the pending amount for v.
func (t *RCTracker) Count(rc ic.RefCountType, v *ic.Var, dir Dir) int64 {
	return t.counters(rc, dir).Count(t.CountKey(v).String())
}

// Reset drops the count for v in one quadrant.
func (t *RCTracker) Reset(rc ic.RefCountType, v *ic.Var, dir Dir) {
	t.counters(rc, dir).Reset(t.CountKey(v).String())
}

func (t *RCTracker) resetBoth(rc ic.RefCountType, v *ic.Var) {
	t.Reset(rc, v, DirIncr)
	t.Reset(rc, v, DirDecr)
}

// ResetAll drops every pending count.
func (t *RCTracker) ResetAll() {
	for _, rc := range RCTypes {
		t.counters(rc, DirIncr).ResetAll()
		t.counters(rc, DirDecr).ResetAll()
	}
}

// VarCandidates returns the pending amounts of one quadrant summed per
// owning var, ordered by var name.
func (t *RCTracker) VarCandidates(rc ic.RefCountType, dir Dir) []Candidate {
	sums := NewCounters[string]()
	vars := make(map[string]*ic.Var)
	c := t.counters(rc, dir)
	for _, s := range OrderedKeys(c) {
		v := t.RefCountVar(t.keys[s])
		vars[v.Name] = v
		sums.Add(v.Name, c.Count(s))
	}
	var out []Candidate
	for _, name := range OrderedKeys(sums) {
		out = append(out, Candidate{Var: vars[name], Amount: sums.Count(name)})
	}
	return out
}

// CheckZero reports every quadrant with a pending count. Increments and
// decrements are checked independently: a pending increment is not
// excused by an equal pending decrement.
func (t *RCTracker) CheckZero() error {
	var errs []error
	for _, rc := range RCTypes {
		for _, dir := range []Dir{DirIncr, DirDecr} {
			c := t.counters(rc, dir)
			for _, s := range OrderedKeys(c) {
				errs = append(errs, fmt.Errorf("%s %s %s: %d pending", s, rc, dir, c.Count(s)))
			}
		}
	}
	return errors.Join(errs...)
}

func (t *RCTracker) String() string {
	var sb strings.Builder
	for _, rc := range RCTypes {
		for _, dir := range []Dir{DirIncr, DirDecr} {
			c := t.counters(rc, dir)
			fmt.Fprintf(&sb, "%s %s:", rc, dir)
			for _, s := range OrderedKeys(c) {
				fmt.Fprintf(&sb, " %s=%d", s, c.Count(s))
			}
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

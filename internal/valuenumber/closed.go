package valuenumber

import (
	"sort"

	"github.com/roach88/weft/internal/ic"
)

// closedEntry records the earliest statement index at which a var is
// known closed, and recursively closed, in one scope. -1 means unknown.
type closedEntry struct {
	closedAt    int
	recClosedAt int
}

func (e closedEntry) matches(recursive bool, stmtIndex int) bool {
	if recursive {
		return e.recClosedAt >= 0 && stmtIndex >= e.recClosedAt
	}
	return e.closedAt >= 0 && stmtIndex >= e.closedAt
}

// ClosedVarTracker records per scope when canonical vars become closed.
//
// A child scope entered at parent statement index p sees parent entries
// recorded at or before p. Entries are only ever added or moved earlier,
// so a var closed at index i stays closed at every later index.
type ClosedVarTracker struct {
	parent      *ClosedVarTracker
	parentIndex int
	vars        map[string]*ic.Var
	entries     map[string]closedEntry
}

// NewClosedVarTracker creates a root tracker.
func NewClosedVarTracker() *ClosedVarTracker {
	return &ClosedVarTracker{
		vars:    make(map[string]*ic.Var),
		entries: make(map[string]closedEntry),
	}
}

// EnterContinuation creates a child scope entered at parentIndex.
func (t *ClosedVarTracker) EnterContinuation(parentIndex int) *ClosedVarTracker {
	c := NewClosedVarTracker()
	c.parent = t
	c.parentIndex = parentIndex
	return c
}

// Close marks v closed from stmtIndex on.
func (t *ClosedVarTracker) Close(v *ic.Var, stmtIndex int, recursive bool) {
	e, ok := t.entries[v.Name]
	if !ok {
		e = closedEntry{closedAt: -1, recClosedAt: -1}
	}
	if e.closedAt < 0 || stmtIndex < e.closedAt {
		e.closedAt = stmtIndex
	}
	if recursive && (e.recClosedAt < 0 || stmtIndex < e.recClosedAt) {
		e.recClosedAt = stmtIndex
	}
	t.vars[v.Name] = v
	t.entries[v.Name] = e
}

// IsClosed reports whether v is known closed at stmtIndex.
func (t *ClosedVarTracker) IsClosed(v *ic.Var, stmtIndex int, recursive bool) bool {
	for s, idx := t, stmtIndex; s != nil; s, idx = s.parent, s.parentIndex {
		if e, ok := s.entries[v.Name]; ok && e.matches(recursive, idx) {
			return true
		}
	}
	return false
}

// entry returns the best entry for v visible at stmtIndex, translated to
// this scope's indices.
func (t *ClosedVarTracker) entry(v *ic.Var, stmtIndex int) (closedEntry, bool) {
	best := closedEntry{closedAt: -1, recClosedAt: -1}
	found := false
	for s, idx := t, stmtIndex; s != nil; s, idx = s.parent, s.parentIndex {
		e, ok := s.entries[v.Name]
		if !ok {
			continue
		}
		// Anything visible from a parent applies from the start of t.
		local := s == t
		if e.matches(false, idx) {
			at := 0
			if local {
				at = e.closedAt
			}
			if best.closedAt < 0 || at < best.closedAt {
				best.closedAt = at
			}
			found = true
		}
		if e.matches(true, idx) {
			at := 0
			if local {
				at = e.recClosedAt
			}
			if best.recClosedAt < 0 || at < best.recClosedAt {
				best.recClosedAt = at
			}
			found = true
		}
	}
	return best, found
}

// copyEntry records on v everything known about from.
func (t *ClosedVarTracker) copyEntry(v, from *ic.Var, stmtIndex int) {
	e, ok := t.entry(from, stmtIndex)
	if !ok {
		return
	}
	if e.closedAt >= 0 {
		t.Close(v, e.closedAt, false)
	}
	if e.recClosedAt >= 0 {
		t.Close(v, e.recClosedAt, true)
	}
}

// ScopeClosed returns vars closed in this scope but not necessarily in
// any parent, sorted by name.
func (t *ClosedVarTracker) ScopeClosed(recursiveOnly bool) []*ic.Var {
	var out []*ic.Var
	for name, e := range t.entries {
		if recursiveOnly && e.recClosedAt < 0 {
			continue
		}
		out = append(out, t.vars[name])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

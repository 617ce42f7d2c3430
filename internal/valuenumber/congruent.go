package valuenumber

import (
	"sort"
	"strings"

	"github.com/roach88/weft/internal/ic"
)

// CongruentSets is a layered union-find over args and computed values for
// one congruence type.
//
// Every key (an Arg key or a computed value key) links to a parent key;
// roots are always Arg keys and the root Arg is the set's canonical
// member. An unlinked Arg is its own singleton set. An unlinked computed
// value is unknown.
//
// A child layer reads through to its parent and writes only to itself,
// so leaving a scope discards everything learned in it.
type CongruentSets struct {
	typ    ic.CongruenceType
	parent *CongruentSets

	link   map[string]string
	args   map[string]ic.Arg
	merged map[string][]ic.Arg
}

// NewCongruentSets creates a root layer.
func NewCongruentSets(typ ic.CongruenceType) *CongruentSets {
	return &CongruentSets{
		typ:    typ,
		link:   make(map[string]string),
		args:   make(map[string]ic.Arg),
		merged: make(map[string][]ic.Arg),
	}
}

// Type returns the congruence type these sets track.
func (s *CongruentSets) Type() ic.CongruenceType { return s.typ }

// Child creates a layer that sees every fact in s.
func (s *CongruentSets) Child() *CongruentSets {
	c := NewCongruentSets(s.typ)
	c.parent = s
	return c
}

func (s *CongruentSets) lookupLink(key string) (string, bool) {
	for l := s; l != nil; l = l.parent {
		if next, ok := l.link[key]; ok {
			return next, true
		}
	}
	return "", false
}

func (s *CongruentSets) lookupArg(key string) (ic.Arg, bool) {
	for l := s; l != nil; l = l.parent {
		if a, ok := l.args[key]; ok {
			return a, true
		}
	}
	return ic.Arg{}, false
}

// root follows links from key. Paths are compressed in this layer.
func (s *CongruentSets) root(key string) (string, bool) {
	next, ok := s.lookupLink(key)
	if !ok {
		return key, false
	}
	var path []string
	cur := key
	for ok {
		path = append(path, cur)
		cur = next
		next, ok = s.lookupLink(cur)
	}
	// The last step already points at the root.
	for _, k := range path[:len(path)-1] {
		s.link[k] = cur
	}
	return cur, true
}

// FindArg returns the canonical member of a's set.
func (s *CongruentSets) FindArg(a ic.Arg) ic.Arg {
	r, linked := s.root(a.Key())
	if !linked {
		return a
	}
	if canon, ok := s.lookupArg(r); ok {
		return canon
	}
	panic("congruent sets: root without arg: " + r)
}

// FindValue returns the canonical location of a computed value key, if
// the value is known.
func (s *CongruentSets) FindValue(key string) (ic.Arg, bool) {
	r, linked := s.root(key)
	if !linked {
		return ic.Arg{}, false
	}
	canon, ok := s.lookupArg(r)
	if !ok {
		panic("congruent sets: root without arg: " + r)
	}
	return canon, true
}

// AddValue records that the computed value key is held by canon's set.
func (s *CongruentSets) AddValue(key string, canon ic.Arg) {
	canon = s.FindArg(canon)
	s.link[key] = canon.Key()
	s.args[canon.Key()] = canon
}

// Union makes winner the canonical member of the union of the sets
// rooted at winner and loser. Both must be canonical.
func (s *CongruentSets) Union(winner, loser ic.Arg) {
	wk, lk := winner.Key(), loser.Key()
	if wk == lk {
		return
	}
	s.args[wk] = winner
	s.args[lk] = loser
	s.link[lk] = wk
	s.merged[wk] = append(s.merged[wk], loser)
}

// IsCanonical reports whether a is the canonical member of its set.
func (s *CongruentSets) IsCanonical(a ic.Arg) bool {
	_, linked := s.root(a.Key())
	return !linked
}

// AllMerged returns every former canonical merged, directly or
// transitively, into the set rooted at canon, across all layers.
func (s *CongruentSets) AllMerged(canon ic.Arg) []ic.Arg {
	var out []ic.Arg
	seen := map[string]bool{canon.Key(): true}
	work := []string{canon.Key()}
	for len(work) > 0 {
		k := work[len(work)-1]
		work = work[:len(work)-1]
		for l := s; l != nil; l = l.parent {
			for _, m := range l.merged[k] {
				if seen[m.Key()] {
					continue
				}
				seen[m.Key()] = true
				out = append(out, m)
				work = append(work, m.Key())
			}
		}
	}
	return out
}

// MergedThisScope returns the former canonicals merged into canon's set
// in this layer only.
func (s *CongruentSets) MergedThisScope(canon ic.Arg) []ic.Arg {
	var out []ic.Arg
	seen := map[string]bool{canon.Key(): true}
	work := []string{canon.Key()}
	for len(work) > 0 {
		k := work[len(work)-1]
		work = work[:len(work)-1]
		for _, m := range s.merged[k] {
			if !seen[m.Key()] {
				seen[m.Key()] = true
				out = append(out, m)
				work = append(work, m.Key())
			}
		}
	}
	return out
}

// Replacements maps every non-canonical var visible in this layer to its
// canonical member. Vars whose canonical member is rejected by accessible
// are left out.
func (s *CongruentSets) Replacements(accessible func(*ic.Var) bool) ic.Renames {
	keys := make(map[string]bool)
	for l := s; l != nil; l = l.parent {
		for k := range l.link {
			if strings.HasPrefix(k, "v:") {
				keys[k] = true
			}
		}
	}
	out := make(ic.Renames)
	for k := range keys {
		a, ok := s.lookupArg(k)
		if !ok || !a.IsVar() {
			continue
		}
		canon := s.FindArg(a)
		if canon.Key() == k {
			continue
		}
		if canon.IsVar() && accessible != nil && !accessible(canon.Var) {
			continue
		}
		out[a.Var.Name] = canon
	}
	return out
}

// String dumps the sets for debugging, sorted by key.
func (s *CongruentSets) String() string {
	keys := make(map[string]bool)
	for l := s; l != nil; l = l.parent {
		for k := range l.link {
			keys[k] = true
		}
	}
	sorted := make([]string, 0, len(keys))
	for k := range keys {
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)
	var sb strings.Builder
	sb.WriteString(s.typ.String() + ":\n")
	for _, k := range sorted {
		r, _ := s.root(k)
		sb.WriteString("  " + k + " -> " + r + "\n")
	}
	return sb.String()
}

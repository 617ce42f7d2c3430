package refcount

import (
	"strings"

	"github.com/roach88/weft/internal/ic"
)

// DerefMarker is the path element for dereferencing a ref.
const DerefMarker = "*"

// AliasKey names a location structurally: a root var followed by struct
// field names and dereference markers.
type AliasKey struct {
	Var  *ic.Var
	Path []string
}

// RootKey is the key of v itself.
func RootKey(v *ic.Var) AliasKey { return AliasKey{Var: v} }

// Append returns the key of elem within k.
func (k AliasKey) Append(elem string) AliasKey {
	path := make([]string, len(k.Path), len(k.Path)+1)
	copy(path, k.Path)
	return AliasKey{Var: k.Var, Path: append(path, elem)}
}

// Prefix returns the key made of the root and the first n path elements.
func (k AliasKey) Prefix(n int) AliasKey {
	return AliasKey{Var: k.Var, Path: k.Path[:n:n]}
}

// IsRoot reports a key with an empty path.
func (k AliasKey) IsRoot() bool { return len(k.Path) == 0 }

// String is unique per key and is used to index counters.
func (k AliasKey) String() string {
	if len(k.Path) == 0 {
		return k.Var.Name
	}
	return k.Var.Name + "." + strings.Join(k.Path, ".")
}

// Alias records that Child names Field (or DerefMarker) of Parent.
type Alias struct {
	Parent *ic.Var
	Field  string
	Child  *ic.Var
}

// AliasTracker maps vars to their structural location and back. A child
// tracker sees its parent's facts and records new ones locally.
type AliasTracker struct {
	parent *AliasTracker
	byKey  map[string]*ic.Var
	canon  map[string]AliasKey
}

// NewAliasTracker creates a root tracker.
func NewAliasTracker() *AliasTracker {
	return &AliasTracker{
		byKey: make(map[string]*ic.Var),
		canon: make(map[string]AliasKey),
	}
}

// Child creates a tracker for a nested block.
func (t *AliasTracker) Child() *AliasTracker {
	c := NewAliasTracker()
	c.parent = t
	return c
}

// Update records the aliases established by in.
func (t *AliasTracker) Update(in *ic.Instruction) []Alias {
	switch in.Op {
	case ic.OpStructLookup:
		parent := in.Inputs[0].Var
		return t.add(parent, in.Field, in.Outputs[0])
	case ic.OpLoadRef:
		parent := in.Inputs[0].Var
		return t.add(parent, DerefMarker, in.Outputs[0])
	case ic.OpCopyRef:
		// dst names the same storage as src.
		src, dst := in.Inputs[0].Var, in.Outputs[0]
		key := t.Canonical(src)
		if _, ok := t.lookupCanon(dst.Name); !ok {
			t.canon[dst.Name] = key
		}
	}
	return nil
}

func (t *AliasTracker) add(parent *ic.Var, field string, child *ic.Var) []Alias {
	key := t.Canonical(parent).Append(field)
	if _, ok := t.lookupCanon(child.Name); ok {
		return nil
	}
	t.canon[child.Name] = key
	if t.FindVar(key) == nil {
		t.byKey[key.String()] = child
	}
	return []Alias{{Parent: parent, Field: field, Child: child}}
}

func (t *AliasTracker) lookupCanon(name string) (AliasKey, bool) {
	for s := t; s != nil; s = s.parent {
		if k, ok := s.canon[name]; ok {
			return k, true
		}
	}
	return AliasKey{}, false
}

// FindVar returns the var first bound at key, or nil.
func (t *AliasTracker) FindVar(key AliasKey) *ic.Var {
	if key.IsRoot() {
		return key.Var
	}
	k := key.String()
	for s := t; s != nil; s = s.parent {
		if v, ok := s.byKey[k]; ok {
			return v
		}
	}
	return nil
}

// Canonical returns the structural key of v, which is v's root key when
// v is not known to be part of another var.
func (t *AliasTracker) Canonical(v *ic.Var) AliasKey {
	if k, ok := t.lookupCanon(v.Name); ok {
		return k
	}
	return RootKey(v)
}

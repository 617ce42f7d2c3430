package ic

import (
	"fmt"
	"sort"
)

// Storage is the allocation class of a Var.
type Storage int

const (
	StorageStack Storage = iota
	StorageTemp
	StorageAlias
	StorageLocal
	StorageGlobalConst
)

var storageNames = [...]string{"stack", "temp", "alias", "local", "global_const"}

func (s Storage) String() string {
	if int(s) < 0 || int(s) >= len(storageNames) {
		return fmt.Sprintf("storage(%d)", int(s))
	}
	return storageNames[s]
}

// ParseStorage maps a storage name to its Storage.
func ParseStorage(name string) (Storage, bool) {
	for i, n := range storageNames {
		if n == name {
			return Storage(i), true
		}
	}
	return 0, false
}

// DefType records where a Var was defined.
type DefType int

const (
	DefLocalUser DefType = iota
	DefLocalCompiler
	DefInArg
	DefOutArg
	DefGlobalConst
)

var defTypeNames = [...]string{"local_user", "local_compiler", "inarg", "outarg", "global_const"}

func (d DefType) String() string {
	if int(d) < 0 || int(d) >= len(defTypeNames) {
		return fmt.Sprintf("deftype(%d)", int(d))
	}
	return defTypeNames[d]
}

// Var is a named storage location. Identity is by Name.
//
// Mapping, when set, is a string future naming the file that backs a
// mapped Var; writes to a mapped Var are externally visible.
type Var struct {
	Name    string
	Type    *Type
	Storage Storage
	DefType DefType
	Mapping *Var
}

// NewVar creates an unmapped Var.
func NewVar(name string, t *Type, storage Storage, def DefType) *Var {
	return &Var{Name: name, Type: t, Storage: storage, DefType: def}
}

// WithMapping returns a copy of v mapped to m.
func (v *Var) WithMapping(m *Var) *Var {
	c := *v
	c.Mapping = m
	return &c
}

// IsMapped reports whether v has a backing file mapping.
func (v *Var) IsMapped() bool { return v.Mapping != nil }

// Equal compares by name.
func (v *Var) Equal(o *Var) bool {
	if v == nil || o == nil {
		return v == o
	}
	return v.Name == o.Name
}

// AlwaysClosed reports vars whose contents are available as soon as they
// are in scope: local values and global constants.
func (v *Var) AlwaysClosed() bool {
	return v.Storage == StorageLocal || v.Storage == StorageGlobalConst
}

// IsAlias reports whether v is a handle to storage owned by another var.
func (v *Var) IsAlias() bool { return v.Storage == StorageAlias }

func (v *Var) String() string { return v.Name }

// Declaration renders "type name", "type name <storage>" for non-stack
// vars and a trailing "@mapping" for mapped vars.
func (v *Var) Declaration() string {
	s := v.Type.String() + " " + v.Name
	if v.Storage != StorageStack {
		s += " <" + v.Storage.String() + ">"
	}
	if v.Mapping != nil {
		s += " @" + v.Mapping.Name
	}
	return s
}

// VarSet is a set of vars keyed by name.
type VarSet map[string]*Var

// NewVarSet builds a set from vars.
func NewVarSet(vars ...*Var) VarSet {
	s := make(VarSet, len(vars))
	for _, v := range vars {
		s.Add(v)
	}
	return s
}

func (s VarSet) Add(v *Var) { s[v.Name] = v }

func (s VarSet) AddAll(vars []*Var) {
	for _, v := range vars {
		s[v.Name] = v
	}
}

func (s VarSet) Has(v *Var) bool {
	_, ok := s[v.Name]
	return ok
}

func (s VarSet) Remove(v *Var) { delete(s, v.Name) }

// Sorted returns the members ordered by name.
func (s VarSet) Sorted() []*Var {
	out := make([]*Var, 0, len(s))
	for _, v := range s {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Names returns the sorted member names.
func (s VarSet) Names() []string {
	out := make([]string, 0, len(s))
	for n := range s {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func containsVar(list []*Var, v *Var) bool {
	for _, x := range list {
		if x.Name == v.Name {
			return true
		}
	}
	return false
}

// VarNames returns the names of vars in order.
func VarNames(vars []*Var) []string {
	out := make([]string, len(vars))
	for i, v := range vars {
		out[i] = v.Name
	}
	return out
}

package ic

import (
	"fmt"
	"strings"
)

// Prim enumerates primitive element kinds.
type Prim int

const (
	PrimInt Prim = iota
	PrimFloat
	PrimString
	PrimBool
	PrimVoid
	PrimBlob
	PrimFile
)

var primNames = [...]string{"int", "float", "string", "bool", "void", "blob", "file"}

func (p Prim) String() string {
	if int(p) < 0 || int(p) >= len(primNames) {
		return fmt.Sprintf("prim(%d)", int(p))
	}
	return primNames[p]
}

// ParsePrim maps a primitive name to its Prim.
func ParsePrim(name string) (Prim, bool) {
	for i, n := range primNames {
		if n == name {
			return Prim(i), true
		}
	}
	return 0, false
}

// TypeKind distinguishes the shapes a Type can take.
type TypeKind int

const (
	KindPrimFuture TypeKind = iota
	KindPrimValue
	KindArray
	KindRef
	KindStruct
)

// StructField is one named field of a struct type.
type StructField struct {
	Name string
	Type *Type
}

// Type is the static type of a Var or Arg.
//
// Primitive futures and primitive values share a Prim. Arrays carry their
// member type, refs the referenced type, structs an ordered field list.
type Type struct {
	Kind       TypeKind
	Prim       Prim
	Member     *Type
	StructName string
	Fields     []StructField
}

// Common types.
var (
	TypeInt    = FutureType(PrimInt)
	TypeFloat  = FutureType(PrimFloat)
	TypeString = FutureType(PrimString)
	TypeBool   = FutureType(PrimBool)
	TypeVoid   = FutureType(PrimVoid)
	TypeBlob   = FutureType(PrimBlob)
	TypeFile   = FutureType(PrimFile)

	ValInt    = ValueType(PrimInt)
	ValFloat  = ValueType(PrimFloat)
	ValString = ValueType(PrimString)
	ValBool   = ValueType(PrimBool)
	ValVoid   = ValueType(PrimVoid)
	ValBlob   = ValueType(PrimBlob)
	ValFile   = ValueType(PrimFile)
)

// FutureType returns the future of a primitive.
func FutureType(p Prim) *Type {
	return &Type{Kind: KindPrimFuture, Prim: p}
}

// ValueType returns the local value of a primitive.
func ValueType(p Prim) *Type {
	return &Type{Kind: KindPrimValue, Prim: p}
}

// ArrayOf returns an integer-keyed array type with the given member type.
func ArrayOf(member *Type) *Type {
	return &Type{Kind: KindArray, Member: member}
}

// RefTo returns a reference type to t.
func RefTo(t *Type) *Type {
	return &Type{Kind: KindRef, Member: t}
}

// StructType returns a named struct type.
func StructType(name string, fields ...StructField) *Type {
	return &Type{Kind: KindStruct, StructName: name, Fields: fields}
}

func (t *Type) IsPrimFuture() bool { return t.Kind == KindPrimFuture }
func (t *Type) IsPrimValue() bool  { return t.Kind == KindPrimValue }
func (t *Type) IsArray() bool      { return t.Kind == KindArray }
func (t *Type) IsRef() bool        { return t.Kind == KindRef }
func (t *Type) IsStruct() bool     { return t.Kind == KindStruct }

// IsFuture reports whether values of t are produced asynchronously.
func (t *Type) IsFuture() bool { return t.Kind != KindPrimValue }

// IsFile reports whether t is a file future or file value.
func (t *Type) IsFile() bool {
	return (t.Kind == KindPrimFuture || t.Kind == KindPrimValue) && t.Prim == PrimFile
}

// IsBlob reports whether t is a blob future or blob value.
func (t *Type) IsBlob() bool {
	return (t.Kind == KindPrimFuture || t.Kind == KindPrimValue) && t.Prim == PrimBlob
}

// ValueOf returns the local value type stored in a primitive future.
func (t *Type) ValueOf() *Type {
	if t.Kind != KindPrimFuture {
		panic(fmt.Sprintf("ValueOf: %s is not a primitive future", t))
	}
	return ValueType(t.Prim)
}

// FieldType looks up a struct field.
func (t *Type) FieldType(name string) (*Type, bool) {
	if t.Kind != KindStruct {
		return nil, false
	}
	for _, f := range t.Fields {
		if f.Name == name {
			return f.Type, true
		}
	}
	return nil, false
}

// Equal reports structural equality. Structs compare by name.
func (t *Type) Equal(o *Type) bool {
	if t == o {
		return true
	}
	if t == nil || o == nil || t.Kind != o.Kind {
		return false
	}
	switch t.Kind {
	case KindPrimFuture, KindPrimValue:
		return t.Prim == o.Prim
	case KindArray, KindRef:
		return t.Member.Equal(o.Member)
	case KindStruct:
		return t.StructName == o.StructName
	}
	return false
}

// String renders t: "int" future, "$int" value, "int[]" array,
// "*int" ref, "struct name" struct.
func (t *Type) String() string {
	if t == nil {
		return "<nil>"
	}
	switch t.Kind {
	case KindPrimFuture:
		return t.Prim.String()
	case KindPrimValue:
		return "$" + t.Prim.String()
	case KindArray:
		return t.Member.String() + "[]"
	case KindRef:
		return "*" + t.Member.String()
	case KindStruct:
		return "struct " + t.StructName
	}
	return fmt.Sprintf("type(%d)", int(t.Kind))
}

// Describe renders a struct with its fields; other types as String.
func (t *Type) Describe() string {
	if t.Kind != KindStruct {
		return t.String()
	}
	parts := make([]string, len(t.Fields))
	for i, f := range t.Fields {
		parts[i] = f.Type.String() + " " + f.Name
	}
	return fmt.Sprintf("struct %s {%s}", t.StructName, strings.Join(parts, "; "))
}

// CanPassToChildTask reports whether a var of type t can be handed to a
// task that may run elsewhere. Local blob and file handles cannot.
func (t *Type) CanPassToChildTask() bool {
	if t.Kind == KindPrimValue && (t.Prim == PrimBlob || t.Prim == PrimFile) {
		return false
	}
	return true
}

// Package types defines the static type system carried through inference
// and the optimizer (spec §3, §4.3): InferType (with fresh type variables
// and the Dynamic escape hatch), and ResolvedType, the defensive form the
// backend's opcode selector consumes. Grounded on the shape of the
// teacher's lang/types value-kind files (one small type per file, a Kind
// label, a String method) but repurposed from runtime value kinds to
// static types.
package types

import "fmt"

// Kind discriminates a concrete base type.
type Kind uint8

const (
	KindInt Kind = iota
	KindI8
	KindI16
	KindI32
	KindI64
	KindU8
	KindU16
	KindU32
	KindU64
	KindF32
	KindF64
	KindFloat
	KindBool
	KindNull
	KindString
	KindFunction
	KindArray
	KindVec
	KindRange
	KindStruct
	KindDynamic
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindI8:
		return "i8"
	case KindI16:
		return "i16"
	case KindI32:
		return "i32"
	case KindI64:
		return "i64"
	case KindU8:
		return "u8"
	case KindU16:
		return "u16"
	case KindU32:
		return "u32"
	case KindU64:
		return "u64"
	case KindF32:
		return "f32"
	case KindF64:
		return "f64"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindFunction:
		return "function"
	case KindArray:
		return "Array"
	case KindVec:
		return "Vec"
	case KindRange:
		return "Range"
	case KindStruct:
		return "struct"
	case KindDynamic:
		return "Dynamic"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// IsNumeric reports whether k is one of the `numeric` candidates used by
// the OneOf("numeric", ...) constraint (spec §4.3).
func (k Kind) IsNumeric() bool {
	switch k {
	case KindInt, KindI8, KindI16, KindI32, KindI64,
		KindU8, KindU16, KindU32, KindU64, KindF32, KindF64, KindFloat:
		return true
	default:
		return false
	}
}

// IsInteger reports whether k is one of the `integer` candidates used by
// bitwise operators (spec §4.3).
func (k Kind) IsInteger() bool {
	switch k {
	case KindInt, KindI8, KindI16, KindI32, KindI64, KindU8, KindU16, KindU32, KindU64:
		return true
	default:
		return false
	}
}

// TyVar is a fresh type variable identity assigned to every expression that
// does not imply a concrete type (spec §4.3).
type TyVar uint32

// InferType is the type carried through a single inference pass: a
// concrete Kind, a still-unresolved variable, Dynamic (unifies with
// anything), a function type, a parameterized collection, or a named
// struct type.
type InferType struct {
	Kind     Kind
	Var      TyVar // valid iff Kind == 0 marker via IsVar; see IsVar
	isVar    bool
	Elem     *InferType // Array<T>/Vec<T> element type, or Range has none
	Params   []*InferType
	Result   *InferType // function return type
	Name     string     // struct name, when Kind == KindStruct
}

// Var returns a fresh unresolved type variable.
func Var(v TyVar) *InferType { return &InferType{isVar: true, Var: v} }

// IsVar reports whether t is an unresolved type variable.
func (t *InferType) IsVar() bool { return t != nil && t.isVar }

// Concrete wraps a base Kind with no parameters.
func Concrete(k Kind) *InferType { return &InferType{Kind: k} }

// Dynamic is the escape-hatch type: it unifies with anything (spec §4.3).
var Dynamic = &InferType{Kind: KindDynamic}

// Func builds a function InferType.
func Func(params []*InferType, result *InferType) *InferType {
	return &InferType{Kind: KindFunction, Params: params, Result: result}
}

// Collection builds an Array<elem> or Vec<elem> InferType.
func Collection(k Kind, elem *InferType) *InferType {
	return &InferType{Kind: k, Elem: elem}
}

// Struct builds a named struct InferType.
func Struct(name string) *InferType { return &InferType{Kind: KindStruct, Name: name} }

func (t *InferType) String() string {
	if t == nil {
		return "<nil type>"
	}
	if t.isVar {
		return fmt.Sprintf("'t%d", t.Var)
	}
	switch t.Kind {
	case KindFunction:
		return fmt.Sprintf("fn(%v) -> %v", t.Params, t.Result)
	case KindArray, KindVec:
		return fmt.Sprintf("%s<%v>", t.Kind, t.Elem)
	case KindStruct:
		return t.Name
	default:
		return t.Kind.String()
	}
}

// ResolvedType is the defensive version of InferType consumed by the
// backend's opcode selector (spec §3, §4.5): unresolved variables become
// Dynamic, and Uncertain(inner) marks a value that statically appears to
// be inner but needs a runtime guard.
type ResolvedType struct {
	Kind      Kind
	Uncertain bool
	Elem      *ResolvedType
	Params    []*ResolvedType
	Result    *ResolvedType
	Name      string
}

// ResolvedDynamic is the fully-unknown resolved type.
var ResolvedDynamic = &ResolvedType{Kind: KindDynamic}

// ResolvedConcrete wraps a base Kind with no parameters, statically known.
func ResolvedConcrete(k Kind) *ResolvedType { return &ResolvedType{Kind: k} }

// MakeUncertain wraps t so the opcode selector emits a guarded opcode.
func MakeUncertain(t *ResolvedType) *ResolvedType {
	if t == nil {
		return ResolvedDynamic
	}
	cp := *t
	cp.Uncertain = true
	return &cp
}

func (t *ResolvedType) String() string {
	if t == nil {
		return "Dynamic"
	}
	base := t.Kind.String()
	switch t.Kind {
	case KindArray, KindVec:
		base = fmt.Sprintf("%s<%v>", t.Kind, t.Elem)
	case KindStruct:
		base = t.Name
	}
	if t.Uncertain {
		return "Uncertain(" + base + ")"
	}
	return base
}

// IsDynamic reports whether t carries no static information at all.
func (t *ResolvedType) IsDynamic() bool { return t == nil || t.Kind == KindDynamic }

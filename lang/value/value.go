// Package value defines the tagged Value representation used across the
// bytecode, heap, and VM layers. Unlike the teacher's interface-based
// machine.Value, a Value here is a small struct carrying a tag and a raw
// 64-bit payload; heap-backed kinds (strings, closures, arrays, ...) store
// only a GcRef index into the heap object table.
package value

import "fmt"

// Kind discriminates the tag of a Value.
type Kind uint8

const (
	KindInt Kind = iota
	KindFloat
	KindBool
	KindNull
	KindPtr
	KindRaw
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindNull:
		return "null"
	case KindPtr:
		return "ptr"
	case KindRaw:
		return "raw"
	default:
		return "invalid"
	}
}

// MaxInt and MinInt bound the 48-bit signed integer range that fits in the
// Value's int tag (spec §3).
const (
	MaxInt = 1<<47 - 1
	MinInt = -1 << 47
)

// GcRef is a non-owning index into the heap object table. It is never a raw
// pointer; dangling references are detected at access time as runtime
// errors.
type GcRef uint32

// NilRef is the reserved "no object" ref value.
const NilRef GcRef = 0

// Value is the tagged union carried in every register, constant, and
// upvalue slot. The representation is encapsulated: callers use the As*/Is*
// accessors below rather than reading the fields directly.
type Value struct {
	kind  Kind
	ival  int64   // KindInt, KindRaw (raw bits), KindBool (0/1)
	fval  float64 // KindFloat
	pval  GcRef   // KindPtr
}

// Null is the canonical null value.
var Null = Value{kind: KindNull}

// True and False are the canonical bool values.
var (
	True  = Value{kind: KindBool, ival: 1}
	False = Value{kind: KindBool, ival: 0}
)

// Int returns a Value holding a 48-bit signed integer. i must already fit
// MinInt..MaxInt; callers that compute arithmetic results are responsible
// for range-checking before calling Int (spec §7 OutOfMemory/TypeError on
// overflow).
func Int(i int64) Value { return Value{kind: KindInt, ival: i} }

// Float returns a Value holding a 64-bit float.
func Float(f float64) Value { return Value{kind: KindFloat, fval: f} }

// Bool returns the canonical True or False value.
func Bool(b bool) Value {
	if b {
		return True
	}
	return False
}

// Ptr returns a Value holding a heap reference.
func Ptr(ref GcRef) Value { return Value{kind: KindPtr, pval: ref} }

// Raw returns a Value holding an opaque 64-bit FFI constant.
func Raw(bits uint64) Value { return Value{kind: KindRaw, ival: int64(bits)} }

// Kind reports the value's tag.
func (v Value) Kind() Kind { return v.kind }

// IsNull is total: it reports true only for the null tag.
func (v Value) IsNull() bool { return v.kind == KindNull }

// IsTruthy is total: null and false are falsy, zero int/float are falsy,
// everything else (including heap refs) is truthy.
func (v Value) IsTruthy() bool {
	switch v.kind {
	case KindNull:
		return false
	case KindBool:
		return v.ival != 0
	case KindInt:
		return v.ival != 0
	case KindFloat:
		return v.fval != 0
	default:
		return true
	}
}

// AsInt is total: non-int kinds return (0, false).
func (v Value) AsInt() (int64, bool) {
	if v.kind != KindInt {
		return 0, false
	}
	return v.ival, true
}

// AsFloat is total: non-float kinds return (0, false).
func (v Value) AsFloat() (float64, bool) {
	if v.kind != KindFloat {
		return 0, false
	}
	return v.fval, true
}

// AsBool is total: non-bool kinds return (false, false).
func (v Value) AsBool() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.ival != 0, true
}

// AsPtr is total: non-ptr kinds return (0, false).
func (v Value) AsPtr() (GcRef, bool) {
	if v.kind != KindPtr {
		return 0, false
	}
	return v.pval, true
}

// AsRaw is total: non-raw kinds return (0, false).
func (v Value) AsRaw() (uint64, bool) {
	if v.kind != KindRaw {
		return 0, false
	}
	return uint64(v.ival), true
}

// Equal reports bit-for-bit tag+payload equality. Heap-kind value equality
// (e.g. string content equality) is handled above this package since it
// requires heap access; this is the cheap identity/ scalar comparison used
// by the VM's Eq opcode fast path.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindFloat:
		return v.fval == o.fval
	case KindPtr:
		return v.pval == o.pval
	default:
		return v.ival == o.ival
	}
}

func (v Value) String() string {
	switch v.kind {
	case KindInt:
		return fmt.Sprintf("%d", v.ival)
	case KindFloat:
		return fmt.Sprintf("%g", v.fval)
	case KindBool:
		return fmt.Sprintf("%t", v.ival != 0)
	case KindNull:
		return "null"
	case KindPtr:
		return fmt.Sprintf("ptr(%d)", v.pval)
	case KindRaw:
		return fmt.Sprintf("raw(0x%x)", uint64(v.ival))
	default:
		return "<invalid value>"
	}
}

// Package heap implements the tracing garbage-collected object store (spec
// §4.7): heap object kinds, string interning, the manual allocation region,
// and heap merging across nested compilers. Grounded on the teacher's
// lang/machine value-kind files (String, Tuple, Map), adapted from
// interface-typed objects addressed by pointer to tagged ObjectKind structs
// addressed by value.GcRef.
package heap

import (
	"github.com/aelys-lang/aelys/lang/token"
	"github.com/aelys-lang/aelys/lang/value"
)

// ObjectKind discriminates the kind of a heap Object.
type ObjectKind uint8

const (
	KindString ObjectKind = iota
	KindFunction
	KindClosure
	KindUpvalue
	KindNative
	KindArray
	KindVec
	KindRange
	KindByteBuffer
	KindFile
	KindSocket
	KindTimer
)

func (k ObjectKind) String() string {
	switch k {
	case KindString:
		return "String"
	case KindFunction:
		return "Function"
	case KindClosure:
		return "Closure"
	case KindUpvalue:
		return "Upvalue"
	case KindNative:
		return "Native"
	case KindArray:
		return "Array"
	case KindVec:
		return "Vec"
	case KindRange:
		return "Range"
	case KindByteBuffer:
		return "ByteBuffer"
	case KindFile:
		return "File"
	case KindSocket:
		return "Socket"
	case KindTimer:
		return "Timer"
	default:
		return "invalid"
	}
}

// VecElemTag specializes a Vec's element storage.
type VecElemTag uint8

const (
	VecInt VecElemTag = iota
	VecFloat
	VecBool
	VecObject
)

// UpvalueState discriminates Open vs Closed upvalues (spec §3, §4.8).
type UpvalueState uint8

const (
	UpvalueOpen UpvalueState = iota
	UpvalueClosed
)

// Object is a heap-allocated value. Every object carries {kind, size,
// mark-bit, next-in-sweep-list} (spec §3) plus a kind-specific payload.
type Object struct {
	Kind ObjectKind
	Size int
	Mark bool
	Next GcRefOrNone

	Str       string          // KindString
	Fn        *Function       // KindFunction
	Closure   *Closure        // KindClosure
	Upvalue   *Upvalue        // KindUpvalue
	Native    *NativeFunc     // KindNative
	Array     []value.Value   // KindArray
	Vec       *Vec            // KindVec
	Range     *Range          // KindRange
	ByteBuf   []byte          // KindByteBuffer
	Resource  *Resource       // KindFile, KindSocket, KindTimer
}

// GcRefOrNone is a GcRef that may be absent (0 is never a valid live ref
// since slot 0 is reserved, see Heap.alloc).
type GcRefOrNone = value.GcRef

// Vec is a specialized homogeneous vector (spec §3).
type Vec struct {
	Elem  VecElemTag
	Ints  []int64
	Flts  []float64
	Bools []bool
	Objs  []value.Value
}

func (v *Vec) Len() int {
	switch v.Elem {
	case VecInt:
		return len(v.Ints)
	case VecFloat:
		return len(v.Flts)
	case VecBool:
		return len(v.Bools)
	default:
		return len(v.Objs)
	}
}

// Range is a lazily-iterated numeric range, inclusive flag per spec §4.2.
type Range struct {
	Lo, Hi    int64
	Inclusive bool
}

// Upvalue is Open{frame_base, register} or Closed{Value} (spec §3).
type Upvalue struct {
	State     UpvalueState
	FrameBase int
	Register  int
	Closed    value.Value
}

// Function is a compiled function (spec §3). Bytecode/constants live in the
// lang/bytecode package; heap only stores the GcRef pointing at one.
type Function struct {
	Name         string
	Arity        int
	NumRegisters int
	// Code is the bytecode.Function this heap object wraps. Declared as
	// `any` here to avoid an import cycle (bytecode imports heap for
	// constant Values); lang/vm type-asserts it back.
	Code any
	Verified bool
}

// Closure is a function plus its captured upvalues (spec §3).
type Closure struct {
	Fn       GcRefOrNone // ref to a KindFunction object
	Upvalues []GcRefOrNone
}

// NativeFunc is a foreign function pointer plus arity and qualified name
// (spec §3, §4.9).
type NativeFunc struct {
	QualifiedName string
	Arity         int
	Variadic      bool
	Fn            func(args []value.Value) (value.Value, error)
}

// Resource backs File/Socket/Timer heap objects (spec §3); the concrete
// handle is owned by the stdlib package that created it.
type Resource struct {
	Kind    ObjectKind
	Closed  bool
	Handle  any
	Span    token.Span
}

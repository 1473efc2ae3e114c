package heap

import (
	"fmt"

	"github.com/dolthub/swiss"

	"github.com/aelys-lang/aelys/lang/value"
)

// ErrOutOfMemory is returned when an allocation would exceed the configured
// heap budget (spec §4.7).
type ErrOutOfMemory struct {
	Requested, Budget, InUse int
}

func (e *ErrOutOfMemory) Error() string {
	return fmt.Sprintf("out of memory: requested %d bytes, %d/%d in use", e.Requested, e.InUse, e.Budget)
}

// Heap is the tracing garbage-collected object store plus the manual
// allocation region (spec §4.7). Slot 0 of objects is reserved so that the
// zero value of value.GcRef (NilRef) never aliases a live object.
type Heap struct {
	objects   []*Object
	freeList  []value.GcRef
	bytesUsed int
	maxBytes  int // 0 means unbounded

	interned *swiss.Map[string, value.GcRef]

	manual *manualRegion
}

// New creates an empty Heap with the given byte budget (0 = unbounded).
func New(maxBytes int) *Heap {
	h := &Heap{
		objects:  make([]*Object, 1, 64), // index 0 reserved
		interned: swiss.NewMap[string, value.GcRef](64),
		maxBytes: maxBytes,
	}
	h.manual = newManualRegion(h)
	return h
}

// approxSize estimates an object's byte footprint for budget accounting.
// This is a coarse accounting scheme, not a precise allocator; it exists
// only to bound total heap growth (spec §4.7 max_heap_bytes).
func approxSize(o *Object) int {
	const headerSize = 32
	switch o.Kind {
	case KindString:
		return headerSize + len(o.Str)
	case KindArray:
		return headerSize + len(o.Array)*16
	case KindByteBuffer:
		return headerSize + len(o.ByteBuf)
	case KindVec:
		switch o.Vec.Elem {
		case VecInt:
			return headerSize + len(o.Vec.Ints)*8
		case VecFloat:
			return headerSize + len(o.Vec.Flts)*8
		case VecBool:
			return headerSize + len(o.Vec.Bools)
		default:
			return headerSize + len(o.Vec.Objs)*16
		}
	default:
		return headerSize
	}
}

// alloc installs a new object and returns its ref, enforcing the heap
// budget.
func (h *Heap) alloc(o *Object) (value.GcRef, error) {
	sz := approxSize(o)
	if h.maxBytes > 0 && h.bytesUsed+sz > h.maxBytes {
		return 0, &ErrOutOfMemory{Requested: sz, Budget: h.maxBytes, InUse: h.bytesUsed}
	}
	o.Size = sz
	h.bytesUsed += sz

	if n := len(h.freeList); n > 0 {
		ref := h.freeList[n-1]
		h.freeList = h.freeList[:n-1]
		h.objects[ref] = o
		return ref, nil
	}
	ref := value.GcRef(len(h.objects))
	h.objects = append(h.objects, o)
	return ref, nil
}

// Get dereferences a GcRef, returning an error for a dangling or
// out-of-range reference (spec §3: dangling references are runtime errors).
func (h *Heap) Get(ref value.GcRef) (*Object, error) {
	if ref == value.NilRef || int(ref) >= len(h.objects) || h.objects[ref] == nil {
		return nil, fmt.Errorf("invalid heap reference %d", ref)
	}
	return h.objects[ref], nil
}

// InternString returns a Value pointing at the interned String object for
// s, creating it on first use (spec §4.7: strings are interned through a
// content-keyed table so equal literals share identity).
func (h *Heap) InternString(s string) (value.Value, error) {
	if ref, ok := h.interned.Get(s); ok {
		return value.Ptr(ref), nil
	}
	ref, err := h.alloc(&Object{Kind: KindString, Str: s})
	if err != nil {
		return value.Value{}, err
	}
	h.interned.Put(s, ref)
	return value.Ptr(ref), nil
}

// NewFunction allocates a Function heap object and returns a Value pointing
// at it.
func (h *Heap) NewFunction(fn *Function) (value.Value, error) {
	ref, err := h.alloc(&Object{Kind: KindFunction, Fn: fn})
	if err != nil {
		return value.Value{}, err
	}
	return value.Ptr(ref), nil
}

// NewClosure allocates a Closure heap object and returns a Value pointing
// at it.
func (h *Heap) NewClosure(c *Closure) (value.Value, error) {
	ref, err := h.alloc(&Object{Kind: KindClosure, Closure: c})
	if err != nil {
		return value.Value{}, err
	}
	return value.Ptr(ref), nil
}

// NewOpenUpvalue allocates an Open upvalue referencing (frameBase, reg).
func (h *Heap) NewOpenUpvalue(frameBase, reg int) (value.GcRef, error) {
	return h.alloc(&Object{Kind: KindUpvalue, Upvalue: &Upvalue{
		State: UpvalueOpen, FrameBase: frameBase, Register: reg,
	}})
}

// NewNative allocates a Native heap object.
func (h *Heap) NewNative(n *NativeFunc) (value.Value, error) {
	ref, err := h.alloc(&Object{Kind: KindNative, Native: n})
	if err != nil {
		return value.Value{}, err
	}
	return value.Ptr(ref), nil
}

// NewArray allocates a generic Array heap object.
func (h *Heap) NewArray(elems []value.Value) (value.Value, error) {
	ref, err := h.alloc(&Object{Kind: KindArray, Array: elems})
	if err != nil {
		return value.Value{}, err
	}
	return value.Ptr(ref), nil
}

// NewVec allocates a specialized Vec heap object.
func (h *Heap) NewVec(v *Vec) (value.Value, error) {
	ref, err := h.alloc(&Object{Kind: KindVec, Vec: v})
	if err != nil {
		return value.Value{}, err
	}
	return value.Ptr(ref), nil
}

// NewRange allocates a Range heap object.
func (h *Heap) NewRange(r *Range) (value.Value, error) {
	ref, err := h.alloc(&Object{Kind: KindRange, Range: r})
	if err != nil {
		return value.Value{}, err
	}
	return value.Ptr(ref), nil
}

// NewResource allocates a File, Socket, or Timer heap object wrapping an
// arbitrary Go handle (spec §3); kind must be one of those three. The
// stdlib package that creates the handle owns closing it and sets Closed.
func (h *Heap) NewResource(kind ObjectKind, res *Resource) (value.Value, error) {
	switch kind {
	case KindFile, KindSocket, KindTimer:
	default:
		return value.Value{}, fmt.Errorf("NewResource: kind %s is not a resource kind", kind)
	}
	res.Kind = kind
	ref, err := h.alloc(&Object{Kind: kind, Resource: res})
	if err != nil {
		return value.Value{}, err
	}
	return value.Ptr(ref), nil
}

// BytesUsed reports current GC-tracked heap usage, for diagnostics.
func (h *Heap) BytesUsed() int { return h.bytesUsed }

// NumObjects reports the live object-table length, including freed slots.
func (h *Heap) NumObjects() int { return len(h.objects) }

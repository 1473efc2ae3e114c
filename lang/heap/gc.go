package heap

import "github.com/aelys-lang/aelys/lang/value"

// Roots supplies the GC's root set (spec §4.7): the register file up to
// next_register, the open-upvalue list, the global dispatch table, and the
// call-frame chain. The VM implements this interface; heap stays ignorant
// of frame/register layout.
type Roots interface {
	// WalkRoots calls visit for every Value directly reachable as a root.
	WalkRoots(visit func(value.Value))
	// OpenUpvalues returns the refs of every currently-open upvalue.
	OpenUpvalues() []value.GcRef
}

// Collect runs a tracing mark-and-sweep pass rooted at roots. Objects not
// reached are returned to the free list and their budget reclaimed.
func (h *Heap) Collect(roots Roots) {
	for _, o := range h.objects {
		if o != nil {
			o.Mark = false
		}
	}

	var stack []value.GcRef
	mark := func(v value.Value) {
		if ref, ok := v.AsPtr(); ok {
			stack = append(stack, ref)
		}
	}
	roots.WalkRoots(mark)
	for _, ref := range roots.OpenUpvalues() {
		stack = append(stack, ref)
	}

	for len(stack) > 0 {
		ref := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if ref == value.NilRef || int(ref) >= len(h.objects) || h.objects[ref] == nil {
			continue
		}
		o := h.objects[ref]
		if o.Mark {
			continue
		}
		o.Mark = true
		h.walkChildren(o, mark)
	}

	for ref, o := range h.objects {
		if ref == 0 || o == nil || o.Mark {
			continue
		}
		h.sweepOne(value.GcRef(ref))
	}
}

func (h *Heap) sweepOne(ref value.GcRef) {
	o := h.objects[ref]
	if o.Kind == KindString {
		h.interned.Delete(o.Str)
	}
	h.bytesUsed -= o.Size
	h.objects[ref] = nil
	h.freeList = append(h.freeList, ref)
}

func (h *Heap) walkChildren(o *Object, mark func(value.Value)) {
	switch o.Kind {
	case KindClosure:
		if o.Closure.Fn != value.NilRef {
			mark(value.Ptr(o.Closure.Fn))
		}
		for _, uv := range o.Closure.Upvalues {
			mark(value.Ptr(uv))
		}
	case KindUpvalue:
		if o.Upvalue.State == UpvalueClosed {
			mark(o.Upvalue.Closed)
		}
	case KindArray:
		for _, v := range o.Array {
			mark(v)
		}
	case KindVec:
		if o.Vec.Elem == VecObject {
			for _, v := range o.Vec.Objs {
				mark(v)
			}
		}
	}
}

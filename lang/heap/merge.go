package heap

import "github.com/aelys-lang/aelys/lang/value"

// Merge absorbs every object of other into h and returns a remap table from
// other's GcRef space to h's (spec §3, §4.7: "a heap shared across nested
// compilers via merge" / "the VM merges the foreign heap into its own and
// returns a constant-index remap"). Index 0 (reserved) maps to itself.
func (h *Heap) Merge(other *Heap) map[value.GcRef]value.GcRef {
	remap := map[value.GcRef]value.GcRef{0: 0}
	for i := 1; i < len(other.objects); i++ {
		o := other.objects[i]
		if o == nil {
			continue
		}
		oldRef := value.GcRef(i)
		if o.Kind == KindString {
			v, err := h.InternString(o.Str)
			if err == nil {
				ref, _ := v.AsPtr()
				remap[oldRef] = ref
				continue
			}
		}
		newRef, err := h.alloc(cloneObject(o))
		if err != nil {
			continue
		}
		remap[oldRef] = newRef
	}
	for oldRef, newRef := range remap {
		if oldRef == 0 {
			continue
		}
		remapObjectRefs(h.objects[newRef], remap)
	}
	return remap
}

func cloneObject(o *Object) *Object {
	cp := *o
	cp.Mark = false
	return &cp
}

// remapObjectRefs rewrites GcRef fields of a freshly-merged object from the
// source heap's index space to the destination's, using the computed remap.
func remapObjectRefs(o *Object, remap map[value.GcRef]value.GcRef) {
	switch o.Kind {
	case KindClosure:
		if nr, ok := remap[o.Closure.Fn]; ok {
			o.Closure.Fn = nr
		}
		for i, uv := range o.Closure.Upvalues {
			if nr, ok := remap[uv]; ok {
				o.Closure.Upvalues[i] = nr
			}
		}
	case KindArray:
		for i, v := range o.Array {
			if ref, ok := v.AsPtr(); ok {
				if nr, ok := remap[ref]; ok {
					o.Array[i] = value.Ptr(nr)
				}
			}
		}
	case KindVec:
		if o.Vec.Elem == VecObject {
			for i, v := range o.Vec.Objs {
				if ref, ok := v.AsPtr(); ok {
					if nr, ok := remap[ref]; ok {
						o.Vec.Objs[i] = value.Ptr(nr)
					}
				}
			}
		}
	}
}

package vm

import (
	"github.com/aelys-lang/aelys/lang/heap"
	"github.com/aelys-lang/aelys/lang/value"
)

// makeArray builds a heterogeneous Array object from the n contiguous
// registers starting at base (spec §3: Array is the general-purpose
// reference-counted sequence).
func (vm *VM) makeArray(fr *frame, base, n uint8) (value.Value, error) {
	elems := make([]value.Value, n)
	for i := uint8(0); i < n; i++ {
		elems[i] = vm.reg(fr, base+i)
	}
	v, err := vm.heap.NewArray(elems)
	if err != nil {
		return value.Value{}, runtimeErrorf("OutOfMemory", "%v", err)
	}
	return v, nil
}

// makeVec builds a Vec from the n contiguous registers starting at base,
// choosing the most specific homogeneous element storage the literal's
// values support (spec §3: Vec is the unboxed, homogeneous sibling of
// Array) and falling back to boxed Object storage the moment any element
// breaks the pattern, rather than rejecting the literal outright — Aelys
// has no static guarantee a Vec literal's elements share a type.
func (vm *VM) makeVec(fr *frame, base, n uint8) (value.Value, error) {
	vec := &heap.Vec{}
	decided := false
	for i := uint8(0); i < n; i++ {
		v := vm.reg(fr, base+i)
		if !decided {
			switch v.Kind() {
			case value.KindInt:
				vec.Elem = heap.VecInt
			case value.KindFloat:
				vec.Elem = heap.VecFloat
			case value.KindBool:
				vec.Elem = heap.VecBool
			default:
				vec.Elem = heap.VecObject
			}
			decided = true
		}
		appendVecElem(vec, v)
	}
	v, err := vm.heap.NewVec(vec)
	if err != nil {
		return value.Value{}, runtimeErrorf("OutOfMemory", "%v", err)
	}
	return v, nil
}

// appendVecElem appends v to vec, widening vec to boxed Object storage
// first if v does not match the vec's current element kind.
func appendVecElem(vec *heap.Vec, v value.Value) {
	switch vec.Elem {
	case heap.VecInt:
		if iv, ok := v.AsInt(); ok {
			vec.Ints = append(vec.Ints, iv)
			return
		}
		widenVecToObjects(vec)
	case heap.VecFloat:
		if fv, ok := v.AsFloat(); ok {
			vec.Flts = append(vec.Flts, fv)
			return
		}
		widenVecToObjects(vec)
	case heap.VecBool:
		if bv, ok := v.AsBool(); ok {
			vec.Bools = append(vec.Bools, bv)
			return
		}
		widenVecToObjects(vec)
	}
	vec.Objs = append(vec.Objs, v)
}

// widenVecToObjects migrates everything accumulated so far into boxed
// storage in place, in order, then clears the typed slices.
func widenVecToObjects(vec *heap.Vec) {
	switch vec.Elem {
	case heap.VecInt:
		for _, i := range vec.Ints {
			vec.Objs = append(vec.Objs, value.Int(i))
		}
		vec.Ints = nil
	case heap.VecFloat:
		for _, f := range vec.Flts {
			vec.Objs = append(vec.Objs, value.Float(f))
		}
		vec.Flts = nil
	case heap.VecBool:
		for _, b := range vec.Bools {
			vec.Objs = append(vec.Objs, value.Bool(b))
		}
		vec.Bools = nil
	}
	vec.Elem = heap.VecObject
}

func (vm *VM) indexGet(collection, idxVal value.Value) (value.Value, error) {
	ref, ok := collection.AsPtr()
	if !ok {
		return value.Value{}, runtimeErrorf("TypeMismatch", "index: %s is not indexable", collection.Kind())
	}
	obj, err := vm.heap.Get(ref)
	if err != nil {
		return value.Value{}, runtimeErrorf("InvalidReference", "%v", err)
	}
	idx, ok := idxVal.AsInt()
	if !ok {
		return value.Value{}, runtimeErrorf("TypeMismatch", "index: subscript is not an int")
	}
	switch obj.Kind {
	case heap.KindArray:
		if idx < 0 || int(idx) >= len(obj.Array) {
			return value.Value{}, runtimeErrorf("OutOfBounds", "array index %d out of range (len %d)", idx, len(obj.Array))
		}
		return obj.Array[idx], nil
	case heap.KindVec:
		if idx < 0 || int(idx) >= obj.Vec.Len() {
			return value.Value{}, runtimeErrorf("OutOfBounds", "vec index %d out of range (len %d)", idx, obj.Vec.Len())
		}
		return vecElemAt(obj.Vec, int(idx)), nil
	case heap.KindString:
		r, ok := runeAt(obj.Str, int(idx))
		if !ok {
			return value.Value{}, runtimeErrorf("OutOfBounds", "string index %d out of range", idx)
		}
		return vm.internRune(r)
	default:
		return value.Value{}, runtimeErrorf("TypeMismatch", "index: %s is not indexable", obj.Kind)
	}
}

func (vm *VM) indexSet(collection, idxVal, val value.Value) error {
	ref, ok := collection.AsPtr()
	if !ok {
		return runtimeErrorf("TypeMismatch", "index assignment: %s is not indexable", collection.Kind())
	}
	obj, err := vm.heap.Get(ref)
	if err != nil {
		return runtimeErrorf("InvalidReference", "%v", err)
	}
	idx, ok := idxVal.AsInt()
	if !ok {
		return runtimeErrorf("TypeMismatch", "index assignment: subscript is not an int")
	}
	switch obj.Kind {
	case heap.KindArray:
		if idx < 0 || int(idx) >= len(obj.Array) {
			return runtimeErrorf("OutOfBounds", "array index %d out of range (len %d)", idx, len(obj.Array))
		}
		obj.Array[idx] = val
		return nil
	case heap.KindVec:
		return vm.vecSet(obj.Vec, int(idx), val)
	default:
		return runtimeErrorf("TypeMismatch", "index assignment: %s does not support element assignment", obj.Kind)
	}
}

func (vm *VM) vecSet(vec *heap.Vec, idx int, val value.Value) error {
	if idx < 0 || idx >= vec.Len() {
		return runtimeErrorf("OutOfBounds", "vec index %d out of range (len %d)", idx, vec.Len())
	}
	switch vec.Elem {
	case heap.VecInt:
		if iv, ok := val.AsInt(); ok {
			vec.Ints[idx] = iv
			return nil
		}
	case heap.VecFloat:
		if fv, ok := val.AsFloat(); ok {
			vec.Flts[idx] = fv
			return nil
		}
	case heap.VecBool:
		if bv, ok := val.AsBool(); ok {
			vec.Bools[idx] = bv
			return nil
		}
	case heap.VecObject:
		vec.Objs[idx] = val
		return nil
	}
	return runtimeErrorf("TypeMismatch", "vec element assignment: value %s does not match the vec's element kind", val.Kind())
}

// sliceValue implements OpSlice over Array, Vec, and String (spec §4.5's
// `collection[lo..hi]` form); a Null bound (the compiler's encoding for an
// omitted bound) means "from the start" / "to the end".
func (vm *VM) sliceValue(collection, loVal, hiVal value.Value) (value.Value, error) {
	ref, ok := collection.AsPtr()
	if !ok {
		return value.Value{}, runtimeErrorf("TypeMismatch", "slice: %s is not sliceable", collection.Kind())
	}
	obj, err := vm.heap.Get(ref)
	if err != nil {
		return value.Value{}, runtimeErrorf("InvalidReference", "%v", err)
	}
	switch obj.Kind {
	case heap.KindArray:
		lo, hi, err := sliceBounds(loVal, hiVal, len(obj.Array))
		if err != nil {
			return value.Value{}, err
		}
		out := make([]value.Value, hi-lo)
		copy(out, obj.Array[lo:hi])
		v, err := vm.heap.NewArray(out)
		if err != nil {
			return value.Value{}, runtimeErrorf("OutOfMemory", "%v", err)
		}
		return v, nil
	case heap.KindVec:
		lo, hi, err := sliceBounds(loVal, hiVal, obj.Vec.Len())
		if err != nil {
			return value.Value{}, err
		}
		sliced := sliceVec(obj.Vec, lo, hi)
		v, err := vm.heap.NewVec(sliced)
		if err != nil {
			return value.Value{}, runtimeErrorf("OutOfMemory", "%v", err)
		}
		return v, nil
	case heap.KindString:
		lo, hi, err := sliceBounds(loVal, hiVal, len([]rune(obj.Str)))
		if err != nil {
			return value.Value{}, err
		}
		runes := []rune(obj.Str)
		v, err := vm.heap.InternString(string(runes[lo:hi]))
		if err != nil {
			return value.Value{}, runtimeErrorf("OutOfMemory", "%v", err)
		}
		return v, nil
	default:
		return value.Value{}, runtimeErrorf("TypeMismatch", "slice: %s is not sliceable", obj.Kind)
	}
}

func sliceBounds(loVal, hiVal value.Value, length int) (int, int, error) {
	lo := 0
	if !loVal.IsNull() {
		v, ok := loVal.AsInt()
		if !ok {
			return 0, 0, runtimeErrorf("TypeMismatch", "slice: lower bound is not an int")
		}
		lo = int(v)
	}
	hi := length
	if !hiVal.IsNull() {
		v, ok := hiVal.AsInt()
		if !ok {
			return 0, 0, runtimeErrorf("TypeMismatch", "slice: upper bound is not an int")
		}
		hi = int(v)
	}
	if lo < 0 || hi > length || lo > hi {
		return 0, 0, runtimeErrorf("OutOfBounds", "slice bounds [%d:%d] out of range (len %d)", lo, hi, length)
	}
	return lo, hi, nil
}

func sliceVec(v *heap.Vec, lo, hi int) *heap.Vec {
	out := &heap.Vec{Elem: v.Elem}
	switch v.Elem {
	case heap.VecInt:
		out.Ints = append([]int64(nil), v.Ints[lo:hi]...)
	case heap.VecFloat:
		out.Flts = append([]float64(nil), v.Flts[lo:hi]...)
	case heap.VecBool:
		out.Bools = append([]bool(nil), v.Bools[lo:hi]...)
	default:
		out.Objs = append([]value.Value(nil), v.Objs[lo:hi]...)
	}
	return out
}

func (vm *VM) lengthOf(v value.Value) (value.Value, error) {
	ref, ok := v.AsPtr()
	if !ok {
		return value.Value{}, runtimeErrorf("TypeMismatch", "len: %s has no length", v.Kind())
	}
	obj, err := vm.heap.Get(ref)
	if err != nil {
		return value.Value{}, runtimeErrorf("InvalidReference", "%v", err)
	}
	switch obj.Kind {
	case heap.KindArray:
		return value.Int(int64(len(obj.Array))), nil
	case heap.KindVec:
		return value.Int(int64(obj.Vec.Len())), nil
	case heap.KindString:
		return value.Int(int64(len([]rune(obj.Str)))), nil
	case heap.KindByteBuffer:
		return value.Int(int64(len(obj.ByteBuf))), nil
	default:
		return value.Value{}, runtimeErrorf("TypeMismatch", "len: %s has no length", obj.Kind)
	}
}

// typeOf names v's runtime type as an interned string (spec §4.9's `type`
// built-in), the name a host-visible introspection API would show a script
// author rather than a Go-internal Kind identifier.
func (vm *VM) typeOf(v value.Value) (value.Value, error) {
	switch v.Kind() {
	case value.KindInt:
		return vm.internStatic("int")
	case value.KindFloat:
		return vm.internStatic("float")
	case value.KindBool:
		return vm.internStatic("bool")
	case value.KindNull:
		return vm.internStatic("null")
	case value.KindRaw:
		return vm.internStatic("pointer")
	case value.KindPtr:
		ref, _ := v.AsPtr()
		obj, err := vm.heap.Get(ref)
		if err != nil {
			return value.Value{}, runtimeErrorf("InvalidReference", "%v", err)
		}
		return vm.internStatic(heapTypeName(obj.Kind))
	default:
		return vm.internStatic("unknown")
	}
}

func heapTypeName(k heap.ObjectKind) string {
	switch k {
	case heap.KindString:
		return "string"
	case heap.KindFunction:
		return "function"
	case heap.KindClosure:
		return "closure"
	case heap.KindNative:
		return "native"
	case heap.KindArray:
		return "array"
	case heap.KindVec:
		return "vec"
	case heap.KindRange:
		return "range"
	case heap.KindByteBuffer:
		return "bytebuffer"
	case heap.KindFile:
		return "file"
	case heap.KindSocket:
		return "socket"
	case heap.KindTimer:
		return "timer"
	default:
		return "unknown"
	}
}

func (vm *VM) internStatic(name string) (value.Value, error) {
	v, err := vm.heap.InternString(name)
	if err != nil {
		return value.Value{}, runtimeErrorf("OutOfMemory", "%v", err)
	}
	return v, nil
}

func (vm *VM) internRune(r rune) (value.Value, error) {
	v, err := vm.heap.InternString(string(r))
	if err != nil {
		return value.Value{}, runtimeErrorf("OutOfMemory", "%v", err)
	}
	return v, nil
}

func runeAt(s string, idx int) (rune, bool) {
	if idx < 0 {
		return 0, false
	}
	for _, r := range s {
		if idx == 0 {
			return r, true
		}
		idx--
	}
	return 0, false
}

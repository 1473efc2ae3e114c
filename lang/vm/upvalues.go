package vm

import (
	"github.com/aelys-lang/aelys/lang/heap"
	"github.com/aelys-lang/aelys/lang/value"
)

// findOrCreateOpenUpvalue returns the Open upvalue referencing the local at
// (frameBase, register), reusing one already open over that slot so two
// closures capturing the same local share identity (spec §4.8: "installs
// (or reuses) an Open upvalue referencing (frame_base, register)").
func (vm *VM) findOrCreateOpenUpvalue(frameBase, register int) (value.GcRef, error) {
	for _, ref := range vm.openUpvalues {
		obj, err := vm.heap.Get(ref)
		if err != nil {
			continue
		}
		if obj.Upvalue.FrameBase == frameBase && obj.Upvalue.Register == register {
			return ref, nil
		}
	}
	ref, err := vm.heap.NewOpenUpvalue(frameBase, register)
	if err != nil {
		return 0, err
	}
	vm.openUpvalues = append(vm.openUpvalues, ref)
	return ref, nil
}

// readUpvalue dereferences an upvalue ref to its current value, whether
// still Open (read live off the register file) or already Closed.
func (vm *VM) readUpvalue(ref value.GcRef) (value.Value, error) {
	obj, err := vm.heap.Get(ref)
	if err != nil {
		return value.Value{}, err
	}
	uv := obj.Upvalue
	if uv.State == heap.UpvalueClosed {
		return uv.Closed, nil
	}
	return vm.registers[uv.FrameBase+uv.Register], nil
}

// writeUpvalue stores v through an upvalue ref, mutating the live register
// if still Open or the closed cell otherwise.
func (vm *VM) writeUpvalue(ref value.GcRef, v value.Value) error {
	obj, err := vm.heap.Get(ref)
	if err != nil {
		return err
	}
	uv := obj.Upvalue
	if uv.State == heap.UpvalueClosed {
		uv.Closed = v
		return nil
	}
	vm.registers[uv.FrameBase+uv.Register] = v
	return nil
}

// closeFrameUpvalues promotes every upvalue open over fr's registers at or
// above the relative index lowest to Closed, copying out its current
// register value, and drops it from the open list (spec §4.8
// close_upvalues). Called both by the explicit OpCloseUpvalues instruction
// (scope exit) and by call's deferred cleanup (frame exit), since a
// returning frame's registers are about to be reused by the next call.
func (vm *VM) closeFrameUpvalues(fr *frame, lowest uint8) error {
	kept := vm.openUpvalues[:0]
	for _, ref := range vm.openUpvalues {
		obj, err := vm.heap.Get(ref)
		if err != nil {
			return err
		}
		uv := obj.Upvalue
		if uv.FrameBase != fr.base || uv.Register < int(lowest) {
			kept = append(kept, ref)
			continue
		}
		uv.Closed = vm.registers[uv.FrameBase+uv.Register]
		uv.State = heap.UpvalueClosed
	}
	vm.openUpvalues = kept
	return nil
}

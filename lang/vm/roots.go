package vm

import "github.com/aelys-lang/aelys/lang/value"

// WalkRoots implements heap.Roots (spec §4.7/§4.8's GC root set): every
// register currently in a live frame's window, plus every known global.
// Frames never overlap (each frame's base starts where its caller's window
// ends), so the union of all active windows is exactly the contiguous range
// from 0 up to the deepest frame's high-water mark.
//
// Inline-cache words are not walked as roots: the callee they name is kept
// alive by the global table itself (the cache only ever replays a lookup
// the global table already performed), so a dangling cache is impossible as
// long as the caching code re-validates the cached ref against the current
// global value before trusting it, which execCallGlobalMono and
// execCallGlobalNative do.
func (vm *VM) WalkRoots(visit func(value.Value)) {
	if n := len(vm.frames); n > 0 {
		top := vm.frames[n-1]
		highWater := top.base + top.fn.NumRegisters
		for i := 0; i < highWater && i < len(vm.registers); i++ {
			visit(vm.registers[i])
		}
	}
	for _, v := range vm.globalValues {
		visit(v)
	}
}

// OpenUpvalues implements heap.Roots: every currently-open upvalue object
// must survive a collection even though nothing else may point at it yet.
func (vm *VM) OpenUpvalues() []value.GcRef {
	return vm.openUpvalues
}

// Collect runs a GC pass over the VM's heap using the VM itself as the root
// set.
func (vm *VM) Collect() {
	vm.heap.Collect(vm)
}

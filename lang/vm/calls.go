package vm

import (
	"github.com/aelys-lang/aelys/lang/bytecode"
	"github.com/aelys-lang/aelys/lang/heap"
	"github.com/aelys-lang/aelys/lang/value"
)

// callSite returns the index into fr.fn.Code of the call instruction itself
// and its two trailing cache words, given that runFrame has already
// advanced fr.pc past the instruction before dispatching it.
func callSite(fr *frame) (instrIdx, cache1, cache2 int) {
	return fr.pc - 1, fr.pc, fr.pc + 1
}

func argsOf(vm *VM, fr *frame, base uint8, nargs uint8) []value.Value {
	args := make([]value.Value, nargs)
	for i := uint8(0); i < nargs; i++ {
		args[i] = vm.reg(fr, base+i)
	}
	return args
}

// resolveCallable dereferences a Value expected to hold a callable (Function,
// Closure, or Native heap object) and reports a NotCallable error otherwise.
func (vm *VM) resolveCallable(v value.Value) (*heap.Object, value.GcRef, error) {
	ref, ok := v.AsPtr()
	if !ok {
		return nil, 0, runtimeErrorf("NotCallable", "value of kind %s is not callable", v.Kind())
	}
	obj, err := vm.heap.Get(ref)
	if err != nil {
		return nil, 0, runtimeErrorf("InvalidReference", "%v", err)
	}
	switch obj.Kind {
	case heap.KindFunction, heap.KindClosure, heap.KindNative:
		return obj, ref, nil
	default:
		return nil, 0, runtimeErrorf("NotCallable", "a %s value is not callable", obj.Kind)
	}
}

// invoke dispatches a resolved callable object with the given arguments,
// whichever of the three callable kinds it turns out to be.
func (vm *VM) invoke(obj *heap.Object, args []value.Value) (value.Value, error) {
	switch obj.Kind {
	case heap.KindFunction:
		fn, ok := obj.Fn.Code.(*bytecode.Function)
		if !ok {
			return value.Value{}, runtimeErrorf("InvalidReference", "function object has no compiled code")
		}
		return vm.call(fn, args, nil)
	case heap.KindClosure:
		fnObj, err := vm.heap.Get(obj.Closure.Fn)
		if err != nil {
			return value.Value{}, runtimeErrorf("InvalidReference", "%v", err)
		}
		fn, ok := fnObj.Fn.Code.(*bytecode.Function)
		if !ok {
			return value.Value{}, runtimeErrorf("InvalidReference", "closure's function object has no compiled code")
		}
		return vm.call(fn, args, obj.Closure.Upvalues)
	case heap.KindNative:
		return vm.invokeNative(obj.Native, args)
	default:
		return value.Value{}, runtimeErrorf("NotCallable", "a %s value is not callable", obj.Kind)
	}
}

func (vm *VM) invokeNative(n *heap.NativeFunc, args []value.Value) (value.Value, error) {
	if n.Variadic {
		if len(args) < n.Arity {
			return value.Value{}, runtimeErrorf("ArityMismatch", "%s expects at least %d argument(s), got %d", n.QualifiedName, n.Arity, len(args))
		}
	} else if len(args) != n.Arity {
		return value.Value{}, runtimeErrorf("ArityMismatch", "%s expects %d argument(s), got %d", n.QualifiedName, n.Arity, len(args))
	}
	v, err := n.Fn(args)
	if err != nil {
		return value.Value{}, err
	}
	return v, nil
}

// execCallGlobal handles the cold, never-yet-dispatched OpCallGlobal: it
// resolves the current global, classifies its heap kind, and rewrites the
// call site in place to the matching specialized opcode with the resolved
// ref cached in the first trailing word (spec §4.8's inline-cache install).
// Every call still goes through resolveCallable/invoke the first time; only
// later dispatches through the patched site take the validated-cache path.
func (vm *VM) execCallGlobal(fr *frame, instr bytecode.Instr) error {
	base, idx, nargs := instr.A(), instr.B(), instr.C()
	callee := vm.globalValues[idx]
	obj, ref, err := vm.resolveCallable(callee)
	if err != nil {
		return err
	}
	args := argsOf(vm, fr, base, nargs)
	result, err := vm.invoke(obj, args)
	if err != nil {
		return err
	}
	vm.setReg(fr, base, result)

	instrIdx, cache1, _ := callSite(fr)
	var specialized bytecode.Opcode
	if obj.Kind == heap.KindNative {
		specialized = bytecode.OpCallGlobalNative
	} else {
		specialized = bytecode.OpCallGlobalMono
	}
	fr.fn.Code[instrIdx] = bytecode.ABC(specialized, base, idx, nargs)
	fr.fn.Code[cache1] = bytecode.Instr(uint32(ref))
	vm.Cache.Misses++
	return nil
}

// execCallGlobalMono handles a call site already patched to target a known
// Aelys Function or Closure. Globals are mutable (OpSetGlobalIdx carries no
// immutability check), so the cached ref is re-validated against the live
// global on every dispatch; a mismatch rebuilds the cache instead of
// trusting stale data.
func (vm *VM) execCallGlobalMono(fr *frame, instr bytecode.Instr) error {
	base, idx, nargs := instr.A(), instr.B(), instr.C()
	callee := vm.globalValues[idx]
	curRef, ok := callee.AsPtr()
	_, cache1, _ := callSite(fr)
	cachedRef := value.GcRef(uint32(fr.fn.Code[cache1]))
	if ok && curRef == cachedRef {
		obj, err := vm.heap.Get(curRef)
		if err == nil && (obj.Kind == heap.KindFunction || obj.Kind == heap.KindClosure) {
			vm.Cache.Hits++
			args := argsOf(vm, fr, base, nargs)
			result, err := vm.invoke(obj, args)
			if err != nil {
				return err
			}
			vm.setReg(fr, base, result)
			return nil
		}
	}
	vm.Cache.Rebuilds++
	return vm.execCallGlobal(fr, bytecode.ABC(bytecode.OpCallGlobal, base, idx, nargs))
}

// execCallGlobalNative mirrors execCallGlobalMono for the Native-specialized
// cache form.
func (vm *VM) execCallGlobalNative(fr *frame, instr bytecode.Instr) error {
	base, idx, nargs := instr.A(), instr.B(), instr.C()
	callee := vm.globalValues[idx]
	curRef, ok := callee.AsPtr()
	_, cache1, _ := callSite(fr)
	cachedRef := value.GcRef(uint32(fr.fn.Code[cache1]))
	if ok && curRef == cachedRef {
		obj, err := vm.heap.Get(curRef)
		if err == nil && obj.Kind == heap.KindNative {
			vm.Cache.Hits++
			args := argsOf(vm, fr, base, nargs)
			result, err := vm.invokeNative(obj.Native, args)
			if err != nil {
				return err
			}
			vm.setReg(fr, base, result)
			return nil
		}
	}
	vm.Cache.Rebuilds++
	return vm.execCallGlobal(fr, bytecode.ABC(bytecode.OpCallGlobal, base, idx, nargs))
}

// execCall is the generic indirect call form: the callee occupies the same
// register as the call's base/result (spec §4.5 genericCall emits
// OpCall(base, base, nargs)), with arguments at base+1..base+nargs.
func (vm *VM) execCall(fr *frame, instr bytecode.Instr) error {
	base, calleeReg, nargs := instr.A(), instr.B(), instr.C()
	obj, _, err := vm.resolveCallable(vm.reg(fr, calleeReg))
	if err != nil {
		return err
	}
	args := argsOf(vm, fr, base+1, nargs)
	result, err := vm.invoke(obj, args)
	if err != nil {
		return err
	}
	vm.setReg(fr, base, result)
	return nil
}

// makeClosure builds a heap Closure from the nested Function constant at
// instr.B() and nupvalues (instr.C()) freshly-captured upvalues, following
// each UpvalueDesc the compiler recorded on the nested function itself
// (spec §4.5/§4.8): IsLocal captures (or reuses) an Open upvalue over the
// current frame's register Index; otherwise the descriptor aliases one of
// this frame's own upvalues transitively, with no new upvalue object
// created.
func (vm *VM) makeClosure(fr *frame, instr bytecode.Instr) (value.Value, error) {
	constIdx := instr.B()
	fnVal := fr.fn.Constants[constIdx]
	fnRef, ok := fnVal.AsPtr()
	if !ok {
		return value.Value{}, runtimeErrorf("InvalidBytecode", "makeclosure: constant %d is not a function reference", constIdx)
	}
	fnObj, err := vm.heap.Get(fnRef)
	if err != nil {
		return value.Value{}, runtimeErrorf("InvalidReference", "%v", err)
	}
	childFn, ok := fnObj.Fn.Code.(*bytecode.Function)
	if !ok {
		return value.Value{}, runtimeErrorf("InvalidBytecode", "makeclosure: constant %d has no compiled code", constIdx)
	}

	upvalues := make([]value.GcRef, len(childFn.Upvalues))
	for i, desc := range childFn.Upvalues {
		if desc.IsLocal {
			ref, err := vm.findOrCreateOpenUpvalue(fr.base, int(desc.Index))
			if err != nil {
				return value.Value{}, runtimeErrorf("OutOfMemory", "%v", err)
			}
			upvalues[i] = ref
		} else {
			if int(desc.Index) >= len(fr.upvalues) {
				return value.Value{}, runtimeErrorf("InvalidBytecode", "makeclosure: upvalue index %d out of range", desc.Index)
			}
			upvalues[i] = fr.upvalues[desc.Index]
		}
	}

	v, err := vm.heap.NewClosure(&heap.Closure{Fn: fnRef, Upvalues: upvalues})
	if err != nil {
		return value.Value{}, runtimeErrorf("OutOfMemory", "%v", err)
	}
	return v, nil
}

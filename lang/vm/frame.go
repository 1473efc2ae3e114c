package vm

import (
	"github.com/aelys-lang/aelys/lang/bytecode"
	"github.com/aelys-lang/aelys/lang/value"
)

// frame is one activation record (spec §4.8's CallFrame): the function being
// executed, the base register of its window into the VM's flat register
// file, its captured upvalues (non-nil only when the callable is a Closure),
// and the instruction pointer.
type frame struct {
	fn       *bytecode.Function
	base     int
	upvalues []value.GcRef
	pc       int
}

// call is the single entry point for invoking a compiled Aelys function,
// whether from Run (the top-level chunk), a Closure dispatch, or a nested
// OpCall/OpCallGlobal executed by runFrame. It verifies fn on first use,
// checks arity, allocates a fresh register window atop the caller's, and
// runs the frame to completion (spec §4.8 "Function"/"Closure" call kinds).
func (vm *VM) call(fn *bytecode.Function, args []value.Value, upvalues []value.GcRef) (value.Value, error) {
	if err := vm.rebuildGlobalsIfNeeded(fn); err != nil {
		return value.Value{}, err
	}
	if !fn.Verified {
		if err := bytecode.Verify(fn); err != nil {
			return value.Value{}, runtimeErrorf("InvalidBytecode", "%v", err)
		}
	}
	if len(args) != fn.Arity {
		return value.Value{}, runtimeErrorf("ArityMismatch", "%s expects %d argument(s), got %d", fn.Name, fn.Arity, len(args))
	}
	if vm.limits.MaxCallStackDepth > 0 && len(vm.frames) >= vm.limits.MaxCallStackDepth {
		return value.Value{}, runtimeErrorf("StackOverflow", "call stack exceeds %d frames", vm.limits.MaxCallStackDepth)
	}

	base := vm.nextFreeRegister()
	vm.ensureRegisterCapacity(base + fn.NumRegisters)
	for i, a := range args {
		vm.registers[base+i] = a
	}
	for i := len(args); i < fn.NumRegisters; i++ {
		vm.registers[base+i] = value.Null
	}

	fr := &frame{fn: fn, base: base, upvalues: upvalues}
	vm.frames = append(vm.frames, fr)
	defer func() {
		vm.closeFrameUpvalues(fr, 0)
		vm.frames = vm.frames[:len(vm.frames)-1]
	}()

	if vm.limits.MaxSteps > 0 && vm.steps >= vm.limits.MaxSteps {
		return value.Value{}, runtimeErrorf("StepLimitExceeded", "program exceeded %d instructions", vm.limits.MaxSteps)
	}

	return vm.runFrame(fr)
}

// nextFreeRegister computes where the next frame's register window starts:
// immediately after the currently-deepest frame's own window (spec §4.8:
// "num_registers of the callee is added to the current base").
func (vm *VM) nextFreeRegister() int {
	if len(vm.frames) == 0 {
		return 0
	}
	top := vm.frames[len(vm.frames)-1]
	return top.base + top.fn.NumRegisters
}

// reg reads register i of fr's window.
func (vm *VM) reg(fr *frame, i uint8) value.Value {
	return vm.registers[fr.base+int(i)]
}

// setReg writes register i of fr's window. Always indexes through vm.registers
// fresh (never through a cached slice header), since a nested call executed
// between two setReg calls may have grown and reallocated the register file.
func (vm *VM) setReg(fr *frame, i uint8, v value.Value) {
	vm.registers[fr.base+int(i)] = v
}

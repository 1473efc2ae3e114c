package vm

import (
	"unicode/utf8"

	"github.com/aelys-lang/aelys/lang/bytecode"
	"github.com/aelys-lang/aelys/lang/heap"
	"github.com/aelys-lang/aelys/lang/value"
)

// runFrame is the flat instruction-dispatch loop (spec §4.8 "Dispatch"): it
// fetches, decodes, and executes fr's code until a Return/ReturnNull opcode
// unwinds it. Grounded on the teacher's lang/machine.run loop's `for { switch
// op }` shape, adapted from a stack machine's push/pop operand stack to a
// register window addressed as fr.base+operand.
func (vm *VM) runFrame(fr *frame) (value.Value, error) {
	code := fr.fn.Code
	for {
		if fr.pc >= len(code) {
			return value.Null, nil
		}
		instr := code[fr.pc]
		op := instr.Op()
		fr.pc++
		vm.steps++
		if vm.limits.MaxSteps > 0 && vm.steps > vm.limits.MaxSteps {
			return value.Value{}, runtimeErrorf("StepLimitExceeded", "program exceeded %d instructions", vm.limits.MaxSteps)
		}

		switch op {
		case bytecode.OpNop:
			// also the cache-word placeholder value; dispatch loop never
			// lands on one directly since call handling below skips past
			// them explicitly.

		case bytecode.OpLoadK:
			vm.setReg(fr, instr.A(), fr.fn.Constants[instr.B()])
		case bytecode.OpLoadNull:
			vm.setReg(fr, instr.A(), value.Null)
		case bytecode.OpLoadTrue:
			vm.setReg(fr, instr.A(), value.True)
		case bytecode.OpLoadFalse:
			vm.setReg(fr, instr.A(), value.False)
		case bytecode.OpMove:
			vm.setReg(fr, instr.A(), vm.reg(fr, instr.B()))

		case bytecode.OpAdd, bytecode.OpSub, bytecode.OpMul, bytecode.OpDiv, bytecode.OpMod:
			v, err := vm.genericArith(op, vm.reg(fr, instr.B()), vm.reg(fr, instr.C()))
			if err != nil {
				return value.Value{}, err
			}
			vm.setReg(fr, instr.A(), v)
		case bytecode.OpNeg:
			v, err := vm.negate(vm.reg(fr, instr.B()))
			if err != nil {
				return value.Value{}, err
			}
			vm.setReg(fr, instr.A(), v)

		case bytecode.OpAddII, bytecode.OpSubII, bytecode.OpMulII, bytecode.OpDivII, bytecode.OpModII:
			v, err := vm.typedIntArith(op, vm.reg(fr, instr.B()), vm.reg(fr, instr.C()))
			if err != nil {
				return value.Value{}, err
			}
			vm.setReg(fr, instr.A(), v)
		case bytecode.OpAddIIG, bytecode.OpSubIIG, bytecode.OpMulIIG, bytecode.OpDivIIG:
			left, right := vm.reg(fr, instr.B()), vm.reg(fr, instr.C())
			_, lok := left.AsInt()
			_, rok := right.AsInt()
			var v value.Value
			var err error
			if lok && rok {
				v, err = vm.typedIntArith(guardedToTypedInt(op), left, right)
			} else {
				v, err = vm.genericArith(guardedToGeneric(op), left, right)
			}
			if err != nil {
				return value.Value{}, err
			}
			vm.setReg(fr, instr.A(), v)

		case bytecode.OpAddFF, bytecode.OpSubFF, bytecode.OpMulFF, bytecode.OpDivFF:
			v, err := vm.typedFloatArith(op, vm.reg(fr, instr.B()), vm.reg(fr, instr.C()))
			if err != nil {
				return value.Value{}, err
			}
			vm.setReg(fr, instr.A(), v)
		case bytecode.OpAddFFG, bytecode.OpSubFFG, bytecode.OpMulFFG, bytecode.OpDivFFG:
			left, right := vm.reg(fr, instr.B()), vm.reg(fr, instr.C())
			_, lok := left.AsFloat()
			_, rok := right.AsFloat()
			var v value.Value
			var err error
			if lok && rok {
				v, err = vm.typedFloatArith(guardedToTypedFloat(op), left, right)
			} else {
				v, err = vm.genericArith(guardedToGeneric(op), left, right)
			}
			if err != nil {
				return value.Value{}, err
			}
			vm.setReg(fr, instr.A(), v)

		case bytecode.OpAddI, bytecode.OpSubI, bytecode.OpMulI:
			cur, ok := vm.reg(fr, instr.A()).AsInt()
			if !ok {
				return value.Value{}, runtimeErrorf("TypeMismatch", "%s: register %d is not an int", op, instr.A())
			}
			imm := int64(instr.Imm16())
			var result int64
			switch op {
			case bytecode.OpAddI:
				result = cur + imm
			case bytecode.OpSubI:
				result = cur - imm
			case bytecode.OpMulI:
				result = cur * imm
			}
			if result > value.MaxInt || result < value.MinInt {
				return value.Value{}, runtimeErrorf("OutOfMemory", "integer result %d exceeds the 48-bit range", result)
			}
			vm.setReg(fr, instr.A(), value.Int(result))

		case bytecode.OpEq:
			vm.setReg(fr, instr.A(), value.Bool(vm.valuesEqual(vm.reg(fr, instr.B()), vm.reg(fr, instr.C()))))
		case bytecode.OpNeq:
			vm.setReg(fr, instr.A(), value.Bool(!vm.valuesEqual(vm.reg(fr, instr.B()), vm.reg(fr, instr.C()))))
		case bytecode.OpLt, bytecode.OpLe, bytecode.OpGt, bytecode.OpGe:
			v, err := compareNumeric(op, vm.reg(fr, instr.B()), vm.reg(fr, instr.C()))
			if err != nil {
				return value.Value{}, err
			}
			vm.setReg(fr, instr.A(), v)

		case bytecode.OpNot:
			vm.setReg(fr, instr.A(), value.Bool(!vm.reg(fr, instr.B()).IsTruthy()))
		case bytecode.OpAnd:
			vm.setReg(fr, instr.A(), value.Bool(vm.reg(fr, instr.B()).IsTruthy() && vm.reg(fr, instr.C()).IsTruthy()))
		case bytecode.OpOr:
			vm.setReg(fr, instr.A(), value.Bool(vm.reg(fr, instr.B()).IsTruthy() || vm.reg(fr, instr.C()).IsTruthy()))
		case bytecode.OpBitAnd, bytecode.OpBitOr, bytecode.OpBitXor, bytecode.OpShl, bytecode.OpShr:
			v, err := vm.bitwise(op, vm.reg(fr, instr.B()), vm.reg(fr, instr.C()))
			if err != nil {
				return value.Value{}, err
			}
			vm.setReg(fr, instr.A(), v)
		case bytecode.OpBitNot:
			i, ok := vm.reg(fr, instr.B()).AsInt()
			if !ok {
				return value.Value{}, runtimeErrorf("TypeMismatch", "bitnot: operand is not an int")
			}
			vm.setReg(fr, instr.A(), value.Int(^i))

		case bytecode.OpJmp:
			fr.pc += int(instr.Imm16())
		case bytecode.OpJmpIfFalse:
			if !vm.reg(fr, instr.A()).IsTruthy() {
				fr.pc += int(instr.Imm16())
			}
		case bytecode.OpJmpIfTrue:
			if vm.reg(fr, instr.A()).IsTruthy() {
				fr.pc += int(instr.Imm16())
			}

		case bytecode.OpForLoopI, bytecode.OpForLoopIInc:
			cont, err := vm.forLoopStep(fr, instr, op == bytecode.OpForLoopIInc)
			if err != nil {
				return value.Value{}, err
			}
			if !cont {
				fr.pc += int(instr.Imm16())
			}

		case bytecode.OpVecForLoop, bytecode.OpArrayForLoop, bytecode.OpStringForLoop:
			cont, err := vm.forEachStep(fr, instr.A())
			if err != nil {
				return value.Value{}, err
			}
			if !cont {
				fr.pc += int(instr.Imm16())
			}

		case bytecode.OpCallGlobal:
			if err := vm.execCallGlobal(fr, instr); err != nil {
				return value.Value{}, err
			}
			fr.pc += bytecode.NumCacheWords
		case bytecode.OpCallGlobalMono:
			if err := vm.execCallGlobalMono(fr, instr); err != nil {
				return value.Value{}, err
			}
			fr.pc += bytecode.NumCacheWords
		case bytecode.OpCallGlobalNative:
			if err := vm.execCallGlobalNative(fr, instr); err != nil {
				return value.Value{}, err
			}
			fr.pc += bytecode.NumCacheWords
		case bytecode.OpCall:
			if err := vm.execCall(fr, instr); err != nil {
				return value.Value{}, err
			}

		case bytecode.OpReturn:
			return vm.reg(fr, instr.A()), nil
		case bytecode.OpReturnNull:
			return value.Null, nil

		case bytecode.OpAlloc:
			size, ok := vm.reg(fr, instr.B()).AsInt()
			if !ok {
				return value.Value{}, runtimeErrorf("TypeMismatch", "alloc: size is not an int")
			}
			ptr, err := vm.heap.Alloc(int(size))
			if err != nil {
				return value.Value{}, runtimeErrorf("OutOfMemory", "%v", err)
			}
			vm.setReg(fr, instr.A(), value.Raw(uint64(ptr)))
		case bytecode.OpFree:
			ptr, ok := vm.reg(fr, instr.A()).AsRaw()
			if !ok {
				return value.Value{}, runtimeErrorf("TypeMismatch", "free: operand is not a pointer")
			}
			if err := vm.heap.Free(int64(ptr)); err != nil {
				return value.Value{}, wrapManualError(err)
			}
		case bytecode.OpLoadMem:
			v, err := vm.loadMem(fr, instr.A(), vm.reg(fr, instr.B()))
			if err != nil {
				return value.Value{}, err
			}
			vm.setReg(fr, instr.A(), v)
		case bytecode.OpLoadMemI:
			v, err := vm.loadMem(fr, instr.B(), value.Int(int64(instr.C())))
			if err != nil {
				return value.Value{}, err
			}
			vm.setReg(fr, instr.A(), v)
		case bytecode.OpStoreMem:
			if err := vm.storeMem(fr, instr.A(), vm.reg(fr, instr.B()), vm.reg(fr, instr.C())); err != nil {
				return value.Value{}, err
			}
		case bytecode.OpStoreMemI:
			if err := vm.storeMem(fr, instr.A(), value.Int(int64(instr.B())), vm.reg(fr, instr.C())); err != nil {
				return value.Value{}, err
			}

		case bytecode.OpGetGlobalIdx:
			vm.setReg(fr, instr.A(), vm.globalValues[instr.Imm16()])
		case bytecode.OpSetGlobalIdx:
			vm.globalValues[instr.Imm16()] = vm.reg(fr, instr.A())

		case bytecode.OpMakeClosure:
			v, err := vm.makeClosure(fr, instr)
			if err != nil {
				return value.Value{}, err
			}
			vm.setReg(fr, instr.A(), v)
		case bytecode.OpGetUpvalue:
			v, err := vm.readUpvalue(fr.upvalues[instr.B()])
			if err != nil {
				return value.Value{}, err
			}
			vm.setReg(fr, instr.A(), v)
		case bytecode.OpSetUpvalue:
			if err := vm.writeUpvalue(fr.upvalues[instr.B()], vm.reg(fr, instr.A())); err != nil {
				return value.Value{}, err
			}
		case bytecode.OpCloseUpvalues:
			if err := vm.closeFrameUpvalues(fr, instr.A()); err != nil {
				return value.Value{}, err
			}

		case bytecode.OpMakeArray:
			v, err := vm.makeArray(fr, instr.B(), instr.C())
			if err != nil {
				return value.Value{}, err
			}
			vm.setReg(fr, instr.A(), v)
		case bytecode.OpMakeVec:
			v, err := vm.makeVec(fr, instr.B(), instr.C())
			if err != nil {
				return value.Value{}, err
			}
			vm.setReg(fr, instr.A(), v)
		case bytecode.OpIndexGet:
			v, err := vm.indexGet(vm.reg(fr, instr.B()), vm.reg(fr, instr.C()))
			if err != nil {
				return value.Value{}, err
			}
			vm.setReg(fr, instr.A(), v)
		case bytecode.OpIndexSet:
			if err := vm.indexSet(vm.reg(fr, instr.A()), vm.reg(fr, instr.B()), vm.reg(fr, instr.C())); err != nil {
				return value.Value{}, err
			}
		case bytecode.OpSlice:
			base := instr.B()
			v, err := vm.sliceValue(vm.reg(fr, base), vm.reg(fr, base+1), vm.reg(fr, base+2))
			if err != nil {
				return value.Value{}, err
			}
			vm.setReg(fr, instr.A(), v)
		case bytecode.OpLen:
			v, err := vm.lengthOf(vm.reg(fr, instr.B()))
			if err != nil {
				return value.Value{}, err
			}
			vm.setReg(fr, instr.A(), v)

		case bytecode.OpTypeOf:
			v, err := vm.typeOf(vm.reg(fr, instr.B()))
			if err != nil {
				return value.Value{}, err
			}
			vm.setReg(fr, instr.A(), v)

		default:
			return value.Value{}, runtimeErrorf("InvalidOpcode", "unhandled opcode %s", op)
		}
	}
}

func wrapManualError(err error) error {
	switch err.(type) {
	case *heap.ErrUseAfterFree:
		return runtimeErrorf("UseAfterFree", "%v", err)
	case *heap.ErrDoubleFree:
		return runtimeErrorf("DoubleFree", "%v", err)
	case *heap.ErrOutOfBounds:
		return runtimeErrorf("OutOfBounds", "%v", err)
	default:
		return runtimeErrorf("InvalidReference", "%v", err)
	}
}

func (vm *VM) loadMem(fr *frame, ptrReg uint8, offset value.Value) (value.Value, error) {
	ptr, ok := vm.reg(fr, ptrReg).AsRaw()
	if !ok {
		return value.Value{}, runtimeErrorf("TypeMismatch", "load: pointer operand is not a raw pointer")
	}
	off, ok := offset.AsInt()
	if !ok {
		return value.Value{}, runtimeErrorf("TypeMismatch", "load: offset is not an int")
	}
	v, err := vm.heap.Load(int64(ptr), off)
	if err != nil {
		return value.Value{}, wrapManualError(err)
	}
	return v, nil
}

func (vm *VM) storeMem(fr *frame, ptrReg uint8, offset, val value.Value) error {
	ptr, ok := vm.reg(fr, ptrReg).AsRaw()
	if !ok {
		return runtimeErrorf("TypeMismatch", "store: pointer operand is not a raw pointer")
	}
	off, ok := offset.AsInt()
	if !ok {
		return runtimeErrorf("TypeMismatch", "store: offset is not an int")
	}
	if err := vm.heap.Store(int64(ptr), off, val); err != nil {
		return wrapManualError(err)
	}
	return nil
}

// forLoopStep advances the fused for-range loop's induction register
// (already pre-biased by the compiler to Low-Step) by Step and reports
// whether the loop should keep going (spec §4.5/§4.8's combined
// step+compare+jump). base, base+1, base+2 hold [induction, limit, step].
func (vm *VM) forLoopStep(fr *frame, instr bytecode.Instr, inclusive bool) (bool, error) {
	base := instr.A()
	cur, ok := vm.reg(fr, base).AsInt()
	if !ok {
		return false, runtimeErrorf("TypeMismatch", "for-range: induction variable is not an int")
	}
	limit, ok := vm.reg(fr, base+1).AsInt()
	if !ok {
		return false, runtimeErrorf("TypeMismatch", "for-range: limit is not an int")
	}
	step, ok := vm.reg(fr, base+2).AsInt()
	if !ok {
		return false, runtimeErrorf("TypeMismatch", "for-range: step is not an int")
	}
	next := cur + step
	vm.setReg(fr, base, value.Int(next))
	if step >= 0 {
		if inclusive {
			return next <= limit, nil
		}
		return next < limit, nil
	}
	if inclusive {
		return next >= limit, nil
	}
	return next > limit, nil
}

// forEachStep advances a for-each loop over base+2 (the collection),
// tracking the current index in base+1 (started at -1 by the compiler) and
// writing the next element into base. All three for-each opcodes share this
// implementation: the opcode the compiler chose is only a static hint, and
// the VM resolves the actual heap kind of the collection at each step, the
// "falls back at runtime" behavior stmt.go's forEachOpcode documents for a
// Dynamic-typed iterable.
func (vm *VM) forEachStep(fr *frame, base uint8) (bool, error) {
	idx, ok := vm.reg(fr, base+1).AsInt()
	if !ok {
		return false, runtimeErrorf("TypeMismatch", "for-each: index register is not an int")
	}
	collection := vm.reg(fr, base+2)
	ref, ok := collection.AsPtr()
	if !ok {
		return false, runtimeErrorf("TypeMismatch", "for-each: collection is not iterable")
	}
	obj, err := vm.heap.Get(ref)
	if err != nil {
		return false, runtimeErrorf("InvalidReference", "%v", err)
	}

	switch obj.Kind {
	case heap.KindArray:
		next := idx + 1
		if int(next) >= len(obj.Array) {
			return false, nil
		}
		vm.setReg(fr, base+1, value.Int(next))
		vm.setReg(fr, base, obj.Array[next])
		return true, nil
	case heap.KindVec:
		next := idx + 1
		if int(next) >= obj.Vec.Len() {
			return false, nil
		}
		vm.setReg(fr, base+1, value.Int(next))
		vm.setReg(fr, base, vecElemAt(obj.Vec, int(next)))
		return true, nil
	case heap.KindString:
		// base+1 holds the byte offset of the last-yielded rune (-1 meaning
		// "not started"), not an element count like the array/vec forms,
		// since runes are variable-width.
		var byteOff int
		if idx < 0 {
			byteOff = 0
		} else {
			_, width := utf8.DecodeRuneInString(obj.Str[idx:])
			byteOff = int(idx) + width
		}
		if byteOff >= len(obj.Str) {
			return false, nil
		}
		r, _ := utf8.DecodeRuneInString(obj.Str[byteOff:])
		elem, err := vm.heap.InternString(string(r))
		if err != nil {
			return false, runtimeErrorf("OutOfMemory", "%v", err)
		}
		vm.setReg(fr, base+1, value.Int(int64(byteOff)))
		vm.setReg(fr, base, elem)
		return true, nil
	default:
		return false, runtimeErrorf("TypeMismatch", "for-each: %s is not iterable", obj.Kind)
	}
}

func vecElemAt(v *heap.Vec, i int) value.Value {
	switch v.Elem {
	case heap.VecInt:
		return value.Int(v.Ints[i])
	case heap.VecFloat:
		return value.Float(v.Flts[i])
	case heap.VecBool:
		return value.Bool(v.Bools[i])
	default:
		return v.Objs[i]
	}
}

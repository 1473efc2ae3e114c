package compiler

import "github.com/aelys-lang/aelys/lang/bytecode"

// resolveKind discriminates where a name's backing storage lives, following
// the resolution order of spec §4.5: current locals, then the upvalue
// chain into enclosing functions, then known globals, then known natives.
type resolveKind int

const (
	resLocal resolveKind = iota
	resUpvalue
	resGlobal
	resNative
)

type resolved struct {
	kind        resolveKind
	reg         uint8  // resLocal
	upvalIdx    uint8  // resUpvalue
	globalIdx   uint16 // resGlobal, resNative
	mut         bool
	loopControl bool
}

// resolve looks up name against fc's locals, then (transitively, installing
// upvalues along the way) its lexical parents, then the program's known
// globals and natives.
func (fc *fcomp) resolve(name string) (resolved, bool) {
	if lv, ok := fc.findLocal(name); ok {
		return resolved{kind: resLocal, reg: lv.reg, mut: lv.mut, loopControl: lv.loopControl}, true
	}
	if fc.parent != nil {
		if idx, ok := fc.resolveUpvalue(name); ok {
			return resolved{kind: resUpvalue, upvalIdx: idx}, true
		}
	}
	if idx, ok := fc.pc.globals.index(name); ok {
		kind := resGlobal
		if fc.pc.globals.Natives[name] {
			kind = resNative
		}
		return resolved{kind: kind, globalIdx: uint16(idx)}, true
	}
	return resolved{}, false
}

func (fc *fcomp) findLocal(name string) (localVar, bool) {
	for i := len(fc.scopes) - 1; i >= 0; i-- {
		scope := fc.scopes[i]
		for j := len(scope) - 1; j >= 0; j-- {
			if scope[j].name == name {
				return scope[j], true
			}
		}
	}
	return localVar{}, false
}

// resolveUpvalue finds name in an enclosing function's locals or upvalue
// chain, installing an UpvalueDesc at each intermediate level it crosses
// (spec §4.5: "installing intermediate upvalues in each enclosing
// function").
func (fc *fcomp) resolveUpvalue(name string) (uint8, bool) {
	if idx, ok := fc.upvalues[name]; ok {
		return idx, true
	}
	if fc.parent == nil {
		return 0, false
	}
	if lv, ok := fc.parent.findLocal(name); ok {
		idx := fc.addUpvalue(bytecode.UpvalueDesc{IsLocal: true, Index: lv.reg})
		fc.upvalues[name] = idx
		return idx, true
	}
	if pidx, ok := fc.parent.resolveUpvalue(name); ok {
		idx := fc.addUpvalue(bytecode.UpvalueDesc{IsLocal: false, Index: pidx})
		fc.upvalues[name] = idx
		return idx, true
	}
	return 0, false
}

func (fc *fcomp) addUpvalue(d bytecode.UpvalueDesc) uint8 {
	fc.fn.Upvalues = append(fc.fn.Upvalues, d)
	return uint8(len(fc.fn.Upvalues) - 1)
}

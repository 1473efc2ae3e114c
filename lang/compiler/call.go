package compiler

import (
	"github.com/aelys-lang/aelys/lang/ast"
	"github.com/aelys-lang/aelys/lang/bytecode"
)

// builtinArity lists the manual-memory and introspection primitives that
// compile to dedicated opcodes rather than a call instruction (spec §4.5's
// "builtin primitive" call form: alloc, free, load, store, type).
var builtinArity = map[string]int{
	"alloc": 1,
	"free":  1,
	"load":  2,
	"store": 3,
	"type":  1,
}

// call compiles e's invocation using the first of three forms that
// applies, in the precedence order the backend specifies (spec §4.5):
// a builtin primitive, a known global with an inline cache, or a generic
// indirect call through a register-resident callee.
func (fc *fcomp) call(e *ast.CallExpr, dest uint8) {
	if id, ok := e.Fn.(*ast.IdentExpr); ok {
		if _, shadowed := fc.findLocal(id.Lit); !shadowed {
			if fc.builtinCall(id, e, dest) {
				return
			}
			if r, ok := fc.resolve(id.Lit); ok && r.kind == resGlobal {
				fc.knownGlobalCall(r, e, dest)
				return
			}
		}
	}
	fc.genericCall(e, dest)
}

func (fc *fcomp) builtinCall(id *ast.IdentExpr, e *ast.CallExpr, dest uint8) bool {
	arity, ok := builtinArity[id.Lit]
	if !ok {
		return false
	}
	if _, isGlobal := fc.pc.globals.index(id.Lit); isGlobal {
		// The program shadows the builtin with its own global of the same
		// name; defer to the ordinary call path.
		return false
	}
	if len(e.Args) != arity {
		fc.pc.errorf(e.Span(), "%s expects %d argument(s), got %d", id.Lit, arity, len(e.Args))
		return true
	}
	switch id.Lit {
	case "alloc":
		r := fc.allocBlock(1)
		fc.expr(e.Args[0], r)
		fc.emitAt(e.Span(), bytecode.OpAlloc, dest, r, 0)
		fc.freeze(r)
	case "free":
		r := fc.allocBlock(1)
		fc.expr(e.Args[0], r)
		fc.emitAt(e.Span(), bytecode.OpFree, r, 0, 0)
		fc.emitAt(e.Span(), bytecode.OpLoadNull, dest, 0, 0)
		fc.freeze(r)
	case "load":
		base := fc.allocBlock(2)
		fc.expr(e.Args[0], base)
		if n, ok := intLiteral(e.Args[1]); ok && n >= 0 && n <= 255 {
			fc.emitAt(e.Span(), bytecode.OpLoadMemI, dest, base, uint8(n))
		} else {
			fc.expr(e.Args[1], base+1)
			fc.emitAt(e.Span(), bytecode.OpLoadMem, dest, base, base+1)
		}
		fc.freeze(base)
	case "store":
		base := fc.allocBlock(3)
		fc.expr(e.Args[0], base)
		fc.expr(e.Args[1], base+1)
		fc.expr(e.Args[2], base+2)
		if n, ok := intLiteral(e.Args[1]); ok && n >= 0 && n <= 255 {
			fc.emitAt(e.Span(), bytecode.OpStoreMemI, base, uint8(n), base+2)
		} else {
			fc.emitAt(e.Span(), bytecode.OpStoreMem, base, base+1, base+2)
		}
		fc.emitAt(e.Span(), bytecode.OpLoadNull, dest, 0, 0)
		fc.freeze(base)
	case "type":
		r := fc.allocBlock(1)
		fc.expr(e.Args[0], r)
		fc.emitAt(e.Span(), bytecode.OpTypeOf, dest, r, 0)
		fc.freeze(r)
	}
	return true
}

func intLiteral(e ast.Expr) (int64, bool) {
	lit, ok := ast.Unwrap(e).(*ast.LiteralExpr)
	if !ok {
		return 0, false
	}
	n, ok := lit.Value.(int64)
	return n, ok
}

// knownGlobalCall targets a chunk-scope Aelys function known by name at
// compile time, reserving the two inline-cache words the VM patches on
// first execution (spec §4.6: OpCallGlobal -> OpCallGlobalMono /
// OpCallGlobalNative). The call's own argument block doubles as its result
// register (the instruction's first operand), so a Move into the
// caller-requested dest is only needed when the two differ.
func (fc *fcomp) knownGlobalCall(r resolved, e *ast.CallExpr, dest uint8) {
	if len(e.Args) > bytecode.MaxArgs || r.globalIdx > 255 {
		fc.genericCall(e, dest)
		return
	}
	base := fc.allocBlock(len(e.Args))
	for i, a := range e.Args {
		fc.expr(a, base+uint8(i))
	}
	fc.emitAt(e.Span(), bytecode.OpCallGlobal, base, uint8(r.globalIdx), uint8(len(e.Args)))
	fc.emitCacheWords()
	fc.freeze(base)
	if dest != base {
		fc.emitAt(e.Span(), bytecode.OpMove, dest, base, 0)
	}
}

// genericCall evaluates the callee and its arguments into one contiguous
// register block [callee, arg0, arg1, ...] and calls through it (spec
// §4.5's "generic indirect" form, used for locals/upvalues/parameters
// holding a closure value, or any callee the compiler cannot resolve to a
// known global).
func (fc *fcomp) genericCall(e *ast.CallExpr, dest uint8) {
	if len(e.Args) > bytecode.MaxArgs {
		fc.pc.errorf(e.Span(), "call exceeds %d arguments", bytecode.MaxArgs)
		return
	}
	base := fc.allocBlock(1 + len(e.Args))
	fc.expr(e.Fn, base)
	for i, a := range e.Args {
		fc.expr(a, base+1+uint8(i))
	}
	fc.emitAt(e.Span(), bytecode.OpCall, base, base, uint8(len(e.Args)))
	fc.freeze(base)
	if dest != base {
		fc.emitAt(e.Span(), bytecode.OpMove, dest, base, 0)
	}
}

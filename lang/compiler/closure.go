package compiler

import (
	"github.com/aelys-lang/aelys/lang/ast"
	"github.com/aelys-lang/aelys/lang/bytecode"
	"github.com/aelys-lang/aelys/lang/heap"
	"github.com/aelys-lang/aelys/lang/value"
)

// compileClosure compiles sig+body as a new nested Function of its own,
// with its own heap (spec §4.5: "a heap shared across nested compilers via
// merge"), merges that heap back into fc's, and emits the result into
// dest: a plain OpLoadK of the compiled function's heap reference if it
// captured no upvalues, or an OpMakeClosure pairing that reference with
// nuv freshly-captured upvalues otherwise.
func (fc *fcomp) compileClosure(sig *ast.FuncSignature, body *ast.Block, name string, dest uint8) {
	childHeap := heap.New(0)
	child := newFcomp(fc.pc, fc, name)

	savedHeap := fc.pc.heap
	fc.pc.heap = childHeap
	child.declareParams(sig)
	stmts := body.Stmts
	var tail *ast.ExprStmt
	if n := len(stmts); n > 0 {
		tail, _ = stmts[n-1].(*ast.ExprStmt)
	}
	if tail != nil {
		stmts = stmts[:len(stmts)-1]
	}
	child.block(stmts)
	if tail != nil {
		// a body's trailing bare expression is its return value
		r := child.allocBlock(1)
		child.expr(tail.Expr, r)
		child.emitAt(tail.Span(), bytecode.OpReturn, r, 0, 0)
		child.freeze(r)
	}
	if len(child.fn.Code) == 0 || !isTerminalReturn(child.fn.Code[len(child.fn.Code)-1]) {
		child.emit(bytecode.OpReturnNull, 0, 0, 0)
	}
	child.finish()
	fc.pc.heap = savedHeap

	// heap.Merge clones every object of childHeap into savedHeap and
	// returns the old->new GcRef remap; it has no visibility into a
	// Function's constant pool, so any Ptr constant the child body
	// produced (string literals, other nested functions) must be remapped
	// here before it is usable in the parent's heap.
	remap := savedHeap.Merge(childHeap)
	remapConstants(child.fn.Constants, remap)

	fc.fn.Nested = append(fc.fn.Nested, child.fn)

	fnVal, err := savedHeap.NewFunction(&heap.Function{
		Name:         name,
		Arity:        child.fn.Arity,
		NumRegisters: child.fn.NumRegisters,
		Code:         child.fn,
	})
	if err != nil {
		fc.pc.errorf(body.Span(), "allocate function object: %v", err)
		return
	}
	constIdx := fc.addConstant(fnVal)

	if len(child.fn.Upvalues) == 0 {
		fc.emitConstAt(body.Span(), dest, constIdx)
		return
	}
	fc.emitAt(body.Span(), bytecode.OpMakeClosure, dest, uint8(constIdx), uint8(len(child.fn.Upvalues)))
}

func isTerminalReturn(in bytecode.Instr) bool {
	switch in.Op() {
	case bytecode.OpReturn, bytecode.OpReturnNull:
		return true
	default:
		return false
	}
}

func remapConstants(consts []value.Value, remap map[value.GcRef]value.GcRef) {
	for i, v := range consts {
		if ref, ok := v.AsPtr(); ok {
			if nr, ok := remap[ref]; ok {
				consts[i] = value.Ptr(nr)
			}
		}
	}
}

func (fc *fcomp) lambda(e *ast.LambdaExpr, dest uint8) {
	fc.compileClosure(e.Sig, e.Body, "<lambda>", dest)
}

// ifExpr compiles `if` used in expression position: both arms must leave
// their value in dest.
func (fc *fcomp) ifExpr(e *ast.IfExpr, dest uint8) {
	fc.expr(e.Cond, dest)
	skipThen := fc.emitImmAt(e.Span(), bytecode.OpJmpIfFalse, dest, 0)
	fc.beginScope()
	fc.exprBlock(e.Then, dest)
	fc.endScope()
	toEnd := fc.emitImmAt(e.Span(), bytecode.OpJmp, 0, 0)
	fc.patchJump(skipThen, fc.here())
	switch elseNode := e.Else.(type) {
	case *ast.IfExpr:
		fc.ifExpr(elseNode, dest)
	case *ast.Block:
		fc.beginScope()
		fc.exprBlock(elseNode, dest)
		fc.endScope()
	case nil:
		fc.emitAt(e.Span(), bytecode.OpLoadNull, dest, 0, 0)
	}
	fc.patchJump(toEnd, fc.here())
}

// exprBlock compiles a block used in expression position: every statement
// but the last runs for effect; the last, if an ExprStmt, supplies dest.
func (fc *fcomp) exprBlock(b *ast.Block, dest uint8) {
	if len(b.Stmts) == 0 {
		fc.emitAt(b.Span(), bytecode.OpLoadNull, dest, 0, 0)
		return
	}
	for _, s := range b.Stmts[:len(b.Stmts)-1] {
		fc.stmt(s)
	}
	last := b.Stmts[len(b.Stmts)-1]
	if es, ok := last.(*ast.ExprStmt); ok {
		fc.expr(es.Expr, dest)
		return
	}
	fc.stmt(last)
	fc.emitAt(b.Span(), bytecode.OpLoadNull, dest, 0, 0)
}

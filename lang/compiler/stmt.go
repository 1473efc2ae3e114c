package compiler

import (
	"github.com/aelys-lang/aelys/lang/ast"
	"github.com/aelys-lang/aelys/lang/bytecode"
	"github.com/aelys-lang/aelys/lang/token"
	"github.com/aelys-lang/aelys/lang/types"
	"github.com/aelys-lang/aelys/lang/value"
)

// block compiles an ordinary (non-chunk-scope) statement list in place.
func (fc *fcomp) block(stmts []ast.Stmt) {
	for _, s := range stmts {
		fc.stmt(s)
	}
}

// compileTopLevel compiles the chunk's statement list as the body of the
// program's entry function. A `let` or `fn` declared directly here (not
// nested inside a block) writes to its pre-registered global slot instead
// of a local register, per the Globals table the driver built from a
// pre-pass over chunk-scope declarations.
func (fc *fcomp) compileTopLevel(stmts []ast.Stmt) {
	for i, s := range stmts {
		if i == len(stmts)-1 {
			if es, ok := s.(*ast.ExprStmt); ok {
				// The chunk's trailing bare expression is the program's
				// result (spec's "Program ... => value" scenarios):
				// return it instead of discarding it the way an ordinary
				// statement-position expression would be.
				r := fc.allocBlock(1)
				fc.expr(es.Expr, r)
				fc.emitAt(es.Span(), bytecode.OpReturn, r, 0, 0)
				fc.freeze(r)
				return
			}
		}
		switch s := s.(type) {
		case *ast.LetStmt:
			fc.topLevelLet(s)
		case *ast.FuncDeclStmt:
			fc.topLevelFunc(s)
		case *ast.StructDeclStmt, *ast.ImportStmt:
			// Struct layouts and module aliases are resolved by lang/sema
			// and the driver; neither emits an instruction of its own.
		default:
			fc.stmt(s)
		}
	}
	fc.emit(bytecode.OpReturnNull, 0, 0, 0)
}

func (fc *fcomp) topLevelLet(s *ast.LetStmt) {
	idx, ok := fc.pc.globals.index(s.Name.Lit)
	if !ok {
		fc.stmt(s)
		return
	}
	r := fc.allocBlock(1)
	fc.expr(s.Value, r)
	fc.emitImmAt(s.Span(), bytecode.OpSetGlobalIdx, r, int16(idx))
	fc.freeze(r)
}

func (fc *fcomp) topLevelFunc(s *ast.FuncDeclStmt) {
	idx, ok := fc.pc.globals.index(s.Name.Lit)
	if !ok {
		fc.pc.errorf(s.Span(), "function %q was not pre-registered as a known global", s.Name.Lit)
		return
	}
	r := fc.allocBlock(1)
	fc.compileClosure(s.Sig, s.Body, s.Name.Lit, r)
	fc.emitImmAt(s.Span(), bytecode.OpSetGlobalIdx, r, int16(idx))
	fc.freeze(r)
}

func (fc *fcomp) stmt(s ast.Stmt) {
	switch s := s.(type) {
	case *ast.LetStmt:
		fc.letStmt(s)
	case *ast.ExprStmt:
		r := fc.allocBlock(1)
		fc.expr(s.Expr, r)
		fc.freeze(r)
	case *ast.BlockStmt:
		fc.beginScope()
		fc.block(s.Block.Stmts)
		fc.endScope()
	case *ast.IfStmt:
		fc.ifStmt(s)
	case *ast.WhileStmt:
		fc.whileStmt(s)
	case *ast.ForRangeStmt:
		fc.forRangeStmt(s)
	case *ast.ForEachStmt:
		fc.forEachStmt(s)
	case *ast.ReturnStmt:
		if s.Value == nil {
			fc.emitAt(s.Span(), bytecode.OpReturnNull, 0, 0, 0)
			return
		}
		r := fc.allocBlock(1)
		fc.expr(s.Value, r)
		fc.emitAt(s.Span(), bytecode.OpReturn, r, 0, 0)
		fc.freeze(r)
	case *ast.BreakStmt:
		fc.breakStmt(s)
	case *ast.ContinueStmt:
		fc.continueStmt(s)
	case *ast.FuncDeclStmt:
		reg := fc.declareLocal(s.Name.Lit, false)
		fc.compileClosure(s.Sig, s.Body, s.Name.Lit, reg)
	case *ast.StructDeclStmt, *ast.ImportStmt:
		// No codegen at nested scope either.
	default:
		fc.pc.errorf(s.Span(), "compiler: unsupported statement %T", s)
	}
}

// letStmt evaluates the initializer before installing the new binding, so
// `let x = x + 1` reads the outer x rather than its own (still
// uninitialized) register.
func (fc *fcomp) letStmt(s *ast.LetStmt) {
	reg := fc.allocBlock(1)
	fc.expr(s.Value, reg)
	top := len(fc.scopes) - 1
	fc.scopes[top] = append(fc.scopes[top], localVar{name: s.Name.Lit, reg: reg, mut: s.Mut})
}

func (fc *fcomp) ifStmt(s *ast.IfStmt) {
	cond := fc.allocBlock(1)
	fc.expr(s.Cond, cond)
	skipThen := fc.emitImmAt(s.Span(), bytecode.OpJmpIfFalse, cond, 0)
	fc.freeze(cond)
	fc.beginScope()
	fc.block(s.Then.Stmts)
	fc.endScope()
	if s.Else == nil {
		fc.patchJump(skipThen, fc.here())
		return
	}
	toEnd := fc.emitImmAt(s.Span(), bytecode.OpJmp, 0, 0)
	fc.patchJump(skipThen, fc.here())
	switch elseStmt := s.Else.(type) {
	case *ast.IfStmt:
		fc.ifStmt(elseStmt)
	case *ast.BlockStmt:
		fc.beginScope()
		fc.block(elseStmt.Block.Stmts)
		fc.endScope()
	default:
		fc.stmt(elseStmt)
	}
	fc.patchJump(toEnd, fc.here())
}

func (fc *fcomp) whileStmt(s *ast.WhileStmt) {
	start := fc.here()
	cond := fc.allocBlock(1)
	fc.expr(s.Cond, cond)
	exit := fc.emitImmAt(s.Span(), bytecode.OpJmpIfFalse, cond, 0)
	fc.freeze(cond)

	lc := &loopCtx{}
	fc.loops = append(fc.loops, lc)
	fc.beginScope()
	fc.block(s.Body.Stmts)
	fc.endScope()
	fc.loops = fc.loops[:len(fc.loops)-1]

	fc.patchContinues(lc, fc.here())
	fc.emitImmAt(s.Span(), bytecode.OpJmp, 0, int16(start-(fc.here()+1)))
	fc.patchJump(exit, fc.here())
	fc.patchBreaks(lc, fc.here())
}

// forRangeStmt lowers `for name in lo..hi [step e] { body }` to the
// fused OpForLoopI/OpForLoopIInc opcodes (spec §4.5, §4.8), which combine
// the induction variable's step, bound comparison, and backward jump into
// a single instruction the VM re-executes each iteration.
func (fc *fcomp) forRangeStmt(s *ast.ForRangeStmt) {
	base := fc.allocBlock(3) // [induction, limit, step]
	lowReg := fc.allocReg()
	fc.expr(s.Low, lowReg)
	fc.expr(s.High, base+1)
	if s.Step != nil {
		fc.expr(s.Step, base+2)
	} else {
		fc.emitConstAtInt(s.Span(), base+2, 1)
	}
	// OpForLoopI/OpForLoopIInc add the step before testing, every pass
	// including the first (so one instruction can be re-entered by the
	// backward jump without a separate prep opcode); pre-subtract the step
	// here so the first add lands back on lo.
	fc.emitAt(s.Span(), bytecode.OpSubII, base, lowReg, base+2)
	fc.freeze(base + 3)

	fc.beginScope()
	top := len(fc.scopes) - 1
	fc.scopes[top] = append(fc.scopes[top], localVar{name: s.Name.Lit, reg: base, mut: false, loopControl: true})

	op := bytecode.OpForLoopI
	if s.Inclusive {
		op = bytecode.OpForLoopIInc
	}
	start := fc.here()
	exit := fc.emitImmAt(s.Span(), op, base, 0)

	lc := &loopCtx{}
	fc.loops = append(fc.loops, lc)
	fc.block(s.Body.Stmts)
	fc.loops = fc.loops[:len(fc.loops)-1]

	fc.patchContinues(lc, fc.here())
	fc.emitImmAt(s.Span(), bytecode.OpJmp, 0, int16(start-(fc.here()+1)))
	fc.patchJump(exit, fc.here())
	fc.patchBreaks(lc, fc.here())

	fc.endScope()
}

// forEachStmt lowers `for name in iterable { body }` over an Array, Vec,
// or string, using the per-kind fused opcode that walks 3 consecutive
// registers [element, index, collection] (spec §4.5, §4.8). The iterable's
// static type selects which opcode to use; Dynamic defaults to the Array
// form, which the VM falls back from at runtime if the value turns out to
// be a Vec or string.
func (fc *fcomp) forEachStmt(s *ast.ForEachStmt) {
	base := fc.allocBlock(3) // [element, index, collection]
	fc.expr(s.Iterable, base+2)
	fc.emitAt(s.Span(), bytecode.OpLoadNull, base, 0, 0)
	fc.emitConstAtInt(s.Span(), base+1, -1)

	fc.beginScope()
	top := len(fc.scopes) - 1
	fc.scopes[top] = append(fc.scopes[top], localVar{name: s.Name.Lit, reg: base, mut: false, loopControl: true})

	op := fc.forEachOpcode(s.Iterable)
	start := fc.here()
	exit := fc.emitImmAt(s.Span(), op, base, 0)

	lc := &loopCtx{}
	fc.loops = append(fc.loops, lc)
	fc.block(s.Body.Stmts)
	fc.loops = fc.loops[:len(fc.loops)-1]

	fc.patchContinues(lc, fc.here())
	fc.emitImmAt(s.Span(), bytecode.OpJmp, 0, int16(start-(fc.here()+1)))
	fc.patchJump(exit, fc.here())
	fc.patchBreaks(lc, fc.here())

	fc.endScope()
}

func (fc *fcomp) forEachOpcode(iterable ast.Expr) bytecode.Opcode {
	switch fc.resolvedType(iterable).Kind {
	case types.KindVec:
		return bytecode.OpVecForLoop
	case types.KindString:
		return bytecode.OpStringForLoop
	default:
		return bytecode.OpArrayForLoop
	}
}

func (fc *fcomp) emitConstAtInt(span token.Span, dest uint8, n int64) {
	fc.emitConstAt(span, dest, fc.addConstant(value.Int(n)))
}

func (fc *fcomp) breakStmt(s *ast.BreakStmt) {
	if len(fc.loops) == 0 {
		fc.pc.errorf(s.Span(), "break outside of a loop")
		return
	}
	lc := fc.loops[len(fc.loops)-1]
	idx := fc.emitImmAt(s.Span(), bytecode.OpJmp, 0, 0)
	lc.breaks = append(lc.breaks, idx)
}

func (fc *fcomp) continueStmt(s *ast.ContinueStmt) {
	if len(fc.loops) == 0 {
		fc.pc.errorf(s.Span(), "continue outside of a loop")
		return
	}
	lc := fc.loops[len(fc.loops)-1]
	idx := fc.emitImmAt(s.Span(), bytecode.OpJmp, 0, 0)
	lc.continues = append(lc.continues, idx)
}

func (fc *fcomp) patchBreaks(lc *loopCtx, target int) {
	for _, idx := range lc.breaks {
		fc.patchJump(idx, target)
	}
}

func (fc *fcomp) patchContinues(lc *loopCtx, target int) {
	for _, idx := range lc.continues {
		fc.patchJump(idx, target)
	}
}

package compiler

import (
	"github.com/aelys-lang/aelys/lang/ast"
	"github.com/aelys-lang/aelys/lang/bytecode"
	"github.com/aelys-lang/aelys/lang/token"
	"github.com/aelys-lang/aelys/lang/types"
	"github.com/aelys-lang/aelys/lang/value"
)

// expr compiles e so its value ends up in register dest.
func (fc *fcomp) expr(e ast.Expr, dest uint8) {
	switch e := e.(type) {
	case *ast.LiteralExpr:
		fc.literal(e, dest)
	case *ast.IdentExpr:
		fc.ident(e, dest)
	case *ast.ParenExpr:
		fc.expr(e.Expr, dest)
	case *ast.UnaryExpr:
		fc.unary(e, dest)
	case *ast.BinaryExpr:
		fc.binary(e, dest)
	case *ast.CallExpr:
		fc.call(e, dest)
	case *ast.AssignExpr:
		fc.assign(e, dest)
	case *ast.IndexExpr:
		fc.index(e, dest)
	case *ast.ArrayExpr:
		fc.array(e, dest)
	case *ast.LambdaExpr:
		fc.lambda(e, dest)
	case *ast.IfExpr:
		fc.ifExpr(e, dest)
	case *ast.CastExpr:
		// The tagged Value representation has no per-numeric-subkind
		// storage distinction (spec §3: a Value is int64 or float64), so a
		// cast only changes the static type an expression is treated as by
		// the optimizer/type checker; it is a no-op at this level.
		fc.expr(e.Expr, dest)
	case *ast.RangeExpr:
		fc.rangeExpr(e, dest)
	case *ast.DotExpr:
		fc.pc.errorf(e.Span(), "compiler: member access on struct values is not yet implemented by the backend")
	case *ast.StructLitExpr:
		fc.pc.errorf(e.Span(), "compiler: struct literals are not yet implemented by the backend")
	default:
		fc.pc.errorf(e.Span(), "compiler: unsupported expression %T", e)
	}
}

func (fc *fcomp) literal(e *ast.LiteralExpr, dest uint8) {
	span := e.Span()
	switch v := e.Value.(type) {
	case nil:
		fc.emitAt(span, bytecode.OpLoadNull, dest, 0, 0)
	case bool:
		if v {
			fc.emitAt(span, bytecode.OpLoadTrue, dest, 0, 0)
		} else {
			fc.emitAt(span, bytecode.OpLoadFalse, dest, 0, 0)
		}
	case int64:
		fc.emitConstAt(span, dest, fc.addConstant(value.Int(v)))
	case float64:
		fc.emitConstAt(span, dest, fc.addConstant(value.Float(v)))
	case string:
		interned, err := fc.pc.heap.InternString(v)
		if err != nil {
			fc.pc.errorf(span, "intern string literal: %v", err)
			return
		}
		fc.emitConstAt(span, dest, fc.addConstant(interned))
	default:
		fc.pc.errorf(span, "compiler: unsupported literal kind %T", v)
	}
}

func (fc *fcomp) emitConstAt(span token.Span, dest uint8, idx uint16) {
	fc.fn.Code = append(fc.fn.Code, bytecode.ABx(bytecode.OpLoadK, dest, int16(idx)))
	fc.fn.Lines = append(fc.fn.Lines, span)
}

func (fc *fcomp) emitImmAt(span token.Span, op bytecode.Opcode, a uint8, imm int16) int {
	fc.fn.Code = append(fc.fn.Code, bytecode.ABx(op, a, imm))
	fc.fn.Lines = append(fc.fn.Lines, span)
	return len(fc.fn.Code) - 1
}

func (fc *fcomp) ident(e *ast.IdentExpr, dest uint8) {
	r, ok := fc.resolve(e.Lit)
	if !ok {
		fc.pc.errorf(e.Span(), "undefined variable %q", e.Lit)
		return
	}
	switch r.kind {
	case resLocal:
		if r.reg != dest {
			fc.emitAt(e.Span(), bytecode.OpMove, dest, r.reg, 0)
		}
	case resUpvalue:
		fc.emitAt(e.Span(), bytecode.OpGetUpvalue, dest, r.upvalIdx, 0)
	case resGlobal, resNative:
		fc.emitImmAt(e.Span(), bytecode.OpGetGlobalIdx, dest, int16(r.globalIdx))
	}
}

func (fc *fcomp) unary(e *ast.UnaryExpr, dest uint8) {
	switch e.Op {
	case token.MINUS:
		fc.expr(e.Right, dest)
		fc.emitAt(e.Span(), bytecode.OpNeg, dest, dest, 0)
	case token.NOT, token.BANG:
		fc.expr(e.Right, dest)
		fc.emitAt(e.Span(), bytecode.OpNot, dest, dest, 0)
	case token.TILDE:
		fc.expr(e.Right, dest)
		fc.emitAt(e.Span(), bytecode.OpBitNot, dest, dest, 0)
	case token.TRY, token.MUST:
		// Neither a Result nor an Option variant exists in the tagged
		// Value representation (spec §3 lists only int/float/bool/null/
		// ptr/raw): try/must have nothing of their own to unwrap here and
		// compile through to their operand. A future FFI error-propagation
		// layer that introduces a tagged error value would give these
		// opcodes of their own.
		fc.expr(e.Right, dest)
	default:
		fc.pc.errorf(e.Span(), "compiler: unsupported unary operator %s", e.Op)
	}
}

func (fc *fcomp) binary(e *ast.BinaryExpr, dest uint8) {
	switch e.Op {
	case token.ANDAND, token.AND:
		fc.shortCircuitAnd(e, dest)
		return
	case token.OROR, token.OR:
		fc.shortCircuitOr(e, dest)
		return
	}

	base := fc.allocBlock(2)
	fc.expr(e.Left, base)
	fc.expr(e.Right, base+1)
	op := fc.selectBinaryOpcode(e)
	fc.emitAt(e.Span(), op, dest, base, base+1)
	fc.freeze(base)
}

// shortCircuitAnd evaluates Left into dest; if falsy, skips Right and keeps
// Left's (falsy) value as the result, matching `and`/`&&`'s short-circuit
// semantics (spec: "logical short-circuit").
func (fc *fcomp) shortCircuitAnd(e *ast.BinaryExpr, dest uint8) {
	fc.expr(e.Left, dest)
	skip := fc.emitImmAt(e.Span(), bytecode.OpJmpIfFalse, dest, 0)
	fc.expr(e.Right, dest)
	fc.patchJump(skip, fc.here())
}

func (fc *fcomp) shortCircuitOr(e *ast.BinaryExpr, dest uint8) {
	fc.expr(e.Left, dest)
	skip := fc.emitImmAt(e.Span(), bytecode.OpJmpIfTrue, dest, 0)
	fc.expr(e.Right, dest)
	fc.patchJump(skip, fc.here())
}

// selectBinaryOpcode picks the generic, typed-integer, or typed-float form
// of e's operator from the resolved static types of its operands (spec
// §4.5's opcode-selection table). Guarded forms are reserved for operands
// sema marks Uncertain under gradual typing; lacking that signal at this
// layer, anything not both-concretely-typed falls back to the always-safe
// generic opcode.
func (fc *fcomp) selectBinaryOpcode(e *ast.BinaryExpr) bytecode.Opcode {
	lt, rt := fc.resolvedType(e.Left), fc.resolvedType(e.Right)
	bothInt := lt.Kind.IsInteger() && rt.Kind.IsInteger()
	bothFloat := isFloatKind(lt.Kind) && isFloatKind(rt.Kind)

	switch e.Op {
	case token.PLUS:
		switch {
		case bothInt:
			return bytecode.OpAddII
		case bothFloat:
			return bytecode.OpAddFF
		default:
			return bytecode.OpAdd
		}
	case token.MINUS:
		switch {
		case bothInt:
			return bytecode.OpSubII
		case bothFloat:
			return bytecode.OpSubFF
		default:
			return bytecode.OpSub
		}
	case token.STAR:
		switch {
		case bothInt:
			return bytecode.OpMulII
		case bothFloat:
			return bytecode.OpMulFF
		default:
			return bytecode.OpMul
		}
	case token.SLASH:
		switch {
		case bothInt:
			return bytecode.OpDivII
		case bothFloat:
			return bytecode.OpDivFF
		default:
			return bytecode.OpDiv
		}
	case token.PERCENT:
		if bothInt {
			return bytecode.OpModII
		}
		return bytecode.OpMod
	case token.EQEQ:
		return bytecode.OpEq
	case token.NEQ:
		return bytecode.OpNeq
	case token.LT:
		return bytecode.OpLt
	case token.LE:
		return bytecode.OpLe
	case token.GT:
		return bytecode.OpGt
	case token.GE:
		return bytecode.OpGe
	case token.AMPERSAND:
		return bytecode.OpBitAnd
	case token.PIPE:
		return bytecode.OpBitOr
	case token.CIRCUMFLEX:
		return bytecode.OpBitXor
	case token.LTLT:
		return bytecode.OpShl
	case token.GTGT:
		return bytecode.OpShr
	default:
		fc.pc.errorf(e.Span(), "compiler: unsupported binary operator %s", e.Op)
		return bytecode.OpNop
	}
}

func isFloatKind(k types.Kind) bool {
	return k == types.KindFloat || k == types.KindF32 || k == types.KindF64
}

func (fc *fcomp) array(e *ast.ArrayExpr, dest uint8) {
	if len(e.Items) == 0 {
		fc.emitAt(e.Span(), bytecode.OpMakeArray, dest, 0, 0)
		return
	}
	base := fc.allocBlock(len(e.Items))
	for i, item := range e.Items {
		fc.expr(item, base+uint8(i))
	}
	op := bytecode.OpMakeArray
	if e.Kind == "Vec" {
		op = bytecode.OpMakeVec
	}
	fc.emitAt(e.Span(), op, dest, base, uint8(len(e.Items)))
	fc.freeze(base)
}

func (fc *fcomp) index(e *ast.IndexExpr, dest uint8) {
	if rng, ok := e.Index.(*ast.RangeExpr); ok {
		// OpSlice reads 3 contiguous registers starting at B: collection,
		// low bound, high bound (the same fused-3-register convention as
		// the for-each loop opcodes), since a single instruction word has
		// no room for all three as separate operands.
		base := fc.allocBlock(3)
		fc.expr(e.Prefix, base)
		fc.sliceBound(rng.Low, base+1)
		fc.sliceBound(rng.High, base+2)
		fc.emitAt(e.Span(), bytecode.OpSlice, dest, base, 0)
		fc.freeze(base)
		return
	}
	base := fc.allocBlock(2)
	fc.expr(e.Prefix, base)
	fc.expr(e.Index, base+1)
	fc.emitAt(e.Span(), bytecode.OpIndexGet, dest, base, base+1)
	fc.freeze(base)
}

func (fc *fcomp) sliceBound(e ast.Expr, dest uint8) {
	if e == nil {
		fc.emitAt(token.Span{}, bytecode.OpLoadNull, dest, 0, 0)
		return
	}
	fc.expr(e, dest)
}

// rangeExpr only ever compiles in two positions the parser produces it for
// outside of a for-loop header: a slice bound (handled by index/slice
// above) and an index operand. A bare range value (`let r = 1..10`) has no
// dedicated construction opcode (spec §4.6's opcode list gives for-range
// loops their own fused opcodes instead, since that is the only place the
// language evaluates one eagerly); surface that gap as a compile error
// rather than emit a misleading placeholder.
func (fc *fcomp) rangeExpr(e *ast.RangeExpr, dest uint8) {
	fc.pc.errorf(e.Span(), "compiler: range expressions are only supported as a for-loop header or a slice bound")
}

func (fc *fcomp) assign(e *ast.AssignExpr, dest uint8) {
	switch target := ast.Unwrap(e.Target).(type) {
	case *ast.IdentExpr:
		r, ok := fc.resolve(target.Lit)
		if !ok {
			fc.pc.errorf(e.Span(), "undefined variable %q", target.Lit)
			return
		}
		if r.loopControl {
			fc.pc.errorf(e.Span(), "cannot assign to loop variable %q", target.Lit)
			return
		}
		if r.kind == resLocal && !r.mut {
			fc.pc.errorf(e.Span(), "cannot assign to immutable binding %q", target.Lit)
			return
		}
		switch r.kind {
		case resLocal:
			fc.expr(e.Value, r.reg)
			if dest != r.reg {
				fc.emitAt(e.Span(), bytecode.OpMove, dest, r.reg, 0)
			}
		case resUpvalue:
			fc.expr(e.Value, dest)
			fc.emitAt(e.Span(), bytecode.OpSetUpvalue, dest, r.upvalIdx, 0)
		case resGlobal:
			fc.expr(e.Value, dest)
			fc.emitImmAt(e.Span(), bytecode.OpSetGlobalIdx, dest, int16(r.globalIdx))
		case resNative:
			fc.pc.errorf(e.Span(), "cannot assign to native %q", target.Lit)
		}
	case *ast.IndexExpr:
		base := fc.allocBlock(2)
		fc.expr(target.Prefix, base)
		fc.expr(target.Index, base+1)
		fc.expr(e.Value, dest)
		fc.emitAt(e.Span(), bytecode.OpIndexSet, base, base+1, dest)
		fc.freeze(base)
	default:
		fc.pc.errorf(e.Span(), "compiler: unsupported assignment target %T", target)
	}
}

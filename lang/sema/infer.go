package sema

import (
	"github.com/aelys-lang/aelys/internal/diag"
	"github.com/aelys-lang/aelys/lang/ast"
	"github.com/aelys-lang/aelys/lang/token"
	"github.com/aelys-lang/aelys/lang/types"
)

// Program is the result of inference over one chunk: per-expression
// resolved types and per-identifier bindings, both keyed by AST node
// identity (spec §3: "every expression bears its inferred InferType and
// span" — carried here as a side table rather than a duplicated AST, since
// ast.Expr nodes already carry their span).
type Program struct {
	Types    map[ast.Expr]*types.ResolvedType
	Bindings map[*ast.IdentExpr]*Binding
	Warnings []Warning
}

// Warning is a non-fatal diagnostic surfaced to the driver (spec §7):
// incompatible comparison, inline-attempt blocked, literal out of range.
// The optimizer appends its own Warnings of the same shape; sema only
// produces "incompatible comparison" and does not check literals against
// a narrower integer target, so no "literal out of range" is reported.
type Warning struct {
	Span token.Span
	Msg  string
}

// Infer runs identifier resolution and Hindley-Milner-style type inference
// over chunk (spec §4.3), reporting fatal problems into errs and returning
// the resolved Program.
func Infer(chunk *ast.Chunk, predeclared, universal map[string]bool, errs *diag.List) *Program {
	if predeclared == nil {
		predeclared = map[string]bool{}
	}
	if universal == nil {
		universal = map[string]bool{
			"print": true, "println": true, "eprint": true, "eprintln": true,
			"readline": true, "alloc": true, "free": true, "load": true, "store": true, "type": true,
		}
	}

	inf := &inferrer{
		predeclared: predeclared,
		universal:   universal,
		errs:        errs,
		nextVar:     0,
		solver:      nil,
		types:       make(map[ast.Expr]*types.InferType),
		bindings:    make(map[*ast.IdentExpr]*Binding),
	}
	inf.solver = NewSolver(errs)

	fn := newFuncScope(nil)
	inf.block(fn, chunk.Block)
	inf.solver.Solve(inf.constraints)

	prog := &Program{
		Types:    make(map[ast.Expr]*types.ResolvedType, len(inf.types)),
		Bindings: inf.bindings,
		Warnings: inf.warnings,
	}
	for e, t := range inf.types {
		prog.Types[e] = inf.solver.Resolve(t)
	}
	return prog
}

type inferrer struct {
	predeclared, universal map[string]bool
	errs                   *diag.List
	nextVar                types.TyVar
	solver                 *Solver
	constraints            []Constraint
	types                  map[ast.Expr]*types.InferType
	bindings               map[*ast.IdentExpr]*Binding
	warnings               []Warning
}

func (inf *inferrer) fresh() *types.InferType {
	v := inf.nextVar
	inf.nextVar++
	return types.Var(v)
}

func (inf *inferrer) equal(a, b *types.InferType, span token.Span, reason string) {
	inf.constraints = append(inf.constraints, Constraint{Kind: CEqual, A: a, B: b, Span: span, Reason: reason})
}

func (inf *inferrer) oneOf(t *types.InferType, candidates []types.Kind, span token.Span, reason string) {
	inf.constraints = append(inf.constraints, Constraint{Kind: COneOf, T: t, Candidates: candidates, Span: span, Reason: reason})
}

var numericKinds = []types.Kind{
	types.KindInt, types.KindI8, types.KindI16, types.KindI32, types.KindI64,
	types.KindU8, types.KindU16, types.KindU32, types.KindU64, types.KindF32, types.KindF64, types.KindFloat,
}
var integerKinds = []types.Kind{
	types.KindInt, types.KindI8, types.KindI16, types.KindI32, types.KindI64,
	types.KindU8, types.KindU16, types.KindU32, types.KindU64,
}

func (inf *inferrer) block(fn *funcScope, b *ast.Block) *types.InferType {
	fn.push()
	defer fn.pop()
	return inf.stmts(fn, b.Stmts)
}

// stmts returns the tail-position value type: the last expression statement
// in the block if in tail position, else Null (spec §4.2 "blocks as
// expressions").
func (inf *inferrer) stmts(fn *funcScope, stmts []ast.Stmt) *types.InferType {
	result := types.Concrete(types.KindNull)
	for i, st := range stmts {
		tail := i == len(stmts)-1
		t := inf.stmt(fn, st, tail)
		if tail && t != nil {
			result = t
		}
	}
	return result
}

func (inf *inferrer) stmt(fn *funcScope, st ast.Stmt, tail bool) *types.InferType {
	switch st := st.(type) {
	case *ast.LetStmt:
		valTy := inf.expr(fn, st.Value)
		if st.Type != nil {
			ann := inf.annotationType(st.Type)
			inf.equal(valTy, ann, st.Span(), "let binding type annotation")
		}
		b := fn.declare(st.Name.Lit, st.Mut, st)
		b.Type = valTy
		inf.bindings[st.Name] = b
		return nil
	case *ast.ExprStmt:
		t := inf.expr(fn, st.Expr)
		if tail {
			return t
		}
		return nil
	case *ast.BlockStmt:
		t := inf.block(fn, st.Block)
		if tail {
			return t
		}
		return nil
	case *ast.IfStmt:
		inf.condExpr(fn, st.Cond)
		inf.block(fn, st.Then)
		if st.Else != nil {
			inf.elseBranch(fn, st.Else)
		}
		return nil
	case *ast.WhileStmt:
		inf.condExpr(fn, st.Cond)
		inf.block(fn, st.Body)
		return nil
	case *ast.ForRangeStmt:
		lo := inf.expr(fn, st.Low)
		hi := inf.expr(fn, st.High)
		inf.oneOf(lo, integerKinds, st.Low.Span(), "range bound must be integer")
		inf.equal(lo, hi, st.Span(), "range bounds")
		if st.Step != nil {
			inf.expr(fn, st.Step)
		}
		fn.push()
		b := fn.declare(st.Name.Lit, false, st)
		b.Type = lo
		inf.bindings[st.Name] = b
		inf.stmts(fn, st.Body.Stmts)
		fn.pop()
		return nil
	case *ast.ForEachStmt:
		iterTy := inf.expr(fn, st.Iterable)
		fn.push()
		b := fn.declare(st.Name.Lit, false, st)
		if iterTy != nil && !iterTy.IsVar() && (iterTy.Kind == types.KindArray || iterTy.Kind == types.KindVec) {
			b.Type = iterTy.Elem
		} else {
			b.Type = types.Dynamic
		}
		inf.bindings[st.Name] = b
		inf.stmts(fn, st.Body.Stmts)
		fn.pop()
		return nil
	case *ast.ReturnStmt:
		if st.Value != nil {
			inf.expr(fn, st.Value)
		}
		return nil
	case *ast.BreakStmt, *ast.ContinueStmt:
		return nil
	case *ast.FuncDeclStmt:
		b := fn.declare(st.Name.Lit, false, st)
		inf.bindings[st.Name] = b
		inf.funcBody(fn, st.Sig, st.Body)
		return nil
	case *ast.StructDeclStmt:
		return nil
	case *ast.ImportStmt:
		return nil
	default:
		return nil
	}
}

func (inf *inferrer) elseBranch(fn *funcScope, n ast.Stmt) {
	switch n := n.(type) {
	case *ast.IfStmt:
		inf.stmt(fn, n, false)
	case *ast.BlockStmt:
		inf.block(fn, n.Block)
	}
}

func (inf *inferrer) condExpr(fn *funcScope, e ast.Expr) {
	t := inf.expr(fn, e)
	inf.equal(t, types.Concrete(types.KindBool), e.Span(), "condition must be bool")
}

func (inf *inferrer) funcBody(fn *funcScope, sig *ast.FuncSignature, body *ast.Block) *types.InferType {
	child := newFuncScope(fn)
	params := make([]*types.InferType, len(sig.Params))
	for i, p := range sig.Params {
		var pt *types.InferType
		if p.Type != nil {
			pt = inf.annotationType(p.Type)
		} else {
			pt = types.Dynamic
		}
		params[i] = pt
		b := child.declare(p.Name.Lit, false, p.Name)
		b.Type = pt
		inf.bindings[p.Name] = b
		inf.types[p.Name] = pt
	}
	bodyTy := inf.stmts(child, body.Stmts)
	if sig.ReturnType != nil {
		ret := inf.annotationType(sig.ReturnType)
		inf.equal(bodyTy, ret, body.Span(), "return type")
		return types.Func(params, ret)
	}
	return types.Func(params, bodyTy)
}

func (inf *inferrer) annotationType(ta *ast.TypeAnnotation) *types.InferType {
	switch ta.Name {
	case "Dynamic":
		return types.Dynamic
	case "int":
		return types.Concrete(types.KindInt)
	case "i8":
		return types.Concrete(types.KindI8)
	case "i16":
		return types.Concrete(types.KindI16)
	case "i32":
		return types.Concrete(types.KindI32)
	case "i64":
		return types.Concrete(types.KindI64)
	case "u8":
		return types.Concrete(types.KindU8)
	case "u16":
		return types.Concrete(types.KindU16)
	case "u32":
		return types.Concrete(types.KindU32)
	case "u64":
		return types.Concrete(types.KindU64)
	case "f32":
		return types.Concrete(types.KindF32)
	case "f64":
		return types.Concrete(types.KindF64)
	case "float":
		return types.Concrete(types.KindFloat)
	case "bool":
		return types.Concrete(types.KindBool)
	case "string":
		return types.Concrete(types.KindString)
	case "Array", "Vec":
		var elem *types.InferType = types.Dynamic
		if len(ta.Args) == 1 {
			elem = inf.annotationType(ta.Args[0])
		}
		k := types.KindArray
		if ta.Name == "Vec" {
			k = types.KindVec
		}
		return types.Collection(k, elem)
	default:
		return types.Struct(ta.Name)
	}
}

// expr infers and records the type of e, returning it for composition by
// the caller.
func (inf *inferrer) expr(fn *funcScope, e ast.Expr) *types.InferType {
	t := inf.exprType(fn, e)
	inf.types[e] = t
	return t
}

func (inf *inferrer) exprType(fn *funcScope, e ast.Expr) *types.InferType {
	switch e := e.(type) {
	case *ast.LiteralExpr:
		switch e.Type {
		case token.INT:
			return types.Concrete(types.KindInt)
		case token.FLOAT:
			return types.Concrete(types.KindFloat)
		case token.STRING, token.FSTRING:
			return types.Concrete(types.KindString)
		case token.TRUE, token.FALSE:
			return types.Concrete(types.KindBool)
		case token.NULL:
			return types.Concrete(types.KindNull)
		default:
			return types.Dynamic
		}
	case *ast.IdentExpr:
		b := fn.resolve(e.Lit, inf.predeclared, inf.universal)
		if b == nil {
			inf.errs.Add(diag.Symbol, e.Span(), "undefined identifier %q", e.Lit)
			return types.Dynamic
		}
		inf.bindings[e] = b
		if b.Type != nil {
			return b.Type
		}
		return types.Dynamic
	case *ast.ParenExpr:
		return inf.expr(fn, e.Expr)
	case *ast.UnaryExpr:
		return inf.unary(fn, e)
	case *ast.BinaryExpr:
		return inf.binary(fn, e)
	case *ast.RangeExpr:
		if e.Low != nil {
			lo := inf.expr(fn, e.Low)
			inf.oneOf(lo, integerKinds, e.Span(), "range bound must be integer")
		}
		if e.High != nil {
			hi := inf.expr(fn, e.High)
			inf.oneOf(hi, integerKinds, e.Span(), "range bound must be integer")
		}
		return types.Struct("Range")
	case *ast.CallExpr:
		calleeTy := inf.expr(fn, e.Fn)
		argTys := make([]*types.InferType, len(e.Args))
		for i, a := range e.Args {
			argTys[i] = inf.expr(fn, a)
		}
		result := inf.fresh()
		inf.equal(calleeTy, types.Func(argTys, result), e.Span(), "function call")
		return result
	case *ast.DotExpr:
		inf.expr(fn, e.Left)
		return types.Dynamic
	case *ast.IndexExpr:
		prefixTy := inf.expr(fn, e.Prefix)
		if r, ok := e.Index.(*ast.RangeExpr); ok {
			inf.expr(fn, r)
			return prefixTy
		}
		idxTy := inf.expr(fn, e.Index)
		inf.oneOf(idxTy, integerKinds, e.Span(), "index must be integer")
		if prefixTy != nil && !prefixTy.IsVar() && (prefixTy.Kind == types.KindArray || prefixTy.Kind == types.KindVec) {
			return prefixTy.Elem
		}
		return types.Dynamic
	case *ast.ArrayExpr:
		var elem *types.InferType = inf.fresh()
		for _, it := range e.Items {
			t := inf.expr(fn, it)
			inf.equal(elem, t, it.Span(), "array element type")
		}
		if e.Kind == "" {
			return types.Collection(types.KindArray, elem)
		}
		ann := inf.annotationType(e.Elem)
		inf.equal(elem, ann, e.Span(), "typed collection literal element")
		k := types.KindArray
		if e.Kind == "Vec" {
			k = types.KindVec
		}
		return types.Collection(k, ann)
	case *ast.StructLitExpr:
		for _, fi := range e.Fields {
			inf.expr(fn, fi.Value)
		}
		return types.Struct(e.Name.Lit)
	case *ast.LambdaExpr:
		return inf.funcBody(fn, e.Sig, e.Body)
	case *ast.IfExpr:
		inf.condExpr(fn, e.Cond)
		thenTy := inf.block(fn, e.Then)
		if e.Else == nil {
			return types.Concrete(types.KindNull)
		}
		elseTy := inf.ifExprElse(fn, e.Else)
		inf.equal(thenTy, elseTy, e.Span(), "if-expression branches must unify")
		return thenTy
	case *ast.CastExpr:
		src := inf.expr(fn, e.Expr)
		target := inf.annotationType(e.Type)
		_ = src
		return target
	case *ast.AssignExpr:
		targetTy := inf.expr(fn, e.Target)
		valTy := inf.expr(fn, e.Value)
		inf.equal(targetTy, valTy, e.Span(), "assignment")
		return valTy
	default:
		return types.Dynamic
	}
}

func (inf *inferrer) ifExprElse(fn *funcScope, n ast.Node) *types.InferType {
	switch n := n.(type) {
	case *ast.Block:
		return inf.block(fn, n)
	case *ast.IfExpr:
		return inf.expr(fn, n)
	default:
		return types.Dynamic
	}
}

func (inf *inferrer) unary(fn *funcScope, e *ast.UnaryExpr) *types.InferType {
	right := inf.expr(fn, e.Right)
	switch e.Op {
	case token.NOT:
		inf.equal(right, types.Concrete(types.KindBool), e.Span(), "logical not")
		return types.Concrete(types.KindBool)
	case token.TILDE:
		inf.oneOf(right, integerKinds, e.Span(), "bitwise not requires integer")
		return right
	case token.MINUS:
		inf.oneOf(right, numericKinds, e.Span(), "unary minus requires numeric")
		return right
	case token.TRY, token.MUST:
		return right
	default:
		return right
	}
}

func (inf *inferrer) binary(fn *funcScope, e *ast.BinaryExpr) *types.InferType {
	left := inf.expr(fn, e.Left)
	right := inf.expr(fn, e.Right)
	switch e.Op {
	case token.PLUS:
		inf.equal(left, right, e.Span(), "operand types")
		inf.constraints = append(inf.constraints, Constraint{
			Kind: COneOf, T: left,
			Candidates: append(append([]types.Kind{}, numericKinds...), types.KindString),
			Span:       e.Span(), Reason: "+ requires numeric or string",
		})
		return left
	case token.MINUS, token.STAR, token.SLASH, token.PERCENT:
		inf.equal(left, right, e.Span(), "operand types")
		inf.oneOf(left, numericKinds, e.Span(), "arithmetic requires numeric")
		return left
	case token.AMPERSAND, token.PIPE, token.CIRCUMFLEX, token.LTLT, token.GTGT:
		inf.equal(left, right, e.Span(), "bitwise operand types")
		inf.oneOf(left, integerKinds, e.Span(), "bitwise requires integer")
		return left
	case token.ANDAND, token.OROR:
		inf.equal(left, types.Concrete(types.KindBool), e.Span(), "logical operand must be bool")
		inf.equal(right, types.Concrete(types.KindBool), e.Span(), "logical operand must be bool")
		return types.Concrete(types.KindBool)
	case token.EQEQ, token.NEQ:
		if !inf.compatible(left, right) {
			inf.warnings = append(inf.warnings, Warning{Span: e.Span(), Msg: "comparison of incompatible types"})
		}
		return types.Concrete(types.KindBool)
	case token.LT, token.LE, token.GT, token.GE:
		inf.equal(left, right, e.Span(), "comparison operand types")
		return types.Concrete(types.KindBool)
	default:
		return types.Dynamic
	}
}

// compatible is a best-effort static check used only to decide whether to
// emit the "incompatible comparison" warning (spec §4.3: a warning, not an
// error, since comparisons are gradual).
func (inf *inferrer) compatible(a, b *types.InferType) bool {
	a, b = inf.solver.prune(a), inf.solver.prune(b)
	if a == nil || b == nil || a.IsVar() || b.IsVar() {
		return true
	}
	if a.Kind == types.KindDynamic || b.Kind == types.KindDynamic {
		return true
	}
	return a.Kind == b.Kind
}


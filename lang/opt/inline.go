package opt

import (
	"fmt"

	"github.com/aelys-lang/aelys/lang/ast"
	"github.com/aelys-lang/aelys/lang/sema"
)

// inlineBudgetPct caps total bloat from inlining to 20% of the chunk's
// original statement count (spec §4.4's "global size-bloat budget").
const inlineBudgetPct = 20

// maxCalleeSize is the statement-count ceiling a callee must stay under to
// even be considered for inlining.
const maxCalleeSize = 12

// inliner inlines small, non-recursive, capture-free function declarations
// at their call sites (spec §4.4) by substituting the argument expressions
// for the parameters of a single-expression body. Parameters and locals
// are not renamed.
type inliner struct {
	prog  *sema.Program
	stats *Stats

	funcs    map[string]*ast.FuncDeclStmt
	recurse  map[string]bool
	captures map[string]bool
	oversize map[string]bool
	budget   int
	spent    int
	counter  int
}

func (in *inliner) run(stmts []ast.Stmt, warnings []Warning) ([]ast.Stmt, []Warning) {
	in.funcs = map[string]*ast.FuncDeclStmt{}
	in.recurse = map[string]bool{}
	in.captures = map[string]bool{}
	in.oversize = map[string]bool{}
	in.budget = totalStmts(stmts) * inlineBudgetPct / 100
	if in.budget < 4 {
		in.budget = 4
	}

	for _, s := range stmts {
		if fn, ok := s.(*ast.FuncDeclStmt); ok {
			in.funcs[fn.Name.Lit] = fn
		}
	}
	for name, fn := range in.funcs {
		annotated := hasDecoratorNamed(fn, "inline")
		if callsSelf(fn, name) {
			in.recurse[name] = true
			if annotated {
				warnings = append(warnings, Warning{Span: fn.Span(), Msg: fmt.Sprintf("function %q is recursive, not inlined", name)})
			}
		}
		if hasFreeCaptures(fn) {
			in.captures[name] = true
			if annotated {
				warnings = append(warnings, Warning{Span: fn.Span(), Msg: fmt.Sprintf("function %q has free captures, not inlined", name)})
			}
		}
		if !annotated && stmtCount(fn.Body.Stmts) > maxCalleeSize {
			in.oversize[name] = true
		}
	}

	out := in.stmts(stmts)
	return out, warnings
}

func (in *inliner) stmts(s []ast.Stmt) []ast.Stmt {
	for i, st := range s {
		s[i] = in.stmt(st)
	}
	return s
}

func (in *inliner) stmt(s ast.Stmt) ast.Stmt {
	switch s := s.(type) {
	case *ast.LetStmt:
		s.Value = in.expr(s.Value)
	case *ast.ExprStmt:
		s.Expr = in.expr(s.Expr)
	case *ast.BlockStmt:
		s.Block.Stmts = in.stmts(s.Block.Stmts)
	case *ast.IfStmt:
		s.Cond = in.expr(s.Cond)
		s.Then.Stmts = in.stmts(s.Then.Stmts)
		if s.Else != nil {
			s.Else = in.stmt(s.Else)
		}
	case *ast.WhileStmt:
		s.Cond = in.expr(s.Cond)
		s.Body.Stmts = in.stmts(s.Body.Stmts)
	case *ast.ForRangeStmt:
		s.Body.Stmts = in.stmts(s.Body.Stmts)
	case *ast.ForEachStmt:
		s.Iterable = in.expr(s.Iterable)
		s.Body.Stmts = in.stmts(s.Body.Stmts)
	case *ast.ReturnStmt:
		if s.Value != nil {
			s.Value = in.expr(s.Value)
		}
	case *ast.FuncDeclStmt:
		s.Body.Stmts = in.stmts(s.Body.Stmts)
	}
	return s
}

// expr inlines a direct call to a known, eligible, single-expression-body
// function by substituting argument expressions for its parameters. Calls to functions with a multi-statement body are left for
// the backend, since splicing statements into an arbitrary expression
// position would require a full statement-to-expression lowering this
// optimizer does not perform.
func (in *inliner) expr(e ast.Expr) ast.Expr {
	switch e := e.(type) {
	case *ast.CallExpr:
		e.Fn = in.expr(e.Fn)
		for i, a := range e.Args {
			e.Args[i] = in.expr(a)
		}
		if id, ok := e.Fn.(*ast.IdentExpr); ok {
			if body, ok := in.inlineSingleExprCall(id.Lit, e.Args); ok {
				in.stats.FunctionsInlined++
				return body
			}
		}
		return e
	case *ast.ParenExpr:
		e.Expr = in.expr(e.Expr)
		return e
	case *ast.UnaryExpr:
		e.Right = in.expr(e.Right)
		return e
	case *ast.BinaryExpr:
		e.Left = in.expr(e.Left)
		e.Right = in.expr(e.Right)
		return e
	case *ast.IndexExpr:
		e.Prefix = in.expr(e.Prefix)
		e.Index = in.expr(e.Index)
		return e
	case *ast.DotExpr:
		e.Left = in.expr(e.Left)
		return e
	case *ast.ArrayExpr:
		for i, it := range e.Items {
			e.Items[i] = in.expr(it)
		}
		return e
	case *ast.CastExpr:
		e.Expr = in.expr(e.Expr)
		return e
	case *ast.AssignExpr:
		e.Value = in.expr(e.Value)
		return e
	default:
		return e
	}
}

// inlineSingleExprCall handles the common case of a callee whose body is
// exactly one `return expr` (or one bare trailing expression), splicing
// the argument values in as a renamed let-binding chain wrapped in an
// immediately-evaluated if-expression is unnecessary: a single-expression
// body can be substituted directly.
func (in *inliner) inlineSingleExprCall(name string, args []ast.Expr) (ast.Expr, bool) {
	fn, ok := in.funcs[name]
	if !ok || in.recurse[name] || in.captures[name] || in.oversize[name] {
		return nil, false
	}
	if len(fn.Body.Stmts) != 1 {
		return nil, false
	}
	if in.spent >= in.budget {
		return nil, false
	}
	var retExpr ast.Expr
	switch s := fn.Body.Stmts[0].(type) {
	case *ast.ReturnStmt:
		retExpr = s.Value
	case *ast.ExprStmt:
		retExpr = s.Expr
	default:
		return nil, false
	}
	if retExpr == nil || len(fn.Sig.Params) != len(args) {
		return nil, false
	}
	subst := map[string]ast.Expr{}
	for i, p := range fn.Sig.Params {
		subst[p.Name.Lit] = args[i]
	}
	in.counter++
	in.spent++
	return substituteIdents(retExpr, subst), true
}

func substituteIdents(e ast.Expr, subst map[string]ast.Expr) ast.Expr {
	switch e := e.(type) {
	case *ast.IdentExpr:
		if v, ok := subst[e.Lit]; ok {
			return v
		}
		return e
	case *ast.ParenExpr:
		e.Expr = substituteIdents(e.Expr, subst)
		return e
	case *ast.UnaryExpr:
		e.Right = substituteIdents(e.Right, subst)
		return e
	case *ast.BinaryExpr:
		e.Left = substituteIdents(e.Left, subst)
		e.Right = substituteIdents(e.Right, subst)
		return e
	case *ast.CallExpr:
		e.Fn = substituteIdents(e.Fn, subst)
		for i, a := range e.Args {
			e.Args[i] = substituteIdents(a, subst)
		}
		return e
	case *ast.IndexExpr:
		e.Prefix = substituteIdents(e.Prefix, subst)
		e.Index = substituteIdents(e.Index, subst)
		return e
	case *ast.DotExpr:
		e.Left = substituteIdents(e.Left, subst)
		return e
	case *ast.CastExpr:
		e.Expr = substituteIdents(e.Expr, subst)
		return e
	default:
		return e
	}
}

func callsSelf(fn *ast.FuncDeclStmt, name string) bool {
	found := false
	var v ast.VisitorFunc
	v = func(n ast.Node, dir ast.VisitDirection) ast.Visitor {
		if dir != ast.VisitEnter || found {
			return nil
		}
		if call, ok := n.(*ast.CallExpr); ok {
			if id, ok := call.Fn.(*ast.IdentExpr); ok && id.Lit == name {
				found = true
				return nil
			}
		}
		return v
	}
	ast.Walk(v, fn.Body)
	return found
}

// hasFreeCaptures reports whether fn's body contains a nested lambda
// literal, a conservative syntactic approximation good enough to veto
// inlining (the compiler's own resolver makes the precise determination).
// Identifiers that name neither a parameter nor a local are not flagged.
func hasFreeCaptures(fn *ast.FuncDeclStmt) bool {
	locals := map[string]bool{}
	for _, p := range fn.Sig.Params {
		locals[p.Name.Lit] = true
	}
	free := false
	var v ast.VisitorFunc
	v = func(n ast.Node, dir ast.VisitDirection) ast.Visitor {
		if dir != ast.VisitEnter {
			return nil
		}
		switch n := n.(type) {
		case *ast.LetStmt:
			locals[n.Name.Lit] = true
		case *ast.ForRangeStmt:
			locals[n.Name.Lit] = true
		case *ast.ForEachStmt:
			locals[n.Name.Lit] = true
		case *ast.LambdaExpr:
			free = true
		}
		return v
	}
	ast.Walk(v, fn.Body)
	return free
}

func hasDecoratorNamed(fn *ast.FuncDeclStmt, name string) bool {
	for _, d := range fn.Decorators {
		if id, ok := d.(*ast.IdentExpr); ok && id.Lit == name {
			return true
		}
	}
	return false
}

func totalStmts(stmts []ast.Stmt) int {
	n := 0
	var v ast.VisitorFunc
	v = func(n2 ast.Node, dir ast.VisitDirection) ast.Visitor {
		if dir != ast.VisitEnter {
			return nil
		}
		if _, ok := n2.(ast.Stmt); ok {
			n++
		}
		return v
	}
	for _, s := range stmts {
		ast.Walk(v, s)
	}
	return n
}

func stmtCount(stmts []ast.Stmt) int { return totalStmts(stmts) }

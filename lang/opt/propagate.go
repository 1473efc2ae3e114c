package opt

import (
	"github.com/aelys-lang/aelys/lang/ast"
	"github.com/aelys-lang/aelys/lang/sema"
)

// localProp substitutes immutable locals bound to a literal constant into
// their later uses within the same scope (spec §4.4). Reassignment (only
// possible for `mut` locals, but tracked defensively) invalidates the
// binding; loop-condition operands referencing a loop-updated variable are
// deliberately left alone so a non-constant condition is never folded away.
type localProp struct {
	prog  *sema.Program
	stats *Stats
}

// env maps a local name to its known constant value; the entry is deleted
// once it has been invalidated (reassigned, or shadowed by a non-constant
// binding).
type env map[string]*ast.LiteralExpr

func (p *localProp) child(parent env) env {
	c := make(env, len(parent))
	for k, v := range parent {
		c[k] = v
	}
	return c
}

func (p *localProp) stmts(in []ast.Stmt, outer env) []ast.Stmt {
	e := p.child(outer)
	for i, s := range in {
		in[i] = p.stmt(s, e)
	}
	return in
}

func (p *localProp) stmt(s ast.Stmt, e env) ast.Stmt {
	switch s := s.(type) {
	case *ast.LetStmt:
		s.Value = p.subst(s.Value, e)
		if !s.Mut {
			if lit, ok := s.Value.(*ast.LiteralExpr); ok {
				e[s.Name.Lit] = lit
				return s
			}
		}
		delete(e, s.Name.Lit)
	case *ast.ExprStmt:
		s.Expr = p.subst(s.Expr, e)
		if assign, ok := s.Expr.(*ast.AssignExpr); ok {
			if id, ok := assign.Target.(*ast.IdentExpr); ok {
				delete(e, id.Lit)
			}
		}
	case *ast.BlockStmt:
		s.Block.Stmts = p.stmts(s.Block.Stmts, e)
	case *ast.IfStmt:
		s.Cond = p.subst(s.Cond, e)
		s.Then.Stmts = p.stmts(s.Then.Stmts, e)
		if s.Else != nil {
			s.Else = p.stmt(s.Else, p.child(e))
		}
	case *ast.WhileStmt:
		loopVars := assignedNames(s.Body.Stmts)
		condEnv := withoutNames(e, loopVars)
		s.Cond = p.subst(s.Cond, condEnv)
		s.Body.Stmts = p.stmts(s.Body.Stmts, e)
	case *ast.ForRangeStmt:
		s.Low = p.subst(s.Low, e)
		s.High = p.subst(s.High, e)
		if s.Step != nil {
			s.Step = p.subst(s.Step, e)
		}
		inner := p.child(e)
		delete(inner, s.Name.Lit)
		s.Body.Stmts = p.stmts(s.Body.Stmts, inner)
	case *ast.ForEachStmt:
		s.Iterable = p.subst(s.Iterable, e)
		inner := p.child(e)
		delete(inner, s.Name.Lit)
		s.Body.Stmts = p.stmts(s.Body.Stmts, inner)
	case *ast.ReturnStmt:
		if s.Value != nil {
			s.Value = p.subst(s.Value, e)
		}
	case *ast.FuncDeclStmt:
		// Function bodies get their own fresh scope: free variables are
		// resolved at runtime through the closure/global mechanism, not
		// substituted textually here.
		s.Body.Stmts = p.stmts(s.Body.Stmts, nil)
	}
	return s
}

// assignedNames collects identifiers that are the target of an assignment
// anywhere in stmts, used to keep a while-loop's condition honest about
// which names the loop body mutates.
func assignedNames(stmts []ast.Stmt) map[string]bool {
	names := map[string]bool{}
	var v ast.VisitorFunc
	v = func(n ast.Node, dir ast.VisitDirection) ast.Visitor {
		if dir != ast.VisitEnter {
			return nil
		}
		if assign, ok := n.(*ast.AssignExpr); ok {
			if id, ok := assign.Target.(*ast.IdentExpr); ok {
				names[id.Lit] = true
			}
		}
		return v
	}
	for _, s := range stmts {
		ast.Walk(v, s)
	}
	return names
}

func withoutNames(e env, names map[string]bool) env {
	if len(names) == 0 {
		return e
	}
	out := make(env, len(e))
	for k, v := range e {
		if !names[k] {
			out[k] = v
		}
	}
	return out
}

// subst replaces every IdentExpr bound to a known constant with that
// constant, recursing through the expression tree.
func (p *localProp) subst(expr ast.Expr, e env) ast.Expr {
	switch ex := expr.(type) {
	case *ast.IdentExpr:
		if lit, ok := e[ex.Lit]; ok && lit != nil {
			p.stats.LocalsPropagated++
			return lit
		}
		return ex
	case *ast.ParenExpr:
		ex.Expr = p.subst(ex.Expr, e)
		return ex
	case *ast.UnaryExpr:
		ex.Right = p.subst(ex.Right, e)
		return ex
	case *ast.BinaryExpr:
		ex.Left = p.subst(ex.Left, e)
		ex.Right = p.subst(ex.Right, e)
		return ex
	case *ast.RangeExpr:
		if ex.Low != nil {
			ex.Low = p.subst(ex.Low, e)
		}
		if ex.High != nil {
			ex.High = p.subst(ex.High, e)
		}
		return ex
	case *ast.CallExpr:
		ex.Fn = p.subst(ex.Fn, e)
		for i, a := range ex.Args {
			ex.Args[i] = p.subst(a, e)
		}
		return ex
	case *ast.DotExpr:
		ex.Left = p.subst(ex.Left, e)
		return ex
	case *ast.IndexExpr:
		ex.Prefix = p.subst(ex.Prefix, e)
		ex.Index = p.subst(ex.Index, e)
		return ex
	case *ast.ArrayExpr:
		for i, it := range ex.Items {
			ex.Items[i] = p.subst(it, e)
		}
		return ex
	case *ast.StructLitExpr:
		for _, fi := range ex.Fields {
			fi.Value = p.subst(fi.Value, e)
		}
		return ex
	case *ast.LambdaExpr:
		ex.Body.Stmts = p.stmts(ex.Body.Stmts, nil)
		return ex
	case *ast.IfExpr:
		ex.Cond = p.subst(ex.Cond, e)
		ex.Then.Stmts = p.stmts(ex.Then.Stmts, e)
		switch el := ex.Else.(type) {
		case *ast.Block:
			el.Stmts = p.stmts(el.Stmts, e)
		case *ast.IfExpr:
			ex.Else = p.subst(el, e)
		}
		return ex
	case *ast.CastExpr:
		ex.Expr = p.subst(ex.Expr, e)
		return ex
	case *ast.AssignExpr:
		ex.Value = p.subst(ex.Value, e)
		return ex
	default:
		return expr
	}
}

// globalProp substitutes module-level immutable let bindings holding a
// simple constant into every use across the whole chunk (spec §4.4).
type globalProp struct {
	prog  *sema.Program
	stats *Stats
}

func (g *globalProp) run(stmts []ast.Stmt) []ast.Stmt {
	consts := env{}
	for _, s := range stmts {
		if let, ok := s.(*ast.LetStmt); ok && !let.Mut {
			if lit, ok := let.Value.(*ast.LiteralExpr); ok {
				consts[let.Name.Lit] = lit
			}
		}
	}
	if len(consts) == 0 {
		return stmts
	}
	p := &localProp{prog: g.prog, stats: g.stats}
	for i, s := range stmts {
		stmts[i] = g.stmt(s, consts, p)
	}
	return stmts
}

func (g *globalProp) stmt(s ast.Stmt, consts env, p *localProp) ast.Stmt {
	switch s := s.(type) {
	case *ast.LetStmt:
		if _, isConst := consts[s.Name.Lit]; isConst {
			// the declaration's own initializer is already folded; skip
			// self-substitution so the constant keeps its literal form.
			return s
		}
		s.Value = g.substGlobal(s.Value, consts, p)
	case *ast.ExprStmt:
		s.Expr = g.substGlobal(s.Expr, consts, p)
	case *ast.FuncDeclStmt:
		s.Body.Stmts = g.stmts(s.Body.Stmts, consts, p)
	case *ast.IfStmt:
		s.Cond = g.substGlobal(s.Cond, consts, p)
		s.Then.Stmts = g.stmts(s.Then.Stmts, consts, p)
		if s.Else != nil {
			s.Else = g.stmt(s.Else, consts, p)
		}
	case *ast.WhileStmt:
		s.Cond = g.substGlobal(s.Cond, consts, p)
		s.Body.Stmts = g.stmts(s.Body.Stmts, consts, p)
	case *ast.ForRangeStmt:
		s.Body.Stmts = g.stmts(s.Body.Stmts, consts, p)
	case *ast.ForEachStmt:
		s.Iterable = g.substGlobal(s.Iterable, consts, p)
		s.Body.Stmts = g.stmts(s.Body.Stmts, consts, p)
	case *ast.BlockStmt:
		s.Block.Stmts = g.stmts(s.Block.Stmts, consts, p)
	}
	return s
}

func (g *globalProp) stmts(in []ast.Stmt, consts env, p *localProp) []ast.Stmt {
	for i, s := range in {
		in[i] = g.stmt(s, consts, p)
	}
	return in
}

func (g *globalProp) substGlobal(e ast.Expr, consts env, p *localProp) ast.Expr {
	out := p.subst(e, consts)
	if out != e {
		g.stats.GlobalsPropagated++
	}
	return out
}

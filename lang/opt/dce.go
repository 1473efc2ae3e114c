package opt

import (
	"github.com/samber/lo"

	"github.com/aelys-lang/aelys/lang/ast"
)

// eliminator removes statements with no observable side effect whose
// defined locals are never used afterward (spec §4.4), via a backward
// last-use liveness scan per block. Captured variables (referenced inside
// any nested function/lambda literal within the remaining program) are
// pinned alive so a closure compiled later still finds its upvalue.
type eliminator struct {
	stats    *Stats
	captured map[string]bool
}

func (d *eliminator) stmts(in []ast.Stmt) []ast.Stmt {
	d.captured = collectCaptured(in)
	return d.block(in)
}

// block runs a backward pass over a statement list: a variable is "live"
// once something after its declaration reads it; a `let` whose name is
// never read again (and isn't captured) and whose initializer has no
// side effect is dropped. This applies at every scope including chunk top
// level: an unused top-level binding is exactly as dead as a local one
// unless another module's `needs` import reaches it, which lang/sema
// already accounts for by marking such bindings referenced before this
// pass ever runs.
func (d *eliminator) block(in []ast.Stmt) []ast.Stmt {
	for i, s := range in {
		in[i] = d.recurse(s)
	}

	live := map[string]bool{}
	kept := make([]bool, len(in))
	for i := len(in) - 1; i >= 0; i-- {
		s := in[i]
		keep := true
		if let, ok := s.(*ast.LetStmt); ok {
			if !live[let.Name.Lit] && !d.captured[let.Name.Lit] && !hasSideEffect(let.Value) {
				keep = false
				d.stats.StmtsEliminated++
			}
			delete(live, let.Name.Lit)
		}
		if keep {
			markReads(s, live)
		}
		kept[i] = keep
	}
	return lo.Filter(in, func(_ ast.Stmt, i int) bool { return kept[i] })
}

func (d *eliminator) recurse(s ast.Stmt) ast.Stmt {
	switch s := s.(type) {
	case *ast.BlockStmt:
		s.Block.Stmts = d.block(s.Block.Stmts)
	case *ast.IfStmt:
		s.Then.Stmts = d.block(s.Then.Stmts)
		if s.Else != nil {
			s.Else = d.recurse(s.Else)
		}
	case *ast.WhileStmt:
		s.Body.Stmts = d.block(s.Body.Stmts)
	case *ast.ForRangeStmt:
		s.Body.Stmts = d.block(s.Body.Stmts)
	case *ast.ForEachStmt:
		s.Body.Stmts = d.block(s.Body.Stmts)
	case *ast.FuncDeclStmt:
		s.Body.Stmts = d.block(s.Body.Stmts)
	}
	return s
}

// hasSideEffect reports whether evaluating e can do anything beyond
// producing a value: calls, assignments, and manual-memory builtins are
// always considered effectful since the optimizer cannot see into them.
func hasSideEffect(e ast.Expr) bool {
	effect := false
	var v ast.VisitorFunc
	v = func(n ast.Node, dir ast.VisitDirection) ast.Visitor {
		if dir != ast.VisitEnter {
			return nil
		}
		switch n.(type) {
		case *ast.CallExpr, *ast.AssignExpr:
			effect = true
			return nil
		}
		return v
	}
	ast.Walk(v, e)
	return effect
}

// markReads records every identifier read by s (not counting the left side
// of a plain assignment) into live.
func markReads(s ast.Stmt, live map[string]bool) {
	var v ast.VisitorFunc
	v = func(n ast.Node, dir ast.VisitDirection) ast.Visitor {
		if dir != ast.VisitEnter {
			return nil
		}
		if assign, ok := n.(*ast.AssignExpr); ok {
			if _, ok := assign.Target.(*ast.IdentExpr); ok {
				ast.Walk(v, assign.Value)
				return nil
			}
		}
		if id, ok := n.(*ast.IdentExpr); ok {
			live[id.Lit] = true
		}
		return v
	}
	ast.Walk(v, s)
}

// collectCaptured finds every identifier referenced inside a nested
// function or lambda literal anywhere in stmts, which must stay alive in
// the enclosing scope for the closure to capture it.
func collectCaptured(stmts []ast.Stmt) map[string]bool {
	captured := map[string]bool{}
	var insideFunc func(ast.Node)
	insideFunc = func(n ast.Node) {
		var v ast.VisitorFunc
		v = func(n ast.Node, dir ast.VisitDirection) ast.Visitor {
			if dir != ast.VisitEnter {
				return nil
			}
			if id, ok := n.(*ast.IdentExpr); ok {
				captured[id.Lit] = true
			}
			return v
		}
		ast.Walk(v, n)
	}
	var scan func(ast.Node)
	scan = func(n ast.Node) {
		var v ast.VisitorFunc
		v = func(n ast.Node, dir ast.VisitDirection) ast.Visitor {
			if dir != ast.VisitEnter {
				return nil
			}
			switch n := n.(type) {
			case *ast.LambdaExpr:
				insideFunc(n.Body)
			case *ast.FuncDeclStmt:
				insideFunc(n.Body)
			}
			return v
		}
		ast.Walk(v, n)
	}
	for _, s := range stmts {
		scan(s)
	}
	return captured
}

package opt

import (
	"github.com/aelys-lang/aelys/lang/ast"
)

// desugarer rewrites `[@d1 @d2]* fn name(...) {...}` into
// `let name = d1(d2(fn(...) {...}))` (spec supplement C), applying the
// decorator closest to `fn` first so `@d1 @d2 fn f` reads as `d1(d2(f))`.
type desugarer struct{ stats *Stats }

func (d *desugarer) stmts(in []ast.Stmt) []ast.Stmt {
	out := make([]ast.Stmt, 0, len(in))
	for _, s := range in {
		out = append(out, d.stmt(s))
	}
	return out
}

func (d *desugarer) stmt(s ast.Stmt) ast.Stmt {
	switch s := s.(type) {
	case *ast.FuncDeclStmt:
		s.Body.Stmts = d.stmts(s.Body.Stmts)
		if len(s.Decorators) == 0 {
			return s
		}
		// a lone `@inline` is an annotation read by the inliner, not a
		// call wrapper, so the declaration is kept as it is
		if len(s.Decorators) == 1 && hasDecoratorNamed(s, "inline") {
			return s
		}
		lambda := &ast.LambdaExpr{FnPos: s.FnPos, Sig: s.Sig, Body: s.Body}
		var val ast.Expr = lambda
		for i := len(s.Decorators) - 1; i >= 0; i-- {
			val = &ast.CallExpr{
				Fn:     s.Decorators[i],
				Lparen: s.FnPos,
				Args:   []ast.Expr{val},
				Rparen: s.Body.Rbrace,
				File:   s.Name.File,
			}
		}
		d.stats.DecoratorsDesugared++
		return &ast.LetStmt{LetPos: s.FnPos, Name: s.Name, Value: val}
	case *ast.BlockStmt:
		s.Block.Stmts = d.stmts(s.Block.Stmts)
		return s
	case *ast.IfStmt:
		s.Then.Stmts = d.stmts(s.Then.Stmts)
		if s.Else != nil {
			s.Else = d.stmt(s.Else)
		}
		return s
	case *ast.WhileStmt:
		s.Body.Stmts = d.stmts(s.Body.Stmts)
		return s
	case *ast.ForRangeStmt:
		s.Body.Stmts = d.stmts(s.Body.Stmts)
		return s
	case *ast.ForEachStmt:
		s.Body.Stmts = d.stmts(s.Body.Stmts)
		return s
	default:
		return s
	}
}

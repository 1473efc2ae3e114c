package opt

import (
	"github.com/aelys-lang/aelys/lang/ast"
	"github.com/aelys-lang/aelys/lang/sema"
	"github.com/aelys-lang/aelys/lang/token"
)

// folder evaluates arithmetic, comparison, bitwise, logical, and `not` on
// literal operands (spec §4.4), preserving the numeric type of the inputs
// by keeping int64 folds as int64 and float64 folds as float64.
type folder struct {
	prog  *sema.Program
	stats *Stats
}

func (f *folder) stmts(in []ast.Stmt) []ast.Stmt {
	for i, s := range in {
		in[i] = f.stmt(s)
	}
	return in
}

func (f *folder) stmt(s ast.Stmt) ast.Stmt {
	switch s := s.(type) {
	case *ast.LetStmt:
		s.Value = f.expr(s.Value)
	case *ast.ExprStmt:
		s.Expr = f.expr(s.Expr)
	case *ast.BlockStmt:
		s.Block.Stmts = f.stmts(s.Block.Stmts)
	case *ast.IfStmt:
		s.Cond = f.expr(s.Cond)
		s.Then.Stmts = f.stmts(s.Then.Stmts)
		if s.Else != nil {
			s.Else = f.stmt(s.Else)
		}
	case *ast.WhileStmt:
		s.Cond = f.expr(s.Cond)
		s.Body.Stmts = f.stmts(s.Body.Stmts)
	case *ast.ForRangeStmt:
		s.Low = f.expr(s.Low)
		s.High = f.expr(s.High)
		if s.Step != nil {
			s.Step = f.expr(s.Step)
		}
		s.Body.Stmts = f.stmts(s.Body.Stmts)
	case *ast.ForEachStmt:
		s.Iterable = f.expr(s.Iterable)
		s.Body.Stmts = f.stmts(s.Body.Stmts)
	case *ast.ReturnStmt:
		if s.Value != nil {
			s.Value = f.expr(s.Value)
		}
	case *ast.FuncDeclStmt:
		s.Body.Stmts = f.stmts(s.Body.Stmts)
	}
	return s
}

func (f *folder) expr(e ast.Expr) ast.Expr {
	switch e := e.(type) {
	case *ast.ParenExpr:
		e.Expr = f.expr(e.Expr)
		if lit, ok := e.Expr.(*ast.LiteralExpr); ok {
			return lit
		}
		return e
	case *ast.UnaryExpr:
		e.Right = f.expr(e.Right)
		if lit, ok := e.Right.(*ast.LiteralExpr); ok {
			if folded, ok := foldUnary(e.Op, lit); ok {
				f.carryType(e, folded)
				f.stats.ConstantsFolded++
				return folded
			}
		}
		return e
	case *ast.BinaryExpr:
		e.Left = f.expr(e.Left)
		e.Right = f.expr(e.Right)
		ll, lok := e.Left.(*ast.LiteralExpr)
		rl, rok := e.Right.(*ast.LiteralExpr)
		if lok && rok {
			if folded, ok := foldBinary(e.Op, ll, rl); ok {
				f.carryType(e, folded)
				f.stats.ConstantsFolded++
				return folded
			}
		}
		return e
	case *ast.RangeExpr:
		if e.Low != nil {
			e.Low = f.expr(e.Low)
		}
		if e.High != nil {
			e.High = f.expr(e.High)
		}
		return e
	case *ast.CallExpr:
		e.Fn = f.expr(e.Fn)
		for i, a := range e.Args {
			e.Args[i] = f.expr(a)
		}
		return e
	case *ast.DotExpr:
		e.Left = f.expr(e.Left)
		return e
	case *ast.IndexExpr:
		e.Prefix = f.expr(e.Prefix)
		e.Index = f.expr(e.Index)
		return e
	case *ast.ArrayExpr:
		for i, it := range e.Items {
			e.Items[i] = f.expr(it)
		}
		return e
	case *ast.StructLitExpr:
		for _, fi := range e.Fields {
			fi.Value = f.expr(fi.Value)
		}
		return e
	case *ast.LambdaExpr:
		e.Body.Stmts = f.stmts(e.Body.Stmts)
		return e
	case *ast.IfExpr:
		e.Cond = f.expr(e.Cond)
		e.Then.Stmts = f.stmts(e.Then.Stmts)
		switch el := e.Else.(type) {
		case *ast.Block:
			el.Stmts = f.stmts(el.Stmts)
		case *ast.IfExpr:
			e.Else = f.expr(el)
		}
		return e
	case *ast.CastExpr:
		e.Expr = f.expr(e.Expr)
		return e
	case *ast.AssignExpr:
		e.Value = f.expr(e.Value)
		return e
	default:
		return e
	}
}

// carryType copies the resolved type recorded for the pre-fold expression
// (if any) onto the replacement literal, so later passes and the backend
// still see a resolved type for the new node.
func (f *folder) carryType(old ast.Expr, replacement ast.Expr) {
	if f.prog == nil || f.prog.Types == nil {
		return
	}
	if rt, ok := f.prog.Types[old]; ok {
		f.prog.Types[replacement] = rt
	}
}

func foldUnary(op token.Token, r *ast.LiteralExpr) (*ast.LiteralExpr, bool) {
	switch op {
	case token.MINUS:
		switch v := r.Value.(type) {
		case int64:
			return intLit(-v, r), true
		case float64:
			return floatLit(-v, r), true
		}
	case token.NOT:
		if v, ok := r.Value.(bool); ok {
			return boolLit(!v, r), true
		}
	case token.TILDE:
		if v, ok := r.Value.(int64); ok {
			return intLit(^v, r), true
		}
	}
	return nil, false
}

func foldBinary(op token.Token, l, r *ast.LiteralExpr) (*ast.LiteralExpr, bool) {
	if ls, ok := l.Value.(string); ok {
		if rs, ok := r.Value.(string); ok && op == token.PLUS {
			out := &ast.LiteralExpr{Type: token.STRING, File: l.File, Start: l.Start, Raw: ls + rs, Value: ls + rs}
			return out, true
		}
	}
	li, liok := l.Value.(int64)
	ri, riok := r.Value.(int64)
	if liok && riok {
		if out, ok := foldIntBinary(op, li, ri, l); ok {
			return out, true
		}
	}
	lf, lfok := asFloat(l.Value)
	rf, rfok := asFloat(r.Value)
	if lfok && rfok && (!liok || !riok) {
		if out, ok := foldFloatBinary(op, lf, rf, l); ok {
			return out, true
		}
	}
	lb, lbok := l.Value.(bool)
	rb, rbok := r.Value.(bool)
	if lbok && rbok {
		switch op {
		case token.ANDAND:
			return boolLit(lb && rb, l), true
		case token.OROR:
			return boolLit(lb || rb, l), true
		case token.EQEQ:
			return boolLit(lb == rb, l), true
		case token.NEQ:
			return boolLit(lb != rb, l), true
		}
	}
	return nil, false
}

func asFloat(v any) (float64, bool) {
	switch v := v.(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

func foldIntBinary(op token.Token, l, r int64, tmpl *ast.LiteralExpr) (*ast.LiteralExpr, bool) {
	switch op {
	case token.PLUS:
		return intLit(l+r, tmpl), true
	case token.MINUS:
		return intLit(l-r, tmpl), true
	case token.STAR:
		return intLit(l*r, tmpl), true
	case token.SLASH:
		if r == 0 {
			return nil, false
		}
		return intLit(l/r, tmpl), true
	case token.PERCENT:
		if r == 0 {
			return nil, false
		}
		return intLit(l%r, tmpl), true
	case token.PIPE:
		return intLit(l|r, tmpl), true
	case token.CIRCUMFLEX:
		return intLit(l^r, tmpl), true
	case token.AMPERSAND:
		return intLit(l&r, tmpl), true
	case token.LTLT:
		return intLit(l<<uint(r), tmpl), true
	case token.GTGT:
		return intLit(l>>uint(r), tmpl), true
	case token.EQEQ:
		return boolLit(l == r, tmpl), true
	case token.NEQ:
		return boolLit(l != r, tmpl), true
	case token.LT:
		return boolLit(l < r, tmpl), true
	case token.LE:
		return boolLit(l <= r, tmpl), true
	case token.GT:
		return boolLit(l > r, tmpl), true
	case token.GE:
		return boolLit(l >= r, tmpl), true
	}
	return nil, false
}

func foldFloatBinary(op token.Token, l, r float64, tmpl *ast.LiteralExpr) (*ast.LiteralExpr, bool) {
	switch op {
	case token.PLUS:
		return floatLit(l+r, tmpl), true
	case token.MINUS:
		return floatLit(l-r, tmpl), true
	case token.STAR:
		return floatLit(l*r, tmpl), true
	case token.SLASH:
		if r == 0 {
			return nil, false
		}
		return floatLit(l/r, tmpl), true
	case token.EQEQ:
		return boolLit(l == r, tmpl), true
	case token.NEQ:
		return boolLit(l != r, tmpl), true
	case token.LT:
		return boolLit(l < r, tmpl), true
	case token.LE:
		return boolLit(l <= r, tmpl), true
	case token.GT:
		return boolLit(l > r, tmpl), true
	case token.GE:
		return boolLit(l >= r, tmpl), true
	}
	return nil, false
}

func intLit(v int64, tmpl *ast.LiteralExpr) *ast.LiteralExpr {
	return &ast.LiteralExpr{Type: token.INT, File: tmpl.File, Start: tmpl.Start, Raw: tmpl.Raw, Value: v}
}

func floatLit(v float64, tmpl *ast.LiteralExpr) *ast.LiteralExpr {
	return &ast.LiteralExpr{Type: token.FLOAT, File: tmpl.File, Start: tmpl.Start, Raw: tmpl.Raw, Value: v}
}

func boolLit(v bool, tmpl *ast.LiteralExpr) *ast.LiteralExpr {
	tok := token.FALSE
	if v {
		tok = token.TRUE
	}
	return &ast.LiteralExpr{Type: tok, File: tmpl.File, Start: tmpl.Start, Raw: tmpl.Raw, Value: v}
}

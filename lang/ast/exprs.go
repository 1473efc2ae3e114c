package ast

import (
	"fmt"

	"github.com/aelys-lang/aelys/lang/token"
)

// Unwrap recursively strips ParenExpr wrappers.
func Unwrap(e Expr) Expr {
	for {
		p, ok := e.(*ParenExpr)
		if !ok {
			return e
		}
		e = p.Expr
	}
}

// IsAssignable reports whether e may appear on the left of an assignment:
// an identifier, a dotted member, or an index expression (spec §4.2).
func IsAssignable(e Expr) bool {
	switch e := e.(type) {
	case *IdentExpr:
		return true
	case *DotExpr:
		return IsAssignable(Unwrap(e.Left))
	case *IndexExpr:
		return IsAssignable(Unwrap(e.Prefix))
	default:
		return false
	}
}

type (
	// LiteralExpr is a literal int, float, string, bool, or null.
	LiteralExpr struct {
		Type  token.Token // INT, FLOAT, STRING, FSTRING, TRUE, FALSE, NULL
		Start token.Pos
		File  *token.File
		Raw   string
		Value any // int64 | float64 | string | bool | nil
	}

	// IdentExpr is a bare identifier.
	IdentExpr struct {
		Start token.Pos
		File  *token.File
		Lit   string
	}

	// ParenExpr is a parenthesized expression, kept to preserve spans and
	// grouping precedence.
	ParenExpr struct {
		Lparen, Rparen token.Pos
		File           *token.File
		Expr           Expr
	}

	// UnaryExpr is a prefix unary operator expression: `- not ~ try must`.
	UnaryExpr struct {
		Op      token.Token
		OpStart token.Pos
		File    *token.File
		Right   Expr
	}

	// BinaryExpr is an infix binary operator expression.
	BinaryExpr struct {
		Left  Expr
		Op    token.Token
		OpPos token.Pos
		Right Expr
	}

	// RangeExpr is `lo..hi` or `lo..=hi`.
	RangeExpr struct {
		Low       Expr // may be nil for an open-ended slice bound
		High      Expr // may be nil
		Inclusive bool
		OpPos     token.Pos
		File      *token.File
	}

	// CallExpr is a function call `fn(args...)`.
	CallExpr struct {
		Fn     Expr
		Lparen token.Pos
		Args   []Expr
		Rparen token.Pos
		File   *token.File
	}

	// DotExpr is member access `x.y`.
	DotExpr struct {
		Left  Expr
		Dot   token.Pos
		Right *IdentExpr
	}

	// IndexExpr is indexing or slicing `x[i]` / `x[lo..hi]`.
	IndexExpr struct {
		Prefix Expr
		Lbrack token.Pos
		Index  Expr // may be a *RangeExpr for a slice
		Rbrack token.Pos
	}

	// ArrayExpr is an array literal `[a, b, c]`, optionally typed
	// (`Array<T>[...]` / `Vec<T>[...]`).
	ArrayExpr struct {
		Kind   string // "", "Array", or "Vec"
		Elem   *TypeAnnotation // non-nil iff Kind != ""
		Lbrack token.Pos
		Items  []Expr
		Rbrack token.Pos
		File   *token.File
	}

	// FieldInit is a single `name: value` in a struct literal.
	FieldInit struct {
		Name  *IdentExpr
		Value Expr
	}

	// StructLitExpr is a struct literal `Name{ field: value, ... }`.
	StructLitExpr struct {
		Name   *IdentExpr
		Lbrace token.Pos
		Fields []*FieldInit
		Rbrace token.Pos
	}

	// LambdaExpr is a function literal `fn(params) [-> T] { body }`.
	LambdaExpr struct {
		FnPos token.Pos
		Sig   *FuncSignature
		Body  *Block
	}

	// IfExpr is `if` used in expression position; Else may be another
	// *IfExpr (elif chain) or a *Block, or nil.
	IfExpr struct {
		IfPos token.Pos
		Cond  Expr
		Then  *Block
		Else  Node // *Block, *IfExpr, or nil
	}

	// CastExpr is `expr as Type`.
	CastExpr struct {
		Expr Expr
		As   token.Pos
		Type *TypeAnnotation
	}

	// AssignExpr is `target = value`. Compound assignment (`+=` etc.) and
	// post-increment/decrement are desugared into this node by the parser
	// (spec §4.2): `x op= expr` becomes `x = x op expr`.
	AssignExpr struct {
		Target Expr
		Eq     token.Pos
		Value  Expr
	}
)

func (n *LiteralExpr) Format(f fmt.State, verb rune) { format(f, verb, n, n.Type.String()+" "+n.Raw, nil) }
func (n *LiteralExpr) Span() token.Span {
	return token.Span{File: n.File, Lo: n.Start, Hi: n.Start + token.Pos(len(n.Raw))}
}
func (n *LiteralExpr) Walk(v Visitor) {}
func (n *LiteralExpr) expr()          {}

func (n *IdentExpr) Format(f fmt.State, verb rune) { format(f, verb, n, n.Lit, nil) }
func (n *IdentExpr) Span() token.Span {
	return token.Span{File: n.File, Lo: n.Start, Hi: n.Start + token.Pos(len(n.Lit))}
}
func (n *IdentExpr) Walk(v Visitor) {}
func (n *IdentExpr) expr()          {}

func (n *ParenExpr) Format(f fmt.State, verb rune) { format(f, verb, n, "(expr)", nil) }
func (n *ParenExpr) Span() token.Span              { return token.Span{File: n.File, Lo: n.Lparen, Hi: n.Rparen + 1} }
func (n *ParenExpr) Walk(v Visitor)                { Walk(v, n.Expr) }
func (n *ParenExpr) expr()                         {}

func (n *UnaryExpr) Format(f fmt.State, verb rune) { format(f, verb, n, "unary "+n.Op.GoString(), nil) }
func (n *UnaryExpr) Span() token.Span {
	_, hi := n.Right.Span().Lo, n.Right.Span().Hi
	return token.Span{File: n.File, Lo: n.OpStart, Hi: hi}
}
func (n *UnaryExpr) Walk(v Visitor) { Walk(v, n.Right) }
func (n *UnaryExpr) expr()          {}

func (n *BinaryExpr) Format(f fmt.State, verb rune) { format(f, verb, n, "binary "+n.Op.GoString(), nil) }
func (n *BinaryExpr) Span() token.Span {
	l, r := n.Left.Span(), n.Right.Span()
	return token.Span{File: l.File, Lo: l.Lo, Hi: r.Hi}
}
func (n *BinaryExpr) Walk(v Visitor) { Walk(v, n.Left); Walk(v, n.Right) }
func (n *BinaryExpr) expr()          {}

func (n *RangeExpr) Format(f fmt.State, verb rune) { format(f, verb, n, "range", nil) }
func (n *RangeExpr) Span() token.Span {
	lo, hi := n.OpPos, n.OpPos
	if n.Low != nil {
		lo = n.Low.Span().Lo
	}
	if n.High != nil {
		hi = n.High.Span().Hi
	}
	return token.Span{File: n.File, Lo: lo, Hi: hi}
}
func (n *RangeExpr) Walk(v Visitor) {
	if n.Low != nil {
		Walk(v, n.Low)
	}
	if n.High != nil {
		Walk(v, n.High)
	}
}
func (n *RangeExpr) expr() {}

func (n *CallExpr) Format(f fmt.State, verb rune) {
	format(f, verb, n, "call", map[string]int{"args": len(n.Args)})
}
func (n *CallExpr) Span() token.Span {
	return token.Span{File: n.File, Lo: n.Fn.Span().Lo, Hi: n.Rparen + 1}
}
func (n *CallExpr) Walk(v Visitor) {
	Walk(v, n.Fn)
	for _, a := range n.Args {
		Walk(v, a)
	}
}
func (n *CallExpr) expr() {}

func (n *DotExpr) Format(f fmt.State, verb rune) { format(f, verb, n, "expr.ident", nil) }
func (n *DotExpr) Span() token.Span {
	l, r := n.Left.Span(), n.Right.Span()
	return token.Span{File: l.File, Lo: l.Lo, Hi: r.Hi}
}
func (n *DotExpr) Walk(v Visitor) { Walk(v, n.Left); Walk(v, n.Right) }
func (n *DotExpr) expr()          {}

func (n *IndexExpr) Format(f fmt.State, verb rune) { format(f, verb, n, "expr[index]", nil) }
func (n *IndexExpr) Span() token.Span {
	return token.Span{File: n.Prefix.Span().File, Lo: n.Prefix.Span().Lo, Hi: n.Rbrack + 1}
}
func (n *IndexExpr) Walk(v Visitor) { Walk(v, n.Prefix); Walk(v, n.Index) }
func (n *IndexExpr) expr()          {}

func (n *ArrayExpr) Format(f fmt.State, verb rune) {
	lbl := "array"
	if n.Kind != "" {
		lbl = n.Kind + "<" + n.Elem.String() + ">"
	}
	format(f, verb, n, lbl, map[string]int{"items": len(n.Items)})
}
func (n *ArrayExpr) Span() token.Span { return token.Span{File: n.File, Lo: n.Lbrack, Hi: n.Rbrack + 1} }
func (n *ArrayExpr) Walk(v Visitor) {
	for _, e := range n.Items {
		Walk(v, e)
	}
}
func (n *ArrayExpr) expr() {}

func (n *StructLitExpr) Format(f fmt.State, verb rune) {
	format(f, verb, n, "struct "+n.Name.Lit, map[string]int{"fields": len(n.Fields)})
}
func (n *StructLitExpr) Span() token.Span {
	return token.Span{File: n.Name.File, Lo: n.Name.Start, Hi: n.Rbrace + 1}
}
func (n *StructLitExpr) Walk(v Visitor) {
	for _, fi := range n.Fields {
		Walk(v, fi.Value)
	}
}
func (n *StructLitExpr) expr() {}

func (n *LambdaExpr) Format(f fmt.State, verb rune) {
	format(f, verb, n, "fn", map[string]int{"params": len(n.Sig.Params)})
}
func (n *LambdaExpr) Span() token.Span {
	return token.Span{File: n.Body.File, Lo: n.FnPos, Hi: n.Body.Span().Hi}
}
func (n *LambdaExpr) Walk(v Visitor) { Walk(v, n.Body) }
func (n *LambdaExpr) expr()          {}

func (n *IfExpr) Format(f fmt.State, verb rune) { format(f, verb, n, "if-expr", nil) }
func (n *IfExpr) Span() token.Span {
	hi := n.Then.Span().Hi
	if n.Else != nil {
		hi = n.Else.Span().Hi
	}
	return token.Span{File: n.Then.File, Lo: n.IfPos, Hi: hi}
}
func (n *IfExpr) Walk(v Visitor) {
	Walk(v, n.Cond)
	Walk(v, n.Then)
	if n.Else != nil {
		Walk(v, n.Else)
	}
}
func (n *IfExpr) expr() {}

func (n *CastExpr) Format(f fmt.State, verb rune) { format(f, verb, n, "cast as "+n.Type.String(), nil) }
func (n *CastExpr) Span() token.Span {
	return token.Span{File: n.Expr.Span().File, Lo: n.Expr.Span().Lo, Hi: n.Type.Span().Hi}
}
func (n *CastExpr) Walk(v Visitor) { Walk(v, n.Expr) }
func (n *CastExpr) expr()          {}

func (n *AssignExpr) Format(f fmt.State, verb rune) { format(f, verb, n, "assign", nil) }
func (n *AssignExpr) Span() token.Span {
	t, val := n.Target.Span(), n.Value.Span()
	return token.Span{File: t.File, Lo: t.Lo, Hi: val.Hi}
}
func (n *AssignExpr) Walk(v Visitor) { Walk(v, n.Target); Walk(v, n.Value) }
func (n *AssignExpr) expr()          {}

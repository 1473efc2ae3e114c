package ast

import (
	"fmt"

	"github.com/aelys-lang/aelys/lang/token"
)

type (
	// LetStmt is `let [mut] name[: Type] = expr`.
	LetStmt struct {
		LetPos token.Pos
		Mut    bool
		Name   *IdentExpr
		Type   *TypeAnnotation // nil if unannotated
		Value  Expr
	}

	// ExprStmt is an expression used as a statement.
	ExprStmt struct {
		Expr Expr
	}

	// BlockStmt wraps a *Block so it can stand alone as a statement.
	BlockStmt struct {
		Block *Block
	}

	// IfStmt is `if cond {...} [else ...]`; Else may be *IfStmt, *BlockStmt,
	// or nil.
	IfStmt struct {
		IfPos token.Pos
		Cond  Expr
		Then  *Block
		Else  Stmt
	}

	// WhileStmt is `while cond { body }`.
	WhileStmt struct {
		WhilePos token.Pos
		Cond     Expr
		Body     *Block
	}

	// ForRangeStmt is `for name in lo..hi [step expr] { body }`.
	ForRangeStmt struct {
		ForPos    token.Pos
		Name      *IdentExpr
		Low, High Expr
		Inclusive bool
		Step      Expr // nil if absent (defaults to 1)
		Body      *Block
	}

	// ForEachStmt is `for name in iterable { body }`.
	ForEachStmt struct {
		ForPos   token.Pos
		Name     *IdentExpr
		Iterable Expr
		Body     *Block
	}

	// ReturnStmt is `return [expr]`.
	ReturnStmt struct {
		ReturnPos token.Pos
		File      *token.File
		Value     Expr // nil if bare `return`
	}

	// BreakStmt is `break`.
	BreakStmt struct {
		Pos  token.Pos
		File *token.File
	}

	// ContinueStmt is `continue`.
	ContinueStmt struct {
		Pos  token.Pos
		File *token.File
	}

	// FuncDeclStmt is `[@decorator]* fn name[<T,...>](params) [-> T] {body}`.
	FuncDeclStmt struct {
		Decorators []Expr
		FnPos      token.Pos
		Name       *IdentExpr
		Sig        *FuncSignature
		Body       *Block
	}

	// StructDeclStmt is `struct Name { field: Type, ... }`.
	StructDeclStmt struct {
		StructPos token.Pos
		Name      *IdentExpr
		Fields    []*FieldDecl
		Rbrace    token.Pos
	}

	// ImportStmt is `needs mod.sub [as alias | :: symbol[,...] | .*]`.
	ImportStmt struct {
		NeedsPos token.Pos
		File     *token.File
		Path     []string // dotted module path segments
		Alias    string   // "" if absent
		Symbols  []string // non-nil for `:: symbol, ...`
		Wildcard bool     // true for `.*`
		End      token.Pos
	}
)

func (n *LetStmt) Format(f fmt.State, verb rune) { format(f, verb, n, "let "+n.Name.Lit, nil) }
func (n *LetStmt) Span() token.Span {
	return token.Span{File: n.Name.File, Lo: n.LetPos, Hi: n.Value.Span().Hi}
}
func (n *LetStmt) Walk(v Visitor)    { Walk(v, n.Name); Walk(v, n.Value) }
func (n *LetStmt) BlockEnding() bool { return false }

func (n *ExprStmt) Format(f fmt.State, verb rune) { format(f, verb, n, "expr stmt", nil) }
func (n *ExprStmt) Span() token.Span              { return n.Expr.Span() }
func (n *ExprStmt) Walk(v Visitor)                { Walk(v, n.Expr) }
func (n *ExprStmt) BlockEnding() bool             { return false }

func (n *BlockStmt) Format(f fmt.State, verb rune) { format(f, verb, n, "block stmt", nil) }
func (n *BlockStmt) Span() token.Span              { return n.Block.Span() }
func (n *BlockStmt) Walk(v Visitor)                { Walk(v, n.Block) }
func (n *BlockStmt) BlockEnding() bool             { return false }

func (n *IfStmt) Format(f fmt.State, verb rune) { format(f, verb, n, "if", nil) }
func (n *IfStmt) Span() token.Span {
	hi := n.Then.Span().Hi
	if n.Else != nil {
		hi = n.Else.Span().Hi
	}
	return token.Span{File: n.Then.File, Lo: n.IfPos, Hi: hi}
}
func (n *IfStmt) Walk(v Visitor) {
	Walk(v, n.Cond)
	Walk(v, n.Then)
	if n.Else != nil {
		Walk(v, n.Else)
	}
}
func (n *IfStmt) BlockEnding() bool { return false }

func (n *WhileStmt) Format(f fmt.State, verb rune) { format(f, verb, n, "while", nil) }
func (n *WhileStmt) Span() token.Span {
	return token.Span{File: n.Body.File, Lo: n.WhilePos, Hi: n.Body.Span().Hi}
}
func (n *WhileStmt) Walk(v Visitor)    { Walk(v, n.Cond); Walk(v, n.Body) }
func (n *WhileStmt) BlockEnding() bool { return false }

func (n *ForRangeStmt) Format(f fmt.State, verb rune) { format(f, verb, n, "for-range", nil) }
func (n *ForRangeStmt) Span() token.Span {
	return token.Span{File: n.Body.File, Lo: n.ForPos, Hi: n.Body.Span().Hi}
}
func (n *ForRangeStmt) Walk(v Visitor) {
	Walk(v, n.Name)
	Walk(v, n.Low)
	Walk(v, n.High)
	if n.Step != nil {
		Walk(v, n.Step)
	}
	Walk(v, n.Body)
}
func (n *ForRangeStmt) BlockEnding() bool { return false }

func (n *ForEachStmt) Format(f fmt.State, verb rune) { format(f, verb, n, "for-each", nil) }
func (n *ForEachStmt) Span() token.Span {
	return token.Span{File: n.Body.File, Lo: n.ForPos, Hi: n.Body.Span().Hi}
}
func (n *ForEachStmt) Walk(v Visitor) {
	Walk(v, n.Name)
	Walk(v, n.Iterable)
	Walk(v, n.Body)
}
func (n *ForEachStmt) BlockEnding() bool { return false }

func (n *ReturnStmt) Format(f fmt.State, verb rune) { format(f, verb, n, "return", nil) }
func (n *ReturnStmt) Span() token.Span {
	hi := n.ReturnPos + token.Pos(len("return"))
	if n.Value != nil {
		hi = n.Value.Span().Hi
	}
	return token.Span{File: n.File, Lo: n.ReturnPos, Hi: hi}
}
func (n *ReturnStmt) Walk(v Visitor) {
	if n.Value != nil {
		Walk(v, n.Value)
	}
}
func (n *ReturnStmt) BlockEnding() bool { return true }

func (n *BreakStmt) Format(f fmt.State, verb rune) { format(f, verb, n, "break", nil) }
func (n *BreakStmt) Span() token.Span {
	return token.Span{File: n.File, Lo: n.Pos, Hi: n.Pos + token.Pos(len("break"))}
}
func (n *BreakStmt) Walk(v Visitor)    {}
func (n *BreakStmt) BlockEnding() bool { return true }

func (n *ContinueStmt) Format(f fmt.State, verb rune) { format(f, verb, n, "continue", nil) }
func (n *ContinueStmt) Span() token.Span {
	return token.Span{File: n.File, Lo: n.Pos, Hi: n.Pos + token.Pos(len("continue"))}
}
func (n *ContinueStmt) Walk(v Visitor)    {}
func (n *ContinueStmt) BlockEnding() bool { return true }

func (n *FuncDeclStmt) Format(f fmt.State, verb rune) {
	format(f, verb, n, "fn "+n.Name.Lit, map[string]int{"params": len(n.Sig.Params)})
}
func (n *FuncDeclStmt) Span() token.Span {
	return token.Span{File: n.Name.File, Lo: n.FnPos, Hi: n.Body.Span().Hi}
}
func (n *FuncDeclStmt) Walk(v Visitor) {
	for _, d := range n.Decorators {
		Walk(v, d)
	}
	Walk(v, n.Name)
	Walk(v, n.Body)
}
func (n *FuncDeclStmt) BlockEnding() bool { return false }

func (n *StructDeclStmt) Format(f fmt.State, verb rune) {
	format(f, verb, n, "struct "+n.Name.Lit, map[string]int{"fields": len(n.Fields)})
}
func (n *StructDeclStmt) Span() token.Span {
	return token.Span{File: n.Name.File, Lo: n.StructPos, Hi: n.Rbrace + 1}
}
func (n *StructDeclStmt) Walk(v Visitor)    { Walk(v, n.Name) }
func (n *StructDeclStmt) BlockEnding() bool { return false }

func (n *ImportStmt) Format(f fmt.State, verb rune) { format(f, verb, n, "needs", nil) }
func (n *ImportStmt) Span() token.Span {
	return token.Span{File: n.File, Lo: n.NeedsPos, Hi: n.End}
}
func (n *ImportStmt) Walk(v Visitor)    {}
func (n *ImportStmt) BlockEnding() bool { return false }

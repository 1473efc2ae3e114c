// Package ast defines the surface abstract syntax tree produced by the
// parser (spec §4.2): statements, expressions, and type annotations,
// each carrying a token.Span. Node/Visitor/Walk follow the teacher's
// lang/ast package structure (format helper, Visitor pattern).
package ast

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aelys-lang/aelys/lang/token"
)

// Node represents any node in the AST.
type Node interface {
	fmt.Formatter

	// Span reports the source range of the node.
	Span() token.Span

	// Walk enters each child node to implement the Visitor pattern.
	Walk(v Visitor)
}

// Expr represents an expression in the AST.
type Expr interface {
	Node
	expr()
}

// Stmt represents a statement in the AST.
type Stmt interface {
	Node

	// BlockEnding reports whether the statement may only appear last in a
	// block (return, break, continue).
	BlockEnding() bool
}

// Chunk is the root of a parsed file.
type Chunk struct {
	Name  string
	Block *Block
	EOF   token.Pos
	File  *token.File
}

func (n *Chunk) Format(f fmt.State, verb rune) { format(f, verb, n, "chunk "+n.Name, nil) }
func (n *Chunk) Span() token.Span {
	if n.Block != nil {
		return n.Block.Span()
	}
	return token.Span{File: n.File, Lo: n.EOF, Hi: n.EOF}
}
func (n *Chunk) Walk(v Visitor) {
	if n.Block != nil {
		Walk(v, n.Block)
	}
}

// Block is a brace-delimited sequence of statements.
type Block struct {
	Lbrace, Rbrace token.Pos
	File           *token.File
	Stmts          []Stmt
}

func (n *Block) Format(f fmt.State, verb rune) {
	format(f, verb, n, "block", map[string]int{"stmts": len(n.Stmts)})
}
func (n *Block) Span() token.Span {
	return token.Span{File: n.File, Lo: n.Lbrace, Hi: n.Rbrace + 1}
}
func (n *Block) Walk(v Visitor) {
	for _, s := range n.Stmts {
		Walk(v, s)
	}
}

// TypeAnnotation represents a `: Type` or `-> Type` syntactic type, possibly
// generic (e.g. `Array<int>`).
type TypeAnnotation struct {
	Start token.Pos
	File  *token.File
	Name  string
	Args  []*TypeAnnotation // generic type arguments, e.g. Vec<T>
}

func (n *TypeAnnotation) String() string {
	if len(n.Args) == 0 {
		return n.Name
	}
	parts := make([]string, len(n.Args))
	for i, a := range n.Args {
		parts[i] = a.String()
	}
	return n.Name + "<" + strings.Join(parts, ", ") + ">"
}
func (n *TypeAnnotation) Span() token.Span {
	return token.Span{File: n.File, Lo: n.Start, Hi: n.Start + token.Pos(len(n.Name))}
}

// Param is a function parameter: name and optional type annotation.
type Param struct {
	Name *IdentExpr
	Type *TypeAnnotation // nil if untyped (Dynamic)
}

// FuncSignature is the parameter list, optional generic type parameters,
// and optional return type of a function declaration or lambda.
type FuncSignature struct {
	Lparen, Rparen token.Pos
	TypeParams     []string
	Params         []*Param
	ReturnType     *TypeAnnotation // nil if unannotated
}

// FieldDecl is a single `name: Type` field of a struct declaration.
type FieldDecl struct {
	Name *IdentExpr
	Type *TypeAnnotation
}

func format(f fmt.State, verb rune, n Node, label string, counts map[string]int) {
	if verb != 'v' && verb != 's' {
		fmt.Fprintf(f, "%%!%c(%T)", verb, n)
		return
	}
	label = strings.ReplaceAll(label, "\r\n", "⏎")
	label = strings.ReplaceAll(label, "\n", "⏎")
	label = strings.ReplaceAll(label, "\t", "⭾")

	fmt.Fprint(f, label)
	if f.Flag('#') && len(counts) > 0 {
		keys := make([]string, 0, len(counts))
		for k := range counts {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fmt.Fprint(f, " {")
		for i, k := range keys {
			if i > 0 {
				fmt.Fprint(f, ", ")
			}
			fmt.Fprintf(f, "%s=%d", k, counts[k])
		}
		fmt.Fprint(f, "}")
	}
}

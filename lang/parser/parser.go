// Package parser implements the Aelys parser: hand-written recursive
// descent with precedence climbing for expressions, per spec §4.2. The
// overall error-recovery shape (panic on an unexpected token, recovered at
// statement boundaries, diagnostics accumulated in a list) is adapted from
// the teacher's lang/parser package; the grammar itself is new.
package parser

import (
	"fmt"

	"github.com/aelys-lang/aelys/internal/diag"
	"github.com/aelys-lang/aelys/lang/ast"
	"github.com/aelys-lang/aelys/lang/lexer"
	"github.com/aelys-lang/aelys/lang/token"
)

// MaxDepth bounds recursive-descent nesting (spec §4.2's recursion-depth
// limit failure mode) so a pathological input fails cleanly instead of
// overflowing the Go stack.
const MaxDepth = 250

// Parse parses a complete source file into a Chunk. The returned error, if
// non-nil, is a *diag.List.
func Parse(file *token.File, name string) (*ast.Chunk, error) {
	errs := &diag.List{}
	p := &parser{file: file, errs: errs, lex: lexer.New(file, errs)}
	p.advance()
	ch := p.parseChunk(name)
	return ch, errs.Err()
}

type parser struct {
	file  *token.File
	errs  *diag.List
	lex   *lexer.Lexer
	depth int

	tok  token.Token
	val  lexer.Value
	span token.Span

	// suppressStructLit disables parsing `Ident{...}` as a struct literal,
	// used while parsing an if/while/for-range condition or iterable so
	// the opening `{` of the body is never mistaken for one (same
	// ambiguity Go's parser resolves with exprLev).
	suppressStructLit bool
}

var errPanic = fmt.Errorf("parse panic")

func (p *parser) advance() {
	tv := p.lex.Scan()
	p.tok, p.val, p.span = tv.Token, tv.Value, tv.Span
}

func (p *parser) at(tok token.Token) bool { return p.tok == tok }

func (p *parser) accept(tok token.Token) bool {
	if p.tok == tok {
		p.advance()
		return true
	}
	return false
}

func (p *parser) expect(tok token.Token) token.Pos {
	pos := p.span.Lo
	if p.tok != tok {
		p.errorExpected(tok.GoString())
		panic(errPanic)
	}
	p.advance()
	return pos
}

func (p *parser) errorExpected(what string) {
	p.errs.Add(diag.Parse, p.span, "expected %s, found %s", what, p.tok.GoString())
}

func (p *parser) error(span token.Span, format string, args ...any) {
	p.errs.Add(diag.Parse, span, format, args...)
}

// enter/leave track recursion depth across the mutually-recursive
// expr/stmt descent.
func (p *parser) enter() {
	p.depth++
	if p.depth > MaxDepth {
		p.error(p.span, "expression nested too deeply")
		panic(errPanic)
	}
}
func (p *parser) leave() { p.depth-- }

// sync advances past tokens until a statement boundary, used to recover
// after a parse error so the rest of the file can still be checked. It
// stops either after consuming a semicolon or right before a token that
// plausibly starts a new statement, so a still-valid following statement
// is not itself swallowed.
func (p *parser) sync() {
	for {
		switch p.tok {
		case token.SEMI:
			p.advance()
			return
		case token.RBRACE, token.EOF,
			token.LET, token.IF, token.WHILE, token.FOR, token.RETURN,
			token.BREAK, token.CONTINUE, token.FN, token.AT, token.STRUCT,
			token.NEEDS, token.LBRACE:
			return
		default:
			p.advance()
		}
	}
}

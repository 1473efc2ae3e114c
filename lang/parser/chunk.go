package parser

import (
	"github.com/aelys-lang/aelys/lang/ast"
	"github.com/aelys-lang/aelys/lang/token"
)

func (p *parser) parseChunk(name string) *ast.Chunk {
	ch := &ast.Chunk{Name: name, File: p.file}
	stmts := p.parseStmtList(func() bool { return false })
	ch.Block = &ast.Block{File: p.file, Stmts: stmts}
	ch.EOF = p.span.Lo
	return ch
}

// parseStmtList parses statements separated by (possibly auto-inserted)
// semicolons until stop returns true or EOF is reached, recovering from
// individual statement errors so the remainder of the block is still
// checked.
func (p *parser) parseStmtList(stop func() bool) []ast.Stmt {
	var stmts []ast.Stmt
	for !p.atEOF() && !stop() {
		stmts = append(stmts, p.parseStmtRecover())
		for p.accept(token.SEMI) {
		}
	}
	// drop nils produced by recovery
	out := stmts[:0]
	for _, s := range stmts {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

func (p *parser) parseStmtRecover() (s ast.Stmt) {
	defer func() {
		if r := recover(); r != nil {
			if r != errPanic {
				panic(r)
			}
			p.sync()
			s = nil
		}
	}()
	return p.parseStmt()
}

func (p *parser) atEOF() bool { return p.tok == token.EOF }

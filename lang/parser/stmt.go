package parser

import (
	"github.com/aelys-lang/aelys/lang/ast"
	"github.com/aelys-lang/aelys/lang/token"
)

func (p *parser) parseBlock() *ast.Block {
	lbrace := p.expect(token.LBRACE)
	stmts := p.parseStmtList(func() bool { return p.at(token.RBRACE) })
	rbrace := p.expect(token.RBRACE)
	return &ast.Block{Lbrace: lbrace, Rbrace: rbrace, File: p.file, Stmts: stmts}
}

func (p *parser) parseStmt() ast.Stmt {
	p.enter()
	defer p.leave()

	switch p.tok {
	case token.LET:
		return p.parseLetStmt()
	case token.LBRACE:
		return &ast.BlockStmt{Block: p.parseBlock()}
	case token.IF:
		return p.parseIfStmt()
	case token.WHILE:
		return p.parseWhileStmt()
	case token.FOR:
		return p.parseForStmt()
	case token.RETURN:
		return p.parseReturnStmt()
	case token.BREAK:
		pos := p.span.Lo
		file := p.span.File
		p.advance()
		return &ast.BreakStmt{Pos: pos, File: file}
	case token.CONTINUE:
		pos := p.span.Lo
		file := p.span.File
		p.advance()
		return &ast.ContinueStmt{Pos: pos, File: file}
	case token.FN, token.AT:
		return p.parseFuncDeclStmt()
	case token.STRUCT:
		return p.parseStructDeclStmt()
	case token.NEEDS:
		return p.parseImportStmt()
	default:
		return p.parseExprOrAssignStmt()
	}
}

func (p *parser) parseLetStmt() ast.Stmt {
	letPos := p.expect(token.LET)
	mut := p.accept(token.MUT)
	name := p.parseIdent()
	var ty *ast.TypeAnnotation
	if p.accept(token.COLON) {
		ty = p.parseTypeAnnotation()
	}
	p.expect(token.EQ)
	val := p.parseExpr()
	return &ast.LetStmt{LetPos: letPos, Mut: mut, Name: name, Type: ty, Value: val}
}

func (p *parser) parseIfStmt() ast.Stmt {
	ifPos := p.expect(token.IF)
	cond := p.parseCondExpr()
	then := p.parseBlock()
	st := &ast.IfStmt{IfPos: ifPos, Cond: cond, Then: then}
	if p.at(token.ELIF) {
		st.Else = p.parseElifStmt()
	} else if p.accept(token.ELSE) {
		st.Else = &ast.BlockStmt{Block: p.parseBlock()}
	}
	return st
}

func (p *parser) parseElifStmt() ast.Stmt {
	ifPos := p.expect(token.ELIF)
	cond := p.parseCondExpr()
	then := p.parseBlock()
	st := &ast.IfStmt{IfPos: ifPos, Cond: cond, Then: then}
	if p.at(token.ELIF) {
		st.Else = p.parseElifStmt()
	} else if p.accept(token.ELSE) {
		st.Else = &ast.BlockStmt{Block: p.parseBlock()}
	}
	return st
}

func (p *parser) parseWhileStmt() ast.Stmt {
	pos := p.expect(token.WHILE)
	cond := p.parseCondExpr()
	body := p.parseBlock()
	return &ast.WhileStmt{WhilePos: pos, Cond: cond, Body: body}
}

// parseForStmt disambiguates `for name in lo..hi [step e] {}` from
// `for name in iterable {}` by parsing the `in`-expression with struct
// literals suppressed, then checking whether it is a *ast.RangeExpr.
func (p *parser) parseForStmt() ast.Stmt {
	pos := p.expect(token.FOR)
	name := p.parseIdent()
	p.expect(token.IN)
	src := p.parseCondExpr()
	if rng, ok := src.(*ast.RangeExpr); ok {
		var step ast.Expr
		if p.accept(token.STEP) {
			step = p.parseCondExpr()
		}
		body := p.parseBlock()
		return &ast.ForRangeStmt{
			ForPos: pos, Name: name, Low: rng.Low, High: rng.High,
			Inclusive: rng.Inclusive, Step: step, Body: body,
		}
	}
	body := p.parseBlock()
	return &ast.ForEachStmt{ForPos: pos, Name: name, Iterable: src, Body: body}
}

func (p *parser) parseReturnStmt() ast.Stmt {
	pos := p.expect(token.RETURN)
	file := p.span.File
	var val ast.Expr
	if !p.at(token.SEMI) && !p.at(token.RBRACE) && !p.atEOF() {
		val = p.parseExpr()
	}
	return &ast.ReturnStmt{ReturnPos: pos, File: file, Value: val}
}

func (p *parser) parseFuncDeclStmt() ast.Stmt {
	var decorators []ast.Expr
	for p.accept(token.AT) {
		decorators = append(decorators, p.parseUnary())
		// a decorator on its own line is followed by an auto-inserted
		// semicolon before the next `@` or `fn`
		for p.accept(token.SEMI) {
		}
	}
	fnPos := p.expect(token.FN)
	name := p.parseIdent()
	sig := p.parseFuncSignature()
	body := p.parseBlock()
	return &ast.FuncDeclStmt{Decorators: decorators, FnPos: fnPos, Name: name, Sig: sig, Body: body}
}

func (p *parser) parseFuncSignature() *ast.FuncSignature {
	var typeParams []string
	if p.accept(token.LT) {
		for {
			typeParams = append(typeParams, p.parseIdent().Lit)
			if !p.accept(token.COMMA) {
				break
			}
		}
		p.expect(token.GT)
	}
	lparen := p.expect(token.LPAREN)
	var params []*ast.Param
	for !p.at(token.RPAREN) {
		pname := p.parseIdent()
		var pty *ast.TypeAnnotation
		if p.accept(token.COLON) {
			pty = p.parseTypeAnnotation()
		}
		params = append(params, &ast.Param{Name: pname, Type: pty})
		if !p.accept(token.COMMA) {
			break
		}
	}
	rparen := p.expect(token.RPAREN)
	var ret *ast.TypeAnnotation
	if p.accept(token.ARROW) {
		ret = p.parseTypeAnnotation()
	}
	return &ast.FuncSignature{Lparen: lparen, Rparen: rparen, TypeParams: typeParams, Params: params, ReturnType: ret}
}

func (p *parser) parseStructDeclStmt() ast.Stmt {
	pos := p.expect(token.STRUCT)
	name := p.parseIdent()
	p.expect(token.LBRACE)
	var fields []*ast.FieldDecl
	for !p.at(token.RBRACE) {
		fname := p.parseIdent()
		p.expect(token.COLON)
		fty := p.parseTypeAnnotation()
		fields = append(fields, &ast.FieldDecl{Name: fname, Type: fty})
		if !p.accept(token.COMMA) {
			break
		}
	}
	rbrace := p.expect(token.RBRACE)
	return &ast.StructDeclStmt{StructPos: pos, Name: name, Fields: fields, Rbrace: rbrace}
}

func (p *parser) parseImportStmt() ast.Stmt {
	pos := p.expect(token.NEEDS)
	file := p.span.File
	var path []string
	path = append(path, p.parseIdent().Lit)
	for p.accept(token.DOT) {
		if p.accept(token.STAR) {
			end := p.span.Hi
			return &ast.ImportStmt{NeedsPos: pos, File: file, Path: path, Wildcard: true, End: end}
		}
		path = append(path, p.parseIdent().Lit)
	}
	st := &ast.ImportStmt{NeedsPos: pos, File: file, Path: path}
	switch {
	case p.accept(token.AS):
		st.Alias = p.parseIdent().Lit
	case p.accept(token.COLONCOLON):
		for {
			st.Symbols = append(st.Symbols, p.parseIdent().Lit)
			if !p.accept(token.COMMA) {
				break
			}
		}
	}
	st.End = p.span.Hi
	return st
}

// parseExprOrAssignStmt parses an expression statement, an assignment
// `target = value`, a compound assignment `target op= value` (desugared to
// `target = target op value`), or a post-increment/decrement (desugared to
// `target = target +/- 1`).
func (p *parser) parseExprOrAssignStmt() ast.Stmt {
	expr := p.parseExpr()
	switch {
	case p.at(token.EQ):
		eq := p.span.Lo
		p.advance()
		if !ast.IsAssignable(expr) {
			p.error(expr.Span(), "invalid assignment target")
		}
		val := p.parseExpr()
		return &ast.ExprStmt{Expr: &ast.AssignExpr{Target: expr, Eq: eq, Value: val}}
	case p.tok.IsAssignOp():
		op := p.tok.BinOp()
		opPos := p.span.Lo
		p.advance()
		if !ast.IsAssignable(expr) {
			p.error(expr.Span(), "invalid assignment target")
		}
		rhs := p.parseExpr()
		val := &ast.BinaryExpr{Left: expr, Op: op, OpPos: opPos, Right: rhs}
		return &ast.ExprStmt{Expr: &ast.AssignExpr{Target: expr, Eq: opPos, Value: val}}
	case p.at(token.PLUSPLUS) || p.at(token.MINUSMINUS):
		op := token.PLUS
		if p.tok == token.MINUSMINUS {
			op = token.MINUS
		}
		opPos := p.span.Lo
		p.advance()
		if !ast.IsAssignable(expr) {
			p.error(expr.Span(), "invalid assignment target")
		}
		one := &ast.LiteralExpr{Type: token.INT, Raw: "1", Value: int64(1), File: expr.Span().File}
		val := &ast.BinaryExpr{Left: expr, Op: op, OpPos: opPos, Right: one}
		return &ast.ExprStmt{Expr: &ast.AssignExpr{Target: expr, Eq: opPos, Value: val}}
	default:
		return &ast.ExprStmt{Expr: expr}
	}
}

func (p *parser) parseIdent() *ast.IdentExpr {
	if p.tok != token.IDENT {
		p.errorExpected("identifier")
		panic(errPanic)
	}
	id := &ast.IdentExpr{Start: p.span.Lo, File: p.span.File, Lit: p.val.Raw}
	p.advance()
	return id
}

func (p *parser) parseTypeAnnotation() *ast.TypeAnnotation {
	start := p.span.Lo
	file := p.span.File
	name := p.parseIdent().Lit
	ta := &ast.TypeAnnotation{Start: start, File: file, Name: name}
	if p.accept(token.LT) {
		for {
			ta.Args = append(ta.Args, p.parseTypeAnnotation())
			if !p.accept(token.COMMA) {
				break
			}
		}
		p.expect(token.GT)
	}
	return ta
}

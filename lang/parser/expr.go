package parser

import (
	"github.com/aelys-lang/aelys/lang/ast"
	"github.com/aelys-lang/aelys/lang/token"
)

// parseCondExpr parses an expression with struct-literal parsing
// suppressed, for use in if/while/for-range conditions and iterables so
// the body's opening `{` is never mistaken for one.
func (p *parser) parseCondExpr() ast.Expr {
	save := p.suppressStructLit
	p.suppressStructLit = true
	e := p.parseExpr()
	p.suppressStructLit = save
	return e
}

// parseExpr parses a full expression at the loosest (logical-or)
// precedence, per spec §4.2's table: or, and, bitwise | ^ &, equality,
// comparison, shift, range, additive, multiplicative, unary, postfix.
func (p *parser) parseExpr() ast.Expr {
	return p.parseOr()
}

func (p *parser) parseOr() ast.Expr {
	left := p.parseAnd()
	for p.at(token.OR) || p.at(token.OROR) {
		op, opPos := p.tok, p.span.Lo
		p.advance()
		right := p.parseAnd()
		left = &ast.BinaryExpr{Left: left, Op: normalizeLogical(op), OpPos: opPos, Right: right}
	}
	return left
}

func (p *parser) parseAnd() ast.Expr {
	left := p.parseBitOr()
	for p.at(token.AND) || p.at(token.ANDAND) {
		op, opPos := p.tok, p.span.Lo
		p.advance()
		right := p.parseBitOr()
		left = &ast.BinaryExpr{Left: left, Op: normalizeLogical(op), OpPos: opPos, Right: right}
	}
	return left
}

// normalizeLogical collapses the word (`and`/`or`) and symbol (`&&`/`||`)
// spellings of the logical operators to one canonical token so downstream
// passes (sema, compiler) only ever see ANDAND/OROR (spec §4.1: "logical
// (`and or not` plus `&& ||`)" — both spellings, one semantics).
func normalizeLogical(tok token.Token) token.Token {
	switch tok {
	case token.AND:
		return token.ANDAND
	case token.OR:
		return token.OROR
	default:
		return tok
	}
}

func (p *parser) parseBitOr() ast.Expr {
	left := p.parseBitXor()
	for p.at(token.PIPE) {
		opPos := p.span.Lo
		p.advance()
		right := p.parseBitXor()
		left = &ast.BinaryExpr{Left: left, Op: token.PIPE, OpPos: opPos, Right: right}
	}
	return left
}

func (p *parser) parseBitXor() ast.Expr {
	left := p.parseBitAnd()
	for p.at(token.CIRCUMFLEX) {
		opPos := p.span.Lo
		p.advance()
		right := p.parseBitAnd()
		left = &ast.BinaryExpr{Left: left, Op: token.CIRCUMFLEX, OpPos: opPos, Right: right}
	}
	return left
}

func (p *parser) parseBitAnd() ast.Expr {
	left := p.parseEquality()
	for p.at(token.AMPERSAND) {
		opPos := p.span.Lo
		p.advance()
		right := p.parseEquality()
		left = &ast.BinaryExpr{Left: left, Op: token.AMPERSAND, OpPos: opPos, Right: right}
	}
	return left
}

func (p *parser) parseEquality() ast.Expr {
	left := p.parseComparison()
	for p.at(token.EQEQ) || p.at(token.NEQ) {
		op, opPos := p.tok, p.span.Lo
		p.advance()
		right := p.parseComparison()
		left = &ast.BinaryExpr{Left: left, Op: op, OpPos: opPos, Right: right}
	}
	return left
}

func (p *parser) parseComparison() ast.Expr {
	left := p.parseShift()
	for p.at(token.LT) || p.at(token.LE) || p.at(token.GT) || p.at(token.GE) {
		op, opPos := p.tok, p.span.Lo
		p.advance()
		right := p.parseShift()
		left = &ast.BinaryExpr{Left: left, Op: op, OpPos: opPos, Right: right}
	}
	return left
}

func (p *parser) parseShift() ast.Expr {
	left := p.parseRange()
	for p.at(token.LTLT) || p.at(token.GTGT) {
		op, opPos := p.tok, p.span.Lo
		p.advance()
		right := p.parseRange()
		left = &ast.BinaryExpr{Left: left, Op: op, OpPos: opPos, Right: right}
	}
	return left
}

// parseRange parses `lo..hi` / `lo..=hi`, lower precedence than additive
// (spec §4.2) but higher than shift; non-associative (a single range op
// per expression).
func (p *parser) parseRange() ast.Expr {
	left := p.parseAdditive()
	if p.at(token.DOTDOT) || p.at(token.DOTDOTEQ) {
		inclusive := p.tok == token.DOTDOTEQ
		opPos := p.span.Lo
		p.advance()
		right := p.parseAdditive()
		return &ast.RangeExpr{Low: left, High: right, Inclusive: inclusive, OpPos: opPos, File: left.Span().File}
	}
	return left
}

func (p *parser) parseAdditive() ast.Expr {
	left := p.parseMultiplicative()
	for p.at(token.PLUS) || p.at(token.MINUS) {
		op, opPos := p.tok, p.span.Lo
		p.advance()
		right := p.parseMultiplicative()
		left = &ast.BinaryExpr{Left: left, Op: op, OpPos: opPos, Right: right}
	}
	return left
}

func (p *parser) parseMultiplicative() ast.Expr {
	left := p.parseCast()
	for p.at(token.STAR) || p.at(token.SLASH) || p.at(token.PERCENT) {
		op, opPos := p.tok, p.span.Lo
		p.advance()
		right := p.parseCast()
		left = &ast.BinaryExpr{Left: left, Op: op, OpPos: opPos, Right: right}
	}
	return left
}

// parseCast parses `expr as Type`, binding tighter than multiplicative so
// `x as int * 2` casts x before multiplying.
func (p *parser) parseCast() ast.Expr {
	left := p.parseUnary()
	for p.accept(token.AS) {
		asPos := p.span.Lo
		ty := p.parseTypeAnnotation()
		left = &ast.CastExpr{Expr: left, As: asPos, Type: ty}
	}
	return left
}

func (p *parser) parseUnary() ast.Expr {
	p.enter()
	defer p.leave()
	switch p.tok {
	case token.MINUS, token.NOT, token.TILDE:
		op, opStart, file := p.tok, p.span.Lo, p.span.File
		p.advance()
		right := p.parseUnary()
		return &ast.UnaryExpr{Op: op, OpStart: opStart, File: file, Right: right}
	case token.TRY, token.MUST:
		op, opStart, file := p.tok, p.span.Lo, p.span.File
		p.advance()
		right := p.parseUnary()
		return &ast.UnaryExpr{Op: op, OpStart: opStart, File: file, Right: right}
	default:
		return p.parsePostfix()
	}
}

func (p *parser) parsePostfix() ast.Expr {
	e := p.parsePrimary()
	for {
		switch p.tok {
		case token.DOT:
			dot := p.span.Lo
			p.advance()
			e = &ast.DotExpr{Left: e, Dot: dot, Right: p.parseIdent()}
		case token.LPAREN:
			lparen := p.span.Lo
			p.advance()
			var args []ast.Expr
			for !p.at(token.RPAREN) {
				args = append(args, p.parseExpr())
				if !p.accept(token.COMMA) {
					break
				}
			}
			rparen := p.expect(token.RPAREN)
			e = &ast.CallExpr{Fn: e, Lparen: lparen, Args: args, Rparen: rparen, File: e.Span().File}
		case token.LBRACK:
			lbrack := p.span.Lo
			p.advance()
			idx := p.parseIndexOrSlice()
			rbrack := p.expect(token.RBRACK)
			e = &ast.IndexExpr{Prefix: e, Lbrack: lbrack, Index: idx, Rbrack: rbrack}
		default:
			return e
		}
	}
}

// parseIndexOrSlice parses either a plain index expression or a slice
// bound (`lo..hi`, `..hi`, `lo..`, `..`), unlike parseRange it allows
// either bound to be omitted.
func (p *parser) parseIndexOrSlice() ast.Expr {
	var low ast.Expr
	if !p.at(token.DOTDOT) && !p.at(token.DOTDOTEQ) {
		// Parse only up to additive precedence here (not the full
		// parseExpr, which would itself consume a `..` as a range
		// operator requiring a mandatory high bound) so `arr[lo..]`
		// with an omitted high bound parses correctly.
		low = p.parseAdditive()
		if !p.at(token.DOTDOT) && !p.at(token.DOTDOTEQ) {
			return low
		}
	}
	inclusive := p.tok == token.DOTDOTEQ
	opPos := p.span.Lo
	p.advance()
	var high ast.Expr
	if !p.at(token.RBRACK) {
		high = p.parseAdditive()
	}
	file := p.span.File
	if low != nil {
		file = low.Span().File
	}
	return &ast.RangeExpr{Low: low, High: high, Inclusive: inclusive, OpPos: opPos, File: file}
}

func (p *parser) parsePrimary() ast.Expr {
	p.enter()
	defer p.leave()

	switch p.tok {
	case token.INT, token.FLOAT, token.STRING, token.FSTRING, token.TRUE, token.FALSE, token.NULL:
		return p.parseLiteral()
	case token.IDENT:
		isCollectionName := p.val.Raw == "Array" || p.val.Raw == "Vec"
		id := p.parseIdent()
		if isCollectionName && p.at(token.LT) {
			// Array<T>[...] / Vec<T>[...] typed collection literal (spec §4.2).
			p.advance()
			elem := p.parseTypeAnnotation()
			p.expect(token.GT)
			return p.parseArrayLit(id.Lit, elem)
		}
		if !p.suppressStructLit && p.at(token.LBRACE) {
			return p.parseStructLit(id)
		}
		return id
	case token.LPAREN:
		lparen := p.span.Lo
		p.advance()
		inner := p.parseExpr()
		rparen := p.expect(token.RPAREN)
		return &ast.ParenExpr{Lparen: lparen, Rparen: rparen, File: inner.Span().File, Expr: inner}
	case token.LBRACK:
		return p.parseArrayLit("", nil)
	case token.FN:
		return p.parseLambda()
	case token.IF:
		return p.parseIfExpr()
	default:
		p.errorExpected("expression")
		panic(errPanic)
	}
}

func (p *parser) parseLiteral() *ast.LiteralExpr {
	tok, raw, span := p.tok, p.val.Raw, p.span
	var value any
	switch tok {
	case token.INT:
		value = p.val.Int
	case token.FLOAT:
		value = p.val.Float
	case token.STRING, token.FSTRING:
		value = p.val.String
	case token.TRUE:
		value = true
	case token.FALSE:
		value = false
	case token.NULL:
		value = nil
	}
	p.advance()
	return &ast.LiteralExpr{Type: tok, Start: span.Lo, File: span.File, Raw: raw, Value: value}
}

func (p *parser) parseArrayLit(kind string, elem *ast.TypeAnnotation) ast.Expr {
	lbrack := p.expect(token.LBRACK)
	var items []ast.Expr
	for !p.at(token.RBRACK) {
		items = append(items, p.parseExpr())
		if !p.accept(token.COMMA) {
			break
		}
	}
	rbrack := p.expect(token.RBRACK)
	return &ast.ArrayExpr{Kind: kind, Elem: elem, Lbrack: lbrack, Items: items, Rbrack: rbrack, File: p.file}
}

func (p *parser) parseStructLit(name *ast.IdentExpr) ast.Expr {
	lbrace := p.expect(token.LBRACE)
	var fields []*ast.FieldInit
	for !p.at(token.RBRACE) {
		fname := p.parseIdent()
		p.expect(token.COLON)
		fval := p.parseExpr()
		fields = append(fields, &ast.FieldInit{Name: fname, Value: fval})
		if !p.accept(token.COMMA) {
			break
		}
	}
	rbrace := p.expect(token.RBRACE)
	return &ast.StructLitExpr{Name: name, Lbrace: lbrace, Fields: fields, Rbrace: rbrace}
}

func (p *parser) parseLambda() ast.Expr {
	fnPos := p.expect(token.FN)
	sig := p.parseFuncSignature()
	body := p.parseBlock()
	return &ast.LambdaExpr{FnPos: fnPos, Sig: sig, Body: body}
}

func (p *parser) parseIfExpr() ast.Expr {
	ifPos := p.expect(token.IF)
	cond := p.parseCondExpr()
	then := p.parseBlock()
	e := &ast.IfExpr{IfPos: ifPos, Cond: cond, Then: then}
	if p.at(token.ELIF) {
		e.Else = p.parseElifExpr()
	} else if p.accept(token.ELSE) {
		e.Else = p.parseBlock()
	}
	return e
}

func (p *parser) parseElifExpr() ast.Node {
	ifPos := p.expect(token.ELIF)
	cond := p.parseCondExpr()
	then := p.parseBlock()
	e := &ast.IfExpr{IfPos: ifPos, Cond: cond, Then: then}
	if p.at(token.ELIF) {
		e.Else = p.parseElifExpr()
	} else if p.accept(token.ELSE) {
		e.Else = p.parseBlock()
	}
	return e
}

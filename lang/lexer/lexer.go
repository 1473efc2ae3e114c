// Package lexer implements the Aelys tokenizer: a character stream is
// consumed into a token stream, with automatic semicolon insertion, per
// spec §4.1. Much of its structure is adapted from the teacher's
// lang/scanner package (itself adapted from go/scanner), generalized from
// Starlark-style tokens to Aelys's curly-brace grammar and from a single
// encoded Pos to explicit byte offsets.
package lexer

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/aelys-lang/aelys/internal/diag"
	"github.com/aelys-lang/aelys/lang/token"
)

// Value carries the decoded payload of a token alongside its raw text.
type Value struct {
	Raw    string
	String string
	Int    int64
	Float  float64
}

// TokenAndValue pairs a token with its decoded value and span.
type TokenAndValue struct {
	Token token.Token
	Value Value
	Span  token.Span
}

// Lexer tokenizes a single source file for the parser to consume.
type Lexer struct {
	file *token.File
	src  []byte
	errs *diag.List

	sb  strings.Builder
	cur rune // current character, -1 at EOF
	off int  // byte offset of cur
	roff int // offset just past cur

	// automatic semicolon insertion state
	lastEndsStmt bool
	parenDepth   int
}

// New creates a Lexer over the given file and its source bytes.
func New(file *token.File, errs *diag.List) *Lexer {
	l := &Lexer{file: file, src: file.Bytes(), errs: errs}
	l.off, l.roff = 0, 0
	l.cur = ' '
	l.advance()
	return l
}

func (l *Lexer) peek() byte {
	if l.roff < len(l.src) {
		return l.src[l.roff]
	}
	return 0
}

func (l *Lexer) advance() {
	if l.roff >= len(l.src) {
		l.off = len(l.src)
		if l.cur == '\n' {
			l.file.AddLine(l.off)
		}
		l.cur = -1
		return
	}
	l.off = l.roff
	if l.cur == '\n' {
		l.file.AddLine(l.off)
	}
	r, w := rune(l.src[l.roff]), 1
	if r >= utf8.RuneSelf {
		r, w = utf8.DecodeRune(l.src[l.roff:])
		if r == utf8.RuneError && w == 1 {
			l.error(l.off, "illegal UTF-8 encoding")
		}
	}
	l.roff += w
	l.cur = r
}

func (l *Lexer) advanceIf(b byte) bool {
	if l.cur == rune(b) {
		l.advance()
		return true
	}
	return false
}

func (l *Lexer) span(start int) token.Span {
	return token.Span{File: l.file, Lo: token.Pos(start), Hi: token.Pos(l.off)}
}

func (l *Lexer) error(off int, msg string) {
	l.errs.Add(diag.Lex, token.Span{File: l.file, Lo: token.Pos(off), Hi: token.Pos(off + 1)}, "%s", msg)
}

func (l *Lexer) errorf(off int, format string, args ...any) {
	l.errs.Add(diag.Lex, token.Span{File: l.file, Lo: token.Pos(off), Hi: token.Pos(off + 1)}, format, args...)
}

// ScanAll tokenizes the entire file and returns every token, including the
// trailing EOF.
func ScanAll(file *token.File, errs *diag.List) []TokenAndValue {
	l := New(file, errs)
	var toks []TokenAndValue
	for {
		tv := l.Scan()
		toks = append(toks, tv)
		if tv.Token == token.EOF {
			break
		}
	}
	return toks
}

// Scan returns the next token, applying automatic semicolon insertion: a
// semicolon is synthesized at a newline iff (a) paren/bracket nesting is
// zero, (b) the previous token can end a statement, and (c) the lookahead
// is not `else`/`elif` (spec §4.1).
func (l *Lexer) Scan() TokenAndValue {
	inserted, ok := l.maybeInsertSemi()
	if ok {
		return inserted
	}
	return l.scanOne()
}

func (l *Lexer) maybeInsertSemi() (TokenAndValue, bool) {
	for {
		switch {
		case l.cur == ' ' || l.cur == '\t' || l.cur == '\r':
			l.advance()
			continue
		case l.cur == '\n':
			nlOff := l.off
			l.advance()
			if l.parenDepth == 0 && l.lastEndsStmt {
				save := l.saveState()
				next := l.peekNonSpace()
				l.restoreState(save)
				if next != token.ELSE && next != token.ELIF {
					l.lastEndsStmt = false
					return TokenAndValue{
						Token: token.SEMI,
						Value: Value{Raw: ";"},
						Span:  token.Span{File: l.file, Lo: token.Pos(nlOff), Hi: token.Pos(nlOff + 1)},
					}, true
				}
			}
			continue
		case l.cur == '/' && l.peek() == '/':
			l.skipLineComment()
			continue
		case l.cur == '/' && l.peek() == '*':
			l.skipBlockComment()
			continue
		default:
			return TokenAndValue{}, false
		}
	}
}

type lexState struct {
	cur        rune
	off, roff  int
}

func (l *Lexer) saveState() lexState { return lexState{l.cur, l.off, l.roff} }
func (l *Lexer) restoreState(s lexState) {
	l.cur, l.off, l.roff = s.cur, s.off, s.roff
}

// peekNonSpace scans ahead (without error reporting) to find the token
// kind immediately following whitespace and comments, used only to decide
// whether a pending newline should insert a semicolon.
func (l *Lexer) peekNonSpace() token.Token {
	for {
		switch {
		case l.cur == ' ' || l.cur == '\t' || l.cur == '\r' || l.cur == '\n':
			l.advance()
		case l.cur == '/' && l.peek() == '/':
			l.skipLineComment()
		case l.cur == '/' && l.peek() == '*':
			l.skipBlockComment()
		case isLetter(l.cur):
			start := l.off
			for isLetter(l.cur) || isDigit(l.cur) {
				l.advance()
			}
			return token.LookupIdent(string(l.src[start:l.off]))
		default:
			return token.ILLEGAL
		}
	}
}

func (l *Lexer) skipLineComment() {
	for l.cur != '\n' && l.cur != -1 {
		l.advance()
	}
}

func (l *Lexer) skipBlockComment() {
	start := l.off
	l.advance()
	l.advance()
	depth := 1
	for depth > 0 {
		switch {
		case l.cur == -1:
			l.error(start, "comment not terminated")
			return
		case l.cur == '/' && l.peek() == '*':
			l.advance()
			l.advance()
			depth++
		case l.cur == '*' && l.peek() == '/':
			l.advance()
			l.advance()
			depth--
		default:
			l.advance()
		}
	}
}

func (l *Lexer) scanOne() TokenAndValue {
	start := l.off
	var tok token.Token
	var val Value

	switch cur := l.cur; {
	case cur == 'f' && (l.peek() == '"' || l.peek() == '\''):
		l.advance()
		opening := l.cur
		l.advance()
		lit, decoded := l.shortString(opening)
		tok = token.FSTRING
		val = Value{Raw: "f" + lit, String: decoded}

	case isLetter(cur):
		lit := l.ident()
		tok = token.LookupIdent(lit)
		val = Value{Raw: lit}

	case isDigit(cur) || (cur == '.' && isDigit(rune(l.peek()))):
		var base int
		var lit string
		tok, base, lit = l.number()
		val = Value{Raw: lit}
		if tok == token.INT {
			v, err := parseInt(lit, base)
			if err != nil {
				l.error(start, "integer literal value out of range")
			}
			val.Int = v
		} else {
			v, _ := strconv.ParseFloat(strings.ReplaceAll(lit, "_", ""), 64)
			val.Float = v
		}

	default:
		l.advance()
		switch cur {
		case '+':
			tok = token.PLUS
			if l.advanceIf('+') {
				tok = token.PLUSPLUS
			} else if l.advanceIf('=') {
				tok = token.PLUS_EQ
			}
		case '-':
			tok = token.MINUS
			if l.advanceIf('-') {
				tok = token.MINUSMINUS
			} else if l.advanceIf('=') {
				tok = token.MINUS_EQ
			} else if l.advanceIf('>') {
				tok = token.ARROW
			}
		case '*':
			tok = token.STAR
			if l.advanceIf('=') {
				tok = token.STAR_EQ
			}
		case '/':
			tok = token.SLASH
			if l.advanceIf('=') {
				tok = token.SLASH_EQ
			}
		case '%':
			tok = token.PERCENT
			if l.advanceIf('=') {
				tok = token.PERCENT_EQ
			}
		case '&':
			tok = token.AMPERSAND
			if l.advanceIf('&') {
				tok = token.ANDAND
			}
		case '|':
			tok = token.PIPE
			if l.advanceIf('|') {
				tok = token.OROR
			}
		case '^':
			tok = token.CIRCUMFLEX
		case '~':
			tok = token.TILDE
		case '!':
			tok = token.BANG
			if l.advanceIf('=') {
				tok = token.NEQ
			}
		case '=':
			tok = token.EQ
			if l.advanceIf('=') {
				tok = token.EQEQ
			}
		case '<':
			tok = token.LT
			if l.advanceIf('<') {
				tok = token.LTLT
			} else if l.advanceIf('=') {
				tok = token.LE
			}
		case '>':
			tok = token.GT
			if l.advanceIf('>') {
				tok = token.GTGT
			} else if l.advanceIf('=') {
				tok = token.GE
			}
		case '.':
			tok = token.DOT
			if l.advanceIf('.') {
				tok = token.DOTDOT
				if l.advanceIf('=') {
					tok = token.DOTDOTEQ
				}
			}
		case ',':
			tok = token.COMMA
		case ';':
			tok = token.SEMI
		case ':':
			tok = token.COLON
			if l.advanceIf(':') {
				tok = token.COLONCOLON
			}
		case '@':
			tok = token.AT
		case '(':
			tok = token.LPAREN
			l.parenDepth++
		case ')':
			tok = token.RPAREN
			if l.parenDepth > 0 {
				l.parenDepth--
			}
		case '[':
			tok = token.LBRACK
			l.parenDepth++
		case ']':
			tok = token.RBRACK
			if l.parenDepth > 0 {
				l.parenDepth--
			}
		case '{':
			tok = token.LBRACE
		case '}':
			tok = token.RBRACE
		case '"', '\'':
			lit, decoded := l.shortString(cur)
			tok = token.STRING
			val = Value{Raw: lit, String: decoded}
		case -1:
			tok = token.EOF
		default:
			l.errorf(start, "illegal character %#U", cur)
			tok = token.ILLEGAL
			val = Value{Raw: string(cur)}
		}
	}

	if val.Raw == "" && tok != token.EOF {
		val.Raw = l.file.Text(token.Pos(start), token.Pos(l.off))
	}
	l.lastEndsStmt = tok.EndsStatement()
	return TokenAndValue{Token: tok, Value: val, Span: l.span(start)}
}

func (l *Lexer) ident() string {
	start := l.off
	for isLetter(l.cur) || isDigit(l.cur) {
		l.advance()
	}
	return string(l.src[start:l.off])
}

func isLetter(r rune) bool {
	return 'a' <= r && r <= 'z' || 'A' <= r && r <= 'Z' || r == '_' ||
		r >= utf8.RuneSelf && unicode.IsLetter(r)
}

func isDigit(r rune) bool {
	return '0' <= r && r <= '9' || r >= utf8.RuneSelf && unicode.IsDigit(r)
}

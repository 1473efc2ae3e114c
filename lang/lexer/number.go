package lexer

import (
	"strconv"
	"strings"

	"github.com/aelys-lang/aelys/lang/token"
)

// number scans an integer or float literal: decimal, 0x/0o/0b integers with
// underscore separators, and floats with an optional exponent (spec §4.1).
func (l *Lexer) number() (tok token.Token, base int, lit string) {
	start := l.off
	tok = token.ILLEGAL
	base = 10
	prefix := rune(0)
	digsep := 0
	invalid := -1

	if l.cur != '.' {
		tok = token.INT
		if l.cur == '0' {
			l.advance()
			switch lower(l.cur) {
			case 'x':
				l.advance()
				base, prefix = 16, 'x'
			case 'o':
				l.advance()
				base, prefix = 8, 'o'
			case 'b':
				l.advance()
				base, prefix = 2, 'b'
			}
		}
		digsep |= l.digits(base, &invalid)
	}

	if l.cur == '.' {
		tok = token.FLOAT
		if prefix == 'o' || prefix == 'b' {
			l.error(l.off, "invalid radix point in "+litname(prefix))
		}
		l.advance()
		digsep |= l.digits(base, &invalid)
	}

	if digsep&1 == 0 {
		l.error(l.off, litname(prefix)+" has no digits")
	}

	if e := lower(l.cur); e == 'e' {
		if prefix != 0 {
			l.errorf(l.off, "%q exponent requires decimal mantissa", l.cur)
		}
		l.advance()
		tok = token.FLOAT
		if l.cur == '+' || l.cur == '-' {
			l.advance()
		}
		ds := l.digits(10, nil)
		digsep |= ds
		if ds&1 == 0 {
			l.error(l.off, "exponent has no digits")
		}
	}

	lit = string(l.src[start:l.off])
	if tok == token.INT && invalid >= 0 {
		l.errorf(invalid, "invalid digit in %s", litname(prefix))
	}
	if digsep&2 != 0 {
		if i := invalidSep(lit); i >= 0 {
			l.error(start+i, "'_' must separate successive digits")
		}
	}
	return tok, base, lit
}

// digits accepts the sequence { digit | '_' }; it returns a bitset: bit 0
// set if any digit was seen, bit 1 set if any '_' separator was seen. A
// digit at or above base is recorded in *invalid, once.
func (l *Lexer) digits(base int, invalid *int) (digsep int) {
	if base <= 10 {
		max := rune('0' + base)
		for isDigit(l.cur) || l.cur == '_' {
			ds := 1
			if l.cur == '_' {
				ds = 2
			} else if l.cur >= max && invalid != nil && *invalid < 0 {
				*invalid = l.off
			}
			digsep |= ds
			l.advance()
		}
	} else {
		for isHex(l.cur) || l.cur == '_' {
			ds := 1
			if l.cur == '_' {
				ds = 2
			}
			digsep |= ds
			l.advance()
		}
	}
	return digsep
}

func isHex(r rune) bool {
	return isDigit(r) || 'a' <= r && r <= 'f' || 'A' <= r && r <= 'F'
}

func invalidSep(x string) int {
	x1 := ' '
	d := '.'
	i := 0
	if len(x) >= 2 && x[0] == '0' {
		x1 = lower(rune(x[1]))
		if x1 == 'x' || x1 == 'o' || x1 == 'b' {
			d = '0'
			i = 2
		}
	}
	for ; i < len(x); i++ {
		p := d
		d = rune(x[i])
		switch {
		case d == '_':
			if p != '0' {
				return i
			}
		case isDigit(d) || x1 == 'x' && isHex(d):
			d = '0'
		default:
			if p == '_' {
				return i - 1
			}
			d = '.'
		}
	}
	if d == '_' {
		return len(x) - 1
	}
	return -1
}

func litname(prefix rune) string {
	switch prefix {
	case 'x':
		return "hexadecimal literal"
	case 'o':
		return "octal literal"
	case 'b':
		return "binary literal"
	}
	return "decimal literal"
}

func lower(ch rune) rune {
	return ('a' - 'A') | ch
}

func parseInt(lit string, base int) (int64, error) {
	if base != 10 {
		lit = lit[2:]
	}
	return strconv.ParseInt(strings.ReplaceAll(lit, "_", ""), base, 64)
}

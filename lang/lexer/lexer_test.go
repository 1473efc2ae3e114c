package lexer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aelys-lang/aelys/internal/diag"
	"github.com/aelys-lang/aelys/lang/token"
)

func scanString(t *testing.T, src string) ([]TokenAndValue, *diag.List) {
	t.Helper()
	f := token.NewFile("test.aelys", []byte(src))
	errs := &diag.List{}
	return ScanAll(f, errs), errs
}

func toks(tvs []TokenAndValue) []token.Token {
	out := make([]token.Token, len(tvs))
	for i, tv := range tvs {
		out[i] = tv.Token
	}
	return out
}

func TestNumbers(t *testing.T) {
	cases := []struct {
		src  string
		tok  token.Token
		i    int64
		f    float64
	}{
		{"123", token.INT, 123, 0},
		{"0x7b", token.INT, 123, 0},
		{"0o173", token.INT, 123, 0},
		{"0b1111011", token.INT, 123, 0},
		{"1_000", token.INT, 1000, 0},
		{"1.5", token.FLOAT, 0, 1.5},
		{"1e3", token.FLOAT, 0, 1000},
	}
	for _, c := range cases {
		tvs, errs := scanString(t, c.src)
		require.Empty(t, errs.Errs, c.src)
		require.Equal(t, c.tok, tvs[0].Token, c.src)
		if c.tok == token.INT {
			require.Equal(t, c.i, tvs[0].Value.Int, c.src)
		} else {
			require.Equal(t, c.f, tvs[0].Value.Float, c.src)
		}
	}
}

func TestStringEscapes(t *testing.T) {
	tvs, errs := scanString(t, `"a\nb\tc\x41"`)
	require.Empty(t, errs.Errs)
	require.Equal(t, token.STRING, tvs[0].Token)
	require.Equal(t, "a\nb\tcA", tvs[0].Value.String)
}

func TestFormatString(t *testing.T) {
	tvs, errs := scanString(t, `f"hi {name}"`)
	require.Empty(t, errs.Errs)
	require.Equal(t, token.FSTRING, tvs[0].Token)
	require.Equal(t, "hi {name}", tvs[0].Value.String)
}

func TestAutoSemicolonInsertion(t *testing.T) {
	tvs, errs := scanString(t, "let x = 1\nlet y = 2\n")
	require.Empty(t, errs.Errs)
	require.Equal(t, []token.Token{
		token.LET, token.IDENT, token.EQ, token.INT, token.SEMI,
		token.LET, token.IDENT, token.EQ, token.INT, token.SEMI,
		token.EOF,
	}, toks(tvs))
}

func TestNoSemicolonBeforeElse(t *testing.T) {
	tvs, errs := scanString(t, "if x {\n1\n}\nelse {\n2\n}\n")
	require.Empty(t, errs.Errs)
	got := toks(tvs)
	for i, tok := range got {
		if tok == token.ELSE {
			require.NotEqual(t, token.SEMI, got[i-1])
			return
		}
	}
	t.Fatal("no else token found")
}

func TestNoSemicolonInsideParens(t *testing.T) {
	tvs, errs := scanString(t, "f(\n1,\n2\n)\n")
	require.Empty(t, errs.Errs)
	got := toks(tvs)
	for _, tok := range got {
		require.NotEqual(t, token.SEMI, tok)
	}
}

func TestOperators(t *testing.T) {
	tvs, errs := scanString(t, "+= -= *= /= %= << >> && || .. ..= -> :: ++ --")
	require.Empty(t, errs.Errs)
	require.Equal(t, []token.Token{
		token.PLUS_EQ, token.MINUS_EQ, token.STAR_EQ, token.SLASH_EQ, token.PERCENT_EQ,
		token.LTLT, token.GTGT, token.ANDAND, token.OROR,
		token.DOTDOT, token.DOTDOTEQ, token.ARROW, token.COLONCOLON,
		token.PLUSPLUS, token.MINUSMINUS, token.EOF,
	}, toks(tvs))
}

func TestIllegalCharacter(t *testing.T) {
	_, errs := scanString(t, "let x = `")
	require.NotEmpty(t, errs.Errs)
	require.Equal(t, diag.Lex, errs.Errs[0].Kind)
}

func TestBlockComment(t *testing.T) {
	tvs, errs := scanString(t, "1 /* a\nnested /* comment */ still */ 2")
	require.Empty(t, errs.Errs)
	require.Equal(t, []token.Token{token.INT, token.INT, token.EOF}, toks(tvs))
}

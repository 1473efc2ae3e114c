package token

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTokenString(t *testing.T) {
	for tok := Token(0); tok < maxToken; tok++ {
		if tok.String() == "" {
			t.Errorf("missing string representation of token %d", tok)
		}
	}
}

func TestLookupIdent(t *testing.T) {
	for tok := AND; tok < maxToken; tok++ {
		require.Equal(t, tok, LookupIdent(tok.String()))
	}
	require.Equal(t, IDENT, LookupIdent("notAKeyword"))
}

func TestIsAssignOp(t *testing.T) {
	require.True(t, PLUS_EQ.IsAssignOp())
	require.True(t, PERCENT_EQ.IsAssignOp())
	require.False(t, PLUS.IsAssignOp())
	require.Equal(t, PLUS, PLUS_EQ.BinOp())
	require.Equal(t, PERCENT, PERCENT_EQ.BinOp())
}

func TestEndsStatement(t *testing.T) {
	require.True(t, IDENT.EndsStatement())
	require.True(t, RETURN.EndsStatement())
	require.True(t, PLUSPLUS.EndsStatement())
	require.False(t, PLUS.EndsStatement())
	require.False(t, IF.EndsStatement())
}

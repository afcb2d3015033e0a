package token

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTokenString(t *testing.T) {
	for tok := Token(0); tok < maxToken; tok++ {
		require.NotEmpty(t, tok.String())
	}
	require.Equal(t, "unknown token", Token(127).String())
}

func TestLookupIdent(t *testing.T) {
	cases := []struct {
		lit  string
		want Token
	}{
		{"struct", STRUCT},
		{"enum", ENUM},
		{"match", MATCH},
		{"some", SOME},
		{"none", NONE},
		{"type", TYPE},
		{"pub", PUB},
		{"imp", IMP},
		{"try", TRY},
		{"catch", CATCH},
		{"throw", THROW},
		{"chan", CHAN},
		{"go", GO},
		{"err", ERR},
		{"x", IDENT},
		{"structural", IDENT},
		{"", IDENT},
	}
	for _, c := range cases {
		t.Run(c.lit, func(t *testing.T) {
			require.Equal(t, c.want, LookupIdent(c.lit))
		})
	}
}

func TestIsKeyword(t *testing.T) {
	require.True(t, STRUCT.IsKeyword())
	require.True(t, ERR.IsKeyword())
	require.False(t, IDENT.IsKeyword())
	require.False(t, PLUS.IsKeyword())
}

func TestIsBinop(t *testing.T) {
	binops := []Token{PIPEPIPE, AMPAMP, LANGLE, RANGLE, LTE, GTE, EQEQ, BANGEQ, PLUS, MINUS, STAR, SLASH, PERCENT}
	set := make(map[Token]bool, len(binops))
	for _, tok := range binops {
		set[tok] = true
		require.True(t, tok.IsBinop())
	}
	for tok := Token(0); tok < maxToken; tok++ {
		if !set[tok] {
			require.False(t, tok.IsBinop(), "%s", tok)
		}
	}
}

package lexer

import (
	"testing"

	"github.com/opo-lang/opo/lang/token"
	"github.com/stretchr/testify/require"
)

func kinds(toks []Token) []token.Token {
	out := make([]token.Token, len(toks))
	for i, tok := range toks {
		out[i] = tok.Kind
	}
	return out
}

func TestAllPunctuation(t *testing.T) {
	src := `-> => : ; , ? @ [ ] { } ( ) < > <= >= == != ! !! && || . .. ^ <- + - * / %`
	toks, errs := All("test", src)
	require.Empty(t, errs)
	want := []token.Token{
		token.ARROW, token.ASSIGN, token.COLON, token.SEMI, token.COMMA, token.QUESTION, token.AT,
		token.LBRACK, token.RBRACK, token.LBRACE, token.RBRACE, token.LPAREN, token.RPAREN,
		token.LANGLE, token.RANGLE, token.LTE, token.GTE, token.EQEQ, token.BANGEQ, token.BANG,
		token.BANGBANG, token.AMPAMP, token.PIPEPIPE, token.DOT, token.DOTDOT, token.CARET, token.LARROW,
		token.PLUS, token.MINUS, token.STAR, token.SLASH, token.PERCENT, token.EOF,
	}
	require.Equal(t, want, kinds(toks))
}

func TestKeywordsAndBooleans(t *testing.T) {
	src := `struct enum match some none type pub imp try catch throw chan go err tru fls`
	toks, errs := All("test", src)
	require.Empty(t, errs)
	want := []token.Token{
		token.STRUCT, token.ENUM, token.MATCH, token.SOME, token.NONE, token.TYPE, token.PUB,
		token.IMP, token.TRY, token.CATCH, token.THROW, token.CHAN, token.GO, token.ERR,
		token.BOOL, token.BOOL, token.EOF,
	}
	require.Equal(t, want, kinds(toks))
	require.Equal(t, "tru", toks[14].Lit)
	require.Equal(t, "fls", toks[15].Lit)
}

func TestIdentifiersAndNumbers(t *testing.T) {
	toks, errs := All("test", `foo_bar 42 3.14 x2`)
	require.Empty(t, errs)
	require.Equal(t, []token.Token{token.IDENT, token.INT, token.FLOAT, token.IDENT, token.EOF}, kinds(toks))
	require.Equal(t, "foo_bar", toks[0].Lit)
	require.Equal(t, "42", toks[1].Lit)
	require.Equal(t, "3.14", toks[2].Lit)
}

func TestStringLiteral(t *testing.T) {
	toks, errs := All("test", `"hello world"`)
	require.Empty(t, errs)
	require.Equal(t, token.STRING, toks[0].Kind)
	require.Equal(t, "hello world", toks[0].Lit)
}

func TestUnterminatedString(t *testing.T) {
	toks, errs := All("test", `"hello`)
	require.Len(t, errs, 1)
	require.Contains(t, errs[0].Msg, "unterminated string")
	require.Equal(t, token.ILLEGAL, toks[0].Kind)
}

func TestCommentsAndWhitespace(t *testing.T) {
	src := "# this is a comment\nx # trailing comment\ny"
	toks, errs := All("test", src)
	require.Empty(t, errs)
	require.Equal(t, []token.Token{token.IDENT, token.IDENT, token.EOF}, kinds(toks))
	line, _ := toks[0].Pos.LineCol()
	require.Equal(t, 2, line)
	line, _ = toks[1].Pos.LineCol()
	require.Equal(t, 3, line)
}

func TestIllegalCharacter(t *testing.T) {
	toks, errs := All("test", "&")
	require.Len(t, errs, 1)
	require.Equal(t, token.ILLEGAL, toks[0].Kind)
}

func TestLineNumbering(t *testing.T) {
	toks, _ := All("test", "a\nb\n\nc")
	var lines []int
	for _, tok := range toks {
		if tok.Kind == token.EOF {
			break
		}
		line, _ := tok.Pos.LineCol()
		lines = append(lines, line)
	}
	require.Equal(t, []int{1, 2, 4}, lines)
}

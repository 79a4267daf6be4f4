package scanner_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/loxvm/loxvm/lang/scanner"
	"github.com/loxvm/loxvm/lang/token"
)

func scanAll(src string) []token.Token {
	s := scanner.New(src)
	var toks []token.Token
	for {
		tok := s.Scan()
		toks = append(toks, tok)
		if tok.Kind == token.EOF {
			return toks
		}
	}
}

func TestScanPunctuationAndOperators(t *testing.T) {
	toks := scanAll("(){},.-+;*/ ! != = == < <= > >=")
	want := []token.Kind{
		token.LPAREN, token.RPAREN, token.LBRACE, token.RBRACE, token.COMMA,
		token.DOT, token.MINUS, token.PLUS, token.SEMI, token.STAR, token.SLASH,
		token.BANG, token.BANG_EQ, token.EQ, token.EQ_EQ, token.LT, token.LT_EQ,
		token.GT, token.GT_EQ, token.EOF,
	}
	require.Len(t, toks, len(want))
	for i, k := range want {
		require.Equalf(t, k, toks[i].Kind, "token %d", i)
	}
}

func TestScanKeywordsVsIdentifiers(t *testing.T) {
	toks := scanAll("and class else false for fun if nil or print return super this true var while foo forest")
	want := []token.Kind{
		token.AND, token.CLASS, token.ELSE, token.FALSE, token.FOR, token.FUN,
		token.IF, token.NIL, token.OR, token.PRINT, token.RETURN, token.SUPER,
		token.THIS, token.TRUE, token.VAR, token.WHILE, token.IDENT, token.IDENT,
		token.EOF,
	}
	require.Len(t, toks, len(want))
	for i, k := range want {
		require.Equalf(t, k, toks[i].Kind, "token %d (%s)", i, toks[i].Lexeme)
	}
	require.Equal(t, "foo", toks[16].Lexeme)
	require.Equal(t, "forest", toks[17].Lexeme)
}

func TestScanNumbers(t *testing.T) {
	toks := scanAll("123 1.23 1. .5")
	require.Equal(t, token.NUMBER, toks[0].Kind)
	require.Equal(t, "123", toks[0].Lexeme)
	require.Equal(t, token.NUMBER, toks[1].Kind)
	require.Equal(t, "1.23", toks[1].Lexeme)
	// "1." does not consume the dot since it is not followed by a digit.
	require.Equal(t, token.NUMBER, toks[2].Kind)
	require.Equal(t, "1", toks[2].Lexeme)
	require.Equal(t, token.DOT, toks[3].Kind)
	// a leading dot is not part of a number.
	require.Equal(t, token.DOT, toks[4].Kind)
	require.Equal(t, token.NUMBER, toks[5].Kind)
	require.Equal(t, "5", toks[5].Lexeme)
}

func TestScanStrings(t *testing.T) {
	toks := scanAll(`"hello" "multi
line"`)
	require.Equal(t, token.STRING, toks[0].Kind)
	require.Equal(t, `"hello"`, toks[0].Lexeme)
	require.Equal(t, token.STRING, toks[1].Kind)
	require.Equal(t, 2, toks[1].Line)
}

func TestScanUnterminatedString(t *testing.T) {
	toks := scanAll(`"oops`)
	require.Equal(t, token.ILLEGAL, toks[0].Kind)
	require.Equal(t, "Unterminated string.", toks[0].Lexeme)
}

func TestScanUnexpectedCharacter(t *testing.T) {
	toks := scanAll("@")
	require.Equal(t, token.ILLEGAL, toks[0].Kind)
	require.Equal(t, "Unexpected character.", toks[0].Lexeme)
}

func TestScanLineComments(t *testing.T) {
	toks := scanAll("1 // a comment\n2")
	require.Equal(t, token.NUMBER, toks[0].Kind)
	require.Equal(t, "1", toks[0].Lexeme)
	require.Equal(t, 1, toks[0].Line)
	require.Equal(t, token.NUMBER, toks[1].Kind)
	require.Equal(t, "2", toks[1].Lexeme)
	require.Equal(t, 2, toks[1].Line)
}

func TestScanRepeatedEOF(t *testing.T) {
	s := scanner.New("")
	require.Equal(t, token.EOF, s.Scan().Kind)
	require.Equal(t, token.EOF, s.Scan().Kind)
}

package scanner_test

import (
	"testing"

	"github.com/mna/willow/lang/scanner"
	"github.com/mna/willow/lang/token"
	"github.com/stretchr/testify/require"
)

func scanAll(t *testing.T, src string) []token.Token {
	t.Helper()
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
	toks := scanAll(t, "(){};,.+-*/!= == <= >= < >")
	want := []token.Kind{
		token.LEFT_PAREN, token.RIGHT_PAREN, token.LEFT_BRACE, token.RIGHT_BRACE,
		token.SEMICOLON, token.COMMA, token.DOT, token.PLUS, token.MINUS,
		token.STAR, token.SLASH, token.BANG_EQUAL, token.EQUAL_EQUAL,
		token.LESS_EQUAL, token.GREATER_EQUAL, token.LESS, token.GREATER,
		token.EOF,
	}
	require.Len(t, toks, len(want))
	for i, k := range want {
		require.Equalf(t, k, toks[i].Kind, "token %d", i)
	}
}

func TestScanKeywordsVsIdentifiers(t *testing.T) {
	toks := scanAll(t, "and class else false for fun if nil or print return super this true var while foobar")
	want := []token.Kind{
		token.AND, token.CLASS, token.ELSE, token.FALSE, token.FOR, token.FUN,
		token.IF, token.NIL, token.OR, token.PRINT, token.RETURN, token.SUPER,
		token.THIS, token.TRUE, token.VAR, token.WHILE, token.IDENTIFIER,
		token.EOF,
	}
	require.Len(t, toks, len(want))
	for i, k := range want {
		require.Equalf(t, k, toks[i].Kind, "token %d (%q)", i, toks[i].Lexeme)
	}
}

func TestScanNumbersAndStrings(t *testing.T) {
	toks := scanAll(t, `123 3.14 "hello there"`)
	require.Equal(t, token.NUMBER, toks[0].Kind)
	require.Equal(t, "123", toks[0].Lexeme)
	require.Equal(t, token.NUMBER, toks[1].Kind)
	require.Equal(t, "3.14", toks[1].Lexeme)
	require.Equal(t, token.STRING, toks[2].Kind)
	require.Equal(t, `"hello there"`, toks[2].Lexeme)
}

func TestScanUnterminatedString(t *testing.T) {
	toks := scanAll(t, `"oops`)
	require.Equal(t, token.ILLEGAL, toks[0].Kind)
	require.Contains(t, toks[0].Lexeme, "unterminated string")
}

func TestScanLineTracking(t *testing.T) {
	toks := scanAll(t, "var a = 1;\nvar b = 2;")
	// "var" on line 1, second "var" on line 2
	require.Equal(t, 1, toks[0].Line)
	secondVarIdx := -1
	for i, tok := range toks {
		if tok.Kind == token.VAR && i > 0 {
			secondVarIdx = i
			break
		}
	}
	require.NotEqual(t, -1, secondVarIdx)
	require.Equal(t, 2, toks[secondVarIdx].Line)
}

func TestScanCommentsSkipped(t *testing.T) {
	toks := scanAll(t, "1 // a comment\n2")
	require.Equal(t, token.NUMBER, toks[0].Kind)
	require.Equal(t, "1", toks[0].Lexeme)
	require.Equal(t, token.NUMBER, toks[1].Kind)
	require.Equal(t, "2", toks[1].Lexeme)
}

package main

import (
	"errors"
	"strings"
	"testing"

	"github.com/nalgeon/be"
)

func tokenTypes(out *LexerOutput) []TokenType {
	types := make([]TokenType, len(out.Symbols))
	for i, sym := range out.Symbols {
		types[i] = sym.Token.Type
	}
	return types
}

func mustTokenize(t *testing.T, src string) *LexerOutput {
	t.Helper()
	out, err := Tokenize(src)
	be.Err(t, err, nil)
	return out
}

func TestKeywordsAndIdentifiers(t *testing.T) {
	out := mustTokenize(t, "int if while return break continue integer _x iff")
	be.Equal(t, tokenTypes(out), []TokenType{
		INT, IF, WHILE, RETURN, BREAK, CONTINUE, IDENT, IDENT, IDENT, EOF,
	})
	be.Equal(t, out.Table.Identifiers.Entries(), []string{"integer", "_x", "iff"})
}

func TestDelimiters(t *testing.T) {
	tests := []struct {
		input string
		typ   TokenType
	}{
		{"(", LPAREN},
		{")", RPAREN},
		{"{", LBRACE},
		{"}", RBRACE},
		{"[", LBRACKET},
		{"]", RBRACKET},
		{",", COMMA},
		{";", SEMICOLON},
		{":", COLON},
		{"?", QUESTION},
	}

	for _, tt := range tests {
		out := mustTokenize(t, tt.input)
		be.Equal(t, tokenTypes(out), []TokenType{tt.typ, EOF})
	}
}

func TestOperatorsTakeLongestMatch(t *testing.T) {
	tests := []struct {
		input    string
		expected []TokenType
	}{
		{"<<= << <= <", []TokenType{SHL_ASSIGN, SHL, LE, LT, EOF}},
		{">>= >> >= >", []TokenType{SHR_ASSIGN, SHR, GE, GT, EOF}},
		{"== = != !", []TokenType{EQ, ASSIGN, NOT_EQ, BANG, EOF}},
		{"&& &= & || |= |", []TokenType{AND, AND_ASSIGN, BIT_AND, OR, OR_ASSIGN, BIT_OR, EOF}},
		{"++ += + -- -= -> -", []TokenType{PLUS_PLUS, PLUS_ASSIGN, PLUS, MINUS_MINUS, MINUS_ASSIGN, ARROW, MINUS, EOF}},
		{"*= * /= / %= % ^= ^ ~", []TokenType{STAR_ASSIGN, ASTERISK, SLASH_ASSIGN, SLASH, PERCENT_ASSIGN, PERCENT, XOR_ASSIGN, XOR, TILDE, EOF}},
		{"a<=b", []TokenType{IDENT, LE, IDENT, EOF}},
		{"x=-1", []TokenType{IDENT, ASSIGN, MINUS, CONST, EOF}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			be.Equal(t, tokenTypes(mustTokenize(t, tt.input)), tt.expected)
		})
	}
}

func TestInterning(t *testing.T) {
	out := mustTokenize(t, "a b a c b 7 7 0x7")
	indexes := make([]int, 0, len(out.Symbols))
	for _, sym := range out.Symbols[:len(out.Symbols)-1] {
		indexes = append(indexes, sym.Token.Index)
	}
	be.Equal(t, indexes, []int{0, 1, 0, 2, 1, 0, 0, 1})
	be.Equal(t, out.Table.Identifiers.Len(), 3)
	be.Equal(t, out.Table.Consts.Entries(), []string{"7", "0x7"})
}

func TestInternTable(t *testing.T) {
	var table InternTable
	be.Equal(t, table.Add("x"), 0)
	be.Equal(t, table.Add("y"), 1)
	be.Equal(t, table.Add("x"), 0)
	be.Equal(t, table.Len(), 2)

	s, ok := table.Get(1)
	be.True(t, ok)
	be.Equal(t, s, "y")
	_, ok = table.Get(2)
	be.True(t, !ok)
	_, ok = table.Get(-1)
	be.True(t, !ok)

	entries := table.Entries()
	entries[0] = "changed"
	s, _ = table.Get(0)
	be.Equal(t, s, "x")
}

func TestConstsAndLiterals(t *testing.T) {
	out := mustTokenize(t, `0x1F "hello world" 12 0b101`)
	be.Equal(t, tokenTypes(out), []TokenType{CONST, LITERAL, CONST, CONST, EOF})
	be.Equal(t, out.Table.Consts.Entries(), []string{"0x1F", "12", "0b101"})
	be.Equal(t, out.Table.Literals.Entries(), []string{"hello world"})
	be.Equal(t, out.Text(out.Symbols[1]), `"hello world"`)
}

func TestLineNumbers(t *testing.T) {
	src := "int main() {\n" +
		"    // comment\n" +
		"    /* block\n" +
		"       comment */ return\n" +
		"\n" +
		"    x;\n" +
		"}\n"
	out := mustTokenize(t, src)

	lines := make([]int, len(out.Symbols))
	for i, sym := range out.Symbols {
		lines[i] = sym.Line
	}
	//                int main ( ) { return x ; } EOF
	be.Equal(t, lines, []int{1, 1, 1, 1, 1, 4, 6, 6, 7, 8})
}

func TestEmptyInput(t *testing.T) {
	out := mustTokenize(t, "  \n\t// only a comment")
	be.Equal(t, tokenTypes(out), []TokenType{EOF})
	be.Equal(t, out.Symbols[0].Line, 2)
}

func TestLexErrors(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected LexError
	}{
		{"unknown character", "int x;\nx = @;", LexError{Line: 2, Char: '@'}},
		{"dollar", "$", LexError{Line: 1, Char: '$'}},
		{"unterminated string", "\n\"abc", LexError{Line: 2, Msg: "unterminated string literal"}},
		{"unterminated block comment", "x\n/* never\nclosed", LexError{Line: 2, Msg: "unterminated block comment"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Tokenize(tt.input)
			be.True(t, out == nil)

			var lexErr *LexError
			be.True(t, errors.As(err, &lexErr))
			be.Equal(t, *lexErr, tt.expected)
		})
	}
}

func TestLexErrorMessages(t *testing.T) {
	be.Equal(t, (&LexError{Line: 3, Char: '@'}).Error(), "line 3: unexpected character '@'")
	be.Equal(t, (&LexError{Line: 1, Msg: "unterminated string literal"}).Error(), "line 1: unterminated string literal")
}

// Joining the spelling of every symbol and lexing again yields the same
// symbols and tables.
func TestTokenizeRoundTrip(t *testing.T) {
	sources := []string{
		"int main(int n) { int a[4], x = -1; while (x <= 0x10) { a[x] = n % 3; } return a[0]; }",
		`int f() { return 0b11; } "text" -> ++ <<=`,
	}

	for _, src := range sources {
		first := mustTokenize(t, src)
		parts := make([]string, 0, len(first.Symbols))
		for _, sym := range first.Symbols {
			parts = append(parts, first.Text(sym))
		}
		second := mustTokenize(t, strings.Join(parts, " "))

		be.Equal(t, tokenTypes(second), tokenTypes(first))
		be.Equal(t, second.Table.Identifiers.Entries(), first.Table.Identifiers.Entries())
		be.Equal(t, second.Table.Consts.Entries(), first.Table.Consts.Entries())
		be.Equal(t, second.Table.Literals.Entries(), first.Table.Literals.Entries())
		for i := range first.Symbols {
			be.Equal(t, second.Symbols[i].Token.Index, first.Symbols[i].Token.Index)
		}
	}
}

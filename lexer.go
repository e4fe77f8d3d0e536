package main

import (
	"fmt"
	"unicode"
)

// TokenType is the type of token (keyword, operator, interned value, etc.).
type TokenType string

// Definition of token types
const (
	// Special tokens
	EOF TokenType = "EOF"

	// Interned values; Token.Index points into the matching InternTable
	IDENT   TokenType = "IDENT"   // main, foo, _bar
	CONST   TokenType = "CONST"   // 123, 0x7f, 0b101
	LITERAL TokenType = "LITERAL" // "text"

	// Keywords
	INT      TokenType = "int"
	IF       TokenType = "if"
	WHILE    TokenType = "while"
	RETURN   TokenType = "return"
	BREAK    TokenType = "break"
	CONTINUE TokenType = "continue"

	// Delimiters
	LPAREN    TokenType = "("
	RPAREN    TokenType = ")"
	LBRACE    TokenType = "{"
	RBRACE    TokenType = "}"
	LBRACKET  TokenType = "["
	RBRACKET  TokenType = "]"
	SEMICOLON TokenType = ";"
	COMMA     TokenType = ","
	COLON     TokenType = ":"
	QUESTION  TokenType = "?"
	ARROW     TokenType = "->"

	// Arithmetic
	PLUS        TokenType = "+"
	MINUS       TokenType = "-"
	ASTERISK    TokenType = "*"
	SLASH       TokenType = "/"
	PERCENT     TokenType = "%"
	PLUS_PLUS   TokenType = "++"
	MINUS_MINUS TokenType = "--"

	// Comparison
	EQ     TokenType = "=="
	NOT_EQ TokenType = "!="
	LT     TokenType = "<"
	GT     TokenType = ">"
	LE     TokenType = "<="
	GE     TokenType = ">="

	// Logical
	BANG TokenType = "!"
	AND  TokenType = "&&"
	OR   TokenType = "||"

	// Bitwise
	TILDE   TokenType = "~"
	BIT_AND TokenType = "&"
	BIT_OR  TokenType = "|"
	XOR     TokenType = "^"
	SHL     TokenType = "<<"
	SHR     TokenType = ">>"

	// Assignment
	ASSIGN         TokenType = "="
	PLUS_ASSIGN    TokenType = "+="
	MINUS_ASSIGN   TokenType = "-="
	STAR_ASSIGN    TokenType = "*="
	SLASH_ASSIGN   TokenType = "/="
	PERCENT_ASSIGN TokenType = "%="
	AND_ASSIGN     TokenType = "&="
	OR_ASSIGN      TokenType = "|="
	XOR_ASSIGN     TokenType = "^="
	SHL_ASSIGN     TokenType = "<<="
	SHR_ASSIGN     TokenType = ">>="
)

var keywords = map[string]TokenType{
	"int":      INT,
	"if":       IF,
	"while":    WHILE,
	"return":   RETURN,
	"break":    BREAK,
	"continue": CONTINUE,
}

// operators lists every punctuation token, longest spelling first so that
// the scanner can take the first prefix match.
var operators = []TokenType{
	SHL_ASSIGN, SHR_ASSIGN,
	PLUS_PLUS, MINUS_MINUS, ARROW, EQ, NOT_EQ, LE, GE, AND, OR, SHL, SHR,
	PLUS_ASSIGN, MINUS_ASSIGN, STAR_ASSIGN, SLASH_ASSIGN, PERCENT_ASSIGN,
	AND_ASSIGN, OR_ASSIGN, XOR_ASSIGN,
	LPAREN, RPAREN, LBRACE, RBRACE, LBRACKET, RBRACKET, SEMICOLON, COMMA,
	COLON, QUESTION, PLUS, MINUS, ASTERISK, SLASH, PERCENT, LT, GT, BANG,
	TILDE, BIT_AND, BIT_OR, XOR, ASSIGN,
}

// Token is a lexed token. Index is only meaningful for IDENT, CONST and
// LITERAL tokens.
type Token struct {
	Type  TokenType
	Index int
}

// Symbol pairs a token with the 1-based line it was found on.
type Symbol struct {
	Token Token
	Line  int
}

// InternTable is an insertion-ordered set of strings. Indexes are stable
// once assigned.
type InternTable struct {
	entries []string
	index   map[string]int
}

// Add interns s and returns its index. Interning a known string returns the
// index it was first given.
func (t *InternTable) Add(s string) int {
	if i, ok := t.index[s]; ok {
		return i
	}
	if t.index == nil {
		t.index = make(map[string]int)
	}
	t.entries = append(t.entries, s)
	t.index[s] = len(t.entries) - 1
	return len(t.entries) - 1
}

func (t *InternTable) Get(i int) (string, bool) {
	if i < 0 || i >= len(t.entries) {
		return "", false
	}
	return t.entries[i], true
}

func (t *InternTable) Len() int {
	return len(t.entries)
}

// Entries returns a copy of the interned strings in index order.
func (t *InternTable) Entries() []string {
	return append([]string(nil), t.entries...)
}

// SymbolTable holds the three interning tables filled in by the lexer.
type SymbolTable struct {
	Identifiers InternTable
	Consts      InternTable
	Literals    InternTable
}

// LexerOutput is everything the parser needs. Symbols always ends with an
// EOF symbol.
type LexerOutput struct {
	Table   SymbolTable
	Symbols []Symbol
}

// Text reconstructs the source spelling of sym.
func (o *LexerOutput) Text(sym Symbol) string {
	switch sym.Token.Type {
	case IDENT:
		s, _ := o.Table.Identifiers.Get(sym.Token.Index)
		return s
	case CONST:
		s, _ := o.Table.Consts.Get(sym.Token.Index)
		return s
	case LITERAL:
		s, _ := o.Table.Literals.Get(sym.Token.Index)
		return `"` + s + `"`
	case EOF:
		return ""
	default:
		return string(sym.Token.Type)
	}
}

// LexError reports input the lexer cannot tokenize.
type LexError struct {
	Line int
	Char rune
	Msg  string
}

func (e *LexError) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
	}
	return fmt.Sprintf("line %d: unexpected character %q", e.Line, e.Char)
}

// lexer holds all mutable state for a single scanning pass over src.
type lexer struct {
	src  []rune
	pos  int // index of the next rune to consume
	line int // current 1-based source line
	out  *LexerOutput
}

// Tokenize converts src into a symbol stream plus its interning tables.
// The first unrecognized character aborts tokenization.
func Tokenize(src string) (*LexerOutput, error) {
	l := &lexer{src: []rune(src), line: 1, out: &LexerOutput{}}
	for {
		l.skipWhitespace()
		if l.pos >= len(l.src) {
			break
		}
		if l.peek() == '/' && l.peek2() == '/' {
			l.skipLineComment()
			continue
		}
		if l.peek() == '/' && l.peek2() == '*' {
			if err := l.skipBlockComment(); err != nil {
				return nil, err
			}
			continue
		}
		sym, err := l.next()
		if err != nil {
			return nil, err
		}
		l.out.Symbols = append(l.out.Symbols, sym)
	}
	l.out.Symbols = append(l.out.Symbols, Symbol{Token: Token{Type: EOF}, Line: l.line})
	return l.out, nil
}

func (l *lexer) peek() rune {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

func (l *lexer) peek2() rune {
	if l.pos+1 >= len(l.src) {
		return 0
	}
	return l.src[l.pos+1]
}

func (l *lexer) advance() rune {
	r := l.src[l.pos]
	l.pos++
	if r == '\n' {
		l.line++
	}
	return r
}

func (l *lexer) skipWhitespace() {
	for l.pos < len(l.src) && unicode.IsSpace(l.peek()) {
		l.advance()
	}
}

func (l *lexer) skipLineComment() {
	for l.pos < len(l.src) && l.peek() != '\n' {
		l.advance()
	}
}

func (l *lexer) skipBlockComment() error {
	startLine := l.line
	l.advance() // /
	l.advance() // *
	for l.pos < len(l.src) {
		if l.peek() == '*' && l.peek2() == '/' {
			l.advance()
			l.advance()
			return nil
		}
		l.advance()
	}
	return &LexError{Line: startLine, Msg: "unterminated block comment"}
}

func isIdentStart(r rune) bool {
	return unicode.IsLetter(r) || r == '_'
}

func isIdentChar(r rune) bool {
	return isIdentStart(r) || unicode.IsDigit(r)
}

func (l *lexer) next() (Symbol, error) {
	line := l.line
	c := l.peek()

	switch {
	case unicode.IsDigit(c):
		// Radix prefixes and suffix validation are left to the parser.
		start := l.pos
		for l.pos < len(l.src) && (unicode.IsLetter(l.peek()) || unicode.IsDigit(l.peek())) {
			l.advance()
		}
		idx := l.out.Table.Consts.Add(string(l.src[start:l.pos]))
		return Symbol{Token: Token{Type: CONST, Index: idx}, Line: line}, nil

	case isIdentStart(c):
		start := l.pos
		for l.pos < len(l.src) && isIdentChar(l.peek()) {
			l.advance()
		}
		word := string(l.src[start:l.pos])
		if kw, ok := keywords[word]; ok {
			return Symbol{Token: Token{Type: kw}, Line: line}, nil
		}
		idx := l.out.Table.Identifiers.Add(word)
		return Symbol{Token: Token{Type: IDENT, Index: idx}, Line: line}, nil

	case c == '"':
		l.advance()
		start := l.pos
		for l.pos < len(l.src) && l.peek() != '"' {
			l.advance()
		}
		if l.pos >= len(l.src) {
			return Symbol{}, &LexError{Line: line, Msg: "unterminated string literal"}
		}
		text := string(l.src[start:l.pos])
		l.advance() // closing "
		idx := l.out.Table.Literals.Add(text)
		return Symbol{Token: Token{Type: LITERAL, Index: idx}, Line: line}, nil
	}

	for _, op := range operators {
		if l.hasPrefix(string(op)) {
			for range []rune(string(op)) {
				l.advance()
			}
			return Symbol{Token: Token{Type: op}, Line: line}, nil
		}
	}
	return Symbol{}, &LexError{Line: line, Char: c}
}

func (l *lexer) hasPrefix(s string) bool {
	i := l.pos
	for _, r := range s {
		if i >= len(l.src) || l.src[i] != r {
			return false
		}
		i++
	}
	return true
}

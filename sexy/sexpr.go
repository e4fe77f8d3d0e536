package sexy

import (
	"fmt"
	"strings"
	"unicode"
)

// NodeType represents the type of a Node
type NodeType int

const (
	NodeSymbol NodeType = iota
	NodeString
	NodeInteger
	NodeEllipsis
	NodeList
	NodeArray
)

func (t NodeType) String() string {
	switch t {
	case NodeSymbol:
		return "symbol"
	case NodeString:
		return "string"
	case NodeInteger:
		return "integer"
	case NodeEllipsis:
		return "ellipsis"
	case NodeList:
		return "list"
	case NodeArray:
		return "array"
	}
	return fmt.Sprintf("NodeType(%d)", int(t))
}

// Node is one datum of a Sexy expression.
type Node struct {
	Type  NodeType
	Text  string  // NodeSymbol, NodeString, NodeInteger
	Items []*Node // NodeList, NodeArray
}

func (n *Node) String() string {
	switch n.Type {
	case NodeSymbol, NodeInteger:
		return n.Text
	case NodeString:
		escaped := strings.ReplaceAll(n.Text, "\\", "\\\\")
		escaped = strings.ReplaceAll(escaped, "\"", "\\\"")
		return "\"" + escaped + "\""
	case NodeEllipsis:
		return "..."
	case NodeList, NodeArray:
		parts := make([]string, len(n.Items))
		for i, item := range n.Items {
			parts[i] = item.String()
		}
		if n.Type == NodeList {
			return "(" + strings.Join(parts, " ") + ")"
		}
		return "[" + strings.Join(parts, " ") + "]"
	}
	return fmt.Sprintf("UNKNOWN_NODE_TYPE_%d", n.Type)
}

func NewSymbol(name string) *Node   { return &Node{Type: NodeSymbol, Text: name} }
func NewString(value string) *Node  { return &Node{Type: NodeString, Text: value} }
func NewInteger(text string) *Node  { return &Node{Type: NodeInteger, Text: text} }
func NewEllipsis() *Node            { return &Node{Type: NodeEllipsis} }
func NewList(items ...*Node) *Node  { return &Node{Type: NodeList, Items: items} }
func NewArray(items ...*Node) *Node { return &Node{Type: NodeArray, Items: items} }

// IsAtom reports whether n has no items.
func (n *Node) IsAtom() bool {
	return n.Type != NodeList && n.Type != NodeArray
}

// Match checks got against pattern. In a pattern, the symbol _ matches any
// single datum and ... inside a list or array matches any run of items,
// including an empty one. The error names the path of the first mismatch.
func Match(pattern, got *Node) error {
	return match(pattern, got, "root")
}

func match(pattern, got *Node, path string) error {
	if pattern.Type == NodeSymbol && pattern.Text == "_" {
		return nil
	}
	if pattern.Type != got.Type {
		return fmt.Errorf("at %s: expected %s %s, got %s %s", path, pattern.Type, pattern, got.Type, got)
	}
	if pattern.IsAtom() {
		if pattern.Text != got.Text {
			return fmt.Errorf("at %s: expected %s, got %s", path, pattern, got)
		}
		return nil
	}
	if !matchItems(pattern.Items, got.Items, path, 0) {
		// Report the first item that differs, ignoring ellipses.
		for i, p := range pattern.Items {
			if p.Type == NodeEllipsis {
				break
			}
			itemPath := fmt.Sprintf("%s[%d]", path, i)
			if i >= len(got.Items) {
				return fmt.Errorf("at %s: expected %s, got nothing", itemPath, p)
			}
			if err := match(p, got.Items[i], itemPath); err != nil {
				return err
			}
		}
		return fmt.Errorf("at %s: expected %s, got %s", path, pattern, got)
	}
	return nil
}

// matchItems matches item lists, backtracking over ellipses. offset is the
// index of got[0] in the enclosing collection.
func matchItems(pattern, got []*Node, path string, offset int) bool {
	if len(pattern) == 0 {
		return len(got) == 0
	}
	if pattern[0].Type == NodeEllipsis {
		for skip := 0; skip <= len(got); skip++ {
			if matchItems(pattern[1:], got[skip:], path, offset+skip) {
				return true
			}
		}
		return false
	}
	if len(got) == 0 {
		return false
	}
	if match(pattern[0], got[0], fmt.Sprintf("%s[%d]", path, offset)) != nil {
		return false
	}
	return matchItems(pattern[1:], got[1:], path, offset+1)
}

type parser struct {
	lexer        *lexer
	currentToken token
}

// Parse parses the entire input and returns the top-level datum
func Parse(input string) (*Node, error) {
	p := &parser{lexer: newLexer(input)}
	p.nextToken()

	result, err := p.parseDatum()
	if p.lexer.err != nil {
		// Lexer errors take priority because they might cause confusing parser errors.
		return nil, p.lexer.err
	}
	if err != nil {
		return nil, err
	}
	if p.currentToken.Type != tokenEOF {
		return nil, fmt.Errorf("expected EOF but got %s", p.currentToken.Type)
	}
	return result, nil
}

func (p *parser) nextToken() {
	p.currentToken = p.lexer.nextToken()
}

func (p *parser) parseDatum() (*Node, error) {
	tok := p.currentToken
	switch tok.Type {
	case tokenSymbol:
		p.nextToken()
		return NewSymbol(tok.Value), nil
	case tokenString:
		p.nextToken()
		return NewString(tok.Value), nil
	case tokenInteger:
		p.nextToken()
		return NewInteger(tok.Value), nil
	case tokenEllipsis:
		p.nextToken()
		return NewEllipsis(), nil
	case tokenLParen:
		items, err := p.parseItems(tokenRParen)
		if err != nil {
			return nil, err
		}
		return NewList(items...), nil
	case tokenLBracket:
		items, err := p.parseItems(tokenRBracket)
		if err != nil {
			return nil, err
		}
		return NewArray(items...), nil
	}
	return nil, fmt.Errorf("unexpected token: %s", tok.Type)
}

// parseItems parses data up to the closing token.
func (p *parser) parseItems(closing tokenType) ([]*Node, error) {
	p.nextToken() // consume the opening token
	var items []*Node
	for p.currentToken.Type != closing && p.currentToken.Type != tokenEOF {
		item, err := p.parseDatum()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if p.currentToken.Type != closing {
		return nil, fmt.Errorf("expected %s but got %s", closing, p.currentToken.Type)
	}
	p.nextToken()
	return items, nil
}

type tokenType int

const (
	tokenEOF tokenType = iota
	tokenSymbol
	tokenString
	tokenInteger
	tokenEllipsis
	tokenLParen
	tokenRParen
	tokenLBracket
	tokenRBracket
)

func (t tokenType) String() string {
	switch t {
	case tokenEOF:
		return "EOF"
	case tokenSymbol:
		return "symbol"
	case tokenString:
		return "string"
	case tokenInteger:
		return "integer"
	case tokenEllipsis:
		return "ellipsis"
	case tokenLParen:
		return "'('"
	case tokenRParen:
		return "')'"
	case tokenLBracket:
		return "'['"
	case tokenRBracket:
		return "']'"
	default:
		return fmt.Sprintf("unknown token %d", int(t))
	}
}

type token struct {
	Type  tokenType
	Value string
}

type lexer struct {
	input []rune
	pos   int
	err   error
}

func newLexer(input string) *lexer {
	return &lexer{input: []rune(input)}
}

func (l *lexer) peek(n int) rune {
	if l.pos+n >= len(l.input) {
		return 0
	}
	return l.input[l.pos+n]
}

func (l *lexer) fail(format string, args ...any) token {
	if l.err == nil {
		l.err = fmt.Errorf(format, args...)
	}
	return token{Type: tokenEOF}
}

func (l *lexer) readWhile(pred func(rune) bool) string {
	start := l.pos
	for l.pos < len(l.input) && pred(l.input[l.pos]) {
		l.pos++
	}
	return string(l.input[start:l.pos])
}

func (l *lexer) readString() (string, error) {
	var sb strings.Builder
	l.pos++ // opening quote
	for l.pos < len(l.input) && l.input[l.pos] != '"' {
		c := l.input[l.pos]
		if c == '\\' {
			l.pos++
			switch l.peek(0) {
			case '"', '\\':
				c = l.peek(0)
			default:
				return "", fmt.Errorf("invalid escape sequence: \\%c", l.peek(0))
			}
		}
		sb.WriteRune(c)
		l.pos++
	}
	if l.pos >= len(l.input) {
		return "", fmt.Errorf("unterminated string")
	}
	l.pos++ // closing quote
	return sb.String(), nil
}

var punctuation = map[rune]tokenType{
	'(': tokenLParen,
	')': tokenRParen,
	'[': tokenLBracket,
	']': tokenRBracket,
}

func (l *lexer) nextToken() token {
	for {
		l.readWhile(unicode.IsSpace)
		c := l.peek(0)
		switch {
		case l.pos >= len(l.input):
			return token{Type: tokenEOF}
		case c == ';':
			l.readWhile(func(r rune) bool { return r != '\n' })
			continue
		case punctuation[c] != tokenEOF:
			l.pos++
			return token{Type: punctuation[c], Value: string(c)}
		case c == '"':
			str, err := l.readString()
			if err != nil {
				return l.fail("%v", err)
			}
			return token{Type: tokenString, Value: str}
		case c == '.':
			if l.peek(1) == '.' && l.peek(2) == '.' {
				l.pos += 3
				return token{Type: tokenEllipsis, Value: "..."}
			}
			return l.fail("unexpected character '.'")
		case unicode.IsDigit(c) || ((c == '-' || c == '+') && unicode.IsDigit(l.peek(1))):
			l.pos++
			return token{Type: tokenInteger, Value: string(c) + l.readWhile(unicode.IsDigit)}
		case isSymbolChar(c) || c == '-' || c == '+':
			return token{Type: tokenSymbol, Value: l.readWhile(func(r rune) bool {
				return isSymbolChar(r) || r == '-' || r == '+'
			})}
		default:
			return l.fail("unexpected character '%c'", c)
		}
	}
}

func isSymbolChar(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

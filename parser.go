package main

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// SyntaxError reports the first symbol that did not fit the grammar. Symbol
// is nil when the input ended in the middle of a production.
type SyntaxError struct {
	Symbol *Symbol
}

func (e *SyntaxError) Error() string {
	if e.Symbol == nil {
		return "unexpected end of input"
	}
	return fmt.Sprintf("line %d: unexpected token %s", e.Symbol.Line, e.Symbol.Token.Type)
}

// Parser is a single-lookahead cursor over a symbol stream. It never
// backtracks: once a production has consumed a symbol, failing to finish it
// fails the whole parse.
type Parser struct {
	symbols []Symbol
	pos     int
	consts  *InternTable
}

// Parse builds the AST for a whole translation unit.
//
// Grammar:
//
//	Program     := Func*
//	Func        := 'int' Ident '(' Parameters ')' '{' Stmt* '}'
//	Parameters  := (('int' Ident) (',' 'int' Ident)*)?
//	Stmt        := 'if' '(' Expr ')' Block
//	             | 'while' '(' Expr ')' Block
//	             | 'int' Decl (',' Decl)* ';'
//	             | Ident '=' Expr ';'
//	             | Ident '[' Expr ']' '=' Expr ';'
//	             | 'break' ';' | 'continue' ';'
//	             | 'return' Expr ';'
//	Block       := '{' Stmt* '}' | Stmt
//	Decl        := Ident ('=' Expr)? | Ident '[' Const ']'
//	Expr        := DirectValue
//	             | DirectValue BinOp DirectValue
//	             | Ident '(' Arguments ')'
//	             | Ident '[' DirectValue ']'
//	Arguments   := (DirectValue (',' DirectValue)*)?
//	DirectValue := Ident | ['-'] Const
func Parse(out *LexerOutput) (*Program, IdentNameTable, error) {
	p := &Parser{symbols: out.Symbols, consts: &out.Table.Consts}
	prog := &Program{}
	for p.at(INT) {
		fn, err := p.parseFunc()
		if err != nil {
			return nil, nil, err
		}
		prog.Funcs = append(prog.Funcs, fn)
	}
	if !p.at(EOF) {
		return nil, nil, p.fail()
	}
	return prog, IdentNameTable(out.Table.Identifiers.Entries()), nil
}

// peek returns the current symbol without consuming it.
func (p *Parser) peek() *Symbol {
	if p.pos >= len(p.symbols) {
		return nil
	}
	return &p.symbols[p.pos]
}

// peekAt looks n symbols past the current one.
func (p *Parser) peekAt(n int) *Symbol {
	if p.pos+n >= len(p.symbols) {
		return nil
	}
	return &p.symbols[p.pos+n]
}

func (p *Parser) at(tt TokenType) bool {
	sym := p.peek()
	return sym != nil && sym.Token.Type == tt
}

// nextIf consumes the current symbol if it has type tt.
func (p *Parser) nextIf(tt TokenType) bool {
	if !p.at(tt) {
		return false
	}
	p.pos++
	return true
}

func (p *Parser) expect(tt TokenType) error {
	if !p.nextIf(tt) {
		return p.fail()
	}
	return nil
}

// fail reports the current symbol as the failure point.
func (p *Parser) fail() error {
	sym := p.peek()
	if sym == nil || sym.Token.Type == EOF {
		return &SyntaxError{}
	}
	failed := *sym
	return &SyntaxError{Symbol: &failed}
}

func (p *Parser) ident() (Ident, error) {
	sym := p.peek()
	if sym == nil || sym.Token.Type != IDENT {
		return Ident{}, p.fail()
	}
	p.pos++
	return Ident{Line: sym.Line, Index: sym.Token.Index}, nil
}

func (p *Parser) parseFunc() (*Func, error) {
	if err := p.expect(INT); err != nil {
		return nil, err
	}
	name, err := p.ident()
	if err != nil {
		return nil, err
	}
	if err := p.expect(LPAREN); err != nil {
		return nil, err
	}
	var params []Ident
	if p.nextIf(INT) {
		for {
			param, err := p.ident()
			if err != nil {
				return nil, err
			}
			params = append(params, param)
			if !p.nextIf(COMMA) {
				break
			}
			if err := p.expect(INT); err != nil {
				return nil, err
			}
		}
	}
	if err := p.expect(RPAREN); err != nil {
		return nil, err
	}
	if err := p.expect(LBRACE); err != nil {
		return nil, err
	}
	body, err := p.parseStmts()
	if err != nil {
		return nil, err
	}
	if err := p.expect(RBRACE); err != nil {
		return nil, err
	}
	return &Func{
		Signature: FuncSignature{Line: name.Line, Index: name.Index, ParamCount: len(params)},
		Params:    params,
		Body:      body,
	}, nil
}

// startsStmt reports whether the current symbol can begin a statement.
func (p *Parser) startsStmt() bool {
	sym := p.peek()
	if sym == nil {
		return false
	}
	switch sym.Token.Type {
	case IF, WHILE, INT, IDENT, BREAK, CONTINUE, RETURN:
		return true
	}
	return false
}

// parseStmts parses Stmt* up to (not including) the first symbol that cannot
// start a statement.
func (p *Parser) parseStmts() (Scope, error) {
	var stmts []Stmt
	for p.startsStmt() {
		stmt, err := p.parseStmt()
		if err != nil {
			return Scope{}, err
		}
		stmts = append(stmts, stmt)
	}
	return Scope{Stmts: stmts}, nil
}

func (p *Parser) parseBlock() (Scope, error) {
	if p.nextIf(LBRACE) {
		body, err := p.parseStmts()
		if err != nil {
			return Scope{}, err
		}
		if err := p.expect(RBRACE); err != nil {
			return Scope{}, err
		}
		return body, nil
	}
	stmt, err := p.parseStmt()
	if err != nil {
		return Scope{}, err
	}
	return Scope{Stmts: []Stmt{stmt}}, nil
}

func (p *Parser) parseCondition() (Expr, error) {
	if err := p.expect(LPAREN); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expect(RPAREN); err != nil {
		return nil, err
	}
	return cond, nil
}

func (p *Parser) parseStmt() (Stmt, error) {
	sym := p.peek()
	if sym == nil {
		return nil, p.fail()
	}
	line := sym.Line

	switch sym.Token.Type {
	case IF, WHILE:
		p.pos++
		cond, err := p.parseCondition()
		if err != nil {
			return nil, err
		}
		body, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		if sym.Token.Type == IF {
			return &IfStmt{Cond: cond, Body: body}, nil
		}
		return &WhileStmt{Cond: cond, Body: body}, nil

	case INT:
		p.pos++
		stmt := &DeclStmt{}
		for {
			decl, err := p.parseDecl()
			if err != nil {
				return nil, err
			}
			stmt.Decls = append(stmt.Decls, decl)
			if !p.nextIf(COMMA) {
				break
			}
		}
		if err := p.expect(SEMICOLON); err != nil {
			return nil, err
		}
		return stmt, nil

	case IDENT:
		target, _ := p.ident()
		if p.nextIf(LBRACKET) {
			index, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if err := p.expect(RBRACKET); err != nil {
				return nil, err
			}
			if err := p.expect(ASSIGN); err != nil {
				return nil, err
			}
			value, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if err := p.expect(SEMICOLON); err != nil {
				return nil, err
			}
			return &ArrayAssignStmt{Target: target, Index: index, Value: value}, nil
		}
		if err := p.expect(ASSIGN); err != nil {
			return nil, err
		}
		value, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(SEMICOLON); err != nil {
			return nil, err
		}
		return &AssignStmt{Target: target, Value: value}, nil

	case BREAK:
		p.pos++
		if err := p.expect(SEMICOLON); err != nil {
			return nil, err
		}
		return &BreakStmt{Line: line}, nil

	case CONTINUE:
		p.pos++
		if err := p.expect(SEMICOLON); err != nil {
			return nil, err
		}
		return &ContinueStmt{Line: line}, nil

	case RETURN:
		p.pos++
		value, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(SEMICOLON); err != nil {
			return nil, err
		}
		return &ReturnStmt{Value: value}, nil
	}
	return nil, p.fail()
}

func (p *Parser) parseDecl() (Decl, error) {
	name, err := p.ident()
	if err != nil {
		return nil, err
	}
	if p.nextIf(LBRACKET) {
		sym := p.peek()
		if sym == nil || sym.Token.Type != CONST {
			return nil, p.fail()
		}
		size, ok := p.constValue(sym.Token.Index)
		if !ok || size <= 0 {
			return nil, p.fail()
		}
		p.pos++
		if err := p.expect(RBRACKET); err != nil {
			return nil, err
		}
		return &ArrayDecl{Name: name, Size: uint32(size)}, nil
	}
	decl := &VarDecl{Name: name}
	if p.nextIf(ASSIGN) {
		init, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		decl.Init = init
	}
	return decl, nil
}

func (p *Parser) parseExpr() (Expr, error) {
	if p.at(IDENT) {
		if next := p.peekAt(1); next != nil {
			switch next.Token.Type {
			case LPAREN:
				return p.parseCall()
			case LBRACKET:
				array, _ := p.ident()
				p.pos++ // [
				index, err := p.parseDirectValue()
				if err != nil {
					return nil, err
				}
				if err := p.expect(RBRACKET); err != nil {
					return nil, err
				}
				return &IndexExpr{Array: array, Index: index}, nil
			}
		}
	}

	left, err := p.parseDirectValue()
	if err != nil {
		return nil, err
	}
	sym := p.peek()
	if sym == nil {
		return &ValueExpr{Value: left}, nil
	}
	op, ok := binaryOpTokens[sym.Token.Type]
	if !ok {
		return &ValueExpr{Value: left}, nil
	}
	p.pos++
	right, err := p.parseDirectValue()
	if err != nil {
		return nil, err
	}
	return &BinaryExpr{Left: left, Op: op, Right: right}, nil
}

func (p *Parser) parseCall() (Expr, error) {
	callee, _ := p.ident()
	p.pos++ // (
	var args []DirectValue
	if !p.at(RPAREN) {
		for {
			arg, err := p.parseDirectValue()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if !p.nextIf(COMMA) {
				break
			}
		}
	}
	if err := p.expect(RPAREN); err != nil {
		return nil, err
	}
	return &CallExpr{
		Func: FuncSignature{Line: callee.Line, Index: callee.Index, ParamCount: len(args)},
		Args: args,
	}, nil
}

func (p *Parser) parseDirectValue() (DirectValue, error) {
	if p.at(IDENT) {
		return p.ident()
	}
	negative := p.nextIf(MINUS)
	sym := p.peek()
	if sym == nil || sym.Token.Type != CONST {
		return nil, p.fail()
	}
	value, ok := p.constValue(sym.Token.Index)
	if negative {
		value = -value
	}
	if !ok || value < math.MinInt32 || value > math.MaxInt32 {
		return nil, p.fail()
	}
	p.pos++
	return Const(value), nil
}

// constValue decodes the interned constant at index. Decimal is tried
// first; otherwise leading zeros are stripped and the next character picks
// the radix (b, o or x).
func (p *Parser) constValue(index int) (int64, bool) {
	text, ok := p.consts.Get(index)
	if !ok {
		return 0, false
	}
	if v, err := strconv.ParseInt(text, 10, 64); err == nil {
		return v, v <= math.MaxInt32+1
	}
	rest := strings.TrimLeft(text, "0")
	if len(rest) < 2 {
		return 0, false
	}
	var radix int
	switch rest[0] {
	case 'b':
		radix = 2
	case 'o':
		radix = 8
	case 'x':
		radix = 16
	default:
		return 0, false
	}
	v, err := strconv.ParseInt(rest[1:], radix, 64)
	if err != nil {
		return 0, false
	}
	return v, v <= math.MaxInt32+1
}

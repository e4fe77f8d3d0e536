package main

import (
	"strconv"
	"strings"
)

// Ident is one occurrence of an identifier in the source. Index points into
// the identifier table; every occurrence of a name shares the same Index.
type Ident struct {
	Line  int
	Index int
}

// FuncSignature names a function at its declaration or at a call site.
type FuncSignature struct {
	Line       int
	Index      int
	ParamCount int
}

// IdentNameTable maps identifier table indexes back to their spelling.
type IdentNameTable []string

// Name returns the spelling for index, or a placeholder for an index the
// table does not know.
func (t IdentNameTable) Name(index int) string {
	if index < 0 || index >= len(t) {
		return "#" + strconv.Itoa(index)
	}
	return t[index]
}

// Program is the root of the AST: functions in source order.
type Program struct {
	Funcs []*Func
}

type Func struct {
	Signature FuncSignature
	Params    []Ident
	Body      Scope
}

// Scope is an ordered statement list that opens a new lexical scope.
type Scope struct {
	Stmts []Stmt
}

// Stmt is implemented by the statement node types below and nothing else.
type Stmt interface {
	stmtNode()
}

type IfStmt struct {
	Cond Expr
	Body Scope
}

type WhileStmt struct {
	Cond Expr
	Body Scope
}

// DeclStmt is `int a, b = 1, c[4];`.
type DeclStmt struct {
	Decls []Decl
}

type AssignStmt struct {
	Target Ident
	Value  Expr
}

// ArrayAssignStmt is `a[Index] = Value;`.
type ArrayAssignStmt struct {
	Target Ident
	Index  Expr
	Value  Expr
}

type BreakStmt struct {
	Line int
}

type ContinueStmt struct {
	Line int
}

type ReturnStmt struct {
	Value Expr
}

func (*IfStmt) stmtNode()          {}
func (*WhileStmt) stmtNode()       {}
func (*DeclStmt) stmtNode()        {}
func (*AssignStmt) stmtNode()      {}
func (*ArrayAssignStmt) stmtNode() {}
func (*BreakStmt) stmtNode()       {}
func (*ContinueStmt) stmtNode()    {}
func (*ReturnStmt) stmtNode()      {}

// Decl is a single declarator inside a DeclStmt.
type Decl interface {
	declNode()
	DeclName() Ident
}

// VarDecl declares a word-sized integer. Init is nil when absent.
type VarDecl struct {
	Name Ident
	Init Expr
}

type ArrayDecl struct {
	Name Ident
	Size uint32
}

func (*VarDecl) declNode()   {}
func (*ArrayDecl) declNode() {}

func (d *VarDecl) DeclName() Ident   { return d.Name }
func (d *ArrayDecl) DeclName() Ident { return d.Name }

// Expr is implemented by the expression node types below and nothing else.
type Expr interface {
	exprNode()
}

type ValueExpr struct {
	Value DirectValue
}

type BinaryExpr struct {
	Left  DirectValue
	Op    BinaryOp
	Right DirectValue
}

type CallExpr struct {
	Func FuncSignature
	Args []DirectValue
}

type IndexExpr struct {
	Array Ident
	Index DirectValue
}

func (*ValueExpr) exprNode()  {}
func (*BinaryExpr) exprNode() {}
func (*CallExpr) exprNode()   {}
func (*IndexExpr) exprNode()  {}

// DirectValue is either an Ident or a Const.
type DirectValue interface {
	directValue()
}

// Const is a signed constant with any leading minus already folded in.
type Const int32

func (Ident) directValue() {}
func (Const) directValue() {}

// BinaryOp is the single operator allowed in a binary expression.
type BinaryOp int

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpAnd
	OpOr
	OpXor
	OpLess
	OpLessEqual
	OpGreater
	OpGreaterEqual
	OpEqual
	OpNotEqual
)

var binaryOpTokens = map[TokenType]BinaryOp{
	PLUS:     OpAdd,
	MINUS:    OpSub,
	ASTERISK: OpMul,
	SLASH:    OpDiv,
	PERCENT:  OpMod,
	BIT_AND:  OpAnd,
	BIT_OR:   OpOr,
	XOR:      OpXor,
	LT:       OpLess,
	LE:       OpLessEqual,
	GT:       OpGreater,
	GE:       OpGreaterEqual,
	EQ:       OpEqual,
	NOT_EQ:   OpNotEqual,
}

var binaryOpNames = [...]string{
	OpAdd:          "+",
	OpSub:          "-",
	OpMul:          "*",
	OpDiv:          "/",
	OpMod:          "%",
	OpAnd:          "&",
	OpOr:           "|",
	OpXor:          "^",
	OpLess:         "<",
	OpLessEqual:    "<=",
	OpGreater:      ">",
	OpGreaterEqual: ">=",
	OpEqual:        "==",
	OpNotEqual:     "!=",
}

func (op BinaryOp) String() string {
	if op < 0 || int(op) >= len(binaryOpNames) {
		return "BinaryOp(" + strconv.Itoa(int(op)) + ")"
	}
	return binaryOpNames[op]
}

// IsComparison reports whether op yields 0 or 1.
func (op BinaryOp) IsComparison() bool {
	return op >= OpLess
}

// ToSExpr renders a program as an s-expression, resolving identifier
// indexes through names.
func ToSExpr(prog *Program, names IdentNameTable) string {
	var sb strings.Builder
	sb.WriteString("(program")
	for _, fn := range prog.Funcs {
		sb.WriteString(" (func " + quote(names.Name(fn.Signature.Index)) + " [")
		for i, p := range fn.Params {
			if i > 0 {
				sb.WriteString(" ")
			}
			sb.WriteString(quote(names.Name(p.Index)))
		}
		sb.WriteString("] " + scopeSExpr(fn.Body, names) + ")")
	}
	sb.WriteString(")")
	return sb.String()
}

func scopeSExpr(scope Scope, names IdentNameTable) string {
	result := "(block"
	for _, stmt := range scope.Stmts {
		result += " " + stmtSExpr(stmt, names)
	}
	return result + ")"
}

func stmtSExpr(stmt Stmt, names IdentNameTable) string {
	switch s := stmt.(type) {
	case *IfStmt:
		return "(if " + exprSExpr(s.Cond, names) + " " + scopeSExpr(s.Body, names) + ")"
	case *WhileStmt:
		return "(while " + exprSExpr(s.Cond, names) + " " + scopeSExpr(s.Body, names) + ")"
	case *DeclStmt:
		result := "(decl"
		for _, d := range s.Decls {
			switch d := d.(type) {
			case *VarDecl:
				result += " (var " + quote(names.Name(d.Name.Index))
				if d.Init != nil {
					result += " " + exprSExpr(d.Init, names)
				}
				result += ")"
			case *ArrayDecl:
				result += " (array " + quote(names.Name(d.Name.Index)) + " " + strconv.FormatUint(uint64(d.Size), 10) + ")"
			}
		}
		return result + ")"
	case *AssignStmt:
		return "(assign " + quote(names.Name(s.Target.Index)) + " " + exprSExpr(s.Value, names) + ")"
	case *ArrayAssignStmt:
		return "(store " + quote(names.Name(s.Target.Index)) + " " + exprSExpr(s.Index, names) + " " + exprSExpr(s.Value, names) + ")"
	case *BreakStmt:
		return "(break)"
	case *ContinueStmt:
		return "(continue)"
	case *ReturnStmt:
		return "(return " + exprSExpr(s.Value, names) + ")"
	default:
		return ""
	}
}

func exprSExpr(expr Expr, names IdentNameTable) string {
	switch e := expr.(type) {
	case *ValueExpr:
		return valueSExpr(e.Value, names)
	case *BinaryExpr:
		return "(binary " + quote(e.Op.String()) + " " + valueSExpr(e.Left, names) + " " + valueSExpr(e.Right, names) + ")"
	case *CallExpr:
		result := "(call " + quote(names.Name(e.Func.Index))
		for _, arg := range e.Args {
			result += " " + valueSExpr(arg, names)
		}
		return result + ")"
	case *IndexExpr:
		return "(idx " + quote(names.Name(e.Array.Index)) + " " + valueSExpr(e.Index, names) + ")"
	default:
		return ""
	}
}

func valueSExpr(v DirectValue, names IdentNameTable) string {
	switch v := v.(type) {
	case Ident:
		return "(ident " + quote(names.Name(v.Index)) + ")"
	case Const:
		return strconv.FormatInt(int64(v), 10)
	default:
		return ""
	}
}

func quote(s string) string {
	return "\"" + s + "\""
}

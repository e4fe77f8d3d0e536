package main

import "fmt"

// SemanticErrorKind classifies a SemanticError.
type SemanticErrorKind int

const (
	UndefinedFunction SemanticErrorKind = iota
	FunctionRedeclaration
	UseBeforeDeclaration
	MultipleDeclaration
	ContinueOutsideLoop
	BreakOutsideLoop
	InvalidArguments
	ExpectedPrimitiveFoundArray
	ExpectedArrayFoundPrimitive
)

var semanticErrorKindNames = [...]string{
	UndefinedFunction:           "UndefinedFunction",
	FunctionRedeclaration:       "FunctionRedeclaration",
	UseBeforeDeclaration:        "UseBeforeDeclaration",
	MultipleDeclaration:         "MultipleDeclaration",
	ContinueOutsideLoop:         "ContinueOutsideLoop",
	BreakOutsideLoop:            "BreakOutsideLoop",
	InvalidArguments:            "InvalidArguments",
	ExpectedPrimitiveFoundArray: "ExpectedPrimitiveFoundArray",
	ExpectedArrayFoundPrimitive: "ExpectedArrayFoundPrimitive",
}

func (k SemanticErrorKind) String() string {
	if k < 0 || int(k) >= len(semanticErrorKindNames) {
		return fmt.Sprintf("SemanticErrorKind(%d)", int(k))
	}
	return semanticErrorKindNames[k]
}

// SemanticError is the first semantic problem found in a program.
//
// Ident is set for the variable-related kinds, Func for UndefinedFunction,
// FunctionRedeclaration and InvalidArguments (with Expected holding the
// declared arity), and Line for the loop-control kinds.
type SemanticError struct {
	Kind     SemanticErrorKind
	Ident    Ident
	Func     FuncSignature
	Expected int
	Line     int
}

func (e *SemanticError) Error() string {
	switch e.Kind {
	case UndefinedFunction, FunctionRedeclaration:
		return fmt.Sprintf("line %d: %s: function #%d", e.Line, e.Kind, e.Func.Index)
	case InvalidArguments:
		return fmt.Sprintf("line %d: %s: function #%d takes %d arguments, got %d",
			e.Line, e.Kind, e.Func.Index, e.Expected, e.Func.ParamCount)
	case ContinueOutsideLoop, BreakOutsideLoop:
		return fmt.Sprintf("line %d: %s", e.Line, e.Kind)
	default:
		return fmt.Sprintf("line %d: %s: identifier #%d", e.Line, e.Kind, e.Ident.Index)
	}
}

func identError(kind SemanticErrorKind, ident Ident) *SemanticError {
	return &SemanticError{Kind: kind, Ident: ident, Line: ident.Line}
}

func funcError(kind SemanticErrorKind, fn FuncSignature) *SemanticError {
	return &SemanticError{Kind: kind, Func: fn, Line: fn.Line}
}

// declKind is what a name was declared as.
type declKind int

const (
	kindPrimitive declKind = iota
	kindArray
)

// scopeStack is a stack of per-scope tables mapping identifier indexes to
// their declared kind.
type scopeStack struct {
	tables []map[int]declKind

	// pushes and pops count scope transitions; they must match once a
	// function has been analyzed.
	pushes, pops int
}

func (s *scopeStack) push() {
	s.tables = append(s.tables, make(map[int]declKind))
	s.pushes++
}

func (s *scopeStack) pop() {
	s.tables = s.tables[:len(s.tables)-1]
	s.pops++
}

func (s *scopeStack) current() map[int]declKind {
	return s.tables[len(s.tables)-1]
}

// lookup searches from the innermost scope outwards.
func (s *scopeStack) lookup(index int) (declKind, bool) {
	for i := len(s.tables) - 1; i >= 0; i-- {
		if kind, ok := s.tables[i][index]; ok {
			return kind, true
		}
	}
	return 0, false
}

// analyzer checks one program. funcs grows as functions are analyzed, in
// declaration order, so a call can only reach a function declared above it
// (or the function itself).
type analyzer struct {
	funcs  map[int]int // function name index -> parameter count
	scopes scopeStack
}

// Analyze validates prog and returns the first *SemanticError found.
func Analyze(prog *Program) error {
	_, err := analyze(prog)
	return err
}

func analyze(prog *Program) (*analyzer, error) {
	a := &analyzer{funcs: make(map[int]int)}
	for _, fn := range prog.Funcs {
		if err := a.analyzeFunc(fn); err != nil {
			return a, err
		}
	}
	return a, nil
}

func (a *analyzer) analyzeFunc(fn *Func) error {
	sig := fn.Signature
	if _, exists := a.funcs[sig.Index]; exists {
		return funcError(FunctionRedeclaration, sig)
	}
	a.funcs[sig.Index] = len(fn.Params)

	a.scopes = scopeStack{pushes: a.scopes.pushes, pops: a.scopes.pops}
	a.scopes.push()
	for _, param := range fn.Params {
		if _, dup := a.scopes.current()[param.Index]; dup {
			return identError(MultipleDeclaration, param)
		}
		a.scopes.current()[param.Index] = kindPrimitive
	}
	if err := a.analyzeStmts(fn.Body.Stmts, false); err != nil {
		return err
	}
	a.scopes.pop()
	return nil
}

// analyzeScope opens a nested scope for body.
func (a *analyzer) analyzeScope(body Scope, inLoop bool) error {
	a.scopes.push()
	if err := a.analyzeStmts(body.Stmts, inLoop); err != nil {
		return err
	}
	a.scopes.pop()
	return nil
}

func (a *analyzer) analyzeStmts(stmts []Stmt, inLoop bool) error {
	for _, stmt := range stmts {
		if err := a.analyzeStmt(stmt, inLoop); err != nil {
			return err
		}
	}
	return nil
}

func (a *analyzer) analyzeStmt(stmt Stmt, inLoop bool) error {
	switch s := stmt.(type) {
	case *DeclStmt:
		for _, decl := range s.Decls {
			name := decl.DeclName()
			if _, dup := a.scopes.current()[name.Index]; dup {
				return identError(MultipleDeclaration, name)
			}
			switch d := decl.(type) {
			case *VarDecl:
				if d.Init != nil {
					if err := a.checkExpr(d.Init); err != nil {
						return err
					}
				}
				a.scopes.current()[name.Index] = kindPrimitive
			case *ArrayDecl:
				a.scopes.current()[name.Index] = kindArray
			}
		}
		return nil

	case *AssignStmt:
		if err := a.expectKind(s.Target, kindPrimitive); err != nil {
			return err
		}
		return a.checkExpr(s.Value)

	case *ArrayAssignStmt:
		if err := a.expectKind(s.Target, kindArray); err != nil {
			return err
		}
		if err := a.checkExpr(s.Index); err != nil {
			return err
		}
		return a.checkExpr(s.Value)

	case *IfStmt:
		if err := a.checkExpr(s.Cond); err != nil {
			return err
		}
		return a.analyzeScope(s.Body, inLoop)

	case *WhileStmt:
		if err := a.checkExpr(s.Cond); err != nil {
			return err
		}
		return a.analyzeScope(s.Body, true)

	case *ReturnStmt:
		return a.checkExpr(s.Value)

	case *BreakStmt:
		if !inLoop {
			return &SemanticError{Kind: BreakOutsideLoop, Line: s.Line}
		}
		return nil

	case *ContinueStmt:
		if !inLoop {
			return &SemanticError{Kind: ContinueOutsideLoop, Line: s.Line}
		}
		return nil
	}
	panic(fmt.Sprintf("analyzer: unexpected statement %T", stmt))
}

// expectKind resolves ident and checks it was declared as want.
func (a *analyzer) expectKind(ident Ident, want declKind) error {
	kind, ok := a.scopes.lookup(ident.Index)
	if !ok {
		return identError(UseBeforeDeclaration, ident)
	}
	if kind != want {
		if want == kindPrimitive {
			return identError(ExpectedPrimitiveFoundArray, ident)
		}
		return identError(ExpectedArrayFoundPrimitive, ident)
	}
	return nil
}

func (a *analyzer) checkValue(v DirectValue) error {
	if ident, ok := v.(Ident); ok {
		return a.expectKind(ident, kindPrimitive)
	}
	return nil
}

func (a *analyzer) checkExpr(expr Expr) error {
	switch e := expr.(type) {
	case *ValueExpr:
		return a.checkValue(e.Value)

	case *BinaryExpr:
		if err := a.checkValue(e.Left); err != nil {
			return err
		}
		return a.checkValue(e.Right)

	case *CallExpr:
		arity, ok := a.funcs[e.Func.Index]
		if !ok {
			return funcError(UndefinedFunction, e.Func)
		}
		if arity != len(e.Args) {
			err := funcError(InvalidArguments, e.Func)
			err.Expected = arity
			return err
		}
		for _, arg := range e.Args {
			if err := a.checkValue(arg); err != nil {
				return err
			}
		}
		return nil

	case *IndexExpr:
		if err := a.expectKind(e.Array, kindArray); err != nil {
			return err
		}
		return a.checkValue(e.Index)
	}
	panic(fmt.Sprintf("analyzer: unexpected expression %T", expr))
}

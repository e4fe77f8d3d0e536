package main

import (
	"errors"
	"fmt"
)

// Describe renders an error from any compiler stage as "LINE: error: MESSAGE"
// with identifier indexes resolved to their spelling. out may be nil for
// errors that carry no symbols.
func Describe(err error, names IdentNameTable, out *LexerOutput) string {
	line, msg := describe(err, names, out)
	if line <= 0 {
		return "error: " + msg
	}
	return fmt.Sprintf("%d: error: %s", line, msg)
}

func describe(err error, names IdentNameTable, out *LexerOutput) (int, string) {
	var lexErr *LexError
	if errors.As(err, &lexErr) {
		if lexErr.Msg != "" {
			return lexErr.Line, lexErr.Msg
		}
		return lexErr.Line, fmt.Sprintf("unexpected character %q", lexErr.Char)
	}

	var syntaxErr *SyntaxError
	if errors.As(err, &syntaxErr) {
		if syntaxErr.Symbol == nil {
			line := 0
			if out != nil && len(out.Symbols) > 0 {
				line = out.Symbols[len(out.Symbols)-1].Line
			}
			return line, "unexpected end of input"
		}
		text := string(syntaxErr.Symbol.Token.Type)
		if out != nil {
			text = out.Text(*syntaxErr.Symbol)
		}
		return syntaxErr.Symbol.Line, fmt.Sprintf("unexpected '%s'", text)
	}

	var semErr *SemanticError
	if errors.As(err, &semErr) {
		return semErr.Line, semanticMessage(semErr, names)
	}

	return 0, err.Error()
}

func semanticMessage(e *SemanticError, names IdentNameTable) string {
	ident := names.Name(e.Ident.Index)
	fn := names.Name(e.Func.Index)
	switch e.Kind {
	case UndefinedFunction:
		return fmt.Sprintf("call to undefined function '%s'", fn)
	case FunctionRedeclaration:
		return fmt.Sprintf("redefinition of function '%s'", fn)
	case UseBeforeDeclaration:
		return fmt.Sprintf("use of undeclared identifier '%s'", ident)
	case MultipleDeclaration:
		return fmt.Sprintf("redeclaration of '%s'", ident)
	case ContinueOutsideLoop:
		return "'continue' statement not in loop"
	case BreakOutsideLoop:
		return "'break' statement not in loop"
	case InvalidArguments:
		return fmt.Sprintf("function '%s' takes %s, got %d",
			fn, plural(e.Expected, "argument"), e.Func.ParamCount)
	case ExpectedPrimitiveFoundArray:
		return fmt.Sprintf("'%s' is an array, expected an int", ident)
	case ExpectedArrayFoundPrimitive:
		return fmt.Sprintf("'%s' is not an array", ident)
	}
	return e.Error()
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

package main

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Generate lowers every function of prog to three-address code. identCount
// is the size of the identifier table.
//
// prog must have passed Analyze. An identifier that cannot be bound panics.
func Generate(prog *Program, identCount int) []Function {
	funcs := make([]Function, len(prog.Funcs))
	for i, fn := range prog.Funcs {
		funcs[i] = newGenerator(fn, identCount).generateFunc(fn)
	}
	return funcs
}

// GenerateConcurrent is Generate with up to workers functions lowered at
// once. Generators share no state, so the result equals Generate's.
func GenerateConcurrent(ctx context.Context, prog *Program, identCount int, workers int) ([]Function, error) {
	funcs := make([]Function, len(prog.Funcs))
	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i, fn := range prog.Funcs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			funcs[i] = newGenerator(fn, identCount).generateFunc(fn)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return funcs, nil
}

// generator holds the per-function state of TAC generation.
type generator struct {
	params []int // identifier index of each parameter, by position

	// scopeMap[name] is the stack of scope ids the name is currently bound
	// in; the top is the visible binding.
	scopeMap  [][]int
	nextScope int
	temps     int

	// pushes and pops count scope entries and exits.
	pushes, pops int
}

func newGenerator(fn *Func, identCount int) *generator {
	params := make([]int, len(fn.Params))
	for i, p := range fn.Params {
		params[i] = p.Index
	}
	return &generator{
		params:   params,
		scopeMap: make([][]int, identCount),
	}
}

func (g *generator) generateFunc(fn *Func) Function {
	body := g.generateScope(fn.Body)
	for i, inst := range body {
		if jump, ok := inst.(Goto); ok {
			if _, resolved := jump.Target.Value(); !resolved {
				panic(fmt.Sprintf("tac: %s outside of a loop at %d", jump.Target, i))
			}
		}
	}
	return Function{ID: fn.Signature.Index, Params: g.params, Instructions: body}
}

// generateScope lowers one Scope under a fresh scope id. Declarations made
// directly inside it are tagged with that id and unbound when it ends.
func (g *generator) generateScope(scope Scope) []Instruction {
	id := g.nextScope
	g.nextScope++
	g.pushes++

	var out []Instruction
	for _, stmt := range scope.Stmts {
		out = append(out, g.generateStmt(stmt, id)...)
	}

	for name, ids := range g.scopeMap {
		for len(ids) > 0 && ids[len(ids)-1] == id {
			ids = ids[:len(ids)-1]
		}
		g.scopeMap[name] = ids
	}
	g.pops++
	return out
}

func (g *generator) newTemp() Operand {
	t := TempOperand(g.temps)
	g.temps++
	return t
}

func (g *generator) bind(name Ident, scope int) Binding {
	g.scopeMap[name.Index] = append(g.scopeMap[name.Index], scope)
	return LocalBinding(name.Index, scope)
}

// resolve returns the binding currently visible for ident: the innermost
// declaration, or else the parameter of that name.
func (g *generator) resolve(ident Ident) Binding {
	if ids := g.scopeMap[ident.Index]; len(ids) > 0 {
		return LocalBinding(ident.Index, ids[len(ids)-1])
	}
	for pos, p := range g.params {
		if p == ident.Index {
			return ParamBinding(pos)
		}
	}
	panic(fmt.Sprintf("tac: identifier #%d (line %d) is not bound", ident.Index, ident.Line))
}

func (g *generator) operand(v DirectValue) Operand {
	switch v := v.(type) {
	case Ident:
		return BindingOperand(g.resolve(v))
	case Const:
		return ImmOperand(int32(v))
	}
	panic(fmt.Sprintf("tac: unexpected value %T", v))
}

// rvalue resolves the operands of expr. Calls also yield the Push
// instructions for their arguments, rightmost first.
func (g *generator) rvalue(expr Expr) ([]Instruction, RValue) {
	switch e := expr.(type) {
	case *ValueExpr:
		return nil, Copy{Src: g.operand(e.Value)}
	case *BinaryExpr:
		return nil, Operation{Left: g.operand(e.Left), Op: e.Op, Right: g.operand(e.Right)}
	case *CallExpr:
		pushes := make([]Instruction, 0, len(e.Args))
		for i := len(e.Args) - 1; i >= 0; i-- {
			pushes = append(pushes, Push{Value: g.operand(e.Args[i])})
		}
		return pushes, Call{Func: e.Func.Index, ArgCount: len(e.Args)}
	case *IndexExpr:
		return nil, ArrayRead{Array: g.resolve(e.Array), Index: g.operand(e.Index)}
	}
	panic(fmt.Sprintf("tac: unexpected expression %T", expr))
}

// assign evaluates expr into dst.
func (g *generator) assign(dst Operand, expr Expr) []Instruction {
	pre, rv := g.rvalue(expr)
	return append(pre, Assign{Dst: dst, Src: rv})
}

func (g *generator) generateStmt(stmt Stmt, scope int) []Instruction {
	switch s := stmt.(type) {
	case *DeclStmt:
		var out []Instruction
		for _, decl := range s.Decls {
			switch d := decl.(type) {
			case *VarDecl:
				if d.Init == nil {
					g.bind(d.Name, scope)
					continue
				}
				// The initializer sees the bindings from before this
				// declaration; the assignment targets the new one.
				pre, rv := g.rvalue(d.Init)
				b := g.bind(d.Name, scope)
				out = append(out, pre...)
				out = append(out, Assign{Dst: BindingOperand(b), Src: rv})
			case *ArrayDecl:
				b := g.bind(d.Name, scope)
				out = append(out, ArrayAlloc{Array: b, Size: d.Size})
			}
		}
		return out

	case *AssignStmt:
		return g.assign(BindingOperand(g.resolve(s.Target)), s.Value)

	case *ArrayAssignStmt:
		index := g.newTemp()
		out := g.assign(index, s.Index)
		value := g.newTemp()
		out = append(out, g.assign(value, s.Value)...)
		return append(out, ArrayWrite{Array: g.resolve(s.Target), Index: index, Value: value})

	case *ReturnStmt:
		t := g.newTemp()
		return append(g.assign(t, s.Value), Return{Value: t})

	case *IfStmt:
		t := g.newTemp()
		out := g.assign(t, s.Cond)
		body := g.generateScope(s.Body)
		out = append(out, Ifz{Cond: t, Offset: len(body) + 1})
		return append(out, body...)

	case *WhileStmt:
		t := g.newTemp()
		cond := g.assign(t, s.Cond)
		body := g.generateScope(s.Body)
		patchLoopBody(body, len(cond))

		out := append(cond, Ifz{Cond: t, Offset: len(body) + 2})
		out = append(out, body...)
		return append(out, Goto{Target: Resolved(-(len(body) + 1 + len(cond)))})

	case *BreakStmt:
		return []Instruction{Goto{Target: PendingBreak}}

	case *ContinueStmt:
		return []Instruction{Goto{Target: PendingContinue}}
	}
	panic(fmt.Sprintf("tac: unexpected statement %T", stmt))
}

// patchLoopBody resolves the pending gotos left by break and continue in a
// freshly generated loop body. The body will be preceded by condLen
// condition instructions and the Ifz, and followed by the backward Goto.
// Nested loops have already resolved their own gotos.
func patchLoopBody(body []Instruction, condLen int) {
	for i, inst := range body {
		jump, ok := inst.(Goto)
		if !ok {
			continue
		}
		switch jump.Target {
		case PendingBreak:
			body[i] = Goto{Target: Resolved(len(body) - i + 1)}
		case PendingContinue:
			body[i] = Goto{Target: Resolved(-(i + 1 + condLen))}
		}
	}
}

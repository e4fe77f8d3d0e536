package main

import (
	"fmt"
	"strconv"
	"strings"
)

// BindingKind distinguishes block-local storage from parameters.
type BindingKind int

const (
	BindLocal BindingKind = iota
	BindParam
)

// Binding is the storage key for a named operand. Two declarations of the
// same name in different scopes differ in Scope, so they never share
// storage.
type Binding struct {
	Kind  BindingKind
	Name  int // identifier index; BindLocal only
	Scope int // scope id; BindLocal only
	Param int // parameter position; BindParam only
}

func LocalBinding(name, scope int) Binding {
	return Binding{Kind: BindLocal, Name: name, Scope: scope}
}

func ParamBinding(position int) Binding {
	return Binding{Kind: BindParam, Param: position}
}

// OperandKind tags an Operand.
type OperandKind int

const (
	OperandBinding OperandKind = iota
	OperandTemp
	OperandImm
)

// Operand is a bound identifier, a temporary or an immediate constant.
type Operand struct {
	Kind    OperandKind
	Binding Binding
	Temp    int
	Imm     int32
}

func BindingOperand(b Binding) Operand { return Operand{Kind: OperandBinding, Binding: b} }
func TempOperand(n int) Operand        { return Operand{Kind: OperandTemp, Temp: n} }
func ImmOperand(v int32) Operand       { return Operand{Kind: OperandImm, Imm: v} }

// RValue is the right-hand side of an Assign.
type RValue interface {
	rvalue()
}

type Copy struct {
	Src Operand
}

type Operation struct {
	Left  Operand
	Op    BinaryOp
	Right Operand
}

// Call consumes the ArgCount most recent Push instructions.
type Call struct {
	Func     int // identifier index of the callee
	ArgCount int
}

type ArrayRead struct {
	Array Binding
	Index Operand
}

func (Copy) rvalue()      {}
func (Operation) rvalue() {}
func (Call) rvalue()      {}
func (ArrayRead) rvalue() {}

// Instruction is one TAC instruction.
type Instruction interface {
	instruction()
}

// ArrayAlloc reserves Size words of storage for Array.
type ArrayAlloc struct {
	Array Binding
	Size  uint32
}

type ArrayWrite struct {
	Array Binding
	Index Operand
	Value Operand
}

// Ifz jumps Offset instructions forward when Cond is zero.
type Ifz struct {
	Cond   Operand
	Offset int
}

type Assign struct {
	Dst Operand
	Src RValue
}

type Return struct {
	Value Operand
}

type Push struct {
	Value Operand
}

// Goto jumps Target instructions relative to itself.
type Goto struct {
	Target Offset
}

func (ArrayAlloc) instruction() {}
func (ArrayWrite) instruction() {}
func (Ifz) instruction()        {}
func (Assign) instruction()     {}
func (Return) instruction()     {}
func (Push) instruction()       {}
func (Goto) instruction()       {}

type offsetKind int

const (
	offsetResolved offsetKind = iota
	offsetPendingBreak
	offsetPendingContinue
)

// Offset is a relative jump distance, or a marker for a break/continue whose
// distance is not known until the enclosing loop body has been generated.
type Offset struct {
	kind offsetKind
	n    int
}

var (
	PendingBreak    = Offset{kind: offsetPendingBreak}
	PendingContinue = Offset{kind: offsetPendingContinue}
)

func Resolved(n int) Offset {
	return Offset{kind: offsetResolved, n: n}
}

// Value returns the distance; ok is false while the offset is pending.
func (o Offset) Value() (n int, ok bool) {
	return o.n, o.kind == offsetResolved
}

func (o Offset) String() string {
	switch o.kind {
	case offsetPendingBreak:
		return "<break>"
	case offsetPendingContinue:
		return "<continue>"
	}
	return fmt.Sprintf("%+d", o.n)
}

// Function is the TAC for one source function. ID is the identifier index of
// its name; Params holds the identifier index of each parameter.
type Function struct {
	ID           int
	Params       []int
	Instructions []Instruction
}

// JumpTarget returns the absolute index an Ifz or Goto at index i lands on.
func JumpTarget(i int, inst Instruction) (int, bool) {
	switch inst := inst.(type) {
	case Ifz:
		return i + inst.Offset, true
	case Goto:
		n, ok := inst.Target.Value()
		if !ok {
			panic(fmt.Sprintf("tac: unresolved %s at %d", inst.Target, i))
		}
		return i + n, true
	}
	return 0, false
}

// Format renders the function as a numbered listing.
func (f Function) Format(names IdentNameTable) string {
	var sb strings.Builder
	sb.WriteString(names.Name(f.ID) + "(")
	for i, p := range f.Params {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(names.Name(p))
	}
	sb.WriteString("):\n")
	for i, inst := range f.Instructions {
		fmt.Fprintf(&sb, "%4d: %s\n", i, FormatInstruction(inst, names))
	}
	return sb.String()
}

func formatBinding(b Binding, names IdentNameTable) string {
	if b.Kind == BindParam {
		return "$" + strconv.Itoa(b.Param)
	}
	return names.Name(b.Name) + "@" + strconv.Itoa(b.Scope)
}

func formatOperand(op Operand, names IdentNameTable) string {
	switch op.Kind {
	case OperandBinding:
		return formatBinding(op.Binding, names)
	case OperandTemp:
		return "t" + strconv.Itoa(op.Temp)
	default:
		return strconv.Itoa(int(op.Imm))
	}
}

// FormatInstruction renders inst on one line, e.g. "t0 = x@0 <= 4".
func FormatInstruction(inst Instruction, names IdentNameTable) string {
	switch inst := inst.(type) {
	case ArrayAlloc:
		return fmt.Sprintf("alloc %s[%d]", formatBinding(inst.Array, names), inst.Size)
	case ArrayWrite:
		return fmt.Sprintf("%s[%s] = %s", formatBinding(inst.Array, names),
			formatOperand(inst.Index, names), formatOperand(inst.Value, names))
	case Ifz:
		return fmt.Sprintf("ifz %s goto %+d", formatOperand(inst.Cond, names), inst.Offset)
	case Assign:
		dst := formatOperand(inst.Dst, names)
		switch src := inst.Src.(type) {
		case Copy:
			return dst + " = " + formatOperand(src.Src, names)
		case Operation:
			return fmt.Sprintf("%s = %s %s %s", dst, formatOperand(src.Left, names), src.Op, formatOperand(src.Right, names))
		case Call:
			return fmt.Sprintf("%s = call %s, %d", dst, names.Name(src.Func), src.ArgCount)
		case ArrayRead:
			return fmt.Sprintf("%s = %s[%s]", dst, formatBinding(src.Array, names), formatOperand(src.Index, names))
		}
	case Return:
		return "return " + formatOperand(inst.Value, names)
	case Push:
		return "push " + formatOperand(inst.Value, names)
	case Goto:
		return "goto " + inst.Target.String()
	}
	return fmt.Sprintf("%#v", inst)
}

// TACSExpr renders generated functions as an s-expression, e.g.
//
//	(program (func "main" (assign (var "x" 0) 5) (return (temp 0))))
func TACSExpr(funcs []Function, names IdentNameTable) string {
	var sb strings.Builder
	sb.WriteString("(program")
	for _, f := range funcs {
		sb.WriteString(" (func " + quote(names.Name(f.ID)))
		for _, inst := range f.Instructions {
			sb.WriteString(" " + instructionSExpr(inst, names))
		}
		sb.WriteString(")")
	}
	sb.WriteString(")")
	return sb.String()
}

func bindingSExpr(b Binding, names IdentNameTable) string {
	if b.Kind == BindParam {
		return "(param " + strconv.Itoa(b.Param) + ")"
	}
	return "(var " + quote(names.Name(b.Name)) + " " + strconv.Itoa(b.Scope) + ")"
}

func operandSExpr(op Operand, names IdentNameTable) string {
	switch op.Kind {
	case OperandBinding:
		return bindingSExpr(op.Binding, names)
	case OperandTemp:
		return "(temp " + strconv.Itoa(op.Temp) + ")"
	default:
		return strconv.Itoa(int(op.Imm))
	}
}

func instructionSExpr(inst Instruction, names IdentNameTable) string {
	switch inst := inst.(type) {
	case ArrayAlloc:
		return "(alloc " + bindingSExpr(inst.Array, names) + " " + strconv.FormatUint(uint64(inst.Size), 10) + ")"
	case ArrayWrite:
		return "(store " + bindingSExpr(inst.Array, names) + " " + operandSExpr(inst.Index, names) + " " + operandSExpr(inst.Value, names) + ")"
	case Ifz:
		return "(ifz " + operandSExpr(inst.Cond, names) + " " + strconv.Itoa(inst.Offset) + ")"
	case Assign:
		var src string
		switch rv := inst.Src.(type) {
		case Copy:
			src = operandSExpr(rv.Src, names)
		case Operation:
			src = "(op " + quote(rv.Op.String()) + " " + operandSExpr(rv.Left, names) + " " + operandSExpr(rv.Right, names) + ")"
		case Call:
			src = "(call " + quote(names.Name(rv.Func)) + " " + strconv.Itoa(rv.ArgCount) + ")"
		case ArrayRead:
			src = "(load " + bindingSExpr(rv.Array, names) + " " + operandSExpr(rv.Index, names) + ")"
		}
		return "(assign " + operandSExpr(inst.Dst, names) + " " + src + ")"
	case Return:
		return "(return " + operandSExpr(inst.Value, names) + ")"
	case Push:
		return "(push " + operandSExpr(inst.Value, names) + ")"
	case Goto:
		n, ok := inst.Target.Value()
		if !ok {
			return "(goto " + inst.Target.String() + ")"
		}
		return "(goto " + strconv.Itoa(n) + ")"
	}
	return ""
}

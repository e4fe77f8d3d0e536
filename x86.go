package main

import (
	"fmt"
	"sort"
	"strings"
)

const x86Prelude = `.intel_mnemonic
.intel_syntax
.text
`

// X86Options controls assembly emission.
type X86Options struct {
	// Annotate precedes the lowering of every TAC instruction with a
	// "# index: instruction" comment.
	Annotate bool
}

// EmitX86 lowers TAC to GNU assembler source in Intel syntax. Every
// function becomes a global symbol named after the source function.
//
// Calling convention: the caller pushes 8-byte argument slots, rightmost
// argument first, and pops them after the call; the result is in %eax.
func EmitX86(funcs []Function, names IdentNameTable, opts X86Options) string {
	var sb strings.Builder
	sb.WriteString(x86Prelude)
	for _, f := range funcs {
		sb.WriteString("\n")
		emitX86Func(&sb, f, names, opts)
	}
	return sb.String()
}

// frameAllocator hands out stack slots relative to %rbp. Slots are never
// reused within a function.
type frameAllocator struct {
	size     int
	bindings map[Binding]int
	temps    map[int]int
}

func newFrameAllocator() *frameAllocator {
	return &frameAllocator{
		bindings: make(map[Binding]int),
		temps:    make(map[int]int),
	}
}

func (a *frameAllocator) reserve(bytes int) int {
	a.size += bytes
	return a.size
}

// alloc reserves an array of size words. Element i lives at
// %rbp - offset + 4*i.
func (a *frameAllocator) alloc(b Binding, size uint32) int {
	off, ok := a.bindings[b]
	if !ok {
		off = a.reserve(4 * int(size))
		a.bindings[b] = off
	}
	return off
}

func (a *frameAllocator) binding(b Binding) string {
	if b.Kind == BindParam {
		return fmt.Sprintf("DWORD PTR [%%rbp + %d]", 16+8*b.Param)
	}
	off, ok := a.bindings[b]
	if !ok {
		off = a.reserve(4)
		a.bindings[b] = off
	}
	return fmt.Sprintf("DWORD PTR [%%rbp - %d]", off)
}

func (a *frameAllocator) operand(op Operand) string {
	switch op.Kind {
	case OperandBinding:
		return a.binding(op.Binding)
	case OperandTemp:
		off, ok := a.temps[op.Temp]
		if !ok {
			off = a.reserve(4)
			a.temps[op.Temp] = off
		}
		return fmt.Sprintf("DWORD PTR [%%rbp - %d]", off)
	default:
		return fmt.Sprintf("%d", op.Imm)
	}
}

// element addresses Array[%rcx].
func (a *frameAllocator) element(b Binding) string {
	off, ok := a.bindings[b]
	if !ok {
		panic(fmt.Sprintf("x86: array %+v used before its allocation", b))
	}
	return fmt.Sprintf("DWORD PTR [%%rbp + %%rcx*4 - %d]", off)
}

func emitX86Func(sb *strings.Builder, f Function, names IdentNameTable, opts X86Options) {
	name := names.Name(f.ID)
	labels := jumpLabels(f, name)
	end := ".L" + name + "_end"

	frame := newFrameAllocator()
	var body []string
	for i, inst := range f.Instructions {
		if label, ok := labels[i]; ok {
			body = append(body, label+":")
		}
		if opts.Annotate {
			body = append(body, fmt.Sprintf("\t# %d: %s", i, FormatInstruction(inst, names)))
		}
		for _, line := range lowerX86(inst, i, frame, labels, end, names) {
			body = append(body, "\t"+line)
		}
	}
	if label, ok := labels[len(f.Instructions)]; ok {
		body = append(body, label+":")
	}

	fmt.Fprintf(sb, ".global %s\n.type %s, @function\n%s:\n", name, name, name)
	sb.WriteString("\tpush %rbp\n\tmov %rbp, %rsp\n")
	if size := (frame.size + 15) &^ 15; size > 0 {
		fmt.Fprintf(sb, "\tsub %%rsp, %d\n", size)
	}
	for _, line := range body {
		sb.WriteString(line + "\n")
	}
	sb.WriteString(end + ":\n\tmov %rsp, %rbp\n\tpop %rbp\n\tret\n")
}

// jumpLabels names every instruction index some Ifz or Goto lands on.
// Labels are numbered in address order.
func jumpLabels(f Function, name string) map[int]string {
	seen := make(map[int]bool)
	var targets []int
	for i, inst := range f.Instructions {
		target, ok := JumpTarget(i, inst)
		if !ok {
			continue
		}
		if target < 0 || target > len(f.Instructions) {
			panic(fmt.Sprintf("x86: jump at %d in %s lands outside the function (%d)", i, name, target))
		}
		if !seen[target] {
			seen[target] = true
			targets = append(targets, target)
		}
	}
	sort.Ints(targets)
	labels := make(map[int]string, len(targets))
	for n, target := range targets {
		labels[target] = fmt.Sprintf(".L%s_%d", name, n)
	}
	return labels
}

func lowerX86(inst Instruction, i int, frame *frameAllocator, labels map[int]string, end string, names IdentNameTable) []string {
	switch inst := inst.(type) {
	case ArrayAlloc:
		frame.alloc(inst.Array, inst.Size)
		return nil

	case ArrayWrite:
		return []string{
			"mov %ecx, " + frame.operand(inst.Index),
			"movsxd %rcx, %ecx",
			"mov %eax, " + frame.operand(inst.Value),
			"mov " + frame.element(inst.Array) + ", %eax",
		}

	case Ifz:
		target, _ := JumpTarget(i, inst)
		return []string{
			"mov %eax, " + frame.operand(inst.Cond),
			"cmp %eax, 0",
			"je " + labels[target],
		}

	case Goto:
		target, _ := JumpTarget(i, inst)
		return []string{"jmp " + labels[target]}

	case Return:
		return []string{
			"mov %eax, " + frame.operand(inst.Value),
			"jmp " + end,
		}

	case Push:
		return []string{
			"mov %eax, " + frame.operand(inst.Value),
			"push %rax",
		}

	case Assign:
		return lowerX86Assign(inst, frame, names)
	}
	panic(fmt.Sprintf("x86: unexpected instruction %T", inst))
}

func lowerX86Assign(inst Assign, frame *frameAllocator, names IdentNameTable) []string {
	switch src := inst.Src.(type) {
	case Copy:
		if src.Src.Kind == OperandImm {
			return []string{fmt.Sprintf("mov %s, %d", frame.operand(inst.Dst), src.Src.Imm)}
		}
		return []string{
			"mov %eax, " + frame.operand(src.Src),
			"mov " + frame.operand(inst.Dst) + ", %eax",
		}

	case Call:
		lines := []string{"call " + names.Name(src.Func)}
		if src.ArgCount > 0 {
			lines = append(lines, fmt.Sprintf("add %%rsp, %d", 8*src.ArgCount))
		}
		return append(lines, "mov "+frame.operand(inst.Dst)+", %eax")

	case ArrayRead:
		return []string{
			"mov %ecx, " + frame.operand(src.Index),
			"movsxd %rcx, %ecx",
			"mov %eax, " + frame.element(src.Array),
			"mov " + frame.operand(inst.Dst) + ", %eax",
		}

	case Operation:
		lhs := frame.operand(src.Left)
		rhs := frame.operand(src.Right)
		dst := frame.operand(inst.Dst)
		switch src.Op {
		case OpAdd, OpSub, OpAnd, OpOr, OpXor:
			return []string{
				"mov %eax, " + lhs,
				arithmeticMnemonics[src.Op] + " %eax, " + rhs,
				"mov " + dst + ", %eax",
			}
		case OpMul:
			return []string{
				"mov %eax, " + lhs,
				"mov %ecx, " + rhs,
				"imul %eax, %ecx",
				"mov " + dst + ", %eax",
			}
		case OpDiv, OpMod:
			result := "%eax"
			if src.Op == OpMod {
				result = "%edx"
			}
			return []string{
				"mov %eax, " + lhs,
				"mov %ecx, " + rhs,
				"cdq",
				"idiv %ecx",
				"mov " + dst + ", " + result,
			}
		default:
			return []string{
				"mov %eax, " + lhs,
				"cmp %eax, " + rhs,
				setMnemonics[src.Op] + " %al",
				"and %al, 1",
				"movzx %eax, %al",
				"mov " + dst + ", %eax",
			}
		}
	}
	panic(fmt.Sprintf("x86: unexpected rvalue %T", inst.Src))
}

var arithmeticMnemonics = map[BinaryOp]string{
	OpAdd: "add",
	OpSub: "sub",
	OpAnd: "and",
	OpOr:  "or",
	OpXor: "xor",
}

var setMnemonics = map[BinaryOp]string{
	OpLess:         "setl",
	OpLessEqual:    "setle",
	OpGreater:      "setg",
	OpGreaterEqual: "setge",
	OpEqual:        "sete",
	OpNotEqual:     "setne",
}

package main

import (
	"fmt"
	"sort"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
)

// EmitLLVM lowers TAC to textual LLVM IR. Every binding and temporary gets an
// alloca in the entry block; basic blocks start at every jump target and
// after every jump or return.
func EmitLLVM(funcs []Function, names IdentNameTable) (string, error) {
	m := ir.NewModule()
	decls := make(map[int]*ir.Func, len(funcs))
	for _, f := range funcs {
		params := make([]*ir.Param, len(f.Params))
		for i, p := range f.Params {
			params[i] = ir.NewParam(names.Name(p), types.I32)
		}
		decls[f.ID] = m.NewFunc(names.Name(f.ID), types.I32, params...)
	}
	for _, f := range funcs {
		l := &llvmLowering{
			fn:     decls[f.ID],
			decls:  decls,
			names:  names,
			slots:  make(map[Binding]*ir.InstAlloca),
			temps:  make(map[int]*ir.InstAlloca),
			arrays: make(map[Binding]*ir.InstAlloca),
		}
		if err := l.lower(f); err != nil {
			return "", fmt.Errorf("llvm: %s: %w", names.Name(f.ID), err)
		}
	}
	return m.String(), nil
}

type llvmLowering struct {
	fn    *ir.Func
	decls map[int]*ir.Func
	names IdentNameTable

	entry  *ir.Block
	blocks map[int]*ir.Block
	cur    *ir.Block

	slots  map[Binding]*ir.InstAlloca
	temps  map[int]*ir.InstAlloca
	arrays map[Binding]*ir.InstAlloca

	// pushed holds argument values in push order until a Call consumes them.
	pushed []value.Value
}

// leaders returns the instruction indexes that begin a basic block. The
// index one past the last instruction is always a leader; its block returns 0.
func leaders(f Function) ([]int, error) {
	n := len(f.Instructions)
	set := map[int]bool{0: true, n: true}
	for i, inst := range f.Instructions {
		if target, ok := JumpTarget(i, inst); ok {
			if target < 0 || target > n {
				return nil, fmt.Errorf("jump at %d lands outside the function (%d)", i, target)
			}
			set[target] = true
			set[i+1] = true
		}
		if _, ok := inst.(Return); ok {
			set[i+1] = true
		}
	}
	out := make([]int, 0, len(set))
	for i := range set {
		out = append(out, i)
	}
	sort.Ints(out)
	return out, nil
}

func (l *llvmLowering) lower(f Function) error {
	starts, err := leaders(f)
	if err != nil {
		return err
	}
	l.entry = l.fn.NewBlock("bb.entry")
	l.blocks = make(map[int]*ir.Block, len(starts))
	for _, i := range starts {
		name := fmt.Sprintf("bb.%d", i)
		if i == len(f.Instructions) {
			name = "bb.exit"
		}
		l.blocks[i] = l.fn.NewBlock(name)
	}

	for pos := range l.fn.Params {
		l.slot(ParamBinding(pos))
	}
	for pos, param := range l.fn.Params {
		l.entry.NewStore(param, l.slot(ParamBinding(pos)))
	}
	l.entry.NewBr(l.blocks[0])

	l.cur = l.blocks[0]
	for i, inst := range f.Instructions {
		if b, ok := l.blocks[i]; ok && i > 0 {
			if l.cur.Term == nil {
				l.cur.NewBr(b)
			}
			l.cur = b
		}
		if err := l.lowerInstruction(i, inst); err != nil {
			return fmt.Errorf("%d: %w", i, err)
		}
	}
	exit := l.blocks[len(f.Instructions)]
	if l.cur != exit && l.cur.Term == nil {
		l.cur.NewBr(exit)
	}
	exit.NewRet(constant.NewInt(types.I32, 0))
	return nil
}

// slot returns the storage of a scalar binding, creating it on first use.
func (l *llvmLowering) slot(b Binding) *ir.InstAlloca {
	if a, ok := l.slots[b]; ok {
		return a
	}
	a := l.entry.NewAlloca(types.I32)
	if b.Kind == BindParam {
		a.SetName(fmt.Sprintf("%s.addr", l.fn.Params[b.Param].Name()))
	} else {
		a.SetName(localName(b, l.names))
	}
	l.slots[b] = a
	return a
}

// localName keeps locals, temporaries ("t.N") and blocks ("bb.N") in
// disjoint parts of the function's namespace.
func localName(b Binding, names IdentNameTable) string {
	return fmt.Sprintf("%s.s%d", names.Name(b.Name), b.Scope)
}

func (l *llvmLowering) operandSlot(op Operand) *ir.InstAlloca {
	if op.Kind == OperandTemp {
		if a, ok := l.temps[op.Temp]; ok {
			return a
		}
		a := l.entry.NewAlloca(types.I32)
		a.SetName(fmt.Sprintf("t.%d", op.Temp))
		l.temps[op.Temp] = a
		return a
	}
	return l.slot(op.Binding)
}

func (l *llvmLowering) load(op Operand) value.Value {
	if op.Kind == OperandImm {
		return constant.NewInt(types.I32, int64(op.Imm))
	}
	return l.cur.NewLoad(types.I32, l.operandSlot(op))
}

func (l *llvmLowering) element(array Binding, index Operand) (value.Value, error) {
	a, ok := l.arrays[array]
	if !ok {
		return nil, fmt.Errorf("array %s used before its allocation", formatBinding(array, l.names))
	}
	zero := constant.NewInt(types.I32, 0)
	return l.cur.NewGetElementPtr(a.ElemType, a, zero, l.load(index)), nil
}

func (l *llvmLowering) lowerInstruction(i int, inst Instruction) error {
	switch inst := inst.(type) {
	case ArrayAlloc:
		if _, ok := l.arrays[inst.Array]; !ok {
			a := l.entry.NewAlloca(types.NewArray(uint64(inst.Size), types.I32))
			a.SetName(localName(inst.Array, l.names))
			l.arrays[inst.Array] = a
		}

	case ArrayWrite:
		ptr, err := l.element(inst.Array, inst.Index)
		if err != nil {
			return err
		}
		l.cur.NewStore(l.load(inst.Value), ptr)

	case Ifz:
		target, _ := JumpTarget(i, inst)
		isZero := l.cur.NewICmp(enum.IPredEQ, l.load(inst.Cond), constant.NewInt(types.I32, 0))
		l.cur.NewCondBr(isZero, l.blocks[target], l.blocks[i+1])

	case Goto:
		target, _ := JumpTarget(i, inst)
		l.cur.NewBr(l.blocks[target])

	case Return:
		l.cur.NewRet(l.load(inst.Value))

	case Push:
		l.pushed = append(l.pushed, l.load(inst.Value))

	case Assign:
		v, err := l.rvalue(inst.Src)
		if err != nil {
			return err
		}
		l.cur.NewStore(v, l.operandSlot(inst.Dst))

	default:
		return fmt.Errorf("unexpected instruction %T", inst)
	}
	return nil
}

func (l *llvmLowering) rvalue(src RValue) (value.Value, error) {
	switch src := src.(type) {
	case Copy:
		return l.load(src.Src), nil

	case Call:
		callee, ok := l.decls[src.Func]
		if !ok {
			return nil, fmt.Errorf("call to unknown function %s", l.names.Name(src.Func))
		}
		if src.ArgCount > len(l.pushed) {
			return nil, fmt.Errorf("call to %s needs %d pushed arguments, have %d",
				l.names.Name(src.Func), src.ArgCount, len(l.pushed))
		}
		// Arguments were pushed rightmost first.
		top := l.pushed[len(l.pushed)-src.ArgCount:]
		args := make([]value.Value, len(top))
		for i, v := range top {
			args[len(top)-1-i] = v
		}
		l.pushed = l.pushed[:len(l.pushed)-src.ArgCount]
		return l.cur.NewCall(callee, args...), nil

	case ArrayRead:
		ptr, err := l.element(src.Array, src.Index)
		if err != nil {
			return nil, err
		}
		return l.cur.NewLoad(types.I32, ptr), nil

	case Operation:
		x, y := l.load(src.Left), l.load(src.Right)
		switch src.Op {
		case OpAdd:
			return l.cur.NewAdd(x, y), nil
		case OpSub:
			return l.cur.NewSub(x, y), nil
		case OpMul:
			return l.cur.NewMul(x, y), nil
		case OpDiv:
			return l.cur.NewSDiv(x, y), nil
		case OpMod:
			return l.cur.NewSRem(x, y), nil
		case OpAnd:
			return l.cur.NewAnd(x, y), nil
		case OpOr:
			return l.cur.NewOr(x, y), nil
		case OpXor:
			return l.cur.NewXor(x, y), nil
		}
		pred, ok := comparePredicates[src.Op]
		if !ok {
			return nil, fmt.Errorf("unexpected operator %s", src.Op)
		}
		return l.cur.NewZExt(l.cur.NewICmp(pred, x, y), types.I32), nil
	}
	return nil, fmt.Errorf("unexpected rvalue %T", src)
}

var comparePredicates = map[BinaryOp]enum.IPred{
	OpLess:         enum.IPredSLT,
	OpLessEqual:    enum.IPredSLE,
	OpGreater:      enum.IPredSGT,
	OpGreaterEqual: enum.IPredSGE,
	OpEqual:        enum.IPredEQ,
	OpNotEqual:     enum.IPredNE,
}

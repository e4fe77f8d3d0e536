package main

import (
	"strings"
	"testing"

	"github.com/nalgeon/be"
)

func mustEmitLLVM(t *testing.T, src string) string {
	t.Helper()
	funcs, names := mustGenerate(t, src)
	ir, err := EmitLLVM(funcs, names)
	be.Err(t, err, nil)
	return ir
}

func TestLeaders(t *testing.T) {
	funcs, _ := mustGenerate(t, `
int main(int n) {
    while (n) {
        if (n) { break; }
        continue;
    }
    return 0;
}`)
	starts, err := leaders(funcs[0])
	be.Err(t, err, nil)
	be.Equal(t, starts, []int{0, 2, 4, 5, 6, 7, 9})
}

func TestLeadersRejectJumpsOutsideFunction(t *testing.T) {
	f := Function{Instructions: []Instruction{Ifz{Cond: ImmOperand(0), Offset: -1}}}
	_, err := leaders(f)
	be.Err(t, err, "jump at 0 lands outside the function (-1)")
}

func TestEmitLLVMReturnConstant(t *testing.T) {
	ir := mustEmitLLVM(t, "int main() { return 42; }")
	be.True(t, strings.Contains(ir, "define i32 @main()"))
	be.True(t, strings.Contains(ir, "bb.entry:"))
	be.True(t, strings.Contains(ir, "%t.0 = alloca i32"))
	be.True(t, strings.Contains(ir, "store i32 42, "))
	be.True(t, strings.Contains(ir, "bb.exit:"))
	be.True(t, strings.Contains(ir, "ret i32 0"))
	be.True(t, strings.Index(ir, "bb.entry:") < strings.Index(ir, "bb.0:"))
	be.True(t, strings.Index(ir, "bb.0:") < strings.Index(ir, "bb.exit:"))
}

func TestEmitLLVMNamesLocalsByScope(t *testing.T) {
	ir := mustEmitLLVM(t, "int main(int x) { int y = x; if (y) { int y = 2; x = y; } return x; }")
	be.True(t, strings.Contains(ir, "%x.addr = alloca i32"))
	be.True(t, strings.Contains(ir, "%y.s0 = alloca i32"))
	be.True(t, strings.Contains(ir, "%y.s1 = alloca i32"))
	be.True(t, strings.Contains(ir, "store i32 %x, "))
}

func TestEmitLLVMEmptyFunction(t *testing.T) {
	ir, err := EmitLLVM([]Function{{ID: 0}}, IdentNameTable{"f"})
	be.Err(t, err, nil)
	be.True(t, strings.Contains(ir, "define i32 @f()"))
	be.True(t, strings.Contains(ir, "br label %bb.exit"))
	be.True(t, !strings.Contains(ir, "bb.0:"))
}

func TestEmitLLVMErrors(t *testing.T) {
	names := IdentNameTable{"main", "a"}
	arr := LocalBinding(1, 0)
	tests := []struct {
		name     string
		inst     []Instruction
		expected string
	}{
		{
			"jump outside",
			[]Instruction{Goto{Target: Resolved(3)}},
			"llvm: main: jump at 0 lands outside the function (3)",
		},
		{
			"array before allocation",
			[]Instruction{ArrayWrite{Array: arr, Index: ImmOperand(0), Value: ImmOperand(1)}},
			"llvm: main: 0: array a@0 used before its allocation",
		},
		{
			"unknown callee",
			[]Instruction{Assign{Dst: TempOperand(0), Src: Call{Func: 1}}},
			"llvm: main: 0: call to unknown function a",
		},
		{
			"missing pushes",
			[]Instruction{Push{Value: ImmOperand(1)}, Assign{Dst: TempOperand(0), Src: Call{Func: 0, ArgCount: 2}}},
			"llvm: main: 1: call to main needs 2 pushed arguments, have 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ir, err := EmitLLVM([]Function{{ID: 0, Instructions: tt.inst}}, names)
			be.Equal(t, ir, "")
			be.Err(t, err, tt.expected)
		})
	}
}

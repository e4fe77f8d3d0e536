package main

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/nalgeon/be"
)

const fibSource = `
int add(int a, int b) {
    int res;
    res = a + b;
    return res;
}
int fibb(int n) {
    if (n < 2) {
        return n;
    }
    int n_minus_1, n_minus_2;
    n = n - 1;
    n_minus_1 = fibb(n);
    n = n - 1;
    n_minus_2 = fibb(n);
    return add(n_minus_1, n_minus_2);
}
int main() {
    return fibb(10);
}
`

func TestParseTarget(t *testing.T) {
	target, err := ParseTarget("x86")
	be.Err(t, err, nil)
	be.Equal(t, target, TargetX86)

	target, err = ParseTarget("llvm")
	be.Err(t, err, nil)
	be.Equal(t, target, TargetLLVM)

	_, err = ParseTarget("arm")
	be.Err(t, err, `unknown target "arm" (want x86 or llvm)`)
}

func TestCompileTargets(t *testing.T) {
	tests := []struct {
		target   Target
		contains []string
	}{
		{"", []string{".intel_syntax", ".global fibb", "call add"}},
		{TargetX86, []string{".global main", "call fibb", "add %rsp, 8"}},
		{TargetLLVM, []string{"define i32 @add(", "define i32 @fibb(", "call i32 @fibb(i32 10)"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.target), func(t *testing.T) {
			c, err := Compile(context.Background(), fibSource, CompileOptions{Target: tt.target})
			be.Err(t, err, nil)
			be.Equal(t, len(c.Funcs), 3)
			for _, s := range tt.contains {
				be.True(t, strings.Contains(c.Output, s))
			}
		})
	}
}

func TestCompileUnknownTarget(t *testing.T) {
	c, err := Compile(context.Background(), fibSource, CompileOptions{Target: "arm"})
	be.Err(t, err, `unknown target "arm"`)
	be.True(t, c.Funcs != nil)
	be.Equal(t, c.Output, "")
}

func TestCompileKeepsEarlierStages(t *testing.T) {
	c, err := Compile(context.Background(), "int main() { return x; }", CompileOptions{})
	be.True(t, strings.HasPrefix(err.Error(), "analyze: "))
	var semErr *SemanticError
	be.True(t, errors.As(err, &semErr))
	be.True(t, c.Lexed != nil)
	be.True(t, c.Program != nil)
	be.Equal(t, c.Names, IdentNameTable{"main", "x"})
	be.True(t, c.Funcs == nil)

	c, err = Compile(context.Background(), "int main() { return 1 }", CompileOptions{})
	be.True(t, strings.HasPrefix(err.Error(), "parse: "))
	be.True(t, c.Lexed != nil)
	be.True(t, c.Program == nil)

	c, err = Compile(context.Background(), "#", CompileOptions{})
	be.Err(t, err, "lex: line 1: unexpected character '#'")
	be.True(t, c.Lexed == nil)
}

func TestLowerWorkersAgree(t *testing.T) {
	sequential, err := Lower(context.Background(), fibSource, CompileOptions{})
	be.Err(t, err, nil)
	concurrent, err := Lower(context.Background(), fibSource, CompileOptions{Workers: 4})
	be.Err(t, err, nil)
	be.Equal(t, concurrent.Funcs, sequential.Funcs)
}

func TestLowerCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c, err := Lower(ctx, fibSource, CompileOptions{Workers: 2})
	be.Err(t, err, context.Canceled)
	be.True(t, strings.HasPrefix(err.Error(), "tac: "))
	be.True(t, c.Program != nil)
}

func TestCompileLogsEveryStage(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	_, err := Compile(context.Background(), fibSource, CompileOptions{Logger: logger, Target: TargetLLVM})
	be.Err(t, err, nil)

	logged := buf.String()
	for _, want := range []string{
		"msg=lexed", "identifiers=9",
		"msg=parsed", "functions=3",
		"msg=analyzed",
		"msg=generated",
		"msg=emitted", "target=llvm",
	} {
		be.True(t, strings.Contains(logged, want))
	}
}

func TestCheckStopsBeforeGeneration(t *testing.T) {
	c, err := Check(fibSource, CompileOptions{})
	be.Err(t, err, nil)
	be.Equal(t, len(c.Program.Funcs), 3)
	be.True(t, c.Funcs == nil)
	be.Equal(t, c.Output, "")
}

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"
)

// Target selects the backend Compile emits for.
type Target string

const (
	TargetX86  Target = "x86"
	TargetLLVM Target = "llvm"
)

func ParseTarget(s string) (Target, error) {
	switch t := Target(s); t {
	case TargetX86, TargetLLVM:
		return t, nil
	}
	return "", fmt.Errorf("unknown target %q (want x86 or llvm)", s)
}

// CompileOptions configures the pipeline. The zero value compiles to x86
// sequentially and logs nothing.
type CompileOptions struct {
	// Logger receives one record per pipeline stage. nil disables logging.
	Logger *slog.Logger
	// Workers bounds concurrent TAC generation. Values below 2 generate
	// functions one after another.
	Workers int
	Target  Target
	// Annotate interleaves the TAC listing with the emitted assembly.
	Annotate bool
}

func (o CompileOptions) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Compilation collects what each stage produced. After a failed stage the
// fields of earlier stages remain set so errors can be described.
type Compilation struct {
	Lexed   *LexerOutput
	Program *Program
	Names   IdentNameTable
	Funcs   []Function
	Output  string
}

// Check lexes, parses and analyzes src.
func Check(src string, opts CompileOptions) (*Compilation, error) {
	log := opts.logger()
	c := &Compilation{}

	start := time.Now()
	lexed, err := Tokenize(src)
	if err != nil {
		return c, fmt.Errorf("lex: %w", err)
	}
	c.Lexed = lexed
	log.Debug("lexed",
		"symbols", len(lexed.Symbols),
		"identifiers", lexed.Table.Identifiers.Len(),
		"consts", lexed.Table.Consts.Len(),
		"elapsed", time.Since(start))

	start = time.Now()
	prog, names, err := Parse(lexed)
	if err != nil {
		return c, fmt.Errorf("parse: %w", err)
	}
	c.Program, c.Names = prog, names
	log.Debug("parsed", "functions", len(prog.Funcs), "elapsed", time.Since(start))

	start = time.Now()
	if err := Analyze(prog); err != nil {
		return c, fmt.Errorf("analyze: %w", err)
	}
	log.Debug("analyzed", "elapsed", time.Since(start))
	return c, nil
}

// Lower runs Check and generates TAC.
func Lower(ctx context.Context, src string, opts CompileOptions) (*Compilation, error) {
	c, err := Check(src, opts)
	if err != nil {
		return c, err
	}

	start := time.Now()
	if opts.Workers > 1 {
		c.Funcs, err = GenerateConcurrent(ctx, c.Program, len(c.Names), opts.Workers)
		if err != nil {
			return c, fmt.Errorf("tac: %w", err)
		}
	} else {
		c.Funcs = Generate(c.Program, len(c.Names))
	}
	instructions := 0
	for _, f := range c.Funcs {
		instructions += len(f.Instructions)
	}
	opts.logger().Debug("generated",
		"functions", len(c.Funcs),
		"instructions", instructions,
		"workers", opts.Workers,
		"elapsed", time.Since(start))
	return c, nil
}

// Compile runs the whole pipeline and leaves the emitted text in Output.
func Compile(ctx context.Context, src string, opts CompileOptions) (*Compilation, error) {
	c, err := Lower(ctx, src, opts)
	if err != nil {
		return c, err
	}

	start := time.Now()
	switch opts.Target {
	case TargetX86, "":
		c.Output = EmitX86(c.Funcs, c.Names, X86Options{Annotate: opts.Annotate})
	case TargetLLVM:
		c.Output, err = EmitLLVM(c.Funcs, c.Names)
		if err != nil {
			return c, err
		}
	default:
		return c, fmt.Errorf("unknown target %q", opts.Target)
	}
	opts.logger().Debug("emitted", "target", opts.Target, "bytes", len(c.Output), "elapsed", time.Since(start))
	return c, nil
}

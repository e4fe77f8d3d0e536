package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

func showUsage() {
	fmt.Fprintf(os.Stderr, `minic - A compiler for a small C subset

Usage:
    minic <command> [arguments]

Commands:
    build <file>    Compile a .c file to x86 assembly or LLVM IR
    tac <file>      Print the three-address code of a .c file
    check <file>    Parse and analyze a .c file
    tokens <file>   Print the token stream of a .c file
    help            Show this help message

Examples:
    minic build -o fib.s fib.c
    minic build -target llvm fib.c
    minic tac -j 4 fib.c
    minic check -v fib.c

Use "minic <command> -h" for more information about a command.
`)
}

// newLogger returns the -v logger, or nil when verbose output is off.
func newLogger(verbose bool) *slog.Logger {
	if !verbose {
		return nil
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func readSource(filename string) string {
	source, err := os.ReadFile(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading file %s: %v\n", filename, err)
		os.Exit(1)
	}
	return string(source)
}

// fail prints err as "file:line: error: message" and exits.
func fail(filename string, c *Compilation, err error) {
	msg := Describe(err, c.Names, c.Lexed)
	if strings.HasPrefix(msg, "error:") {
		fmt.Fprintf(os.Stderr, "%s: %s\n", filename, msg)
	} else {
		fmt.Fprintf(os.Stderr, "%s:%s\n", filename, msg)
	}
	os.Exit(1)
}

// fileArg parses args with fs and returns the single file operand.
func fileArg(fs *flag.FlagSet, args []string) string {
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Error: expected exactly one file argument\n")
		fs.Usage()
		os.Exit(1)
	}
	return fs.Arg(0)
}

func buildCommand(args []string) {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	output := fs.String("o", "", "Output file path (default: <filename>.s or <filename>.ll)")
	target := fs.String("target", string(TargetX86), "Backend: x86 or llvm")
	debug := fs.Bool("debug", false, "Annotate assembly with the TAC it was lowered from")
	workers := fs.Int("j", 1, "Number of functions to lower concurrently")
	verbose := fs.Bool("v", false, "Show verbose compilation details")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: minic build [-o output] [-target x86|llvm] [-debug] [-j N] [-v] <file>\n")
		fmt.Fprintf(os.Stderr, "Compile a .c file to x86 assembly or LLVM IR\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		fs.PrintDefaults()
	}
	filename := fileArg(fs, args)

	tgt, err := ParseTarget(*target)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	outputFile := *output
	if outputFile == "" {
		ext := ".s"
		if tgt == TargetLLVM {
			ext = ".ll"
		}
		outputFile = strings.TrimSuffix(filename, filepath.Ext(filename)) + ext
	}

	c, err := Compile(context.Background(), readSource(filename), CompileOptions{
		Logger:   newLogger(*verbose),
		Workers:  *workers,
		Target:   tgt,
		Annotate: *debug,
	})
	if err != nil {
		fail(filename, c, err)
	}

	if err := os.WriteFile(outputFile, []byte(c.Output), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", outputFile, err)
		os.Exit(1)
	}
	fmt.Printf("Generated %s (%d bytes)\n", outputFile, len(c.Output))
}

func tacCommand(args []string) {
	fs := flag.NewFlagSet("tac", flag.ExitOnError)
	workers := fs.Int("j", 1, "Number of functions to lower concurrently")
	verbose := fs.Bool("v", false, "Show verbose compilation details")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: minic tac [-j N] [-v] <file>\n")
		fmt.Fprintf(os.Stderr, "Print the three-address code of a .c file\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		fs.PrintDefaults()
	}
	filename := fileArg(fs, args)

	c, err := Lower(context.Background(), readSource(filename), CompileOptions{
		Logger:  newLogger(*verbose),
		Workers: *workers,
	})
	if err != nil {
		fail(filename, c, err)
	}
	for i, f := range c.Funcs {
		if i > 0 {
			fmt.Println()
		}
		fmt.Print(f.Format(c.Names))
	}
}

func checkCommand(args []string) {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	verbose := fs.Bool("v", false, "Show verbose checking details")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: minic check [-v] <file>\n")
		fmt.Fprintf(os.Stderr, "Parse and analyze a .c file\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		fs.PrintDefaults()
	}
	filename := fileArg(fs, args)

	c, err := Check(readSource(filename), CompileOptions{Logger: newLogger(*verbose)})
	if err != nil {
		fail(filename, c, err)
	}

	fmt.Printf("%s: no errors found\n", filename)
	if *verbose {
		fmt.Printf("AST: %s\n", ToSExpr(c.Program, c.Names))
	}
}

func tokensCommand(args []string) {
	fs := flag.NewFlagSet("tokens", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: minic tokens <file>\n")
		fmt.Fprintf(os.Stderr, "Print the token stream of a .c file\n")
	}
	filename := fileArg(fs, args)

	lexed, err := Tokenize(readSource(filename))
	if err != nil {
		fail(filename, &Compilation{}, err)
	}
	for _, sym := range lexed.Symbols {
		if text := lexed.Text(sym); text != "" && text != string(sym.Token.Type) {
			fmt.Printf("%4d  %-8s %s\n", sym.Line, sym.Token.Type, text)
		} else {
			fmt.Printf("%4d  %s\n", sym.Line, sym.Token.Type)
		}
	}
}

func main() {
	if len(os.Args) < 2 {
		showUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "build":
		buildCommand(args)
	case "tac":
		tacCommand(args)
	case "check":
		checkCommand(args)
	case "tokens":
		tokensCommand(args)
	case "help", "-h", "--help":
		showUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		showUsage()
		os.Exit(1)
	}
}

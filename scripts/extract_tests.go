package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"github.com/strager/minic/sexy"
)

// Program is one c-program fence from the Markdown corpus.
type Program struct {
	Name       string
	Input      string
	SourceFile string
	// Error is the expected compile-error text, empty for valid programs.
	Error string
}

type Extractor struct {
	programs []Program
	seen     map[string]int // file name -> times used
}

func NewExtractor() *Extractor {
	return &Extractor{seen: make(map[string]int)}
}

func (e *Extractor) extractFromMarkdown(pattern string) error {
	files, err := filepath.Glob(pattern)
	if err != nil {
		return err
	}
	sort.Strings(files)

	for _, file := range files {
		if err := e.visitFile(file); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to process %s: %v\n", file, err)
		}
	}
	return nil
}

func (e *Extractor) visitFile(filename string) error {
	content, err := os.ReadFile(filename)
	if err != nil {
		return err
	}
	cases, err := sexy.ExtractTestCases(string(content))
	if err != nil {
		return err
	}

	for _, tc := range cases {
		if tc.InputType != sexy.InputTypeCProgram {
			continue
		}
		p := Program{
			Name:       tc.Name,
			Input:      tc.Input,
			SourceFile: filepath.Base(filename),
		}
		for _, a := range tc.Assertions {
			if a.Type == sexy.AssertionTypeCompileError {
				p.Error = a.Content
			}
		}
		e.programs = append(e.programs, p)
	}
	return nil
}

// fileName derives a unique .c file name from the corpus file and test name,
// e.g. "tac_test.md" + "empty infinite loop" -> "tac_empty_infinite_loop.c".
func (e *Extractor) fileName(p Program) string {
	prefix := strings.TrimSuffix(strings.TrimSuffix(p.SourceFile, ".md"), "_test")
	var sb strings.Builder
	sb.WriteString(prefix + "_")
	underscore := false
	for _, r := range strings.ToLower(p.Name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(r)
			underscore = false
		} else if !underscore {
			sb.WriteRune('_')
			underscore = true
		}
	}
	base := strings.TrimRight(sb.String(), "_")

	e.seen[base]++
	if n := e.seen[base]; n > 1 {
		base = fmt.Sprintf("%s_%d", base, n)
	}
	return base + ".c"
}

// writePrograms writes every program to dir. Programs that must fail to
// compile carry the expected diagnostic in a leading comment.
func (e *Extractor) writePrograms(dir string, includeErrors bool) (int, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, err
	}
	written := 0
	for _, p := range e.programs {
		if p.Error != "" && !includeErrors {
			continue
		}
		var sb strings.Builder
		fmt.Fprintf(&sb, "// %s: %s\n", p.SourceFile, p.Name)
		if p.Error != "" {
			for _, line := range strings.Split(p.Error, "\n") {
				fmt.Fprintf(&sb, "// expect: %s\n", line)
			}
		}
		sb.WriteString(p.Input)
		if !strings.HasSuffix(p.Input, "\n") {
			sb.WriteString("\n")
		}

		path := filepath.Join(dir, e.fileName(p))
		if err := os.WriteFile(path, []byte(sb.String()), 0644); err != nil {
			return written, err
		}
		written++
	}
	return written, nil
}

func main() {
	pattern := flag.String("tests", "test/*_test.md", "Glob of Markdown test files to read")
	output := flag.String("o", "", "Directory to write .c files to (default: list programs only)")
	includeErrors := flag.Bool("errors", false, "Also write programs that are expected to fail")
	flag.Parse()

	extractor := NewExtractor()
	if err := extractor.extractFromMarkdown(*pattern); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *output == "" {
		for _, p := range extractor.programs {
			status := "ok"
			if p.Error != "" {
				status = "error"
			}
			fmt.Printf("%-16s %-6s %s\n", p.SourceFile, status, p.Name)
		}
		return
	}

	n, err := extractor.writePrograms(*output, *includeErrors)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error writing programs: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %d programs to %s\n", n, *output)
}

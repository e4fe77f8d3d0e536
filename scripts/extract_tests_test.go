package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nalgeon/be"
)

const corpus = "# Loops\n\n" +
	"## Test: empty infinite loop\n" +
	"```c-program\nint main() { while (1) {} return 0; }\n```\n" +
	"```tac\n(program ...)\n```\n\n" +
	"## Test: break outside loop\n" +
	"```c-program\nint main() { break; }\n```\n" +
	"```compile-error\n1: error: 'break' statement not in loop\n```\n"

func writeCorpus(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "loop_test.md")
	be.Err(t, os.WriteFile(path, []byte(corpus), 0644), nil)
	return dir
}

func TestExtractFromMarkdown(t *testing.T) {
	dir := writeCorpus(t)
	e := NewExtractor()
	be.Err(t, e.extractFromMarkdown(filepath.Join(dir, "*_test.md")), nil)

	be.Equal(t, len(e.programs), 2)
	be.Equal(t, e.programs[0], Program{
		Name:       "empty infinite loop",
		Input:      "int main() { while (1) {} return 0; }",
		SourceFile: "loop_test.md",
	})
	be.Equal(t, e.programs[1].Error, "1: error: 'break' statement not in loop")
}

func TestFileName(t *testing.T) {
	e := NewExtractor()
	p := Program{Name: "calls push right-to-left (twice)", SourceFile: "x86_test.md"}
	be.Equal(t, e.fileName(p), "x86_calls_push_right_to_left_twice.c")
	be.Equal(t, e.fileName(p), "x86_calls_push_right_to_left_twice_2.c")
}

func TestWritePrograms(t *testing.T) {
	e := NewExtractor()
	be.Err(t, e.extractFromMarkdown(filepath.Join(writeCorpus(t), "*_test.md")), nil)

	out := filepath.Join(t.TempDir(), "c")
	n, err := e.writePrograms(out, false)
	be.Err(t, err, nil)
	be.Equal(t, n, 1)

	content, err := os.ReadFile(filepath.Join(out, "loop_empty_infinite_loop.c"))
	be.Err(t, err, nil)
	be.Equal(t, string(content), "// loop_test.md: empty infinite loop\nint main() { while (1) {} return 0; }\n")

	n, err = e.writePrograms(out, true)
	be.Err(t, err, nil)
	be.Equal(t, n, 2)
	content, err = os.ReadFile(filepath.Join(out, "loop_break_outside_loop.c"))
	be.Err(t, err, nil)
	be.Equal(t, string(content), "// loop_test.md: break outside loop\n"+
		"// expect: 1: error: 'break' statement not in loop\n"+
		"int main() { break; }\n")
}

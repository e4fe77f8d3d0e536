package sexy

import (
	"strings"
	"testing"

	"github.com/nalgeon/be"
)

// fence wraps body in a fenced code block of the given language.
func fence(language, body string) string {
	return "```" + language + "\n" + body + "\n```\n"
}

func TestExtractTestCases_BasicTest(t *testing.T) {
	markdown := "# Returns\n\n## Test: return constant\n" +
		fence("c-program", "int main() { return 1; }") +
		fence("ast", `(program (func "main" [] (block (return 1))))`) +
		"\n## Test: return parameter\n" +
		fence("c-program", "int main(int n) { return n; }") +
		fence("ast", `(program (func "main" ["n"] ...))`)

	testCases, err := ExtractTestCases(markdown)
	be.Err(t, err, nil)
	be.Equal(t, len(testCases), 2)

	tc1 := testCases[0]
	be.Equal(t, tc1.Name, "return constant")
	be.Equal(t, tc1.Input, "int main() { return 1; }")
	be.Equal(t, tc1.InputType, InputTypeCProgram)
	be.Equal(t, len(tc1.Assertions), 1)
	be.Equal(t, tc1.Assertions[0].Type, AssertionTypeAST)
	be.Equal(t, tc1.Assertions[0].ParsedSexy.String(), `(program (func "main" [] (block (return 1))))`)

	tc2 := testCases[1]
	be.Equal(t, tc2.Name, "return parameter")
	be.Equal(t, tc2.Input, "int main(int n) { return n; }")
	be.Equal(t, tc2.Assertions[0].Content, `(program (func "main" ["n"] ...))`)
}

func TestExtractTestCases_DifferentAssertionTypes(t *testing.T) {
	markdown := "## Test: every assertion\n" +
		fence("c-program", "int main() {\n    return 1;\n}") +
		fence("ast", `(program ...)`) +
		fence("tac", `(program (func "main" (assign (temp 0) 1) (return (temp 0))))`) +
		fence("asm", "main:\n  mov %eax, DWORD PTR [%rbp - 4]\n\n") +
		fence("llvm", "define i32 @main()") +
		fence("compile-error", "3: error: 'break' statement not in loop")

	testCases, err := ExtractTestCases(markdown)
	be.Err(t, err, nil)
	be.Equal(t, len(testCases), 1)

	tc := testCases[0]
	be.Equal(t, tc.Input, "int main() {\n    return 1;\n}")
	be.Equal(t, len(tc.Assertions), 5)

	types := make([]AssertionType, len(tc.Assertions))
	for i, a := range tc.Assertions {
		types[i] = a.Type
	}
	be.Equal(t, types, []AssertionType{
		AssertionTypeAST, AssertionTypeTAC, AssertionTypeASM, AssertionTypeLLVM, AssertionTypeCompileError,
	})

	// Only ast and tac fences hold Sexy.
	be.True(t, tc.Assertions[0].ParsedSexy != nil)
	be.True(t, tc.Assertions[1].ParsedSexy != nil)
	be.True(t, tc.Assertions[2].ParsedSexy == nil)
	be.True(t, tc.Assertions[3].ParsedSexy == nil)
	be.True(t, tc.Assertions[4].ParsedSexy == nil)

	be.Equal(t, tc.Assertions[2].Lines(), []string{"main:", "mov %eax, DWORD PTR [%rbp - 4]"})
	be.Equal(t, tc.Assertions[4].Content, "3: error: 'break' statement not in loop")
}

func TestExtractTestCases_EmptyFile(t *testing.T) {
	testCases, err := ExtractTestCases("")
	be.Err(t, err, nil)
	be.Equal(t, len(testCases), 0)
}

func TestExtractTestCases_NoTestCases(t *testing.T) {
	markdown := `# Some document

This is just regular markdown content.

## Regular heading

No test cases here.`

	testCases, err := ExtractTestCases(markdown)
	be.Err(t, err, nil)
	be.Equal(t, len(testCases), 0)
}

func TestExtractTestCases_InvalidSexyAssertion(t *testing.T) {
	markdown := "## Test: invalid sexy\n" +
		fence("c-program", "int main() { return 0; }") +
		fence("tac", "(unclosed list")

	_, err := ExtractTestCases(markdown)
	be.True(t, err != nil)
	be.True(t, strings.Contains(err.Error(), "failed to parse Sexy assertion in test 'invalid sexy'"))
	be.True(t, strings.Contains(err.Error(), "line"))
}

func TestExtractTestCases_FenceOutsideTestCase(t *testing.T) {
	for _, language := range []string{"c-program", "ast", "tac", "asm", "llvm", "compile-error"} {
		t.Run(language, func(t *testing.T) {
			markdown := "# Document\n\n" + fence(language, "x")
			_, err := ExtractTestCases(markdown)
			be.True(t, err != nil)
			be.Equal(t, err.Error(), "error walking markdown AST: line 4: "+language+" fence found outside of test case")
		})
	}
}

func TestExtractTestCases_UnknownFences(t *testing.T) {
	tests := []struct {
		name     string
		markdown string
		expected string
	}{
		{
			"outside test",
			"# Doc\n\n" + fence("go", "func main() {}"),
			"unknown fence language 'go' found outside of test case",
		},
		{
			"inside test",
			"## Test: with unknown fence\n" + fence("python", `print("hello")`) +
				fence("c-program", "int main() { return 0; }") + fence("ast", "(program ...)"),
			"unknown fence language 'python' in test 'with unknown fence'",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := ExtractTestCases(test.markdown)
			be.True(t, err != nil)
			be.True(t, strings.Contains(err.Error(), test.expected))
		})
	}
}

func TestExtractTestCases_InvalidTests(t *testing.T) {
	tests := []struct {
		name     string
		markdown string
		expected string
	}{
		{
			"missing input",
			"## Test: no input\n" + fence("ast", "(program)"),
			"test 'no input' has no input fence",
		},
		{
			"missing assertion",
			"## Test: no assertions\n" + fence("c-program", "int main() { return 0; }"),
			"test 'no assertions' has no assertion fences",
		},
		{
			"multiple inputs",
			"## Test: multiple inputs\n" + fence("c-program", "int f() { return 0; }") +
				fence("c-program", "int g() { return 0; }") + fence("ast", "(program ...)"),
			"multiple input fences found in test 'multiple inputs'",
		},
		{
			"error in second test",
			"## Test: first\n" + fence("c-program", "int main() { return 0; }") + fence("ast", "(program ...)") +
				"\n## Test: second\n" + fence("ast", "(program)"),
			"test 'second' has no input fence",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := ExtractTestCases(test.markdown)
			be.True(t, err != nil)
			be.True(t, strings.Contains(err.Error(), test.expected))
		})
	}
}

func TestExtractTestCases_AllowFencesWithoutLanguage(t *testing.T) {
	markdown := "# Document with generic code block\n\n" +
		fence("", "some code without language") +
		"\n## Test: valid test\n" +
		fence("c-program", "int main() { return 0; }") +
		fence("ast", "(program ...)") +
		"\n" + fence("", "more code without language in test")

	testCases, err := ExtractTestCases(markdown)
	be.Err(t, err, nil)
	be.Equal(t, len(testCases), 1)
	be.Equal(t, testCases[0].Name, "valid test")
	be.Equal(t, len(testCases[0].Assertions), 1)
}

func TestExtractTestCases_MultilineSexy(t *testing.T) {
	markdown := "## Test: multiline\n" +
		fence("c-program", "int main(int n) { int x = n + 1; return x; }") +
		fence("ast", `(program
 (func "main" ["n"]
  (block
   (decl (var "x" (binary "+" (ident "n") 1)))
   (return (ident "x")))))`)

	testCases, err := ExtractTestCases(markdown)
	be.Err(t, err, nil)
	be.Equal(t, len(testCases), 1)

	program := testCases[0].Assertions[0].ParsedSexy
	be.Equal(t, program.Type, NodeList)
	be.Equal(t, len(program.Items), 2)
	be.Equal(t, program.Items[0].Text, "program")

	fn := program.Items[1]
	be.Equal(t, fn.Items[1].Type, NodeString)
	be.Equal(t, fn.Items[1].Text, "main")
	be.Equal(t, fn.Items[2].Type, NodeArray)
	be.Equal(t, fn.Items[3].Items[0].Text, "block")
}

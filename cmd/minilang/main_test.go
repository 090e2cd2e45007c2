package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/peterh/liner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thomasrohde/minilang/pkg/config"
	"github.com/thomasrohde/minilang/pkg/diagnostics"
)

type cliResult struct {
	stdout string
	stderr string
	code   int
}

// runCLIIn executes the root command with dir as the config directory and an
// empty home directory.
func runCLIIn(t *testing.T, dir, stdin string, args ...string) cliResult {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)

	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append(args, "--dir", dir))

	err := root.Execute()
	return cliResult{stdout: out.String(), stderr: errOut.String(), code: exitCode(err)}
}

func runCLI(t *testing.T, stdin string, args ...string) cliResult {
	t.Helper()
	return runCLIIn(t, t.TempDir(), stdin, args...)
}

func writeProgram(t *testing.T, source string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prog.mini")
	require.NoError(t, os.WriteFile(path, []byte(source), 0o644))
	return path
}

// ============================================================
// run
// ============================================================

func TestRunFromStdin(t *testing.T) {
	res := runCLI(t, "x = 3 + 4 * 2", "run")
	assert.Equal(t, 0, res.code, res.stderr)
	assert.Equal(t, "Variables:\nx = 11\n", res.stdout)
	assert.Empty(t, res.stderr)

	res = runCLI(t, "x = (3 + 4) * 2", "run", "-")
	assert.Equal(t, "Variables:\nx = 14\n", res.stdout)
}

func TestRunSortsVariables(t *testing.T) {
	res := runCLI(t, "zeta = 1 alpha = 2 mid = 3", "run")
	assert.Equal(t, 0, res.code)
	assert.Equal(t, "Variables:\nalpha = 2\nmid = 3\nzeta = 1\n", res.stdout)
}

func TestRunEmptyProgram(t *testing.T) {
	res := runCLI(t, "", "run")
	assert.Equal(t, 0, res.code)
	assert.Equal(t, "Variables:\n", res.stdout)
}

func TestRunFile(t *testing.T) {
	path := writeProgram(t, "x = 10 / 3\n")
	res := runCLI(t, "", "run", path)
	assert.Equal(t, 0, res.code)
	assert.Equal(t, "Variables:\nx = 3\n", res.stdout)
}

func TestRunJSON(t *testing.T) {
	res := runCLI(t, "b = 2 a = 1", "run", "--json")
	assert.Equal(t, 0, res.code)
	assert.Equal(t, "{\"a\":1,\"b\":2}\n", res.stdout)
}

func TestRunFailures(t *testing.T) {
	tests := []struct {
		name     string
		source   string
		args     []string
		code     int
		diagCode string
		location string
	}{
		{"undefined variable", "y = z", nil, 4, diagnostics.EUndefinedVar, "<stdin>:1:5"},
		{"invalid character", "x = 5 @ 2", nil, 2, diagnostics.EInvalidChar, "<stdin>:1:7"},
		{"syntax error", "x = (1", nil, 2, diagnostics.EUnexpectedToken, "<stdin>:1:7"},
		{"division by zero", "x = 1 / 0", nil, 4, diagnostics.EDivZero, "<stdin>:1:7"},
		{"unbound parameters", "function f(a, b) a + b", nil, 4, diagnostics.EUndefinedVar, "<stdin>:1:18"},
		{"divergent while", "while (1) end", []string{"--max-iterations", "50"}, 4, diagnostics.EBudget, "<stdin>:1:1"},
		{"block syntax error", "x = 1 y = (", []string{"--semantics", "block"}, 2, diagnostics.EUnexpectedToken, "<stdin>:1:12"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := runCLI(t, tt.source, append([]string{"run"}, tt.args...)...)
			assert.Equal(t, tt.code, res.code)
			assert.Empty(t, res.stdout, "no variables are printed on failure")
			assert.Contains(t, res.stderr, "error["+tt.diagCode+"]")
			assert.Contains(t, res.stderr, "--> "+tt.location)
		})
	}
}

func TestRunJSONDiagnostic(t *testing.T) {
	res := runCLI(t, "y = z", "run", "--json")
	assert.Equal(t, 4, res.code)

	var d diagnostics.Diagnostic
	require.NoError(t, json.Unmarshal([]byte(res.stderr), &d))
	assert.Equal(t, diagnostics.EUndefinedVar, d.Code)
	require.NotNil(t, d.Span)
	assert.Equal(t, 5, d.Span.StartCol)

	res = runCLI(t, "y = z", "run", "--json", "--pretty")
	assert.Contains(t, res.stderr, "error[E_UNDEFINED_VAR]")
}

func TestRunMissingFile(t *testing.T) {
	res := runCLI(t, "", "run", filepath.Join(t.TempDir(), "missing.mini"))
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "error[E_IO]")
}

func TestRunSemantics(t *testing.T) {
	const loop = "i = 0 s = 0 while (5 - i) i = i + 1 s = s + i end"

	res := runCLI(t, loop, "run", "--semantics", "block")
	assert.Equal(t, 0, res.code, res.stderr)
	assert.Equal(t, "Variables:\ni = 5\ns = 15\n", res.stdout)

	res = runCLI(t, "x = 0 while (x) x = 5 end", "run")
	assert.Equal(t, "Variables:\nx = 0\n", res.stdout)

	res = runCLI(t, "x = 1", "run", "--semantics", "lazy")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "error[E_CONFIG]")
}

func TestRunUsesProjectConfig(t *testing.T) {
	dir := t.TempDir()
	cfg := "semantics: block\nbudget:\n  maxIterations: 3\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.ProjectFile), []byte(cfg), 0o644))

	res := runCLIIn(t, dir, "x = 0 while (1) x = x + 1 end", "run")
	assert.Equal(t, 4, res.code)
	assert.Contains(t, res.stderr, "iteration budget exceeded (max 3)")

	// flags beat the file
	res = runCLIIn(t, dir, "i = 2 while (i) i = i - 1 end", "run", "--max-iterations", "0")
	assert.Equal(t, 0, res.code, res.stderr)
	assert.Equal(t, "Variables:\ni = 0\n", res.stdout)
}

func TestRunBrokenConfig(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.ProjectFile), []byte("semantics: [\n"), 0o644))

	res := runCLIIn(t, dir, "x = 1", "run")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "error[E_CONFIG]")
}

// ============================================================
// trace
// ============================================================

func TestRunTraceAndSummary(t *testing.T) {
	tracePath := filepath.Join(t.TempDir(), "run.jsonl")
	res := runCLI(t, "x = 1 y = x + 1 x = y", "run", "--trace", tracePath)
	require.Equal(t, 0, res.code, res.stderr)

	res = runCLI(t, "", "trace", tracePath, "--json")
	require.Equal(t, 0, res.code, res.stderr)

	var summary TraceSummary
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &summary))
	assert.Equal(t, "cli", summary.RunID)
	assert.Equal(t, 3, summary.Statements)
	assert.Equal(t, 3, summary.Assignments)
	assert.Equal(t, map[string]int{"x": 2, "y": 1}, summary.AssignsByName)
	assert.Equal(t, 8, summary.TotalEvents)

	res = runCLI(t, "", "trace", tracePath)
	assert.Contains(t, res.stdout, "Assignments: 3\n  x: 2\n  y: 1\n")
}

func TestTraceSummarySkipsInvalidLines(t *testing.T) {
	input := `{"ts":"2024-01-01T00:00:00Z","runId":"r","event":"run_start"}
not json
{"ts":"2024-01-01T00:00:00Z","runId":"r","event":"guard","name":"while","value":1}
{"ts":"2024-01-01T00:00:00Z","runId":"r","event":"loop_iter"}
{"ts":"2024-01-01T00:00:00.5Z","runId":"r","event":"run_end"}
`
	summary, err := computeTraceSummary(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 4, summary.TotalEvents)
	assert.Equal(t, 1, summary.Guards)
	assert.Equal(t, 1, summary.LoopIterations)
	assert.Equal(t, 500.0, summary.DurationMs)
}

// ============================================================
// check, fmt, config
// ============================================================

func TestCheck(t *testing.T) {
	res := runCLI(t, "", "check", writeProgram(t, "x = 1 y = x"))
	assert.Equal(t, 0, res.code)
	assert.Equal(t, "No errors found.\n", res.stdout)

	res = runCLI(t, "", "check", writeProgram(t, "function f(a, a) a"))
	assert.Equal(t, 2, res.code)
	assert.Contains(t, res.stderr, "error[E_DUP_PARAM]")
	assert.Contains(t, res.stderr, "error[E_UNBOUND_PARAM]")

	res = runCLI(t, "y = z", "check", "-", "--json")
	assert.Equal(t, 2, res.code)
	var diags []diagnostics.Diagnostic
	require.NoError(t, json.Unmarshal([]byte(res.stderr), &diags))
	require.Len(t, diags, 1)
	assert.Equal(t, diagnostics.EUndefinedVar, diags[0].Code)
}

func TestFmt(t *testing.T) {
	path := writeProgram(t, "x=(3+4)*2 while(x)x=x-1")

	res := runCLI(t, "", "fmt", path)
	assert.Equal(t, 0, res.code, res.stderr)
	assert.Equal(t, "x = (3 + 4) * 2\nwhile (x)\n  x = x - 1\nend\n", res.stdout)

	res = runCLI(t, "", "fmt", "--write", path)
	assert.Equal(t, 0, res.code, res.stderr)
	assert.Empty(t, res.stdout)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "x = (3 + 4) * 2\nwhile (x)\n  x = x - 1\nend\n", string(data))

	res = runCLI(t, "x = (", "fmt", "-")
	assert.Equal(t, 2, res.code)
	assert.Contains(t, res.stderr, "error[E_UNEXPECTED_TOKEN]")

	res = runCLI(t, "x = 1", "fmt", "-", "--write")
	assert.Equal(t, 1, res.code)
}

func TestConfigCommand(t *testing.T) {
	res := runCLI(t, "", "config")
	assert.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "# source: defaults\n")
	assert.Contains(t, res.stdout, "semantics: guard-only\n")

	res = runCLI(t, "", "config", "--semantics", "block", "--time-ms", "100")
	assert.Contains(t, res.stdout, "semantics: block\n")
	assert.Contains(t, res.stdout, "timeMs: 100\n")
}

// ============================================================
// repl
// ============================================================

type scripted struct {
	lines []string
	err   error
}

func (s *scripted) Prompt(string) (string, error) {
	if s.err != nil {
		err := s.err
		s.err = nil
		return "", err
	}
	if len(s.lines) == 0 {
		return "", io.EOF
	}
	line := s.lines[0]
	s.lines = s.lines[1:]
	return line, nil
}

func TestRepl(t *testing.T) {
	a := &app{cfg: config.Default()}
	p := &scripted{
		err:   liner.ErrPromptAborted,
		lines: []string{"x = 4", "", "y = x * x", "z = nope", ":bogus", ":vars", ":quit", "never = 1"},
	}
	var out, errOut bytes.Buffer
	var history []string

	code := a.repl(p, &out, &errOut, func(line string) { history = append(history, line) })
	assert.Equal(t, 0, code)
	assert.Contains(t, out.String(), "Variables:\nx = 4\ny = 16\n")
	assert.Contains(t, errOut.String(), "error[E_UNDEFINED_VAR]")
	assert.Contains(t, errOut.String(), "unknown command :bogus")
	assert.Equal(t, []string{"x = 4", "y = x * x", "z = nope"}, history)
	assert.Equal(t, []string{"never = 1"}, p.lines, ":quit stops reading")
}

func TestReplEndOfInput(t *testing.T) {
	a := &app{cfg: config.Default()}
	var out bytes.Buffer
	code := a.repl(&scripted{lines: []string{"a = 1"}}, &out, io.Discard, func(string) {})
	assert.Equal(t, 0, code)
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, exitCode(nil))
	assert.Equal(t, 4, exitCode(exitWith(4)))
	assert.Nil(t, exitWith(0))
	assert.Equal(t, 1, exitCode(errors.New("unknown flag: --nope")))
}

package validator_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thomasrohde/minilang/pkg/diagnostics"
	"github.com/thomasrohde/minilang/pkg/parser"
	"github.com/thomasrohde/minilang/pkg/validator"
)

// helper parses source and validates, returning diagnostics from validation only.
// It fails on parse errors so test cases focus on validator behavior.
func mustParseAndValidate(t *testing.T, source string) []diagnostics.Diagnostic {
	t.Helper()
	prog, parseErrs := parser.Parse(source, "test.mini")
	require.Empty(t, parseErrs, "unexpected parse error")
	return validator.Validate(prog)
}

func codes(diags []diagnostics.Diagnostic) []string {
	out := make([]string, len(diags))
	for i, d := range diags {
		out[i] = d.Code
	}
	return out
}

// ============================================================
// Valid programs
// ============================================================

func TestValidPrograms(t *testing.T) {
	tests := []struct {
		name   string
		source string
	}{
		{"empty", ""},
		{"arithmetic", "x = 3 + 4 * 2"},
		{"reads after write", "x = 1 y = x + 1"},
		{"loop counter", "i = 0 s = 0 while (5 - i) i = i + 1 s = s + i end"},
		{"function without params", "function seven() 3 + 4 y = seven"},
		{"function reads globals", "k = 2 function twice() k * 2"},
		{"nested bodies", "a = 1 if (a) while (a) a = a - 1 end else b = a end"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			diags := mustParseAndValidate(t, tt.source)
			assert.Empty(t, diags, "got codes %v", codes(diags))
		})
	}
}

// ============================================================
// Undefined variables
// ============================================================

func TestUndefinedVariable(t *testing.T) {
	diags := mustParseAndValidate(t, "y = z")
	require.Len(t, diags, 1)
	assert.Equal(t, diagnostics.EUndefinedVar, diags[0].Code)
	assert.Equal(t, "undefined variable 'z'", diags[0].Message)
	require.NotNil(t, diags[0].Span)
	assert.Equal(t, 5, diags[0].Span.StartCol)
	assert.NotEmpty(t, diags[0].Hint)
}

func TestReadBeforeWriteIsNotReported(t *testing.T) {
	// one flat environment: a later write anywhere makes the name known
	diags := mustParseAndValidate(t, "while (n) n = 0 end")
	assert.Empty(t, diags)
}

func TestUndefinedInGuardsAndBodies(t *testing.T) {
	diags := mustParseAndValidate(t, "if (a) x = b else x = (c) end while (d) end")
	assert.Equal(t, []string{
		diagnostics.EUndefinedVar,
		diagnostics.EUndefinedVar,
		diagnostics.EUndefinedVar,
		diagnostics.EUndefinedVar,
	}, codes(diags))

	var names []string
	for _, d := range diags {
		names = append(names, d.Message)
	}
	assert.Equal(t, []string{
		"undefined variable 'a'",
		"undefined variable 'b'",
		"undefined variable 'c'",
		"undefined variable 'd'",
	}, names)
}

// ============================================================
// Function definitions
// ============================================================

func TestUnboundParameter(t *testing.T) {
	diags := mustParseAndValidate(t, "function f(a, b) a + b")
	require.Len(t, diags, 2)
	for _, d := range diags {
		assert.Equal(t, diagnostics.EUnboundParam, d.Code)
		assert.Contains(t, d.Hint, "which nothing assigns")
	}
	assert.Equal(t, "function 'f' reads its parameter 'a'", diags[0].Message)
	assert.Equal(t, 18, diags[0].Span.StartCol)
	assert.Equal(t, 22, diags[1].Span.StartCol)
}

func TestUnboundParameterWithGlobal(t *testing.T) {
	diags := mustParseAndValidate(t, "a = 1 b = 2 function f(a, b) a + b")
	require.Len(t, diags, 2)
	for _, d := range diags {
		assert.Equal(t, diagnostics.EUnboundParam, d.Code)
		assert.NotContains(t, d.Hint, "which nothing assigns")
	}
}

func TestUnusedParameterIsFine(t *testing.T) {
	diags := mustParseAndValidate(t, "k = 1 function f(a) k")
	assert.Empty(t, diags)
}

func TestDuplicateParameter(t *testing.T) {
	diags := mustParseAndValidate(t, "function f(a, a) 1")
	require.Len(t, diags, 1)
	assert.Equal(t, diagnostics.EDupParam, diags[0].Code)
	assert.Equal(t, "duplicate parameter 'a' in function 'f'", diags[0].Message)
	require.NotNil(t, diags[0].Span)
	assert.Equal(t, 15, diags[0].Span.StartCol)
}

func TestFunctionNameIsDefined(t *testing.T) {
	diags := mustParseAndValidate(t, "y = f function f() 1")
	assert.Empty(t, diags)
}

package parser_test

import (
	"testing"

	"github.com/thomasrohde/minilang/pkg/parser"
)

// FuzzParse feeds random inputs to the parser to catch panics.
// The parser should never panic; it returns a diagnostic for invalid input.
func FuzzParse(f *testing.F) {
	seeds := []string{
		``,
		`   `,
		`x = 3 + 4 * 2`,
		`x = (3 + 4) * 2`,
		`x = 10 / 3`,
		`y = z`,
		`x = 5 @ 2`,
		`function f(a, b) a + b`,
		`function f() 1`,
		`if (x) y = 1 else y = 2 end`,
		`while (i) i = i - 1 end`,
		`while (1) if (0) end end`,
		`if (x`,
		`x = ((((1`,
		`else end`,
		`function f(a,`,
		`x = 99999999999999999999999`,
	}

	for _, s := range seeds {
		f.Add(s)
	}

	f.Fuzz(func(t *testing.T, input string) {
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.Fatalf("parser.Parse panicked on input %q: %v", input, r)
				}
			}()
			prog, diags := parser.Parse(input, "fuzz.mini")
			if prog == nil && len(diags) != 1 {
				t.Fatalf("failed parse of %q returned %d diagnostics", input, len(diags))
			}
		}()
	})
}

package lexer

import (
	"testing"
)

// FuzzTokenize feeds random inputs to the lexer to catch panics.
// The lexer should never panic; invalid input is reported as an error.
func FuzzTokenize(f *testing.F) {
	seeds := []string{
		// Keywords
		`if else while function end`,
		// Literals
		`42 0 007 99999999999999999999999`,
		// Operators and punctuation
		`+ - * / ( ) = ,`,
		// Identifiers
		`x foo bar_baz _tmp a1`,
		// Statements
		`x = 3 + 4 * 2`,
		`function f(a, b) a + b`,
		`while (x) x = x - 1 end`,
		// Edge cases
		``,
		`   `,
		"\t\n\r",
		`@#$^&`,
		`\x00`,
		"\xff\xfe",
		`é`,
	}

	for _, s := range seeds {
		f.Add(s)
	}

	f.Fuzz(func(t *testing.T, input string) {
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.Fatalf("Tokenize panicked on input %q: %v", input, r)
				}
			}()
			tokens, err := Tokenize(input, "fuzz.mini")
			if err == nil && tokens[len(tokens)-1].Type != TokEOF {
				t.Fatalf("token stream for %q does not end in EOF", input)
			}
		}()
	})
}

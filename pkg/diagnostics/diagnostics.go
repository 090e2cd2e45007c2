// Package diagnostics defines MiniLang diagnostic types for lex/parse/runtime errors.
package diagnostics

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/thomasrohde/minilang/pkg/ast"
)

// Diagnostic code constants.
const (
	EInvalidChar     = "E_INVALID_CHAR"
	EUnexpectedToken = "E_UNEXPECTED_TOKEN"
	EUndefinedVar    = "E_UNDEFINED_VAR"
	EDivZero         = "E_DIV_ZERO"
	EIntRange        = "E_INT_RANGE"
	EBudget          = "E_BUDGET"
	ECanceled        = "E_CANCELED"
	EUnboundParam    = "E_UNBOUND_PARAM"
	EDupParam        = "E_DUP_PARAM"
	EConfig          = "E_CONFIG"
	EIO              = "E_IO"
)

// Diagnostic represents a lex, parse, validation, or runtime diagnostic.
type Diagnostic struct {
	Code    string    `json:"code"`
	Message string    `json:"message"`
	Span    *ast.Span `json:"span,omitempty"`
	Hint    string    `json:"hint,omitempty"`
}

// MakeDiag creates a new Diagnostic.
func MakeDiag(code, message string, span *ast.Span, hint string) Diagnostic {
	return Diagnostic{
		Code:    code,
		Message: message,
		Span:    span,
		Hint:    hint,
	}
}

// Diagnosable is implemented by errors that carry a Diagnostic.
type Diagnosable interface {
	error
	Diagnostic() Diagnostic
}

// From extracts the Diagnostic carried by err or any error it wraps.
func From(err error) (Diagnostic, bool) {
	var d Diagnosable
	if errors.As(err, &d) {
		return d.Diagnostic(), true
	}
	return Diagnostic{}, false
}

// CodeOf returns the diagnostic code of err, or "" if it carries none.
func CodeOf(err error) string {
	d, ok := From(err)
	if !ok {
		return ""
	}
	return d.Code
}

// IsSyntax reports whether code belongs to the lexical/syntactic class.
func IsSyntax(code string) bool {
	switch code {
	case EInvalidChar, EUnexpectedToken, EIntRange:
		return true
	}
	return false
}

// FormatDiagnostic formats a single diagnostic for display.
func FormatDiagnostic(d Diagnostic, pretty bool) string {
	if !pretty {
		b, _ := json.Marshal(d)
		return string(b)
	}
	loc := "<unknown>"
	if d.Span != nil {
		loc = fmt.Sprintf("%s:%d:%d", d.Span.File, d.Span.StartLine, d.Span.StartCol)
	}
	out := fmt.Sprintf("error[%s]: %s\n  --> %s", d.Code, d.Message, loc)
	if d.Hint != "" {
		out += fmt.Sprintf("\n  hint: %s", d.Hint)
	}
	return out
}

// FormatDiagnostics formats a slice of diagnostics for display.
func FormatDiagnostics(diags []Diagnostic, pretty bool) string {
	if !pretty {
		b, _ := json.Marshal(diags)
		return string(b)
	}
	parts := make([]string, len(diags))
	for i, d := range diags {
		parts[i] = FormatDiagnostic(d, true)
	}
	return strings.Join(parts, "\n\n")
}

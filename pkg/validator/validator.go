// Package validator implements static checks over MiniLang programs.
package validator

import (
	"fmt"

	"github.com/thomasrohde/minilang/pkg/ast"
	"github.com/thomasrohde/minilang/pkg/diagnostics"
)

type validator struct {
	diags   []diagnostics.Diagnostic
	defined map[string]bool
}

// Validate performs static analysis on a MiniLang program and returns
// diagnostics in source order.
//
// Every variable lives in one flat environment, so a read is only reported
// when no statement anywhere in the program writes that name.
func Validate(program *ast.Program) []diagnostics.Diagnostic {
	v := &validator{defined: make(map[string]bool)}

	// First pass: collect every name an assignment or definition can bind.
	v.collect(program.Statements)

	// Second pass: check reads and function definitions.
	v.validateStatements(program.Statements)

	return v.diags
}

func (v *validator) addDiag(code, msg string, span *ast.Span, hint string) {
	v.diags = append(v.diags, diagnostics.MakeDiag(code, msg, span, hint))
}

func (v *validator) collect(stmts []ast.Stmt) {
	for _, stmt := range stmts {
		switch s := stmt.(type) {
		case *ast.AssignStmt:
			v.defined[s.Name] = true
		case *ast.FunctionDef:
			v.defined[s.Name] = true
		case *ast.IfStmt:
			v.collect(s.ThenBody)
			v.collect(s.ElseBody)
		case *ast.WhileStmt:
			v.collect(s.Body)
		}
	}
}

func (v *validator) validateStatements(stmts []ast.Stmt) {
	for _, stmt := range stmts {
		v.validateStmt(stmt)
	}
}

func (v *validator) validateStmt(stmt ast.Stmt) {
	switch s := stmt.(type) {
	case *ast.AssignStmt:
		v.validateExpr(s.Value, nil)

	case *ast.ExprStmt:
		v.validateExpr(s.Expr, nil)

	case *ast.IfStmt:
		v.validateExpr(s.Cond, nil)
		v.validateStatements(s.ThenBody)
		v.validateStatements(s.ElseBody)

	case *ast.WhileStmt:
		v.validateExpr(s.Cond, nil)
		v.validateStatements(s.Body)

	case *ast.FunctionDef:
		v.validateFunction(s)
	}
}

func (v *validator) validateFunction(fn *ast.FunctionDef) {
	params := make(map[string]bool, len(fn.Params))
	for i, name := range fn.Params {
		if params[name] {
			var span *ast.Span
			if i < len(fn.ParamSpans) {
				s := fn.ParamSpans[i]
				span = &s
			}
			v.addDiag(diagnostics.EDupParam,
				fmt.Sprintf("duplicate parameter '%s' in function '%s'", name, fn.Name), span, "")
			continue
		}
		params[name] = true
	}
	v.validateExpr(fn.Body, &function{name: fn.Name, params: params})
}

// function is the definition whose body is being checked.
type function struct {
	name   string
	params map[string]bool
}

func (v *validator) validateExpr(expr ast.Expr, fn *function) {
	switch e := expr.(type) {
	case *ast.Ident:
		span := e.Span
		if fn != nil && fn.params[e.Name] {
			hint := fmt.Sprintf("parameters are never bound to arguments; '%s' reads the variable of the same name", e.Name)
			if !v.defined[e.Name] {
				hint += ", which nothing assigns"
			}
			v.addDiag(diagnostics.EUnboundParam,
				fmt.Sprintf("function '%s' reads its parameter '%s'", fn.name, e.Name), &span, hint)
			return
		}
		if !v.defined[e.Name] {
			v.addDiag(diagnostics.EUndefinedVar,
				fmt.Sprintf("undefined variable '%s'", e.Name), &span,
				fmt.Sprintf("no statement in the program assigns '%s'", e.Name))
		}

	case *ast.ParenExpr:
		v.validateExpr(e.Inner, fn)

	case *ast.BinaryExpr:
		v.validateExpr(e.Left, fn)
		v.validateExpr(e.Right, fn)
	}
}

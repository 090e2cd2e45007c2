// Package formatter implements the MiniLang source code formatter.
package formatter

import (
	"strconv"
	"strings"

	"github.com/thomasrohde/minilang/pkg/ast"
)

const indent = "  "

// unwrap strips redundant grouping; needsParens decides where it comes back.
func unwrap(e ast.Expr) ast.Expr {
	for {
		p, ok := e.(*ast.ParenExpr)
		if !ok {
			return e
		}
		e = p.Inner
	}
}

func needsParens(child ast.Expr, parentOp ast.BinaryOp, isRight bool) bool {
	bin, ok := unwrap(child).(*ast.BinaryExpr)
	if !ok {
		return false
	}
	childPrec := bin.Op.Precedence()
	parentPrec := parentOp.Precedence()
	if childPrec < parentPrec {
		return true
	}
	// Operators are left-associative: a same-precedence right operand keeps its parens
	if childPrec == parentPrec && isRight {
		return true
	}
	return false
}

// Format pretty-prints a MiniLang AST back to source code.
func Format(program *ast.Program) string {
	if len(program.Statements) == 0 {
		return ""
	}
	return formatBlock(program.Statements, 0)
}

func formatBlock(stmts []ast.Stmt, depth int) string {
	lines := make([]string, 0, len(stmts))
	for _, s := range stmts {
		lines = append(lines, formatStmt(s, depth))
	}
	return strings.Join(lines, "")
}

func formatStmt(s ast.Stmt, depth int) string {
	pad := strings.Repeat(indent, depth)

	switch st := s.(type) {
	case *ast.AssignStmt:
		return pad + st.Name + " = " + formatExpr(st.Value) + "\n"

	case *ast.ExprStmt:
		return pad + formatExprStmt(st.Expr) + "\n"

	case *ast.FunctionDef:
		return pad + "function " + st.Name + "(" + strings.Join(st.Params, ", ") + ") " + formatExpr(st.Body) + "\n"

	case *ast.IfStmt:
		var b strings.Builder
		b.WriteString(pad + "if (" + formatExpr(st.Cond) + ")\n")
		b.WriteString(formatBlock(st.ThenBody, depth+1))
		if st.HasElse {
			b.WriteString(pad + "else\n")
			b.WriteString(formatBlock(st.ElseBody, depth+1))
		}
		b.WriteString(pad + "end\n")
		return b.String()

	case *ast.WhileStmt:
		var b strings.Builder
		b.WriteString(pad + "while (" + formatExpr(st.Cond) + ")\n")
		b.WriteString(formatBlock(st.Body, depth+1))
		b.WriteString(pad + "end\n")
		return b.String()
	}
	return pad + "\n"
}

// formatExprStmt keeps an expression statement from starting with an
// identifier, which would read back as an assignment.
func formatExprStmt(e ast.Expr) string {
	out := formatExpr(e)
	if startsWithIdent(e) {
		return "(" + out + ")"
	}
	return out
}

func startsWithIdent(e ast.Expr) bool {
	switch ex := unwrap(e).(type) {
	case *ast.Ident:
		return true
	case *ast.BinaryExpr:
		if needsParens(ex.Left, ex.Op, false) {
			return false
		}
		return startsWithIdent(ex.Left)
	}
	return false
}

func formatExpr(e ast.Expr) string {
	switch ex := unwrap(e).(type) {
	case *ast.IntLiteral:
		return strconv.FormatInt(ex.Value, 10)

	case *ast.Ident:
		return ex.Name

	case *ast.BinaryExpr:
		left := formatExpr(ex.Left)
		if needsParens(ex.Left, ex.Op, false) {
			left = "(" + left + ")"
		}
		right := formatExpr(ex.Right)
		if needsParens(ex.Right, ex.Op, true) {
			right = "(" + right + ")"
		}
		return left + " " + string(ex.Op) + " " + right
	}
	return ""
}

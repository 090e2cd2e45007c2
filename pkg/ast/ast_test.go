package ast_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/thomasrohde/minilang/pkg/ast"
)

func TestNodeKinds(t *testing.T) {
	nodes := []ast.Node{
		&ast.IntLiteral{Value: 42},
		&ast.Ident{Name: "x"},
		&ast.BinaryExpr{Op: ast.OpAdd},
		&ast.ParenExpr{},
		&ast.AssignStmt{Name: "x"},
		&ast.ExprStmt{},
		&ast.IfStmt{},
		&ast.WhileStmt{},
		&ast.FunctionDef{Name: "f"},
		&ast.Program{},
	}

	expected := []string{
		"IntLiteral", "Ident", "BinaryExpr", "ParenExpr",
		"AssignStmt", "ExprStmt", "IfStmt", "WhileStmt", "FunctionDef", "Program",
	}

	for i, node := range nodes {
		assert.Equal(t, expected[i], node.Kind(), "node %d", i)
	}
}

func TestPrecedence(t *testing.T) {
	assert.Greater(t, ast.OpMul.Precedence(), ast.OpAdd.Precedence())
	assert.Equal(t, ast.OpMul.Precedence(), ast.OpDiv.Precedence())
	assert.Equal(t, ast.OpAdd.Precedence(), ast.OpSub.Precedence())
	assert.Zero(t, ast.BinaryOp("%").Precedence())
}

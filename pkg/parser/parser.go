// Package parser implements the MiniLang parser.
package parser

import (
	"fmt"

	"github.com/thomasrohde/minilang/pkg/ast"
	"github.com/thomasrohde/minilang/pkg/diagnostics"
	"github.com/thomasrohde/minilang/pkg/lexer"
)

type parser struct {
	tokens []lexer.Token
	pos    int
}

// ParseError wraps a diagnostic for syntax errors.
type ParseError struct {
	Diag diagnostics.Diagnostic
}

func (e *ParseError) Error() string {
	return e.Diag.Message
}

// Diagnostic returns the wrapped diagnostic.
func (e *ParseError) Diagnostic() diagnostics.Diagnostic {
	return e.Diag
}

// Parse tokenizes source and parses it into an AST. Parsing stops at the
// first error, so at most one diagnostic is returned.
func Parse(source, filename string) (*ast.Program, []diagnostics.Diagnostic) {
	tokens, err := lexer.Tokenize(source, filename)
	if err != nil {
		if d, ok := diagnostics.From(err); ok {
			return nil, []diagnostics.Diagnostic{d}
		}
		return nil, []diagnostics.Diagnostic{diagnostics.MakeDiag(diagnostics.EInvalidChar, err.Error(), nil, "")}
	}

	p := &parser{tokens: tokens, pos: 0}
	prog, err := p.parseProgram(filename)
	if err != nil {
		if d, ok := diagnostics.From(err); ok {
			return nil, []diagnostics.Diagnostic{d}
		}
		return nil, []diagnostics.Diagnostic{diagnostics.MakeDiag(diagnostics.EUnexpectedToken, err.Error(), nil, "")}
	}
	return prog, nil
}

func (p *parser) current() lexer.Token {
	if p.pos >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1] // EOF
	}
	return p.tokens[p.pos]
}

func (p *parser) peek() lexer.TokenType {
	return p.current().Type
}

func (p *parser) previous() lexer.Token {
	if p.pos == 0 {
		return p.tokens[0]
	}
	return p.tokens[p.pos-1]
}

func (p *parser) advance() lexer.Token {
	tok := p.current()
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return tok
}

func (p *parser) expect(typ lexer.TokenType) (lexer.Token, error) {
	tok := p.current()
	if tok.Type != typ {
		return tok, p.errorAt(tok, typ.String())
	}
	return p.advance(), nil
}

func (p *parser) errorAt(tok lexer.Token, expected string) error {
	span := tok.Span
	return &ParseError{Diag: diagnostics.MakeDiag(
		diagnostics.EUnexpectedToken,
		fmt.Sprintf("unexpected %s, expected %s", tok.Describe(), expected),
		&span,
		"",
	)}
}

func (p *parser) spanFrom(start ast.Span) ast.Span {
	return p.spanFromTo(start, p.previous().Span)
}

func (p *parser) spanFromTo(start, end ast.Span) ast.Span {
	return ast.Span{
		File:      start.File,
		StartLine: start.StartLine,
		StartCol:  start.StartCol,
		EndLine:   end.EndLine,
		EndCol:    end.EndCol,
	}
}

func (p *parser) parseProgram(filename string) (*ast.Program, error) {
	start := p.current().Span
	var stmts []ast.Stmt
	for p.peek() != lexer.TokEOF {
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}

	span := ast.Span{File: filename, StartLine: 1, StartCol: 1, EndLine: start.EndLine, EndCol: start.EndCol}
	if len(stmts) > 0 {
		span = p.spanFromTo(ast.Span{File: filename, StartLine: 1, StartCol: 1}, p.previous().Span)
	}
	return &ast.Program{Span: span, Statements: stmts}, nil
}

// parseBody parses statements up to the else/end that closes the body, or
// EOF. The closing token is left for the caller.
func (p *parser) parseBody() ([]ast.Stmt, error) {
	var stmts []ast.Stmt
	for {
		switch p.peek() {
		case lexer.TokElse, lexer.TokEnd, lexer.TokEOF:
			return stmts, nil
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}
}

func (p *parser) parseStatement() (ast.Stmt, error) {
	switch p.peek() {
	case lexer.TokIf:
		return p.parseIf()
	case lexer.TokWhile:
		return p.parseWhile()
	case lexer.TokFunction:
		return p.parseFunction()
	case lexer.TokIdent:
		return p.parseAssign()
	}

	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return &ast.ExprStmt{Span: expr.NodeSpan(), Expr: expr}, nil
}

func (p *parser) parseGuard() (ast.Expr, error) {
	if _, err := p.expect(lexer.TokLParen); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.TokRParen); err != nil {
		return nil, err
	}
	return cond, nil
}

func (p *parser) parseIf() (ast.Stmt, error) {
	ifTok := p.advance()
	cond, err := p.parseGuard()
	if err != nil {
		return nil, err
	}

	stmt := &ast.IfStmt{Cond: cond}
	if stmt.ThenBody, err = p.parseBody(); err != nil {
		return nil, err
	}
	if p.peek() == lexer.TokElse {
		p.advance()
		stmt.HasElse = true
		if stmt.ElseBody, err = p.parseBody(); err != nil {
			return nil, err
		}
	}
	if p.peek() == lexer.TokEnd {
		p.advance()
	}
	stmt.Span = p.spanFrom(ifTok.Span)
	return stmt, nil
}

func (p *parser) parseWhile() (ast.Stmt, error) {
	whileTok := p.advance()
	cond, err := p.parseGuard()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBody()
	if err != nil {
		return nil, err
	}
	if p.peek() == lexer.TokEnd {
		p.advance()
	}
	return &ast.WhileStmt{Span: p.spanFrom(whileTok.Span), Cond: cond, Body: body}, nil
}

func (p *parser) parseFunction() (ast.Stmt, error) {
	fnTok := p.advance()
	name, err := p.expect(lexer.TokIdent)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.TokLParen); err != nil {
		return nil, err
	}

	def := &ast.FunctionDef{Name: name.Value}
	if p.peek() != lexer.TokRParen {
		for {
			param, err := p.expect(lexer.TokIdent)
			if err != nil {
				return nil, err
			}
			def.Params = append(def.Params, param.Value)
			def.ParamSpans = append(def.ParamSpans, param.Span)
			if p.peek() != lexer.TokComma {
				break
			}
			p.advance()
		}
	}
	if _, err := p.expect(lexer.TokRParen); err != nil {
		return nil, err
	}

	if def.Body, err = p.parseExpr(); err != nil {
		return nil, err
	}
	def.Span = p.spanFrom(fnTok.Span)
	return def, nil
}

func (p *parser) parseAssign() (ast.Stmt, error) {
	name := p.advance()
	if _, err := p.expect(lexer.TokEquals); err != nil {
		return nil, err
	}
	value, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return &ast.AssignStmt{Span: p.spanFrom(name.Span), Name: name.Value, Value: value}, nil
}

// --- Expressions ---
// Precedence: additive < multiplicative < primary; both binary levels are
// left-associative.

func (p *parser) parseExpr() (ast.Expr, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for p.peek() == lexer.TokPlus || p.peek() == lexer.TokMinus {
		op := ast.OpAdd
		if p.advance().Type == lexer.TokMinus {
			op = ast.OpSub
		}
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{
			Span:  p.spanFromTo(left.NodeSpan(), right.NodeSpan()),
			Op:    op,
			Left:  left,
			Right: right,
		}
	}
	return left, nil
}

func (p *parser) parseTerm() (ast.Expr, error) {
	left, err := p.parseFactor()
	if err != nil {
		return nil, err
	}
	for p.peek() == lexer.TokStar || p.peek() == lexer.TokSlash {
		op := ast.OpMul
		if p.advance().Type == lexer.TokSlash {
			op = ast.OpDiv
		}
		right, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{
			Span:  p.spanFromTo(left.NodeSpan(), right.NodeSpan()),
			Op:    op,
			Left:  left,
			Right: right,
		}
	}
	return left, nil
}

func (p *parser) parseFactor() (ast.Expr, error) {
	tok := p.current()
	switch tok.Type {
	case lexer.TokIntLit:
		p.advance()
		val, err := tok.Int()
		if err != nil {
			return nil, err
		}
		return &ast.IntLiteral{Span: tok.Span, Value: val}, nil

	case lexer.TokIdent:
		p.advance()
		return &ast.Ident{Span: tok.Span, Name: tok.Value}, nil

	case lexer.TokLParen:
		p.advance()
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.TokRParen); err != nil {
			return nil, err
		}
		return &ast.ParenExpr{Span: p.spanFrom(tok.Span), Inner: inner}, nil
	}
	return nil, p.errorAt(tok, "an integer, identifier or '('")
}

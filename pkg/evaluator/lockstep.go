package evaluator

import (
	"context"
	"fmt"
	"strings"

	"fortio.org/log"

	"github.com/thomasrohde/minilang/pkg/ast"
	"github.com/thomasrohde/minilang/pkg/diagnostics"
	"github.com/thomasrohde/minilang/pkg/lexer"
)

// tokenSource is the pull interface the lockstep evaluator reads from.
type tokenSource interface {
	NextToken() (lexer.Token, error)
}

// replay serves a recorded token slice, then EOF forever.
type replay struct {
	tokens []lexer.Token
	pos    int
	eof    lexer.Token
}

func (r *replay) NextToken() (lexer.Token, error) {
	if r.pos >= len(r.tokens) {
		return r.eof, nil
	}
	tok := r.tokens[r.pos]
	r.pos++
	return tok, nil
}

// lockstep parses and evaluates in one pass with a single token of lookahead.
type lockstep struct {
	*evaluator
	src tokenSource
	cur lexer.Token

	recording bool
	recorded  []lexer.Token
}

// Eval scans, parses and evaluates source against env in a single pass with
// guard-only semantics. On failure env keeps every binding made before the
// error.
func Eval(ctx context.Context, source, filename string, env *Env, opts ExecOptions) (*ExecResult, error) {
	ctx, cancel := withTimeBudget(ctx, opts.Budget)
	defer cancel()

	p := &lockstep{
		evaluator: newEvaluator(ctx, env, opts),
		src:       lexer.NewScanner(source, filename),
	}

	span := ast.Span{File: filename, StartLine: 1, StartCol: 1}
	p.emit(TraceRunStart, &span)
	err := p.program()
	p.emit(TraceRunEnd, &span)

	return p.result(), err
}

func (p *lockstep) advance() error {
	tok, err := p.src.NextToken()
	if err != nil {
		return err
	}
	p.cur = tok
	if p.recording {
		p.recorded = append(p.recorded, tok)
	}
	return nil
}

func (p *lockstep) eat(typ lexer.TokenType) (lexer.Token, error) {
	tok := p.cur
	if tok.Type != typ {
		return tok, unexpected(tok, typ.String())
	}
	return tok, p.advance()
}

func unexpected(tok lexer.Token, expected string) error {
	span := tok.Span
	return &RuntimeError{
		Code:    diagnostics.EUnexpectedToken,
		Message: fmt.Sprintf("unexpected %s, expected %s", tok.Describe(), expected),
		Span:    &span,
	}
}

func (p *lockstep) program() error {
	if err := p.advance(); err != nil {
		return err
	}
	for p.cur.Type != lexer.TokEOF {
		if err := p.beginStmt(p.cur.Span); err != nil {
			return err
		}
		if err := p.statement(); err != nil {
			return err
		}
	}
	return nil
}

func (p *lockstep) statement() error {
	switch p.cur.Type {
	case lexer.TokIf:
		return p.ifStmt()
	case lexer.TokWhile:
		return p.whileStmt()
	case lexer.TokFunction:
		return p.functionDef()
	case lexer.TokIdent:
		return p.assignment()
	default:
		_, err := p.expr()
		return err
	}
}

func (p *lockstep) assignment() error {
	name, err := p.eat(lexer.TokIdent)
	if err != nil {
		return err
	}
	if _, err := p.eat(lexer.TokEquals); err != nil {
		return err
	}
	val, err := p.expr()
	if err != nil {
		return err
	}
	p.assign(name.Value, val, name.Span)
	return nil
}

func (p *lockstep) guard() (int64, error) {
	if _, err := p.eat(lexer.TokLParen); err != nil {
		return 0, err
	}
	val, err := p.expr()
	if err != nil {
		return 0, err
	}
	if _, err := p.eat(lexer.TokRParen); err != nil {
		return 0, err
	}
	return val, nil
}

// skipBody consumes tokens up to the else or end that closes the current
// body, or EOF. Nested if/while bodies are tracked so their own else/end do
// not close the outer one. It returns the token type it stopped on without
// consuming it.
func (p *lockstep) skipBody() (lexer.TokenType, error) {
	depth := 0
	for {
		switch p.cur.Type {
		case lexer.TokEOF:
			return lexer.TokEOF, nil
		case lexer.TokIf, lexer.TokWhile:
			depth++
		case lexer.TokElse:
			if depth == 0 {
				return lexer.TokElse, nil
			}
		case lexer.TokEnd:
			if depth == 0 {
				return lexer.TokEnd, nil
			}
			depth--
		}
		if err := p.advance(); err != nil {
			return 0, err
		}
	}
}

func (p *lockstep) closeBody(stop lexer.TokenType) error {
	if stop == lexer.TokEnd {
		return p.advance()
	}
	return nil
}

func (p *lockstep) ifStmt() error {
	ifTok, err := p.eat(lexer.TokIf)
	if err != nil {
		return err
	}
	cond, err := p.guard()
	if err != nil {
		return err
	}
	p.emitValue(TraceGuard, &ifTok.Span, "if", cond)
	log.LogVf("if guard = %d, skipping body", cond)

	stop, err := p.skipBody()
	if err != nil {
		return err
	}
	if stop == lexer.TokElse {
		if err := p.advance(); err != nil {
			return err
		}
		if stop, err = p.skipBody(); err != nil {
			return err
		}
	}
	return p.closeBody(stop)
}

func (p *lockstep) whileStmt() error {
	whileTok, err := p.eat(lexer.TokWhile)
	if err != nil {
		return err
	}
	if _, err := p.eat(lexer.TokLParen); err != nil {
		return err
	}

	// Record the guard's tokens so it can be re-evaluated after its source
	// has been consumed.
	p.recording, p.recorded = true, []lexer.Token{p.cur}
	cond, err := p.expr()
	p.recording = false
	if err != nil {
		return err
	}
	guardTokens := p.recorded[:len(p.recorded)-1]
	p.recorded = nil

	if _, err := p.eat(lexer.TokRParen); err != nil {
		return err
	}
	stop, err := p.skipBody()
	if err != nil {
		return err
	}
	if err := p.closeBody(stop); err != nil {
		return err
	}

	span := whileTok.Span
	p.emitValue(TraceGuard, &span, "while", cond)
	for cond != 0 {
		if err := p.checkIteration(span); err != nil {
			return err
		}
		p.emit(TraceLoopIter, &span)
		log.LogVf("while guard = %d, re-evaluating", cond)
		if cond, err = p.replayGuard(guardTokens, span); err != nil {
			return err
		}
	}
	return nil
}

func (p *lockstep) replayGuard(tokens []lexer.Token, span ast.Span) (int64, error) {
	sub := &lockstep{
		evaluator: p.evaluator,
		src:       &replay{tokens: tokens, eof: lexer.Token{Type: lexer.TokEOF, Span: span}},
	}
	if err := sub.advance(); err != nil {
		return 0, err
	}
	return sub.expr()
}

func (p *lockstep) functionDef() error {
	if _, err := p.eat(lexer.TokFunction); err != nil {
		return err
	}
	name, err := p.eat(lexer.TokIdent)
	if err != nil {
		return err
	}
	if _, err := p.eat(lexer.TokLParen); err != nil {
		return err
	}

	var params []string
	if p.cur.Type != lexer.TokRParen {
		for {
			param, err := p.eat(lexer.TokIdent)
			if err != nil {
				return err
			}
			params = append(params, param.Value)
			if p.cur.Type != lexer.TokComma {
				break
			}
			if err := p.advance(); err != nil {
				return err
			}
		}
	}
	if _, err := p.eat(lexer.TokRParen); err != nil {
		return err
	}

	log.LogVf("function %s(%s): parameters are not bound", name.Value, strings.Join(params, ", "))
	val, err := p.expr()
	if err != nil {
		return err
	}
	p.assign(name.Value, val, name.Span)
	return nil
}

var binaryOps = map[lexer.TokenType]ast.BinaryOp{
	lexer.TokPlus:  ast.OpAdd,
	lexer.TokMinus: ast.OpSub,
	lexer.TokStar:  ast.OpMul,
	lexer.TokSlash: ast.OpDiv,
}

func (p *lockstep) expr() (int64, error) {
	result, err := p.term()
	if err != nil {
		return 0, err
	}
	for p.cur.Type == lexer.TokPlus || p.cur.Type == lexer.TokMinus {
		opTok := p.cur
		if err := p.advance(); err != nil {
			return 0, err
		}
		right, err := p.term()
		if err != nil {
			return 0, err
		}
		if result, err = p.arith(binaryOps[opTok.Type], result, right, opTok.Span); err != nil {
			return 0, err
		}
	}
	return result, nil
}

func (p *lockstep) term() (int64, error) {
	result, err := p.factor()
	if err != nil {
		return 0, err
	}
	for p.cur.Type == lexer.TokStar || p.cur.Type == lexer.TokSlash {
		opTok := p.cur
		if err := p.advance(); err != nil {
			return 0, err
		}
		right, err := p.factor()
		if err != nil {
			return 0, err
		}
		if result, err = p.arith(binaryOps[opTok.Type], result, right, opTok.Span); err != nil {
			return 0, err
		}
	}
	return result, nil
}

func (p *lockstep) factor() (int64, error) {
	tok := p.cur
	switch tok.Type {
	case lexer.TokIntLit:
		val, err := tok.Int()
		if err != nil {
			return 0, err
		}
		return val, p.advance()

	case lexer.TokIdent:
		if err := p.advance(); err != nil {
			return 0, err
		}
		return p.lookup(tok.Value, tok.Span)

	case lexer.TokLParen:
		if err := p.advance(); err != nil {
			return 0, err
		}
		val, err := p.expr()
		if err != nil {
			return 0, err
		}
		if _, err := p.eat(lexer.TokRParen); err != nil {
			return 0, err
		}
		return val, nil
	}
	return 0, unexpected(tok, "an integer, identifier or '('")
}

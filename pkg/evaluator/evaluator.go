// Package evaluator executes MiniLang programs against a flat integer
// environment.
//
// Two execution strategies share the same arithmetic, environment and
// budget machinery:
//
//   - Eval parses and evaluates in lockstep straight off the scanner, without
//     building a tree. if/while bodies are consumed but never executed; only
//     guards have an effect (guard-only semantics).
//   - Execute walks a parsed *ast.Program and runs the selected if branch and
//     every while iteration (block semantics).
package evaluator

import (
	"context"
	"fmt"
	"time"

	"fortio.org/log"

	"github.com/thomasrohde/minilang/pkg/ast"
	"github.com/thomasrohde/minilang/pkg/diagnostics"
)

// TraceEventType identifies the type of a trace event.
type TraceEventType string

const (
	TraceRunStart TraceEventType = "run_start"
	TraceRunEnd   TraceEventType = "run_end"
	TraceStmt     TraceEventType = "stmt"
	TraceAssign   TraceEventType = "assign"
	TraceGuard    TraceEventType = "guard"
	TraceLoopIter TraceEventType = "loop_iter"
)

// TraceEvent represents a single trace event emitted during execution.
type TraceEvent struct {
	Timestamp string         `json:"ts"`
	RunID     string         `json:"runId"`
	Event     TraceEventType `json:"event"`
	Span      *ast.Span      `json:"span,omitempty"`
	Name      string         `json:"name,omitempty"`
	Value     *int64         `json:"value,omitempty"`
}

// ExecOptions configures program execution.
type ExecOptions struct {
	Budget Budget
	Trace  func(event TraceEvent)
	RunID  string
}

// ExecResult reports what a run consumed. The bindings themselves live in
// the *Env the caller passed in.
type ExecResult struct {
	Statements int64
	Iterations int64
	Elapsed    time.Duration
}

// RuntimeError represents an evaluation failure.
type RuntimeError struct {
	Code    string
	Message string
	Span    *ast.Span
	Hint    string
}

func (e *RuntimeError) Error() string {
	return e.Message
}

// Diagnostic converts the error for display.
func (e *RuntimeError) Diagnostic() diagnostics.Diagnostic {
	return diagnostics.MakeDiag(e.Code, e.Message, e.Span, e.Hint)
}

type evaluator struct {
	ctx       context.Context
	opts      ExecOptions
	env       *Env
	budget    Budget
	tracker   BudgetTracker
	startTime time.Time
}

func newEvaluator(ctx context.Context, env *Env, opts ExecOptions) *evaluator {
	return &evaluator{
		ctx:       ctx,
		opts:      opts,
		env:       env,
		budget:    opts.Budget,
		startTime: time.Now(),
	}
}

func (ev *evaluator) result() *ExecResult {
	return &ExecResult{
		Statements: ev.tracker.Statements,
		Iterations: ev.tracker.Iterations,
		Elapsed:    time.Since(ev.startTime),
	}
}

func (ev *evaluator) emit(event TraceEventType, span *ast.Span) {
	if ev.opts.Trace != nil {
		ev.opts.Trace(TraceEvent{
			Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
			RunID:     ev.opts.RunID,
			Event:     event,
			Span:      span,
		})
	}
}

func (ev *evaluator) emitValue(event TraceEventType, span *ast.Span, name string, val int64) {
	if ev.opts.Trace != nil {
		ev.opts.Trace(TraceEvent{
			Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
			RunID:     ev.opts.RunID,
			Event:     event,
			Span:      span,
			Name:      name,
			Value:     &val,
		})
	}
}

func (ev *evaluator) beginStmt(span ast.Span) error {
	if err := ev.checkTimeBudget(span); err != nil {
		return err
	}
	ev.tracker.Statements++
	ev.emit(TraceStmt, &span)
	return nil
}

func (ev *evaluator) assign(name string, val int64, span ast.Span) {
	ev.env.Set(name, val)
	log.LogVf("assign %s = %d", name, val)
	ev.emitValue(TraceAssign, &span, name, val)
}

func (ev *evaluator) lookup(name string, span ast.Span) (int64, error) {
	val, ok := ev.env.Get(name)
	if !ok {
		return 0, &RuntimeError{
			Code:    diagnostics.EUndefinedVar,
			Message: fmt.Sprintf("undefined variable '%s'", name),
			Span:    &span,
			Hint:    fmt.Sprintf("assign '%s' before reading it", name),
		}
	}
	return val, nil
}

// arith applies a binary operator. Division truncates toward zero.
func (ev *evaluator) arith(op ast.BinaryOp, left, right int64, span ast.Span) (int64, error) {
	switch op {
	case ast.OpAdd:
		return left + right, nil
	case ast.OpSub:
		return left - right, nil
	case ast.OpMul:
		return left * right, nil
	case ast.OpDiv:
		if right == 0 {
			return 0, &RuntimeError{Code: diagnostics.EDivZero, Message: "division by zero", Span: &span}
		}
		return left / right, nil
	}
	return 0, &RuntimeError{
		Code:    diagnostics.EUnexpectedToken,
		Message: fmt.Sprintf("unsupported operator '%s'", op),
		Span:    &span,
	}
}

// Execute runs a parsed program against env with block semantics.
// On failure env keeps every binding made before the error.
func Execute(ctx context.Context, program *ast.Program, env *Env, opts ExecOptions) (*ExecResult, error) {
	ctx, cancel := withTimeBudget(ctx, opts.Budget)
	defer cancel()

	ev := newEvaluator(ctx, env, opts)

	span := program.Span
	ev.emit(TraceRunStart, &span)
	err := ev.executeBlock(program.Statements)
	ev.emit(TraceRunEnd, &span)

	return ev.result(), err
}

func (ev *evaluator) executeBlock(stmts []ast.Stmt) error {
	for _, stmt := range stmts {
		if err := ev.executeStmt(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (ev *evaluator) executeStmt(stmt ast.Stmt) error {
	span := stmt.NodeSpan()
	if err := ev.beginStmt(span); err != nil {
		return err
	}

	switch s := stmt.(type) {
	case *ast.AssignStmt:
		val, err := ev.evalExpr(s.Value)
		if err != nil {
			return err
		}
		ev.assign(s.Name, val, span)

	case *ast.ExprStmt:
		_, err := ev.evalExpr(s.Expr)
		return err

	case *ast.FunctionDef:
		val, err := ev.evalExpr(s.Body)
		if err != nil {
			return err
		}
		ev.assign(s.Name, val, span)

	case *ast.IfStmt:
		cond, err := ev.evalExpr(s.Cond)
		if err != nil {
			return err
		}
		ev.emitValue(TraceGuard, &span, "if", cond)
		if cond != 0 {
			log.LogVf("if guard %d is true, running then branch", cond)
			return ev.executeBlock(s.ThenBody)
		}
		log.LogVf("if guard is 0, running else branch (%d statements)", len(s.ElseBody))
		return ev.executeBlock(s.ElseBody)

	case *ast.WhileStmt:
		for {
			cond, err := ev.evalExpr(s.Cond)
			if err != nil {
				return err
			}
			ev.emitValue(TraceGuard, &span, "while", cond)
			if cond == 0 {
				return nil
			}
			if err := ev.checkIteration(span); err != nil {
				return err
			}
			ev.emit(TraceLoopIter, &span)
			if err := ev.executeBlock(s.Body); err != nil {
				return err
			}
		}

	default:
		return &RuntimeError{
			Code:    diagnostics.EUnexpectedToken,
			Message: fmt.Sprintf("unsupported statement type: %T", stmt),
			Span:    &span,
		}
	}
	return nil
}

func (ev *evaluator) evalExpr(expr ast.Expr) (int64, error) {
	switch e := expr.(type) {
	case *ast.IntLiteral:
		return e.Value, nil

	case *ast.Ident:
		return ev.lookup(e.Name, e.Span)

	case *ast.ParenExpr:
		return ev.evalExpr(e.Inner)

	case *ast.BinaryExpr:
		left, err := ev.evalExpr(e.Left)
		if err != nil {
			return 0, err
		}
		right, err := ev.evalExpr(e.Right)
		if err != nil {
			return 0, err
		}
		return ev.arith(e.Op, left, right, e.Span)
	}

	var span *ast.Span
	if expr != nil {
		s := expr.NodeSpan()
		span = &s
	}
	return 0, &RuntimeError{
		Code:    diagnostics.EUnexpectedToken,
		Message: fmt.Sprintf("unsupported expression type: %T", expr),
		Span:    span,
	}
}

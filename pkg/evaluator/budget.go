package evaluator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/thomasrohde/minilang/pkg/ast"
	"github.com/thomasrohde/minilang/pkg/diagnostics"
)

// Budget holds the resource limits for a program execution. Zero means
// unlimited.
type Budget struct {
	TimeMs        int64
	MaxIterations int64
}

// BudgetTracker tracks resource consumption during execution.
type BudgetTracker struct {
	Iterations int64
	Statements int64
}

// withTimeBudget derives the run context; the returned cancel must be called.
func withTimeBudget(ctx context.Context, b Budget) (context.Context, context.CancelFunc) {
	if b.TimeMs > 0 {
		return context.WithTimeout(ctx, time.Duration(b.TimeMs)*time.Millisecond)
	}
	return context.WithCancel(ctx)
}

func (ev *evaluator) checkTimeBudget(span ast.Span) error {
	if ev.budget.TimeMs > 0 && time.Since(ev.startTime).Milliseconds() >= ev.budget.TimeMs {
		return ev.timeBudgetError(span)
	}
	if err := ev.ctx.Err(); err != nil {
		if ev.budget.TimeMs > 0 && errors.Is(err, context.DeadlineExceeded) {
			return ev.timeBudgetError(span)
		}
		return &RuntimeError{
			Code:    diagnostics.ECanceled,
			Message: fmt.Sprintf("execution canceled: %v", err),
			Span:    &span,
		}
	}
	return nil
}

func (ev *evaluator) timeBudgetError(span ast.Span) error {
	return &RuntimeError{
		Code:    diagnostics.EBudget,
		Message: fmt.Sprintf("time budget exceeded (%dms)", ev.budget.TimeMs),
		Span:    &span,
	}
}

// checkIteration is called once per loop iteration. It charges the iteration
// budget and polls for cancellation.
func (ev *evaluator) checkIteration(span ast.Span) error {
	if err := ev.checkTimeBudget(span); err != nil {
		return err
	}
	if ev.budget.MaxIterations > 0 && ev.tracker.Iterations >= ev.budget.MaxIterations {
		return &RuntimeError{
			Code:    diagnostics.EBudget,
			Message: fmt.Sprintf("iteration budget exceeded (max %d)", ev.budget.MaxIterations),
			Span:    &span,
			Hint:    "a while guard that never becomes 0 loops forever",
		}
	}
	ev.tracker.Iterations++
	return nil
}

// Package runtime provides the top-level MiniLang runtime orchestrator.
package runtime

import (
	"context"
	"fmt"
	"strings"

	"fortio.org/log"

	"github.com/thomasrohde/minilang/pkg/config"
	"github.com/thomasrohde/minilang/pkg/diagnostics"
	"github.com/thomasrohde/minilang/pkg/evaluator"
	"github.com/thomasrohde/minilang/pkg/formatter"
	"github.com/thomasrohde/minilang/pkg/parser"
	"github.com/thomasrohde/minilang/pkg/validator"
)

// Binding is one variable of the final environment.
type Binding struct {
	Name  string `json:"name"`
	Value int64  `json:"value"`
}

// Result holds the outcome of a program execution.
type Result struct {
	// Bindings is the environment sorted by name.
	Bindings []Binding
	Env      *evaluator.Env
	Stats    evaluator.ExecResult
}

// Map returns the bindings as a map.
func (r *Result) Map() map[string]int64 {
	return r.Env.Snapshot()
}

// Runtime wires together all MiniLang components for program execution.
type Runtime struct {
	semantics config.Semantics
	budget    evaluator.Budget
	runID     string
	trace     func(event evaluator.TraceEvent)
}

// Option is a functional option for configuring the Runtime.
type Option func(*Runtime)

// WithSemantics selects guard-only or block execution.
func WithSemantics(s config.Semantics) Option {
	return func(rt *Runtime) {
		rt.semantics = s
	}
}

// WithBudget sets the resource limits.
func WithBudget(b evaluator.Budget) Option {
	return func(rt *Runtime) {
		rt.budget = b
	}
}

// WithConfig applies the semantics and budget from a loaded config.
func WithConfig(cfg *config.Config) Option {
	return func(rt *Runtime) {
		if cfg == nil {
			return
		}
		rt.semantics = cfg.Semantics
		rt.budget = evaluator.Budget{
			MaxIterations: cfg.Budget.MaxIterations,
			TimeMs:        cfg.Budget.TimeMs,
		}
	}
}

// WithRunID sets the run ID for trace events.
func WithRunID(id string) Option {
	return func(rt *Runtime) {
		rt.runID = id
	}
}

// WithTrace sets the trace callback.
func WithTrace(fn func(event evaluator.TraceEvent)) Option {
	return func(rt *Runtime) {
		rt.trace = fn
	}
}

// LogTrace is a trace callback that writes events to the verbose log.
func LogTrace(ev evaluator.TraceEvent) {
	loc := ""
	if ev.Span != nil {
		loc = fmt.Sprintf(" %s:%d:%d", ev.Span.File, ev.Span.StartLine, ev.Span.StartCol)
	}
	if ev.Value != nil {
		log.LogVf("trace %s %s%s %s=%d", ev.RunID, ev.Event, loc, ev.Name, *ev.Value)
		return
	}
	log.LogVf("trace %s %s%s", ev.RunID, ev.Event, loc)
}

// New creates a new Runtime with the given options.
// By default, guard-only semantics run without limits.
func New(opts ...Option) *Runtime {
	rt := &Runtime{
		semantics: config.GuardOnly,
		runID:     "cli",
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

// Semantics returns the configured execution semantics.
func (rt *Runtime) Semantics() config.Semantics {
	return rt.semantics
}

// Run executes a MiniLang program against a fresh environment. On failure the
// partial result (every binding made before the error) is returned together
// with the error.
func (rt *Runtime) Run(ctx context.Context, source, filename string) (*Result, error) {
	return rt.exec(ctx, evaluator.NewEnv(), source, filename)
}

func (rt *Runtime) exec(ctx context.Context, env *evaluator.Env, source, filename string) (*Result, error) {
	opts := rt.buildExecOptions()

	var (
		stats *evaluator.ExecResult
		err   error
	)
	switch rt.semantics {
	case config.Block:
		program, diags := parser.Parse(source, filename)
		if len(diags) > 0 {
			return newResult(env, nil), &DiagnosticError{Diagnostics: diags}
		}
		stats, err = evaluator.Execute(ctx, program, env, opts)
	case config.GuardOnly, "":
		stats, err = evaluator.Eval(ctx, source, filename, env, opts)
	default:
		return nil, &config.Error{Path: "semantics", Err: fmt.Errorf("unknown semantics %q", rt.semantics)}
	}

	res := newResult(env, stats)
	if err != nil {
		log.Debugf("run %s failed after %d statements: %v", rt.runID, res.Stats.Statements, err)
		return res, err
	}
	log.Debugf("run %s: %d statements, %d iterations, %d bindings in %v",
		rt.runID, res.Stats.Statements, res.Stats.Iterations, len(res.Bindings), res.Stats.Elapsed)
	return res, nil
}

func newResult(env *evaluator.Env, stats *evaluator.ExecResult) *Result {
	res := &Result{Env: env}
	if stats != nil {
		res.Stats = *stats
	}
	names := env.Names()
	res.Bindings = make([]Binding, 0, len(names))
	for _, name := range names {
		val, _ := env.Get(name)
		res.Bindings = append(res.Bindings, Binding{Name: name, Value: val})
	}
	return res
}

// Check parses and validates a MiniLang program without executing it.
func (rt *Runtime) Check(source, filename string) []diagnostics.Diagnostic {
	program, diags := parser.Parse(source, filename)
	if len(diags) > 0 {
		return diags
	}

	vDiags := validator.Validate(program)
	return vDiags
}

// Format parses and formats a MiniLang program.
func (rt *Runtime) Format(source, filename string) (string, error) {
	program, diags := parser.Parse(source, filename)
	if len(diags) > 0 {
		return "", &DiagnosticError{Diagnostics: diags}
	}
	return formatter.Format(program), nil
}

// buildExecOptions constructs evaluator options from the runtime's configuration.
func (rt *Runtime) buildExecOptions() evaluator.ExecOptions {
	return evaluator.ExecOptions{
		Budget: rt.budget,
		Trace:  rt.trace,
		RunID:  rt.runID,
	}
}

// Session runs successive snippets against one environment. It is not safe
// for concurrent use.
type Session struct {
	rt    *Runtime
	env   *evaluator.Env
	count int
}

// NewSession starts a session with an empty environment.
func (rt *Runtime) NewSession() *Session {
	return &Session{rt: rt, env: evaluator.NewEnv()}
}

// Exec runs source against the session environment. Bindings made before an
// error are kept.
func (s *Session) Exec(ctx context.Context, source string) (*Result, error) {
	s.count++
	return s.rt.exec(ctx, s.env, source, fmt.Sprintf("<repl:%d>", s.count))
}

// Bindings returns the session environment sorted by name.
func (s *Session) Bindings() []Binding {
	return newResult(s.env, nil).Bindings
}

// DiagnosticError wraps diagnostics as an error.
type DiagnosticError struct {
	Diagnostics []diagnostics.Diagnostic
}

func (e *DiagnosticError) Error() string {
	msgs := make([]string, len(e.Diagnostics))
	for i, d := range e.Diagnostics {
		msgs[i] = fmt.Sprintf("%s: %s", d.Code, d.Message)
	}
	return strings.Join(msgs, "; ")
}

// Diagnostic returns the first diagnostic.
func (e *DiagnosticError) Diagnostic() diagnostics.Diagnostic {
	if len(e.Diagnostics) == 0 {
		return diagnostics.MakeDiag(diagnostics.EUnexpectedToken, "no diagnostics", nil, "")
	}
	return e.Diagnostics[0]
}

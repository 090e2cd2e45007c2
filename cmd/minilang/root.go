package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"fortio.org/log"
	"github.com/spf13/cobra"

	"github.com/thomasrohde/minilang/pkg/config"
	"github.com/thomasrohde/minilang/pkg/diagnostics"
	"github.com/thomasrohde/minilang/pkg/evaluator"
	"github.com/thomasrohde/minilang/pkg/runtime"
)

// app holds the persistent flags and the configuration they resolve to.
type app struct {
	semantics     string
	maxIterations int64
	timeMs        int64
	jsonOut       bool
	pretty        bool
	verbose       bool
	dir           string

	cfg     *config.Config
	cfgPath string
}

func newRootCmd() *cobra.Command {
	a := &app{cfg: config.Default()}

	root := &cobra.Command{
		Use:   "minilang",
		Short: "Run, check and format MiniLang programs",
		Long: `minilang runs programs written in MiniLang, a tiny integer language with
assignments, arithmetic, if/while guards and single-expression functions.

Settings are read from .minilang.yml in the project directory, then
~/.minilang/config.yml; flags override both.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.resolve(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.semantics, "semantics", "",
		`execution semantics: "guard-only" (bodies are skipped) or "block" (bodies run)`)
	flags.Int64Var(&a.maxIterations, "max-iterations", 0,
		"stop with E_BUDGET after this many loop iterations (0 = unlimited)")
	flags.Int64Var(&a.timeMs, "time-ms", 0,
		"stop with E_BUDGET after this many milliseconds (0 = unlimited)")
	flags.BoolVar(&a.jsonOut, "json", false, "print results and diagnostics as JSON")
	flags.BoolVar(&a.pretty, "pretty", false, "print diagnostics in human-readable form, even with --json")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "log every statement, assignment and loop iteration")
	flags.StringVar(&a.dir, "dir", "", "directory searched for "+config.ProjectFile+" (default: current directory)")

	root.AddCommand(
		a.newRunCmd(),
		a.newCheckCmd(),
		a.newFmtCmd(),
		a.newReplCmd(),
		a.newTraceCmd(),
		a.newConfigCmd(),
	)
	return root
}

// resolve loads the config file and applies flag overrides on top of it.
func (a *app) resolve(cmd *cobra.Command) error {
	dir := a.dir
	if dir == "" {
		dir, _ = os.Getwd()
	}
	cfg, path, err := config.Load(dir)
	if err != nil {
		a.printErr(cmd.ErrOrStderr(), err)
		return exitWith(1)
	}
	a.cfg, a.cfgPath = cfg, path

	flags := cmd.Flags()
	if flags.Changed("semantics") {
		cfg.Semantics = config.Semantics(a.semantics)
	}
	if flags.Changed("max-iterations") {
		cfg.Budget.MaxIterations = a.maxIterations
	}
	if flags.Changed("time-ms") {
		cfg.Budget.TimeMs = a.timeMs
	}
	if a.jsonOut {
		cfg.Output = config.OutputJSON
	}
	if err := cfg.Validate(); err != nil {
		a.printErr(cmd.ErrOrStderr(), &config.Error{Path: "flags", Err: err})
		return exitWith(1)
	}

	lvl, _ := log.ValidateLevel(cfg.LogLevel)
	if a.verbose {
		lvl = log.Verbose
	}
	log.SetLogLevelQuiet(lvl)

	if path != "" {
		log.Debugf("using config %s", path)
	}
	return nil
}

func (a *app) newRuntime(opts ...runtime.Option) *runtime.Runtime {
	return runtime.New(append([]runtime.Option{runtime.WithConfig(a.cfg)}, opts...)...)
}

// traceFunc returns the trace callback for a run, or nil when nothing
// consumes events.
func (a *app) traceFunc(w io.Writer) func(evaluator.TraceEvent) {
	if w == nil && !a.verbose {
		return nil
	}
	var enc *json.Encoder
	if w != nil {
		enc = json.NewEncoder(w)
	}
	return func(ev evaluator.TraceEvent) {
		runtime.LogTrace(ev)
		if enc != nil {
			if err := enc.Encode(ev); err != nil {
				log.Errf("writing trace event: %v", err)
			}
		}
	}
}

func (a *app) prettyDiags() bool {
	return a.pretty || a.cfg.Output != config.OutputJSON
}

// printErr writes err as a diagnostic.
func (a *app) printErr(w io.Writer, err error) {
	d, ok := diagnostics.From(err)
	if !ok {
		d = diagnostics.MakeDiag(diagnostics.EIO, err.Error(), nil, "")
	}
	fmt.Fprintln(w, diagnostics.FormatDiagnostic(d, a.prettyDiags()))
}

func (a *app) printBindings(w io.Writer, bindings []runtime.Binding) error {
	if a.cfg.Output == config.OutputJSON {
		vars := make(map[string]int64, len(bindings))
		for _, b := range bindings {
			vars[b.Name] = b.Value
		}
		out, err := json.Marshal(vars)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(out))
		return err
	}

	if _, err := fmt.Fprintln(w, "Variables:"); err != nil {
		return err
	}
	for _, b := range bindings {
		if _, err := fmt.Fprintf(w, "%s = %d\n", b.Name, b.Value); err != nil {
			return err
		}
	}
	return nil
}

// exitCodeFor maps a failure to the process exit status: 2 for lexical and
// syntax errors, 4 for runtime errors, 1 for I/O and configuration errors.
func exitCodeFor(err error) int {
	code := diagnostics.CodeOf(err)
	switch {
	case diagnostics.IsSyntax(code):
		return 2
	case code == "", code == diagnostics.EIO, code == diagnostics.EConfig:
		return 1
	default:
		return 4
	}
}

// cliError is an I/O failure reported as a diagnostic.
type cliError struct {
	diag diagnostics.Diagnostic
}

func (e *cliError) Error() string {
	return e.diag.Message
}

func (e *cliError) Diagnostic() diagnostics.Diagnostic {
	return e.diag
}

func ioError(format string, args ...any) error {
	return &cliError{diag: diagnostics.MakeDiag(diagnostics.EIO, fmt.Sprintf(format, args...), nil, "")}
}

// readSource reads the named file, or standard input for "-" or no argument.
func readSource(cmd *cobra.Command, args []string) (source, filename string, err error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", "", ioError("cannot read stdin: %v", err)
		}
		return string(data), "<stdin>", nil
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", "", ioError("cannot read file: %s", args[0])
	}
	return string(data), args[0], nil
}

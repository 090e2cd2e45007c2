package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/thomasrohde/minilang/pkg/runtime"
)

func (a *app) newRunCmd() *cobra.Command {
	var tracePath string

	cmd := &cobra.Command{
		Use:   "run [file|-]",
		Short: "Run a MiniLang program",
		Long: `Run a program from a file, or from standard input when the file is
omitted or "-". On success every variable is printed, sorted by name.

Exit status: 0 success, 1 I/O or config error, 2 lexical or syntax error,
4 runtime error (undefined variable, division by zero, budget).`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, filename, err := readSource(cmd, args)
			if err != nil {
				a.printErr(cmd.ErrOrStderr(), err)
				return exitWith(1)
			}

			var traceOut io.Writer
			if tracePath != "" {
				f, err := os.Create(tracePath)
				if err != nil {
					a.printErr(cmd.ErrOrStderr(), ioError("cannot create trace file: %s", tracePath))
					return exitWith(1)
				}
				defer f.Close()
				traceOut = f
			}

			var opts []runtime.Option
			if trace := a.traceFunc(traceOut); trace != nil {
				opts = append(opts, runtime.WithTrace(trace))
			}
			rt := a.newRuntime(opts...)

			res, err := rt.Run(cmd.Context(), source, filename)
			if err != nil {
				a.printErr(cmd.ErrOrStderr(), err)
				return exitWith(exitCodeFor(err))
			}
			if err := a.printBindings(cmd.OutOrStdout(), res.Bindings); err != nil {
				a.printErr(cmd.ErrOrStderr(), ioError("cannot write output: %v", err))
				return exitWith(1)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&tracePath, "trace", "", "write trace events as NDJSON to this file")
	return cmd
}

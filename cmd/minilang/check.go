package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thomasrohde/minilang/pkg/diagnostics"
)

func (a *app) newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <file|->",
		Short: "Parse and validate a program without running it",
		Long: `Report syntax errors, reads of variables that nothing assigns,
functions that read their own parameters, and repeated parameter names.
Exits 2 when any diagnostic is found.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, filename, err := readSource(cmd, args)
			if err != nil {
				a.printErr(cmd.ErrOrStderr(), err)
				return exitWith(1)
			}

			diags := a.newRuntime().Check(source, filename)
			if len(diags) > 0 {
				fmt.Fprintln(cmd.ErrOrStderr(), diagnostics.FormatDiagnostics(diags, a.prettyDiags()))
				return exitWith(2)
			}

			if a.prettyDiags() {
				fmt.Fprintln(cmd.OutOrStdout(), "No errors found.")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "[]")
			}
			return nil
		},
	}
}

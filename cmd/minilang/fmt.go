package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func (a *app) newFmtCmd() *cobra.Command {
	var write bool

	cmd := &cobra.Command{
		Use:   "fmt <file|->",
		Short: "Print a program in canonical form",
		Long: `Reformat a program: one statement per line, two-space indentation
inside bodies, "end" closing every if/while, and only the parentheses
that precedence requires.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if write && args[0] == "-" {
				a.printErr(cmd.ErrOrStderr(), ioError("--write needs a file, not stdin"))
				return exitWith(1)
			}
			source, filename, err := readSource(cmd, args)
			if err != nil {
				a.printErr(cmd.ErrOrStderr(), err)
				return exitWith(1)
			}

			formatted, err := a.newRuntime().Format(source, filename)
			if err != nil {
				a.printErr(cmd.ErrOrStderr(), err)
				return exitWith(2)
			}

			if write {
				if err := os.WriteFile(filename, []byte(formatted), 0o644); err != nil {
					a.printErr(cmd.ErrOrStderr(), ioError("error writing file: %v", err))
					return exitWith(1)
				}
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), formatted)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&write, "write", "w", false, "overwrite the file instead of printing")
	return cmd
}

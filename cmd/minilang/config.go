package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func (a *app) newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the resolved configuration",
		Long: `Print the settings a run would use, after the config file and any
flags have been applied, as YAML. The first line names the file they
came from.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			source := a.cfgPath
			if source == "" {
				source = "defaults"
			}
			out, err := yaml.Marshal(a.cfg)
			if err != nil {
				a.printErr(cmd.ErrOrStderr(), ioError("cannot encode config: %v", err))
				return exitWith(1)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "# source: %s\n%s", source, out)
			return nil
		},
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"fortio.org/log"
	"github.com/peterh/liner"
	"github.com/spf13/cobra"
)

const (
	historyFile = ".minilang_history"
	promptMain  = "mini> "
)

// prompter is the part of *liner.State the REPL loop needs.
type prompter interface {
	Prompt(prompt string) (string, error)
}

func (a *app) newReplCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Start an interactive session",
		Long: `Every line runs against one environment that lives for the whole
session. :vars prints the variables, :quit exits.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			home, _ := os.UserHomeDir()
			histPath := filepath.Join(home, historyFile)

			ln := liner.NewLiner()
			defer ln.Close()
			ln.SetCtrlCAborts(true)

			if f, err := os.Open(histPath); err == nil {
				_, _ = ln.ReadHistory(f)
				_ = f.Close()
			}
			defer func() {
				if f, err := os.Create(histPath); err == nil {
					_, _ = ln.WriteHistory(f)
					_ = f.Close()
				} else {
					log.Warnf("cannot save history to %s: %v", histPath, err)
				}
			}()

			return exitWith(a.repl(ln, cmd.OutOrStdout(), cmd.ErrOrStderr(), ln.AppendHistory))
		},
	}
}

// repl reads lines until :quit or end of input and returns the exit status.
func (a *app) repl(p prompter, out, errOut io.Writer, remember func(string)) int {
	fmt.Fprintf(out, "MiniLang (%s semantics). :vars lists variables, :quit exits.\n", a.cfg.Semantics)
	session := a.newRuntime().NewSession()

	for {
		line, err := p.Prompt(promptMain)
		if errors.Is(err, liner.ErrPromptAborted) {
			continue
		}
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(out)
			return 0
		}
		if err != nil {
			a.printErr(errOut, ioError("cannot read input: %v", err))
			return 1
		}

		src := strings.TrimSpace(line)
		switch src {
		case "":
			continue
		case ":quit", ":q":
			return 0
		case ":vars":
			if err := a.printBindings(out, session.Bindings()); err != nil {
				return 1
			}
			continue
		}
		if strings.HasPrefix(src, ":") {
			fmt.Fprintf(errOut, "unknown command %s (try :vars or :quit)\n", src)
			continue
		}

		remember(line)

		// Ctrl-C stops a runaway loop without ending the session.
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		_, err = session.Exec(ctx, src)
		stop()
		if err != nil {
			a.printErr(errOut, err)
		}
	}
}

package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/thomasrohde/minilang/pkg/config"
	"github.com/thomasrohde/minilang/pkg/evaluator"
)

func (a *app) newTraceCmd() *cobra.Command {
	var text bool

	cmd := &cobra.Command{
		Use:   "trace <file.jsonl>",
		Short: "Summarize a trace written by run --trace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				a.printErr(cmd.ErrOrStderr(), ioError("cannot read file: %s", args[0]))
				return exitWith(1)
			}
			defer f.Close()

			summary, err := computeTraceSummary(f)
			if err != nil {
				a.printErr(cmd.ErrOrStderr(), ioError("cannot read file: %s: %v", args[0], err))
				return exitWith(1)
			}
			if text || a.cfg.Output == config.OutputText {
				printTraceSummaryText(cmd.OutOrStdout(), summary)
				return nil
			}
			b, _ := json.Marshal(summary)
			fmt.Fprintln(cmd.OutOrStdout(), string(b))
			return nil
		},
	}

	cmd.Flags().BoolVar(&text, "text", false, "print the summary as text even with --json")
	return cmd
}

// TraceSummary aggregates the events of one trace file.
type TraceSummary struct {
	RunID          string         `json:"runId"`
	TotalEvents    int            `json:"totalEvents"`
	Statements     int            `json:"statements"`
	Assignments    int            `json:"assignments"`
	Guards         int            `json:"guards"`
	LoopIterations int            `json:"loopIterations"`
	AssignsByName  map[string]int `json:"assignsByName"`
	StartTime      string         `json:"startTime,omitempty"`
	EndTime        string         `json:"endTime,omitempty"`
	DurationMs     float64        `json:"durationMs"`
}

func computeTraceSummary(r io.Reader) (*TraceSummary, error) {
	summary := &TraceSummary{
		AssignsByName: make(map[string]int),
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var event evaluator.TraceEvent
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			continue // skip invalid lines
		}

		summary.TotalEvents++
		if summary.RunID == "" {
			summary.RunID = event.RunID
		}

		switch event.Event {
		case evaluator.TraceRunStart:
			if summary.StartTime == "" {
				summary.StartTime = event.Timestamp
			}
		case evaluator.TraceRunEnd:
			summary.EndTime = event.Timestamp
		case evaluator.TraceStmt:
			summary.Statements++
		case evaluator.TraceAssign:
			summary.Assignments++
			summary.AssignsByName[event.Name]++
		case evaluator.TraceGuard:
			summary.Guards++
		case evaluator.TraceLoopIter:
			summary.LoopIterations++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if summary.StartTime != "" && summary.EndTime != "" {
		start, err1 := time.Parse(time.RFC3339Nano, summary.StartTime)
		end, err2 := time.Parse(time.RFC3339Nano, summary.EndTime)
		if err1 == nil && err2 == nil {
			summary.DurationMs = float64(end.Sub(start).Microseconds()) / 1000
		}
	}

	return summary, nil
}

func printTraceSummaryText(w io.Writer, s *TraceSummary) {
	fmt.Fprintf(w, "Run: %s\n", s.RunID)
	fmt.Fprintf(w, "Events: %d\n", s.TotalEvents)
	fmt.Fprintf(w, "Statements: %d\n", s.Statements)
	fmt.Fprintf(w, "Assignments: %d\n", s.Assignments)
	names := make([]string, 0, len(s.AssignsByName))
	for name := range s.AssignsByName {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %s: %d\n", name, s.AssignsByName[name])
	}
	fmt.Fprintf(w, "Guards: %d\n", s.Guards)
	fmt.Fprintf(w, "Loop iterations: %d\n", s.LoopIterations)
	if s.DurationMs > 0 {
		fmt.Fprintf(w, "Duration: %.3fms\n", s.DurationMs)
	}
}

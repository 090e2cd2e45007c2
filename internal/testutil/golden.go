// Package testutil provides shared test helpers for MiniLang Go tests.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// ScenariosDir is the relative path from the module root to the scenarios.
const ScenariosDir = "testdata/scenarios"

// ScenarioFile is the file that marks a directory as a scenario.
const ScenarioFile = "scenario.yml"

// Scenario represents a test scenario loaded from a scenario.yml file.
type Scenario struct {
	// Cmd is the CLI invocation: "run", "check" or "fmt" followed by the
	// program file, relative to the scenario directory.
	Cmd       []string        `yaml:"cmd"`
	Semantics string          `yaml:"semantics,omitempty"`
	Budget    *ScenarioBudget `yaml:"budget,omitempty"`
	Meta      *ScenarioMeta   `yaml:"meta,omitempty"`
	Expect    ExpectedResult  `yaml:"expect"`
}

// ScenarioBudget sets evaluator limits for a scenario.
type ScenarioBudget struct {
	MaxIterations int64 `yaml:"maxIterations,omitempty"`
	TimeMs        int64 `yaml:"timeMs,omitempty"`
}

// ScenarioMeta holds optional scenario metadata.
type ScenarioMeta struct {
	Description string   `yaml:"description,omitempty"`
	Tags        []string `yaml:"tags,omitempty"`
}

// ExpectedError pins the single diagnostic a failing run reports.
type ExpectedError struct {
	Code string `yaml:"code"`
	Line int    `yaml:"line,omitempty"`
	Col  int    `yaml:"col,omitempty"`
}

// ExpectedResult describes the expected outcome of running a scenario.
type ExpectedResult struct {
	ExitCode int `yaml:"exitCode"`
	// Variables is the full final environment of a successful run.
	Variables map[string]int64 `yaml:"variables,omitempty"`
	Error     *ExpectedError   `yaml:"error,omitempty"`
	// Diagnostics lists the codes check reports, in order.
	Diagnostics []string `yaml:"diagnostics,omitempty"`
	StdoutText  string   `yaml:"stdoutText,omitempty"`
}

// LoadScenario loads a scenario from a directory containing scenario.yml.
func LoadScenario(dir string) (*Scenario, error) {
	file, err := os.Open(filepath.Join(dir, ScenarioFile))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)

	var s Scenario
	if err := decoder.Decode(&s); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", dir, err)
	}
	if len(s.Cmd) < 2 {
		return nil, fmt.Errorf("scenario %s: cmd needs a command and a program file", dir)
	}
	return &s, nil
}

// ListScenarios returns all scenario directories under the given root, sorted.
func ListScenarios(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	var dirs []string
	for _, e := range entries {
		if e.IsDir() {
			scenarioPath := filepath.Join(root, e.Name(), ScenarioFile)
			if _, err := os.Stat(scenarioPath); err == nil {
				dirs = append(dirs, filepath.Join(root, e.Name()))
			}
		}
	}
	sort.Strings(dirs)
	return dirs, nil
}

// ReadProgramFile reads the program file referenced by the scenario cmd.
func ReadProgramFile(scenarioDir string, cmd []string) (string, string, error) {
	if len(cmd) < 2 {
		return "", "", nil
	}
	filename := cmd[1]
	source, err := os.ReadFile(filepath.Join(scenarioDir, filename))
	if err != nil {
		return "", "", err
	}
	return string(source), filename, nil
}

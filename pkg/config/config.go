// Package config loads MiniLang settings from YAML files.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"fortio.org/log"
	"gopkg.in/yaml.v3"

	"github.com/thomasrohde/minilang/pkg/diagnostics"
)

// Semantics selects how if/while bodies are treated.
type Semantics string

const (
	// GuardOnly evaluates guards in a single pass and never runs bodies.
	GuardOnly Semantics = "guard-only"
	// Block parses the whole program and runs bodies.
	Block Semantics = "block"
)

// Output selects how the CLI prints results and diagnostics.
type Output string

const (
	OutputText Output = "text"
	OutputJSON Output = "json"
)

// File names searched by Load.
const (
	ProjectFile = ".minilang.yml"
	UserDir     = ".minilang"
	UserFile    = "config.yml"
)

// Budget mirrors the evaluator limits. Zero means unlimited.
type Budget struct {
	MaxIterations int64 `yaml:"maxIterations"`
	TimeMs        int64 `yaml:"timeMs"`
}

// Config holds the resolved settings.
type Config struct {
	Semantics Semantics `yaml:"semantics"`
	Budget    Budget    `yaml:"budget"`
	Output    Output    `yaml:"output"`
	LogLevel  string    `yaml:"logLevel"`
}

// Default returns the settings used when no file is found.
func Default() *Config {
	return &Config{
		Semantics: GuardOnly,
		Output:    OutputText,
		LogLevel:  "info",
	}
}

// Error reports an unreadable or invalid configuration file.
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("config %s: %v", e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Diagnostic converts the error for display.
func (e *Error) Diagnostic() diagnostics.Diagnostic {
	return diagnostics.MakeDiag(diagnostics.EConfig, e.Error(), nil, "")
}

// Load resolves configuration for projectDir.
// Precedence: project (.minilang.yml) -> user (~/.minilang/config.yml) -> defaults.
// It returns the config and the path it came from ("" for defaults). A file
// that exists but cannot be parsed or validated is an error; it does not fall
// through to the next candidate.
func Load(projectDir string) (*Config, string, error) {
	var candidates []string
	if projectDir != "" {
		candidates = append(candidates, filepath.Join(projectDir, ProjectFile))
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(homeDir, UserDir, UserFile))
	}

	for _, path := range candidates {
		cfg, err := LoadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, path, err
		}
		log.Debugf("config loaded from %s", path)
		return cfg, path, nil
	}
	return Default(), "", nil
}

// LoadFile reads a single config file. Fields it omits keep their defaults.
func LoadFile(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		return nil, &Error{Path: path, Err: err}
	}
	defer file.Close()

	cfg := Default()
	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, &Error{Path: path, Err: err}
	}
	if err := cfg.Validate(); err != nil {
		return nil, &Error{Path: path, Err: err}
	}
	return cfg, nil
}

// Validate rejects values the runtime cannot honor.
func (c *Config) Validate() error {
	switch c.Semantics {
	case GuardOnly, Block:
	default:
		return fmt.Errorf("unknown semantics %q (want %q or %q)", c.Semantics, GuardOnly, Block)
	}
	switch c.Output {
	case OutputText, OutputJSON:
	default:
		return fmt.Errorf("unknown output %q (want %q or %q)", c.Output, OutputText, OutputJSON)
	}
	if c.Budget.MaxIterations < 0 {
		return fmt.Errorf("budget.maxIterations must be >= 0, got %d", c.Budget.MaxIterations)
	}
	if c.Budget.TimeMs < 0 {
		return fmt.Errorf("budget.timeMs must be >= 0, got %d", c.Budget.TimeMs)
	}
	if _, err := log.ValidateLevel(c.LogLevel); err != nil {
		return fmt.Errorf("logLevel: %w", err)
	}
	return nil
}

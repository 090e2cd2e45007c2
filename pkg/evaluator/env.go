package evaluator

import "sort"

// Env is the flat, whole-run variable store. There are no nested scopes:
// every assignment and function definition writes here, every identifier
// reads from here.
type Env struct {
	bindings map[string]int64
}

// NewEnv creates an empty environment.
func NewEnv() *Env {
	return &Env{bindings: make(map[string]int64)}
}

// Get looks up a variable by name.
func (e *Env) Get(name string) (int64, bool) {
	val, ok := e.bindings[name]
	return val, ok
}

// Set binds or overwrites a variable.
func (e *Env) Set(name string, val int64) {
	e.bindings[name] = val
}

// Has checks whether a variable is defined.
func (e *Env) Has(name string) bool {
	_, ok := e.bindings[name]
	return ok
}

// Len returns the number of bound variables.
func (e *Env) Len() int {
	return len(e.bindings)
}

// Names returns the bound variable names in sorted order.
func (e *Env) Names() []string {
	names := make([]string, 0, len(e.bindings))
	for name := range e.bindings {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Snapshot returns a copy of the bindings.
func (e *Env) Snapshot() map[string]int64 {
	out := make(map[string]int64, len(e.bindings))
	for k, v := range e.bindings {
		out[k] = v
	}
	return out
}

// Package env provides a decoupled execution environment: a set of environment variables and a
// working directory held independently of the process's own, with helpers to resolve paths,
// open files and run commands against it. Typed views over individual variables (list, set and
// map shaped, see Special) can be registered to interpret structured values such as PATH.
//
// An Environment is not synchronized; callers sharing one across goroutines must provide their
// own locking.
package env

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Environment holds environment variables and a working directory decoupled from the process.
// Changes to the process environment after creation are not reflected.
type Environment struct {
	vars     map[string]string
	cwd      string
	specials map[string]SpecialFactory
	bound    map[string]Special
}

// New creates an environment from the given variables and working directory. A nil vars map
// starts the environment empty. An empty or relative dir is resolved against the process
// working directory.
func New(vars map[string]string, dir string) (*Environment, error) {
	if dir == "" {
		dir = "."
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve working directory %q (%w)", dir, err)
	}
	copied := make(map[string]string, len(vars))
	for name, value := range vars {
		copied[name] = value
	}
	return &Environment{
		vars:     copied,
		cwd:      absDir,
		specials: map[string]SpecialFactory{},
		bound:    map[string]Special{},
	}, nil
}

// System creates an environment from the current process environment and working directory.
func System() (*Environment, error) {
	vars := make(map[string]string)
	for _, entry := range os.Environ() {
		name, value, _ := strings.Cut(entry, "=")
		vars[name] = value
	}
	return New(vars, "")
}

// Clone returns a decoupled copy of the environment. Variables and view registrations carry
// over; view instances are bound fresh on first access so the copies cannot write into each
// other.
func (e *Environment) Clone() *Environment {
	vars := make(map[string]string, len(e.vars))
	for name, value := range e.vars {
		vars[name] = value
	}
	specials := make(map[string]SpecialFactory, len(e.specials))
	for name, factory := range e.specials {
		specials[name] = factory
	}
	return &Environment{
		vars:     vars,
		cwd:      e.cwd,
		specials: specials,
		bound:    map[string]Special{},
	}
}

// Get returns the raw value of an environment variable.
func (e *Environment) Get(name string) (string, bool) {
	value, ok := e.vars[name]
	return value, ok
}

// Set assigns an environment variable. If a view is registered for the variable, the
// assignment goes through the view so that it can normalize the representation.
func (e *Environment) Set(name string, value string) {
	if special, ok := e.Special(name); ok {
		special.Set(value)
		return
	}
	e.vars[name] = value
}

// Delete removes an environment variable. Deleting an unset variable is a no-op. If a view is
// registered for the variable, the deletion goes through the view so that it can drop its
// parsed state.
func (e *Environment) Delete(name string) {
	if special, ok := e.Special(name); ok {
		special.Delete()
		return
	}
	delete(e.vars, name)
}

// SetDefault assigns an environment variable unless it is already set, and returns the
// resulting value. The assignment goes through any registered view.
func (e *Environment) SetDefault(name string, value string) string {
	if _, ok := e.vars[name]; !ok {
		e.Set(name, value)
	}
	result, _ := e.Get(name)
	return result
}

// Names returns the names of all set environment variables, sorted.
func (e *Environment) Names() []string {
	names := make([]string, 0, len(e.vars))
	for name := range e.vars {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of set environment variables.
func (e *Environment) Len() int {
	return len(e.vars)
}

// Cwd returns the environment's working directory. It is always absolute.
func (e *Environment) Cwd() string {
	return e.cwd
}

// Chdir changes the environment's working directory. A relative dir is resolved against the
// current one. The process working directory is not touched.
func (e *Environment) Chdir(dir string) {
	e.cwd = e.Path(dir)
}

// Path resolves a file name to an absolute path relative to the environment's working
// directory.
func (e *Environment) Path(name string) string {
	if !filepath.IsAbs(name) {
		name = filepath.Join(e.cwd, name)
	}
	return filepath.Clean(name)
}

// Open opens a file relative to the environment's working directory.
func (e *Environment) Open(name string) (*os.File, error) {
	return os.Open(e.Path(name))
}

// Register installs a view factory for an environment variable, replacing and returning any
// previous registration. A nil factory unregisters. Any already bound view instance for the
// variable is discarded.
func (e *Environment) Register(name string, factory SpecialFactory) SpecialFactory {
	delete(e.bound, name)
	old := e.specials[name]
	if factory == nil {
		delete(e.specials, name)
	} else {
		e.specials[name] = factory
	}
	return old
}

// Special returns the view bound to an environment variable, if one is registered. The view is
// created on first access and cached until the registration changes.
func (e *Environment) Special(name string) (Special, bool) {
	if special, ok := e.bound[name]; ok {
		return special, true
	}
	factory, ok := e.specials[name]
	if !ok {
		return nil, false
	}
	special := factory(e, name)
	e.bound[name] = special
	return special, true
}

// setRaw and deleteRaw bypass registered views. They exist for the views themselves.
func (e *Environment) setRaw(name string, value string) {
	e.vars[name] = value
}

func (e *Environment) deleteRaw(name string) {
	delete(e.vars, name)
}

// environ renders the variables in the "name=value" form the os/exec package expects, sorted
// for deterministic invocations.
func (e *Environment) environ() []string {
	entries := make([]string, 0, len(e.vars))
	for name, value := range e.vars {
		entries = append(entries, name+"="+value)
	}
	sort.Strings(entries)
	return entries
}

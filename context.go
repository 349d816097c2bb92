package stepflow

import (
	"go.flow.arcalot.io/stepflow/env"
)

// DefaultContext is a ready-made execution context carrying the environment that shell
// commands run in and the data that step conditions are evaluated against. Both fields are
// optional; builtins that need a missing one fail the step with a descriptive error.
type DefaultContext struct {
	Environment *env.Environment
	Data        map[string]any
}

// Environ returns the environment commands run in.
func (c *DefaultContext) Environ() *env.Environment {
	return c.Environment
}

// StepData returns the data conditions are evaluated against.
func (c *DefaultContext) StepData() map[string]any {
	return c.Data
}

// NewDefaultContext creates an execution context from the calling process's environment
// variables and working directory.
func NewDefaultContext(data map[string]any) (*DefaultContext, error) {
	environ, err := env.System()
	if err != nil {
		return nil, err
	}
	return &DefaultContext{
		Environment: environ,
		Data:        data,
	}, nil
}

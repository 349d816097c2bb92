package stepflow

import "fmt"

// ErrEmptyStepsFile signals that the steps file contained no steps document.
var ErrEmptyStepsFile = fmt.Errorf("empty steps file")

// ErrInvalidStepsYAML signals that the steps file contains invalid YAML.
type ErrInvalidStepsYAML struct {
	Cause error
}

func (e ErrInvalidStepsYAML) Error() string {
	return fmt.Sprintf("invalid steps YAML (%v)", e.Cause)
}

func (e ErrInvalidStepsYAML) Unwrap() error {
	return e.Cause
}

// ErrNotStepList signals that the steps file does not contain a list of steps.
type ErrNotStepList struct {
	Actual string
}

func (e ErrNotStepList) Error() string {
	return fmt.Sprintf("the steps file does not contain a step list (found a %s)", e.Actual)
}

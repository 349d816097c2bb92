package step_test

import (
	"errors"
	"fmt"
	"testing"

	"go.arcalot.io/assert"
	"go.flow.arcalot.io/pluginsdk/schema"

	"go.flow.arcalot.io/stepflow/step"
)

type pathError struct {
	Message string
	Path    []any
}

func (p *pathError) Error() string {
	return p.Message
}

type opaqueError struct {
	Message string
	Path    []chan int
}

func (o *opaqueError) Error() string {
	return o.Message
}

func TestTranslateConstraintError(t *testing.T) {
	cause := &schema.ConstraintError{
		Message: "must be a positive integer",
		Path:    []string{"count"},
	}
	addr := step.NewAddress("steps.yaml").Key("steps").Index(0).Key("modifiers").Key("repeat")

	err := step.TranslateValidation(addr, cause)

	var validationError *step.ValidationError
	if !errors.As(err, &validationError) {
		t.Fatalf("Incorrect error returned.")
	}
	assert.Equals(
		t,
		validationError.Address.String(),
		"steps.yaml:steps[0].modifiers.repeat.count",
	)
	assert.Equals(t, validationError.Message, "must be a positive integer")
	if !errors.Is(err, cause) {
		t.Fatalf("The cause was not preserved.")
	}
}

func TestTranslateMixedPath(t *testing.T) {
	cause := &pathError{
		Message: "expected a string",
		Path:    []any{"cmd", 1},
	}
	addr := step.NewAddress("steps.yaml").Key("steps").Index(2).Key("action")

	err := step.TranslateValidation(addr, cause)

	var validationError *step.ValidationError
	if !errors.As(err, &validationError) {
		t.Fatalf("Incorrect error returned.")
	}
	assert.Equals(t, validationError.Address.String(), "steps.yaml:steps[2].action.cmd[1]")
}

func TestTranslateWrappedCause(t *testing.T) {
	inner := &schema.ConstraintError{
		Message: "value out of range",
		Path:    []string{"attempts"},
	}
	wrapped := fmt.Errorf("failed to create modifier (%w)", inner)
	addr := step.NewAddress("steps.yaml").Key("steps").Index(1).Key("modifiers").Key("retry")

	err := step.TranslateValidation(addr, wrapped)

	var validationError *step.ValidationError
	if !errors.As(err, &validationError) {
		t.Fatalf("Incorrect error returned.")
	}
	assert.Equals(
		t,
		validationError.Address.String(),
		"steps.yaml:steps[1].modifiers.retry.attempts",
	)
	// The full wrapped chain stays reachable.
	if !errors.Is(err, inner) {
		t.Fatalf("The cause was not preserved.")
	}
}

func TestTranslatePassthrough(t *testing.T) {
	plain := fmt.Errorf("something else went wrong")
	err := step.TranslateValidation(step.NewAddress("steps.yaml"), plain)
	if err != plain {
		t.Fatalf("A plain error must pass through unchanged.")
	}

	// A Path of unsupported element types does not qualify either.
	odd := &opaqueError{Message: "nope", Path: []chan int{make(chan int)}}
	err = step.TranslateValidation(step.NewAddress("steps.yaml"), odd)
	if err != error(odd) {
		t.Fatalf("An unrecognized error must pass through unchanged.")
	}
}

func TestTranslateNil(t *testing.T) {
	assert.Nil(t, step.TranslateValidation(step.NewAddress("steps.yaml"), nil))
}

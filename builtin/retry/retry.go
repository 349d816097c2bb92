// Package retry provides the modifier that reruns a failing step until it succeeds or the
// attempts are exhausted.
package retry

import (
	"fmt"

	log "go.arcalot.io/log/v2"
	"go.flow.arcalot.io/pluginsdk/schema"

	"go.flow.arcalot.io/stepflow/step"
)

// New creates the provider for the "retry" modifier kind.
func New(logger log.Logger) (step.ModifierProvider, error) {
	if logger == nil {
		return nil, fmt.Errorf("bug: no logger passed to retry.New")
	}
	return &retryProvider{
		logger: logger.WithLabel("source", "retry-provider"),
	}, nil
}

type retryProvider struct {
	logger log.Logger
}

func (p *retryProvider) Descriptor() step.ModifierDescriptor {
	return step.ModifierDescriptor{
		Kind: "retry",
		Prohibited: map[string]struct{}{
			"repeat": {},
		},
	}
}

type retryConfig struct {
	Attempts int64 `json:"attempts"`
}

func getRetrySchema() *schema.TypedScopeSchema[*retryConfig] {
	return schema.NewTypedScopeSchema[*retryConfig](
		schema.NewStructMappedObjectSchema[*retryConfig](
			"Retry",
			map[string]*schema.PropertySchema{
				"attempts": schema.NewPropertySchema(
					schema.NewIntSchema(schema.IntPointer(1), nil, nil),
					schema.NewDisplayValue(
						schema.PointerTo("Attempts"),
						schema.PointerTo("How many times to run the step before giving up."),
						nil,
					),
					true,
					nil,
					nil,
					nil,
					nil,
					[]string{"3"},
				),
			},
		),
	)
}

func (p *retryProvider) Create(value any, addr step.Address) (step.Modifier, error) {
	mapping, ok := value.(map[string]any)
	if !ok {
		return nil, &step.ValidationError{
			Address: addr,
			Message: fmt.Sprintf("retry expects a mapping with the attempts, got %T", value),
		}
	}
	cfg, err := getRetrySchema().UnserializeType(mapping)
	if err != nil {
		return nil, step.TranslateValidation(addr, err)
	}
	return &retryModifier{
		logger:   p.logger,
		attempts: cfg.Attempts,
	}, nil
}

type retryModifier struct {
	logger   log.Logger
	attempts int64
}

// Pre runs the inner remainder of the chain until it succeeds or the attempts are exhausted,
// then continues with the outcome of the last run.
func (m *retryModifier) Pre(ectx any, inv step.Invocation) (step.Verdict, error) {
	for attempt := int64(1); ; attempt++ {
		outcome := inv.Evaluate(ectx)
		if !outcome.Failed() {
			return step.Continue(), nil
		}
		if attempt >= m.attempts {
			m.logger.Debugf(
				"Step %s failed after %d attempts: %s",
				inv.Step().Address(),
				attempt,
				outcome.Failure().Error(),
			)
			return step.Continue(), nil
		}
		m.logger.Debugf(
			"Attempt %d of step %s failed, retrying: %s",
			attempt,
			inv.Step().Address(),
			outcome.Failure().Error(),
		)
	}
}

func (m *retryModifier) Post(_ any, _ step.Invocation, outcome step.Outcome) step.Outcome {
	return outcome
}

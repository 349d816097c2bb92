// Package repeat provides the modifier that runs a step a fixed number of times and collects
// the results.
package repeat

import (
	"fmt"

	log "go.arcalot.io/log/v2"
	"go.flow.arcalot.io/pluginsdk/schema"

	"go.flow.arcalot.io/stepflow/step"
)

// New creates the provider for the "repeat" modifier kind.
func New(logger log.Logger) (step.ModifierProvider, error) {
	if logger == nil {
		return nil, fmt.Errorf("bug: no logger passed to repeat.New")
	}
	return &repeatProvider{
		logger: logger.WithLabel("source", "repeat-provider"),
	}, nil
}

type repeatProvider struct {
	logger log.Logger
}

func (p *repeatProvider) Descriptor() step.ModifierDescriptor {
	return step.ModifierDescriptor{
		Kind: "repeat",
		Prohibited: map[string]struct{}{
			"retry": {},
		},
	}
}

type repeatConfig struct {
	Count int64 `json:"count"`
}

func getRepeatSchema() *schema.TypedScopeSchema[*repeatConfig] {
	return schema.NewTypedScopeSchema[*repeatConfig](
		schema.NewStructMappedObjectSchema[*repeatConfig](
			"Repeat",
			map[string]*schema.PropertySchema{
				"count": schema.NewPropertySchema(
					schema.NewIntSchema(schema.IntPointer(0), nil, nil),
					schema.NewDisplayValue(
						schema.PointerTo("Count"),
						schema.PointerTo("How many times to run the step."),
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

func (p *repeatProvider) Create(value any, addr step.Address) (step.Modifier, error) {
	mapping, ok := value.(map[string]any)
	if !ok {
		return nil, &step.ValidationError{
			Address: addr,
			Message: fmt.Sprintf("repeat expects a mapping with a count, got %T", value),
		}
	}
	cfg, err := getRepeatSchema().UnserializeType(mapping)
	if err != nil {
		return nil, step.TranslateValidation(addr, err)
	}
	return &repeatModifier{
		logger: p.logger,
		count:  cfg.Count,
	}, nil
}

type repeatModifier struct {
	logger log.Logger
	count  int64
}

// Pre runs the inner remainder of the chain count times and aborts with the collected
// results. A failing run stops the loop and propagates its failure.
func (m *repeatModifier) Pre(ectx any, inv step.Invocation) (step.Verdict, error) {
	values := make([]any, 0, m.count)
	for i := int64(0); i < m.count; i++ {
		m.logger.Debugf("Running step %s (%d/%d)", inv.Step().Address(), i+1, m.count)
		outcome := inv.Evaluate(ectx)
		if outcome.Failed() {
			return step.Continue(), outcome.Failure()
		}
		values = append(values, outcome.Value())
	}
	return step.AbortWithResult(values), nil
}

func (m *repeatModifier) Post(_ any, _ step.Invocation, outcome step.Outcome) step.Outcome {
	return outcome
}

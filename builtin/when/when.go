// Package when provides the conditional modifier that skips steps whose condition does not
// hold.
package when

import (
	"fmt"
	"strings"

	log "go.arcalot.io/log/v2"
	"go.flow.arcalot.io/expressions"

	"go.flow.arcalot.io/stepflow/internal/expr"
	"go.flow.arcalot.io/stepflow/step"
)

// StepData is the optional interface of the execution context that supplies the data
// condition expressions are evaluated against.
type StepData interface {
	StepData() map[string]any
}

// New creates the provider for the "when" modifier kind.
func New(logger log.Logger) (step.ModifierProvider, error) {
	if logger == nil {
		return nil, fmt.Errorf("bug: no logger passed to when.New")
	}
	return &whenProvider{
		logger: logger.WithLabel("source", "when-provider"),
	}, nil
}

type whenProvider struct {
	logger log.Logger
}

func (p *whenProvider) Descriptor() step.ModifierDescriptor {
	return step.ModifierDescriptor{
		Kind: "when",
		Before: map[string]struct{}{
			"env":    {},
			"repeat": {},
			"retry":  {},
		},
	}
}

func (p *whenProvider) Create(value any, addr step.Address) (step.Modifier, error) {
	switch typed := value.(type) {
	case bool:
		return &whenModifier{logger: p.logger, value: typed}, nil
	case string:
		switch typed {
		case "true":
			return &whenModifier{logger: p.logger, value: true}, nil
		case "false":
			return &whenModifier{logger: p.logger, value: false}, nil
		}
		if strings.HasPrefix(typed, "$") {
			node, err := expr.Compile(typed, addr.Source())
			if err != nil {
				return nil, &step.ValidationError{
					Address: addr,
					Message: fmt.Sprintf("invalid condition expression %q: %s", typed, err.Error()),
					Cause:   err,
				}
			}
			return &whenModifier{logger: p.logger, expression: typed, node: node}, nil
		}
		return nil, &step.ValidationError{
			Address: addr,
			Message: fmt.Sprintf(
				"invalid condition %q, expected \"true\", \"false\", or a $-rooted expression",
				typed,
			),
		}
	default:
		return nil, &step.ValidationError{
			Address: addr,
			Message: fmt.Sprintf("unsupported condition type %T, expected a boolean or a string", value),
		}
	}
}

type whenModifier struct {
	logger     log.Logger
	expression string
	node       expressions.ASTNode
	value      bool
}

func (m *whenModifier) Pre(ectx any, inv step.Invocation) (step.Verdict, error) {
	met, err := m.condition(ectx)
	if err != nil {
		return step.Continue(), err
	}
	if !met {
		m.logger.Debugf("Condition not met, skipping step %s", inv.Step().Address())
		return step.Abort(), nil
	}
	return step.Continue(), nil
}

func (m *whenModifier) Post(_ any, _ step.Invocation, outcome step.Outcome) step.Outcome {
	return outcome
}

func (m *whenModifier) condition(ectx any) (bool, error) {
	if m.node == nil {
		return m.value, nil
	}
	provider, ok := ectx.(StepData)
	if !ok {
		return false, fmt.Errorf(
			"the execution context provides no step data to evaluate condition %q against",
			m.expression,
		)
	}
	value, err := expr.Evaluate(m.node, provider.StepData())
	if err != nil {
		return false, fmt.Errorf("failed to evaluate condition %q (%w)", m.expression, err)
	}
	return expr.Truthy(value), nil
}

// Package stepflow assembles the step parsing and execution engine behind a facade that
// consumes YAML step files.
package stepflow

import (
	"fmt"

	log "go.arcalot.io/log/v2"

	"go.flow.arcalot.io/stepflow/config"
	"go.flow.arcalot.io/stepflow/internal/yaml"
	"go.flow.arcalot.io/stepflow/step"
)

// StepEngine parses step files and runs their steps.
type StepEngine interface {
	// Parse parses the YAML step list in data into executable steps. The source name tags
	// the step addresses in diagnostics. The parse context is handed to eager actions.
	Parse(data []byte, source string, pctx any) ([]*step.Step, error)

	// Run parses the YAML step list in data and invokes each step in order against the
	// execution context, collecting the step results. The context is also handed to eager
	// actions at parse time. The first failing step stops the run with an error naming the
	// step's address.
	Run(data []byte, source string, ectx any) ([]any, error)
}

type stepEngine struct {
	logger log.Logger
	config *config.Config
	parser step.Parser
}

func (e *stepEngine) Parse(data []byte, source string, pctx any) ([]*step.Step, error) {
	configs, addr, err := e.loadSteps(data, source)
	if err != nil {
		return nil, err
	}
	return e.parser.ParseList(configs, addr, pctx)
}

func (e *stepEngine) Run(data []byte, source string, ectx any) ([]any, error) {
	steps, err := e.Parse(data, source, ectx)
	if err != nil {
		return nil, err
	}
	e.logger.Debugf("Parsed %d steps from %s", len(steps), source)
	results := make([]any, 0, len(steps))
	for _, parsed := range steps {
		e.logger.Debugf("Running step %s...", parsed.Address())
		result, err := parsed.Invoke(ectx)
		if err != nil {
			return nil, fmt.Errorf("step %s failed (%w)", parsed.Address(), err)
		}
		results = append(results, result)
	}
	return results, nil
}

// loadSteps parses the YAML document into ordered step configurations rooted at the source's
// steps address.
func (e *stepEngine) loadSteps(data []byte, source string) ([]*step.Config, step.Address, error) {
	addr := step.NewAddress(source).Key("steps")
	if len(data) == 0 {
		return nil, addr, ErrEmptyStepsFile
	}
	node, err := yaml.New().Parse(data)
	if err != nil {
		return nil, addr, &ErrInvalidStepsYAML{err}
	}
	if node.Type() == yaml.TypeIDString && node.Tag() == "!!null" {
		return nil, addr, ErrEmptyStepsFile
	}
	if node.Type() != yaml.TypeIDSequence {
		return nil, addr, &ErrNotStepList{Actual: string(node.Type())}
	}
	items := node.Contents()
	configs := make([]*step.Config, len(items))
	for i, item := range items {
		if item.Type() != yaml.TypeIDMap {
			return nil, addr, &step.ParseError{
				Address: addr.Index(i),
				Message: fmt.Sprintf("step configuration is not a mapping (%s)", item.Type()),
			}
		}
		cfg := step.NewConfig()
		for _, key := range item.MapKeys() {
			valueNode, _ := item.MapKey(key)
			cfg.Set(key, valueNode.Raw())
		}
		configs[i] = cfg
	}
	return configs, addr, nil
}

// Package include provides the eager action that splices steps from other files into the
// step list being parsed.
package include

import (
	"fmt"

	log "go.arcalot.io/log/v2"

	"go.flow.arcalot.io/stepflow/internal/yaml"
	"go.flow.arcalot.io/stepflow/loadfile"
	"go.flow.arcalot.io/stepflow/step"
)

// New creates the provider for the "include" action kind. File paths are resolved and read
// through the provided cache.
func New(logger log.Logger, files loadfile.FileCache) (step.ActionProvider, error) {
	if logger == nil {
		return nil, fmt.Errorf("bug: no logger passed to include.New")
	}
	if files == nil {
		return nil, fmt.Errorf("bug: no file cache passed to include.New")
	}
	return &includeProvider{
		logger: logger.WithLabel("source", "include-provider"),
		files:  files,
	}, nil
}

type includeProvider struct {
	logger log.Logger
	files  loadfile.FileCache
}

func (p *includeProvider) Descriptor() step.ActionDescriptor {
	return step.ActionDescriptor{
		Kind:  "include",
		Eager: true,
	}
}

func (p *includeProvider) Create(value any, addr step.Address) (step.Action, error) {
	path, ok := value.(string)
	if !ok {
		return nil, &step.ValidationError{
			Address: addr,
			Message: fmt.Sprintf("include expects a file path, got %T", value),
		}
	}
	if path == "" {
		return nil, &step.ValidationError{
			Address: addr,
			Message: "include expects a non-empty file path",
		}
	}
	return &includeAction{
		logger: p.logger,
		files:  p.files,
		path:   path,
	}, nil
}

type includeAction struct {
	logger log.Logger
	files  loadfile.FileCache
	path   string
}

// Call runs at parse time and returns the included file's steps as replacement
// configurations. An empty file contributes no steps.
func (a *includeAction) Call(_ any) (any, error) {
	content, err := a.files.Load(a.path)
	if err != nil {
		return nil, fmt.Errorf("failed to load included file %q (%w)", a.path, err)
	}
	node, err := yaml.New().Parse(content)
	if err != nil {
		return nil, fmt.Errorf("failed to parse included file %q (%w)", a.path, err)
	}
	if node.Type() == yaml.TypeIDString && node.Tag() == "!!null" {
		a.logger.Debugf("Included file %q is empty, contributing no steps", a.path)
		return nil, nil
	}
	if node.Type() != yaml.TypeIDSequence {
		return nil, fmt.Errorf("included file %q does not contain a step list", a.path)
	}
	items := node.Contents()
	configs := make([]*step.Config, len(items))
	for i, item := range items {
		if item.Type() != yaml.TypeIDMap {
			return nil, fmt.Errorf("step %d in included file %q is not a mapping", i, a.path)
		}
		cfg := step.NewConfig()
		for _, key := range item.MapKeys() {
			valueNode, _ := item.MapKey(key)
			cfg.Set(key, valueNode.Raw())
		}
		configs[i] = cfg
	}
	a.logger.Debugf("Included file %q contributed %d steps", a.path, len(configs))
	return configs, nil
}

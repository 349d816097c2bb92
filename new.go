package stepflow

import (
	log "go.arcalot.io/log/v2"

	"go.flow.arcalot.io/stepflow/builtin/envmod"
	"go.flow.arcalot.io/stepflow/builtin/include"
	"go.flow.arcalot.io/stepflow/builtin/repeat"
	"go.flow.arcalot.io/stepflow/builtin/retry"
	"go.flow.arcalot.io/stepflow/builtin/shell"
	"go.flow.arcalot.io/stepflow/builtin/when"
	"go.flow.arcalot.io/stepflow/config"
	"go.flow.arcalot.io/stepflow/env"
	"go.flow.arcalot.io/stepflow/loadfile"
	"go.flow.arcalot.io/stepflow/registry"
	"go.flow.arcalot.io/stepflow/step"
)

// New creates a step engine with the provided configuration, resolving step configuration
// keys against the passed registry.
func New(cfg *config.Config, reg step.Registry) (StepEngine, error) {
	logger := log.New(cfg.Log)
	parser, err := step.NewParser(logger, reg, step.Options{
		MetadataKeys:   cfg.MetadataKeys,
		MaxExpandDepth: int(cfg.MaxExpandDepth),
	})
	if err != nil {
		return nil, err
	}
	return &stepEngine{
		logger: logger,
		config: cfg,
		parser: parser,
	}, nil
}

// NewDefaultRegistry creates a registry holding the builtin action and modifier providers.
// The environment is the fallback for shell commands, and the root directory anchors
// relative include paths.
func NewDefaultRegistry(logger log.Logger, environ *env.Environment, rootDir string) (step.Registry, error) {
	files, err := loadfile.New(rootDir)
	if err != nil {
		return nil, err
	}
	shellProvider, err := shell.New(logger, environ)
	if err != nil {
		return nil, err
	}
	includeProvider, err := include.New(logger, files)
	if err != nil {
		return nil, err
	}
	whenProvider, err := when.New(logger)
	if err != nil {
		return nil, err
	}
	envProvider, err := envmod.New(logger)
	if err != nil {
		return nil, err
	}
	repeatProvider, err := repeat.New(logger)
	if err != nil {
		return nil, err
	}
	retryProvider, err := retry.New(logger)
	if err != nil {
		return nil, err
	}
	return registry.New(
		[]step.ActionProvider{
			shellProvider,
			includeProvider,
		},
		[]step.ModifierProvider{
			whenProvider,
			envProvider,
			repeatProvider,
			retryProvider,
		},
	)
}

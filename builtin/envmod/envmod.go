// Package envmod provides the modifier that adjusts environment variables around a step and
// restores them afterwards.
package envmod

import (
	"fmt"
	"sort"

	log "go.arcalot.io/log/v2"
	"go.flow.arcalot.io/pluginsdk/schema"

	"go.flow.arcalot.io/stepflow/env"
	"go.flow.arcalot.io/stepflow/internal/util"
	"go.flow.arcalot.io/stepflow/redact"
	"go.flow.arcalot.io/stepflow/step"
)

// Environ is the optional interface of the execution context that supplies the environment
// the modifier adjusts.
type Environ interface {
	Environ() *env.Environment
}

// New creates the provider for the "env" modifier kind.
func New(logger log.Logger) (step.ModifierProvider, error) {
	if logger == nil {
		return nil, fmt.Errorf("bug: no logger passed to envmod.New")
	}
	return &envProvider{
		logger: logger.WithLabel("source", "env-provider"),
	}, nil
}

type envProvider struct {
	logger log.Logger
}

func (p *envProvider) Descriptor() step.ModifierDescriptor {
	return step.ModifierDescriptor{
		Kind: "env",
		Restriction: map[string]struct{}{
			"shell": {},
		},
		Before: map[string]struct{}{
			"repeat": {},
			"retry":  {},
		},
	}
}

type envConfig struct {
	Vars   map[string]string `json:"vars"`
	Unset  []string          `json:"unset"`
	Secret []string          `json:"secret"`
}

func getEnvSchema() *schema.TypedScopeSchema[*envConfig] {
	variableName := schema.NewStringSchema(schema.IntPointer(1), nil, nil)
	return schema.NewTypedScopeSchema[*envConfig](
		schema.NewStructMappedObjectSchema[*envConfig](
			"Env",
			map[string]*schema.PropertySchema{
				"vars": schema.NewPropertySchema(
					schema.NewMapSchema(
						variableName,
						schema.NewStringSchema(nil, nil, nil),
						nil,
						nil,
					),
					schema.NewDisplayValue(
						schema.PointerTo("Variables"),
						schema.PointerTo("Variables to set while the step runs."),
						nil,
					),
					false,
					nil,
					nil,
					nil,
					schema.PointerTo(util.JSONEncode(map[string]string{})),
					nil,
				),
				"unset": schema.NewPropertySchema(
					schema.NewListSchema(variableName, nil, nil),
					schema.NewDisplayValue(
						schema.PointerTo("Unset variables"),
						schema.PointerTo("Variables to remove while the step runs."),
						nil,
					),
					false,
					nil,
					nil,
					nil,
					schema.PointerTo(util.JSONEncode([]string{})),
					nil,
				),
				"secret": schema.NewPropertySchema(
					schema.NewListSchema(variableName, nil, nil),
					schema.NewDisplayValue(
						schema.PointerTo("Secret variables"),
						schema.PointerTo("Variables whose values are redacted from log output."),
						nil,
					),
					false,
					nil,
					nil,
					nil,
					schema.PointerTo(util.JSONEncode([]string{})),
					nil,
				),
			},
		),
	)
}

func (p *envProvider) Create(value any, addr step.Address) (step.Modifier, error) {
	mapping, ok := value.(map[string]any)
	if !ok {
		return nil, &step.ValidationError{
			Address: addr,
			Message: fmt.Sprintf("env expects a mapping with the variables, got %T", value),
		}
	}
	cfg, err := getEnvSchema().UnserializeType(mapping)
	if err != nil {
		return nil, step.TranslateValidation(addr, err)
	}
	return &envModifier{
		logger: p.logger,
		cfg:    cfg,
		masked: redact.Keys(cfg.Secret...),
	}, nil
}

type envModifier struct {
	logger log.Logger
	cfg    *envConfig
	masked redact.KeySet

	// saved holds the state before Pre applied the overrides, nil entries for variables
	// that were not set. It lives on the modifier, so concurrent invocations of the same
	// step are not safe.
	saved map[string]*string
}

func (m *envModifier) Pre(ectx any, inv step.Invocation) (step.Verdict, error) {
	environ := environOf(ectx)
	if environ == nil {
		return step.Continue(), fmt.Errorf("the execution context provides no environment to modify")
	}

	saved := map[string]*string{}
	remember := func(name string) {
		if _, ok := saved[name]; ok {
			return
		}
		if previous, ok := environ.Get(name); ok {
			value := previous
			saved[name] = &value
		} else {
			saved[name] = nil
		}
	}

	applied := make(map[string]any, len(m.cfg.Vars))
	for _, name := range sortedNames(m.cfg.Vars) {
		remember(name)
		environ.Set(name, m.cfg.Vars[name])
		applied[name] = m.cfg.Vars[name]
	}
	for _, name := range m.cfg.Unset {
		remember(name)
		environ.Delete(name)
	}
	m.saved = saved

	m.logger.Debugf(
		"Applying environment overrides for step %s: %v (unset: %v)",
		inv.Step().Address(),
		redact.NewMap(applied, m.masked).Snapshot(),
		m.cfg.Unset,
	)
	return step.Continue(), nil
}

func (m *envModifier) Post(ectx any, inv step.Invocation, outcome step.Outcome) step.Outcome {
	environ := environOf(ectx)
	if environ == nil || m.saved == nil {
		return outcome
	}
	names := make([]string, 0, len(m.saved))
	for name := range m.saved {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if value := m.saved[name]; value != nil {
			environ.Set(name, *value)
		} else {
			environ.Delete(name)
		}
	}
	m.saved = nil
	m.logger.Debugf("Restored the environment after step %s", inv.Step().Address())
	return outcome
}

func environOf(ectx any) *env.Environment {
	provider, ok := ectx.(Environ)
	if !ok {
		return nil
	}
	return provider.Environ()
}

func sortedNames(vars map[string]string) []string {
	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

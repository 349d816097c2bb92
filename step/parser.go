package step

import (
	"errors"
	"fmt"
	"strings"

	log "go.arcalot.io/log/v2"

	"go.flow.arcalot.io/stepflow/internal/order"
)

// DefaultMaxExpandDepth is the eager expansion depth limit applied when Options.MaxExpandDepth
// is zero.
const DefaultMaxExpandDepth = 32

// Options holds the parsing options.
type Options struct {
	// MetadataKeys are configuration keys collected as step metadata. They are never resolved
	// against the registry.
	MetadataKeys []string
	// MaxExpandDepth limits how deeply eager-action expansions may nest. Zero applies
	// DefaultMaxExpandDepth.
	MaxExpandDepth int
}

// Parser decomposes raw step configurations into executable Steps.
type Parser interface {
	// ParseStep parses a single step configuration located at the provided address. For an eager
	// step, the action is invoked with pctx and the replacement configurations it produced are
	// returned alongside the step.
	ParseStep(cfg *Config, addr Address, pctx any) (*Step, []*Config, error)

	// ParseList parses a list of step configurations located at the provided address, replacing
	// eager steps in place with their recursively parsed replacement configurations. The first
	// error aborts the whole call without a partial result.
	ParseList(cfgs []*Config, addr Address, pctx any) ([]*Step, error)
}

// NewParser creates a Parser resolving keys against the provided registry.
func NewParser(logger log.Logger, registry Registry, options Options) (Parser, error) {
	if logger == nil {
		return nil, fmt.Errorf("bug: no logger passed to NewParser")
	}
	if registry == nil {
		return nil, fmt.Errorf("bug: no registry passed to NewParser")
	}
	metadataKeys := make(map[string]struct{}, len(options.MetadataKeys))
	for _, key := range options.MetadataKeys {
		metadataKeys[key] = struct{}{}
	}
	maxExpandDepth := options.MaxExpandDepth
	if maxExpandDepth <= 0 {
		maxExpandDepth = DefaultMaxExpandDepth
	}
	return &parser{
		logger:         logger.WithLabel("source", "step-parser"),
		registry:       registry,
		metadataKeys:   metadataKeys,
		maxExpandDepth: maxExpandDepth,
	}, nil
}

type parser struct {
	logger         log.Logger
	registry       Registry
	metadataKeys   map[string]struct{}
	maxExpandDepth int
}

func (p *parser) ParseStep(cfg *Config, addr Address, pctx any) (*Step, []*Config, error) {
	if cfg == nil || cfg.Len() == 0 {
		return nil, nil, &ParseError{
			Address: addr,
			Message: "step configuration is empty, expected an action key",
		}
	}

	// Partition the keys in document order.
	metadata := map[string]any{}
	type pendingModifier struct {
		kind     string
		value    any
		provider ModifierProvider
	}
	var pending []pendingModifier
	var remainder []string
	for _, key := range cfg.Keys() {
		value, _ := cfg.Get(key)
		if _, ok := p.metadataKeys[key]; ok {
			metadata[key] = value
			continue
		}
		if provider, ok := p.registry.ResolveModifier(key); ok {
			pending = append(pending, pendingModifier{key, value, provider})
			continue
		}
		remainder = append(remainder, key)
	}

	// After metadata and modifiers, exactly one key may remain, naming the action.
	switch {
	case len(remainder) == 0:
		return nil, nil, &ParseError{
			Address: addr,
			Message: "no action found in step configuration",
		}
	case len(remainder) > 1:
		return nil, nil, &ParseError{
			Address: addr,
			Message: fmt.Sprintf(
				"multiple possible actions found in step configuration: %s",
				strings.Join(remainder, ", "),
			),
		}
	}
	actionKind := remainder[0]
	actionProvider, ok := p.registry.ResolveAction(actionKind)
	if !ok {
		return nil, nil, &ParseError{
			Address: addr,
			Message: fmt.Sprintf("unknown action %q in step configuration", actionKind),
		}
	}
	actionDescriptor := actionProvider.Descriptor()
	actionAddr := addr.Key("action")
	actionValue, _ := cfg.Get(actionKind)
	action, err := actionProvider.Create(actionValue, actionAddr)
	if err != nil {
		return nil, nil, wrapValidation(err, actionAddr)
	}

	// Construct and validate the modifiers, checking their placement restrictions.
	bound := make([]boundModifier, len(pending))
	items := make([]order.Item, len(pending))
	for i, pm := range pending {
		descriptor := pm.provider.Descriptor()
		if len(descriptor.Restriction) > 0 {
			if _, ok := descriptor.Restriction[actionKind]; !ok {
				return nil, nil, &ParseError{
					Address: addr,
					Message: fmt.Sprintf(
						"modifier %q cannot be applied to action %q",
						pm.kind,
						actionKind,
					),
				}
			}
		}
		modAddr := addr.Key("modifiers").Key(pm.kind)
		modifier, err := pm.provider.Create(pm.value, modAddr)
		if err != nil {
			return nil, nil, wrapValidation(err, modAddr)
		}
		bound[i] = boundModifier{
			kind:     pm.kind,
			address:  modAddr,
			modifier: modifier,
		}
		items[i] = order.Item{
			Kind:       pm.kind,
			Before:     descriptor.Before,
			After:      descriptor.After,
			Required:   descriptor.Required,
			Prohibited: descriptor.Prohibited,
		}
	}

	// Resolve the modifier execution order.
	ordered, err := order.Resolve(items)
	if err != nil {
		return nil, nil, &ParseError{
			Address: addr,
			Message: err.Error(),
			Cause:   err,
		}
	}
	modifiers := make([]boundModifier, len(ordered))
	for i, index := range ordered {
		modifiers[i] = bound[index]
	}

	parsed := &Step{
		address:   addr,
		metadata:  metadata,
		modifiers: modifiers,
		action: boundAction{
			kind:    actionKind,
			address: actionAddr,
			eager:   actionDescriptor.Eager,
			action:  action,
		},
	}
	if !actionDescriptor.Eager {
		return parsed, nil, nil
	}

	// Eager actions run now; their result is the replacement configuration list.
	replacements, err := p.expand(parsed, pctx)
	if err != nil {
		return nil, nil, err
	}
	p.logger.Debugf("Expanded eager step %s into %d replacement steps", addr, len(replacements))
	return parsed, replacements, nil
}

func (p *parser) ParseList(cfgs []*Config, addr Address, pctx any) ([]*Step, error) {
	return p.parseList(cfgs, addr, pctx, 0)
}

func (p *parser) parseList(cfgs []*Config, addr Address, pctx any, depth int) ([]*Step, error) {
	if depth > p.maxExpandDepth {
		return nil, &ParseError{
			Address: addr,
			Message: fmt.Sprintf(
				"step expansion exceeds %d levels, aborting (is there an expansion cycle?)",
				p.maxExpandDepth,
			),
		}
	}
	var steps []*Step
	for i, cfg := range cfgs {
		parsed, replacements, err := p.ParseStep(cfg, addr.Index(i), pctx)
		if err != nil {
			return nil, err
		}
		if parsed.Eager() {
			expanded, err := p.parseList(replacements, addr.Index(i), pctx, depth+1)
			if err != nil {
				return nil, err
			}
			steps = append(steps, expanded...)
			continue
		}
		steps = append(steps, parsed)
	}
	return steps, nil
}

func (p *parser) expand(parsed *Step, pctx any) ([]*Config, error) {
	value, err := parsed.action.action.Call(pctx)
	if err != nil {
		var parseErr *ParseError
		var validationErr *ValidationError
		if errors.As(err, &parseErr) || errors.As(err, &validationErr) {
			return nil, err
		}
		return nil, &ParseError{
			Address: parsed.action.address,
			Message: fmt.Sprintf("eager action %q failed: %s", parsed.action.kind, err.Error()),
			Cause:   err,
		}
	}
	switch typed := value.(type) {
	case nil:
		return nil, nil
	case []*Config:
		return typed, nil
	default:
		return nil, &ParseError{
			Address: parsed.action.address,
			Message: fmt.Sprintf(
				"eager action %q returned %T, expected replacement step configurations",
				parsed.action.kind,
				value,
			),
		}
	}
}

// wrapValidation passes through errors that already carry an address and wraps everything else
// into a ValidationError at the provided address.
func wrapValidation(err error, addr Address) error {
	var parseErr *ParseError
	var validationErr *ValidationError
	if errors.As(err, &parseErr) || errors.As(err, &validationErr) {
		return err
	}
	return &ValidationError{
		Address: addr,
		Message: err.Error(),
		Cause:   err,
	}
}

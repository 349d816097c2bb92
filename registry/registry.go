// Package registry provides the standard step registry, joining action and modifier providers
// together.
package registry

import (
	"go.flow.arcalot.io/stepflow/step"
)

// New creates a new step registry from the specified providers. Action and modifier kinds live
// in separate namespaces; the parser checks modifier kinds first when partitioning a step
// configuration, so a kind registered as both would shadow the action.
func New(actions []step.ActionProvider, modifiers []step.ModifierProvider) (step.Registry, error) {
	actionProviders := make(map[string]step.ActionProvider, len(actions))
	for _, provider := range actions {
		kind := provider.Descriptor().Kind
		if _, ok := actionProviders[kind]; ok {
			return nil, &ErrDuplicateActionKind{
				kind,
			}
		}
		actionProviders[kind] = provider
	}
	modifierProviders := make(map[string]step.ModifierProvider, len(modifiers))
	for _, provider := range modifiers {
		kind := provider.Descriptor().Kind
		if _, ok := modifierProviders[kind]; ok {
			return nil, &ErrDuplicateModifierKind{
				kind,
			}
		}
		modifierProviders[kind] = provider
	}
	return &stepRegistry{
		actionProviders,
		modifierProviders,
	}, nil
}

type stepRegistry struct {
	actions   map[string]step.ActionProvider
	modifiers map[string]step.ModifierProvider
}

func (s stepRegistry) ResolveAction(kind string) (step.ActionProvider, bool) {
	provider, ok := s.actions[kind]
	return provider, ok
}

func (s stepRegistry) ResolveModifier(kind string) (step.ModifierProvider, bool) {
	provider, ok := s.modifiers[kind]
	return provider, ok
}

func (s stepRegistry) ListActions() map[string]step.ActionProvider {
	return s.actions
}

func (s stepRegistry) ListModifiers() map[string]step.ModifierProvider {
	return s.modifiers
}

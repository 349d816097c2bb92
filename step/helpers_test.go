package step_test

import (
	"testing"

	log "go.arcalot.io/log/v2"

	"go.flow.arcalot.io/stepflow/step"
)

// journal records hook and action executions in order, so tests can assert the exact chain
// traversal.
type journal struct {
	entries []string
}

func (j *journal) record(entry string) {
	j.entries = append(j.entries, entry)
}

type testRegistry struct {
	actions   map[string]step.ActionProvider
	modifiers map[string]step.ModifierProvider
}

func newTestRegistry(actions []step.ActionProvider, modifiers []step.ModifierProvider) *testRegistry {
	result := &testRegistry{
		actions:   map[string]step.ActionProvider{},
		modifiers: map[string]step.ModifierProvider{},
	}
	for _, provider := range actions {
		result.actions[provider.Descriptor().Kind] = provider
	}
	for _, provider := range modifiers {
		result.modifiers[provider.Descriptor().Kind] = provider
	}
	return result
}

func (r *testRegistry) ResolveAction(kind string) (step.ActionProvider, bool) {
	provider, ok := r.actions[kind]
	return provider, ok
}

func (r *testRegistry) ResolveModifier(kind string) (step.ModifierProvider, bool) {
	provider, ok := r.modifiers[kind]
	return provider, ok
}

func (r *testRegistry) ListActions() map[string]step.ActionProvider {
	return r.actions
}

func (r *testRegistry) ListModifiers() map[string]step.ModifierProvider {
	return r.modifiers
}

type testActionProvider struct {
	descriptor step.ActionDescriptor
	create     func(value any, addr step.Address) (step.Action, error)
	journal    *journal
	call       func(ectx any) (any, error)
}

func (p *testActionProvider) Descriptor() step.ActionDescriptor {
	return p.descriptor
}

func (p *testActionProvider) Create(value any, addr step.Address) (step.Action, error) {
	if p.create != nil {
		return p.create(value, addr)
	}
	return &testAction{
		kind:    p.descriptor.Kind,
		journal: p.journal,
		call:    p.call,
	}, nil
}

type testAction struct {
	kind    string
	journal *journal
	call    func(ectx any) (any, error)
}

func (a *testAction) Call(ectx any) (any, error) {
	if a.journal != nil {
		a.journal.record("action:" + a.kind)
	}
	if a.call != nil {
		return a.call(ectx)
	}
	return a.kind, nil
}

type testModifierProvider struct {
	descriptor step.ModifierDescriptor
	create     func(value any, addr step.Address) (step.Modifier, error)
	journal    *journal
	pre        func(ectx any, inv step.Invocation) (step.Verdict, error)
	post       func(ectx any, inv step.Invocation, outcome step.Outcome) step.Outcome
}

func (p *testModifierProvider) Descriptor() step.ModifierDescriptor {
	return p.descriptor
}

func (p *testModifierProvider) Create(value any, addr step.Address) (step.Modifier, error) {
	if p.create != nil {
		return p.create(value, addr)
	}
	return &testModifier{
		kind:    p.descriptor.Kind,
		journal: p.journal,
		pre:     p.pre,
		post:    p.post,
	}, nil
}

type testModifier struct {
	kind    string
	journal *journal
	pre     func(ectx any, inv step.Invocation) (step.Verdict, error)
	post    func(ectx any, inv step.Invocation, outcome step.Outcome) step.Outcome
}

func (m *testModifier) Pre(ectx any, inv step.Invocation) (step.Verdict, error) {
	if m.journal != nil {
		m.journal.record("pre:" + m.kind)
	}
	if m.pre != nil {
		return m.pre(ectx, inv)
	}
	return step.Continue(), nil
}

func (m *testModifier) Post(ectx any, inv step.Invocation, outcome step.Outcome) step.Outcome {
	if m.journal != nil {
		m.journal.record("post:" + m.kind)
	}
	if m.post != nil {
		return m.post(ectx, inv, outcome)
	}
	return outcome
}

func newTestParser(t *testing.T, registry step.Registry, options step.Options) step.Parser {
	t.Helper()
	parser, err := step.NewParser(log.NewTestLogger(t), registry, options)
	if err != nil {
		t.Fatalf("Failed to create parser (%v)", err)
	}
	return parser
}

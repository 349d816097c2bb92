package step_test

import (
	"errors"
	"fmt"
	"testing"

	"go.arcalot.io/assert"

	"go.flow.arcalot.io/stepflow/step"
)

// parseSingle builds a step from the provided configuration with no metadata keys declared.
func parseSingle(
	t *testing.T,
	actions []step.ActionProvider,
	modifiers []step.ModifierProvider,
	cfg *step.Config,
) *step.Step {
	t.Helper()
	parser := newTestParser(t, newTestRegistry(actions, modifiers), step.Options{})
	parsed, _, err := parser.ParseStep(cfg, step.NewAddress("test.yaml").Index(0), nil)
	if err != nil {
		t.Fatalf("Failed to parse step (%v)", err)
	}
	return parsed
}

func TestInvokeChainOrder(t *testing.T) {
	jrn := &journal{}
	parsed := parseSingle(
		t,
		[]step.ActionProvider{noopAction("act", jrn)},
		[]step.ModifierProvider{
			noopModifier("m1", jrn),
			noopModifier("m2", jrn),
		},
		step.NewConfig().Set("m1", nil).Set("m2", nil).Set("act", nil),
	)

	result, err := parsed.Invoke(nil)
	assert.NoError(t, err)
	assert.Equals(t, result.(string), "act")
	assert.Equals(t, jrn.entries, []string{
		"pre:m1",
		"pre:m2",
		"action:act",
		"post:m2",
		"post:m1",
	})
}

func TestInvokeAbortPropagation(t *testing.T) {
	jrn := &journal{}
	wrapping := func(kind string) func(any, step.Invocation, step.Outcome) step.Outcome {
		return func(_ any, _ step.Invocation, outcome step.Outcome) step.Outcome {
			if outcome.Failed() {
				return outcome
			}
			return step.NewOutcome(fmt.Sprintf("%s(%v)", kind, outcome.Value()))
		}
	}
	m1 := &testModifierProvider{
		descriptor: step.ModifierDescriptor{Kind: "m1"},
		journal:    jrn,
		post:       wrapping("m1"),
	}
	m2 := &testModifierProvider{
		descriptor: step.ModifierDescriptor{Kind: "m2"},
		journal:    jrn,
		pre: func(_ any, _ step.Invocation) (step.Verdict, error) {
			return step.AbortWithResult("x"), nil
		},
		post: wrapping("m2"),
	}
	m3 := &testModifierProvider{
		descriptor: step.ModifierDescriptor{Kind: "m3"},
		journal:    jrn,
	}
	parsed := parseSingle(
		t,
		[]step.ActionProvider{noopAction("act", jrn)},
		[]step.ModifierProvider{m1, m2, m3},
		step.NewConfig().Set("m1", nil).Set("m2", nil).Set("m3", nil).Set("act", nil),
	)

	result, err := parsed.Invoke(nil)
	assert.NoError(t, err)
	// The action never ran, m3 was never reached, and the posts of m2 and m1 transformed the
	// abort payload inside out.
	assert.Equals(t, result.(string), "m1(m2(x))")
	assert.Equals(t, jrn.entries, []string{
		"pre:m1",
		"pre:m2",
		"post:m2",
		"post:m1",
	})
}

func TestInvokeAbortSkipped(t *testing.T) {
	jrn := &journal{}
	skip := &testModifierProvider{
		descriptor: step.ModifierDescriptor{Kind: "skip"},
		journal:    jrn,
		pre: func(_ any, _ step.Invocation) (step.Verdict, error) {
			return step.Abort(), nil
		},
	}
	parsed := parseSingle(
		t,
		[]step.ActionProvider{noopAction("act", jrn)},
		[]step.ModifierProvider{skip},
		step.NewConfig().Set("skip", nil).Set("act", nil),
	)

	result, err := parsed.Invoke(nil)
	assert.NoError(t, err)
	assert.Equals(t, result == step.Skipped, true)
	assert.Equals(t, jrn.entries, []string{"pre:skip", "post:skip"})
}

func TestInvokeReentrantEvaluate(t *testing.T) {
	jrn := &journal{}
	loop := &testModifierProvider{
		descriptor: step.ModifierDescriptor{Kind: "loop"},
		journal:    jrn,
		pre: func(ectx any, inv step.Invocation) (step.Verdict, error) {
			inv.Evaluate(ectx)
			inv.Evaluate(ectx)
			return step.Continue(), nil
		},
	}
	parsed := parseSingle(
		t,
		[]step.ActionProvider{noopAction("act", jrn)},
		[]step.ModifierProvider{loop},
		step.NewConfig().Set("loop", nil).Set("act", nil),
	)

	result, err := parsed.Invoke(nil)
	assert.NoError(t, err)
	// Two evaluations mean exactly two action runs; the Continue verdict adopts the second
	// outcome instead of running the remainder a third time. The looping modifier's own hooks
	// run once each.
	assert.Equals(t, result.(string), "act")
	assert.Equals(t, jrn.entries, []string{
		"pre:loop",
		"action:act",
		"action:act",
		"post:loop",
	})
}

func TestInvokeReentrantInnerModifiers(t *testing.T) {
	jrn := &journal{}
	loop := &testModifierProvider{
		descriptor: step.ModifierDescriptor{Kind: "loop"},
		journal:    jrn,
		pre: func(ectx any, inv step.Invocation) (step.Verdict, error) {
			inv.Evaluate(ectx)
			inv.Evaluate(ectx)
			return step.Continue(), nil
		},
	}
	parsed := parseSingle(
		t,
		[]step.ActionProvider{noopAction("act", jrn)},
		[]step.ModifierProvider{loop, noopModifier("inner", jrn)},
		step.NewConfig().Set("loop", nil).Set("inner", nil).Set("act", nil),
	)

	_, err := parsed.Invoke(nil)
	assert.NoError(t, err)
	// Each evaluation is a complete inner cycle including the inner modifier's hooks.
	assert.Equals(t, jrn.entries, []string{
		"pre:loop",
		"pre:inner",
		"action:act",
		"post:inner",
		"pre:inner",
		"action:act",
		"post:inner",
		"post:loop",
	})
}

func TestInvokeEvaluateAggregation(t *testing.T) {
	jrn := &journal{}
	counter := 0
	repeat := &testModifierProvider{
		descriptor: step.ModifierDescriptor{Kind: "repeat"},
		journal:    jrn,
		pre: func(ectx any, inv step.Invocation) (step.Verdict, error) {
			var results []any
			for i := 0; i < 3; i++ {
				outcome := inv.Evaluate(ectx)
				if outcome.Failed() {
					return step.Continue(), outcome.Failure()
				}
				results = append(results, outcome.Value())
			}
			// The abort verdict overrides the consumed remainder with the aggregate.
			return step.AbortWithResult(results), nil
		},
	}
	action := &testActionProvider{
		descriptor: step.ActionDescriptor{Kind: "count"},
		journal:    jrn,
		call: func(ectx any) (any, error) {
			counter++
			return counter, nil
		},
	}
	parsed := parseSingle(
		t,
		[]step.ActionProvider{action},
		[]step.ModifierProvider{repeat},
		step.NewConfig().Set("repeat", nil).Set("count", nil),
	)

	result, err := parsed.Invoke(nil)
	assert.NoError(t, err)
	assert.Equals(t, result.([]any), []any{1, 2, 3})
	assert.Equals(t, counter, 3)
}

func TestInvokeActionFailure(t *testing.T) {
	actionErr := fmt.Errorf("boom")
	jrn := &journal{}
	failing := &testActionProvider{
		descriptor: step.ActionDescriptor{Kind: "fail"},
		journal:    jrn,
		call: func(ectx any) (any, error) {
			return nil, actionErr
		},
	}
	parsed := parseSingle(
		t,
		[]step.ActionProvider{failing},
		[]step.ModifierProvider{noopModifier("m1", jrn)},
		step.NewConfig().Set("m1", nil).Set("fail", nil),
	)

	_, err := parsed.Invoke(nil)
	assert.Error(t, err)
	if !errors.Is(err, actionErr) {
		t.Fatalf("Incorrect error returned.")
	}
	// The post hook still ran on the failure outcome.
	assert.Equals(t, jrn.entries, []string{"pre:m1", "action:fail", "post:m1"})
}

func TestInvokeActionFailureRecovery(t *testing.T) {
	actionErr := fmt.Errorf("boom")
	var observed error
	recovery := &testModifierProvider{
		descriptor: step.ModifierDescriptor{Kind: "recover"},
		post: func(_ any, _ step.Invocation, outcome step.Outcome) step.Outcome {
			if outcome.Failed() {
				observed = outcome.Failure()
				return step.NewOutcome("fallback")
			}
			return outcome
		},
	}
	failing := &testActionProvider{
		descriptor: step.ActionDescriptor{Kind: "fail"},
		call: func(ectx any) (any, error) {
			return nil, actionErr
		},
	}
	parsed := parseSingle(
		t,
		[]step.ActionProvider{failing},
		[]step.ModifierProvider{recovery},
		step.NewConfig().Set("recover", nil).Set("fail", nil),
	)

	result, err := parsed.Invoke(nil)
	assert.NoError(t, err)
	assert.Equals(t, result.(string), "fallback")
	if !errors.Is(observed, actionErr) {
		t.Fatalf("The post hook did not observe the original failure.")
	}
}

func TestInvokePreHookError(t *testing.T) {
	hookErr := fmt.Errorf("hook exploded")
	jrn := &journal{}
	sawFailure := false
	m1 := &testModifierProvider{
		descriptor: step.ModifierDescriptor{Kind: "m1"},
		journal:    jrn,
		post: func(_ any, _ step.Invocation, outcome step.Outcome) step.Outcome {
			sawFailure = outcome.Failed()
			return outcome
		},
	}
	m2 := &testModifierProvider{
		descriptor: step.ModifierDescriptor{Kind: "m2"},
		journal:    jrn,
		pre: func(_ any, _ step.Invocation) (step.Verdict, error) {
			return step.Continue(), hookErr
		},
	}
	parsed := parseSingle(
		t,
		[]step.ActionProvider{noopAction("act", jrn)},
		[]step.ModifierProvider{m1, m2},
		step.NewConfig().Set("m1", nil).Set("m2", nil).Set("act", nil),
	)

	_, err := parsed.Invoke(nil)
	assert.Error(t, err)
	if !errors.Is(err, hookErr) {
		t.Fatalf("Incorrect error returned.")
	}
	// The failing hook's own post ran, then m1's post saw the failure outcome; the action
	// never ran.
	assert.Equals(t, jrn.entries, []string{"pre:m1", "pre:m2", "post:m2", "post:m1"})
	assert.Equals(t, sawFailure, true)
}

func TestInvocationAccessors(t *testing.T) {
	var kind string
	var addr string
	probe := &testModifierProvider{
		descriptor: step.ModifierDescriptor{Kind: "probe"},
		pre: func(_ any, inv step.Invocation) (step.Verdict, error) {
			kind = inv.Kind()
			addr = inv.Address().String()
			return step.Continue(), nil
		},
	}
	parsed := parseSingle(
		t,
		[]step.ActionProvider{noopAction("act", nil)},
		[]step.ModifierProvider{probe},
		step.NewConfig().Set("probe", nil).Set("act", nil),
	)

	_, err := parsed.Invoke(nil)
	assert.NoError(t, err)
	assert.Equals(t, kind, "probe")
	assert.Equals(t, addr, "test.yaml:[0].modifiers.probe")
}

func TestInvokeContextPassing(t *testing.T) {
	type runContext struct {
		calls int
	}
	action := &testActionProvider{
		descriptor: step.ActionDescriptor{Kind: "act"},
		call: func(ectx any) (any, error) {
			ectx.(*runContext).calls++
			return nil, nil
		},
	}
	parsed := parseSingle(
		t,
		[]step.ActionProvider{action},
		nil,
		step.NewConfig().Set("act", nil),
	)

	ectx := &runContext{}
	_, err := parsed.Invoke(ectx)
	assert.NoError(t, err)
	_, err = parsed.Invoke(ectx)
	assert.NoError(t, err)
	// Steps are reusable; each invocation ran against the shared context.
	assert.Equals(t, ectx.calls, 2)
}

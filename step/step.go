package step

// Step is a single parsed, executable step: its metadata, its ordered modifiers, and its action.
// Steps are immutable after parsing and may be invoked any number of times, concurrently if the
// caller-supplied context tolerates it.
type Step struct {
	address   Address
	metadata  map[string]any
	modifiers []boundModifier
	action    boundAction
}

type boundModifier struct {
	kind     string
	address  Address
	modifier Modifier
}

type boundAction struct {
	kind    string
	address Address
	eager   bool
	action  Action
}

// Address returns the address of the step's configuration.
func (s *Step) Address() Address {
	return s.address
}

// Metadata returns a copy of the step's metadata entries.
func (s *Step) Metadata() map[string]any {
	result := make(map[string]any, len(s.metadata))
	for key, value := range s.metadata {
		result[key] = value
	}
	return result
}

// ActionKind returns the kind of the step's action.
func (s *Step) ActionKind() string {
	return s.action.kind
}

// Eager indicates whether the step's action ran at parse time.
func (s *Step) Eager() bool {
	return s.action.eager
}

// ModifierKinds returns the modifier kinds in execution (pre hook) order.
func (s *Step) ModifierKinds() []string {
	kinds := make([]string, len(s.modifiers))
	for i, mod := range s.modifiers {
		kinds[i] = mod.kind
	}
	return kinds
}

// Invoke runs the step: the modifier pre hooks in order, the action, and the post hooks in
// reverse. It returns the final value, which is Skipped if a modifier aborted the step without
// a replacement result, or the failure if the final outcome is a failure no post hook
// recovered.
func (s *Step) Invoke(ectx any) (any, error) {
	outcome := s.evaluate(ectx, 0)
	if outcome.Failed() {
		return nil, outcome.Failure()
	}
	return outcome.Value(), nil
}

// Evaluate runs the chain segment starting at the modifier with the given index, plus the
// action, and returns the resulting outcome. Modifiers normally reach it through
// Invocation.Evaluate, which supplies the correct index.
func (s *Step) Evaluate(ectx any, from int) Outcome {
	return s.evaluate(ectx, from)
}

func (s *Step) evaluate(ectx any, from int) Outcome {
	var outcome Outcome
	// Index of the last modifier whose pre hook ran; the reverse pass starts there.
	last := from - 1
	stopped := false

	for i := from; i < len(s.modifiers); i++ {
		last = i
		fr := &frame{}
		verdict, err := s.modifiers[i].modifier.Pre(ectx, Invocation{s, i, fr})
		switch {
		case err != nil:
			outcome = NewFailure(err)
			stopped = true
		case verdict.abort:
			if verdict.hasResult {
				outcome = NewOutcome(verdict.result)
			} else {
				outcome = NewOutcome(Skipped)
			}
			stopped = true
		case fr.consumed:
			// The hook already ran the remainder through Evaluate; adopt its last
			// outcome instead of running the remainder once more.
			outcome = fr.inner
			stopped = true
		}
		if stopped {
			break
		}
	}

	if !stopped {
		value, err := s.action.action.Call(ectx)
		if err != nil {
			outcome = NewFailure(err)
		} else {
			outcome = NewOutcome(value)
		}
	}

	for i := last; i >= from; i-- {
		outcome = s.modifiers[i].modifier.Post(ectx, Invocation{s, i, &frame{}}, outcome)
	}
	return outcome
}

// frame tracks the chain traversal state shared between the engine and the hooks of one link.
type frame struct {
	consumed bool
	inner    Outcome
}

// Invocation is a modifier's view of one in-flight step invocation. It identifies the
// modifier's place in the chain and provides access to the inner remainder of the chain.
type Invocation struct {
	step  *Step
	index int
	frame *frame
}

// Step returns the step being invoked.
func (i Invocation) Step() *Step {
	return i.step
}

// Kind returns the kind of the modifier this invocation belongs to.
func (i Invocation) Kind() string {
	return i.step.modifiers[i.index].kind
}

// Address returns the address of the modifier's configuration.
func (i Invocation) Address() Address {
	return i.step.modifiers[i.index].address
}

// Evaluate runs the inner remainder of the chain: the pre hooks after this modifier, the
// action, and the matching post hooks. It may be called any number of times from within this
// modifier's Pre hook, each call being a complete inner cycle. Once called, a Continue verdict
// adopts the outcome of the last call instead of running the remainder again; an abort verdict
// still overrides it.
func (i Invocation) Evaluate(ectx any) Outcome {
	outcome := i.step.evaluate(ectx, i.index+1)
	i.frame.consumed = true
	i.frame.inner = outcome
	return outcome
}

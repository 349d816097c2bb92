package step

// Action is the unit of work a step performs, constructed by an ActionProvider for one step
// occurrence.
type Action interface {
	// Call executes the action against the caller-supplied context and returns its result. For
	// eager actions, Call runs at parse time and must return the replacement step configurations
	// as a []*Config, or nil for none.
	Call(ectx any) (any, error)
}

// Modifier wraps the invocation of a step with a pre and a post hook, constructed by a
// ModifierProvider for one step occurrence.
type Modifier interface {
	// Pre runs before the step's action. Returning an abort verdict stops the chain traversal
	// and makes the verdict's result the step's provisional outcome. A non-nil error also stops
	// traversal, becoming a failure outcome that the post hooks still due to run may recover.
	Pre(ectx any, inv Invocation) (Verdict, error)

	// Post runs in reverse modifier order after the action completed or the traversal stopped,
	// but only if this modifier's Pre hook ran. It receives the current outcome and returns the
	// outcome to carry on with, which may be unchanged, transformed, or a recovery from a
	// failure.
	Post(ectx any, inv Invocation, outcome Outcome) Outcome
}

// ActionProvider constructs the actions of one kind.
type ActionProvider interface {
	// Descriptor returns the static properties of this action kind.
	Descriptor() ActionDescriptor

	// Create validates the raw configuration value and constructs an action from it. The address
	// locates the value for diagnostics. Returned errors should be or wrap a ValidationError;
	// anything else is wrapped by the parser at the same address.
	Create(value any, addr Address) (Action, error)
}

// ModifierProvider constructs the modifiers of one kind.
type ModifierProvider interface {
	// Descriptor returns the static properties of this modifier kind.
	Descriptor() ModifierDescriptor

	// Create validates the raw configuration value and constructs a modifier from it. The same
	// error contract as ActionProvider.Create applies.
	Create(value any, addr Address) (Modifier, error)
}

// Registry resolves configuration keys to action and modifier providers. Resolution must be
// deterministic within one parse session: the same kind resolves to the same provider every
// time it is looked up.
type Registry interface {
	// ResolveAction looks up the provider for an action kind. The second return value is false
	// if the kind is not a known action.
	ResolveAction(kind string) (ActionProvider, bool)

	// ResolveModifier looks up the provider for a modifier kind. The second return value is
	// false if the kind is not a known modifier.
	ResolveModifier(kind string) (ModifierProvider, bool)

	// ListActions returns all action providers mapped by their kind values.
	ListActions() map[string]ActionProvider

	// ListModifiers returns all modifier providers mapped by their kind values.
	ListModifiers() map[string]ModifierProvider
}

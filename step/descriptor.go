package step

// ActionDescriptor describes the static properties of an action kind.
type ActionDescriptor struct {
	// Kind is the configuration key that selects this action.
	Kind string
	// Eager marks actions that run while parsing instead of at invocation time. An eager action
	// may return replacement step configurations that are spliced into the enclosing step list.
	Eager bool
}

// ModifierDescriptor describes the static properties of a modifier kind, including its placement
// and ordering constraints. All constraint sets refer to kinds, not instances.
type ModifierDescriptor struct {
	// Kind is the configuration key that selects this modifier.
	Kind string
	// Restriction is the set of action kinds this modifier may be applied to. An empty set means
	// the modifier is unrestricted.
	Restriction map[string]struct{}
	// Before lists modifier kinds that this modifier must precede in the execution order.
	Before map[string]struct{}
	// After lists modifier kinds that must precede this modifier in the execution order.
	After map[string]struct{}
	// Required lists modifier kinds that must be present on the same step.
	Required map[string]struct{}
	// Prohibited lists modifier kinds that must not be present on the same step.
	Prohibited map[string]struct{}
}

package registry

import "fmt"

// ErrDuplicateActionKind indicates that there are two action providers with the same kind value.
type ErrDuplicateActionKind struct {
	Kind string
}

// Error returns the error message.
func (e ErrDuplicateActionKind) Error() string {
	return fmt.Sprintf("duplicate action provider for kind value %s found", e.Kind)
}

// ErrDuplicateModifierKind indicates that there are two modifier providers with the same kind
// value.
type ErrDuplicateModifierKind struct {
	Kind string
}

// Error returns the error message.
func (e ErrDuplicateModifierKind) Error() string {
	return fmt.Sprintf("duplicate modifier provider for kind value %s found", e.Kind)
}

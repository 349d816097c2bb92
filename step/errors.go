package step

// ParseError signals that a step configuration is structurally invalid, such as a missing or
// ambiguous action key, an unresolvable key, or an unsatisfiable modifier constraint. Parse
// errors always happen while parsing, never during step execution.
type ParseError struct {
	Address Address
	Message string
	Cause   error
}

// Error returns the message prefixed with the originating address.
func (e *ParseError) Error() string {
	if e.Address.String() == "" {
		return e.Message
	}
	return e.Address.String() + ": " + e.Message
}

// Unwrap returns the underlying cause, if any.
func (e *ParseError) Unwrap() error {
	return e.Cause
}

// ValidationError signals that an action or modifier rejected its configuration value while the
// step was being parsed.
type ValidationError struct {
	Address Address
	Message string
	Cause   error
}

// Error returns the message prefixed with the originating address.
func (e *ValidationError) Error() string {
	if e.Address.String() == "" {
		return e.Message
	}
	return e.Address.String() + ": " + e.Message
}

// Unwrap returns the underlying cause, if any.
func (e *ValidationError) Unwrap() error {
	return e.Cause
}

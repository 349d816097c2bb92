package step

type skippedValue struct{}

func (skippedValue) String() string {
	return "skipped"
}

// Skipped is the result of a step whose execution was aborted by a modifier without a
// replacement result.
var Skipped = skippedValue{}

// Outcome is the tagged result of a step's inner execution: either a value or a failure. Post
// hooks receive and return outcomes, so a failure can be transformed or recovered before it
// reaches the invoking caller.
type Outcome struct {
	value   any
	failure error
}

// NewOutcome creates a successful outcome carrying the provided value.
func NewOutcome(value any) Outcome {
	return Outcome{value: value}
}

// NewFailure creates a failed outcome carrying the provided error.
func NewFailure(err error) Outcome {
	return Outcome{failure: err}
}

// Value returns the carried value. It is only meaningful if the outcome did not fail.
func (o Outcome) Value() any {
	return o.value
}

// Failure returns the carried error, or nil for a successful outcome.
func (o Outcome) Failure() error {
	return o.failure
}

// Failed indicates whether the outcome carries a failure.
func (o Outcome) Failed() bool {
	return o.failure != nil
}

// Verdict is the controlling result of a modifier's Pre hook.
type Verdict struct {
	abort     bool
	result    any
	hasResult bool
}

// Continue lets the chain traversal proceed to the next modifier or the action.
func Continue() Verdict {
	return Verdict{}
}

// Abort stops the chain traversal and makes Skipped the step's provisional outcome.
func Abort() Verdict {
	return Verdict{abort: true}
}

// AbortWithResult stops the chain traversal and makes the provided value the step's provisional
// outcome.
func AbortWithResult(result any) Verdict {
	return Verdict{abort: true, result: result, hasResult: true}
}

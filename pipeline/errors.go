package pipeline

import (
	"fmt"
	"strings"
)

// Errors is the batch of problems collected during a failed build. Build
// never stops at the first mistake, so a description with several errors is
// diagnosable in one pass.
type Errors []error

func (e Errors) Error() string {
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("%d build errors: %s", len(e), strings.Join(msgs, "; "))
}

// DuplicateBlockNameError is returned when two block declarations share an
// instance name.
type DuplicateBlockNameError struct {
	Name string
}

func (e DuplicateBlockNameError) Error() string {
	return fmt.Sprintf("block name '%s' declared more than once", e.Name)
}

// UnresolvedPortError is returned when a connection declaration references a
// block or port that does not exist.
type UnresolvedPortError struct {
	Ref string
}

func (e UnresolvedPortError) Error() string {
	return fmt.Sprintf("unresolved port reference '%s'", e.Ref)
}

// MissingFeedbackInitialError is returned when a feedback-tagged connection
// declares no initial value.
type MissingFeedbackInitialError struct {
	From string
	To   string
}

func (e MissingFeedbackInitialError) Error() string {
	return fmt.Sprintf("feedback connection %s -> %s declares no initial value", e.From, e.To)
}

// IllegalCycleError is returned when the non-feedback connections form a
// cycle. Blocks holds the instances left on the residual cycle.
type IllegalCycleError struct {
	Blocks []string
}

func (e IllegalCycleError) Error() string {
	return fmt.Sprintf("illegal cycle through blocks %s, tag a feedback edge to break it", strings.Join(e.Blocks, ", "))
}

// MissingInputError is the runtime fault raised when an eager block's
// required input still holds no value once the step budget is spent.
type MissingInputError struct {
	Block string
	Port  string
}

func (e MissingInputError) Error() string {
	return fmt.Sprintf("block '%s' stalled the step waiting on input '%s'", e.Block, e.Port)
}

// BlockStepError is the runtime fault wrapping a failed block step. The
// whole graph stops: a faulted block's output is data the downstream cannot
// trust.
type BlockStepError struct {
	Block string
	Step  uint64
	Err   error
}

func (e BlockStepError) Error() string {
	return fmt.Sprintf("block '%s' failed on step %d, %s", e.Block, e.Step, e.Err)
}

func (e BlockStepError) Unwrap() error { return e.Err }

// InvalidStateError is returned when Start or Stop is called in a state that
// does not permit the transition.
type InvalidStateError struct {
	Op    string
	State State
}

func (e InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s a %s pipeline", e.Op, e.State)
}

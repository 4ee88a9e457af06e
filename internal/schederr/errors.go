// Package schederr defines the error taxonomy of the scheduling engine.
// Errors are kinds, not types: every failure mode is a sentinel value
// wrapped in *Error so callers can use errors.Is against a stable kind
// while still getting a task id and a human message.
package schederr

import "fmt"

// Kind identifies a class of scheduling failure.
type Kind string

const (
	// KindInvalidInput covers malformed catalogues, missing required
	// mapping keys, non-positive pool counts, and contradictory
	// applies_to_floors values.
	KindInvalidInput Kind = "invalid_input"
	// KindGraphCycle means the predecessor graph has no topological order.
	KindGraphCycle Kind = "graph_cycle"
	// KindMissingDependency means a predecessor id has no generated instance.
	KindMissingDependency Kind = "missing_dependency"
	// KindAllocationStarved means a task exhausted its placement attempt cap.
	KindAllocationStarved Kind = "allocation_starved"
	// KindProductivityZero means a resolved productivity rate is non-positive.
	KindProductivityZero Kind = "productivity_zero"
	// KindNonFiniteDuration means duration math produced NaN or Inf.
	KindNonFiniteDuration Kind = "non_finite_duration"
)

// Error is the single error type the engine returns; Kind tells the caller
// which of the taxonomy's failure modes occurred.
type Error struct {
	Kind   Kind
	Task   string
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e.Task != "" {
		return fmt.Sprintf("%s: task %s: %s", e.Kind, e.Task, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is(err, schederr.ErrX) work by comparing on Kind alone: a
// target matches when it is an *Error of the same Kind with no Task and no
// Detail, as the sentinel values below are.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Task == "" && t.Detail == ""
}

// New constructs a sentinel-comparable error of the given kind.
func New(kind Kind, task, detail string) *Error {
	return &Error{Kind: kind, Task: task, Detail: detail}
}

// Wrap constructs an error of the given kind around an underlying cause.
func Wrap(kind Kind, task, detail string, err error) *Error {
	return &Error{Kind: kind, Task: task, Detail: detail, Err: err}
}

// sentinel kind markers usable with errors.Is(err, schederr.ErrGraphCycle)
// and friends — each is a bare *Error carrying only its Kind.
var (
	ErrInvalidInput      = &Error{Kind: KindInvalidInput}
	ErrGraphCycle        = &Error{Kind: KindGraphCycle}
	ErrMissingDependency = &Error{Kind: KindMissingDependency}
	ErrAllocationStarved = &Error{Kind: KindAllocationStarved}
	ErrProductivityZero  = &Error{Kind: KindProductivityZero}
	ErrNonFiniteDuration = &Error{Kind: KindNonFiniteDuration}
)

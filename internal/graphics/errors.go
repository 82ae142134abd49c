package graphics

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidPosition is returned when a position is stale, belongs to
	// another sequence or points outside the sequence.
	ErrInvalidPosition = errors.New("invalid position")

	// ErrIndexOutOfRange is returned by At for an index outside [0, Count())
	ErrIndexOutOfRange = errors.New("index out of range")

	// ErrNilElement is returned when inserting a nil element
	ErrNilElement = errors.New("nil element")

	// ErrDuplicateElement is returned when inserting an element that is already a member
	ErrDuplicateElement = errors.New("element already in sequence")

	// ErrNotContainer is returned by a ContainerStore whose parent holds no container payload
	ErrNotContainer = errors.New("element is not a container")
)

// UsageError reports a precondition violation by the caller, such as
// stepping from a position of an older generation. It is raised with panic.
type UsageError struct {
	Op       string
	Position Position
	Reason   string
}

func (e *UsageError) Error() string {
	return fmt.Sprintf("graphics: %s(%s): %s", e.Op, e.Position, e.Reason)
}

// CommitError wraps a failure of the backing store during Commit
type CommitError struct {
	Generation uint64
	Err        error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("commit at generation %d failed: %v", e.Generation, e.Err)
}

func (e *CommitError) Unwrap() error {
	return e.Err
}

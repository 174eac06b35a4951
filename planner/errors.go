package planner

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrInfeasibleStart is returned when the start state lies on a blocked pixel.
	ErrInfeasibleStart = errors.New("start state is not in free space")

	// ErrInfeasibleGoal is returned when the goal state lies on a blocked pixel.
	ErrInfeasibleGoal = errors.New("goal state is not in free space")

	errNoResult = errors.New("planner exited without a result")
)

// InputError reports a malformed planning request: bad dimensions, states outside the workspace
// or invalid options. It is returned before any planning happens.
type InputError struct {
	msg string
}

func (e *InputError) Error() string {
	return "invalid planning input: " + e.msg
}

func newInputError(format string, args ...interface{}) error {
	return &InputError{msg: fmt.Sprintf(format, args...)}
}

// IsInputError reports whether err is or wraps an *InputError.
func IsInputError(err error) bool {
	var ie *InputError
	return errors.As(err, &ie)
}

package registration

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrInvalidRequest is matched by every request rejected because of the current state.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrTransformComputationFailure is matched by every failed fit.
	ErrTransformComputationFailure = errors.New("transform computation failed")

	// ErrDegenerateConfiguration is returned when the image landmarks are too close to a line.
	ErrDegenerateConfiguration = &ComputationError{Reason: "points nearly collinear"}
	// ErrNoAcceptableCorrespondence is returned when no landmark ordering fits within the
	// acceptance threshold.
	ErrNoAcceptableCorrespondence = &ComputationError{Reason: "no correspondence found within tolerance"}
)

// A RequestError is returned when a request is not permitted in the current state. The state is
// left untouched.
type RequestError struct {
	Request string
	State   fmt.Stringer
	Reason  string
}

func (e *RequestError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("invalid request %q in state %s", e.Request, e.State)
	}
	return fmt.Sprintf("invalid request %q in state %s: %s", e.Request, e.State, e.Reason)
}

// Is reports whether target is ErrInvalidRequest.
func (e *RequestError) Is(target error) bool {
	return target == ErrInvalidRequest
}

func newRequestError(request string, state fmt.Stringer, reason string) error {
	return &RequestError{Request: request, State: state, Reason: reason}
}

// A ComputationError is returned when a fit was attempted and failed.
type ComputationError struct {
	Reason string
}

func (e *ComputationError) Error() string {
	return "transform computation failed: " + e.Reason
}

// Is reports whether target is ErrTransformComputationFailure.
func (e *ComputationError) Is(target error) bool {
	return target == ErrTransformComputationFailure
}

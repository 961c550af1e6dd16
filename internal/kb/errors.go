package kb

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a store or file does not exist locally.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateName is returned when a store display name is already taken.
	ErrDuplicateName = errors.New("store with this name already exists")

	// ErrValidation is returned for caller input that cannot be accepted.
	ErrValidation = errors.New("invalid input")
)

// RemoteError reports a failure of the remote knowledge-base service, or of
// the local write that followed a successful remote call.
type RemoteError struct {
	Op  string
	Err error
}

func (e *RemoteError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

func remoteErr(op string, err error) error {
	return &RemoteError{Op: op, Err: err}
}

func validationErr(err error) error {
	return fmt.Errorf("%w: %v", ErrValidation, err)
}

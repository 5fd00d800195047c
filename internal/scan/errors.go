package scan

import (
	"errors"
	"fmt"
)

// Sentinel errors for scan operations.
var (
	// ErrAlreadyOpen indicates a resource was opened again before Close.
	// It is a caller bug, never an environment problem.
	ErrAlreadyOpen = errors.New("resource is already open, call Close before opening it again")
	// ErrUnitSkipped indicates the container could not be opened when the
	// unit was created.
	ErrUnitSkipped = errors.New("container could not be opened")
)

// OpenError is a recoverable failure to open or read a resource.
// The resource has been closed and can be opened again.
type OpenError struct {
	Resource string
	Err      error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("could not open %s: %v", e.Resource, e.Err)
}

func (e *OpenError) Unwrap() error {
	return e.Err
}

// MisuseError reports an open attempt on a resource that is already open.
type MisuseError struct {
	Resource string
	Op       string
}

func (e *MisuseError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Resource, ErrAlreadyOpen)
}

func (e *MisuseError) Unwrap() error {
	return ErrAlreadyOpen
}

// IsMisuse reports whether err signals reentrant use of a resource
func IsMisuse(err error) bool {
	return errors.Is(err, ErrAlreadyOpen)
}

// IsIOFailure reports whether err is a recoverable open or read failure
func IsIOFailure(err error) bool {
	var oe *OpenError
	return errors.As(err, &oe)
}

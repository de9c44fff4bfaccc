package domain

import (
	"errors"
	"fmt"
)

// ErrInvalidArgument marks a caller contract violation (empty reply token,
// unknown message variant). It is a programming defect, not a runtime
// condition to recover from.
var ErrInvalidArgument = errors.New("invalid argument")

// StorageError reports a failed write to the content store.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// TransportError reports a failed platform call.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// TransformError reports an external transform tool that exited non-zero
// or could not be spawned. ExitCode is -1 when the tool never ran.
type TransformError struct {
	Tool     string
	ExitCode int
	Err      error
}

func (e *TransformError) Error() string {
	if e.ExitCode >= 0 {
		return fmt.Sprintf("transform: %s exited with code %d", e.Tool, e.ExitCode)
	}
	return fmt.Sprintf("transform: %s: %v", e.Tool, e.Err)
}

func (e *TransformError) Unwrap() error { return e.Err }

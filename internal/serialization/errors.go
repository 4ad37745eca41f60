package serialization

import (
	"errors"
	"fmt"
)

// Sentinel errors returned while opening and validating checkpoints.
// Callers match them with errors.Is.
var (
	ErrInvalidMagic       = errors.New("not a .mpac file")
	ErrUnsupportedVersion = errors.New("unsupported format version")
	ErrHeaderTooLarge     = errors.New("header exceeds maximum size")
	ErrTruncated          = errors.New("data section shorter than declared")
	ErrChecksumMismatch   = errors.New("checksum mismatch")
	ErrTensorNotFound     = errors.New("tensor not found")

	ErrTooManyTensors    = errors.New("too many tensors")
	ErrTensorNameTooLong = errors.New("tensor name too long")
	ErrInvalidTensorName = errors.New("invalid tensor name")
	ErrNegativeOffset    = errors.New("negative offset or size")
	ErrOutOfBounds       = errors.New("tensor extends beyond data section")
	ErrOffsetOverlap     = errors.New("tensor regions overlap")
)

// ValidationError ties a validation failure to the tensor that caused it.
// It unwraps to one of the sentinel errors above.
type ValidationError struct {
	Err    error  // classifying sentinel
	Tensor string // offending tensor name, empty for file-level failures
	Detail string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Tensor == "" {
		return fmt.Sprintf("%v: %s", e.Err, e.Detail)
	}
	return fmt.Sprintf("tensor %q: %v: %s", e.Tensor, e.Err, e.Detail)
}

// Unwrap exposes the classifying sentinel to errors.Is.
func (e *ValidationError) Unwrap() error { return e.Err }

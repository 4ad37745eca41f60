package serialization

import (
	"fmt"
	"sort"
	"strings"
)

// Limits applied while parsing checkpoint files. Classifier checkpoints
// hold at most a few dozen tensors; the caps leave generous headroom while
// keeping a malformed header from exhausting memory.
const (
	MaxHeaderSize    = 16 * 1024 * 1024 // JSON header bytes
	MaxTensorCount   = 65536
	MaxTensorNameLen = 1024
)

// ValidationLevel selects how much of the header is checked on open.
type ValidationLevel int

const (
	// ValidationStrict checks names and the full offset layout. The default.
	ValidationStrict ValidationLevel = iota
	// ValidationNormal checks tensor count and names only.
	ValidationNormal
	// ValidationNone trusts the file. Only for checkpoints this process wrote.
	ValidationNone
)

// ValidateTensorName rejects names that could escape the state-dict
// namespace. State-dict keys are dotted module paths ("backbone.0.weight");
// separators, traversal sequences and null bytes have no business in them.
func ValidateTensorName(name string) error {
	if len(name) > MaxTensorNameLen {
		return &ValidationError{
			Err:    ErrTensorNameTooLong,
			Tensor: name,
			Detail: fmt.Sprintf("%d bytes, max %d", len(name), MaxTensorNameLen),
		}
	}
	switch {
	case strings.Contains(name, ".."):
		return &ValidationError{Err: ErrInvalidTensorName, Tensor: name, Detail: "contains '..'"}
	case strings.ContainsAny(name, `/\`):
		return &ValidationError{Err: ErrInvalidTensorName, Tensor: name, Detail: "contains a path separator"}
	case strings.Contains(name, "\x00"):
		return &ValidationError{Err: ErrInvalidTensorName, Tensor: name, Detail: "contains a null byte"}
	}
	return nil
}

// ValidateTensorOffsets checks that every tensor region lies inside the
// data section and that no two regions overlap.
func ValidateTensorOffsets(tensors []TensorMeta, dataSize int64) error {
	if len(tensors) > MaxTensorCount {
		return &ValidationError{
			Err:    ErrTooManyTensors,
			Detail: fmt.Sprintf("%d tensors, max %d", len(tensors), MaxTensorCount),
		}
	}

	sorted := make([]TensorMeta, len(tensors))
	copy(sorted, tensors)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Offset < sorted[j].Offset })

	for i, t := range sorted {
		if t.Offset < 0 || t.Size < 0 {
			return &ValidationError{
				Err:    ErrNegativeOffset,
				Tensor: t.Name,
				Detail: fmt.Sprintf("offset=%d size=%d", t.Offset, t.Size),
			}
		}
		if t.Offset+t.Size > dataSize {
			return &ValidationError{
				Err:    ErrOutOfBounds,
				Tensor: t.Name,
				Detail: fmt.Sprintf("offset %d + size %d > data size %d", t.Offset, t.Size, dataSize),
			}
		}
		if i+1 < len(sorted) && t.Offset+t.Size > sorted[i+1].Offset {
			return &ValidationError{
				Err:    ErrOffsetOverlap,
				Tensor: t.Name,
				Detail: fmt.Sprintf("runs into %q at offset %d", sorted[i+1].Name, sorted[i+1].Offset),
			}
		}
	}
	return nil
}

// ValidateHeader applies the checks selected by level to a parsed header.
func ValidateHeader(h *Header, dataSize int64, level ValidationLevel) error {
	if level == ValidationNone {
		return nil
	}
	if len(h.Tensors) > MaxTensorCount {
		return &ValidationError{
			Err:    ErrTooManyTensors,
			Detail: fmt.Sprintf("%d tensors, max %d", len(h.Tensors), MaxTensorCount),
		}
	}
	for _, t := range h.Tensors {
		if err := ValidateTensorName(t.Name); err != nil {
			return err
		}
	}
	if level == ValidationStrict {
		return ValidateTensorOffsets(h.Tensors, dataSize)
	}
	return nil
}

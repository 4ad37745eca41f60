package serialization

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/negvet/model-preparation-algorithm/internal/tensor"
)

const toolVersion = "1.2.0"

// Writer writes checkpoints in .mpac format.
type Writer struct {
	file   *os.File
	closed bool
}

// NewWriter creates a .mpac file writer.
func NewWriter(path string) (*Writer, error) {
	//nolint:gosec // G304: checkpoint paths are operator input
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	return &Writer{file: file}, nil
}

// WriteStateDict writes a state dictionary, a map from parameter names to
// tensors, as a complete .mpac file. Tensors are laid out in sorted name
// order so identical state dicts produce identical files.
func (w *Writer) WriteStateDict(stateDict map[string]*tensor.RawTensor, modelType string, classes []string, metadata map[string]string) error {
	if w.closed {
		return errors.New("use of closed writer")
	}

	names := make([]string, 0, len(stateDict))
	for name := range stateDict {
		names = append(names, name)
	}
	sort.Strings(names)

	header := Header{
		FormatVersion: FormatVersion,
		ToolVersion:   toolVersion,
		ModelType:     modelType,
		CreatedAt:     time.Now().UTC(),
		Classes:       classes,
		Tensors:       make([]TensorMeta, 0, len(stateDict)),
		Metadata:      metadata,
	}
	if header.Metadata == nil {
		header.Metadata = make(map[string]string)
	}

	// Lay out the data section and hash it without concatenating the
	// tensors into one buffer.
	var dataSize int64
	sections := make([]io.Reader, 0, len(names))
	for _, name := range names {
		raw := stateDict[name]
		size := int64(raw.ByteSize())
		header.Tensors = append(header.Tensors, TensorMeta{
			Name:   name,
			DType:  raw.DType().String(),
			Shape:  []int(raw.Shape()),
			Offset: dataSize,
			Size:   size,
		})
		sections = append(sections, bytes.NewReader(raw.Data()))
		dataSize += size
	}
	checksum, _, err := ComputeChecksumReader(io.MultiReader(sections...))
	if err != nil {
		return fmt.Errorf("failed to hash tensor data: %w", err)
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("failed to marshal header: %w", err)
	}

	// Fixed header; the layout is documented in format.go.
	fixed := make([]byte, FixedHeaderSize)
	copy(fixed[:4], MagicBytes)
	binary.LittleEndian.PutUint32(fixed[4:8], FormatVersion)
	var flags uint32
	if len(header.Metadata) > 0 {
		flags |= FlagHasMetadata
	}
	binary.LittleEndian.PutUint32(fixed[8:12], flags)
	binary.LittleEndian.PutUint64(fixed[16:24], uint64(len(headerJSON)))
	//nolint:gosec // G115: sizes are non-negative
	binary.LittleEndian.PutUint64(fixed[24:32], uint64(dataSize))
	copy(fixed[ChecksumOffset:ChecksumOffset+ChecksumSize], checksum[:])

	out := bufio.NewWriter(w.file)
	if _, err := out.Write(fixed); err != nil {
		return fmt.Errorf("failed to write fixed header: %w", err)
	}
	if _, err := out.Write(headerJSON); err != nil {
		return fmt.Errorf("failed to write header JSON: %w", err)
	}

	// Zero padding so tensor data starts on a 64-byte boundary.
	headerEnd := int64(FixedHeaderSize) + int64(len(headerJSON))
	if pad := alignUp(headerEnd, HeaderAlignment) - headerEnd; pad > 0 {
		if _, err := out.Write(make([]byte, pad)); err != nil {
			return fmt.Errorf("failed to write padding: %w", err)
		}
	}

	for _, name := range names {
		if _, err := out.Write(stateDict[name].Data()); err != nil {
			return fmt.Errorf("failed to write tensor %s: %w", name, err)
		}
	}
	if err := out.Flush(); err != nil {
		return fmt.Errorf("failed to flush: %w", err)
	}
	return nil
}

// Close closes the underlying file. Close is idempotent.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	return w.file.Close()
}

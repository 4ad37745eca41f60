package serialization

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/negvet/model-preparation-algorithm/internal/tensor"
)

// Reader reads checkpoints in .mpac format.
//
// After the header is parsed, tensor loads go through ReadAt, so a Reader
// may serve concurrent loads.
type Reader struct {
	file       *os.File
	header     Header
	flags      uint32
	index      map[string]int // tensor name to position in header.Tensors
	dataOffset int64
	dataSize   int64
	checksum   [32]byte
	opts       ReaderOptions
	closed     bool
}

// ReaderOptions configures the behavior of Reader.
type ReaderOptions struct {
	SkipChecksumValidation bool            // skip checksum validation (faster but less safe)
	ValidationLevel        ValidationLevel // validation strictness
}

// NewReader opens a .mpac file with strict validation.
func NewReader(path string) (*Reader, error) {
	return NewReaderWithOptions(path, ReaderOptions{ValidationLevel: ValidationStrict})
}

// NewReaderWithOptions opens a .mpac file with custom options.
func NewReaderWithOptions(path string, opts ReaderOptions) (*Reader, error) {
	//nolint:gosec // G304: checkpoint paths are operator input
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	r := &Reader{file: file, opts: opts}
	if err := r.parseHeader(); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to parse header: %w", err)
	}
	if err := ValidateHeader(&r.header, r.dataSize, opts.ValidationLevel); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	r.index = make(map[string]int, len(r.header.Tensors))
	for i, meta := range r.header.Tensors {
		r.index[meta.Name] = i
	}
	return r, nil
}

// parseHeader decodes the fixed header and the JSON header behind it, then
// verifies the data-section checksum unless disabled. The data section is
// streamed through the hash rather than buffered; tensors are read again
// on demand.
func (r *Reader) parseHeader() error {
	fixed := make([]byte, FixedHeaderSize)
	if _, err := io.ReadFull(r.file, fixed); err != nil {
		return fmt.Errorf("failed to read fixed header: %w", err)
	}

	if string(fixed[:4]) != MagicBytes {
		return ErrInvalidMagic
	}
	if v := binary.LittleEndian.Uint32(fixed[4:8]); v != FormatVersion {
		return fmt.Errorf("%w: got %d, expected %d", ErrUnsupportedVersion, v, FormatVersion)
	}
	r.flags = binary.LittleEndian.Uint32(fixed[8:12])

	headerSize := binary.LittleEndian.Uint64(fixed[16:24])
	if headerSize > MaxHeaderSize {
		return ErrHeaderTooLarge
	}
	//nolint:gosec // G115: size fields are bounded by validation below
	r.dataSize = int64(binary.LittleEndian.Uint64(fixed[24:32]))
	copy(r.checksum[:], fixed[ChecksumOffset:ChecksumOffset+ChecksumSize])

	headerJSON := make([]byte, headerSize)
	if _, err := io.ReadFull(r.file, headerJSON); err != nil {
		return fmt.Errorf("failed to read header JSON: %w", err)
	}
	if err := json.Unmarshal(headerJSON, &r.header); err != nil {
		return fmt.Errorf("failed to parse header JSON: %w", err)
	}

	//nolint:gosec // G115: headerSize is bounded by MaxHeaderSize
	r.dataOffset = alignUp(int64(FixedHeaderSize)+int64(headerSize), HeaderAlignment)

	if r.opts.SkipChecksumValidation {
		return nil
	}
	if _, err := r.file.Seek(r.dataOffset, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek to tensor data: %w", err)
	}
	computed, n, err := ComputeChecksumReader(io.LimitReader(r.file, r.dataSize))
	if err != nil {
		return fmt.Errorf("failed to hash tensor data: %w", err)
	}
	if n != r.dataSize {
		return fmt.Errorf("%w: read %d of %d bytes", ErrTruncated, n, r.dataSize)
	}
	return ValidateChecksum(computed, r.checksum)
}

// Header returns the decoded file header.
func (r *Reader) Header() Header { return r.header }

// Metadata returns the metadata map from the header.
func (r *Reader) Metadata() map[string]string { return r.header.Metadata }

// Classes returns the class names recorded in the checkpoint, if any.
func (r *Reader) Classes() []string { return r.header.Classes }

// TensorNames lists the tensors in the file, in header order.
func (r *Reader) TensorNames() []string {
	names := make([]string, len(r.header.Tensors))
	for i, meta := range r.header.Tensors {
		names[i] = meta.Name
	}
	return names
}

// TensorInfo returns the metadata for a named tensor.
func (r *Reader) TensorInfo(name string) (*TensorMeta, error) {
	i, ok := r.index[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrTensorNotFound, name)
	}
	meta := r.header.Tensors[i]
	return &meta, nil
}

// ReadTensorData returns the raw bytes of a named tensor.
func (r *Reader) ReadTensorData(name string) ([]byte, error) {
	meta, err := r.TensorInfo(name)
	if err != nil {
		return nil, err
	}
	data := make([]byte, meta.Size)
	if err := r.readSection(data, meta.Offset); err != nil {
		return nil, err
	}
	return data, nil
}

// readSection fills dst from the data section starting at offset.
func (r *Reader) readSection(dst []byte, offset int64) error {
	if r.closed {
		return errors.New("use of closed reader")
	}
	if _, err := r.file.ReadAt(dst, r.dataOffset+offset); err != nil {
		return fmt.Errorf("failed to read tensor data: %w", err)
	}
	return nil
}

// LoadTensor materializes a named tensor in host memory. The device tag is
// always CPU here; backends upload to their device on demand.
func (r *Reader) LoadTensor(name string) (*tensor.RawTensor, error) {
	meta, err := r.TensorInfo(name)
	if err != nil {
		return nil, err
	}

	dtype, ok := stringToDtype(meta.DType)
	if !ok {
		return nil, fmt.Errorf("unsupported dtype: %s", meta.DType)
	}
	shape := tensor.Shape(meta.Shape)
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape for tensor %s: %w", name, err)
	}

	raw, err := tensor.NewRaw(shape, dtype, tensor.CPU)
	if err != nil {
		return nil, fmt.Errorf("failed to create tensor: %w", err)
	}
	if int64(raw.ByteSize()) != meta.Size {
		return nil, fmt.Errorf("tensor %s: declared size %d does not match shape %v", name, meta.Size, shape)
	}
	if err := r.readSection(raw.Data(), meta.Offset); err != nil {
		return nil, err
	}
	return raw, nil
}

// ReadStateDict loads every tensor in the file, keyed by name.
func (r *Reader) ReadStateDict() (map[string]*tensor.RawTensor, error) {
	stateDict := make(map[string]*tensor.RawTensor, len(r.header.Tensors))
	for _, meta := range r.header.Tensors {
		raw, err := r.LoadTensor(meta.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to load tensor %s: %w", meta.Name, err)
		}
		stateDict[meta.Name] = raw
	}
	return stateDict, nil
}

// Close releases the underlying file. Close is idempotent.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	return r.file.Close()
}

package serialization

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/negvet/model-preparation-algorithm/internal/tensor"
)

func makeTensor(t *testing.T, values []float32, shape tensor.Shape) *tensor.RawTensor {
	t.Helper()
	raw, err := tensor.NewRaw(shape, tensor.Float32, tensor.CPU)
	if err != nil {
		t.Fatalf("Failed to create tensor: %v", err)
	}
	copy(raw.AsFloat32(), values)
	return raw
}

// TestRoundTrip verifies write and read with checksum validation.
func TestRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.mpac")

	stateDict := map[string]*tensor.RawTensor{
		"head.weight": makeTensor(t, []float32{1, 2, 3, 4}, tensor.Shape{2, 2}),
		"head.bias":   makeTensor(t, []float32{5, 6}, tensor.Shape{2}),
	}

	writer, err := NewWriter(path)
	if err != nil {
		t.Fatalf("Failed to create writer: %v", err)
	}
	classes := []string{"cat", "dog"}
	if err := writer.WriteStateDict(stateDict, "Classifier", classes, map[string]string{"run": "test"}); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Failed to close writer: %v", err)
	}

	reader, err := NewReader(path)
	if err != nil {
		t.Fatalf("Failed to open file: %v", err)
	}
	defer reader.Close()

	header := reader.Header()
	if header.ModelType != "Classifier" {
		t.Errorf("ModelType = %q, want Classifier", header.ModelType)
	}
	if len(header.Classes) != 2 || header.Classes[0] != "cat" {
		t.Errorf("Classes = %v, want [cat dog]", header.Classes)
	}
	if reader.Metadata()["run"] != "test" {
		t.Errorf("Metadata[run] = %q, want test", reader.Metadata()["run"])
	}
	if len(reader.TensorNames()) != 2 {
		t.Errorf("TensorNames() = %v, want 2 entries", reader.TensorNames())
	}

	loaded, err := reader.ReadStateDict()
	if err != nil {
		t.Fatalf("Failed to read state dict: %v", err)
	}

	weight, ok := loaded["head.weight"]
	if !ok {
		t.Fatal("Tensor 'head.weight' not found")
	}
	if !weight.Shape().Equal(tensor.Shape{2, 2}) {
		t.Errorf("weight shape = %v, want [2 2]", weight.Shape())
	}
	for i, want := range []float32{1, 2, 3, 4} {
		if got := weight.AsFloat32()[i]; got != want {
			t.Errorf("weight[%d] = %f, want %f", i, got, want)
		}
	}
}

// TestDeterministicLayout verifies identical state dicts produce identical files.
func TestDeterministicLayout(t *testing.T) {
	dir := t.TempDir()

	stateDict := map[string]*tensor.RawTensor{
		"b": makeTensor(t, []float32{1, 2}, tensor.Shape{2}),
		"a": makeTensor(t, []float32{3, 4}, tensor.Shape{2}),
		"c": makeTensor(t, []float32{5, 6}, tensor.Shape{2}),
	}

	write := func(name string) []TensorMeta {
		path := filepath.Join(dir, name)
		writer, err := NewWriter(path)
		if err != nil {
			t.Fatalf("Failed to create writer: %v", err)
		}
		if err := writer.WriteStateDict(stateDict, "Classifier", nil, nil); err != nil {
			t.Fatalf("Failed to write: %v", err)
		}
		writer.Close()

		reader, err := NewReader(path)
		if err != nil {
			t.Fatalf("Failed to read: %v", err)
		}
		defer reader.Close()
		return reader.Header().Tensors
	}

	first := write("one.mpac")
	second := write("two.mpac")

	for i := range first {
		if first[i].Name != second[i].Name || first[i].Offset != second[i].Offset {
			t.Errorf("layout differs at %d: %+v vs %+v", i, first[i], second[i])
		}
	}
	// Sorted order: a, b, c
	if first[0].Name != "a" || first[1].Name != "b" || first[2].Name != "c" {
		t.Errorf("tensor order = %v, want sorted names", []string{first[0].Name, first[1].Name, first[2].Name})
	}
}

// TestCorruptionDetection verifies corrupted tensor data fails the checksum.
func TestCorruptionDetection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corrupt.mpac")

	stateDict := map[string]*tensor.RawTensor{
		"data": makeTensor(t, []float32{1, 2, 3, 4, 5, 6, 7, 8}, tensor.Shape{2, 4}),
	}

	writer, err := NewWriter(path)
	if err != nil {
		t.Fatalf("Failed to create writer: %v", err)
	}
	if err := writer.WriteStateDict(stateDict, "Classifier", nil, nil); err != nil {
		t.Fatalf("Failed to write: %v", err)
	}
	writer.Close()

	// Corrupt the last byte (definitely in tensor data)
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Failed to stat file: %v", err)
	}
	file, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		t.Fatalf("Failed to open file for corruption: %v", err)
	}
	if _, err := file.Seek(info.Size()-1, 0); err != nil {
		t.Fatalf("Failed to seek: %v", err)
	}
	if _, err := file.Write([]byte{0xFF}); err != nil {
		t.Fatalf("Failed to corrupt: %v", err)
	}
	file.Close()

	_, err = NewReader(path)
	if err == nil {
		t.Fatal("Expected checksum error for corrupted file")
	}
	if !errors.Is(err, ErrChecksumMismatch) {
		t.Errorf("error = %v, want ErrChecksumMismatch", err)
	}

	// Skipping validation should allow the open
	reader, err := NewReaderWithOptions(path, ReaderOptions{SkipChecksumValidation: true})
	if err != nil {
		t.Fatalf("Open with skipped checksum failed: %v", err)
	}
	reader.Close()
}

// TestInvalidMagic verifies non-.mpac files are rejected.
func TestInvalidMagic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bogus.mpac")
	if err := os.WriteFile(path, make([]byte, 128), 0o644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	_, err := NewReader(path)
	if err == nil {
		t.Fatal("Expected error for invalid magic")
	}
	if !errors.Is(err, ErrInvalidMagic) {
		t.Errorf("error = %v, want ErrInvalidMagic", err)
	}
}

func TestValidateTensorName(t *testing.T) {
	cases := []struct {
		name  string
		valid bool
	}{
		{"backbone.0.weight", true},
		{"head.bias", true},
		{"../etc/passwd", false},
		{"path/separator", false},
		{"back\\slash", false},
		{"null\x00byte", false},
	}

	for _, tc := range cases {
		err := ValidateTensorName(tc.name)
		if tc.valid && err != nil {
			t.Errorf("ValidateTensorName(%q) = %v, want nil", tc.name, err)
		}
		if !tc.valid && !errors.Is(err, ErrInvalidTensorName) {
			t.Errorf("ValidateTensorName(%q) = %v, want ErrInvalidTensorName", tc.name, err)
		}
	}
}

func TestValidateTensorOffsets(t *testing.T) {
	valid := []TensorMeta{
		{Name: "a", Offset: 0, Size: 16},
		{Name: "b", Offset: 16, Size: 8},
	}
	if err := ValidateTensorOffsets(valid, 24); err != nil {
		t.Errorf("valid offsets rejected: %v", err)
	}

	overlap := []TensorMeta{
		{Name: "a", Offset: 0, Size: 16},
		{Name: "b", Offset: 8, Size: 8},
	}
	if err := ValidateTensorOffsets(overlap, 24); !errors.Is(err, ErrOffsetOverlap) {
		t.Errorf("overlapping offsets: error = %v, want ErrOffsetOverlap", err)
	}

	outOfBounds := []TensorMeta{
		{Name: "a", Offset: 0, Size: 100},
	}
	if err := ValidateTensorOffsets(outOfBounds, 24); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("out-of-bounds tensor: error = %v, want ErrOutOfBounds", err)
	}

	negative := []TensorMeta{
		{Name: "a", Offset: -1, Size: 8},
	}
	if err := ValidateTensorOffsets(negative, 24); !errors.Is(err, ErrNegativeOffset) {
		t.Errorf("negative offset: error = %v, want ErrNegativeOffset", err)
	}
}

func TestChecksum(t *testing.T) {
	data := []byte("the quick brown fox")

	sum1 := ComputeChecksum(data)
	sum2 := ComputeChecksum(data)
	if sum1 != sum2 {
		t.Error("checksum not deterministic")
	}

	if err := ValidateChecksum(sum1, sum2); err != nil {
		t.Errorf("matching checksums rejected: %v", err)
	}

	var other [32]byte
	if err := ValidateChecksum(sum1, other); !errors.Is(err, ErrChecksumMismatch) {
		t.Errorf("mismatched checksums: error = %v, want ErrChecksumMismatch", err)
	}
}

package serialization

import (
	"time"

	"github.com/negvet/model-preparation-algorithm/internal/tensor"
)

// Layout of a .mpac file: a 64-byte fixed header, a JSON header, zero
// padding up to the next 64-byte boundary, then the raw tensor data.
//
// Fixed header fields, little-endian: magic at 0x00, version at 0x04,
// flags at 0x08, four reserved bytes, JSON header size at 0x10, data
// section size at 0x18 and the SHA-256 checksum of the data section at
// 0x20.
const (
	MagicBytes      = "MPAC"
	FormatVersion   = 1
	FixedHeaderSize = 64
	HeaderAlignment = 64
	ChecksumSize    = 32
	ChecksumOffset  = 0x20
)

// Flag bits in the fixed header.
const (
	FlagCompressed  uint32 = 1 << 0 // gzip compression (reserved)
	FlagHasMetadata uint32 = 1 << 1 // custom metadata present
)

// Header is the JSON header of a .mpac file.
type Header struct {
	FormatVersion int               `json:"format_version"`
	ToolVersion   string            `json:"tool_version"`
	ModelType     string            `json:"model_type"` // e.g. "Classifier"
	CreatedAt     time.Time         `json:"created_at"`
	Classes       []string          `json:"classes,omitempty"` // class names the model was trained on
	Tensors       []TensorMeta      `json:"tensors"`
	Metadata      map[string]string `json:"metadata"`
}

// TensorMeta locates one tensor inside the data section.
type TensorMeta struct {
	Name   string `json:"name"`   // e.g. "backbone.0.weight"
	DType  string `json:"dtype"`  // e.g. "float32"
	Shape  []int  `json:"shape"`
	Offset int64  `json:"offset"` // bytes from the start of the data section
	Size   int64  `json:"size"`
}

// dtypeNames maps serialized dtype strings back to tensor data types.
// The forward direction is tensor.DataType.String.
var dtypeNames = map[string]tensor.DataType{
	tensor.Float32.String(): tensor.Float32,
	tensor.Float64.String(): tensor.Float64,
	tensor.Int32.String():   tensor.Int32,
	tensor.Int64.String():   tensor.Int64,
	tensor.Uint8.String():   tensor.Uint8,
}

func stringToDtype(s string) (tensor.DataType, bool) {
	dt, ok := dtypeNames[s]
	return dt, ok
}

// alignUp rounds n up to the next multiple of align.
func alignUp(n, align int64) int64 {
	return (n + align - 1) / align * align
}

// Package tensor provides the core tensor types used by the model
// preparation pipeline: shapes, runtime data types, and the raw
// reference-counted tensor that datasets, models and checkpoints exchange.
package tensor

// DataType tags the element type of a tensor at runtime.
type DataType int

// Supported element types.
const (
	Float32 DataType = iota
	Float64
	Int32
	Int64
	Uint8
)

var dtypeInfo = [...]struct {
	name string
	size int
}{
	Float32: {"float32", 4},
	Float64: {"float64", 8},
	Int32:   {"int32", 4},
	Int64:   {"int64", 8},
	Uint8:   {"uint8", 1},
}

// Size returns the width of one element in bytes.
func (dt DataType) Size() int {
	if dt < 0 || int(dt) >= len(dtypeInfo) {
		panic("tensor: DataType out of range")
	}
	return dtypeInfo[dt].size
}

// String returns the lowercase type name.
func (dt DataType) String() string {
	if dt < 0 || int(dt) >= len(dtypeInfo) {
		return "unknown"
	}
	return dtypeInfo[dt].name
}

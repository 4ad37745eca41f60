package tensor

// Backend defines the compute operations the classifier models need.
// Implementations handle the actual arithmetic for one device.
//
// Operations allocate and return new tensors; they panic on shape or dtype
// mismatches, which are programming errors rather than runtime conditions.
type Backend interface {
	// MatMul computes [M, K] @ [K, N] -> [M, N] for Float32 tensors.
	MatMul(a, b *RawTensor) *RawTensor

	// Add computes element-wise a + b. A 1D or [1, N] operand b is
	// broadcast across the rows of a (bias addition).
	Add(a, b *RawTensor) *RawTensor

	// Mul computes element-wise a * b for equal shapes.
	Mul(a, b *RawTensor) *RawTensor

	// Scale multiplies every element by a scalar.
	Scale(x *RawTensor, s float32) *RawTensor

	// ReLU applies max(0, x) element-wise.
	ReLU(x *RawTensor) *RawTensor

	// Softmax normalizes along dim into a probability distribution.
	Softmax(x *RawTensor, dim int) *RawTensor

	// Argmax returns the Int64 indices of the maximum along dim.
	Argmax(x *RawTensor, dim int) *RawTensor

	// MeanDim averages along dim, optionally keeping it as size 1.
	MeanDim(x *RawTensor, dim int, keepDim bool) *RawTensor

	// Transpose2D swaps the two dimensions of a matrix.
	Transpose2D(x *RawTensor) *RawTensor

	// Reshape returns a view-copy with a new shape of equal element count.
	Reshape(x *RawTensor, shape Shape) *RawTensor

	// Metadata
	Name() string
	Device() Device
}

package tensor

// Backend defines the operations a compute backend provides to the network.
//
// Every operation returns a newly allocated RawTensor. Implementations must
// not modify their operands: the network relies on this to keep Forward free
// of side effects and safe for concurrent callers.
type Backend interface {
	// Element-wise binary operations with NumPy-style broadcasting.
	Add(a, b *RawTensor) *RawTensor
	Sub(a, b *RawTensor) *RawTensor

	// Conv2D convolves an [N, C_in, H, W] input with a [C_out, C_in, K_h, K_w]
	// kernel using symmetric zero padding.
	Conv2D(input, kernel *RawTensor, stride, padding int) *RawTensor

	// Reshape returns a copy of t with a new shape of equal element count.
	Reshape(t *RawTensor, newShape Shape) *RawTensor

	// Activations (element-wise).
	ReLU(x *RawTensor) *RawTensor       // max(0, x)
	LogSigmoid(x *RawTensor) *RawTensor // log(1 / (1 + exp(-x)))

	// LogSumExp reduces every element of x to a scalar log(sum(exp(x))).
	LogSumExp(x *RawTensor) *RawTensor

	// Metadata
	Name() string
	Device() Device
}

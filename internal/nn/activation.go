package nn

import (
	"github.com/born-ml/scenecoord/internal/tensor"
)

// ReLU is a Rectified Linear Unit activation module.
//
// Applies the element-wise function: f(x) = max(0, x)
//
// Example:
//
//	relu := nn.NewReLU[Backend]()
//	output := relu.Forward(input) // All negative values become 0
type ReLU[B tensor.Backend] struct{}

// NewReLU creates a new ReLU activation module.
func NewReLU[B tensor.Backend]() *ReLU[B] {
	return &ReLU[B]{}
}

// Forward applies ReLU activation: f(x) = max(0, x).
func (r *ReLU[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	return input.ReLU()
}

// Parameters returns an empty slice (ReLU has no learned parameters).
func (r *ReLU[B]) Parameters() []*Parameter[B] {
	return nil
}

// LogSigmoid is a log-sigmoid activation module.
//
// Applies the element-wise function: f(x) = log(1 / (1 + exp(-x)))
// evaluated as min(x, 0) - log1p(exp(-|x|)) so that large |x| neither
// overflows nor rounds to log(0).
type LogSigmoid[B tensor.Backend] struct{}

// NewLogSigmoid creates a new LogSigmoid activation module.
func NewLogSigmoid[B tensor.Backend]() *LogSigmoid[B] {
	return &LogSigmoid[B]{}
}

// Forward applies log-sigmoid activation.
func (l *LogSigmoid[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	return input.LogSigmoid()
}

// Parameters returns an empty slice (LogSigmoid has no learned parameters).
func (l *LogSigmoid[B]) Parameters() []*Parameter[B] {
	return nil
}

// LogNormalize subtracts the log-sum-exp over every element of x, so that
// exp of the result sums to 1 across the whole tensor regardless of shape.
//
//	logp := nn.LogNormalize(scores) // sum(exp(logp)) == 1
func LogNormalize[B tensor.Backend](x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	return x.Sub(x.LogSumExp())
}

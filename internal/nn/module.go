// Package nn implements the neural network building blocks used by the
// scene coordinate network:
//   - Module and Stateful interfaces
//   - Parameter: named learned tensors with gradient tracking
//   - Conv2D: 2D convolution with bias
//   - Functional activations: ReLU, LogSigmoid, LogNormalize
//   - State dictionaries and .born checkpoints
//
// Design inspired by PyTorch's nn.Module but adapted for Go generics.
package nn

import (
	"github.com/born-ml/scenecoord/internal/tensor"
)

// Module is the base interface for single-input, single-output components.
//
// Type parameter B must satisfy the tensor.Backend interface.
type Module[B tensor.Backend] interface {
	// Forward computes the output of the module given an input tensor.
	Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B]

	// Parameters returns all learned parameters of this module.
	// Returns an empty slice for modules without parameters.
	Parameters() []*Parameter[B]
}

// Stateful is implemented by anything whose learned state can be exported
// to and restored from a state dictionary keyed by parameter name.
type Stateful interface {
	// StateDict returns deep copies of all persistent tensors.
	StateDict() map[string]*tensor.RawTensor

	// LoadStateDict overwrites persistent tensors from stateDict.
	LoadStateDict(stateDict map[string]*tensor.RawTensor) error
}

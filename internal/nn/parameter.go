package nn

import (
	"fmt"

	"github.com/born-ml/scenecoord/internal/tensor"
)

// Parameter represents a learned tensor in a neural network.
//
// The tensor is marked with RequireGrad so an external trainer can tell
// which activations depend on it.
//
//	weight := nn.NewParameter("conv1.weight", weightTensor)
//	w := weight.Tensor()
type Parameter[B tensor.Backend] struct {
	name   string                     // Parameter name (e.g., "conv1.weight")
	tensor *tensor.Tensor[float32, B] // The parameter tensor
}

// NewParameter creates a new learned parameter.
func NewParameter[B tensor.Backend](name string, t *tensor.Tensor[float32, B]) *Parameter[B] {
	return &Parameter[B]{
		name:   name,
		tensor: t.RequireGrad(),
	}
}

// Name returns the parameter name.
func (p *Parameter[B]) Name() string {
	return p.name
}

// Tensor returns the parameter tensor.
func (p *Parameter[B]) Tensor() *tensor.Tensor[float32, B] {
	return p.tensor
}

// Shape returns the parameter's shape.
func (p *Parameter[B]) Shape() tensor.Shape {
	return p.tensor.Shape()
}

// Load copies raw into the parameter.
// The shape must match exactly and raw must hold float32 data.
func (p *Parameter[B]) Load(raw *tensor.RawTensor) error {
	if raw.DType() != tensor.Float32 {
		return fmt.Errorf("parameter %s: expected float32, got %s", p.name, raw.DType())
	}
	if !raw.Shape().Equal(p.Shape()) {
		return fmt.Errorf("parameter %s: expected shape %v, got %v", p.name, p.Shape(), raw.Shape())
	}
	copy(p.tensor.Data(), raw.AsFloat32())
	return nil
}

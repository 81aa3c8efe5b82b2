package scr

import (
	"github.com/born-ml/scenecoord/internal/nn"
	"github.com/born-ml/scenecoord/internal/tensor"
)

// residualBlock is conv-relu three times, added to a shortcut. The
// shortcut is the block input, or its 1x1 projection when skip is set.
// There is no activation after the addition.
type residualBlock[B tensor.Backend] struct {
	conv1, conv2, conv3 *nn.Conv2D[B]
	skip                *nn.Conv2D[B] // nil for identity shortcuts
}

// Forward computes shortcut(x) + relu(conv3(relu(conv2(relu(conv1(x)))))).
func (r *residualBlock[B]) Forward(x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	h := r.conv1.Forward(x).ReLU()
	h = r.conv2.Forward(h).ReLU()
	h = r.conv3.Forward(h).ReLU()

	shortcut := x
	if r.skip != nil {
		shortcut = r.skip.Forward(x)
	}
	return shortcut.Add(h)
}

// Parameters returns the block's parameters in declaration order, with the
// projection last.
func (r *residualBlock[B]) Parameters() []*nn.Parameter[B] {
	params := append(r.conv1.Parameters(), r.conv2.Parameters()...)
	params = append(params, r.conv3.Parameters()...)
	if r.skip != nil {
		params = append(params, r.skip.Parameters()...)
	}
	return params
}

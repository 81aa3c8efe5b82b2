package scr

import (
	"fmt"

	"github.com/born-ml/scenecoord/internal/nn"
	"github.com/born-ml/scenecoord/internal/tensor"
)

// Forward runs the network on a (B, 3, H, W) batch and returns scene
// coordinates (B, 3, H/8, W/8) and log guidance (B, 1, H/8, W/8).
//
// exp(logGuidance) sums to 1 over the whole batch, not per image.
// Neither input nor parameters are modified.
func (n *Network[B]) Forward(input *tensor.Tensor[float32, B]) (coords, logGuidance *tensor.Tensor[float32, B], err error) {
	batch, height, width, err := validateInput(input.Shape())
	if err != nil {
		return nil, nil, err
	}

	res := n.Trunk(input)

	coords = n.coordHead.Forward(res).Add(n.mean.Reshape(1, 3, 1, 1))

	// The guidance head reads a detached view so that it cannot train the trunk.
	logGuidance = n.guideHead.Forward(res.Detach())
	logGuidance = nn.LogNormalize(logGuidance.Reshape(logGuidance.NumElements()))
	logGuidance = logGuidance.Reshape(batch, 1, height/OutputSubsample, width/OutputSubsample)

	return coords, logGuidance, nil
}

// Trunk returns the shared 512-channel features at 1/8 resolution that
// both heads consume. The input must already satisfy Forward's shape
// requirements.
func (n *Network[B]) Trunk(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	res := n.stem.Forward(input)
	for _, block := range n.blocks {
		res = block.Forward(res)
	}
	return res
}

// ValidateInput reports whether shape is acceptable to Forward.
func ValidateInput(shape tensor.Shape) error {
	_, _, _, err := validateInput(shape)
	return err
}

func validateInput(shape tensor.Shape) (batch, height, width int, err error) {
	b, c, h, w, ok := shape.NCHW()
	switch {
	case !ok:
		return 0, 0, 0, fmt.Errorf("%w: expected 4D input (B, 3, H, W), got %v", ErrShapeMismatch, shape)
	case b <= 0:
		return 0, 0, 0, fmt.Errorf("%w: empty batch in %v", ErrShapeMismatch, shape)
	case c != 3:
		return 0, 0, 0, fmt.Errorf("%w: expected 3 channels, got %d", ErrShapeMismatch, c)
	case h <= 0 || w <= 0 || h%OutputSubsample != 0 || w%OutputSubsample != 0:
		return 0, 0, 0, fmt.Errorf("%w: height and width must be positive multiples of %d, got %dx%d",
			ErrShapeMismatch, OutputSubsample, h, w)
	}
	return b, h, w, nil
}

package scr

import (
	"errors"
	"fmt"

	"github.com/born-ml/scenecoord/internal/nn"
	"github.com/born-ml/scenecoord/internal/tensor"
)

// meanKey is the state dict entry holding the mean coordinate buffer.
const meanKey = "mean"

// Parameters returns every learned parameter in declaration order:
// stem, residual blocks, coordinate head, guidance head.
func (n *Network[B]) Parameters() []*nn.Parameter[B] {
	params := n.TrunkParameters()
	params = append(params, n.CoordinateHeadParameters()...)
	return append(params, n.GuidanceHeadParameters()...)
}

// TrunkParameters returns the stem and residual block parameters, which
// receive gradients only through the coordinate head.
func (n *Network[B]) TrunkParameters() []*nn.Parameter[B] {
	params := n.stem.Parameters()
	for _, block := range n.blocks {
		params = append(params, block.Parameters()...)
	}
	return params
}

// CoordinateHeadParameters returns fc1, fc2 and fc3.
func (n *Network[B]) CoordinateHeadParameters() []*nn.Parameter[B] {
	return n.coordHead.Parameters()
}

// GuidanceHeadParameters returns fc1_1, fc2_1 and fc3_1. A trainer must
// update these from the guidance loss without propagating that loss into
// TrunkParameters.
func (n *Network[B]) GuidanceHeadParameters() []*nn.Parameter[B] {
	return n.guideHead.Parameters()
}

// NumParameters returns the total number of learned scalars.
func (n *Network[B]) NumParameters() int {
	total := 0
	for _, p := range n.Parameters() {
		total += p.Shape().NumElements()
	}
	return total
}

// StateDict returns copies of all parameters and the mean buffer, keyed by
// their PyTorch names.
func (n *Network[B]) StateDict() map[string]*tensor.RawTensor {
	sd := nn.StateDict(n.Parameters())
	sd[meanKey] = n.mean.Raw().Clone()
	return sd
}

// LoadStateDict replaces all parameters and the mean buffer. Every entry
// must be present with the expected shape and no other keys are allowed.
// On error the network is left unchanged.
func (n *Network[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	mean, ok := stateDict[meanKey]
	if !ok {
		return fmt.Errorf("%w: %s", nn.ErrMissingKey, meanKey)
	}
	if mean.DType() != tensor.Float32 || !mean.Shape().Equal(tensor.Shape{3}) {
		return fmt.Errorf("%w: %s must be float32 [3], got %s %v", ErrShapeMismatch, meanKey, mean.DType(), mean.Shape())
	}

	if err := nn.LoadStateDict(n.Parameters(), stateDict, meanKey); err != nil {
		if errors.Is(err, nn.ErrShape) {
			return fmt.Errorf("%w: %w", ErrShapeMismatch, err)
		}
		return err
	}
	copy(n.mean.Data(), mean.AsFloat32())
	return nil
}

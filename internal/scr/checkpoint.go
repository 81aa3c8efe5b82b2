package scr

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/born-ml/scenecoord/internal/nn"
	"github.com/born-ml/scenecoord/internal/serialization"
	"github.com/born-ml/scenecoord/internal/tensor"
)

// Metadata keys written by Save.
const (
	MetaOutputSubsample = "output_subsample"
	MetaMean            = "mean"
)

// Save writes the network to path. Files ending in ".safetensors" use the
// SafeTensors format; anything else is written as a .born v2 checkpoint.
func (n *Network[B]) Save(path string) error {
	ckpt := &nn.Checkpoint{
		ModelType: ModelType,
		StateDict: n.StateDict(),
		Metadata: map[string]string{
			MetaOutputSubsample: strconv.Itoa(OutputSubsample),
			MetaMean:            formatMean(n.Mean()),
		},
	}
	return ckpt.Save(path)
}

// Load reads a network saved by Save, or a SafeTensors export of the
// PyTorch module's state_dict(). The format is detected from the file
// contents.
func Load[B tensor.Backend](path string, backend B) (*Network[B], error) {
	ckpt, err := nn.LoadCheckpoint(path)
	if err != nil {
		return nil, err
	}
	if ckpt.Format == nn.FormatBorn && ckpt.ModelType != "" && ckpt.ModelType != ModelType {
		return nil, fmt.Errorf("%s: model type %q, expected %q", path, ckpt.ModelType, ModelType)
	}
	return fromStateDict(path, ckpt.StateDict, backend)
}

// LoadSafeTensors reads a SafeTensors file holding the PyTorch module's
// state_dict(). F16 and BF16 exports are widened to float32.
func LoadSafeTensors[B tensor.Backend](path string, backend B) (*Network[B], error) {
	r, err := serialization.OpenSafeTensors(path)
	if err != nil {
		return nil, err
	}
	stateDict, err := r.StateDict()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return fromStateDict(path, stateDict, backend)
}

func fromStateDict[B tensor.Backend](path string, stateDict map[string]*tensor.RawTensor, backend B) (*Network[B], error) {
	mean, ok := stateDict[meanKey]
	if !ok {
		return nil, fmt.Errorf("%s: %w: %s", path, nn.ErrMissingKey, meanKey)
	}
	if mean.DType() != tensor.Float32 {
		return nil, fmt.Errorf("%s: %w: %s must be float32, got %s", path, ErrShapeMismatch, meanKey, mean.DType())
	}
	if !mean.Shape().Equal(tensor.Shape{3}) {
		return nil, fmt.Errorf("%s: %w: %s has shape %v, want [3]", path, ErrShapeMismatch, meanKey, mean.Shape())
	}

	// Initial values are overwritten below, so a fixed seed avoids touching
	// the global source.
	n, err := New(mean.AsFloat32(), backend, WithSeed(0))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := n.LoadStateDict(stateDict); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return n, nil
}

func formatMean(mean []float32) string {
	parts := make([]string, len(mean))
	for i, v := range mean {
		parts[i] = strconv.FormatFloat(float64(v), 'g', -1, 32)
	}
	return strings.Join(parts, ",")
}

// ParseMean parses a comma-separated coordinate such as "0.5,-1,2.25".
func ParseMean(s string) ([]float32, error) {
	fields := strings.Split(s, ",")
	mean := make([]float32, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 32)
		if err != nil {
			return nil, fmt.Errorf("%w: mean component %q: %w", ErrInvalidArgument, f, err)
		}
		mean = append(mean, float32(v))
	}
	if len(mean) != 3 {
		return nil, fmt.Errorf("%w: mean must have 3 components, got %d", ErrInvalidArgument, len(mean))
	}
	return mean, nil
}

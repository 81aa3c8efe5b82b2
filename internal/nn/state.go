package nn

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/born-ml/scenecoord/internal/tensor"
)

// State dictionary errors.
var (
	ErrMissingKey    = errors.New("missing key in state dict")
	ErrUnexpectedKey = errors.New("unexpected key in state dict")
	ErrShape         = errors.New("tensor shape mismatch in state dict")
)

// StateDict copies every parameter into a map keyed by parameter name.
// The returned tensors do not alias parameter memory.
func StateDict[B tensor.Backend](params []*Parameter[B]) map[string]*tensor.RawTensor {
	out := make(map[string]*tensor.RawTensor, len(params))
	for _, p := range params {
		out[p.Name()] = p.Tensor().Raw().Clone()
	}
	return out
}

// LoadStateDict copies stateDict entries into params.
//
// Every parameter must be present with its exact shape. Keys that match no
// parameter are rejected unless listed in extra, which lets callers keep
// non-parameter buffers in the same dictionary. Nothing is written unless
// the whole dictionary validates.
func LoadStateDict[B tensor.Backend](params []*Parameter[B], stateDict map[string]*tensor.RawTensor, extra ...string) error {
	known := make(map[string]bool, len(params)+len(extra))
	for _, name := range extra {
		known[name] = true
	}

	var missing []string
	for _, p := range params {
		known[p.Name()] = true
		raw, ok := stateDict[p.Name()]
		if !ok {
			missing = append(missing, p.Name())
			continue
		}
		if raw.DType() != tensor.Float32 {
			return fmt.Errorf("%w: %s: expected float32, got %s", ErrShape, p.Name(), raw.DType())
		}
		if !raw.Shape().Equal(p.Shape()) {
			return fmt.Errorf("%w: %s: expected %v, got %v", ErrShape, p.Name(), p.Shape(), raw.Shape())
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingKey, strings.Join(missing, ", "))
	}

	var unexpected []string
	for name := range stateDict {
		if !known[name] {
			unexpected = append(unexpected, name)
		}
	}
	if len(unexpected) > 0 {
		sort.Strings(unexpected)
		return fmt.Errorf("%w: %s", ErrUnexpectedKey, strings.Join(unexpected, ", "))
	}

	for _, p := range params {
		if err := p.Load(stateDict[p.Name()]); err != nil {
			return err
		}
	}
	return nil
}

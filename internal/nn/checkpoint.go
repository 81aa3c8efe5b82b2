package nn

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/born-ml/scenecoord/internal/serialization"
	"github.com/born-ml/scenecoord/internal/tensor"
)

// Format identifies an on-disk state dict encoding.
type Format int

// Supported checkpoint formats.
const (
	FormatBorn Format = iota
	FormatSafeTensors
)

// String returns the format name.
func (f Format) String() string {
	switch f {
	case FormatBorn:
		return "born"
	case FormatSafeTensors:
		return "safetensors"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// Checkpoint is a state dict together with the information needed to
// rebuild the model that produced it.
//
// Example:
//
//	ckpt := &nn.Checkpoint{
//	    ModelType: "SceneCoordinateNetwork",
//	    StateDict: model.StateDict(),
//	    Metadata:  map[string]string{"output_subsample": "8"},
//	}
//	err := ckpt.Save("model.born")
//
//	ckpt, err = nn.LoadCheckpoint("model.born")
//	err = model.LoadStateDict(ckpt.StateDict)
type Checkpoint struct {
	Format    Format                       // Format the checkpoint was read from
	ModelType string                       // Model type recorded in the header (.born only)
	CreatedAt time.Time                    // When the checkpoint was written (.born only)
	Metadata  map[string]string            // Custom metadata
	StateDict map[string]*tensor.RawTensor // Persistent tensors keyed by name
}

// Save writes the checkpoint to path. Paths ending in ".safetensors" are
// written as SafeTensors; everything else as .born v2.
func (c *Checkpoint) Save(path string) error {
	if strings.EqualFold(filepath.Ext(path), ".safetensors") {
		if err := serialization.WriteSafeTensors(path, c.StateDict, c.Metadata); err != nil {
			return fmt.Errorf("failed to write checkpoint: %w", err)
		}
		return nil
	}

	header := serialization.Header{
		ModelType: c.ModelType,
		CreatedAt: c.CreatedAt,
		Metadata:  c.Metadata,
	}
	if err := serialization.WriteFile(path, c.StateDict, header); err != nil {
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}
	return nil
}

// LoadCheckpoint reads a checkpoint from path. The format is detected from
// the file contents, not the extension.
func LoadCheckpoint(path string) (*Checkpoint, error) {
	magic, err := readMagic(path)
	if err != nil {
		return nil, err
	}

	if serialization.IsBorn(magic) {
		r, err := serialization.Open(path)
		if err != nil {
			return nil, err
		}
		stateDict, err := r.StateDict()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		h := r.Header()
		return &Checkpoint{
			Format:    FormatBorn,
			ModelType: h.ModelType,
			CreatedAt: h.CreatedAt,
			Metadata:  h.Metadata,
			StateDict: stateDict,
		}, nil
	}

	r, err := serialization.OpenSafeTensors(path)
	if err != nil {
		return nil, err
	}
	stateDict, err := r.StateDict()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &Checkpoint{
		Format:    FormatSafeTensors,
		Metadata:  r.Metadata(),
		StateDict: stateDict,
	}, nil
}

func readMagic(path string) ([]byte, error) {
	//nolint:gosec // G304: File path comes from user input, which is expected for model loading
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open checkpoint: %w", err)
	}
	defer func() { _ = f.Close() }()

	magic := make([]byte, len(serialization.MagicBytes))
	n, err := io.ReadFull(f, magic)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to read checkpoint: %w", err)
	}
	return magic[:n], nil
}

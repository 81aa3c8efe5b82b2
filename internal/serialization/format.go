package serialization

import (
	"time"

	"github.com/born-ml/scenecoord/internal/tensor"
)

// Format constants.
const (
	MagicBytes        = "BORN"
	FormatVersionV1   = 1    // v1: basic format without checksum (read only)
	FormatVersion     = 2    // v2: SHA-256 checksum of the data section
	HeaderAlignment   = 64   // Tensor data starts on a 64-byte boundary
	FixedHeaderSizeV1 = 20   // magic + version + flags + header size
	FixedHeaderSizeV2 = 64   // v2 fixed header size (0x40 bytes)
	ChecksumSize      = 32   // SHA-256 checksum size
	ChecksumOffsetV2  = 0x20 // Checksum offset in v2 fixed header
)

// Producer identifies this module in the header of files it writes.
const Producer = "scenecoord"

// Data type string constants for serialization.
const (
	DTypeFloat32 = "float32"
	DTypeFloat64 = "float64"
	DTypeInt32   = "int32"
	DTypeInt64   = "int64"
	DTypeUint8   = "uint8"
	DTypeBool    = "bool"
)

// Flags for the .born format.
const (
	FlagCompressed  uint32 = 1 << 0 // bit 0: gzip compression (rejected on read)
	FlagHasMetadata uint32 = 1 << 2 // bit 2: custom metadata included
)

// Header represents the JSON header in a .born file.
type Header struct {
	FormatVersion int               `json:"format_version"` // Version of the .born format
	Producer      string            `json:"born_version"`   // Software that wrote the file
	ModelType     string            `json:"model_type"`     // Type of model (e.g., "SceneCoordinateNetwork")
	CreatedAt     time.Time         `json:"created_at"`     // When the file was created
	Tensors       []TensorMeta      `json:"tensors"`        // Tensor metadata
	Metadata      map[string]string `json:"metadata"`       // Custom metadata
}

// TensorMeta describes a tensor in the .born file.
type TensorMeta struct {
	Name   string `json:"name"`   // Tensor name (e.g., "res1_conv1.weight")
	DType  string `json:"dtype"`  // Data type (e.g., "float32")
	Shape  []int  `json:"shape"`  // Tensor shape
	Offset int64  `json:"offset"` // Byte offset from the start of the data section
	Size   int64  `json:"size"`   // Size in bytes
}

var dtypeNames = map[tensor.DataType]string{
	tensor.Float32: DTypeFloat32,
	tensor.Float64: DTypeFloat64,
	tensor.Int32:   DTypeInt32,
	tensor.Int64:   DTypeInt64,
	tensor.Uint8:   DTypeUint8,
	tensor.Bool:    DTypeBool,
}

func dtypeToString(dt tensor.DataType) string {
	if s, ok := dtypeNames[dt]; ok {
		return s
	}
	return "unknown"
}

func stringToDtype(s string) (tensor.DataType, bool) {
	for dt, name := range dtypeNames {
		if name == s {
			return dt, true
		}
	}
	return 0, false
}

// alignedOffset returns the start of the data section for a file whose
// fixed header and JSON header together occupy pos bytes.
func alignedOffset(pos int64) int64 {
	return pos + (HeaderAlignment-(pos%HeaderAlignment))%HeaderAlignment
}

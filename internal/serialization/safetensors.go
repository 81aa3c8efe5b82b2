package serialization

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"

	"github.com/born-ml/scenecoord/internal/tensor"
)

// SafeTensors dtype names.
const (
	SafeTensorsF16  = "F16"
	SafeTensorsBF16 = "BF16"
	SafeTensorsF32  = "F32"
	SafeTensorsF64  = "F64"
	SafeTensorsI32  = "I32"
	SafeTensorsI64  = "I64"
	SafeTensorsU8   = "U8"
	SafeTensorsBool = "BOOL"
)

const safeTensorsMetadataKey = "__metadata__"

var safeTensorsDTypes = map[tensor.DataType]string{
	tensor.Float32: SafeTensorsF32,
	tensor.Float64: SafeTensorsF64,
	tensor.Int32:   SafeTensorsI32,
	tensor.Int64:   SafeTensorsI64,
	tensor.Uint8:   SafeTensorsU8,
	tensor.Bool:    SafeTensorsBool,
}

var safeTensorsElemSize = map[string]int{
	SafeTensorsF16:  2,
	SafeTensorsBF16: 2,
	SafeTensorsF32:  4,
	SafeTensorsF64:  8,
	SafeTensorsI32:  4,
	SafeTensorsI64:  8,
	SafeTensorsU8:   1,
	SafeTensorsBool: 1,
}

// SafeTensorInfo describes one tensor in a SafeTensors header.
type SafeTensorInfo struct {
	DType       string   `json:"dtype"`
	Shape       []int    `json:"shape"`
	DataOffsets [2]int64 `json:"data_offsets"` // [start, end) relative to the data section
}

// SafeTensorsReader gives access to the tensors of a SafeTensors file held
// in memory.
type SafeTensorsReader struct {
	metadata map[string]string
	tensors  map[string]SafeTensorInfo
	data     []byte
}

// OpenSafeTensors reads and parses the SafeTensors file at path.
func OpenSafeTensors(path string) (*SafeTensorsReader, error) {
	//nolint:gosec // G304: File path comes from user input, which is expected for model loading
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	r, err := ParseSafeTensors(buf)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

// ParseSafeTensors parses an in-memory SafeTensors file.
func ParseSafeTensors(buf []byte) (*SafeTensorsReader, error) {
	if len(buf) < 8 {
		return nil, ErrTruncated
	}
	headerSize := binary.LittleEndian.Uint64(buf[0:8])
	if headerSize > MaxHeaderSize {
		return nil, ErrHeaderTooLarge
	}
	end := 8 + int64(headerSize) //nolint:gosec // G115: bounded by MaxHeaderSize
	if end > int64(len(buf)) {
		return nil, fmt.Errorf("%w: header ends at %d, file has %d bytes", ErrTruncated, end, len(buf))
	}

	var rawMap map[string]json.RawMessage
	if err := json.Unmarshal(buf[8:end], &rawMap); err != nil {
		return nil, fmt.Errorf("failed to parse header JSON: %w", err)
	}

	r := &SafeTensorsReader{
		tensors: make(map[string]SafeTensorInfo, len(rawMap)),
		data:    buf[end:],
	}
	for key, value := range rawMap {
		if key == safeTensorsMetadataKey {
			if err := json.Unmarshal(value, &r.metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
			}
			continue
		}
		var info SafeTensorInfo
		if err := json.Unmarshal(value, &info); err != nil {
			return nil, fmt.Errorf("failed to unmarshal tensor %s: %w", key, err)
		}
		r.tensors[key] = info
	}

	if err := r.validate(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *SafeTensorsReader) validate() error {
	metas := make([]TensorMeta, 0, len(r.tensors))
	for name, info := range r.tensors {
		if err := ValidateTensorName(name); err != nil {
			return err
		}
		meta := TensorMeta{
			Name:   name,
			DType:  info.DType,
			Shape:  info.Shape,
			Offset: info.DataOffsets[0],
			Size:   info.DataOffsets[1] - info.DataOffsets[0],
		}
		// Unknown dtypes are kept so other tensors stay readable; LoadTensor
		// rejects them.
		if elemSize, ok := safeTensorsElemSize[info.DType]; ok {
			if err := checkSafeTensorSize(meta, elemSize); err != nil {
				return err
			}
		}
		metas = append(metas, meta)
	}
	return ValidateTensorOffsets(metas, int64(len(r.data)))
}

func checkSafeTensorSize(meta TensorMeta, elemSize int) error {
	want, err := TensorByteSize(meta.Name, meta.Shape, elemSize)
	if err != nil {
		return err
	}
	if want != meta.Size {
		return &ValidationError{
			Type:    "size_mismatch",
			Tensor:  meta.Name,
			Details: fmt.Sprintf("shape %v of %s needs %d bytes, data_offsets span %d", meta.Shape, meta.DType, want, meta.Size),
		}
	}
	return nil
}

// Metadata returns the __metadata__ map, or nil when absent.
func (r *SafeTensorsReader) Metadata() map[string]string {
	return r.metadata
}

// TensorNames returns the names of all tensors, sorted.
func (r *SafeTensorsReader) TensorNames() []string {
	names := make([]string, 0, len(r.tensors))
	for name := range r.tensors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TensorInfo returns header information for a specific tensor.
func (r *SafeTensorsReader) TensorInfo(name string) (*SafeTensorInfo, error) {
	info, ok := r.tensors[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTensorNotFound, name)
	}
	return &info, nil
}

// LoadTensor copies the named tensor out of the file. F16 and BF16 data is
// widened to float32.
func (r *SafeTensorsReader) LoadTensor(name string) (*tensor.RawTensor, error) {
	info, err := r.TensorInfo(name)
	if err != nil {
		return nil, err
	}
	src := r.data[info.DataOffsets[0]:info.DataOffsets[1]]
	shape := tensor.Shape(info.Shape)

	var widen func(uint16) float32
	dtype := tensor.Float32
	switch info.DType {
	case SafeTensorsF16:
		widen = Float16ToFloat32
	case SafeTensorsBF16:
		widen = BFloat16ToFloat32
	default:
		found := false
		for dt, s := range safeTensorsDTypes {
			if s == info.DType {
				dtype, found = dt, true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("%w: tensor %s has dtype %q", ErrUnsupportedDType, name, info.DType)
		}
	}

	meta := TensorMeta{
		Name:   name,
		DType:  info.DType,
		Shape:  info.Shape,
		Offset: info.DataOffsets[0],
		Size:   int64(len(src)),
	}
	if err := checkSafeTensorSize(meta, safeTensorsElemSize[info.DType]); err != nil {
		return nil, err
	}

	raw, err := tensor.NewRaw(shape, dtype, tensor.CPU)
	if err != nil {
		return nil, fmt.Errorf("tensor %s: %w", name, err)
	}

	if widen != nil {
		dst := raw.AsFloat32()
		for i := range dst {
			dst[i] = widen(binary.LittleEndian.Uint16(src[2*i:]))
		}
		return raw, nil
	}
	copy(raw.Data(), src)
	return raw, nil
}

// StateDict loads every tensor in the file.
func (r *SafeTensorsReader) StateDict() (map[string]*tensor.RawTensor, error) {
	out := make(map[string]*tensor.RawTensor, len(r.tensors))
	for name := range r.tensors {
		raw, err := r.LoadTensor(name)
		if err != nil {
			return nil, err
		}
		out[name] = raw
	}
	return out, nil
}

// WriteSafeTensors writes tensors to path in SafeTensors format.
// Tensors are laid out in name order.
func WriteSafeTensors(path string, tensors map[string]*tensor.RawTensor, metadata map[string]string) (err error) {
	names := make([]string, 0, len(tensors))
	for name := range tensors {
		names = append(names, name)
	}
	sort.Strings(names)

	header := make(map[string]any, len(names)+1)
	if len(metadata) > 0 {
		header[safeTensorsMetadataKey] = metadata
	}

	var offset int64
	for _, name := range names {
		raw := tensors[name]
		dt, ok := safeTensorsDTypes[raw.DType()]
		if !ok {
			return fmt.Errorf("%w: tensor %s has dtype %s", ErrUnsupportedDType, name, raw.DType())
		}
		size := int64(raw.ByteSize())
		header[name] = SafeTensorInfo{
			DType:       dt,
			Shape:       []int(raw.Shape().Clone()),
			DataOffsets: [2]int64{offset, offset + size},
		}
		offset += size
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("failed to marshal header: %w", err)
	}

	//nolint:gosec // G304: File path comes from user input, which is expected for model saving
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	w := bufio.NewWriter(file)
	if err := binary.Write(w, binary.LittleEndian, uint64(len(headerJSON))); err != nil {
		return fmt.Errorf("failed to write header size: %w", err)
	}
	if _, err := w.Write(headerJSON); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, name := range names {
		if _, err := w.Write(tensors[name].Data()); err != nil {
			return fmt.Errorf("failed to write tensor %s: %w", name, err)
		}
	}
	return w.Flush()
}

// Float16ToFloat32 converts an IEEE 754 half-precision value to float32.
func Float16ToFloat32(h uint16) float32 {
	sign := uint32(h>>15) << 31
	exp := int32(h>>10) & 0x1F
	mant := uint32(h & 0x3FF)

	switch {
	case exp == 0 && mant == 0:
		return math.Float32frombits(sign)
	case exp == 0:
		// Subnormal: shift until the implicit bit appears.
		exp = 1
		for mant&0x400 == 0 {
			mant <<= 1
			exp--
		}
		mant &= 0x3FF
	case exp == 0x1F:
		return math.Float32frombits(sign | 0x7F800000 | mant<<13)
	}
	return math.Float32frombits(sign | uint32(exp+127-15)<<23 | mant<<13)
}

// BFloat16ToFloat32 converts a bfloat16 value to float32.
func BFloat16ToFloat32(b uint16) float32 {
	return math.Float32frombits(uint32(b) << 16)
}

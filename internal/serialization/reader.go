package serialization

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/born-ml/scenecoord/internal/tensor"
)

// Reader gives access to the tensors of a .born file held in memory.
type Reader struct {
	header   Header
	version  uint32
	flags    uint32
	checksum [32]byte // zero for v1 files
	data     []byte   // data section
	index    map[string]int
}

// ReaderOption configures Open and Read.
type ReaderOption func(*readerConfig)

type readerConfig struct {
	skipChecksum bool
	level        ValidationLevel
}

// SkipChecksum disables SHA-256 verification of the data section.
func SkipChecksum() ReaderOption {
	return func(c *readerConfig) { c.skipChecksum = true }
}

// WithValidationLevel overrides the default ValidationStrict level.
func WithValidationLevel(level ValidationLevel) ReaderOption {
	return func(c *readerConfig) { c.level = level }
}

// Open reads and validates the .born file at path.
func Open(path string, opts ...ReaderOption) (*Reader, error) {
	//nolint:gosec // G304: File path comes from user input, which is expected for model loading
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	r, err := parse(buf, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

// Read reads and validates a .born stream.
func Read(src io.Reader, opts ...ReaderOption) (*Reader, error) {
	buf, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("failed to read: %w", err)
	}
	return parse(buf, opts)
}

// IsBorn reports whether buf starts with the .born magic bytes.
func IsBorn(buf []byte) bool {
	return bytes.HasPrefix(buf, []byte(MagicBytes))
}

func parse(buf []byte, opts []ReaderOption) (*Reader, error) {
	cfg := readerConfig{level: ValidationStrict}
	for _, opt := range opts {
		opt(&cfg)
	}

	if len(buf) < FixedHeaderSizeV1 {
		return nil, ErrTruncated
	}
	if !IsBorn(buf) {
		return nil, ErrInvalidMagic
	}

	r := &Reader{
		version: binary.LittleEndian.Uint32(buf[4:8]),
		flags:   binary.LittleEndian.Uint32(buf[8:12]),
	}

	var headerStart int64
	var headerSize, dataSize uint64
	switch r.version {
	case FormatVersionV1:
		headerSize = binary.LittleEndian.Uint64(buf[12:20])
		headerStart = FixedHeaderSizeV1
	case FormatVersion:
		if len(buf) < FixedHeaderSizeV2 {
			return nil, ErrTruncated
		}
		headerSize = binary.LittleEndian.Uint64(buf[16:24])
		dataSize = binary.LittleEndian.Uint64(buf[24:32])
		copy(r.checksum[:], buf[ChecksumOffsetV2:ChecksumOffsetV2+ChecksumSize])
		headerStart = FixedHeaderSizeV2
	default:
		return nil, fmt.Errorf("%w: got %d, expected %d or %d", ErrUnsupportedVersion, r.version, FormatVersionV1, FormatVersion)
	}

	if r.flags&FlagCompressed != 0 {
		return nil, fmt.Errorf("%w: compressed files are not supported", ErrUnsupportedVersion)
	}
	if headerSize > MaxHeaderSize {
		return nil, ErrHeaderTooLarge
	}

	headerEnd := headerStart + int64(headerSize) //nolint:gosec // G115: bounded by MaxHeaderSize
	if headerEnd > int64(len(buf)) {
		return nil, fmt.Errorf("%w: header ends at %d, file has %d bytes", ErrTruncated, headerEnd, len(buf))
	}
	if err := json.Unmarshal(buf[headerStart:headerEnd], &r.header); err != nil {
		return nil, fmt.Errorf("failed to parse header JSON: %w", err)
	}

	dataOffset := alignedOffset(headerEnd)
	if dataOffset > int64(len(buf)) {
		dataOffset = int64(len(buf))
	}
	r.data = buf[dataOffset:]
	if r.version == FormatVersion {
		if uint64(len(r.data)) < dataSize {
			return nil, fmt.Errorf("%w: data section has %d bytes, header declares %d", ErrTruncated, len(r.data), dataSize)
		}
		r.data = r.data[:dataSize]
		if !cfg.skipChecksum {
			if err := ValidateChecksum(ComputeChecksum(r.data), r.checksum); err != nil {
				return nil, err
			}
		}
	}

	if err := ValidateHeader(&r.header, int64(len(r.data)), cfg.level); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	r.index = make(map[string]int, len(r.header.Tensors))
	for i, t := range r.header.Tensors {
		r.index[t.Name] = i
	}
	return r, nil
}

// Header returns the file header.
func (r *Reader) Header() Header {
	return r.header
}

// Version returns the on-disk format version.
func (r *Reader) Version() uint32 {
	return r.version
}

// Checksum returns the stored SHA-256 of the data section (zero for v1).
func (r *Reader) Checksum() [32]byte {
	return r.checksum
}

// Metadata returns the custom metadata.
func (r *Reader) Metadata() map[string]string {
	return r.header.Metadata
}

// TensorNames returns the names of all tensors, sorted.
func (r *Reader) TensorNames() []string {
	names := make([]string, 0, len(r.header.Tensors))
	for _, t := range r.header.Tensors {
		names = append(names, t.Name)
	}
	sort.Strings(names)
	return names
}

// TensorInfo returns metadata for a specific tensor.
func (r *Reader) TensorInfo(name string) (*TensorMeta, error) {
	i, ok := r.index[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTensorNotFound, name)
	}
	meta := r.header.Tensors[i]
	return &meta, nil
}

// LoadTensor copies the named tensor out of the file.
func (r *Reader) LoadTensor(name string) (*tensor.RawTensor, error) {
	meta, err := r.TensorInfo(name)
	if err != nil {
		return nil, err
	}
	dtype, ok := stringToDtype(meta.DType)
	if !ok {
		return nil, fmt.Errorf("%w: tensor %s has dtype %q", ErrUnsupportedDType, name, meta.DType)
	}
	if err := ValidateTensorSize(*meta); err != nil {
		return nil, err
	}
	if meta.Offset < 0 || meta.Offset > int64(len(r.data))-meta.Size {
		return nil, &ValidationError{
			Type:    "out_of_bounds",
			Tensor:  name,
			Details: fmt.Sprintf("offset %d + size %d > data_size %d", meta.Offset, meta.Size, len(r.data)),
		}
	}
	raw, err := tensor.NewRaw(tensor.Shape(meta.Shape), dtype, tensor.CPU)
	if err != nil {
		return nil, fmt.Errorf("tensor %s: %w", name, err)
	}
	copy(raw.Data(), r.data[meta.Offset:meta.Offset+meta.Size])
	return raw, nil
}

// StateDict loads every tensor in the file.
func (r *Reader) StateDict() (map[string]*tensor.RawTensor, error) {
	out := make(map[string]*tensor.RawTensor, len(r.header.Tensors))
	for _, t := range r.header.Tensors {
		raw, err := r.LoadTensor(t.Name)
		if err != nil {
			return nil, err
		}
		out[t.Name] = raw
	}
	return out, nil
}

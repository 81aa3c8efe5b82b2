package serialization

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/born-ml/scenecoord/internal/tensor"
)

// WriteFile writes stateDict to path in .born v2 format.
//
// FormatVersion, Producer, Tensors and (when zero) CreatedAt in header are
// filled in by the writer. Tensors are stored sorted by name so the output
// is deterministic for a given state dict and creation time.
func WriteFile(path string, stateDict map[string]*tensor.RawTensor, header Header) (err error) {
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

	bw := bufio.NewWriter(file)
	if err := Write(bw, stateDict, header); err != nil {
		return err
	}
	return bw.Flush()
}

// Write writes stateDict to w in .born v2 format. See WriteFile.
func Write(w io.Writer, stateDict map[string]*tensor.RawTensor, header Header) error {
	names := make([]string, 0, len(stateDict))
	for name := range stateDict {
		if err := ValidateTensorName(name); err != nil {
			return err
		}
		names = append(names, name)
	}
	sort.Strings(names)

	header.FormatVersion = FormatVersion
	header.Producer = Producer
	if header.CreatedAt.IsZero() {
		header.CreatedAt = time.Now().UTC()
	}
	if header.Metadata == nil {
		header.Metadata = make(map[string]string)
	}
	header.Tensors = make([]TensorMeta, 0, len(names))

	var offset int64
	for _, name := range names {
		raw := stateDict[name]
		if _, ok := dtypeNames[raw.DType()]; !ok {
			return fmt.Errorf("%w: tensor %s has dtype %s", ErrUnsupportedDType, name, raw.DType())
		}
		size := int64(raw.ByteSize())
		header.Tensors = append(header.Tensors, TensorMeta{
			Name:   name,
			DType:  dtypeToString(raw.DType()),
			Shape:  []int(raw.Shape().Clone()),
			Offset: offset,
			Size:   size,
		})
		offset += size
	}

	data := make([]byte, 0, offset)
	for _, name := range names {
		data = append(data, stateDict[name].Data()...)
	}
	checksum := ComputeChecksum(data)

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("failed to marshal header: %w", err)
	}

	fixed := make([]byte, FixedHeaderSizeV2)
	copy(fixed[0:4], MagicBytes)
	binary.LittleEndian.PutUint32(fixed[4:8], FormatVersion)
	var flags uint32
	if len(header.Metadata) > 0 {
		flags |= FlagHasMetadata
	}
	binary.LittleEndian.PutUint32(fixed[8:12], flags)
	// 0x0C-0x0F reserved.
	binary.LittleEndian.PutUint64(fixed[16:24], uint64(len(headerJSON)))
	binary.LittleEndian.PutUint64(fixed[24:32], uint64(len(data)))
	copy(fixed[ChecksumOffsetV2:ChecksumOffsetV2+ChecksumSize], checksum[:])

	pos := int64(FixedHeaderSizeV2 + len(headerJSON))
	padding := make([]byte, alignedOffset(pos)-pos)

	for _, chunk := range [][]byte{fixed, headerJSON, padding, data} {
		if _, err := w.Write(chunk); err != nil {
			return fmt.Errorf("failed to write: %w", err)
		}
	}
	return nil
}

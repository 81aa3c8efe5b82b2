package serialization

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/scenecoord/internal/tensor"
)

func rawF32(t *testing.T, shape tensor.Shape, values ...float32) *tensor.RawTensor {
	t.Helper()
	raw, err := tensor.NewRaw(shape, tensor.Float32, tensor.CPU)
	require.NoError(t, err)
	copy(raw.AsFloat32(), values)
	return raw
}

func sampleStateDict(t *testing.T) map[string]*tensor.RawTensor {
	t.Helper()
	ints, err := tensor.NewRaw(tensor.Shape{3}, tensor.Int64, tensor.CPU)
	require.NoError(t, err)
	copy(ints.AsInt64(), []int64{-1, 0, 1 << 40})
	return map[string]*tensor.RawTensor{
		"conv1.weight": rawF32(t, tensor.Shape{2, 1, 1, 1}, 0.5, -0.25),
		"conv1.bias":   rawF32(t, tensor.Shape{2}, 1, 2),
		"mean":         rawF32(t, tensor.Shape{3}, 1.5, -2, 3.25),
		"steps":        ints,
	}
}

func TestBornRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.born")
	stateDict := sampleStateDict(t)
	created := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	require.NoError(t, WriteFile(path, stateDict, Header{
		ModelType: "TestModel",
		CreatedAt: created,
		Metadata:  map[string]string{"mean": "1.5,-2,3.25"},
	}))

	r, err := Open(path)
	require.NoError(t, err)

	assert.Equal(t, uint32(FormatVersion), r.Version())
	assert.Equal(t, "TestModel", r.Header().ModelType)
	assert.Equal(t, Producer, r.Header().Producer)
	assert.True(t, created.Equal(r.Header().CreatedAt))
	assert.Equal(t, "1.5,-2,3.25", r.Metadata()["mean"])
	assert.Equal(t, []string{"conv1.bias", "conv1.weight", "mean", "steps"}, r.TensorNames())

	loaded, err := r.StateDict()
	require.NoError(t, err)
	require.Len(t, loaded, len(stateDict))
	for name, want := range stateDict {
		got := loaded[name]
		require.NotNil(t, got, name)
		assert.Equal(t, want.DType(), got.DType(), name)
		assert.Equal(t, want.Shape(), got.Shape(), name)
		assert.Equal(t, want.Data(), got.Data(), name)
	}
}

func TestBornLayout(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleStateDict(t), Header{ModelType: "TestModel"}))
	b := buf.Bytes()

	assert.Equal(t, MagicBytes, string(b[0:4]))
	assert.Equal(t, uint32(FormatVersion), binary.LittleEndian.Uint32(b[4:8]))

	headerSize := int64(binary.LittleEndian.Uint64(b[16:24]))
	dataSize := int64(binary.LittleEndian.Uint64(b[24:32]))
	dataOffset := alignedOffset(FixedHeaderSizeV2 + headerSize)
	assert.Zero(t, dataOffset%HeaderAlignment)
	assert.Equal(t, int64(len(b)), dataOffset+dataSize)

	var stored [32]byte
	copy(stored[:], b[ChecksumOffsetV2:ChecksumOffsetV2+ChecksumSize])
	assert.Equal(t, ComputeChecksum(b[dataOffset:]), stored)
}

func TestBornDeterministic(t *testing.T) {
	created := time.Unix(0, 0).UTC()
	var a, b bytes.Buffer
	require.NoError(t, Write(&a, sampleStateDict(t), Header{CreatedAt: created}))
	require.NoError(t, Write(&b, sampleStateDict(t), Header{CreatedAt: created}))
	assert.Equal(t, a.Bytes(), b.Bytes())
}

func TestBornCorruption(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleStateDict(t), Header{}))
	good := buf.Bytes()

	t.Run("checksum", func(t *testing.T) {
		b := bytes.Clone(good)
		b[len(b)-1] ^= 0xFF
		_, err := Read(bytes.NewReader(b))
		require.ErrorIs(t, err, ErrChecksumMismatch)

		_, err = Read(bytes.NewReader(b), SkipChecksum())
		require.NoError(t, err)
	})

	t.Run("magic", func(t *testing.T) {
		b := bytes.Clone(good)
		copy(b, "NOPE")
		_, err := Read(bytes.NewReader(b))
		require.ErrorIs(t, err, ErrInvalidMagic)
	})

	t.Run("version", func(t *testing.T) {
		b := bytes.Clone(good)
		binary.LittleEndian.PutUint32(b[4:8], 99)
		_, err := Read(bytes.NewReader(b))
		require.ErrorIs(t, err, ErrUnsupportedVersion)
	})

	t.Run("header too large", func(t *testing.T) {
		b := bytes.Clone(good)
		binary.LittleEndian.PutUint64(b[16:24], MaxHeaderSize+1)
		_, err := Read(bytes.NewReader(b))
		require.ErrorIs(t, err, ErrHeaderTooLarge)
	})

	t.Run("truncated", func(t *testing.T) {
		_, err := Read(bytes.NewReader(good[:len(good)-4]))
		require.ErrorIs(t, err, ErrTruncated)

		_, err = Read(bytes.NewReader(good[:10]))
		require.ErrorIs(t, err, ErrTruncated)
	})
}

func TestReadV1(t *testing.T) {
	w := rawF32(t, tensor.Shape{2}, 3, 4)
	header := []byte(`{"format_version":1,"model_type":"Old","tensors":[{"name":"w","dtype":"float32","shape":[2],"offset":0,"size":8}],"metadata":{}}`)

	var buf bytes.Buffer
	buf.WriteString(MagicBytes)
	_ = binary.Write(&buf, binary.LittleEndian, uint32(FormatVersionV1))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(0))
	_ = binary.Write(&buf, binary.LittleEndian, uint64(len(header)))
	buf.Write(header)
	pos := int64(buf.Len())
	buf.Write(make([]byte, alignedOffset(pos)-pos))
	buf.Write(w.Data())

	r, err := Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, uint32(FormatVersionV1), r.Version())
	got, err := r.LoadTensor("w")
	require.NoError(t, err)
	assert.Equal(t, []float32{3, 4}, got.AsFloat32())
}

func TestReaderMissingTensor(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleStateDict(t), Header{}))
	r, err := Read(&buf)
	require.NoError(t, err)

	_, err = r.LoadTensor("nope")
	require.ErrorIs(t, err, ErrTensorNotFound)
	_, err = r.TensorInfo("nope")
	require.ErrorIs(t, err, ErrTensorNotFound)
}

func TestWriteRejectsBadNames(t *testing.T) {
	var buf bytes.Buffer
	err := Write(&buf, map[string]*tensor.RawTensor{"../evil": rawF32(t, tensor.Shape{1}, 1)}, Header{})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "invalid_name", verr.Type)
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.born"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestIsBorn(t *testing.T) {
	assert.True(t, IsBorn([]byte("BORN\x02\x00")))
	assert.False(t, IsBorn([]byte{8, 0, 0, 0, 0, 0, 0, 0}))
	assert.False(t, IsBorn(nil))
}

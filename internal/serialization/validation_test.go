package serialization

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validationType(t *testing.T, err error) string {
	t.Helper()
	if err == nil {
		return ""
	}
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	return verr.Type
}

func TestValidateTensorName(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"res1_conv1.weight", ""},
		{"mean", ""},
		{"", "invalid_name"},
		{"a/b", "invalid_name"},
		{`a\b`, "invalid_name"},
		{"..weight", "invalid_name"},
		{"w\x00", "invalid_name"},
		{strings.Repeat("x", MaxTensorNameLen+1), "name_too_long"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, validationType(t, ValidateTensorName(tt.name)), "%q", tt.name)
	}
}

func TestValidateTensorOffsets(t *testing.T) {
	tests := []struct {
		name    string
		tensors []TensorMeta
		size    int64
		want    string
	}{
		{"ok", []TensorMeta{{Name: "a", Offset: 0, Size: 8}, {Name: "b", Offset: 8, Size: 4}}, 12, ""},
		{"unsorted ok", []TensorMeta{{Name: "b", Offset: 8, Size: 4}, {Name: "a", Offset: 0, Size: 8}}, 12, ""},
		{"overlap", []TensorMeta{{Name: "a", Offset: 0, Size: 8}, {Name: "b", Offset: 4, Size: 4}}, 12, "offset_overlap"},
		{"out of bounds", []TensorMeta{{Name: "a", Offset: 8, Size: 8}}, 12, "out_of_bounds"},
		{"negative", []TensorMeta{{Name: "a", Offset: -1, Size: 4}}, 12, "negative_offset"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, validationType(t, ValidateTensorOffsets(tt.tensors, tt.size)))
		})
	}
}

func TestValidateTensorSize(t *testing.T) {
	assert.NoError(t, ValidateTensorSize(TensorMeta{Name: "w", DType: DTypeFloat32, Shape: []int{2, 3}, Size: 24}))
	assert.Equal(t, "size_mismatch", validationType(t, ValidateTensorSize(TensorMeta{Name: "w", DType: DTypeFloat32, Shape: []int{2, 3}, Size: 20})))
	assert.Equal(t, "invalid_dtype", validationType(t, ValidateTensorSize(TensorMeta{Name: "w", DType: "complex64", Shape: []int{1}, Size: 8})))
	assert.Equal(t, "invalid_shape", validationType(t, ValidateTensorSize(TensorMeta{Name: "w", DType: DTypeFloat32, Shape: []int{0}, Size: 0})))
	assert.Equal(t, "size_overflow", validationType(t, ValidateTensorSize(TensorMeta{Name: "w", DType: DTypeFloat32, Shape: []int{1 << 32, 1 << 32}, Size: 0})))
}

func TestTensorByteSize(t *testing.T) {
	tests := []struct {
		name     string
		shape    []int
		elemSize int
		want     int64
		errType  string
	}{
		{name: "scalar", shape: nil, elemSize: 4, want: 4},
		{name: "matrix", shape: []int{3, 5}, elemSize: 8, want: 120},
		{name: "zero dim", shape: []int{2, 0}, elemSize: 4, errType: "invalid_shape"},
		{name: "negative dim", shape: []int{-1}, elemSize: 4, errType: "invalid_shape"},
		{name: "element overflow", shape: []int{1 << 32, 1 << 32}, elemSize: 1, errType: "size_overflow"},
		{name: "byte overflow", shape: []int{math.MaxInt / 2}, elemSize: 4, errType: "size_overflow"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := TensorByteSize("w", tt.shape, tt.elemSize)
			if tt.errType != "" {
				assert.Equal(t, tt.errType, validationType(t, err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidateHeaderLevels(t *testing.T) {
	dup := &Header{Tensors: []TensorMeta{
		{Name: "a", DType: DTypeFloat32, Shape: []int{1}, Offset: 0, Size: 4},
		{Name: "a", DType: DTypeFloat32, Shape: []int{1}, Offset: 4, Size: 4},
	}}
	assert.Equal(t, "duplicate_name", validationType(t, ValidateHeader(dup, 8, ValidationNormal)))
	assert.NoError(t, ValidateHeader(dup, 8, ValidationNone))

	oob := &Header{Tensors: []TensorMeta{{Name: "a", DType: DTypeFloat32, Shape: []int{4}, Offset: 0, Size: 16}}}
	assert.NoError(t, ValidateHeader(oob, 8, ValidationNormal))
	assert.Equal(t, "out_of_bounds", validationType(t, ValidateHeader(oob, 8, ValidationStrict)))
}

func TestValidationErrorMessage(t *testing.T) {
	err := &ValidationError{Type: "offset_overlap", Tensor: "a", Tensor2: "b", Details: "x"}
	assert.Equal(t, `offset_overlap: tensors "a" and "b": x`, err.Error())
	err = &ValidationError{Type: "too_many_tensors", Details: "y"}
	assert.Equal(t, "too_many_tensors: y", err.Error())
}

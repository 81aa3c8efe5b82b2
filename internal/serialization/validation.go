package serialization

import (
	"fmt"
	"math"
	"slices"
	"strings"
)

// Validation limits for resource protection.
const (
	MaxHeaderSize    = 100 * 1024 * 1024 // 100MB - maximum header size
	MaxTensorCount   = 100_000           // Maximum number of tensors in a file
	MaxTensorNameLen = 4096              // Maximum tensor name length
)

// ValidationLevel controls the strictness of validation.
type ValidationLevel int

const (
	// ValidationStrict performs all checks, including offset overlap and
	// per-tensor size consistency.
	ValidationStrict ValidationLevel = iota
	// ValidationNormal checks tensor count and names only.
	ValidationNormal
	// ValidationNone skips header validation. Use only with trusted input.
	ValidationNone
)

// ValidateTensorOffsets checks for overlapping tensor regions and reads
// beyond the data section.
func ValidateTensorOffsets(tensors []TensorMeta, dataSize int64) error {
	if len(tensors) > MaxTensorCount {
		return &ValidationError{
			Type:    "too_many_tensors",
			Details: fmt.Sprintf("got %d, max %d", len(tensors), MaxTensorCount),
		}
	}

	sorted := slices.Clone(tensors)
	slices.SortFunc(sorted, func(a, b TensorMeta) int {
		switch {
		case a.Offset < b.Offset:
			return -1
		case a.Offset > b.Offset:
			return 1
		default:
			return 0
		}
	})

	for i, t := range sorted {
		if t.Offset < 0 || t.Size < 0 {
			return &ValidationError{
				Type:    "negative_offset",
				Tensor:  t.Name,
				Details: fmt.Sprintf("offset=%d, size=%d", t.Offset, t.Size),
			}
		}

		if t.Size > dataSize || t.Offset > dataSize-t.Size {
			return &ValidationError{
				Type:    "out_of_bounds",
				Tensor:  t.Name,
				Details: fmt.Sprintf("offset %d + size %d > data_size %d", t.Offset, t.Size, dataSize),
			}
		}

		if i < len(sorted)-1 {
			next := sorted[i+1]
			if t.Offset+t.Size > next.Offset {
				return &ValidationError{
					Type:    "offset_overlap",
					Tensor:  t.Name,
					Tensor2: next.Name,
					Details: fmt.Sprintf("regions [%d-%d] and [%d-%d] overlap",
						t.Offset, t.Offset+t.Size, next.Offset, next.Offset+next.Size),
				}
			}
		}
	}

	return nil
}

// ValidateTensorName rejects empty names, overlong names, path-like names
// and names containing NUL bytes.
func ValidateTensorName(name string) error {
	switch {
	case name == "":
		return &ValidationError{Type: "invalid_name", Details: "empty tensor name"}
	case len(name) > MaxTensorNameLen:
		return &ValidationError{
			Type:    "name_too_long",
			Tensor:  name,
			Details: fmt.Sprintf("length %d > max %d", len(name), MaxTensorNameLen),
		}
	case strings.Contains(name, ".."):
		return &ValidationError{Type: "invalid_name", Tensor: name, Details: "contains '..'"}
	case strings.ContainsAny(name, `/\`):
		return &ValidationError{Type: "invalid_name", Tensor: name, Details: "contains path separator (/ or \\)"}
	case strings.Contains(name, "\x00"):
		return &ValidationError{Type: "invalid_name", Tensor: name, Details: "contains null byte"}
	}
	return nil
}

// TensorByteSize returns the number of bytes a tensor with the given shape
// and element size occupies. Non-positive dimensions and element counts
// that do not fit in an int are rejected.
func TensorByteSize(name string, shape []int, elemSize int) (int64, error) {
	n := 1
	for _, d := range shape {
		if d <= 0 {
			return 0, &ValidationError{Type: "invalid_shape", Tensor: name, Details: fmt.Sprintf("shape %v", shape)}
		}
		if n > math.MaxInt/d {
			return 0, &ValidationError{Type: "size_overflow", Tensor: name, Details: fmt.Sprintf("shape %v has too many elements", shape)}
		}
		n *= d
	}
	if n > math.MaxInt/elemSize {
		return 0, &ValidationError{Type: "size_overflow", Tensor: name, Details: fmt.Sprintf("shape %v is too large", shape)}
	}
	return int64(n * elemSize), nil
}

// ValidateTensorSize checks that the declared byte size matches the shape
// and dtype.
func ValidateTensorSize(t TensorMeta) error {
	dt, ok := stringToDtype(t.DType)
	if !ok {
		return &ValidationError{Type: "invalid_dtype", Tensor: t.Name, Details: fmt.Sprintf("unknown dtype %q", t.DType)}
	}
	want, err := TensorByteSize(t.Name, t.Shape, dt.Size())
	if err != nil {
		return err
	}
	if want != t.Size {
		return &ValidationError{
			Type:    "size_mismatch",
			Tensor:  t.Name,
			Details: fmt.Sprintf("shape %v of %s needs %d bytes, header says %d", t.Shape, t.DType, want, t.Size),
		}
	}
	return nil
}

// ValidateHeader performs header validation at the given level.
func ValidateHeader(h *Header, dataSize int64, level ValidationLevel) error {
	if level == ValidationNone {
		return nil
	}

	if len(h.Tensors) > MaxTensorCount {
		return &ValidationError{
			Type:    "too_many_tensors",
			Details: fmt.Sprintf("got %d, max %d", len(h.Tensors), MaxTensorCount),
		}
	}

	seen := make(map[string]bool, len(h.Tensors))
	for _, t := range h.Tensors {
		if err := ValidateTensorName(t.Name); err != nil {
			return err
		}
		if seen[t.Name] {
			return &ValidationError{Type: "duplicate_name", Tensor: t.Name, Details: "tensor listed more than once"}
		}
		seen[t.Name] = true
	}

	if level == ValidationStrict {
		for _, t := range h.Tensors {
			if err := ValidateTensorSize(t); err != nil {
				return err
			}
		}
		if err := ValidateTensorOffsets(h.Tensors, dataSize); err != nil {
			return err
		}
	}

	return nil
}

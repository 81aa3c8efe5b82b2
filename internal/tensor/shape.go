package tensor

import (
	"fmt"
	"slices"
)

// Shape represents the dimensions of a tensor.
type Shape []int

// NumElements returns the total number of elements in the tensor.
func (s Shape) NumElements() int {
	n := 1 // a scalar has one element
	for _, dim := range s {
		n *= dim
	}
	return n
}

// Validate checks if the shape is valid (all dimensions > 0).
func (s Shape) Validate() error {
	for i, dim := range s {
		if dim <= 0 {
			return fmt.Errorf("invalid dimension at index %d: %d (must be > 0)", i, dim)
		}
	}
	return nil
}

// Equal checks if two shapes are equal.
func (s Shape) Equal(other Shape) bool {
	return slices.Equal(s, other)
}

// Clone returns a copy of the shape.
func (s Shape) Clone() Shape {
	return slices.Clone(s)
}

// NCHW splits a rank-4 image batch shape into its batch, channel, height and
// width dimensions. ok is false for any other rank.
func (s Shape) NCHW() (n, c, h, w int, ok bool) {
	if len(s) != 4 {
		return 0, 0, 0, 0, false
	}
	return s[0], s[1], s[2], s[3], true
}

// ComputeStrides calculates row-major strides for the shape.
// Strides define memory layout: stride[i] = product of all dimensions after i.
func (s Shape) ComputeStrides() []int {
	strides := make([]int, len(s))
	if len(s) == 0 {
		return strides
	}

	strides[len(s)-1] = 1
	for i := len(s) - 2; i >= 0; i-- {
		strides[i] = strides[i+1] * s[i+1]
	}
	return strides
}

// BroadcastShapes implements NumPy-style broadcasting rules.
//
// Shapes are compared right to left; two dimensions are compatible when they
// are equal or one of them is 1, and missing leading dimensions count as 1.
//
// Returns the broadcasted shape, whether broadcasting is needed, and an error
// if the shapes are incompatible.
//
//	(2, 3, 4, 4) + (1, 3, 1, 1) → (2, 3, 4, 4), true, nil
//	(128) + ()                  → (128), true, nil
//	(3, 4) + (3, 5)             → nil, false, Error
func BroadcastShapes(a, b Shape) (Shape, bool, error) {
	rank := max(len(a), len(b))
	result := make(Shape, rank)
	needsBroadcast := len(a) != len(b)

	for i := 0; i < rank; i++ {
		aDim, bDim := 1, 1
		if idx := len(a) - 1 - i; idx >= 0 {
			aDim = a[idx]
		}
		if idx := len(b) - 1 - i; idx >= 0 {
			bDim = b[idx]
		}

		switch {
		case aDim == bDim:
			result[rank-1-i] = aDim
		case aDim == 1:
			result[rank-1-i] = bDim
			needsBroadcast = true
		case bDim == 1:
			result[rank-1-i] = aDim
			needsBroadcast = true
		default:
			return nil, false, fmt.Errorf("shapes not compatible for broadcasting: %v vs %v (dimension %d: %d vs %d)",
				a, b, rank-1-i, aDim, bDim)
		}
	}

	return result, needsBroadcast, nil
}

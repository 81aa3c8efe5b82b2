package cpu

import (
	"github.com/born-ml/scenecoord/internal/tensor"
)

type float interface {
	~float32 | ~float64
}

// applyBinary writes op(a, b) into dst, broadcasting a and b to outShape.
func applyBinary[T float](dst, a, b []T, aShape, bShape, outShape tensor.Shape, needsBroadcast bool, op func(x, y T) T) {
	if !needsBroadcast {
		for i := range dst {
			dst[i] = op(a[i], b[i])
		}
		return
	}

	outStrides := outShape.ComputeStrides()
	aStrides := broadcastStrides(aShape, outShape)
	bStrides := broadcastStrides(bShape, outShape)

	for i := range dst {
		dst[i] = op(a[flatIndex(i, outStrides, aStrides)], b[flatIndex(i, outStrides, bStrides)])
	}
}

// broadcastStrides computes strides for reading a tensor of inShape as if it
// had outShape. Broadcast (size 1) and missing leading dimensions get stride 0.
func broadcastStrides(inShape, outShape tensor.Shape) []int {
	strides := make([]int, len(outShape))
	offset := len(outShape) - len(inShape)
	inStrides := inShape.ComputeStrides()

	for i := range outShape {
		inIdx := i - offset
		if inIdx < 0 || inShape[inIdx] == 1 {
			continue
		}
		strides[i] = inStrides[inIdx]
	}

	return strides
}

// flatIndex maps a flat output index to the source offset given the output
// strides and the broadcast-adjusted source strides.
func flatIndex(outIdx int, outStrides, inStrides []int) int {
	idx := 0
	for i, s := range outStrides {
		coord := outIdx / s
		outIdx %= s
		idx += coord * inStrides[i]
	}
	return idx
}

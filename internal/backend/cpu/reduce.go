package cpu

import (
	"fmt"
	"math"

	"github.com/born-ml/scenecoord/internal/tensor"
)

// LogSumExp reduces every element of x to the scalar log(sum(exp(x))).
//
// The maximum is subtracted before exponentiating and the sum is
// accumulated in float64. The result has shape [] (a scalar). If every
// element is -Inf the result is -Inf; a +Inf element yields +Inf.
func (cpu *CPUBackend) LogSumExp(x *tensor.RawTensor) *tensor.RawTensor {
	result, err := tensor.NewRaw(tensor.Shape{}, x.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("logsumexp: %v", err))
	}

	switch x.DType() {
	case tensor.Float32:
		result.AsFloat32()[0] = float32(logSumExp(x.AsFloat32()))
	case tensor.Float64:
		result.AsFloat64()[0] = logSumExp(x.AsFloat64())
	default:
		panic(fmt.Sprintf("logsumexp: unsupported dtype %s (only float32/float64 supported)", x.DType()))
	}

	return result
}

func logSumExp[T float](data []T) float64 {
	maxVal := math.Inf(-1)
	for _, v := range data {
		maxVal = math.Max(maxVal, float64(v))
	}
	if math.IsInf(maxVal, 0) {
		return maxVal
	}

	var sum float64
	for _, v := range data {
		sum += math.Exp(float64(v) - maxVal)
	}
	return maxVal + math.Log(sum)
}

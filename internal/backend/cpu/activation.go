package cpu

import (
	"fmt"
	"math"

	"github.com/born-ml/scenecoord/internal/tensor"
)

// ReLU applies max(0, x) element-wise.
func (cpu *CPUBackend) ReLU(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.unary("relu", x, relu[float32], relu[float64])
}

// LogSigmoid computes log(1 / (1 + exp(-x))) element-wise.
//
// The stable form min(x, 0) - log1p(exp(-|x|)) never exponentiates a
// positive number, so large-magnitude logits neither overflow nor round to
// log(0). Float32 inputs are evaluated in float64.
func (cpu *CPUBackend) LogSigmoid(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.unary("logsigmoid", x,
		func(v float32) float32 { return float32(logSigmoid(float64(v))) },
		logSigmoid,
	)
}

func relu[T float](v T) T {
	if v > 0 {
		return v
	}
	return 0
}

func logSigmoid(v float64) float64 {
	return math.Min(v, 0) - math.Log1p(math.Exp(-math.Abs(v)))
}

func (cpu *CPUBackend) unary(
	op string,
	x *tensor.RawTensor,
	f32 func(float32) float32,
	f64 func(float64) float64,
) *tensor.RawTensor {
	result, err := tensor.NewRaw(x.Shape(), x.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("%s: %v", op, err))
	}

	switch x.DType() {
	case tensor.Float32:
		mapInto(result.AsFloat32(), x.AsFloat32(), f32)
	case tensor.Float64:
		mapInto(result.AsFloat64(), x.AsFloat64(), f64)
	default:
		panic(fmt.Sprintf("%s: unsupported dtype %s (only float32/float64 supported)", op, x.DType()))
	}

	return result
}

func mapInto[T float](dst, src []T, f func(T) T) {
	for i, v := range src {
		dst[i] = f(v)
	}
}

package nn

import (
	"math"
	"math/rand"

	"github.com/born-ml/scenecoord/internal/tensor"
)

// Uniform fills a new tensor with values drawn from U(-bound, bound).
// A nil rng uses the math/rand global source.
func Uniform[B tensor.Backend](bound float64, shape tensor.Shape, backend B, rng *rand.Rand) *tensor.Tensor[float32, B] {
	t := tensor.Zeros[float32](shape, backend)

	next := rand.Float64 //nolint:gosec // Using math/rand for weight initialization (not security-critical)
	if rng != nil {
		next = rng.Float64
	}

	data := t.Data()
	for i := range data {
		data[i] = float32((next()*2.0 - 1.0) * bound)
	}
	return t
}

// KaimingUniform matches PyTorch's default Conv2d weight initialization,
// kaiming_uniform_ with a=sqrt(5), which reduces to U(-1/sqrt(fan_in), 1/sqrt(fan_in)).
func KaimingUniform[B tensor.Backend](fanIn int, shape tensor.Shape, backend B, rng *rand.Rand) *tensor.Tensor[float32, B] {
	return Uniform(1/math.Sqrt(float64(fanIn)), shape, backend, rng)
}

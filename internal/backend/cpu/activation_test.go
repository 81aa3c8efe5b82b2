package cpu

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/scenecoord/internal/tensor"
)

func TestReLU(t *testing.T) {
	x := rawFromSlice(t, []float32{-2, -0.5, 0, 0.5, 3}, tensor.Shape{5})

	out := New().ReLU(x)

	assert.Equal(t, []float32{0, 0, 0, 0.5, 3}, out.AsFloat32())
	assert.Equal(t, float32(-2), x.AsFloat32()[0], "input untouched")
}

func TestLogSigmoid_MatchesDefinition(t *testing.T) {
	values := []float32{-4, -1, -0.1, 0, 0.1, 1, 4}
	x := rawFromSlice(t, values, tensor.Shape{len(values)})

	out := New().LogSigmoid(x).AsFloat32()

	for i, v := range values {
		want := math.Log(1 / (1 + math.Exp(-float64(v))))
		assert.InDelta(t, want, float64(out[i]), 1e-6, "x=%v", v)
	}
}

func TestLogSigmoid_ExtremeLogits(t *testing.T) {
	x := rawFromSlice(t, []float32{-1e4, -100, 100, 1e4, float32(math.Inf(1))}, tensor.Shape{5})

	out := New().LogSigmoid(x).AsFloat32()

	assert.InDelta(t, -1e4, float64(out[0]), 1e-3, "≈x for very negative x")
	assert.InDelta(t, -100, float64(out[1]), 1e-4)
	assert.InDelta(t, 0, float64(out[2]), 1e-6)
	assert.Equal(t, float32(0), out[3])
	assert.Equal(t, float32(0), out[4])
	for i, v := range out {
		assert.False(t, math.IsNaN(float64(v)), "NaN at %d", i)
		assert.LessOrEqual(t, v, float32(0))
	}
}

func TestLogSumExp(t *testing.T) {
	x := rawFromSlice(t, []float32{0, 0, 0, 0}, tensor.Shape{2, 2})

	out := New().LogSumExp(x)

	require.Empty(t, out.Shape(), "scalar result")
	assert.InDelta(t, math.Log(4), float64(out.AsFloat32()[0]), 1e-6)
}

func TestLogSumExp_LargeMagnitudes(t *testing.T) {
	backend := New()

	big := rawFromSlice(t, []float32{1000, 1000}, tensor.Shape{2})
	assert.InDelta(t, 1000+math.Ln2, float64(backend.LogSumExp(big).AsFloat32()[0]), 1e-3)

	small := rawFromSlice(t, []float32{-1000, -1000, -1000}, tensor.Shape{3})
	assert.InDelta(t, -1000+math.Log(3), float64(backend.LogSumExp(small).AsFloat32()[0]), 1e-3)

	negInf := float32(math.Inf(-1))
	allNegInf := rawFromSlice(t, []float32{negInf, negInf}, tensor.Shape{2})
	assert.True(t, math.IsInf(float64(backend.LogSumExp(allNegInf).AsFloat32()[0]), -1))
}

func TestUnary_UnsupportedDTypePanics(t *testing.T) {
	x, err := tensor.NewRaw(tensor.Shape{2}, tensor.Int32, tensor.CPU)
	require.NoError(t, err)
	assert.Panics(t, func() { New().ReLU(x) })
	assert.Panics(t, func() { New().LogSumExp(x) })
}

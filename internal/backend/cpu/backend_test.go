package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/scenecoord/internal/tensor"
)

func rawFromSlice(t *testing.T, data []float32, shape tensor.Shape) *tensor.RawTensor {
	t.Helper()
	raw, err := tensor.NewRaw(shape, tensor.Float32, tensor.CPU)
	require.NoError(t, err)
	copy(raw.AsFloat32(), data)
	return raw
}

func TestCPUBackend_Metadata(t *testing.T) {
	backend := New()
	assert.Equal(t, "CPU", backend.Name())
	assert.Equal(t, tensor.CPU, backend.Device())
}

func TestAdd_SameShape(t *testing.T) {
	backend := New()
	a := rawFromSlice(t, []float32{1, 2, 3, 4}, tensor.Shape{2, 2})
	b := rawFromSlice(t, []float32{10, 20, 30, 40}, tensor.Shape{2, 2})

	out := backend.Add(a, b)

	assert.Equal(t, []float32{11, 22, 33, 44}, out.AsFloat32())
	assert.Equal(t, []float32{1, 2, 3, 4}, a.AsFloat32(), "operands must not be modified")
}

func TestAdd_ChannelBroadcast(t *testing.T) {
	backend := New()
	// [1, 2, 2, 2] + [1, 2, 1, 1]: per-channel offset
	x := rawFromSlice(t, []float32{1, 1, 1, 1, 2, 2, 2, 2}, tensor.Shape{1, 2, 2, 2})
	bias := rawFromSlice(t, []float32{100, -100}, tensor.Shape{1, 2, 1, 1})

	out := backend.Add(x, bias)

	assert.True(t, out.Shape().Equal(tensor.Shape{1, 2, 2, 2}))
	assert.Equal(t, []float32{101, 101, 101, 101, -98, -98, -98, -98}, out.AsFloat32())
}

func TestSub_ScalarBroadcast(t *testing.T) {
	backend := New()
	x := rawFromSlice(t, []float32{1, 2, 3}, tensor.Shape{3})
	s := rawFromSlice(t, []float32{1.5}, tensor.Shape{})

	out := backend.Sub(x, s)

	assert.Equal(t, []float32{-0.5, 0.5, 1.5}, out.AsFloat32())
}

func TestAdd_IncompatiblePanics(t *testing.T) {
	backend := New()
	a := rawFromSlice(t, make([]float32, 6), tensor.Shape{2, 3})
	b := rawFromSlice(t, make([]float32, 4), tensor.Shape{2, 2})
	assert.Panics(t, func() { backend.Add(a, b) })
}

func TestAdd_Float64(t *testing.T) {
	backend := New()
	a, err := tensor.NewRaw(tensor.Shape{2}, tensor.Float64, tensor.CPU)
	require.NoError(t, err)
	copy(a.AsFloat64(), []float64{0.25, 0.5})

	out := backend.Add(a, a)
	assert.Equal(t, []float64{0.5, 1}, out.AsFloat64())
}

func TestReshape(t *testing.T) {
	backend := New()
	x := rawFromSlice(t, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{1, 1, 2, 3})

	flat := backend.Reshape(x, tensor.Shape{6})
	assert.True(t, flat.Shape().Equal(tensor.Shape{6}))
	assert.Equal(t, x.AsFloat32(), flat.AsFloat32())

	flat.AsFloat32()[0] = 42
	assert.Equal(t, float32(1), x.AsFloat32()[0], "reshape returns a copy")

	assert.Panics(t, func() { backend.Reshape(x, tensor.Shape{4}) })
}

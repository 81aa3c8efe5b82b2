package cpu

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/scenecoord/internal/parallel"
	"github.com/born-ml/scenecoord/internal/tensor"
)

// naiveConv2D is a direct six-loop reference convolution.
func naiveConv2D(in, k []float32, n, cIn, h, w, cOut, kH, kW, stride, pad int) ([]float32, int, int) {
	hOut := (h+2*pad-kH)/stride + 1
	wOut := (w+2*pad-kW)/stride + 1
	out := make([]float32, n*cOut*hOut*wOut)
	for b := 0; b < n; b++ {
		for co := 0; co < cOut; co++ {
			for oh := 0; oh < hOut; oh++ {
				for ow := 0; ow < wOut; ow++ {
					var sum float32
					for ci := 0; ci < cIn; ci++ {
						for i := 0; i < kH; i++ {
							for j := 0; j < kW; j++ {
								y, x := oh*stride-pad+i, ow*stride-pad+j
								if y < 0 || y >= h || x < 0 || x >= w {
									continue
								}
								sum += in[((b*cIn+ci)*h+y)*w+x] * k[((co*cIn+ci)*kH+i)*kW+j]
							}
						}
					}
					out[((b*cOut+co)*hOut+oh)*wOut+ow] = sum
				}
			}
		}
	}
	return out, hOut, wOut
}

func randomRaw(t *testing.T, rng *rand.Rand, shape tensor.Shape) *tensor.RawTensor {
	t.Helper()
	raw, err := tensor.NewRaw(shape, tensor.Float32, tensor.CPU)
	require.NoError(t, err)
	for i := range raw.AsFloat32() {
		raw.AsFloat32()[i] = rng.Float32()*2 - 1
	}
	return raw
}

// TestConv2D_BasicForward checks a 2x2 diagonal kernel on a 3x3 ramp.
func TestConv2D_BasicForward(t *testing.T) {
	backend := New()

	// 1 2 3
	// 4 5 6
	// 7 8 9
	input := rawFromSlice(t, []float32{1, 2, 3, 4, 5, 6, 7, 8, 9}, tensor.Shape{1, 1, 3, 3})
	kernel := rawFromSlice(t, []float32{1, 0, 0, 1}, tensor.Shape{1, 1, 2, 2})

	output := backend.Conv2D(input, kernel, 1, 0)

	require.True(t, output.Shape().Equal(tensor.Shape{1, 1, 2, 2}), "got %v", output.Shape())
	assert.Equal(t, []float32{6, 8, 12, 14}, output.AsFloat32())
}

// TestConv2D_PaddingKeepsSize checks that a 3x3 kernel with padding 1 keeps
// the spatial size and that border taps see zeros.
func TestConv2D_PaddingKeepsSize(t *testing.T) {
	backend := New()
	input := rawFromSlice(t, []float32{1, 1, 1, 1}, tensor.Shape{1, 1, 2, 2})
	ones := rawFromSlice(t, []float32{1, 1, 1, 1, 1, 1, 1, 1, 1}, tensor.Shape{1, 1, 3, 3})

	output := backend.Conv2D(input, ones, 1, 1)

	require.True(t, output.Shape().Equal(tensor.Shape{1, 1, 2, 2}))
	assert.Equal(t, []float32{4, 4, 4, 4}, output.AsFloat32())
}

func TestConv2D_MatchesReference(t *testing.T) {
	tests := []struct {
		name                     string
		n, cIn, h, w, cOut, k, s int
		pad                      int
	}{
		{"stem k3 s1", 2, 3, 16, 16, 4, 3, 1, 1},
		{"stem k3 s2", 2, 4, 16, 12, 5, 3, 2, 1},
		{"pointwise", 3, 6, 4, 4, 7, 1, 1, 0},
		{"odd stride2", 1, 2, 9, 7, 3, 3, 2, 1},
		{"no padding", 1, 2, 6, 6, 2, 3, 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rng := rand.New(rand.NewSource(42))
			input := randomRaw(t, rng, tensor.Shape{tt.n, tt.cIn, tt.h, tt.w})
			kernel := randomRaw(t, rng, tensor.Shape{tt.cOut, tt.cIn, tt.k, tt.k})

			got := New().Conv2D(input, kernel, tt.s, tt.pad)
			want, hOut, wOut := naiveConv2D(input.AsFloat32(), kernel.AsFloat32(),
				tt.n, tt.cIn, tt.h, tt.w, tt.cOut, tt.k, tt.k, tt.s, tt.pad)

			require.True(t, got.Shape().Equal(tensor.Shape{tt.n, tt.cOut, hOut, wOut}), "got %v", got.Shape())
			assert.InDeltaSlice(t, want, got.AsFloat32(), 1e-4)
		})
	}
}

func TestConv2D_SequentialMatchesParallel(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	input := randomRaw(t, rng, tensor.Shape{4, 3, 8, 8})
	kernel := randomRaw(t, rng, tensor.Shape{6, 3, 3, 3})

	par := NewWithConfig(parallel.Config{Enabled: true, NumWorkers: 4, MinChunkSize: 1}).Conv2D(input, kernel, 2, 1)
	seq := NewWithConfig(parallel.Sequential()).Conv2D(input, kernel, 2, 1)

	assert.Equal(t, seq.AsFloat32(), par.AsFloat32())
}

func TestConv2D_DoesNotModifyInput(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	input := randomRaw(t, rng, tensor.Shape{1, 4, 3, 3})
	kernel := randomRaw(t, rng, tensor.Shape{4, 4, 1, 1})
	before := append([]float32(nil), input.AsFloat32()...)

	New().Conv2D(input, kernel, 1, 0)

	assert.Equal(t, before, input.AsFloat32())
}

func TestConv2D_Float64(t *testing.T) {
	input, err := tensor.NewRaw(tensor.Shape{1, 1, 2, 2}, tensor.Float64, tensor.CPU)
	require.NoError(t, err)
	copy(input.AsFloat64(), []float64{1, 2, 3, 4})
	kernel, err := tensor.NewRaw(tensor.Shape{1, 1, 1, 1}, tensor.Float64, tensor.CPU)
	require.NoError(t, err)
	kernel.AsFloat64()[0] = 0.5

	out := New().Conv2D(input, kernel, 1, 0)
	assert.Equal(t, []float64{0.5, 1, 1.5, 2}, out.AsFloat64())
}

func TestConv2D_InvalidShapesPanic(t *testing.T) {
	backend := New()
	input := rawFromSlice(t, make([]float32, 12), tensor.Shape{1, 3, 2, 2})

	assert.Panics(t, func() {
		backend.Conv2D(input, rawFromSlice(t, make([]float32, 4), tensor.Shape{1, 1, 2, 2}), 1, 0)
	}, "channel mismatch")
	assert.Panics(t, func() {
		backend.Conv2D(rawFromSlice(t, make([]float32, 4), tensor.Shape{2, 2}), input, 1, 0)
	}, "rank")
	assert.Panics(t, func() {
		backend.Conv2D(input, rawFromSlice(t, make([]float32, 75), tensor.Shape{1, 3, 5, 5}), 1, 0)
	}, "kernel larger than input")
}

func BenchmarkConv2D_Residual512(b *testing.B) {
	rng := rand.New(rand.NewSource(1))
	input, _ := tensor.NewRaw(tensor.Shape{1, 512, 8, 8}, tensor.Float32, tensor.CPU)
	kernel, _ := tensor.NewRaw(tensor.Shape{512, 512, 3, 3}, tensor.Float32, tensor.CPU)
	for i := range kernel.AsFloat32() {
		kernel.AsFloat32()[i] = rng.Float32()
	}
	backend := New()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		backend.Conv2D(input, kernel, 1, 1)
	}
}

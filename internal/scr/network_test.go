package scr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/scenecoord/internal/backend/cpu"
	"github.com/born-ml/scenecoord/internal/nn"
)

var _ nn.Stateful = (*Network[*cpu.CPUBackend])(nil)

var pytorchNames = []string{
	"conv1.weight", "conv1.bias", "conv2.weight", "conv2.bias",
	"conv3.weight", "conv3.bias", "conv4.weight", "conv4.bias",
	"res1_conv1.weight", "res1_conv1.bias", "res1_conv2.weight", "res1_conv2.bias",
	"res1_conv3.weight", "res1_conv3.bias",
	"res2_conv1.weight", "res2_conv1.bias", "res2_conv2.weight", "res2_conv2.bias",
	"res2_conv3.weight", "res2_conv3.bias", "res2_skip.weight", "res2_skip.bias",
	"res3_conv1.weight", "res3_conv1.bias", "res3_conv2.weight", "res3_conv2.bias",
	"res3_conv3.weight", "res3_conv3.bias",
	"fc1.weight", "fc1.bias", "fc2.weight", "fc2.bias", "fc3.weight", "fc3.bias",
	"fc1_1.weight", "fc1_1.bias", "fc2_1.weight", "fc2_1.bias", "fc3_1.weight", "fc3_1.bias",
}

func newTestNetwork(t testing.TB, mean ...float32) *Network[*cpu.CPUBackend] {
	t.Helper()
	if mean == nil {
		mean = []float32{0.5, -1, 2}
	}
	n, err := New(mean, cpu.New(), WithSeed(42))
	require.NoError(t, err)
	return n
}

func names(params []*nn.Parameter[*cpu.CPUBackend]) []string {
	out := make([]string, len(params))
	for i, p := range params {
		out[i] = p.Name()
	}
	return out
}

func TestNew_InvalidMean(t *testing.T) {
	for _, mean := range [][]float32{nil, {}, {1, 2}, {1, 2, 3, 4}} {
		n, err := New(mean, cpu.New())
		require.ErrorIs(t, err, ErrInvalidArgument, "len %d", len(mean))
		assert.Nil(t, n)
	}
}

func TestNew_CopiesMean(t *testing.T) {
	mean := []float32{1, 2, 3}
	n, err := New(mean, cpu.New(), WithSeed(1))
	require.NoError(t, err)

	mean[0] = 100
	assert.Equal(t, []float32{1, 2, 3}, n.Mean())

	got := n.Mean()
	got[1] = 100
	assert.Equal(t, []float32{1, 2, 3}, n.Mean())
}

func TestParameterNamesAndShapes(t *testing.T) {
	n := newTestNetwork(t)

	assert.Equal(t, pytorchNames, names(n.Parameters()))
	assert.Equal(t, 11603524, n.NumParameters())

	shapes := map[string][]int{}
	for _, p := range n.Parameters() {
		shapes[p.Name()] = p.Shape()
	}
	assert.Equal(t, []int{32, 3, 3, 3}, shapes["conv1.weight"])
	assert.Equal(t, []int{256, 128, 3, 3}, shapes["conv4.weight"])
	assert.Equal(t, []int{256, 256, 1, 1}, shapes["res1_conv2.weight"])
	assert.Equal(t, []int{512, 256, 3, 3}, shapes["res2_conv1.weight"])
	assert.Equal(t, []int{512, 256, 1, 1}, shapes["res2_skip.weight"])
	assert.Equal(t, []int{3, 512, 1, 1}, shapes["fc3.weight"])
	assert.Equal(t, []int{1, 512, 1, 1}, shapes["fc3_1.weight"])
	assert.Equal(t, []int{1}, shapes["fc3_1.bias"])
}

func TestParameterGroupsPartition(t *testing.T) {
	n := newTestNetwork(t)

	trunk := names(n.TrunkParameters())
	coord := names(n.CoordinateHeadParameters())
	guide := names(n.GuidanceHeadParameters())

	assert.Len(t, trunk, 28)
	assert.Equal(t, []string{"fc1.weight", "fc1.bias", "fc2.weight", "fc2.bias", "fc3.weight", "fc3.bias"}, coord)
	assert.Equal(t, []string{"fc1_1.weight", "fc1_1.bias", "fc2_1.weight", "fc2_1.bias", "fc3_1.weight", "fc3_1.bias"}, guide)

	all := append(append(append([]string{}, trunk...), coord...), guide...)
	assert.Equal(t, pytorchNames, all)

	for _, p := range n.Parameters() {
		assert.True(t, p.Tensor().RequiresGrad(), p.Name())
	}
}

func TestSeedReproducible(t *testing.T) {
	a := newTestNetwork(t)
	b := newTestNetwork(t)
	c, err := New([]float32{0.5, -1, 2}, cpu.New(), WithSeed(43))
	require.NoError(t, err)

	assert.Equal(t, a.conv1.Weight().Tensor().Data(), b.conv1.Weight().Tensor().Data())
	assert.Equal(t, a.gfc3.Bias().Tensor().Data(), b.gfc3.Bias().Tensor().Data())
	assert.NotEqual(t, a.conv1.Weight().Tensor().Data(), c.conv1.Weight().Tensor().Data())
}

func TestString(t *testing.T) {
	n := newTestNetwork(t)
	assert.Equal(t, "Network(mean=[0.5 -1 2], parameters=11603524, output_subsample=8)", n.String())
}

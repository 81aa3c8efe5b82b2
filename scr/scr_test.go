package scr_test

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/scenecoord/backend/cpu"
	"github.com/born-ml/scenecoord/scr"
	"github.com/born-ml/scenecoord/tensor"
)

func TestPublicAPI(t *testing.T) {
	backend := cpu.New()

	_, err := scr.New([]float32{1, 2}, backend)
	require.ErrorIs(t, err, scr.ErrInvalidArgument)

	net, err := scr.New([]float32{1, 2, 3}, backend, scr.WithSeed(5))
	require.NoError(t, err)

	input := tensor.Zeros[float32](tensor.Shape{1, 3, 2 * scr.OutputSubsample, scr.OutputSubsample}, backend)
	coords, logGuidance, err := net.Forward(input)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{1, 3, 2, 1}, coords.Shape())

	var sum float64
	for _, v := range logGuidance.Data() {
		sum += math.Exp(float64(v))
	}
	assert.InDelta(t, 1.0, sum, 1e-5)

	_, _, err = net.Forward(tensor.Zeros[float32](tensor.Shape{1, 1, 8, 8}, backend))
	require.ErrorIs(t, err, scr.ErrShapeMismatch)

	path := filepath.Join(t.TempDir(), "net.born")
	require.NoError(t, net.Save(path))
	loaded, err := scr.Load(path, backend)
	require.NoError(t, err)
	again, _, err := loaded.Forward(input)
	require.NoError(t, err)
	assert.Equal(t, coords.Data(), again.Data())
}

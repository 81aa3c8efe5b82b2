package scr

import (
	"fmt"
	"math/rand"

	"github.com/born-ml/scenecoord/internal/nn"
	"github.com/born-ml/scenecoord/internal/tensor"
)

// OutputSubsample is the ratio between input and output resolution, fixed
// by the three stride-2 convolutions of the stem.
const OutputSubsample = 8

// ModelType is recorded in the header of .born checkpoints.
const ModelType = "SceneCoordinateNetwork"

// Network is the scene coordinate regression network.
//
// Parameters are read-only after construction (or after LoadStateDict), so
// Forward may be called from multiple goroutines concurrently.
type Network[B tensor.Backend] struct {
	conv1, conv2, conv3, conv4 *nn.Conv2D[B]

	res1Conv1, res1Conv2, res1Conv3 *nn.Conv2D[B]
	res2Conv1, res2Conv2, res2Conv3 *nn.Conv2D[B]
	res2Skip                        *nn.Conv2D[B]
	res3Conv1, res3Conv2, res3Conv3 *nn.Conv2D[B]

	fc1, fc2, fc3    *nn.Conv2D[B] // scene coordinate head
	gfc1, gfc2, gfc3 *nn.Conv2D[B] // guidance head, fc1_1 to fc3_1 in state dicts

	mean *tensor.Tensor[float32, B] // [3]

	stem      *nn.Sequential[B]
	blocks    [3]*residualBlock[B]
	coordHead *nn.Sequential[B]
	guideHead *nn.Sequential[B]

	backend B
}

type config struct {
	rng *rand.Rand
}

// Option configures New.
type Option func(*config)

// WithSeed makes parameter initialization reproducible.
func WithSeed(seed int64) Option {
	return func(c *config) {
		c.rng = rand.New(rand.NewSource(seed)) //nolint:gosec // G404: weight initialization
	}
}

// WithRand draws initial parameters from rng.
func WithRand(rng *rand.Rand) Option {
	return func(c *config) { c.rng = rng }
}

// New creates a network with freshly initialized parameters.
//
// mean is the scene's reference coordinate and must have exactly three
// components; New keeps its own copy. Convolutions are initialized like
// PyTorch's nn.Conv2d defaults.
//
//	net, err := scr.New([]float32{0.1, -0.4, 2.3}, cpu.New(), scr.WithSeed(1))
func New[B tensor.Backend](mean []float32, backend B, opts ...Option) (*Network[B], error) {
	if len(mean) != 3 {
		return nil, fmt.Errorf("%w: mean must have 3 components, got %d", ErrInvalidArgument, len(mean))
	}

	cfg := config{}
	for _, opt := range opts {
		opt(&cfg)
	}

	conv := func(name string, in, out, kernel, stride int) *nn.Conv2D[B] {
		return nn.NewConv2D(in, out, kernel, kernel, stride, kernel/2, true, backend,
			nn.WithName(name), nn.WithRand(cfg.rng))
	}

	n := &Network[B]{backend: backend}

	n.conv1 = conv("conv1", 3, 32, 3, 1)
	n.conv2 = conv("conv2", 32, 64, 3, 2)
	n.conv3 = conv("conv3", 64, 128, 3, 2)
	n.conv4 = conv("conv4", 128, 256, 3, 2)

	n.res1Conv1 = conv("res1_conv1", 256, 256, 3, 1)
	n.res1Conv2 = conv("res1_conv2", 256, 256, 1, 1)
	n.res1Conv3 = conv("res1_conv3", 256, 256, 3, 1)

	n.res2Conv1 = conv("res2_conv1", 256, 512, 3, 1)
	n.res2Conv2 = conv("res2_conv2", 512, 512, 1, 1)
	n.res2Conv3 = conv("res2_conv3", 512, 512, 3, 1)
	n.res2Skip = conv("res2_skip", 256, 512, 1, 1)

	n.res3Conv1 = conv("res3_conv1", 512, 512, 3, 1)
	n.res3Conv2 = conv("res3_conv2", 512, 512, 1, 1)
	n.res3Conv3 = conv("res3_conv3", 512, 512, 3, 1)

	n.fc1 = conv("fc1", 512, 512, 1, 1)
	n.fc2 = conv("fc2", 512, 512, 1, 1)
	n.fc3 = conv("fc3", 512, 3, 1, 1)

	n.gfc1 = conv("fc1_1", 512, 512, 1, 1)
	n.gfc2 = conv("fc2_1", 512, 512, 1, 1)
	n.gfc3 = conv("fc3_1", 512, 1, 1, 1)

	m, err := tensor.FromSlice(mean, tensor.Shape{3}, backend)
	if err != nil {
		return nil, err
	}
	n.mean = m

	n.assemble()
	return n, nil
}

// assemble groups the named layers into the stages Forward runs.
func (n *Network[B]) assemble() {
	relu := nn.NewReLU[B]()

	n.stem = nn.NewSequential[B](
		n.conv1, relu,
		n.conv2, relu,
		n.conv3, relu,
		n.conv4, relu,
	)
	n.blocks = [3]*residualBlock[B]{
		{conv1: n.res1Conv1, conv2: n.res1Conv2, conv3: n.res1Conv3},
		{conv1: n.res2Conv1, conv2: n.res2Conv2, conv3: n.res2Conv3, skip: n.res2Skip},
		{conv1: n.res3Conv1, conv2: n.res3Conv2, conv3: n.res3Conv3},
	}
	n.coordHead = nn.NewSequential[B](
		n.fc1, relu,
		n.fc2, relu,
		n.fc3,
	)
	n.guideHead = nn.NewSequential[B](
		n.gfc1, relu,
		n.gfc2, relu,
		n.gfc3,
		nn.NewLogSigmoid[B](),
	)
}

// Mean returns a copy of the mean scene coordinate.
func (n *Network[B]) Mean() []float32 {
	return append([]float32(nil), n.mean.Data()...)
}

// Backend returns the backend the network computes on.
func (n *Network[B]) Backend() B {
	return n.backend
}

// String returns a summary of the architecture.
func (n *Network[B]) String() string {
	return fmt.Sprintf("Network(mean=%v, parameters=%d, output_subsample=%d)",
		n.Mean(), n.NumParameters(), OutputSubsample)
}

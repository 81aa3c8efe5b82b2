package nn

import (
	"fmt"
	"math/rand"

	"github.com/born-ml/scenecoord/internal/tensor"
)

// Conv2D is a 2D convolutional layer.
//
// Performs convolution: output = Conv2D(input, weight) + bias
//
// Input shape:  [batch, in_channels, height, width]
// Weight shape: [out_channels, in_channels, kernel_h, kernel_w]
// Bias shape:   [out_channels]
// Output shape: [batch, out_channels, out_h, out_w]
//
// Where:
//
//	out_h = (height + 2*padding - kernel_h) / stride + 1
//	out_w = (width + 2*padding - kernel_w) / stride + 1
//
// Example:
//
//	conv := nn.NewConv2D(3, 32, 3, 3, 1, 1, true, backend, nn.WithName("conv1"))
//	output := conv.Forward(input) // [N, 32, H, W]
type Conv2D[B tensor.Backend] struct {
	inChannels  int
	outChannels int
	kernelSize  [2]int
	stride      int
	padding     int
	useBias     bool

	weight *Parameter[B] // [out_channels, in_channels, kernel_h, kernel_w]
	bias   *Parameter[B] // [out_channels] or nil

	backend B
}

type conv2DConfig struct {
	name string
	rng  *rand.Rand
}

// Conv2DOption configures NewConv2D.
type Conv2DOption func(*conv2DConfig)

// WithName sets the parameter name prefix. Parameters are named
// "<name>.weight" and "<name>.bias". The default prefix is "conv2d".
func WithName(name string) Conv2DOption {
	return func(c *conv2DConfig) { c.name = name }
}

// WithRand draws initial weights and biases from rng instead of the
// global source.
func WithRand(rng *rand.Rand) Conv2DOption {
	return func(c *conv2DConfig) { c.rng = rng }
}

// NewConv2D creates a new 2D convolutional layer.
//
// Parameters:
//   - inChannels: Number of input channels
//   - outChannels: Number of output channels (number of filters)
//   - kernelH, kernelW: Kernel dimensions
//   - stride: Stride for convolution (commonly 1 or 2)
//   - padding: Zero padding to apply to input (commonly 0 or 1)
//   - useBias: Whether to include bias term
//   - backend: Backend for computation
//
// Initialization follows PyTorch's nn.Conv2d defaults: weights and bias
// are both drawn from U(-1/sqrt(fan_in), 1/sqrt(fan_in)) with
// fan_in = in_channels * kernel_h * kernel_w.
func NewConv2D[B tensor.Backend](
	inChannels, outChannels int,
	kernelH, kernelW int,
	stride, padding int,
	useBias bool,
	backend B,
	opts ...Conv2DOption,
) *Conv2D[B] {
	if inChannels <= 0 || outChannels <= 0 {
		panic(fmt.Sprintf("conv2d: invalid channels in=%d, out=%d", inChannels, outChannels))
	}
	if kernelH <= 0 || kernelW <= 0 {
		panic(fmt.Sprintf("conv2d: invalid kernel size h=%d, w=%d", kernelH, kernelW))
	}
	if stride <= 0 {
		panic(fmt.Sprintf("conv2d: invalid stride %d", stride))
	}
	if padding < 0 {
		panic(fmt.Sprintf("conv2d: invalid padding %d", padding))
	}

	cfg := conv2DConfig{name: "conv2d"}
	for _, opt := range opts {
		opt(&cfg)
	}

	fanIn := inChannels * kernelH * kernelW
	weight := KaimingUniform(fanIn, tensor.Shape{outChannels, inChannels, kernelH, kernelW}, backend, cfg.rng)

	var biasParam *Parameter[B]
	if useBias {
		bias := KaimingUniform(fanIn, tensor.Shape{outChannels}, backend, cfg.rng)
		biasParam = NewParameter(cfg.name+".bias", bias)
	}

	return &Conv2D[B]{
		inChannels:  inChannels,
		outChannels: outChannels,
		kernelSize:  [2]int{kernelH, kernelW},
		stride:      stride,
		padding:     padding,
		useBias:     useBias,
		weight:      NewParameter(cfg.name+".weight", weight),
		bias:        biasParam,
		backend:     backend,
	}
}

// Forward performs the forward pass.
//
// Input: [batch, in_channels, height, width]
// Output: [batch, out_channels, out_h, out_w].
func (c *Conv2D[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	inputShape := input.Shape()
	if len(inputShape) != 4 {
		panic(fmt.Sprintf("conv2d: expected 4D input [N,C,H,W], got %dD", len(inputShape)))
	}
	if inputShape[1] != c.inChannels {
		panic(fmt.Sprintf("conv2d: input channels %d != expected %d", inputShape[1], c.inChannels))
	}

	output := input.Conv2D(c.weight.Tensor(), c.stride, c.padding)

	if c.useBias {
		// [out_channels] -> [1, out_channels, 1, 1] for broadcasting over N, H, W.
		output = output.Add(c.bias.Tensor().Reshape(1, c.outChannels, 1, 1))
	}

	return output
}

// Parameters returns all learned parameters.
func (c *Conv2D[B]) Parameters() []*Parameter[B] {
	if c.useBias {
		return []*Parameter[B]{c.weight, c.bias}
	}
	return []*Parameter[B]{c.weight}
}

// Weight returns the weight parameter.
func (c *Conv2D[B]) Weight() *Parameter[B] {
	return c.weight
}

// Bias returns the bias parameter, or nil when the layer has no bias.
func (c *Conv2D[B]) Bias() *Parameter[B] {
	return c.bias
}

// String returns a string representation of the layer.
func (c *Conv2D[B]) String() string {
	return fmt.Sprintf("Conv2D(in_channels=%d, out_channels=%d, kernel_size=(%d, %d), stride=%d, padding=%d, bias=%v)",
		c.inChannels, c.outChannels,
		c.kernelSize[0], c.kernelSize[1],
		c.stride, c.padding, c.useBias)
}

// OutChannels returns the number of output channels.
func (c *Conv2D[B]) OutChannels() int {
	return c.outChannels
}

// InChannels returns the number of input channels.
func (c *Conv2D[B]) InChannels() int {
	return c.inChannels
}

// KernelSize returns the kernel size [height, width].
func (c *Conv2D[B]) KernelSize() [2]int {
	return c.kernelSize
}

// Stride returns the stride.
func (c *Conv2D[B]) Stride() int {
	return c.stride
}

// Padding returns the padding.
func (c *Conv2D[B]) Padding() int {
	return c.padding
}

// OutputSize computes output spatial dimensions for a given input size.
func (c *Conv2D[B]) OutputSize(inputH, inputW int) (outH, outW int) {
	outH = (inputH+2*c.padding-c.kernelSize[0])/c.stride + 1
	outW = (inputW+2*c.padding-c.kernelSize[1])/c.stride + 1
	return outH, outW
}

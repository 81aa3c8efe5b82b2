// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn exposes the layers the scene coordinate network is built
// from, for callers composing their own heads or trainers.
//
// Example:
//
//	backend := cpu.New()
//	head := nn.NewSequential[*cpu.Backend](
//	    nn.NewConv2D(512, 512, 1, 1, 1, 0, true, backend, nn.WithName("fc1")),
//	    nn.NewReLU[*cpu.Backend](),
//	)
package nn

import (
	"math/rand"

	"github.com/born-ml/scenecoord/internal/nn"
	"github.com/born-ml/scenecoord/internal/tensor"
)

// Module interface defines the common interface for all neural network modules.
type Module[B tensor.Backend] = nn.Module[B]

// Stateful is implemented by models whose state can be saved and restored.
type Stateful = nn.Stateful

// Parameter represents a learned tensor in a neural network.
type Parameter[B tensor.Backend] = nn.Parameter[B]

// NewParameter creates a new parameter with the given name and tensor.
func NewParameter[B tensor.Backend](name string, t *tensor.Tensor[float32, B]) *Parameter[B] {
	return nn.NewParameter(name, t)
}

// Conv2D represents a 2D convolutional layer.
type Conv2D[B tensor.Backend] = nn.Conv2D[B]

// Conv2DOption configures NewConv2D.
type Conv2DOption = nn.Conv2DOption

// NewConv2D creates a 2D convolutional layer initialized like PyTorch's nn.Conv2d.
func NewConv2D[B tensor.Backend](
	inChannels, outChannels int,
	kernelH, kernelW int,
	stride, padding int,
	useBias bool,
	backend B,
	opts ...Conv2DOption,
) *Conv2D[B] {
	return nn.NewConv2D(inChannels, outChannels, kernelH, kernelW, stride, padding, useBias, backend, opts...)
}

// WithName sets the parameter name prefix of a Conv2D.
func WithName(name string) Conv2DOption {
	return nn.WithName(name)
}

// WithRand sets the random source used to initialize a Conv2D.
func WithRand(rng *rand.Rand) Conv2DOption {
	return nn.WithRand(rng)
}

// ReLU is a rectified linear activation module.
type ReLU[B tensor.Backend] = nn.ReLU[B]

// NewReLU creates a new ReLU activation.
func NewReLU[B tensor.Backend]() *ReLU[B] {
	return nn.NewReLU[B]()
}

// LogSigmoid is a numerically stable log-sigmoid activation module.
type LogSigmoid[B tensor.Backend] = nn.LogSigmoid[B]

// NewLogSigmoid creates a new LogSigmoid activation.
func NewLogSigmoid[B tensor.Backend]() *LogSigmoid[B] {
	return nn.NewLogSigmoid[B]()
}

// LogNormalize subtracts the log-sum-exp of all elements of x.
func LogNormalize[B tensor.Backend](x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	return nn.LogNormalize(x)
}

// Sequential chains modules.
type Sequential[B tensor.Backend] = nn.Sequential[B]

// NewSequential creates a Sequential container.
func NewSequential[B tensor.Backend](modules ...Module[B]) *Sequential[B] {
	return nn.NewSequential(modules...)
}

// StateDict copies parameters into a map keyed by name.
func StateDict[B tensor.Backend](params []*Parameter[B]) map[string]*tensor.RawTensor {
	return nn.StateDict(params)
}

// LoadStateDict copies a state dict into params. Keys listed in extra may
// be present without a matching parameter.
func LoadStateDict[B tensor.Backend](params []*Parameter[B], stateDict map[string]*tensor.RawTensor, extra ...string) error {
	return nn.LoadStateDict(params, stateDict, extra...)
}

// Checkpoint is a state dict with its model type and metadata.
type Checkpoint = nn.Checkpoint

// LoadCheckpoint reads a .born or SafeTensors checkpoint.
func LoadCheckpoint(path string) (*Checkpoint, error) {
	return nn.LoadCheckpoint(path)
}

// State dict errors.
var (
	ErrMissingKey    = nn.ErrMissingKey
	ErrUnexpectedKey = nn.ErrUnexpectedKey
	ErrShape         = nn.ErrShape
)

// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package scr is the public API of the scene coordinate regression network.
//
// Example:
//
//	backend := cpu.New()
//	net, err := scr.New([]float32{0.1, -0.4, 2.3}, backend, scr.WithSeed(1))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	coords, logGuidance, err := net.Forward(images) // images: (B, 3, H, W)
//
// Weights exported from PyTorch with safetensors.torch.save_file load with
// LoadSafeTensors; networks saved with Save load with Load.
package scr

import (
	"math/rand"

	"github.com/born-ml/scenecoord/internal/scr"
	"github.com/born-ml/scenecoord/internal/tensor"
)

// OutputSubsample is the ratio between input and output resolution.
const OutputSubsample = scr.OutputSubsample

// ModelType is recorded in the header of .born checkpoints.
const ModelType = scr.ModelType

// Errors returned by New, Forward and LoadStateDict.
var (
	ErrInvalidArgument = scr.ErrInvalidArgument
	ErrShapeMismatch   = scr.ErrShapeMismatch
)

// Network is the scene coordinate regression network.
type Network[B tensor.Backend] = scr.Network[B]

// Option configures New.
type Option = scr.Option

// New creates a network with freshly initialized parameters. mean must
// have exactly three components.
func New[B tensor.Backend](mean []float32, backend B, opts ...Option) (*Network[B], error) {
	return scr.New(mean, backend, opts...)
}

// WithSeed makes parameter initialization reproducible.
func WithSeed(seed int64) Option {
	return scr.WithSeed(seed)
}

// WithRand draws initial parameters from rng.
func WithRand(rng *rand.Rand) Option {
	return scr.WithRand(rng)
}

// Load reads a .born or SafeTensors checkpoint.
func Load[B tensor.Backend](path string, backend B) (*Network[B], error) {
	return scr.Load(path, backend)
}

// LoadSafeTensors reads a SafeTensors export of the PyTorch state_dict().
func LoadSafeTensors[B tensor.Backend](path string, backend B) (*Network[B], error) {
	return scr.LoadSafeTensors(path, backend)
}

// ParseMean parses a comma-separated coordinate such as "0.5,-1,2.25".
func ParseMean(s string) ([]float32, error) {
	return scr.ParseMean(s)
}

// ValidateInput reports whether an input shape is acceptable to Forward.
func ValidateInput(shape tensor.Shape) error {
	return scr.ValidateInput(shape)
}

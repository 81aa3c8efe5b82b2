// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu provides the pure Go CPU backend.
//
// Convolutions are lowered to im2col + GEMM (gonum BLAS) and run batch
// elements in parallel on a bounded goroutine pool. Elementwise operations
// broadcast NumPy-style and never modify their operands, so a backend may
// be shared by concurrent forward passes.
//
//	backend := cpu.New()
//	net, err := scr.New([]float32{0, 0, 0}, backend)
package cpu

import (
	internalcpu "github.com/born-ml/scenecoord/internal/backend/cpu"
	"github.com/born-ml/scenecoord/internal/parallel"
	"github.com/born-ml/scenecoord/tensor"
)

// Backend represents the CPU backend implementation.
type Backend = internalcpu.CPUBackend

// Compile-time check that Backend implements tensor.Backend.
var _ tensor.Backend = (*Backend)(nil)

// ParallelConfig controls how many goroutines kernels may use.
type ParallelConfig = parallel.Config

// New creates a CPU backend using all available cores.
func New() *Backend {
	return internalcpu.New()
}

// NewWithConfig creates a CPU backend with explicit parallelism settings.
//
//	backend := cpu.NewWithConfig(cpu.ParallelConfig{Enabled: true, NumWorkers: 4, MinChunkSize: 1})
func NewWithConfig(cfg ParallelConfig) *Backend {
	return internalcpu.NewWithConfig(cfg)
}

// Sequential returns a configuration that keeps all work on the calling
// goroutine.
func Sequential() ParallelConfig {
	return parallel.Sequential()
}

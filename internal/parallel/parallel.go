// Package parallel provides bounded fan-out helpers for CPU kernels.
package parallel

import (
	"runtime"

	"github.com/sourcegraph/conc/pool"
)

// Config controls parallel execution behavior.
type Config struct {
	Enabled      bool // Whether parallel execution is enabled.
	NumWorkers   int  // Maximum number of concurrent goroutines.
	MinChunkSize int  // Minimum items per goroutine to avoid overhead.
}

// DefaultConfig returns sensible defaults based on CPU count.
func DefaultConfig() Config {
	n := runtime.NumCPU()
	return Config{
		Enabled:      n > 1,
		NumWorkers:   n,
		MinChunkSize: 1,
	}
}

// Sequential returns a Config that never spawns goroutines.
func Sequential() Config {
	return Config{Enabled: false}
}

// For executes f(i) for i in [0, n), splitting the range into chunks run on
// a pool of at most cfg.NumWorkers goroutines. It returns once every call
// has finished; a panic in f is re-raised in the caller.
func For(n int, f func(i int), cfg Config) {
	if !cfg.Enabled || cfg.NumWorkers <= 1 || n <= max(cfg.MinChunkSize, 1) {
		for i := 0; i < n; i++ {
			f(i)
		}
		return
	}

	chunkSize := max((n+cfg.NumWorkers-1)/cfg.NumWorkers, cfg.MinChunkSize, 1)

	p := pool.New().WithMaxGoroutines(cfg.NumWorkers)
	for start := 0; start < n; start += chunkSize {
		end := min(start+chunkSize, n)
		p.Go(func() {
			for i := start; i < end; i++ {
				f(i)
			}
		})
	}
	p.Wait()
}

package parallel

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFor(t *testing.T) {
	cfg := Config{Enabled: true, NumWorkers: 4, MinChunkSize: 8}

	var counter int64
	seen := make([]int32, 1000)
	For(len(seen), func(i int) {
		atomic.AddInt64(&counter, 1)
		atomic.AddInt32(&seen[i], 1)
	}, cfg)

	assert.Equal(t, int64(1000), counter)
	for i, v := range seen {
		assert.Equal(t, int32(1), v, "index %d", i)
	}
}

func TestFor_Sequential(t *testing.T) {
	var order []int
	For(5, func(i int) {
		order = append(order, i)
	}, Sequential())

	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestFor_PanicPropagates(t *testing.T) {
	cfg := Config{Enabled: true, NumWorkers: 2, MinChunkSize: 1}
	assert.Panics(t, func() {
		For(4, func(i int) {
			if i == 3 {
				panic("boom")
			}
		}, cfg)
	})
}

func TestFor_Zero(t *testing.T) {
	called := false
	For(0, func(int) { called = true }, DefaultConfig())
	assert.False(t, called)
}

func BenchmarkFor(b *testing.B) {
	cfg := DefaultConfig()
	n := 10000

	b.Run("parallel", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			var sum int64
			For(n, func(i int) {
				atomic.AddInt64(&sum, int64(i))
			}, cfg)
		}
	})

	b.Run("sequential", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			var sum int64
			For(n, func(i int) {
				atomic.AddInt64(&sum, int64(i))
			}, Sequential())
		}
	})
}

package tensor

import (
	"math"
	"math/rand"
)

// Zeros creates a tensor filled with zeros.
//
//	backend := cpu.New()
//	t := tensor.Zeros[float32](Shape{3, 4}, backend)
func Zeros[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	var dummy T
	raw, err := NewRaw(shape, inferDataType(dummy), b.Device())
	if err != nil {
		panic(err) // Shape validation should prevent this
	}
	return New[T, B](raw, b)
}

// Full creates a tensor filled with a specific value.
//
//	t := tensor.Full[float32](Shape{3, 3}, 3.14, backend)
func Full[T DType, B Backend](shape Shape, value T, b B) *Tensor[T, B] {
	t := Zeros[T, B](shape, b)
	data := t.Data()
	for i := range data {
		data[i] = value
	}
	return t
}

// Randn creates a float tensor with values from N(0, 1) drawn from rng
// (Box-Muller transform). A nil rng uses the math/rand global source.
func Randn[T DType, B Backend](shape Shape, b B, rng *rand.Rand) *Tensor[T, B] {
	t := Zeros[T, B](shape, b)
	float64s := func() float64 {
		if rng == nil {
			return rand.Float64() //nolint:gosec // G404: ML uses math/rand intentionally
		}
		return rng.Float64()
	}

	normals := func(set func(i int, v float64), n int) {
		for i := 0; i < n; i += 2 {
			u1 := 1 - float64s() // (0, 1] keeps Log finite
			u2 := float64s()
			r := math.Sqrt(-2.0 * math.Log(u1))
			set(i, r*math.Cos(2.0*math.Pi*u2))
			if i+1 < n {
				set(i+1, r*math.Sin(2.0*math.Pi*u2))
			}
		}
	}

	switch data := any(t.Data()).(type) {
	case []float32:
		normals(func(i int, v float64) { data[i] = float32(v) }, len(data))
	case []float64:
		normals(func(i int, v float64) { data[i] = v }, len(data))
	default:
		panic("Randn only supports float32 and float64 types")
	}
	return t
}

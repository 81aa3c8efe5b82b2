package tensor

// Add performs element-wise addition with broadcasting.
//
//	a := tensor.Zeros[float32](Shape{2, 3, 8, 8}, backend)
//	m := tensor.Zeros[float32](Shape{1, 3, 1, 1}, backend)
//	c := a.Add(m) // Shape: [2, 3, 8, 8] (broadcasted)
func (t *Tensor[T, B]) Add(other *Tensor[T, B]) *Tensor[T, B] {
	return t.derive(t.backend.Add(t.raw, other.raw), other)
}

// Sub performs element-wise subtraction with broadcasting.
func (t *Tensor[T, B]) Sub(other *Tensor[T, B]) *Tensor[T, B] {
	return t.derive(t.backend.Sub(t.raw, other.raw), other)
}

// Reshape returns a tensor with the same data but different shape.
// The new shape must have the same number of elements.
//
//	flat := logits.Reshape(logits.NumElements())
func (t *Tensor[T, B]) Reshape(newShape ...int) *Tensor[T, B] {
	return t.derive(t.backend.Reshape(t.raw, Shape(newShape)))
}

// Conv2D convolves t with kernel (no bias).
func (t *Tensor[T, B]) Conv2D(kernel *Tensor[T, B], stride, padding int) *Tensor[T, B] {
	return t.derive(t.backend.Conv2D(t.raw, kernel.raw, stride, padding), kernel)
}

// ReLU applies max(0, x) element-wise.
func (t *Tensor[T, B]) ReLU() *Tensor[T, B] {
	return t.derive(t.backend.ReLU(t.raw))
}

// LogSigmoid applies the numerically stable log of the logistic function.
func (t *Tensor[T, B]) LogSigmoid() *Tensor[T, B] {
	return t.derive(t.backend.LogSigmoid(t.raw))
}

// LogSumExp reduces all elements to a scalar log(sum(exp(x))).
func (t *Tensor[T, B]) LogSumExp() *Tensor[T, B] {
	return t.derive(t.backend.LogSumExp(t.raw))
}

// derive wraps a backend result, propagating gradient tracking from t and
// any other operands.
func (t *Tensor[T, B]) derive(raw *RawTensor, others ...*Tensor[T, B]) *Tensor[T, B] {
	out := New[T, B](raw, t.backend)
	out.requiresGrad = t.requiresGrad
	for _, o := range others {
		out.requiresGrad = out.requiresGrad || o.requiresGrad
	}
	return out
}

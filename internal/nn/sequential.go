package nn

import (
	"fmt"
	"strings"

	"github.com/born-ml/scenecoord/internal/tensor"
)

// Sequential is a container module that chains multiple modules together.
//
// Each module's output becomes the next module's input.
//
// Example:
//
//	stem := nn.NewSequential(
//	    nn.NewConv2D(3, 32, 3, 3, 1, 1, true, backend, nn.WithName("conv1")),
//	    nn.NewReLU[Backend](),
//	)
//	features := stem.Forward(input)
type Sequential[B tensor.Backend] struct {
	modules []Module[B]
}

// NewSequential creates a new Sequential container.
func NewSequential[B tensor.Backend](modules ...Module[B]) *Sequential[B] {
	return &Sequential[B]{
		modules: modules,
	}
}

// Forward applies all modules in sequence.
func (s *Sequential[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	output := input
	for _, module := range s.modules {
		output = module.Forward(output)
	}
	return output
}

// Parameters returns all learned parameters from all modules, in order.
func (s *Sequential[B]) Parameters() []*Parameter[B] {
	var params []*Parameter[B]
	for _, module := range s.modules {
		params = append(params, module.Parameters()...)
	}
	return params
}

// Add appends a module to the sequence.
func (s *Sequential[B]) Add(module Module[B]) {
	s.modules = append(s.modules, module)
}

// Len returns the number of modules in the sequence.
func (s *Sequential[B]) Len() int {
	return len(s.modules)
}

// Module returns the module at index i.
func (s *Sequential[B]) Module(i int) Module[B] {
	return s.modules[i]
}

// String returns a multi-line representation of the container.
func (s *Sequential[B]) String() string {
	var sb strings.Builder
	sb.WriteString("Sequential(\n")
	for i, m := range s.modules {
		if str, ok := m.(fmt.Stringer); ok {
			fmt.Fprintf(&sb, "  (%d): %s\n", i, str)
		} else {
			fmt.Fprintf(&sb, "  (%d): %T\n", i, m)
		}
	}
	sb.WriteString(")")
	return sb.String()
}

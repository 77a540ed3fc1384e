package nn

import (
	"github.com/born-ml/fxtrace/internal/graph"
	"github.com/born-ml/fxtrace/internal/tensor"
)

// Parameter is a named trainable tensor.
//
// Example:
//
//	weight := nn.NewParameter("weight", weightTensor)
//	w := weight.Tensor()
type Parameter struct {
	name   string         // Parameter name (e.g., "weight", "bias")
	tensor *tensor.Tensor // The parameter tensor
}

// NewParameter marks t as a parameter and names it.
func NewParameter(name string, t *tensor.Tensor) *Parameter {
	return &Parameter{
		name:   name,
		tensor: tensor.NewParameter(t),
	}
}

// Name returns the parameter name.
func (p *Parameter) Name() string {
	return p.name
}

// Tensor returns the parameter tensor.
func (p *Parameter) Tensor() *tensor.Tensor {
	return p.tensor
}

func prefixed(prefix string, params []graph.NamedParameter) []graph.NamedParameter {
	out := make([]graph.NamedParameter, len(params))
	for i, p := range params {
		out[i] = graph.NamedParameter{Name: prefix + "." + p.Name, Value: p.Value}
	}
	return out
}

package nn

import (
	"fmt"
	"math/rand/v2"

	"github.com/born-ml/fxtrace/internal/dispatch"
	"github.com/born-ml/fxtrace/internal/graph"
	"github.com/born-ml/fxtrace/internal/ops"
	"github.com/born-ml/fxtrace/internal/tensor"
)

// Linear implements a fully connected (dense) layer.
//
// Performs the transformation: y = x @ W.T + b
// where:
//   - x is the input tensor with shape [batch_size, in_features]
//   - W is the weight matrix with shape [out_features, in_features]
//   - b is the bias vector with shape [out_features]
//   - y is the output tensor with shape [batch_size, out_features]
//
// Weights are initialized using Xavier/Glorot initialization.
// Biases are initialized to zeros.
type Linear struct {
	inFeatures  int
	outFeatures int
	weight      *Parameter // [out_features, in_features]
	bias        *Parameter // [out_features]
}

// NewLinear creates a new Linear layer drawing its weights from rng.
func NewLinear(inFeatures, outFeatures int, rng *rand.Rand) *Linear {
	weight := NewParameter("weight", Xavier(inFeatures, outFeatures, tensor.Shape{outFeatures, inFeatures}, rng))
	bias := NewParameter("bias", Zeros(tensor.Shape{outFeatures}))

	return &Linear{
		inFeatures:  inFeatures,
		outFeatures: outFeatures,
		weight:      weight,
		bias:        bias,
	}
}

// Forward computes the output of the linear layer.
//
// Input shape: [batch_size, in_features]
// Output shape: [batch_size, out_features]
func (l *Linear) Forward(c *dispatch.Context, x *tensor.Tensor) (*tensor.Tensor, error) {
	return call(c, l, func() (*tensor.Tensor, error) {
		if x.Dim() != 2 {
			return nil, fmt.Errorf("Linear.Forward: expected 2D input [batch, features], got shape %v", x.Shape())
		}
		if x.Shape()[1] != l.inFeatures {
			return nil, fmt.Errorf("Linear.Forward: expected input with %d features, got %d", l.inFeatures, x.Shape()[1])
		}

		var b *tensor.Tensor
		if l.bias != nil {
			b = l.bias.Tensor()
		}
		return ops.Linear(c, x, l.weight.Tensor(), b)
	})
}

// NamedParameters returns weight and bias.
func (l *Linear) NamedParameters() []graph.NamedParameter {
	params := []graph.NamedParameter{{Name: "weight", Value: l.weight.Tensor()}}
	if l.bias != nil {
		params = append(params, graph.NamedParameter{Name: "bias", Value: l.bias.Tensor()})
	}
	return params
}

// Weight returns the weight parameter.
func (l *Linear) Weight() *Parameter {
	return l.weight
}

// Bias returns the bias parameter.
func (l *Linear) Bias() *Parameter {
	return l.bias
}

// InFeatures returns the number of input features.
func (l *Linear) InFeatures() int {
	return l.inFeatures
}

// OutFeatures returns the number of output features.
func (l *Linear) OutFeatures() int {
	return l.outFeatures
}

// StateDict returns a map of parameter names to raw tensors.
func (l *Linear) StateDict() map[string]*tensor.RawTensor {
	stateDict := make(map[string]*tensor.RawTensor)
	stateDict["weight"] = l.weight.Tensor().Raw()
	if l.bias != nil {
		stateDict["bias"] = l.bias.Tensor().Raw()
	}
	return stateDict
}

// LoadStateDict copies parameters from a state dictionary.
func (l *Linear) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	if err := load(l.weight, stateDict, tensor.Shape{l.outFeatures, l.inFeatures}); err != nil {
		return err
	}
	if l.bias != nil {
		return load(l.bias, stateDict, tensor.Shape{l.outFeatures})
	}
	return nil
}

func load(p *Parameter, stateDict map[string]*tensor.RawTensor, want tensor.Shape) error {
	raw, ok := stateDict[p.Name()]
	if !ok {
		return fmt.Errorf("missing %s in state dict", p.Name())
	}
	if !raw.Shape().Equal(want) {
		return fmt.Errorf("%s shape mismatch: expected %v, got %v", p.Name(), want, raw.Shape())
	}
	if raw.DType() != tensor.Float32 {
		return fmt.Errorf("%s dtype mismatch: expected float32, got %v", p.Name(), raw.DType())
	}
	copy(p.Tensor().Raw().AsFloat32(), raw.AsFloat32())
	return nil
}

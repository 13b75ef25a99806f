package models

import (
	"gonum.org/v1/gonum/mat"
)

// Parameter is a named network weight tensor with its gradient accumulation
// buffer. Networks expose their parameters as a stable slice; the optimizer
// steps values in place using the accumulated gradients.
type Parameter struct {
	Name  string
	Value *mat.Dense
	Grad  *mat.Dense
}

// NewParameter allocates a parameter with a zeroed gradient buffer of the
// same shape as the value.
func NewParameter(name string, value *mat.Dense) *Parameter {
	r, c := value.Dims()
	return &Parameter{
		Name:  name,
		Value: value,
		Grad:  mat.NewDense(r, c, nil),
	}
}

// ZeroGrad clears the gradient buffer.
func (p *Parameter) ZeroGrad() {
	p.Grad.Zero()
}

// ZeroGrads clears the gradient buffers of every parameter in the slice.
func ZeroGrads(params []*Parameter) {
	for _, p := range params {
		p.ZeroGrad()
	}
}

// Copyright 2024 gorse Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package nn

import (
	"gonum.org/v1/gonum/mat"
)

// Parameter is a trainable matrix with its accumulated gradient.
type Parameter struct {
	Value *mat.Dense
	Grad  *mat.Dense
}

func NewParameter(value *mat.Dense) *Parameter {
	r, c := value.Dims()
	return &Parameter{
		Value: value,
		Grad:  mat.NewDense(r, c, nil),
	}
}

// Layer is a differentiable transformation of a batch (one sample per row).
type Layer interface {
	Parameters() []*Parameter
	// Apply evaluates the layer without touching any training state.
	Apply(x *mat.Dense) *mat.Dense
	// Forward evaluates the layer and remembers what Backward needs.
	Forward(x *mat.Dense) *mat.Dense
	// Backward accumulates parameter gradients and returns the gradient
	// with respect to the input of the last Forward.
	Backward(dy *mat.Dense) *mat.Dense
}

type Model Layer

// Linear computes y = xW + b.
type Linear struct {
	W *Parameter
	B *Parameter
	x *mat.Dense
}

// NewLinear creates a linear layer from an in x out weight matrix and a
// 1 x out bias row.
func NewLinear(w, b *mat.Dense) *Linear {
	_, out := w.Dims()
	if br, bc := b.Dims(); br != 1 || bc != out {
		panic(mat.ErrShape)
	}
	return &Linear{
		W: NewParameter(w),
		B: NewParameter(b),
	}
}

func (l *Linear) Parameters() []*Parameter {
	return []*Parameter{l.W, l.B}
}

func (l *Linear) Apply(x *mat.Dense) *mat.Dense {
	var y mat.Dense
	y.Mul(x, l.W.Value)
	bias := l.B.Value.RawRowView(0)
	r, _ := y.Dims()
	for i := 0; i < r; i++ {
		row := y.RawRowView(i)
		for j := range row {
			row[j] += bias[j]
		}
	}
	return &y
}

func (l *Linear) Forward(x *mat.Dense) *mat.Dense {
	l.x = x
	return l.Apply(x)
}

func (l *Linear) Backward(dy *mat.Dense) *mat.Dense {
	// dW = x^T dy
	var dw mat.Dense
	dw.Mul(l.x.T(), dy)
	l.W.Grad.Add(l.W.Grad, &dw)
	// db = sum of dy over rows
	grad := l.B.Grad.RawRowView(0)
	r, _ := dy.Dims()
	for i := 0; i < r; i++ {
		row := dy.RawRowView(i)
		for j := range row {
			grad[j] += row[j]
		}
	}
	// dx = dy W^T
	var dx mat.Dense
	dx.Mul(dy, l.W.Value.T())
	return &dx
}

// Activation applies an element-wise function whose derivative can be
// expressed through its output.
type Activation struct {
	name       string
	function   func(x float64) float64
	derivative func(y float64) float64
	y          *mat.Dense
}

func (a *Activation) Name() string {
	return a.name
}

func (a *Activation) Parameters() []*Parameter {
	return nil
}

func (a *Activation) Apply(x *mat.Dense) *mat.Dense {
	var y mat.Dense
	y.Apply(func(_, _ int, v float64) float64 {
		return a.function(v)
	}, x)
	return &y
}

func (a *Activation) Forward(x *mat.Dense) *mat.Dense {
	a.y = a.Apply(x)
	return a.y
}

func (a *Activation) Backward(dy *mat.Dense) *mat.Dense {
	var dx mat.Dense
	dx.Apply(func(i, j int, v float64) float64 {
		return v * a.derivative(a.y.At(i, j))
	}, dy)
	return &dx
}

type Sequential struct {
	Layers []Layer
}

func NewSequential(layers ...Layer) *Sequential {
	return &Sequential{Layers: layers}
}

func (s *Sequential) Parameters() []*Parameter {
	var params []*Parameter
	for _, l := range s.Layers {
		params = append(params, l.Parameters()...)
	}
	return params
}

func (s *Sequential) Apply(x *mat.Dense) *mat.Dense {
	for _, l := range s.Layers {
		x = l.Apply(x)
	}
	return x
}

func (s *Sequential) Forward(x *mat.Dense) *mat.Dense {
	for _, l := range s.Layers {
		x = l.Forward(x)
	}
	return x
}

func (s *Sequential) Backward(dy *mat.Dense) *mat.Dense {
	for i := len(s.Layers) - 1; i >= 0; i-- {
		dy = s.Layers[i].Backward(dy)
	}
	return dy
}

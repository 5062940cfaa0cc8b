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
	"math"

	"github.com/juju/errors"
	"gonum.org/v1/gonum/mat"
)

const (
	ActivationSigmoid  = "sigmoid"
	ActivationTanh     = "tanh"
	ActivationReLU     = "relu"
	ActivationIdentity = "identity"
)

func NewSigmoid() *Activation {
	return &Activation{
		name: ActivationSigmoid,
		function: func(x float64) float64 {
			return 1 / (1 + math.Exp(-x))
		},
		derivative: func(y float64) float64 {
			return y * (1 - y)
		},
	}
}

func NewTanh() *Activation {
	return &Activation{
		name:     ActivationTanh,
		function: math.Tanh,
		derivative: func(y float64) float64 {
			return 1 - y*y
		},
	}
}

func NewReLU() *Activation {
	return &Activation{
		name: ActivationReLU,
		function: func(x float64) float64 {
			return math.Max(x, 0)
		},
		derivative: func(y float64) float64 {
			if y > 0 {
				return 1
			}
			return 0
		},
	}
}

func NewIdentity() *Activation {
	return &Activation{
		name: ActivationIdentity,
		function: func(x float64) float64 {
			return x
		},
		derivative: func(float64) float64 {
			return 1
		},
	}
}

// NewActivation creates an activation layer by name.
func NewActivation(name string) (*Activation, error) {
	switch name {
	case ActivationSigmoid:
		return NewSigmoid(), nil
	case ActivationTanh:
		return NewTanh(), nil
	case ActivationReLU:
		return NewReLU(), nil
	case ActivationIdentity:
		return NewIdentity(), nil
	}
	return nil, errors.NotSupportedf("activation %q", name)
}

// MSE is the mean of squared element-wise differences.
func MSE(pred, target mat.Matrix) float64 {
	var diff mat.Dense
	diff.Sub(pred, target)
	r, c := diff.Dims()
	return mat.Sum(mulElem(&diff, &diff)) / float64(r*c)
}

// MSEGrad is the gradient of MSE with respect to pred.
func MSEGrad(pred, target mat.Matrix) *mat.Dense {
	var grad mat.Dense
	grad.Sub(pred, target)
	r, c := grad.Dims()
	grad.Scale(2/float64(r*c), &grad)
	return &grad
}

func mulElem(a, b mat.Matrix) *mat.Dense {
	var c mat.Dense
	c.MulElem(a, b)
	return &c
}

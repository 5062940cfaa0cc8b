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
)

const (
	OptimizerSGD  = "sgd"
	OptimizerAdam = "adam"
)

type Optimizer interface {
	SetWeightDecay(rate float64)
	ZeroGrad()
	Step()
}

// NewOptimizer creates an optimizer by name.
func NewOptimizer(name string, params []*Parameter, lr float64) (Optimizer, error) {
	switch name {
	case OptimizerSGD:
		return NewSGD(params, lr), nil
	case OptimizerAdam:
		return NewAdam(params, lr), nil
	}
	return nil, errors.NotSupportedf("optimizer %q", name)
}

type baseOptimizer struct {
	params []*Parameter
	wd     float64
}

func (o *baseOptimizer) ZeroGrad() {
	for _, p := range o.params {
		p.Grad.Zero()
	}
}

func (o *baseOptimizer) SetWeightDecay(wd float64) {
	o.wd = wd
}

type SGD struct {
	baseOptimizer
	lr float64
}

func NewSGD(params []*Parameter, lr float64) Optimizer {
	return &SGD{
		baseOptimizer: baseOptimizer{params: params},
		lr:            lr,
	}
}

func (s *SGD) Step() {
	for _, p := range s.params {
		data, grad := p.Value.RawMatrix().Data, p.Grad.RawMatrix().Data
		for i := range data {
			data[i] -= s.lr * (grad[i] + data[i]*s.wd)
		}
	}
}

type Adam struct {
	baseOptimizer
	alpha float64
	beta1 float64
	beta2 float64
	eps   float64
	ms    map[*Parameter][]float64
	vs    map[*Parameter][]float64
	t     float64
}

func NewAdam(params []*Parameter, alpha float64) Optimizer {
	return &Adam{
		baseOptimizer: baseOptimizer{params: params},
		alpha:         alpha,
		beta1:         0.9,
		beta2:         0.999,
		eps:           1e-8,
		ms:            make(map[*Parameter][]float64),
		vs:            make(map[*Parameter][]float64),
	}
}

func (a *Adam) Step() {
	a.t++

	fix1 := 1 - math.Pow(a.beta1, a.t)
	fix2 := 1 - math.Pow(a.beta2, a.t)
	lr := a.alpha * math.Sqrt(fix2) / fix1

	for _, p := range a.params {
		data, grad := p.Value.RawMatrix().Data, p.Grad.RawMatrix().Data
		if _, ok := a.ms[p]; !ok {
			a.ms[p] = make([]float64, len(data))
			a.vs[p] = make([]float64, len(data))
		}
		m, v := a.ms[p], a.vs[p]
		for i := range data {
			g := grad[i] + a.wd*data[i]
			// m += (1 - beta1) * (grad - m)
			m[i] += (1 - a.beta1) * (g - m[i])
			// v += (1 - beta2) * (grad * grad - v)
			v[i] += (1 - a.beta2) * (g*g - v[i])
			// param.data -= self.lr * m / (xp.sqrt(v) + eps)
			data[i] -= lr * m[i] / (math.Sqrt(v[i]) + a.eps)
		}
	}
}

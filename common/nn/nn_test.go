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
	"testing"

	"github.com/gorse-io/latent/base"
	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

func newTestModel(activation string) *Sequential {
	rng := base.NewRandomGenerator(0)
	act1, _ := NewActivation(activation)
	act2, _ := NewActivation(activation)
	return NewSequential(
		NewLinear(rng.NormalDense(3, 2, 0, 0.5), rng.NormalDense(1, 2, 0, 0.5)),
		act1,
		NewLinear(rng.NormalDense(2, 3, 0, 0.5), rng.NormalDense(1, 3, 0, 0.5)),
		act2,
	)
}

func TestMSE(t *testing.T) {
	pred := mat.NewDense(2, 2, []float64{1, 2, 3, 4})
	target := mat.NewDense(2, 2, []float64{1, 1, 1, 1})
	assert.InDelta(t, (0.0+1+4+9)/4, MSE(pred, target), 1e-12)
	grad := MSEGrad(pred, target)
	assert.True(t, mat.EqualApprox(mat.NewDense(2, 2, []float64{0, 0.5, 1, 1.5}), grad, 1e-12))
}

func TestNewActivation(t *testing.T) {
	for _, name := range []string{ActivationSigmoid, ActivationTanh, ActivationReLU, ActivationIdentity} {
		a, err := NewActivation(name)
		assert.NoError(t, err)
		assert.Equal(t, name, a.Name())
	}
	_, err := NewActivation("softmax")
	assert.True(t, errors.Is(err, errors.NotSupported))
}

func TestSigmoid(t *testing.T) {
	y := NewSigmoid().Apply(mat.NewDense(1, 3, []float64{0, 100, -100}))
	assert.InDelta(t, 0.5, y.At(0, 0), 1e-12)
	assert.InDelta(t, 1, y.At(0, 1), 1e-12)
	assert.InDelta(t, 0, y.At(0, 2), 1e-12)
}

// TestGradient compares back-propagated gradients against central differences.
func TestGradient(t *testing.T) {
	for _, activation := range []string{ActivationSigmoid, ActivationTanh, ActivationIdentity} {
		t.Run(activation, func(t *testing.T) {
			model := newTestModel(activation)
			x := mat.NewDense(4, 3, []float64{
				0.1, 0.2, 0.3,
				0.4, 0.5, 0.6,
				0.7, 0.8, 0.9,
				0.0, 0.5, 1.0,
			})
			loss := func() float64 {
				return MSE(model.Apply(x), x)
			}
			// analytic
			for _, p := range model.Parameters() {
				p.Grad.Zero()
			}
			y := model.Forward(x)
			model.Backward(MSEGrad(y, x))
			// numeric
			const h = 1e-6
			for _, p := range model.Parameters() {
				data := p.Value.RawMatrix().Data
				grad := p.Grad.RawMatrix().Data
				for i := range data {
					origin := data[i]
					data[i] = origin + h
					plus := loss()
					data[i] = origin - h
					minus := loss()
					data[i] = origin
					assert.InDelta(t, (plus-minus)/(2*h), grad[i], 1e-6)
				}
			}
		})
	}
}

func TestApplyIsPure(t *testing.T) {
	model := newTestModel(ActivationSigmoid)
	x := mat.NewDense(1, 3, []float64{1, 2, 3})
	a := model.Apply(x)
	b := model.Forward(x)
	assert.True(t, mat.Equal(a, b))
	for _, layer := range model.Layers {
		if linear, ok := layer.(*Linear); ok {
			assert.Equal(t, 0.0, mat.Sum(linear.W.Grad))
		}
	}
}

func testOptimizer(optimizerCreator func(params []*Parameter, lr float64) Optimizer, epochs int) (losses []float64) {
	// Fit y = 2x_0 - 3x_1 + 1
	x := mat.NewDense(8, 2, []float64{
		0, 0, 1, 0, 0, 1, 1, 1,
		2, 1, 1, 2, -1, 0, 0, -1,
	})
	y := mat.NewDense(8, 1, nil)
	for i := 0; i < 8; i++ {
		y.Set(i, 0, 2*x.At(i, 0)-3*x.At(i, 1)+1)
	}
	model := NewSequential(NewLinear(mat.NewDense(2, 1, nil), mat.NewDense(1, 1, nil)))
	optimizer := optimizerCreator(model.Parameters(), 0.05)
	for i := 0; i < epochs; i++ {
		yPred := model.Forward(x)
		losses = append(losses, MSE(yPred, y))
		optimizer.ZeroGrad()
		model.Backward(MSEGrad(yPred, y))
		optimizer.Step()
	}
	return
}

func TestSGD(t *testing.T) {
	losses := testOptimizer(NewSGD, 1000)
	assert.Less(t, losses[len(losses)-1], losses[0])
	assert.Less(t, losses[len(losses)-1], 1e-3)
}

func TestAdam(t *testing.T) {
	losses := testOptimizer(NewAdam, 1000)
	assert.Less(t, losses[len(losses)-1], losses[0])
	assert.Less(t, losses[len(losses)-1], 1e-2)
}

func TestNewOptimizer(t *testing.T) {
	params := []*Parameter{NewParameter(mat.NewDense(1, 1, []float64{1}))}
	o, err := NewOptimizer(OptimizerAdam, params, 0.1)
	assert.NoError(t, err)
	assert.IsType(t, &Adam{}, o)
	o, err = NewOptimizer(OptimizerSGD, params, 0.1)
	assert.NoError(t, err)
	assert.IsType(t, &SGD{}, o)
	_, err = NewOptimizer("rmsprop", params, 0.1)
	assert.Error(t, err)
}

func TestWeightDecay(t *testing.T) {
	p := NewParameter(mat.NewDense(1, 1, []float64{1}))
	o := NewSGD([]*Parameter{p}, 0.5)
	o.SetWeightDecay(1)
	o.ZeroGrad()
	o.Step()
	assert.InDelta(t, 0.5, p.Value.At(0, 0), 1e-12)
	assert.False(t, math.IsNaN(p.Value.At(0, 0)))
}

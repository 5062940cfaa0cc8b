// Copyright 2022 gorse Project Authors
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

package autoencoder

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/gorse-io/latent/base"
	"github.com/gorse-io/latent/common/nn"
	"github.com/gorse-io/latent/model"
	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"gonum.org/v1/gonum/mat"
)

// patterns mixes two binary prototypes with a little noise.
func patterns(n int) *mat.Dense {
	rng := base.NewRandomGenerator(1)
	prototypes := [][]float64{
		{1, 1, 1, 1, 0, 0, 0, 0},
		{0, 0, 0, 0, 1, 1, 1, 1},
	}
	x := mat.NewDense(n, 8, nil)
	for i := 0; i < n; i++ {
		p := prototypes[i%2]
		for j := range p {
			v := p[j] + 0.05*rng.NormFloat64()
			x.Set(i, j, min(1, max(0, v)))
		}
	}
	return x
}

type AutoencoderTestSuite struct {
	suite.Suite
	x *mat.Dense
}

func (suite *AutoencoderTestSuite) SetupSuite() {
	suite.x = patterns(64)
}

func (suite *AutoencoderTestSuite) fit(params model.Params) (*Model, error) {
	ae := NewAutoencoder(model.Params{
		model.NHidden:   4,
		model.NEpochs:   30,
		model.BatchSize: 16,
		model.Lr:        0.05,
		model.EarlyStop: 0,
	}.Overwrite(params))
	return ae.Fit(context.Background(), suite.x, NewFitConfig())
}

func (suite *AutoencoderTestSuite) TestFit() {
	m, err := suite.fit(nil)
	suite.NoError(err)
	history := m.History()
	suite.Len(history, 30)
	suite.Equal(29, m.StopEpoch())
	suite.Less(history[len(history)-1], history[0])
	suite.Equal(history[m.BestEpoch()], minOf(history))
	suite.InDelta(history[len(history)-1], m.Cost(suite.x), 1e-12)

	n, d := m.Predict(suite.x).Dims()
	suite.Equal(64, n)
	suite.Equal(8, d)
	n, h := m.Encode(suite.x).Dims()
	suite.Equal(64, n)
	suite.Equal(4, h)
	suite.Equal(4, m.NumHidden())
}

func minOf(a []float64) float64 {
	m := a[0]
	for _, v := range a[1:] {
		m = min(m, v)
	}
	return m
}

func (suite *AutoencoderTestSuite) TestEarlyStop() {
	// With zero weights and identity activation only the output bias moves,
	// and each full batch step maps its error u to (1-lr)u.
	x := mat.NewDense(4, 2, []float64{1, 1, 1, 1, 1, 1, 1, 1})
	ae := NewAutoencoder(model.Params{
		model.NHidden:    2,
		model.NEpochs:    30,
		model.BatchSize:  4,
		model.Lr:         3,
		model.InitStdDev: 0,
		model.Activation: nn.ActivationIdentity,
		model.Optimizer:  nn.OptimizerSGD,
		model.EarlyStop:  1,
	})
	m, err := ae.Fit(context.Background(), x, NewFitConfig())
	suite.NoError(err)
	suite.Equal([]float64{4, 16}, m.History())
	suite.Equal(1, m.StopEpoch())
	suite.Equal(m.StopEpoch()-1, m.BestEpoch())
}

func (suite *AutoencoderTestSuite) TestReproducible() {
	a, err := suite.fit(model.Params{model.RandomState: 7, model.NEpochs: 5})
	suite.NoError(err)
	b, err := suite.fit(model.Params{model.RandomState: 7, model.NEpochs: 5})
	suite.NoError(err)
	suite.Equal(a.History(), b.History())
	suite.True(mat.Equal(a.Predict(suite.x), b.Predict(suite.x)))
}

func (suite *AutoencoderTestSuite) TestLargeBatch() {
	m, err := suite.fit(model.Params{model.BatchSize: 1000, model.NEpochs: 3})
	suite.NoError(err)
	suite.Len(m.History(), 3)
}

func (suite *AutoencoderTestSuite) TestOptimizers() {
	for _, optimizer := range []string{nn.OptimizerSGD, nn.OptimizerAdam} {
		for _, activation := range []string{nn.ActivationSigmoid, nn.ActivationTanh, nn.ActivationReLU, nn.ActivationIdentity} {
			_, err := suite.fit(model.Params{
				model.Optimizer:  optimizer,
				model.Activation: activation,
				model.NEpochs:    2,
				model.Lr:         0.001,
				model.InitStdDev: 0.1,
			})
			suite.NoError(err, "%v/%v", optimizer, activation)
		}
	}
}

func (suite *AutoencoderTestSuite) TestDiverge() {
	_, err := suite.fit(model.Params{
		model.Optimizer:  nn.OptimizerSGD,
		model.Activation: nn.ActivationIdentity,
		model.Lr:         1e3,
	})
	suite.Error(err)
	suite.Contains(err.Error(), "diverged")
}

func (suite *AutoencoderTestSuite) TestInvalidParams() {
	_, err := suite.fit(model.Params{model.Activation: "softmax"})
	suite.True(errors.Is(err, errors.NotSupported))
	_, err = suite.fit(model.Params{model.Optimizer: "rmsprop"})
	suite.True(errors.Is(err, errors.NotSupported))
	_, err = suite.fit(model.Params{model.NHidden: 0})
	suite.True(errors.Is(err, errors.NotValid))
	_, err = suite.fit(model.Params{model.BatchSize: -1})
	suite.True(errors.Is(err, errors.NotValid))
}

func (suite *AutoencoderTestSuite) TestCancel() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewAutoencoder(nil).Fit(ctx, suite.x, NewFitConfig())
	suite.True(errors.Is(err, context.Canceled))
}

func (suite *AutoencoderTestSuite) TestSaveLoad() {
	m, err := suite.fit(model.Params{model.NEpochs: 3, model.Activation: nn.ActivationTanh})
	suite.NoError(err)
	path := filepath.Join(suite.T().TempDir(), "autoencoder.bin")
	suite.NoError(m.Save(path))
	loaded, err := Load(path)
	suite.NoError(err)
	suite.Equal(m.GetParams(), loaded.GetParams())
	suite.Equal(m.History(), loaded.History())
	suite.Equal(m.BestEpoch(), loaded.BestEpoch())
	suite.True(mat.Equal(m.Predict(suite.x), loaded.Predict(suite.x)))
	suite.True(mat.Equal(m.Encode(suite.x), loaded.Encode(suite.x)))

	_, err = Load(filepath.Join(suite.T().TempDir(), "missing.bin"))
	suite.Error(err)
}

func TestAutoencoder(t *testing.T) {
	suite.Run(t, new(AutoencoderTestSuite))
}

func TestSelectRows(t *testing.T) {
	x := mat.NewDense(3, 2, []float64{1, 2, 3, 4, 5, 6})
	assert.Equal(t, []float64{5, 6, 1, 2}, selectRows(x, []int{2, 0}).RawMatrix().Data)
}

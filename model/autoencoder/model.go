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
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/gorse-io/latent/base/encoding"
	"github.com/gorse-io/latent/base/log"
	"github.com/gorse-io/latent/common/floats"
	"github.com/gorse-io/latent/common/nn"
	"github.com/gorse-io/latent/model"
	"github.com/juju/errors"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

type FitConfig struct {
	Verbose  int
	Progress bool
}

func NewFitConfig() *FitConfig {
	return &FitConfig{
		Verbose: 1,
	}
}

func (config *FitConfig) SetVerbose(verbose int) *FitConfig {
	config.Verbose = verbose
	return config
}

func (config *FitConfig) SetProgress(progress bool) *FitConfig {
	config.Progress = progress
	return config
}

// Autoencoder trains a single hidden layer autoencoder:
//
//	H = act(X W_enc + b_enc)
//	X̂ = act(H W_dec + b_dec)
//
// on the mean squared reconstruction error.
type Autoencoder struct {
	model.BaseModel
	nHidden    int
	nEpochs    int
	batchSize  int
	earlyStop  int
	tolerance  float64
	lr         float64
	initMean   float64
	initStdDev float64
	activation string
	optimizer  string
}

func NewAutoencoder(params model.Params) *Autoencoder {
	ae := new(Autoencoder)
	ae.SetParams(params)
	return ae
}

func (ae *Autoencoder) SetParams(params model.Params) {
	ae.BaseModel.SetParams(params)
	ae.nHidden = ae.Params.GetInt(model.NHidden, 32)
	ae.nEpochs = ae.Params.GetInt(model.NEpochs, 20)
	ae.batchSize = ae.Params.GetInt(model.BatchSize, 256)
	ae.earlyStop = ae.Params.GetInt(model.EarlyStop, 3)
	ae.tolerance = ae.Params.GetFloat64(model.Tolerance, 1e-5)
	ae.lr = ae.Params.GetFloat64(model.Lr, 0.01)
	ae.initMean = ae.Params.GetFloat64(model.InitMean, 0)
	ae.initStdDev = ae.Params.GetFloat64(model.InitStdDev, 1)
	ae.activation = ae.Params.GetString(model.Activation, nn.ActivationSigmoid)
	ae.optimizer = ae.Params.GetString(model.Optimizer, nn.OptimizerAdam)
}

func (ae *Autoencoder) validate() error {
	if ae.nHidden <= 0 {
		return errors.NotValidf("n_hidden %d", ae.nHidden)
	}
	if ae.nEpochs <= 0 {
		return errors.NotValidf("n_epochs %d", ae.nEpochs)
	}
	if ae.batchSize <= 0 {
		return errors.NotValidf("batch_size %d", ae.batchSize)
	}
	if ae.earlyStop < 0 {
		return errors.NotValidf("early_stop %d", ae.earlyStop)
	}
	if ae.lr <= 0 {
		return errors.NotValidf("lr %v", ae.lr)
	}
	return nil
}

// Fit trains on x (one sample per row) and returns the trained model.
func (ae *Autoencoder) Fit(ctx context.Context, x *mat.Dense, config *FitConfig) (*Model, error) {
	if err := ae.validate(); err != nil {
		return nil, errors.Trace(err)
	}
	n, d := x.Dims()
	batchSize := ae.batchSize
	if batchSize > n {
		log.Logger().Warn("batch size is larger than the number of samples",
			zap.Int("batch_size", batchSize),
			zap.Int("n_samples", n))
		batchSize = n
	}
	log.Logger().Info("fit autoencoder",
		zap.Int("n_samples", n),
		zap.Int("n_features", d),
		zap.Any("params", ae.GetParams()))

	rng := ae.GetRandomGenerator()
	m, err := newModel(ae.Params, ae.activation,
		rng.NormalDense(d, ae.nHidden, ae.initMean, ae.initStdDev),
		rng.NormalDense(1, ae.nHidden, ae.initMean, ae.initStdDev),
		rng.NormalDense(ae.nHidden, d, ae.initMean, ae.initStdDev),
		rng.NormalDense(1, d, ae.initMean, ae.initStdDev))
	if err != nil {
		return nil, errors.Trace(err)
	}
	optimizer, err := nn.NewOptimizer(ae.optimizer, m.net.Parameters(), ae.lr)
	if err != nil {
		return nil, errors.Trace(err)
	}

	stopping := NewEarlyStopping(ae.earlyStop, ae.tolerance)
	for epoch := 0; epoch < ae.nEpochs; epoch++ {
		if err = ctx.Err(); err != nil {
			return nil, errors.Trace(err)
		}
		fitStart := time.Now()
		batches := rng.Batches(n, batchSize)
		var bar *progressbar.ProgressBar
		if config.Progress {
			bar = progressbar.NewOptions(len(batches),
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionSetDescription(fmt.Sprintf("epoch %d/%d", epoch, ae.nEpochs)),
				progressbar.OptionClearOnFinish())
		}
		for _, batch := range batches {
			xb := selectRows(x, batch)
			optimizer.ZeroGrad()
			pred := m.net.Forward(xb)
			m.net.Backward(nn.MSEGrad(pred, xb))
			optimizer.Step()
			if bar != nil {
				_ = bar.Add(1)
			}
		}
		if bar != nil {
			_ = bar.Finish()
		}

		cost := m.Cost(x)
		if !floats.IsFinite(cost) {
			return nil, errors.Errorf("training diverged at epoch %d: cost %v", epoch, cost)
		}
		stop := stopping.Update(cost)
		if config.Verbose > 0 && (epoch%config.Verbose == 0 || epoch == ae.nEpochs-1 || stop) {
			log.Logger().Info(fmt.Sprintf("fit autoencoder %v/%v", epoch, ae.nEpochs),
				zap.Float64("cost", cost),
				zap.String("fit_time", time.Since(fitStart).String()))
		}
		if stop {
			log.Logger().Info("early stopping",
				zap.Int("epoch", epoch),
				zap.Int("best_epoch", stopping.BestEpoch()),
				zap.Int("early_stop", ae.earlyStop))
			break
		}
	}
	m.history = stopping.History()
	return m, nil
}

func selectRows(x *mat.Dense, indices []int) *mat.Dense {
	_, d := x.Dims()
	batch := mat.NewDense(len(indices), d, nil)
	for i, index := range indices {
		batch.SetRow(i, x.RawRowView(index))
	}
	return batch
}

// Model is a trained autoencoder.
type Model struct {
	params     model.Params
	activation string
	encLinear  *nn.Linear
	decLinear  *nn.Linear
	encoder    *nn.Sequential
	decoder    *nn.Sequential
	net        *nn.Sequential
	history    []float64
}

func newModel(params model.Params, activation string, wEnc, bEnc, wDec, bDec *mat.Dense) (*Model, error) {
	encAct, err := nn.NewActivation(activation)
	if err != nil {
		return nil, errors.Trace(err)
	}
	decAct, err := nn.NewActivation(activation)
	if err != nil {
		return nil, errors.Trace(err)
	}
	m := &Model{
		params:     params,
		activation: activation,
		encLinear:  nn.NewLinear(wEnc, bEnc),
		decLinear:  nn.NewLinear(wDec, bDec),
	}
	m.encoder = nn.NewSequential(m.encLinear, encAct)
	m.decoder = nn.NewSequential(m.decLinear, decAct)
	m.net = nn.NewSequential(m.encoder, m.decoder)
	return m, nil
}

func (m *Model) GetParams() model.Params {
	return m.params
}

// Encode returns the hidden representation of x.
func (m *Model) Encode(x *mat.Dense) *mat.Dense {
	return m.encoder.Apply(x)
}

// Predict reconstructs x.
func (m *Model) Predict(x *mat.Dense) *mat.Dense {
	return m.net.Apply(x)
}

// Cost returns the mean squared reconstruction error of x.
func (m *Model) Cost(x *mat.Dense) float64 {
	return nn.MSE(m.Predict(x), x)
}

// History returns the cost after each epoch.
func (m *Model) History() []float64 {
	return append([]float64(nil), m.history...)
}

// BestEpoch returns the epoch with the lowest cost.
func (m *Model) BestEpoch() int {
	return floats.Argmin(m.history)
}

// StopEpoch returns the last trained epoch.
func (m *Model) StopEpoch() int {
	return len(m.history) - 1
}

// NumHidden returns the width of the hidden layer.
func (m *Model) NumHidden() int {
	_, h := m.encLinear.W.Value.Dims()
	return h
}

// Marshal model into byte stream.
func (m *Model) Marshal(w io.Writer) error {
	if err := encoding.WriteGob(w, m.params); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.WriteString(w, m.activation); err != nil {
		return errors.Trace(err)
	}
	for _, p := range m.net.Parameters() {
		if err := encoding.WriteDense(w, p.Value); err != nil {
			return errors.Trace(err)
		}
	}
	if err := encoding.WriteFloats(w, m.history); err != nil {
		return errors.Trace(err)
	}
	return nil
}

// Unmarshal model from byte stream.
func Unmarshal(r io.Reader) (*Model, error) {
	var params model.Params
	if err := encoding.ReadGob(r, &params); err != nil {
		return nil, errors.Trace(err)
	}
	activation, err := encoding.ReadString(r)
	if err != nil {
		return nil, errors.Trace(err)
	}
	values := make([]*mat.Dense, 4)
	for i := range values {
		if values[i], err = encoding.ReadDense(r); err != nil {
			return nil, errors.Trace(err)
		}
	}
	d, h := values[0].Dims()
	if br, bc := values[1].Dims(); br != 1 || bc != h {
		return nil, errors.NotValidf("encoder bias %dx%d", br, bc)
	}
	if wr, wc := values[2].Dims(); wr != h || wc != d {
		return nil, errors.NotValidf("decoder weights %dx%d", wr, wc)
	}
	if br, bc := values[3].Dims(); br != 1 || bc != d {
		return nil, errors.NotValidf("decoder bias %dx%d", br, bc)
	}
	m, err := newModel(params, activation, values[0], values[1], values[2], values[3])
	if err != nil {
		return nil, errors.Trace(err)
	}
	if m.history, err = encoding.ReadFloats(r); err != nil {
		return nil, errors.Trace(err)
	}
	return m, nil
}

// Save model to a file.
func (m *Model) Save(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.Trace(err)
	}
	defer file.Close()
	w := bufio.NewWriter(file)
	if err = m.Marshal(w); err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(w.Flush())
}

// Load model from a file.
func Load(path string) (*Model, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer file.Close()
	return Unmarshal(bufio.NewReader(file))
}

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

package report

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorse-io/latent/base/log"
	"github.com/gorse-io/latent/model/autoencoder"
	"github.com/juju/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

const (
	HistoryFile = "history.json"
	MetricsFile = "metrics.prom"
	SamplesFile = "samples.png"

	LabelEpoch = "epoch"
)

// History is the content of history.json.
type History struct {
	RunID     string            `json:"run_id"`
	Timestamp time.Time         `json:"timestamp"`
	Params    map[string]string `json:"params"`
	Cost      []float64         `json:"cost"`
	BestEpoch int               `json:"best_epoch"`
	StopEpoch int               `json:"stop_epoch"`
	TestCost  *float64          `json:"test_cost,omitempty"`
}

// TrainingLog writes the outcome of an autoencoder run to a directory.
type TrainingLog struct {
	Dir   string
	RunID string
}

// NewTrainingLog creates the directory of a new run under root.
func NewTrainingLog(root string) (*TrainingLog, error) {
	runID := uuid.New().String()
	dir := filepath.Join(root, runID)
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return nil, errors.Trace(err)
	}
	return &TrainingLog{Dir: dir, RunID: runID}, nil
}

func (l *TrainingLog) Path(name string) string {
	return filepath.Join(l.Dir, name)
}

// Write saves the cost history and metrics of a trained model. testCost is
// skipped if nil.
func (l *TrainingLog) Write(m *autoencoder.Model, testCost *float64) error {
	history := History{
		RunID:     l.RunID,
		Timestamp: time.Now().UTC(),
		Params:    make(map[string]string),
		Cost:      m.History(),
		BestEpoch: m.BestEpoch(),
		StopEpoch: m.StopEpoch(),
		TestCost:  testCost,
	}
	for name, value := range m.GetParams() {
		history.Params[string(name)] = formatValue(value)
	}
	data, err := json.MarshalIndent(history, "", "  ")
	if err != nil {
		return errors.Trace(err)
	}
	if err = os.WriteFile(l.Path(HistoryFile), data, 0644); err != nil {
		return errors.Trace(err)
	}
	if err = l.writeMetrics(history); err != nil {
		return errors.Trace(err)
	}
	log.Logger().Info("save training log",
		zap.String("run_id", l.RunID),
		zap.String("dir", l.Dir))
	return nil
}

func formatValue(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	default:
		data, _ := json.Marshal(v)
		return string(data)
	}
}

func (l *TrainingLog) writeMetrics(history History) error {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)
	constLabels := prometheus.Labels{"run_id": l.RunID}
	costVec := factory.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   "latent",
		Subsystem:   "autoencoder",
		Name:        "cost",
		ConstLabels: constLabels,
	}, []string{LabelEpoch})
	for epoch, cost := range history.Cost {
		costVec.WithLabelValues(strconv.Itoa(epoch)).Set(cost)
	}
	factory.NewGauge(prometheus.GaugeOpts{
		Namespace:   "latent",
		Subsystem:   "autoencoder",
		Name:        "best_epoch",
		ConstLabels: constLabels,
	}).Set(float64(history.BestEpoch))
	factory.NewGauge(prometheus.GaugeOpts{
		Namespace:   "latent",
		Subsystem:   "autoencoder",
		Name:        "epochs_total",
		ConstLabels: constLabels,
	}).Set(float64(len(history.Cost)))
	if history.TestCost != nil {
		factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   "latent",
			Subsystem:   "autoencoder",
			Name:        "test_cost",
			ConstLabels: constLabels,
		}).Set(*history.TestCost)
	}
	return errors.Trace(prometheus.WriteToTextfile(l.Path(MetricsFile), registry))
}

// ReadHistory loads history.json of a run.
func ReadHistory(dir string) (*History, error) {
	data, err := os.ReadFile(filepath.Join(dir, HistoryFile))
	if err != nil {
		return nil, errors.Trace(err)
	}
	var history History
	if err = json.Unmarshal(data, &history); err != nil {
		return nil, errors.Trace(err)
	}
	return &history, nil
}

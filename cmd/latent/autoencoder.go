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

package main

import (
	"github.com/gorse-io/latent/base/log"
	"github.com/gorse-io/latent/dataset"
	"github.com/gorse-io/latent/model/autoencoder"
	"github.com/gorse-io/latent/report"
	"github.com/juju/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

var autoencoderCommand = &cobra.Command{
	Use:   "autoencoder",
	Short: "Train an autoencoder on IDX images.",
	Run: func(cmd *cobra.Command, args []string) {
		conf := loadConfig(cmd)
		if conf.Data.TrainImages == "" {
			log.Logger().Fatal("train images are not configured")
		}
		train, err := dataset.LoadIDXImages(conf.Data.TrainImages)
		if err != nil {
			log.Logger().Fatal("failed to load train images", zap.Error(err))
		}
		log.Logger().Info("load train images",
			zap.Int("n_images", train.Count()),
			zap.Int("rows", train.Rows),
			zap.Int("cols", train.Cols))
		var test *dataset.Images
		if conf.Data.TestImages != "" {
			if test, err = dataset.LoadIDXImages(conf.Data.TestImages); err != nil {
				log.Logger().Fatal("failed to load test images", zap.Error(err))
			}
			if test.Rows != train.Rows || test.Cols != train.Cols {
				log.Logger().Fatal("test images do not match train images",
					zap.Int("rows", test.Rows),
					zap.Int("cols", test.Cols))
			}
		}

		// train
		progress, _ := cmd.Flags().GetBool("progress")
		fitConfig := autoencoder.NewFitConfig().
			SetVerbose(conf.Autoencoder.Verbose).
			SetProgress(progress)
		ae := autoencoder.NewAutoencoder(conf.Autoencoder.GetParams())
		m, err := ae.Fit(cmd.Context(), train.Pixels, fitConfig)
		if err != nil {
			log.Logger().Fatal("failed to fit autoencoder", zap.Error(err))
		}
		var testCost *float64
		if test != nil {
			cost := m.Cost(test.Pixels)
			testCost = &cost
			log.Logger().Info("evaluate autoencoder on test images", zap.Float64("cost", cost))
		}
		if conf.Autoencoder.Checkpoint != "" {
			if err = m.Save(conf.Autoencoder.Checkpoint); err != nil {
				log.Logger().Fatal("failed to save checkpoint", zap.Error(err))
			}
			log.Logger().Info("save checkpoint", zap.String("path", conf.Autoencoder.Checkpoint))
		}

		// report
		if conf.Autoencoder.LogDir != "" {
			trainLog, err := report.NewTrainingLog(conf.Autoencoder.LogDir)
			if err != nil {
				log.Logger().Fatal("failed to create training log", zap.Error(err))
			}
			if err = trainLog.Write(m, testCost); err != nil {
				log.Logger().Fatal("failed to write training log", zap.Error(err))
			}
			samples := train
			if test != nil {
				samples = test
			}
			if err = saveSamples(trainLog.Path(report.SamplesFile), m, samples, conf.Autoencoder.NumSamples); err != nil {
				log.Logger().Fatal("failed to save samples", zap.Error(err))
			}
		}
	},
}

func init() {
	autoencoderCommand.Flags().Bool("progress", false, "show progress of each epoch")
}

// saveSamples draws the first n images above their reconstructions.
func saveSamples(path string, m *autoencoder.Model, images *dataset.Images, n int) error {
	n = min(n, images.Count())
	if n <= 0 {
		return nil
	}
	original := images.Pixels.Slice(0, n, 0, images.Rows*images.Cols).(*mat.Dense)
	grid, err := report.Reconstructions(original, m.Predict(mat.DenseCopyOf(original)), images.Rows, images.Cols)
	if err != nil {
		return errors.Trace(err)
	}
	if err = report.SavePNG(path, grid); err != nil {
		return errors.Trace(err)
	}
	log.Logger().Info("save samples", zap.String("path", path), zap.Int("n_samples", n))
	return nil
}

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
	"os"
	"time"

	"github.com/gorse-io/latent/base/log"
	"github.com/gorse-io/latent/model/cf"
	"github.com/gorse-io/latent/report"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var tuneCommand = &cobra.Command{
	Use:   "tune",
	Short: "Tune collaborative filtering hyper-parameters by TPE search.",
	Run: func(cmd *cobra.Command, args []string) {
		conf := loadConfig(cmd)
		_, ratings, err := loadRatings(&conf.Data)
		if err != nil {
			log.Logger().Fatal("failed to load data", zap.Error(err))
		}
		search := conf.Collaborative.Search
		if cmd.Flags().Changed("n-trials") {
			search.NTrials, _ = cmd.Flags().GetInt("n-trials")
		}
		space := &cf.SearchRange{
			MinReg:      search.MinReg,
			MaxReg:      search.MaxReg,
			MinFactors:  search.MinFactors,
			MaxFactors:  search.MaxFactors,
			FixedParams: conf.Collaborative.GetParams(),
		}
		start := time.Now()
		fitConfig := cf.NewFitConfig().SetVerbose(conf.Collaborative.Verbose)
		result, err := cf.Search(cmd.Context(), ratings, space, search.NTrials, search.ValidRatio,
			conf.Collaborative.RandomState, fitConfig)
		if err != nil {
			log.Logger().Fatal("failed to search hyper-parameters", zap.Error(err))
		}
		if err = report.RenderSearch(os.Stdout, result); err != nil {
			log.Logger().Fatal("failed to render search result", zap.Error(err))
		}
		log.Logger().Info("complete hyper-parameter search", zap.Duration("elapsed", time.Since(start)))
	},
}

func init() {
	tuneCommand.Flags().Int("n-trials", 10, "number of trials")
}

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
	"strconv"
	"strings"

	"github.com/gorse-io/latent/base/log"
	"github.com/gorse-io/latent/model/cf"
	"github.com/gorse-io/latent/report"
	"github.com/juju/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// demoRatings are ratings of a new user on the MovieLens 100K item list.
var demoRatings = map[int]float64{
	0:   4,
	97:  2,
	6:   3,
	11:  5,
	53:  4,
	63:  5,
	65:  3,
	68:  5,
	182: 4,
	225: 5,
	354: 5,
}

var recommendCommand = &cobra.Command{
	Use:   "recommend",
	Short: "Recommend items for a new user by collaborative filtering.",
	Run: func(cmd *cobra.Command, args []string) {
		conf := loadConfig(cmd)
		catalog, ratings, err := loadRatings(&conf.Data)
		if err != nil {
			log.Logger().Fatal("failed to load data", zap.Error(err))
		}

		// rate items
		user := cf.NewUser(ratings.ItemCount())
		if demo, _ := cmd.Flags().GetBool("demo"); demo {
			for index, rating := range demoRatings {
				if err = user.SetRating(index, rating); err != nil {
					log.Logger().Fatal("failed to rate demo items", zap.Error(err))
				}
			}
		}
		rates, _ := cmd.Flags().GetStringSlice("rate")
		for _, rate := range rates {
			index, rating, err := parseRating(rate)
			if err != nil {
				log.Logger().Fatal("invalid rating", zap.String("rate", rate), zap.Error(err))
			}
			if err = user.SetRating(index, rating); err != nil {
				log.Logger().Fatal("invalid rating", zap.String("rate", rate), zap.Error(err))
			}
		}
		if err = report.RenderRatings(os.Stdout, catalog, user); err != nil {
			log.Logger().Fatal("failed to render ratings", zap.Error(err))
		}

		// train
		fitConfig := cf.NewFitConfig().SetVerbose(conf.Collaborative.Verbose)
		mf := cf.NewMatrixFactorization(conf.Collaborative.GetParams())
		if err = mf.Fit(cmd.Context(), ratings, user, fitConfig); err != nil {
			log.Logger().Fatal("failed to fit collaborative filtering model", zap.Error(err))
		}
		if conf.Collaborative.Checkpoint != "" {
			if err = mf.Save(conf.Collaborative.Checkpoint); err != nil {
				log.Logger().Fatal("failed to save checkpoint", zap.Error(err))
			}
			log.Logger().Info("save checkpoint", zap.String("path", conf.Collaborative.Checkpoint))
		}

		// recommend
		topN := conf.Collaborative.TopN
		if cmd.Flags().Changed("top-n") {
			topN, _ = cmd.Flags().GetInt("top-n")
		}
		if err = report.RenderRecommendations(os.Stdout, catalog, mf.Recommend(topN), mf.Predict()); err != nil {
			log.Logger().Fatal("failed to render recommendations", zap.Error(err))
		}
	},
}

func init() {
	recommendCommand.Flags().Bool("demo", false, "rate the demo items")
	recommendCommand.Flags().StringSlice("rate", nil, "rate an item by index (e.g. --rate 0=4,97=2)")
	recommendCommand.Flags().Int("top-n", 10, "number of recommended items")
}

// parseRating parses "index=rating".
func parseRating(s string) (int, float64, error) {
	key, value, found := strings.Cut(s, "=")
	if !found {
		return 0, 0, errors.NotValidf("rating %q", s)
	}
	index, err := strconv.Atoi(strings.TrimSpace(key))
	if err != nil {
		return 0, 0, errors.Annotatef(err, "invalid item index %q", key)
	}
	rating, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0, 0, errors.Annotatef(err, "invalid rating %q", value)
	}
	return index, rating, nil
}

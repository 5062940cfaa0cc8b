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
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/gorse-io/latent/base/log"
	"github.com/gorse-io/latent/cmd/version"
	"github.com/gorse-io/latent/config"
	"github.com/gorse-io/latent/dataset"
	"github.com/juju/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rootCommand = &cobra.Command{
	Use:   "latent",
	Short: "Train autoencoders and recommend items for new users.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		debug, _ := cmd.Flags().GetBool("debug")
		log.SetLogger(cmd.Flags(), debug)
	},
}

var versionCommand = &cobra.Command{
	Use:   "version",
	Short: "Show version information.",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Print(version.BuildInfo())
	},
}

func init() {
	log.AddFlags(rootCommand.PersistentFlags())
	rootCommand.PersistentFlags().Bool("debug", false, "use debug log mode")
	rootCommand.PersistentFlags().StringP("config", "c", "", "configuration file path")
	rootCommand.AddCommand(versionCommand)
	rootCommand.AddCommand(autoencoderCommand)
	rootCommand.AddCommand(recommendCommand)
	rootCommand.AddCommand(tuneCommand)
}

// loadConfig loads the configuration or exits.
func loadConfig(cmd *cobra.Command) *config.Config {
	configPath, _ := cmd.Flags().GetString("config")
	log.Logger().Info("load config", zap.String("config", configPath))
	conf, err := config.LoadConfig(configPath)
	if err != nil {
		log.Logger().Fatal("failed to load config", zap.Error(err))
	}
	return conf
}

// loadRatings loads the item catalog and existing ratings. The catalog is nil
// if no item list is configured.
func loadRatings(conf *config.DataConfig) (*dataset.ItemCatalog, *dataset.RatingMatrix, error) {
	var catalog *dataset.ItemCatalog
	if conf.ItemList != "" {
		var err error
		if catalog, err = dataset.LoadItemCatalog(conf.ItemList); err != nil {
			return nil, nil, errors.Annotatef(err, "failed to load item list %v", conf.ItemList)
		}
	}
	if conf.Ratings == "" {
		return nil, nil, errors.NotValidf("empty ratings path")
	}
	var ratings *dataset.RatingMatrix
	var err error
	switch conf.RatingFormat {
	case "triples":
		if catalog == nil {
			return nil, nil, errors.NotValidf("rating triples without item list")
		}
		var users *dataset.FreqDict
		if ratings, users, err = dataset.LoadRatingTriples(conf.Ratings, catalog); err != nil {
			return nil, nil, errors.Annotatef(err, "failed to load ratings %v", conf.Ratings)
		}
		log.Logger().Info("load rating triples", zap.Int("n_users", users.Count()))
	default:
		if ratings, err = dataset.LoadRatingMatrix(conf.Ratings); err != nil {
			return nil, nil, errors.Annotatef(err, "failed to load ratings %v", conf.Ratings)
		}
	}
	if catalog != nil && catalog.Count() != ratings.ItemCount() {
		return nil, nil, errors.NotValidf("%d items in item list but %d in ratings", catalog.Count(), ratings.ItemCount())
	}
	log.Logger().Info("load ratings",
		zap.Int("n_items", ratings.ItemCount()),
		zap.Int("n_users", ratings.UserCount()),
		zap.Int("n_ratings", ratings.CountObserved()))
	return catalog, ratings, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCommand.ExecuteContext(ctx); err != nil {
		log.Logger().Fatal("failed to execute command", zap.Error(err))
	}
}

// Copyright 2020 gorse Project Authors
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

package config

import (
	"github.com/gorse-io/latent/model"
	"github.com/juju/errors"
	"github.com/spf13/viper"
)

// Config is the configuration for latent.
type Config struct {
	Data          DataConfig          `mapstructure:"data"`
	Collaborative CollaborativeConfig `mapstructure:"collaborative"`
	Autoencoder   AutoencoderConfig   `mapstructure:"autoencoder"`
}

// DataConfig is the configuration for input files.
type DataConfig struct {
	ItemList     string `mapstructure:"item_list"`
	Ratings      string `mapstructure:"ratings"`
	RatingFormat string `mapstructure:"rating_format" validate:"oneof=matrix triples"`
	TrainImages  string `mapstructure:"train_images"`
	TestImages   string `mapstructure:"test_images"`
}

// CollaborativeConfig is the configuration for the collaborative filtering recommender.
type CollaborativeConfig struct {
	NFactors    int          `mapstructure:"n_factors" validate:"gt=0"`
	Reg         float64      `mapstructure:"reg" validate:"gte=0"`
	NEpochs     int          `mapstructure:"n_epochs" validate:"gt=0"`
	Optimizer   string       `mapstructure:"optimizer" validate:"oneof=cg lbfgs gd"`
	Mode        string       `mapstructure:"mode" validate:"oneof=joint user"`
	InitStdDev  float64      `mapstructure:"init_std" validate:"gte=0"`
	RandomState int64        `mapstructure:"random_state"`
	TopN        int          `mapstructure:"top_n" validate:"gt=0"`
	Verbose     int          `mapstructure:"verbose" validate:"gte=0"`
	Checkpoint  string       `mapstructure:"checkpoint"`
	Search      SearchConfig `mapstructure:"search"`
}

// SearchConfig is the configuration for hyper-parameter search.
type SearchConfig struct {
	NTrials    int     `mapstructure:"n_trials" validate:"gt=0"`
	ValidRatio float64 `mapstructure:"valid_ratio" validate:"gt=0,lt=1"`
	MinReg     float64 `mapstructure:"min_reg" validate:"gt=0"`
	MaxReg     float64 `mapstructure:"max_reg" validate:"gtfield=MinReg"`
	MinFactors int     `mapstructure:"min_factors" validate:"gt=0"`
	MaxFactors int     `mapstructure:"max_factors" validate:"gtefield=MinFactors"`
}

// AutoencoderConfig is the configuration for the autoencoder trainer.
type AutoencoderConfig struct {
	NHidden     int     `mapstructure:"n_hidden" validate:"gt=0"`
	Lr          float64 `mapstructure:"lr" validate:"gt=0"`
	NEpochs     int     `mapstructure:"n_epochs" validate:"gt=0"`
	BatchSize   int     `mapstructure:"batch_size" validate:"gt=0"`
	EarlyStop   int     `mapstructure:"early_stop" validate:"gte=0"`
	Tolerance   float64 `mapstructure:"tolerance" validate:"gte=0"`
	Activation  string  `mapstructure:"activation" validate:"oneof=sigmoid tanh relu identity"`
	Optimizer   string  `mapstructure:"optimizer" validate:"oneof=sgd adam"`
	InitMean    float64 `mapstructure:"init_mean"`
	InitStdDev  float64 `mapstructure:"init_std" validate:"gte=0"`
	RandomState int64   `mapstructure:"random_state"`
	Verbose     int     `mapstructure:"verbose" validate:"gte=0"`
	Checkpoint  string  `mapstructure:"checkpoint"`
	LogDir      string  `mapstructure:"log_dir"`
	NumSamples  int     `mapstructure:"n_samples" validate:"gte=0"`
}

func GetDefaultConfig() *Config {
	return &Config{
		Data: DataConfig{
			RatingFormat: "matrix",
		},
		Collaborative: CollaborativeConfig{
			NFactors:   10,
			Reg:        10,
			NEpochs:    100,
			Optimizer:  "cg",
			Mode:       "joint",
			InitStdDev: 1,
			TopN:       10,
			Verbose:    10,
			Search: SearchConfig{
				NTrials:    10,
				ValidRatio: 0.1,
				MinReg:     0.01,
				MaxReg:     100,
				MinFactors: 2,
				MaxFactors: 32,
			},
		},
		Autoencoder: AutoencoderConfig{
			NHidden:    32,
			Lr:         0.01,
			NEpochs:    20,
			BatchSize:  256,
			EarlyStop:  3,
			Tolerance:  1e-5,
			Activation: "sigmoid",
			Optimizer:  "adam",
			InitStdDev: 1,
			Verbose:    1,
			NumSamples: 10,
		},
	}
}

// GetParams returns hyper-parameters of the collaborative filtering model.
func (c *CollaborativeConfig) GetParams() model.Params {
	return model.Params{
		model.NFactors:    c.NFactors,
		model.Reg:         c.Reg,
		model.NEpochs:     c.NEpochs,
		model.Optimizer:   c.Optimizer,
		model.Mode:        c.Mode,
		model.InitStdDev:  c.InitStdDev,
		model.RandomState: c.RandomState,
	}
}

// GetParams returns hyper-parameters of the autoencoder.
func (c *AutoencoderConfig) GetParams() model.Params {
	return model.Params{
		model.NHidden:     c.NHidden,
		model.Lr:          c.Lr,
		model.NEpochs:     c.NEpochs,
		model.BatchSize:   c.BatchSize,
		model.EarlyStop:   c.EarlyStop,
		model.Tolerance:   c.Tolerance,
		model.Activation:  c.Activation,
		model.Optimizer:   c.Optimizer,
		model.InitMean:    c.InitMean,
		model.InitStdDev:  c.InitStdDev,
		model.RandomState: c.RandomState,
	}
}

func setDefault(v *viper.Viper) {
	defaultConfig := GetDefaultConfig()
	// [data]
	v.SetDefault("data.item_list", defaultConfig.Data.ItemList)
	v.SetDefault("data.ratings", defaultConfig.Data.Ratings)
	v.SetDefault("data.rating_format", defaultConfig.Data.RatingFormat)
	v.SetDefault("data.train_images", defaultConfig.Data.TrainImages)
	v.SetDefault("data.test_images", defaultConfig.Data.TestImages)
	// [collaborative]
	v.SetDefault("collaborative.n_factors", defaultConfig.Collaborative.NFactors)
	v.SetDefault("collaborative.reg", defaultConfig.Collaborative.Reg)
	v.SetDefault("collaborative.n_epochs", defaultConfig.Collaborative.NEpochs)
	v.SetDefault("collaborative.optimizer", defaultConfig.Collaborative.Optimizer)
	v.SetDefault("collaborative.mode", defaultConfig.Collaborative.Mode)
	v.SetDefault("collaborative.init_std", defaultConfig.Collaborative.InitStdDev)
	v.SetDefault("collaborative.random_state", defaultConfig.Collaborative.RandomState)
	v.SetDefault("collaborative.top_n", defaultConfig.Collaborative.TopN)
	v.SetDefault("collaborative.verbose", defaultConfig.Collaborative.Verbose)
	v.SetDefault("collaborative.checkpoint", defaultConfig.Collaborative.Checkpoint)
	// [collaborative.search]
	v.SetDefault("collaborative.search.n_trials", defaultConfig.Collaborative.Search.NTrials)
	v.SetDefault("collaborative.search.valid_ratio", defaultConfig.Collaborative.Search.ValidRatio)
	v.SetDefault("collaborative.search.min_reg", defaultConfig.Collaborative.Search.MinReg)
	v.SetDefault("collaborative.search.max_reg", defaultConfig.Collaborative.Search.MaxReg)
	v.SetDefault("collaborative.search.min_factors", defaultConfig.Collaborative.Search.MinFactors)
	v.SetDefault("collaborative.search.max_factors", defaultConfig.Collaborative.Search.MaxFactors)
	// [autoencoder]
	v.SetDefault("autoencoder.n_hidden", defaultConfig.Autoencoder.NHidden)
	v.SetDefault("autoencoder.lr", defaultConfig.Autoencoder.Lr)
	v.SetDefault("autoencoder.n_epochs", defaultConfig.Autoencoder.NEpochs)
	v.SetDefault("autoencoder.batch_size", defaultConfig.Autoencoder.BatchSize)
	v.SetDefault("autoencoder.early_stop", defaultConfig.Autoencoder.EarlyStop)
	v.SetDefault("autoencoder.tolerance", defaultConfig.Autoencoder.Tolerance)
	v.SetDefault("autoencoder.activation", defaultConfig.Autoencoder.Activation)
	v.SetDefault("autoencoder.optimizer", defaultConfig.Autoencoder.Optimizer)
	v.SetDefault("autoencoder.init_mean", defaultConfig.Autoencoder.InitMean)
	v.SetDefault("autoencoder.init_std", defaultConfig.Autoencoder.InitStdDev)
	v.SetDefault("autoencoder.random_state", defaultConfig.Autoencoder.RandomState)
	v.SetDefault("autoencoder.verbose", defaultConfig.Autoencoder.Verbose)
	v.SetDefault("autoencoder.checkpoint", defaultConfig.Autoencoder.Checkpoint)
	v.SetDefault("autoencoder.log_dir", defaultConfig.Autoencoder.LogDir)
	v.SetDefault("autoencoder.n_samples", defaultConfig.Autoencoder.NumSamples)
}

type configBinding struct {
	key string
	env string
}

func bindEnv(v *viper.Viper) error {
	bindings := []configBinding{
		{"data.item_list", "LATENT_ITEM_LIST"},
		{"data.ratings", "LATENT_RATINGS"},
		{"data.rating_format", "LATENT_RATING_FORMAT"},
		{"data.train_images", "LATENT_TRAIN_IMAGES"},
		{"data.test_images", "LATENT_TEST_IMAGES"},
		{"collaborative.checkpoint", "LATENT_CF_CHECKPOINT"},
		{"autoencoder.checkpoint", "LATENT_AUTOENCODER_CHECKPOINT"},
		{"autoencoder.log_dir", "LATENT_LOG_DIR"},
	}
	for _, binding := range bindings {
		if err := v.BindEnv(binding.key, binding.env); err != nil {
			return errors.Annotatef(err, "failed to bind %v", binding.env)
		}
	}
	return nil
}

// LoadConfig loads configuration from a toml file. Missing keys keep their
// defaults and LATENT_* environment variables override the file. An empty
// path loads defaults and environment variables only.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefault(v)
	if err := bindEnv(v); err != nil {
		return nil, errors.Trace(err)
	}
	if path != "" {
		v.SetConfigType("toml")
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Trace(err)
		}
	}
	var conf Config
	if err := v.Unmarshal(&conf); err != nil {
		return nil, errors.Trace(err)
	}
	if err := conf.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	return &conf, nil
}

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

package model

import (
	"reflect"

	"github.com/goccy/go-json"
	"github.com/gorse-io/latent/base/log"
	"go.uber.org/zap"
)

/* ParamName */

// ParamName is the type of hyper-parameter names.
type ParamName string

// Predefined hyper-parameter names
const (
	Lr          ParamName = "Lr"          // learning rate
	Reg         ParamName = "Reg"         // regularization strength
	NEpochs     ParamName = "NEpochs"     // number of epochs (or optimizer iterations)
	NFactors    ParamName = "NFactors"    // number of latent factors
	NHidden     ParamName = "NHidden"     // width of the autoencoder code layer
	BatchSize   ParamName = "BatchSize"   // mini-batch size
	EarlyStop   ParamName = "EarlyStop"   // epochs to wait after the best cost
	Tolerance   ParamName = "Tolerance"   // cost increase that counts as worse
	RandomState ParamName = "RandomState" // random state (seed)
	InitMean    ParamName = "InitMean"    // mean of gaussian initial parameter
	InitStdDev  ParamName = "InitStdDev"  // standard deviation of gaussian initial parameter
	Activation  ParamName = "Activation"  // activation function
	Optimizer   ParamName = "Optimizer"   // optimizer name
	Mode        ParamName = "Mode"        // which parameters are optimized
)

// Params stores hyper-parameters for an model. It is a map between strings
// (names) and interface{}s (values). For example, hyper-parameters for the
// collaborative filtering model could be given by:
//
//	model.Params{
//		model.NFactors: 10,
//		model.Reg:      10.0,
//		model.NEpochs:  100,
//	}
type Params map[ParamName]interface{}

// Copy hyper-parameters.
func (parameters Params) Copy() Params {
	newParams := make(Params)
	for k, v := range parameters {
		newParams[k] = v
	}
	return newParams
}

// GetInt gets a integer parameter by name. Returns _default if not exists or type doesn't match.
// Whole float64 values (as produced by samplers) are accepted.
func (parameters Params) GetInt(name ParamName, _default int) int {
	if val, exist := parameters[name]; exist {
		switch val := val.(type) {
		case int:
			return val
		case int64:
			return int(val)
		case float64:
			if val == float64(int(val)) {
				return int(val)
			}
		}
		log.Logger().Error("type mismatch",
			zap.String("param", string(name)),
			zap.String("expect", "int"),
			zap.String("actual", reflect.TypeOf(val).String()))
	}
	return _default
}

// GetInt64 gets a int64 parameter by name. Returns _default if not exists or type doesn't match. The
// type will be converted if given int.
func (parameters Params) GetInt64(name ParamName, _default int64) int64 {
	if val, exist := parameters[name]; exist {
		switch val := val.(type) {
		case int64:
			return val
		case int:
			return int64(val)
		default:
			log.Logger().Error("type mismatch",
				zap.String("param", string(name)),
				zap.String("expect", "int64"),
				zap.String("actual", reflect.TypeOf(val).String()))
		}
	}
	return _default
}

// GetFloat64 gets a float64 parameter by name. Returns _default if not exists or type doesn't match.
func (parameters Params) GetFloat64(name ParamName, _default float64) float64 {
	if val, exist := parameters[name]; exist {
		switch val := val.(type) {
		case float64:
			return val
		case float32:
			return float64(val)
		case int:
			return float64(val)
		default:
			log.Logger().Error("type mismatch",
				zap.String("param", string(name)),
				zap.String("expect", "float64"),
				zap.String("actual", reflect.TypeOf(val).String()))
		}
	}
	return _default
}

// GetString gets a string parameter. Returns _default if not exists or type doesn't match.
func (parameters Params) GetString(name ParamName, _default string) string {
	if val, exist := parameters[name]; exist {
		switch val := val.(type) {
		case string:
			return val
		default:
			log.Logger().Error("type mismatch",
				zap.String("param", string(name)),
				zap.String("expect", "string"),
				zap.String("actual", reflect.TypeOf(val).String()))
		}
	}
	return _default
}

func (parameters Params) Overwrite(params Params) Params {
	merged := make(Params)
	for k, v := range parameters {
		merged[k] = v
	}
	for k, v := range params {
		merged[k] = v
	}
	return merged
}

func (parameters Params) ToString() string {
	b, err := json.Marshal(parameters)
	if err != nil {
		log.Logger().Fatal("failed to marshal params", zap.Error(err))
	}
	return string(b)
}

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

package cf

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/c-bata/goptuna"
	"github.com/c-bata/goptuna/tpe"
	"github.com/gorse-io/latent/base/log"
	"github.com/gorse-io/latent/dataset"
	"github.com/gorse-io/latent/model"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

// RMSE evaluates a factorized model on the observed entries of a
// validation matrix. Users are aligned by index.
func RMSE(mf *MatrixFactorization, valid *dataset.RatingMatrix) float64 {
	_, users := valid.Dims()
	var predictions mat.Dense
	predictions.Mul(mf.ItemFactor, mf.UserFactor.T())
	sum, count := 0.0, 0
	for i, e := valid.R.NextSet(0); e; i, e = valid.R.NextSet(i + 1) {
		item, user := int(i)/users, int(i)%users
		d := predictions.At(item, user) + mf.ItemMean[item] - valid.Y.At(item, user)
		sum += d * d
		count++
	}
	if count == 0 {
		return math.NaN()
	}
	return math.Sqrt(sum / float64(count))
}

type SearchRange struct {
	MinReg      float64
	MaxReg      float64
	MinFactors  int
	MaxFactors  int
	FixedParams model.Params
}

func NewSearchRange() *SearchRange {
	return &SearchRange{
		MinReg:     0.01,
		MaxReg:     100,
		MinFactors: 2,
		MaxFactors: 32,
	}
}

type SearchResult struct {
	Params model.Params
	Score  float64
	Model  *MatrixFactorization
	Trials int
}

// ModelSearch keeps the best collaborative filtering model found by trials.
type ModelSearch struct {
	ctx      context.Context
	train    *dataset.RatingMatrix
	valid    *dataset.RatingMatrix
	space    *SearchRange
	config   *FitConfig
	resultMu sync.Mutex
	result   SearchResult
}

func NewModelSearch(ctx context.Context, train, valid *dataset.RatingMatrix, space *SearchRange, config *FitConfig) *ModelSearch {
	return &ModelSearch{
		ctx:    ctx,
		train:  train,
		valid:  valid,
		space:  space,
		config: config,
		result: SearchResult{Score: math.Inf(1)},
	}
}

func (ms *ModelSearch) SuggestParams(trial goptuna.Trial) model.Params {
	params := ms.space.FixedParams.Copy()
	params[model.Reg] = lo.Must(trial.SuggestLogFloat(string(model.Reg), ms.space.MinReg, ms.space.MaxReg))
	params[model.NFactors] = lo.Must(trial.SuggestInt(string(model.NFactors), ms.space.MinFactors, ms.space.MaxFactors))
	return params
}

// Objective returns the validation RMSE of a trial.
func (ms *ModelSearch) Objective(trial goptuna.Trial) (float64, error) {
	params := ms.SuggestParams(trial)
	mf := NewMatrixFactorization(params)
	if err := mf.Factorize(ms.ctx, ms.train, ms.config); err != nil {
		return 0, errors.Trace(err)
	}
	score := RMSE(mf, ms.valid)
	log.Logger().Info(fmt.Sprintf("search trial %d", trial.ID),
		zap.Any("params", params),
		zap.Float64("rmse", score))
	ms.resultMu.Lock()
	defer ms.resultMu.Unlock()
	ms.result.Trials++
	if score < ms.result.Score {
		ms.result.Params = params.Copy()
		ms.result.Score = score
		ms.result.Model = mf
	}
	return score, nil
}

func (ms *ModelSearch) Result() SearchResult {
	ms.resultMu.Lock()
	defer ms.resultMu.Unlock()
	return ms.result
}

// Search hyper-parameters with TPE on a random hold-out split of ratings.
func Search(ctx context.Context, ratings *dataset.RatingMatrix, space *SearchRange, numTrials int,
	validRatio float64, seed int64, config *FitConfig) (SearchResult, error) {
	train, valid := ratings.Split(validRatio, seed)
	if valid.CountObserved() == 0 {
		return SearchResult{}, errors.NotValidf("validation split with ratio %v", validRatio)
	}
	log.Logger().Info("collaborative filtering model search",
		zap.Int("n_train", train.CountObserved()),
		zap.Int("n_valid", valid.CountObserved()),
		zap.Int("n_trials", numTrials))
	start := time.Now()
	study, err := goptuna.CreateStudy("latent",
		goptuna.StudyOptionDirection(goptuna.StudyDirectionMinimize),
		goptuna.StudyOptionSampler(tpe.NewSampler(tpe.SamplerOptionSeed(seed))))
	if err != nil {
		return SearchResult{}, errors.Trace(err)
	}
	search := NewModelSearch(ctx, train, valid, space, config)
	if err = study.Optimize(search.Objective, numTrials); err != nil {
		return SearchResult{}, errors.Trace(err)
	}
	if err = ctx.Err(); err != nil {
		return SearchResult{}, errors.Trace(err)
	}
	result := search.Result()
	if result.Model == nil {
		return SearchResult{}, errors.Errorf("no successful trial in %d trials", numTrials)
	}
	log.Logger().Info("complete collaborative filtering model search",
		zap.Float64("rmse", result.Score),
		zap.Any("params", result.Params),
		zap.String("search_time", time.Since(start).String()))
	return result, nil
}

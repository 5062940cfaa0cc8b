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
	"bufio"
	"context"
	"encoding/binary"
	"io"
	"os"
	"sort"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/gorse-io/latent/base/encoding"
	"github.com/gorse-io/latent/base/log"
	"github.com/gorse-io/latent/dataset"
	"github.com/gorse-io/latent/model"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
)

type FitConfig struct {
	Verbose int
}

func NewFitConfig() *FitConfig {
	return &FitConfig{
		Verbose: 10,
	}
}

func (config *FitConfig) SetVerbose(verbose int) *FitConfig {
	config.Verbose = verbose
	return config
}

// MatrixFactorization is the collaborative filtering model. Ratings are
// predicted by p_ij = x_i·θ_j + μ_i where μ_i is the mean observed rating of
// item i.
type MatrixFactorization struct {
	model.BaseModel
	// Hyper-parameters
	nFactors   int
	nEpochs    int
	reg        float64
	initMean   float64
	initStdDev float64
	optimizer  string
	mode       string
	// Model parameters
	ItemMean   []float64  // μ
	ItemFactor *mat.Dense // X, items x factors
	UserFactor *mat.Dense // Θ, users x factors
	Cost       float64
	// new user
	userIndex int
	rated     mapset.Set[int]
}

func NewMatrixFactorization(params model.Params) *MatrixFactorization {
	mf := new(MatrixFactorization)
	mf.SetParams(params)
	return mf
}

func (mf *MatrixFactorization) SetParams(params model.Params) {
	mf.BaseModel.SetParams(params)
	mf.nFactors = mf.Params.GetInt(model.NFactors, 10)
	mf.nEpochs = mf.Params.GetInt(model.NEpochs, 100)
	mf.reg = mf.Params.GetFloat64(model.Reg, 10)
	mf.initMean = mf.Params.GetFloat64(model.InitMean, 0)
	mf.initStdDev = mf.Params.GetFloat64(model.InitStdDev, 1)
	mf.optimizer = mf.Params.GetString(model.Optimizer, ConjugateGradient)
	mf.mode = mf.Params.GetString(model.Mode, ModeJoint)
	mf.userIndex = -1
}

func (mf *MatrixFactorization) validate() error {
	if mf.nFactors <= 0 {
		return errors.NotValidf("n_factors %d", mf.nFactors)
	}
	if mf.nEpochs <= 0 {
		return errors.NotValidf("n_epochs %d", mf.nEpochs)
	}
	if mf.reg < 0 {
		return errors.NotValidf("reg %v", mf.reg)
	}
	if _, err := newMethod(mf.optimizer); err != nil {
		return err
	}
	if mf.mode != ModeJoint && mf.mode != ModeUser {
		return errors.NotSupportedf("mode %v", mf.mode)
	}
	return nil
}

// itemMeans returns the mean of observed ratings per item and the mean
// normalized ratings. Items without observations have mean 0.
func itemMeans(y, r *mat.Dense) ([]float64, *mat.Dense) {
	items, users := y.Dims()
	mean := make([]float64, items)
	norm := mat.NewDense(items, users, nil)
	for i := 0; i < items; i++ {
		sum, count := 0.0, 0.0
		for j := 0; j < users; j++ {
			if r.At(i, j) != 0 {
				sum += y.At(i, j)
				count++
			}
		}
		if count > 0 {
			mean[i] = sum / count
		}
		for j := 0; j < users; j++ {
			if r.At(i, j) != 0 {
				norm.Set(i, j, y.At(i, j)-mean[i])
			}
		}
	}
	return mean, norm
}

// factorize fits X and Θ on normalized ratings yn with mask r.
func (mf *MatrixFactorization) factorize(ctx context.Context, yn, r *mat.Dense, config *FitConfig) (*mat.Dense, *mat.Dense, float64, error) {
	items, users := yn.Dims()
	rng := mf.GetRandomGenerator()
	f := &factorization{y: yn, r: r, items: items, users: users, factors: mf.nFactors, reg: mf.reg}
	x0 := rng.NormalVector((items+users)*mf.nFactors, mf.initMean, mf.initStdDev)
	x, cost, err := minimize(ctx, "fit matrix factorization", optimize.Problem{
		Func: f.Func,
		Grad: f.Grad,
	}, x0, mf.optimizer, mf.nEpochs, config, func() bool { return f.diverged })
	if err != nil {
		return nil, nil, 0, errors.Trace(err)
	}
	itemFactor, userFactor := f.unpack(x)
	return itemFactor, userFactor, cost, nil
}

// Factorize fits the model on existing users only.
func (mf *MatrixFactorization) Factorize(ctx context.Context, ratings *dataset.RatingMatrix, config *FitConfig) error {
	if err := mf.validate(); err != nil {
		return errors.Trace(err)
	}
	items, users := ratings.Dims()
	if users == 0 {
		return errors.NotValidf("rating matrix without users")
	}
	log.Logger().Info("factorize rating matrix",
		zap.Int("n_items", items),
		zap.Int("n_users", users),
		zap.Int("n_ratings", ratings.CountObserved()),
		zap.Any("params", mf.GetParams()))
	start := time.Now()
	r := ratings.Mask()
	mean, yn := itemMeans(ratings.Y, r)
	itemFactor, userFactor, cost, err := mf.factorize(ctx, yn, r, config)
	if err != nil {
		return errors.Trace(err)
	}
	mf.ItemMean, mf.ItemFactor, mf.UserFactor, mf.Cost = mean, itemFactor, userFactor, cost
	mf.userIndex = -1
	mf.rated = mapset.NewThreadUnsafeSet[int]()
	log.Logger().Info("complete matrix factorization",
		zap.Float64("cost", cost),
		zap.String("fit_time", time.Since(start).String()))
	return nil
}

// Fit the model with existing ratings and a new user. The new user becomes
// the last user of the model.
func (mf *MatrixFactorization) Fit(ctx context.Context, ratings *dataset.RatingMatrix, user *User, config *FitConfig) error {
	if err := mf.validate(); err != nil {
		return errors.Trace(err)
	}
	items, users := ratings.Dims()
	if user.ItemCount() != items {
		return errors.NotValidf("new user rates %d items but rating matrix has %d", user.ItemCount(), items)
	}
	if mf.mode == ModeUser && users == 0 {
		return errors.NotValidf("mode %v without existing users", mf.mode)
	}
	log.Logger().Info("fit matrix factorization",
		zap.Int("n_items", items),
		zap.Int("n_users", users),
		zap.Int("n_ratings", ratings.CountObserved()),
		zap.Int("n_new_ratings", user.CountRated()),
		zap.Any("params", mf.GetParams()))
	start := time.Now()

	// augment the rating matrix with the new user
	y := mat.NewDense(items, users+1, nil)
	r := mat.NewDense(items, users+1, nil)
	if users > 0 {
		y.Slice(0, items, 0, users).(*mat.Dense).Copy(ratings.Y)
		r.Slice(0, items, 0, users).(*mat.Dense).Copy(ratings.Mask())
	}
	for _, i := range user.Rated().ToSlice() {
		v, _ := user.Rating(i)
		y.Set(i, users, v)
		r.Set(i, users, 1)
	}
	mean, yn := itemMeans(y, r)

	var (
		itemFactor *mat.Dense
		userFactor = mat.NewDense(users+1, mf.nFactors, nil)
		cost       float64
		err        error
	)
	switch {
	case user.CountRated() == 0:
		log.Logger().Warn("new user has no ratings, predictions fall back to item means")
		if users > 0 {
			var existing *mat.Dense
			itemFactor, existing, cost, err = mf.factorize(ctx,
				mat.DenseCopyOf(yn.Slice(0, items, 0, users)),
				mat.DenseCopyOf(r.Slice(0, items, 0, users)), config)
			if err != nil {
				return errors.Trace(err)
			}
			userFactor.Slice(0, users, 0, mf.nFactors).(*mat.Dense).Copy(existing)
		} else {
			itemFactor = mf.GetRandomGenerator().NormalDense(items, mf.nFactors, mf.initMean, mf.initStdDev)
		}
	case mf.mode == ModeJoint:
		itemFactor, userFactor, cost, err = mf.factorize(ctx, yn, r, config)
		if err != nil {
			return errors.Trace(err)
		}
	default:
		var existing *mat.Dense
		itemFactor, existing, _, err = mf.factorize(ctx,
			mat.DenseCopyOf(yn.Slice(0, items, 0, users)),
			mat.DenseCopyOf(r.Slice(0, items, 0, users)), config)
		if err != nil {
			return errors.Trace(err)
		}
		userFactor.Slice(0, users, 0, mf.nFactors).(*mat.Dense).Copy(existing)
		rated := user.Rated().ToSlice()
		sort.Ints(rated)
		f := &userFit{
			itemFactor: itemFactor,
			rated:      rated,
			y:          mat.Col(nil, users, yn),
			reg:        mf.reg,
		}
		theta0 := mf.GetRandomGenerator().NormalVector(mf.nFactors, mf.initMean, mf.initStdDev)
		var theta []float64
		theta, cost, err = minimize(ctx, "fit new user", optimize.Problem{
			Func: f.Func,
			Grad: f.Grad,
		}, theta0, mf.optimizer, mf.nEpochs, config, func() bool { return f.diverged })
		if err != nil {
			return errors.Trace(err)
		}
		userFactor.SetRow(users, theta)
	}

	mf.ItemMean, mf.ItemFactor, mf.UserFactor, mf.Cost = mean, itemFactor, userFactor, cost
	mf.userIndex = users
	mf.rated = user.Rated()
	log.Logger().Info("complete fitting matrix factorization",
		zap.Float64("cost", cost),
		zap.String("fit_time", time.Since(start).String()))
	return nil
}

// Invalid returns true if the model is not trained.
func (mf *MatrixFactorization) Invalid() bool {
	return mf == nil || mf.ItemFactor == nil || mf.UserFactor == nil || mf.ItemMean == nil
}

// PredictUser predicts ratings of the j-th user on every item. It returns nil
// if the model is not trained or j is not a user of the model.
func (mf *MatrixFactorization) PredictUser(j int) []float64 {
	if mf.Invalid() {
		return nil
	}
	if users, _ := mf.UserFactor.Dims(); j < 0 || j >= users {
		return nil
	}
	items, _ := mf.ItemFactor.Dims()
	var p mat.VecDense
	p.MulVec(mf.ItemFactor, mf.UserFactor.RowView(j))
	predictions := make([]float64, items)
	for i := range predictions {
		predictions[i] = p.AtVec(i) + mf.ItemMean[i]
	}
	return predictions
}

// Predict ratings of the new user on every item. It returns nil if the
// model was not fitted with a new user.
func (mf *MatrixFactorization) Predict() []float64 {
	if mf.userIndex < 0 {
		return nil
	}
	return mf.PredictUser(mf.userIndex)
}

// Recommend returns the top n items that the new user has not rated.
func (mf *MatrixFactorization) Recommend(n int) []int {
	predictions := mf.Predict()
	if predictions == nil {
		return nil
	}
	candidates := lo.Filter(Rank(predictions), func(i int, _ int) bool {
		return !mf.rated.Contains(i)
	})
	if n >= 0 && n < len(candidates) {
		candidates = candidates[:n]
	}
	return candidates
}

// Rank returns indices sorted by descending score. Ties keep the original
// order.
func Rank(scores []float64) []int {
	indices := lo.Range(len(scores))
	sort.SliceStable(indices, func(a, b int) bool {
		return scores[indices[a]] > scores[indices[b]]
	})
	return indices
}

// Marshal model into byte stream.
func (mf *MatrixFactorization) Marshal(w io.Writer) error {
	if mf.Invalid() {
		return errors.New("model is not trained")
	}
	if err := encoding.WriteGob(w, mf.Params); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.WriteFloats(w, mf.ItemMean); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.WriteDense(w, mf.ItemFactor); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.WriteDense(w, mf.UserFactor); err != nil {
		return errors.Trace(err)
	}
	if err := binary.Write(w, binary.LittleEndian, mf.Cost); err != nil {
		return errors.Trace(err)
	}
	if err := binary.Write(w, binary.LittleEndian, int64(mf.userIndex)); err != nil {
		return errors.Trace(err)
	}
	rated := mf.rated.ToSlice()
	sort.Ints(rated)
	if err := encoding.WriteGob(w, rated); err != nil {
		return errors.Trace(err)
	}
	return nil
}

// Unmarshal model from byte stream.
func (mf *MatrixFactorization) Unmarshal(r io.Reader) error {
	var params model.Params
	if err := encoding.ReadGob(r, &params); err != nil {
		return errors.Trace(err)
	}
	mf.SetParams(params)
	var err error
	if mf.ItemMean, err = encoding.ReadFloats(r); err != nil {
		return errors.Trace(err)
	}
	if mf.ItemFactor, err = encoding.ReadDense(r); err != nil {
		return errors.Trace(err)
	}
	if mf.UserFactor, err = encoding.ReadDense(r); err != nil {
		return errors.Trace(err)
	}
	if err = binary.Read(r, binary.LittleEndian, &mf.Cost); err != nil {
		return errors.Trace(err)
	}
	var userIndex int64
	if err = binary.Read(r, binary.LittleEndian, &userIndex); err != nil {
		return errors.Trace(err)
	}
	mf.userIndex = int(userIndex)
	var rated []int
	if err = encoding.ReadGob(r, &rated); err != nil {
		return errors.Trace(err)
	}
	mf.rated = mapset.NewThreadUnsafeSet(rated...)
	items, factors := mf.ItemFactor.Dims()
	users, userFactors := mf.UserFactor.Dims()
	if len(mf.ItemMean) != items || factors != userFactors || mf.userIndex >= users {
		return errors.NotValidf("matrix factorization checkpoint")
	}
	return nil
}

// Save model to a file.
func (mf *MatrixFactorization) Save(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.Trace(err)
	}
	defer file.Close()
	w := bufio.NewWriter(file)
	if err = mf.Marshal(w); err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(w.Flush())
}

// Load model from a file.
func Load(path string) (*MatrixFactorization, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer file.Close()
	mf := new(MatrixFactorization)
	if err = mf.Unmarshal(bufio.NewReader(file)); err != nil {
		return nil, errors.Trace(err)
	}
	return mf, nil
}

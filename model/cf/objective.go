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
	"math"

	"github.com/gorse-io/latent/base/log"
	"github.com/gorse-io/latent/common/floats"
	"github.com/juju/errors"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
)

// Optimizers
const (
	ConjugateGradient = "cg"
	LBFGS             = "lbfgs"
	GradientDescent   = "gd"
)

// Training modes
const (
	ModeJoint = "joint"
	ModeUser  = "user"
)

func newMethod(name string) (optimize.Method, error) {
	switch name {
	case ConjugateGradient:
		return &optimize.CG{}, nil
	case LBFGS:
		return &optimize.LBFGS{}, nil
	case GradientDescent:
		return &optimize.GradientDescent{}, nil
	default:
		return nil, errors.NotSupportedf("optimizer %v", name)
	}
}

// factorization is the regularized squared error over observed entries of
// mean normalized ratings. Parameters are packed as [X (items x k), Θ (users x k)].
type factorization struct {
	y, r     *mat.Dense
	items    int
	users    int
	factors  int
	reg      float64
	diverged bool
}

func (f *factorization) unpack(x []float64) (itemFactor, userFactor *mat.Dense) {
	n := f.items * f.factors
	itemFactor = mat.NewDense(f.items, f.factors, x[:n])
	userFactor = mat.NewDense(f.users, f.factors, x[n:])
	return
}

// residual returns (XΘᵀ - Y) ⊙ R.
func (f *factorization) residual(itemFactor, userFactor *mat.Dense) *mat.Dense {
	var e mat.Dense
	e.Mul(itemFactor, userFactor.T())
	e.Sub(&e, f.y)
	e.MulElem(&e, f.r)
	return &e
}

func (f *factorization) Func(x []float64) float64 {
	itemFactor, userFactor := f.unpack(x)
	e := f.residual(itemFactor, userFactor)
	cost := 0.5*mat.Sum(elemSquare(e)) + 0.5*f.reg*floats.Dot(x, x)
	if math.IsNaN(cost) {
		f.diverged = true
	}
	return cost
}

func (f *factorization) Grad(grad, x []float64) {
	itemFactor, userFactor := f.unpack(x)
	e := f.residual(itemFactor, userFactor)
	itemGrad, userGrad := f.unpack(grad)
	itemGrad.Mul(e, userFactor)
	userGrad.Mul(e.T(), itemFactor)
	for i := range grad {
		grad[i] += f.reg * x[i]
	}
}

func elemSquare(a *mat.Dense) *mat.Dense {
	var b mat.Dense
	b.MulElem(a, a)
	return &b
}

// userFit fits a single user vector θ with fixed item factors X.
type userFit struct {
	itemFactor *mat.Dense
	rated      []int
	y          []float64
	reg        float64
	diverged   bool
}

func (f *userFit) Func(theta []float64) float64 {
	cost := 0.5 * f.reg * floats.Dot(theta, theta)
	for _, i := range f.rated {
		e := floats.Dot(f.itemFactor.RawRowView(i), theta) - f.y[i]
		cost += 0.5 * e * e
	}
	if math.IsNaN(cost) {
		f.diverged = true
	}
	return cost
}

func (f *userFit) Grad(grad, theta []float64) {
	for k := range grad {
		grad[k] = f.reg * theta[k]
	}
	for _, i := range f.rated {
		row := f.itemFactor.RawRowView(i)
		e := floats.Dot(row, theta) - f.y[i]
		for k := range grad {
			grad[k] += e * row[k]
		}
	}
}

// recorder stops minimization once ctx is done and logs progress.
type recorder struct {
	ctx     context.Context
	name    string
	verbose int
}

func (r *recorder) Init() error {
	return nil
}

func (r *recorder) Record(loc *optimize.Location, op optimize.Operation, stats *optimize.Stats) error {
	if err := r.ctx.Err(); err != nil {
		return err
	}
	if op == optimize.MajorIteration && r.verbose > 0 && stats.MajorIterations%r.verbose == 0 {
		log.Logger().Debug(r.name,
			zap.Int("iteration", stats.MajorIterations),
			zap.Float64("cost", loc.F))
	}
	return nil
}

// minimize runs a gonum minimizer. A minimizer that fails after reaching a
// finite cost (typically a line search stuck at the optimum) keeps its
// last location.
func minimize(ctx context.Context, name string, problem optimize.Problem, x0 []float64,
	method string, iterations int, config *FitConfig, diverged func() bool) ([]float64, float64, error) {
	m, err := newMethod(method)
	if err != nil {
		return nil, 0, errors.Trace(err)
	}
	settings := &optimize.Settings{
		MajorIterations: iterations,
		Recorder: &recorder{
			ctx:     ctx,
			name:    name,
			verbose: config.Verbose,
		},
	}
	result, err := optimize.Minimize(problem, x0, settings, m)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, 0, errors.Trace(ctxErr)
	}
	if diverged() || result == nil || !floats.IsFinite(result.F) || !floats.AllFinite(result.X) {
		return nil, 0, errors.Errorf("%v diverged: cost is not finite", name)
	}
	if err != nil {
		log.Logger().Warn("minimizer stopped early",
			zap.String("name", name),
			zap.String("status", result.Status.String()),
			zap.Float64("cost", result.F),
			zap.Error(err))
	}
	return result.X, result.F, nil
}

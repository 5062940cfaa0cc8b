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

package base

import (
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// RandomGenerator is the random generator for latent.
type RandomGenerator struct {
	*rand.Rand
}

// NewRandomGenerator creates a RandomGenerator.
func NewRandomGenerator(seed int64) RandomGenerator {
	return RandomGenerator{rand.New(rand.NewSource(seed))}
}

// NormalVector makes a vector filled with normal random floats.
func (rng RandomGenerator) NormalVector(size int, mean, stdDev float64) []float64 {
	ret := make([]float64, size)
	for i := range ret {
		ret[i] = rng.NormFloat64()*stdDev + mean
	}
	return ret
}

// NormalDense makes a row x col matrix filled with normal random floats.
func (rng RandomGenerator) NormalDense(row, col int, mean, stdDev float64) *mat.Dense {
	return mat.NewDense(row, col, rng.NormalVector(row*col, mean, stdDev))
}

// Batches splits a random permutation of [0, n) into numBatch disjoint batches
// of batchSize indices. Trailing indices that do not fill a batch are dropped.
func (rng RandomGenerator) Batches(n, batchSize int) [][]int {
	if batchSize <= 0 || n <= 0 {
		return nil
	}
	perm := rng.Perm(n)
	numBatch := n / batchSize
	batches := make([][]int, numBatch)
	for i := range batches {
		batches[i] = perm[i*batchSize : (i+1)*batchSize]
	}
	return batches
}

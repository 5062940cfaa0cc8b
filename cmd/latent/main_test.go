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
	"path/filepath"
	"testing"

	"github.com/gorse-io/latent/config"
	"github.com/gorse-io/latent/dataset"
	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

func TestParseRating(t *testing.T) {
	index, rating, err := parseRating("97=2")
	assert.NoError(t, err)
	assert.Equal(t, 97, index)
	assert.Equal(t, 2.0, rating)
	index, rating, err = parseRating(" 6 = 3.5 ")
	assert.NoError(t, err)
	assert.Equal(t, 6, index)
	assert.Equal(t, 3.5, rating)

	_, _, err = parseRating("97")
	assert.True(t, errors.Is(err, errors.NotValid))
	_, _, err = parseRating("a=2")
	assert.Error(t, err)
	_, _, err = parseRating("1=b")
	assert.Error(t, err)
}

func TestDemoRatings(t *testing.T) {
	assert.Len(t, demoRatings, 11)
	assert.Equal(t, 4.0, demoRatings[0])
	assert.Equal(t, 5.0, demoRatings[354])
}

func TestLoadRatings(t *testing.T) {
	dir := t.TempDir()
	itemList := filepath.Join(dir, "items.txt")
	assert.NoError(t, os.WriteFile(itemList, []byte("1 Toy Story (1995)\n2 GoldenEye (1995)\n"), 0644))
	triples := filepath.Join(dir, "ratings.txt")
	assert.NoError(t, os.WriteFile(triples, []byte("u1 1 5\nu2 2 3\nu2 1 4\n"), 0644))

	catalog, ratings, err := loadRatings(&config.DataConfig{
		ItemList:     itemList,
		Ratings:      triples,
		RatingFormat: "triples",
	})
	assert.NoError(t, err)
	assert.Equal(t, 2, catalog.Count())
	assert.Equal(t, 2, ratings.ItemCount())
	assert.Equal(t, 2, ratings.UserCount())
	assert.Equal(t, 3, ratings.CountObserved())

	// binary matrix without item list
	y := mat.NewDense(3, 1, []float64{1, 0, 2})
	r := mat.NewDense(3, 1, []float64{1, 0, 1})
	m, err := dataset.NewRatingMatrix(y, r)
	assert.NoError(t, err)
	matrix := filepath.Join(dir, "ratings.bin")
	assert.NoError(t, m.Save(matrix))
	catalog, ratings, err = loadRatings(&config.DataConfig{Ratings: matrix, RatingFormat: "matrix"})
	assert.NoError(t, err)
	assert.Nil(t, catalog)
	assert.Equal(t, 2, ratings.CountObserved())

	// item count mismatch
	_, _, err = loadRatings(&config.DataConfig{ItemList: itemList, Ratings: matrix, RatingFormat: "matrix"})
	assert.True(t, errors.Is(err, errors.NotValid))
	// triples need an item list
	_, _, err = loadRatings(&config.DataConfig{Ratings: triples, RatingFormat: "triples"})
	assert.True(t, errors.Is(err, errors.NotValid))
}

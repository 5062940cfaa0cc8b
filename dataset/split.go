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

package dataset

import (
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/gorse-io/latent/base"
	"github.com/samber/lo"
)

// Split moves a random ratio of observed ratings into a validation matrix.
// Every user keeps at least one training rating.
func (m *RatingMatrix) Split(ratio float64, seed int64) (train, valid *RatingMatrix) {
	items, users := m.Dims()
	rng := base.NewRandomGenerator(seed)
	train = NewEmptyRatingMatrix(items, users)
	valid = NewEmptyRatingMatrix(items, users)

	observed := make([]uint, 0, m.CountObserved())
	for i, e := m.R.NextSet(0); e; i, e = m.R.NextSet(i + 1) {
		observed = append(observed, i)
	}
	rng.Shuffle(len(observed), func(a, b int) {
		observed[a], observed[b] = observed[b], observed[a]
	})
	numValid := int(ratio * float64(len(observed)))

	// users whose only remaining rating must stay in the training set
	remaining := lo.CountValuesBy(observed, func(bit uint) int { return int(bit) % users })
	held := mapset.NewThreadUnsafeSet[uint]()
	for _, bit := range observed {
		if held.Cardinality() >= numValid {
			break
		}
		user := int(bit) % users
		if remaining[user] > 1 {
			held.Add(bit)
			remaining[user]--
		}
	}
	for _, bit := range observed {
		i, j := int(bit)/users, int(bit)%users
		if held.Contains(bit) {
			valid.SetRating(i, j, m.Y.At(i, j))
		} else {
			train.SetRating(i, j, m.Y.At(i, j))
		}
	}
	return
}

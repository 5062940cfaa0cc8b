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
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/gorse-io/latent/common/floats"
	"github.com/juju/errors"
)

// User is a new user to recommend for. Ratings are sparse over the items of
// the rating matrix.
type User struct {
	ratings []float64
	rated   mapset.Set[int]
}

func NewUser(items int) *User {
	return &User{
		ratings: make([]float64, items),
		rated:   mapset.NewThreadUnsafeSet[int](),
	}
}

// SetRating rates the index-th item. Index must be in [0, items).
func (user *User) SetRating(index int, value float64) error {
	if index < 0 || index >= len(user.ratings) {
		return errors.NotValidf("item index %d out of range [0, %d)", index, len(user.ratings))
	}
	if !floats.IsFinite(value) {
		return errors.NotValidf("rating %v", value)
	}
	user.ratings[index] = value
	user.rated.Add(index)
	return nil
}

// Rating returns the rating of the index-th item and whether it is rated.
func (user *User) Rating(index int) (float64, bool) {
	if !user.rated.Contains(index) {
		return 0, false
	}
	return user.ratings[index], true
}

func (user *User) ItemCount() int {
	return len(user.ratings)
}

func (user *User) CountRated() int {
	return user.rated.Cardinality()
}

// Rated returns indices of rated items.
func (user *User) Rated() mapset.Set[int] {
	return user.rated.Clone()
}

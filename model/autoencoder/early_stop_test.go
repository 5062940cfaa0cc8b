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

package autoencoder

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// stopEpoch feeds costs until the rule fires and returns that epoch, or -1.
func stopEpoch(patience int, costs []float64) int {
	stopping := NewEarlyStopping(patience, 1e-5)
	for e, cost := range costs {
		if stopping.Update(cost) {
			return e
		}
	}
	return -1
}

func TestEarlyStopping(t *testing.T) {
	// the first minimum moves past e-patience, so the budget ends training
	assert.Equal(t, -1, stopEpoch(3, []float64{5, 4, 3, 2, 2, 2}))
	// minimum at e-patience followed by a rise
	assert.Equal(t, 5, stopEpoch(3, []float64{5, 4, 3, 3.5, 3.2, 3.1}))
	// a plateau is not a rise
	assert.Equal(t, -1, stopEpoch(3, []float64{3, 2, 2, 2, 2}))
	// a rise smaller than the tolerance is ignored
	assert.Equal(t, -1, stopEpoch(1, []float64{1, 1 + 1e-6}))
	assert.Equal(t, 1, stopEpoch(1, []float64{1, 2}))
	// patience 0 never fires
	assert.Equal(t, -1, stopEpoch(0, []float64{1, 2, 3}))
}

func TestEarlyStopping_History(t *testing.T) {
	stopping := NewEarlyStopping(2, 1e-5)
	assert.Equal(t, -1, stopping.BestEpoch())
	stopping.Update(3)
	stopping.Update(1)
	stopping.Update(2)
	assert.Equal(t, 1, stopping.BestEpoch())
	history := stopping.History()
	assert.Equal(t, []float64{3, 1, 2}, history)
	history[0] = 0
	assert.Equal(t, []float64{3, 1, 2}, stopping.History())
}

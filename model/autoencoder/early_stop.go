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
	"github.com/gorse-io/latent/common/floats"
)

// EarlyStopping watches the cost history. At epoch e >= patience, training
// stops iff the first minimum of the history is at epoch e-patience and the
// cost has since risen by more than tolerance.
type EarlyStopping struct {
	patience  int
	tolerance float64
	history   []float64
}

func NewEarlyStopping(patience int, tolerance float64) *EarlyStopping {
	return &EarlyStopping{
		patience:  patience,
		tolerance: tolerance,
	}
}

// Update appends the cost of the current epoch and reports whether to stop.
func (s *EarlyStopping) Update(cost float64) bool {
	s.history = append(s.history, cost)
	e := len(s.history) - 1
	if e < s.patience {
		return false
	}
	return floats.Argmin(s.history) == e-s.patience &&
		s.history[e]-s.history[e-s.patience] > s.tolerance
}

// BestEpoch returns the epoch of the first minimum cost, or -1.
func (s *EarlyStopping) BestEpoch() int {
	return floats.Argmin(s.history)
}

func (s *EarlyStopping) History() []float64 {
	return append([]float64(nil), s.history...)
}

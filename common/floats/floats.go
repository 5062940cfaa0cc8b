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

package floats

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Argmin returns the index of the first minimum of a, or -1 if a is empty.
func Argmin(a []float64) int {
	if len(a) == 0 {
		return -1
	}
	return floats.MinIdx(a)
}

// IsFinite reports whether x is neither NaN nor infinite.
func IsFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

// AllFinite reports whether every element of a is finite.
func AllFinite(a []float64) bool {
	for _, x := range a {
		if !IsFinite(x) {
			return false
		}
	}
	return true
}

// Dot two vectors.
func Dot(a, b []float64) float64 {
	if len(a) != len(b) {
		panic("floats: slice lengths do not match")
	}
	return floats.Dot(a, b)
}

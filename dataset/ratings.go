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
	"bufio"
	"io"
	"os"

	"github.com/bits-and-blooms/bitset"
	"github.com/gorse-io/latent/base/encoding"
	"github.com/juju/errors"
	"gonum.org/v1/gonum/mat"
)

const ratingMatrixMagic = "latent.ratings.v1"

// RatingMatrix holds ratings of users on items. Y is items x users. The
// observation mask R is stored as a bitset in row-major order, so entry
// (i, j) is observed iff bit i*users+j is set.
type RatingMatrix struct {
	Y *mat.Dense
	R *bitset.BitSet
}

// NewRatingMatrix builds a rating matrix from a dense rating matrix and a
// dense binary mask of the same shape.
func NewRatingMatrix(y, r *mat.Dense) (*RatingMatrix, error) {
	items, users := y.Dims()
	rItems, rUsers := r.Dims()
	if items != rItems || users != rUsers {
		return nil, errors.NotValidf("shape of Y (%dx%d) and R (%dx%d)", items, users, rItems, rUsers)
	}
	mask := bitset.New(uint(items * users))
	for i := 0; i < items; i++ {
		for j := 0; j < users; j++ {
			switch r.At(i, j) {
			case 0:
			case 1:
				mask.Set(uint(i*users + j))
			default:
				return nil, errors.NotValidf("R[%d,%d] = %v", i, j, r.At(i, j))
			}
		}
	}
	return &RatingMatrix{Y: mat.DenseCopyOf(y), R: mask}, nil
}

// NewEmptyRatingMatrix creates a rating matrix without observations.
func NewEmptyRatingMatrix(items, users int) *RatingMatrix {
	return &RatingMatrix{
		Y: mat.NewDense(items, users, nil),
		R: bitset.New(uint(items * users)),
	}
}

// Dims returns the number of items and users.
func (m *RatingMatrix) Dims() (items, users int) {
	return m.Y.Dims()
}

func (m *RatingMatrix) ItemCount() int {
	items, _ := m.Y.Dims()
	return items
}

func (m *RatingMatrix) UserCount() int {
	_, users := m.Y.Dims()
	return users
}

// Observed reports whether user j rated item i.
func (m *RatingMatrix) Observed(i, j int) bool {
	_, users := m.Y.Dims()
	return m.R.Test(uint(i*users + j))
}

// Rating returns the rating of user j on item i and whether it was observed.
func (m *RatingMatrix) Rating(i, j int) (float64, bool) {
	if !m.Observed(i, j) {
		return 0, false
	}
	return m.Y.At(i, j), true
}

// SetRating marks (i, j) as observed with the given value.
func (m *RatingMatrix) SetRating(i, j int, value float64) {
	_, users := m.Y.Dims()
	m.Y.Set(i, j, value)
	m.R.Set(uint(i*users + j))
}

// CountObserved returns the number of observed entries.
func (m *RatingMatrix) CountObserved() int {
	return int(m.R.Count())
}

// Mask returns R as a dense 0/1 matrix.
func (m *RatingMatrix) Mask() *mat.Dense {
	items, users := m.Y.Dims()
	r := mat.NewDense(items, users, nil)
	for i, e := m.R.NextSet(0); e; i, e = m.R.NextSet(i + 1) {
		r.Set(int(i)/users, int(i)%users, 1)
	}
	return r
}

// Write the rating matrix as magic | Y | R.
func (m *RatingMatrix) Write(w io.Writer) error {
	if err := encoding.WriteString(w, ratingMatrixMagic); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.WriteDense(w, m.Y); err != nil {
		return errors.Trace(err)
	}
	if _, err := m.R.WriteTo(w); err != nil {
		return errors.Trace(err)
	}
	return nil
}

// ReadRatingMatrix reads a rating matrix written by Write.
func ReadRatingMatrix(r io.Reader) (*RatingMatrix, error) {
	magic, err := encoding.ReadString(r)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if magic != ratingMatrixMagic {
		return nil, errors.NotValidf("rating matrix magic %q", magic)
	}
	y, err := encoding.ReadDense(r)
	if err != nil {
		return nil, errors.Trace(err)
	}
	mask := new(bitset.BitSet)
	if _, err = mask.ReadFrom(r); err != nil {
		return nil, errors.Trace(err)
	}
	items, users := y.Dims()
	if mask.Len() != uint(items*users) {
		return nil, errors.NotValidf("mask length %d for %dx%d ratings", mask.Len(), items, users)
	}
	return &RatingMatrix{Y: y, R: mask}, nil
}

// Save the rating matrix to a file.
func (m *RatingMatrix) Save(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.Trace(err)
	}
	defer file.Close()
	w := bufio.NewWriter(file)
	if err = m.Write(w); err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(w.Flush())
}

// LoadRatingMatrix loads a rating matrix from a file.
func LoadRatingMatrix(path string) (*RatingMatrix, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer file.Close()
	return ReadRatingMatrix(bufio.NewReader(file))
}

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
	"compress/gzip"
	"encoding/binary"
	"io"
	"os"
	"strings"

	"github.com/juju/errors"
	"gonum.org/v1/gonum/mat"
)

const idxImageMagic = 0x00000803

// maxIDXPixels bounds the total pixel count announced by an IDX header.
const maxIDXPixels = 1 << 31

// Images is a set of gray images, one flattened image per row of Pixels.
type Images struct {
	Pixels *mat.Dense
	Rows   int
	Cols   int
}

// Count returns the number of images.
func (images *Images) Count() int {
	n, _ := images.Pixels.Dims()
	return n
}

// ReadIDXImages reads an IDX3 unsigned byte file. Pixels are scaled to [0, 1].
func ReadIDXImages(r io.Reader) (*Images, error) {
	var header [4]uint32
	if err := binary.Read(r, binary.BigEndian, &header); err != nil {
		return nil, errors.Annotate(err, "failed to read idx header")
	}
	if header[0] != idxImageMagic {
		return nil, errors.NotValidf("idx magic number %#08x", header[0])
	}
	n, rows, cols := int(header[1]), int(header[2]), int(header[3])
	if n == 0 || rows == 0 || cols == 0 {
		return nil, errors.NotValidf("idx shape %dx%dx%d", n, rows, cols)
	}
	size := uint64(rows) * uint64(cols)
	if size > maxIDXPixels || uint64(n) > maxIDXPixels/size {
		return nil, errors.NotValidf("idx shape %dx%dx%d", n, rows, cols)
	}
	size *= uint64(n)
	buf, err := io.ReadAll(io.LimitReader(r, int64(size)))
	if err != nil {
		return nil, errors.Annotate(err, "failed to read idx pixels")
	} else if uint64(len(buf)) != size {
		return nil, errors.Annotate(io.ErrUnexpectedEOF, "failed to read idx pixels")
	}
	data := make([]float64, len(buf))
	for i, b := range buf {
		data[i] = float64(b) / 255
	}
	return &Images{
		Pixels: mat.NewDense(n, rows*cols, data),
		Rows:   rows,
		Cols:   cols,
	}, nil
}

// LoadIDXImages loads images from an IDX file. Files whose name ends with
// ".gz" are decompressed.
func LoadIDXImages(path string) (*Images, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer file.Close()
	var r io.Reader = bufio.NewReader(file)
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, errors.Trace(err)
		}
		defer gz.Close()
		r = gz
	}
	return ReadIDXImages(r)
}

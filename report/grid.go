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

package report

import (
	"bufio"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"os"

	"github.com/juju/errors"
	"gonum.org/v1/gonum/mat"
)

// gridPadding is the number of black pixels between tiles.
const gridPadding = 1

// ImageGrid tiles images into a grayscale picture. Each row of pixels is
// one rows×cols image with values in [0, 1]; values outside are clamped.
// perRow images are placed side by side.
func ImageGrid(pixels mat.Matrix, rows, cols, perRow int) (*image.Gray, error) {
	n, d := pixels.Dims()
	if rows*cols != d {
		return nil, errors.NotValidf("%d pixels for %dx%d images", d, rows, cols)
	}
	if perRow <= 0 {
		return nil, errors.NotValidf("%d images per row", perRow)
	}
	perRow = min(perRow, max(n, 1))
	gridRows := (n + perRow - 1) / perRow
	width := perRow*(cols+gridPadding) + gridPadding
	height := gridRows*(rows+gridPadding) + gridPadding
	grid := image.NewGray(image.Rect(0, 0, width, height))
	for k := 0; k < n; k++ {
		left := gridPadding + (k%perRow)*(cols+gridPadding)
		top := gridPadding + (k/perRow)*(rows+gridPadding)
		for r := 0; r < rows; r++ {
			for c := 0; c < cols; c++ {
				grid.SetGray(left+c, top+r, gray(pixels.At(k, r*cols+c)))
			}
		}
	}
	return grid, nil
}

func gray(v float64) color.Gray {
	if math.IsNaN(v) {
		return color.Gray{}
	}
	v = math.Max(0, math.Min(1, v))
	return color.Gray{Y: uint8(math.Round(v * 255))}
}

// Reconstructions puts originals in the first row and their reconstructions
// in the second.
func Reconstructions(original, reconstructed mat.Matrix, rows, cols int) (*image.Gray, error) {
	n, d := original.Dims()
	if rn, rd := reconstructed.Dims(); rn != n || rd != d {
		return nil, errors.NotValidf("reconstruction %dx%d of %dx%d images", rn, rd, n, d)
	}
	if n == 0 {
		return nil, errors.NotValidf("empty images")
	}
	var stacked mat.Dense
	stacked.Stack(original, reconstructed)
	return ImageGrid(&stacked, rows, cols, n)
}

func WritePNG(w io.Writer, img image.Image) error {
	return errors.Trace(png.Encode(w, img))
}

// SavePNG writes an image to a PNG file.
func SavePNG(path string, img image.Image) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.Trace(err)
	}
	defer file.Close()
	w := bufio.NewWriter(file)
	if err = WritePNG(w, img); err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(w.Flush())
}

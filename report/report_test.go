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
	"bytes"
	"context"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gorse-io/latent/dataset"
	"github.com/gorse-io/latent/model"
	"github.com/gorse-io/latent/model/autoencoder"
	"github.com/gorse-io/latent/model/cf"
	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

func TestImageGrid(t *testing.T) {
	pixels := mat.NewDense(3, 4, []float64{
		0, 1, 1, 0,
		0.5, 0.5, 0.5, 0.5,
		-1, 2, 0, 1,
	})
	grid, err := ImageGrid(pixels, 2, 2, 2)
	assert.NoError(t, err)
	assert.Equal(t, 7, grid.Bounds().Dx())
	assert.Equal(t, 7, grid.Bounds().Dy())
	// first image
	assert.Equal(t, uint8(0), grid.GrayAt(1, 1).Y)
	assert.Equal(t, uint8(255), grid.GrayAt(2, 1).Y)
	assert.Equal(t, uint8(255), grid.GrayAt(1, 2).Y)
	// second image
	assert.Equal(t, uint8(128), grid.GrayAt(4, 1).Y)
	// third image is clamped
	assert.Equal(t, uint8(0), grid.GrayAt(1, 4).Y)
	assert.Equal(t, uint8(255), grid.GrayAt(2, 4).Y)
	// padding
	assert.Equal(t, uint8(0), grid.GrayAt(3, 1).Y)

	_, err = ImageGrid(pixels, 3, 3, 2)
	assert.True(t, errors.Is(err, errors.NotValid))
	_, err = ImageGrid(pixels, 2, 2, 0)
	assert.True(t, errors.Is(err, errors.NotValid))
}

func TestReconstructions(t *testing.T) {
	original := mat.NewDense(2, 1, []float64{0, 1})
	reconstructed := mat.NewDense(2, 1, []float64{1, 0})
	grid, err := Reconstructions(original, reconstructed, 1, 1)
	assert.NoError(t, err)
	assert.Equal(t, 5, grid.Bounds().Dx())
	assert.Equal(t, 5, grid.Bounds().Dy())
	assert.Equal(t, uint8(0), grid.GrayAt(1, 1).Y)
	assert.Equal(t, uint8(255), grid.GrayAt(3, 1).Y)
	assert.Equal(t, uint8(255), grid.GrayAt(1, 3).Y)
	assert.Equal(t, uint8(0), grid.GrayAt(3, 3).Y)

	_, err = Reconstructions(original, mat.NewDense(1, 1, nil), 1, 1)
	assert.True(t, errors.Is(err, errors.NotValid))
}

func TestSavePNG(t *testing.T) {
	grid, err := ImageGrid(mat.NewDense(1, 4, []float64{0, 0.25, 0.5, 1}), 2, 2, 1)
	assert.NoError(t, err)
	path := filepath.Join(t.TempDir(), "grid.png")
	assert.NoError(t, SavePNG(path, grid))
	file, err := os.Open(path)
	assert.NoError(t, err)
	defer file.Close()
	img, err := png.Decode(file)
	assert.NoError(t, err)
	assert.Equal(t, grid.Bounds(), img.Bounds())
}

func TestRenderRecommendations(t *testing.T) {
	catalog, err := dataset.ReadItemCatalog(strings.NewReader("1 Toy Story (1995)\n2 GoldenEye (1995)\n3 Four Rooms (1995)\n"))
	assert.NoError(t, err)
	var buf bytes.Buffer
	err = RenderRecommendations(&buf, catalog, []int{2, 0}, []float64{4.5, 1, 3.25})
	assert.NoError(t, err)
	output := buf.String()
	assert.Contains(t, output, "Four Rooms (1995)")
	assert.Contains(t, output, "Toy Story (1995)")
	assert.Contains(t, output, "3.2500")
	assert.NotContains(t, output, "GoldenEye")
	assert.Less(t, strings.Index(output, "Four Rooms"), strings.Index(output, "Toy Story"))

	user := cf.NewUser(3)
	assert.NoError(t, user.SetRating(1, 5))
	buf.Reset()
	assert.NoError(t, RenderRatings(&buf, catalog, user))
	assert.Contains(t, buf.String(), "GoldenEye (1995)")
	assert.NotContains(t, buf.String(), "Toy Story")
}

func TestRenderSearch(t *testing.T) {
	var buf bytes.Buffer
	err := RenderSearch(&buf, cf.SearchResult{
		Params: model.Params{model.Reg: 0.5, model.NFactors: 4},
		Score:  0.25,
		Trials: 8,
	})
	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "0.250000")
	assert.Contains(t, buf.String(), "NFactors")
}

func TestTrainingLog(t *testing.T) {
	x := mat.NewDense(8, 4, nil)
	for i := 0; i < 8; i++ {
		x.Set(i, i%4, 1)
	}
	m, err := autoencoder.NewAutoencoder(model.Params{
		model.NHidden:   2,
		model.NEpochs:   3,
		model.BatchSize: 4,
		model.EarlyStop: 0,
	}).Fit(context.Background(), x, autoencoder.NewFitConfig())
	assert.NoError(t, err)

	root := t.TempDir()
	trainLog, err := NewTrainingLog(root)
	assert.NoError(t, err)
	assert.Equal(t, filepath.Join(root, trainLog.RunID), trainLog.Dir)
	testCost := m.Cost(x)
	assert.NoError(t, trainLog.Write(m, &testCost))

	history, err := ReadHistory(trainLog.Dir)
	assert.NoError(t, err)
	assert.Equal(t, trainLog.RunID, history.RunID)
	assert.Equal(t, m.History(), history.Cost)
	assert.Equal(t, m.BestEpoch(), history.BestEpoch)
	assert.Equal(t, 2, history.StopEpoch)
	assert.Equal(t, "2", history.Params[string(model.NHidden)])
	assert.NotNil(t, history.TestCost)
	assert.InDelta(t, testCost, *history.TestCost, 1e-12)

	metrics, err := os.ReadFile(trainLog.Path(MetricsFile))
	assert.NoError(t, err)
	assert.Contains(t, string(metrics), "latent_autoencoder_cost")
	assert.Contains(t, string(metrics), `epoch="2"`)
	assert.Contains(t, string(metrics), "latent_autoencoder_epochs_total")
	assert.Contains(t, string(metrics), "latent_autoencoder_test_cost")

	other, err := NewTrainingLog(root)
	assert.NoError(t, err)
	assert.NotEqual(t, trainLog.RunID, other.RunID)
}

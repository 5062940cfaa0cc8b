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
	"fmt"
	"io"
	"sort"

	"github.com/gorse-io/latent/dataset"
	"github.com/gorse-io/latent/model/cf"
	"github.com/juju/errors"
	"github.com/olekukonko/tablewriter"
)

func itemName(catalog *dataset.ItemCatalog, i int) string {
	if catalog == nil || i >= catalog.Count() {
		return fmt.Sprintf("#%d", i)
	}
	return catalog.Name(i)
}

// RenderRatings prints the ratings of the new user.
func RenderRatings(w io.Writer, catalog *dataset.ItemCatalog, user *cf.User) error {
	rated := user.Rated().ToSlice()
	sort.Ints(rated)
	table := tablewriter.NewWriter(w)
	table.Header("Index", "Item", "Rating")
	for _, i := range rated {
		rating, _ := user.Rating(i)
		if err := table.Append([]string{
			fmt.Sprintf("%d", i),
			itemName(catalog, i),
			fmt.Sprintf("%v", rating),
		}); err != nil {
			return errors.Trace(err)
		}
	}
	return errors.Trace(table.Render())
}

// RenderRecommendations prints recommended items with predicted ratings.
func RenderRecommendations(w io.Writer, catalog *dataset.ItemCatalog, items []int, predictions []float64) error {
	table := tablewriter.NewWriter(w)
	table.Header("#", "Index", "Item", "Prediction")
	for rank, i := range items {
		if err := table.Append([]string{
			fmt.Sprintf("%d", rank+1),
			fmt.Sprintf("%d", i),
			itemName(catalog, i),
			fmt.Sprintf("%.4f", predictions[i]),
		}); err != nil {
			return errors.Trace(err)
		}
	}
	return errors.Trace(table.Render())
}

// RenderSearch prints the best hyper-parameters found by search.
func RenderSearch(w io.Writer, result cf.SearchResult) error {
	table := tablewriter.NewWriter(w)
	table.Header("Trials", "RMSE", "Params")
	if err := table.Append([]string{
		fmt.Sprintf("%d", result.Trials),
		fmt.Sprintf("%.6f", result.Score),
		result.Params.ToString(),
	}); err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(table.Render())
}

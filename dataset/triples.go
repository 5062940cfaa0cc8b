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
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/juju/errors"
)

type triple struct {
	user   int
	item   int
	rating float64
}

// ReadRatingTriples parses "user item rating [timestamp]" lines separated by
// spaces or tabs. Items are resolved through the catalog and users are
// indexed in order of first appearance. A repeated (user, item) pair keeps
// the last rating.
func ReadRatingTriples(r io.Reader, catalog *ItemCatalog) (*RatingMatrix, *FreqDict, error) {
	users := NewFreqDict()
	var triples []triple
	scanner := bufio.NewScanner(r)
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) < 3 || len(fields) > 4 {
			return nil, nil, errors.NotValidf("rating at line %d", lineNumber)
		}
		itemIndex := catalog.Index(fields[1])
		if itemIndex < 0 {
			return nil, nil, errors.NotFoundf("item %v at line %d", fields[1], lineNumber)
		}
		rating, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return nil, nil, errors.Annotatef(err, "line %d", lineNumber)
		}
		if math.IsNaN(rating) || math.IsInf(rating, 0) {
			return nil, nil, errors.NotValidf("rating %v at line %d", fields[2], lineNumber)
		}
		triples = append(triples, triple{
			user:   users.Add(fields[0]),
			item:   itemIndex,
			rating: rating,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, errors.Trace(err)
	}
	if users.Count() == 0 {
		return nil, nil, errors.NotValidf("empty rating triples")
	}
	ratings := NewEmptyRatingMatrix(catalog.Count(), users.Count())
	for _, t := range triples {
		ratings.SetRating(t.item, t.user, t.rating)
	}
	return ratings, users, nil
}

// LoadRatingTriples loads rating triples from a file.
func LoadRatingTriples(path string, catalog *ItemCatalog) (*RatingMatrix, *FreqDict, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	defer file.Close()
	return ReadRatingTriples(file, catalog)
}

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
	"strings"

	"github.com/juju/errors"
	"golang.org/x/text/encoding/charmap"
)

// ItemCatalog is the ordered list of items. Row i of a rating matrix refers
// to the i-th item of the catalog.
type ItemCatalog struct {
	ids   *FreqDict
	names []string
}

func NewItemCatalog() *ItemCatalog {
	return &ItemCatalog{ids: NewFreqDict()}
}

// Add appends an item. Duplicated ids are rejected.
func (c *ItemCatalog) Add(id, name string) error {
	if c.ids.Index(id) >= 0 {
		return errors.AlreadyExistsf("item %v", id)
	}
	c.ids.Add(id)
	c.names = append(c.names, name)
	return nil
}

func (c *ItemCatalog) Count() int {
	return len(c.names)
}

// Name returns the name of the i-th item.
func (c *ItemCatalog) Name(i int) string {
	return c.names[i]
}

// ID returns the raw id of the i-th item.
func (c *ItemCatalog) ID(i int) string {
	id, _ := c.ids.String(i)
	return id
}

// Index returns the row of an item id, or -1 if unknown.
func (c *ItemCatalog) Index(id string) int {
	return c.ids.Index(id)
}

// ReadItemCatalog parses "id name" lines. The name is everything after the
// first space. Empty lines are skipped.
func ReadItemCatalog(r io.Reader) (*ItemCatalog, error) {
	catalog := NewItemCatalog()
	scanner := bufio.NewScanner(r)
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		id, name, found := strings.Cut(line, " ")
		if !found || id == "" {
			return nil, errors.NotValidf("item at line %d: %q", lineNumber, line)
		}
		if err := catalog.Add(id, name); err != nil {
			return nil, errors.Annotatef(err, "line %d", lineNumber)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Trace(err)
	}
	return catalog, nil
}

// LoadItemCatalog loads an ISO-8859-1 encoded item list.
func LoadItemCatalog(path string) (*ItemCatalog, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer file.Close()
	return ReadItemCatalog(charmap.ISO8859_1.NewDecoder().Reader(file))
}

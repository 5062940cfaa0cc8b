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
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
)

func TestReadItemCatalog(t *testing.T) {
	catalog, err := ReadItemCatalog(strings.NewReader("1 Toy Story (1995)\n2 GoldenEye (1995)\r\n\n3 Four Rooms (1995)\n"))
	assert.NoError(t, err)
	assert.Equal(t, 3, catalog.Count())
	assert.Equal(t, "Toy Story (1995)", catalog.Name(0))
	assert.Equal(t, "GoldenEye (1995)", catalog.Name(1))
	assert.Equal(t, "3", catalog.ID(2))
	assert.Equal(t, 2, catalog.Index("3"))
	assert.Equal(t, -1, catalog.Index("4"))

	_, err = ReadItemCatalog(strings.NewReader("1 A\nbroken\n"))
	assert.True(t, errors.Is(err, errors.NotValid))
	_, err = ReadItemCatalog(strings.NewReader("1 A\n1 B\n"))
	assert.True(t, errors.Is(err, errors.AlreadyExists))
}

func TestLoadItemCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "movie_ids.txt")
	// "Café" encoded with ISO-8859-1
	assert.NoError(t, os.WriteFile(path, []byte("1 Caf\xe9 Society (2016)\n"), 0644))
	catalog, err := LoadItemCatalog(path)
	assert.NoError(t, err)
	assert.Equal(t, "Café Society (2016)", catalog.Name(0))

	_, err = LoadItemCatalog(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

/*
Copyright © 2026 the Harmony NetCDF-to-Zarr authors.
This file is part of harmony-netcdf-to-zarr.

harmony-netcdf-to-zarr is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

harmony-netcdf-to-zarr is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with harmony-netcdf-to-zarr.  If not, see <http://www.gnu.org/licenses/>.
*/

package n2zutil

import (
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
)

func TestPublishStore(t *testing.T) {
	chtemp(t)
	if err := os.Mkdir("bucket", 0755); err != nil {
		t.Fatal(err)
	}
	store := filepath.Join(t.TempDir(), "GPM_3IMERG.zarr")
	files := map[string]string{
		".zmetadata":     `{"zarr_consolidated_format": 1}`,
		".zgroup":        `{"zarr_format": 2}`,
		"time/.zarray":   `{}`,
		"time/0":         "chunk bytes",
		"gridded/pr/0.0": "more chunk bytes",
	}
	for name, body := range files {
		p := filepath.Join(store, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatal(err)
		}
		if err := ioutil.WriteFile(p, []byte(body), 0644); err != nil {
			t.Fatal(err)
		}
	}

	url, err := PublishStore(context.Background(), store, "file://bucket/results")
	if err != nil {
		t.Fatal(err)
	}
	if url != "file://bucket/results/GPM_3IMERG.zarr" {
		t.Errorf("published URL = %q", url)
	}
	for name, body := range files {
		p := filepath.Join("bucket", "results", "GPM_3IMERG.zarr", filepath.FromSlash(name))
		b, err := ioutil.ReadFile(p)
		if err != nil {
			t.Fatal(err)
		}
		if string(b) != body {
			t.Errorf("%s = %q, want %q", name, b, body)
		}
	}
}

func TestPublishStoreBadLocation(t *testing.T) {
	if _, err := PublishStore(context.Background(), t.TempDir(), "ftp://bucket/x"); err == nil {
		t.Fatal("expected an error for an unsupported provider")
	}
}

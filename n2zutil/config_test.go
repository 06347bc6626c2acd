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
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/ctessum/cdf"
	"github.com/lnashier/viper"
)

// writeGranule writes a minimal NetCDF classic granule with a temporal
// coordinate and one science variable.
func writeGranule(t *testing.T, path string, tvals []float64, units string) string {
	t.Helper()
	h := cdf.NewHeader([]string{"time"}, []int{len(tvals)})
	h.AddVariable("time", []string{"time"}, tvals)
	h.AddAttribute("time", "units", units)
	pr := make([]float32, len(tvals))
	h.AddVariable("pr", []string{"time"}, pr)
	h.AddAttribute("pr", "units", "mm/hr")
	h.Define()
	ff, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer ff.Close()
	f, err := cdf.Create(ff, h)
	if err != nil {
		t.Fatal(err)
	}
	// A full write of a fixed-size variable reports io.EOF on
	// reaching the end of its extent; that is success.
	if _, err := f.Writer("time", nil, nil).Write(tvals); err != nil && err != io.EOF {
		t.Fatal(err)
	}
	if _, err := f.Writer("pr", nil, nil).Write(pr); err != nil && err != io.EOF {
		t.Fatal(err)
	}
	return path
}

func TestExpandStringSlice(t *testing.T) {
	os.Setenv("N2Z_TEST_DIR", "/data")
	defer os.Unsetenv("N2Z_TEST_DIR")
	got := expandStringSlice([]string{"${N2Z_TEST_DIR}/a.nc", "b.nc"})
	want := []string{"/data/a.nc", "b.nc"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expanded to %v, want %v", got, want)
	}
}

func TestCheckOutputLocation(t *testing.T) {
	ctx := context.Background()

	t.Run("local", func(t *testing.T) {
		out := filepath.Join(t.TempDir(), "out.zarr")
		local, publish, err := checkOutputLocation(ctx, out, true)
		if err != nil {
			t.Fatal(err)
		}
		if local != out || publish != "" {
			t.Errorf("got local %q publish %q", local, publish)
		}
	})

	t.Run("local missing parent", func(t *testing.T) {
		out := filepath.Join(t.TempDir(), "nosuch", "out.zarr")
		if _, _, err := checkOutputLocation(ctx, out, true); err == nil {
			t.Fatal("expected an error for a missing parent directory")
		}
	})

	t.Run("empty", func(t *testing.T) {
		if _, _, err := checkOutputLocation(ctx, "", true); err == nil {
			t.Fatal("expected an error for an empty location")
		}
	})

	t.Run("blob single store", func(t *testing.T) {
		chtemp(t)
		if err := os.Mkdir("bucket", 0755); err != nil {
			t.Fatal(err)
		}
		local, publish, err := checkOutputLocation(ctx, "file://bucket/results/out.zarr", true)
		if err != nil {
			t.Fatal(err)
		}
		if filepath.Base(local) != "out.zarr" {
			t.Errorf("local = %q", local)
		}
		if publish != "file://bucket/results" {
			t.Errorf("publish = %q", publish)
		}
	})

	t.Run("blob store directory", func(t *testing.T) {
		chtemp(t)
		if err := os.Mkdir("bucket", 0755); err != nil {
			t.Fatal(err)
		}
		local, publish, err := checkOutputLocation(ctx, "file://bucket/results", false)
		if err != nil {
			t.Fatal(err)
		}
		info, err := os.Stat(local)
		if err != nil || !info.IsDir() {
			t.Errorf("local %q is not a directory", local)
		}
		if publish != "file://bucket/results" {
			t.Errorf("publish = %q", publish)
		}
	})

	t.Run("blob without store name", func(t *testing.T) {
		chtemp(t)
		if err := os.Mkdir("bucket", 0755); err != nil {
			t.Fatal(err)
		}
		if _, _, err := checkOutputLocation(ctx, "file://bucket", true); err == nil {
			t.Fatal("expected an error for a location without a store name")
		}
	})
}

func TestConvertLocal(t *testing.T) {
	dir := t.TempDir()
	in := writeGranule(t, filepath.Join(dir, "g.nc"), []float64{0, 1}, "minutes since 2020-01-01T00:00:00")
	out := filepath.Join(dir, "g.zarr")

	cfg := viper.New()
	cfg.Set("InputFiles", []string{in})
	cfg.Set("OutputLocation", out)
	cfg.Set("Concatenate", true)
	if err := Convert(context.Background(), cfg); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(out, ".zmetadata")); err != nil {
		t.Errorf("store not consolidated: %v", err)
	}
	if _, err := os.Stat(filepath.Join(out, "pr", ".zarray")); err != nil {
		t.Errorf("science variable missing: %v", err)
	}
}

func TestConvertPublishes(t *testing.T) {
	chtemp(t)
	if err := os.Mkdir("bucket", 0755); err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	in := writeGranule(t, filepath.Join(dir, "g.nc"), []float64{0, 1}, "minutes since 2020-01-01T00:00:00")

	cfg := viper.New()
	cfg.Set("InputFiles", []string{in})
	cfg.Set("OutputLocation", "file://bucket/results/g.zarr")
	cfg.Set("Concatenate", true)
	if err := Convert(context.Background(), cfg); err != nil {
		t.Fatal(err)
	}
	p := filepath.Join("bucket", "results", "g.zarr", ".zmetadata")
	if _, err := os.Stat(p); err != nil {
		t.Errorf("store not published: %v", err)
	}
}

func TestConvertNoInputs(t *testing.T) {
	cfg := viper.New()
	cfg.Set("OutputLocation", filepath.Join(t.TempDir(), "out.zarr"))
	err := Convert(context.Background(), cfg)
	if err == nil || !strings.Contains(err.Error(), "no input granules") {
		t.Fatalf("err = %v", err)
	}
}

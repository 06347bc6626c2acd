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

package n2z

import (
	"encoding/binary"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/ctessum/cdf"
)

// Test granules are written as NetCDF classic files, the simplest
// format both libraries agree on.

type fxAttr struct {
	name  string
	value interface{}
}

type fxVar struct {
	name  string
	dims  []string
	data  interface{}
	attrs []fxAttr
}

func writeClassic(t *testing.T, path string, dims []string, lengths []int, global []fxAttr, vars []fxVar) string {
	t.Helper()
	h := cdf.NewHeader(dims, lengths)
	for _, a := range global {
		h.AddAttribute("", a.name, a.value)
	}
	for _, v := range vars {
		h.AddVariable(v.name, v.dims, v.data)
		for _, a := range v.attrs {
			h.AddAttribute(v.name, a.name, a.value)
		}
	}
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
	for _, v := range vars {
		w := f.Writer(v.name, nil, nil)
		// A full write of a fixed-size variable reports io.EOF on
		// reaching the end of its extent; that is success.
		if _, err := w.Write(v.data); err != nil && err != io.EOF {
			t.Fatalf("writing %s to %s: %v", v.name, path, err)
		}
	}
	return path
}

// makeGranule writes one standard test granule: a temporal coordinate
// "time", a fixed coordinate "lat", and a precipitation variable "pr"
// over (time, lat).
func makeGranule(t *testing.T, dir, name string, tvals []float64, units string, pr []float32) string {
	t.Helper()
	lat := []float64{-30, 0, 30}
	if pr == nil {
		pr = make([]float32, len(tvals)*len(lat))
	}
	return writeClassic(t, filepath.Join(dir, name),
		[]string{"time", "lat"}, []int{len(tvals), len(lat)},
		[]fxAttr{{"title", "test granule"}},
		[]fxVar{
			{name: "time", dims: []string{"time"}, data: tvals,
				attrs: []fxAttr{{"units", units}}},
			{name: "lat", dims: []string{"lat"}, data: lat,
				attrs: []fxAttr{{"units", "degrees_north"}}},
			{name: "pr", dims: []string{"time", "lat"}, data: pr,
				attrs: []fxAttr{
					{"units", "mm/hr"},
					{"scale_factor", []float64{0.01}},
					{"_FillValue", []float32{-9999}},
				}},
		})
}

func readGranules(t *testing.T, paths ...string) []*Granule {
	t.Helper()
	gs := make([]*Granule, len(paths))
	for i, p := range paths {
		g, err := ReadGranule(p)
		if err != nil {
			t.Fatalf("reading %s: %v", p, err)
		}
		gs[i] = g
	}
	return gs
}

func float64sOf(t *testing.T, data []byte) []float64 {
	t.Helper()
	if len(data)%8 != 0 {
		t.Fatalf("byte length %d is not a multiple of 8", len(data))
	}
	out := make([]float64, len(data)/8)
	for i := range out {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(data[i*8:]))
	}
	return out
}

func float32sOf(t *testing.T, data []byte) []float32 {
	t.Helper()
	if len(data)%4 != 0 {
		t.Fatalf("byte length %d is not a multiple of 4", len(data))
	}
	out := make([]float32, len(data)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return out
}

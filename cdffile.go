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
	"fmt"
	"os"

	"github.com/ctessum/cdf"
	"github.com/nasa/harmony-netcdf-to-zarr/zarr"
)

// classicDataset adapts a NetCDF classic (CDF-1/CDF-2) file to the
// Dataset interface. Classic files have a flat namespace; everything
// lives in the root group. CHAR variables carry text, which has no
// array representation here, so they are omitted.
type classicDataset struct {
	path string
	f    *os.File
	cf   *cdf.File

	vars     map[string]*Variable
	varOrder []string
	numRecs  int
}

func openClassic(path string) (Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &FormatError{Path: path, Err: err}
	}
	cf, err := cdf.Open(f)
	if err != nil {
		f.Close()
		return nil, &FormatError{Path: path, Err: err}
	}
	ds := &classicDataset{path: path, f: f, cf: cf, vars: map[string]*Variable{}}
	if err := ds.readMeta(); err != nil {
		f.Close()
		return nil, err
	}
	return ds, nil
}

func (ds *classicDataset) readMeta() error {
	h := ds.cf.Header
	for _, name := range h.Variables() {
		zero := h.ZeroValue(name, 0)
		if _, isText := zero.(string); isText {
			continue
		}
		dt, err := classicDType(zero)
		if err != nil {
			return fmt.Errorf("n2z: variable %s in %s: %v", name, ds.path, err)
		}
		dimNames := h.Dimensions(name)
		shape := append([]int(nil), h.Lengths(name)...)
		if len(shape) > 0 && shape[0] == 0 {
			n, err := ds.readNumRecs()
			if err != nil {
				return err
			}
			shape[0] = n
		}
		dims := make([]string, len(dimNames))
		for i, d := range dimNames {
			dims[i] = "/" + d
		}
		attrs := map[string]interface{}{}
		for _, a := range h.Attributes(name) {
			attrs[a] = normalizeAttr(h.GetAttribute(name, a))
		}
		ds.vars["/"+name] = &Variable{
			Path:  "/" + name,
			Dims:  dims,
			Shape: shape,
			DType: dt,
			Attrs: attrs,
		}
		ds.varOrder = append(ds.varOrder, "/"+name)
	}
	return nil
}

// readNumRecs reads the record count directly from the file header.
// The parsed header reports record dimensions as length zero.
func (ds *classicDataset) readNumRecs() (int, error) {
	if ds.numRecs > 0 {
		return ds.numRecs, nil
	}
	var buf [4]byte
	if _, err := ds.f.ReadAt(buf[:], 4); err != nil {
		return 0, fmt.Errorf("n2z: reading record count from %s: %v", ds.path, err)
	}
	n := int(int32(binary.BigEndian.Uint32(buf[:])))
	if n < 0 {
		return 0, fmt.Errorf("n2z: %s has an indeterminate record count", ds.path)
	}
	ds.numRecs = n
	return n, nil
}

func (ds *classicDataset) Close() error { return ds.f.Close() }

func (ds *classicDataset) Variables() []string { return ds.varOrder }

func (ds *classicDataset) Variable(path string) (*Variable, error) {
	v, ok := ds.vars[path]
	if !ok {
		return nil, fmt.Errorf("n2z: no variable %s in %s", path, ds.path)
	}
	return v, nil
}

func (ds *classicDataset) Groups() []string { return []string{"/"} }

func (ds *classicDataset) GroupAttrs(path string) (map[string]interface{}, error) {
	if path != "/" {
		return nil, fmt.Errorf("n2z: no group %s in %s", path, ds.path)
	}
	attrs := map[string]interface{}{}
	for _, a := range ds.cf.Header.Attributes("") {
		attrs[a] = normalizeAttr(ds.cf.Header.GetAttribute("", a))
	}
	return attrs, nil
}

func (ds *classicDataset) ReadSlab(path string, begin, end int64) ([]byte, error) {
	v, ok := ds.vars[path]
	if !ok {
		return nil, fmt.Errorf("n2z: no variable %s in %s", path, ds.path)
	}
	name := path[1:]
	if len(v.Shape) == 0 {
		r := ds.cf.Reader(name, nil, nil)
		buf := r.Zero(1)
		if _, err := r.Read(buf); err != nil {
			return nil, fmt.Errorf("n2z: reading %s from %s: %v", path, ds.path, err)
		}
		return flattenBytes(buf, v.DType)
	}
	if end < 0 {
		end = int64(v.Shape[0])
	}
	if begin < 0 || end < begin || end > int64(v.Shape[0]) {
		return nil, fmt.Errorf("n2z: slab [%d:%d] out of range for %s in %s", begin, end, path, ds.path)
	}
	if end == begin {
		return []byte{}, nil
	}
	// The reader's corner vectors are inclusive on both ends.
	first := make([]int, len(v.Shape))
	last := make([]int, len(v.Shape))
	first[0] = int(begin)
	last[0] = int(end) - 1
	n := int(end - begin)
	for i := 1; i < len(v.Shape); i++ {
		last[i] = v.Shape[i] - 1
		n *= v.Shape[i]
	}
	r := ds.cf.Reader(name, first, last)
	if r == nil {
		return nil, fmt.Errorf("n2z: no reader for %s in %s", path, ds.path)
	}
	buf := r.Zero(n)
	if _, err := r.Read(buf); err != nil {
		return nil, fmt.Errorf("n2z: reading %s[%d:%d] from %s: %v", path, begin, end, ds.path, err)
	}
	return flattenBytes(buf, v.DType)
}

// classicDType maps the typed zero slice of a classic variable to a
// dtype. BYTE maps to unsigned, matching how the values are stored.
func classicDType(zero interface{}) (zarr.DType, error) {
	switch zero.(type) {
	case []uint8:
		return zarr.DType{ByteOrder: '|', Kind: 'u', Size: 1}, nil
	case []int16:
		return zarr.DType{ByteOrder: '<', Kind: 'i', Size: 2}, nil
	case []int32:
		return zarr.DType{ByteOrder: '<', Kind: 'i', Size: 4}, nil
	case []float32:
		return zarr.DType{ByteOrder: '<', Kind: 'f', Size: 4}, nil
	case []float64:
		return zarr.DType{ByteOrder: '<', Kind: 'f', Size: 8}, nil
	}
	return zarr.DType{}, fmt.Errorf("unsupported classic data type %T", zero)
}

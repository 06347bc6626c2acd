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

// Package n2z converts gridded NetCDF granules into chunked, compressed
// Zarr stores, optionally concatenating many granules along a shared
// temporal dimension into one logical dataset.
package n2z

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/nasa/harmony-netcdf-to-zarr/zarr"
)

// Dataset is the capability interface through which the engine reads
// one open input granule. One concrete adapter exists per supported
// backing format (NetCDF-4/HDF5 and NetCDF classic); the engine depends
// only on this interface. Variables and groups are addressed by full
// path ("/group/variable"), with "/" denoting the root group.
type Dataset interface {
	Close() error
	// Variables lists the full paths of every variable in the file,
	// in all groups.
	Variables() []string
	// Variable returns the descriptor for the variable at the given
	// full path, without reading its data.
	Variable(path string) (*Variable, error)
	// Groups lists the full paths of every group, root included.
	Groups() []string
	// GroupAttrs returns the attributes of the group at the given path.
	GroupAttrs(path string) (map[string]interface{}, error)
	// ReadSlab reads the raw (unscaled) values of a variable as
	// little-endian bytes in C order. begin and end bound the
	// outermost dimension; begin=0, end=-1 reads the full variable.
	ReadSlab(path string, begin, end int64) ([]byte, error)
}

// Variable describes one variable in an input granule: its full path,
// the full paths of its dimensions, its shape, element type, and
// attributes. Scale factor, add-offset and fill-value conventions
// travel in Attrs; the engine copies them as metadata and never applies
// them.
type Variable struct {
	Path  string
	Dims  []string
	Shape []int
	DType zarr.DType
	Attrs map[string]interface{}
}

// Name returns the variable's basename within its group.
func (v *Variable) Name() string {
	return v.Path[strings.LastIndex(v.Path, "/")+1:]
}

// Group returns the full path of the group containing the variable.
func (v *Variable) Group() string {
	g := v.Path[:strings.LastIndex(v.Path, "/")]
	if g == "" {
		return "/"
	}
	return g
}

// Size returns the dimension extent along the axis with the given full
// path, or -1 if the variable does not depend on it.
func (v *Variable) Size(dim string) int {
	for i, d := range v.Dims {
		if d == dim {
			return v.Shape[i]
		}
	}
	return -1
}

// Granule is the metadata of one source file, read once per conversion
// job and immutable thereafter. Variable data is read separately, by
// the writer that copies the granule into the output store.
type Granule struct {
	Path       string
	Variables  map[string]*Variable
	GroupAttrs map[string]map[string]interface{}

	varOrder   []string
	groupOrder []string
}

// VariablePaths returns the full paths of the granule's variables in
// file order.
func (g *Granule) VariablePaths() []string { return g.varOrder }

// GroupPaths returns the full paths of the granule's groups, root
// first.
func (g *Granule) GroupPaths() []string { return g.groupOrder }

// Open opens the granule's file for data reads.
func (g *Granule) Open() (Dataset, error) { return OpenDataset(g.Path) }

// OpenDataset opens an input file with the adapter matching its format,
// chosen by the file's magic bytes. Deeper validation is left to the
// opening library.
func OpenDataset(path string) (Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &FormatError{Path: path, Err: err}
	}
	magic := make([]byte, 4)
	_, err = f.ReadAt(magic, 0)
	f.Close()
	if err != nil {
		return nil, &FormatError{Path: path, Err: fmt.Errorf("reading magic: %v", err)}
	}
	switch {
	case magic[0] == 0x89: // HDF5-backed NetCDF-4
		return openNetCDF4(path)
	case magic[0] == 'C' && magic[1] == 'D' && magic[2] == 'F':
		return openClassic(path)
	}
	return nil, &FormatError{Path: path, Err: fmt.Errorf("unrecognized magic %q", magic)}
}

// ReadGranule performs the metadata-only pass over one input file.
func ReadGranule(path string) (*Granule, error) {
	ds, err := OpenDataset(path)
	if err != nil {
		return nil, err
	}
	defer ds.Close()

	g := &Granule{
		Path:       path,
		Variables:  map[string]*Variable{},
		GroupAttrs: map[string]map[string]interface{}{},
	}
	for _, p := range ds.Variables() {
		v, err := ds.Variable(p)
		if err != nil {
			return nil, fmt.Errorf("n2z: reading metadata for %s in %s: %v", p, path, err)
		}
		g.Variables[p] = v
		g.varOrder = append(g.varOrder, p)
	}
	for _, p := range ds.Groups() {
		attrs, err := ds.GroupAttrs(p)
		if err != nil {
			return nil, fmt.Errorf("n2z: reading attributes for group %s in %s: %v", p, path, err)
		}
		g.GroupAttrs[p] = attrs
		g.groupOrder = append(g.groupOrder, p)
	}
	sort.Strings(g.groupOrder)
	return g, nil
}

// dimensionPaths returns the union of dimension paths used by the
// granule's variables, sorted.
func (g *Granule) dimensionPaths() []string {
	set := map[string]struct{}{}
	for _, v := range g.Variables {
		for _, d := range v.Dims {
			set[d] = struct{}{}
		}
	}
	dims := make([]string, 0, len(set))
	for d := range set {
		dims = append(dims, d)
	}
	sort.Strings(dims)
	return dims
}

// coordinate returns the coordinate variable for a dimension path, or
// nil if the granule has none (a dimension without a coordinate
// variable, such as a bounds vertex dimension).
func (g *Granule) coordinate(dim string) *Variable {
	return g.Variables[dim]
}

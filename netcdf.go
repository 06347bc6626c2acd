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
	"fmt"
	"sort"
	"strings"

	"github.com/batchatco/go-native-netcdf/netcdf/api"
	"github.com/batchatco/go-native-netcdf/netcdf/hdf5"
	"github.com/nasa/harmony-netcdf-to-zarr/zarr"
)

// nc4Dataset adapts an HDF5-backed NetCDF-4 file to the Dataset
// interface, flattening the group hierarchy into full paths.
type nc4Dataset struct {
	path   string
	root   api.Group
	groups map[string]api.Group

	vars       map[string]*nc4Var
	varOrder   []string
	groupOrder []string
}

type nc4Var struct {
	group  string
	getter api.VarGetter
	meta   *Variable
}

// dimensionGetter is the dimension-lookup capability of a group.
// api.Group does not declare it; the HDF5 implementation provides it as
// a method on its concrete type, so it is reached by assertion.
type dimensionGetter interface {
	GetDimension(name string) (uint64, bool)
}

func openNetCDF4(path string) (Dataset, error) {
	root, err := hdf5.Open(path)
	if err != nil {
		return nil, &FormatError{Path: path, Err: err}
	}
	ds := &nc4Dataset{
		path:   path,
		root:   root,
		groups: map[string]api.Group{},
		vars:   map[string]*nc4Var{},
	}
	if err := ds.walk(root, "/"); err != nil {
		root.Close()
		return nil, err
	}
	return ds, nil
}

// walk records the group at gpath and descends into its subgroups.
// Variable names containing "/" are skipped at each level: those are
// reported again, unqualified, by the subgroup they belong to.
func (ds *nc4Dataset) walk(g api.Group, gpath string) error {
	ds.groups[gpath] = g
	ds.groupOrder = append(ds.groupOrder, gpath)
	for _, name := range g.ListVariables() {
		if strings.Contains(name, "/") {
			continue
		}
		if err := ds.addVariable(g, gpath, name); err != nil {
			return err
		}
	}
	for _, sub := range g.ListSubgroups() {
		child, err := g.GetGroup(sub)
		if err != nil {
			return fmt.Errorf("n2z: opening group %s in %s: %v", sub, ds.path, err)
		}
		if err := ds.walk(child, childPath(gpath, sub)); err != nil {
			return err
		}
	}
	return nil
}

func (ds *nc4Dataset) addVariable(g api.Group, gpath, name string) error {
	getter, err := g.GetVarGetter(name)
	if err != nil {
		return fmt.Errorf("n2z: opening variable %s in %s: %v", childPath(gpath, name), ds.path, err)
	}
	vpath := childPath(gpath, name)
	dt, err := zarr.GoDType(getter.GoType())
	if err != nil {
		return fmt.Errorf("n2z: variable %s in %s: %v", vpath, ds.path, err)
	}
	dimNames := getter.Dimensions()
	shape, dims, err := ds.resolveDims(getter, gpath, dimNames)
	if err != nil {
		return fmt.Errorf("n2z: variable %s in %s: %v", vpath, ds.path, err)
	}
	ds.vars[vpath] = &nc4Var{
		group:  gpath,
		getter: getter,
		meta: &Variable{
			Path:  vpath,
			Dims:  dims,
			Shape: shape,
			DType: dt,
			Attrs: attrsOf(getter.Attributes()),
		},
	}
	ds.varOrder = append(ds.varOrder, vpath)
	return nil
}

// resolveDims maps a variable's dimension names to full paths and
// extents. Dimension names come back unqualified; each is resolved
// against the variable's group and then its ancestors, netCDF scoping.
// A dimension no reachable group can report (a group without the
// lookup capability, or a dimension no group defines) falls back to
// the slicer's own lengths and a path in the variable's group.
func (ds *nc4Dataset) resolveDims(getter api.VarGetter, gpath string, dimNames []string) ([]int, []string, error) {
	shape := make([]int, len(dimNames))
	dims := make([]string, len(dimNames))
	var sampled []int
	for i, name := range dimNames {
		found := false
		for _, ancestor := range ancestry(gpath) {
			dg, ok := ds.groups[ancestor].(dimensionGetter)
			if !ok {
				continue
			}
			if n, ok := dg.GetDimension(name); ok {
				shape[i] = int(n)
				dims[i] = childPath(ancestor, name)
				found = true
				break
			}
		}
		if found {
			continue
		}
		if sampled == nil {
			if i == 0 {
				sampled = []int{int(getter.Len())}
			}
			sample, err := getter.GetSlice(0, 1)
			if err != nil {
				return nil, nil, fmt.Errorf("resolving dimension %s: %v", name, err)
			}
			inner := valueShape(sample)
			if len(inner) > 0 {
				inner[0] = int(getter.Len())
			}
			sampled = inner
		}
		if i >= len(sampled) {
			return nil, nil, fmt.Errorf("cannot resolve dimension %s", name)
		}
		shape[i] = sampled[i]
		dims[i] = childPath(gpath, name)
	}
	return shape, dims, nil
}

func (ds *nc4Dataset) Close() error {
	ds.root.Close()
	return nil
}

func (ds *nc4Dataset) Variables() []string { return ds.varOrder }

func (ds *nc4Dataset) Variable(path string) (*Variable, error) {
	v, ok := ds.vars[path]
	if !ok {
		return nil, fmt.Errorf("n2z: no variable %s in %s", path, ds.path)
	}
	return v.meta, nil
}

func (ds *nc4Dataset) Groups() []string {
	out := make([]string, len(ds.groupOrder))
	copy(out, ds.groupOrder)
	sort.Strings(out)
	return out
}

func (ds *nc4Dataset) GroupAttrs(path string) (map[string]interface{}, error) {
	g, ok := ds.groups[path]
	if !ok {
		return nil, fmt.Errorf("n2z: no group %s in %s", path, ds.path)
	}
	return attrsOf(g.Attributes()), nil
}

func (ds *nc4Dataset) ReadSlab(path string, begin, end int64) ([]byte, error) {
	v, ok := ds.vars[path]
	if !ok {
		return nil, fmt.Errorf("n2z: no variable %s in %s", path, ds.path)
	}
	if len(v.meta.Shape) == 0 {
		// Rank 0: the slicer fakes an outer dimension of length one.
		begin, end = 0, 1
	} else if end < 0 {
		end = int64(v.meta.Shape[0])
	}
	data, err := v.getter.GetSlice(begin, end)
	if err != nil {
		return nil, fmt.Errorf("n2z: reading %s[%d:%d] from %s: %v", path, begin, end, ds.path, err)
	}
	return flattenBytes(data, v.meta.DType)
}

// attrsOf converts a netCDF attribute map into plain Go values,
// unwrapping one-element slices to scalars.
func attrsOf(am api.AttributeMap) map[string]interface{} {
	if am == nil {
		return map[string]interface{}{}
	}
	attrs := map[string]interface{}{}
	for _, key := range am.Keys() {
		if v, ok := am.Get(key); ok {
			attrs[key] = normalizeAttr(v)
		}
	}
	return attrs
}

func childPath(group, name string) string {
	if group == "/" {
		return "/" + name
	}
	return group + "/" + name
}

// ancestry returns gpath and its ancestors, nearest first, ending at
// the root.
func ancestry(gpath string) []string {
	out := []string{gpath}
	for gpath != "/" {
		i := strings.LastIndex(gpath, "/")
		if i <= 0 {
			gpath = "/"
		} else {
			gpath = gpath[:i]
		}
		out = append(out, gpath)
	}
	return out
}

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
	"math"
	"sort"

	"github.com/nasa/harmony-netcdf-to-zarr/zarr"
)

// WriteAggregatedDimensions writes the merged coordinate values (and
// bounds) of every aggregated dimension into the store. It runs once,
// before any writer task, so workers find the arrays already sized to
// the merged extent and never write dimension data themselves.
func WriteAggregatedDimensions(root *zarr.Group, p *Plan, cfg ChunkConfig) error {
	dims := make([]string, 0, len(p.Dimensions))
	for d := range p.Dimensions {
		dims = append(dims, d)
	}
	sort.Strings(dims)
	for _, dim := range dims {
		od := p.Dimensions[dim]
		if err := writeMergedValues(root, p, cfg, od.Path, od.Values, nil); err != nil {
			return err
		}
		if od.BoundsPath != "" {
			if err := writeMergedValues(root, p, cfg, od.BoundsPath, od.Values, od.Bounds); err != nil {
				return err
			}
		}
	}
	return nil
}

// writeMergedValues creates one aggregated array (a coordinate when
// bounds is nil, otherwise the bounds variable) and fills it with the
// merged values.
func writeMergedValues(root *zarr.Group, p *Plan, cfg ChunkConfig, path string, values []float64, bounds [][2]float64) error {
	meta, err := aggregatedArrayMeta(p, path, values, bounds != nil, cfg)
	if err != nil {
		return err
	}
	flat := values
	if bounds != nil {
		flat = make([]float64, 0, 2*len(bounds))
		for _, b := range bounds {
			flat = append(flat, b[0], b[1])
		}
	}
	data, err := encodeFloats(flat, meta.DType)
	if err != nil {
		return fmt.Errorf("n2z: encoding %s: %v", path, err)
	}
	group, err := root.RequireGroup(groupOf(path))
	if err != nil {
		return err
	}
	arr, err := group.RequireArray(baseOf(path), meta)
	if err != nil {
		return err
	}
	return arr.SetSlice(make([]int, len(meta.Shape)), meta.Shape, data)
}

// aggregatedArrayMeta builds the metadata for an aggregated coordinate
// or bounds array. Every worker derives the identical metadata
// independently, so idempotent creation converges. Integer coordinate
// types are promoted to float64 when rebasing onto the common epoch
// produced fractional values.
func aggregatedArrayMeta(p *Plan, path string, values []float64, isBounds bool, cfg ChunkConfig) (zarr.ArrayMeta, error) {
	od, ok := p.Aggregated(path)
	if !ok {
		return zarr.ArrayMeta{}, fmt.Errorf("n2z: %s is not an aggregated variable", path)
	}
	var src *Variable
	for _, g := range p.Granules {
		if v, ok := g.Variables[path]; ok {
			src = v
			break
		}
	}
	if src == nil {
		return zarr.ArrayMeta{}, fmt.Errorf("n2z: no granule defines %s", path)
	}
	dt := src.DType
	if dt.Kind != 'f' {
		for _, v := range values {
			if v != math.Trunc(v) {
				dt = zarr.DType{ByteOrder: '<', Kind: 'f', Size: 8}
				break
			}
		}
	}
	shape := []int{od.Len()}
	aggregate := []bool{true}
	contribution := []int{p.Contribution(od.Path)}
	if isBounds {
		shape = append(shape, 2)
		aggregate = append(aggregate, false)
		contribution = append(contribution, 0)
	}
	chunks, err := cfg.Shape(path, shape, dt.Size, aggregate, contribution)
	if err != nil {
		return zarr.ArrayMeta{}, err
	}
	return zarr.ArrayMeta{
		Shape:      shape,
		Chunks:     chunks,
		DType:      dt,
		Compressor: zarr.DefaultCompressor(),
	}, nil
}

// WriteGranule copies one granule's groups, variables and attributes
// into the shared store. Metadata creation and chunk updates go through
// the root group's synchronizer, so writers whose regions share a chunk
// do not lose updates. first marks the granule whose copy of the
// unaggregated variables is authoritative; later granules skip their
// data and only converge on the metadata.
func WriteGranule(g *Granule, p *Plan, root *zarr.Group, cfg ChunkConfig, first bool) error {
	ds, err := g.Open()
	if err != nil {
		return err
	}
	defer ds.Close()

	for _, gp := range g.GroupPaths() {
		zg, err := root.RequireGroup(gp)
		if err != nil {
			return &WriteFailure{File: g.Path, Err: err}
		}
		if err := zg.MergeAttrs(jsonAttrs(g.GroupAttrs[gp])); err != nil {
			return &WriteFailure{File: g.Path, Err: err}
		}
	}

	for _, vpath := range g.VariablePaths() {
		if err := copyVariable(ds, g, g.Variables[vpath], p, root, cfg, first); err != nil {
			return err
		}
	}
	return nil
}

func copyVariable(ds Dataset, g *Granule, v *Variable, p *Plan, root *zarr.Group, cfg ChunkConfig, first bool) error {
	zgroup, err := root.RequireGroup(v.Group())
	if err != nil {
		return &WriteFailure{File: g.Path, Variable: v.Path, Err: err}
	}

	dimNames := make([]interface{}, len(v.Dims))
	for i, d := range v.Dims {
		dimNames[i] = baseOf(d)
	}
	attrs := jsonAttrs(v.Attrs)
	attrs["_ARRAY_DIMENSIONS"] = dimNames

	od, aggregated := p.Aggregated(v.Path)
	if aggregated {
		// The merged dimension's units replace the granule's own.
		attrs["units"] = od.Units
	}

	if len(v.Shape) == 0 {
		// A scalar variable has no array representation; it becomes a
		// group carrying the attributes, addressed by its full path.
		zv, err := zgroup.RequireGroup(v.Name())
		if err != nil {
			return &WriteFailure{File: g.Path, Variable: v.Path, Err: err}
		}
		if err := zv.MergeAttrs(attrs); err != nil {
			return &WriteFailure{File: g.Path, Variable: v.Path, Err: err}
		}
		return nil
	}

	var meta zarr.ArrayMeta
	if aggregated {
		isBounds := v.Path == od.BoundsPath
		meta, err = aggregatedArrayMeta(p, v.Path, od.Values, isBounds, cfg)
		if err != nil {
			return &WriteFailure{File: g.Path, Variable: v.Path, Err: err}
		}
	} else {
		outShape := p.OutputShape(v)
		aggregate := make([]bool, len(v.Dims))
		contribution := make([]int, len(v.Dims))
		hasAggregate := false
		for i, d := range v.Dims {
			if _, ok := p.Dimensions[d]; ok {
				aggregate[i] = true
				contribution[i] = p.Contribution(d)
				hasAggregate = true
			}
		}
		chunks, err := cfg.Shape(v.Path, outShape, v.DType.Size, aggregate, contribution)
		if err != nil {
			return &WriteFailure{File: g.Path, Variable: v.Path, Err: err}
		}
		meta = zarr.ArrayMeta{
			Shape:      outShape,
			Chunks:     chunks,
			DType:      v.DType,
			Compressor: zarr.DefaultCompressor(),
			FillValue:  fillValue(v.Attrs),
		}
		if !hasAggregate && !first {
			// Unaggregated variables are identical across granules and
			// copied once, from the first granule; later granules only
			// converge on the metadata.
			arr, err := zgroup.RequireArray(v.Name(), meta)
			if err != nil {
				return &WriteFailure{File: g.Path, Variable: v.Path, Err: err}
			}
			return mergeArrayAttrs(arr, attrs, g, v)
		}
	}

	arr, err := zgroup.RequireArray(v.Name(), meta)
	if err != nil {
		return &WriteFailure{File: g.Path, Variable: v.Path, Err: err}
	}
	if !aggregated {
		raw, err := ds.ReadSlab(v.Path, 0, -1)
		if err != nil {
			return &WriteFailure{File: g.Path, Variable: v.Path, Err: err}
		}
		start, shape := p.Slab(g, v)
		if err := arr.SetSlice(start, shape, raw); err != nil {
			return &WriteFailure{File: g.Path, Variable: v.Path, Err: err}
		}
	}
	return mergeArrayAttrs(arr, attrs, g, v)
}

func mergeArrayAttrs(arr *zarr.Array, attrs zarr.Attributes, g *Granule, v *Variable) error {
	if err := arr.MergeAttrs(attrs); err != nil {
		return &WriteFailure{File: g.Path, Variable: v.Path, Err: err}
	}
	return nil
}

// fillValue normalizes a granule's _FillValue attribute for array
// metadata: numeric values widen to float64 so every backend's fill
// encodes the same way, and non-finite values become their metadata
// strings. Non-numeric fills pass through.
func fillValue(attrs map[string]interface{}) interface{} {
	if f, ok := attrFloat(attrs, "_FillValue"); ok {
		return jsonValue(f)
	}
	return jsonValue(attrs["_FillValue"])
}

// jsonAttrs converts attribute values to their JSON store
// representation.
func jsonAttrs(attrs map[string]interface{}) zarr.Attributes {
	out := zarr.Attributes{}
	for k, v := range attrs {
		out[k] = jsonValue(v)
	}
	return out
}

// jsonValue maps non-finite floats to the strings "NaN", "Infinity"
// and "-Infinity", which encoding/json cannot represent as numbers.
// Everything else passes through.
func jsonValue(v interface{}) interface{} {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	default:
		return v
	}
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	return v
}

func groupOf(path string) string {
	v := &Variable{Path: path}
	return v.Group()
}

func baseOf(path string) string {
	v := &Variable{Path: path}
	return v.Name()
}

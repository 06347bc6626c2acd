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
	"log"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// OutputDimension is the merged form of one aggregated dimension: the
// sorted, de-duplicated union of every granule's coordinate values,
// expressed in the units of the granule with the earliest epoch, plus
// each granule's contiguous offset range within that union.
type OutputDimension struct {
	Path     string
	Units    string
	Time     timeUnits
	Values   []float64
	// BoundsPath and Bounds are set when the coordinate carries a
	// bounds variable; Bounds holds one pair per output value.
	BoundsPath string
	Bounds     [][2]float64

	offsets map[string][2]int
}

// Len returns the merged dimension's extent.
func (d *OutputDimension) Len() int { return len(d.Values) }

// Offsets returns the granule's half-open index range [begin, end)
// within the merged sequence.
func (d *OutputDimension) Offsets(g *Granule) (begin, end int) {
	r := d.offsets[g.Path]
	return r[0], r[1]
}

// Plan is the single source of truth for the output layout, built once
// per job before any parallel work and read-only thereafter.
type Plan struct {
	Granules   []*Granule
	Dimensions map[string]*OutputDimension

	// aggregated maps aggregated variable paths (dimensions and their
	// bounds) to the owning dimension path.
	aggregated map[string]string
}

// Aggregated reports whether the variable at path is an aggregated
// dimension or bounds variable, and returns its merged dimension.
func (p *Plan) Aggregated(path string) (*OutputDimension, bool) {
	dim, ok := p.aggregated[path]
	if !ok {
		return nil, false
	}
	return p.Dimensions[dim], true
}

// OutputShape returns the shape of a variable in the output store:
// the input shape with every aggregated axis replaced by the merged
// extent.
func (p *Plan) OutputShape(v *Variable) []int {
	shape := make([]int, len(v.Shape))
	for i, d := range v.Dims {
		if od, ok := p.Dimensions[d]; ok {
			shape[i] = od.Len()
		} else {
			shape[i] = v.Shape[i]
		}
	}
	return shape
}

// Slab returns the destination region one granule's copy of a variable
// occupies: the granule's offset range on aggregated axes, the full
// extent on fixed axes.
func (p *Plan) Slab(g *Granule, v *Variable) (start, shape []int) {
	start = make([]int, len(v.Shape))
	shape = make([]int, len(v.Shape))
	for i, d := range v.Dims {
		if od, ok := p.Dimensions[d]; ok {
			begin, end := od.Offsets(g)
			start[i] = begin
			shape[i] = end - begin
		} else {
			shape[i] = v.Shape[i]
		}
	}
	return start, shape
}

// Contribution returns the largest number of values any single granule
// contributes along the dimension, the natural chunk extent for its
// axis. Unaggregated dimensions contribute nothing and report zero.
func (p *Plan) Contribution(dim string) int {
	od, ok := p.Dimensions[dim]
	if !ok {
		return 0
	}
	max := 0
	for _, r := range od.offsets {
		if n := r[1] - r[0]; n > max {
			max = n
		}
	}
	return max
}

// NewPlan classifies every dimension across the granules and merges the
// aggregated ones. A single granule produces an empty plan: nothing is
// merged and the granule is copied as-is.
func NewPlan(granules []*Granule) (*Plan, error) {
	p := &Plan{
		Granules:   granules,
		Dimensions: map[string]*OutputDimension{},
		aggregated: map[string]string{},
	}
	if len(granules) < 2 {
		return p, nil
	}

	inputs, err := readDimensionValues(granules)
	if err != nil {
		return nil, err
	}
	dims := make([]string, 0, len(inputs))
	for d := range inputs {
		dims = append(dims, d)
	}
	sort.Strings(dims)

	for _, dim := range dims {
		class, err := classify(dim, inputs[dim])
		if err != nil {
			return nil, err
		}
		if class == fixedDim {
			if err := checkFixed(dim, inputs[dim]); err != nil {
				return nil, err
			}
			continue
		}
		od, err := mergeDimension(dim, inputs[dim])
		if err != nil {
			return nil, err
		}
		p.Dimensions[dim] = od
		p.aggregated[dim] = dim
		if od.BoundsPath != "" {
			p.aggregated[od.BoundsPath] = dim
		}
	}
	return p, nil
}

// readDimensionValues opens each granule once and reads the coordinate
// values (and bounds, when referenced) of every dimension that has a
// 1-D coordinate variable. Dimensions without coordinate variables are
// checked for size agreement only.
func readDimensionValues(granules []*Granule) (map[string][]*dimValues, error) {
	inputs := map[string][]*dimValues{}
	for _, g := range granules {
		ds, err := g.Open()
		if err != nil {
			return nil, err
		}
		for _, dim := range g.dimensionPaths() {
			cv := g.coordinate(dim)
			if cv == nil || len(cv.Shape) != 1 {
				continue
			}
			raw, err := ds.ReadSlab(dim, 0, -1)
			if err != nil {
				ds.Close()
				return nil, err
			}
			vals, err := decodeFloats(raw, cv.DType)
			if err != nil {
				ds.Close()
				return nil, fmt.Errorf("n2z: coordinate %s in %s: %v", dim, g.Path, err)
			}
			units, _ := attrString(cv.Attrs, "units")
			tu, isTime := parseTimeUnits(units)
			dv := &dimValues{granule: g, values: vals, units: units, time: tu, isTime: isTime}
			if err := readBounds(ds, g, cv, dv); err != nil {
				ds.Close()
				return nil, err
			}
			inputs[dim] = append(inputs[dim], dv)
		}
		ds.Close()
	}
	return inputs, nil
}

// readBounds loads the bounds pairs referenced by the coordinate's
// "bounds" attribute, if the named variable exists in the granule.
func readBounds(ds Dataset, g *Granule, cv *Variable, dv *dimValues) error {
	name, ok := attrString(cv.Attrs, "bounds")
	if !ok {
		return nil
	}
	bpath := name
	if bpath[0] != '/' {
		bpath = childPath(cv.Group(), name)
	}
	bv, ok := g.Variables[bpath]
	if !ok || len(bv.Shape) != 2 || bv.Shape[0] != len(dv.values) || bv.Shape[1] != 2 {
		return nil
	}
	raw, err := ds.ReadSlab(bpath, 0, -1)
	if err != nil {
		return err
	}
	flat, err := decodeFloats(raw, bv.DType)
	if err != nil {
		return fmt.Errorf("n2z: bounds %s in %s: %v", bpath, g.Path, err)
	}
	dv.boundsPath = bpath
	dv.bounds = make([][2]float64, len(dv.values))
	for i := range dv.bounds {
		dv.bounds[i] = [2]float64{flat[i*2], flat[i*2+1]}
	}
	return nil
}

// checkFixed verifies that every granule sees the same extent and, to
// within tolerance, the same coordinate values for a fixed dimension.
func checkFixed(dim string, inputs []*dimValues) error {
	first := inputs[0]
	for _, in := range inputs[1:] {
		if len(in.values) != len(first.values) {
			return &ConsistencyError{
				Dimension: dim,
				File1:     first.granule.Path,
				File2:     in.granule.Path,
				Reason: fmt.Sprintf("fixed dimension sizes differ (%d vs %d)",
					len(first.values), len(in.values)),
			}
		}
		if !floats.EqualApprox(first.values, in.values, fixedTol) {
			return &ConsistencyError{
				Dimension: dim,
				File1:     first.granule.Path,
				File2:     in.granule.Path,
				Reason:    "fixed dimension values differ beyond tolerance",
			}
		}
	}
	return nil
}

// mergeDimension builds the sorted, de-duplicated union of the
// granules' values for one aggregated dimension, rebased to the units
// of the earliest epoch, and records each granule's contiguous offset
// range. Irregular spacing is permitted; it produces non-uniform steps
// and a warning, never a failure.
func mergeDimension(dim string, inputs []*dimValues) (*OutputDimension, error) {
	withBounds := 0
	for _, in := range inputs {
		if in.bounds != nil {
			withBounds++
		}
	}
	if withBounds != 0 && withBounds != len(inputs) {
		return nil, &ConsistencyError{
			Dimension: dim,
			Reason:    "bounds variable present on some granules but not all",
		}
	}

	earliest := inputs[0]
	for _, in := range inputs[1:] {
		if in.time.Epoch.Before(earliest.time.Epoch) {
			earliest = in
		}
	}
	out := &OutputDimension{
		Path:    dim,
		Units:   earliest.units,
		Time:    earliest.time,
		offsets: map[string][2]int{},
	}

	// Convert every granule's values (and bounds) to the output frame,
	// then scale everything by one power of ten so coordinate identity
	// is an exact integer comparison.
	converted := make([][]float64, len(inputs))
	convertedBounds := make([][][2]float64, len(inputs))
	var all []float64
	for i, in := range inputs {
		converted[i] = in.inUnits(out.Time)
		all = append(all, converted[i]...)
		if in.bounds != nil {
			cb := make([][2]float64, len(in.bounds))
			for j, b := range in.bounds {
				pair := in.inUnits2(b, out.Time)
				cb[j] = pair
				all = append(all, pair[0], pair[1])
			}
			convertedBounds[i] = cb
		}
	}
	_, scale := scaleToIntegers(all)
	key := func(v float64) int64 { return int64(math.Round(v * scale)) }

	type entry struct {
		value  float64
		bounds [2]float64
		has    bool
		owner  string
	}
	merged := map[int64]*entry{}
	for i, in := range inputs {
		for j, v := range converted[i] {
			k := key(v)
			e, ok := merged[k]
			if !ok {
				e = &entry{value: v, owner: in.granule.Path}
				merged[k] = e
			}
			if convertedBounds[i] != nil {
				b := convertedBounds[i][j]
				if e.has && (key(e.bounds[0]) != key(b[0]) || key(e.bounds[1]) != key(b[1])) {
					return nil, &ConsistencyError{
						Dimension: dim,
						File1:     e.owner,
						File2:     in.granule.Path,
						Reason:    fmt.Sprintf("coordinate value %v claimed with different bounds", v),
					}
				}
				e.bounds = b
				e.has = true
			}
		}
	}

	keys := make([]int64, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	index := make(map[int64]int, len(keys))
	out.Values = make([]float64, len(keys))
	if withBounds > 0 {
		out.Bounds = make([][2]float64, len(keys))
		out.BoundsPath = inputs[0].boundsPath
	}
	for i, k := range keys {
		index[k] = i
		out.Values[i] = merged[k].value
		if out.Bounds != nil {
			out.Bounds[i] = merged[k].bounds
		}
	}

	for i, in := range inputs {
		lo, hi := len(keys), -1
		for _, v := range converted[i] {
			pos := index[key(v)]
			if pos < lo {
				lo = pos
			}
			if pos > hi {
				hi = pos
			}
		}
		if len(converted[i]) == 0 {
			return nil, &ConsistencyError{
				Dimension: dim,
				File1:     in.granule.Path,
				Reason:    "granule contributes no coordinate values",
			}
		}
		if hi-lo+1 != len(converted[i]) {
			return nil, &ConsistencyError{
				Dimension: dim,
				File1:     in.granule.Path,
				Reason:    "granule values are not contiguous in the merged sequence",
			}
		}
		out.offsets[in.granule.Path] = [2]int{lo, hi + 1}
	}

	warnOnGaps(dim, out.Values, scale)
	return out, nil
}

// warnOnGaps logs when merged values deviate from the modal step.
// Large temporal gaps are valid output; the warning is for operators.
func warnOnGaps(dim string, values []float64, scale float64) {
	if len(values) < 3 {
		return
	}
	steps := map[int64]int{}
	diffs := make([]int64, len(values)-1)
	for i := 1; i < len(values); i++ {
		d := int64(math.Round((values[i] - values[i-1]) * scale))
		diffs[i-1] = d
		steps[d]++
	}
	var modal int64
	best := 0
	for d, n := range steps {
		if n > best || (n == best && d < modal) {
			modal, best = d, n
		}
	}
	for i, d := range diffs {
		if d != modal {
			log.Printf("n2z: dimension %s has irregular spacing near index %d "+
				"(step %v, modal %v)", dim, i+1, float64(d)/scale, float64(modal)/scale)
			return
		}
	}
}

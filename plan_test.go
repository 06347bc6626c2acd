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
	"errors"
	"path/filepath"
	"reflect"
	"testing"
)

func TestNewPlanSingleGranule(t *testing.T) {
	dir := t.TempDir()
	g := readGranules(t, makeGranule(t, dir, "a.nc", []float64{0, 1},
		"minutes since 2020-01-01 00:00:00", nil))
	plan, err := NewPlan(g)
	if err != nil {
		t.Fatal(err)
	}
	if len(plan.Dimensions) != 0 {
		t.Errorf("single granule aggregated %d dimensions, want 0", len(plan.Dimensions))
	}
	if _, ok := plan.Aggregated("/time"); ok {
		t.Error("single granule should not aggregate /time")
	}
}

func TestNewPlanDisjointUnion(t *testing.T) {
	dir := t.TempDir()
	gs := readGranules(t,
		makeGranule(t, dir, "a.nc", []float64{0, 1}, "minutes since 2020-01-01 00:00:00", nil),
		makeGranule(t, dir, "b.nc", []float64{0, 1}, "minutes since 2020-01-01 00:02:00", nil),
	)
	plan, err := NewPlan(gs)
	if err != nil {
		t.Fatal(err)
	}
	od, ok := plan.Aggregated("/time")
	if !ok {
		t.Fatal("/time not aggregated")
	}
	if !reflect.DeepEqual(od.Values, []float64{0, 1, 2, 3}) {
		t.Errorf("merged values = %v, want [0 1 2 3]", od.Values)
	}
	if od.Units != "minutes since 2020-01-01 00:00:00" {
		t.Errorf("units = %q, want the earliest epoch's units", od.Units)
	}
	if b, e := od.Offsets(gs[0]); b != 0 || e != 2 {
		t.Errorf("granule a offsets = [%d, %d), want [0, 2)", b, e)
	}
	if b, e := od.Offsets(gs[1]); b != 2 || e != 4 {
		t.Errorf("granule b offsets = [%d, %d), want [2, 4)", b, e)
	}
	if n := plan.Contribution("/time"); n != 2 {
		t.Errorf("contribution = %d, want 2", n)
	}
	if _, ok := plan.Aggregated("/lat"); ok {
		t.Error("/lat should stay fixed")
	}

	pr := gs[0].Variables["/pr"]
	if got := plan.OutputShape(pr); !reflect.DeepEqual(got, []int{4, 3}) {
		t.Errorf("output shape = %v, want [4 3]", got)
	}
	start, shape := plan.Slab(gs[1], pr)
	if !reflect.DeepEqual(start, []int{2, 0}) || !reflect.DeepEqual(shape, []int{2, 3}) {
		t.Errorf("slab = %v %v, want [2 0] [2 3]", start, shape)
	}
}

func TestNewPlanOverlapDeduplicates(t *testing.T) {
	dir := t.TempDir()
	gs := readGranules(t,
		makeGranule(t, dir, "a.nc", []float64{0, 1, 2}, "minutes since 2020-01-01 00:00:00", nil),
		makeGranule(t, dir, "b.nc", []float64{0, 1, 2}, "minutes since 2020-01-01 00:01:00", nil),
	)
	plan, err := NewPlan(gs)
	if err != nil {
		t.Fatal(err)
	}
	od := plan.Dimensions["/time"]
	if !reflect.DeepEqual(od.Values, []float64{0, 1, 2, 3}) {
		t.Errorf("merged values = %v, want [0 1 2 3]", od.Values)
	}
	if b, e := od.Offsets(gs[0]); b != 0 || e != 3 {
		t.Errorf("granule a offsets = [%d, %d), want [0, 3)", b, e)
	}
	if b, e := od.Offsets(gs[1]); b != 1 || e != 4 {
		t.Errorf("granule b offsets = [%d, %d), want [1, 4)", b, e)
	}
}

func TestNewPlanIrregularSpacing(t *testing.T) {
	// Gaps in the merged sequence are valid output, never a failure.
	dir := t.TempDir()
	units := "minutes since 2020-01-01 00:00:00"
	gs := readGranules(t,
		makeGranule(t, dir, "a.nc", []float64{0}, units, nil),
		makeGranule(t, dir, "b.nc", []float64{30}, units, nil),
		makeGranule(t, dir, "c.nc", []float64{90}, units, nil),
	)
	plan, err := NewPlan(gs)
	if err != nil {
		t.Fatal(err)
	}
	od := plan.Dimensions["/time"]
	if !reflect.DeepEqual(od.Values, []float64{0, 30, 90}) {
		t.Errorf("merged values = %v, want [0 30 90]", od.Values)
	}
	if od.Len() != 3 {
		t.Errorf("merged length = %d, want 3", od.Len())
	}
}

func TestNewPlanEpochRebasing(t *testing.T) {
	// Different units and epochs reconcile onto the earliest epoch.
	dir := t.TempDir()
	gs := readGranules(t,
		makeGranule(t, dir, "a.nc", []float64{0, 30}, "seconds since 2020-01-01 00:01:00", nil),
		makeGranule(t, dir, "b.nc", []float64{2, 3}, "minutes since 2020-01-01 00:00:00", nil),
	)
	plan, err := NewPlan(gs)
	if err != nil {
		t.Fatal(err)
	}
	od := plan.Dimensions["/time"]
	if od.Units != "minutes since 2020-01-01 00:00:00" {
		t.Errorf("units = %q, want the earlier epoch's", od.Units)
	}
	if !reflect.DeepEqual(od.Values, []float64{1, 1.5, 2, 3}) {
		t.Errorf("merged values = %v, want [1 1.5 2 3]", od.Values)
	}
}

func TestNewPlanFixedMismatch(t *testing.T) {
	dir := t.TempDir()
	units := "minutes since 2020-01-01 00:00:00"
	a := makeGranule(t, dir, "a.nc", []float64{0}, units, nil)
	b := writeClassic(t, filepath.Join(dir, "b.nc"),
		[]string{"time", "lat"}, []int{1, 3},
		nil,
		[]fxVar{
			{name: "time", dims: []string{"time"}, data: []float64{5},
				attrs: []fxAttr{{"units", units}}},
			{name: "lat", dims: []string{"lat"}, data: []float64{-30, 0, 31},
				attrs: []fxAttr{{"units", "degrees_north"}}},
			{name: "pr", dims: []string{"time", "lat"}, data: make([]float32, 3)},
		})
	_, err := NewPlan(readGranules(t, a, b))
	var cerr *ConsistencyError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected ConsistencyError, got %v", err)
	}
	if cerr.Dimension != "/lat" {
		t.Errorf("dimension = %q, want /lat", cerr.Dimension)
	}
}

func TestNewPlanMixedUnits(t *testing.T) {
	dir := t.TempDir()
	a := makeGranule(t, dir, "a.nc", []float64{0}, "minutes since 2020-01-01 00:00:00", nil)
	b := makeGranule(t, dir, "b.nc", []float64{0}, "level", nil)
	_, err := NewPlan(readGranules(t, a, b))
	var cerr *ConsistencyError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected ConsistencyError, got %v", err)
	}
	if cerr.Dimension != "/time" {
		t.Errorf("dimension = %q, want /time", cerr.Dimension)
	}
}

func boundedGranule(t *testing.T, dir, name string, tvals []float64, units string, bnds []float64) string {
	t.Helper()
	return writeClassic(t, filepath.Join(dir, name),
		[]string{"time", "nv"}, []int{len(tvals), 2},
		nil,
		[]fxVar{
			{name: "time", dims: []string{"time"}, data: tvals,
				attrs: []fxAttr{{"units", units}, {"bounds", "time_bnds"}}},
			{name: "time_bnds", dims: []string{"time", "nv"}, data: bnds},
		})
}

func TestNewPlanMergesBounds(t *testing.T) {
	dir := t.TempDir()
	units := "minutes since 2020-01-01 00:00:00"
	gs := readGranules(t,
		boundedGranule(t, dir, "a.nc", []float64{0, 1}, units, []float64{-0.5, 0.5, 0.5, 1.5}),
		boundedGranule(t, dir, "b.nc", []float64{2, 3}, units, []float64{1.5, 2.5, 2.5, 3.5}),
	)
	plan, err := NewPlan(gs)
	if err != nil {
		t.Fatal(err)
	}
	od := plan.Dimensions["/time"]
	if od.BoundsPath != "/time_bnds" {
		t.Fatalf("bounds path = %q, want /time_bnds", od.BoundsPath)
	}
	want := [][2]float64{{-0.5, 0.5}, {0.5, 1.5}, {1.5, 2.5}, {2.5, 3.5}}
	if !reflect.DeepEqual(od.Bounds, want) {
		t.Errorf("merged bounds = %v, want %v", od.Bounds, want)
	}
	if _, ok := plan.Aggregated("/time_bnds"); !ok {
		t.Error("/time_bnds should aggregate with its dimension")
	}
}

func TestNewPlanPartialBounds(t *testing.T) {
	dir := t.TempDir()
	units := "minutes since 2020-01-01 00:00:00"
	a := boundedGranule(t, dir, "a.nc", []float64{0, 1}, units, []float64{-0.5, 0.5, 0.5, 1.5})
	b := makeGranule(t, dir, "b.nc", []float64{2, 3}, units, nil)
	_, err := NewPlan(readGranules(t, a, b))
	var cerr *ConsistencyError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected ConsistencyError, got %v", err)
	}
}

func TestNewPlanConflictingBounds(t *testing.T) {
	// The same coordinate value claimed with different bounds cannot be
	// merged.
	dir := t.TempDir()
	units := "minutes since 2020-01-01 00:00:00"
	gs := readGranules(t,
		boundedGranule(t, dir, "a.nc", []float64{0, 1}, units, []float64{-0.5, 0.5, 0.5, 1.5}),
		boundedGranule(t, dir, "b.nc", []float64{1, 2}, units, []float64{0.75, 1.25, 1.75, 2.25}),
	)
	_, err := NewPlan(gs)
	var cerr *ConsistencyError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected ConsistencyError, got %v", err)
	}
}

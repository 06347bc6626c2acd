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
	"reflect"
	"testing"
	"time"
)

func TestParseTimeUnits(t *testing.T) {
	tests := []struct {
		units string
		scale float64
		epoch string
		ok    bool
	}{
		{units: "seconds since 2000-01-01", scale: 1, epoch: "2000-01-01T00:00:00Z", ok: true},
		{units: "minutes since 2020-01-01 06:30:00", scale: 60, epoch: "2020-01-01T06:30:00Z", ok: true},
		{units: "hours since 2000-01-02T03:04:05Z", scale: 3600, epoch: "2000-01-02T03:04:05Z", ok: true},
		{units: "hours since 2000-01-02T03:04:05.5", scale: 3600, epoch: "2000-01-02T03:04:05.5Z", ok: true},
		{units: "days since 2000-01-01 00:00:00 -0700", scale: 86400, epoch: "2000-01-01T07:00:00Z", ok: true},
		{units: "d since 1980-01-06", scale: 86400, epoch: "1980-01-06T00:00:00Z", ok: true},
		{units: "degrees_north"},
		{units: "fortnights since 2000-01-01"},
		{units: "seconds since the epoch"},
		{units: "since 2000-01-01"},
	}
	for _, test := range tests {
		t.Run(test.units, func(t *testing.T) {
			tu, ok := parseTimeUnits(test.units)
			if ok != test.ok {
				t.Fatalf("parseTimeUnits(%q) ok = %v, want %v", test.units, ok, test.ok)
			}
			if !ok {
				return
			}
			if tu.Scale != test.scale {
				t.Errorf("scale = %v, want %v", tu.Scale, test.scale)
			}
			want, err := time.Parse(time.RFC3339Nano, test.epoch)
			if err != nil {
				t.Fatal(err)
			}
			if !tu.Epoch.Equal(want) {
				t.Errorf("epoch = %v, want %v", tu.Epoch, want)
			}
		})
	}
}

func TestInUnits(t *testing.T) {
	// One hour of offset between epochs: seconds in the source frame
	// become minutes past the later origin.
	src, _ := parseTimeUnits("seconds since 2000-01-01T01:00:00")
	dst, _ := parseTimeUnits("minutes since 2000-01-01T00:00:00")
	dv := &dimValues{values: []float64{0, 60, 120}, time: src, isTime: true}
	got := dv.inUnits(dst)
	want := []float64{60, 61, 62}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}

	pair := dv.inUnits2([2]float64{0, 60}, dst)
	if pair != [2]float64{60, 61} {
		t.Errorf("bounds pair = %v, want [60 61]", pair)
	}

	fixed := &dimValues{values: []float64{1, 2}}
	if got := fixed.inUnits(dst); !reflect.DeepEqual(got, []float64{1, 2}) {
		t.Errorf("non-temporal values changed: %v", got)
	}
}

func TestClassify(t *testing.T) {
	tu, _ := parseTimeUnits("hours since 2020-01-01")
	temporal := &dimValues{time: tu, isTime: true}
	spatial := &dimValues{}

	tests := []struct {
		name   string
		inputs []*dimValues
		want   dimClass
		err    bool
	}{
		{name: "all temporal", inputs: []*dimValues{temporal, temporal}, want: aggregateDim},
		{name: "none temporal", inputs: []*dimValues{spatial, spatial}, want: fixedDim},
		{name: "single granule", inputs: []*dimValues{temporal}, want: fixedDim},
		{name: "mixed", inputs: []*dimValues{temporal, spatial}, err: true},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			class, err := classify("/time", test.inputs)
			if test.err {
				var cerr *ConsistencyError
				if !errors.As(err, &cerr) {
					t.Fatalf("expected ConsistencyError, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if class != test.want {
				t.Errorf("class = %v, want %v", class, test.want)
			}
		})
	}
}

func TestScaleToIntegers(t *testing.T) {
	tests := []struct {
		values []float64
		want   []int64
		scale  float64
	}{
		{values: []float64{0, 30, 90}, want: []int64{0, 30, 90}, scale: 1},
		{values: []float64{1.5, 2.25}, want: []int64{150, 225}, scale: 100},
		{values: []float64{-0.5, 0.5}, want: []int64{-5, 5}, scale: 10},
	}
	for _, test := range tests {
		scaled, scale := scaleToIntegers(test.values)
		if scale != test.scale {
			t.Errorf("scaleToIntegers(%v) scale = %v, want %v", test.values, scale, test.scale)
		}
		if !reflect.DeepEqual(scaled, test.want) {
			t.Errorf("scaleToIntegers(%v) = %v, want %v", test.values, scaled, test.want)
		}
	}
}

func TestResolution(t *testing.T) {
	tests := []struct {
		values []float64
		want   float64
	}{
		{values: []float64{0, 30, 90}, want: 30},
		{values: []float64{0, 0.5, 2}, want: 0.5},
		{values: []float64{7, 7, 7}, want: 0},
		{values: nil, want: 0},
	}
	for _, test := range tests {
		if got := resolution(test.values); got != test.want {
			t.Errorf("resolution(%v) = %v, want %v", test.values, got, test.want)
		}
	}
}

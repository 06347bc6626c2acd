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
	"math"
	"strings"
	"time"
)

// dimClass says whether a dimension must be identical across granules
// or is merged along its axis.
type dimClass uint8

const (
	// fixedDim dimensions must have identical size and values, within
	// tolerance, in every granule.
	fixedDim dimClass = iota
	// aggregateDim dimensions have per-granule values that are merged
	// into one sorted output sequence.
	aggregateDim
)

// fixedTol is the relative tolerance used when comparing coordinate
// values of fixed dimensions, absorbing float round-trip error.
const fixedTol = 1e-6

// timeUnits is a parsed CF-convention temporal units attribute of the
// form "<unit> since <epoch>".
type timeUnits struct {
	Scale float64 // seconds per unit
	Epoch time.Time
}

var timeUnitSeconds = map[string]float64{
	"seconds": 1, "second": 1, "secs": 1, "sec": 1, "s": 1,
	"minutes": 60, "minute": 60, "mins": 60, "min": 60,
	"hours": 3600, "hour": 3600, "hrs": 3600, "hr": 3600, "h": 3600,
	"days": 86400, "day": 86400, "d": 86400,
}

var epochLayouts = []string{
	"2006-01-02T15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999 -07:00",
	"2006-01-02 15:04:05.999999999 -0700",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// parseTimeUnits parses a units attribute such as
// "seconds since 2000-01-02T03:04:05". Epochs without a zone are UTC.
func parseTimeUnits(units string) (timeUnits, bool) {
	i := strings.Index(units, " since ")
	if i < 0 {
		return timeUnits{}, false
	}
	unit := strings.TrimSpace(units[:i])
	epoch := strings.TrimSpace(units[i+len(" since "):])
	scale, ok := timeUnitSeconds[unit]
	if !ok {
		return timeUnits{}, false
	}
	for _, layout := range epochLayouts {
		if t, err := time.Parse(layout, epoch); err == nil {
			return timeUnits{Scale: scale, Epoch: t.UTC()}, true
		}
	}
	return timeUnits{}, false
}

// dimValues is one granule's view of one dimension: its coordinate
// values and, when the units attribute parses as temporal, the unit
// scale and epoch.
type dimValues struct {
	granule *Granule
	values  []float64
	units   string
	time    timeUnits
	isTime  bool

	boundsPath string
	bounds     [][2]float64
}

func (d *dimValues) temporal() bool { return d.isTime }

// inUnits converts the granule's values to another temporal reference
// frame. Non-temporal values pass through unchanged.
func (d *dimValues) inUnits(out timeUnits) []float64 {
	if !d.isTime {
		return d.values
	}
	shift := d.time.Epoch.Sub(out.Epoch).Seconds()
	converted := make([]float64, len(d.values))
	for i, v := range d.values {
		converted[i] = (v*d.time.Scale + shift) / out.Scale
	}
	return converted
}

// inUnits2 converts one bounds pair to another temporal frame, the
// same transform inUnits applies elementwise.
func (d *dimValues) inUnits2(pair [2]float64, out timeUnits) [2]float64 {
	if !d.isTime {
		return pair
	}
	shift := d.time.Epoch.Sub(out.Epoch).Seconds()
	return [2]float64{
		(pair[0]*d.time.Scale + shift) / out.Scale,
		(pair[1]*d.time.Scale + shift) / out.Scale,
	}
}

// classify decides the class of one dimension from every granule's view
// of it. A dimension aggregates only when every contributing granule
// declares temporal units and more than one granule is present; a
// single-granule job aggregates nothing. Mixed temporal and
// non-temporal units for one dimension cannot be reconciled.
func classify(dim string, inputs []*dimValues) (dimClass, error) {
	if len(inputs) < 2 {
		return fixedDim, nil
	}
	temporal := 0
	for _, in := range inputs {
		if in.temporal() {
			temporal++
		}
	}
	switch temporal {
	case len(inputs):
		return aggregateDim, nil
	case 0:
		return fixedDim, nil
	}
	return fixedDim, &ConsistencyError{
		Dimension: dim,
		Reason:    "mixed temporal and non-temporal units across granules",
	}
}

// scaleToIntegers multiplies the values by the power of ten that makes
// them all integral, so they can be compared and divided exactly. The
// scale is capped at 1e10, beyond sub-nanosecond temporal resolution.
func scaleToIntegers(values []float64) ([]int64, float64) {
	scale := 1.0
	for ; scale < 1e10; scale *= 10 {
		integral := true
		for _, v := range values {
			s := v * scale
			if s != math.Trunc(s) {
				integral = false
				break
			}
		}
		if integral {
			break
		}
	}
	out := make([]int64, len(values))
	for i, v := range values {
		out[i] = int64(math.Round(v * scale))
	}
	return out, scale
}

// resolution returns the greatest common divisor of the differences
// between the smallest value and all others, the finest spacing
// observed in the sequence. Zero means all values coincide.
func resolution(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	min := values[0]
	for _, v := range values {
		if v < min {
			min = v
		}
	}
	var diffs []float64
	for _, v := range values {
		if v != min {
			diffs = append(diffs, v-min)
		}
	}
	if len(diffs) == 0 {
		return 0
	}
	scaled, scale := scaleToIntegers(diffs)
	g := scaled[0]
	for _, d := range scaled[1:] {
		g = gcd64(g, d)
	}
	return float64(g) / scale
}

func gcd64(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	if a < 0 {
		return -a
	}
	return a
}

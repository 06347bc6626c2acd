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

import "fmt"

// FormatError indicates an input file that could not be opened as a
// supported gridded array format.
type FormatError struct {
	Path string
	Err  error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("n2z: unsupported input format %s: %v", e.Path, e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }

// ConsistencyError indicates that the input granules disagree in a way
// that prevents aggregation: a fixed dimension with mismatched sizes or
// values, mixed temporal and non-temporal units for one dimension, or
// ambiguous placement of a coordinate value.
type ConsistencyError struct {
	Dimension string
	// File1 and File2 identify the two conflicting granules, when the
	// conflict is between a specific pair.
	File1, File2 string
	Reason       string
}

func (e *ConsistencyError) Error() string {
	if e.File1 != "" && e.File2 != "" {
		return fmt.Sprintf("n2z: dimension %s: %s (between %s and %s)",
			e.Dimension, e.Reason, e.File1, e.File2)
	}
	return fmt.Sprintf("n2z: dimension %s: %s", e.Dimension, e.Reason)
}

// CapacityError indicates that no chunk shape can satisfy the
// configured byte bounds for a variable.
type CapacityError struct {
	Variable string
	Bytes    int
	Min, Max int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("n2z: chunk size %d bytes for %s outside bounds [%d, %d]",
		e.Bytes, e.Variable, e.Min, e.Max)
}

// WriteFailure indicates an I/O or shape fault while copying one
// granule into the output store.
type WriteFailure struct {
	File     string
	Variable string
	Err      error
}

func (e *WriteFailure) Error() string {
	if e.Variable != "" {
		return fmt.Sprintf("n2z: writing %s from %s: %v", e.Variable, e.File, e.Err)
	}
	return fmt.Sprintf("n2z: writing %s: %v", e.File, e.Err)
}

func (e *WriteFailure) Unwrap() error { return e.Err }

// WorkerFailure indicates that a parallel writer task terminated
// abnormally. The whole job fails; partially aggregated output is never
// published.
type WorkerFailure struct {
	File string
	Err  error
}

func (e *WorkerFailure) Error() string {
	return fmt.Sprintf("n2z: worker for %s failed: %v", e.File, e.Err)
}

func (e *WorkerFailure) Unwrap() error { return e.Err }

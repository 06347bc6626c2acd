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

package zarr

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Format is the Zarr storage specification version this package writes.
const Format = 2

// Keys for the metadata documents stored alongside array chunks.
const (
	ArrayKey        = ".zarray"
	GroupKey        = ".zgroup"
	AttrsKey        = ".zattrs"
	ConsolidatedKey = ".zmetadata"
)

// ArrayMeta is the essential configuration metadata for one array,
// stored as the value of the ".zarray" key within a store.
type ArrayMeta struct {
	ZarrFormat int `json:"zarr_format"`
	// Shape is the length of each dimension of the array.
	Shape []int `json:"shape"`
	// Chunks is the length of each dimension of a chunk of the array.
	// All chunks within an array have the same shape.
	Chunks []int `json:"chunks"`
	DType  DType `json:"dtype"`
	// Compressor identifies the primary compression codec, or is null
	// if no compressor is to be used.
	Compressor *CompressorMeta `json:"compressor"`
	// FillValue provides the default value for uninitialized portions
	// of the array, or is null if no fill value is to be used.
	FillValue interface{} `json:"fill_value"`
	// Order is either "C" (row-major) or "F" (column-major).
	Order   string            `json:"order"`
	Filters []json.RawMessage `json:"filters"`
}

// GroupMeta is the value of a ".zgroup" key.
type GroupMeta struct {
	ZarrFormat int `json:"zarr_format"`
}

// Attributes holds userland metadata for a group or array.
type Attributes map[string]interface{}

// ConsolidatedMetadata is the ".zmetadata" document: every metadata
// document in the store gathered into one key so readers can avoid
// listing the store.
type ConsolidatedMetadata struct {
	ConsolidatedFormat int                        `json:"zarr_consolidated_format"`
	Metadata           map[string]json.RawMessage `json:"metadata"`
}

// ChunkKey returns the store key for the chunk with the given indices,
// relative to the array path. Indices are joined with ".", so the chunk
// at indices [1 4] is stored under key "1.4". A zero-dimensional array
// has the single chunk key "0".
func ChunkKey(indices []int) string {
	if len(indices) == 0 {
		return "0"
	}
	parts := make([]string, len(indices))
	for i, idx := range indices {
		parts[i] = strconv.Itoa(idx)
	}
	return strings.Join(parts, ".")
}

// NumChunks returns the chunk grid size along each dimension.
func NumChunks(shape, chunks []int) []int {
	n := make([]int, len(shape))
	for i := range shape {
		n[i] = (shape[i] + chunks[i] - 1) / chunks[i]
	}
	return n
}

func (m *ArrayMeta) check() error {
	if len(m.Shape) != len(m.Chunks) {
		return fmt.Errorf("zarr: shape %v and chunks %v have different ranks", m.Shape, m.Chunks)
	}
	for i := range m.Shape {
		if m.Chunks[i] < 1 || (m.Shape[i] > 0 && m.Chunks[i] > m.Shape[i]) {
			return fmt.Errorf("zarr: chunk extent %d invalid for dimension of size %d", m.Chunks[i], m.Shape[i])
		}
	}
	if m.Order != "C" {
		return fmt.Errorf("zarr: unsupported order %q", m.Order)
	}
	return nil
}

// numElements returns the total number of elements in a shape.
func numElements(shape []int) int {
	n := 1
	for _, s := range shape {
		n *= s
	}
	return n
}

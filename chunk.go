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
)

// ChunkConfig bounds the uncompressed byte size of output chunks.
// TargetBytes is the goal; MinBytes guards against chunk-count
// overhead, MaxBytes bounds peak decompression memory. When the two
// conflict, MaxBytes wins.
type ChunkConfig struct {
	TargetBytes int
	MinBytes    int
	MaxBytes    int
}

// DefaultChunkConfig targets 10 MiB compressed chunks at an assumed
// 1.5:1 compression ratio.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		TargetBytes: 15 << 20,
		MinBytes:    1 << 20,
		MaxBytes:    64 << 20,
	}
}

func (c ChunkConfig) validate() error {
	if c.TargetBytes < 1 || c.MinBytes < 1 || c.MaxBytes < 1 {
		return fmt.Errorf("n2z: chunk byte bounds must be positive")
	}
	if c.MinBytes > c.MaxBytes {
		return fmt.Errorf("n2z: minimum chunk size %d exceeds maximum %d", c.MinBytes, c.MaxBytes)
	}
	return nil
}

// Shape computes the chunk shape for one output variable. aggregate
// marks the axes whose values were merged across granules; those are
// chunked at contribution (one granule's extent, commonly 1) so chunk
// boundaries align with granule boundaries and concurrent writers
// rarely share a chunk. Fixed axes fill the remaining byte budget with
// near-equal sides, keeping axes smaller than the computed side whole
// and splitting only the large ones. The function is pure: every
// worker derives the same shape independently from the same inputs.
func (c ChunkConfig) Shape(variable string, shape []int, itemSize int, aggregate []bool, contribution []int) ([]int, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}
	if len(shape) == 0 {
		return []int{}, nil
	}
	if itemSize < 1 {
		return nil, fmt.Errorf("n2z: item size %d for %s", itemSize, variable)
	}

	chunks := make([]int, len(shape))
	budget := c.TargetBytes / itemSize
	if budget < 1 {
		budget = 1
	}
	for i := range shape {
		if shape[i] < 1 {
			return nil, fmt.Errorf("n2z: zero-length axis %d for %s", i, variable)
		}
		if !aggregate[i] {
			continue
		}
		n := contribution[i]
		if n < 1 {
			n = 1
		}
		if n > shape[i] {
			n = shape[i]
		}
		chunks[i] = n
		budget /= n
		if budget < 1 {
			budget = 1
		}
	}

	fillFixedAxes(shape, aggregate, chunks, budget)

	bytes := itemSize
	for _, n := range chunks {
		bytes *= n
	}
	for bytes < c.MinBytes {
		if !grow(shape, aggregate, chunks, bytes, c.MaxBytes) {
			break
		}
		bytes = itemSize
		for _, n := range chunks {
			bytes *= n
		}
	}
	for bytes > c.MaxBytes {
		if !shrink(aggregate, chunks) {
			return nil, &CapacityError{Variable: variable, Bytes: bytes, Min: c.MinBytes, Max: c.MaxBytes}
		}
		bytes = itemSize
		for _, n := range chunks {
			bytes *= n
		}
	}
	return chunks, nil
}

// fillFixedAxes distributes the element budget over the unset (fixed)
// axes with near-equal sides. Axes smaller than the equal side are
// kept whole and the freed budget is redistributed over the rest.
func fillFixedAxes(shape []int, aggregate []bool, chunks []int, budget int) {
	open := 0
	for i := range shape {
		if !aggregate[i] {
			open++
		}
	}
	for open > 0 {
		side := int(math.Pow(float64(budget), 1/float64(open)))
		if side < 1 {
			side = 1
		}
		fitsAll := true
		for i := range shape {
			if aggregate[i] || chunks[i] != 0 {
				continue
			}
			if shape[i] < side {
				fitsAll = false
			}
		}
		if fitsAll {
			for i := range shape {
				if !aggregate[i] && chunks[i] == 0 {
					chunks[i] = side
				}
			}
			return
		}
		for i := range shape {
			if aggregate[i] || chunks[i] != 0 || shape[i] >= side {
				continue
			}
			chunks[i] = shape[i]
			budget /= shape[i]
			if budget < 1 {
				budget = 1
			}
			open--
		}
	}
}

// grow doubles the smallest fixed chunk axis that is not yet whole,
// without pushing the chunk past maxBytes. Aggregate axes are left
// alone so chunk boundaries stay aligned with granule contributions.
// Reports whether anything grew.
func grow(shape []int, aggregate []bool, chunks []int, bytes, maxBytes int) bool {
	best := -1
	for i := range chunks {
		if aggregate[i] || chunks[i] >= shape[i] {
			continue
		}
		if best < 0 || chunks[i] < chunks[best] {
			best = i
		}
	}
	if best < 0 {
		return false
	}
	next := chunks[best] * 2
	if next > shape[best] {
		next = shape[best]
	}
	if bytes/chunks[best]*next > maxBytes {
		return false
	}
	chunks[best] = next
	return true
}

// shrink halves the largest divisible chunk axis, preferring fixed
// axes and touching aggregate ones only when nothing else can give.
// Reports whether anything shrank.
func shrink(aggregate []bool, chunks []int) bool {
	best := -1
	for pass := 0; pass < 2 && best < 0; pass++ {
		for i := range chunks {
			if chunks[i] < 2 {
				continue
			}
			if pass == 0 && aggregate[i] {
				continue
			}
			if best < 0 || chunks[i] > chunks[best] {
				best = i
			}
		}
	}
	if best < 0 {
		return false
	}
	chunks[best] = (chunks[best] + 1) / 2
	return true
}

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
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
)

// Array is one chunked N-dimensional array within a store. The shape and
// chunk layout are fixed at creation; writers only populate data
// regions, they never resize.
type Array struct {
	store Store
	path  string
	sync  *Synchronizer
	meta  *ArrayMeta
}

// OpenArray opens an existing array at the given logical path.
func OpenArray(store Store, path string) (*Array, error) {
	d, err := store.Get(joinPath(path, ArrayKey))
	if err != nil {
		return nil, fmt.Errorf("zarr: opening array %q: %w", path, err)
	}
	meta := &ArrayMeta{}
	if err := json.Unmarshal(d, meta); err != nil {
		return nil, fmt.Errorf("zarr: reading %q metadata: %v", path, err)
	}
	return &Array{store: store, path: path, meta: meta}, nil
}

// RequireArray returns the array with the given name in g, creating it
// if it does not exist. If the array already exists its shape, chunks
// and dtype must match meta; the existing metadata wins otherwise an
// error is returned. Creation happens under the group's synchronizer so
// concurrent writers converge on one array.
func (g *Group) RequireArray(name string, meta ArrayMeta) (*Array, error) {
	path := g.key(name)
	meta.ZarrFormat = Format
	if meta.Order == "" {
		meta.Order = "C"
	}
	if err := meta.check(); err != nil {
		return nil, err
	}
	g.lock()
	defer g.unlock()
	key := joinPath(path, ArrayKey)
	if d, err := g.store.Get(key); err == nil {
		existing := &ArrayMeta{}
		if err := json.Unmarshal(d, existing); err != nil {
			return nil, fmt.Errorf("zarr: reading %q metadata: %v", path, err)
		}
		if !reflect.DeepEqual(existing.Shape, meta.Shape) ||
			!reflect.DeepEqual(existing.Chunks, meta.Chunks) ||
			existing.DType != meta.DType {
			return nil, fmt.Errorf("zarr: array %q already exists with incompatible metadata", path)
		}
		return &Array{store: g.store, path: path, sync: g.sync, meta: existing}, nil
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	d, err := json.Marshal(&meta)
	if err != nil {
		return nil, err
	}
	if err := g.store.Put(key, d); err != nil {
		return nil, err
	}
	return &Array{store: g.store, path: path, sync: g.sync, meta: &meta}, nil
}

// Path returns the logical path of the array within the store.
func (a *Array) Path() string { return a.path }

// Meta returns the array's metadata. The caller must not mutate it.
func (a *Array) Meta() *ArrayMeta { return a.meta }

// Shape returns the full extent of each dimension.
func (a *Array) Shape() []int { return a.meta.Shape }

// Chunks returns the chunk extent of each dimension.
func (a *Array) Chunks() []int { return a.meta.Chunks }

// DType returns the array's data type.
func (a *Array) DType() DType { return a.meta.DType }

// MergeAttrs adds attributes to the array without overwriting ones
// already stored.
func (a *Array) MergeAttrs(attrs Attributes) error {
	if a.sync != nil {
		a.sync.Lock()
		defer a.sync.Unlock()
	}
	return mergeAttrs(a.store, a.path, attrs)
}

// Attrs returns the array's attributes.
func (a *Array) Attrs() (Attributes, error) {
	return readAttrs(a.store, a.path)
}

// SetSlice writes a hyperslab of raw values into the array. start gives
// the origin of the slab in array coordinates, shape its extent, and
// data its elements in C order, len(data) == product(shape)*itemsize.
//
// A chunk the slab fully covers has a single writer and no prior
// content worth keeping, so it is written directly. A partially covered
// chunk is read, modified and rewritten under the array's synchronizer,
// so concurrent writers sharing a boundary chunk do not lose updates.
func (a *Array) SetSlice(start, shape []int, data []byte) error {
	itemSize := a.meta.DType.ItemSize()
	if err := a.checkSlab(start, shape); err != nil {
		return err
	}
	if len(data) != numElements(shape)*itemSize {
		return fmt.Errorf("zarr: slab data is %d bytes, want %d", len(data), numElements(shape)*itemSize)
	}
	if numElements(shape) == 0 {
		return nil
	}
	return a.eachChunk(start, shape, func(ci, chunkStart, regionStart, region []int) error {
		srcOff := make([]int, len(region))
		for i := range region {
			srcOff[i] = regionStart[i] - start[i]
		}
		if wholeChunk(chunkStart, regionStart, region, a.meta.Chunks) {
			buf := make([]byte, numElements(a.meta.Chunks)*itemSize)
			copyRegion(buf, a.meta.Chunks, make([]int, len(region)), data, shape, srcOff, region, itemSize)
			return a.writeChunk(ci, buf)
		}
		if a.sync != nil {
			a.sync.Lock()
			defer a.sync.Unlock()
		}
		buf, err := a.readChunk(ci)
		if err != nil {
			return err
		}
		dstOff := make([]int, len(region))
		for i := range region {
			dstOff[i] = regionStart[i] - chunkStart[i]
		}
		copyRegion(buf, a.meta.Chunks, dstOff, data, shape, srcOff, region, itemSize)
		return a.writeChunk(ci, buf)
	})
}

// wholeChunk reports whether a region covers its chunk completely,
// padding included. Edge chunks clipped by the array shape never
// qualify; their padding must come from a read or the fill value.
func wholeChunk(chunkStart, regionStart, region, chunks []int) bool {
	for i := range region {
		if regionStart[i] != chunkStart[i] || region[i] != chunks[i] {
			return false
		}
	}
	return true
}

// Slice reads a hyperslab of raw values from the array, in C order.
func (a *Array) Slice(start, shape []int) ([]byte, error) {
	itemSize := a.meta.DType.ItemSize()
	if err := a.checkSlab(start, shape); err != nil {
		return nil, err
	}
	out := make([]byte, numElements(shape)*itemSize)
	if numElements(shape) == 0 {
		return out, nil
	}
	err := a.eachChunk(start, shape, func(ci, chunkStart, regionStart, region []int) error {
		buf, err := a.readChunk(ci)
		if err != nil {
			return err
		}
		dstOff := make([]int, len(region))
		srcOff := make([]int, len(region))
		for i := range region {
			srcOff[i] = regionStart[i] - chunkStart[i]
			dstOff[i] = regionStart[i] - start[i]
		}
		copyRegion(out, shape, dstOff, buf, a.meta.Chunks, srcOff, region, itemSize)
		return nil
	})
	return out, err
}

// Read returns the full contents of the array in C order.
func (a *Array) Read() ([]byte, error) {
	return a.Slice(make([]int, len(a.meta.Shape)), a.meta.Shape)
}

func (a *Array) checkSlab(start, shape []int) error {
	if len(start) != len(a.meta.Shape) || len(shape) != len(a.meta.Shape) {
		return fmt.Errorf("zarr: slab rank %d does not match array rank %d", len(start), len(a.meta.Shape))
	}
	for i := range start {
		if start[i] < 0 || shape[i] < 0 || start[i]+shape[i] > a.meta.Shape[i] {
			return fmt.Errorf("zarr: slab [%d,%d) out of range for dimension of size %d",
				start[i], start[i]+shape[i], a.meta.Shape[i])
		}
	}
	return nil
}

// eachChunk visits every chunk intersecting the slab [start,start+shape)
// and reports, per chunk, the chunk indices, the chunk origin, and the
// origin and extent of the intersection, all in array coordinates.
func (a *Array) eachChunk(start, shape []int, f func(ci, chunkStart, regionStart, region []int) error) error {
	rank := len(a.meta.Shape)
	if rank == 0 {
		return f([]int{}, []int{}, []int{}, []int{})
	}
	chunks := a.meta.Chunks
	grid := NumChunks(a.meta.Shape, chunks)
	lo := make([]int, rank)
	hi := make([]int, rank)
	for i := range lo {
		lo[i] = start[i] / chunks[i]
		hi[i] = min((start[i]+shape[i]-1)/chunks[i], grid[i]-1)
	}
	ci := make([]int, rank)
	copy(ci, lo)
	chunkStart := make([]int, rank)
	regionStart := make([]int, rank)
	region := make([]int, rank)
	for {
		for i := range ci {
			chunkStart[i] = ci[i] * chunks[i]
			regionStart[i] = max(start[i], chunkStart[i])
			region[i] = min(start[i]+shape[i], chunkStart[i]+chunks[i]) - regionStart[i]
		}
		if err := f(ci, chunkStart, regionStart, region); err != nil {
			return err
		}
		// Odometer increment over the chunk index box.
		dim := rank - 1
		for dim >= 0 {
			ci[dim]++
			if ci[dim] <= hi[dim] {
				break
			}
			ci[dim] = lo[dim]
			dim--
		}
		if dim < 0 {
			return nil
		}
	}
}

// readChunk returns the decompressed contents of one chunk, or a
// fill-value-initialized buffer if the chunk has not been written yet.
func (a *Array) readChunk(ci []int) ([]byte, error) {
	n := numElements(a.meta.Chunks) * a.meta.DType.ItemSize()
	d, err := a.store.Get(joinPath(a.path, ChunkKey(ci)))
	if errors.Is(err, ErrNotFound) {
		return a.fillChunk(n)
	} else if err != nil {
		return nil, err
	}
	raw, err := a.meta.Compressor.Decompress(d)
	if err != nil {
		return nil, fmt.Errorf("zarr: decompressing chunk %s of %q: %v", ChunkKey(ci), a.path, err)
	}
	if len(raw) != n {
		return nil, fmt.Errorf("zarr: chunk %s of %q is %d bytes, want %d", ChunkKey(ci), a.path, len(raw), n)
	}
	return raw, nil
}

func (a *Array) writeChunk(ci []int, raw []byte) error {
	d, err := a.meta.Compressor.Compress(raw)
	if err != nil {
		return fmt.Errorf("zarr: compressing chunk %s of %q: %v", ChunkKey(ci), a.path, err)
	}
	return a.store.Put(joinPath(a.path, ChunkKey(ci)), d)
}

// fillChunk returns a fresh chunk buffer of n bytes initialized to the
// array's fill value (zeros when no fill value is set).
func (a *Array) fillChunk(n int) ([]byte, error) {
	buf := make([]byte, n)
	if a.meta.FillValue == nil {
		return buf, nil
	}
	item, err := a.meta.DType.encodeScalar(a.meta.FillValue)
	if err != nil {
		return nil, fmt.Errorf("zarr: fill value for %q: %v", a.path, err)
	}
	for off := 0; off < n; off += len(item) {
		copy(buf[off:], item)
	}
	return buf, nil
}

// encodeScalar encodes one scalar value into its raw little-endian item
// bytes. JSON decoding produces float64 for numbers; the special strings
// "NaN", "Infinity" and "-Infinity" are accepted for float dtypes, as
// Zarr v2 metadata encodes them.
func (dt DType) encodeScalar(v interface{}) ([]byte, error) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int8:
		f = float64(t)
	case int16:
		f = float64(t)
	case int32:
		f = float64(t)
	case int64:
		f = float64(t)
	case uint8:
		f = float64(t)
	case uint16:
		f = float64(t)
	case uint32:
		f = float64(t)
	case uint64:
		f = float64(t)
	case bool:
		if t {
			f = 1
		}
	case string:
		if dt.Kind != 'f' {
			return nil, fmt.Errorf("string fill %q for non-float dtype %s", t, dt)
		}
		switch t {
		case "NaN":
			f = math.NaN()
		case "Infinity":
			f = math.Inf(1)
		case "-Infinity":
			f = math.Inf(-1)
		default:
			return nil, fmt.Errorf("unsupported fill string %q", t)
		}
	default:
		return nil, fmt.Errorf("unsupported fill type %T", v)
	}

	item := make([]byte, dt.Size)
	switch dt.Kind {
	case 'f':
		switch dt.Size {
		case 4:
			binary.LittleEndian.PutUint32(item, math.Float32bits(float32(f)))
		case 8:
			binary.LittleEndian.PutUint64(item, math.Float64bits(f))
		default:
			return nil, fmt.Errorf("unsupported float size %d", dt.Size)
		}
	case 'i', 'u', 'b':
		u := uint64(int64(f))
		if dt.Kind == 'u' || dt.Kind == 'b' {
			u = uint64(f)
		}
		switch dt.Size {
		case 1:
			item[0] = byte(u)
		case 2:
			binary.LittleEndian.PutUint16(item, uint16(u))
		case 4:
			binary.LittleEndian.PutUint32(item, uint32(u))
		case 8:
			binary.LittleEndian.PutUint64(item, u)
		default:
			return nil, fmt.Errorf("unsupported integer size %d", dt.Size)
		}
	default:
		return nil, fmt.Errorf("unsupported dtype kind %q", dt.Kind)
	}
	return item, nil
}

// strides returns the C-order byte stride of each dimension.
func strides(shape []int, itemSize int) []int {
	s := make([]int, len(shape))
	acc := itemSize
	for i := len(shape) - 1; i >= 0; i-- {
		s[i] = acc
		acc *= shape[i]
	}
	return s
}

// copyRegion copies a rectangular region between two C-order buffers.
// dstOff and srcOff locate the region origin within each buffer, and
// region gives its extent; the innermost dimension is copied as one
// contiguous run.
func copyRegion(dst []byte, dstShape, dstOff []int, src []byte, srcShape, srcOff, region []int, itemSize int) {
	if len(region) == 0 {
		copy(dst[:itemSize], src[:itemSize])
		return
	}
	ds := strides(dstShape, itemSize)
	ss := strides(srcShape, itemSize)
	dBase, sBase := 0, 0
	for i := range region {
		dBase += dstOff[i] * ds[i]
		sBase += srcOff[i] * ss[i]
	}
	last := len(region) - 1
	run := region[last] * itemSize
	var rec func(dim, d, s int)
	rec = func(dim, d, s int) {
		if dim == last {
			copy(dst[d:d+run], src[s:s+run])
			return
		}
		for k := 0; k < region[dim]; k++ {
			rec(dim+1, d+k*ds[dim], s+k*ss[dim])
		}
	}
	rec(0, dBase, sBase)
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

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
	"strings"
)

// Rechunk copies a finished hierarchy from src to dst, rewriting each
// array with the chunk shape returned by targetChunks. targetChunks
// receives the array's logical path and current metadata; returning nil
// keeps the existing chunk shape (the convention for coordinate and
// bounds variables, which stay chunked as written). Group structure and
// all attributes are preserved, and dst is consolidated at the end.
func Rechunk(src, dst Store, targetChunks func(path string, meta *ArrayMeta) []int) error {
	keys, err := src.Keys()
	if err != nil {
		return err
	}
	for _, key := range keys {
		base, dir := key, ""
		if i := strings.LastIndex(key, "/"); i >= 0 {
			base, dir = key[i+1:], key[:i]
		}
		switch base {
		case GroupKey, AttrsKey:
			d, err := src.Get(key)
			if err != nil {
				return err
			}
			if err := dst.Put(key, d); err != nil {
				return err
			}
		case ArrayKey:
			if err := rechunkArray(src, dst, dir, targetChunks); err != nil {
				return err
			}
		}
	}
	return Consolidate(dst)
}

// rechunkArray streams one array from src to dst one destination chunk
// at a time, bounding memory by the larger of the two chunk sizes.
func rechunkArray(src, dst Store, path string, targetChunks func(string, *ArrayMeta) []int) error {
	in, err := OpenArray(src, path)
	if err != nil {
		return err
	}
	meta := *in.Meta()
	if c := targetChunks(path, in.Meta()); c != nil {
		if len(c) != len(meta.Shape) {
			return fmt.Errorf("zarr: rechunk %q: target chunks %v have wrong rank", path, c)
		}
		meta.Chunks = c
	}
	if _, err := dst.Get(joinPath(path, ArrayKey)); err == nil {
		return fmt.Errorf("zarr: rechunk target already contains array %q", path)
	}
	md, err := json.Marshal(&meta)
	if err != nil {
		return err
	}
	if err := dst.Put(joinPath(path, ArrayKey), md); err != nil {
		return err
	}
	out := &Array{store: dst, path: path, meta: &meta}
	return out.eachChunk(make([]int, len(meta.Shape)), meta.Shape,
		func(ci, chunkStart, regionStart, region []int) error {
			buf, err := in.Slice(regionStart, region)
			if err != nil {
				return err
			}
			return out.SetSlice(regionStart, region, buf)
		})
}

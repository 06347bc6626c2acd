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
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
)

// CompressorMeta identifies the chunk compression codec in ".zarray"
// metadata, using numcodecs codec ids.
type CompressorMeta struct {
	ID    string `json:"id"`
	Level int    `json:"level,omitempty"`
}

// DefaultCompressor is the codec applied to new arrays unless the caller
// overrides it.
func DefaultCompressor() *CompressorMeta {
	return &CompressorMeta{ID: "zlib", Level: zlib.DefaultCompression}
}

// Compress encodes one chunk. A nil receiver means no compression.
func (m *CompressorMeta) Compress(raw []byte) ([]byte, error) {
	if m == nil {
		return raw, nil
	}
	if m.ID != "zlib" {
		return nil, fmt.Errorf("zarr: unsupported compressor %q", m.ID)
	}
	var buf bytes.Buffer
	level := m.Level
	if level == 0 {
		level = zlib.DefaultCompression
	}
	w, err := zlib.NewWriterLevel(&buf, level)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(raw); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decompress decodes one chunk. A nil receiver means no compression.
func (m *CompressorMeta) Decompress(compressed []byte) ([]byte, error) {
	if m == nil {
		return compressed, nil
	}
	if m.ID != "zlib" {
		return nil, fmt.Errorf("zarr: unsupported compressor %q", m.ID)
	}
	r, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

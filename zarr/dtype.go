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
)

// DType is a simple data type following the NumPy array protocol type
// string (typestr) format. The format consists of 3 parts: one character
// describing the byte order of the data ("<": little-endian,
// ">": big-endian, "|": not relevant), one character code giving the
// basic type of the array, and an integer specifying the number of bytes
// the type uses. Within the Zarr format the byte order must be specified.
type DType struct {
	ByteOrder byte
	Kind      byte
	Size      int
}

var (
	_ json.Unmarshaler = (*DType)(nil)
	_ json.Marshaler   = (*DType)(nil)
)

var dtypeKinds = map[byte]string{
	'b': "boolean",
	'i': "integer",
	'u': "unsigned integer",
	'f': "floating point",
	'c': "complex floating point",
	'S': "string",
	'U': "unicode",
}

// ParseDType parses a NumPy typestr such as "<f8" or "|u1".
func ParseDType(s string) (DType, error) {
	var dt DType
	if len(s) < 3 {
		return dt, fmt.Errorf("zarr: invalid dtype %q: too short", s)
	}
	switch s[0] {
	case '<', '>', '|':
		dt.ByteOrder = s[0]
	default:
		return dt, fmt.Errorf("zarr: invalid dtype %q: unsupported byte order %q", s, s[0])
	}
	if _, ok := dtypeKinds[s[1]]; !ok {
		return dt, fmt.Errorf("zarr: invalid dtype %q: unsupported kind %q", s, s[1])
	}
	dt.Kind = s[1]
	size, err := strconv.Atoi(s[2:])
	if err != nil || size < 1 {
		return dt, fmt.Errorf("zarr: invalid dtype %q: bad item size", s)
	}
	dt.Size = size
	return dt, nil
}

// GoDType returns the DType corresponding to a Go scalar type name
// (e.g. "float64", "int32", "uint8"). All multi-byte types are
// little-endian, matching the layout this package writes.
func GoDType(goType string) (DType, error) {
	var dt DType
	switch goType {
	case "int8":
		dt = DType{'|', 'i', 1}
	case "uint8", "byte", "bool":
		dt = DType{'|', 'u', 1}
	case "int16":
		dt = DType{'<', 'i', 2}
	case "uint16":
		dt = DType{'<', 'u', 2}
	case "int32", "int":
		dt = DType{'<', 'i', 4}
	case "uint32":
		dt = DType{'<', 'u', 4}
	case "int64":
		dt = DType{'<', 'i', 8}
	case "uint64":
		dt = DType{'<', 'u', 8}
	case "float32":
		dt = DType{'<', 'f', 4}
	case "float64":
		dt = DType{'<', 'f', 8}
	default:
		return dt, fmt.Errorf("zarr: no dtype for Go type %q", goType)
	}
	return dt, nil
}

func (dt DType) String() string {
	return fmt.Sprintf("%c%c%d", dt.ByteOrder, dt.Kind, dt.Size)
}

// ItemSize returns the number of bytes one array element occupies.
func (dt DType) ItemSize() int { return dt.Size }

func (dt DType) MarshalJSON() ([]byte, error) {
	return json.Marshal(dt.String())
}

func (dt *DType) UnmarshalJSON(d []byte) error {
	var s string
	if err := json.Unmarshal(d, &s); err != nil {
		return err
	}
	t, err := ParseDType(s)
	if err != nil {
		return err
	}
	*dt = t
	return nil
}

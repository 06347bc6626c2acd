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
	"encoding/binary"
	"fmt"
	"math"
	"reflect"

	"github.com/nasa/harmony-netcdf-to-zarr/zarr"
)

// valueShape returns the nested-slice lengths of a value read from a
// netCDF library: [] for a scalar, [n] for a vector, [n m] for a
// matrix, and so on. Ragged inner slices are not checked; netCDF
// arrays are rectangular.
func valueShape(v interface{}) []int {
	var shape []int
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Slice {
		shape = append(shape, rv.Len())
		if rv.Len() == 0 {
			break
		}
		rv = rv.Index(0)
	}
	return shape
}

// flattenBytes serializes a scalar or nested-slice value into
// little-endian bytes in C order, dt.Size bytes per element.
func flattenBytes(v interface{}, dt zarr.DType) ([]byte, error) {
	shape := valueShape(v)
	n := 1
	for _, s := range shape {
		n *= s
	}
	buf := make([]byte, 0, n*dt.Size)
	return appendValue(buf, reflect.ValueOf(v), dt)
}

func appendValue(buf []byte, rv reflect.Value, dt zarr.DType) ([]byte, error) {
	if rv.Kind() == reflect.Slice {
		for i := 0; i < rv.Len(); i++ {
			var err error
			buf, err = appendValue(buf, rv.Index(i), dt)
			if err != nil {
				return nil, err
			}
		}
		return buf, nil
	}
	return appendScalar(buf, rv, dt)
}

func appendScalar(buf []byte, rv reflect.Value, dt zarr.DType) ([]byte, error) {
	var bits uint64
	switch rv.Kind() {
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64, reflect.Int:
		bits = uint64(rv.Int())
	case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uint:
		bits = rv.Uint()
	case reflect.Float32:
		bits = uint64(math.Float32bits(float32(rv.Float())))
	case reflect.Float64:
		bits = math.Float64bits(rv.Float())
	case reflect.Bool:
		if rv.Bool() {
			bits = 1
		}
	default:
		return nil, fmt.Errorf("n2z: unsupported element type %s", rv.Kind())
	}
	if dt.Kind == 'f' && dt.Size == 4 && rv.Kind() == reflect.Float64 {
		bits = uint64(math.Float32bits(float32(rv.Float())))
	}
	switch dt.Size {
	case 1:
		buf = append(buf, byte(bits))
	case 2:
		buf = binary.LittleEndian.AppendUint16(buf, uint16(bits))
	case 4:
		buf = binary.LittleEndian.AppendUint32(buf, uint32(bits))
	case 8:
		buf = binary.LittleEndian.AppendUint64(buf, bits)
	default:
		return nil, fmt.Errorf("n2z: unsupported element size %d", dt.Size)
	}
	return buf, nil
}

// decodeFloats interprets raw little-endian bytes as float64 values
// according to dt. Used on coordinate and bounds variables, which need
// numeric comparison; data variables pass through as raw bytes.
func decodeFloats(data []byte, dt zarr.DType) ([]float64, error) {
	if dt.Size <= 0 || len(data)%dt.Size != 0 {
		return nil, fmt.Errorf("n2z: byte length %d not a multiple of item size %d", len(data), dt.Size)
	}
	n := len(data) / dt.Size
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		var bits uint64
		switch dt.Size {
		case 1:
			bits = uint64(data[i])
		case 2:
			bits = uint64(binary.LittleEndian.Uint16(data[i*2:]))
		case 4:
			bits = uint64(binary.LittleEndian.Uint32(data[i*4:]))
		case 8:
			bits = binary.LittleEndian.Uint64(data[i*8:])
		default:
			return nil, fmt.Errorf("n2z: unsupported element size %d", dt.Size)
		}
		switch dt.Kind {
		case 'f':
			if dt.Size == 4 {
				out[i] = float64(math.Float32frombits(uint32(bits)))
			} else {
				out[i] = math.Float64frombits(bits)
			}
		case 'i':
			switch dt.Size {
			case 1:
				out[i] = float64(int8(bits))
			case 2:
				out[i] = float64(int16(bits))
			case 4:
				out[i] = float64(int32(bits))
			default:
				out[i] = float64(int64(bits))
			}
		case 'u', 'b':
			out[i] = float64(bits)
		default:
			return nil, fmt.Errorf("n2z: cannot decode dtype %s as numbers", dt)
		}
	}
	return out, nil
}

// encodeFloats serializes float64 values into raw little-endian bytes
// of the given dtype, the inverse of decodeFloats. Integer kinds are
// rounded to nearest.
func encodeFloats(vals []float64, dt zarr.DType) ([]byte, error) {
	buf := make([]byte, 0, len(vals)*dt.Size)
	for _, v := range vals {
		var bits uint64
		switch dt.Kind {
		case 'f':
			if dt.Size == 4 {
				bits = uint64(math.Float32bits(float32(v)))
			} else {
				bits = math.Float64bits(v)
			}
		case 'i':
			bits = uint64(int64(math.Round(v)))
		case 'u', 'b':
			bits = uint64(math.Round(v))
		default:
			return nil, fmt.Errorf("n2z: cannot encode numbers as dtype %s", dt)
		}
		switch dt.Size {
		case 1:
			buf = append(buf, byte(bits))
		case 2:
			buf = binary.LittleEndian.AppendUint16(buf, uint16(bits))
		case 4:
			buf = binary.LittleEndian.AppendUint32(buf, uint32(bits))
		case 8:
			buf = binary.LittleEndian.AppendUint64(buf, bits)
		default:
			return nil, fmt.Errorf("n2z: unsupported element size %d", dt.Size)
		}
	}
	return buf, nil
}

// normalizeAttr converts attribute values read from netCDF libraries
// into plain scalars and slices: one-element slices unwrap to their
// single value, matching how attribute values round-trip through JSON
// metadata.
func normalizeAttr(v interface{}) interface{} {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() != reflect.Uint8 {
		if rv.Len() == 1 {
			return rv.Index(0).Interface()
		}
	}
	if s, ok := v.(string); ok {
		return s
	}
	return v
}

// attrFloat reads a numeric attribute as float64, accepting any scalar
// numeric type.
func attrFloat(attrs map[string]interface{}, key string) (float64, bool) {
	v, ok := attrs[key]
	if !ok {
		return 0, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64, reflect.Int:
		return float64(rv.Int()), true
	case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uint:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}

// attrString reads a string attribute.
func attrString(attrs map[string]interface{}, key string) (string, bool) {
	v, ok := attrs[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

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
	"strings"
)

// ConsolidatedFormat is the ".zmetadata" document format version.
const ConsolidatedFormat = 1

// Consolidate gathers every metadata document in the store into one
// ".zmetadata" key, so that readers can open the hierarchy with a
// single fetch instead of listing the store. It should run once, after
// all writers have completed.
func Consolidate(store Store) error {
	keys, err := store.Keys()
	if err != nil {
		return err
	}
	cm := ConsolidatedMetadata{
		ConsolidatedFormat: ConsolidatedFormat,
		Metadata:           map[string]json.RawMessage{},
	}
	for _, key := range keys {
		if !isMetadataKey(key) {
			continue
		}
		d, err := store.Get(key)
		if err != nil {
			return err
		}
		cm.Metadata[key] = json.RawMessage(d)
	}
	d, err := json.Marshal(cm)
	if err != nil {
		return err
	}
	return store.Put(ConsolidatedKey, d)
}

func isMetadataKey(key string) bool {
	base := key
	if i := strings.LastIndex(key, "/"); i >= 0 {
		base = key[i+1:]
	}
	return base == ArrayKey || base == GroupKey || base == AttrsKey
}

// OpenConsolidated reads the ".zmetadata" document of a finished store.
func OpenConsolidated(store Store) (*ConsolidatedMetadata, error) {
	d, err := store.Get(ConsolidatedKey)
	if err != nil {
		return nil, err
	}
	cm := &ConsolidatedMetadata{}
	if err := json.Unmarshal(d, cm); err != nil {
		return nil, err
	}
	return cm, nil
}

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

// Package zarr reads and writes Zarr version 2 hierarchies: chunked,
// compressed N-dimensional arrays organized into groups, with JSON
// metadata documents (".zgroup", ".zarray", ".zattrs") stored alongside
// the chunks in a flat key-value store.
package zarr

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Group is a node in a Zarr hierarchy. Groups can contain arrays and
// other groups. A group exists at a logical path if the ".zgroup" key
// exists under that path in the store.
//
// All metadata mutations made through a group (creating child groups or
// arrays, merging attributes) are serialized by the group's
// Synchronizer, if one is set, so that writers in different goroutines
// or processes sharing one store never race on metadata. The
// synchronizer propagates to child groups and arrays.
type Group struct {
	store Store
	path  string
	sync  *Synchronizer
}

// NewRoot opens (creating if necessary) the root group of the store.
// sync may be nil for single-writer use.
func NewRoot(store Store, sync *Synchronizer) (*Group, error) {
	g := &Group{store: store, sync: sync}
	if err := g.require(""); err != nil {
		return nil, err
	}
	return g, nil
}

// Store returns the backing store.
func (g *Group) Store() Store { return g.store }

// Path returns the logical path of the group within the store, with ""
// denoting the root.
func (g *Group) Path() string { return g.path }

func (g *Group) key(name string) string { return joinPath(g.path, name) }

func (g *Group) lock() {
	if g.sync != nil {
		g.sync.Lock()
	}
}

func (g *Group) unlock() {
	if g.sync != nil {
		g.sync.Unlock()
	}
}

// require writes the ".zgroup" document at the given path if it is not
// already present.
func (g *Group) require(path string) error {
	g.lock()
	defer g.unlock()
	key := joinPath(path, GroupKey)
	if _, err := g.store.Get(key); err == nil {
		return nil
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}
	d, err := json.Marshal(GroupMeta{ZarrFormat: Format})
	if err != nil {
		return err
	}
	return g.store.Put(key, d)
}

// RequireGroup returns the child group at the given path relative to g,
// creating it (and any intermediate groups) if needed. The path may
// contain "/" separators.
func (g *Group) RequireGroup(path string) (*Group, error) {
	cur := g.path
	for _, part := range strings.Split(strings.Trim(path, "/"), "/") {
		if part == "" {
			continue
		}
		cur = joinPath(cur, part)
		if err := g.require(cur); err != nil {
			return nil, fmt.Errorf("zarr: creating group %q: %v", cur, err)
		}
	}
	return &Group{store: g.store, path: cur, sync: g.sync}, nil
}

// MergeAttrs adds the given attributes to the group's ".zattrs"
// document. Attributes already present in the store are not
// overwritten.
func (g *Group) MergeAttrs(attrs Attributes) error {
	g.lock()
	defer g.unlock()
	return mergeAttrs(g.store, g.path, attrs)
}

// Attrs returns the group's attributes.
func (g *Group) Attrs() (Attributes, error) {
	return readAttrs(g.store, g.path)
}

func readAttrs(store Store, path string) (Attributes, error) {
	d, err := store.Get(joinPath(path, AttrsKey))
	if errors.Is(err, ErrNotFound) {
		return Attributes{}, nil
	} else if err != nil {
		return nil, err
	}
	attrs := Attributes{}
	if err := json.Unmarshal(d, &attrs); err != nil {
		return nil, err
	}
	return attrs, nil
}

// mergeAttrs implements keep-existing merge semantics: an attribute
// already stored (e.g. the units of an aggregated dimension) wins over
// the incoming value. Callers must hold the synchronizer lock.
func mergeAttrs(store Store, path string, attrs Attributes) error {
	existing, err := readAttrs(store, path)
	if err != nil {
		return err
	}
	changed := false
	for k, v := range attrs {
		if _, ok := existing[k]; !ok {
			existing[k] = v
			changed = true
		}
	}
	if !changed && len(existing) == 0 {
		return nil
	}
	d, err := json.Marshal(existing)
	if err != nil {
		return err
	}
	return store.Put(joinPath(path, AttrsKey), d)
}

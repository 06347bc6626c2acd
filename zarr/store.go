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
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

const (
	// MemoryStoreType identifies an in-memory store.
	MemoryStoreType = "MemoryStore"
	// DirectoryStoreType identifies a store backed by a directory tree.
	DirectoryStoreType = "DirectoryStore"

	dirPermissionBits  = 0755
	filePermissionBits = 0644
)

// ErrNotFound is returned by Store.Get for missing keys.
var ErrNotFound = errors.New("not found")

// Store is a flat key-value container holding the metadata documents and
// compressed chunks of one Zarr hierarchy. Logical paths use "/" as the
// separator regardless of the backing medium.
type Store interface {
	Get(key string) ([]byte, error)
	Put(key string, val []byte) error
	// Keys lists every key in the store, sorted.
	Keys() ([]string, error)
	Type() string
}

// MemoryStore is a Store held in process memory, for tests and staging.
type MemoryStore struct {
	lk   sync.Mutex
	data map[string][]byte
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: map[string][]byte{}}
}

func (s *MemoryStore) Type() string { return MemoryStoreType }

func (s *MemoryStore) Get(key string) ([]byte, error) {
	s.lk.Lock()
	defer s.lk.Unlock()
	d, ok := s.data[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	out := make([]byte, len(d))
	copy(out, d)
	return out, nil
}

func (s *MemoryStore) Put(key string, val []byte) error {
	d := make([]byte, len(val))
	copy(d, val)
	s.lk.Lock()
	defer s.lk.Unlock()
	s.data[key] = d
	return nil
}

func (s *MemoryStore) Keys() ([]string, error) {
	s.lk.Lock()
	defer s.lk.Unlock()
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// DirectoryStore is a Store backed by a directory on the local
// filesystem, the standard Zarr directory layout: each key is a file
// path relative to the base directory.
type DirectoryStore struct {
	base string
}

var _ Store = (*DirectoryStore)(nil)

// NewDirectoryStore opens (creating if necessary) a directory store
// rooted at base.
func NewDirectoryStore(base string) (*DirectoryStore, error) {
	base, err := filepath.Abs(base)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(base, dirPermissionBits); err != nil {
		return nil, err
	}
	return &DirectoryStore{base: base}, nil
}

func (s *DirectoryStore) Type() string { return DirectoryStoreType }

// Path returns the base directory of the store.
func (s *DirectoryStore) Path() string { return s.base }

func (s *DirectoryStore) Get(key string) ([]byte, error) {
	d, err := os.ReadFile(filepath.Join(s.base, filepath.FromSlash(key)))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return d, err
}

func (s *DirectoryStore) Put(key string, val []byte) error {
	path := filepath.Join(s.base, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), dirPermissionBits); err != nil {
		return err
	}
	return os.WriteFile(path, val, filePermissionBits)
}

func (s *DirectoryStore) Keys() ([]string, error) {
	var keys []string
	err := filepath.WalkDir(s.base, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(s.base, path)
		if err != nil {
			return err
		}
		keys = append(keys, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)
	return keys, nil
}

// joinPath joins logical store path elements, skipping empties.
func joinPath(elems ...string) string {
	var parts []string
	for _, e := range elems {
		e = strings.Trim(e, "/")
		if e != "" {
			parts = append(parts, e)
		}
	}
	return strings.Join(parts, "/")
}

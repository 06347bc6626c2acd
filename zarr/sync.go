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

import "sync"

// Synchronizer serializes metadata mutations (group and array creation,
// attribute writes) on a store that is populated by concurrent writers.
// It is keyed by the store location so that every writer holding a
// synchronizer for the same root shares one lock. Data-region writes to
// disjoint chunks do not need the lock.
//
// The lock must be held only for the metadata mutation itself, never for
// the duration of a full variable copy.
type Synchronizer struct {
	root string
	mu   *sync.Mutex
}

var (
	syncRegistryMu sync.Mutex
	syncRegistry   = map[string]*sync.Mutex{}
)

// NewSynchronizer returns the synchronizer bound to the given store
// root, creating it on first use. Calls with the same root share one
// underlying lock for the lifetime of the process.
func NewSynchronizer(root string) *Synchronizer {
	syncRegistryMu.Lock()
	defer syncRegistryMu.Unlock()
	mu, ok := syncRegistry[root]
	if !ok {
		mu = new(sync.Mutex)
		syncRegistry[root] = mu
	}
	return &Synchronizer{root: root, mu: mu}
}

// Root returns the store location this synchronizer is bound to.
func (s *Synchronizer) Root() string { return s.root }

func (s *Synchronizer) Lock()   { s.mu.Lock() }
func (s *Synchronizer) Unlock() { s.mu.Unlock() }

// Release removes the synchronizer for root from the process-wide
// registry. It should be called once per job, after all writers have
// completed.
func (s *Synchronizer) Release() {
	syncRegistryMu.Lock()
	defer syncRegistryMu.Unlock()
	delete(syncRegistry, s.root)
}

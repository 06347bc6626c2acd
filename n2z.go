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
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/nasa/harmony-netcdf-to-zarr/zarr"
	"golang.org/x/sync/errgroup"
)

// Version gives the version number of this version of the converter.
const Version = "1.0.0"

// Job converts a set of input granules into one or more Zarr stores.
type Job struct {
	// Inputs are local paths of the granules to convert, in catalog
	// order.
	Inputs []string
	// Output is the store location. With Concatenate set (or one
	// input) it is the store root itself; otherwise it is a directory
	// receiving one independent store per input.
	Output string
	// Concatenate merges all inputs along their aggregatable
	// dimensions into one store. When false, each input becomes its
	// own store and no aggregation planning happens at all.
	Concatenate bool
	// Workers bounds the number of concurrent writer tasks. Zero
	// means min(NumCPU, number of inputs).
	Workers int
	// Chunks bounds output chunk byte sizes; the zero value is
	// replaced by DefaultChunkConfig.
	Chunks ChunkConfig
}

func (j *Job) workerCount() int {
	n := j.Workers
	if n <= 0 {
		n = runtime.NumCPU()
	}
	if n > len(j.Inputs) {
		n = len(j.Inputs)
	}
	if n < 1 {
		n = 1
	}
	return n
}

func (j *Job) chunkConfig() ChunkConfig {
	if j.Chunks == (ChunkConfig{}) {
		return DefaultChunkConfig()
	}
	return j.Chunks
}

// writerResult is the typed completion record of one writer task,
// collected by the orchestrator in place of process exit codes.
type writerResult struct {
	file string
	err  error
}

// Run executes the conversion and returns the paths of the finished
// stores. Any writer failure fails the whole job; partially written
// stores are never reported as successes.
func (j *Job) Run(ctx context.Context) ([]string, error) {
	if len(j.Inputs) == 0 {
		return nil, fmt.Errorf("n2z: no input granules")
	}
	if j.Output == "" {
		return nil, fmt.Errorf("n2z: no output location")
	}
	if err := j.chunkConfig().validate(); err != nil {
		return nil, err
	}
	if !j.Concatenate && len(j.Inputs) > 1 {
		return j.runSeparate(ctx)
	}
	store, err := j.runAggregated(ctx)
	if err != nil {
		return nil, err
	}
	return []string{store}, nil
}

// runSeparate converts each input into its own store. The planner is
// never invoked; every store is a direct copy of its granule.
func (j *Job) runSeparate(ctx context.Context) ([]string, error) {
	stores := make([]string, len(j.Inputs))
	for i, in := range j.Inputs {
		stores[i] = filepath.Join(j.Output, storeName(in))
	}
	grp, ctx := errgroup.WithContext(ctx)
	grp.SetLimit(j.workerCount())
	for i := range j.Inputs {
		i := i
		grp.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := convertSingle(j.Inputs[i], stores[i], j.chunkConfig()); err != nil {
				return &WorkerFailure{File: j.Inputs[i], Err: err}
			}
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return nil, err
	}
	return stores, nil
}

// runAggregated merges all inputs into one store. The plan is built
// synchronously before any parallel work; the store's arrays are
// finalized (shape and chunking) before the first writer starts, so
// workers only fill data regions.
func (j *Job) runAggregated(ctx context.Context) (string, error) {
	if len(j.Inputs) == 1 {
		// Single granule: no aggregation, no worker pool. The copy is
		// a synchronous in-process write.
		if err := convertSingle(j.Inputs[0], j.Output, j.chunkConfig()); err != nil {
			return "", err
		}
		return j.Output, nil
	}

	granules := make([]*Granule, len(j.Inputs))
	for i, in := range j.Inputs {
		g, err := ReadGranule(in)
		if err != nil {
			return "", err
		}
		granules[i] = g
	}
	plan, err := NewPlan(granules)
	if err != nil {
		return "", err
	}

	store, err := zarr.NewDirectoryStore(j.Output)
	if err != nil {
		return "", err
	}
	sync := zarr.NewSynchronizer(j.Output)
	defer sync.Release()
	root, err := zarr.NewRoot(store, sync)
	if err != nil {
		return "", err
	}
	if err := WriteAggregatedDimensions(root, plan, j.chunkConfig()); err != nil {
		return "", err
	}

	results := make([]writerResult, len(granules))
	grp, ctx := errgroup.WithContext(ctx)
	grp.SetLimit(j.workerCount())
	for i := range granules {
		i := i
		grp.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = writerResult{file: granules[i].Path, err: err}
				return err
			}
			err := WriteGranule(granules[i], plan, root, j.chunkConfig(), i == 0)
			results[i] = writerResult{file: granules[i].Path, err: err}
			if err != nil {
				return &WorkerFailure{File: granules[i].Path, Err: err}
			}
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return "", firstFailure(results, err)
	}
	if err := zarr.Consolidate(store); err != nil {
		return "", err
	}
	return j.Output, nil
}

// firstFailure surfaces the earliest writer failure in input order,
// keeping the reported granule deterministic when several fail.
func firstFailure(results []writerResult, fallback error) error {
	for _, r := range results {
		if r.err != nil {
			return &WorkerFailure{File: r.file, Err: r.err}
		}
	}
	return fallback
}

// convertSingle copies one granule into one store: the single-granule
// short-circuit. The aggregation planner never runs; the output is a
// direct copy of the granule's data and attributes. The store still
// gets a synchronizer, so the write discipline is identical in every
// mode.
func convertSingle(input, output string, cfg ChunkConfig) error {
	g, err := ReadGranule(input)
	if err != nil {
		return err
	}
	plan := &Plan{
		Granules:   []*Granule{g},
		Dimensions: map[string]*OutputDimension{},
		aggregated: map[string]string{},
	}
	store, err := zarr.NewDirectoryStore(output)
	if err != nil {
		return err
	}
	sync := zarr.NewSynchronizer(output)
	defer sync.Release()
	root, err := zarr.NewRoot(store, sync)
	if err != nil {
		return err
	}
	if err := WriteGranule(g, plan, root, cfg, true); err != nil {
		return err
	}
	return zarr.Consolidate(store)
}

// storeName derives an output store name from a granule path:
// "/tmp/x/GPM_3IMERG.nc4" becomes "GPM_3IMERG.zarr".
func storeName(input string) string {
	base := filepath.Base(input)
	if i := strings.LastIndex(base, "."); i > 0 {
		base = base[:i]
	}
	return base + ".zarr"
}

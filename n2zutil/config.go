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

package n2zutil

import (
	"context"
	"fmt"
	"io/ioutil"
	"net/url"
	"os"
	"path"
	"path/filepath"

	"github.com/lnashier/viper"
	n2z "github.com/nasa/harmony-netcdf-to-zarr"
	"github.com/sirupsen/logrus"
)

// Convert resolves the configured granules, runs the conversion, and
// publishes the finished stores.
func Convert(ctx context.Context, cfg *viper.Viper) error {
	inputs, err := resolveInputs(ctx, cfg)
	if err != nil {
		return err
	}
	if len(inputs) == 0 {
		return fmt.Errorf("n2zutil: no input granules configured")
	}

	downloader, err := NewDownloader(os.ExpandEnv(cfg.GetString("DownloadDir")))
	if err != nil {
		return err
	}
	locals := make([]string, len(inputs))
	for i, in := range inputs {
		local, err := downloader.Fetch(ctx, in)
		if err != nil {
			return err
		}
		locals[i] = local
	}

	output := os.ExpandEnv(cfg.GetString("OutputLocation"))
	single := cfg.GetBool("Concatenate") || len(locals) == 1
	localOut, publishDest, err := checkOutputLocation(ctx, output, single)
	if err != nil {
		return err
	}

	job := n2z.Job{
		Inputs:      locals,
		Output:      localOut,
		Concatenate: cfg.GetBool("Concatenate"),
		Workers:     cfg.GetInt("Workers"),
		Chunks: n2z.ChunkConfig{
			TargetBytes: cfg.GetInt("Chunks.TargetBytes"),
			MinBytes:    cfg.GetInt("Chunks.MinBytes"),
			MaxBytes:    cfg.GetInt("Chunks.MaxBytes"),
		},
	}
	logrus.WithFields(logrus.Fields{
		"granules":    len(locals),
		"output":      output,
		"concatenate": cfg.GetBool("Concatenate"),
	}).Info("starting conversion")

	stores, err := job.Run(ctx)
	if err != nil {
		return err
	}
	for _, store := range stores {
		final := store
		if publishDest != "" {
			final, err = PublishStore(ctx, store, publishDest)
			if err != nil {
				return err
			}
		}
		logrus.WithField("store", final).Info("wrote store")
	}
	return nil
}

// resolveInputs collects the granule list from InputFiles plus, when
// configured, the items of a STAC catalog, in catalog order.
func resolveInputs(ctx context.Context, cfg *viper.Viper) ([]string, error) {
	inputs := expandStringSlice(cfg.GetStringSlice("InputFiles"))
	if catalog := os.ExpandEnv(cfg.GetString("STACCatalog")); catalog != "" {
		granules, err := ResolveCatalog(ctx, catalog)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, granules...)
	}
	return inputs, nil
}

// expandStringSlice expands environment variables in a slice of strings.
func expandStringSlice(s []string) []string {
	expanded := make([]string, len(s))
	for i, v := range s {
		expanded[i] = os.ExpandEnv(v)
	}
	return expanded
}

// checkOutputLocation validates the output location before any work is
// done and returns the local path the converter should write to plus,
// for blob locations, the destination the finished stores are published
// to. single indicates the job produces one store, so the location
// names the store itself rather than a directory of stores.
func checkOutputLocation(ctx context.Context, output string, single bool) (local, publishDest string, err error) {
	if output == "" {
		return "", "", fmt.Errorf("n2zutil: no output location configured")
	}
	if IsBlob(output) {
		u, err := url.Parse(output)
		if err != nil {
			return "", "", fmt.Errorf("n2zutil: parsing output location %s: %v", output, err)
		}
		// Open the bucket now so credential problems surface before the
		// conversion runs.
		if _, err := OpenBucket(ctx, u.Scheme+"://"+u.Host); err != nil {
			return "", "", err
		}
		tmp, err := ioutil.TempDir("", "n2z-out")
		if err != nil {
			return "", "", err
		}
		if !single {
			return tmp, output, nil
		}
		base := path.Base(u.Path)
		if base == "/" || base == "." {
			return "", "", fmt.Errorf("n2zutil: output location %s must name a store", output)
		}
		parent := u.Scheme + "://" + path.Join(u.Host, path.Dir(u.Path))
		return filepath.Join(tmp, base), parent, nil
	}
	if dir := filepath.Dir(output); dir != "." {
		if _, err := os.Stat(dir); err != nil {
			return "", "", fmt.Errorf("n2zutil: checking output location %s: %v", output, err)
		}
	}
	return output, "", nil
}

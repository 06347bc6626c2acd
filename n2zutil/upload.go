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
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/go-cloud/blob"
)

// PublishStore copies a finished directory store to a blob location and
// returns the published URL. dest must be a blob location
// ('provider://bucket/prefix'); the store directory's name is appended
// to the prefix.
func PublishStore(ctx context.Context, store, dest string) (string, error) {
	u, err := url.Parse(dest)
	if err != nil {
		return "", fmt.Errorf("n2zutil: parsing publish location %s: %v", dest, err)
	}
	bucket, err := OpenBucket(ctx, u.Scheme+"://"+u.Host)
	if err != nil {
		return "", fmt.Errorf("n2zutil: opening bucket for %s: %v", dest, err)
	}
	prefix := path.Join(strings.TrimPrefix(u.Path, "/"), filepath.Base(store))
	if err := publishTo(ctx, bucket, prefix, store); err != nil {
		return "", err
	}
	return u.Scheme + "://" + path.Join(u.Host, prefix), nil
}

// publishTo writes every file under dir into the bucket below prefix,
// preserving relative paths with "/" separators.
func publishTo(ctx context.Context, bucket *blob.Bucket, prefix, dir string) error {
	return filepath.Walk(dir, func(p string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		key := path.Join(prefix, filepath.ToSlash(rel))
		r, err := os.Open(p)
		if err != nil {
			return fmt.Errorf("n2zutil: opening %s for upload: %v", p, err)
		}
		defer r.Close()
		w, err := bucket.NewWriter(ctx, key, &blob.WriterOptions{})
		if err != nil {
			return fmt.Errorf("n2zutil: opening writer for %s: %v", key, err)
		}
		if _, err := io.Copy(w, r); err != nil {
			w.Close()
			return fmt.Errorf("n2zutil: uploading %s: %v", key, err)
		}
		return w.Close()
	})
}

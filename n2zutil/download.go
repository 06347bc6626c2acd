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
	"io/ioutil"
	"log"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/cenkalti/backoff"
	"github.com/ctessum/requestcache"
	"github.com/google/go-cloud/blob"
	"github.com/google/go-cloud/blob/fileblob"
	"github.com/google/go-cloud/blob/gcsblob"
	"github.com/google/go-cloud/blob/s3blob"
	"github.com/google/go-cloud/gcp"
)

// IsBlob returns whether the given filename represents a blob.
// (i.e., if it starts with `gs://`, 's3://', or 'file://').
func IsBlob(path string) bool {
	return strings.HasPrefix(path, "gs://") || strings.HasPrefix(path, "s3://") || strings.HasPrefix(path, "file://")
}

// isRemote reports whether path needs downloading before the converter
// can open it.
func isRemote(path string) bool {
	return strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") || IsBlob(path)
}

// OpenBucket returns the blob storage bucket specified by bucketName,
// where bucketName must be in the format 'provider://name' where provider
// is the name of the storage provider and name is the name of the bucket.
// The currently accepted storage providers are "file" for the local
// filesystem (e.g., for testing), "gs" for Google Cloud Storage, and "s3"
// for AWS S3.
func OpenBucket(ctx context.Context, bucketName string) (*blob.Bucket, error) {
	url, err := url.Parse(bucketName)
	if err != nil {
		return nil, fmt.Errorf("n2zutil.OpenBucket: %v", err)
	}
	switch url.Scheme {
	case "file":
		return fileblob.NewBucket(url.Hostname())
	case "gs":
		return gsBucket(ctx, url.Hostname())
	case "s3":
		return s3Bucket(ctx, url.Hostname())
	default:
		return nil, fmt.Errorf("n2zutil.OpenBucket: invalid provider %s", url.Scheme)
	}
}

func gsBucket(ctx context.Context, name string) (*blob.Bucket, error) {
	// See here for information on credentials:
	// https://cloud.google.com/docs/authentication/getting-started
	creds, err := gcp.DefaultCredentials(ctx)
	if err != nil {
		return nil, err
	}
	c, err := gcp.NewHTTPClient(gcp.DefaultTransport(), gcp.CredentialsTokenSource(creds))
	if err != nil {
		return nil, err
	}
	return gcsblob.OpenBucket(ctx, name, c)
}

// s3Bucket opens an s3 storage bucket. It assumes the following
// environment variables are set: AWS_REGION, AWS_ACCESS_KEY_ID, and
// AWS_SECRET_ACCESS_KEY.
func s3Bucket(ctx context.Context, name string) (*blob.Bucket, error) {
	region := os.Getenv("AWS_REGION")
	if region == "" {
		region = "us-east-2"
	}
	c := &aws.Config{
		Region:      aws.String(region),
		Credentials: credentials.NewEnvCredentials(),
	}
	s := session.Must(session.NewSession(c))
	return s3blob.OpenBucket(ctx, s, name)
}

// A Downloader fetches remote granules into a local directory. Repeated
// requests for the same location are deduplicated and served from
// memory, so a granule appearing twice in one job is downloaded once.
type Downloader struct {
	dir   string
	cache *requestcache.Cache
}

// NewDownloader returns a Downloader placing files in dir; if dir is
// empty a temporary directory is created.
func NewDownloader(dir string) (*Downloader, error) {
	if dir == "" {
		var err error
		dir, err = ioutil.TempDir("", "n2z")
		if err != nil {
			return nil, fmt.Errorf("n2zutil: creating download directory: %v", err)
		}
	}
	d := &Downloader{dir: dir}
	d.cache = requestcache.NewCache(d.fetch, 1, requestcache.Deduplicate(), requestcache.Memory(100))
	return d, nil
}

// Fetch makes the granule at path available locally and returns its
// local path. Local paths pass through unchanged.
func (d *Downloader) Fetch(ctx context.Context, path string) (string, error) {
	if !isRemote(path) {
		return path, nil
	}
	r := d.cache.NewRequest(ctx, path, path)
	result, err := r.Result()
	if err != nil {
		return "", fmt.Errorf("n2zutil: downloading %s: %v", path, err)
	}
	return result.(string), nil
}

// fetch downloads one remote granule, retrying transient failures with
// exponential backoff.
func (d *Downloader) fetch(ctx context.Context, request interface{}) (interface{}, error) {
	path := request.(string)
	local := filepath.Join(d.dir, filepath.Base(path))
	err := backoff.RetryNotify(
		func() error {
			if IsBlob(path) {
				return d.copyBlob(ctx, path, local)
			}
			return d.copyHTTP(path, local)
		},
		backoff.NewExponentialBackOff(),
		func(err error, t time.Duration) {
			log.Printf("n2zutil: downloading %s: %v: retrying in %v", path, err, t)
		},
	)
	if err != nil {
		return nil, err
	}
	return local, nil
}

func (d *Downloader) copyHTTP(path, local string) error {
	resp, err := http.Get(path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("unexpected status %s", resp.Status)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			// Client errors won't heal on retry.
			return backoff.Permanent(err)
		}
		return err
	}
	return writeFile(local, resp.Body)
}

func (d *Downloader) copyBlob(ctx context.Context, path, local string) error {
	url, err := url.Parse(path)
	if err != nil {
		return err
	}
	bucket, err := OpenBucket(ctx, url.Scheme+"://"+url.Host)
	if err != nil {
		return err
	}
	r, err := bucket.NewReader(ctx, strings.TrimPrefix(url.Path, "/"))
	if err != nil {
		return err
	}
	defer r.Close()
	return writeFile(local, r)
}

func writeFile(path string, r io.Reader) error {
	w, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

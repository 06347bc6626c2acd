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
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
)

func stacServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/catalog.json", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"links": [
			{"rel": "root", "href": "./catalog.json"},
			{"rel": "item", "href": "./item1.json"},
			{"rel": "item", "href": "./item2.json"},
			{"rel": "next", "href": "./page2.json"}
		]}`)
	})
	mux.HandleFunc("/page2.json", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"links": [
			{"rel": "item", "href": "./item3.json"}
		]}`)
	})
	// item1 declares roles: the data asset wins over the
	// alphabetically earlier metadata asset.
	mux.HandleFunc("/item1.json", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"assets": {
			"browse": {"href": "./g1.png", "roles": ["thumbnail"]},
			"science": {"href": "./g1.nc", "roles": ["data"]}
		}}`)
	})
	// item2 declares no roles: the first asset by name is used.
	mux.HandleFunc("/item2.json", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"assets": {
			"b": {"href": "./ignored.nc"},
			"a": {"href": "./g2.nc"}
		}}`)
	})
	mux.HandleFunc("/item3.json", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"assets": {
			"data": {"href": "https://example.com/g3.nc", "roles": ["data"]}
		}}`)
	})
	mux.HandleFunc("/empty.json", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"links": [{"rel": "item", "href": "./noassets.json"}]}`)
	})
	mux.HandleFunc("/noassets.json", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"assets": {}}`)
	})
	mux.HandleFunc("/loop.json", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"links": [
			{"rel": "item", "href": "./item3.json"},
			{"rel": "next", "href": "./loop.json"}
		]}`)
	})
	return httptest.NewServer(mux)
}

func TestResolveCatalog(t *testing.T) {
	srv := stacServer(t)
	defer srv.Close()

	got, err := ResolveCatalog(context.Background(), srv.URL+"/catalog.json")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		srv.URL + "/g1.nc",
		srv.URL + "/g2.nc",
		"https://example.com/g3.nc",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("granules = %v, want %v", got, want)
	}
}

func TestResolveCatalogSelfLink(t *testing.T) {
	srv := stacServer(t)
	defer srv.Close()

	// A next link pointing back at an already visited page terminates
	// instead of looping.
	got, err := ResolveCatalog(context.Background(), srv.URL+"/loop.json")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0] != "https://example.com/g3.nc" {
		t.Errorf("granules = %v", got)
	}
}

func TestResolveCatalogNoAssets(t *testing.T) {
	srv := stacServer(t)
	defer srv.Close()

	if _, err := ResolveCatalog(context.Background(), srv.URL+"/empty.json"); err == nil {
		t.Fatal("expected an error for an item with no assets")
	}
}

func TestResolveCatalogBadPage(t *testing.T) {
	srv := stacServer(t)
	defer srv.Close()

	if _, err := ResolveCatalog(context.Background(), srv.URL+"/nosuch.json"); err == nil {
		t.Fatal("expected an error for a missing catalog")
	}
}

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
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
)

// A STAC catalog names the granules of a conversion job. Item pages are
// linked with rel="item" entries and chained with rel="next"; each item
// carries the granule location in its assets.

type stacCatalog struct {
	Links []stacLink `json:"links"`
}

type stacLink struct {
	Rel  string `json:"rel"`
	Href string `json:"href"`
}

type stacItem struct {
	Assets map[string]stacAsset `json:"assets"`
}

type stacAsset struct {
	Href  string   `json:"href"`
	Roles []string `json:"roles"`
}

// ResolveCatalog dereferences a STAC catalog, following item and page
// links, into the flat ordered list of granule locations it names. The
// whole catalog is resolved before any conversion work begins.
func ResolveCatalog(ctx context.Context, catalogURL string) ([]string, error) {
	var granules []string
	seen := map[string]bool{}
	page := catalogURL
	for page != "" && !seen[page] {
		seen[page] = true
		var cat stacCatalog
		if err := getJSON(ctx, page, &cat); err != nil {
			return nil, fmt.Errorf("n2zutil: reading catalog page %s: %v", page, err)
		}
		next := ""
		for _, link := range cat.Links {
			switch link.Rel {
			case "item":
				href, err := resolveRef(page, link.Href)
				if err != nil {
					return nil, err
				}
				g, err := itemGranule(ctx, href)
				if err != nil {
					return nil, err
				}
				granules = append(granules, g)
			case "next":
				next, _ = resolveRef(page, link.Href)
			}
		}
		page = next
	}
	return granules, nil
}

// itemGranule picks the granule location out of one catalog item: the
// asset with the "data" role, or the first asset by name when no roles
// are declared.
func itemGranule(ctx context.Context, itemURL string) (string, error) {
	var item stacItem
	if err := getJSON(ctx, itemURL, &item); err != nil {
		return "", fmt.Errorf("n2zutil: reading catalog item %s: %v", itemURL, err)
	}
	names := make([]string, 0, len(item.Assets))
	for name := range item.Assets {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		for _, role := range item.Assets[name].Roles {
			if role == "data" {
				return resolveRef(itemURL, item.Assets[name].Href)
			}
		}
	}
	if len(names) > 0 {
		return resolveRef(itemURL, item.Assets[names[0]].Href)
	}
	return "", fmt.Errorf("n2zutil: catalog item %s has no assets", itemURL)
}

// resolveRef resolves a possibly relative link against the page it
// appeared on.
func resolveRef(base, ref string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	r, err := url.Parse(ref)
	if err != nil {
		return "", err
	}
	return b.ResolveReference(r).String(), nil
}

func getJSON(ctx context.Context, u string, v interface{}) error {
	req, err := http.NewRequest(http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req.WithContext(ctx))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

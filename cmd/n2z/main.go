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

// Command n2z is a command-line interface for converting NetCDF granules
// into Zarr stores.
package main

import (
	"os"

	"github.com/nasa/harmony-netcdf-to-zarr/n2zutil"
	"github.com/sirupsen/logrus"
)

func main() {
	if err := n2zutil.Root.Execute(); err != nil {
		logrus.Error(err)
		os.Exit(1)
	}
}

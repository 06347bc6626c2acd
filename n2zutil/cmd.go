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

// Package n2zutil holds the configuration and command-line wiring for
// the n2z converter.
package n2zutil

import (
	"context"
	"fmt"

	"github.com/lnashier/viper"
	n2z "github.com/nasa/harmony-netcdf-to-zarr"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	// Options are the configuration options available to n2z.
	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
	}{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "InputFiles",
			usage: `
              InputFiles lists the granules to convert, in the order they
              should appear in the output. Entries can be local paths,
              http(s) URLs, or blob locations (s3://, gs://, file://),
              and can include environment variables.`,
			defaultVal: []string{},
			flagsets:   []*pflag.FlagSet{convertCmd.Flags()},
		},
		{
			name: "STACCatalog",
			usage: `
              STACCatalog is the URL of a STAC catalog whose items name the
              granules to convert. The catalog's item pages are followed
              until the list is complete, and the resulting granules are
              appended to InputFiles in catalog order.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{convertCmd.Flags()},
		},
		{
			name: "OutputLocation",
			usage: `
              OutputLocation is where the finished store (or stores, when
              concatenation is disabled) should be placed. It can be a local
              path or a blob location, and can include environment
              variables.`,
			shorthand:  "o",
			defaultVal: "output.zarr",
			flagsets:   []*pflag.FlagSet{convertCmd.Flags()},
		},
		{
			name: "Concatenate",
			usage: `
              Concatenate merges all input granules along their temporal
              dimensions into one store. When false, every granule becomes
              its own independent store.`,
			shorthand:  "c",
			defaultVal: true,
			flagsets:   []*pflag.FlagSet{convertCmd.Flags()},
		},
		{
			name: "Workers",
			usage: `
              Workers bounds the number of granules written concurrently.
              Zero means one worker per CPU.`,
			defaultVal: 0,
			flagsets:   []*pflag.FlagSet{convertCmd.Flags()},
		},
		{
			name: "DownloadDir",
			usage: `
              DownloadDir is the directory remote granules are downloaded
              into. If empty, a temporary directory is created.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{convertCmd.Flags()},
		},
		{
			name: "Chunks.TargetBytes",
			usage: `
              Chunks.TargetBytes is the goal uncompressed byte size of
              output chunks.`,
			defaultVal: 15728640,
			flagsets:   []*pflag.FlagSet{convertCmd.Flags()},
		},
		{
			name: "Chunks.MinBytes",
			usage: `
              Chunks.MinBytes is the smallest acceptable uncompressed chunk
              size. Chunks are grown toward it when the target cannot be
              met.`,
			defaultVal: 1048576,
			flagsets:   []*pflag.FlagSet{convertCmd.Flags()},
		},
		{
			name: "Chunks.MaxBytes",
			usage: `
              Chunks.MaxBytes bounds the uncompressed size of one chunk.
              When the minimum and maximum conflict, the maximum wins.`,
			defaultVal: 67108864,
			flagsets:   []*pflag.FlagSet{convertCmd.Flags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("N2Z")

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch option.defaultVal.(type) {
			case string:
				if option.shorthand == "" {
					set.String(option.name, option.defaultVal.(string), option.usage)
				} else {
					set.StringP(option.name, option.shorthand, option.defaultVal.(string), option.usage)
				}
			case []string:
				if option.shorthand == "" {
					set.StringSlice(option.name, option.defaultVal.([]string), option.usage)
				} else {
					set.StringSliceP(option.name, option.shorthand, option.defaultVal.([]string), option.usage)
				}
			case bool:
				if option.shorthand == "" {
					set.Bool(option.name, option.defaultVal.(bool), option.usage)
				} else {
					set.BoolP(option.name, option.shorthand, option.defaultVal.(bool), option.usage)
				}
			case int:
				if option.shorthand == "" {
					set.Int(option.name, option.defaultVal.(int), option.usage)
				} else {
					set.IntP(option.name, option.shorthand, option.defaultVal.(int), option.usage)
				}
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
}

func init() {
	// Link the commands together.
	Root.AddCommand(versionCmd)
	Root.AddCommand(convertCmd)
}

// setConfig finds and reads in the configuration file, if there is one.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(cfgpath)
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("n2z: problem reading configuration file: %v", err)
		}
	}
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "n2z",
	Short: "Convert NetCDF granules into Zarr stores.",
	Long: `n2z converts gridded NetCDF-4 and NetCDF classic granules into chunked,
compressed Zarr stores, optionally concatenating many granules along a
shared temporal dimension into one logical dataset.

Refer to the subcommand documentation for configuration options and default
settings. Configuration can be changed by using a configuration file (and
providing the path to the file using the --config flag), by using
command-line arguments, or by setting environment variables in the format
'N2Z_var' where 'var' is the name of the variable to be set.`,
	DisableAutoGenTag: true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of n2z.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("n2z v%s\n", n2z.Version)
	},
	DisableAutoGenTag: true,
}

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert the configured granules.",
	Long: `convert resolves the configured input granules (downloading remote ones),
runs the conversion, and publishes the finished store to the configured
output location.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return Convert(context.Background(), Cfg)
	},
	DisableAutoGenTag: true,
}

// Copyright 2021 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"fmt"
	"strings"

	"github.com/rodaine/table"
	"github.com/urfave/cli/v2"
)

var listCommand = &cli.Command{
	Name:         "list",
	Usage:        "list dictionaries",
	Description:  "List all dictionaries in the data directories.",
	OnUsageError: usageError,
	Action: func(c *cli.Context) error {
		dicts, err := openDicts(c)
		if err != nil {
			return err
		}
		defer closeDicts(dicts)

		tbl := table.New("Title", "Entries", "Media", "Path").WithWriter(c.App.Writer)
		for _, d := range dicts {
			n, err := d.Count(c.Context)
			if err != nil {
				return fmt.Errorf("%w: %w", ErrMdutil, err)
			}
			tbl.AddRow(d.Title(), n, strings.Join(d.MediaParts(), ", "), d.Path())
		}
		tbl.Print()
		return nil
	},
}

var rebuildCommand = &cli.Command{
	Name:         "rebuild",
	Usage:        "rebuild side indexes",
	Description:  "Rebuild the side indexes of all dictionaries. Requires --parser-command.",
	OnUsageError: usageError,
	Action: func(c *cli.Context) error {
		dicts, err := openDicts(c)
		if err != nil {
			return err
		}
		defer closeDicts(dicts)

		tbl := table.New("Title", "Entries", "Index").WithWriter(c.App.Writer)
		for _, d := range dicts {
			if err := d.Rebuild(c.Context); err != nil {
				return fmt.Errorf("%w: %w", ErrMdutil, err)
			}
			n, err := d.Count(c.Context)
			if err != nil {
				return fmt.Errorf("%w: %w", ErrMdutil, err)
			}
			tbl.AddRow(d.Title(), n, d.IndexPath())
		}
		tbl.Print()
		return nil
	},
}

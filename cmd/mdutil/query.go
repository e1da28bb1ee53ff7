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
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/k3a/html2text"
	"github.com/urfave/cli/v2"

	"github.com/ianlewis/go-mdict"
)

// Render tags used in cache keys.
const (
	tagHTML  = "html"
	tagPlain = "plain"
)

func renderHTML(_ context.Context, text, word string) ([]byte, error) {
	return []byte(word + "\n" + text + "\n"), nil
}

func renderPlain(_ context.Context, text, word string) ([]byte, error) {
	return []byte(word + "\n" + html2text.HTML2Text(text) + "\n"), nil
}

var queryCommand = &cli.Command{
	Name:      "query",
	Usage:     "look up a word",
	ArgsUsage: "WORD",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:               "plain",
			Usage:              "convert entries to plain text",
			Aliases:            []string{"p"},
			DisableDefaultText: true,
		},
	},
	OnUsageError: usageError,
	Action: func(c *cli.Context) error {
		if c.Args().Len() != 1 {
			return fmt.Errorf("%w: expected one WORD argument", ErrFlagParse)
		}
		word := c.Args().First()

		dicts, err := openDicts(c)
		if err != nil {
			return err
		}
		defer closeDicts(dicts)

		tag, r := tagHTML, mdict.RenderFunc(renderHTML)
		if c.Bool("plain") {
			tag, r = tagPlain, mdict.RenderFunc(renderPlain)
		}

		found := false
		for _, d := range dicts {
			b, err := d.LookupRendered(c.Context, word, tag, r)
			if errors.Is(err, mdict.ErrNotFound) {
				continue
			}
			if err != nil {
				return fmt.Errorf("%w: %s: %w", ErrMdutil, d.Title(), err)
			}
			found = true
			fmt.Fprintf(c.App.Writer, "%s\n\n", d.Title())
			if _, err := c.App.Writer.Write(b); err != nil {
				return fmt.Errorf("%w: %w", ErrMdutil, err)
			}
			fmt.Fprintln(c.App.Writer)
		}
		if !found {
			return fmt.Errorf("%w: %q", mdict.ErrNotFound, word)
		}
		return nil
	},
}

var mediaCommand = &cli.Command{
	Name:      "media",
	Usage:     "extract a media resource",
	ArgsUsage: "REF",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "output",
			Usage:   "write the resource to `FILE` instead of standard output",
			Aliases: []string{"o"},
		},
	},
	OnUsageError: usageError,
	Action: func(c *cli.Context) error {
		if c.Args().Len() != 1 {
			return fmt.Errorf("%w: expected one REF argument", ErrFlagParse)
		}
		ref := c.Args().First()

		dicts, err := openDicts(c)
		if err != nil {
			return err
		}
		defer closeDicts(dicts)

		for _, d := range dicts {
			b, err := d.LookupMedia(c.Context, ref)
			if errors.Is(err, mdict.ErrNotFound) {
				continue
			}
			if err != nil {
				return fmt.Errorf("%w: %s: %w", ErrMdutil, d.Title(), err)
			}
			return writeOutput(c.App.Writer, c.String("output"), b)
		}
		return fmt.Errorf("%w: %q", mdict.ErrNotFound, ref)
	},
}

func writeOutput(stdout io.Writer, path string, b []byte) error {
	if path == "" {
		if _, err := stdout.Write(b); err != nil {
			return fmt.Errorf("%w: %w", ErrMdutil, err)
		}
		return nil
	}
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("%w: %w", ErrMdutil, err)
	}
	return nil
}

var keysCommand = &cli.Command{
	Name:  "keys",
	Usage: "list dictionary keys",
	Description: "List keys starting with QUERY. A QUERY containing '*' is " +
		"a glob pattern. All keys are listed when QUERY is omitted.",
	ArgsUsage: "[QUERY]",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:               "media",
			Usage:              "list media keys instead of entry keys",
			Aliases:            []string{"m"},
			DisableDefaultText: true,
		},
	},
	OnUsageError: usageError,
	Action: func(c *cli.Context) error {
		if c.Args().Len() > 1 {
			return fmt.Errorf("%w: unexpected arguments", ErrFlagParse)
		}
		query := c.Args().First()

		dicts, err := openDicts(c)
		if err != nil {
			return err
		}
		defer closeDicts(dicts)

		for _, d := range dicts {
			keys := d.Keys
			if c.Bool("media") {
				keys = d.MediaKeys
			}
			ks, err := keys(c.Context, query)
			if err != nil {
				return fmt.Errorf("%w: %s: %w", ErrMdutil, d.Title(), err)
			}
			for _, k := range ks {
				fmt.Fprintln(c.App.Writer, k)
			}
		}
		return nil
	},
}

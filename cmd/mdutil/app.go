// Copyright 2025 Ian Lewis
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
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/urfave/cli/v2"
	"sigs.k8s.io/release-utils/version"

	"github.com/ianlewis/go-mdict"
	"github.com/ianlewis/go-mdict/cache"
	"github.com/ianlewis/go-mdict/internal/config"
)

const (
	// ExitCodeSuccess is successful error code.
	ExitCodeSuccess int = iota

	// ExitCodeFlagParseError is the exit code for a flag parsing error.
	ExitCodeFlagParseError

	// ExitCodeNotFound is the exit code when no entry was found.
	ExitCodeNotFound

	// ExitCodeUnknownError is the exit code for an unknown error.
	ExitCodeUnknownError
)

// ErrMdutil is a parent error for all command errors.
var ErrMdutil = errors.New("mdutil")

// ErrFlagParse is a flag parsing error.
var ErrFlagParse = fmt.Errorf("%w: parsing flags", ErrMdutil)

var copyrightNames = []string{
	"2021 Google LLC",
	"2026 Ian Lewis",
}

//nolint:gochecknoinits // init needed needed for global variable.
func init() {
	// Set the HelpFlag to a random name so that it isn't used. `cli` handles
	// the flag with the root command such that it takes a command name argument
	// but we don't use commands.
	//
	// This is done because `mdutil --help foo` will display a
	// "command foo not found" error instead of the help.
	//
	// This flag is hidden by the help output.
	// See: github.com/urfave/cli/issues/1809
	cli.HelpFlag = &cli.BoolFlag{
		// NOTE: Use a random name no one would guess.
		Name:               "d41d8cd98f00b204e980",
		DisableDefaultText: true,
	}
}

// check checks the error and panics if not nil.
func check(err error) {
	if err != nil {
		panic(err)
	}
}

// exitCode returns the process exit code for an error returned by the app.
func exitCode(err error) int {
	switch {
	case err == nil:
		return ExitCodeSuccess
	case errors.Is(err, ErrFlagParse):
		return ExitCodeFlagParseError
	case errors.Is(err, mdict.ErrNotFound):
		return ExitCodeNotFound
	default:
		return ExitCodeUnknownError
	}
}

func usageError(_ *cli.Context, err error, _ bool) error {
	return fmt.Errorf("%w: %w", ErrFlagParse, err)
}

// loadConfig reads the config file and applies flags set on the command
// line over it.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMdutil, err)
	}

	if c.IsSet("data-dir") || len(cfg.DataDirs) == 0 {
		cfg.DataDirs = c.StringSlice("data-dir")
	}
	if c.IsSet("cache-bytes") {
		cfg.CacheBytes = c.Int64("cache-bytes")
	}
	if c.IsSet("lemmatizer") {
		cfg.Lemmatizer = c.String("lemmatizer")
	}
	if c.IsSet("lemma-command") {
		cfg.LemmaCommand = c.String("lemma-command")
	}
	if c.IsSet("parser-command") {
		cfg.ParserCommand = c.String("parser-command")
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}
	if c.IsSet("force-rebuild") {
		cfg.ForceRebuild = c.Bool("force-rebuild")
	}

	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFlagParse, err)
	}
	return cfg, nil
}

func newLogger(c *cli.Context, cfg *config.Config) hclog.Logger {
	return hclog.New(&hclog.LoggerOptions{
		Name:   c.App.Name,
		Level:  cfg.Level(),
		Output: c.App.ErrWriter,
	})
}

// openDicts opens all dictionaries in the configured data directories.
// Dictionaries that fail to open are logged and skipped.
func openDicts(c *cli.Context) ([]*mdict.Mdict, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	logger := newLogger(c, cfg)

	lemmatizer, err := cfg.NewLemmatizer()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMdutil, err)
	}
	parser, err := cfg.NewParser()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMdutil, err)
	}
	var rc *cache.Cache
	if cfg.CacheBytes > 0 {
		rc = cache.New(cfg.CacheBytes)
	}

	opts := &mdict.Options{
		Parser:        parser,
		Lemmatizer:    lemmatizer,
		Cache:         rc,
		SchemaVersion: cfg.SchemaVersion,
		ForceRebuild:  cfg.ForceRebuild,
		Logger:        logger,
	}

	var dicts []*mdict.Mdict
	for _, dir := range cfg.DataDirs {
		openDicts, errs := mdict.OpenAll(c.Context, dir, opts)
		for _, err := range errs {
			if errors.Is(err, fs.ErrNotExist) {
				logger.Debug("skipping dictionary location", "path", dir, "error", err)
				continue
			}
			logger.Warn("opening dictionary", "error", err)
		}
		dicts = append(dicts, openDicts...)
	}
	return dicts, nil
}

func closeDicts(dicts []*mdict.Mdict) {
	for _, d := range dicts {
		_ = d.Close()
	}
}

func printVersion(c *cli.Context) error {
	versionInfo := version.GetVersionInfo()
	_, err := fmt.Fprintf(c.App.Writer, `%s %s
Copyright (c) %s

Licensed under the Apache License, Version 2.0.
`, c.App.Name, versionInfo.GitVersion, strings.Join(copyrightNames, ", "))
	if err != nil {
		return fmt.Errorf("%w: printing version: %w", ErrMdutil, err)
	}
	return nil
}

func newMdutilApp() *cli.App {
	return &cli.App{
		Name:  filepath.Base(os.Args[0]),
		Usage: "Search MDict dictionaries.",
		Description: strings.Join([]string{
			"MDict utility written in Go.",
			"http://github.com/ianlewis/go-mdict",
		}, "\n"),
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:    "data-dir",
				Usage:   "include dictionaries in `DIR`",
				Aliases: []string{"d"},
				Value:   cli.NewStringSlice(dictLocations()...),
			},
			&cli.StringFlag{
				Name:    "config",
				Usage:   "read configuration from `FILE` (YAML or JSON)",
				Aliases: []string{"c"},
				EnvVars: []string{config.EnvVar},
			},
			&cli.Int64Flag{
				Name:  "cache-bytes",
				Usage: "render cache capacity in `BYTES`",
			},
			&cli.StringFlag{
				Name:  "lemmatizer",
				Usage: "lemmatizer `KIND` (none, command, golem)",
			},
			&cli.StringFlag{
				Name:  "lemma-command",
				Usage: "external lemmatizer `COMMAND`; the word is appended",
			},
			&cli.StringFlag{
				Name:  "parser-command",
				Usage: "external archive parser `COMMAND` used to build indexes",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "log `LEVEL` (trace, debug, info, warn, error)",
			},
			&cli.BoolFlag{
				Name:               "force-rebuild",
				Usage:              "rebuild all side indexes when opening dictionaries",
				DisableDefaultText: true,
			},

			// Special flags are shown at the end.
			&cli.BoolFlag{
				Name:               "help",
				Usage:              "print this help text and exit",
				Aliases:            []string{"h"},
				DisableDefaultText: true,
			},
			&cli.BoolFlag{
				Name:               "version",
				Usage:              "print version information and exit",
				Aliases:            []string{"V"},
				DisableDefaultText: true,
			},
		},
		Copyright:       strings.Join(copyrightNames, "\n"),
		HideHelp:        true,
		HideHelpCommand: true,
		OnUsageError:    usageError,
		Action: func(c *cli.Context) error {
			if c.Bool("version") {
				return printVersion(c)
			}

			check(cli.ShowAppHelp(c))
			return nil
		},
		Commands: []*cli.Command{
			listCommand,
			queryCommand,
			mediaCommand,
			keysCommand,
			rebuildCommand,
			benchCommand,
		},
	}
}

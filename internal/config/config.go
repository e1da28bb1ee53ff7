// Copyright 2026 Ian Lewis
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

// Package config loads mdutil configuration files.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/go-hclog"
	"gopkg.in/yaml.v3"

	"github.com/ianlewis/go-mdict/lemma"
	"github.com/ianlewis/go-mdict/sideindex"
)

// EnvVar names the environment variable holding the config file path.
const EnvVar = "MDUTIL_CONFIG"

// Lemmatizer kinds.
const (
	LemmatizerNone    = "none"
	LemmatizerCommand = "command"
	LemmatizerGolem   = "golem"
)

// ErrInvalid indicates an invalid configuration value.
var ErrInvalid = errors.New("invalid config")

// Config is the mdutil configuration.
type Config struct {
	// DataDirs are searched for dictionaries. Defaults to the platform's
	// dictionary locations.
	DataDirs []string `yaml:"data_dirs" json:"data_dirs"`

	// CacheBytes is the render cache capacity in bytes. Zero disables the
	// cache.
	CacheBytes int64 `yaml:"cache_bytes" json:"cache_bytes"`

	// SchemaVersion namespaces render cache keys.
	SchemaVersion string `yaml:"schema_version" json:"schema_version"`

	// Lemmatizer is one of "none", "command" or "golem".
	Lemmatizer string `yaml:"lemmatizer" json:"lemmatizer"`

	// LemmaCommand is the command line of an external lemmatizer. The word
	// is appended as the last argument.
	LemmaCommand string `yaml:"lemma_command" json:"lemma_command"`

	// ParserCommand is the command line of an external archive parser used
	// to build side indexes. The archive path is appended as the last
	// argument.
	ParserCommand string `yaml:"parser_command" json:"parser_command"`

	LogLevel     string `yaml:"log_level" json:"log_level"`
	ForceRebuild bool   `yaml:"force_rebuild" json:"force_rebuild"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		CacheBytes:    64 << 20,
		SchemaVersion: "1",
		Lemmatizer:    LemmatizerNone,
		LogLevel:      "warn",
	}
}

// Load reads the configuration file at path over the defaults. Files ending
// in .json are decoded as JSON and anything else as YAML. If path is empty
// the file named by the MDUTIL_CONFIG environment variable is used. With no
// file the defaults are returned.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = os.Getenv(EnvVar)
	}
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if strings.HasSuffix(path, ".json") {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("decoding %q: %w", path, err)
		}
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("decoding %q: %w", path, err)
		}
	}

	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%q: %w", path, err)
	}
	return cfg, nil
}

// Normalize fills in implied values.
func (c *Config) Normalize() {
	c.Lemmatizer = strings.ToLower(strings.TrimSpace(c.Lemmatizer))
	if c.Lemmatizer == "" {
		c.Lemmatizer = LemmatizerNone
		if c.LemmaCommand != "" {
			c.Lemmatizer = LemmatizerCommand
		}
	}
	if c.LogLevel == "" {
		c.LogLevel = "warn"
	}
}

// Validate checks the configuration values.
func (c *Config) Validate() error {
	if c.CacheBytes < 0 {
		return fmt.Errorf("%w: cache_bytes must not be negative: %d", ErrInvalid, c.CacheBytes)
	}
	switch c.Lemmatizer {
	case LemmatizerNone, LemmatizerGolem:
	case LemmatizerCommand:
		if strings.TrimSpace(c.LemmaCommand) == "" {
			return fmt.Errorf("%w: lemmatizer %q requires lemma_command", ErrInvalid, c.Lemmatizer)
		}
	default:
		return fmt.Errorf("%w: unknown lemmatizer %q", ErrInvalid, c.Lemmatizer)
	}
	if hclog.LevelFromString(c.LogLevel) == hclog.NoLevel {
		return fmt.Errorf("%w: unknown log level %q", ErrInvalid, c.LogLevel)
	}
	return nil
}

// Level returns the configured log level.
func (c *Config) Level() hclog.Level {
	return hclog.LevelFromString(c.LogLevel)
}

// NewLemmatizer returns the configured lemmatizer. It returns nil when
// lemmatization is disabled.
func (c *Config) NewLemmatizer() (lemma.Lemmatizer, error) {
	switch c.Lemmatizer {
	case LemmatizerCommand:
		cmd, err := lemma.NewCommand(c.LemmaCommand)
		if err != nil {
			return nil, err
		}
		return cmd, nil
	case LemmatizerGolem:
		return lemma.NewGolem(), nil
	default:
		return nil, nil
	}
}

// NewParser returns the configured archive parser. It returns nil when no
// parser command is configured.
func (c *Config) NewParser() (sideindex.Parser, error) {
	if strings.TrimSpace(c.ParserCommand) == "" {
		return nil, nil
	}
	cmd, err := sideindex.NewCommand(c.ParserCommand)
	if err != nil {
		return nil, err
	}
	return cmd, nil
}

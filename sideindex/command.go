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

package sideindex

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/ianlewis/go-mdict/record"
)

// ErrEmptyCommand indicates a parser command line with no program.
var ErrEmptyCommand = errors.New("empty parser command")

// Command is a Parser that runs an external program for each archive. The
// archive path is appended to Args and the program must write the archive
// as JSON to standard output, e.g.
//
//	{"Records": [{"Key": "run", "FilePos": 1024, ...}], "Metadata": {"Encoding": "UTF-8"}}
//
// Metadata must be omitted or null for media archives. A program that does
// not decode the header's StyleSheet attribute may pass it through verbatim
// as "HeaderStylesheet"; its styles are merged into Metadata.Stylesheet.
type Command struct {
	// Path is the program to run.
	Path string

	// Args are arguments passed before the archive path.
	Args []string
}

// NewCommand returns a Command from a command line. The first field is the
// program.
func NewCommand(cmdline string) (*Command, error) {
	fields := strings.Fields(cmdline)
	if len(fields) == 0 {
		return nil, ErrEmptyCommand
	}
	return &Command{
		Path: fields[0],
		Args: fields[1:],
	}, nil
}

// Parse implements [Parser].
func (c *Command) Parse(ctx context.Context, path string) (*Archive, error) {
	args := append(append([]string(nil), c.Args...), path)
	//nolint:gosec // the command is configured by the operator.
	cmd := exec.CommandContext(ctx, c.Path, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("running %s: %w: %s", c.Path, err, strings.TrimSpace(stderr.String()))
	}

	var out commandOutput
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		return nil, fmt.Errorf("decoding %s output: %w", c.Path, err)
	}
	return out.archive()
}

type commandOutput struct {
	Records  []*record.Record
	Metadata *record.Metadata

	// HeaderStylesheet is the raw StyleSheet attribute of a text archive's
	// header.
	HeaderStylesheet string
}

func (o *commandOutput) archive() (*Archive, error) {
	a := &Archive{
		Records:  o.Records,
		Metadata: o.Metadata,
	}
	if o.HeaderStylesheet == "" || a.Metadata == nil {
		return a, nil
	}

	sheet, err := record.ParseStylesheet(o.HeaderStylesheet)
	if err != nil {
		return nil, err
	}
	if a.Metadata.Stylesheet == nil {
		a.Metadata.Stylesheet = record.Stylesheet{}
	}
	for id, style := range sheet {
		a.Metadata.Stylesheet[id] = style
	}
	return a, nil
}

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

// Package lemma provides lemmatizers that reduce inflected words to their
// dictionary base form.
//
// Lemmatizers are used as a fallback when a word has no entry of its own,
// e.g. "running" is retried as "run". Every call blocks the caller. The
// Command lemmatizer launches one process per call and is by far the most
// expensive step of a lookup; prefer Golem when in-process English
// lemmatization is sufficient.
package lemma

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"github.com/aaaton/golem/v4"
	"github.com/aaaton/golem/v4/dicts/en"
)

// ErrUnavailable indicates that a lemmatizer cannot be used.
var ErrUnavailable = errors.New("lemmatizer unavailable")

// Lemmatizer reduces a word to its base form.
type Lemmatizer interface {
	// Lemmatize returns the base form of word. It may return word itself if
	// the word is already a base form or has no known base form.
	Lemmatize(ctx context.Context, word string) (string, error)
}

// Func adapts a function to a Lemmatizer.
type Func func(ctx context.Context, word string) (string, error)

// Lemmatize implements [Lemmatizer].
func (f Func) Lemmatize(ctx context.Context, word string) (string, error) {
	return f(ctx, word)
}

// Command is a Lemmatizer that runs an external program for each word. The
// word is appended to Args and the program's trimmed standard output is the
// base form.
type Command struct {
	// Path is the program to run.
	Path string

	// Args are arguments passed before the word.
	Args []string
}

// NewCommand returns a Command from a command line. The first field is the
// program. For example "python lemma.py".
func NewCommand(cmdline string) (*Command, error) {
	fields := strings.Fields(cmdline)
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: empty command", ErrUnavailable)
	}
	return &Command{
		Path: fields[0],
		Args: fields[1:],
	}, nil
}

// Lemmatize implements [Lemmatizer].
func (c *Command) Lemmatize(ctx context.Context, word string) (string, error) {
	args := append(append([]string(nil), c.Args...), word)
	//nolint:gosec // the command is configured by the operator.
	cmd := exec.CommandContext(ctx, c.Path, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return "", fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		return "", fmt.Errorf("running %s: %w: %s", c.Path, err, strings.TrimSpace(stderr.String()))
	}
	return strings.TrimSpace(stdout.String()), nil
}

// Golem is an in-process English Lemmatizer. The dictionary is loaded on
// first use.
type Golem struct {
	once sync.Once
	l    *golem.Lemmatizer
	err  error
}

// NewGolem returns a new Golem lemmatizer.
func NewGolem() *Golem {
	return &Golem{}
}

// Lemmatize implements [Lemmatizer].
func (g *Golem) Lemmatize(_ context.Context, word string) (string, error) {
	g.once.Do(func() {
		g.l, g.err = golem.New(en.New())
	})
	if g.err != nil {
		return "", fmt.Errorf("%w: loading english dictionary: %w", ErrUnavailable, g.err)
	}
	return g.l.Lemma(word), nil
}

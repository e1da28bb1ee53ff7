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

package testutil

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"sync"
	"testing"

	"github.com/ianlewis/go-mdict/record"
	"github.com/ianlewis/go-mdict/sideindex"
)

// Parser is a sideindex.Parser that serves prepared archives by path.
type Parser struct {
	mu       sync.Mutex
	archives map[string]*sideindex.Archive
	calls    map[string]int

	// Err is returned by Parse when set.
	Err error
}

// NewParser returns an empty Parser.
func NewParser() *Parser {
	return &Parser{
		archives: map[string]*sideindex.Archive{},
		calls:    map[string]int{},
	}
}

// Add registers the archive returned for path.
func (p *Parser) Add(path string, a *sideindex.Archive) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.archives[filepath.Clean(path)] = a
}

// Parse implements sideindex.Parser.
func (p *Parser) Parse(_ context.Context, path string) (*sideindex.Archive, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	path = filepath.Clean(path)
	p.calls[path]++
	if p.Err != nil {
		return nil, p.Err
	}
	a, ok := p.archives[path]
	if !ok {
		return nil, fmt.Errorf("no test archive for %q", path)
	}
	return a, nil
}

// Calls returns the number of times path was parsed.
func (p *Parser) Calls(path string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[filepath.Clean(path)]
}

// Dict describes a test dictionary with a text archive and optional media
// parts.
type Dict struct {
	// Name is the file name stem. Defaults to "dictionary".
	Name string

	// Text are the text archive's entries.
	Text        []*Entry
	TextOptions *ArchiveOptions

	// Metadata is the text archive's metadata. Defaults to UTF-8 with no
	// stylesheet.
	Metadata *record.Metadata

	// Media are the entries of each media part. Part 0 is written to
	// <name>.mdd, part i to <name>.<i>.mdd.
	Media        [][]*Entry
	MediaOptions *ArchiveOptions
}

// WriteDict writes the dictionary's archives to dir, registers them with p
// and returns the path of the .mdx file.
func WriteDict(t *testing.T, dir string, d *Dict, p *Parser) string {
	t.Helper()

	name := d.Name
	if name == "" {
		name = "dictionary"
	}

	md := d.Metadata
	if md == nil {
		md = &record.Metadata{
			Encoding: "UTF-8",
			Title:    name,
		}
	}

	data, records := MakeArchive(t, d.Text, d.TextOptions)
	mdxPath := WriteFile(t, dir, name+".mdx", data)
	p.Add(mdxPath, &sideindex.Archive{
		Records:  records,
		Metadata: md,
	})

	for i, entries := range d.Media {
		partName := name + ".mdd"
		if i > 0 {
			partName = name + "." + strconv.Itoa(i) + ".mdd"
		}
		data, records := MakeArchive(t, entries, d.MediaOptions)
		path := WriteFile(t, dir, partName, data)
		p.Add(path, &sideindex.Archive{
			Records: records,
		})
	}

	return mdxPath
}

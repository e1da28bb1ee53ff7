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

package mdict

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/ianlewis/go-mdict/cache"
	"github.com/ianlewis/go-mdict/lemma"
	"github.com/ianlewis/go-mdict/metrics"
	"github.com/ianlewis/go-mdict/record"
	"github.com/ianlewis/go-mdict/sideindex"
)

const (
	textExt  = ".mdx"
	mediaExt = ".mdd"
	dbExt    = ".db"
)

var (
	// ErrNotFound indicates that no entry exists for a word or media
	// reference.
	ErrNotFound = errors.New("no entry found")

	// ErrNoParser indicates that a side index must be built but no archive
	// parser was configured.
	ErrNoParser = errors.New("no archive parser")

	// ErrBadExtension indicates that a dictionary path is not an .mdx file.
	ErrBadExtension = errors.New("bad extension")
)

// Options are options for opening a dictionary.
type Options struct {
	// Parser scans raw archives when a side index must be built. Without a
	// parser only dictionaries with current side indexes can be opened.
	Parser sideindex.Parser

	// Lemmatizer is consulted when a word has no entry. Lemma fallback is
	// disabled when nil.
	Lemmatizer lemma.Lemmatizer

	// Cache holds rendered entries. Caching is disabled when nil. A cache
	// may be shared by several dictionaries.
	Cache *cache.Cache

	// SchemaVersion namespaces cache keys. Changing it invalidates all
	// previously cached renders.
	SchemaVersion string

	// Decompressors are the available record block decompressors. Defaults
	// to record.DefaultDecompressors.
	Decompressors record.Decompressors

	// ForceRebuild rebuilds all side indexes on open.
	ForceRebuild bool

	// NoKeyIndex skips creating the secondary key index when building side
	// indexes. Builds are faster but lookups scan the whole table.
	NoKeyIndex bool

	// Logger is the logger to use. Defaults to a null logger.
	Logger hclog.Logger
}

// DefaultOptions is the default options for opening a dictionary.
var DefaultOptions = &Options{}

// mediaPart is a single media archive and its side index.
type mediaPart struct {
	path  string
	index *sideindex.Index
}

// Mdict is an MDict dictionary: a text archive and its media archives,
// each with a side index. Lookups are safe for concurrent use. Rebuild and
// Close must not be called concurrently with lookups.
type Mdict struct {
	path   string
	opts   Options
	logger hclog.Logger

	index *sideindex.Index
	text  *record.Extractor

	media      []*mediaPart
	mediaExtor *record.Extractor
}

// OpenAll opens all dictionaries under a directory. This function will return
// all successfully opened dictionaries along with any errors that occurred.
func OpenAll(ctx context.Context, path string, opts *Options) ([]*Mdict, []error) {
	var dicts []*Mdict
	var errs []error
	if err := filepath.WalkDir(path, func(path string, info fs.DirEntry, err error) error {
		// Walking the file path will ignore errors.
		if err != nil {
			errs = append(errs, err)
			return nil
		}
		if !info.IsDir() && strings.EqualFold(filepath.Ext(info.Name()), textExt) {
			d, err := Open(ctx, path, opts)
			if err != nil {
				errs = append(errs, err)
				return nil
			}
			dicts = append(dicts, d)
		}
		return nil
	}); err != nil {
		errs = append(errs, err)
		return nil, errs
	}
	return dicts, errs
}

// Open opens an MDict dictionary from the given .mdx file path. Side indexes
// that are missing or stale are built with opts.Parser.
func Open(ctx context.Context, path string, opts *Options) (*Mdict, error) {
	if opts == nil {
		opts = DefaultOptions
	}

	ext := filepath.Ext(path)
	if !strings.EqualFold(ext, textExt) {
		return nil, fmt.Errorf("%w: %q", ErrBadExtension, ext)
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("opening %q: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("opening %q: is a directory", path)
	}

	m := &Mdict{
		path:   path,
		opts:   *opts,
		logger: opts.Logger,
	}
	if m.logger == nil {
		m.logger = hclog.NewNullLogger()
	}
	if m.opts.Decompressors == nil {
		m.opts.Decompressors = record.DefaultDecompressors()
	}

	if err := m.load(ctx, opts.ForceRebuild); err != nil {
		return nil, err
	}
	return m, nil
}

// load opens the text and media side indexes, building them as needed.
func (m *Mdict) load(ctx context.Context, force bool) error {
	index, stale, err := m.openIndex(ctx, m.path, m.IndexPath(), false, force)
	if err != nil {
		return err
	}

	md := index.Metadata()
	if md == nil {
		md = &record.Metadata{}
	}
	text, err := record.NewExtractor(&record.ExtractorOptions{
		Encoding:      md.Encoding,
		Stylesheet:    md.Stylesheet,
		Decompressors: m.opts.Decompressors,
	})
	if err != nil {
		return errors.Join(fmt.Errorf("opening %q: %w", m.path, err), index.Close())
	}
	mediaExtor, err := record.NewExtractor(&record.ExtractorOptions{
		Decompressors: m.opts.Decompressors,
	})
	if err != nil {
		return errors.Join(fmt.Errorf("opening %q: %w", m.path, err), index.Close())
	}

	paths, err := FindMediaParts(m.path)
	if err != nil {
		return errors.Join(err, index.Close())
	}

	// A stale text index means the media indexes were written by an older
	// version as well.
	var media []*mediaPart
	for _, p := range paths {
		pindex, _, err := m.openIndex(ctx, p, p+dbExt, true, force || stale)
		if err != nil {
			errs := []error{err, index.Close()}
			for _, mp := range media {
				errs = append(errs, mp.index.Close())
			}
			return errors.Join(errs...)
		}
		media = append(media, &mediaPart{
			path:  p,
			index: pindex,
		})
	}

	m.index = index
	m.text = text
	m.media = media
	m.mediaExtor = mediaExtor
	return nil
}

// openIndex opens the side index of an archive, building it when it is
// missing, stale or force is set. It reports whether an existing index was
// found to be stale.
func (m *Mdict) openIndex(ctx context.Context, archivePath, dbPath string, media, force bool) (*sideindex.Index, bool, error) {
	openOpts := &sideindex.OpenOptions{Media: media}

	var stale bool
	if !force {
		index, err := sideindex.Open(dbPath, openOpts)
		switch {
		case err == nil && !index.Stale():
			return index, false, nil
		case err == nil:
			m.logger.Warn("side index is stale", "path", dbPath, "version", index.Version())
			stale = true
			if err := index.Close(); err != nil {
				return nil, false, err
			}
		case !errors.Is(err, fs.ErrNotExist):
			return nil, false, err
		}
	}

	if err := m.build(ctx, archivePath, dbPath, media); err != nil {
		return nil, false, err
	}

	index, err := sideindex.Open(dbPath, openOpts)
	if err != nil {
		return nil, false, err
	}
	return index, stale, nil
}

func (m *Mdict) build(ctx context.Context, archivePath, dbPath string, media bool) error {
	if m.opts.Parser == nil {
		return fmt.Errorf("%w: indexing %q", ErrNoParser, archivePath)
	}

	start := time.Now()
	a, err := m.opts.Parser.Parse(ctx, archivePath)
	if err != nil {
		return fmt.Errorf("parsing %q: %w", archivePath, err)
	}

	kind := metrics.KindText
	if media {
		kind = metrics.KindMedia
		a = &sideindex.Archive{Records: a.Records}
	} else if a.Metadata == nil {
		a = &sideindex.Archive{Records: a.Records, Metadata: &record.Metadata{}}
	}

	if err := sideindex.Build(ctx, dbPath, a, &sideindex.BuildOptions{
		KeyIndex: !m.opts.NoKeyIndex,
		Logger:   m.logger,
	}); err != nil {
		return err
	}
	metrics.ObserveBuild(kind, start)
	return nil
}

// Rebuild rebuilds the side indexes of the text archive and all media
// archives. Media parts are discovered again. If Rebuild fails the
// dictionary keeps serving from its previous indexes.
func (m *Mdict) Rebuild(ctx context.Context) error {
	fresh := &Mdict{
		path:   m.path,
		opts:   m.opts,
		logger: m.logger,
	}
	if err := fresh.load(ctx, true); err != nil {
		return err
	}

	err := m.closeIndexes()
	m.index = fresh.index
	m.text = fresh.text
	m.media = fresh.media
	m.mediaExtor = fresh.mediaExtor
	return err
}

// FindMediaParts returns the media archives belonging to the .mdx file at
// mdxPath: <stem>.mdd if it exists followed by the numbered parts
// <stem>.mdd.<N> and <stem>.<N>.mdd in ascending order of N.
func FindMediaParts(mdxPath string) ([]string, error) {
	stem := strings.TrimSuffix(mdxPath, filepath.Ext(mdxPath))
	dir := filepath.Dir(stem)
	stemName := filepath.Base(stem)
	baseName := stemName + mediaExt

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("finding media parts: %w", err)
	}

	type part struct {
		n    int
		path string
	}
	var base string
	var numbered []part
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if name == baseName {
			base = filepath.Join(dir, name)
			continue
		}
		if n, ok := partNumber(name, stemName); ok {
			numbered = append(numbered, part{n: n, path: filepath.Join(dir, name)})
		}
	}
	slices.SortStableFunc(numbered, func(a, b part) int {
		return a.n - b.n
	})

	var paths []string
	if base != "" {
		paths = append(paths, base)
	}
	for _, p := range numbered {
		if !slices.Contains(paths, p.path) {
			paths = append(paths, p.path)
		}
	}
	return paths, nil
}

// partNumber returns N if name is <stem>.mdd.<N> or <stem>.<N>.mdd.
func partNumber(name, stem string) (int, bool) {
	rest, ok := strings.CutPrefix(name, stem+".")
	if !ok {
		return 0, false
	}
	if digits, ok := strings.CutPrefix(rest, mediaExt[1:]+"."); ok {
		return parseDigits(digits)
	}
	if digits, ok := strings.CutSuffix(rest, mediaExt); ok {
		return parseDigits(digits)
	}
	return 0, false
}

func parseDigits(s string) (int, bool) {
	if s == "" || strings.Trim(s, "0123456789") != "" {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Path returns the path of the .mdx file.
func (m *Mdict) Path() string {
	return m.path
}

// IndexPath returns the path of the text archive's side index.
func (m *Mdict) IndexPath() string {
	return strings.TrimSuffix(m.path, filepath.Ext(m.path)) + textExt + dbExt
}

// MediaParts returns the paths of the media archives in lookup order.
func (m *Mdict) MediaParts() []string {
	paths := make([]string, 0, len(m.media))
	for _, p := range m.media {
		paths = append(paths, p.path)
	}
	return paths
}

func (m *Mdict) metadata() *record.Metadata {
	if md := m.index.Metadata(); md != nil {
		return md
	}
	return &record.Metadata{}
}

// Title returns the dictionary title.
func (m *Mdict) Title() string {
	return m.metadata().Title
}

// Description returns the dictionary description.
func (m *Mdict) Description() string {
	return m.metadata().Description
}

// Encoding returns the text encoding of the dictionary's entries.
func (m *Mdict) Encoding() string {
	return m.metadata().Encoding
}

// Version returns the side index format version.
func (m *Mdict) Version() string {
	return m.index.Version()
}

// Count returns the number of text records.
func (m *Mdict) Count(ctx context.Context) (int, error) {
	return m.index.Count(ctx)
}

// Close closes the dictionary's side indexes.
func (m *Mdict) Close() error {
	return m.closeIndexes()
}

func (m *Mdict) closeIndexes() error {
	var errs []error
	if m.index != nil {
		errs = append(errs, m.index.Close())
		m.index = nil
	}
	for _, p := range m.media {
		errs = append(errs, p.index.Close())
	}
	m.media = nil
	return errors.Join(errs...)
}

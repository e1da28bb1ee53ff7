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

package sideindex_test

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ianlewis/go-mdict/internal/testutil"
	"github.com/ianlewis/go-mdict/record"
	"github.com/ianlewis/go-mdict/sideindex"
)

var textEntries = []*testutil.Entry{
	{Key: "Apple", Data: []byte("a fruit")},
	{Key: "apple", Data: []byte("another fruit")},
	{Key: "apple", Data: []byte("a duplicate headword")},
	{Key: "banana", Data: []byte("a long fruit")},
	{Key: "band_1", Data: []byte("music group")},
	{Key: "bandit", Data: []byte("a robber")},
	{Key: "cherry", Data: []byte("a small fruit")},
}

var textMetadata = &record.Metadata{
	Encoding:    "UTF-8",
	Title:       "Test Dictionary",
	Description: "A dictionary for tests",
	Stylesheet: record.Stylesheet{
		"1": {Prefix: "<b>", Suffix: "</b>"},
	},
}

func buildText(t *testing.T, dir string) (string, []*record.Record) {
	t.Helper()

	_, records := testutil.MakeArchive(t, textEntries, &testutil.ArchiveOptions{
		Codec: record.Deflate,
	})
	dbPath := filepath.Join(dir, "dictionary.mdx.db")
	if err := sideindex.Build(context.Background(), dbPath, &sideindex.Archive{
		Records:  records,
		Metadata: textMetadata,
	}, nil); err != nil {
		t.Fatalf("Build: %v", err)
	}
	return dbPath, records
}

func openIndex(t *testing.T, dbPath string, opts *sideindex.OpenOptions) *sideindex.Index {
	t.Helper()

	idx, err := sideindex.Open(dbPath, opts)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() {
		if err := idx.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return idx
}

// TestIndex_Lookup tests exact and case-insensitive lookups.
func TestIndex_Lookup(t *testing.T) {
	t.Parallel()

	dbPath, records := buildText(t, t.TempDir())
	idx := openIndex(t, dbPath, nil)

	tests := []struct {
		name     string
		key      string
		fold     bool
		expected []*record.Record
	}{
		{
			name:     "single",
			key:      "banana",
			expected: records[3:4],
		},
		{
			name:     "duplicates in index order",
			key:      "apple",
			expected: records[1:3],
		},
		{
			name:     "case sensitive",
			key:      "APPLE",
			expected: nil,
		},
		{
			name:     "fold",
			key:      "APPLE",
			fold:     true,
			expected: records[0:3],
		},
		{
			name:     "no match",
			key:      "durian",
			expected: nil,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			lookup := idx.Lookup
			if test.fold {
				lookup = idx.LookupFold
			}
			got, err := lookup(context.Background(), test.key)
			if err != nil {
				t.Fatalf("Lookup: %v", err)
			}
			if diff := cmp.Diff(test.expected, got); diff != "" {
				t.Errorf("Lookup (-want, +got):\n%s", diff)
			}
		})
	}
}

// TestIndex_LookupSuffix tests suffix lookups.
func TestIndex_LookupSuffix(t *testing.T) {
	t.Parallel()

	dbPath, records := buildText(t, t.TempDir())
	idx := openIndex(t, dbPath, nil)

	got, err := idx.LookupSuffix(context.Background(), "NDIT")
	if err != nil {
		t.Fatalf("LookupSuffix: %v", err)
	}
	if diff := cmp.Diff(records[5:6], got); diff != "" {
		t.Errorf("LookupSuffix (-want, +got):\n%s", diff)
	}

	// '_' must match literally.
	got, err = idx.LookupSuffix(context.Background(), "d_1")
	if err != nil {
		t.Fatalf("LookupSuffix: %v", err)
	}
	if diff := cmp.Diff(records[4:5], got); diff != "" {
		t.Errorf("LookupSuffix (-want, +got):\n%s", diff)
	}
}

// TestIndex_Keys tests key listing.
func TestIndex_Keys(t *testing.T) {
	t.Parallel()

	dbPath, _ := buildText(t, t.TempDir())
	idx := openIndex(t, dbPath, nil)

	tests := []struct {
		name     string
		query    string
		expected []string
	}{
		{
			name:     "all",
			query:    "",
			expected: []string{"Apple", "apple", "apple", "banana", "band_1", "bandit", "cherry"},
		},
		{
			name:     "prefix",
			query:    "ban",
			expected: []string{"banana", "band_1", "bandit"},
		},
		{
			name:     "prefix with wildcard character",
			query:    "band_",
			expected: []string{"band_1"},
		},
		{
			name:     "glob",
			query:    "*an*",
			expected: []string{"banana", "band_1", "bandit"},
		},
		{
			name:     "glob suffix",
			query:    "*y",
			expected: []string{"cherry"},
		},
		{
			name:     "no match",
			query:    "zzz",
			expected: nil,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			got, err := idx.Keys(context.Background(), test.query)
			if err != nil {
				t.Fatalf("Keys: %v", err)
			}
			if diff := cmp.Diff(test.expected, got); diff != "" {
				t.Errorf("Keys (-want, +got):\n%s", diff)
			}
		})
	}
}

// TestIndex_Metadata tests that text metadata is persisted.
func TestIndex_Metadata(t *testing.T) {
	t.Parallel()

	dbPath, _ := buildText(t, t.TempDir())
	idx := openIndex(t, dbPath, nil)

	want := *textMetadata
	want.Version = sideindex.Version
	if diff := cmp.Diff(&want, idx.Metadata()); diff != "" {
		t.Errorf("Metadata (-want, +got):\n%s", diff)
	}
	if idx.Stale() {
		t.Errorf("Stale: want: false, got: true")
	}
}

// TestBuild_idempotent tests that building the same archive twice yields
// the same index.
func TestBuild_idempotent(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	dbPath, _ := buildText(t, dir)

	snapshot := func() map[string][]*record.Record {
		idx, err := sideindex.Open(dbPath, nil)
		if err != nil {
			t.Fatal(err)
		}
		defer idx.Close()

		keys, err := idx.Keys(context.Background(), "")
		if err != nil {
			t.Fatal(err)
		}
		m := map[string][]*record.Record{}
		for _, k := range keys {
			recs, err := idx.Lookup(context.Background(), k)
			if err != nil {
				t.Fatal(err)
			}
			m[k] = recs
		}
		return m
	}

	first := snapshot()
	buildText(t, dir)
	second := snapshot()

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("rebuilt index differs (-first, +second):\n%s", diff)
	}
}

// TestBuild_media tests media indexes.
func TestBuild_media(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	_, records := testutil.MakeArchive(t, []*testutil.Entry{
		{Key: `\sound\hello.mp3`, Data: []byte("ID3 hello")},
		{Key: `\img\logo.png`, Data: []byte("PNG logo")},
	}, nil)

	dbPath := filepath.Join(dir, "dictionary.mdd.db")
	if err := sideindex.Build(context.Background(), dbPath, &sideindex.Archive{
		Records: records,
	}, nil); err != nil {
		t.Fatalf("Build: %v", err)
	}

	idx := openIndex(t, dbPath, &sideindex.OpenOptions{Media: true})
	if idx.Metadata() != nil {
		t.Errorf("Metadata: want: nil, got: %#v", idx.Metadata())
	}
	if idx.Stale() {
		t.Errorf("Stale: want: false, got: true")
	}

	got, err := idx.LookupFold(context.Background(), `\SOUND\Hello.mp3`)
	if err != nil {
		t.Fatalf("LookupFold: %v", err)
	}
	if diff := cmp.Diff(records[0:1], got); diff != "" {
		t.Errorf("LookupFold (-want, +got):\n%s", diff)
	}

	n, err := idx.Count(context.Background())
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 2 {
		t.Errorf("Count: want: 2, got: %d", n)
	}
}

// TestBuild_failure tests that a failed build leaves the previous index in
// place and no temporary files behind.
func TestBuild_failure(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	dbPath := filepath.Join(dir, "dictionary.mdd.db")

	good := []*record.Record{{Key: "a"}, {Key: "b"}}
	if err := sideindex.Build(context.Background(), dbPath, &sideindex.Archive{Records: good}, nil); err != nil {
		t.Fatalf("Build: %v", err)
	}

	err := sideindex.Build(context.Background(), dbPath, &sideindex.Archive{
		Records: []*record.Record{{Key: "x"}, {Key: "x"}},
	}, nil)
	if !errors.Is(err, sideindex.ErrDuplicateKey) {
		t.Fatalf("Build: want: %v, got: %v", sideindex.ErrDuplicateKey, err)
	}

	if _, err := os.Stat(dbPath + ".tmp"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("temporary index: want: %v, got: %v", fs.ErrNotExist, err)
	}

	idx := openIndex(t, dbPath, &sideindex.OpenOptions{Media: true})
	keys, err := idx.Keys(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"a", "b"}, keys); diff != "" {
		t.Errorf("Keys (-want, +got):\n%s", diff)
	}
}

// TestIndex_Stale tests version marker detection.
func TestIndex_Stale(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		media    bool
		sql      string
		expected bool
	}{
		{
			name:     "missing version",
			sql:      `DELETE FROM META WHERE key = 'version'`,
			expected: true,
		},
		{
			name:     "unknown version",
			sql:      `UPDATE META SET value = '0.9' WHERE key = 'version'`,
			expected: true,
		},
		{
			name:     "text without META",
			sql:      `DROP TABLE META`,
			expected: true,
		},
		{
			name:     "media without META",
			media:    true,
			sql:      `DROP TABLE META`,
			expected: false,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			dbPath, _ := buildText(t, t.TempDir())

			db, err := sql.Open("sqlite", dbPath)
			if err != nil {
				t.Fatal(err)
			}
			if _, err := db.Exec(test.sql); err != nil {
				t.Fatal(err)
			}
			if err := db.Close(); err != nil {
				t.Fatal(err)
			}

			idx := openIndex(t, dbPath, &sideindex.OpenOptions{Media: test.media})
			if got := idx.Stale(); got != test.expected {
				t.Errorf("Stale: want: %v, got: %v", test.expected, got)
			}
		})
	}
}

// TestOpen_missing tests opening an index that does not exist.
func TestOpen_missing(t *testing.T) {
	t.Parallel()

	_, err := sideindex.Open(filepath.Join(t.TempDir(), "missing.db"), nil)
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("Open: want: %v, got: %v", fs.ErrNotExist, err)
	}
}

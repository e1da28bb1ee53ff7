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
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/hashicorp/go-hclog"
	// Registers the "sqlite" database/sql driver.
	_ "modernc.org/sqlite"

	"github.com/ianlewis/go-mdict/record"
)

// Version is the side index format version written by Build.
const Version = "1.1"

// knownVersions are the versions Open accepts without a rebuild.
var knownVersions = map[string]bool{
	Version: true,
}

// ErrDuplicateKey indicates that a media archive contains the same key twice.
var ErrDuplicateKey = errors.New("duplicate key")

// Archive is the result of scanning an archive.
type Archive struct {
	// Records are the archive's records in key block order.
	Records []*record.Record

	// Metadata is the text archive's header information. It is nil for media
	// archives.
	Metadata *record.Metadata
}

// Parser scans a raw archive file.
type Parser interface {
	Parse(ctx context.Context, path string) (*Archive, error)
}

// ParserFunc adapts a function to a Parser.
type ParserFunc func(ctx context.Context, path string) (*Archive, error)

// Parse implements [Parser].
func (f ParserFunc) Parse(ctx context.Context, path string) (*Archive, error) {
	return f(ctx, path)
}

// BuildOptions are options for Build.
type BuildOptions struct {
	// KeyIndex creates a secondary index over the key column.
	KeyIndex bool

	// Logger receives build progress.
	Logger hclog.Logger
}

// DefaultBuildOptions is the default options for Build.
var DefaultBuildOptions = &BuildOptions{
	KeyIndex: true,
}

const createIndexTable = `CREATE TABLE MDX_INDEX (
	key_text text not null%s,
	file_pos integer,
	compressed_size integer,
	decompressed_size integer,
	record_block_type integer,
	record_start integer,
	record_end integer,
	"offset" integer
)`

// Build writes a side index for a to dbPath, replacing any existing index.
// The index is written to a temporary file first and renamed into place, so
// a failed build leaves no partial index behind.
func Build(ctx context.Context, dbPath string, a *Archive, opts *BuildOptions) (err error) {
	if opts == nil {
		opts = DefaultBuildOptions
	}
	logger := opts.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	start := time.Now()

	tmpPath := dbPath + ".tmp"
	if err := removeIfExists(tmpPath); err != nil {
		return err
	}

	db, err := sql.Open("sqlite", tmpPath)
	if err != nil {
		return fmt.Errorf("creating side index %q: %w", tmpPath, err)
	}
	defer func() {
		if err != nil {
			err = errors.Join(err, db.Close(), removeIfExists(tmpPath))
		}
	}()

	if err := writeIndex(ctx, db, a, opts.KeyIndex); err != nil {
		return fmt.Errorf("writing side index %q: %w", dbPath, err)
	}
	if err := db.Close(); err != nil {
		return fmt.Errorf("closing side index %q: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, dbPath); err != nil {
		return fmt.Errorf("replacing side index %q: %w", dbPath, err)
	}

	logger.Info("built side index", "path", dbPath, "records", len(a.Records),
		"media", a.Metadata == nil, "duration", time.Since(start))
	return nil
}

func writeIndex(ctx context.Context, db *sql.DB, a *Archive, keyIndex bool) (err error) {
	media := a.Metadata == nil

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if err != nil {
			err = errors.Join(err, tx.Rollback())
		}
	}()

	unique := ""
	if media {
		unique = " unique"
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(createIndexTable, unique)); err != nil {
		return fmt.Errorf("creating MDX_INDEX: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO MDX_INDEX VALUES (?,?,?,?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	seen := map[string]bool{}
	for _, r := range a.Records {
		if media {
			if seen[r.Key] {
				return fmt.Errorf("%w: %q", ErrDuplicateKey, r.Key)
			}
			seen[r.Key] = true
		}
		//nolint:gosec // sqlite integers are 64 bit; offsets beyond MaxInt64 are not valid archives.
		if _, err := stmt.ExecContext(ctx,
			r.Key,
			int64(r.FilePos),
			int64(r.CompressedSize),
			int64(r.DecompressedSize),
			int64(r.Codec),
			int64(r.RecordStart),
			int64(r.RecordEnd),
			int64(r.BlockOffset),
		); err != nil {
			return fmt.Errorf("inserting %q: %w", r.Key, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `CREATE TABLE META (key text, value text)`); err != nil {
		return fmt.Errorf("creating META: %w", err)
	}
	meta := [][2]string{{"version", Version}}
	if !media {
		stylesheet := a.Metadata.Stylesheet
		if stylesheet == nil {
			stylesheet = record.Stylesheet{}
		}
		b, err := json.Marshal(stylesheet)
		if err != nil {
			return fmt.Errorf("encoding stylesheet: %w", err)
		}
		meta = append(meta,
			[2]string{"encoding", a.Metadata.Encoding},
			[2]string{"stylesheet", string(b)},
			[2]string{"title", a.Metadata.Title},
			[2]string{"description", a.Metadata.Description},
		)
	}
	for _, kv := range meta {
		if _, err := tx.ExecContext(ctx, `INSERT INTO META VALUES (?,?)`, kv[0], kv[1]); err != nil {
			return fmt.Errorf("inserting %q metadata: %w", kv[0], err)
		}
	}

	if keyIndex {
		q := `CREATE INDEX key_index ON MDX_INDEX (key_text)`
		if media {
			q = `CREATE UNIQUE INDEX key_index ON MDX_INDEX (key_text)`
		}
		if _, err := tx.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("creating key index: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing: %w", err)
	}
	return nil
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing %q: %w", path, err)
	}
	return nil
}

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
	"os"
	"strings"

	"github.com/ianlewis/go-mdict/record"
)

// OpenOptions are options for Open.
type OpenOptions struct {
	// Media indicates that the index belongs to a media archive. Media
	// indexes carry no archive metadata.
	Media bool
}

// DefaultOpenOptions is the default options for Open.
var DefaultOpenOptions = &OpenOptions{}

// Index is an open side index. An Index is safe for concurrent use; each
// query runs on its own connection.
type Index struct {
	path  string
	db    *sql.DB
	media bool

	version  string
	hasMeta  bool
	metadata *record.Metadata
}

// Open opens the side index at dbPath. The file must exist.
func Open(dbPath string, opts *OpenOptions) (*Index, error) {
	if opts == nil {
		opts = DefaultOpenOptions
	}
	if _, err := os.Stat(dbPath); err != nil {
		return nil, fmt.Errorf("opening side index: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening side index %q: %w", dbPath, err)
	}

	idx := &Index{
		path:  dbPath,
		db:    db,
		media: opts.Media,
	}
	if err := idx.loadMeta(context.Background()); err != nil {
		return nil, errors.Join(fmt.Errorf("reading side index %q: %w", dbPath, err), db.Close())
	}
	return idx, nil
}

func (idx *Index) loadMeta(ctx context.Context) error {
	var n int
	if err := idx.db.QueryRowContext(ctx,
		`SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = 'META'`,
	).Scan(&n); err != nil {
		return fmt.Errorf("checking META: %w", err)
	}
	idx.hasMeta = n > 0
	if !idx.hasMeta {
		return nil
	}

	rows, err := idx.db.QueryContext(ctx, `SELECT key, value FROM META`)
	if err != nil {
		return fmt.Errorf("querying META: %w", err)
	}
	defer rows.Close()

	meta := map[string]string{}
	for rows.Next() {
		var k string
		var v sql.NullString
		if err := rows.Scan(&k, &v); err != nil {
			return fmt.Errorf("scanning META: %w", err)
		}
		meta[k] = v.String
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("scanning META: %w", err)
	}

	idx.version = meta["version"]
	if idx.media {
		return nil
	}

	md := &record.Metadata{
		Version:     idx.version,
		Encoding:    meta["encoding"],
		Title:       meta["title"],
		Description: meta["description"],
		Stylesheet:  record.Stylesheet{},
	}
	if s := meta["stylesheet"]; s != "" {
		if err := json.Unmarshal([]byte(s), &md.Stylesheet); err != nil {
			return fmt.Errorf("decoding stylesheet: %w", err)
		}
	}
	idx.metadata = md
	return nil
}

// Path returns the path of the index file.
func (idx *Index) Path() string {
	return idx.path
}

// Version returns the stored version marker, if any.
func (idx *Index) Version() string {
	return idx.version
}

// Stale reports whether the index should be rebuilt because its version
// marker is absent or unknown. Media indexes written without a META table
// are accepted as is.
func (idx *Index) Stale() bool {
	if idx.media && !idx.hasMeta {
		return false
	}
	return !knownVersions[idx.version]
}

// Metadata returns the archive metadata of a text archive index. It returns
// nil for media indexes.
func (idx *Index) Metadata() *record.Metadata {
	return idx.metadata
}

const selectRecords = `SELECT key_text, file_pos, compressed_size, decompressed_size,
	record_block_type, record_start, record_end, "offset" FROM MDX_INDEX `

// Lookup returns the records whose key equals key, in index order.
func (idx *Index) Lookup(ctx context.Context, key string) ([]*record.Record, error) {
	return idx.query(ctx, selectRecords+`WHERE key_text = ? ORDER BY rowid`, key)
}

// LookupFold returns the records whose key equals key ignoring ASCII case.
func (idx *Index) LookupFold(ctx context.Context, key string) ([]*record.Record, error) {
	return idx.query(ctx, selectRecords+`WHERE key_text = ? COLLATE NOCASE ORDER BY rowid`, key)
}

// LookupSuffix returns the records whose key ends with suffix ignoring ASCII
// case.
func (idx *Index) LookupSuffix(ctx context.Context, suffix string) ([]*record.Record, error) {
	if suffix == "" {
		return nil, nil
	}
	return idx.query(ctx, selectRecords+`WHERE key_text LIKE ? ESCAPE '\' ORDER BY rowid`, "%"+escapeLike(suffix))
}

// Keys returns the keys matching query in index order. A query containing
// '*' is a glob where '*' matches any run of characters. Any other non-empty
// query is a prefix. An empty query returns all keys. Matching ignores ASCII
// case.
func (idx *Index) Keys(ctx context.Context, query string) ([]string, error) {
	q := `SELECT key_text FROM MDX_INDEX`
	var args []any
	if query != "" {
		q += ` WHERE key_text LIKE ? ESCAPE '\'`
		args = append(args, likePattern(query))
	}
	q += ` ORDER BY rowid`

	rows, err := idx.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scanning keys: %w", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scanning keys: %w", err)
	}
	return keys, nil
}

// Count returns the number of records in the index.
func (idx *Index) Count(ctx context.Context) (int, error) {
	var n int
	if err := idx.db.QueryRowContext(ctx, `SELECT count(*) FROM MDX_INDEX`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting records: %w", err)
	}
	return n, nil
}

// Close closes the index.
func (idx *Index) Close() error {
	if err := idx.db.Close(); err != nil {
		return fmt.Errorf("closing side index %q: %w", idx.path, err)
	}
	return nil
}

func (idx *Index) query(ctx context.Context, q string, args ...any) ([]*record.Record, error) {
	rows, err := idx.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying %q: %w", idx.path, err)
	}
	defer rows.Close()

	var records []*record.Record
	for rows.Next() {
		var r record.Record
		var filePos, compressed, decompressed, codec, start, end, offset int64
		if err := rows.Scan(&r.Key, &filePos, &compressed, &decompressed, &codec, &start, &end, &offset); err != nil {
			return nil, fmt.Errorf("scanning %q: %w", idx.path, err)
		}
		//nolint:gosec // values were written from the unsigned fields of a record.Record.
		r.FilePos, r.CompressedSize, r.DecompressedSize = uint64(filePos), uint32(compressed), uint32(decompressed)
		//nolint:gosec // see above
		r.Codec, r.RecordStart, r.RecordEnd, r.BlockOffset = record.Codec(codec), uint64(start), uint64(end), uint64(offset)
		records = append(records, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scanning %q: %w", idx.path, err)
	}
	return records, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// likePattern converts a key query to a LIKE pattern.
func likePattern(query string) string {
	if !strings.Contains(query, "*") {
		return escapeLike(query) + "%"
	}
	parts := strings.Split(query, "*")
	for i, p := range parts {
		parts[i] = escapeLike(p)
	}
	return strings.Join(parts, "%")
}

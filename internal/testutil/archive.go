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

// Package testutil provides helpers for writing test MDict archives.
package testutil

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"hash/adler32"
	"os"
	"path/filepath"
	"testing"

	"github.com/ianlewis/go-mdict/record"
)

// Entry is a single archive entry.
type Entry struct {
	Key  string
	Data []byte
}

// ArchiveOptions are options for MakeArchive.
type ArchiveOptions struct {
	// Codec is the block codec. Only record.Raw and record.Deflate are
	// supported.
	Codec record.Codec

	// EntriesPerBlock is the number of entries packed into each block.
	// Defaults to 2.
	EntriesPerBlock int

	// Header is written before the first block. It stands in for the archive
	// header and key blocks.
	Header []byte
}

func (o *ArchiveOptions) entriesPerBlock() int {
	if o == nil || o.EntriesPerBlock <= 0 {
		return 2
	}
	return o.EntriesPerBlock
}

// MakeArchive creates archive data containing the entries packed into record
// blocks. It returns the data and the records locating each entry, in entry
// order.
func MakeArchive(t *testing.T, entries []*Entry, opts *ArchiveOptions) ([]byte, []*record.Record) {
	t.Helper()
	if opts == nil {
		opts = &ArchiveOptions{}
	}

	b := append([]byte(nil), opts.Header...)
	var records []*record.Record
	var streamPos uint64

	perBlock := opts.entriesPerBlock()
	for i := 0; i < len(entries); i += perBlock {
		blockEntries := entries[i:min(i+perBlock, len(entries))]

		var plain []byte
		blockOffset := streamPos
		var blockRecords []*record.Record
		for _, e := range blockEntries {
			start := streamPos
			plain = append(plain, e.Data...)
			streamPos += uint64(len(e.Data))
			blockRecords = append(blockRecords, &record.Record{
				Key:         e.Key,
				Codec:       opts.Codec,
				RecordStart: start,
				RecordEnd:   streamPos,
				BlockOffset: blockOffset,
			})
		}

		payload := encodeBlock(t, plain, opts.Codec)
		header := make([]byte, 8)
		binary.LittleEndian.PutUint32(header[:4], uint32(opts.Codec))
		binary.BigEndian.PutUint32(header[4:], adler32.Checksum(plain))

		filePos := uint64(len(b))
		b = append(b, header...)
		b = append(b, payload...)

		for _, r := range blockRecords {
			r.FilePos = filePos
			//nolint:gosec // test data is small.
			r.CompressedSize = uint32(len(header) + len(payload))
			//nolint:gosec // test data is small.
			r.DecompressedSize = uint32(len(plain))
		}
		records = append(records, blockRecords...)
	}

	return b, records
}

func encodeBlock(t *testing.T, plain []byte, codec record.Codec) []byte {
	t.Helper()

	switch codec {
	case record.Raw:
		return plain
	case record.Deflate:
		var buf bytes.Buffer
		w := zlib.NewWriter(&buf)
		if _, err := w.Write(plain); err != nil {
			t.Fatal(err)
		}
		if err := w.Close(); err != nil {
			t.Fatal(err)
		}
		return buf.Bytes()
	default:
		t.Fatalf("unsupported test codec: %v", codec)
		return nil
	}
}

// WriteFile writes data to name in dir and returns the path.
func WriteFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

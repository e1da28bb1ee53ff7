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

package record

import (
	"errors"
	"fmt"
)

var (
	// ErrTruncatedArchive indicates that a block could not be read in full.
	ErrTruncatedArchive = errors.New("truncated archive")

	// ErrUnsupportedCodec indicates that no decompressor is available for a
	// block's codec.
	ErrUnsupportedCodec = errors.New("unsupported codec")

	// ErrCorruptRecord indicates that a record's byte range does not fit in
	// its block.
	ErrCorruptRecord = errors.New("corrupt record")

	// ErrUnknownStyleTag indicates that a text record references a style that
	// is not present in the stylesheet.
	ErrUnknownStyleTag = errors.New("unknown style tag")

	// ErrUnknownEncoding indicates that the archive's text encoding is not
	// supported.
	ErrUnknownEncoding = errors.New("unknown text encoding")
)

// Codec is the compression scheme of a record block. The values match the
// compression type stored in the block header.
type Codec uint32

const (
	// Raw blocks are stored uncompressed.
	Raw Codec = 0

	// LZO blocks are compressed with LZO1X. Used by engine versions before
	// 2.0.
	LZO Codec = 1

	// Deflate blocks are zlib streams.
	Deflate Codec = 2
)

// String implements [fmt.Stringer].
func (c Codec) String() string {
	switch c {
	case Raw:
		return "raw"
	case LZO:
		return "lzo"
	case Deflate:
		return "deflate"
	default:
		return fmt.Sprintf("codec(%d)", uint32(c))
	}
}

// Record is the location of a single entry in an archive.
type Record struct {
	// Key is the entry's headword (text archives) or resource path (media
	// archives).
	Key string

	// FilePos is the position of the record's block in the archive.
	FilePos uint64

	// CompressedSize is the size of the block on disk, including the 8 byte
	// block header.
	CompressedSize uint32

	// DecompressedSize is the size of the block after decompression.
	DecompressedSize uint32

	// Codec is the block's compression scheme.
	Codec Codec

	// RecordStart and RecordEnd delimit the record in the archive's
	// decompressed record stream.
	RecordStart uint64
	RecordEnd   uint64

	// BlockOffset is the position of the block's first byte in the
	// decompressed record stream.
	BlockOffset uint64
}

// Metadata is the header information of a text archive.
type Metadata struct {
	// Version is the side index format version the metadata was stored with.
	Version string

	// Encoding is the text encoding of the archive's records, e.g. "UTF-8",
	// "UTF-16" or "GBK".
	Encoding string

	// Stylesheet holds the archive's style definitions.
	Stylesheet Stylesheet

	Title       string
	Description string
}

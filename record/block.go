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
	"bytes"
	"compress/zlib"
	"fmt"
	"io"
	"math"

	"github.com/rasky/go-lzo"
)

// blockHeaderSize is the size of the compression type and checksum that
// precede every block payload.
const blockHeaderSize = 8

// Decompressor decompresses a block payload. size is the declared
// decompressed size of the block.
type Decompressor func(payload []byte, size int) ([]byte, error)

// Decompressors maps codecs to their decompressor.
type Decompressors map[Codec]Decompressor

// DefaultDecompressors returns decompressors for all known codecs.
func DefaultDecompressors() Decompressors {
	return Decompressors{
		Raw:     decompressRaw,
		LZO:     decompressLZO,
		Deflate: decompressDeflate,
	}
}

func decompressRaw(payload []byte, _ int) ([]byte, error) {
	return payload, nil
}

func decompressLZO(payload []byte, size int) ([]byte, error) {
	b, err := lzo.Decompress1X(bytes.NewReader(payload), len(payload), size)
	if err != nil {
		return nil, fmt.Errorf("lzo: %w", err)
	}
	return b, nil
}

func decompressDeflate(payload []byte, size int) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("zlib: %w", err)
	}
	defer zr.Close()

	var buf bytes.Buffer
	buf.Grow(size)
	if _, err := io.Copy(&buf, zr); err != nil {
		return nil, fmt.Errorf("zlib: %w", err)
	}
	return buf.Bytes(), nil
}

// ReadBlock reads and decompresses the block holding rec. The block checksum
// is not verified.
func ReadBlock(r io.ReadSeeker, rec *Record, dec Decompressors) ([]byte, error) {
	if dec == nil {
		dec = DefaultDecompressors()
	}
	decompress, ok := dec[rec.Codec]
	if !ok || decompress == nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedCodec, rec.Codec)
	}

	if rec.FilePos > math.MaxInt64 {
		return nil, fmt.Errorf("%w: block offset too large: %d", ErrCorruptRecord, rec.FilePos)
	}
	//nolint:gosec // offset size is bounds checked above.
	if _, err := r.Seek(int64(rec.FilePos), io.SeekStart); err != nil {
		return nil, fmt.Errorf("seeking to block: %w", err)
	}

	b := make([]byte, rec.CompressedSize)
	if n, err := io.ReadFull(r, b); err != nil {
		return nil, fmt.Errorf("%w: read %d of %d bytes at %d: %w",
			ErrTruncatedArchive, n, rec.CompressedSize, rec.FilePos, err)
	}
	if len(b) < blockHeaderSize {
		return nil, fmt.Errorf("%w: block too small: %d bytes", ErrCorruptRecord, len(b))
	}

	block, err := decompress(b[blockHeaderSize:], int(rec.DecompressedSize))
	if err != nil {
		return nil, fmt.Errorf("decompressing %v block at %d: %w", rec.Codec, rec.FilePos, err)
	}
	return block, nil
}

// Slice returns the bytes of rec within its decompressed block.
func Slice(block []byte, rec *Record) ([]byte, error) {
	if rec.RecordStart < rec.BlockOffset || rec.RecordEnd < rec.RecordStart {
		return nil, fmt.Errorf("%w: %q: range [%d, %d) at block offset %d",
			ErrCorruptRecord, rec.Key, rec.RecordStart, rec.RecordEnd, rec.BlockOffset)
	}
	start := rec.RecordStart - rec.BlockOffset
	end := rec.RecordEnd - rec.BlockOffset
	if end > uint64(len(block)) {
		return nil, fmt.Errorf("%w: %q: range [%d, %d) exceeds block size %d",
			ErrCorruptRecord, rec.Key, start, end, len(block))
	}
	return block[start:end], nil
}

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

package multifile

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sort"
	"strings"
)

var (
	// ErrNoParts is returned when a Reader is opened without any paths.
	ErrNoParts = errors.New("no part files")

	// ErrMissingPart indicates that one of the part files does not exist.
	ErrMissingPart = errors.New("missing part file")

	// ErrInvalidSeek is returned when seeking before the start of the stream.
	ErrInvalidSeek = errors.New("seek before start of stream")

	// ErrInvalidWhence is returned for an unknown whence value.
	ErrInvalidWhence = errors.New("invalid whence")

	errClosed = errors.New("reader is closed")
)

// Reader is a read-only view over several files concatenated in order.
//
// A Reader keeps a logical position and is not safe for concurrent use. Each
// lookup should open its own Reader. ReadAt does not use the logical position
// but still shares the underlying file handles.
type Reader struct {
	paths []string
	files []*os.File

	// sizes[i] is the size of files[i]; offsets[i] is the logical offset of
	// its first byte.
	sizes   []int64
	offsets []int64
	size    int64

	pos int64
	cur int
}

// Open opens all of the given files in order and returns a Reader over their
// concatenation. The Reader owns the file handles and must be closed with
// Close.
func Open(paths ...string) (*Reader, error) {
	if len(paths) == 0 {
		return nil, ErrNoParts
	}

	r := &Reader{
		paths: append([]string(nil), paths...),
	}
	var offset int64
	for _, path := range paths {
		f, err := openPart(path)
		if err != nil {
			return nil, errors.Join(err, r.Close())
		}
		fi, err := f.Stat()
		if err != nil {
			return nil, errors.Join(fmt.Errorf("stat %q: %w", path, err), f.Close(), r.Close())
		}

		r.files = append(r.files, f)
		r.sizes = append(r.sizes, fi.Size())
		r.offsets = append(r.offsets, offset)
		offset += fi.Size()
	}
	r.size = offset

	return r, nil
}

// OpenFile returns a plain file when a single path is given and a Reader
// over all of the parts otherwise.
func OpenFile(paths ...string) (io.ReadSeekCloser, error) {
	if len(paths) == 1 {
		f, err := openPart(paths[0])
		if err != nil {
			return nil, err
		}
		return f, nil
	}
	return Open(paths...)
}

func openPart(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %q: %w", ErrMissingPart, path, err)
		}
		return nil, fmt.Errorf("opening %q: %w", path, err)
	}
	return f, nil
}

// Name returns the part paths joined by '+'.
func (r *Reader) Name() string {
	return strings.Join(r.paths, "+")
}

// Parts returns the paths of the part files in order.
func (r *Reader) Parts() []string {
	return append([]string(nil), r.paths...)
}

// Size returns the total size of all parts.
func (r *Reader) Size() int64 {
	return r.size
}

// Seek implements [io.Seeker]. Seeking past the end of the stream clamps the
// position to Size.
func (r *Reader) Seek(offset int64, whence int) (int64, error) {
	var pos int64
	switch whence {
	case io.SeekStart:
		pos = offset
	case io.SeekCurrent:
		pos = r.pos + offset
	case io.SeekEnd:
		pos = r.size + offset
	default:
		return r.pos, fmt.Errorf("%w: %d", ErrInvalidWhence, whence)
	}

	if pos < 0 {
		return r.pos, fmt.Errorf("%w: %d", ErrInvalidSeek, pos)
	}
	if pos > r.size {
		pos = r.size
	}

	r.pos = pos
	r.cur = r.locate(pos)
	return r.pos, nil
}

// Read implements [io.Reader]. It reads across part boundaries and only
// returns fewer than len(p) bytes at the end of the stream or when an
// underlying read fails.
func (r *Reader) Read(p []byte) (int, error) {
	if r.files == nil {
		return 0, errClosed
	}
	if len(p) == 0 {
		return 0, nil
	}
	if r.pos >= r.size {
		return 0, io.EOF
	}

	n, next, err := r.readParts(p, r.pos, r.cur)
	r.pos += int64(n)
	r.cur = next
	if errors.Is(err, io.EOF) && n > 0 {
		return n, nil
	}
	return n, err
}

// ReadAt implements [io.ReaderAt]. It does not change the logical position.
func (r *Reader) ReadAt(p []byte, off int64) (int, error) {
	if r.files == nil {
		return 0, errClosed
	}
	if off < 0 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidSeek, off)
	}
	if off >= r.size {
		return 0, io.EOF
	}
	n, _, err := r.readParts(p, off, r.locate(off))
	return n, err
}

// readParts reads into p from logical offset off, starting with part i. It
// returns the number of bytes read and the index of the part holding the
// next unread byte.
func (r *Reader) readParts(p []byte, off int64, i int) (int, int, error) {
	n := 0
	for n < len(p) && off < r.size {
		start := off - r.offsets[i]
		avail := r.sizes[i] - start
		if avail <= 0 {
			// End of this part (or an empty part).
			if i == len(r.files)-1 {
				break
			}
			i++
			continue
		}

		want := int(min(int64(len(p)-n), avail))
		m, err := r.files[i].ReadAt(p[n:n+want], start)
		n += m
		off += int64(m)
		if m < want {
			if err == nil || errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			return n, r.locate(off), fmt.Errorf("reading %q: %w", r.paths[i], err)
		}
		if off == r.offsets[i]+r.sizes[i] && i < len(r.files)-1 {
			i++
		}
	}

	if n < len(p) {
		return n, i, io.EOF
	}
	return n, i, nil
}

// locate returns the index of the part containing the logical offset pos.
// Offsets at or past the end map to the last part.
func (r *Reader) locate(pos int64) int {
	if pos >= r.size {
		return len(r.files) - 1
	}
	// Index of the last part whose first byte is at or before pos. Empty
	// parts share an offset with their successor and are skipped.
	i := sort.Search(len(r.offsets), func(i int) bool {
		return r.offsets[i] > pos
	}) - 1
	if i < 0 {
		i = 0
	}
	return i
}

// Close closes all part files.
func (r *Reader) Close() error {
	var errs []error
	for i, f := range r.files {
		if err := f.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing %q: %w", r.paths[i], err))
		}
	}
	r.files = nil
	return errors.Join(errs...)
}

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

package multifile_test

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ianlewis/go-mdict/multifile"
)

// writeParts writes each part to a temporary file and returns the paths.
func writeParts(t *testing.T, parts [][]byte) []string {
	t.Helper()

	dir := t.TempDir()
	var paths []string
	for i, p := range parts {
		path := filepath.Join(dir, "part."+string(rune('a'+i)))
		if err := os.WriteFile(path, p, 0o600); err != nil {
			t.Fatal(err)
		}
		paths = append(paths, path)
	}
	return paths
}

func openParts(t *testing.T, parts [][]byte) *multifile.Reader {
	t.Helper()

	r, err := multifile.Open(writeParts(t, parts)...)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() {
		if err := r.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return r
}

var partSets = []struct {
	name  string
	parts [][]byte
}{
	{
		name:  "single",
		parts: [][]byte{[]byte("hello world")},
	},
	{
		name:  "multiple",
		parts: [][]byte{[]byte("hoge"), []byte("fuga"), []byte("pico")},
	},
	{
		name:  "uneven",
		parts: [][]byte{[]byte("a"), []byte("bcdefgh"), []byte("ij")},
	},
	{
		name:  "empty middle part",
		parts: [][]byte{[]byte("abc"), {}, []byte("def")},
	},
	{
		name:  "empty first and last part",
		parts: [][]byte{{}, []byte("abc"), []byte("def"), {}},
	},
}

// TestReader_ReadAll tests that reading the whole stream yields the
// concatenation of all parts.
func TestReader_ReadAll(t *testing.T) {
	t.Parallel()

	for _, test := range partSets {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			r := openParts(t, test.parts)
			want := bytes.Join(test.parts, nil)

			if got, want := r.Size(), int64(len(want)); got != want {
				t.Errorf("Size: want: %d, got: %d", want, got)
			}

			got, err := io.ReadAll(r)
			if err != nil {
				t.Fatalf("ReadAll: %v", err)
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Fatalf("ReadAll (-want, +got):\n%s", diff)
			}
		})
	}
}

// TestReader_SeekRead tests that seek(o) followed by a one byte read returns
// the byte at position o of the concatenation.
func TestReader_SeekRead(t *testing.T) {
	t.Parallel()

	for _, test := range partSets {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			r := openParts(t, test.parts)
			all := bytes.Join(test.parts, nil)

			// Seek backwards so the active part has to move in both directions.
			for o := len(all) - 1; o >= 0; o-- {
				pos, err := r.Seek(int64(o), io.SeekStart)
				if err != nil {
					t.Fatalf("Seek(%d): %v", o, err)
				}
				if pos != int64(o) {
					t.Fatalf("Seek(%d): got position %d", o, pos)
				}
				b := make([]byte, 1)
				if _, err := io.ReadFull(r, b); err != nil {
					t.Fatalf("Read at %d: %v", o, err)
				}
				if b[0] != all[o] {
					t.Errorf("byte at %d: want: %q, got: %q", o, all[o], b[0])
				}
			}
		})
	}
}

// TestReader_Seek tests Reader.Seek edge cases.
func TestReader_Seek(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		start  int64
		offset int64
		whence int

		expected int64
		err      error
	}{
		{
			name:     "start",
			offset:   5,
			whence:   io.SeekStart,
			expected: 5,
		},
		{
			name:     "current",
			start:    4,
			offset:   3,
			whence:   io.SeekCurrent,
			expected: 7,
		},
		{
			name:     "end",
			offset:   -2,
			whence:   io.SeekEnd,
			expected: 10,
		},
		{
			name:     "past end clamps",
			offset:   100,
			whence:   io.SeekStart,
			expected: 12,
		},
		{
			name:     "before start",
			start:    3,
			offset:   -4,
			whence:   io.SeekCurrent,
			expected: 3,
			err:      multifile.ErrInvalidSeek,
		},
		{
			name:     "bad whence",
			offset:   0,
			whence:   42,
			expected: 0,
			err:      multifile.ErrInvalidWhence,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			r := openParts(t, [][]byte{[]byte("hoge"), []byte("fuga"), []byte("pico")})
			if _, err := r.Seek(test.start, io.SeekStart); err != nil {
				t.Fatal(err)
			}

			pos, err := r.Seek(test.offset, test.whence)
			if !errors.Is(err, test.err) {
				t.Fatalf("Seek: want error: %v, got: %v", test.err, err)
			}
			if pos != test.expected {
				t.Errorf("Seek: want: %d, got: %d", test.expected, pos)
			}
		})
	}
}

// TestReader_ShortRead tests reads crossing part boundaries and reads for
// more bytes than remain.
func TestReader_ShortRead(t *testing.T) {
	t.Parallel()

	r := openParts(t, [][]byte{[]byte("hoge"), []byte("fuga"), []byte("pico")})

	if _, err := r.Seek(2, io.SeekStart); err != nil {
		t.Fatal(err)
	}
	b := make([]byte, 8)
	n, err := r.Read(b)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if diff := cmp.Diff("gefugapi", string(b[:n])); diff != "" {
		t.Errorf("Read (-want, +got):\n%s", diff)
	}

	n, err = r.Read(b)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if diff := cmp.Diff("co", string(b[:n])); diff != "" {
		t.Errorf("Read (-want, +got):\n%s", diff)
	}

	if _, err := r.Read(b); !errors.Is(err, io.EOF) {
		t.Errorf("Read at end: want: %v, got: %v", io.EOF, err)
	}
}

// TestReader_ReadAt tests that ReadAt does not move the logical position.
func TestReader_ReadAt(t *testing.T) {
	t.Parallel()

	r := openParts(t, [][]byte{[]byte("hoge"), []byte("fuga"), []byte("pico")})

	b := make([]byte, 6)
	if _, err := r.ReadAt(b, 3); err != nil {
		t.Fatalf("ReadAt: %v", err)
	}
	if diff := cmp.Diff("efugap", string(b)); diff != "" {
		t.Errorf("ReadAt (-want, +got):\n%s", diff)
	}

	n, err := r.ReadAt(b, 9)
	if !errors.Is(err, io.EOF) {
		t.Errorf("ReadAt past end: want: %v, got: %v", io.EOF, err)
	}
	if diff := cmp.Diff("ico", string(b[:n])); diff != "" {
		t.Errorf("ReadAt (-want, +got):\n%s", diff)
	}

	pos, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		t.Fatal(err)
	}
	if pos != 0 {
		t.Errorf("position after ReadAt: want: 0, got: %d", pos)
	}
}

// TestOpen_MissingPart tests that Open fails when a part does not exist.
func TestOpen_MissingPart(t *testing.T) {
	t.Parallel()

	paths := writeParts(t, [][]byte{[]byte("hoge")})
	paths = append(paths, filepath.Join(t.TempDir(), "missing"))

	_, err := multifile.Open(paths...)
	if !errors.Is(err, multifile.ErrMissingPart) {
		t.Fatalf("Open: want: %v, got: %v", multifile.ErrMissingPart, err)
	}

	if _, err := multifile.Open(); !errors.Is(err, multifile.ErrNoParts) {
		t.Fatalf("Open: want: %v, got: %v", multifile.ErrNoParts, err)
	}
}

// TestOpenFile tests OpenFile with one and several parts.
func TestOpenFile(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		parts [][]byte
	}{
		{
			name:  "single",
			parts: [][]byte{[]byte("hoge")},
		},
		{
			name:  "multiple",
			parts: [][]byte{[]byte("hoge"), []byte("fuga")},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			f, err := multifile.OpenFile(writeParts(t, test.parts)...)
			if err != nil {
				t.Fatalf("OpenFile: %v", err)
			}
			defer f.Close()

			got, err := io.ReadAll(f)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(bytes.Join(test.parts, nil), got); diff != "" {
				t.Fatalf("ReadAll (-want, +got):\n%s", diff)
			}
		})
	}
}

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

package record

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
)

// ExtractorOptions are options for an Extractor.
type ExtractorOptions struct {
	// Encoding is the text encoding of text records. Defaults to UTF-8.
	Encoding string

	// Stylesheet is applied to text records when not empty.
	Stylesheet Stylesheet

	// Decompressors are the available block decompressors. Defaults to
	// DefaultDecompressors. Records using a codec missing from the map fail
	// with ErrUnsupportedCodec.
	Decompressors Decompressors
}

// DefaultExtractorOptions is the default options for an Extractor.
var DefaultExtractorOptions = &ExtractorOptions{
	Encoding: "UTF-8",
}

// Extractor extracts records from an archive's byte stream.
type Extractor struct {
	enc        encoding.Encoding
	stylesheet Stylesheet
	dec        Decompressors
}

// NewExtractor returns a new Extractor.
func NewExtractor(opts *ExtractorOptions) (*Extractor, error) {
	if opts == nil {
		opts = DefaultExtractorOptions
	}

	name := opts.Encoding
	if name == "" {
		name = DefaultExtractorOptions.Encoding
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEncoding, name)
	}

	dec := opts.Decompressors
	if dec == nil {
		dec = DefaultDecompressors()
	}

	return &Extractor{
		enc:        enc,
		stylesheet: opts.Stylesheet,
		dec:        dec,
	}, nil
}

// Media returns the raw bytes of a media record.
func (e *Extractor) Media(r io.ReadSeeker, rec *Record) ([]byte, error) {
	block, err := ReadBlock(r, rec, e.dec)
	if err != nil {
		return nil, err
	}
	b, err := Slice(block, rec)
	if err != nil {
		return nil, err
	}
	// Don't hand out a slice that pins the whole block.
	return append([]byte(nil), b...), nil
}

// Text returns a text record decoded to UTF-8 with NUL padding removed and
// the stylesheet applied.
func (e *Extractor) Text(r io.ReadSeeker, rec *Record) (string, error) {
	block, err := ReadBlock(r, rec, e.dec)
	if err != nil {
		return "", err
	}
	b, err := Slice(block, rec)
	if err != nil {
		return "", err
	}

	decoded, err := e.enc.NewDecoder().Bytes(b)
	if err != nil {
		return "", fmt.Errorf("decoding %q: %w", rec.Key, err)
	}
	text := strings.ReplaceAll(string(decoded), "\x00", "")

	if len(e.stylesheet) == 0 {
		return text, nil
	}
	text, err = e.stylesheet.Apply(text)
	if err != nil {
		return "", fmt.Errorf("styling %q: %w", rec.Key, err)
	}
	return text, nil
}

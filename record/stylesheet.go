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
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

var styleTag = regexp.MustCompile("`(\\d+)`")

// Style is a pair of strings wrapped around styled text.
type Style struct {
	Prefix string
	Suffix string
}

// MarshalJSON encodes the style as a [prefix, suffix] array.
func (s Style) MarshalJSON() ([]byte, error) {
	//nolint:wrapcheck // error should not be wrapped
	return json.Marshal([2]string{s.Prefix, s.Suffix})
}

// UnmarshalJSON decodes a [prefix, suffix] array.
func (s *Style) UnmarshalJSON(b []byte) error {
	var pair []string
	if err := json.Unmarshal(b, &pair); err != nil {
		return fmt.Errorf("decoding style: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("decoding style: want 2 elements, got %d", len(pair))
	}
	s.Prefix, s.Suffix = pair[0], pair[1]
	return nil
}

// Stylesheet maps style tag ids to styles. Text records reference styles
// with tokens of the form `N`.
type Stylesheet map[string]Style

// ParseStylesheet parses the StyleSheet attribute of an MDict header. The
// attribute is a sequence of lines in groups of three: the tag id, the
// prefix and the suffix.
func ParseStylesheet(s string) (Stylesheet, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Stylesheet{}, nil
	}
	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	if len(lines)%3 != 0 {
		return nil, fmt.Errorf("parsing stylesheet: %d lines is not a multiple of 3", len(lines))
	}
	sheet := Stylesheet{}
	for i := 0; i < len(lines); i += 3 {
		sheet[strings.TrimSpace(lines[i])] = Style{
			Prefix: lines[i+1],
			Suffix: lines[i+2],
		}
	}
	return sheet, nil
}

// Apply substitutes style tags in text. The text following a tag, up to the
// next tag, is wrapped in the tag's prefix and suffix. When that text ends
// with a newline its trailing whitespace is trimmed and a CRLF is appended
// after the suffix.
func (s Stylesheet) Apply(text string) (string, error) {
	locs := styleTag.FindAllStringSubmatchIndex(text, -1)
	if len(locs) == 0 {
		return text, nil
	}

	var b strings.Builder
	b.Grow(len(text))
	b.WriteString(text[:locs[0][0]])
	for i, loc := range locs {
		id := text[loc[2]:loc[3]]
		style, ok := s[id]
		if !ok {
			return "", fmt.Errorf("%w: %s", ErrUnknownStyleTag, id)
		}

		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		segment := text[loc[1]:end]

		b.WriteString(style.Prefix)
		if strings.HasSuffix(segment, "\n") {
			b.WriteString(strings.TrimRightFunc(segment, unicode.IsSpace))
			b.WriteString(style.Suffix)
			b.WriteString("\r\n")
		} else {
			b.WriteString(segment)
			b.WriteString(style.Suffix)
		}
	}
	return b.String(), nil
}

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

package mdict

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"github.com/ianlewis/go-mdict/internal/mediakey"
	"github.com/ianlewis/go-mdict/metrics"
	"github.com/ianlewis/go-mdict/multifile"
	"github.com/ianlewis/go-mdict/record"
)

// redirectMarker starts the body of an entry whose content lives under
// another key.
const redirectMarker = "@@@LINK="

var (
	soundScheme = regexp.MustCompile(`(?i)sound://`)

	textReplacer = strings.NewReplacer("\r\n", "", "entry:/", "")
)

// LookupText returns the entry for word. When word has no entry, its lemma
// is tried. If the entry found is a redirect, its target is looked up once.
// An error wrapping ErrNotFound is returned when nothing matches.
func (m *Mdict) LookupText(ctx context.Context, word string) (*Entry, error) {
	start := time.Now()
	logger := m.logger.With("lookup", uuid.NewString(), "word", word)

	e, err := m.lookupText(ctx, logger, word)
	metrics.ObserveLookup(metrics.KindText, result(err), start)
	if err != nil {
		logger.Debug("text lookup failed", "error", err)
		return nil, err
	}
	logger.Debug("text lookup", "resolved", e.word, "duration", time.Since(start))
	return e, nil
}

func (m *Mdict) lookupText(ctx context.Context, logger hclog.Logger, word string) (*Entry, error) {
	resolved := word
	recs, err := m.index.Lookup(ctx, word)
	if err != nil {
		return nil, err
	}

	if len(recs) == 0 && m.opts.Lemmatizer != nil {
		l, err := m.opts.Lemmatizer.Lemmatize(ctx, word)
		switch {
		case err != nil:
			logger.Warn("lemmatizer failed", "error", err)
		case l != "" && l != word:
			logger.Debug("trying lemma", "lemma", l)
			metrics.LemmaFallbacks.Inc()
			resolved = l
			if recs, err = m.index.Lookup(ctx, l); err != nil {
				return nil, err
			}
		}
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, word)
	}

	r, err := multifile.Open(m.path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	first, err := m.text.Text(r, recs[0])
	if err != nil {
		return nil, fmt.Errorf("reading %q: %w", recs[0].Key, err)
	}
	texts := []string{first}

	if target, ok := redirectTarget(first); ok {
		logger.Debug("following redirect", "target", target)
		metrics.Redirects.Inc()
		resolved = target
		if recs, err = m.index.Lookup(ctx, target); err != nil {
			return nil, err
		}
		if len(recs) == 0 {
			return nil, fmt.Errorf("%w: %q redirects to missing %q", ErrNotFound, word, target)
		}
		texts = nil
	}

	for _, rec := range recs[len(texts):] {
		t, err := m.text.Text(r, rec)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", rec.Key, err)
		}
		texts = append(texts, t)
	}

	var b strings.Builder
	for _, t := range texts {
		b.WriteString(normalizeText(t))
	}
	return &Entry{
		word: resolved,
		text: b.String(),
	}, nil
}

// redirectTarget returns the target key of a redirect entry. The target
// ends at the first line break.
func redirectTarget(text string) (string, bool) {
	target, ok := strings.CutPrefix(text, redirectMarker)
	if !ok {
		return "", false
	}
	if i := strings.IndexAny(target, "\r\n"); i >= 0 {
		target = target[:i]
	}
	return strings.TrimFunc(target, func(r rune) bool {
		return r == 0 || unicode.IsSpace(r)
	}), true
}

func normalizeText(text string) string {
	return soundScheme.ReplaceAllLiteralString(textReplacer.Replace(text), "/sound/")
}

// LookupMedia returns the content of the media resource ref, e.g.
// "sound://hello.mp3". Media parts are searched in order for any spelling of
// ref and then for a key ending in ref's file name. An error wrapping
// ErrNotFound is returned when nothing matches.
func (m *Mdict) LookupMedia(ctx context.Context, ref string) ([]byte, error) {
	start := time.Now()
	logger := m.logger.With("lookup", uuid.NewString(), "ref", ref)

	b, err := m.lookupMedia(ctx, logger, ref)
	metrics.ObserveLookup(metrics.KindMedia, result(err), start)
	if err != nil {
		logger.Debug("media lookup failed", "error", err)
		return nil, err
	}
	return b, nil
}

func (m *Mdict) lookupMedia(ctx context.Context, logger hclog.Logger, ref string) ([]byte, error) {
	candidates := mediakey.Candidates(ref)
	if len(candidates) == 0 || len(m.media) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, ref)
	}

	for _, p := range m.media {
		for _, c := range candidates {
			recs, err := p.index.LookupFold(ctx, c)
			if err != nil {
				return nil, err
			}
			if len(recs) > 0 {
				logger.Debug("media found", "part", p.path, "key", recs[0].Key)
				return m.readMedia(p, recs[0])
			}
		}
	}

	if name := mediakey.Filename(ref); name != "" {
		for _, p := range m.media {
			recs, err := p.index.LookupSuffix(ctx, name)
			if err != nil {
				return nil, err
			}
			if len(recs) > 0 {
				logger.Debug("media found by file name", "part", p.path, "key", recs[0].Key)
				return m.readMedia(p, recs[0])
			}
		}
	}

	return nil, fmt.Errorf("%w: %q", ErrNotFound, ref)
}

// readMedia reads rec from the media part p. Record positions are relative
// to the part's own file.
func (m *Mdict) readMedia(p *mediaPart, rec *record.Record) ([]byte, error) {
	r, err := multifile.Open(p.path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	b, err := m.mediaExtor.Media(r, rec)
	if err != nil {
		return nil, fmt.Errorf("reading %q from %q: %w", rec.Key, p.path, err)
	}
	return b, nil
}

// Keys returns the text archive keys matching query. A query containing "*"
// is a glob pattern, otherwise it is a key prefix. An empty query matches
// all keys.
func (m *Mdict) Keys(ctx context.Context, query string) ([]string, error) {
	return m.index.Keys(ctx, query)
}

// MediaKeys returns the keys of all media parts matching query. See Keys.
func (m *Mdict) MediaKeys(ctx context.Context, query string) ([]string, error) {
	var keys []string
	for _, p := range m.media {
		k, err := p.index.Keys(ctx, query)
		if err != nil {
			return nil, err
		}
		keys = append(keys, k...)
	}
	return keys, nil
}

func result(err error) string {
	switch {
	case err == nil:
		return metrics.ResultFound
	case errors.Is(err, ErrNotFound):
		return metrics.ResultNotFound
	default:
		return metrics.ResultError
	}
}

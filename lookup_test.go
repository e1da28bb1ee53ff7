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
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ianlewis/go-mdict/cache"
	"github.com/ianlewis/go-mdict/internal/testutil"
	"github.com/ianlewis/go-mdict/lemma"
	"github.com/ianlewis/go-mdict/record"
)

var errLemma = errors.New("lemmatizer exploded")

// testLemmatizer knows a few English inflections.
var testLemmatizer = lemma.Func(func(_ context.Context, word string) (string, error) {
	switch word {
	case "running", "ran":
		return "run", nil
	case "colours":
		return "colour", nil
	case "broken":
		return "", errLemma
	case "blank":
		return "", nil
	}
	return word, nil
})

func TestLookupText(t *testing.T) {
	t.Parallel()

	path, p := writeTestDict(t, testDict)
	m := openTestDict(t, path, &Options{
		Parser:     p,
		Lemmatizer: testLemmatizer,
	})

	tests := []struct {
		name string
		word string
		want *Entry
		err  error
	}{
		{
			name: "exact",
			word: "run",
			want: &Entry{word: "run", text: "<p>to move fast</p>"},
		},
		{
			name: "lemma",
			word: "running",
			want: &Entry{word: "run", text: "<p>to move fast</p>"},
		},
		{
			name: "redirect",
			word: "colour",
			want: &Entry{word: "color", text: "<p>a hue</p>"},
		},
		{
			name: "lemma then redirect",
			word: "colours",
			want: &Entry{word: "color", text: "<p>a hue</p>"},
		},
		{
			name: "duplicate keys are concatenated and normalized",
			word: "set",
			want: &Entry{word: "set", text: `<p>first</p><a href="/sound/set.mp3">/x</a>`},
		},
		{
			name: "single hop",
			word: "hop1",
			want: &Entry{word: "hop2", text: "@@@LINK=color"},
		},
		{
			name: "dangling redirect",
			word: "dangling",
			err:  ErrNotFound,
		},
		{
			name: "not found",
			word: "xyzzy",
			err:  ErrNotFound,
		},
		{
			name: "lemmatizer failure",
			word: "broken",
			err:  ErrNotFound,
		},
		{
			name: "empty lemma",
			word: "blank",
			err:  ErrNotFound,
		},
		{
			name: "case sensitive",
			word: "RUN",
			err:  ErrNotFound,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			got, err := m.LookupText(context.Background(), test.word)
			if !errors.Is(err, test.err) {
				t.Fatalf("LookupText: want: %v, got: %v", test.err, err)
			}
			if errors.Is(err, errLemma) {
				t.Fatalf("LookupText: lemmatizer error surfaced: %v", err)
			}
			if diff := cmp.Diff(test.want, got, cmp.AllowUnexported(Entry{})); diff != "" {
				t.Errorf("LookupText (-want, +got):\n%s", diff)
			}
		})
	}
}

func TestLookupText_noLemmatizer(t *testing.T) {
	t.Parallel()

	path, p := writeTestDict(t, testDict)
	m := openTestDict(t, path, &Options{Parser: p})

	if _, err := m.LookupText(context.Background(), "running"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("LookupText: want: %v, got: %v", ErrNotFound, err)
	}
}

func TestLookupText_stylesheet(t *testing.T) {
	t.Parallel()

	path, p := writeTestDict(t, &testutil.Dict{
		Text: []*testutil.Entry{
			entry("styled", "head`1`bold\n`2`italic"),
			entry("bad", "`9`oops"),
		},
		Metadata: &record.Metadata{
			Encoding: "UTF-8",
			Stylesheet: record.Stylesheet{
				"1": {Prefix: "<b>", Suffix: "</b>"},
				"2": {Prefix: "<i>", Suffix: "</i>"},
			},
		},
	})
	m := openTestDict(t, path, &Options{Parser: p})

	e, err := m.LookupText(context.Background(), "styled")
	if err != nil {
		t.Fatalf("LookupText: %v", err)
	}
	// The CRLF added after a line ending segment is removed again.
	if diff := cmp.Diff("head<b>bold</b><i>italic</i>", e.Text()); diff != "" {
		t.Errorf("LookupText (-want, +got):\n%s", diff)
	}

	if _, err := m.LookupText(context.Background(), "bad"); !errors.Is(err, record.ErrUnknownStyleTag) {
		t.Fatalf("LookupText: want: %v, got: %v", record.ErrUnknownStyleTag, err)
	}
}

func TestLookupText_unsupportedCodec(t *testing.T) {
	t.Parallel()

	path, p := writeTestDict(t, testDict)
	// Without a deflate decompressor the text records can't be read.
	m := openTestDict(t, path, &Options{
		Parser: p,
		Decompressors: record.Decompressors{
			record.Raw: record.DefaultDecompressors()[record.Raw],
		},
	})

	if _, err := m.LookupText(context.Background(), "run"); !errors.Is(err, record.ErrUnsupportedCodec) {
		t.Fatalf("LookupText: want: %v, got: %v", record.ErrUnsupportedCodec, err)
	}
}

func TestLookupMedia(t *testing.T) {
	t.Parallel()

	path, p := writeTestDict(t, testDict)
	m := openTestDict(t, path, &Options{Parser: p})

	tests := []struct {
		name string
		ref  string
		want string
		err  error
	}{
		{
			name: "scheme and case",
			ref:  "sound://Hello World.mp3",
			want: "HELLO",
		},
		{
			name: "second part",
			ref:  "img/cat.png",
			want: "CAT",
		},
		{
			name: "first part wins",
			ref:  "/shared.css",
			want: "FIRST",
		},
		{
			name: "file name suffix",
			ref:  "sound://only.wav",
			want: "ONLY",
		},
		{
			name: "missing",
			ref:  "sound://missing.mp3",
			err:  ErrNotFound,
		},
		{
			name: "blank",
			ref:  "  ",
			err:  ErrNotFound,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			got, err := m.LookupMedia(context.Background(), test.ref)
			if !errors.Is(err, test.err) {
				t.Fatalf("LookupMedia: want: %v, got: %v", test.err, err)
			}
			if diff := cmp.Diff(test.want, string(got)); diff != "" {
				t.Errorf("LookupMedia (-want, +got):\n%s", diff)
			}
		})
	}
}

func TestLookupMedia_noMedia(t *testing.T) {
	t.Parallel()

	path, p := writeTestDict(t, &testutil.Dict{
		Text: []*testutil.Entry{entry("run", "<p>to move fast</p>")},
	})
	m := openTestDict(t, path, &Options{Parser: p})

	if _, err := m.LookupMedia(context.Background(), "sound://run.mp3"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("LookupMedia: want: %v, got: %v", ErrNotFound, err)
	}
	keys, err := m.MediaKeys(context.Background(), "")
	if err != nil {
		t.Fatalf("MediaKeys: %v", err)
	}
	if len(keys) != 0 {
		t.Errorf("MediaKeys: want: none, got: %q", keys)
	}
}

func TestLookupMedia_directory(t *testing.T) {
	t.Parallel()

	path, p := writeTestDict(t, &testutil.Dict{
		Text: []*testutil.Entry{entry("hello", "<p>hi</p>")},
		Media: [][]*testutil.Entry{
			{
				entry(`\hello.mp3`, "GENERIC"),
				entry(`\us\hello.mp3`, "US"),
				entry(`\sound\uk\hello.mp3`, "UK"),
			},
		},
	})
	m := openTestDict(t, path, &Options{Parser: p})

	tests := map[string]string{
		"sound://us/hello.mp3": "US",
		"sound://uk/hello.mp3": "UK",
		"sound://hello.mp3":    "GENERIC",
		"sound://au/hello.mp3": "GENERIC",
	}
	for ref, want := range tests {
		got, err := m.LookupMedia(context.Background(), ref)
		if err != nil {
			t.Errorf("LookupMedia(%q): %v", ref, err)
			continue
		}
		if diff := cmp.Diff(want, string(got)); diff != "" {
			t.Errorf("LookupMedia(%q) (-want, +got):\n%s", ref, diff)
		}
	}
}

func TestKeys(t *testing.T) {
	t.Parallel()

	path, p := writeTestDict(t, testDict)
	m := openTestDict(t, path, &Options{Parser: p})
	ctx := context.Background()

	tests := []struct {
		name  string
		media bool
		query string
		want  []string
	}{
		{
			name:  "prefix",
			query: "col",
			want:  []string{"colour", "color"},
		},
		{
			name:  "glob",
			query: "*o*1",
			want:  []string{"hop1"},
		},
		{
			name:  "duplicates",
			query: "set",
			want:  []string{"set", "set"},
		},
		{
			name:  "media across parts",
			media: true,
			query: `*.css`,
			want:  []string{`\shared.css`, `\shared.css`},
		},
		{
			name:  "media prefix",
			media: true,
			query: `\img`,
			want:  []string{`\img\cat.png`},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			keys := m.Keys
			if test.media {
				keys = m.MediaKeys
			}
			got, err := keys(ctx, test.query)
			if err != nil {
				t.Fatalf("Keys: %v", err)
			}
			if diff := cmp.Diff(test.want, got); diff != "" {
				t.Errorf("Keys (-want, +got):\n%s", diff)
			}
		})
	}
}

func TestLookupRendered(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path, p := writeTestDict(t, testDict)
	c := cache.New(1024)
	m := openTestDict(t, path, &Options{
		Parser:        p,
		Lemmatizer:    testLemmatizer,
		Cache:         c,
		SchemaVersion: "1",
	})

	var renders atomic.Int32
	r := RenderFunc(func(_ context.Context, text, word string) ([]byte, error) {
		renders.Add(1)
		return []byte(fmt.Sprintf("%s: %s", word, text)), nil
	})

	for range 2 {
		got, err := m.LookupRendered(ctx, "Colour", "html", r)
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("LookupRendered: want: %v, got: %v", ErrNotFound, err)
		}
		if got != nil {
			t.Fatalf("LookupRendered: want: nil, got: %q", got)
		}
	}

	for range 3 {
		got, err := m.LookupRendered(ctx, "running", "html", r)
		if err != nil {
			t.Fatalf("LookupRendered: %v", err)
		}
		if diff := cmp.Diff("run: <p>to move fast</p>", string(got)); diff != "" {
			t.Errorf("LookupRendered (-want, +got):\n%s", diff)
		}
	}
	if got, want := renders.Load(), int32(1); got != want {
		t.Errorf("renders: want: %d, got: %d", want, got)
	}

	// A different tag is a different cache entry.
	if _, err := m.LookupRendered(ctx, "running", "text", r); err != nil {
		t.Fatalf("LookupRendered: %v", err)
	}
	if got, want := renders.Load(), int32(2); got != want {
		t.Errorf("renders: want: %d, got: %d", want, got)
	}

	if got, ok := m.GetCached(m.CacheKey("html", "RUNNING")); !ok || string(got) != "run: <p>to move fast</p>" {
		t.Errorf("GetCached: want hit, got: %q, %v", got, ok)
	}
	if got, want := c.Len(), 2; got != want {
		t.Errorf("Len: want: %d, got: %d", want, got)
	}
}

func TestLookupRendered_sharedCache(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := cache.New(1024)
	open := func(name, text string) *Mdict {
		path, p := writeTestDict(t, &testutil.Dict{
			Name: name,
			Text: []*testutil.Entry{entry("run", text)},
		})
		return openTestDict(t, path, &Options{
			Parser:        p,
			Cache:         c,
			SchemaVersion: "1",
		})
	}
	a := open("a", "FROM A")
	b := open("b", "FROM B")

	r := RenderFunc(func(_ context.Context, text, _ string) ([]byte, error) {
		return []byte(text), nil
	})
	for _, test := range []struct {
		m    *Mdict
		want string
	}{
		{a, "FROM A"},
		{b, "FROM B"},
		{a, "FROM A"},
	} {
		got, err := test.m.LookupRendered(ctx, "run", "html", r)
		if err != nil {
			t.Fatalf("LookupRendered: %v", err)
		}
		if diff := cmp.Diff(test.want, string(got)); diff != "" {
			t.Errorf("LookupRendered %s (-want, +got):\n%s", test.m.Title(), diff)
		}
	}
	if got, want := c.Len(), 2; got != want {
		t.Errorf("Len: want: %d, got: %d", want, got)
	}
	if a.CacheKey("html", "run") == b.CacheKey("html", "run") {
		t.Errorf("CacheKey: dictionaries share key %q", a.CacheKey("html", "run"))
	}
}

func TestLookupRendered_renderError(t *testing.T) {
	t.Parallel()

	errRender := errors.New("render failed")
	path, p := writeTestDict(t, testDict)
	c := cache.New(1024)
	m := openTestDict(t, path, &Options{Parser: p, Cache: c})

	_, err := m.LookupRendered(context.Background(), "run", "html", RenderFunc(
		func(context.Context, string, string) ([]byte, error) {
			return nil, errRender
		}))
	if !errors.Is(err, errRender) {
		t.Fatalf("LookupRendered: want: %v, got: %v", errRender, err)
	}
	if got := c.Len(); got != 0 {
		t.Errorf("Len: want: 0, got: %d", got)
	}
}

func TestCached_noCache(t *testing.T) {
	t.Parallel()

	path, p := writeTestDict(t, testDict)
	m := openTestDict(t, path, &Options{Parser: p})

	m.PutCached("key", []byte("value"))
	if _, ok := m.GetCached("key"); ok {
		t.Errorf("GetCached: want miss without a cache")
	}
}

func TestRedirectTarget(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text   string
		target string
		ok     bool
	}{
		{text: "@@@LINK=color", target: "color", ok: true},
		{text: "@@@LINK= ice cream \r\nrest", target: "ice cream", ok: true},
		{text: "@@@LINK=x\x00\x00", target: "x", ok: true},
		{text: "<p>@@@LINK=color</p>", ok: false},
		{text: "", ok: false},
	}
	for _, test := range tests {
		target, ok := redirectTarget(test.text)
		if target != test.target || ok != test.ok {
			t.Errorf("redirectTarget(%q): want: %q, %v, got: %q, %v", test.text, test.target, test.ok, target, ok)
		}
	}
}

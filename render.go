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

	"github.com/ianlewis/go-mdict/cache"
)

// Renderer transforms an entry's text into its final form, e.g. a
// structured document.
type Renderer interface {
	Render(ctx context.Context, text, word string) ([]byte, error)
}

// RenderFunc adapts a function to a Renderer.
type RenderFunc func(ctx context.Context, text, word string) ([]byte, error)

// Render implements [Renderer].
func (f RenderFunc) Render(ctx context.Context, text, word string) ([]byte, error) {
	return f(ctx, text, word)
}

// GetCached returns a cached payload. It always misses when the dictionary
// has no cache.
func (m *Mdict) GetCached(key string) ([]byte, bool) {
	if m.opts.Cache == nil {
		return nil, false
	}
	return m.opts.Cache.Get(key)
}

// PutCached caches a payload. It does nothing when the dictionary has no
// cache.
func (m *Mdict) PutCached(key string, payload []byte) {
	if m.opts.Cache == nil {
		return
	}
	m.opts.Cache.Set(key, payload)
}

// CacheKey returns the cache key of word rendered with the given tag. The
// dictionary's path is part of the key so dictionaries can share a cache.
func (m *Mdict) CacheKey(tag, word string) string {
	return cache.Key(m.opts.SchemaVersion, tag+"|"+m.path, word)
}

// LookupRendered looks up word and renders it with r. tag identifies the
// rendering options and is part of the cache key. Rendered entries are
// cached; failed lookups are not.
func (m *Mdict) LookupRendered(ctx context.Context, word, tag string, r Renderer) ([]byte, error) {
	key := m.CacheKey(tag, word)
	if b, ok := m.GetCached(key); ok {
		return b, nil
	}

	e, err := m.LookupText(ctx, word)
	if err != nil {
		return nil, err
	}
	b, err := r.Render(ctx, e.Text(), e.Word())
	if err != nil {
		return nil, err
	}
	m.PutCached(key, b)
	return b, nil
}

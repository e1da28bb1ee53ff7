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

// Package cache implements a byte-budgeted least-recently-used cache for
// rendered dictionary payloads.
package cache

import (
	"math"
	"strings"
	"sync"

	"github.com/hashicorp/golang-lru/v2/simplelru"

	"github.com/ianlewis/go-mdict/metrics"
)

// Cache is an LRU cache whose capacity is a number of payload bytes rather
// than a number of entries. It is safe for concurrent use.
type Cache struct {
	mu       sync.Mutex
	lru      *simplelru.LRU[string, []byte]
	size     int64
	capacity int64
}

// New returns a new Cache holding at most capacity payload bytes.
func New(capacity int64) *Cache {
	c := &Cache{capacity: capacity}
	// NOTE: simplelru.NewLRU only fails for a non-positive size.
	c.lru, _ = simplelru.NewLRU[string, []byte](math.MaxInt, c.evicted)
	return c
}

// evicted is called by the LRU with c.mu held.
func (c *Cache) evicted(_ string, payload []byte) {
	c.size -= int64(len(payload))
	metrics.CacheEvictions.Inc()
	metrics.CacheBytes.Sub(float64(len(payload)))
}

// Get returns the payload for key and marks it most recently used.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	payload, ok := c.lru.Get(key)
	if ok {
		metrics.CacheHits.Inc()
	} else {
		metrics.CacheMisses.Inc()
	}
	return payload, ok
}

// Set stores payload under key, evicting least recently used entries until
// the cache fits within its capacity. Payloads larger than the capacity are
// not cached.
func (c *Cache) Set(key string, payload []byte) {
	n := int64(len(payload))
	if n > c.capacity {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.lru.Peek(key); ok {
		c.size -= int64(len(old))
		metrics.CacheBytes.Sub(float64(len(old)))
	}
	c.lru.Add(key, payload)
	c.size += n
	metrics.CacheBytes.Add(float64(n))

	for c.size > c.capacity {
		if _, _, ok := c.lru.RemoveOldest(); !ok {
			break
		}
	}
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Size returns the number of payload bytes currently cached.
func (c *Cache) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

// Capacity returns the maximum number of payload bytes.
func (c *Cache) Capacity() int64 {
	return c.capacity
}

// Key returns the cache key for a word rendered with the given schema
// version and options tag. Changing the schema version moves all keys to a
// new namespace.
func Key(schemaVersion, optionsTag, word string) string {
	return schemaVersion + "|" + optionsTag + "|" + strings.ToLower(word)
}

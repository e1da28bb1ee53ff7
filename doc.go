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

// Package mdict implements a lookup engine for MDict dictionaries in pure
// Go.
//
// MDict dictionaries contain several files:
//  1. An .mdx file that contains the dictionary's text entries, usually
//     HTML, sorted by key and stored in compressed record blocks.
//  2. An optional .mdd file that contains media resources (sounds, images,
//     stylesheets) referenced by the entries. Large media collections are
//     split into numbered parts such as foo.1.mdd or foo.mdd.2.
//
// Scanning the key blocks of an archive is slow, so each archive gets a side
// index: a SQLite database next to the archive (foo.mdx.db, foo.mdd.db)
// mapping keys to record locations. Side indexes are built on first open by
// a [sideindex.Parser] and rebuilt when they are stale.
//
// Text lookups fall back to a lemmatized form of the word and follow a
// single "@@@LINK=" redirect. Media lookups try several spellings of the
// resource path before falling back to a file name suffix match.
package mdict

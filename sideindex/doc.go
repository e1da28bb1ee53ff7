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

// Package sideindex implements the persisted key index of an MDict archive.
//
// Scanning an MDict archive's key blocks is slow, so the keys are scanned
// once and stored in a SQLite database next to the archive (foo.mdx.db,
// foo.mdd.db). The database holds two tables:
//
//   - MDX_INDEX: one row per record with the record's key and location.
//   - META: key/value pairs holding the index version and, for text archives,
//     the archive's encoding, stylesheet, title and description.
//
// The layout is compatible with the index files written by mdict-query. An
// index is never updated in place. Build writes a fresh database and replaces
// any previous one.
package sideindex

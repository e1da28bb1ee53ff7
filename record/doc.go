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

// Package record implements reading records out of MDict archives.
//
// An MDict archive stores its records packed into record blocks. Each block
// starts with an 8 byte header: a 4 byte little-endian compression type
// followed by a 4 byte adler32 checksum of the decompressed data. The rest of
// the block is the (possibly compressed) payload. A record is addressed by the
// position of its block in the archive and a byte range inside the
// decompressed block.
//
// Text records (.mdx) are additionally decoded from the archive's encoding and
// run through the archive's stylesheet. Media records (.mdd) are returned as
// raw bytes.
package record

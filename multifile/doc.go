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

// Package multifile implements a reader that presents an ordered list of
// physical files as a single addressable byte stream.
//
// MDict media archives (.mdd) are frequently distributed split into several
// part files. Records in such archives are addressed by offsets into the
// concatenation of all parts, so a block may start in one part and end in the
// next. A Reader hides the split from callers: it implements [io.Reader],
// [io.Seeker] and [io.ReaderAt] over the logical range [0, Size()).
package multifile

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

package mdict

// Entry is a resolved dictionary entry.
type Entry struct {
	word string
	text string
}

// Word returns the word the entry was found under. It differs from the
// looked up word when a lemma or a redirect was used.
func (e *Entry) Word() string {
	return e.word
}

// Text returns the entry's assembled text, usually HTML.
func (e *Entry) Text() string {
	return e.text
}

// String returns a string representation of the Entry.
func (e *Entry) String() string {
	return e.word + "\n" + e.text + "\n"
}

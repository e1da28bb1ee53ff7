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

// Package mediakey generates the lookup keys tried for a media reference.
//
// Media archives are inconsistent about how resource paths are stored. The
// same sound may be keyed as "\sound\a.mp3", "/a.mp3" or "a.mp3" depending
// on the authoring tool, so a reference found in an entry is expanded into
// every plausible spelling.
package mediakey

import (
	"strings"
)

const (
	scheme   = "sound://"
	soundDir = "sound/"
)

// normalize strips the sound:// scheme and surrounding separators and
// converts backslashes to forward slashes.
func normalize(ref string) string {
	s := strings.TrimSpace(ref)
	if len(s) >= len(scheme) && strings.EqualFold(s[:len(scheme)], scheme) {
		s = s[len(scheme):]
	}
	s = strings.Trim(s, `/\`)
	return strings.ReplaceAll(s, `\`, "/")
}

// Candidates returns the keys that may identify ref in a media archive,
// most specific first: the path itself, its sound directory variants and
// finally the bare file name. It returns nil if ref is blank.
func Candidates(ref string) []string {
	if strings.TrimSpace(ref) == "" {
		return nil
	}
	n := normalize(ref)

	var keys []string
	seen := map[string]bool{}
	add := func(p string) {
		p = strings.TrimSpace(p)
		if p == "" {
			return
		}
		for _, k := range []string{p, strings.ReplaceAll(p, "/", `\`)} {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	addRooted := func(p string) {
		add(p)
		add("/" + p)
		add(`\` + p)
	}
	addSound := func(p string) {
		add(soundDir + p)
		add(`\sound\` + p)
		add("/" + soundDir + p)
	}

	addRooted(n)
	if len(n) >= len(soundDir) && strings.EqualFold(n[:len(soundDir)], soundDir) {
		rest := n[len(soundDir):]
		addSound(rest)
		add(rest)
	} else {
		addSound(n)
	}

	name := Filename(ref)
	addRooted(name)
	addSound(name)

	return keys
}

// Filename returns the final path segment of ref.
func Filename(ref string) string {
	n := normalize(ref)
	if i := strings.LastIndexByte(n, '/'); i >= 0 {
		return n[i+1:]
	}
	return n
}

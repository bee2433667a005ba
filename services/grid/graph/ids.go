// Copyright (C) 2026 Zadorian Intelligence (ops@zadorian.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package graph

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
	"unicode"
)

// EdgeID derives the deterministic id shared by both sides of a
// relationship. Re-deriving it from the same (source, target, relation)
// triple is what makes edge creation and removal idempotent.
func EdgeID(sourceID, targetID, relation string) string {
	sum := sha256.Sum256([]byte(sourceID + "|" + targetID + "|" + relation))
	return hex.EncodeToString(sum[:8])
}

// Slug normalizes a label into a lowercase, hyphen-separated identifier
// fragment. "Needs Review" and "needs review" produce the same slug.
func Slug(label string) string {
	var b strings.Builder
	lastHyphen := true // suppress leading hyphens
	for _, r := range strings.ToLower(strings.TrimSpace(label)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastHyphen = false
		} else if !lastHyphen {
			b.WriteByte('-')
			lastHyphen = true
		}
	}
	return strings.TrimRight(b.String(), "-")
}

// TagID derives the deterministic id of the tag node for a label.
func TagID(label string) string {
	return "tag_" + Slug(label)
}

// WatcherID derives a watcher node id from its label and creation time.
// Watchers are not deduplicated: creating the same watcher twice yields two
// nodes.
func WatcherID(label string, at time.Time) string {
	return fmt.Sprintf("watcher_%s_%d", Slug(label), at.UnixMilli())
}

// tagPalette is the fixed colour palette tags are assigned from.
var tagPalette = []string{
	"#e06c75", "#d19a66", "#e5c07b", "#98c379",
	"#56b6c2", "#61afef", "#c678dd", "#be5046",
}

// TagColor picks a deterministic colour for a tag label. The same label
// (modulo slug normalization) always gets the same colour.
func TagColor(label string) string {
	sum := sha256.Sum256([]byte(Slug(label)))
	return tagPalette[int(sum[0])%len(tagPalette)]
}

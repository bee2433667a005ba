// Copyright (C) 2026 Zadorian Intelligence (ops@zadorian.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package graph

import (
	"testing"
	"time"
)

func TestEdgeID_Deterministic(t *testing.T) {
	a := EdgeID("acme-ltd", "tag_priority", RelationTaggedWith)
	b := EdgeID("acme-ltd", "tag_priority", RelationTaggedWith)
	if a != b {
		t.Fatalf("same triple produced different ids: %s vs %s", a, b)
	}
	if len(a) != 16 {
		t.Errorf("edge id length = %d, want 16", len(a))
	}
}

func TestEdgeID_DirectionSensitive(t *testing.T) {
	forward := EdgeID("a", "b", RelationMonitors)
	reverse := EdgeID("b", "a", RelationMonitors)
	if forward == reverse {
		t.Error("reversed triple must not collide")
	}
	if EdgeID("a", "b", RelationMonitors) == EdgeID("a", "b", RelationTaggedWith) {
		t.Error("different relations must not collide")
	}
}

func TestSlug(t *testing.T) {
	tests := []struct {
		label string
		want  string
	}{
		{"Needs Review", "needs-review"},
		{"needs review", "needs-review"},
		{"  Priority!  ", "priority"},
		{"KYC / AML check", "kyc-aml-check"},
		{"a--b", "a-b"},
		{"2019 filings", "2019-filings"},
	}
	for _, tt := range tests {
		if got := Slug(tt.label); got != tt.want {
			t.Errorf("Slug(%q) = %q, want %q", tt.label, got, tt.want)
		}
	}
}

func TestTagID_CaseInsensitive(t *testing.T) {
	if TagID("Needs Review") != TagID("needs review") {
		t.Error("tag ids must be case-insensitive")
	}
	if got := TagID("Priority"); got != "tag_priority" {
		t.Errorf("TagID = %q, want tag_priority", got)
	}
}

func TestWatcherID_NotDeduplicated(t *testing.T) {
	t1 := time.UnixMilli(1700000000000)
	t2 := time.UnixMilli(1700000000001)
	if WatcherID("acme watch", t1) == WatcherID("acme watch", t2) {
		t.Error("watchers created at different times must get distinct ids")
	}
	if got := WatcherID("Acme Watch", t1); got != "watcher_acme-watch_1700000000000" {
		t.Errorf("WatcherID = %q", got)
	}
}

func TestTagColor_StableAndInPalette(t *testing.T) {
	c := TagColor("Priority")
	if c != TagColor("priority") {
		t.Error("colour must not depend on letter case")
	}
	found := false
	for _, p := range tagPalette {
		if p == c {
			found = true
		}
	}
	if !found {
		t.Errorf("colour %q not in palette", c)
	}
}

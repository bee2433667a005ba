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

func TestCanonicalClass(t *testing.T) {
	tests := []struct {
		name string
		want Class
		ok   bool
	}{
		{"subject", ClassSubject, true},
		{"entity", ClassSubject, true},
		{"ENTITY", ClassSubject, true},
		{"nexus", ClassNexus, true},
		{"connection", ClassNexus, true},
		{"narrative", ClassNarrative, true},
		{"case", ClassNarrative, true},
		{"location", ClassLocation, true},
		{"place", ClassLocation, true},
		{"  Place ", ClassLocation, true},
		{"widget", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := CanonicalClass(tt.name)
		if ok != tt.ok || got != tt.want {
			t.Errorf("CanonicalClass(%q) = (%q, %v), want (%q, %v)", tt.name, got, ok, tt.want, tt.ok)
		}
	}
}

func TestClass_Spellings(t *testing.T) {
	got := ClassSubject.Spellings()
	if len(got) != 2 || got[0] != "subject" || got[1] != "entity" {
		t.Errorf("Spellings() = %v", got)
	}
}

func TestRotationFor(t *testing.T) {
	tests := []struct {
		letter byte
		want   Class
		ok     bool
	}{
		{'S', ClassSubject, true},
		{'e', ClassSubject, true},
		{'N', ClassNarrative, true},
		{'c', ClassNarrative, true},
		{'X', ClassNexus, true},
		{'L', ClassLocation, true},
		{'p', ClassLocation, true},
		{'Z', "", false},
	}
	for _, tt := range tests {
		got, ok := RotationFor(tt.letter)
		if ok != tt.ok || got != tt.want {
			t.Errorf("RotationFor(%c) = (%q, %v), want (%q, %v)", tt.letter, got, ok, tt.want, tt.ok)
		}
	}
}

// =============================================================================
// Edge list operations
// =============================================================================

func TestNode_AppendEdge_Idempotent(t *testing.T) {
	n := &Node{ID: "acme-ltd"}
	e := EmbeddedEdge{
		EdgeID:    EdgeID("acme-ltd", "tag_priority", RelationTaggedWith),
		TargetID:  "tag_priority",
		Relation:  RelationTaggedWith,
		Direction: DirectionOutgoing,
	}

	if !n.AppendEdge(e) {
		t.Fatal("first append must report a change")
	}
	if n.AppendEdge(e) {
		t.Fatal("second append of the same (edge_id, direction) must be a no-op")
	}
	if len(n.Edges) != 1 {
		t.Fatalf("edge count = %d, want 1", len(n.Edges))
	}

	// The same edge id in the opposite direction is a distinct entry.
	e.Direction = DirectionIncoming
	if !n.AppendEdge(e) {
		t.Fatal("opposite direction must append")
	}
	if len(n.Edges) != 2 {
		t.Fatalf("edge count = %d, want 2", len(n.Edges))
	}
}

func TestNode_RemoveEdge_BothDirections(t *testing.T) {
	id := EdgeID("a", "b", RelationMonitors)
	n := &Node{Edges: []EmbeddedEdge{
		{EdgeID: id, TargetID: "b", Direction: DirectionOutgoing},
		{EdgeID: id, TargetID: "b", Direction: DirectionIncoming},
		{EdgeID: "other", TargetID: "c", Direction: DirectionOutgoing},
	}}

	if !n.RemoveEdge(id) {
		t.Fatal("remove must report a change")
	}
	if len(n.Edges) != 1 || n.Edges[0].EdgeID != "other" {
		t.Fatalf("unexpected remaining edges: %+v", n.Edges)
	}
	if n.RemoveEdge(id) {
		t.Fatal("removing an absent edge must be a no-op")
	}
}

func TestNode_EdgeTargets_Deduplicated(t *testing.T) {
	n := &Node{Edges: []EmbeddedEdge{
		{EdgeID: "e1", TargetID: "b"},
		{EdgeID: "e2", TargetID: "c"},
		{EdgeID: "e3", TargetID: "b"},
	}}
	got := n.EdgeTargets()
	if len(got) != 2 || got[0] != "b" || got[1] != "c" {
		t.Errorf("EdgeTargets() = %v", got)
	}
}

// =============================================================================
// Metadata accessors
// =============================================================================

func TestNode_YearAccessors(t *testing.T) {
	n := &Node{Metadata: map[string]any{
		"first_seen":    "2019-03-14",
		"last_archived": "2021",
	}}
	if got := n.FirstSeenYear(); got != 2019 {
		t.Errorf("FirstSeenYear() = %d", got)
	}
	if got := n.LastArchivedYear(); got != 2021 {
		t.Errorf("LastArchivedYear() = %d", got)
	}

	n = &Node{Metadata: map[string]any{"first_seen": float64(2015)}}
	if got := n.FirstSeenYear(); got != 2015 {
		t.Errorf("FirstSeenYear() from number = %d", got)
	}

	n = &Node{}
	if got := n.FirstSeenYear(); got != 0 {
		t.Errorf("FirstSeenYear() without metadata = %d", got)
	}
}

func TestNode_FirstSeenAt(t *testing.T) {
	n := &Node{
		Metadata:  map[string]any{"first_seen": "2019-03-14"},
		CreatedAt: time.Now().UnixMilli(),
	}
	want := time.Date(2019, 3, 14, 0, 0, 0, 0, time.UTC).UnixMilli()
	if got := n.FirstSeenAt(); got != want {
		t.Errorf("FirstSeenAt() = %d, want %d", got, want)
	}

	// Unparseable metadata falls back to the creation time.
	n.Metadata["first_seen"] = "unknown"
	if got := n.FirstSeenAt(); got != n.CreatedAt {
		t.Errorf("FirstSeenAt() fallback = %d, want %d", got, n.CreatedAt)
	}
}

func TestNode_Attributes(t *testing.T) {
	n := &Node{Metadata: map[string]any{
		"attributes": map[string]any{
			"country": "cyprus",
			"risk":    float64(3), // non-string values are skipped
		},
	}}
	attrs := n.Attributes()
	if attrs["country"] != "cyprus" {
		t.Errorf("Attributes() = %v", attrs)
	}
	if _, present := attrs["risk"]; present {
		t.Error("non-string attribute value must be skipped")
	}
}

// Copyright (C) 2026 Zadorian Intelligence (ops@zadorian.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package graph defines the node and embedded-edge data model shared by the
// grid parser, composer, and mutator.
//
// Every node belongs to exactly one project partition. Relationships are
// denormalized: each edge is stored twice, once outgoing on the source and
// once incoming on the target, both carrying the same deterministic edge id.
package graph

import (
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// Classes and Types
// =============================================================================

// Class is one of the four top-level semantic categories a node belongs to.
type Class string

const (
	// ClassSubject covers people and companies under investigation.
	ClassSubject Class = "subject"

	// ClassNexus covers connective artifacts: queries, sources, emails, domains.
	ClassNexus Class = "nexus"

	// ClassNarrative covers case material: notes, tags, watchers, projects.
	ClassNarrative Class = "narrative"

	// ClassLocation covers geographic anchors.
	ClassLocation Class = "location"
)

// deprecatedSpellings maps each class to the legacy names still present in
// historical documents. Queries must match these alongside the canonical name.
var deprecatedSpellings = map[Class][]string{
	ClassSubject:   {"entity"},
	ClassNexus:     {"connection"},
	ClassNarrative: {"case"},
	ClassLocation:  {"place"},
}

// Spellings returns the canonical class name followed by its deprecated
// alias spellings. The result is a fresh slice the caller may modify.
func (c Class) Spellings() []string {
	out := []string{string(c)}
	return append(out, deprecatedSpellings[c]...)
}

// Valid reports whether c is one of the four known classes.
func (c Class) Valid() bool {
	switch c {
	case ClassSubject, ClassNexus, ClassNarrative, ClassLocation:
		return true
	}
	return false
}

// CanonicalClass resolves a class name, canonical or deprecated, to its
// canonical Class. The match is case-insensitive.
func CanonicalClass(name string) (Class, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	c := Class(name)
	if c.Valid() {
		return c, true
	}
	for canonical, aliases := range deprecatedSpellings {
		for _, a := range aliases {
			if a == name {
				return canonical, true
			}
		}
	}
	return "", false
}

// ClassAliases maps the `@alias` spellings accepted by the grid syntax to
// their class. Disjoint from TypeAliases.
var ClassAliases = map[string]Class{
	"subject": ClassSubject, "entity": ClassSubject, "s": ClassSubject,
	"nexus": ClassNexus, "connection": ClassNexus, "x": ClassNexus,
	"narrative": ClassNarrative, "case": ClassNarrative, "n": ClassNarrative,
	"location": ClassLocation, "place": ClassLocation, "l": ClassLocation,
}

// TypeAliases maps the `@alias` spellings accepted by the grid syntax to node
// types. Disjoint from ClassAliases.
var TypeAliases = map[string]string{
	"person": "person", "p": "person",
	"company": "company", "c": "company",
	"query": "query", "q": "query",
	"source": "source", "src": "source",
	"email": "email", "e": "email",
	"domain": "domain", "d": "domain",
}

// RotationFor resolves a `/grid<letter>` rotation marker letter to the class
// the view pivots around. Some letters alias the same rotation through the
// legacy class spellings (E for entity, C for case, P for place).
func RotationFor(letter byte) (Class, bool) {
	switch letter {
	case 'S', 's', 'E', 'e':
		return ClassSubject, true
	case 'N', 'n', 'C', 'c':
		return ClassNarrative, true
	case 'X', 'x':
		return ClassNexus, true
	case 'L', 'l', 'P', 'p':
		return ClassLocation, true
	}
	return "", false
}

// Node types created by the mutator under ClassNarrative.
const (
	TypeTag     = "tag"
	TypeWatcher = "watcher"
	TypeProject = "project"
)

// Relation names written by the mutator.
const (
	RelationTaggedWith = "tagged_with"
	RelationMonitors   = "monitors"
)

// =============================================================================
// Direction
// =============================================================================

// Direction marks which side of a relationship an embedded edge represents.
type Direction string

const (
	DirectionOutgoing Direction = "outgoing"
	DirectionIncoming Direction = "incoming"
)

// =============================================================================
// Embedded Edge
// =============================================================================

// EmbeddedEdge is a relationship record stored inside a node document.
//
// The target fields are a denormalized snapshot taken at write time; they are
// display hints and are not updated when the target node changes later. The
// authoritative record is always the target node itself.
type EmbeddedEdge struct {
	// EdgeID is the deterministic hash of (source id, target id, relation),
	// shared by the outgoing and incoming sides of one relationship.
	EdgeID string `json:"edge_id"`

	// TargetID is the id of the node on the other end.
	TargetID string `json:"target_id"`

	TargetLabel string         `json:"target_label"`
	TargetClass Class          `json:"target_class"`
	TargetType  string         `json:"target_type"`
	TargetProps map[string]any `json:"target_props,omitempty"`

	Relation  string    `json:"relation"`
	Direction Direction `json:"direction"`

	Confidence float64        `json:"confidence"`
	Verified   bool           `json:"verified"`
	Timestamp  int64          `json:"timestamp"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// =============================================================================
// Node
// =============================================================================

// Node is one document in the investigation graph.
type Node struct {
	ID      string `json:"id"`
	Project string `json:"project"`
	Label   string `json:"label"`
	Class   Class  `json:"class"`
	Type    string `json:"type"`

	// Metadata is the free-form property map. Well-known keys: "category",
	// "attributes" (map of string to string), "first_seen" and
	// "last_archived" (ISO dates or bare years), "color", "monitored_types",
	// "status", "findings".
	Metadata map[string]any `json:"metadata,omitempty"`

	Edges []EmbeddedEdge `json:"edges,omitempty"`

	CreatedAt int64 `json:"created_at"`
	UpdatedAt int64 `json:"updated_at"`
}

// HasEdge reports whether the node already carries an entry for the given
// (edge id, direction) pair.
func (n *Node) HasEdge(edgeID string, dir Direction) bool {
	for _, e := range n.Edges {
		if e.EdgeID == edgeID && e.Direction == dir {
			return true
		}
	}
	return false
}

// AppendEdge adds the edge unless an entry with the same (edge id,
// direction) pair exists. Reports whether the list changed.
func (n *Node) AppendEdge(e EmbeddedEdge) bool {
	if n.HasEdge(e.EdgeID, e.Direction) {
		return false
	}
	n.Edges = append(n.Edges, e)
	return true
}

// RemoveEdge deletes every entry carrying the given edge id, regardless of
// direction, and reports whether anything was removed.
func (n *Node) RemoveEdge(edgeID string) bool {
	kept := n.Edges[:0]
	removed := false
	for _, e := range n.Edges {
		if e.EdgeID == edgeID {
			removed = true
			continue
		}
		kept = append(kept, e)
	}
	n.Edges = kept
	return removed
}

// EdgeTargets returns the distinct target ids of all embedded edges, in
// first-seen order. Used by the stores to denormalize pin filtering.
func (n *Node) EdgeTargets() []string {
	seen := make(map[string]bool, len(n.Edges))
	out := make([]string, 0, len(n.Edges))
	for _, e := range n.Edges {
		if !seen[e.TargetID] {
			seen[e.TargetID] = true
			out = append(out, e.TargetID)
		}
	}
	return out
}

// =============================================================================
// Metadata accessors
// =============================================================================

// Category returns the node's category metadata, or "".
func (n *Node) Category() string {
	s, _ := n.Metadata["category"].(string)
	return s
}

// Attributes returns the free-form attribute map from metadata. Values that
// are not strings are stringified via Sprint-style formatting elsewhere; here
// non-string values are skipped.
func (n *Node) Attributes() map[string]string {
	raw, ok := n.Metadata["attributes"].(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}

// FirstSeenYear returns the year of the node's first_seen metadata, or 0.
func (n *Node) FirstSeenYear() int {
	return yearOf(n.Metadata["first_seen"])
}

// LastArchivedYear returns the year of the node's last_archived metadata, or 0.
func (n *Node) LastArchivedYear() int {
	return yearOf(n.Metadata["last_archived"])
}

// FirstSeenAt returns the first_seen date as Unix millis, falling back to
// CreatedAt when the metadata is absent or unparseable. This is the basis
// for minimum-age filtering.
func (n *Node) FirstSeenAt() int64 {
	if s, ok := n.Metadata["first_seen"].(string); ok {
		for _, layout := range []string{"2006-01-02", "2006-01", "2006"} {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UnixMilli()
			}
		}
	}
	return n.CreatedAt
}

// yearOf extracts a four-digit year from a metadata value that may be an ISO
// date string, a bare year string, or a number.
func yearOf(v any) int {
	switch val := v.(type) {
	case string:
		s := strings.TrimSpace(val)
		if len(s) >= 4 {
			if y, err := strconv.Atoi(s[:4]); err == nil {
				return y
			}
		}
	case int:
		return val
	case float64:
		return int(val)
	}
	return 0
}

// Copyright (C) 2026 Zadorian Intelligence (ops@zadorian.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package rows turns a page of nodes into the addressable grid: one row per
// node, related nodes bucketed by class, tags split out into their own band.
package rows

import (
	"github.com/zadorian/SEARCH-ENGINEER-sub008/services/grid/graph"
)

// TagRef is the compact tag rendering carried on each row.
type TagRef struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Color string `json:"color"`
}

// RelatedNode is the denormalized neighbour view built from an embedded edge.
type RelatedNode struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Class    string `json:"class"`
	Type     string `json:"type"`
	Relation string `json:"relation"`
}

// Row is one addressable grid row. Related buckets are keyed by canonical
// class name; the nexus and location buckets are mirrored under their
// deprecated spellings so legacy clients keep resolving.
type Row struct {
	Index   int                      `json:"index"`
	Node    graph.Node               `json:"node"`
	Related map[string][]RelatedNode `json:"related"`
	Tags    []TagRef                 `json:"tags"`
}

// legacyMirror maps the mirrored canonical bucket keys to their deprecated
// spellings. Subject and narrative buckets are not mirrored.
var legacyMirror = map[string]string{
	string(graph.ClassNexus):    "connection",
	string(graph.ClassLocation): "place",
}

// MapRows builds 1-based rows from a page of nodes. projectRoot is the id of
// the partition's root narrative node; nodes with no narrative neighbour get
// a synthesized placeholder pointing at it.
func MapRows(nodes []graph.Node, projectRoot string) []Row {
	out := make([]Row, 0, len(nodes))
	for i, n := range nodes {
		out = append(out, MapRow(n, i+1, projectRoot))
	}
	return out
}

// MapRow builds one row. Edge targets are deduplicated on first sight per
// target id, so a node related both outgoing and incoming shows up once.
func MapRow(n graph.Node, index int, projectRoot string) Row {
	row := Row{
		Index:   index,
		Node:    n,
		Related: make(map[string][]RelatedNode),
	}

	seen := make(map[string]bool, len(n.Edges))
	for _, e := range n.Edges {
		if seen[e.TargetID] {
			continue
		}
		seen[e.TargetID] = true

		if e.Relation == graph.RelationTaggedWith && e.Direction == graph.DirectionOutgoing {
			row.Tags = append(row.Tags, tagRef(e))
			continue
		}

		cls, ok := graph.CanonicalClass(string(e.TargetClass))
		if !ok {
			continue
		}
		row.Related[string(cls)] = append(row.Related[string(cls)], RelatedNode{
			ID:       e.TargetID,
			Label:    e.TargetLabel,
			Class:    string(cls),
			Type:     e.TargetType,
			Relation: e.Relation,
		})
	}

	// Every row shows case context: fall back to the project root when the
	// node has no narrative neighbour of its own.
	if len(row.Related[string(graph.ClassNarrative)]) == 0 && n.ID != projectRoot && projectRoot != "" {
		row.Related[string(graph.ClassNarrative)] = []RelatedNode{{
			ID:       projectRoot,
			Label:    "Project",
			Class:    string(graph.ClassNarrative),
			Type:     graph.TypeProject,
			Relation: "belongs_to",
		}}
	}

	for canonical, legacy := range legacyMirror {
		if bucket := row.Related[canonical]; len(bucket) > 0 {
			row.Related[legacy] = bucket
		}
	}
	return row
}

func tagRef(e graph.EmbeddedEdge) TagRef {
	ref := TagRef{ID: e.TargetID, Label: e.TargetLabel}
	if c, ok := e.Metadata["color"].(string); ok {
		ref.Color = c
	} else {
		ref.Color = graph.TagColor(e.TargetLabel)
	}
	return ref
}

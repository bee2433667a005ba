// Copyright (C) 2026 Zadorian Intelligence (ops@zadorian.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package store defines the node-store contract the grid core runs against,
// plus the two implementations: Weaviate (production) and Badger (local).
//
// One document index per project partition. Queries are structured boolean
// filters; mutations are single-document read-modify-write operations on the
// embedded-edge list. There are no multi-document transactions: consistency
// between the two sides of an edge is only eventual, and safety under
// concurrent identical mutations comes from idempotency (dedup-on-append,
// delete-by-id), not locking.
package store

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"

	"github.com/zadorian/SEARCH-ENGINEER-sub008/services/grid/graph"
	"github.com/zadorian/SEARCH-ENGINEER-sub008/services/grid/syntax"
)

// ErrNotFound is returned when a node id does not resolve in the partition.
var ErrNotFound = errors.New("node not found")

// =============================================================================
// Query types
// =============================================================================

// ViewQuery is one structured query against a project partition.
//
// Distinct filter groups combine with Operator (AND unless the command said
// OR); values inside one group combine with OR. Zero-valued groups are
// absent and impose no constraint.
type ViewQuery struct {
	// Project selects the partition. Required.
	Project string

	// Classes are the acceptable class spellings (canonical plus deprecated
	// aliases, pre-expanded by the composer).
	Classes []string

	// Types restricts the node type.
	Types []string

	// PinIDs match a node when its own id is pinned OR one of its embedded
	// edges targets a pinned id. PinTypes match the node's own type.
	// PinIDs and PinTypes form a single filter group.
	PinIDs   []string
	PinTypes []string

	// Categories restricts the category metadata.
	Categories []string

	// Attributes restricts the free-form attribute map; each dimension is
	// its own group, values within a dimension OR together.
	Attributes map[string][]string

	// FirstSeenYears and LastArchivedYears restrict the temporal metadata.
	FirstSeenYears    []int
	LastArchivedYears []int

	// MinAgeDays requires the node's first-seen instant to be at least this
	// many days in the past. Zero means no constraint.
	MinAgeDays int

	// Text matches the label by substring or prefix.
	Text string

	// Operator combines the groups above. Defaults to AND.
	Operator syntax.Operator

	// Limit caps the page size. Cursor resumes a previous page; nil starts
	// from the top.
	Limit  int
	Cursor *Cursor
}

// Page is one page of query results.
type Page struct {
	// Nodes are ordered most-recently-updated first, id ascending tie-break.
	Nodes []graph.Node

	// Total is the number of matches across all pages.
	Total int

	// NextCursor is the opaque continuation token, "" on the last page.
	NextCursor string
}

// =============================================================================
// Cursor
// =============================================================================

// Cursor carries the tie-break fields of the last row of a page. Continuation
// resumes strictly after that row.
type Cursor struct {
	UpdatedAt int64  `json:"updated_at"`
	ID        string `json:"node_id"`
}

// Encode serializes the cursor to its opaque wire form.
func (c Cursor) Encode() string {
	raw, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(raw)
}

// DecodeCursor parses an opaque cursor. A missing or malformed cursor yields
// nil: paging silently restarts from the top rather than failing.
func DecodeCursor(s string) *Cursor {
	if s == "" {
		return nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil
	}
	var c Cursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil
	}
	if c.UpdatedAt == 0 && c.ID == "" {
		return nil
	}
	return &c
}

// After reports whether the node sorts strictly after the cursor position in
// (updated_at desc, id asc) order.
func (c *Cursor) After(n *graph.Node) bool {
	if n.UpdatedAt != c.UpdatedAt {
		return n.UpdatedAt < c.UpdatedAt
	}
	return n.ID > c.ID
}

// =============================================================================
// NodeStore
// =============================================================================

// NodeStore is the document-index contract the composer and mutator consume.
//
// Implementations must make AppendEdge and RemoveEdge idempotent per the
// (edge_id, direction) invariant, and must give mutations read-your-own-write
// visibility within a call.
type NodeStore interface {
	// Query runs one structured query and returns a page plus total count.
	Query(ctx context.Context, q ViewQuery) (*Page, error)

	// GetNode fetches one node by id. Returns ErrNotFound when absent.
	GetNode(ctx context.Context, project, id string) (*graph.Node, error)

	// PutNode creates or replaces a node document.
	PutNode(ctx context.Context, n *graph.Node) error

	// AppendEdge appends the edge to the node's embedded list unless an
	// entry with the same (edge_id, direction) exists. Reports whether the
	// document changed. Returns ErrNotFound when the node is absent.
	AppendEdge(ctx context.Context, project, nodeID string, e graph.EmbeddedEdge) (bool, error)

	// RemoveEdge deletes every entry with the edge id from the node's list.
	// Reports whether the document changed; absent edges are a no-op.
	// Returns ErrNotFound when the node is absent.
	RemoveEdge(ctx context.Context, project, nodeID, edgeID string) (bool, error)

	// Close releases the store's resources.
	Close() error
}

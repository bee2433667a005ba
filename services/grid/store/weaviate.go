// Copyright (C) 2026 Zadorian Intelligence (ops@zadorian.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/data/replication"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"
	"go.opentelemetry.io/otel"

	"github.com/zadorian/SEARCH-ENGINEER-sub008/services/grid/graph"
	"github.com/zadorian/SEARCH-ENGINEER-sub008/services/grid/syntax"
)

var tracer = otel.Tracer("grid.store")

// WeaviateStore is the production NodeStore: one Weaviate class per project
// partition, nodes as objects with the embedded-edge list serialized into an
// edges_json property and the filterable dimensions denormalized into flat
// properties (edge_targets, attr_pairs, first_seen_year, ...).
//
// Weaviate has no server-side atomic update scripting, so edge mutations are
// read-merge-verify: fetch the document, recompute the edge list in memory,
// merge the changed properties back, then re-read to confirm the merge was
// not lost to a concurrent writer, retrying from a fresh read when it was.
// Writes go out at consistency level ALL so a read within the same Execute
// call observes the mutation.
//
// Thread Safety: safe for concurrent use; the client pools connections.
type WeaviateStore struct {
	client *weaviate.Client
	logger *slog.Logger
}

// NewWeaviateStore wraps an already-connected client.
func NewWeaviateStore(client *weaviate.Client, logger *slog.Logger) *WeaviateStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &WeaviateStore{
		client: client,
		logger: logger.With(slog.String("component", "weaviate_store")),
	}
}

// Close is a no-op; the client owns no resources that need releasing here.
func (s *WeaviateStore) Close() error { return nil }

// =============================================================================
// Partition schema
// =============================================================================

// uuidNamespace scopes deterministic object UUIDs to this system.
var uuidNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("zadorian.grid.node"))

// ClassNameFor derives the Weaviate class backing a project partition.
func ClassNameFor(project string) string {
	var b strings.Builder
	for _, r := range project {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return "GridNode_" + b.String()
}

// objectUUID derives the deterministic Weaviate object id for a node, so
// that re-creating a node upserts instead of duplicating.
func objectUUID(project, nodeID string) string {
	return uuid.NewSHA1(uuidNamespace, []byte(project+"/"+nodeID)).String()
}

// EnsureSchema creates the partition's class if it does not exist yet.
func (s *WeaviateStore) EnsureSchema(ctx context.Context, project string) error {
	cls := ClassNameFor(project)
	exists, err := s.client.Schema().ClassExistenceChecker().WithClassName(cls).Do(ctx)
	if err != nil {
		return fmt.Errorf("check class %s: %w", cls, err)
	}
	if exists {
		return nil
	}

	text := func(name string) *models.Property {
		return &models.Property{Name: name, DataType: []string{"text"}}
	}
	integer := func(name string) *models.Property {
		return &models.Property{Name: name, DataType: []string{"int"}}
	}

	class := &models.Class{
		Class:       cls,
		Description: "Investigation grid node partition " + project,
		Vectorizer:  "none",
		Properties: []*models.Property{
			text("node_id"),
			text("label"),
			text("node_class"),
			text("node_type"),
			text("category"),
			{Name: "attr_pairs", DataType: []string{"text[]"}},
			{Name: "edge_targets", DataType: []string{"text[]"}},
			text("metadata_json"),
			text("edges_json"),
			integer("first_seen_year"),
			integer("last_archived_year"),
			integer("first_seen_at"),
			integer("created_at"),
			integer("updated_at"),
		},
	}
	if err := s.client.Schema().ClassCreator().WithClass(class).Do(ctx); err != nil {
		return fmt.Errorf("create class %s: %w", cls, err)
	}
	s.logger.Info("created partition class", slog.String("class", cls))
	return nil
}

// =============================================================================
// Object <-> node conversion
// =============================================================================

// gridNodeObject mirrors the stored property shape for typed GraphQL parsing.
type gridNodeObject struct {
	NodeID       string `json:"node_id"`
	Label        string `json:"label"`
	NodeClass    string `json:"node_class"`
	NodeType     string `json:"node_type"`
	MetadataJSON string `json:"metadata_json"`
	EdgesJSON    string `json:"edges_json"`
	CreatedAt    int64  `json:"created_at"`
	UpdatedAt    int64  `json:"updated_at"`
}

// nodeFields is the field set every Get query retrieves.
var nodeFields = []graphql.Field{
	{Name: "node_id"},
	{Name: "label"},
	{Name: "node_class"},
	{Name: "node_type"},
	{Name: "metadata_json"},
	{Name: "edges_json"},
	{Name: "created_at"},
	{Name: "updated_at"},
}

// toProperties flattens a node into the stored property map, denormalizing
// the dimensions the filter tree needs.
func toProperties(n *graph.Node) (map[string]any, error) {
	metaRaw, err := json.Marshal(n.Metadata)
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}
	edgesRaw, err := json.Marshal(n.Edges)
	if err != nil {
		return nil, fmt.Errorf("marshal edges: %w", err)
	}

	attrs := n.Attributes()
	attrPairs := make([]string, 0, len(attrs))
	for k, v := range attrs {
		attrPairs = append(attrPairs, k+"="+strings.ToLower(v))
	}

	return map[string]any{
		"node_id":            n.ID,
		"label":              n.Label,
		"node_class":         string(n.Class),
		"node_type":          n.Type,
		"category":           strings.ToLower(n.Category()),
		"attr_pairs":         attrPairs,
		"edge_targets":       n.EdgeTargets(),
		"metadata_json":      string(metaRaw),
		"edges_json":         string(edgesRaw),
		"first_seen_year":    n.FirstSeenYear(),
		"last_archived_year": n.LastArchivedYear(),
		"first_seen_at":      n.FirstSeenAt(),
		"created_at":         n.CreatedAt,
		"updated_at":         n.UpdatedAt,
	}, nil
}

// fromObject rebuilds a node from its stored properties.
func fromObject(project string, o gridNodeObject) (graph.Node, error) {
	n := graph.Node{
		ID:        o.NodeID,
		Project:   project,
		Label:     o.Label,
		Class:     graph.Class(o.NodeClass),
		Type:      o.NodeType,
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
	}
	if o.MetadataJSON != "" {
		if err := json.Unmarshal([]byte(o.MetadataJSON), &n.Metadata); err != nil {
			return n, fmt.Errorf("unmarshal metadata of %s: %w", o.NodeID, err)
		}
	}
	if o.EdgesJSON != "" {
		if err := json.Unmarshal([]byte(o.EdgesJSON), &n.Edges); err != nil {
			return n, fmt.Errorf("unmarshal edges of %s: %w", o.NodeID, err)
		}
	}
	return n, nil
}

// parseGraphQL converts Weaviate's dynamic response payload into a typed
// struct via the marshal/unmarshal round trip.
func parseGraphQL[T any](resp *models.GraphQLResponse) (*T, error) {
	if resp == nil {
		return nil, fmt.Errorf("nil GraphQL response")
	}
	if len(resp.Errors) > 0 {
		return nil, fmt.Errorf("graphql error: %s", resp.Errors[0].Message)
	}
	raw, err := json.Marshal(resp.Data)
	if err != nil {
		return nil, fmt.Errorf("marshal response data: %w", err)
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("unmarshal response data: %w", err)
	}
	return &out, nil
}

// =============================================================================
// Filter compilation
// =============================================================================

// compileFilter turns the query's filter groups into one Weaviate where
// tree: groups combine with the query operator, values inside a group with
// OR. Returns nil when no group is present.
func compileFilter(q ViewQuery) *filters.WhereBuilder {
	var groups []*filters.WhereBuilder

	equal := func(path, value string) *filters.WhereBuilder {
		return filters.Where().WithPath([]string{path}).
			WithOperator(filters.Equal).WithValueText(value)
	}

	if len(q.Classes) > 0 {
		ops := make([]*filters.WhereBuilder, 0, len(q.Classes))
		for _, c := range q.Classes {
			ops = append(ops, equal("node_class", strings.ToLower(c)))
		}
		groups = append(groups, orGroup(ops))
	}

	if len(q.Types) > 0 {
		ops := make([]*filters.WhereBuilder, 0, len(q.Types))
		for _, t := range q.Types {
			ops = append(ops, equal("node_type", strings.ToLower(t)))
		}
		groups = append(groups, orGroup(ops))
	}

	if len(q.PinIDs) > 0 || len(q.PinTypes) > 0 {
		var ops []*filters.WhereBuilder
		for _, t := range q.PinTypes {
			ops = append(ops, equal("node_type", strings.ToLower(t)))
		}
		for _, id := range q.PinIDs {
			ops = append(ops, equal("node_id", id))
		}
		if len(q.PinIDs) > 0 {
			ops = append(ops, filters.Where().WithPath([]string{"edge_targets"}).
				WithOperator(filters.ContainsAny).WithValueText(q.PinIDs...))
		}
		groups = append(groups, orGroup(ops))
	}

	if len(q.Categories) > 0 {
		ops := make([]*filters.WhereBuilder, 0, len(q.Categories))
		for _, c := range q.Categories {
			ops = append(ops, equal("category", strings.ToLower(c)))
		}
		groups = append(groups, orGroup(ops))
	}

	for dim, values := range q.Attributes {
		pairs := make([]string, 0, len(values))
		for _, v := range values {
			pairs = append(pairs, dim+"="+strings.ToLower(v))
		}
		groups = append(groups, filters.Where().WithPath([]string{"attr_pairs"}).
			WithOperator(filters.ContainsAny).WithValueText(pairs...))
	}

	if len(q.FirstSeenYears) > 0 {
		groups = append(groups, yearGroup("first_seen_year", q.FirstSeenYears))
	}
	if len(q.LastArchivedYears) > 0 {
		groups = append(groups, yearGroup("last_archived_year", q.LastArchivedYears))
	}

	if q.MinAgeDays > 0 {
		cutoff := time.Now().AddDate(0, 0, -q.MinAgeDays).UnixMilli()
		groups = append(groups, filters.Where().WithPath([]string{"first_seen_at"}).
			WithOperator(filters.LessThanEqual).WithValueInt(cutoff))
	}

	if q.Text != "" {
		// Substring OR prefix match on the label.
		sub := filters.Where().WithPath([]string{"label"}).
			WithOperator(filters.Like).WithValueText("*" + q.Text + "*")
		prefix := filters.Where().WithPath([]string{"label"}).
			WithOperator(filters.Like).WithValueText(q.Text + "*")
		groups = append(groups, orGroup([]*filters.WhereBuilder{sub, prefix}))
	}

	if len(groups) == 0 {
		return nil
	}
	if len(groups) == 1 {
		return groups[0]
	}
	op := filters.And
	if q.Operator == syntax.OpOr {
		op = filters.Or
	}
	return filters.Where().WithOperator(op).WithOperands(groups)
}

func orGroup(ops []*filters.WhereBuilder) *filters.WhereBuilder {
	if len(ops) == 1 {
		return ops[0]
	}
	return filters.Where().WithOperator(filters.Or).WithOperands(ops)
}

func yearGroup(path string, years []int) *filters.WhereBuilder {
	ops := make([]*filters.WhereBuilder, 0, len(years))
	for _, y := range years {
		ops = append(ops, filters.Where().WithPath([]string{path}).
			WithOperator(filters.Equal).WithValueInt(int64(y)))
	}
	return orGroup(ops)
}

// cursorFilter compiles the continuation position into a strict-after
// constraint on the (updated_at desc, node_id asc) order.
func cursorFilter(c *Cursor) *filters.WhereBuilder {
	older := filters.Where().WithPath([]string{"updated_at"}).
		WithOperator(filters.LessThan).WithValueInt(c.UpdatedAt)
	sameStamp := filters.Where().WithOperator(filters.And).WithOperands([]*filters.WhereBuilder{
		filters.Where().WithPath([]string{"updated_at"}).
			WithOperator(filters.Equal).WithValueInt(c.UpdatedAt),
		filters.Where().WithPath([]string{"node_id"}).
			WithOperator(filters.GreaterThan).WithValueText(c.ID),
	})
	return filters.Where().WithOperator(filters.Or).
		WithOperands([]*filters.WhereBuilder{older, sameStamp})
}

// =============================================================================
// NodeStore implementation
// =============================================================================

// Query compiles the filter tree, fetches one ordered page, and counts the
// total matches with an aggregate over the same (cursor-free) filter.
func (s *WeaviateStore) Query(ctx context.Context, q ViewQuery) (*Page, error) {
	ctx, span := tracer.Start(ctx, "WeaviateStore.Query")
	defer span.End()

	cls := ClassNameFor(q.Project)
	where := compileFilter(q)

	limit := q.Limit
	if limit <= 0 {
		limit = 25
	}

	get := s.client.GraphQL().Get().
		WithClassName(cls).
		WithFields(nodeFields...).
		WithSort(
			graphql.Sort{Path: []string{"updated_at"}, Order: graphql.Desc},
			graphql.Sort{Path: []string{"node_id"}, Order: graphql.Asc},
		).
		WithLimit(limit)

	pageWhere := where
	if q.Cursor != nil {
		cf := cursorFilter(q.Cursor)
		if pageWhere == nil {
			pageWhere = cf
		} else {
			pageWhere = filters.Where().WithOperator(filters.And).
				WithOperands([]*filters.WhereBuilder{pageWhere, cf})
		}
	}
	if pageWhere != nil {
		get = get.WithWhere(pageWhere)
	}

	resp, err := get.Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("weaviate query failed: %w", err)
	}
	parsed, err := parseGraphQL[struct {
		Get map[string][]gridNodeObject `json:"Get"`
	}](resp)
	if err != nil {
		return nil, err
	}

	objects := parsed.Get[cls]
	nodes := make([]graph.Node, 0, len(objects))
	for _, o := range objects {
		n, err := fromObject(q.Project, o)
		if err != nil {
			s.logger.Warn("skipping undecodable node", "node_id", o.NodeID, "error", err)
			continue
		}
		nodes = append(nodes, n)
	}

	total, err := s.count(ctx, cls, where)
	if err != nil {
		return nil, err
	}

	page := &Page{Nodes: nodes, Total: total}
	if len(nodes) == limit {
		last := nodes[len(nodes)-1]
		page.NextCursor = Cursor{UpdatedAt: last.UpdatedAt, ID: last.ID}.Encode()
	}
	return page, nil
}

// count runs the aggregate meta count for the cursor-free filter.
func (s *WeaviateStore) count(ctx context.Context, cls string, where *filters.WhereBuilder) (int, error) {
	agg := s.client.GraphQL().Aggregate().
		WithClassName(cls).
		WithFields(graphql.Field{Name: "meta", Fields: []graphql.Field{{Name: "count"}}})
	if where != nil {
		agg = agg.WithWhere(where)
	}
	resp, err := agg.Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("weaviate count failed: %w", err)
	}
	parsed, err := parseGraphQL[struct {
		Aggregate map[string][]struct {
			Meta struct {
				Count int `json:"count"`
			} `json:"meta"`
		} `json:"Aggregate"`
	}](resp)
	if err != nil {
		return 0, err
	}
	rows := parsed.Aggregate[cls]
	if len(rows) == 0 {
		return 0, nil
	}
	return rows[0].Meta.Count, nil
}

// GetNode fetches one node by its node_id property.
func (s *WeaviateStore) GetNode(ctx context.Context, project, id string) (*graph.Node, error) {
	cls := ClassNameFor(project)

	where := filters.Where().WithPath([]string{"node_id"}).
		WithOperator(filters.Equal).WithValueText(id)

	resp, err := s.client.GraphQL().Get().
		WithClassName(cls).
		WithFields(nodeFields...).
		WithWhere(where).
		WithLimit(1).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("weaviate get %s: %w", id, err)
	}
	parsed, err := parseGraphQL[struct {
		Get map[string][]gridNodeObject `json:"Get"`
	}](resp)
	if err != nil {
		return nil, err
	}
	objects := parsed.Get[cls]
	if len(objects) == 0 {
		return nil, ErrNotFound
	}
	n, err := fromObject(project, objects[0])
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// PutNode upserts a node document at its deterministic object UUID.
func (s *WeaviateStore) PutNode(ctx context.Context, n *graph.Node) error {
	now := time.Now().UnixMilli()
	if n.CreatedAt == 0 {
		n.CreatedAt = now
	}
	if n.UpdatedAt == 0 {
		n.UpdatedAt = now
	}

	props, err := toProperties(n)
	if err != nil {
		return err
	}

	id := objectUUID(n.Project, n.ID)
	cls := ClassNameFor(n.Project)

	_, err = s.client.Data().Creator().
		WithClassName(cls).
		WithID(id).
		WithProperties(props).
		WithConsistencyLevel(replication.ConsistencyLevel.ALL).
		Do(ctx)
	if err == nil {
		return nil
	}

	// Object already exists at this UUID: replace it.
	if uerr := s.client.Data().Updater().
		WithClassName(cls).
		WithID(id).
		WithProperties(props).
		WithConsistencyLevel(replication.ConsistencyLevel.ALL).
		Do(ctx); uerr != nil {
		return fmt.Errorf("put node %s: %w", n.ID, uerr)
	}
	return nil
}

// AppendEdge reads the document, appends unless the (edge_id, direction)
// pair exists, and merges the recomputed properties back.
func (s *WeaviateStore) AppendEdge(ctx context.Context, project, nodeID string, e graph.EmbeddedEdge) (bool, error) {
	return s.mutateEdges(ctx, project, nodeID, func(n *graph.Node) bool {
		return n.AppendEdge(e)
	})
}

// RemoveEdge reads the document, deletes by edge id, and merges back.
func (s *WeaviateStore) RemoveEdge(ctx context.Context, project, nodeID, edgeID string) (bool, error) {
	return s.mutateEdges(ctx, project, nodeID, func(n *graph.Node) bool {
		return n.RemoveEdge(edgeID)
	})
}

func (s *WeaviateStore) mutateEdges(ctx context.Context, project, nodeID string, mutate func(*graph.Node) bool) (bool, error) {
	ctx, span := tracer.Start(ctx, "WeaviateStore.mutateEdges")
	defer span.End()

	read := func(ctx context.Context) (*graph.Node, error) {
		return s.GetNode(ctx, project, nodeID)
	}
	return runEdgeMutation(ctx, nodeID, read, func(ctx context.Context, n *graph.Node) error {
		return s.mergeEdges(ctx, project, nodeID, n)
	}, mutate, s.logger)
}

// mergeEdges writes the recomputed edge properties back to the object.
func (s *WeaviateStore) mergeEdges(ctx context.Context, project, nodeID string, n *graph.Node) error {
	edgesRaw, err := json.Marshal(n.Edges)
	if err != nil {
		return fmt.Errorf("marshal edges of %s: %w", nodeID, err)
	}

	err = s.client.Data().Updater().
		WithClassName(ClassNameFor(project)).
		WithID(objectUUID(project, nodeID)).
		WithMerge().
		WithProperties(map[string]any{
			"edges_json":   string(edgesRaw),
			"edge_targets": n.EdgeTargets(),
			"updated_at":   n.UpdatedAt,
		}).
		WithConsistencyLevel(replication.ConsistencyLevel.ALL).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("merge edges of %s: %w", nodeID, err)
	}
	return nil
}

// runEdgeMutation drives the optimistic read-merge-verify loop. Each pass
// reads a fresh document and applies the mutation; a pass that finds nothing
// left to change ends the loop, reporting whether an earlier pass wrote. A
// merge lost to a concurrent writer shows up as the next pass still needing
// the change, which retries from the fresh read.
func runEdgeMutation(
	ctx context.Context,
	nodeID string,
	read func(context.Context) (*graph.Node, error),
	merge func(context.Context, *graph.Node) error,
	mutate func(*graph.Node) bool,
	logger *slog.Logger,
) (bool, error) {
	merged := false
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return false, err
		}

		n, err := read(ctx)
		if err != nil {
			return false, err
		}
		if !mutate(n) {
			return merged, nil
		}
		if attempt >= mutationRetries {
			return false, fmt.Errorf("mutate node %s: gave up after %d lost merges", nodeID, mutationRetries)
		}
		if merged {
			logger.Debug("edge merge lost to concurrent writer, retrying",
				slog.String("node_id", nodeID),
				slog.Int("attempt", attempt))
		}

		n.UpdatedAt = time.Now().UnixMilli()
		if err := merge(ctx, n); err != nil {
			return false, err
		}
		merged = true
	}
}

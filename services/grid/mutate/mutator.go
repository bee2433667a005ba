// Copyright (C) 2026 Zadorian Intelligence (ops@zadorian.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package mutate applies grid actions to the graph: tagging, untagging, and
// watcher creation. Every relationship is written as a bidirectional pair of
// embedded edges sharing one deterministic edge id.
package mutate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/zadorian/SEARCH-ENGINEER-sub008/services/grid/graph"
	"github.com/zadorian/SEARCH-ENGINEER-sub008/services/grid/store"
)

var tracer = otel.Tracer("grid.mutate")

// TagResult reports one tag application or removal.
type TagResult struct {
	TagID string `json:"tag_id"`
	Label string `json:"label"`

	// Count is the number of nodes whose edge set actually changed.
	// Idempotent re-applications do not count.
	Count int `json:"count"`
}

// WatcherResult reports one watcher creation.
type WatcherResult struct {
	WatcherID string   `json:"watcher_id"`
	Label     string   `json:"label"`
	Count     int      `json:"count"`
	NodeIDs   []string `json:"node_ids"`
}

// Mutator executes actions against a node store.
type Mutator struct {
	store  store.NodeStore
	logger *slog.Logger
	now    func() time.Time
}

func NewMutator(s store.NodeStore, logger *slog.Logger) *Mutator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mutator{
		store:  s,
		logger: logger.With(slog.String("component", "mutator")),
		now:    time.Now,
	}
}

// =============================================================================
// Tags
// =============================================================================

// ApplyTag tags every target node with the labelled tag, creating the tag
// node on first use. Targets that no longer exist are skipped. When the
// second half of an edge pair cannot be written the first half is rolled
// back and the partial result is returned alongside the error.
func (m *Mutator) ApplyTag(ctx context.Context, project, label string, targetIDs []string) (*TagResult, error) {
	ctx, span := tracer.Start(ctx, "Mutator.ApplyTag")
	defer span.End()

	tagNode, err := m.ensureTag(ctx, project, label)
	if err != nil {
		return nil, err
	}
	res := &TagResult{TagID: tagNode.ID, Label: tagNode.Label}

	for _, id := range targetIDs {
		target, err := m.store.GetNode(ctx, project, id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				m.logger.Warn("skipping vanished tag target", "node_id", id)
				continue
			}
			return res, fmt.Errorf("load tag target %s: %w", id, err)
		}

		edgeID := graph.EdgeID(target.ID, tagNode.ID, graph.RelationTaggedWith)
		ts := m.now().UnixMilli()

		added, err := m.store.AppendEdge(ctx, project, target.ID, graph.EmbeddedEdge{
			EdgeID:      edgeID,
			TargetID:    tagNode.ID,
			TargetLabel: tagNode.Label,
			TargetClass: graph.ClassNarrative,
			TargetType:  graph.TypeTag,
			Relation:    graph.RelationTaggedWith,
			Direction:   graph.DirectionOutgoing,
			Timestamp:   ts,
			Metadata:    map[string]any{"color": graph.TagColor(label)},
		})
		if err != nil {
			return res, fmt.Errorf("tag %s: %w", target.ID, err)
		}
		if !added {
			continue
		}

		_, err = m.store.AppendEdge(ctx, project, tagNode.ID, graph.EmbeddedEdge{
			EdgeID:      edgeID,
			TargetID:    target.ID,
			TargetLabel: target.Label,
			TargetClass: target.Class,
			TargetType:  target.Type,
			Relation:    graph.RelationTaggedWith,
			Direction:   graph.DirectionIncoming,
			Timestamp:   ts,
		})
		if err != nil {
			// Roll back the outgoing half so the pair invariant holds.
			if _, rbErr := m.store.RemoveEdge(ctx, project, target.ID, edgeID); rbErr != nil {
				m.logger.Error("rollback of half-written edge failed",
					"node_id", target.ID, "edge_id", edgeID, "error", rbErr)
			}
			return res, fmt.Errorf("tag back-edge for %s: %w", target.ID, err)
		}
		res.Count++
	}

	m.logger.Info("applied tag", "tag_id", res.TagID, "tagged", res.Count)
	return res, nil
}

// RemoveTag removes the labelled tag from every target node. The tag node
// itself is kept even when its last edge disappears.
func (m *Mutator) RemoveTag(ctx context.Context, project, label string, targetIDs []string) (*TagResult, error) {
	ctx, span := tracer.Start(ctx, "Mutator.RemoveTag")
	defer span.End()

	tagID := graph.TagID(label)
	res := &TagResult{TagID: tagID, Label: label}

	for _, id := range targetIDs {
		edgeID := graph.EdgeID(id, tagID, graph.RelationTaggedWith)

		removed, err := m.store.RemoveEdge(ctx, project, id, edgeID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return res, fmt.Errorf("untag %s: %w", id, err)
		}
		if _, err := m.store.RemoveEdge(ctx, project, tagID, edgeID); err != nil && !errors.Is(err, store.ErrNotFound) {
			return res, fmt.Errorf("untag back-edge for %s: %w", id, err)
		}
		if removed {
			res.Count++
		}
	}

	m.logger.Info("removed tag", "tag_id", res.TagID, "untagged", res.Count)
	return res, nil
}

// ensureTag loads the deterministic tag node, creating it on first use. The
// id is derived from the slug so the same label, in any letter case, always
// resolves to the same node.
func (m *Mutator) ensureTag(ctx context.Context, project, label string) (*graph.Node, error) {
	tagID := graph.TagID(label)

	n, err := m.store.GetNode(ctx, project, tagID)
	if err == nil {
		return n, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("load tag %s: %w", tagID, err)
	}

	now := m.now().UnixMilli()
	n = &graph.Node{
		ID:      tagID,
		Project: project,
		Label:   label,
		Class:   graph.ClassNarrative,
		Type:    graph.TypeTag,
		Metadata: map[string]any{
			"color": graph.TagColor(label),
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := m.store.PutNode(ctx, n); err != nil {
		return nil, fmt.Errorf("create tag %s: %w", tagID, err)
	}
	m.logger.Info("created tag node", "tag_id", tagID, "label", label)
	return n, nil
}

// =============================================================================
// Watchers
// =============================================================================

// CreateWatcher creates a watcher node monitoring every target. typeHint
// narrows what the watcher monitors; empty means everything. Vanished
// targets are skipped, matching ApplyTag.
func (m *Mutator) CreateWatcher(ctx context.Context, project, label, typeHint string, targetIDs []string) (*WatcherResult, error) {
	ctx, span := tracer.Start(ctx, "Mutator.CreateWatcher")
	defer span.End()

	now := m.now()
	watcherID := graph.WatcherID(label, now)

	meta := map[string]any{
		"status":   "active",
		"findings": []any{},
	}
	if typeHint != "" {
		meta["monitored_types"] = []any{typeHint}
	}

	watcher := &graph.Node{
		ID:        watcherID,
		Project:   project,
		Label:     label,
		Class:     graph.ClassNarrative,
		Type:      graph.TypeWatcher,
		Metadata:  meta,
		CreatedAt: now.UnixMilli(),
		UpdatedAt: now.UnixMilli(),
	}
	if err := m.store.PutNode(ctx, watcher); err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	res := &WatcherResult{WatcherID: watcherID, Label: label}

	for _, id := range targetIDs {
		target, err := m.store.GetNode(ctx, project, id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				m.logger.Warn("skipping vanished watch target", "node_id", id)
				continue
			}
			return res, fmt.Errorf("load watch target %s: %w", id, err)
		}

		edgeID := graph.EdgeID(watcherID, target.ID, graph.RelationMonitors)
		ts := m.now().UnixMilli()

		if _, err := m.store.AppendEdge(ctx, project, watcherID, graph.EmbeddedEdge{
			EdgeID:      edgeID,
			TargetID:    target.ID,
			TargetLabel: target.Label,
			TargetClass: target.Class,
			TargetType:  target.Type,
			Relation:    graph.RelationMonitors,
			Direction:   graph.DirectionOutgoing,
			Timestamp:   ts,
		}); err != nil {
			return res, fmt.Errorf("watch %s: %w", target.ID, err)
		}
		if _, err := m.store.AppendEdge(ctx, project, target.ID, graph.EmbeddedEdge{
			EdgeID:      edgeID,
			TargetID:    watcherID,
			TargetLabel: label,
			TargetClass: graph.ClassNarrative,
			TargetType:  graph.TypeWatcher,
			Relation:    graph.RelationMonitors,
			Direction:   graph.DirectionIncoming,
			Timestamp:   ts,
		}); err != nil {
			if _, rbErr := m.store.RemoveEdge(ctx, project, watcherID, edgeID); rbErr != nil {
				m.logger.Error("rollback of half-written edge failed",
					"node_id", watcherID, "edge_id", edgeID, "error", rbErr)
			}
			return res, fmt.Errorf("watch back-edge for %s: %w", target.ID, err)
		}
		res.Count++
		res.NodeIDs = append(res.NodeIDs, target.ID)
	}

	m.logger.Info("created watcher", "watcher_id", watcherID, "monitoring", res.Count)
	return res, nil
}

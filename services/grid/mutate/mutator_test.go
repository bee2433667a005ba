// Copyright (C) 2026 Zadorian Intelligence (ops@zadorian.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package mutate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zadorian/SEARCH-ENGINEER-sub008/services/grid/graph"
	"github.com/zadorian/SEARCH-ENGINEER-sub008/services/grid/store"
)

const testProject = "proj-test"

func newFixture(t *testing.T) (*Mutator, *store.LocalStore) {
	t.Helper()
	s, err := store.NewLocalStore(store.InMemoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	m := NewMutator(s, nil)
	m.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return m, s
}

func seedSubjects(t *testing.T, s *store.LocalStore, ids ...string) {
	t.Helper()
	for _, id := range ids {
		require.NoError(t, s.PutNode(context.Background(), &graph.Node{
			ID:      id,
			Project: testProject,
			Label:   id,
			Class:   graph.ClassSubject,
			Type:    "company",
		}))
	}
}

// =============================================================================
// ApplyTag
// =============================================================================

func TestApplyTag_CreatesTagAndEdgePairs(t *testing.T) {
	m, s := newFixture(t)
	ctx := context.Background()
	seedSubjects(t, s, "acme-ltd", "globex-inc")

	res, err := m.ApplyTag(ctx, testProject, "Priority", []string{"acme-ltd", "globex-inc"})
	require.NoError(t, err)
	assert.Equal(t, "tag_priority", res.TagID)
	assert.Equal(t, 2, res.Count)

	tag, err := s.GetNode(ctx, testProject, "tag_priority")
	require.NoError(t, err)
	assert.Equal(t, graph.ClassNarrative, tag.Class)
	assert.Equal(t, graph.TypeTag, tag.Type)
	assert.Len(t, tag.Edges, 2, "tag carries one incoming edge per target")

	target, err := s.GetNode(ctx, testProject, "acme-ltd")
	require.NoError(t, err)
	require.Len(t, target.Edges, 1)
	out := target.Edges[0]
	assert.Equal(t, graph.DirectionOutgoing, out.Direction)
	assert.Equal(t, graph.RelationTaggedWith, out.Relation)
	assert.Equal(t, "tag_priority", out.TargetID)

	// Both sides share the deterministic edge id.
	assert.True(t, tag.HasEdge(out.EdgeID, graph.DirectionIncoming))
}

func TestApplyTag_Idempotent(t *testing.T) {
	m, s := newFixture(t)
	ctx := context.Background()
	seedSubjects(t, s, "acme-ltd")

	first, err := m.ApplyTag(ctx, testProject, "priority", []string{"acme-ltd"})
	require.NoError(t, err)
	assert.Equal(t, 1, first.Count)

	second, err := m.ApplyTag(ctx, testProject, "priority", []string{"acme-ltd"})
	require.NoError(t, err)
	assert.Equal(t, 0, second.Count, "re-tagging must not count as a change")

	target, err := s.GetNode(ctx, testProject, "acme-ltd")
	require.NoError(t, err)
	assert.Len(t, target.Edges, 1)
}

func TestApplyTag_CaseInsensitiveLabel(t *testing.T) {
	m, s := newFixture(t)
	ctx := context.Background()
	seedSubjects(t, s, "acme-ltd", "globex-inc")

	_, err := m.ApplyTag(ctx, testProject, "Needs Review", []string{"acme-ltd"})
	require.NoError(t, err)
	res, err := m.ApplyTag(ctx, testProject, "needs review", []string{"globex-inc"})
	require.NoError(t, err)

	// Both spellings resolve to the one tag node.
	tag, err := s.GetNode(ctx, testProject, res.TagID)
	require.NoError(t, err)
	assert.Len(t, tag.Edges, 2)
}

func TestApplyTag_SkipsVanishedTargets(t *testing.T) {
	m, s := newFixture(t)
	ctx := context.Background()
	seedSubjects(t, s, "acme-ltd")

	res, err := m.ApplyTag(ctx, testProject, "priority", []string{"ghost", "acme-ltd"})
	require.NoError(t, err, "a vanished target is skipped, not an error")
	assert.Equal(t, 1, res.Count)
}

// =============================================================================
// RemoveTag
// =============================================================================

func TestRemoveTag_RoundTrip(t *testing.T) {
	m, s := newFixture(t)
	ctx := context.Background()
	seedSubjects(t, s, "acme-ltd")

	_, err := m.ApplyTag(ctx, testProject, "priority", []string{"acme-ltd"})
	require.NoError(t, err)

	res, err := m.RemoveTag(ctx, testProject, "priority", []string{"acme-ltd"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Count)

	target, err := s.GetNode(ctx, testProject, "acme-ltd")
	require.NoError(t, err)
	assert.Empty(t, target.Edges)

	// The tag node survives with no edges.
	tag, err := s.GetNode(ctx, testProject, "tag_priority")
	require.NoError(t, err)
	assert.Empty(t, tag.Edges)
}

func TestRemoveTag_AbsentTagIsNoOp(t *testing.T) {
	m, s := newFixture(t)
	ctx := context.Background()
	seedSubjects(t, s, "acme-ltd")

	res, err := m.RemoveTag(ctx, testProject, "never-applied", []string{"acme-ltd"})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Count)
}

// =============================================================================
// CreateWatcher
// =============================================================================

func TestCreateWatcher_MonitorsTargets(t *testing.T) {
	m, s := newFixture(t)
	ctx := context.Background()
	seedSubjects(t, s, "acme-ltd", "globex-inc")

	res, err := m.CreateWatcher(ctx, testProject, "acme watch", "person", []string{"acme-ltd", "globex-inc"})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Count)
	assert.Equal(t, []string{"acme-ltd", "globex-inc"}, res.NodeIDs)
	assert.Equal(t, "watcher_acme-watch_1700000000000", res.WatcherID)

	watcher, err := s.GetNode(ctx, testProject, res.WatcherID)
	require.NoError(t, err)
	assert.Equal(t, graph.TypeWatcher, watcher.Type)
	assert.Equal(t, "active", watcher.Metadata["status"])
	assert.Equal(t, []any{"person"}, watcher.Metadata["monitored_types"])
	assert.Len(t, watcher.Edges, 2)

	target, err := s.GetNode(ctx, testProject, "acme-ltd")
	require.NoError(t, err)
	require.Len(t, target.Edges, 1)
	assert.Equal(t, graph.RelationMonitors, target.Edges[0].Relation)
	assert.Equal(t, graph.DirectionIncoming, target.Edges[0].Direction)
}

func TestCreateWatcher_NoHint(t *testing.T) {
	m, s := newFixture(t)
	ctx := context.Background()
	seedSubjects(t, s, "acme-ltd")

	res, err := m.CreateWatcher(ctx, testProject, "broad watch", "", []string{"acme-ltd"})
	require.NoError(t, err)

	watcher, err := s.GetNode(ctx, testProject, res.WatcherID)
	require.NoError(t, err)
	_, present := watcher.Metadata["monitored_types"]
	assert.False(t, present, "no hint means no monitored_types key")
}

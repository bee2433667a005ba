// Copyright (C) 2026 Zadorian Intelligence (ops@zadorian.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zadorian/SEARCH-ENGINEER-sub008/services/grid/graph"
	"github.com/zadorian/SEARCH-ENGINEER-sub008/services/grid/registry"
	"github.com/zadorian/SEARCH-ENGINEER-sub008/services/grid/store"
)

const testProject = "proj-test"

func newEngine(t *testing.T) (*Engine, *store.LocalStore) {
	t.Helper()
	s, err := store.NewLocalStore(store.InMemoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	reg, err := registry.Load()
	require.NoError(t, err)
	return New(s, reg, nil), s
}

func seed(t *testing.T, s *store.LocalStore) {
	t.Helper()
	base := int64(1700000000000)
	nodes := []graph.Node{
		{ID: "acme-ltd", Label: "Acme Ltd", Class: graph.ClassSubject, Type: "company",
			Metadata: map[string]any{"category": "media"}, UpdatedAt: base + 300},
		{ID: "jane-doe", Label: "Jane Doe", Class: graph.ClassSubject, Type: "person",
			UpdatedAt: base + 200},
		{ID: "acme-com", Label: "acme.com", Class: graph.ClassNexus, Type: "domain",
			UpdatedAt: base + 100},
	}
	for i := range nodes {
		nodes[i].Project = testProject
		require.NoError(t, s.PutNode(context.Background(), &nodes[i]))
	}
}

func TestExecute_NotGridSyntax(t *testing.T) {
	e, _ := newEngine(t)
	_, err := e.Execute(context.Background(), testProject, "plain text search", Options{})
	assert.ErrorIs(t, err, ErrNotGridSyntax)
}

func TestExecute_RotationView(t *testing.T) {
	e, s := newEngine(t)
	seed(t, s)

	res, err := e.Execute(context.Background(), testProject, "/gridS", Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Total)
	require.Len(t, res.Rows, 2)
	assert.Equal(t, "acme-ltd", res.Rows[0].Node.ID)
	assert.Equal(t, 1, res.Rows[0].Index)

	// With no cell refs the whole column A is the selection.
	assert.Equal(t, []string{"acme-ltd", "jane-doe"}, res.Selection.NodeIDs)
}

func TestExecute_LegacyRotationEquivalence(t *testing.T) {
	e, s := newEngine(t)
	seed(t, s)
	ctx := context.Background()

	canonical, err := e.Execute(ctx, testProject, "/gridS", Options{})
	require.NoError(t, err)
	legacy, err := e.Execute(ctx, testProject, "/gridE", Options{})
	require.NoError(t, err)
	assert.Equal(t, canonical.Selection, legacy.Selection)
	assert.Equal(t, canonical.Total, legacy.Total)
}

func TestExecute_MatchesHistoricalClassSpelling(t *testing.T) {
	e, s := newEngine(t)
	seed(t, s)
	ctx := context.Background()

	// Historical documents were written under the deprecated spelling.
	legacy := graph.Node{ID: "old-holdings", Label: "Old Holdings", Project: testProject,
		Class: "entity", Type: "company", UpdatedAt: 1700000000500}
	require.NoError(t, s.PutNode(ctx, &legacy))

	res, err := e.Execute(ctx, testProject, "/gridS", Options{})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Total)
	assert.Contains(t, res.Selection.NodeIDs, "old-holdings")
}

func TestExecute_TagActionOnSelection(t *testing.T) {
	e, s := newEngine(t)
	seed(t, s)
	ctx := context.Background()

	res, err := e.Execute(ctx, testProject, "/gridS{1A} => +#priority", Options{})
	require.NoError(t, err)
	require.NotNil(t, res.TagApplied)
	assert.Equal(t, 1, res.TagApplied.Count)

	tagged, err := s.GetNode(ctx, testProject, "acme-ltd")
	require.NoError(t, err)
	require.Len(t, tagged.Edges, 1)
	assert.Equal(t, "tag_priority", tagged.Edges[0].TargetID)

	// The untouched row gained nothing.
	other, err := s.GetNode(ctx, testProject, "jane-doe")
	require.NoError(t, err)
	assert.Empty(t, other.Edges)
}

func TestExecute_TagThenRemoveRoundTrip(t *testing.T) {
	e, s := newEngine(t)
	seed(t, s)
	ctx := context.Background()

	_, err := e.Execute(ctx, testProject, "/gridS => +#review", Options{})
	require.NoError(t, err)

	res, err := e.Execute(ctx, testProject, "/gridS => -#review", Options{})
	require.NoError(t, err)
	require.NotNil(t, res.TagRemoved)
	assert.Equal(t, 2, res.TagRemoved.Count)

	n, err := s.GetNode(ctx, testProject, "acme-ltd")
	require.NoError(t, err)
	assert.Empty(t, n.Edges)
}

func TestExecute_WatcherAction(t *testing.T) {
	e, s := newEngine(t)
	seed(t, s)
	ctx := context.Background()

	res, err := e.Execute(ctx, testProject, "#acme-ltd => watcher<p>{acme watch}", Options{})
	require.NoError(t, err)
	require.NotNil(t, res.WatcherCreated)
	assert.Equal(t, 1, res.WatcherCreated.Count)

	watcher, err := s.GetNode(ctx, testProject, res.WatcherCreated.WatcherID)
	require.NoError(t, err)
	assert.Equal(t, graph.TypeWatcher, watcher.Type)
	assert.Equal(t, []any{"person"}, watcher.Metadata["monitored_types"])
}

func TestExecute_CombinedActions(t *testing.T) {
	e, s := newEngine(t)
	seed(t, s)

	res, err := e.Execute(context.Background(), testProject,
		"#acme-ltd => +#priority => watcher{acme watch}", Options{})
	require.NoError(t, err)
	require.NotNil(t, res.TagApplied)
	require.NotNil(t, res.WatcherCreated)
	assert.Equal(t, 1, res.TagApplied.Count)
}

func TestExecute_ActionsRunInFixedOrder(t *testing.T) {
	e, s := newEngine(t)
	seed(t, s)
	ctx := context.Background()

	// The removal is written first but the add always runs before it, so
	// the tag ends up removed.
	res, err := e.Execute(ctx, testProject, "/gridS{1A} => -#flag => +#flag", Options{})
	require.NoError(t, err)
	require.NotNil(t, res.TagApplied)
	require.NotNil(t, res.TagRemoved)
	assert.Equal(t, 1, res.TagApplied.Count)
	assert.Equal(t, 1, res.TagRemoved.Count)

	n, err := s.GetNode(ctx, testProject, "acme-ltd")
	require.NoError(t, err)
	assert.Empty(t, n.Edges)
}

func TestExecute_RawActionPassthrough(t *testing.T) {
	e, s := newEngine(t)
	seed(t, s)

	res, err := e.Execute(context.Background(), testProject,
		"#acme-ltd => corporate_registry lookup", Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"corporate_registry lookup"}, res.RawActions)
	assert.Nil(t, res.TagApplied)
}

func TestExecute_Pagination(t *testing.T) {
	e, s := newEngine(t)
	seed(t, s)
	ctx := context.Background()

	first, err := e.Execute(ctx, testProject, "#:", Options{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, first.Total)
	assert.Len(t, first.Rows, 2)
	require.NotEmpty(t, first.NextCursor)

	second, err := e.Execute(ctx, testProject, "#:", Options{Limit: 2, Cursor: first.NextCursor})
	require.NoError(t, err)
	assert.Len(t, second.Rows, 1)
	assert.NotEqual(t, first.Rows[0].Node.ID, second.Rows[0].Node.ID)
}

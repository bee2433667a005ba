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
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/zadorian/SEARCH-ENGINEER-sub008/services/grid/graph"
)

// mutationRetries bounds the optimistic-concurrency loop on edge mutations.
const mutationRetries = 5

// LocalConfig configures the embedded Badger-backed store.
type LocalConfig struct {
	// Path is the directory for the database files. Ignored when InMemory.
	Path string

	// InMemory disables disk persistence. Used by tests and `grid exec`
	// dry runs.
	InMemory bool

	// SyncWrites enables synchronous writes for durability.
	SyncWrites bool

	// Logger receives store operations. Badger's own logging is disabled.
	Logger *slog.Logger
}

// DefaultLocalConfig returns sensible defaults for persistent local use.
func DefaultLocalConfig(path string) LocalConfig {
	return LocalConfig{Path: path, SyncWrites: true}
}

// InMemoryConfig returns configuration for tests: no disk, no sync.
func InMemoryConfig() LocalConfig {
	return LocalConfig{InMemory: true}
}

// LocalStore is the embedded NodeStore. Query evaluation is a partition scan
// with the shared Matches semantics, which is the right trade for local and
// test datasets.
//
// Thread Safety: safe for concurrent use. Concurrent edge mutations on one
// document are serialized by Badger's transaction conflict detection and
// retried.
type LocalStore struct {
	db     *badger.DB
	logger *slog.Logger
}

// NewLocalStore opens the embedded store.
func NewLocalStore(cfg LocalConfig) (*LocalStore, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &LocalStore{
		db:     db,
		logger: logger.With(slog.String("component", "local_store")),
	}, nil
}

// Close releases the underlying database.
func (s *LocalStore) Close() error {
	return s.db.Close()
}

// nodeKey builds the partition-scoped document key.
func nodeKey(project, id string) []byte {
	return []byte("node/" + project + "/" + id)
}

func partitionPrefix(project string) []byte {
	return []byte("node/" + project + "/")
}

// GetNode fetches one node by id.
func (s *LocalStore) GetNode(ctx context.Context, project, id string) (*graph.Node, error) {
	var n graph.Node
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(nodeKey(project, id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &n)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get node %s: %w", id, err)
	}
	return &n, nil
}

// PutNode creates or replaces a node document, stamping timestamps when the
// caller left them zero.
func (s *LocalStore) PutNode(ctx context.Context, n *graph.Node) error {
	now := time.Now().UnixMilli()
	if n.CreatedAt == 0 {
		n.CreatedAt = now
	}
	if n.UpdatedAt == 0 {
		n.UpdatedAt = now
	}

	raw, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal node %s: %w", n.ID, err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(nodeKey(n.Project, n.ID), raw)
	})
	if err != nil {
		return fmt.Errorf("put node %s: %w", n.ID, err)
	}
	return nil
}

// AppendEdge conditionally appends inside an optimistic-concurrency loop:
// read the document, recompute the edge list, write, retry on transaction
// conflict.
func (s *LocalStore) AppendEdge(ctx context.Context, project, nodeID string, e graph.EmbeddedEdge) (bool, error) {
	return s.mutateEdges(ctx, project, nodeID, func(n *graph.Node) bool {
		return n.AppendEdge(e)
	})
}

// RemoveEdge deletes by edge id inside the same loop. Absent edges no-op.
func (s *LocalStore) RemoveEdge(ctx context.Context, project, nodeID, edgeID string) (bool, error) {
	return s.mutateEdges(ctx, project, nodeID, func(n *graph.Node) bool {
		return n.RemoveEdge(edgeID)
	})
}

// mutateEdges is the shared read-modify-write loop. mutate reports whether
// the document changed; unchanged documents are not rewritten.
func (s *LocalStore) mutateEdges(ctx context.Context, project, nodeID string, mutate func(*graph.Node) bool) (bool, error) {
	key := nodeKey(project, nodeID)

	for attempt := 0; attempt < mutationRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return false, err
		}

		changed := false
		err := s.db.Update(func(txn *badger.Txn) error {
			item, err := txn.Get(key)
			if err != nil {
				return err
			}
			var n graph.Node
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &n)
			}); err != nil {
				return err
			}

			changed = mutate(&n)
			if !changed {
				return nil
			}
			n.UpdatedAt = time.Now().UnixMilli()
			raw, err := json.Marshal(&n)
			if err != nil {
				return err
			}
			return txn.Set(key, raw)
		})

		switch {
		case err == nil:
			return changed, nil
		case errors.Is(err, badger.ErrKeyNotFound):
			return false, ErrNotFound
		case errors.Is(err, badger.ErrConflict):
			s.logger.Debug("edge mutation conflict, retrying",
				slog.String("node_id", nodeID),
				slog.Int("attempt", attempt+1))
			continue
		default:
			return false, fmt.Errorf("mutate node %s: %w", nodeID, err)
		}
	}
	return false, fmt.Errorf("mutate node %s: gave up after %d conflicts", nodeID, mutationRetries)
}

// Query scans the partition, filters with the shared matcher, orders by
// (updated_at desc, id asc), and pages from the cursor position.
func (s *LocalStore) Query(ctx context.Context, q ViewQuery) (*Page, error) {
	var matches []graph.Node

	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := partitionPrefix(q.Project)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var n graph.Node
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &n)
			}); err != nil {
				return err
			}
			if Matches(&n, q) {
				matches = append(matches, n)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("query partition %s: %w", q.Project, err)
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].UpdatedAt != matches[j].UpdatedAt {
			return matches[i].UpdatedAt > matches[j].UpdatedAt
		}
		return strings.Compare(matches[i].ID, matches[j].ID) < 0
	})

	total := len(matches)

	if c := q.Cursor; c != nil {
		start := 0
		for start < len(matches) && !c.After(&matches[start]) {
			start++
		}
		matches = matches[start:]
	}

	limit := q.Limit
	if limit <= 0 {
		limit = len(matches)
	}

	page := &Page{Total: total}
	if len(matches) > limit {
		page.Nodes = matches[:limit]
	} else {
		page.Nodes = matches
	}
	if len(matches) > len(page.Nodes) && len(page.Nodes) > 0 {
		last := page.Nodes[len(page.Nodes)-1]
		page.NextCursor = Cursor{UpdatedAt: last.UpdatedAt, ID: last.ID}.Encode()
	}
	return page, nil
}

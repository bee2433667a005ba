// Copyright (C) 2026 Zadorian Intelligence (ops@zadorian.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package engine runs the full grid pipeline: parse the command, compose
// the view, map and address rows, then apply any trailing actions to the
// addressed nodes.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/zadorian/SEARCH-ENGINEER-sub008/services/grid/mutate"
	"github.com/zadorian/SEARCH-ENGINEER-sub008/services/grid/registry"
	"github.com/zadorian/SEARCH-ENGINEER-sub008/services/grid/rows"
	"github.com/zadorian/SEARCH-ENGINEER-sub008/services/grid/store"
	"github.com/zadorian/SEARCH-ENGINEER-sub008/services/grid/syntax"
	"github.com/zadorian/SEARCH-ENGINEER-sub008/services/grid/view"
)

var tracer = otel.Tracer("grid.engine")

// ErrNotGridSyntax marks input that is not the grid language at all, so
// callers can route it elsewhere instead of reporting a failure.
var ErrNotGridSyntax = errors.New("input is not grid syntax")

var (
	commandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "grid_commands_total",
		Help: "Grid commands executed, by outcome.",
	}, []string{"outcome"})

	actionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "grid_actions_total",
		Help: "Grid actions applied, by kind.",
	}, []string{"kind"})
)

// Options tune one execution.
type Options struct {
	// Limit caps the page size; 0 means the composer default.
	Limit int

	// Cursor resumes a previous page; bad cursors restart silently.
	Cursor string

	// ProjectRoot is the id of the partition's root narrative node, used
	// to synthesize case context on rows without one.
	ProjectRoot string
}

// Result is everything one command produced.
type Result struct {
	Rows       []rows.Row     `json:"rows"`
	Total      int            `json:"total"`
	Selection  rows.Selection `json:"selection"`
	NextCursor string         `json:"next_cursor,omitempty"`

	TagApplied     *mutate.TagResult     `json:"tag_applied,omitempty"`
	TagRemoved     *mutate.TagResult     `json:"tag_removed,omitempty"`
	WatcherCreated *mutate.WatcherResult `json:"watcher_created,omitempty"`

	// RawActions are unrecognized `=>` segments passed through for the
	// caller to dispatch against the operator registry.
	RawActions []string `json:"raw_actions,omitempty"`
}

// Engine wires the pipeline stages against one store.
type Engine struct {
	composer *view.Composer
	mutator  *mutate.Mutator
	registry *registry.Registry
	logger   *slog.Logger
}

func New(s store.NodeStore, reg *registry.Registry, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		composer: view.NewComposer(s, logger),
		mutator:  mutate.NewMutator(s, logger),
		registry: reg,
		logger:   logger.With(slog.String("component", "engine")),
	}
}

// Registry exposes the operator catalogue the engine was built with.
func (e *Engine) Registry() *registry.Registry { return e.registry }

// Execute runs one command against a project partition. Returns
// ErrNotGridSyntax when the input is not the grid language. Action errors
// after a partial application return the partial Result alongside the error.
func (e *Engine) Execute(ctx context.Context, project, input string, opts Options) (*Result, error) {
	ctx, span := tracer.Start(ctx, "Engine.Execute")
	defer span.End()
	span.SetAttributes(attribute.String("project", project))

	parsed := syntax.Parse(input)
	if !parsed.GridMode {
		commandsTotal.WithLabelValues("not_grid").Inc()
		return nil, ErrNotGridSyntax
	}

	req := view.RequestFromParse(project, &parsed, opts.Limit, opts.Cursor)
	page, err := e.composer.Compose(ctx, req)
	if err != nil {
		commandsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	mapped := rows.MapRows(page.Nodes, opts.ProjectRoot)
	selection := rows.Select(mapped, parsed.CellRefs)

	res := &Result{
		Rows:       mapped,
		Total:      page.Total,
		Selection:  selection,
		NextCursor: page.NextCursor,
	}

	if err := e.applyActions(ctx, project, parsed.Actions, selection, res); err != nil {
		commandsTotal.WithLabelValues("error").Inc()
		return res, err
	}

	commandsTotal.WithLabelValues("ok").Inc()
	return res, nil
}

// applyActions runs the command's actions against the addressed nodes in a
// fixed order regardless of where each appeared: tag-add, then tag-remove,
// then watcher-create. Duplicate action kinds beyond the first are ignored;
// raw segments accumulate for the caller.
func (e *Engine) applyActions(ctx context.Context, project string, actions []syntax.Action, sel rows.Selection, res *Result) error {
	var tagAdd, tagRemove, watcher *syntax.Action
	for i := range actions {
		a := &actions[i]
		switch a.Kind {
		case syntax.ActionTagAdd:
			if tagAdd == nil {
				tagAdd = a
			}
		case syntax.ActionTagRemove:
			if tagRemove == nil {
				tagRemove = a
			}
		case syntax.ActionWatcher:
			if watcher == nil {
				watcher = a
			}
		case syntax.ActionRaw:
			actionsTotal.WithLabelValues("raw").Inc()
			res.RawActions = append(res.RawActions, a.Raw)
		}
	}

	if tagAdd != nil {
		actionsTotal.WithLabelValues("tag_add").Inc()
		r, err := e.mutator.ApplyTag(ctx, project, tagAdd.Label, sel.NodeIDs)
		res.TagApplied = r
		if err != nil {
			return fmt.Errorf("apply tag %q: %w", tagAdd.Label, err)
		}
	}
	if tagRemove != nil {
		actionsTotal.WithLabelValues("tag_remove").Inc()
		r, err := e.mutator.RemoveTag(ctx, project, tagRemove.Label, sel.NodeIDs)
		res.TagRemoved = r
		if err != nil {
			return fmt.Errorf("remove tag %q: %w", tagRemove.Label, err)
		}
	}
	if watcher != nil {
		actionsTotal.WithLabelValues("watcher").Inc()
		r, err := e.mutator.CreateWatcher(ctx, project, watcher.Label, watcher.TypeHint, sel.NodeIDs)
		res.WatcherCreated = r
		if err != nil {
			return fmt.Errorf("create watcher %q: %w", watcher.Label, err)
		}
	}
	return nil
}

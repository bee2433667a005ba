// Copyright (C) 2026 Zadorian Intelligence (ops@zadorian.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package view

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/zadorian/SEARCH-ENGINEER-sub008/services/grid/graph"
	"github.com/zadorian/SEARCH-ENGINEER-sub008/services/grid/store"
	"github.com/zadorian/SEARCH-ENGINEER-sub008/services/grid/syntax"
)

var tracer = otel.Tracer("grid.view")

const (
	defaultLimit = 25
	maxLimit     = 200
)

// Request is the declarative description of one grid view: which partition,
// which filter groups, and where in the result order to resume.
type Request struct {
	Project string

	Classes    []string
	Types      []string
	Pins       []string
	Categories []string
	Attributes map[string][]string

	FirstSeenYears    []int
	LastArchivedYears []int
	MinAgeDays        int

	Text     string
	Operator syntax.Operator

	Limit  int
	Cursor string
}

// Composer lowers a request into the store's single structured query and
// runs it.
type Composer struct {
	store  store.NodeStore
	logger *slog.Logger
}

func NewComposer(s store.NodeStore, logger *slog.Logger) *Composer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Composer{store: s, logger: logger.With(slog.String("component", "composer"))}
}

// Compose normalizes the request and issues one store query. Class names go
// through the deprecated-spelling table so legacy and canonical spellings
// select the same table. Pin entries of the form "type:X" become type pins;
// everything else pins a node id.
func (c *Composer) Compose(ctx context.Context, req Request) (*store.Page, error) {
	ctx, span := tracer.Start(ctx, "Composer.Compose")
	defer span.End()

	if req.Project == "" {
		return nil, fmt.Errorf("view request missing project")
	}

	limit := req.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	q := store.ViewQuery{
		Project:           req.Project,
		Categories:        lowerAll(req.Categories),
		Attributes:        req.Attributes,
		FirstSeenYears:    req.FirstSeenYears,
		LastArchivedYears: req.LastArchivedYears,
		MinAgeDays:        req.MinAgeDays,
		Text:              req.Text,
		Operator:          req.Operator,
		Limit:             limit,
		Cursor:            store.DecodeCursor(req.Cursor),
	}

	// Historical documents still carry deprecated class spellings, so the
	// class filter matches every spelling of each selected class.
	seenClass := make(map[string]bool)
	for _, name := range req.Classes {
		cls, ok := graph.CanonicalClass(name)
		if !ok {
			continue
		}
		for _, spelling := range cls.Spellings() {
			if !seenClass[spelling] {
				seenClass[spelling] = true
				q.Classes = append(q.Classes, spelling)
			}
		}
	}
	for _, t := range req.Types {
		q.Types = append(q.Types, strings.ToLower(t))
	}
	for _, pin := range req.Pins {
		if t, ok := strings.CutPrefix(pin, "type:"); ok {
			q.PinTypes = append(q.PinTypes, strings.ToLower(t))
			continue
		}
		q.PinIDs = append(q.PinIDs, pin)
	}

	span.SetAttributes(
		attribute.String("project", req.Project),
		attribute.Int("limit", limit),
		attribute.StringSlice("classes", q.Classes),
	)

	page, err := c.store.Query(ctx, q)
	if err != nil {
		c.logger.Error("view query failed", "project", req.Project, "error", err)
		return nil, fmt.Errorf("compose view: %w", err)
	}

	c.logger.Debug("composed view",
		"project", req.Project,
		"nodes", len(page.Nodes),
		"total", page.Total,
	)
	return page, nil
}

func lowerAll(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}

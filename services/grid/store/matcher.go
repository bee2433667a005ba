// Copyright (C) 2026 Zadorian Intelligence (ops@zadorian.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package store

import (
	"strings"
	"time"

	"github.com/zadorian/SEARCH-ENGINEER-sub008/services/grid/graph"
	"github.com/zadorian/SEARCH-ENGINEER-sub008/services/grid/syntax"
)

// Matches evaluates a ViewQuery against one node in memory. The Badger store
// filters with it directly; the Weaviate store compiles the same semantics
// into a filter tree, and the tests hold the two to this single definition.
func Matches(n *graph.Node, q ViewQuery) bool {
	if q.Project != "" && n.Project != q.Project {
		return false
	}

	groups := groupPredicates(n, q)
	if len(groups) == 0 {
		return true
	}
	if q.Operator == syntax.OpOr {
		for _, ok := range groups {
			if ok {
				return true
			}
		}
		return false
	}
	for _, ok := range groups {
		if !ok {
			return false
		}
	}
	return true
}

// groupPredicates evaluates each present filter group, one bool per group.
func groupPredicates(n *graph.Node, q ViewQuery) []bool {
	var groups []bool

	if len(q.Classes) > 0 {
		groups = append(groups, containsFold(q.Classes, string(n.Class)))
	}
	if len(q.Types) > 0 {
		groups = append(groups, containsFold(q.Types, n.Type))
	}
	if len(q.PinIDs) > 0 || len(q.PinTypes) > 0 {
		groups = append(groups, matchesPins(n, q.PinIDs, q.PinTypes))
	}
	if len(q.Categories) > 0 {
		groups = append(groups, containsFold(q.Categories, n.Category()))
	}
	for dim, values := range q.Attributes {
		groups = append(groups, containsFold(values, n.Attributes()[dim]))
	}
	if len(q.FirstSeenYears) > 0 {
		groups = append(groups, containsInt(q.FirstSeenYears, n.FirstSeenYear()))
	}
	if len(q.LastArchivedYears) > 0 {
		groups = append(groups, containsInt(q.LastArchivedYears, n.LastArchivedYear()))
	}
	if q.MinAgeDays > 0 {
		cutoff := time.Now().AddDate(0, 0, -q.MinAgeDays).UnixMilli()
		groups = append(groups, n.FirstSeenAt() <= cutoff)
	}
	if q.Text != "" {
		groups = append(groups, matchesText(n.Label, q.Text))
	}
	return groups
}

// matchesPins applies the neighbourhood convention: a pinned id selects the
// node itself and every node whose embedded edges target it; a pinned type
// selects nodes of that type directly.
func matchesPins(n *graph.Node, pinIDs, pinTypes []string) bool {
	for _, t := range pinTypes {
		if strings.EqualFold(n.Type, t) {
			return true
		}
	}
	for _, id := range pinIDs {
		if n.ID == id {
			return true
		}
		for _, e := range n.Edges {
			if e.TargetID == id {
				return true
			}
		}
	}
	return false
}

// matchesText matches a label by case-insensitive substring or prefix.
func matchesText(label, text string) bool {
	l := strings.ToLower(label)
	t := strings.ToLower(text)
	return strings.Contains(l, t) || strings.HasPrefix(l, t)
}

func containsFold(haystack []string, needle string) bool {
	for _, h := range haystack {
		if strings.EqualFold(h, needle) {
			return true
		}
	}
	return false
}

func containsInt(haystack []int, needle int) bool {
	for _, h := range haystack {
		if h == needle {
			return true
		}
	}
	return false
}

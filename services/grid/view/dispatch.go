// Copyright (C) 2026 Zadorian Intelligence (ops@zadorian.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package view

import (
	"strconv"
	"strings"

	"github.com/zadorian/SEARCH-ENGINEER-sub008/services/grid/syntax"
)

// ageBucketDays translates named age buckets into a day count.
var ageBucketDays = map[string]int{
	"day":     1,
	"week":    7,
	"month":   30,
	"quarter": 90,
	"year":    365,
}

// RequestFromParse lowers a parsed command into one view request. Every
// clause lands in exactly one request field; unknown clause values are
// dropped rather than failing the whole command.
func RequestFromParse(project string, p *syntax.Parsed, limit int, cursor string) Request {
	req := Request{
		Project:  project,
		Operator: p.Operator,
		Limit:    limit,
		Cursor:   cursor,
	}

	if p.Rotation != "" {
		req.Classes = append(req.Classes, string(p.Rotation))
	}
	if p.ClassFilter != "" {
		req.Classes = append(req.Classes, string(p.ClassFilter))
	}
	if p.TypeFilter != "" {
		req.Types = append(req.Types, p.TypeFilter)
	}
	req.Pins = append(req.Pins, p.PinIDs...)

	for _, c := range p.Clauses {
		switch c.Kind {
		case syntax.ClauseType:
			req.Types = append(req.Types, c.Value)
		case syntax.ClausePin:
			req.Pins = append(req.Pins, c.Value)
		case syntax.ClauseCategory:
			req.Categories = append(req.Categories, c.Value)
		case syntax.ClauseFirstSeen:
			if y, err := strconv.Atoi(c.Value); err == nil {
				req.FirstSeenYears = append(req.FirstSeenYears, y)
			}
		case syntax.ClauseLastArchived:
			if y, err := strconv.Atoi(c.Value); err == nil {
				req.LastArchivedYears = append(req.LastArchivedYears, y)
			}
		case syntax.ClauseAgeBucket:
			if days := ageDays(c.Value); days > req.MinAgeDays {
				req.MinAgeDays = days
			}
		default:
			if req.Attributes == nil {
				req.Attributes = make(map[string][]string)
			}
			dim := strings.ToLower(c.Dim)
			req.Attributes[dim] = append(req.Attributes[dim], c.Value)
		}
	}

	return req
}

// ageDays resolves a named bucket or a bare day count, 0 when neither.
func ageDays(value string) int {
	if d, ok := ageBucketDays[strings.ToLower(value)]; ok {
		return d
	}
	if d, err := strconv.Atoi(value); err == nil && d > 0 {
		return d
	}
	return 0
}

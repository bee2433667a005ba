// Copyright (C) 2026 Zadorian Intelligence (ops@zadorian.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package syntax parses the grid command language.
//
// Parsing is pure and total: Parse never returns an error and never panics.
// Input that is not grid syntax yields a Parsed with GridMode=false, so
// callers can treat the string as opaque. Unrecognized tokens inside a grid
// command are dropped silently.
//
// Single Responsibility:
//
//	This package ONLY parses. It performs no I/O, issues no queries, and
//	holds no state. Filter clauses are resolved to their effect kind here,
//	once, so the composer never re-dispatches on raw dimension names.
package syntax

import (
	"strings"

	"github.com/zadorian/SEARCH-ENGINEER-sub008/services/grid/graph"
)

// =============================================================================
// Parse result types
// =============================================================================

// Operator is the boolean combinator applied across filter groups.
type Operator string

const (
	OpAnd Operator = "AND"
	OpOr  Operator = "OR"
)

// ClauseKind is the effect a filter clause dispatches to. The dimension name
// is resolved to a kind at parse time.
type ClauseKind int

const (
	// ClauseAttribute is the generic fallthrough: any dimension without a
	// dedicated effect filters on the node's free-form attribute map.
	ClauseAttribute ClauseKind = iota

	// ClauseType filters on the node type.
	ClauseType

	// ClausePin adds a pinned node id or "type:X" reference.
	ClausePin

	// ClauseCategory filters on the node category.
	ClauseCategory

	// ClauseFirstSeen filters on the first-seen year set.
	ClauseFirstSeen

	// ClauseLastArchived filters on the last-archived year set.
	ClauseLastArchived

	// ClauseAgeBucket applies a minimum node age via the bucket lookup.
	ClauseAgeBucket
)

// String returns the clause kind name.
func (k ClauseKind) String() string {
	switch k {
	case ClauseAttribute:
		return "attribute"
	case ClauseType:
		return "type"
	case ClausePin:
		return "pin"
	case ClauseCategory:
		return "category"
	case ClauseFirstSeen:
		return "first_seen"
	case ClauseLastArchived:
		return "last_archived"
	case ClauseAgeBucket:
		return "age"
	default:
		return "unknown"
	}
}

// Clause is one `dim:value` filter, with the dimension already resolved to
// its effect kind.
type Clause struct {
	Kind  ClauseKind
	Dim   string
	Value string
}

// ActionKind discriminates trailing `=>` actions.
type ActionKind int

const (
	// ActionRaw is an unrecognized action passed through for extension.
	ActionRaw ActionKind = iota

	// ActionTagAdd applies a tag to the selection.
	ActionTagAdd

	// ActionTagRemove removes a tag from the selection.
	ActionTagRemove

	// ActionWatcher creates a watcher over the selection.
	ActionWatcher
)

// Action is one trailing action parsed from a `=>` suffix.
type Action struct {
	Kind ActionKind

	// Label is the tag label or watcher label.
	Label string

	// TypeHint is the watcher's monitored-type hint, "" when absent.
	TypeHint string

	// Raw is the original text of an unrecognized action.
	Raw string
}

// Parsed is the structured result of parsing one command string.
type Parsed struct {
	// GridMode is false when the input is not the grid language at all.
	// All other fields are zero in that case.
	GridMode bool

	// Rotation is the class the view pivots around, "" when the command
	// used the `#:`/`#`/`@` forms without an explicit rotation marker.
	Rotation graph.Class

	// ClassFilter and TypeFilter come from `@alias` tokens.
	ClassFilter graph.Class
	TypeFilter  string

	// PinIDs holds `#id` pins; entries of the form "type:X" pin a type.
	PinIDs []string

	// Operator combines filter groups; AND unless an OR token appeared.
	Operator Operator

	Clauses  []Clause
	CellRefs []CellRef
	Actions  []Action
}

// =============================================================================
// Dimension dispatch
// =============================================================================

// clauseKinds resolves well-known dimension names. Anything absent falls
// through to ClauseAttribute.
var clauseKinds = map[string]ClauseKind{
	"type":          ClauseType,
	"pin":           ClausePin,
	"ref":           ClausePin,
	"category":      ClauseCategory,
	"cat":           ClauseCategory,
	"first_seen":    ClauseFirstSeen,
	"first":         ClauseFirstSeen,
	"last_archived": ClauseLastArchived,
	"archived":      ClauseLastArchived,
	"age":           ClauseAgeBucket,
}

// =============================================================================
// Parser
// =============================================================================

// Parse turns a command string into a Parsed. It never fails; inputs that
// are not grid syntax (including empty strings and strings with an unmatched
// brace) return GridMode=false.
func Parse(input string) Parsed {
	p := Parsed{Operator: OpAnd}

	s := strings.TrimSpace(input)
	if s == "" {
		return p
	}
	if strings.Count(s, "{") != strings.Count(s, "}") {
		return p
	}

	var body string
	switch {
	case strings.HasPrefix(s, "/grid"):
		rest := s[len("/grid"):]
		if rest == "" {
			return p
		}
		rotation, ok := graph.RotationFor(rest[0])
		if !ok {
			return p
		}
		p.Rotation = rotation
		rest = strings.TrimSpace(rest[1:])
		if strings.HasPrefix(rest, "{") {
			end := strings.IndexByte(rest, '}')
			if end < 0 {
				return Parsed{Operator: OpAnd}
			}
			body = rest[1:end] + " " + rest[end+1:]
		} else {
			body = rest
		}

	case strings.HasPrefix(s, "#:"):
		body = s[2:]

	case s[0] == '#' || s[0] == '@':
		body = s

	default:
		return p
	}
	p.GridMode = true

	// Everything after the first `=>` is actions, one per segment.
	segments := strings.Split(body, "=>")
	for _, seg := range segments[1:] {
		if a, ok := parseAction(seg); ok {
			p.Actions = append(p.Actions, a)
		}
	}

	for _, tok := range tokenize(segments[0]) {
		classify(&p, tok)
	}
	return p
}

// tokenize splits a filter body on whitespace and commas.
func tokenize(body string) []string {
	return strings.FieldsFunc(body, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == ','
	})
}

// classify interprets one filter token. Each token is independent;
// unrecognized tokens are dropped.
func classify(p *Parsed, tok string) {
	switch strings.ToUpper(tok) {
	case "AND":
		p.Operator = OpAnd
		return
	case "OR":
		p.Operator = OpOr
		return
	}

	switch {
	case strings.HasPrefix(tok, "##"):
		if c, ok := parseClause(tok[2:]); ok {
			p.Clauses = append(p.Clauses, c)
		}

	case strings.HasPrefix(tok, "@"):
		alias := strings.ToLower(tok[1:])
		if class, ok := graph.ClassAliases[alias]; ok {
			p.ClassFilter = class
		} else if typ, ok := graph.TypeAliases[alias]; ok {
			p.TypeFilter = typ
		}

	case strings.HasPrefix(tok, "#"):
		if id := tok[1:]; id != "" {
			p.PinIDs = append(p.PinIDs, id)
		}

	case strings.Contains(tok, ":"):
		if c, ok := parseClause(tok); ok {
			p.Clauses = append(p.Clauses, c)
		}

	default:
		if ref, ok := ParseCellRef(tok); ok {
			p.CellRefs = append(p.CellRefs, ref)
		}
	}
}

// parseClause splits "dim:value" and resolves the dimension to its kind.
func parseClause(tok string) (Clause, bool) {
	dim, value, ok := strings.Cut(tok, ":")
	if !ok || dim == "" || value == "" {
		return Clause{}, false
	}
	dim = strings.ToLower(dim)
	kind, known := clauseKinds[dim]
	if !known {
		kind = ClauseAttribute
	}
	return Clause{Kind: kind, Dim: dim, Value: value}, true
}

// parseAction interprets one `=>` segment.
func parseAction(seg string) (Action, bool) {
	seg = strings.TrimSpace(seg)
	if seg == "" {
		return Action{}, false
	}

	switch seg[0] {
	case '+':
		if label := tagLabel(seg[1:]); label != "" {
			return Action{Kind: ActionTagAdd, Label: label}, true
		}
		return Action{Kind: ActionRaw, Raw: seg}, true

	case '-':
		if label := tagLabel(seg[1:]); label != "" {
			return Action{Kind: ActionTagRemove, Label: label}, true
		}
		return Action{Kind: ActionRaw, Raw: seg}, true
	}

	if strings.HasPrefix(strings.ToLower(seg), "watcher") {
		if a, ok := parseWatcher(seg[len("watcher"):]); ok {
			return a, true
		}
	}
	return Action{Kind: ActionRaw, Raw: seg}, true
}

// tagLabel strips the optional `#` marker from a tag action label.
func tagLabel(s string) string {
	return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "#"))
}

// watcherHints resolves the one-letter monitored-type hints. Same table as
// the `@` type aliases, plus "s" which is unambiguous in watcher position.
func watcherHints(spec string) string {
	if spec == "s" {
		return "source"
	}
	return graph.TypeAliases[spec]
}

// parseWatcher parses the remainder after the "watcher" keyword: an optional
// one-letter type hint (optionally angle-bracketed), then "{label}".
func parseWatcher(rest string) (Action, bool) {
	open := strings.IndexByte(rest, '{')
	if open < 0 {
		return Action{}, false
	}
	end := strings.IndexByte(rest, '}')
	if end < open {
		return Action{}, false
	}
	label := strings.TrimSpace(rest[open+1 : end])
	if label == "" {
		return Action{}, false
	}

	hintSpec := strings.ToLower(strings.Trim(strings.TrimSpace(rest[:open]), "<>"))
	// An unrecognized hint is dropped, not an error.
	hint := watcherHints(hintSpec)

	return Action{Kind: ActionWatcher, Label: label, TypeHint: hint}, true
}

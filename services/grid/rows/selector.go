// Copyright (C) 2026 Zadorian Intelligence (ops@zadorian.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package rows

import (
	"github.com/zadorian/SEARCH-ENGINEER-sub008/services/grid/graph"
	"github.com/zadorian/SEARCH-ENGINEER-sub008/services/grid/syntax"
)

// Selection is the resolved set of cells an action applies to.
type Selection struct {
	// RowIndexes are the 1-based rows touched, in first-reference order.
	RowIndexes []int

	// NodeIDs are the addressed node ids, deduplicated, in address order.
	NodeIDs []string
}

// Select resolves cell references against mapped rows. With no references
// the whole column A is selected. A bare column expands over the referenced
// rows, or over every row when no row-bearing reference exists. When every
// referenced row lies beyond the page the row set falls back to the full
// row range, so a stale reference still addresses something.
func Select(mapped []Row, refs []syntax.CellRef) Selection {
	if len(refs) == 0 {
		sel := Selection{}
		for _, r := range mapped {
			sel.RowIndexes = append(sel.RowIndexes, r.Index)
			sel.NodeIDs = append(sel.NodeIDs, r.Node.ID)
		}
		return sel
	}

	byIndex := make(map[int]*Row, len(mapped))
	for i := range mapped {
		byIndex[mapped[i].Index] = &mapped[i]
	}

	// First pass: collect the rows named by row-bearing references so bare
	// columns know their span.
	rowSet := make(map[int]bool)
	var rowOrder []int
	addRow := func(idx int) {
		if byIndex[idx] == nil || rowSet[idx] {
			return
		}
		rowSet[idx] = true
		rowOrder = append(rowOrder, idx)
	}
	for _, ref := range refs {
		switch ref.Kind {
		case syntax.RefRow, syntax.RefCell:
			addRow(ref.Row)
		case syntax.RefRange:
			for i := ref.Row; i <= ref.RowEnd; i++ {
				addRow(i)
			}
		}
	}
	outOfRange := len(rowOrder) == 0
	if outOfRange {
		for _, r := range mapped {
			addRow(r.Index)
		}
	}

	sel := Selection{}
	seenID := make(map[string]bool)
	seenRow := make(map[int]bool)
	addCell := func(idx int, col syntax.Column) {
		row := byIndex[idx]
		if row == nil {
			return
		}
		if !seenRow[idx] {
			seenRow[idx] = true
			sel.RowIndexes = append(sel.RowIndexes, idx)
		}
		for _, id := range cellIDs(row, col) {
			if !seenID[id] {
				seenID[id] = true
				sel.NodeIDs = append(sel.NodeIDs, id)
			}
		}
	}

	column := func(col syntax.Column) {
		for _, idx := range rowOrder {
			addCell(idx, col)
		}
	}

	for _, ref := range refs {
		switch ref.Kind {
		case syntax.RefCell:
			if outOfRange {
				column(ref.Col)
				continue
			}
			addCell(ref.Row, ref.Col)
		case syntax.RefRow:
			if outOfRange {
				column(syntax.ColumnA)
				continue
			}
			addCell(ref.Row, syntax.ColumnA)
		case syntax.RefRange:
			if outOfRange {
				column(ref.Col)
				continue
			}
			for i := ref.Row; i <= ref.RowEnd; i++ {
				addCell(i, ref.Col)
			}
		case syntax.RefColumn:
			column(ref.Col)
		}
	}
	return sel
}

// cellIDs resolves one cell to node ids. Columns A and B address the row's
// primary node; column C addresses the row's related nodes.
func cellIDs(row *Row, col syntax.Column) []string {
	if col != syntax.ColumnC {
		return []string{row.Node.ID}
	}
	var out []string
	seen := make(map[string]bool)
	for _, key := range bucketOrder {
		for _, rel := range row.Related[key] {
			if !seen[rel.ID] {
				seen[rel.ID] = true
				out = append(out, rel.ID)
			}
		}
	}
	return out
}

// bucketOrder fixes the class order column C flattens in. Legacy mirror
// keys are excluded so mirrored buckets are not double counted.
var bucketOrder = []string{
	string(graph.ClassSubject),
	string(graph.ClassNexus),
	string(graph.ClassNarrative),
	string(graph.ClassLocation),
}

// Copyright (C) 2026 Zadorian Intelligence (ops@zadorian.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package syntax

import "strconv"

// Column identifies one of the three recognized grid columns.
//
// ColumnA and ColumnB both denote the row's primary node; they are kept
// distinct to allow a future two-column primary layout. ColumnC denotes the
// row's full related-node set, flattened across all buckets.
type Column int

const (
	ColumnA Column = iota
	ColumnB
	ColumnC
)

// String returns the spreadsheet letter for the column.
func (c Column) String() string {
	switch c {
	case ColumnA:
		return "A"
	case ColumnB:
		return "B"
	case ColumnC:
		return "C"
	default:
		return "?"
	}
}

// Primary reports whether the column denotes the row's primary node.
func (c Column) Primary() bool {
	return c == ColumnA || c == ColumnB
}

// RefKind discriminates the four cell-reference shapes.
type RefKind int

const (
	// RefCell addresses one row in one column ("3A").
	RefCell RefKind = iota

	// RefRow addresses one row in the default column ("3").
	RefRow

	// RefColumn addresses a column across the referenced rows ("A").
	RefColumn

	// RefRange addresses an inclusive row range in one column ("3-7A").
	RefRange
)

// CellRef is a typed, already-parsed cell reference. The selector consumes
// these directly and never re-parses raw text.
type CellRef struct {
	Kind RefKind

	// Row is the 1-based row (RefCell, RefRow) or range start (RefRange).
	Row int

	// RowEnd is the inclusive range end (RefRange only).
	RowEnd int

	// Col is the column (RefCell, RefColumn, RefRange).
	Col Column
}

// columnFor maps a column letter to its Column, case-insensitively.
func columnFor(b byte) (Column, bool) {
	switch b {
	case 'A', 'a':
		return ColumnA, true
	case 'B', 'b':
		return ColumnB, true
	case 'C', 'c':
		return ColumnC, true
	}
	return 0, false
}

// ParseCellRef parses one spreadsheet-style address token: a bare column
// ("A"), a bare row ("3"), a single cell ("3A"), or an inclusive row range
// with a column ("3-7A"). Reports false for anything else.
func ParseCellRef(tok string) (CellRef, bool) {
	if tok == "" {
		return CellRef{}, false
	}

	// Bare column letter.
	if len(tok) == 1 {
		if col, ok := columnFor(tok[0]); ok {
			return CellRef{Kind: RefColumn, Col: col}, true
		}
	}

	// Leading digits.
	i := 0
	for i < len(tok) && tok[i] >= '0' && tok[i] <= '9' {
		i++
	}
	if i == 0 {
		return CellRef{}, false
	}
	row, err := strconv.Atoi(tok[:i])
	if err != nil || row < 1 {
		return CellRef{}, false
	}

	rest := tok[i:]
	switch {
	case rest == "":
		return CellRef{Kind: RefRow, Row: row}, true

	case len(rest) == 1:
		if col, ok := columnFor(rest[0]); ok {
			return CellRef{Kind: RefCell, Row: row, Col: col}, true
		}
		return CellRef{}, false

	case rest[0] == '-':
		// Row range: digits, then exactly one column letter.
		j := 1
		for j < len(rest) && rest[j] >= '0' && rest[j] <= '9' {
			j++
		}
		if j == 1 || j != len(rest)-1 {
			return CellRef{}, false
		}
		end, err := strconv.Atoi(rest[1:j])
		if err != nil || end < row {
			return CellRef{}, false
		}
		col, ok := columnFor(rest[j])
		if !ok {
			return CellRef{}, false
		}
		return CellRef{Kind: RefRange, Row: row, RowEnd: end, Col: col}, true
	}

	return CellRef{}, false
}

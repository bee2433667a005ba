// Copyright (C) 2026 Zadorian Intelligence (ops@zadorian.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package view

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zadorian/SEARCH-ENGINEER-sub008/services/grid/syntax"
)

func TestRequestFromParse_DispatchesEveryClauseKind(t *testing.T) {
	p := syntax.Parse("#: ##type:person ##pin:acme-ltd ##category:media ##first_seen:2019 ##archived:2021 ##age:month ##country:cyprus")
	require.True(t, p.GridMode)

	req := RequestFromParse("proj", &p, 50, "")

	assert.Equal(t, "proj", req.Project)
	assert.Equal(t, 50, req.Limit)
	assert.Equal(t, []string{"person"}, req.Types)
	assert.Equal(t, []string{"acme-ltd"}, req.Pins)
	assert.Equal(t, []string{"media"}, req.Categories)
	assert.Equal(t, []int{2019}, req.FirstSeenYears)
	assert.Equal(t, []int{2021}, req.LastArchivedYears)
	assert.Equal(t, 30, req.MinAgeDays)
	assert.Equal(t, map[string][]string{"country": {"cyprus"}}, req.Attributes)
}

func TestRequestFromParse_RotationAndAliases(t *testing.T) {
	p := syntax.Parse("/gridS @company")
	require.True(t, p.GridMode)

	req := RequestFromParse("proj", &p, 0, "")
	assert.Equal(t, []string{"subject"}, req.Classes)
	assert.Equal(t, []string{"company"}, req.Types)
}

func TestRequestFromParse_NonNumericYearDropped(t *testing.T) {
	p := syntax.Parse("#: ##first_seen:never")
	req := RequestFromParse("proj", &p, 0, "")
	assert.Empty(t, req.FirstSeenYears)
}

func TestAgeDays(t *testing.T) {
	tests := []struct {
		value string
		want  int
	}{
		{"day", 1},
		{"week", 7},
		{"month", 30},
		{"quarter", 90},
		{"year", 365},
		{"YEAR", 365},
		{"45", 45},
		{"0", 0},
		{"-3", 0},
		{"soon", 0},
	}
	for _, tt := range tests {
		if got := ageDays(tt.value); got != tt.want {
			t.Errorf("ageDays(%q) = %d, want %d", tt.value, got, tt.want)
		}
	}
}

func TestRequestFromParse_KeepsOperator(t *testing.T) {
	p := syntax.Parse("#: ##cat:media OR ##type:person")
	req := RequestFromParse("proj", &p, 0, "")
	assert.Equal(t, syntax.OpOr, req.Operator)
}

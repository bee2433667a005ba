// Copyright (C) 2026 Zadorian Intelligence (ops@zadorian.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/zadorian/SEARCH-ENGINEER-sub008/services/grid/engine"
	"github.com/zadorian/SEARCH-ENGINEER-sub008/services/grid/graph"
	"github.com/zadorian/SEARCH-ENGINEER-sub008/services/grid/rows"
)

var (
	execProject string
	execLimit   int
	execCursor  string
)

var execCmd = &cobra.Command{
	Use:   "exec <command>",
	Short: "Execute one grid command and print the resulting rows",
	Args:  cobra.ExactArgs(1),
	RunE:  runExec,
}

func init() {
	execCmd.Flags().StringVar(&execProject, "project", "", "project partition (default from config)")
	execCmd.Flags().IntVar(&execLimit, "limit", 0, "page size")
	execCmd.Flags().StringVar(&execCursor, "cursor", "", "continuation cursor")
	rootCmd.AddCommand(execCmd)
}

func runExec(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	st, err := buildStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	eng, err := buildEngine(st)
	if err != nil {
		return err
	}

	project := execProject
	if project == "" {
		project = cfg.Project
	}

	res, err := eng.Execute(ctx, project, args[0], engine.Options{
		Limit:  execLimit,
		Cursor: execCursor,
	})
	if err != nil {
		if errors.Is(err, engine.ErrNotGridSyntax) {
			return fmt.Errorf("not a grid command: %q", args[0])
		}
		return err
	}

	printRows(res)
	return nil
}

func printRows(res *engine.Result) {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("#", "Label", "Class", "Type", "Related", "Tags")

	for _, r := range res.Rows {
		table.Append(
			fmt.Sprintf("%d", r.Index),
			r.Node.Label,
			string(r.Node.Class),
			r.Node.Type,
			relatedSummary(r),
			tagSummary(r),
		)
	}
	table.Render()

	fmt.Printf("\n%d of %d nodes", len(res.Rows), res.Total)
	if res.NextCursor != "" {
		fmt.Printf("  (more: --cursor %s)", res.NextCursor)
	}
	fmt.Println()

	if res.TagApplied != nil {
		fmt.Printf("tagged %d node(s) with %q\n", res.TagApplied.Count, res.TagApplied.Label)
	}
	if res.TagRemoved != nil {
		fmt.Printf("untagged %d node(s) from %q\n", res.TagRemoved.Count, res.TagRemoved.Label)
	}
	if res.WatcherCreated != nil {
		fmt.Printf("watcher %s monitoring %d node(s)\n", res.WatcherCreated.WatcherID, res.WatcherCreated.Count)
	}
	for _, raw := range res.RawActions {
		fmt.Printf("unhandled action: %s\n", raw)
	}
}

// relatedSummary compacts the row's neighbour buckets into "class:n" pairs.
func relatedSummary(r rows.Row) string {
	var parts []string
	for _, cls := range []graph.Class{graph.ClassSubject, graph.ClassNexus, graph.ClassNarrative, graph.ClassLocation} {
		if n := len(r.Related[string(cls)]); n > 0 {
			parts = append(parts, fmt.Sprintf("%s:%d", cls, n))
		}
	}
	return strings.Join(parts, " ")
}

func tagSummary(r rows.Row) string {
	var labels []string
	for _, t := range r.Tags {
		labels = append(labels, t.Label)
	}
	return strings.Join(labels, ", ")
}

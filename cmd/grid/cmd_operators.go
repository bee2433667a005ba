// Copyright (C) 2026 Zadorian Intelligence (ops@zadorian.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/zadorian/SEARCH-ENGINEER-sub008/services/grid/registry"
)

var operatorsCategory string

var operatorsCmd = &cobra.Command{
	Use:   "operators",
	Short: "List the search operator catalogue",
	RunE:  runOperators,
}

func init() {
	operatorsCmd.Flags().StringVar(&operatorsCategory, "category", "", "filter by category")
	rootCmd.AddCommand(operatorsCmd)
}

func runOperators(cmd *cobra.Command, args []string) error {
	var reg *registry.Registry
	var err error
	if cfg.OperatorCatalogue != "" {
		reg, err = registry.LoadFile(cfg.OperatorCatalogue)
	} else {
		reg, err = registry.Load()
	}
	if err != nil {
		return err
	}

	descriptors := reg.All()
	if operatorsCategory != "" {
		descriptors = reg.ByCategory(operatorsCategory)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("ID", "Category", "Status", "Description")
	for _, d := range descriptors {
		table.Append(d.ID, d.Category, d.Status, d.Description)
	}
	table.Render()
	return nil
}

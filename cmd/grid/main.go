// Copyright (C) 2026 Zadorian Intelligence (ops@zadorian.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/zadorian/SEARCH-ENGINEER-sub008/pkg/logging"
	"github.com/zadorian/SEARCH-ENGINEER-sub008/services/grid/config"
)

var (
	cfg        config.Config
	log        *logging.Logger
	logger     *slog.Logger
	configPath string
	logDir     string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "grid",
	Short: "Investigation grid: query and mutate the knowledge graph",
	Long: `grid runs the investigation grid service: a knowledge graph of
subjects, nexus artifacts, narratives, and locations stored in a search
index and driven by the compact grid command language.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to the config file")
	rootCmd.PersistentFlags().StringVar(&logDir, "log-dir", "", "also write JSON logs to this directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		var err error
		log, err = logging.New(logging.Config{
			Level:   level,
			Service: "grid",
			LogDir:  logDir,
		})
		if err != nil {
			return err
		}
		logger = log.Logger
		slog.SetDefault(logger)

		cfg, err = config.Load(configPath, logger)
		return err
	}

	rootCmd.PersistentPostRun = func(cmd *cobra.Command, args []string) {
		if log != nil {
			log.Close()
		}
	}
}

// Copyright (C) 2026 Zadorian Intelligence (ops@zadorian.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package config loads the grid service configuration from a YAML file with
// environment overrides. Invalid values fall back to defaults with a logged
// warning rather than refusing to start.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Store backend selection values.
const (
	StoreWeaviate = "weaviate"
	StoreLocal    = "local"
)

// Config is the full service configuration.
type Config struct {
	// Port the HTTP API listens on.
	Port int `yaml:"port" validate:"gte=1,lte=65535"`

	// Store selects the node store backend.
	Store string `yaml:"store" validate:"oneof=weaviate local"`

	// StorePath is the on-disk path for the local backend.
	StorePath string `yaml:"store_path"`

	// WeaviateURL is the host:port of the Weaviate instance.
	WeaviateURL string `yaml:"weaviate_url"`

	// WeaviateScheme is http or https.
	WeaviateScheme string `yaml:"weaviate_scheme" validate:"oneof=http https"`

	// Project is the default partition commands run against when the
	// request names none.
	Project string `yaml:"project" validate:"required"`

	// OTLPEndpoint receives traces; empty disables the exporter.
	OTLPEndpoint string `yaml:"otlp_endpoint"`

	// OperatorCatalogue overrides the embedded operator list; empty keeps
	// the embedded one.
	OperatorCatalogue string `yaml:"operator_catalogue"`
}

// Default returns the configuration used when no file or env is present.
func Default() Config {
	return Config{
		Port:           8095,
		Store:          StoreWeaviate,
		StorePath:      "data/grid",
		WeaviateURL:    "localhost:8080",
		WeaviateScheme: "http",
		Project:        "default",
	}
}

// Load reads the file at path (when non-empty and present), applies
// environment overrides, and validates. Fields that fail validation are
// reset to their defaults with a warning.
func Load(path string, logger *slog.Logger) (Config, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(raw, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		case os.IsNotExist(err):
			logger.Warn("config file absent, using defaults", "path", path)
		default:
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	applyEnv(&cfg)
	correct(&cfg, logger)
	return cfg, nil
}

// applyEnv layers environment variables over the file values.
func applyEnv(cfg *Config) {
	if v := os.Getenv("GRID_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Port = p
		}
	}
	if v := os.Getenv("GRID_STORE"); v != "" {
		cfg.Store = v
	}
	if v := os.Getenv("GRID_STORE_PATH"); v != "" {
		cfg.StorePath = v
	}
	if v := os.Getenv("WEAVIATE_SERVICE_URL"); v != "" {
		cfg.WeaviateURL = v
	}
	if v := os.Getenv("WEAVIATE_SCHEME"); v != "" {
		cfg.WeaviateScheme = v
	}
	if v := os.Getenv("GRID_PROJECT"); v != "" {
		cfg.Project = v
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		cfg.OTLPEndpoint = v
	}
	if v := os.Getenv("GRID_OPERATOR_CATALOGUE"); v != "" {
		cfg.OperatorCatalogue = v
	}
}

// correct validates field by field, resetting invalid ones to defaults.
func correct(cfg *Config, logger *slog.Logger) {
	v := validator.New()
	def := Default()

	if err := v.Var(cfg.Port, "gte=1,lte=65535"); err != nil {
		logger.Warn("invalid port, using default", "port", cfg.Port, "default", def.Port)
		cfg.Port = def.Port
	}
	if err := v.Var(cfg.Store, "oneof=weaviate local"); err != nil {
		logger.Warn("invalid store backend, using default", "store", cfg.Store, "default", def.Store)
		cfg.Store = def.Store
	}
	if err := v.Var(cfg.WeaviateScheme, "oneof=http https"); err != nil {
		logger.Warn("invalid weaviate scheme, using default", "scheme", cfg.WeaviateScheme)
		cfg.WeaviateScheme = def.WeaviateScheme
	}
	if cfg.Project == "" {
		logger.Warn("empty project, using default", "default", def.Project)
		cfg.Project = def.Project
	}
	if cfg.Store == StoreLocal && cfg.StorePath == "" {
		cfg.StorePath = def.StorePath
	}
}

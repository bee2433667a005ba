// Copyright (C) 2026 Zadorian Intelligence (ops@zadorian.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"fmt"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/zadorian/SEARCH-ENGINEER-sub008/services/grid/config"
	"github.com/zadorian/SEARCH-ENGINEER-sub008/services/grid/engine"
	"github.com/zadorian/SEARCH-ENGINEER-sub008/services/grid/registry"
	"github.com/zadorian/SEARCH-ENGINEER-sub008/services/grid/store"
)

// buildStore selects and connects the configured node store backend.
func buildStore(ctx context.Context) (store.NodeStore, error) {
	switch cfg.Store {
	case config.StoreLocal:
		s, err := store.NewLocalStore(store.DefaultLocalConfig(cfg.StorePath))
		if err != nil {
			return nil, fmt.Errorf("open local store: %w", err)
		}
		return s, nil

	case config.StoreWeaviate:
		client, err := weaviate.NewClient(weaviate.Config{
			Host:   cfg.WeaviateURL,
			Scheme: cfg.WeaviateScheme,
		})
		if err != nil {
			return nil, fmt.Errorf("connect weaviate: %w", err)
		}
		s := store.NewWeaviateStore(client, logger)
		if err := s.EnsureSchema(ctx, cfg.Project); err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.Store)
}

// buildEngine assembles the engine with its operator catalogue.
func buildEngine(s store.NodeStore) (*engine.Engine, error) {
	var reg *registry.Registry
	var err error
	if cfg.OperatorCatalogue != "" {
		reg, err = registry.LoadFile(cfg.OperatorCatalogue)
	} else {
		reg, err = registry.Load()
	}
	if err != nil {
		return nil, err
	}
	return engine.New(s, reg, logger), nil
}

// initTracing wires the OTLP exporter when an endpoint is configured. The
// returned shutdown flushes pending spans; it is a no-op when disabled.
func initTracing(ctx context.Context) (func(context.Context) error, error) {
	if cfg.OTLPEndpoint == "" {
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("create otlp exporter: %w", err)
	}

	res := resource.NewWithAttributes(
		"",
		attribute.String("service.name", "grid"),
		attribute.String("deployment.environment", "production"),
	)

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return tp.Shutdown, nil
}

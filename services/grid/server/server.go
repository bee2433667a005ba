// Copyright (C) 2026 Zadorian Intelligence (ops@zadorian.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package server exposes the grid engine over HTTP.
package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/zadorian/SEARCH-ENGINEER-sub008/services/grid/engine"
)

// Server routes HTTP requests to the engine.
type Server struct {
	engine         *engine.Engine
	defaultProject string
	logger         *slog.Logger
}

func New(e *engine.Engine, defaultProject string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		engine:         e,
		defaultProject: defaultProject,
		logger:         logger.With(slog.String("component", "server")),
	}
}

// Router builds the gin engine with tracing and recovery middleware.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware("grid"))

	r.GET("/healthz", s.handleHealth)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/v1")
	{
		v1.POST("/grid/execute", s.handleExecute)
		v1.GET("/operators", s.handleOperators)
	}
	return r
}

type executeRequest struct {
	Input   string `json:"input" binding:"required"`
	Project string `json:"project"`
	Limit   int    `json:"limit"`
	Cursor  string `json:"cursor"`

	// ProjectRoot names the partition's root case node for context rows.
	ProjectRoot string `json:"project_root"`
}

// handleExecute runs one grid command. Non-grid input is a 422 so callers
// can fall back to their own handling; store failures are a 502.
func (s *Server) handleExecute(c *gin.Context) {
	var req executeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	project := req.Project
	if project == "" {
		project = s.defaultProject
	}

	res, err := s.engine.Execute(c.Request.Context(), project, req.Input, engine.Options{
		Limit:       req.Limit,
		Cursor:      req.Cursor,
		ProjectRoot: req.ProjectRoot,
	})
	if err != nil {
		if errors.Is(err, engine.ErrNotGridSyntax) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "input is not grid syntax"})
			return
		}
		s.logger.Error("execute failed", "project", project, "error", err)
		// Partial action results still go back to the caller.
		if res != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "partial": res})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, res)
}

// handleOperators lists the operator catalogue, optionally by category.
func (s *Server) handleOperators(c *gin.Context) {
	if cat := c.Query("category"); cat != "" {
		c.JSON(http.StatusOK, gin.H{"operators": s.engine.Registry().ByCategory(cat)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"operators": s.engine.Registry().All()})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

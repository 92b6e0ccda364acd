/*
Copyright (C) 2026 BlessChain Contributors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package server exposes the operator HTTP surface: health, producer
// status, and Prometheus metrics. It carries no chain RPC.
package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/blesschain/blessd/internal/producer"
	"github.com/blesschain/blessd/internal/telemetry"
	"github.com/blesschain/blessd/internal/version"
)

// StatusSource reports the production loop's current snapshot.
type StatusSource interface {
	Status() producer.Status
}

// Server is the ops HTTP server.
type Server struct {
	router chi.Router
	status StatusSource
	chain  string
	logger zerolog.Logger
}

// New builds the ops server.
func New(chainID string, status StatusSource, logger zerolog.Logger) *Server {
	s := &Server{
		status: status,
		chain:  chainID,
		logger: logger.With().Str("component", "ops_server").Logger(),
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(telemetry.MetricsMiddleware)

	r.Get("/healthz", s.handleHealth)
	r.Get("/status", s.handleStatus)
	r.Handle("/metrics", promhttp.Handler())

	s.router = r
	return s
}

// HTTPServer wraps the router in an http.Server for the given address.
func (s *Server) HTTPServer(bind string, port int) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf("%s:%d", bind, port),
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]any{
		"status":  "ok",
		"chain":   s.chain,
		"version": version.Version,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.status.Status())
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Debug().Err(err).Msg("failed to encode response")
	}
}

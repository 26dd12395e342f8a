// Copyright (C) 2025 Logan Ross
//
// This file is part of Redirector.
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api provides the admin HTTP API for inspecting redirect pools.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/loganrossus/redirector/pkg/logging"
)

// ServerConfig contains configuration for the API server.
type ServerConfig struct {
	Address           string
	AllowedNetworks   []string
	TrustProxyHeaders bool
	Logger            *slog.Logger
}

// Server provides the admin HTTP API.
type Server struct {
	config     ServerConfig
	httpServer *http.Server
	logger     *slog.Logger
	handlers   *Handlers
	acl        *ACLMiddleware
}

// NewServer creates a new API server. It fails if an allowed network cannot
// be parsed.
func NewServer(cfg ServerConfig, handlers *Handlers) (*Server, error) {
	if handlers == nil {
		return nil, errors.New("api handlers are required")
	}
	logger := logging.OrDiscard(cfg.Logger)

	acl, err := NewACLMiddleware(cfg.AllowedNetworks, cfg.TrustProxyHeaders, logger)
	if err != nil {
		return nil, err
	}

	return &Server{
		config:   cfg,
		logger:   logger,
		handlers: handlers,
		acl:      acl,
	}, nil
}

// Handler builds the API route table. Liveness, readiness and version are
// open; pool endpoints are behind the ACL.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/v1/live", s.handlers.Live)
	mux.HandleFunc("/api/v1/ready", s.handlers.Ready)
	mux.HandleFunc("/api/v1/version", s.handlers.Version)

	mux.Handle("/api/v1/pools", s.acl.Wrap(http.HandlerFunc(s.handlers.Pools)))
	mux.Handle("/api/v1/pools/{id}", s.acl.Wrap(http.HandlerFunc(s.handlers.Pool)))
	mux.Handle("/api/v1/pools/{id}/preview", s.acl.Wrap(http.HandlerFunc(s.handlers.Preview)))

	return NewLoggingMiddleware(s.logger).Wrap(mux)
}

// Start starts the API server. It blocks until ctx is canceled.
func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         s.config.Address,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting API server",
		"address", s.config.Address,
		"allowed_networks", s.config.AllowedNetworks,
		"trust_proxy_headers", s.config.TrustProxyHeaders,
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("api server error: %w", err)
	}
}

// Shutdown gracefully stops the API server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	s.logger.Info("stopping API server")
	return s.httpServer.Shutdown(ctx)
}

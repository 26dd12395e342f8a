// Copyright (C) 2025 Logan Ross
//
// This file is part of Redirector.
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/loganrossus/redirector/pkg/api"
	"github.com/loganrossus/redirector/pkg/config"
	"github.com/loganrossus/redirector/pkg/metrics"
	"github.com/loganrossus/redirector/pkg/redirect"
	"github.com/loganrossus/redirector/pkg/server"
	"github.com/loganrossus/redirector/pkg/version"
)

// Application manages the lifecycle of all redirector components.
type Application struct {
	config         *config.Config
	registry       *redirect.Registry
	engine         *redirect.Engine
	redirectServer *server.Server
	metricsServer  *metrics.Server
	apiServer      *api.Server
	logger         *slog.Logger
}

// NewApplication creates a new Application instance with pre-loaded configuration.
func NewApplication(cfg *config.Config, logger *slog.Logger) *Application {
	if logger == nil {
		logger = slog.Default()
	}
	return &Application{
		config: cfg,
		logger: logger,
	}
}

// Initialize builds the pool registry and every server from the loaded configuration.
func (a *Application) Initialize() error {
	a.logger.Info("initializing application", "pools", len(a.config.Redirect.Pools))

	metrics.SetAppInfo(version.Version)

	reg, err := a.config.BuildRegistry()
	if err != nil {
		return fmt.Errorf("failed to build pool registry: %w", err)
	}
	a.registry = reg
	metrics.SetConfigMetrics(reg, time.Now())

	for _, p := range reg.Pools() {
		a.logger.Info("pool configured",
			"pool", p.ID(),
			"default", p.IsDefault(),
			"status", p.Status(),
			"algorithm", p.Algorithm(),
			"hosts", len(p.Hosts()),
		)
	}

	a.engine = redirect.NewEngine(reg, a.config.Redirect.PoolIDHeader)
	a.engine.SetObserver(metrics.Observer{})

	if err := a.initializeRedirectServer(); err != nil {
		return fmt.Errorf("failed to initialize redirect server: %w", err)
	}
	if err := a.initializeMetricsServer(); err != nil {
		return fmt.Errorf("failed to initialize metrics server: %w", err)
	}
	if err := a.initializeAPIServer(); err != nil {
		return fmt.Errorf("failed to initialize API server: %w", err)
	}

	a.logger.Info("application initialized successfully")
	return nil
}

func (a *Application) initializeRedirectServer() error {
	srv := a.config.Server

	handler, err := server.NewHandler(server.HandlerConfig{
		Engine:            a.engine,
		TrustProxyHeaders: srv.TrustProxyHeaders,
		RateLimit: server.RateLimit{
			RequestsPerSecond: srv.RateLimit.RequestsPerSecond,
			Burst:             srv.RateLimit.Burst,
		},
		Logger: a.logger.With("component", "redirect"),
	})
	if err != nil {
		return err
	}

	a.redirectServer = server.NewServer(server.ServerConfig{
		Address:      srv.Address(),
		Handler:      handler,
		ReadTimeout:  srv.ReadTimeout,
		WriteTimeout: srv.WriteTimeout,
		IdleTimeout:  srv.IdleTimeout,
		Logger:       a.logger,
	})

	a.logger.Info("redirect server initialized",
		"address", srv.Address(),
		"pool_id_header", a.engine.Header(),
		"rate_limit", srv.RateLimit.Enabled(),
	)
	return nil
}

// initializeMetricsServer creates and configures the metrics server.
func (a *Application) initializeMetricsServer() error {
	if !a.config.Metrics.Enabled {
		a.logger.Info("metrics server disabled")
		return nil
	}

	a.metricsServer = metrics.NewServer(metrics.ServerConfig{
		Address: a.config.Metrics.Address,
		Logger:  a.logger,
	})

	a.logger.Info("metrics server initialized", "address", a.config.Metrics.Address)
	return nil
}

// initializeAPIServer creates and configures the admin API server.
func (a *Application) initializeAPIServer() error {
	if !a.config.API.Enabled {
		a.logger.Info("API server disabled")
		return nil
	}

	handlers := api.NewHandlers(a.engine, &readinessChecker{app: a})

	srv, err := api.NewServer(api.ServerConfig{
		Address:           a.config.API.Address,
		AllowedNetworks:   a.config.API.AllowedNetworks,
		TrustProxyHeaders: a.config.API.TrustProxyHeaders,
		Logger:            a.logger,
	}, handlers)
	if err != nil {
		return fmt.Errorf("failed to create API server: %w", err)
	}
	a.apiServer = srv

	a.logger.Info("API server initialized",
		"address", a.config.API.Address,
		"allowed_networks", a.config.API.AllowedNetworks,
	)
	return nil
}

// Start runs the optional servers in the background and blocks serving
// redirects until ctx is canceled.
func (a *Application) Start(ctx context.Context) error {
	if a.redirectServer == nil {
		return errors.New("application not initialized")
	}

	a.logger.Info("starting application")

	if a.metricsServer != nil {
		go func() {
			if err := a.metricsServer.Start(ctx); err != nil {
				a.logger.Error("metrics server error", "error", err)
			}
		}()
	}

	if a.apiServer != nil {
		go func() {
			if err := a.apiServer.Start(ctx); err != nil {
				a.logger.Error("API server error", "error", err)
			}
		}()
	}

	if err := a.redirectServer.Start(ctx); err != nil {
		return fmt.Errorf("redirect server error: %w", err)
	}
	return nil
}

// Shutdown gracefully stops all application components.
func (a *Application) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down application")

	var errs []error

	if a.apiServer != nil {
		a.logger.Debug("stopping API server")
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := a.apiServer.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("error stopping API server", "error", err)
			errs = append(errs, err)
		}
		cancel()
	}

	if a.redirectServer != nil {
		a.logger.Debug("stopping redirect server")
		if err := a.redirectServer.Shutdown(ctx); err != nil {
			a.logger.Error("error stopping redirect server", "error", err)
			errs = append(errs, err)
		}
	}

	if ctx.Err() != nil {
		a.logger.Warn("shutdown deadline exceeded")
		return ctx.Err()
	}

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

// readinessChecker implements api.ReadinessChecker for the Application.
type readinessChecker struct {
	app *Application
}

// IsReady reports whether redirects are being served.
func (r *readinessChecker) IsReady() bool {
	return r.app.redirectServer != nil && r.app.redirectServer.IsRunning()
}

// Copyright (C) 2025 Logan Ross
//
// This file is part of Redirector.
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package redirect implements the redirect decision engine: pool resolution,
// host selection and redirect loop detection.
package redirect

import (
	"fmt"
	"net/http"
	"time"
)

// DefaultPoolIDHeader selects the pool when no other header name is configured.
const DefaultPoolIDHeader = "X-Redirect-Pool-ID"

// Fallback reasons reported to the Observer.
const (
	FallbackMissing = "missing"
	FallbackUnknown = "unknown"
)

// Request is the normalized view of an inbound request.
// The HTTP method is deliberately absent: decisions never depend on it.
type Request struct {
	Header          http.Header
	Scheme          string
	Host            string
	RawPathAndQuery string // exactly as received, no decoding
}

// Decision is the outcome of a successful redirect decision.
type Decision struct {
	TargetURL string
	Status    int
	Pool      string
	Host      string
}

// Observer receives decision outcomes, typically to record metrics.
type Observer interface {
	ObserveDecision(pool, host string, status int, elapsed time.Duration)
	ObserveLoop(pool string)
	ObserveError(pool string)
	ObserveFallback(reason string)
}

type noopObserver struct{}

func (noopObserver) ObserveDecision(string, string, int, time.Duration) {}
func (noopObserver) ObserveLoop(string)                                 {}
func (noopObserver) ObserveError(string)                                {}
func (noopObserver) ObserveFallback(string)                             {}

// Engine turns requests into redirect decisions.
type Engine struct {
	registry *Registry
	header   string
	observer Observer
}

// NewEngine creates an engine reading the pool id from header.
// An empty header name means DefaultPoolIDHeader.
func NewEngine(registry *Registry, header string) *Engine {
	if header == "" {
		header = DefaultPoolIDHeader
	}
	return &Engine{
		registry: registry,
		header:   http.CanonicalHeaderKey(header),
		observer: noopObserver{},
	}
}

// SetObserver installs an observer. Passing nil disables observation.
func (e *Engine) SetObserver(o Observer) {
	if o == nil {
		o = noopObserver{}
	}
	e.observer = o
}

// Header returns the canonical name of the pool id header.
func (e *Engine) Header() string {
	return e.header
}

// Registry returns the engine's pool registry.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// Decide resolves the request's pool, picks the next host and builds the
// redirect target. Scheme, path and query are preserved byte for byte; only
// the host is replaced.
//
// A *LoopError (matching ErrRedirectLoop) is returned when the picked host is
// the inbound host. Any other error is an internal failure.
func (e *Engine) Decide(req Request) (Decision, error) {
	start := time.Now()

	requested := req.Header.Get(e.header)
	pool := e.registry.Resolve(requested)
	switch {
	case requested == "":
		e.observer.ObserveFallback(FallbackMissing)
	case requested != pool.ID():
		e.observer.ObserveFallback(FallbackUnknown)
	}

	host, status, err := pool.Pick()
	if err != nil {
		e.observer.ObserveError(pool.ID())
		return Decision{}, fmt.Errorf("pool %s: %w", pool.ID(), err)
	}

	if host == req.Host {
		e.observer.ObserveLoop(pool.ID())
		return Decision{}, &LoopError{Pool: pool.ID(), Host: host}
	}

	d := Decision{
		TargetURL: req.Scheme + "://" + host + req.RawPathAndQuery,
		Status:    status,
		Pool:      pool.ID(),
		Host:      host,
	}
	e.observer.ObserveDecision(d.Pool, d.Host, d.Status, time.Since(start))
	return d, nil
}

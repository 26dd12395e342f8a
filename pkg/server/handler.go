// Copyright (C) 2025 Logan Ross
//
// This file is part of Redirector.
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server exposes the redirect engine over HTTP.
package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/loganrossus/redirector/pkg/logging"
	"github.com/loganrossus/redirector/pkg/metrics"
	"github.com/loganrossus/redirector/pkg/redirect"
)

// RequestIDHeader carries the request id. An incoming value is reused,
// otherwise a random UUID is assigned.
const RequestIDHeader = "X-Request-ID"

// RateLimit configures the global token bucket. A zero RequestsPerSecond
// disables it.
type RateLimit struct {
	RequestsPerSecond float64
	Burst             int
}

// Handler answers every request, whatever its method or path, with a redirect
// chosen by the engine.
type Handler struct {
	engine            *redirect.Engine
	limiter           *rate.Limiter
	trustProxyHeaders bool
	logger            *slog.Logger
}

// HandlerConfig contains configuration for the redirect handler.
type HandlerConfig struct {
	Engine *redirect.Engine
	// TrustProxyHeaders makes the redirect scheme follow X-Forwarded-Proto.
	TrustProxyHeaders bool
	RateLimit         RateLimit
	Logger            *slog.Logger
}

// NewHandler creates a new redirect handler.
func NewHandler(cfg HandlerConfig) (*Handler, error) {
	if cfg.Engine == nil {
		return nil, errors.New("redirect engine is required")
	}

	h := &Handler{
		engine:            cfg.Engine,
		trustProxyHeaders: cfg.TrustProxyHeaders,
		logger:            logging.OrDiscard(cfg.Logger),
	}
	if cfg.RateLimit.RequestsPerSecond > 0 {
		burst := cfg.RateLimit.Burst
		if burst < 1 {
			burst = 1
		}
		h.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit.RequestsPerSecond), burst)
	}
	return h, nil
}

var _ http.Handler = (*Handler)(nil)

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	requestID := r.Header.Get(RequestIDHeader)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	w.Header().Set(RequestIDHeader, requestID)

	rw := &statusRecorder{ResponseWriter: w}
	var decision redirect.Decision

	defer func() {
		if rec := recover(); rec != nil {
			h.logger.Error("panic while handling request",
				"request_id", requestID,
				"panic", rec,
			)
			if !rw.wroteHeader {
				writeStatus(rw, http.StatusInternalServerError)
			}
		}
		h.logAccess(r, rw.status(), decision, requestID, time.Since(start))
	}()

	if h.limiter != nil && !h.limiter.Allow() {
		metrics.RecordRateLimited()
		rw.Header().Set("Retry-After", "1")
		writeStatus(rw, http.StatusTooManyRequests)
		return
	}

	var err error
	decision, err = h.engine.Decide(redirect.Request{
		Header:          r.Header,
		Scheme:          h.scheme(r),
		Host:            r.Host,
		RawPathAndQuery: pathAndQuery(r),
	})
	if err != nil {
		var loop *redirect.LoopError
		if errors.As(err, &loop) {
			decision.Pool = loop.Pool
			h.logger.Warn("redirect loop refused",
				"request_id", requestID,
				"pool", loop.Pool,
				"host", loop.Host,
			)
			writeStatus(rw, http.StatusUnprocessableEntity)
			return
		}

		h.logger.Error("redirect decision failed",
			"request_id", requestID,
			"error", err,
		)
		writeStatus(rw, http.StatusInternalServerError)
		return
	}

	rw.Header().Set("Location", decision.TargetURL)
	rw.WriteHeader(decision.Status)
}

func (h *Handler) logAccess(r *http.Request, status int, d redirect.Decision, requestID string, elapsed time.Duration) {
	h.logger.Info("request",
		"request_id", requestID,
		"remote", r.RemoteAddr,
		"method", r.Method,
		"uri", r.RequestURI,
		"status", status,
		"duration_us", elapsed.Microseconds(),
		"pool_header", r.Header.Get(h.engine.Header()),
		"pool", d.Pool,
		"location", d.TargetURL,
		"referer", r.Referer(),
		"user_agent", r.UserAgent(),
	)
}

// scheme returns the scheme the client used to reach us.
func (h *Handler) scheme(r *http.Request) string {
	if h.trustProxyHeaders {
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			proto = strings.ToLower(strings.TrimSpace(strings.Split(proto, ",")[0]))
			if proto == "http" || proto == "https" {
				return proto
			}
		}
	}
	if r.TLS != nil {
		return "https"
	}
	return "http"
}

// pathAndQuery returns the request target as received, so percent-encoding
// and query parameter order survive the redirect.
func pathAndQuery(r *http.Request) string {
	if strings.HasPrefix(r.RequestURI, "/") {
		return r.RequestURI
	}
	// absolute-form or asterisk-form targets
	if r.URL == nil || r.RequestURI == "*" {
		return "/"
	}
	pq := r.URL.RequestURI()
	if !strings.HasPrefix(pq, "/") {
		return "/"
	}
	return pq
}

func writeStatus(w http.ResponseWriter, code int) {
	http.Error(w, http.StatusText(code), code)
}

// statusRecorder wraps http.ResponseWriter to capture the status code.
type statusRecorder struct {
	http.ResponseWriter
	code        int
	wroteHeader bool
}

func (rw *statusRecorder) WriteHeader(code int) {
	if rw.wroteHeader {
		return
	}
	rw.code = code
	rw.wroteHeader = true
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *statusRecorder) Write(b []byte) (int, error) {
	if !rw.wroteHeader {
		rw.WriteHeader(http.StatusOK)
	}
	return rw.ResponseWriter.Write(b)
}

func (rw *statusRecorder) status() int {
	if !rw.wroteHeader {
		return http.StatusOK
	}
	return rw.code
}

// Copyright (C) 2025 Logan Ross
//
// This file is part of Redirector.
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/yl2chen/cidranger"

	"github.com/loganrossus/redirector/pkg/logging"
)

// ACLMiddleware enforces IP-based access control.
type ACLMiddleware struct {
	ranger            cidranger.Ranger
	networks          int
	trustProxyHeaders bool
	logger            *slog.Logger
}

// NewACLMiddleware creates a new ACL middleware. Entries without a prefix
// length are treated as single hosts. An empty list denies everything.
func NewACLMiddleware(networks []string, trustProxy bool, logger *slog.Logger) (*ACLMiddleware, error) {
	ranger := cidranger.NewPCTrieRanger()
	for _, cidr := range networks {
		cidr = strings.TrimSpace(cidr)
		if !strings.Contains(cidr, "/") {
			if strings.Contains(cidr, ":") {
				cidr += "/128"
			} else {
				cidr += "/32"
			}
		}

		_, ipnet, err := net.ParseCIDR(cidr)
		if err != nil {
			return nil, fmt.Errorf("invalid allowed network %q: %w", cidr, err)
		}
		if err := ranger.Insert(cidranger.NewBasicRangerEntry(*ipnet)); err != nil {
			return nil, fmt.Errorf("failed to add network %q: %w", cidr, err)
		}
	}

	return &ACLMiddleware{
		ranger:            ranger,
		networks:          len(networks),
		trustProxyHeaders: trustProxy,
		logger:            logging.OrDiscard(logger),
	}, nil
}

// Wrap returns an http.Handler that enforces the ACL before calling the next handler.
func (m *ACLMiddleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientIP := m.extractClientIP(r)
		if clientIP == nil {
			m.logger.Warn("could not parse client IP",
				"remote_addr", r.RemoteAddr,
				"path", r.URL.Path,
			)
			writeError(w, http.StatusForbidden, "forbidden")
			return
		}

		if !m.isAllowed(clientIP) {
			m.logger.Warn("access denied by ACL",
				"client_ip", clientIP.String(),
				"path", r.URL.Path,
			)
			writeError(w, http.StatusForbidden, "forbidden")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// extractClientIP gets the client IP from the request.
// If trustProxyHeaders is enabled, checks X-Forwarded-For first.
func (m *ACLMiddleware) extractClientIP(r *http.Request) net.IP {
	if m.trustProxyHeaders {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			// first entry is the original client
			first, _, _ := strings.Cut(xff, ",")
			if ip := net.ParseIP(strings.TrimSpace(first)); ip != nil {
				return ip
			}
		}

		if xri := r.Header.Get("X-Real-IP"); xri != "" {
			if ip := net.ParseIP(strings.TrimSpace(xri)); ip != nil {
				return ip
			}
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		// RemoteAddr might not have a port
		return net.ParseIP(r.RemoteAddr)
	}
	return net.ParseIP(host)
}

// isAllowed checks if the IP is in any of the allowed networks.
func (m *ACLMiddleware) isAllowed(ip net.IP) bool {
	// fail closed
	if m.networks == 0 {
		return false
	}
	if v4 := ip.To4(); v4 != nil {
		ip = v4
	}
	ok, err := m.ranger.Contains(ip)
	if err != nil {
		m.logger.Debug("ACL lookup failed", "client_ip", ip.String(), "error", err)
		return false
	}
	return ok
}

// LoggingMiddleware logs API requests.
type LoggingMiddleware struct {
	logger *slog.Logger
}

// NewLoggingMiddleware creates a new logging middleware.
func NewLoggingMiddleware(logger *slog.Logger) *LoggingMiddleware {
	return &LoggingMiddleware{logger: logging.OrDiscard(logger)}
}

// Wrap returns an http.Handler that logs requests.
func (m *LoggingMiddleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Wrap response writer to capture status code
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		m.logger.Debug("api request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.statusCode,
			"duration_ms", time.Since(start).Milliseconds(),
			"remote_addr", r.RemoteAddr,
		)
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

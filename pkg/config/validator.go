// Copyright (C) 2025 Logan Ross
//
// This file is part of Redirector.
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"fmt"
	"math"
	"net"
	"strings"
	"time"

	"github.com/loganrossus/redirector/pkg/routing"
)

// ValidationError contains details about a configuration validation failure.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// Validate checks the configuration for errors and returns a combined error if any are found.
func Validate(cfg *Config) error {
	var errs []error

	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateRedirect(&cfg.Redirect)...)
	errs = append(errs, validateLogging(&cfg.Logging)...)
	errs = append(errs, validateMetrics(&cfg.Metrics)...)
	errs = append(errs, validateAPI(&cfg.API)...)

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Validate is shorthand for Validate(c).
func (c *Config) Validate() error {
	return Validate(c)
}

func validateServer(server *ServerConfig) []error {
	var errs []error

	if server.Port < 1 || server.Port > 65535 {
		errs = append(errs, &ValidationError{
			Field:   "server.port",
			Value:   server.Port,
			Message: "must be between 1 and 65535",
		})
	}
	if strings.ContainsAny(server.Host, " /") {
		errs = append(errs, &ValidationError{
			Field:   "server.host",
			Value:   server.Host,
			Message: "must be an IP address or hostname",
		})
	}

	for _, tc := range []struct {
		field string
		value time.Duration
	}{
		{"server.read_timeout", server.ReadTimeout},
		{"server.write_timeout", server.WriteTimeout},
		{"server.idle_timeout", server.IdleTimeout},
	} {
		if tc.value < 0 {
			errs = append(errs, &ValidationError{
				Field:   tc.field,
				Value:   tc.value,
				Message: "cannot be negative",
			})
		}
	}

	rl := server.RateLimit
	if rl.RequestsPerSecond < 0 {
		errs = append(errs, &ValidationError{
			Field:   "server.rate_limit.requests_per_second",
			Value:   rl.RequestsPerSecond,
			Message: "cannot be negative",
		})
	}
	if rl.Burst < 0 || (rl.Enabled() && rl.Burst == 0) {
		errs = append(errs, &ValidationError{
			Field:   "server.rate_limit.burst",
			Value:   rl.Burst,
			Message: "must be at least 1 when rate limiting is enabled",
		})
	}

	return errs
}

func validateRedirect(rc *RedirectConfig) []error {
	var errs []error

	if !validHeaderName(rc.PoolIDHeader) {
		errs = append(errs, &ValidationError{
			Field:   "redirect.pool_id_header",
			Value:   rc.PoolIDHeader,
			Message: "must be a valid HTTP header name",
		})
	}

	if len(rc.Pools) == 0 {
		errs = append(errs, &ValidationError{
			Field:   "redirect.pools",
			Value:   nil,
			Message: "at least one pool must be defined",
		})
		return errs
	}

	poolIDs := make(map[string]bool)
	var defaults []string
	for i, pool := range rc.Pools {
		prefix := fmt.Sprintf("redirect.pools[%d]", i)
		id := strings.TrimSpace(pool.ID)

		if id == "" {
			errs = append(errs, &ValidationError{
				Field:   prefix + ".id",
				Value:   pool.ID,
				Message: "pool id is required",
			})
		} else if poolIDs[id] {
			errs = append(errs, &ValidationError{
				Field:   prefix + ".id",
				Value:   pool.ID,
				Message: "duplicate pool id",
			})
		}
		poolIDs[id] = true

		if pool.Default {
			defaults = append(defaults, pool.ID)
		}

		if pool.Status <= 300 || pool.Status >= 400 {
			errs = append(errs, &ValidationError{
				Field:   prefix + ".status",
				Value:   pool.Status,
				Message: "must be a redirect status between 301 and 399",
			})
		}

		if _, err := routing.NormalizeAlgorithm(pool.Algorithm); err != nil {
			errs = append(errs, &ValidationError{
				Field:   prefix + ".algorithm",
				Value:   pool.Algorithm,
				Message: "must be one of: " + strings.Join(routing.Algorithms(), ", "),
			})
		}

		errs = append(errs, validateHosts(pool.Hosts, prefix)...)
	}

	switch len(defaults) {
	case 0:
		errs = append(errs, &ValidationError{
			Field:   "redirect.pools",
			Value:   len(rc.Pools),
			Message: "exactly one pool must be marked default",
		})
	case 1:
	default:
		errs = append(errs, &ValidationError{
			Field:   "redirect.pools",
			Value:   strings.Join(defaults, ", "),
			Message: "only one pool may be marked default",
		})
	}

	return errs
}

func validateHosts(hosts HostWeights, prefix string) []error {
	var errs []error

	if len(hosts) == 0 {
		errs = append(errs, &ValidationError{
			Field:   prefix + ".hosts",
			Value:   nil,
			Message: "at least one host must be defined",
		})
		return errs
	}

	seen := make(map[string]bool)
	total, overflow := 0, false
	for j, hw := range hosts {
		hostPrefix := fmt.Sprintf("%s.hosts[%d]", prefix, j)
		host := strings.TrimSpace(hw.Host)

		switch {
		case host == "":
			errs = append(errs, &ValidationError{
				Field:   hostPrefix,
				Value:   hw.Host,
				Message: "host cannot be empty",
			})
		case strings.Contains(host, "://") || strings.ContainsAny(host, "/?# "):
			errs = append(errs, &ValidationError{
				Field:   hostPrefix,
				Value:   hw.Host,
				Message: "must be a bare host or host:port",
			})
		case seen[host]:
			errs = append(errs, &ValidationError{
				Field:   hostPrefix,
				Value:   hw.Host,
				Message: "duplicate host in pool",
			})
		}
		seen[host] = true

		if hw.Weight < 1 {
			errs = append(errs, &ValidationError{
				Field:   hostPrefix + ".weight",
				Value:   hw.Weight,
				Message: "must be a positive integer",
			})
		} else if !overflow {
			if hw.Weight > math.MaxInt-total {
				overflow = true
			} else {
				total += hw.Weight
			}
		}
	}

	if overflow {
		errs = append(errs, &ValidationError{
			Field:   prefix + ".hosts",
			Value:   len(hosts),
			Message: "sum of host weights is too large",
		})
	}

	return errs
}

func validateLogging(logging *LoggingConfig) []error {
	var errs []error

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[logging.Level] {
		errs = append(errs, &ValidationError{
			Field:   "logging.level",
			Value:   logging.Level,
			Message: "must be one of: debug, info, warn, error",
		})
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[logging.Format] {
		errs = append(errs, &ValidationError{
			Field:   "logging.format",
			Value:   logging.Format,
			Message: "must be one of: json, text",
		})
	}

	validOutputs := map[string]bool{"stdout": true, "stderr": true, "discard": true}
	if !validOutputs[logging.Output] {
		errs = append(errs, &ValidationError{
			Field:   "logging.output",
			Value:   logging.Output,
			Message: "must be one of: stdout, stderr, discard",
		})
	}

	return errs
}

func validateMetrics(metrics *MetricsConfig) []error {
	if !metrics.Enabled {
		return nil
	}
	if _, _, err := net.SplitHostPort(metrics.Address); err != nil {
		return []error{&ValidationError{
			Field:   "metrics.address",
			Value:   metrics.Address,
			Message: fmt.Sprintf("invalid address format: %v", err),
		}}
	}
	return nil
}

func validateAPI(api *APIConfig) []error {
	if !api.Enabled {
		return nil
	}

	var errs []error
	if _, _, err := net.SplitHostPort(api.Address); err != nil {
		errs = append(errs, &ValidationError{
			Field:   "api.address",
			Value:   api.Address,
			Message: fmt.Sprintf("invalid address format: %v", err),
		})
	}
	for i, network := range api.AllowedNetworks {
		if _, err := parseNetwork(network); err != nil {
			errs = append(errs, &ValidationError{
				Field:   fmt.Sprintf("api.allowed_networks[%d]", i),
				Value:   network,
				Message: "must be a CIDR or IP address",
			})
		}
	}
	return errs
}

// parseNetwork accepts a CIDR or a bare IP, which is treated as a host route.
func parseNetwork(s string) (*net.IPNet, error) {
	if _, ipNet, err := net.ParseCIDR(s); err == nil {
		return ipNet, nil
	}
	ip := net.ParseIP(s)
	if ip == nil {
		return nil, fmt.Errorf("invalid network %q", s)
	}
	bits := 128
	if ip.To4() != nil {
		ip = ip.To4()
		bits = 32
	}
	return &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)}, nil
}

// validHeaderName reports whether name is an RFC 7230 token.
func validHeaderName(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case strings.IndexByte("!#$%&'*+-.^_`|~", c) >= 0:
		default:
			return false
		}
	}
	return true
}

// Copyright (C) 2025 Logan Ross
//
// This file is part of Redirector.
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and validation for Redirector.
package config

import (
	"net"
	"strconv"
	"time"
)

// Config is the root configuration structure for Redirector.
type Config struct {
	// Includes lists glob patterns of additional files contributing pools.
	Includes []string       `yaml:"includes"`
	Server   ServerConfig   `yaml:"server"`
	Redirect RedirectConfig `yaml:"redirect"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	API      APIConfig      `yaml:"api"`
}

// ServerConfig defines the redirect listener.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`

	// TrustProxyHeaders makes the scheme follow X-Forwarded-Proto.
	TrustProxyHeaders bool `yaml:"trust_proxy_headers"`

	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// Address returns the host:port the redirect server listens on.
func (s ServerConfig) Address() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// RateLimitConfig configures the optional global token bucket.
// A zero RequestsPerSecond disables rate limiting.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// Enabled reports whether rate limiting is configured.
func (r RateLimitConfig) Enabled() bool {
	return r.RequestsPerSecond > 0
}

// RedirectConfig defines the redirect pools and how requests select them.
type RedirectConfig struct {
	PoolIDHeader string       `yaml:"pool_id_header"`
	Pools        []PoolConfig `yaml:"pools"`
}

// PoolConfig defines one redirect pool.
type PoolConfig struct {
	ID        string      `yaml:"id"`
	Hosts     HostWeights `yaml:"hosts"`
	Status    int         `yaml:"status"`
	Default   bool        `yaml:"default"`
	Algorithm string      `yaml:"algorithm"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// MetricsConfig defines Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

// APIConfig defines the admin HTTP API settings.
type APIConfig struct {
	Enabled           bool     `yaml:"enabled"`
	Address           string   `yaml:"address"`
	AllowedNetworks   []string `yaml:"allowed_networks"`
	TrustProxyHeaders bool     `yaml:"trust_proxy_headers"`
}

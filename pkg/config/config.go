// Copyright (C) 2025 Logan Ross
//
// This file is part of Redirector.
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/loganrossus/redirector/pkg/redirect"
	"github.com/loganrossus/redirector/pkg/routing"
)

// Default configuration values.
const (
	DefaultConfigPath = "/etc/redirector/config.yaml"

	// Server defaults
	DefaultServerHost   = "0.0.0.0"
	DefaultServerPort   = 8080
	DefaultReadTimeout  = 5 * time.Second
	DefaultWriteTimeout = 10 * time.Second
	DefaultIdleTimeout  = 60 * time.Second

	// Redirect defaults
	DefaultPoolIDHeader = redirect.DefaultPoolIDHeader
	DefaultPoolStatus   = redirect.DefaultStatus
	DefaultAlgorithm    = routing.DefaultAlgorithm

	// Logging defaults
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
	DefaultLogOutput = "stdout"

	// Metrics defaults
	DefaultMetricsAddress = ":9090"

	// API defaults
	DefaultAPIAddress = "127.0.0.1:8081"
)

// Environment variables consulted by Load.
const (
	EnvConfigPath   = "REDIRECT_CONFIG_PATH"
	EnvServerHost   = "REDIRECT_SERVER_HOST"
	EnvServerPort   = "REDIRECT_SERVER_PORT"
	EnvPoolIDHeader = "REDIRECT_POOL_ID_HEADER"
)

// DefaultAPIAllowedNetworks defines the default networks allowed to access the API.
var DefaultAPIAllowedNetworks = []string{"127.0.0.1/32", "::1/128"}

// ResolvePath picks the configuration file path. An explicit flag value wins,
// then the REDIRECT_CONFIG_PATH environment variable, then DefaultConfigPath.
func ResolvePath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return p
	}
	return DefaultConfigPath
}

// Load reads a configuration file, merges its includes, applies environment
// overrides and fills in defaults. The result is not validated.
func Load(path string) (*Config, error) {
	cfg, _, err := LoadWithIncludes(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := ApplyEnvOverrides(cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse parses configuration from YAML bytes. Includes are not processed.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

// ApplyEnvOverrides overrides listener and header settings from the
// environment. lookup is normally os.LookupEnv.
func ApplyEnvOverrides(cfg *Config, lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvServerHost); ok && strings.TrimSpace(v) != "" {
		cfg.Server.Host = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvServerPort); ok && strings.TrimSpace(v) != "" {
		port, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return &ValidationError{
				Field:   EnvServerPort,
				Value:   v,
				Message: "must be an integer",
			}
		}
		cfg.Server.Port = port
	}
	if v, ok := lookup(EnvPoolIDHeader); ok && strings.TrimSpace(v) != "" {
		cfg.Redirect.PoolIDHeader = strings.TrimSpace(v)
	}
	return nil
}

// PoolConfigs converts the configured pools for redirect.BuildRegistry.
func (c *Config) PoolConfigs() []redirect.PoolConfig {
	out := make([]redirect.PoolConfig, len(c.Redirect.Pools))
	for i, p := range c.Redirect.Pools {
		out[i] = redirect.PoolConfig{
			ID:        p.ID,
			Hosts:     p.Hosts.Routing(),
			Status:    p.Status,
			Default:   p.Default,
			Algorithm: p.Algorithm,
		}
	}
	return out
}

// BuildRegistry builds the pool registry described by the configuration.
func (c *Config) BuildRegistry() (*redirect.Registry, error) {
	return redirect.BuildRegistry(c.PoolConfigs())
}

func applyDefaults(cfg *Config) {
	// Server defaults
	if cfg.Server.Host == "" {
		cfg.Server.Host = DefaultServerHost
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.RateLimit.Enabled() && cfg.Server.RateLimit.Burst == 0 {
		cfg.Server.RateLimit.Burst = int(cfg.Server.RateLimit.RequestsPerSecond) + 1
	}

	// Redirect defaults
	if cfg.Redirect.PoolIDHeader == "" {
		cfg.Redirect.PoolIDHeader = DefaultPoolIDHeader
	}
	for i := range cfg.Redirect.Pools {
		pool := &cfg.Redirect.Pools[i]
		if pool.Status == 0 {
			pool.Status = DefaultPoolStatus
		}
		if pool.Algorithm == "" {
			pool.Algorithm = DefaultAlgorithm
		}
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLogLevel
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = DefaultLogFormat
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = DefaultLogOutput
	}

	// Metrics defaults
	if cfg.Metrics.Address == "" {
		cfg.Metrics.Address = DefaultMetricsAddress
	}

	// API defaults
	if cfg.API.Address == "" {
		cfg.API.Address = DefaultAPIAddress
	}
	if len(cfg.API.AllowedNetworks) == 0 {
		cfg.API.AllowedNetworks = append([]string(nil), DefaultAPIAllowedNetworks...)
	}
}

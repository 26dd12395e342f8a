// Copyright (C) 2025 Logan Ross
//
// This file is part of Redirector.
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package redirect

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/loganrossus/redirector/pkg/routing"
)

// DefaultStatus is the redirect status used when a pool does not set one.
const DefaultStatus = http.StatusFound

// PoolConfig describes a redirect pool.
type PoolConfig struct {
	ID        string
	Hosts     []routing.WeightedHost
	Status    int    // 0 means DefaultStatus
	Default   bool   // exactly one pool per registry
	Algorithm string // empty means routing.DefaultAlgorithm
}

// Pool is a named set of weighted hosts sharing a redirect status.
// Its configuration never changes after construction; the only mutable
// state is the selector cursor, guarded by mu.
type Pool struct {
	id        string
	hosts     []routing.WeightedHost
	status    int
	isDefault bool

	mu       sync.Mutex
	selector routing.Selector
}

// NewPool validates cfg and creates a pool with the selector named by cfg.Algorithm.
func NewPool(cfg PoolConfig) (*Pool, error) {
	if err := validatePoolConfig(&cfg); err != nil {
		return nil, err
	}

	selector, err := routing.NewSelector(cfg.Algorithm, cfg.Hosts)
	if err != nil {
		return nil, &ConfigError{Field: poolField(cfg.ID, "hosts"), Value: cfg.Hosts, Err: err}
	}
	return newPool(cfg, selector), nil
}

// NewPoolWithSelector creates a pool that delegates selection to selector.
// cfg.Algorithm is ignored. The caller must not use selector elsewhere.
func NewPoolWithSelector(cfg PoolConfig, selector routing.Selector) (*Pool, error) {
	if selector == nil {
		return nil, &ConfigError{Field: poolField(cfg.ID, "selector"), Value: nil, Err: errors.New("selector cannot be nil")}
	}
	if err := validatePoolConfig(&cfg); err != nil {
		return nil, err
	}
	return newPool(cfg, selector), nil
}

func newPool(cfg PoolConfig, selector routing.Selector) *Pool {
	hosts := make([]routing.WeightedHost, len(cfg.Hosts))
	copy(hosts, cfg.Hosts)
	return &Pool{
		id:        cfg.ID,
		hosts:     hosts,
		status:    cfg.Status,
		isDefault: cfg.Default,
		selector:  selector,
	}
}

// validatePoolConfig checks pool-level invariants and applies the default status.
func validatePoolConfig(cfg *PoolConfig) error {
	cfg.ID = strings.TrimSpace(cfg.ID)
	if cfg.ID == "" {
		return &ConfigError{Field: "pool.id", Value: cfg.ID, Err: ErrEmptyPoolID}
	}
	if len(cfg.Hosts) == 0 {
		return &ConfigError{Field: poolField(cfg.ID, "hosts"), Value: nil, Err: routing.ErrNoHosts}
	}
	if cfg.Status == 0 {
		cfg.Status = DefaultStatus
	}
	if cfg.Status <= 300 || cfg.Status >= 400 {
		return &ConfigError{Field: poolField(cfg.ID, "status"), Value: cfg.Status, Err: ErrInvalidStatus}
	}
	return nil
}

func poolField(id, field string) string {
	return fmt.Sprintf("pools[%s].%s", id, field)
}

// Pick returns the next target host and the pool's redirect status.
// Calls are serialized per pool so concurrent requests cannot corrupt the
// selector's fairness state.
func (p *Pool) Pick() (string, int, error) {
	host, err := p.next()
	if err != nil {
		return "", 0, err
	}
	if host == "" {
		return "", 0, fmt.Errorf("%w: selector returned an empty host", ErrSelectorFailed)
	}
	return host, p.status, nil
}

func (p *Pool) next() (host string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrSelectorFailed, r)
		}
	}()

	host, err = p.selector.Next()
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrSelectorFailed, err)
	}
	return host, nil
}

// ID returns the pool identifier.
func (p *Pool) ID() string { return p.id }

// Status returns the redirect status code.
func (p *Pool) Status() int { return p.status }

// IsDefault reports whether this is the registry's fallback pool.
func (p *Pool) IsDefault() bool { return p.isDefault }

// Algorithm returns the selector's algorithm name.
func (p *Pool) Algorithm() string { return p.selector.Algorithm() }

// Hosts returns a copy of the configured hosts in configuration order.
func (p *Pool) Hosts() []routing.WeightedHost {
	out := make([]routing.WeightedHost, len(p.hosts))
	copy(out, p.hosts)
	return out
}

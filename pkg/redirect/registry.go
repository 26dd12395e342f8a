// Copyright (C) 2025 Logan Ross
//
// This file is part of Redirector.
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package redirect

import (
	"errors"
	"fmt"
)

// Registry maps pool identifiers to pools. It is built once and is read-only
// afterwards, so lookups need no locking.
type Registry struct {
	pools    map[string]*Pool
	ordered  []*Pool
	fallback *Pool
}

// NewRegistry creates a registry from already constructed pools.
// Exactly one pool must be marked as default and pool ids must be unique.
// All problems are reported together.
func NewRegistry(pools ...*Pool) (*Registry, error) {
	var errs []error

	reg := &Registry{
		pools: make(map[string]*Pool, len(pools)),
	}

	var defaults []string
	for i, p := range pools {
		if p == nil {
			errs = append(errs, &ConfigError{Field: fmt.Sprintf("pools[%d]", i), Value: nil, Err: errors.New("pool cannot be nil")})
			continue
		}
		if _, dup := reg.pools[p.id]; dup {
			errs = append(errs, &ConfigError{Field: poolField(p.id, "id"), Value: p.id, Err: ErrDuplicatePoolID})
			continue
		}
		reg.pools[p.id] = p
		reg.ordered = append(reg.ordered, p)
		if p.isDefault {
			defaults = append(defaults, p.id)
		}
	}

	switch len(defaults) {
	case 0:
		errs = append(errs, &ConfigError{Field: "pools", Value: nil, Err: ErrNoDefaultPool})
	case 1:
		reg.fallback = reg.pools[defaults[0]]
	default:
		errs = append(errs, &ConfigError{Field: "pools", Value: defaults, Err: ErrMultipleDefaultPools})
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return reg, nil
}

// BuildRegistry constructs every pool from cfgs and then the registry.
// Errors from all pools are joined so a bad configuration is reported in full.
func BuildRegistry(cfgs []PoolConfig) (*Registry, error) {
	var errs []error
	pools := make([]*Pool, 0, len(cfgs))
	for _, cfg := range cfgs {
		p, err := NewPool(cfg)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		pools = append(pools, p)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return NewRegistry(pools...)
}

// Resolve returns the pool registered under id. A missing (empty) or unknown
// id resolves to the default pool; both cases follow the same rule.
func (r *Registry) Resolve(id string) *Pool {
	if p, ok := r.pools[id]; ok {
		return p
	}
	return r.fallback
}

// Lookup returns the pool registered under id without falling back.
func (r *Registry) Lookup(id string) (*Pool, bool) {
	p, ok := r.pools[id]
	return p, ok
}

// Default returns the default pool.
func (r *Registry) Default() *Pool {
	return r.fallback
}

// Pools returns all pools in registration order.
func (r *Registry) Pools() []*Pool {
	out := make([]*Pool, len(r.ordered))
	copy(out, r.ordered)
	return out
}

// Len returns the number of pools.
func (r *Registry) Len() int {
	return len(r.ordered)
}

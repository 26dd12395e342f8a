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

// Configuration errors reported while building pools and the registry.
var (
	ErrEmptyPoolID          = errors.New("pool id cannot be empty")
	ErrDuplicatePoolID      = errors.New("duplicate pool id")
	ErrInvalidStatus        = errors.New("redirect status must be between 301 and 399")
	ErrNoDefaultPool        = errors.New("no default pool configured")
	ErrMultipleDefaultPools = errors.New("more than one default pool configured")
)

// ErrSelectorFailed wraps failures raised by a pool's selector.
var ErrSelectorFailed = errors.New("host selector failed")

// ErrRedirectLoop is matched by every *LoopError.
var ErrRedirectLoop = errors.New("redirect loop detected")

// ConfigError describes an invalid pool or registry configuration.
// It is only ever returned at construction time.
type ConfigError struct {
	Field string
	Value any
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid redirect configuration for %s: %v (got: %v)", e.Field, e.Err, e.Value)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// LoopError is returned by Engine.Decide when the selected host is the host
// the inbound request was addressed to.
type LoopError struct {
	Pool string
	Host string
}

func (e *LoopError) Error() string {
	return fmt.Sprintf("redirect loop detected: pool %q selected inbound host %q", e.Pool, e.Host)
}

// Is reports whether target is ErrRedirectLoop.
func (e *LoopError) Is(target error) bool {
	return target == ErrRedirectLoop
}

// Copyright (C) 2025 Logan Ross
//
// This file is part of Redirector.
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package routing implements the host selection strategies used by redirect pools.
package routing

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Construction errors. A selector that was built successfully never fails these checks at call time.
var (
	ErrNoHosts        = errors.New("no hosts configured")
	ErrEmptyHost      = errors.New("host cannot be empty")
	ErrInvalidWeight  = errors.New("host weight must be positive")
	ErrWeightOverflow = errors.New("sum of host weights overflows int")
)

// WeightedHost is a redirect destination together with its relative weight.
type WeightedHost struct {
	Host   string
	Weight int
}

// Selector picks the next destination host from a fixed list of hosts.
//
// Implementations keep mutable cursor state and are not safe for concurrent
// use. Callers sharing a Selector between goroutines must serialize calls to
// Next; redirect.Pool does this with a per-pool mutex.
type Selector interface {
	// Next returns the host to use for the next redirect.
	Next() (string, error)

	// Algorithm returns the name of the selection algorithm.
	Algorithm() string
}

// validateHosts checks the invariants shared by every selector.
func validateHosts(hosts []WeightedHost) error {
	if len(hosts) == 0 {
		return ErrNoHosts
	}
	total := 0
	for i, h := range hosts {
		if strings.TrimSpace(h.Host) == "" {
			return fmt.Errorf("hosts[%d]: %w", i, ErrEmptyHost)
		}
		if h.Weight < 1 {
			return fmt.Errorf("hosts[%d] %q: %w (got: %d)", i, h.Host, ErrInvalidWeight, h.Weight)
		}
		if h.Weight > math.MaxInt-total {
			return fmt.Errorf("hosts[%d] %q: %w", i, h.Host, ErrWeightOverflow)
		}
		total += h.Weight
	}
	return nil
}

// TotalWeight returns the sum of all host weights. It does not check for
// overflow; selectors reject such host lists at construction.
func TotalWeight(hosts []WeightedHost) int {
	total := 0
	for _, h := range hosts {
		total += h.Weight
	}
	return total
}

func copyHosts(hosts []WeightedHost) []WeightedHost {
	out := make([]WeightedHost, len(hosts))
	copy(out, hosts)
	return out
}

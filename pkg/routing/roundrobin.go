// Copyright (C) 2025 Logan Ross
//
// This file is part of Redirector.
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package routing

// Ensure RoundRobin implements Selector.
var _ Selector = (*RoundRobin)(nil)

// RoundRobin rotates through hosts in configured order, ignoring weights.
type RoundRobin struct {
	hosts []string
	next  int
}

// NewRoundRobin creates a round-robin selector.
// Weights are still validated so that a pool can switch algorithms without
// changing its host list.
func NewRoundRobin(hosts []WeightedHost) (*RoundRobin, error) {
	if err := validateHosts(hosts); err != nil {
		return nil, err
	}
	names := make([]string, len(hosts))
	for i, h := range hosts {
		names[i] = h.Host
	}
	return &RoundRobin{hosts: names}, nil
}

// Next returns the next host, wrapping around after the last one.
func (r *RoundRobin) Next() (string, error) {
	host := r.hosts[r.next]
	r.next = (r.next + 1) % len(r.hosts)
	return host, nil
}

// Algorithm returns the algorithm name.
func (r *RoundRobin) Algorithm() string {
	return AlgorithmRoundRobin
}

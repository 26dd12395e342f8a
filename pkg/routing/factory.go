// Copyright (C) 2025 Logan Ross
//
// This file is part of Redirector.
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package routing

import (
	"fmt"
	"strings"
	"time"
)

// Algorithm names.
const (
	AlgorithmSmoothWeighted = "smooth-weighted"
	AlgorithmRoundRobin     = "round-robin"
	AlgorithmWeightedRandom = "weighted-random"
)

// DefaultAlgorithm is used when a pool does not name one.
const DefaultAlgorithm = AlgorithmSmoothWeighted

// Algorithms returns the canonical names of all supported algorithms.
func Algorithms() []string {
	return []string{
		AlgorithmSmoothWeighted,
		AlgorithmRoundRobin,
		AlgorithmWeightedRandom,
	}
}

// NormalizeAlgorithm maps an algorithm name or alias to its canonical name.
// An empty name resolves to DefaultAlgorithm.
func NormalizeAlgorithm(algorithm string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(algorithm)) {
	case "", AlgorithmSmoothWeighted, "swrr", "weighted-round-robin":
		return AlgorithmSmoothWeighted, nil
	case AlgorithmRoundRobin, "roundrobin", "rr":
		return AlgorithmRoundRobin, nil
	case AlgorithmWeightedRandom, "random":
		return AlgorithmWeightedRandom, nil
	default:
		return "", fmt.Errorf("unknown selection algorithm: %s", algorithm)
	}
}

// NewSelector creates a selector for the named algorithm over hosts.
// Supported algorithms: smooth-weighted, round-robin, weighted-random.
func NewSelector(algorithm string, hosts []WeightedHost) (Selector, error) {
	name, err := NormalizeAlgorithm(algorithm)
	if err != nil {
		return nil, err
	}
	// Validate up front so no branch below returns a typed nil Selector.
	if err := validateHosts(hosts); err != nil {
		return nil, err
	}

	switch name {
	case AlgorithmRoundRobin:
		return NewRoundRobin(hosts)
	case AlgorithmWeightedRandom:
		return NewWeightedRandom(hosts, time.Now().UnixNano())
	default:
		return NewSmoothWeighted(hosts)
	}
}

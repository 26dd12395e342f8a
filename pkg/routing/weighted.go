// Copyright (C) 2025 Logan Ross
//
// This file is part of Redirector.
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package routing

import (
	"math/rand"
)

// Ensure WeightedRandom implements Selector.
var _ Selector = (*WeightedRandom)(nil)

// WeightedRandom picks hosts at random with probability proportional to weight.
// Unlike SmoothWeighted it gives no exact distribution over a finite run.
type WeightedRandom struct {
	hosts []WeightedHost
	total int
	rand  *rand.Rand
}

// NewWeightedRandom creates a weighted random selector seeded with seed.
func NewWeightedRandom(hosts []WeightedHost, seed int64) (*WeightedRandom, error) {
	if err := validateHosts(hosts); err != nil {
		return nil, err
	}
	return &WeightedRandom{
		hosts: copyHosts(hosts),
		total: TotalWeight(hosts),
		rand:  rand.New(rand.NewSource(seed)),
	}, nil
}

// Next selects a random point in weight space and returns the host covering it.
func (w *WeightedRandom) Next() (string, error) {
	point := w.rand.Intn(w.total)

	cumulative := 0
	for _, h := range w.hosts {
		cumulative += h.Weight
		if point < cumulative {
			return h.Host, nil
		}
	}

	// Unreachable while total equals the sum of weights.
	return w.hosts[len(w.hosts)-1].Host, nil
}

// Algorithm returns the algorithm name.
func (w *WeightedRandom) Algorithm() string {
	return AlgorithmWeightedRandom
}

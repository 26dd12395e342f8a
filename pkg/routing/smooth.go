// Copyright (C) 2025 Logan Ross
//
// This file is part of Redirector.
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package routing

// Ensure SmoothWeighted implements Selector.
var _ Selector = (*SmoothWeighted)(nil)

// SmoothWeighted implements smooth weighted round-robin selection.
//
// Every call adds each host's weight to its current weight, picks the host
// with the highest current weight and subtracts the total weight from it.
// Over any run of TotalWeight calls each host is picked exactly Weight times,
// and picks of the same host are interleaved rather than batched: weights
// 2:1 yield A, B, A rather than A, A, B.
//
// Ties go to the host listed first, so the sequence is fully determined by
// the configured host order.
//
//	a  b  c   (weights 5, 1, 1; total 7)
//	5  1  1   a selected -> -2  1  1
//	3  2  2   a selected -> -4  2  2
//	1  3  3   b selected ->  1 -4  3
//	6 -3  4   a selected -> -1 -3  4
//	4 -2  5   c selected ->  4 -2 -2
//	9 -1 -1   a selected ->  2 -1 -1
//	7  0  0   a selected ->  0  0  0
type SmoothWeighted struct {
	hosts   []WeightedHost
	current []int
	total   int
}

// NewSmoothWeighted creates a smooth weighted round-robin selector.
// Returns ErrNoHosts for an empty list, ErrInvalidWeight for any weight below 1
// and ErrWeightOverflow when the weights do not sum to a valid int.
func NewSmoothWeighted(hosts []WeightedHost) (*SmoothWeighted, error) {
	if err := validateHosts(hosts); err != nil {
		return nil, err
	}
	return &SmoothWeighted{
		hosts:   copyHosts(hosts),
		current: make([]int, len(hosts)),
		total:   TotalWeight(hosts),
	}, nil
}

// Next returns the next host in the smooth weighted sequence.
func (s *SmoothWeighted) Next() (string, error) {
	best := 0
	for i, h := range s.hosts {
		s.current[i] += h.Weight
		if s.current[i] > s.current[best] {
			best = i
		}
	}
	s.current[best] -= s.total
	return s.hosts[best].Host, nil
}

// Algorithm returns the algorithm name.
func (s *SmoothWeighted) Algorithm() string {
	return AlgorithmSmoothWeighted
}

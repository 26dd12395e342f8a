// Copyright (C) 2025 Logan Ross
//
// This file is part of Redirector.
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/loganrossus/redirector/pkg/routing"
)

// HostWeight is a single host entry of a pool.
type HostWeight struct {
	Host   string `yaml:"host"`
	Weight int    `yaml:"weight"`
}

// HostWeights is an ordered list of pool hosts.
//
// In YAML it is written either as a mapping of host to weight or as a list of
// {host, weight} entries. Document order is kept in both forms because
// selection tie-breaks follow configuration order, which a Go map would lose.
type HostWeights []HostWeight

// UnmarshalYAML decodes the mapping or list form.
func (h *HostWeights) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.MappingNode:
		out := make(HostWeights, 0, len(value.Content)/2)
		for i := 0; i+1 < len(value.Content); i += 2 {
			keyNode, valNode := value.Content[i], value.Content[i+1]

			var hw HostWeight
			if err := keyNode.Decode(&hw.Host); err != nil {
				return fmt.Errorf("line %d: host: %w", keyNode.Line, err)
			}
			if err := valNode.Decode(&hw.Weight); err != nil {
				return fmt.Errorf("line %d: weight for host %q: %w", valNode.Line, hw.Host, err)
			}
			out = append(out, hw)
		}
		*h = out
		return nil

	case yaml.SequenceNode:
		var list []HostWeight
		if err := value.Decode(&list); err != nil {
			return err
		}
		*h = HostWeights(list)
		return nil

	default:
		return fmt.Errorf("line %d: hosts must be a mapping of host to weight or a list of {host, weight}", value.Line)
	}
}

// MarshalYAML writes the mapping form, preserving order.
func (h HostWeights) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, hw := range h {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: hw.Host},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: fmt.Sprint(hw.Weight)},
		)
	}
	return node, nil
}

// Routing converts the entries for the routing package.
func (h HostWeights) Routing() []routing.WeightedHost {
	out := make([]routing.WeightedHost, len(h))
	for i, hw := range h {
		out[i] = routing.WeightedHost{Host: hw.Host, Weight: hw.Weight}
	}
	return out
}

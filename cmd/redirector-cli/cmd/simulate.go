// Copyright (C) 2025 Logan Ross
//
// This file is part of Redirector.
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/loganrossus/redirector/cmd/redirector-cli/output"
	"github.com/loganrossus/redirector/pkg/routing"
	"github.com/spf13/cobra"
)

// maxSequenceDisplay caps how many picks the table output lists one by one.
const maxSequenceDisplay = 50

// HostCount is the number of picks one host received in a simulation.
type HostCount struct {
	Host     string  `json:"host"`
	Weight   int     `json:"weight"`
	Picks    int     `json:"picks"`
	Share    float64 `json:"share_percent"`
	Expected float64 `json:"expected_percent"`
}

// SimulationResult is the output of the simulate command.
type SimulationResult struct {
	RequestedPool string      `json:"requested_pool"`
	Pool          string      `json:"pool"`
	FellBack      bool        `json:"fell_back"`
	Algorithm     string      `json:"algorithm"`
	Status        int         `json:"status"`
	Count         int         `json:"count"`
	Sequence      []string    `json:"sequence"`
	Distribution  []HostCount `json:"distribution"`
}

func newSimulateCmd(opts *globalOptions) *cobra.Command {
	var (
		configFile string
		poolID     string
		count      int
	)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Simulate pool selection locally",
		Long: `Build the pools from a configuration file and run the selection for one
pool without starting a server. A missing or unknown --pool resolves to the
default pool, the same way a request without a known pool id header does.`,
		Example: `  redirector-cli simulate -c ./config.yaml --pool test-pool-a -n 12`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if count < 1 {
				return fmt.Errorf("--count must be at least 1, got %d", count)
			}

			_, reg, err := loadRegistry(configFile)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			_, known := reg.Lookup(poolID)
			pool := reg.Resolve(poolID)

			result := SimulationResult{
				RequestedPool: poolID,
				Pool:          pool.ID(),
				FellBack:      !known,
				Algorithm:     pool.Algorithm(),
				Status:        pool.Status(),
				Count:         count,
				Sequence:      make([]string, 0, count),
			}

			picks := make(map[string]int)
			for i := 0; i < count; i++ {
				host, _, err := pool.Pick()
				if err != nil {
					return fmt.Errorf("selection %d failed: %w", i+1, err)
				}
				result.Sequence = append(result.Sequence, host)
				picks[host]++
			}

			hosts := pool.Hosts()
			total := routing.TotalWeight(hosts)
			for _, h := range hosts {
				result.Distribution = append(result.Distribution, HostCount{
					Host:     h.Host,
					Weight:   h.Weight,
					Picks:    picks[h.Host],
					Share:    percent(picks[h.Host], count),
					Expected: percent(h.Weight, total),
				})
			}

			if opts.jsonOutput {
				return opts.out.JSON(result)
			}

			poolDesc := result.Pool
			if result.FellBack {
				poolDesc += " (default)"
			}
			seq := result.Sequence
			if len(seq) > maxSequenceDisplay {
				seq = append(seq[:maxSequenceDisplay:maxSequenceDisplay], "...")
			}
			opts.out.Fields([]output.Field{
				{Key: "Pool", Value: poolDesc},
				{Key: "Algorithm", Value: result.Algorithm},
				{Key: "Status", Value: strconv.Itoa(result.Status)},
				{Key: "Sequence", Value: strings.Join(seq, " ")},
			})
			opts.out.Line("")

			rows := make([][]string, 0, len(result.Distribution))
			for _, d := range result.Distribution {
				rows = append(rows, []string{
					d.Host,
					strconv.Itoa(d.Weight),
					strconv.Itoa(d.Picks),
					output.Percent(d.Share),
					output.Percent(d.Expected),
				})
			}
			opts.out.Table([]string{"HOST", "WEIGHT", "PICKS", "SHARE", "EXPECTED"}, rows)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configFile, "config", "c", "", "path to configuration file (required)")
	cmd.Flags().StringVarP(&poolID, "pool", "p", "", "pool id to simulate (default pool when empty or unknown)")
	cmd.Flags().IntVarP(&count, "count", "n", 12, "number of selections to run")
	_ = cmd.MarkFlagRequired("config")
	return cmd
}

func percent(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) * 100 / float64(whole)
}

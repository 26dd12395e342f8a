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
	"github.com/loganrossus/redirector/pkg/api"
	"github.com/spf13/cobra"
)

func newPoolsCmd(opts *globalOptions) *cobra.Command {
	poolsCmd := &cobra.Command{
		Use:   "pools",
		Short: "Inspect redirect pools",
		Long:  `Inspect the redirect pools served by a running redirector via the admin API.`,
	}

	poolsCmd.AddCommand(
		newPoolsListCmd(opts),
		newPoolsShowCmd(opts),
		newPoolsPreviewCmd(opts),
	)
	return poolsCmd
}

func newPoolsListCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured pools",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp api.PoolsResponse
			if err := opts.client().Get("/api/v1/pools", &resp); err != nil {
				return fmt.Errorf("failed to get pools: %w", err)
			}

			if opts.jsonOutput {
				return opts.out.JSON(resp)
			}

			headers := []string{"ID", "DEFAULT", "STATUS", "ALGORITHM", "HOSTS"}
			rows := make([][]string, 0, len(resp.Pools))
			for _, p := range resp.Pools {
				rows = append(rows, []string{
					p.ID,
					output.YesNo(p.Default),
					strconv.Itoa(p.Status),
					p.Algorithm,
					formatHosts(p.Hosts),
				})
			}
			opts.out.Table(headers, rows)
			opts.out.Line(fmt.Sprintf("\nPool id header: %s", resp.PoolIDHeader))
			return nil
		},
	}
}

func newPoolsShowCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "show ID",
		Short:   "Show one pool with its host weights",
		Example: `  redirector-cli pools show test-pool-a`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var p api.PoolResponse
			if err := opts.client().Get("/api/v1/pools/"+URLEncode(args[0]), &p); err != nil {
				return fmt.Errorf("failed to get pool: %w", err)
			}

			if opts.jsonOutput {
				return opts.out.JSON(p)
			}

			opts.out.Fields([]output.Field{
				{Key: "ID", Value: p.ID},
				{Key: "Default", Value: output.YesNo(p.Default)},
				{Key: "Status", Value: strconv.Itoa(p.Status)},
				{Key: "Algorithm", Value: p.Algorithm},
				{Key: "Total weight", Value: strconv.Itoa(p.TotalWeight)},
			})
			opts.out.Line("")

			rows := make([][]string, 0, len(p.Hosts))
			for _, h := range p.Hosts {
				rows = append(rows, []string{h.Host, strconv.Itoa(h.Weight), output.Percent(h.Share)})
			}
			opts.out.Table([]string{"HOST", "WEIGHT", "SHARE"}, rows)
			return nil
		},
	}
}

func newPoolsPreviewCmd(opts *globalOptions) *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "preview ID",
		Short: "Preview the host rotation of a pool",
		Long: `Show the first picks a freshly built selector for the pool would make.
The live rotation of the running service is not advanced.`,
		Example: `  redirector-cli pools preview test-pool-a -n 6`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := fmt.Sprintf("/api/v1/pools/%s/preview?count=%d", URLEncode(args[0]), count)

			var resp api.PreviewResponse
			if err := opts.client().Get(path, &resp); err != nil {
				return fmt.Errorf("failed to preview pool: %w", err)
			}

			if opts.jsonOutput {
				return opts.out.JSON(resp)
			}

			opts.out.Fields([]output.Field{
				{Key: "Pool", Value: resp.Pool},
				{Key: "Algorithm", Value: resp.Algorithm},
				{Key: "Sequence", Value: strings.Join(resp.Sequence, " ")},
			})
			return nil
		},
	}

	cmd.Flags().IntVarP(&count, "count", "n", api.DefaultPreviewCount, "number of picks to preview")
	return cmd
}

func formatHosts(hosts []api.HostResponse) string {
	parts := make([]string, 0, len(hosts))
	for _, h := range hosts {
		parts = append(parts, fmt.Sprintf("%s:%d", h.Host, h.Weight))
	}
	return strings.Join(parts, ",")
}

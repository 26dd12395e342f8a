// Copyright (C) 2025 Logan Ross
//
// This file is part of Redirector.
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package cmd

import (
	"fmt"
	"net/http"
	"time"

	"github.com/loganrossus/redirector/cmd/redirector-cli/output"
	"github.com/loganrossus/redirector/pkg/api"
	"github.com/spf13/cobra"
)

// StatusOutput is the combined status output.
type StatusOutput struct {
	Status    string `json:"status"`
	Alive     bool   `json:"alive"`
	Ready     bool   `json:"ready"`
	Pools     int    `json:"pools"`
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	GoVersion string `json:"go_version"`
	Uptime    string `json:"uptime"`
	Message   string `json:"message,omitempty"`
}

func newStatusCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show overall redirector status",
		Long:  `Display liveness, readiness and version information of a running redirector.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := opts.client()

			var live api.LiveResponse
			if err := client.Get("/api/v1/live", &live); err != nil {
				return fmt.Errorf("failed to get status: %w", err)
			}

			var ready api.ReadyResponse
			if _, err := client.GetAccepting("/api/v1/ready", &ready, http.StatusServiceUnavailable); err != nil {
				return fmt.Errorf("failed to get readiness: %w", err)
			}

			var ver api.VersionResponse
			if err := client.Get("/api/v1/version", &ver); err != nil {
				return fmt.Errorf("failed to get version: %w", err)
			}

			out := StatusOutput{
				Status:    overallStatus(live, ready),
				Alive:     live.Alive,
				Ready:     ready.Ready,
				Pools:     ready.Pools,
				Version:   ver.Version,
				Commit:    ver.Commit,
				GoVersion: ver.GoVersion,
				Uptime:    formatDuration(time.Duration(ver.UptimeSeconds) * time.Second),
				Message:   ready.Message,
			}

			if opts.jsonOutput {
				return opts.out.JSON(out)
			}

			opts.out.Line("Redirector Status: " + out.Status)
			opts.out.Fields([]output.Field{
				{Key: "Version", Value: fmt.Sprintf("%s (commit %s, %s)", out.Version, out.Commit, out.GoVersion)},
				{Key: "Uptime", Value: out.Uptime},
				{Key: "Pools", Value: fmt.Sprintf("%d configured", out.Pools)},
			})

			if !ready.Ready && ready.Message != "" {
				opts.out.Line("\nWarning: " + ready.Message)
			}
			return nil
		},
	}
}

func overallStatus(live api.LiveResponse, ready api.ReadyResponse) string {
	switch {
	case !live.Alive:
		return "Unhealthy"
	case !ready.Ready:
		return "Degraded"
	default:
		return "Healthy"
	}
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}

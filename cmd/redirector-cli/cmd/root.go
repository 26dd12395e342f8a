// Copyright (C) 2025 Logan Ross
//
// This file is part of Redirector.
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cmd implements CLI commands for redirector-cli.
package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/loganrossus/redirector/cmd/redirector-cli/output"
	"github.com/loganrossus/redirector/pkg/version"
	"github.com/spf13/cobra"
)

// EnvAPIEndpoint overrides the default admin API endpoint.
const EnvAPIEndpoint = "REDIRECTOR_API"

const defaultAPIEndpoint = "http://127.0.0.1:8081"

// globalOptions holds the persistent flags shared by every subcommand.
type globalOptions struct {
	apiEndpoint string
	timeout     int
	jsonOutput  bool

	out *output.Printer
}

func (o *globalOptions) client() *APIClient {
	return NewAPIClient(o.apiEndpoint, time.Duration(o.timeout)*time.Second)
}

// NewRootCommand builds the full command tree.
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "redirector-cli",
		Short: "CLI for inspecting redirector pools",
		Long: `redirector-cli is a command-line tool for checking and debugging a redirector.

It provides commands to:
  - View service status
  - List and inspect redirect pools
  - Preview the host rotation of a pool
  - Validate configuration files
  - Simulate pool selection locally

Use --api to specify the admin API endpoint (default: ` + defaultAPIEndpoint + `).`,
		Version:       version.Version,
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			opts.out = output.NewPrinter(cmd.OutOrStdout())
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.apiEndpoint, "api", getEnvOrDefault(EnvAPIEndpoint, defaultAPIEndpoint), "admin API endpoint")
	rootCmd.PersistentFlags().IntVar(&opts.timeout, "timeout", 10, "API request timeout in seconds")
	rootCmd.PersistentFlags().BoolVar(&opts.jsonOutput, "json", false, "output in JSON format")

	rootCmd.AddCommand(
		newStatusCmd(opts),
		newPoolsCmd(opts),
		newConfigCmd(opts),
		newSimulateCmd(opts),
		newCompletionCmd(),
	)

	rootCmd.SetVersionTemplate(fmt.Sprintf("redirector-cli version %s\n", version.Get()))
	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCommand().Execute()
}

// getEnvOrDefault returns the environment variable value or a default.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

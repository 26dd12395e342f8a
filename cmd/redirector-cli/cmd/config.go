// Copyright (C) 2025 Logan Ross
//
// This file is part of Redirector.
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package cmd

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"github.com/loganrossus/redirector/cmd/redirector-cli/output"
	"github.com/loganrossus/redirector/pkg/config"
	"github.com/loganrossus/redirector/pkg/redirect"
	"github.com/spf13/cobra"
)

// ConfigValidationResult represents the result of config validation.
type ConfigValidationResult struct {
	Valid        bool     `json:"valid"`
	PoolIDHeader string   `json:"pool_id_header,omitempty"`
	DefaultPool  string   `json:"default_pool,omitempty"`
	PoolCount    int      `json:"pool_count"`
	HostCount    int      `json:"host_count"`
	Includes     []string `json:"includes,omitempty"`
	Errors       []string `json:"errors,omitempty"`
}

func newConfigCmd(opts *globalOptions) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management commands",
		Long:  `Commands for validating and working with configuration files.`,
	}
	configCmd.AddCommand(newConfigValidateCmd(opts))
	return configCmd
}

func newConfigValidateCmd(opts *globalOptions) *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a configuration file",
		Long: `Validate a redirector configuration file for syntax and semantic errors.
Included files and environment overrides are applied the same way the
service applies them.

Examples:
  redirector-cli config validate --config /etc/redirector/config.yaml
  redirector-cli config validate -c ./config.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, includes, err := loadConfig(configFile)
			if err != nil {
				return reportInvalid(opts, ConfigValidationResult{Errors: errorLines(err)})
			}

			reg, err := cfg.BuildRegistry()
			if err != nil {
				return reportInvalid(opts, ConfigValidationResult{
					PoolIDHeader: cfg.Redirect.PoolIDHeader,
					PoolCount:    len(cfg.Redirect.Pools),
					Includes:     includes,
					Errors:       errorLines(err),
				})
			}

			result := ConfigValidationResult{
				Valid:        true,
				PoolIDHeader: cfg.Redirect.PoolIDHeader,
				DefaultPool:  reg.Default().ID(),
				PoolCount:    reg.Len(),
				Includes:     includes,
			}
			for _, p := range reg.Pools() {
				result.HostCount += len(p.Hosts())
			}

			if opts.jsonOutput {
				return opts.out.JSON(result)
			}

			opts.out.Line("Configuration valid.")
			pairs := []output.Field{
				{Key: "Pool id header", Value: result.PoolIDHeader},
				{Key: "Default pool", Value: result.DefaultPool},
				{Key: "Pools", Value: strconv.Itoa(result.PoolCount)},
				{Key: "Hosts", Value: strconv.Itoa(result.HostCount)},
			}
			if len(includes) > 0 {
				pairs = append(pairs, output.Field{Key: "Included files", Value: strings.Join(includes, ", ")})
			}
			opts.out.Fields(pairs)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configFile, "config", "c", "", "path to configuration file (required)")
	_ = cmd.MarkFlagRequired("config")
	return cmd
}

// loadConfig loads a configuration file with its includes and environment
// overrides, then validates it.
func loadConfig(path string) (*config.Config, []string, error) {
	cfg, loaded, err := config.LoadWithIncludes(path)
	if err != nil {
		return nil, nil, err
	}
	// loaded starts with path itself
	includes := loaded[1:]
	if err := config.ApplyEnvOverrides(cfg, os.LookupEnv); err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, includes, err
	}
	return cfg, includes, nil
}

// loadRegistry loads, validates and builds the pool registry for path.
func loadRegistry(path string) (*config.Config, *redirect.Registry, error) {
	cfg, _, err := loadConfig(path)
	if err != nil {
		return nil, nil, err
	}
	reg, err := cfg.BuildRegistry()
	if err != nil {
		return nil, nil, err
	}
	return cfg, reg, nil
}

func reportInvalid(opts *globalOptions, result ConfigValidationResult) error {
	if opts.jsonOutput {
		if err := opts.out.JSON(result); err != nil {
			return err
		}
	} else {
		opts.out.Line("Configuration invalid:")
		for _, line := range result.Errors {
			opts.out.Line("  - " + line)
		}
	}
	return errors.New("configuration invalid")
}

// errorLines flattens joined errors into one line per error.
func errorLines(err error) []string {
	var lines []string
	var walk func(error)
	walk = func(e error) {
		if joined, ok := e.(interface{ Unwrap() []error }); ok {
			for _, inner := range joined.Unwrap() {
				walk(inner)
			}
			return
		}
		lines = append(lines, e.Error())
	}
	walk(err)
	return lines
}

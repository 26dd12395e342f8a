// Copyright (C) 2025 Logan Ross
//
// This file is part of Redirector.
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/loganrossus/redirector/pkg/api"
	"github.com/loganrossus/redirector/pkg/config"
	"github.com/loganrossus/redirector/pkg/redirect"
)

const testConfigYAML = `
redirect:
  pools:
    - id: test-pool-a
      default: true
      hosts:
        host-1: 2
        host-2: 1
    - id: test-pool-b
      status: 307
      algorithm: round-robin
      hosts:
        - host: host-3
          weight: 1
        - host: host-4
          weight: 3
`

const invalidConfigYAML = `
redirect:
  pools:
    - id: test-pool-a
      hosts:
        host-1: 0
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand()
	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

type staticReadiness bool

func (s staticReadiness) IsReady() bool { return bool(s) }

// testAPIServer serves the admin API for the test configuration.
func testAPIServer(t *testing.T, ready bool) *httptest.Server {
	t.Helper()
	cfg, err := config.Parse([]byte(testConfigYAML))
	if err != nil {
		t.Fatalf("failed to parse config: %v", err)
	}
	reg, err := cfg.BuildRegistry()
	if err != nil {
		t.Fatalf("failed to build registry: %v", err)
	}
	engine := redirect.NewEngine(reg, cfg.Redirect.PoolIDHeader)

	srv, err := api.NewServer(api.ServerConfig{
		AllowedNetworks: []string{"127.0.0.1/32", "::1/128"},
	}, api.NewHandlers(engine, staticReadiness(ready)))
	if err != nil {
		t.Fatalf("failed to create API server: %v", err)
	}

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func TestRootCommandStructure(t *testing.T) {
	root := NewRootCommand()

	expected := map[string][]string{
		"status":     nil,
		"pools":      {"list", "show", "preview"},
		"config":     {"validate"},
		"simulate":   nil,
		"completion": nil,
	}

	commands := make(map[string][]string)
	for _, c := range root.Commands() {
		var subs []string
		for _, sub := range c.Commands() {
			subs = append(subs, sub.Name())
		}
		commands[c.Name()] = subs
	}

	for name, subs := range expected {
		got, ok := commands[name]
		if !ok {
			t.Errorf("expected root command to have %q subcommand", name)
			continue
		}
		for _, sub := range subs {
			found := false
			for _, g := range got {
				if g == sub {
					found = true
				}
			}
			if !found {
				t.Errorf("expected %s command to have %q subcommand", name, sub)
			}
		}
	}
}

func TestConfigValidate(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		out, err := run(t, "config", "validate", "-c", writeConfig(t, testConfigYAML))
		if err != nil {
			t.Fatalf("unexpected error: %v\n%s", err, out)
		}
		for _, want := range []string{"Configuration valid.", "test-pool-a", "X-Redirect-Pool-ID"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected output to contain %q, got:\n%s", want, out)
			}
		}
	})

	t.Run("valid config as JSON", func(t *testing.T) {
		out, err := run(t, "--json", "config", "validate", "-c", writeConfig(t, testConfigYAML))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		var result ConfigValidationResult
		if err := json.Unmarshal([]byte(out), &result); err != nil {
			t.Fatalf("failed to decode output: %v\n%s", err, out)
		}
		if !result.Valid || result.PoolCount != 2 || result.HostCount != 4 || result.DefaultPool != "test-pool-a" {
			t.Errorf("unexpected result: %+v", result)
		}
	})

	t.Run("invalid config lists every problem", func(t *testing.T) {
		out, err := run(t, "--json", "config", "validate", "-c", writeConfig(t, invalidConfigYAML))
		if err == nil {
			t.Fatal("expected error for invalid config")
		}
		var result ConfigValidationResult
		if err := json.Unmarshal([]byte(out), &result); err != nil {
			t.Fatalf("failed to decode output: %v\n%s", err, out)
		}
		if result.Valid {
			t.Error("expected valid=false")
		}
		// zero weight and no default pool
		if len(result.Errors) != 2 {
			t.Errorf("expected 2 errors, got %d: %v", len(result.Errors), result.Errors)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		out, err := run(t, "config", "validate", "-c", filepath.Join(t.TempDir(), "missing.yaml"))
		if err == nil {
			t.Fatal("expected error for missing file")
		}
		if !strings.Contains(out, "Configuration invalid:") {
			t.Errorf("unexpected output:\n%s", out)
		}
	})

	t.Run("config flag is required", func(t *testing.T) {
		if _, err := run(t, "config", "validate"); err == nil {
			t.Error("expected error without --config")
		}
	})
}

func TestSimulate(t *testing.T) {
	path := writeConfig(t, testConfigYAML)

	t.Run("smooth weighted sequence", func(t *testing.T) {
		out, err := run(t, "--json", "simulate", "-c", path, "--pool", "test-pool-a", "-n", "6")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		var result SimulationResult
		if err := json.Unmarshal([]byte(out), &result); err != nil {
			t.Fatalf("failed to decode output: %v\n%s", err, out)
		}
		want := "host-1 host-2 host-1 host-1 host-2 host-1"
		if got := strings.Join(result.Sequence, " "); got != want {
			t.Errorf("expected sequence %q, got %q", want, got)
		}
		if result.FellBack {
			t.Error("expected known pool")
		}
		if len(result.Distribution) != 2 || result.Distribution[0].Picks != 4 || result.Distribution[1].Picks != 2 {
			t.Errorf("unexpected distribution: %+v", result.Distribution)
		}
	})

	t.Run("unknown pool falls back to default", func(t *testing.T) {
		out, err := run(t, "--json", "simulate", "-c", path, "--pool", "nope", "-n", "1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		var result SimulationResult
		if err := json.Unmarshal([]byte(out), &result); err != nil {
			t.Fatalf("failed to decode output: %v", err)
		}
		if !result.FellBack || result.Pool != "test-pool-a" || result.RequestedPool != "nope" {
			t.Errorf("unexpected result: %+v", result)
		}
	})

	t.Run("table output", func(t *testing.T) {
		out, err := run(t, "simulate", "-c", path, "--pool", "test-pool-b", "-n", "4")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, want := range []string{"round-robin", "307", "host-3 host-4 host-3 host-4", "EXPECTED", "75.0%"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected output to contain %q, got:\n%s", want, out)
			}
		}
	})

	t.Run("count must be positive", func(t *testing.T) {
		if _, err := run(t, "simulate", "-c", path, "-n", "0"); err == nil {
			t.Error("expected error for zero count")
		}
	})

	t.Run("invalid config", func(t *testing.T) {
		if _, err := run(t, "simulate", "-c", writeConfig(t, invalidConfigYAML)); err == nil {
			t.Error("expected error for invalid config")
		}
	})
}

func TestPoolsCommands(t *testing.T) {
	ts := testAPIServer(t, true)

	t.Run("list", func(t *testing.T) {
		out, err := run(t, "--api", ts.URL, "pools", "list")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, want := range []string{"test-pool-a", "host-1:2,host-2:1", "test-pool-b", "307", "X-Redirect-Pool-ID"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected output to contain %q, got:\n%s", want, out)
			}
		}
	})

	t.Run("show", func(t *testing.T) {
		out, err := run(t, "--api", ts.URL, "--json", "pools", "show", "test-pool-b")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		var p api.PoolResponse
		if err := json.Unmarshal([]byte(out), &p); err != nil {
			t.Fatalf("failed to decode output: %v\n%s", err, out)
		}
		if p.ID != "test-pool-b" || p.TotalWeight != 4 || len(p.Hosts) != 2 {
			t.Errorf("unexpected pool: %+v", p)
		}
	})

	t.Run("show unknown pool", func(t *testing.T) {
		_, err := run(t, "--api", ts.URL, "pools", "show", "nope")
		if err == nil || !strings.Contains(err.Error(), "pool not found: nope") {
			t.Errorf("expected pool not found error, got %v", err)
		}
	})

	t.Run("preview", func(t *testing.T) {
		out, err := run(t, "--api", ts.URL, "pools", "preview", "test-pool-a", "-n", "3")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out, "host-1 host-2 host-1") {
			t.Errorf("unexpected output:\n%s", out)
		}
	})

	t.Run("preview rejects bad count", func(t *testing.T) {
		if _, err := run(t, "--api", ts.URL, "pools", "preview", "test-pool-a", "-n", "0"); err == nil {
			t.Error("expected error for zero count")
		}
	})
}

func TestStatusCommand(t *testing.T) {
	t.Run("ready", func(t *testing.T) {
		ts := testAPIServer(t, true)
		out, err := run(t, "--api", ts.URL, "--json", "status")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		var status StatusOutput
		if err := json.Unmarshal([]byte(out), &status); err != nil {
			t.Fatalf("failed to decode output: %v\n%s", err, out)
		}
		if status.Status != "Healthy" || !status.Ready || status.Pools != 2 {
			t.Errorf("unexpected status: %+v", status)
		}
	})

	t.Run("not ready", func(t *testing.T) {
		ts := testAPIServer(t, false)
		out, err := run(t, "--api", ts.URL, "status")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out, "Redirector Status: Degraded") || !strings.Contains(out, "Warning:") {
			t.Errorf("unexpected output:\n%s", out)
		}
	})

	t.Run("unreachable API", func(t *testing.T) {
		ts := testAPIServer(t, true)
		url := ts.URL
		ts.Close()
		if _, err := run(t, "--api", url, "--timeout", "1", "status"); err == nil {
			t.Error("expected error for unreachable API")
		}
	})
}

func TestErrorLines(t *testing.T) {
	err := errors.Join(errors.New("first"), errors.Join(errors.New("second"), errors.New("third")))
	got := errorLines(err)
	if strings.Join(got, "|") != "first|second|third" {
		t.Errorf("unexpected lines: %v", got)
	}

	if got := errorLines(errors.New("single")); len(got) != 1 || got[0] != "single" {
		t.Errorf("unexpected lines: %v", got)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d        time.Duration
		expected string
	}{
		{30 * time.Minute, "30m"},
		{2*time.Hour + 15*time.Minute, "2h 15m"},
		{25*time.Hour + 30*time.Minute, "1d 1h 30m"},
		{48 * time.Hour, "2d 0h 0m"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := formatDuration(tt.d); got != tt.expected {
				t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.expected)
			}
		})
	}
}

func TestURLEncode(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"test-pool-a", "test-pool-a"},
		{"with space", "with%20space"},
		{"a/b", "a%2Fb"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := URLEncode(tt.input); got != tt.expected {
				t.Errorf("URLEncode(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

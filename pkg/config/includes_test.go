// Copyright (C) 2025 Logan Ross
//
// This file is part of Redirector.
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

func writeFile(t *testing.T, path, content string, mode os.FileMode) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), mode); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	if err := os.Chmod(path, mode); err != nil {
		t.Fatalf("failed to chmod %s: %v", path, err)
	}
}

func poolIDs(cfg *Config) []string {
	ids := make([]string, len(cfg.Redirect.Pools))
	for i, p := range cfg.Redirect.Pools {
		ids[i] = p.ID
	}
	return ids
}

func TestLoadWithIncludes_MergesPools(t *testing.T) {
	tempDir := t.TempDir()
	mainPath := filepath.Join(tempDir, "config.yaml")

	writeFile(t, mainPath, `
includes:
  - pools.d/*.yaml
logging:
  level: warn
redirect:
  pools:
    - id: main
      default: true
      hosts:
        main.example: 1
`, 0640)
	writeFile(t, filepath.Join(tempDir, "pools.d", "b.yaml"), `
redirect:
  pools:
    - id: pool-b
      hosts:
        b.example: 1
`, 0640)
	writeFile(t, filepath.Join(tempDir, "pools.d", "a.yaml"), `
logging:
  level: debug
redirect:
  pools:
    - id: pool-a
      hosts:
        a.example: 2
`, 0640)

	cfg, files, err := LoadWithIncludes(mainPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := strings.Join(poolIDs(cfg), ",")
	if got != "main,pool-a,pool-b" {
		t.Errorf("expected pools main,pool-a,pool-b in lexical include order, got %s", got)
	}
	if len(files) != 3 || !strings.HasSuffix(files[0], "config.yaml") {
		t.Errorf("unexpected loaded files: %v", files)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("included files must not override logging, got %s", cfg.Logging.Level)
	}
	if cfg.Redirect.Pools[1].Status != DefaultPoolStatus {
		t.Error("defaults should apply to included pools")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("merged config should validate: %v", err)
	}
}

func TestLoadWithIncludes_DuplicatePoolID(t *testing.T) {
	tempDir := t.TempDir()
	mainPath := filepath.Join(tempDir, "config.yaml")

	writeFile(t, mainPath, `
includes: [extra.yaml]
redirect:
  pools:
    - id: shared
      default: true
      hosts: {a: 1}
`, 0640)
	writeFile(t, filepath.Join(tempDir, "extra.yaml"), `
redirect:
  pools:
    - id: shared
      hosts: {b: 1}
`, 0640)

	_, _, err := LoadWithIncludes(mainPath)
	if err == nil {
		t.Fatal("expected duplicate pool error, got nil")
	}
	var incErr *IncludeError
	if !errors.As(err, &incErr) {
		t.Fatalf("expected *IncludeError, got %T", err)
	}
	if !strings.Contains(incErr.Message, `duplicate pool id "shared"`) || !strings.HasSuffix(incErr.File, "extra.yaml") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoadWithIncludes_CircularIncludeDetection(t *testing.T) {
	tempDir := t.TempDir()
	aPath := filepath.Join(tempDir, "a.yaml")
	writeFile(t, aPath, "includes:\n  - b.yaml\n", 0640)
	writeFile(t, filepath.Join(tempDir, "b.yaml"), "includes:\n  - a.yaml\n", 0640)

	_, _, err := LoadWithIncludes(aPath)
	var circularErr *CircularIncludeError
	if !errors.As(err, &circularErr) {
		t.Fatalf("expected *CircularIncludeError, got %T: %v", err, err)
	}
	if circularErr.Cycle != aPath {
		t.Errorf("expected cycle at %s, got %s", aPath, circularErr.Cycle)
	}
}

func TestLoadWithIncludes_NestedIncludes(t *testing.T) {
	tempDir := t.TempDir()
	mainPath := filepath.Join(tempDir, "config.yaml")
	writeFile(t, mainPath, `
includes: [left.yaml, right.yaml]
redirect:
  pools:
    - id: main
      default: true
      hosts: {a: 1}
`, 0640)
	writeFile(t, filepath.Join(tempDir, "left.yaml"), "includes: [common/*.yaml]\n", 0640)
	writeFile(t, filepath.Join(tempDir, "right.yaml"), "redirect:\n  pools:\n    - id: right\n      hosts: {r: 1}\n", 0640)
	writeFile(t, filepath.Join(tempDir, "common", "c.yaml"), "redirect:\n  pools:\n    - id: common\n      hosts: {c: 1}\n", 0640)

	cfg, _, err := LoadWithIncludes(mainPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := strings.Join(poolIDs(cfg), ","); got != "main,common,right" {
		t.Errorf("unexpected pools %s", got)
	}
}

func TestLoadWithIncludes_MaxDepthExceeded(t *testing.T) {
	tempDir := t.TempDir()
	for i := 0; i <= MaxIncludeDepth+1; i++ {
		next := filepath.Join(tempDir, "level"+strconv.Itoa(i+1)+".yaml")
		writeFile(t, filepath.Join(tempDir, "level"+strconv.Itoa(i)+".yaml"), "includes: ["+filepath.Base(next)+"]\n", 0640)
	}
	writeFile(t, filepath.Join(tempDir, "level"+strconv.Itoa(MaxIncludeDepth+2)+".yaml"), "{}\n", 0640)

	_, _, err := LoadWithIncludes(filepath.Join(tempDir, "level0.yaml"))
	if err == nil || !strings.Contains(err.Error(), "maximum include depth") {
		t.Errorf("expected depth error, got %v", err)
	}
}

func TestLoadWithIncludes_RecursiveGlob(t *testing.T) {
	tempDir := t.TempDir()
	mainPath := filepath.Join(tempDir, "config.yaml")
	writeFile(t, mainPath, `
includes: ["tenants/**/*.yaml"]
redirect:
  pools:
    - id: main
      default: true
      hosts: {a: 1}
`, 0640)
	writeFile(t, filepath.Join(tempDir, "tenants", "eu", "x.yaml"), "redirect:\n  pools:\n    - id: eu-x\n      hosts: {x: 1}\n", 0640)
	writeFile(t, filepath.Join(tempDir, "tenants", "us", "east", "y.yaml"), "redirect:\n  pools:\n    - id: us-y\n      hosts: {y: 1}\n", 0640)

	cfg, _, err := LoadWithIncludes(mainPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := strings.Join(poolIDs(cfg), ","); got != "main,eu-x,us-y" {
		t.Errorf("unexpected pools %s", got)
	}
}

func TestLoadWithIncludes_NoMatchingFiles(t *testing.T) {
	tempDir := t.TempDir()
	mainPath := filepath.Join(tempDir, "config.yaml")
	writeFile(t, mainPath, `
includes: ["missing/*.yaml", "gone/**/*.yaml"]
redirect:
  pools:
    - id: main
      default: true
      hosts: {a: 1}
`, 0640)

	cfg, files, err := LoadWithIncludes(mainPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.Redirect.Pools) != 1 || len(files) != 1 {
		t.Errorf("expected only the main file, got pools=%d files=%v", len(cfg.Redirect.Pools), files)
	}
}

func TestLoadWithIncludes_WorldWritableFile(t *testing.T) {
	tempDir := t.TempDir()
	mainPath := filepath.Join(tempDir, "config.yaml")
	writeFile(t, mainPath, "includes: [insecure.yaml]\n", 0640)
	writeFile(t, filepath.Join(tempDir, "insecure.yaml"), "redirect:\n  pools: []\n", 0666)

	_, _, err := LoadWithIncludes(mainPath)
	if err == nil {
		t.Fatal("expected permission error for world-writable file, got nil")
	}
	if !strings.Contains(err.Error(), "world-writable") {
		t.Errorf("expected world-writable error, got: %v", err)
	}
}

func TestIncludeError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *IncludeError
		want string
	}{
		{
			name: "with cause",
			err:  &IncludeError{File: "/etc/redirector/a.yaml", Message: "failed to read file", Cause: os.ErrNotExist},
			want: "/etc/redirector/a.yaml: failed to read file: file does not exist",
		},
		{
			name: "without cause",
			err:  &IncludeError{File: "/etc/redirector/a.yaml", Message: `duplicate pool id "x"`},
			want: `/etc/redirector/a.yaml: duplicate pool id "x"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestCircularIncludeError_Error(t *testing.T) {
	err := &CircularIncludeError{Path: []string{"a.yaml", "b.yaml"}, Cycle: "a.yaml"}
	want := "circular include detected: a.yaml -> b.yaml -> a.yaml"
	if err.Error() != want {
		t.Errorf("expected %q, got %q", want, err.Error())
	}
}

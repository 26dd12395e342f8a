// Copyright (C) 2025 Logan Ross
//
// This file is part of Redirector.
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// MaxIncludeDepth is the maximum nesting level for includes.
const MaxIncludeDepth = 10

// IncludeError reports a failure while processing a file with its path.
type IncludeError struct {
	File    string
	Message string
	Cause   error
}

func (e *IncludeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.File, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.File, e.Message)
}

func (e *IncludeError) Unwrap() error {
	return e.Cause
}

// CircularIncludeError reports a file that includes itself, directly or not.
type CircularIncludeError struct {
	Path  []string
	Cycle string
}

func (e *CircularIncludeError) Error() string {
	return fmt.Sprintf("circular include detected: %s -> %s", strings.Join(e.Path, " -> "), e.Cycle)
}

// includeLoader tracks state while walking a tree of includes.
type includeLoader struct {
	depth     int
	visiting  map[string]bool
	visitPath []string
	loaded    []string
}

// LoadWithIncludes reads a configuration file and merges the pools of every
// file matched by its includes patterns, recursively. Only pools are taken
// from included files; every other section must live in the main file.
// It returns the merged configuration with defaults applied and the absolute
// paths of all files read, main file first.
func LoadWithIncludes(path string) (*Config, []string, error) {
	absPath, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return nil, nil, &IncludeError{File: path, Message: "failed to resolve path", Cause: err}
	}

	l := &includeLoader{visiting: make(map[string]bool)}
	cfg, err := l.load(absPath)
	if err != nil {
		return nil, nil, err
	}

	applyDefaults(cfg)
	return cfg, l.loaded, nil
}

func (l *includeLoader) load(absPath string) (*Config, error) {
	if l.depth > MaxIncludeDepth {
		return nil, &IncludeError{
			File:    absPath,
			Message: fmt.Sprintf("maximum include depth (%d) exceeded", MaxIncludeDepth),
		}
	}
	if l.visiting[absPath] {
		return nil, &CircularIncludeError{
			Path:  append([]string{}, l.visitPath...),
			Cycle: absPath,
		}
	}

	l.visiting[absPath] = true
	l.visitPath = append(l.visitPath, absPath)
	l.loaded = append(l.loaded, absPath)
	defer func() {
		delete(l.visiting, absPath)
		l.visitPath = l.visitPath[:len(l.visitPath)-1]
	}()

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, &IncludeError{File: absPath, Message: "failed to read file", Cause: err}
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, &IncludeError{File: absPath, Message: "failed to parse YAML", Cause: err}
	}

	if len(cfg.Includes) == 0 {
		return &cfg, nil
	}

	l.depth++
	defer func() { l.depth-- }()

	baseDir := filepath.Dir(absPath)
	for _, pattern := range cfg.Includes {
		if err := l.includePattern(baseDir, pattern, &cfg); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}

// includePattern expands a glob relative to baseDir and merges every match in
// lexical order. A pattern matching nothing is not an error.
func (l *includeLoader) includePattern(baseDir, pattern string, cfg *Config) error {
	matches, err := expandPattern(baseDir, pattern)
	if err != nil {
		return &IncludeError{
			File:    baseDir,
			Message: fmt.Sprintf("invalid include pattern %q", pattern),
			Cause:   err,
		}
	}
	sort.Strings(matches)

	for _, match := range matches {
		absMatch, err := filepath.Abs(match)
		if err != nil {
			return &IncludeError{File: match, Message: "failed to resolve path", Cause: err}
		}

		info, err := os.Stat(absMatch)
		if err != nil {
			return &IncludeError{File: absMatch, Message: "failed to stat file", Cause: err}
		}
		if info.IsDir() {
			continue
		}
		if err := CheckFilePermissions(absMatch); err != nil {
			return &IncludeError{File: absMatch, Message: "permission check failed", Cause: err}
		}

		included, err := l.load(absMatch)
		if err != nil {
			return err
		}
		if err := mergePools(cfg, included, absMatch); err != nil {
			return err
		}
	}
	return nil
}

// expandPattern resolves pattern against baseDir. A "**" path element matches
// any number of directories.
func expandPattern(baseDir, pattern string) ([]string, error) {
	if !filepath.IsAbs(pattern) {
		pattern = filepath.Join(baseDir, pattern)
	}

	parts := strings.Split(pattern, string(filepath.Separator))
	star := -1
	for i, part := range parts {
		if part == "**" {
			star = i
			break
		}
	}
	if star == -1 {
		return filepath.Glob(pattern)
	}

	root := string(filepath.Separator) + filepath.Join(parts[:star]...)
	suffix := filepath.Join(parts[star+1:]...)

	var matches []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		found, err := filepath.Glob(filepath.Join(path, suffix))
		if err != nil {
			return err
		}
		matches = append(matches, found...)
		return nil
	})
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	return matches, nil
}

// mergePools appends the pools of an included file. A pool id that is already
// defined is an error naming the included file.
func mergePools(main, included *Config, sourceFile string) error {
	existing := make(map[string]bool, len(main.Redirect.Pools))
	for _, p := range main.Redirect.Pools {
		existing[p.ID] = true
	}
	for _, p := range included.Redirect.Pools {
		if existing[p.ID] {
			return &IncludeError{
				File:    sourceFile,
				Message: fmt.Sprintf("duplicate pool id %q", p.ID),
			}
		}
		existing[p.ID] = true
	}
	main.Redirect.Pools = append(main.Redirect.Pools, included.Redirect.Pools...)
	return nil
}

// CheckFilePermissions rejects files that are writable by everyone.
func CheckFilePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.Mode().Perm()&0o002 != 0 {
		return fmt.Errorf("file is world-writable, which is a security risk")
	}
	return nil
}

// Copyright (C) 2025 Logan Ross
//
// This file is part of Redirector.
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import "time"

// HostResponse describes one host of a pool.
type HostResponse struct {
	Host   string `json:"host"`
	Weight int    `json:"weight"`
	// Share is the host's weight as a percentage of the pool total.
	Share float64 `json:"share_percent"`
}

// PoolResponse is the response for GET /api/v1/pools/{id}.
type PoolResponse struct {
	ID          string         `json:"id"`
	Default     bool           `json:"default"`
	Status      int            `json:"status"`
	Algorithm   string         `json:"algorithm"`
	TotalWeight int            `json:"total_weight"`
	Hosts       []HostResponse `json:"hosts"`
}

// PoolsResponse is the response for GET /api/v1/pools.
type PoolsResponse struct {
	Pools        []PoolResponse `json:"pools"`
	DefaultPool  string         `json:"default_pool"`
	PoolIDHeader string         `json:"pool_id_header"`
	GeneratedAt  time.Time      `json:"generated_at"`
}

// PreviewResponse is the response for GET /api/v1/pools/{id}/preview.
// The sequence comes from a fresh selector, so it shows the rotation a pool
// produces from its initial state without touching live traffic.
type PreviewResponse struct {
	Pool         string         `json:"pool"`
	Algorithm    string         `json:"algorithm"`
	Count        int            `json:"count"`
	Sequence     []string       `json:"sequence"`
	Distribution map[string]int `json:"distribution"`
}

// ReadyResponse is the response for GET /api/v1/ready.
type ReadyResponse struct {
	Ready   bool   `json:"ready"`
	Pools   int    `json:"pools"`
	Message string `json:"message,omitempty"`
}

// LiveResponse is the response for GET /api/v1/live.
type LiveResponse struct {
	Alive bool `json:"alive"`
}

// VersionResponse is the response for GET /api/v1/version.
type VersionResponse struct {
	Version       string `json:"version"`
	Commit        string `json:"commit"`
	GoVersion     string `json:"go_version"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

// ErrorResponse is returned for API errors.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

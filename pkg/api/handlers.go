// Copyright (C) 2025 Logan Ross
//
// This file is part of Redirector.
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/loganrossus/redirector/pkg/redirect"
	"github.com/loganrossus/redirector/pkg/routing"
	"github.com/loganrossus/redirector/pkg/version"
)

// Preview bounds for GET /api/v1/pools/{id}/preview.
const (
	DefaultPreviewCount = 10
	MaxPreviewCount     = 10000
)

// ReadinessChecker reports whether the redirect listener is serving.
type ReadinessChecker interface {
	IsReady() bool
}

// Handlers contains all API endpoint handlers.
type Handlers struct {
	engine           *redirect.Engine
	readinessChecker ReadinessChecker
	startTime        time.Time
}

// NewHandlers creates a new Handlers instance. rc may be nil, in which case
// the service always reports ready.
func NewHandlers(engine *redirect.Engine, rc ReadinessChecker) *Handlers {
	return &Handlers{
		engine:           engine,
		readinessChecker: rc,
		startTime:        time.Now(),
	}
}

// Pools handles GET /api/v1/pools
func (h *Handlers) Pools(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	reg := h.engine.Registry()
	pools := reg.Pools()

	resp := PoolsResponse{
		Pools:        make([]PoolResponse, 0, len(pools)),
		DefaultPool:  reg.Default().ID(),
		PoolIDHeader: h.engine.Header(),
		GeneratedAt:  time.Now().UTC(),
	}
	for _, p := range pools {
		resp.Pools = append(resp.Pools, poolResponse(p))
	}

	writeJSON(w, http.StatusOK, resp)
}

// Pool handles GET /api/v1/pools/{id}
func (h *Handlers) Pool(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	pool, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, poolResponse(pool))
}

// Preview handles GET /api/v1/pools/{id}/preview?count=N
func (h *Handlers) Preview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	pool, ok := h.lookup(w, r)
	if !ok {
		return
	}

	count := DefaultPreviewCount
	if raw := r.URL.Query().Get("count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > MaxPreviewCount {
			writeError(w, http.StatusBadRequest, "count must be an integer between 1 and "+strconv.Itoa(MaxPreviewCount))
			return
		}
		count = n
	}

	selector, err := routing.NewSelector(pool.Algorithm(), pool.Hosts())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := PreviewResponse{
		Pool:         pool.ID(),
		Algorithm:    selector.Algorithm(),
		Count:        count,
		Sequence:     make([]string, 0, count),
		Distribution: make(map[string]int),
	}
	for i := 0; i < count; i++ {
		host, err := selector.Next()
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		resp.Sequence = append(resp.Sequence, host)
		resp.Distribution[host]++
	}

	writeJSON(w, http.StatusOK, resp)
}

// Ready handles GET /api/v1/ready
func (h *Handlers) Ready(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	ready := h.readinessChecker == nil || h.readinessChecker.IsReady()
	resp := ReadyResponse{
		Ready: ready,
		Pools: h.engine.Registry().Len(),
	}

	status := http.StatusOK
	if !ready {
		resp.Message = "redirect server not ready"
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, resp)
}

// Live handles GET /api/v1/live
func (h *Handlers) Live(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	// If we can handle the request, we're alive
	writeJSON(w, http.StatusOK, LiveResponse{Alive: true})
}

// Version handles GET /api/v1/version
func (h *Handlers) Version(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	info := version.Get()
	writeJSON(w, http.StatusOK, VersionResponse{
		Version:       info.Version,
		Commit:        info.Commit,
		GoVersion:     info.GoVersion,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
	})
}

// lookup finds the pool named by the {id} path value. Unlike redirects, the
// API does not fall back to the default pool.
func (h *Handlers) lookup(w http.ResponseWriter, r *http.Request) (*redirect.Pool, bool) {
	id := r.PathValue("id")
	pool, ok := h.engine.Registry().Lookup(id)
	if !ok {
		writeError(w, http.StatusNotFound, "pool not found: "+id)
		return nil, false
	}
	return pool, true
}

func poolResponse(p *redirect.Pool) PoolResponse {
	hosts := p.Hosts()
	total := routing.TotalWeight(hosts)

	resp := PoolResponse{
		ID:          p.ID(),
		Default:     p.IsDefault(),
		Status:      p.Status(),
		Algorithm:   p.Algorithm(),
		TotalWeight: total,
		Hosts:       make([]HostResponse, 0, len(hosts)),
	}
	for _, h := range hosts {
		var share float64
		if total > 0 {
			share = float64(h.Weight) / float64(total) * 100
		}
		resp.Hosts = append(resp.Hosts, HostResponse{Host: h.Host, Weight: h.Weight, Share: share})
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Can't do much here, response already started
		return
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  status,
	})
}

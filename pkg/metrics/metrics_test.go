// Copyright (C) 2025 Logan Ross
//
// This file is part of Redirector.
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package metrics

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/loganrossus/redirector/pkg/redirect"
	"github.com/loganrossus/redirector/pkg/routing"
)

func TestObserver_RecordsDecisions(t *testing.T) {
	obs := Observer{}
	counter := RedirectsTotal.WithLabelValues("obs-pool", "host-1", "302")
	before := testutil.ToFloat64(counter)

	obs.ObserveDecision("obs-pool", "host-1", 302, 50*time.Microsecond)
	obs.ObserveDecision("obs-pool", "host-1", 302, 80*time.Microsecond)

	if got := testutil.ToFloat64(counter) - before; got != 2 {
		t.Errorf("expected 2 redirects recorded, got %v", got)
	}
}

func TestObserver_RecordsLoopsErrorsAndFallbacks(t *testing.T) {
	obs := Observer{}

	loops := RedirectLoopsTotal.WithLabelValues("obs-pool")
	errs := RedirectErrorsTotal.WithLabelValues("obs-pool")
	missing := PoolFallbacksTotal.WithLabelValues(redirect.FallbackMissing)
	unknown := PoolFallbacksTotal.WithLabelValues(redirect.FallbackUnknown)

	l0, e0 := testutil.ToFloat64(loops), testutil.ToFloat64(errs)
	m0, u0 := testutil.ToFloat64(missing), testutil.ToFloat64(unknown)

	obs.ObserveLoop("obs-pool")
	obs.ObserveError("obs-pool")
	obs.ObserveError("obs-pool")
	obs.ObserveFallback(redirect.FallbackMissing)
	obs.ObserveFallback(redirect.FallbackUnknown)
	obs.ObserveFallback(redirect.FallbackUnknown)

	if got := testutil.ToFloat64(loops) - l0; got != 1 {
		t.Errorf("expected 1 loop, got %v", got)
	}
	if got := testutil.ToFloat64(errs) - e0; got != 2 {
		t.Errorf("expected 2 errors, got %v", got)
	}
	if got := testutil.ToFloat64(missing) - m0; got != 1 {
		t.Errorf("expected 1 missing fallback, got %v", got)
	}
	if got := testutil.ToFloat64(unknown) - u0; got != 2 {
		t.Errorf("expected 2 unknown fallbacks, got %v", got)
	}
}

func TestRecordRateLimited(t *testing.T) {
	before := testutil.ToFloat64(RateLimitedTotal)
	RecordRateLimited()
	if got := testutil.ToFloat64(RateLimitedTotal) - before; got != 1 {
		t.Errorf("expected 1, got %v", got)
	}
}

func TestSetConfigMetrics(t *testing.T) {
	reg, err := redirect.BuildRegistry([]redirect.PoolConfig{
		{ID: "a", Default: true, Hosts: []routing.WeightedHost{{Host: "host-1", Weight: 2}, {Host: "host-2", Weight: 1}}},
		{ID: "b", Hosts: []routing.WeightedHost{{Host: "host-3", Weight: 5}}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	now := time.Unix(1700000000, 0)
	SetConfigMetrics(reg, now)

	if got := testutil.ToFloat64(ConfiguredPools); got != 2 {
		t.Errorf("expected 2 pools, got %v", got)
	}
	if got := testutil.ToFloat64(PoolHostWeight.WithLabelValues("a", "host-1")); got != 2 {
		t.Errorf("expected weight 2, got %v", got)
	}
	if got := testutil.ToFloat64(PoolHostWeight.WithLabelValues("b", "host-3")); got != 5 {
		t.Errorf("expected weight 5, got %v", got)
	}
	if got := testutil.ToFloat64(ConfigLoadTimestamp); got != 1700000000 {
		t.Errorf("unexpected load timestamp %v", got)
	}
}

func TestSetAppInfo(t *testing.T) {
	SetAppInfo("0.1.0-test")
	if got := testutil.ToFloat64(AppInfo.WithLabelValues("0.1.0-test")); got != 1 {
		t.Errorf("expected 1, got %v", got)
	}
}

func TestHandler(t *testing.T) {
	RecordRedirect("handler-pool", "host-1", 302)

	srv := httptest.NewServer(Handler())
	defer srv.Close()

	t.Run("metrics endpoint", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/metrics")
		if err != nil {
			t.Fatalf("failed to get metrics: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Errorf("expected status 200, got %d", resp.StatusCode)
		}

		body, _ := io.ReadAll(resp.Body)
		bodyStr := string(body)

		if !strings.Contains(bodyStr, `redirector_redirects_total{host="host-1",pool="handler-pool",status="302"}`) {
			t.Error("expected redirector_redirects_total series in response")
		}
		if !strings.Contains(bodyStr, "go_goroutines") {
			t.Error("expected go_goroutines metric in response")
		}
	})

	t.Run("health endpoint", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/health")
		if err != nil {
			t.Fatalf("failed to get health: %v", err)
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode != http.StatusOK || string(body) != "OK" {
			t.Errorf("expected 200 OK, got %d %q", resp.StatusCode, string(body))
		}
	})
}

func TestMetricsServer_ServeAndShutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	RecordRedirect("serve-pool", "host-2", 307)

	server := NewServer(ServerConfig{Address: "127.0.0.1:0"})
	ctx, cancel := context.WithCancel(context.Background())
	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Serve(ctx, ln)
	}()

	base := "http://" + ln.Addr().String()

	resp, err := http.Get(base + "/metrics")
	if err != nil {
		t.Fatalf("failed to scrape: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), `redirector_redirects_total{host="host-2",pool="serve-pool",status="307"}`) {
		t.Error("expected serve-pool series in scrape")
	}

	resp, err = http.Post(base+"/health", "text/plain", nil)
	if err != nil {
		t.Fatalf("failed to post health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("expected 405 for POST /health, got %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-errChan:
		if err != nil {
			t.Errorf("server error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down in time")
	}

	if _, err := http.Get(base + "/health"); err == nil {
		t.Error("expected connection failure after shutdown")
	}
}

func TestMetricsServer_StartRejectsBadAddress(t *testing.T) {
	server := NewServer(ServerConfig{Address: "not-an-address"})
	if err := server.Start(context.Background()); err == nil {
		t.Fatal("expected listen error")
	}
	if server.Address() != "not-an-address" {
		t.Errorf("unexpected address %q", server.Address())
	}
}

// Copyright (C) 2025 Logan Ross
//
// This file is part of Redirector.
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package metrics provides Prometheus metrics for Redirector observability.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/loganrossus/redirector/pkg/redirect"
)

// Namespace for all Redirector metrics.
const namespace = "redirector"

// Redirect decision metrics
var (
	// RedirectsTotal counts issued redirects.
	RedirectsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "redirects_total",
			Help:      "Total number of redirects issued by pool, target host and status code",
		},
		[]string{"pool", "host", "status"},
	)

	// RedirectLoopsTotal counts requests refused because the target equals the request host.
	RedirectLoopsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "redirect_loops_total",
			Help:      "Total number of requests refused as redirect loops",
		},
		[]string{"pool"},
	)

	// RedirectErrorsTotal counts internal selection failures.
	RedirectErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "redirect_errors_total",
			Help:      "Total number of requests that failed host selection",
		},
		[]string{"pool"},
	)

	// PoolFallbacksTotal counts requests served by the default pool because
	// the pool id was missing or unknown.
	PoolFallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pool_fallbacks_total",
			Help:      "Total number of requests falling back to the default pool",
		},
		[]string{"reason"},
	)

	// DecisionDuration measures time spent resolving a pool and picking a host.
	DecisionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "decision_duration_seconds",
			Help:      "Redirect decision duration in seconds",
			Buckets:   []float64{.00001, .00005, .0001, .0005, .001, .005, .01},
		},
		[]string{"pool"},
	)
)

// Server metrics
var (
	// RateLimitedTotal counts requests rejected by the rate limiter.
	RateLimitedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Total number of requests rejected by the rate limiter",
		},
	)
)

// Configuration metrics
var (
	// ConfiguredPools tracks the number of pools in the registry.
	ConfiguredPools = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "configured_pools",
			Help:      "Number of configured redirect pools",
		},
	)

	// PoolHostWeight exposes the configured weight of each pool host.
	PoolHostWeight = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pool_host_weight",
			Help:      "Configured weight of each host in each pool",
		},
		[]string{"pool", "host"},
	)

	// ConfigLoadTimestamp records when the configuration was loaded.
	ConfigLoadTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "config_load_timestamp_seconds",
			Help:      "Unix timestamp of the configuration load",
		},
	)

	// AppInfo exposes the running version.
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "app_info",
			Help:      "Application information",
		},
		[]string{"version"},
	)
)

// RecordRedirect records an issued redirect.
func RecordRedirect(pool, host string, status int) {
	RedirectsTotal.WithLabelValues(pool, host, strconv.Itoa(status)).Inc()
}

// RecordDecisionDuration records how long a decision took.
func RecordDecisionDuration(pool string, elapsed time.Duration) {
	DecisionDuration.WithLabelValues(pool).Observe(elapsed.Seconds())
}

// RecordLoop records a refused redirect loop.
func RecordLoop(pool string) {
	RedirectLoopsTotal.WithLabelValues(pool).Inc()
}

// RecordError records a selection failure.
func RecordError(pool string) {
	RedirectErrorsTotal.WithLabelValues(pool).Inc()
}

// RecordFallback records a default pool fallback.
func RecordFallback(reason string) {
	PoolFallbacksTotal.WithLabelValues(reason).Inc()
}

// RecordRateLimited records a rate limited request.
func RecordRateLimited() {
	RateLimitedTotal.Inc()
}

// SetAppInfo sets the application info metric.
func SetAppInfo(version string) {
	AppInfo.WithLabelValues(version).Set(1)
}

// SetConfigMetrics publishes the registry's pools and host weights.
func SetConfigMetrics(reg *redirect.Registry, loadTime time.Time) {
	ConfiguredPools.Set(float64(reg.Len()))
	PoolHostWeight.Reset()
	for _, pool := range reg.Pools() {
		for _, h := range pool.Hosts() {
			PoolHostWeight.WithLabelValues(pool.ID(), h.Host).Set(float64(h.Weight))
		}
	}
	ConfigLoadTimestamp.Set(float64(loadTime.Unix()))
}

// Observer reports engine decisions to the package metrics.
type Observer struct{}

var _ redirect.Observer = Observer{}

// ObserveDecision implements redirect.Observer.
func (Observer) ObserveDecision(pool, host string, status int, elapsed time.Duration) {
	RecordRedirect(pool, host, status)
	RecordDecisionDuration(pool, elapsed)
}

// ObserveLoop implements redirect.Observer.
func (Observer) ObserveLoop(pool string) {
	RecordLoop(pool)
}

// ObserveError implements redirect.Observer.
func (Observer) ObserveError(pool string) {
	RecordError(pool)
}

// ObserveFallback implements redirect.Observer.
func (Observer) ObserveFallback(reason string) {
	RecordFallback(reason)
}

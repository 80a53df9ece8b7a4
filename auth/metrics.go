// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Status constants for authentication outcome metrics.
const (
	StatusSuccess            = "success"
	StatusInvalidInput       = "invalid_input"
	StatusInvalidCredentials = "invalid_credentials"
	StatusRateLimited        = "rate_limited"
	StatusDuplicate          = "duplicate"
	StatusStoreError         = "store_error"
)

// LoginAttempts counts login attempts by outcome.
// Use RegisterMetrics to register this with a Prometheus registry.
var LoginAttempts = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "gatehouse_login_attempts_total",
		Help: "Total number of login attempts by outcome",
	},
	[]string{"status"},
)

// Registrations counts registration attempts by outcome.
// Use RegisterMetrics to register this with a Prometheus registry.
var Registrations = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "gatehouse_registrations_total",
		Help: "Total number of registration attempts by outcome",
	},
	[]string{"status"},
)

// HashDuration observes password hashing latency. Hashing is deliberately
// slow; this histogram makes cost-factor tuning visible.
var HashDuration = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "gatehouse_password_hash_duration_seconds",
		Help:    "Password hash computation duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 10),
	},
)

// RegisterMetrics registers auth package metrics with the given Prometheus
// registry. Call at startup to make metrics available on /metrics.
// Panics if registration fails (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(LoginAttempts)
	reg.MustRegister(Registrations)
	reg.MustRegister(HashDuration)
}

// RecordLogin increments the login attempt counter with the given outcome.
func RecordLogin(status string) {
	LoginAttempts.WithLabelValues(status).Inc()
}

// RecordRegistration increments the registration counter with the given
// outcome.
func RecordRegistration(status string) {
	Registrations.WithLabelValues(status).Inc()
}

// RecordHashDuration records one password hash computation.
func RecordHashDuration(d time.Duration) {
	HashDuration.Observe(d.Seconds())
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth_test

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatehouse/gatehouse/auth"
)

func TestRegisterMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	auth.RegisterMetrics(reg)

	auth.RecordLogin(auth.StatusSuccess)
	auth.RecordRegistration(auth.StatusDuplicate)
	auth.RecordHashDuration(50 * time.Millisecond)

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	assert.True(t, names["gatehouse_login_attempts_total"])
	assert.True(t, names["gatehouse_registrations_total"])
	assert.True(t, names["gatehouse_password_hash_duration_seconds"])
}

func TestRecordLogin_StatusLabels(t *testing.T) {
	reg := prometheus.NewRegistry()
	auth.RegisterMetrics(reg)

	statuses := []string{
		auth.StatusSuccess,
		auth.StatusInvalidInput,
		auth.StatusInvalidCredentials,
		auth.StatusRateLimited,
		auth.StatusStoreError,
	}
	for _, status := range statuses {
		auth.RecordLogin(status)
	}

	families, err := reg.Gather()
	require.NoError(t, err)

	for _, mf := range families {
		if mf.GetName() != "gatehouse_login_attempts_total" {
			continue
		}
		seen := make(map[string]bool)
		for _, m := range mf.GetMetric() {
			for _, label := range m.GetLabel() {
				if label.GetName() == "status" {
					seen[label.GetValue()] = true
				}
			}
		}
		for _, status := range statuses {
			assert.True(t, seen[status], "missing status label %q", status)
		}
	}
}

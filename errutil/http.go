// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package errutil

import (
	"net/http"
	"time"

	"github.com/samber/oops"

	"github.com/gatehouse/gatehouse/auth"
)

// HTTPStatus maps an error's code to the HTTP status a transport layer
// should answer with. Unknown and uncoded errors map to 500.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return http.StatusInternalServerError
	}

	switch oopsErr.Code() {
	case auth.CodeInvalidInput, auth.CodeInvalidCredentials:
		return http.StatusBadRequest
	case auth.CodeTokenExpired, auth.CodeTokenNotFound, auth.CodeTokenRevoked:
		return http.StatusUnauthorized
	case auth.CodeUserExists:
		return http.StatusConflict
	case auth.CodeRateLimited:
		return http.StatusTooManyRequests
	case auth.CodeStoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// RetryAfter extracts the retry hint from a rate-limited error. Returns
// zero and false when the error carries none.
func RetryAfter(err error) (time.Duration, bool) {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return 0, false
	}
	raw, ok := oopsErr.Context()["retry_after"]
	if !ok {
		return 0, false
	}
	d, ok := raw.(time.Duration)
	return d, ok
}

// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/bkconstruct/internal/cache"
)

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/projects/{slug}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	before := testutil.ToFloat64(RequestTotal.WithLabelValues(http.MethodGet, "/projects/{slug}", "404"))
	for _, slug := range []string{"a", "b", "c"} {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/projects/"+slug, nil))
		assert.Equal(t, http.StatusNotFound, rr.Code)
	}
	after := testutil.ToFloat64(RequestTotal.WithLabelValues(http.MethodGet, "/projects/{slug}", "404"))
	assert.Equal(t, 3.0, after-before)
}

func TestMiddlewareDefaultStatus(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	before := testutil.ToFloat64(RequestTotal.WithLabelValues(http.MethodGet, "/health", "200"))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	after := testutil.ToFloat64(RequestTotal.WithLabelValues(http.MethodGet, "/health", "200"))
	assert.Equal(t, 1.0, after-before)
}

func TestRecordSubmission(t *testing.T) {
	c := LeadSubmissions.WithLabelValues("quote", "spam")
	before := testutil.ToFloat64(c)
	RecordSubmission("quote", "spam")
	assert.Equal(t, 1.0, testutil.ToFloat64(c)-before)
}

func TestRecordNotification(t *testing.T) {
	sent := Notifications.WithLabelValues("lead.quote", "sent")
	failed := Notifications.WithLabelValues("lead.quote", "failed")
	s0, f0 := testutil.ToFloat64(sent), testutil.ToFloat64(failed)

	RecordNotification("lead.quote", nil)
	RecordNotification("lead.quote", errors.New("smtp down"))

	assert.Equal(t, 1.0, testutil.ToFloat64(sent)-s0)
	assert.Equal(t, 1.0, testutil.ToFloat64(failed)-f0)
}

func TestHandlerExposesCollectors(t *testing.T) {
	RecordSubmission("contact", "stored")

	rr := httptest.NewRecorder()
	Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, strings.Contains(rr.Body.String(), "bkconstruct_lead_submissions_total"))
}

func TestRegisterPageCache(t *testing.T) {
	reg := prometheus.NewRegistry()
	stats := cache.Stats{Hits: 7, Misses: 3, Items: 2}
	require.NoError(t, RegisterPageCache(reg, func() cache.Stats { return stats }))

	expected := `
# HELP bkconstruct_page_cache_hits_total Page cache hits
# TYPE bkconstruct_page_cache_hits_total counter
bkconstruct_page_cache_hits_total 7
# HELP bkconstruct_page_cache_pages Pages currently cached
# TYPE bkconstruct_page_cache_pages gauge
bkconstruct_page_cache_pages 2
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"bkconstruct_page_cache_hits_total", "bkconstruct_page_cache_pages"))

	assert.Error(t, RegisterPageCache(reg, func() cache.Stats { return stats }), "duplicate registration")
}

// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package metrics exposes Prometheus collectors for the HTTP server,
// lead intake, notification delivery and logging.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/olegiv/bkconstruct/internal/cache"
)

const namespace = "bkconstruct"

var (
	// RequestTotal counts HTTP requests by method, route pattern and status.
	RequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)
	// RequestDuration is the latency of HTTP requests.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	// LeadSubmissions counts public form submissions by kind and outcome.
	LeadSubmissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lead_submissions_total",
			Help:      "Public contact, quote and tender submissions",
		},
		[]string{"kind", "outcome"},
	)
	// Notifications counts outbound notification deliveries.
	Notifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notification deliveries by kind and status",
		},
		[]string{"kind", "status"},
	)
	// LogRecords counts emitted log records by level.
	LogRecords = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "log_records_total",
			Help:      "Log records by level",
		},
		[]string{"level"},
	)
	// SessionsSwept counts tracking rows removed by the expiry sweep.
	SessionsSwept = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_swept_total",
			Help:      "Expired session tracking rows removed",
		},
	)
)

// RecordSubmission matches the intake service's submission hook.
func RecordSubmission(kind, outcome string) {
	LeadSubmissions.WithLabelValues(kind, outcome).Inc()
}

// RecordNotification matches the notification dispatcher's delivery hook.
func RecordNotification(kind string, err error) {
	status := "sent"
	if err != nil {
		status = "failed"
	}
	Notifications.WithLabelValues(kind, status).Inc()
}

// CountLog matches the log handler's counter hook.
func CountLog(level string) {
	LogRecords.WithLabelValues(level).Inc()
}

// RegisterPageCache exports the page cache counters reported by stats.
func RegisterPageCache(reg prometheus.Registerer, stats func() cache.Stats) error {
	counter := func(name, help string, value func(cache.Stats) int64) prometheus.Collector {
		return prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "page_cache",
			Name:      name,
			Help:      help,
		}, func() float64 { return float64(value(stats())) })
	}
	collectors := []prometheus.Collector{
		counter("hits_total", "Page cache hits", func(s cache.Stats) int64 { return s.Hits }),
		counter("misses_total", "Page cache misses", func(s cache.Stats) int64 { return s.Misses }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "page_cache",
			Name:      "pages",
			Help:      "Pages currently cached",
		}, func() float64 { return float64(stats().Items) }),
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

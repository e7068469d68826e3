// Copyright (C) 2025 Zaraara Fashion (platform@zaraara.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package observability provides Prometheus metrics for the assistant.
//
// # Description
//
// Counters and histograms for the two request surfaces (chat and try-on)
// plus the completion-call usage underneath them. Metrics are exposed on
// /metrics; scrape with Prometheus.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal locking.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "concierge"

// AssistantMetrics holds all Prometheus metrics for the assistant service.
// Initialize once at startup via NewAssistantMetrics().
type AssistantMetrics struct {
	// RequestsTotal counts requests by endpoint and status.
	// Labels: endpoint (chat, tryon, clear), status (success, error)
	RequestsTotal *prometheus.CounterVec

	// RequestDurationSeconds measures end-to-end request latency.
	// Labels: endpoint (chat, tryon)
	RequestDurationSeconds *prometheus.HistogramVec

	// RepliesTotal counts emitted replies by type.
	// Labels: type (products, orders, tryon, error, text)
	RepliesTotal *prometheus.CounterVec

	// CompletionCallsTotal counts model calls by model and status.
	// Labels: model, status (success, error)
	CompletionCallsTotal *prometheus.CounterVec
}

// NewAssistantMetrics registers and returns the service metrics on the
// default registry. Calling it twice panics, per promauto's contract.
func NewAssistantMetrics() *AssistantMetrics {
	return &AssistantMetrics{
		RequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "requests_total",
			Help:      "Assistant requests by endpoint and status.",
		}, []string{"endpoint", "status"}),
		RequestDurationSeconds: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "request_duration_seconds",
			Help:      "End-to-end request latency.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"endpoint"}),
		RepliesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "replies_total",
			Help:      "Replies emitted to clients by type.",
		}, []string{"type"}),
		CompletionCallsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "completion_calls_total",
			Help:      "Model completion calls by model and status.",
		}, []string{"model", "status"}),
	}
}

// ObserveRequest records one finished request.
func (m *AssistantMetrics) ObserveRequest(endpoint, status string, seconds float64) {
	m.RequestsTotal.WithLabelValues(endpoint, status).Inc()
	m.RequestDurationSeconds.WithLabelValues(endpoint).Observe(seconds)
}

// ObserveReplies records the reply types of one response list.
func (m *AssistantMetrics) ObserveReplies(types []string) {
	for _, t := range types {
		m.RepliesTotal.WithLabelValues(t).Inc()
	}
}

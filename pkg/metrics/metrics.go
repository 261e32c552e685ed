// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package metrics provides Prometheus instrumentation shared by every
// lessonforge service.
//
// # Description
//
// Covers three concerns common to all seven services:
//   - HTTP request counters/latency (by service, route, status)
//   - Pipeline stage counters (ingestion/lesson/visualization/quiz stage
//     transitions, successes, failures)
//   - Event bus publish/consume counters (by topic)
//
// # Integration
//
// Metrics are exposed via /metrics on each service's gin engine. Use with
// Prometheus + Grafana for dashboards and alerting.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal locking.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "lessonforge"

// Registry holds every metric a lessonforge service may record against.
// Initialize once at startup via Init(serviceName).
type Registry struct {
	RequestsTotal       *prometheus.CounterVec
	RequestDuration     *prometheus.HistogramVec
	PipelineStageTotal  *prometheus.CounterVec
	PipelineStageErrors *prometheus.CounterVec
	EventsPublished     *prometheus.CounterVec
	EventsConsumed      *prometheus.CounterVec
	ActiveConnections   *prometheus.GaugeVec
}

// Default is the process-wide metrics instance. Populated by Init.
var Default *Registry

// Init registers every metric under the lessonforge namespace, labeled with
// the owning service name, and stores the result in Default. Panics if
// called twice against the same Prometheus registry (duplicate
// registration), matching promauto's own behavior.
func Init(service string) *Registry {
	constLabels := prometheus.Labels{"service": service}

	Default = &Registry{
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   namespace,
				Name:        "http_requests_total",
				Help:        "Total HTTP requests by route, method and status code",
				ConstLabels: constLabels,
			},
			[]string{"route", "method", "status"},
		),
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace:   namespace,
				Name:        "http_request_duration_seconds",
				Help:        "HTTP request latency in seconds",
				Buckets:     []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
				ConstLabels: constLabels,
			},
			[]string{"route", "method"},
		),
		PipelineStageTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   namespace,
				Name:        "pipeline_stage_total",
				Help:        "Completed pipeline stage transitions by stage and outcome",
				ConstLabels: constLabels,
			},
			[]string{"stage", "outcome"},
		),
		PipelineStageErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   namespace,
				Name:        "pipeline_stage_errors_total",
				Help:        "Pipeline stage failures by stage and reason code",
				ConstLabels: constLabels,
			},
			[]string{"stage", "reason"},
		),
		EventsPublished: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   namespace,
				Name:        "events_published_total",
				Help:        "Events published to the bus by topic",
				ConstLabels: constLabels,
			},
			[]string{"topic"},
		),
		EventsConsumed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   namespace,
				Name:        "events_consumed_total",
				Help:        "Events consumed from the bus by topic and outcome",
				ConstLabels: constLabels,
			},
			[]string{"topic", "outcome"},
		),
		ActiveConnections: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace:   namespace,
				Name:        "active_connections",
				Help:        "Currently open long-lived connections (WebSocket sessions)",
				ConstLabels: constLabels,
			},
			[]string{"kind"},
		),
	}
	return Default
}

// RecordRequest records one completed HTTP request.
func (r *Registry) RecordRequest(route, method, status string, elapsed time.Duration) {
	r.RequestsTotal.WithLabelValues(route, method, status).Inc()
	r.RequestDuration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

// RecordStage records a pipeline stage transition, e.g.
// ("visualization", "resolved") or ("ingestion", "failed").
func (r *Registry) RecordStage(stage, outcome string) {
	r.PipelineStageTotal.WithLabelValues(stage, outcome).Inc()
}

// RecordStageError records a pipeline stage failure with a short reason
// code, suitable for alerting on a specific failure mode.
func (r *Registry) RecordStageError(stage, reason string) {
	r.PipelineStageErrors.WithLabelValues(stage, reason).Inc()
}

// RecordPublish records one event published to the bus.
func (r *Registry) RecordPublish(topic string) {
	r.EventsPublished.WithLabelValues(topic).Inc()
}

// RecordConsume records one event consumed from the bus, with "consumed",
// "error" (handler failed) or "malformed" (payload did not decode) as
// outcome.
func (r *Registry) RecordConsume(topic, outcome string) {
	r.EventsConsumed.WithLabelValues(topic, outcome).Inc()
}

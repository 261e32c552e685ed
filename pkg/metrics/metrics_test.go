// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Each test calls Init with its own service name so the ConstLabels value
// differs per test, avoiding a duplicate-registration panic against the
// shared default Prometheus registry.

func TestRecordRequest_IncrementsCounterAndObservesLatency(t *testing.T) {
	r := Init("test-record-request")
	r.RecordRequest("/api/lessons", "GET", "200", 50*time.Millisecond)

	count := testutil.ToFloat64(r.RequestsTotal.WithLabelValues("/api/lessons", "GET", "200"))
	assert.Equal(t, float64(1), count)
}

func TestRecordStage_IncrementsByStageAndOutcome(t *testing.T) {
	r := Init("test-record-stage")
	r.RecordStage("visualization", "resolved")
	r.RecordStage("visualization", "resolved")

	count := testutil.ToFloat64(r.PipelineStageTotal.WithLabelValues("visualization", "resolved"))
	assert.Equal(t, float64(2), count)
}

func TestRecordStageError_IncrementsByStageAndReason(t *testing.T) {
	r := Init("test-record-stage-error")
	r.RecordStageError("ingestion", "ocr_failed")

	count := testutil.ToFloat64(r.PipelineStageErrors.WithLabelValues("ingestion", "ocr_failed"))
	assert.Equal(t, float64(1), count)
}

func TestRecordPublishAndConsume_IncrementByTopic(t *testing.T) {
	r := Init("test-record-events")
	r.RecordPublish("lesson.ready")
	r.RecordConsume("lesson.ready", "consumed")
	r.RecordConsume("lesson.ready", "malformed")

	assert.Equal(t, float64(1), testutil.ToFloat64(r.EventsPublished.WithLabelValues("lesson.ready")))
	assert.Equal(t, float64(1), testutil.ToFloat64(r.EventsConsumed.WithLabelValues("lesson.ready", "consumed")))
	assert.Equal(t, float64(1), testutil.ToFloat64(r.EventsConsumed.WithLabelValues("lesson.ready", "malformed")))
}

func TestInit_SetsDefault(t *testing.T) {
	r := Init("test-init-default")
	require.NotNil(t, Default)
	assert.Same(t, r, Default)
}

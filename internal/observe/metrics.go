// Package observe holds the OpenTelemetry metric instruments of the coaching
// pipeline and the Prometheus bridge that exposes them on /metrics.
package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/windfall/phonoecho_service"

// Pipeline paths recorded on AttemptsProcessed.
const (
	PathGuidance = "guidance"
	PathAttempt  = "attempt"
)

// Metrics holds the instruments recorded by the coaching service. The
// OTel types are safe for concurrent use.
type Metrics struct {
	// AttemptsProcessed counts processed attempts by "path" and "status".
	AttemptsProcessed metric.Int64Counter

	// FeedbackComposed counts feedback texts by "source" (prompt, generated,
	// fallback).
	FeedbackComposed metric.Int64Counter

	// LLMDuration tracks generator latency by "provider".
	LLMDuration metric.Float64Histogram

	// AssessmentDuration tracks speech assessment latency.
	AssessmentDuration metric.Float64Histogram

	// HTTPRequestDuration tracks request handling time by "method" and "status".
	HTTPRequestDuration metric.Float64Histogram
}

var latencyBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30,
}

// NewMetrics creates the instruments on mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.AttemptsProcessed, err = m.Int64Counter("phonoecho.attempts.processed",
		metric.WithDescription("Attempts run through the coaching pipeline."),
	); err != nil {
		return nil, err
	}
	if met.FeedbackComposed, err = m.Int64Counter("phonoecho.feedback.composed",
		metric.WithDescription("Feedback texts produced, by source."),
	); err != nil {
		return nil, err
	}
	if met.LLMDuration, err = m.Float64Histogram("phonoecho.llm.duration",
		metric.WithDescription("Latency of feedback generation."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.AssessmentDuration, err = m.Float64Histogram("phonoecho.assessment.duration",
		metric.WithDescription("Latency of pronunciation assessment."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("phonoecho.http.request.duration",
		metric.WithDescription("HTTP request processing time."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	return met, nil
}

// DefaultMetrics creates the instruments on the global meter provider.
func DefaultMetrics() *Metrics {
	m, err := NewMetrics(otel.GetMeterProvider())
	if err != nil {
		// The global provider only fails on invalid instrument options.
		panic(err)
	}
	return m
}

// RecordAttempt counts one processed attempt.
func (m *Metrics) RecordAttempt(ctx context.Context, path string, err error) {
	if m == nil {
		return
	}
	m.AttemptsProcessed.Add(ctx, 1, metric.WithAttributes(
		attribute.String("path", path),
		attribute.String("status", statusOf(err)),
	))
}

// RecordFeedback counts one composed feedback text.
func (m *Metrics) RecordFeedback(ctx context.Context, source string) {
	if m == nil {
		return
	}
	m.FeedbackComposed.Add(ctx, 1, metric.WithAttributes(attribute.String("source", source)))
}

// RecordLLM records the latency of one generator call.
func (m *Metrics) RecordLLM(ctx context.Context, provider string, d time.Duration) {
	if m == nil {
		return
	}
	m.LLMDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("provider", provider)))
}

// RecordAssessment records the latency of one assessment call.
func (m *Metrics) RecordAssessment(ctx context.Context, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.AssessmentDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("status", statusOf(err))))
}

func statusOf(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

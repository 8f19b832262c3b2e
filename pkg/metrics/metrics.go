// Package metrics exposes the OpenTelemetry metric instruments this
// pipeline records: stage restart counters and queue drop/overflow
// counters. Grounded on the Metrics/NewMetrics shape in
// MrWong99-glyphoxa's internal/observe package, narrowed to the handful
// of counters this pipeline's stages actually emit.
package metrics

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const meterName = "github.com/synapse-ai/cognition-pipeline"

// Metrics holds the instruments the supervisor records into, including the
// drop counts it samples from the PCM ring and the Fast Brain queue. All
// fields are safe for concurrent use.
type Metrics struct {
	StageRestarts metric.Int64Counter
	TokensDropped metric.Int64Counter
	FramesDropped metric.Int64Counter
}

// New creates a Metrics instance from the given meter provider. Returns
// an error if any instrument fails to register.
func New(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	met := &Metrics{}
	var err error

	if met.StageRestarts, err = m.Int64Counter("cognition_pipeline.stage.restarts",
		metric.WithDescription("Stage reconstructions performed by the liveness watch."),
	); err != nil {
		return nil, err
	}
	if met.TokensDropped, err = m.Int64Counter("cognition_pipeline.tokens.dropped",
		metric.WithDescription("Tokens dropped from the bounded Fast Brain queue when full."),
	); err != nil {
		return nil, err
	}
	if met.FramesDropped, err = m.Int64Counter("cognition_pipeline.frames.dropped",
		metric.WithDescription("PCM frames dropped from the capture ring when full."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// NoOp returns a Metrics instance backed by the global no-op meter
// provider, for callers (tests, or a pipeline run with metrics disabled)
// that don't want to stand up a real exporter.
func NoOp() *Metrics {
	met, err := New(noop.NewMeterProvider())
	if err != nil {
		panic("metrics: failed to build no-op instruments: " + err.Error())
	}
	return met
}

// RecordStageRestart increments the restart counter for the named stage.
func (m *Metrics) RecordStageRestart(ctx context.Context, stage string) {
	if m == nil {
		return
	}
	m.StageRestarts.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", stage)))
}

// RecordTokenDropped increments the Fast Brain token-drop counter.
func (m *Metrics) RecordTokenDropped(ctx context.Context) {
	if m == nil {
		return
	}
	m.TokensDropped.Add(ctx, 1)
}

// RecordFrameDropped increments the PCM ring frame-drop counter.
func (m *Metrics) RecordFrameDropped(ctx context.Context) {
	if m == nil {
		return
	}
	m.FramesDropped.Add(ctx, 1)
}

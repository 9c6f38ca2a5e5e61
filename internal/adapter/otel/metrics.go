package otel

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/Strob0t/buildnotify/internal/domain/notification"
)

const meterName = "buildnotify"

// Metrics holds all buildnotify metric instruments.
type Metrics struct {
	BuildsReceived metric.Int64Counter
	Dispatches     metric.Int64Counter
	SendDuration   metric.Float64Histogram
}

// NewMetrics creates all metric instruments on the global meter provider.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.BuildsReceived, err = meter.Int64Counter("buildnotify.builds.received",
		metric.WithDescription("Number of finished builds received"))
	if err != nil {
		return nil, err
	}

	m.Dispatches, err = meter.Int64Counter("buildnotify.dispatches",
		metric.WithDescription("Number of dispatch outcomes by kind"))
	if err != nil {
		return nil, err
	}

	m.SendDuration, err = meter.Float64Histogram("buildnotify.send.duration_seconds",
		metric.WithDescription("Sender delivery duration in seconds"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

// RecordBuild counts a received build. Nil receivers are ignored.
func (m *Metrics) RecordBuild(ctx context.Context, project string) {
	if m == nil {
		return
	}
	m.BuildsReceived.Add(ctx, 1, metric.WithAttributes(attribute.String("project", project)))
}

// RecordOutcome counts a dispatch outcome and, for attempted sends, the
// delivery duration.
func (m *Metrics) RecordOutcome(ctx context.Context, o notification.Outcome, took time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("channel", o.Channel),
		attribute.String("status", string(o.Status)),
		attribute.String("kind", string(o.Kind)),
	)
	m.Dispatches.Add(ctx, 1, attrs)
	if o.Kind != notification.OutcomeSkipped {
		m.SendDuration.Record(ctx, took.Seconds(), attrs)
	}
}

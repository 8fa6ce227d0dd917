package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the pipeline metric instruments.
type Metrics struct {
	runCount      metric.Int64Counter
	runDuration   metric.Float64Histogram
	stageDuration metric.Float64Histogram
	rowCount      metric.Int64Histogram
	errorCount    metric.Int64Counter
}

// NewMetrics creates the instruments on mp.
func NewMetrics(mp metric.MeterProvider) *Metrics {
	meter := mp.Meter(MeterName)
	m := &Metrics{}

	// Creation only fails on invalid options; retry without them.
	var err error

	m.runCount, err = meter.Int64Counter(
		"causalrt.run.count",
		metric.WithDescription("Total number of pipeline runs"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		m.runCount, _ = meter.Int64Counter("causalrt.run.count")
	}

	m.runDuration, err = meter.Float64Histogram(
		"causalrt.run.duration",
		metric.WithDescription("Duration of pipeline runs in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		m.runDuration, _ = meter.Float64Histogram("causalrt.run.duration")
	}

	m.stageDuration, err = meter.Float64Histogram(
		"causalrt.stage.duration",
		metric.WithDescription("Duration of individual pipeline stages in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		m.stageDuration, _ = meter.Float64Histogram("causalrt.stage.duration")
	}

	m.rowCount, err = meter.Int64Histogram(
		"causalrt.result.rows",
		metric.WithDescription("Number of rows returned by a run"),
		metric.WithUnit("{row}"),
	)
	if err != nil {
		m.rowCount, _ = meter.Int64Histogram("causalrt.result.rows")
	}

	m.errorCount, err = meter.Int64Counter(
		"causalrt.error.count",
		metric.WithDescription("Total number of failed runs by error kind"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		m.errorCount, _ = meter.Int64Counter("causalrt.error.count")
	}

	return m
}

// RecordRun records a finished run. errorKind is empty on success.
func (m *Metrics) RecordRun(ctx context.Context, backend, errorKind string, rows int, d time.Duration) {
	outcome := "ok"
	if errorKind != "" {
		outcome = "error"
	}
	attrs := metric.WithAttributes(BackendAttr(backend), OutcomeAttr(outcome))
	m.runCount.Add(ctx, 1, attrs)
	m.runDuration.Record(ctx, float64(d.Microseconds())/1000, attrs)
	if errorKind == "" {
		m.rowCount.Record(ctx, int64(rows), metric.WithAttributes(BackendAttr(backend)))
		return
	}
	m.errorCount.Add(ctx, 1, metric.WithAttributes(BackendAttr(backend), ErrorKindAttr(errorKind)))
}

// RecordStage records the duration of one stage.
func (m *Metrics) RecordStage(ctx context.Context, stage, backend string, d time.Duration) {
	m.stageDuration.Record(ctx, float64(d.Microseconds())/1000,
		metric.WithAttributes(StageAttr(stage), BackendAttr(backend)))
}

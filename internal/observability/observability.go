package observability

import (
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// Config holds the OpenTelemetry providers. Nil providers disable the
// corresponding signal.
type Config struct {
	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
}

// Option configures observability.
type Option func(*Config)

// WithTracerProvider sets the tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Config) { c.TracerProvider = tp }
}

// WithMeterProvider sets the meter provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(c *Config) { c.MeterProvider = mp }
}

// Instruments bundles the tracer and metrics used by the engine.
type Instruments struct {
	Tracer  *Tracer
	Metrics *Metrics
}

// New builds instruments from options, substituting no-op providers.
func New(opts ...Option) *Instruments {
	var c Config
	for _, o := range opts {
		o(&c)
	}
	tp := c.TracerProvider
	if tp == nil {
		tp = tracenoop.NewTracerProvider()
	}
	mp := c.MeterProvider
	if mp == nil {
		mp = noop.NewMeterProvider()
	}
	return &Instruments{Tracer: NewTracer(tp), Metrics: NewMetrics(mp)}
}

// Noop returns instruments that record nothing.
func Noop() *Instruments {
	return New()
}

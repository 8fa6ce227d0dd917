package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/roach88/causalrt/internal/backend"
	"github.com/roach88/causalrt/internal/codegen"
	"github.com/roach88/causalrt/internal/observability"
	"github.com/roach88/causalrt/internal/planner"
	"github.com/roach88/causalrt/internal/plugin"
	"github.com/roach88/causalrt/internal/store"
)

// Recorder persists the run log. *store.Store implements it.
//
// The engine writes the run first and then any dataset or estimate that
// references it.
type Recorder interface {
	WriteRun(ctx context.Context, r store.Run) error
	WriteDataset(ctx context.Context, d store.Dataset) error
	WriteEstimate(ctx context.Context, e store.Estimate) error
}

var _ Recorder = (*store.Store)(nil)

// Engine compiles DSL queries and executes them on graph backends.
//
// Thread-safety: an Engine is immutable after New and safe for concurrent
// use. Each request opens its own backend session.
type Engine struct {
	generators map[backend.Tag]codegen.Generator
	connectors map[backend.Tag]backend.Connector
	order      []backend.Tag

	compilePlanner *planner.Planner // every backend with a generator
	runPlanner     *planner.Planner // backends with a generator and a connector

	timeout  time.Duration
	clock    Clock
	ids      RunIDGenerator
	logger   *slog.Logger
	recorder Recorder
	obs      *observability.Instruments
	plugins  *plugin.Registry
}

// Option configures an Engine.
type Option func(*Engine)

// WithConnector makes a backend executable. The engine closes it in Close.
func WithConnector(c backend.Connector) Option {
	return func(e *Engine) {
		e.connectors[c.Tag()] = c
	}
}

// WithGenerator replaces the query generator for g.Backend().
func WithGenerator(g codegen.Generator) Option {
	return func(e *Engine) {
		e.generators[g.Backend()] = g
	}
}

// WithOrder sets the planner's tie-break order. Tags missing from order
// are never chosen automatically and cannot be preferred.
func WithOrder(order ...backend.Tag) Option {
	return func(e *Engine) {
		e.order = append([]backend.Tag(nil), order...)
	}
}

// WithTimeout bounds each backend call. Zero means no timeout.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.timeout = d
	}
}

// WithClock sets the clock used for run timestamps and durations.
func WithClock(c Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithRunIDGenerator sets the run id source.
//
// Default: UUIDv7Generator.
func WithRunIDGenerator(g RunIDGenerator) Option {
	return func(e *Engine) {
		e.ids = g
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithRecorder records every run. Recorder failures are logged and never
// fail the request.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) {
		e.recorder = r
	}
}

// WithInstruments sets the tracer and metrics. Default: no-op.
func WithInstruments(in *observability.Instruments) Option {
	return func(e *Engine) {
		e.obs = in
	}
}

// WithPlugins sets the estimator registry. Default: plugin.Default.
func WithPlugins(r *plugin.Registry) Option {
	return func(e *Engine) {
		e.plugins = r
	}
}

// New creates an Engine.
//
// Without options the engine can compile for every backend but execute on
// none; add connectors with WithConnector.
func New(opts ...Option) *Engine {
	e := &Engine{
		generators: map[backend.Tag]codegen.Generator{
			backend.DuckDB: codegen.NewSQLPGQ("", ""),
			backend.Neo4j:  codegen.NewCypher(),
			backend.AGE:    codegen.NewAGE(""),
		},
		connectors: make(map[backend.Tag]backend.Connector),
		order:      backend.DefaultOrder(),
		clock:      SystemClock{},
		ids:        UUIDv7Generator{},
		logger:     slog.Default(),
		obs:        observability.Noop(),
		plugins:    plugin.Default,
	}
	for _, opt := range opts {
		opt(e)
	}

	var compileCands, runCands []planner.Candidate
	for _, tag := range e.order {
		g, ok := e.generators[tag]
		if !ok {
			continue
		}
		c := planner.Candidate{Tag: tag, Capabilities: g.Capabilities()}
		compileCands = append(compileCands, c)
		if _, ok := e.connectors[tag]; ok {
			runCands = append(runCands, c)
		}
	}
	e.compilePlanner = planner.New(compileCands...)
	e.runPlanner = planner.New(runCands...)
	return e
}

// Backends returns the tags the engine can execute on, in planner order.
func (e *Engine) Backends() []backend.Tag {
	var tags []backend.Tag
	for _, c := range e.runPlanner.Candidates() {
		tags = append(tags, c.Tag)
	}
	return tags
}

// Plugins returns the engine's estimator registry.
func (e *Engine) Plugins() *plugin.Registry {
	return e.plugins
}

// Close closes every connector.
func (e *Engine) Close() error {
	var errs []error
	for _, c := range e.connectors {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

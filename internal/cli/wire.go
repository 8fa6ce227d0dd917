package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"go.opentelemetry.io/otel"

	"github.com/roach88/causalrt/internal/backend"
	"github.com/roach88/causalrt/internal/backend/age"
	"github.com/roach88/causalrt/internal/backend/duckdb"
	"github.com/roach88/causalrt/internal/backend/neo4j"
	"github.com/roach88/causalrt/internal/codegen"
	"github.com/roach88/causalrt/internal/config"
	"github.com/roach88/causalrt/internal/engine"
	"github.com/roach88/causalrt/internal/observability"
	"github.com/roach88/causalrt/internal/plugin"
	_ "github.com/roach88/causalrt/internal/plugin/estimators" // built-in estimators
	"github.com/roach88/causalrt/internal/store"
)

// ConnectFunc opens the connectors for the configured backends.
type ConnectFunc func(ctx context.Context, cfg *config.Config) ([]backend.Connector, error)

// OpenConnectors opens one connector per configured backend. On failure
// the connectors opened so far are closed.
func OpenConnectors(ctx context.Context, cfg *config.Config) ([]backend.Connector, error) {
	var conns []backend.Connector
	fail := func(err error) ([]backend.Connector, error) {
		for _, c := range conns {
			err = errors.Join(err, c.Close())
		}
		return nil, err
	}

	for _, tag := range cfg.Tags() {
		var (
			c   backend.Connector
			err error
		)
		switch tag {
		case backend.DuckDB:
			c, err = duckdb.Open(ctx, duckdb.Config{Path: cfg.DuckDB.Path, Setup: cfg.DuckDB.Setup})
		case backend.Neo4j:
			c, err = neo4j.Open(neo4j.Config{
				URI:      cfg.Neo4j.URI,
				User:     cfg.Neo4j.User,
				Password: cfg.Neo4j.Password,
				Database: cfg.Neo4j.Database,
			})
		case backend.AGE:
			c, err = age.Open(ctx, age.Config{DSN: cfg.AGE.DSN})
		default:
			err = fmt.Errorf("unknown backend %q", tag)
		}
		if err != nil {
			return fail(fmt.Errorf("connect %s: %w", tag, err))
		}
		conns = append(conns, c)
	}
	return conns, nil
}

// compilerOptions configures generators and planner order from cfg.
// Configured backends come first; the rest keep their default order.
func compilerOptions(cfg *config.Config, logger *slog.Logger) []engine.Option {
	order := cfg.Tags()
	for _, tag := range backend.DefaultOrder() {
		if !slices.Contains(order, tag) {
			order = append(order, tag)
		}
	}
	return []engine.Option{
		engine.WithGenerator(codegen.NewSQLPGQ(cfg.DuckDB.Graph, cfg.DuckDB.KeyColumn)),
		engine.WithGenerator(codegen.NewCypher()),
		engine.WithGenerator(codegen.NewAGE(cfg.AGE.Graph)),
		engine.WithOrder(order...),
		engine.WithLogger(logger),
	}
}

// runtime is an engine wired to live backends and the run log.
type runtime struct {
	Engine *engine.Engine
	Store  *store.Store // nil when the run log is disabled
}

func (r *runtime) Close() error {
	err := r.Engine.Close()
	if r.Store != nil {
		err = errors.Join(err, r.Store.Close())
	}
	return err
}

// newCompiler builds an engine that can compile but not execute.
func (o *RootOptions) newCompiler(cfg *config.Config) *engine.Engine {
	return engine.New(append(compilerOptions(cfg, o.Logger()), o.EngineOptions...)...)
}

// newRuntime connects the configured backends and opens the run log.
func (o *RootOptions) newRuntime(ctx context.Context, cfg *config.Config) (*runtime, error) {
	connect := o.Connect
	if connect == nil {
		connect = OpenConnectors
	}

	var st *store.Store
	if cfg.Store.Path != "" {
		var err error
		if st, err = store.Open(cfg.Store.Path); err != nil {
			return nil, fmt.Errorf("open run log: %w", err)
		}
	}

	conns, err := connect(ctx, cfg)
	if err != nil {
		if st != nil {
			st.Close()
		}
		return nil, err
	}

	plugin.Default.Freeze()
	opts := append(compilerOptions(cfg, o.Logger()),
		engine.WithTimeout(cfg.Timeout),
		engine.WithPlugins(plugin.Default),
		engine.WithInstruments(observability.New(
			observability.WithTracerProvider(otel.GetTracerProvider()),
			observability.WithMeterProvider(otel.GetMeterProvider()),
		)),
	)
	for _, c := range conns {
		opts = append(opts, engine.WithConnector(c))
	}
	if st != nil {
		opts = append(opts, engine.WithRecorder(st))
	}
	opts = append(opts, o.EngineOptions...)

	o.Logger().Debug("engine ready", "backends", cfg.Tags(), "store", cfg.Store.Path)
	return &runtime{Engine: engine.New(opts...), Store: st}, nil
}

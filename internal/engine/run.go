package engine

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/causalrt/internal/backend"
	"github.com/roach88/causalrt/internal/dsl"
	"github.com/roach88/causalrt/internal/ir"
	"github.com/roach88/causalrt/internal/observability"
	"github.com/roach88/causalrt/internal/plugin"
	"github.com/roach88/causalrt/internal/store"
)

// DefaultDatasetName names an extracted dataset when the request does not.
const DefaultDatasetName = "dataset"

// Request is one query to execute.
type Request struct {
	Query   string `json:"query"`
	Backend string `json:"backend,omitempty"` // "", "auto" or a backend tag
}

// ExtractRequest executes a query and packages its rows as a dataset.
type ExtractRequest struct {
	Query      string            `json:"query"`
	Backend    string            `json:"backend,omitempty"`
	Dataset    string            `json:"dataset,omitempty"`
	SchemaHint map[string]string `json:"schema_hint,omitempty"`
}

// EstimateRequest extracts a dataset and runs an estimator plugin on it.
type EstimateRequest struct {
	ExtractRequest
	Plugin string `json:"plugin"`
	Seed   int64  `json:"seed"`
}

// Result is the outcome of a successful run.
type Result struct {
	RunID         string          `json:"run_id"`
	Backend       backend.Tag     `json:"backend"`
	CompiledQuery string          `json:"compiled_query"`
	Rows          []backend.Row   `json:"rows"`
	Dataset       *plugin.Dataset `json:"dataset,omitempty"`
	Estimate      map[string]any  `json:"estimate,omitempty"`
}

// runState accumulates what finish records about one run.
type runState struct {
	rec      store.Run
	span     trace.Span
	dataset  *store.Dataset
	estimate *store.Estimate
}

// Run compiles and executes a DSL query.
func (e *Engine) Run(ctx context.Context, req Request) (*Result, error) {
	ctx, rs := e.begin(ctx, store.KindQuery, req.Query, req.Backend)
	res, err := e.run(ctx, rs, req.Backend, func() (ir.Node, error) {
		return e.parse(ctx, req.Query)
	})
	e.finish(ctx, rs, err)
	return res, err
}

// RunNode executes an IR tree.
func (e *Engine) RunNode(ctx context.Context, node ir.Node, preferred string) (*Result, error) {
	ctx, rs := e.begin(ctx, store.KindQuery, queryText(node), preferred)
	res, err := e.run(ctx, rs, preferred, func() (ir.Node, error) {
		return node, nil
	})
	e.finish(ctx, rs, err)
	return res, err
}

// Extract executes a query wrapped in ExtractDataset and returns its
// rows as Result.Dataset.
func (e *Engine) Extract(ctx context.Context, req ExtractRequest) (*Result, error) {
	ctx, rs := e.begin(ctx, store.KindExtract, req.Query, req.Backend)
	res, err := e.extract(ctx, rs, req)
	e.finish(ctx, rs, err)
	return res, err
}

// Estimate extracts a dataset, validates it against its schema hint and
// runs the named estimator on it. The plugin is resolved before the
// query executes.
func (e *Engine) Estimate(ctx context.Context, req EstimateRequest) (*Result, error) {
	ctx, rs := e.begin(ctx, store.KindEstimate, req.Query, req.Backend)
	res, err := e.estimate(ctx, rs, req)
	e.finish(ctx, rs, err)
	return res, err
}

func (e *Engine) estimate(ctx context.Context, rs *runState, req EstimateRequest) (*Result, error) {
	p, err := e.plugins.Lookup(req.Plugin)
	if err != nil {
		return nil, err
	}
	res, err := e.extract(ctx, rs, req.ExtractRequest)
	if err != nil {
		return nil, err
	}

	err = e.stage(ctx, rs, observability.StageEstimate, func(ctx context.Context) error {
		if err := res.Dataset.Validate(); err != nil {
			return &plugin.PluginError{Name: p.Name(), Cause: err}
		}
		rc := plugin.RunContext{RunID: rs.rec.ID, Seed: req.Seed}
		out, err := e.plugins.Run(ctx, p.Name(), res.Dataset, rc)
		if err != nil {
			return err
		}
		res.Estimate = out
		rs.estimate = &store.Estimate{
			RunID:   rs.rec.ID,
			Plugin:  p.Name(),
			Version: p.Version(),
			Seed:    req.Seed,
			Result:  out,
		}
		return nil
	}, observability.PluginAttr(p.Name()))
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (e *Engine) extract(ctx context.Context, rs *runState, req ExtractRequest) (*Result, error) {
	name := req.Dataset
	if name == "" {
		name = DefaultDatasetName
	}
	res, err := e.run(ctx, rs, req.Backend, func() (ir.Node, error) {
		node, err := e.parse(ctx, req.Query)
		if err != nil {
			return nil, err
		}
		return ir.NewExtractDataset(node, name, req.SchemaHint), nil
	})
	if err != nil {
		return nil, err
	}

	err = e.stage(ctx, rs, observability.StageExtract, func(context.Context) error {
		res.Dataset = plugin.NewDataset(name, req.SchemaHint, res.Rows)
		rs.dataset = &store.Dataset{
			RunID:      rs.rec.ID,
			Name:       name,
			Columns:    res.Dataset.Columns,
			SchemaHint: res.Dataset.SchemaHint,
			RowCount:   res.Dataset.Len(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// run drives plan, lower and execute for the tree returned by build.
func (e *Engine) run(ctx context.Context, rs *runState, preferred string, build func() (ir.Node, error)) (*Result, error) {
	node, err := build()
	if err != nil {
		return nil, err
	}
	rs.rec.Fingerprint = fingerprint(node)
	if rs.rec.Fingerprint != "" {
		rs.span.SetAttributes(observability.FingerprintAttr(rs.rec.Fingerprint))
	}

	var tag backend.Tag
	err = e.stage(ctx, rs, observability.StagePlan, func(context.Context) error {
		var err error
		tag, err = e.runPlanner.Choose(node, preferred)
		return err
	}, observability.NodeKindsAttr(ir.Kinds(node).String()))
	if err != nil {
		return nil, err
	}
	rs.rec.Backend = string(tag)
	rs.span.SetAttributes(observability.BackendAttr(string(tag)))

	var query string
	err = e.stage(ctx, rs, observability.StageLower, func(context.Context) error {
		var err error
		query, err = e.lower(tag, node)
		return err
	})
	if err != nil {
		return nil, err
	}
	rs.rec.CompiledQuery = query

	var rows []backend.Row
	err = e.stage(ctx, rs, observability.StageExecute, func(ctx context.Context) error {
		var err error
		rows, err = e.execute(ctx, tag, query)
		return err
	})
	if err != nil {
		return nil, err
	}
	rs.rec.RowCount = len(rows)

	return &Result{
		RunID:         rs.rec.ID,
		Backend:       tag,
		CompiledQuery: query,
		Rows:          rows,
	}, nil
}

func (e *Engine) parse(ctx context.Context, text string) (ir.Node, error) {
	var node ir.Node
	err := e.stage(ctx, nil, observability.StageParse, func(context.Context) error {
		var err error
		node, err = dsl.Parse(text)
		return err
	})
	return node, err
}

// stage runs fn inside a span and records its duration.
func (e *Engine) stage(ctx context.Context, rs *runState, name string, fn func(context.Context) error, attrs ...attribute.KeyValue) error {
	ctx, span := e.obs.Tracer.StartStage(ctx, name, attrs...)
	start := e.clock.Now()
	err := fn(ctx)

	tag := ""
	if rs != nil {
		tag = rs.rec.Backend
	}
	e.obs.Metrics.RecordStage(ctx, name, tag, e.clock.Now().Sub(start))
	observability.EndStage(span, err, Classify(err).String())
	return err
}

// begin allocates a run id and starts the root span.
func (e *Engine) begin(ctx context.Context, kind store.RunKind, query, preferred string) (context.Context, *runState) {
	id := e.ids.Generate()
	ctx, span := e.obs.Tracer.StartRun(ctx, string(kind), id, preferred)
	return ctx, &runState{
		span: span,
		rec: store.Run{
			ID:        id,
			Kind:      kind,
			Query:     query,
			StartedAt: e.clock.Now().UTC(),
		},
	}
}

// finish records the run outcome in the run log, metrics, log and span.
func (e *Engine) finish(ctx context.Context, rs *runState, err error) {
	d := e.clock.Now().Sub(rs.rec.StartedAt)
	kind := Classify(err)

	rs.rec.Duration = d
	rs.rec.Status = store.StatusOK
	if err != nil {
		rs.rec.Status = store.StatusError
		rs.rec.ErrorKind = kind.String()
		rs.rec.Error = err.Error()
	}

	e.record(ctx, rs)
	e.obs.Metrics.RecordRun(ctx, rs.rec.Backend, kind.String(), rs.rec.RowCount, d)

	attrs := []any{
		slog.String("run_id", rs.rec.ID),
		slog.String("kind", string(rs.rec.Kind)),
		slog.String("backend", rs.rec.Backend),
		slog.Int("rows", rs.rec.RowCount),
		slog.Duration("duration", d.Round(time.Microsecond)),
	}
	if err != nil {
		e.logger.Warn("run failed", append(attrs, slog.String("error_kind", kind.String()), slog.Any("error", err))...)
	} else {
		e.logger.Info("run completed", attrs...)
	}

	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	rs.span.SetAttributes(observability.RowCountAttr(rs.rec.RowCount), observability.OutcomeAttr(outcome))
	observability.RecordError(rs.span, err, kind.String())
	rs.span.End()
}

func (e *Engine) record(ctx context.Context, rs *runState) {
	if e.recorder == nil {
		return
	}
	// Record even when the caller's context is already done.
	ctx = context.WithoutCancel(ctx)
	if err := e.recorder.WriteRun(ctx, rs.rec); err != nil {
		e.logger.Error("recording run", "run_id", rs.rec.ID, "error", err)
		return
	}
	if rs.dataset != nil {
		if err := e.recorder.WriteDataset(ctx, *rs.dataset); err != nil {
			e.logger.Error("recording dataset", "run_id", rs.rec.ID, "error", err)
		}
	}
	if rs.estimate != nil {
		if err := e.recorder.WriteEstimate(ctx, *rs.estimate); err != nil {
			e.logger.Error("recording estimate", "run_id", rs.rec.ID, "error", err)
		}
	}
}

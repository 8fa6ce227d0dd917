package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/roach88/causalrt/internal/backend"
	"github.com/roach88/causalrt/internal/engine"
	_ "github.com/roach88/causalrt/internal/plugin/estimators" // built-in estimators
	"github.com/roach88/causalrt/internal/store"
	"github.com/roach88/causalrt/internal/testutil"
)

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory run log for isolation.
// Deterministic helpers ensure reproducible results.
//
// Execution flow:
// 1. Compile the query for every target backend
// 2. If an execute step is present, run it on a stub backend
// 3. Evaluate assertions against the result
//
// A non-nil error means the harness itself failed; assertion failures
// are reported in Result.Errors.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	opts := []engine.Option{
		engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		engine.WithClock(testutil.NewStepClock(testutil.Epoch, time.Millisecond)),
		engine.WithRunIDGenerator(testutil.NewSequentialRunIDs(scenario.Name)),
		engine.WithRecorder(st),
	}
	if x := scenario.Execute; x != nil {
		opts = append(opts, engine.WithConnector(stubFor(x)))
	}
	eng := engine.New(opts...)
	defer eng.Close()

	result := NewResult(scenario.Name)
	for _, tag := range scenario.Targets() {
		result.Compiled = append(result.Compiled, compile(eng, scenario.Query, tag))
	}

	if scenario.Execute != nil {
		result.Executed = execute(ctx, eng, scenario)
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// RunAll runs every scenario, stopping at the first harness failure.
func RunAll(ctx context.Context, scenarios []*Scenario) ([]*Result, error) {
	results := make([]*Result, 0, len(scenarios))
	for _, s := range scenarios {
		r, err := Run(ctx, s)
		if err != nil {
			return results, fmt.Errorf("scenario %s: %w", s.Name, err)
		}
		results = append(results, r)
	}
	return results, nil
}

func compile(eng *engine.Engine, query string, tag backend.Tag) Compiled {
	out := Compiled{Backend: string(tag)}
	c, err := eng.Compile(query, string(tag))
	if err != nil {
		out.ErrorKind = engine.Classify(err).String()
		out.Error = err.Error()
		return out
	}
	out.Query = c.Query
	return out
}

func stubFor(x *ExecuteStep) *testutil.StubConnector {
	tag, _ := backend.ParseTag(x.Backend)
	rows := make([]backend.Row, len(x.Rows))
	for i, values := range x.Rows {
		rows[i] = backend.NewRow(x.Columns, values)
	}
	return testutil.NewStubConnector(tag, rows...)
}

func execute(ctx context.Context, eng *engine.Engine, s *Scenario) *Executed {
	x := s.Execute
	var (
		res *engine.Result
		err error
	)
	extract := engine.ExtractRequest{
		Query:      s.Query,
		Backend:    x.Backend,
		Dataset:    x.Dataset,
		SchemaHint: x.SchemaHint,
	}
	switch {
	case x.Plugin != "":
		res, err = eng.Estimate(ctx, engine.EstimateRequest{ExtractRequest: extract, Plugin: x.Plugin, Seed: x.Seed})
	case x.Dataset != "" || len(x.SchemaHint) > 0:
		res, err = eng.Extract(ctx, extract)
	default:
		res, err = eng.Run(ctx, engine.Request{Query: s.Query, Backend: x.Backend})
	}

	out := &Executed{Columns: []string{}, Rows: []backend.Row{}}
	if err != nil {
		out.ErrorKind = engine.Classify(err).String()
		out.Error = err.Error()
		return out
	}
	out.RunID = res.RunID
	out.Backend = string(res.Backend)
	out.CompiledQuery = res.CompiledQuery
	out.Rows = res.Rows
	out.Estimate = res.Estimate
	if len(res.Rows) > 0 {
		out.Columns = res.Rows[0].Columns
	}
	return out
}

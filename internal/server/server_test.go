package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/causalrt/internal/backend"
	"github.com/roach88/causalrt/internal/engine"
	"github.com/roach88/causalrt/internal/plugin"
	_ "github.com/roach88/causalrt/internal/plugin/estimators"
	"github.com/roach88/causalrt/internal/testutil"
)

const pairsQuery = "MATCH Person-[:KNOWS]->Person HOPS 2 RETURN src, dst"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupTestServer(t *testing.T, opts ...engine.Option) http.Handler {
	t.Helper()
	base := []engine.Option{
		engine.WithLogger(discardLogger()),
		engine.WithClock(testutil.NewStepClock(testutil.Epoch, time.Millisecond)),
		engine.WithRunIDGenerator(testutil.NewSequentialRunIDs("run")),
	}
	eng := engine.New(append(base, opts...)...)
	t.Cleanup(func() { eng.Close() })
	return New(eng, discardLogger()).Handler()
}

func do(t *testing.T, h http.Handler, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return rec, out
}

func pairRows() []backend.Row {
	cols := []string{"src", "dst"}
	return []backend.Row{
		backend.NewRow(cols, []any{"a", "b"}),
		backend.NewRow(cols, []any{"a", "c"}),
	}
}

func TestHealth(t *testing.T) {
	h := setupTestServer(t)
	rec, out := do(t, h, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"ok": true}, out)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestPlugins(t *testing.T) {
	reg := plugin.NewRegistry()
	reg.MustRegister(stubPlugin{})
	h := setupTestServer(t, engine.WithPlugins(reg))

	rec, out := do(t, h, http.MethodGet, "/plugins", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{map[string]any{"name": "stub", "version": "1.0.0"}}, out["plugins"])
}

func TestQuery(t *testing.T) {
	conn := testutil.NewStubConnector(backend.Neo4j, pairRows()...)
	h := setupTestServer(t, engine.WithConnector(conn))

	rec, out := do(t, h, http.MethodPost, "/query", QueryRequest{Query: pairsQuery, Backend: "auto"})
	require.Equal(t, http.StatusOK, rec.Code, out)

	assert.Equal(t, "run-0001", out["run_id"])
	assert.Equal(t, "neo4j", out["backend"])
	assert.Contains(t, out["compiled_query"], "*1..2")
	assert.Equal(t, []any{
		map[string]any{"src": "a", "dst": "b"},
		map[string]any{"src": "a", "dst": "c"},
	}, out["rows"])
	assert.Equal(t, []string{out["compiled_query"].(string)}, conn.Queries())
}

func TestCompile(t *testing.T) {
	h := setupTestServer(t)

	rec, out := do(t, h, http.MethodPost, "/compile", QueryRequest{Query: pairsQuery, Backend: "duckdb"})
	require.Equal(t, http.StatusOK, rec.Code, out)
	assert.Equal(t, "duckdb", out["backend"])
	assert.Contains(t, out["compiled_query"], "GRAPH_TABLE")
	assert.NotEmpty(t, out["fingerprint"])
}

func TestEstimate(t *testing.T) {
	cols := []string{"treatment", "outcome"}
	conn := testutil.NewStubConnector(backend.DuckDB,
		backend.NewRow(cols, []any{int64(1), 5.0}),
		backend.NewRow(cols, []any{int64(1), 7.0}),
		backend.NewRow(cols, []any{int64(0), 2.0}),
		backend.NewRow(cols, []any{int64(0), 4.0}),
	)
	h := setupTestServer(t, engine.WithConnector(conn))

	req := EstimateRequest{
		ExtractRequest: engine.ExtractRequest{
			Query:      "MATCH Person-[:KNOWS]->Person HOPS 1 RETURN src.treated AS treatment, dst.score AS outcome",
			SchemaHint: map[string]string{"treatment": "int", "outcome": "number"},
		},
		Plugin: "diff_in_means",
		Seed:   7,
	}
	rec, out := do(t, h, http.MethodPost, "/estimate", req)
	require.Equal(t, http.StatusOK, rec.Code, out)

	est, ok := out["estimate"].(map[string]any)
	require.True(t, ok, out)
	assert.Equal(t, "diff_in_means", est["estimator"])
	assert.InDelta(t, 3.0, est["ate"], 1e-9)
	assert.Equal(t, 7.0, est["seed"])
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		body   any
		conn   *testutil.StubConnector
		opts   []engine.Option
		status int
		kind   string
	}{
		{
			name:   "bad json",
			path:   "/query",
			body:   map[string]any{"query": pairsQuery, "hops": 2},
			status: http.StatusBadRequest,
			kind:   "BadRequest",
		},
		{
			name:   "missing query",
			path:   "/compile",
			body:   QueryRequest{},
			status: http.StatusBadRequest,
			kind:   "BadRequest",
		},
		{
			name:   "missing plugin",
			path:   "/estimate",
			body:   EstimateRequest{ExtractRequest: engine.ExtractRequest{Query: pairsQuery}},
			status: http.StatusBadRequest,
			kind:   "BadRequest",
		},
		{
			name:   "parse error",
			path:   "/query",
			body:   QueryRequest{Query: "MATCH Person"},
			status: http.StatusBadRequest,
			kind:   "ParseError",
		},
		{
			name:   "unknown backend",
			path:   "/compile",
			body:   QueryRequest{Query: pairsQuery, Backend: "oracle"},
			status: http.StatusUnprocessableEntity,
			kind:   "PlanError",
		},
		{
			name:   "backend not connected",
			path:   "/query",
			body:   QueryRequest{Query: pairsQuery, Backend: "age"},
			conn:   testutil.NewStubConnector(backend.Neo4j),
			status: http.StatusUnprocessableEntity,
			kind:   "PlanError",
		},
		{
			name:   "unknown column",
			path:   "/compile",
			body:   QueryRequest{Query: "MATCH Person-[:KNOWS]->Person HOPS 1 RETURN nobody"},
			status: http.StatusUnprocessableEntity,
			kind:   "CompileError",
		},
		{
			name:   "execution failure",
			path:   "/query",
			body:   QueryRequest{Query: pairsQuery},
			conn:   &testutil.StubConnector{Backend: backend.Neo4j, QueryErr: errors.New("connection reset")},
			status: http.StatusBadGateway,
			kind:   "ExecutionError",
		},
		{
			name:   "timeout",
			path:   "/query",
			body:   QueryRequest{Query: pairsQuery},
			conn:   &testutil.StubConnector{Backend: backend.Neo4j, Block: true},
			opts:   []engine.Option{engine.WithTimeout(20 * time.Millisecond)},
			status: http.StatusGatewayTimeout,
			kind:   "TimeoutError",
		},
		{
			name:   "unknown plugin",
			path:   "/estimate",
			body:   EstimateRequest{ExtractRequest: engine.ExtractRequest{Query: pairsQuery}, Plugin: "nope"},
			conn:   testutil.NewStubConnector(backend.Neo4j),
			status: http.StatusNotFound,
			kind:   "PluginError",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := tt.opts
			if tt.conn != nil {
				opts = append(opts, engine.WithConnector(tt.conn))
			}
			h := setupTestServer(t, opts...)

			rec, out := do(t, h, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.status, rec.Code, out)
			assert.Equal(t, tt.kind, out["kind"])
			assert.NotEmpty(t, out["error"])
		})
	}
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusOK, StatusFor(nil))
	assert.Equal(t, http.StatusInternalServerError, StatusFor(errors.New("boom")))
	assert.Equal(t, http.StatusUnprocessableEntity,
		StatusFor(&plugin.PluginError{Name: "x", Cause: errors.New("bad input")}))
	assert.Equal(t, http.StatusNotFound,
		StatusFor(&plugin.PluginError{Name: "x", Cause: plugin.ErrUnknown}))
}

func TestListenAndServe_StopsOnCancel(t *testing.T) {
	eng := engine.New(engine.WithLogger(discardLogger()))
	defer eng.Close()
	srv := New(eng, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.ListenAndServe(ctx, "127.0.0.1:0") }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

type stubPlugin struct{}

func (stubPlugin) Name() string    { return "stub" }
func (stubPlugin) Version() string { return "1.0.0" }
func (stubPlugin) Run(context.Context, *plugin.Dataset, plugin.RunContext) (map[string]any, error) {
	return map[string]any{}, nil
}

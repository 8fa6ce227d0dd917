package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/causalrt/internal/backend"
	"github.com/roach88/causalrt/internal/config"
	"github.com/roach88/causalrt/internal/engine"
	"github.com/roach88/causalrt/internal/testutil"
)

const pairsQuery = "MATCH Person-[:KNOWS]->Person HOPS 2 RETURN src, dst"

// testEnv runs CLI commands against stub connectors and a run log in a
// temporary directory.
type testEnv struct {
	t     *testing.T
	conns func() []backend.Connector
	store string
}

func newTestEnv(t *testing.T, conns func() []backend.Connector) *testEnv {
	t.Helper()
	if conns == nil {
		conns = func() []backend.Connector { return nil }
	}
	return &testEnv{t: t, conns: conns, store: filepath.Join(t.TempDir(), "runs.db")}
}

func (e *testEnv) options() *RootOptions {
	return &RootOptions{
		Connect: func(context.Context, *config.Config) ([]backend.Connector, error) {
			return e.conns(), nil
		},
		EngineOptions: []engine.Option{
			engine.WithClock(testutil.NewStepClock(testutil.Epoch, time.Millisecond)),
			engine.WithRunIDGenerator(testutil.NewSequentialRunIDs("run")),
		},
	}
}

// run executes the root command and returns stdout.
func (e *testEnv) run(args ...string) (string, error) {
	e.t.Helper()
	out := &bytes.Buffer{}
	cmd := NewRootCommandWithOptions(e.options())
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(append([]string{"--store", e.store}, args...))
	err := cmd.Execute()
	return out.String(), err
}

// runStdin is like run with the given standard input.
func (e *testEnv) runStdin(stdin string, args ...string) (string, error) {
	e.t.Helper()
	out := &bytes.Buffer{}
	cmd := NewRootCommandWithOptions(e.options())
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--store", e.store}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func pairRows() []backend.Row {
	cols := []string{"src", "dst"}
	return []backend.Row{
		backend.NewRow(cols, []any{"a", "b"}),
		backend.NewRow(cols, []any{"a", "c"}),
	}
}

func stubs(cs ...*testutil.StubConnector) func() []backend.Connector {
	return func() []backend.Connector {
		out := make([]backend.Connector, len(cs))
		for i, c := range cs {
			// Engines close their connectors; hand out a fresh copy each time.
			cp := &testutil.StubConnector{
				Backend:  c.Backend,
				Rows:     c.Rows,
				OpenErr:  c.OpenErr,
				QueryErr: c.QueryErr,
			}
			out[i] = cp
		}
		return out
	}
}

func requireExitCode(t *testing.T, err error, code int) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, code, GetExitCode(err), err.Error())
}

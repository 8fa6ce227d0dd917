package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	scenariosDir = filepath.Join("..", "harness", "testdata", "scenarios")
	goldenDir    = filepath.Join("..", "harness", "testdata", "golden")
)

const failingScenario = `
name: failing
description: "an assertion that does not hold"
query: "MATCH Person-[:KNOWS]->Person HOPS 2 RETURN src"
backends: [neo4j]
assertions:
  - type: contains
    backend: neo4j
    text: "GRAPH_TABLE"
`

func TestTestCommand(t *testing.T) {
	env := newTestEnv(t, nil)

	out, err := env.run("test", scenariosDir, "--golden", goldenDir)
	require.NoError(t, err)
	assert.Contains(t, out, "PASS pairs\n")
	assert.Contains(t, out, "PASS estimate\n")
	assert.Contains(t, out, "Test Summary: 5 passed, 0 failed, 5 total")
	assert.Contains(t, out, "All scenarios passed")
}

func TestTestCommandJSON(t *testing.T) {
	env := newTestEnv(t, nil)

	out, err := env.run("--format", "json", "test", scenariosDir, "--filter", "pair*")
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 1, resp.Data.Total)
	assert.Equal(t, "pairs", resp.Data.Scenarios[0].Name)
}

func TestTestCommandFailure(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "failing.yaml"), []byte(failingScenario), 0o644))
	env := newTestEnv(t, nil)

	out, err := env.run("test", dir)
	requireExitCode(t, err, ExitFailure)
	assert.Contains(t, out, "FAIL failing\n")
	assert.Contains(t, out, "Assertion failed: contains")
	assert.Contains(t, out, "Test Summary: 0 passed, 1 failed, 1 total")

	out, err = env.run("--format", "json", "test", dir)
	requireExitCode(t, err, ExitFailure)
	resp := decodeResponse(t, out)
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, ErrCodeTest, resp.Error.Code)
}

func TestTestCommandGoldenUpdate(t *testing.T) {
	golden := filepath.Join(t.TempDir(), "golden")
	env := newTestEnv(t, nil)

	_, err := env.run("test", scenariosDir, "--golden", golden)
	requireExitCode(t, err, ExitFailure)

	_, err = env.run("test", scenariosDir, "--golden", golden, "--update")
	require.NoError(t, err)

	for _, name := range []string{"pairs", "filtered", "estimate", "dummy", "unknown_field"} {
		want, err := os.ReadFile(filepath.Join(goldenDir, name+".golden"))
		require.NoError(t, err)
		got, err := os.ReadFile(filepath.Join(golden, name+".golden"))
		require.NoError(t, err)
		assert.Equal(t, string(want), string(got), name)
	}

	_, err = env.run("test", scenariosDir, "--golden", golden)
	require.NoError(t, err)
}

func TestTestCommandGoldenMismatch(t *testing.T) {
	golden := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(golden, "pairs.golden"), []byte("-- duckdb --\nstale\n"), 0o644))
	env := newTestEnv(t, nil)

	out, err := env.run("test", scenariosDir, "--golden", golden, "--filter", "pairs")
	requireExitCode(t, err, ExitFailure)
	assert.Contains(t, out, "compiled output differs from")
}

func TestTestCommandErrors(t *testing.T) {
	env := newTestEnv(t, nil)

	bad := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(bad, "bad.yaml"), []byte("name: x\n"), 0o644))

	tests := []struct {
		name string
		args []string
		msg  string
	}{
		{"missing dir", []string{"test", filepath.Join(t.TempDir(), "nope")}, "scenarios directory not found"},
		{"update without golden", []string{"test", scenariosDir, "--update"}, "--update requires --golden"},
		{"bad filter", []string{"test", scenariosDir, "--filter", "["}, "invalid filter pattern"},
		{"malformed scenario", []string{"test", bad}, "failed to load scenarios"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.run(tt.args...)
			requireExitCode(t, err, ExitCommandError)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestTestCommandEmpty(t *testing.T) {
	env := newTestEnv(t, nil)
	out, err := env.run("test", t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "No scenarios found.\n", out)
}

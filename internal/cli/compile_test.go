package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeResponse(t *testing.T, out string) CLIResponse {
	t.Helper()
	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	return resp
}

func TestParseCommand(t *testing.T) {
	env := newTestEnv(t, nil)

	out, err := env.run("parse", "match Person-[:KNOWS]->Person where src.age > 18 hops 2 return src")
	require.NoError(t, err)
	assert.Contains(t, out, "Query:       MATCH Person-[:KNOWS]->Person WHERE src.age > 18 HOPS 2 RETURN src\n")
	assert.Contains(t, out, "Nodes:       {MatchPattern, Filter, Project}\n")
	assert.Regexp(t, `Fingerprint: [0-9a-f]{64}\n`, out)
}

func TestParseCommandJSON(t *testing.T) {
	env := newTestEnv(t, nil)

	out, err := env.run("--format", "json", "parse", pairsQuery)
	require.NoError(t, err)

	resp := decodeResponse(t, out)
	assert.Equal(t, "ok", resp.Status)
	data := resp.Data.(map[string]any)
	assert.Equal(t, "MATCH Person-[:KNOWS]->Person HOPS 2 RETURN src, dst", data["query"])
	ir := data["ir"].(map[string]any)
	assert.Equal(t, "Project", ir["kind"])
}

func TestParseCommandErrors(t *testing.T) {
	env := newTestEnv(t, nil)

	out, err := env.run("parse", "MATCH Person-[:KNOWS]->Person RETURN src")
	requireExitCode(t, err, ExitFailure)
	assert.Contains(t, out, "Error [ParseError]: P002")

	out, err = env.run("--format", "json", "parse", "MATCH Person-[:KNOWS]->Person HOPS -1 RETURN src")
	requireExitCode(t, err, ExitFailure)
	resp := decodeResponse(t, out)
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "ParseError", resp.Error.Code)
	assert.NotEmpty(t, resp.Error.Details)
}

func TestPlanCommand(t *testing.T) {
	env := newTestEnv(t, nil)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"auto picks the first configured backend", []string{"plan", pairsQuery}, "duckdb {MatchPattern, Project}\n"},
		{"configured order", []string{"--backends", "neo4j,duckdb", "plan", pairsQuery}, "neo4j {MatchPattern, Project}\n"},
		{"explicit preference", []string{"plan", "-b", "age", pairsQuery}, "age {MatchPattern, Project}\n"},
		{
			"filter skips age",
			[]string{"--backends", "age", "--age-dsn", "postgres://localhost/db", "plan", "MATCH A-[:E]->B WHERE src.x = 1 HOPS 1 RETURN src"},
			"duckdb {MatchPattern, Filter, Project}\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := env.run(tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestPlanCommandErrors(t *testing.T) {
	env := newTestEnv(t, nil)

	out, err := env.run("plan", "-b", "oracle", pairsQuery)
	requireExitCode(t, err, ExitFailure)
	assert.Contains(t, out, `Error [PlanError]: plan: unknown backend "oracle"`)

	out, err = env.run("plan", "-b", "age", "MATCH A-[:E]->B WHERE src.x = 1 HOPS 1 RETURN src")
	requireExitCode(t, err, ExitFailure)
	assert.Contains(t, out, `plan: backend "age" cannot lower {Filter}`)
}

func TestCompileCommand(t *testing.T) {
	env := newTestEnv(t, nil)

	out, err := env.run("compile", "-b", "neo4j", pairsQuery)
	require.NoError(t, err)
	assert.Contains(t, out, "-- neo4j --\n")
	assert.Contains(t, out, "*1..2")
	assert.Contains(t, out, "RETURN src, dst")

	out, err = env.run("--duckdb-graph", "social", "compile", "-b", "duckdb", pairsQuery)
	require.NoError(t, err)
	assert.Contains(t, out, "GRAPH_TABLE (social")
}

func TestCompileCommandDeterministic(t *testing.T) {
	env := newTestEnv(t, nil)

	first, err := env.run("compile", "-b", "duckdb", pairsQuery)
	require.NoError(t, err)
	second, err := env.run("compile", "-b", "duckdb", pairsQuery)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestCompileCommandAll(t *testing.T) {
	env := newTestEnv(t, nil)

	out, err := env.run("--format", "json", "compile", "--all", "MATCH A-[:E]->B WHERE src.x = 1 HOPS 1 RETURN src")
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   []CompileOutcome `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data, 3)

	assert.Equal(t, "duckdb", string(resp.Data[0].Backend))
	assert.NotEmpty(t, resp.Data[0].Query)
	assert.Equal(t, "neo4j", string(resp.Data[1].Backend))
	assert.NotEmpty(t, resp.Data[1].Query)
	assert.Equal(t, "age", string(resp.Data[2].Backend))
	assert.Empty(t, resp.Data[2].Query)
	assert.Equal(t, "PlanError", resp.Data[2].ErrorKind)
}

func TestCompileCommandCompileError(t *testing.T) {
	env := newTestEnv(t, nil)

	out, err := env.run("compile", "-b", "duckdb", "MATCH A-[:E]->B HOPS 1 RETURN nobody")
	requireExitCode(t, err, ExitFailure)
	assert.Contains(t, out, "Error [CompileError]:")
}

func TestCompileCommandInput(t *testing.T) {
	env := newTestEnv(t, nil)
	path := filepath.Join(t.TempDir(), "query.txt")
	require.NoError(t, os.WriteFile(path, []byte(pairsQuery+"\n"), 0o644))

	fromFile, err := env.run("compile", "-b", "neo4j", "-f", path)
	require.NoError(t, err)
	fromArg, err := env.run("compile", "-b", "neo4j", pairsQuery)
	require.NoError(t, err)
	assert.Equal(t, fromArg, fromFile)

	fromStdin, err := env.runStdin(pairsQuery, "compile", "-b", "neo4j", "-f", "-")
	require.NoError(t, err)
	assert.Equal(t, fromArg, fromStdin)

	tests := []struct {
		name string
		args []string
		msg  string
	}{
		{"no query", []string{"compile"}, "a query is required"},
		{"arg and file", []string{"compile", "-f", path, pairsQuery}, "not both"},
		{"missing file", []string{"compile", "-f", filepath.Join(t.TempDir(), "nope.txt")}, "failed to read query"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.run(tt.args...)
			requireExitCode(t, err, ExitCommandError)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

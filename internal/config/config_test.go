package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/causalrt/internal/backend"
)

func load(t *testing.T, file string, args ...string) (*Config, error) {
	t.Helper()
	v, err := New()
	require.NoError(t, err)

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse(args))
	require.NoError(t, BindFlags(v, fs))
	return Load(v, file)
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "causalrt.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(t, "")
	require.NoError(t, err)

	assert.Equal(t, []string{"duckdb", "neo4j"}, cfg.Backends)
	assert.Equal(t, DefaultTimeout, cfg.Timeout)
	assert.Equal(t, DefaultStorePath, cfg.Store.Path)
	assert.Equal(t, DefaultAddr, cfg.Server.Addr)
	assert.Equal(t, ":memory:", cfg.DuckDB.Path)
	assert.Equal(t, "pg", cfg.DuckDB.Graph)
	assert.Equal(t, "id", cfg.DuckDB.KeyColumn)
	assert.Empty(t, cfg.DuckDB.Setup)
	assert.Equal(t, Neo4jConfig{URI: "bolt://localhost:7687", User: "neo4j", Password: "password"}, cfg.Neo4j)
	assert.Equal(t, AGEConfig{Graph: "pg"}, cfg.AGE)
	assert.Equal(t, []backend.Tag{backend.DuckDB, backend.Neo4j}, cfg.Tags())
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("CAUSALRT_TIMEOUT", "5s")
	t.Setenv("CAUSALRT_BACKENDS", "neo4j,duckdb")
	t.Setenv("CAUSALRT_DUCKDB_KEY_COLUMN", "uid")
	t.Setenv("NEO4J_URI", "bolt://graph:7687")
	t.Setenv("NEO4J_PASSWORD", "s3cret")
	t.Setenv("DUCKDB_PATH", "/data/social.duckdb")

	cfg, err := load(t, "")
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, []string{"neo4j", "duckdb"}, cfg.Backends)
	assert.Equal(t, "uid", cfg.DuckDB.KeyColumn)
	assert.Equal(t, "bolt://graph:7687", cfg.Neo4j.URI)
	assert.Equal(t, "s3cret", cfg.Neo4j.Password)
	assert.Equal(t, "/data/social.duckdb", cfg.DuckDB.Path)
}

func TestLoad_PrefixedEnvWinsOverLegacy(t *testing.T) {
	t.Setenv("NEO4J_URI", "bolt://legacy:7687")
	t.Setenv("CAUSALRT_NEO4J_URI", "bolt://current:7687")

	cfg, err := load(t, "")
	require.NoError(t, err)
	assert.Equal(t, "bolt://current:7687", cfg.Neo4j.URI)
}

func TestLoad_File(t *testing.T) {
	path := writeFile(t, `
backends: [age, duckdb]
timeout: 2m
store:
  path: ""
duckdb:
  path: social.duckdb
  graph: social
  setup:
    - LOAD duckpgq
age:
  dsn: postgres://localhost:5432/graphs
  graph: social
`)
	cfg, err := load(t, path)
	require.NoError(t, err)

	assert.Equal(t, []backend.Tag{backend.AGE, backend.DuckDB}, cfg.Tags())
	assert.Equal(t, 2*time.Minute, cfg.Timeout)
	assert.Empty(t, cfg.Store.Path)
	assert.Equal(t, "social", cfg.DuckDB.Graph)
	assert.Equal(t, "id", cfg.DuckDB.KeyColumn)
	assert.Equal(t, []string{"LOAD duckpgq"}, cfg.DuckDB.Setup)
	assert.Equal(t, "postgres://localhost:5432/graphs", cfg.AGE.DSN)
}

func TestLoad_Precedence(t *testing.T) {
	path := writeFile(t, "neo4j:\n  uri: bolt://file:7687\n  user: fileuser\n")
	t.Setenv("CAUSALRT_NEO4J_USER", "envuser")

	cfg, err := load(t, path, "--neo4j-uri", "bolt://flag:7687")
	require.NoError(t, err)

	assert.Equal(t, "bolt://flag:7687", cfg.Neo4j.URI, "flag beats file")
	assert.Equal(t, "envuser", cfg.Neo4j.User, "env beats file")
}

func TestLoad_Flags(t *testing.T) {
	cfg, err := load(t, "", "--backends", "duckdb", "--timeout", "0", "--store", "")
	require.NoError(t, err)

	assert.Equal(t, []string{"duckdb"}, cfg.Backends)
	assert.Zero(t, cfg.Timeout)
	assert.Empty(t, cfg.Store.Path)
}

func TestLoad_DuckDBSetupFlag(t *testing.T) {
	cfg, err := load(t, "",
		"--duckdb-setup", "LOAD duckpgq",
		"--duckdb-setup", "ATTACH 'social.duckdb' AS social")
	require.NoError(t, err)
	assert.Equal(t, []string{"LOAD duckpgq", "ATTACH 'social.duckdb' AS social"}, cfg.DuckDB.Setup)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := load(t, filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Backends: []string{"duckdb"},
			DuckDB:   DuckDBConfig{Graph: "pg", KeyColumn: "id"},
			AGE:      AGEConfig{Graph: "pg"},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"valid", func(*Config) {}, ""},
		{"unknown backend", func(c *Config) { c.Backends = []string{"oracle"} }, `unknown backend "oracle"`},
		{"duplicate backend", func(c *Config) { c.Backends = []string{"duckdb", "DuckDB"} }, "listed twice"},
		{"negative timeout", func(c *Config) { c.Timeout = -time.Second }, "must not be negative"},
		{"unsafe graph", func(c *Config) { c.DuckDB.Graph = "pg; DROP" }, "duckdb.graph"},
		{"reserved graph name", func(c *Config) { c.AGE.Graph = "match" }, "age.graph"},
		{"age without dsn", func(c *Config) { c.Backends = []string{"age"} }, "age.dsn"},
		{"neo4j without uri", func(c *Config) { c.Backends = []string{"neo4j"} }, "neo4j.uri"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

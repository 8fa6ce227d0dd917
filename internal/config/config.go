// Package config loads causalrt settings from defaults, an optional YAML
// file, environment variables and command-line flags, in increasing
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/roach88/causalrt/internal/backend"
	"github.com/roach88/causalrt/internal/codegen"
)

// EnvPrefix prefixes every environment variable, e.g. CAUSALRT_TIMEOUT.
const EnvPrefix = "CAUSALRT"

// Defaults.
const (
	DefaultNeo4jURI      = "bolt://localhost:7687"
	DefaultNeo4jUser     = "neo4j"
	DefaultNeo4jPassword = "password"
	DefaultDuckDBPath    = ":memory:"
	DefaultStorePath     = "causalrt.db"
	DefaultAddr          = ":8000"
	DefaultTimeout       = 30 * time.Second
)

// Config is the full runtime configuration.
type Config struct {
	// Backends lists the backends to connect, in planner order.
	Backends []string      `mapstructure:"backends"`
	Timeout  time.Duration `mapstructure:"timeout"`

	Store  StoreConfig  `mapstructure:"store"`
	Server ServerConfig `mapstructure:"server"`
	DuckDB DuckDBConfig `mapstructure:"duckdb"`
	Neo4j  Neo4jConfig  `mapstructure:"neo4j"`
	AGE    AGEConfig    `mapstructure:"age"`
}

type StoreConfig struct {
	Path string `mapstructure:"path"` // empty disables the run log
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

type DuckDBConfig struct {
	Path      string   `mapstructure:"path"`
	Graph     string   `mapstructure:"graph"`
	KeyColumn string   `mapstructure:"key_column"`
	Setup     []string `mapstructure:"setup"`
}

type Neo4jConfig struct {
	URI      string `mapstructure:"uri"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
}

type AGEConfig struct {
	DSN   string `mapstructure:"dsn"`
	Graph string `mapstructure:"graph"`
}

// legacyEnv maps keys to extra environment variable names, checked after
// the CAUSALRT_ form.
var legacyEnv = map[string]string{
	"neo4j.uri":      "NEO4J_URI",
	"neo4j.user":     "NEO4J_USER",
	"neo4j.password": "NEO4J_PASSWORD",
	"duckdb.path":    "DUCKDB_PATH",
}

// flagKeys maps flag names registered by RegisterFlags to config keys.
var flagKeys = map[string]string{
	"backends":     "backends",
	"timeout":      "timeout",
	"store":        "store.path",
	"addr":         "server.addr",
	"duckdb-path":  "duckdb.path",
	"duckdb-graph": "duckdb.graph",
	"duckdb-setup": "duckdb.setup",
	"neo4j-uri":    "neo4j.uri",
	"neo4j-user":   "neo4j.user",
	"neo4j-db":     "neo4j.database",
	"age-dsn":      "age.dsn",
	"age-graph":    "age.graph",
}

// SetDefaults installs the default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("backends", []string{string(backend.DuckDB), string(backend.Neo4j)})
	v.SetDefault("timeout", DefaultTimeout)
	v.SetDefault("store.path", DefaultStorePath)
	v.SetDefault("server.addr", DefaultAddr)
	v.SetDefault("duckdb.path", DefaultDuckDBPath)
	v.SetDefault("duckdb.graph", codegen.DefaultGraph)
	v.SetDefault("duckdb.key_column", codegen.DefaultKeyColumn)
	v.SetDefault("duckdb.setup", []string{})
	v.SetDefault("neo4j.uri", DefaultNeo4jURI)
	v.SetDefault("neo4j.user", DefaultNeo4jUser)
	v.SetDefault("neo4j.password", DefaultNeo4jPassword)
	v.SetDefault("neo4j.database", "")
	v.SetDefault("age.dsn", "")
	v.SetDefault("age.graph", codegen.DefaultGraph)
}

// RegisterFlags defines the configuration flags on fs. Flag defaults are
// informational; unset flags never override the file or environment.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.StringSlice("backends", nil, "backends to connect, in planner order (duckdb,neo4j,age)")
	fs.Duration("timeout", DefaultTimeout, "per-query backend timeout (0 disables)")
	fs.String("store", DefaultStorePath, "run log database path (empty disables)")
	fs.String("addr", DefaultAddr, "HTTP listen address")
	fs.String("duckdb-path", DefaultDuckDBPath, "DuckDB database file")
	fs.String("duckdb-graph", codegen.DefaultGraph, "DuckDB property graph name")
	fs.StringSlice("duckdb-setup", nil,
		"statements run when DuckDB opens; GRAPH_TABLE queries need the duckpgq extension and the property graph, "+
			`e.g. "LOAD duckpgq","CREATE PROPERTY GRAPH pg VERTEX TABLES (Person) EDGE TABLES (...)"`)
	fs.String("neo4j-uri", DefaultNeo4jURI, "Neo4j bolt URI")
	fs.String("neo4j-user", DefaultNeo4jUser, "Neo4j user")
	fs.String("neo4j-db", "", "Neo4j database (empty selects the server default)")
	fs.String("age-dsn", "", "PostgreSQL DSN for Apache AGE")
	fs.String("age-graph", codegen.DefaultGraph, "AGE graph name")
}

// BindFlags binds every flag RegisterFlags defined on fs to its key.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

// New returns a viper instance with defaults and environment bindings.
func New() (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, legacy := range legacyEnv {
		prefixed := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, legacy); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}
	return v, nil
}

// Load reads file, if non-empty, into v and decodes the result.
func Load(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks backend names, identifiers and required settings.
func (c *Config) Validate() error {
	var errs []error
	seen := make(map[backend.Tag]bool)
	for _, name := range c.Backends {
		tag, ok := backend.ParseTag(name)
		if !ok {
			errs = append(errs, fmt.Errorf("backends: unknown backend %q", name))
			continue
		}
		if seen[tag] {
			errs = append(errs, fmt.Errorf("backends: %s listed twice", tag))
		}
		seen[tag] = true
	}
	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout: must not be negative, got %s", c.Timeout))
	}
	for key, id := range map[string]string{
		"duckdb.graph":      c.DuckDB.Graph,
		"duckdb.key_column": c.DuckDB.KeyColumn,
		"age.graph":         c.AGE.Graph,
	} {
		if !codegen.IsSafeIdentifier(id) || codegen.IsReservedWord(id) {
			errs = append(errs, fmt.Errorf("%s: %q is not a valid identifier", key, id))
		}
	}
	if seen[backend.AGE] && c.AGE.DSN == "" {
		errs = append(errs, errors.New("age.dsn: required when the age backend is enabled"))
	}
	if seen[backend.Neo4j] && c.Neo4j.URI == "" {
		errs = append(errs, errors.New("neo4j.uri: required when the neo4j backend is enabled"))
	}
	return errors.Join(errs...)
}

// Tags returns the configured backends. Call after Validate.
func (c *Config) Tags() []backend.Tag {
	tags := make([]backend.Tag, 0, len(c.Backends))
	for _, name := range c.Backends {
		if tag, ok := backend.ParseTag(name); ok {
			tags = append(tags, tag)
		}
	}
	return tags
}

// Package neo4j runs Cypher query text against Neo4j with the official
// Go driver. Each request gets its own read-mode driver session.
package neo4j

import (
	"context"
	"fmt"
	"time"

	gdb "github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"

	"github.com/roach88/causalrt/internal/backend"
)

// Config configures a Neo4j connector.
type Config struct {
	URI      string // e.g. bolt://localhost:7687
	User     string
	Password string
	Database string // empty selects the server default
}

// Connector wraps one driver; the driver pools connections internally.
type Connector struct {
	driver   gdb.DriverWithContext
	database string
}

var _ backend.Connector = (*Connector)(nil)

// Open creates the driver. No connection is made until the first query;
// call Ping to check reachability eagerly.
func Open(cfg Config) (*Connector, error) {
	driver, err := gdb.NewDriverWithContext(cfg.URI, gdb.BasicAuth(cfg.User, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("neo4j driver %q: %w", cfg.URI, err)
	}
	return &Connector{driver: driver, database: cfg.Database}, nil
}

func (c *Connector) Tag() backend.Tag { return backend.Neo4j }

// Ping verifies that the server is reachable with the configured credentials.
func (c *Connector) Ping(ctx context.Context) error {
	return c.driver.VerifyConnectivity(ctx)
}

func (c *Connector) Open(ctx context.Context) (backend.Session, error) {
	s := c.driver.NewSession(ctx, gdb.SessionConfig{
		AccessMode:   gdb.AccessModeRead,
		DatabaseName: c.database,
	})
	return &session{session: s}, nil
}

func (c *Connector) Close() error {
	return c.driver.Close(context.Background())
}

type session struct {
	session gdb.SessionWithContext
}

func (s *session) Query(ctx context.Context, query string) ([]backend.Row, error) {
	result, err := s.session.Run(ctx, query, nil)
	if err != nil {
		return nil, err
	}
	records, err := result.Collect(ctx)
	if err != nil {
		return nil, err
	}
	rows := make([]backend.Row, len(records))
	for i, rec := range records {
		vals := make([]any, len(rec.Values))
		for j, v := range rec.Values {
			vals[j] = normalize(v)
		}
		rows[i] = backend.NewRow(append([]string(nil), rec.Keys...), vals)
	}
	return rows, nil
}

func (s *session) Close() error {
	return s.session.Close(context.Background())
}

// normalize flattens graph values into JSON-friendly ones: nodes and
// relationships become their property maps.
func normalize(v any) any {
	switch x := v.(type) {
	case dbtype.Node:
		return normalizeMap(x.Props)
	case dbtype.Relationship:
		return normalizeMap(x.Props)
	case dbtype.Path:
		out := make([]any, len(x.Nodes))
		for i, n := range x.Nodes {
			out[i] = normalizeMap(n.Props)
		}
		return out
	case dbtype.Date:
		return time.Time(x).Format(time.DateOnly)
	case dbtype.LocalDateTime:
		return time.Time(x).Format("2006-01-02T15:04:05.999999999")
	case dbtype.Duration:
		return x.String()
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = normalize(e)
		}
		return out
	case map[string]any:
		return normalizeMap(x)
	default:
		return v
	}
}

func normalizeMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = normalize(v)
	}
	return out
}

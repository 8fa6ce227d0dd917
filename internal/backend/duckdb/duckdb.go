// Package duckdb runs SQL/PGQ query text against DuckDB through
// database/sql and the go-duckdb driver.
//
// The DuckPGQ extension and the property graph are set up by the
// configured setup statements, which run once when the connector opens.
package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"math/big"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/roach88/causalrt/internal/backend"
)

// Memory is the path that selects an ephemeral in-process database.
const Memory = ":memory:"

// Config configures a DuckDB connector.
type Config struct {
	Path  string   // database file, or Memory
	Setup []string // statements run once at open, e.g. "LOAD duckpgq"
}

// Connector owns one DuckDB database handle.
type Connector struct {
	db *sql.DB
}

var _ backend.Connector = (*Connector)(nil)

// Open opens the database and runs the setup statements.
func Open(ctx context.Context, cfg Config) (*Connector, error) {
	dsn := cfg.Path
	if dsn == Memory {
		dsn = ""
	}
	db, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, fmt.Errorf("open duckdb %q: %w", cfg.Path, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect duckdb %q: %w", cfg.Path, err)
	}
	c := &Connector{db: db}
	for _, stmt := range cfg.Setup {
		if err := c.Exec(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("duckdb setup: %w", err)
		}
	}
	return c, nil
}

func (c *Connector) Tag() backend.Tag { return backend.DuckDB }

// Exec runs a statement outside any session. Used for setup and fixtures.
func (c *Connector) Exec(ctx context.Context, stmt string) error {
	if _, err := c.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("exec %q: %w", stmt, err)
	}
	return nil
}

// Open reserves a dedicated connection for one request.
func (c *Connector) Open(ctx context.Context) (backend.Session, error) {
	conn, err := c.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("duckdb connection: %w", err)
	}
	return &session{conn: conn}, nil
}

func (c *Connector) Close() error {
	return c.db.Close()
}

type session struct {
	conn *sql.Conn
}

func (s *session) Query(ctx context.Context, query string) ([]backend.Row, error) {
	rows, err := s.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRows(rows)
}

func (s *session) Close() error {
	return s.conn.Close()
}

// scanRows reads every row, keeping the driver's column order.
func scanRows(rows *sql.Rows) ([]backend.Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out []backend.Row
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		for i, v := range vals {
			vals[i] = normalize(v)
		}
		out = append(out, backend.NewRow(append([]string(nil), cols...), vals))
	}
	return out, rows.Err()
}

// normalize converts driver values into JSON-friendly ones.
func normalize(v any) any {
	switch x := v.(type) {
	case []byte:
		return string(x)
	case *big.Int:
		if x.IsInt64() {
			return x.Int64()
		}
		return x.String()
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = normalize(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = normalize(e)
		}
		return out
	default:
		return v
	}
}

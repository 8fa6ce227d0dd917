// Package backend defines the contract between the engine and the query
// execution targets, plus the row type every target returns.
//
// Concrete clients live in subpackages: duckdb (SQL/PGQ), neo4j (Cypher)
// and age (Cypher inside PostgreSQL).
package backend

import (
	"context"
	"strings"
)

// Tag names an execution target.
type Tag string

const (
	DuckDB Tag = "duckdb"
	Neo4j  Tag = "neo4j"
	AGE    Tag = "age"
)

// Auto is the request value that leaves the choice to the planner.
const Auto = "auto"

// DefaultOrder is the fixed tie-break order used when several backends
// can run a query and the caller has no preference: columnar engine
// first, then the native graph database, then AGE.
func DefaultOrder() []Tag {
	return []Tag{DuckDB, Neo4j, AGE}
}

// ParseTag maps a name to a known tag. Matching is case-insensitive.
func ParseTag(s string) (Tag, bool) {
	t := Tag(strings.ToLower(strings.TrimSpace(s)))
	switch t {
	case DuckDB, Neo4j, AGE:
		return t, true
	default:
		return "", false
	}
}

func (t Tag) String() string { return string(t) }

// Session is a per-request execution context: one connection or one
// driver session. Callers must Close it on every exit path.
type Session interface {
	// Query runs read-only query text and returns every row.
	Query(ctx context.Context, query string) ([]Row, error)
	Close() error
}

// Connector opens sessions against one configured backend. A connector
// is safe for concurrent use; sessions are not.
type Connector interface {
	Tag() Tag
	Open(ctx context.Context) (Session, error)
	Close() error
}

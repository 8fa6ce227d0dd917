package store

import "time"

// RunKind says which pipeline entry point produced a run.
type RunKind string

const (
	KindQuery    RunKind = "query"
	KindExtract  RunKind = "extract"
	KindEstimate RunKind = "estimate"
)

// Status is the outcome of a run.
type Status string

const (
	StatusOK    Status = "ok"
	StatusError Status = "error"
)

// Run is one compile-and-execute request.
type Run struct {
	ID            string        `json:"id"`
	Kind          RunKind       `json:"kind"`
	Query         string        `json:"query"`
	Fingerprint   string        `json:"fingerprint,omitempty"` // IR fingerprint, empty if parsing failed
	Backend       string        `json:"backend,omitempty"`
	CompiledQuery string        `json:"compiled_query,omitempty"`
	Status        Status        `json:"status"`
	ErrorKind     string        `json:"error_kind,omitempty"`
	Error         string        `json:"error,omitempty"`
	RowCount      int           `json:"row_count"`
	StartedAt     time.Time     `json:"started_at"`
	Duration      time.Duration `json:"duration"`
}

// Dataset describes the dataset a run extracted. Rows are not stored.
type Dataset struct {
	RunID      string            `json:"run_id"`
	Name       string            `json:"name"`
	Columns    []string          `json:"columns"`
	SchemaHint map[string]string `json:"schema_hint"`
	RowCount   int               `json:"row_count"`
}

// Estimate is a plugin result for a run.
type Estimate struct {
	RunID   string         `json:"run_id"`
	Plugin  string         `json:"plugin"`
	Version string         `json:"version"`
	Seed    int64          `json:"seed"`
	Result  map[string]any `json:"result"`
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

const runColumns = `id, kind, query, fingerprint, backend, compiled_query, status, error_kind, error, row_count, started_at, duration_us`

// ReadRun returns one run by id, or ErrNotFound.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	return r, err
}

// ListFilter narrows ListRuns.
type ListFilter struct {
	Backend string // empty for all backends
	Limit   int    // <= 0 for no limit
}

// ListRuns returns runs newest first (ORDER BY seq DESC).
//
// Returns an empty slice (not nil) if there are no runs.
func (s *Store) ListRuns(ctx context.Context, f ListFilter) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs`
	var args []any
	if f.Backend != "" {
		query += ` WHERE backend = ?`
		args = append(args, f.Backend)
	}
	query += ` ORDER BY seq DESC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadDataset returns the dataset recorded for a run, or ErrNotFound.
func (s *Store) ReadDataset(ctx context.Context, runID string) (Dataset, error) {
	var d Dataset
	var cols, hint string
	err := s.db.QueryRowContext(ctx, `
		SELECT run_id, name, columns, schema_hint, row_count FROM datasets WHERE run_id = ?
	`, runID).Scan(&d.RunID, &d.Name, &cols, &hint, &d.RowCount)
	if errors.Is(err, sql.ErrNoRows) {
		return Dataset{}, fmt.Errorf("dataset for run %s: %w", runID, ErrNotFound)
	}
	if err != nil {
		return Dataset{}, fmt.Errorf("read dataset: %w", err)
	}
	if d.Columns, err = unmarshalColumns(cols); err != nil {
		return Dataset{}, err
	}
	if d.SchemaHint, err = unmarshalHint(hint); err != nil {
		return Dataset{}, err
	}
	return d, nil
}

// ReadEstimate returns the estimate recorded for a run, or ErrNotFound.
func (s *Store) ReadEstimate(ctx context.Context, runID string) (Estimate, error) {
	var e Estimate
	var result string
	err := s.db.QueryRowContext(ctx, `
		SELECT run_id, plugin, version, seed, result FROM estimates WHERE run_id = ?
	`, runID).Scan(&e.RunID, &e.Plugin, &e.Version, &e.Seed, &result)
	if errors.Is(err, sql.ErrNoRows) {
		return Estimate{}, fmt.Errorf("estimate for run %s: %w", runID, ErrNotFound)
	}
	if err != nil {
		return Estimate{}, fmt.Errorf("read estimate: %w", err)
	}
	if e.Result, err = unmarshalResult(result); err != nil {
		return Estimate{}, err
	}
	return e, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (Run, error) {
	var r Run
	var kind, status, started string
	var durUS int64
	err := sc.Scan(&r.ID, &kind, &r.Query, &r.Fingerprint, &r.Backend, &r.CompiledQuery,
		&status, &r.ErrorKind, &r.Error, &r.RowCount, &started, &durUS)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	r.Kind = RunKind(kind)
	r.Status = Status(status)
	r.Duration = time.Duration(durUS) * time.Microsecond
	if r.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
		return Run{}, fmt.Errorf("scan run %s: started_at: %w", r.ID, err)
	}
	return r, nil
}

package store

import (
	"context"
	"fmt"
	"time"
)

// WriteRun inserts a run record.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - duplicate IDs are silently ignored.
func (s *Store) WriteRun(ctx context.Context, r Run) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs
		(id, kind, query, fingerprint, backend, compiled_query, status, error_kind, error, row_count, started_at, duration_us)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		r.ID,
		string(r.Kind),
		r.Query,
		r.Fingerprint,
		r.Backend,
		r.CompiledQuery,
		string(r.Status),
		r.ErrorKind,
		r.Error,
		r.RowCount,
		r.StartedAt.UTC().Format(time.RFC3339Nano),
		r.Duration.Microseconds(),
	)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	return nil
}

// WriteDataset records the dataset extracted by a run.
// The run referenced by RunID must exist (foreign key constraint).
func (s *Store) WriteDataset(ctx context.Context, d Dataset) error {
	cols, err := marshalColumns(d.Columns)
	if err != nil {
		return fmt.Errorf("write dataset: %w", err)
	}
	hint, err := marshalHint(d.SchemaHint)
	if err != nil {
		return fmt.Errorf("write dataset: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO datasets (run_id, name, columns, schema_hint, row_count)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO NOTHING
	`, d.RunID, d.Name, cols, hint, d.RowCount)
	if err != nil {
		return fmt.Errorf("write dataset: %w", err)
	}
	return nil
}

// WriteEstimate records a plugin result.
// The run referenced by RunID must exist (foreign key constraint).
func (s *Store) WriteEstimate(ctx context.Context, e Estimate) error {
	result, err := marshalResult(e.Result)
	if err != nil {
		return fmt.Errorf("write estimate: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO estimates (run_id, plugin, version, seed, result)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO NOTHING
	`, e.RunID, e.Plugin, e.Version, e.Seed, result)
	if err != nil {
		return fmt.Errorf("write estimate: %w", err)
	}
	return nil
}

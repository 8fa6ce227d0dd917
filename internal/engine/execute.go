package engine

import (
	"context"
	"fmt"

	"github.com/roach88/causalrt/internal/backend"
)

// execute runs query on a fresh session of the tag's connector.
//
// The session is closed on every exit path. A panic inside the backend
// call or while checking rows becomes an ExecutionError.
func (e *Engine) execute(ctx context.Context, tag backend.Tag, query string) (rows []backend.Row, err error) {
	conn, ok := e.connectors[tag]
	if !ok {
		return nil, &ExecutionError{Backend: tag, Cause: ErrNoConnector}
	}
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	sess, err := conn.Open(ctx)
	if err != nil {
		return nil, newExecutionError(ctx, tag, fmt.Errorf("open session: %w", err))
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			e.logger.Warn("closing session", "backend", tag, "error", cerr)
		}
	}()
	defer func() {
		if r := recover(); r != nil {
			rows = nil
			err = &ExecutionError{Backend: tag, Cause: fmt.Errorf("panic: %v", r)}
		}
	}()

	raw, err := sess.Query(ctx, query)
	if err != nil {
		return nil, newExecutionError(ctx, tag, err)
	}
	return normalize(tag, raw)
}

// normalize checks row shape and returns a non-nil slice so an empty
// result encodes as [].
func normalize(tag backend.Tag, raw []backend.Row) ([]backend.Row, error) {
	rows := make([]backend.Row, 0, len(raw))
	for i, r := range raw {
		if len(r.Columns) != len(r.Values) {
			return nil, &ExecutionError{
				Backend: tag,
				Cause:   fmt.Errorf("row %d has %d columns but %d values", i, len(r.Columns), len(r.Values)),
			}
		}
		rows = append(rows, r)
	}
	return rows, nil
}

package testutil

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/roach88/causalrt/internal/backend"
)

// ErrConnectorClosed is returned by Open after Close.
var ErrConnectorClosed = errors.New("connector closed")

// StubConnector is an in-memory backend.Connector. Every session returns
// Rows, or fails as configured. It counts opened and closed sessions so
// tests can assert that none leak.
type StubConnector struct {
	Backend backend.Tag
	Rows    []backend.Row

	OpenErr  error // returned by Open
	QueryErr error // returned by Session.Query
	CloseErr error // returned by Session.Close
	Panic    any   // Session.Query panics with this value when non-nil
	Block    bool  // Session.Query blocks until its context is done

	mu      sync.Mutex
	queries []string

	opened atomic.Int64
	closed atomic.Int64
	shut   atomic.Bool
}

// NewStubConnector returns a connector that answers every query with rows.
func NewStubConnector(tag backend.Tag, rows ...backend.Row) *StubConnector {
	return &StubConnector{Backend: tag, Rows: rows}
}

func (c *StubConnector) Tag() backend.Tag { return c.Backend }

func (c *StubConnector) Open(ctx context.Context) (backend.Session, error) {
	if c.shut.Load() {
		return nil, ErrConnectorClosed
	}
	if c.OpenErr != nil {
		return nil, c.OpenErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.opened.Add(1)
	return &stubSession{c: c}, nil
}

func (c *StubConnector) Close() error {
	c.shut.Store(true)
	return nil
}

// Queries returns every query text received, in order.
func (c *StubConnector) Queries() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.queries...)
}

// Opened returns the number of sessions opened.
func (c *StubConnector) Opened() int64 { return c.opened.Load() }

// Closed returns the number of sessions closed.
func (c *StubConnector) Closed() int64 { return c.closed.Load() }

// IsClosed reports whether Close was called.
func (c *StubConnector) IsClosed() bool { return c.shut.Load() }

type stubSession struct {
	c      *StubConnector
	closed bool
}

func (s *stubSession) Query(ctx context.Context, query string) ([]backend.Row, error) {
	s.c.mu.Lock()
	s.c.queries = append(s.c.queries, query)
	s.c.mu.Unlock()

	if s.c.Panic != nil {
		panic(s.c.Panic)
	}
	if s.c.Block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if s.c.QueryErr != nil {
		return nil, s.c.QueryErr
	}
	rows := make([]backend.Row, len(s.c.Rows))
	copy(rows, s.c.Rows)
	return rows, nil
}

func (s *stubSession) Close() error {
	if !s.closed {
		s.closed = true
		s.c.closed.Add(1)
	}
	return s.c.CloseErr
}

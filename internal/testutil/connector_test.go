package testutil

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/causalrt/internal/backend"
)

func TestStubConnector_ReturnsRows(t *testing.T) {
	row := backend.NewRow([]string{"src"}, []any{"a"})
	c := NewStubConnector(backend.DuckDB, row)
	ctx := context.Background()

	sess, err := c.Open(ctx)
	require.NoError(t, err)
	rows, err := sess.Query(ctx, "SELECT 1")
	require.NoError(t, err)
	require.NoError(t, sess.Close())
	require.NoError(t, sess.Close())

	assert.Equal(t, []backend.Row{row}, rows)
	assert.Equal(t, []string{"SELECT 1"}, c.Queries())
	assert.Equal(t, int64(1), c.Opened())
	assert.Equal(t, int64(1), c.Closed(), "double close counts once")
}

func TestStubConnector_Failures(t *testing.T) {
	boom := errors.New("boom")
	ctx := context.Background()

	t.Run("open", func(t *testing.T) {
		c := &StubConnector{Backend: backend.Neo4j, OpenErr: boom}
		_, err := c.Open(ctx)
		assert.ErrorIs(t, err, boom)
		assert.Zero(t, c.Opened())
	})

	t.Run("query", func(t *testing.T) {
		c := &StubConnector{Backend: backend.Neo4j, QueryErr: boom}
		sess, err := c.Open(ctx)
		require.NoError(t, err)
		_, err = sess.Query(ctx, "q")
		assert.ErrorIs(t, err, boom)
	})

	t.Run("panic", func(t *testing.T) {
		c := &StubConnector{Backend: backend.Neo4j, Panic: "kaboom"}
		sess, err := c.Open(ctx)
		require.NoError(t, err)
		assert.PanicsWithValue(t, "kaboom", func() { _, _ = sess.Query(ctx, "q") })
	})

	t.Run("block", func(t *testing.T) {
		c := &StubConnector{Backend: backend.Neo4j, Block: true}
		sess, err := c.Open(ctx)
		require.NoError(t, err)
		tctx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
		defer cancel()
		_, err = sess.Query(tctx, "q")
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("closed connector", func(t *testing.T) {
		c := NewStubConnector(backend.AGE)
		require.NoError(t, c.Close())
		_, err := c.Open(ctx)
		assert.ErrorIs(t, err, ErrConnectorClosed)
		assert.True(t, c.IsClosed())
	})
}

package age

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/causalrt/internal/backend"
)

func TestParseAgtype(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want any
	}{
		{"integer", "42", json.Number("42")},
		{"string", `"Alice"`, "Alice"},
		{"bool", "true", true},
		{"null", "null", nil},
		{"numeric", "3.14::numeric", json.Number("3.14")},
		{
			name: "vertex",
			in:   `{"id": 844424930131969, "label": "Person", "properties": {"name": "Alice"}}::vertex`,
			want: map[string]any{"name": "Alice"},
		},
		{
			name: "edge",
			in:   `{"id": 1125899906842625, "label": "KNOWS", "end_id": 2, "start_id": 1, "properties": {}}::edge`,
			want: map[string]any{},
		},
		{
			name: "path",
			in: `[{"id": 1, "label": "Person", "properties": {"name": "A"}}::vertex, ` +
				`{"id": 3, "label": "KNOWS", "end_id": 2, "start_id": 1, "properties": {}}::edge, ` +
				`{"id": 2, "label": "Person", "properties": {"name": "B"}}::vertex]::path`,
			want: []any{map[string]any{"name": "A"}, map[string]any{"name": "B"}},
		},
		{
			name: "list of vertices",
			in:   `[{"id": 1, "label": "P", "properties": {"n": 1}}::vertex]`,
			want: []any{map[string]any{"id": json.Number("1"), "label": "P", "properties": map[string]any{"n": json.Number("1")}}},
		},
		{"annotation text inside string", `"a::vertex"`, "a::vertex"},
		{"escaped quote", `"say \"hi\"::edge"`, `say "hi"::edge`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAgtype(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseAgtypeErrors(t *testing.T) {
	for _, in := range []string{"{", `{"a":1}::widget`, "not json"} {
		_, err := ParseAgtype(in)
		assert.Error(t, err, in)
	}
}

// TestLiveQuery runs against PostgreSQL with AGE when CAUSALRT_TEST_AGE_DSN is set.
func TestLiveQuery(t *testing.T) {
	dsn := os.Getenv("CAUSALRT_TEST_AGE_DSN")
	if dsn == "" {
		t.Skip("CAUSALRT_TEST_AGE_DSN not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	c, err := Open(ctx, Config{DSN: dsn})
	require.NoError(t, err)
	defer c.Close()
	assert.Equal(t, backend.AGE, c.Tag())

	s, err := c.Open(ctx)
	require.NoError(t, err)
	defer s.Close()

	rows, err := s.Query(ctx, "SELECT '1'::agtype AS one")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, json.Number("1"), rows[0].Values[0])
}

package estimators

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/causalrt/internal/backend"
	"github.com/roach88/causalrt/internal/plugin"
)

func trial(pairs ...[2]any) *plugin.Dataset {
	rows := make([]backend.Row, len(pairs))
	for i, p := range pairs {
		rows[i] = backend.NewRow([]string{"treatment", "outcome"}, []any{p[0], p[1]})
	}
	return plugin.NewDataset("trial", nil, rows)
}

func TestBuiltinsRegistered(t *testing.T) {
	for _, name := range []string{"dummy_ate", "diff_in_means"} {
		p, err := plugin.Lookup(name)
		require.NoError(t, err)
		assert.Equal(t, name, p.Name())
	}
}

func TestDummyATE(t *testing.T) {
	got, err := DummyATE{}.Run(context.Background(), nil, plugin.RunContext{RunID: "r1", Seed: 7})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"estimator": "dummy_ate",
		"version":   "0.0.1",
		"ate":       0.0,
		"seed":      int64(7),
	}, got)
}

func TestDiffInMeans(t *testing.T) {
	ds := trial(
		[2]any{int64(1), 10.0}, [2]any{int64(1), 14.0},
		[2]any{int64(0), 4.0}, [2]any{int64(0), 6.0},
	)
	got, err := NewDiffInMeans().Run(context.Background(), ds, plugin.RunContext{Seed: 1})
	require.NoError(t, err)

	assert.InDelta(t, 7.0, got["ate"], 1e-9)
	assert.Equal(t, 2, got["n_treated"])
	assert.Equal(t, 2, got["n_control"])

	low, high := got["ci_low"].(float64), got["ci_high"].(float64)
	assert.LessOrEqual(t, low, high)
	// Resampled means stay within the data's range.
	assert.GreaterOrEqual(t, low, 10.0-6.0)
	assert.LessOrEqual(t, high, 14.0-4.0)
}

func TestDiffInMeansSeeded(t *testing.T) {
	ds := trial(
		[2]any{true, 3.0}, [2]any{true, 5.0}, [2]any{true, 9.0},
		[2]any{false, 1.0}, [2]any{false, 2.0}, [2]any{false, 6.0},
	)
	est := NewDiffInMeans()
	a, err := est.Run(context.Background(), ds, plugin.RunContext{Seed: 42})
	require.NoError(t, err)
	b, err := est.Run(context.Background(), ds, plugin.RunContext{Seed: 42})
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestDiffInMeansErrors(t *testing.T) {
	est := NewDiffInMeans()
	ctx := context.Background()

	_, err := est.Run(ctx, plugin.NewDataset("empty", nil, nil), plugin.RunContext{})
	assert.ErrorContains(t, err, "empty dataset")

	_, err = est.Run(ctx, trial([2]any{int64(1), 1.0}, [2]any{int64(1), 2.0}), plugin.RunContext{})
	assert.ErrorContains(t, err, "need treated and control")

	_, err = est.Run(ctx, trial([2]any{int64(2), 1.0}), plugin.RunContext{})
	assert.ErrorContains(t, err, "treatment must be 0 or 1")

	_, err = est.Run(ctx, trial([2]any{int64(1), "high"}), plugin.RunContext{})
	assert.ErrorContains(t, err, "not numeric")
}

func TestQuantile(t *testing.T) {
	xs := []float64{1, 2, 3, 4, 5}
	assert.Equal(t, 1.0, quantile(xs, 0))
	assert.Equal(t, 3.0, quantile(xs, 0.5))
	assert.Equal(t, 5.0, quantile(xs, 1))
	assert.Equal(t, 1.5, quantile(xs, 0.125))
}

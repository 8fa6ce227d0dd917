// Package estimators holds the built-in causal effect estimators. Importing
// it registers them with plugin.Default.
package estimators

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"github.com/roach88/causalrt/internal/plugin"
)

func init() {
	plugin.Default.MustRegister(DummyATE{})
	plugin.Default.MustRegister(NewDiffInMeans())
}

// DummyATE always reports an average treatment effect of zero. It is the
// smoke test for the plugin boundary.
type DummyATE struct{}

func (DummyATE) Name() string    { return "dummy_ate" }
func (DummyATE) Version() string { return "0.0.1" }

func (d DummyATE) Run(_ context.Context, _ *plugin.Dataset, rc plugin.RunContext) (map[string]any, error) {
	return map[string]any{
		"estimator": d.Name(),
		"version":   d.Version(),
		"ate":       0.0,
		"seed":      rc.Seed,
	}, nil
}

// DiffInMeans estimates the average treatment effect as the difference
// between mean outcomes of treated and control rows, with a percentile
// bootstrap confidence interval seeded from the run.
type DiffInMeans struct {
	Treatment string // column holding 0/1 or false/true
	Outcome   string // numeric column
	Resamples int
	Level     float64 // confidence level, e.g. 0.95
}

// NewDiffInMeans returns the estimator over columns "treatment" and
// "outcome" with 200 resamples at the 95% level.
func NewDiffInMeans() *DiffInMeans {
	return &DiffInMeans{Treatment: "treatment", Outcome: "outcome", Resamples: 200, Level: 0.95}
}

func (*DiffInMeans) Name() string    { return "diff_in_means" }
func (*DiffInMeans) Version() string { return "0.1.0" }

func (e *DiffInMeans) Run(ctx context.Context, ds *plugin.Dataset, rc plugin.RunContext) (map[string]any, error) {
	if ds == nil || ds.Len() == 0 {
		return nil, fmt.Errorf("empty dataset")
	}
	treat, err := ds.Float64s(e.Treatment)
	if err != nil {
		return nil, err
	}
	outcome, err := ds.Float64s(e.Outcome)
	if err != nil {
		return nil, err
	}

	var treated, control []float64
	for i, t := range treat {
		switch t {
		case 1:
			treated = append(treated, outcome[i])
		case 0:
			control = append(control, outcome[i])
		default:
			return nil, fmt.Errorf("row %d: treatment must be 0 or 1, got %v", i, t)
		}
	}
	if len(treated) == 0 || len(control) == 0 {
		return nil, fmt.Errorf("need treated and control rows, got %d treated and %d control", len(treated), len(control))
	}

	ate := mean(treated) - mean(control)

	rng := rand.New(rand.NewPCG(uint64(rc.Seed), 0x9e3779b97f4a7c15))
	draws := make([]float64, 0, e.Resamples)
	for i := 0; i < e.Resamples; i++ {
		if i%64 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		draws = append(draws, mean(resample(rng, treated))-mean(resample(rng, control)))
	}
	sort.Float64s(draws)
	alpha := (1 - e.Level) / 2

	return map[string]any{
		"estimator": e.Name(),
		"version":   e.Version(),
		"ate":       ate,
		"ci_low":    quantile(draws, alpha),
		"ci_high":   quantile(draws, 1-alpha),
		"n_treated": len(treated),
		"n_control": len(control),
		"seed":      rc.Seed,
	}, nil
}

func mean(xs []float64) float64 {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func resample(rng *rand.Rand, xs []float64) []float64 {
	out := make([]float64, len(xs))
	for i := range out {
		out[i] = xs[rng.IntN(len(xs))]
	}
	return out
}

// quantile reads q from sorted xs with linear interpolation.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}

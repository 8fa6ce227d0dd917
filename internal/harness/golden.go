package harness

import (
	"context"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// Snapshot renders the compiled outputs of a result as golden text:
//
//	-- duckdb --
//	SELECT ...
//	-- age --
//	error PlanError: plan: backend "age" cannot lower {Filter}
func Snapshot(result *Result) []byte {
	var b strings.Builder
	for _, c := range result.Compiled {
		b.WriteString("-- " + c.Backend + " --\n")
		if c.Error != "" {
			b.WriteString("error " + c.ErrorKind + ": " + c.Error + "\n")
			continue
		}
		b.WriteString(c.Query)
		b.WriteString("\n")
	}
	return []byte(b.String())
}

// RunWithGolden executes a scenario and compares the compiled outputs
// against a golden file. The golden file is stored in
// testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the output doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario)
	if err != nil {
		return nil, err
	}
	AssertGolden(t, scenario.Name, result)
	return result, nil
}

// AssertGolden compares the given result's compiled outputs against a
// golden file without re-running the scenario.
func AssertGolden(t *testing.T, name string, result *Result) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, Snapshot(result))
}

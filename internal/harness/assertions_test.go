package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResult() *Result {
	r := NewResult("sample")
	r.Compiled = []Compiled{
		{Backend: "neo4j", Query: "MATCH p\nWITH src WHERE src.age > 18\nRETURN src"},
		{Backend: "age", ErrorKind: "PlanError", Error: `plan: backend "age" cannot lower {Filter}`},
	}
	r.Executed = &Executed{
		Columns:  []string{"src"},
		Estimate: map[string]any{"ate": 0.0, "n": 3, "estimator": "dummy_ate"},
	}
	return r
}

func TestEvaluateAssertions(t *testing.T) {
	tests := []struct {
		name   string
		a      Assertion
		errMsg string
	}{
		{"compiles", Assertion{Type: AssertCompiles, Backend: "neo4j"}, ""},
		{"compiles fails on error", Assertion{Type: AssertCompiles, Backend: "age"}, "PlanError: plan"},
		{"backend not compiled", Assertion{Type: AssertCompiles, Backend: "duckdb"}, "backend was not compiled"},
		{"fails with kind", Assertion{Type: AssertFails, Backend: "age", Kind: "PlanError", Text: "{Filter}"}, ""},
		{"fails wrong kind", Assertion{Type: AssertFails, Backend: "age", Kind: "CompileError"}, "Expected: CompileError"},
		{"fails but compiled", Assertion{Type: AssertFails, Backend: "neo4j", Kind: "PlanError"}, "Actual: no error"},
		{"fails wrong text", Assertion{Type: AssertFails, Backend: "age", Kind: "PlanError", Text: "Project"}, `error containing "Project"`},
		{"run did not fail", Assertion{Type: AssertFails, Kind: "ExecutionError"}, "Actual: no error"},
		{"contains", Assertion{Type: AssertContains, Backend: "neo4j", Text: "WHERE src.age > 18"}, ""},
		{"contains missing", Assertion{Type: AssertContains, Backend: "neo4j", Text: "CALL"}, "not found"},
		{"order", Assertion{Type: AssertOrder, Backend: "neo4j", Texts: []string{"MATCH", "WHERE", "RETURN"}}, ""},
		{"order reversed", Assertion{Type: AssertOrder, Backend: "neo4j", Texts: []string{"RETURN", "MATCH"}}, `"MATCH" not found after "RETURN"`},
		{"row count", Assertion{Type: AssertRowCount, Count: 0}, ""},
		{"row count mismatch", Assertion{Type: AssertRowCount, Count: 2}, "Expected: 2 rows"},
		{"columns", Assertion{Type: AssertColumns, Columns: []string{"src"}}, ""},
		{"columns mismatch", Assertion{Type: AssertColumns, Columns: []string{"dst"}}, "columns [dst]"},
		{"estimate numeric", Assertion{Type: AssertEstimate, Expect: map[string]any{"ate": 0, "n": 3}}, ""},
		{"estimate string", Assertion{Type: AssertEstimate, Expect: map[string]any{"estimator": "dummy_ate"}}, ""},
		{"estimate mismatch", Assertion{Type: AssertEstimate, Expect: map[string]any{"ate": 1.5}}, `field "ate" = 1.5`},
		{"estimate missing field", Assertion{Type: AssertEstimate, Expect: map[string]any{"ci_low": 0}}, `field "ci_low" to exist`},
		{"unknown type", Assertion{Type: "final_state"}, `unknown assertion type "final_state"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := EvaluateAssertions(sampleResult(), []Assertion{tt.a})
			if tt.errMsg == "" {
				assert.Empty(t, errs)
				return
			}
			require.Len(t, errs, 1)
			assert.Contains(t, errs[0], tt.errMsg)
		})
	}
}

func TestExecutionFailureBlocksResultAssertions(t *testing.T) {
	r := NewResult("x")
	r.Executed = &Executed{ErrorKind: "ExecutionError", Error: "execute on duckdb: boom"}

	errs := EvaluateAssertions(r, []Assertion{
		{Type: AssertRowCount, Count: 0},
		{Type: AssertFails, Kind: "ExecutionError", Text: "boom"},
	})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "Expected: execution to succeed")
}

func TestAssertionErrorFormat(t *testing.T) {
	err := &AssertionError{Type: "contains", Expected: "x", Actual: "not found", Output: "a\nb"}
	assert.Equal(t,
		"Assertion failed: contains\n  Expected: x\n  Actual: not found\n\nOutput:\n  a\n  b\n",
		err.Error())
}

func TestValuesEqual(t *testing.T) {
	assert.True(t, valuesEqual(int64(7), 7))
	assert.True(t, valuesEqual(3.0, 3))
	assert.True(t, valuesEqual(nil, nil))
	assert.False(t, valuesEqual(nil, 0))
	assert.False(t, valuesEqual("7", 7))
	assert.True(t, valuesEqual([]any{"a"}, []any{"a"}))
}

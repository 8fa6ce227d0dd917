package harness

import (
	"fmt"
	"math"
	"reflect"
	"slices"
	"sort"
	"strings"

	"github.com/roach88/causalrt/internal/backend"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
	Output   string // Compiled text or error under test, if any
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if e.Output != "" {
		fmt.Fprintf(&buf, "\nOutput:\n")
		for _, line := range strings.Split(e.Output, "\n") {
			fmt.Fprintf(&buf, "  %s\n", line)
		}
	}
	return buf.String()
}

// compiledFor looks up the compiled outcome for the assertion's backend.
func compiledFor(result *Result, a Assertion) (Compiled, error) {
	tag, _ := backend.ParseTag(a.Backend)
	c, ok := result.For(tag)
	if !ok {
		return Compiled{}, &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("output for backend %s", a.Backend),
			Actual:   "backend was not compiled",
		}
	}
	return c, nil
}

// assertCompiles checks that the query lowered for the backend.
func assertCompiles(result *Result, a Assertion) error {
	c, err := compiledFor(result, a)
	if err != nil {
		return err
	}
	if c.Error != "" {
		return &AssertionError{
			Type:     AssertCompiles,
			Expected: fmt.Sprintf("query compiles for %s", c.Backend),
			Actual:   fmt.Sprintf("%s: %s", c.ErrorKind, c.Error),
		}
	}
	return nil
}

// assertFails checks the error kind, and optionally message text, of a
// compile (with backend) or of the execute step (without).
func assertFails(result *Result, a Assertion) error {
	var kind, msg, output string
	if a.Backend != "" {
		c, err := compiledFor(result, a)
		if err != nil {
			return err
		}
		kind, msg, output = c.ErrorKind, c.Error, c.Query
	} else {
		if result.Executed == nil {
			return &AssertionError{Type: AssertFails, Expected: "an execute step", Actual: "none ran"}
		}
		kind, msg = result.Executed.ErrorKind, result.Executed.Error
	}

	if kind != a.Kind {
		actual := "no error"
		if kind != "" {
			actual = fmt.Sprintf("%s: %s", kind, msg)
		}
		return &AssertionError{
			Type:     AssertFails,
			Expected: a.Kind,
			Actual:   actual,
			Output:   output,
		}
	}
	if a.Text != "" && !strings.Contains(msg, a.Text) {
		return &AssertionError{
			Type:     AssertFails,
			Expected: fmt.Sprintf("error containing %q", a.Text),
			Actual:   msg,
		}
	}
	return nil
}

// assertContains checks that the compiled text contains a substring.
func assertContains(result *Result, a Assertion) error {
	c, err := compiledFor(result, a)
	if err != nil {
		return err
	}
	if !strings.Contains(c.Query, a.Text) {
		return &AssertionError{
			Type:     AssertContains,
			Expected: fmt.Sprintf("%s output containing %q", c.Backend, a.Text),
			Actual:   "not found",
			Output:   c.Query,
		}
	}
	return nil
}

// assertOrder checks that texts appear in the compiled text in order.
// Texts don't need to be adjacent; each search starts after the previous match.
func assertOrder(result *Result, a Assertion) error {
	c, err := compiledFor(result, a)
	if err != nil {
		return err
	}
	pos := 0
	for i, text := range a.Texts {
		idx := strings.Index(c.Query[pos:], text)
		if idx < 0 {
			actual := fmt.Sprintf("%q not found", text)
			if i > 0 {
				actual = fmt.Sprintf("%q not found after %q", text, a.Texts[i-1])
			}
			return &AssertionError{
				Type:     AssertOrder,
				Expected: fmt.Sprintf("texts in order: %q", a.Texts),
				Actual:   actual,
				Output:   c.Query,
			}
		}
		pos += idx + len(text)
	}
	return nil
}

func executed(result *Result, typ string) (*Executed, error) {
	x := result.Executed
	if x == nil {
		return nil, &AssertionError{Type: typ, Expected: "an execute step", Actual: "none ran"}
	}
	if x.Error != "" {
		return nil, &AssertionError{
			Type:     typ,
			Expected: "execution to succeed",
			Actual:   fmt.Sprintf("%s: %s", x.ErrorKind, x.Error),
		}
	}
	return x, nil
}

// assertRowCount checks the number of returned rows.
func assertRowCount(result *Result, a Assertion) error {
	x, err := executed(result, AssertRowCount)
	if err != nil {
		return err
	}
	if len(x.Rows) != a.Count {
		return &AssertionError{
			Type:     AssertRowCount,
			Expected: fmt.Sprintf("%d rows", a.Count),
			Actual:   fmt.Sprintf("%d rows", len(x.Rows)),
		}
	}
	return nil
}

// assertColumns checks the returned column names and order.
func assertColumns(result *Result, a Assertion) error {
	x, err := executed(result, AssertColumns)
	if err != nil {
		return err
	}
	if !slices.Equal(x.Columns, a.Columns) && !(len(x.Columns) == 0 && len(a.Columns) == 0) {
		return &AssertionError{
			Type:     AssertColumns,
			Expected: fmt.Sprintf("columns %v", a.Columns),
			Actual:   fmt.Sprintf("columns %v", x.Columns),
		}
	}
	return nil
}

// assertEstimate checks estimate fields using subset semantics.
func assertEstimate(result *Result, a Assertion) error {
	x, err := executed(result, AssertEstimate)
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(a.Expect))
	for k := range a.Expect {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		want := a.Expect[key]
		got, ok := x.Estimate[key]
		if !ok {
			return &AssertionError{
				Type:     AssertEstimate,
				Expected: fmt.Sprintf("field %q to exist", key),
				Actual:   fmt.Sprintf("estimate fields: %v", sortedKeys(x.Estimate)),
			}
		}
		if !valuesEqual(got, want) {
			return &AssertionError{
				Type:     AssertEstimate,
				Expected: fmt.Sprintf("field %q = %v (type %T)", key, want, want),
				Actual:   fmt.Sprintf("field %q = %v (type %T)", key, got, got),
			}
		}
	}
	return nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// valuesEqual compares two values for equality. Numbers compare by value
// regardless of type, since YAML decodes 0 as int and estimators report
// float64.
func valuesEqual(actual, expected any) bool {
	if actual == nil && expected == nil {
		return true
	}
	if actual == nil || expected == nil {
		return false
	}
	a, aok := number(actual)
	e, eok := number(expected)
	if aok && eok {
		return a == e || math.Abs(a-e) <= 1e-9*math.Max(math.Abs(a), math.Abs(e))
	}
	return reflect.DeepEqual(actual, expected)
}

func number(v any) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case float64:
		return x, true
	default:
		return 0, false
	}
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, a := range assertions {
		var err error

		switch a.Type {
		case AssertCompiles:
			err = assertCompiles(result, a)
		case AssertFails:
			err = assertFails(result, a)
		case AssertContains:
			err = assertContains(result, a)
		case AssertOrder:
			err = assertOrder(result, a)
		case AssertRowCount:
			err = assertRowCount(result, a)
		case AssertColumns:
			err = assertColumns(result, a)
		case AssertEstimate:
			err = assertEstimate(result, a)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, a.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}
	return errors
}

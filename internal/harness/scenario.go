package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/roach88/causalrt/internal/backend"
	"github.com/roach88/causalrt/internal/engine"
)

// Scenario defines a conformance test scenario: one query, the backends
// to compile it for, an optional stubbed execution, and assertions.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Query is the DSL text under test.
	Query string `yaml:"query"`

	// Backends lists the compile targets. Empty means every backend.
	Backends []string `yaml:"backends,omitempty"`

	// Execute runs the query against a stub backend.
	Execute *ExecuteStep `yaml:"execute,omitempty"`

	// Assertions validate the compiled text and execution result.
	Assertions []Assertion `yaml:"assertions"`
}

// ExecuteStep runs the scenario query on a stub backend that answers
// with Rows. With Plugin set the rows are extracted as a dataset and
// passed to the estimator.
type ExecuteStep struct {
	Backend    string            `yaml:"backend"`
	Columns    []string          `yaml:"columns"`
	Rows       [][]any           `yaml:"rows"`
	Dataset    string            `yaml:"dataset,omitempty"`
	SchemaHint map[string]string `yaml:"schema_hint,omitempty"`
	Plugin     string            `yaml:"plugin,omitempty"`
	Seed       int64             `yaml:"seed,omitempty"`
}

// Assertion validates compiled text or the execution result.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Backend selects the compiled output (compiles, fails, contains, order).
	Backend string `yaml:"backend,omitempty"`

	// Kind is the expected error kind (fails), e.g. "PlanError".
	Kind string `yaml:"kind,omitempty"`

	// Text is the expected substring (contains, fails).
	Text string `yaml:"text,omitempty"`

	// Texts are substrings expected in this order (order).
	Texts []string `yaml:"texts,omitempty"`

	// Count is the expected number of rows (row_count).
	Count int `yaml:"count,omitempty"`

	// Columns are the expected result columns (columns).
	Columns []string `yaml:"columns,omitempty"`

	// Expect holds expected estimate fields, subset match (estimate).
	Expect map[string]any `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertCompiles = "compiles"
	AssertFails    = "fails"
	AssertContains = "contains"
	AssertOrder    = "order"
	AssertRowCount = "row_count"
	AssertColumns  = "columns"
	AssertEstimate = "estimate"
)

var errorKinds = map[string]bool{
	engine.KindParse.String():     true,
	engine.KindPlan.String():      true,
	engine.KindCompile.String():   true,
	engine.KindExecution.String(): true,
	engine.KindTimeout.String():   true,
	engine.KindPlugin.String():    true,
	engine.KindInternal.String():  true,
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict decoding catches typos like "assertion:" vs "assertions:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// LoadDir loads every *.yaml and *.yml scenario in dir, sorted by file name.
func LoadDir(dir string) ([]*Scenario, error) {
	var paths []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		paths = append(paths, matches...)
	}
	sort.Strings(paths)

	scenarios := make([]*Scenario, 0, len(paths))
	names := make(map[string]string)
	for _, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(p), err)
		}
		if prev, ok := names[s.Name]; ok {
			return nil, fmt.Errorf("%s: scenario name %q already used by %s", filepath.Base(p), s.Name, prev)
		}
		names[s.Name] = filepath.Base(p)
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// Targets returns the compile targets in planner order.
func (s *Scenario) Targets() []backend.Tag {
	if len(s.Backends) == 0 {
		return backend.DefaultOrder()
	}
	tags := make([]backend.Tag, 0, len(s.Backends))
	for _, name := range s.Backends {
		if tag, ok := backend.ParseTag(name); ok {
			tags = append(tags, tag)
		}
	}
	return tags
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Query == "" {
		return fmt.Errorf("query is required")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	targets := make(map[string]bool)
	for i, name := range s.Backends {
		tag, ok := backend.ParseTag(name)
		if !ok {
			return fmt.Errorf("backends[%d]: unknown backend %q", i, name)
		}
		targets[string(tag)] = true
	}
	if len(s.Backends) == 0 {
		for _, tag := range backend.DefaultOrder() {
			targets[string(tag)] = true
		}
	}

	if e := s.Execute; e != nil {
		if _, ok := backend.ParseTag(e.Backend); !ok {
			return fmt.Errorf("execute: unknown backend %q", e.Backend)
		}
		for i, row := range e.Rows {
			if len(row) != len(e.Columns) {
				return fmt.Errorf("execute.rows[%d]: %d values for %d columns", i, len(row), len(e.Columns))
			}
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i], targets, s.Execute != nil); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion, targets map[string]bool, executes bool) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	needsTarget := func() error {
		tag, ok := backend.ParseTag(a.Backend)
		if !ok {
			return fmt.Errorf("assertions[%d]: backend is required for %s", index, a.Type)
		}
		if !targets[string(tag)] {
			return fmt.Errorf("assertions[%d]: backend %s is not a compile target", index, tag)
		}
		return nil
	}
	needsExecute := func() error {
		if !executes {
			return fmt.Errorf("assertions[%d]: %s requires an execute step", index, a.Type)
		}
		return nil
	}

	switch a.Type {
	case AssertCompiles:
		return needsTarget()
	case AssertFails:
		if !errorKinds[a.Kind] {
			return fmt.Errorf("assertions[%d]: unknown error kind %q for fails", index, a.Kind)
		}
		if a.Backend == "" {
			return needsExecute()
		}
		return needsTarget()
	case AssertContains:
		if a.Text == "" {
			return fmt.Errorf("assertions[%d]: text is required for contains", index)
		}
		return needsTarget()
	case AssertOrder:
		if len(a.Texts) == 0 {
			return fmt.Errorf("assertions[%d]: texts list is required for order", index)
		}
		return needsTarget()
	case AssertRowCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for row_count", index)
		}
		return needsExecute()
	case AssertColumns:
		return needsExecute()
	case AssertEstimate:
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for estimate", index)
		}
		return needsExecute()
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
}

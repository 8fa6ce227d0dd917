package harness

import "github.com/roach88/causalrt/internal/backend"

// Compiled is the outcome of compiling the scenario query for one backend.
type Compiled struct {
	Backend   string `json:"backend"`
	Query     string `json:"query,omitempty"`
	ErrorKind string `json:"error_kind,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Executed is the outcome of the execute step.
type Executed struct {
	RunID         string         `json:"run_id"`
	Backend       string         `json:"backend,omitempty"`
	CompiledQuery string         `json:"compiled_query,omitempty"`
	Columns       []string       `json:"columns"`
	Rows          []backend.Row  `json:"rows"`
	Estimate      map[string]any `json:"estimate,omitempty"`
	ErrorKind     string         `json:"error_kind,omitempty"`
	Error         string         `json:"error,omitempty"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Name is the scenario name.
	Name string `json:"name"`

	// Pass indicates overall test success.
	// True if every assertion holds.
	Pass bool `json:"pass"`

	// Compiled holds one entry per compile target, in target order.
	Compiled []Compiled `json:"compiled"`

	// Executed is nil when the scenario has no execute step.
	Executed *Executed `json:"executed,omitempty"`

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult(name string) *Result {
	return &Result{
		Name:     name,
		Pass:     true,
		Compiled: []Compiled{},
		Errors:   []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// For returns the compiled outcome for tag.
func (r *Result) For(tag backend.Tag) (Compiled, bool) {
	for _, c := range r.Compiled {
		if c.Backend == string(tag) {
			return c, true
		}
	}
	return Compiled{}, false
}

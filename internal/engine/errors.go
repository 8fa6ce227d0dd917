package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/causalrt/internal/backend"
	"github.com/roach88/causalrt/internal/codegen"
	"github.com/roach88/causalrt/internal/dsl"
	"github.com/roach88/causalrt/internal/ir"
	"github.com/roach88/causalrt/internal/planner"
	"github.com/roach88/causalrt/internal/plugin"
)

// ErrNoConnector is the cause of an ExecutionError for a backend that
// has a generator but no configured connection.
var ErrNoConnector = errors.New("no connector configured")

// ExecutionError reports a backend failure while running compiled text:
// connection, session, query or row decoding.
type ExecutionError struct {
	Backend backend.Tag
	Cause   error
	timeout bool
}

func (e *ExecutionError) Error() string {
	if e.timeout {
		return fmt.Sprintf("execute on %s: timed out: %v", e.Backend, e.Cause)
	}
	return fmt.Sprintf("execute on %s: %v", e.Backend, e.Cause)
}

func (e *ExecutionError) Unwrap() error { return e.Cause }

// Timeout reports whether the backend call exceeded its deadline.
func (e *ExecutionError) Timeout() bool { return e.timeout }

// newExecutionError wraps cause, marking it a timeout when the deadline
// on ctx expired.
func newExecutionError(ctx context.Context, tag backend.Tag, cause error) *ExecutionError {
	timeout := errors.Is(cause, context.DeadlineExceeded) ||
		errors.Is(ctx.Err(), context.DeadlineExceeded)
	return &ExecutionError{Backend: tag, Cause: cause, timeout: timeout}
}

// Kind is the error taxonomy shared by the CLI, the server and the run log.
type Kind string

const (
	KindNone      Kind = ""
	KindParse     Kind = "ParseError"
	KindPlan      Kind = "PlanError"
	KindCompile   Kind = "CompileError"
	KindExecution Kind = "ExecutionError"
	KindTimeout   Kind = "TimeoutError"
	KindPlugin    Kind = "PluginError"
	KindInternal  Kind = "InternalError"
)

func (k Kind) String() string { return string(k) }

// Classify maps err onto the taxonomy. A nil error is KindNone.
func Classify(err error) Kind {
	if err == nil {
		return KindNone
	}
	var (
		pe  *dsl.ParseError
		ple *planner.PlanError
		ce  *codegen.CompileError
		ve  *ir.ValidationError
		ge  *plugin.PluginError
		ee  *ExecutionError
	)
	switch {
	case errors.As(err, &pe):
		return KindParse
	case errors.As(err, &ple):
		return KindPlan
	case errors.As(err, &ce), errors.As(err, &ve):
		return KindCompile
	case errors.As(err, &ge):
		return KindPlugin
	case errors.As(err, &ee):
		if ee.Timeout() {
			return KindTimeout
		}
		return KindExecution
	default:
		return KindInternal
	}
}

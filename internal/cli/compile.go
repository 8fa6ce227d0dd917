package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/causalrt/internal/backend"
	"github.com/roach88/causalrt/internal/dsl"
	"github.com/roach88/causalrt/internal/engine"
	"github.com/roach88/causalrt/internal/ir"
)

// ParseResult is the output of the parse command.
type ParseResult struct {
	Query       string          `json:"query"` // normalised query text
	Fingerprint string          `json:"fingerprint"`
	Nodes       string          `json:"nodes"`
	IR          json.RawMessage `json:"ir"`
}

// NewParseCommand creates the parse command.
func NewParseCommand(rootOpts *RootOptions) *cobra.Command {
	in := &QueryInput{}

	cmd := &cobra.Command{
		Use:   "parse [query]",
		Short: "Parse a query and print its IR",
		Long: `Parse a query and print the canonical IR, its fingerprint and the
normalised query text. Nothing is planned or executed.

Example:
  causalrt parse "MATCH Person-[:KNOWS]->Person HOPS 2 RETURN src, dst"`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(rootOpts, in, args, cmd)
		},
	}
	cmd.Flags().StringVarP(&in.File, "file", "f", "", `read the query from a file ("-" for stdin)`)
	return cmd
}

func runParse(opts *RootOptions, in *QueryInput, args []string, cmd *cobra.Command) error {
	text, err := in.read(cmd, args)
	if err != nil {
		return err
	}
	f := opts.formatter(cmd)

	node, err := dsl.Parse(text)
	if err != nil {
		return f.Fail("parse failed", err)
	}
	if err := ir.Validate(node); err != nil {
		return f.Fail("parse failed", err)
	}
	canonical, err := ir.MarshalNode(node)
	if err != nil {
		return f.Fail("parse failed", err)
	}
	formatted, err := dsl.Format(node)
	if err != nil {
		return f.Fail("parse failed", err)
	}

	res := ParseResult{
		Query:       formatted,
		Fingerprint: ir.MustFingerprint(node),
		Nodes:       ir.Kinds(node).String(),
		IR:          canonical,
	}
	return f.Success(res, func(w io.Writer) {
		fmt.Fprintf(w, "Query:       %s\n", res.Query)
		fmt.Fprintf(w, "Fingerprint: %s\n", res.Fingerprint)
		fmt.Fprintf(w, "Nodes:       %s\n", res.Nodes)
		fmt.Fprintf(w, "IR:          %s\n", res.IR)
	})
}

// PlanResult is the output of the plan command.
type PlanResult struct {
	Backend backend.Tag `json:"backend"`
	Nodes   string      `json:"nodes"`
}

// NewPlanCommand creates the plan command.
func NewPlanCommand(rootOpts *RootOptions) *cobra.Command {
	in := &QueryInput{}

	cmd := &cobra.Command{
		Use:   "plan [query]",
		Short: "Show which backend a query would run on",
		Long: `Choose a backend for a query. With --backend auto the first backend in
planner order whose capabilities cover every node of the query wins;
an explicit backend either qualifies or the plan fails.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(rootOpts, in, args, cmd)
		},
	}
	in.register(cmd)
	return cmd
}

func runPlan(opts *RootOptions, in *QueryInput, args []string, cmd *cobra.Command) error {
	text, err := in.read(cmd, args)
	if err != nil {
		return err
	}
	cfg, err := opts.LoadConfig(cmd)
	if err != nil {
		return err
	}
	f := opts.formatter(cmd)

	tag, err := opts.newCompiler(cfg).Plan(text, in.Backend)
	if err != nil {
		return f.Fail("plan failed", err)
	}
	res := PlanResult{Backend: tag, Nodes: ir.Kinds(dsl.MustParse(text)).String()}
	return f.Success(res, func(w io.Writer) {
		fmt.Fprintf(w, "%s %s\n", res.Backend, res.Nodes)
	})
}

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	QueryInput
	All bool // compile for every backend
}

// CompileOutcome is one backend's result in compile --all.
type CompileOutcome struct {
	Backend   backend.Tag `json:"backend"`
	Query     string      `json:"compiled_query,omitempty"`
	ErrorKind string      `json:"error_kind,omitempty"`
	Error     string      `json:"error,omitempty"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{}

	cmd := &cobra.Command{
		Use:   "compile [query]",
		Short: "Compile a query to backend query text",
		Long: `Plan a query and lower it to the chosen backend's query language
without executing it. With --all the query is lowered for every backend
and per-backend failures are reported instead of failing the command.

Examples:
  causalrt compile "MATCH Person-[:KNOWS]->Person HOPS 2 RETURN src, dst"
  causalrt compile --backend duckdb -f query.txt
  causalrt compile --all --format json "MATCH A-[:E]->B HOPS 1 RETURN *"`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(rootOpts, opts, args, cmd)
		},
	}
	opts.register(cmd)
	cmd.Flags().BoolVar(&opts.All, "all", false, "compile for every backend")
	return cmd
}

func runCompile(rootOpts *RootOptions, opts *CompileOptions, args []string, cmd *cobra.Command) error {
	text, err := opts.read(cmd, args)
	if err != nil {
		return err
	}
	cfg, err := rootOpts.LoadConfig(cmd)
	if err != nil {
		return err
	}
	f := rootOpts.formatter(cmd)
	eng := rootOpts.newCompiler(cfg)

	if !opts.All {
		c, err := eng.Compile(text, opts.Backend)
		if err != nil {
			return f.Fail("compile failed", err)
		}
		f.VerboseLog("fingerprint %s", c.Fingerprint)
		return f.Success(c, func(w io.Writer) {
			fmt.Fprintf(w, "-- %s --\n%s\n", c.Backend, c.Query)
		})
	}

	node, err := dsl.Parse(text)
	if err != nil {
		return f.Fail("compile failed", err)
	}
	outcomes := compileAll(eng, node)
	return f.Success(outcomes, func(w io.Writer) {
		for _, o := range outcomes {
			fmt.Fprintf(w, "-- %s --\n", o.Backend)
			if o.Error != "" {
				fmt.Fprintf(w, "error %s: %s\n", o.ErrorKind, o.Error)
				continue
			}
			fmt.Fprintln(w, o.Query)
		}
	})
}

func compileAll(eng *engine.Engine, node ir.Node) []CompileOutcome {
	var out []CompileOutcome
	for _, tag := range backend.DefaultOrder() {
		o := CompileOutcome{Backend: tag}
		c, err := eng.CompileNode(node, string(tag))
		if err != nil {
			o.ErrorKind = engine.Classify(err).String()
			o.Error = err.Error()
		} else {
			o.Query = c.Query
		}
		out = append(out, o)
	}
	return out
}

package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/causalrt/internal/backend"
	"github.com/roach88/causalrt/internal/engine"
)

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	in := &QueryInput{}

	cmd := &cobra.Command{
		Use:   "run [query]",
		Short: "Compile and execute a query",
		Long: `Compile a query, execute it on the chosen backend and print the rows.

Only configured backends (--backends, CAUSALRT_BACKENDS) are eligible.
Every run is recorded in the run log (--store) whether it succeeds or not.

Examples:
  causalrt run "MATCH Person-[:KNOWS]->Person HOPS 2 RETURN src, dst"
  causalrt run --backends neo4j --neo4j-uri bolt://db:7687 -f query.txt`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(rootOpts, in, args, cmd)
		},
	}
	in.register(cmd)
	return cmd
}

func runQuery(opts *RootOptions, in *QueryInput, args []string, cmd *cobra.Command) error {
	text, err := in.read(cmd, args)
	if err != nil {
		return err
	}
	cfg, err := opts.LoadConfig(cmd)
	if err != nil {
		return err
	}
	f := opts.formatter(cmd)

	rt, err := opts.newRuntime(cmd.Context(), cfg)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to start engine", err)
	}
	defer func() {
		if closeErr := rt.Close(); closeErr != nil {
			opts.Logger().Error("error closing engine", "error", closeErr)
		}
	}()

	res, err := rt.Engine.Run(cmd.Context(), engine.Request{Query: text, Backend: in.Backend})
	if err != nil {
		return f.Fail("query failed", err)
	}
	f.VerboseLog("compiled query:\n%s", res.CompiledQuery)
	return f.Success(res, func(w io.Writer) {
		fmt.Fprintf(w, "run %s on %s (%d rows)\n", res.RunID, res.Backend, len(res.Rows))
		writeRows(w, res.Rows)
	})
}

// writeRows prints rows as an aligned table, header first.
func writeRows(w io.Writer, rows []backend.Row) {
	if len(rows) == 0 {
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(rows[0].Columns, "\t"))
	for _, r := range rows {
		cells := make([]string, len(r.Values))
		for i, v := range r.Values {
			cells[i] = formatValue(v)
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	tw.Flush()
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}

// writeFields prints a map as sorted key: value lines.
func writeFields(w io.Writer, m map[string]any) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	tw := tabwriter.NewWriter(w, 0, 4, 1, ' ', 0)
	for _, k := range keys {
		fmt.Fprintf(tw, "  %s:\t%s\n", k, formatValue(m[k]))
	}
	tw.Flush()
}

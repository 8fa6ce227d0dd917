package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/causalrt/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	Limit   int
	Backend string
}

// RunDetail is one run with its dataset and estimate, if any.
type RunDetail struct {
	Run      store.Run       `json:"run"`
	Dataset  *store.Dataset  `json:"dataset,omitempty"`
	Estimate *store.Estimate `json:"estimate,omitempty"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{}

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "List recorded runs or show one run",
		Long: `Read the run log (--store). Without arguments the most recent runs are
listed newest first; with a run id that run is shown together with its
extracted dataset and estimate.

Examples:
  causalrt history --limit 5
  causalrt history --backend duckdb
  causalrt history 0190a1b2-...`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(rootOpts, opts, args, cmd)
		},
	}

	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 20, "maximum number of runs to list (0 for all)")
	cmd.Flags().StringVar(&opts.Backend, "backend", "", "only list runs on this backend")

	return cmd
}

func runHistory(rootOpts *RootOptions, opts *HistoryOptions, args []string, cmd *cobra.Command) error {
	cfg, err := rootOpts.LoadConfig(cmd)
	if err != nil {
		return err
	}
	path := cfg.Store.Path
	if path == "" {
		return NewExitError(ExitCommandError, "run log is disabled (store path is empty)")
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return NewExitError(ExitCommandError, fmt.Sprintf("run log not found: %s", path))
	}

	st, err := store.Open(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open run log", err)
	}
	defer st.Close()

	f := rootOpts.formatter(cmd)
	ctx := cmd.Context()

	if len(args) == 0 {
		runs, err := st.ListRuns(ctx, store.ListFilter{Backend: opts.Backend, Limit: opts.Limit})
		if err != nil {
			return storeError(f, err)
		}
		return f.Success(runs, func(w io.Writer) { writeRuns(w, runs) })
	}

	run, err := st.ReadRun(ctx, args[0])
	if errors.Is(err, store.ErrNotFound) {
		f.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitFailure, "run not found", err)
	}
	if err != nil {
		return storeError(f, err)
	}
	detail := RunDetail{Run: run}
	if d, err := st.ReadDataset(ctx, run.ID); err == nil {
		detail.Dataset = &d
	} else if !errors.Is(err, store.ErrNotFound) {
		return storeError(f, err)
	}
	if e, err := st.ReadEstimate(ctx, run.ID); err == nil {
		detail.Estimate = &e
	} else if !errors.Is(err, store.ErrNotFound) {
		return storeError(f, err)
	}
	return f.Success(detail, func(w io.Writer) { writeDetail(w, detail) })
}

func storeError(f *OutputFormatter, err error) error {
	f.Error(ErrCodeStore, err.Error(), nil)
	return WrapExitError(ExitCommandError, "failed to read run log", err)
}

func writeRuns(w io.Writer, runs []store.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tKIND\tBACKEND\tSTATUS\tROWS\tSTARTED\tDURATION")
	for _, r := range runs {
		status := string(r.Status)
		if r.ErrorKind != "" {
			status += " (" + r.ErrorKind + ")"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			r.ID, r.Kind, orDash(r.Backend), status, r.RowCount,
			r.StartedAt.Format(time.RFC3339), r.Duration)
	}
	tw.Flush()
}

func writeDetail(w io.Writer, d RunDetail) {
	r := d.Run
	fmt.Fprintf(w, "Run:         %s\n", r.ID)
	fmt.Fprintf(w, "Kind:        %s\n", r.Kind)
	fmt.Fprintf(w, "Status:      %s\n", r.Status)
	if r.Error != "" {
		fmt.Fprintf(w, "Error:       %s: %s\n", r.ErrorKind, r.Error)
	}
	fmt.Fprintf(w, "Backend:     %s\n", orDash(r.Backend))
	fmt.Fprintf(w, "Fingerprint: %s\n", orDash(r.Fingerprint))
	fmt.Fprintf(w, "Started:     %s (%s)\n", r.StartedAt.Format(time.RFC3339Nano), r.Duration)
	fmt.Fprintf(w, "Rows:        %d\n", r.RowCount)
	fmt.Fprintf(w, "Query:       %s\n", r.Query)
	if r.CompiledQuery != "" {
		fmt.Fprintf(w, "Compiled:\n%s\n", r.CompiledQuery)
	}
	if ds := d.Dataset; ds != nil {
		fmt.Fprintf(w, "Dataset:     %s %v (%d rows)\n", ds.Name, ds.Columns, ds.RowCount)
	}
	if e := d.Estimate; e != nil {
		fmt.Fprintf(w, "Estimate:    %s %s (seed %d)\n", e.Plugin, e.Version, e.Seed)
		writeFields(w, e.Result)
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/causalrt/internal/engine"
)

// EstimateOptions holds flags for the estimate command.
type EstimateOptions struct {
	QueryInput
	Plugin  string
	Seed    int64
	Dataset string
	Hint    map[string]string // column -> int|float|number|string|bool
}

// NewEstimateCommand creates the estimate command.
func NewEstimateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EstimateOptions{}

	cmd := &cobra.Command{
		Use:   "estimate [query]",
		Short: "Extract a dataset with a query and run an estimator on it",
		Long: `Run a query, collect its rows into a named dataset, check the dataset
against the schema hint and pass it to an estimator plugin.

The built-in diff_in_means estimator expects columns "treatment" (0/1)
and "outcome" (numeric).

Example:
  causalrt estimate --plugin diff_in_means --seed 7 \
    --hint treatment=int --hint outcome=number \
    "MATCH Person-[:KNOWS]->Person HOPS 1 RETURN src.treated AS treatment, dst.score AS outcome"`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEstimate(rootOpts, opts, args, cmd)
		},
	}
	opts.register(cmd)
	cmd.Flags().StringVarP(&opts.Plugin, "plugin", "p", "", "estimator plugin name (required)")
	cmd.Flags().Int64Var(&opts.Seed, "seed", 0, "seed passed to the estimator")
	cmd.Flags().StringVar(&opts.Dataset, "dataset", engine.DefaultDatasetName, "dataset name")
	cmd.Flags().StringToStringVar(&opts.Hint, "hint", nil, "schema hint as column=type (repeatable)")
	_ = cmd.MarkFlagRequired("plugin")
	return cmd
}

func runEstimate(rootOpts *RootOptions, opts *EstimateOptions, args []string, cmd *cobra.Command) error {
	text, err := opts.read(cmd, args)
	if err != nil {
		return err
	}
	cfg, err := rootOpts.LoadConfig(cmd)
	if err != nil {
		return err
	}
	f := rootOpts.formatter(cmd)

	rt, err := rootOpts.newRuntime(cmd.Context(), cfg)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to start engine", err)
	}
	defer func() {
		if closeErr := rt.Close(); closeErr != nil {
			rootOpts.Logger().Error("error closing engine", "error", closeErr)
		}
	}()

	res, err := rt.Engine.Estimate(cmd.Context(), engine.EstimateRequest{
		ExtractRequest: engine.ExtractRequest{
			Query:      text,
			Backend:    opts.Backend,
			Dataset:    opts.Dataset,
			SchemaHint: opts.Hint,
		},
		Plugin: opts.Plugin,
		Seed:   opts.Seed,
	})
	if err != nil {
		return f.Fail("estimate failed", err)
	}
	return f.Success(res, func(w io.Writer) {
		fmt.Fprintf(w, "run %s on %s: %s over %d rows\n", res.RunID, res.Backend, opts.Plugin, len(res.Rows))
		writeFields(w, res.Estimate)
	})
}

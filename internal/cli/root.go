package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/roach88/causalrt/internal/config"
	"github.com/roach88/causalrt/internal/engine"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigFile string

	// Connect overrides how backends are opened (for testing).
	// If nil, defaults to OpenConnectors.
	Connect ConnectFunc

	// EngineOptions are applied last to every engine the CLI builds
	// (for testing, e.g. a fixed clock or run id generator).
	EngineOptions []engine.Option

	viper  *viper.Viper
	logger *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the causalrt CLI.
func NewRootCommand() *cobra.Command {
	return NewRootCommandWithOptions(&RootOptions{})
}

// NewRootCommandWithOptions creates the root command around opts, so
// tests can inject connectors and engine options.
func NewRootCommandWithOptions(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "causalrt",
		Short: "causalrt - graph queries for causal estimation",
		Long: `Compile one small graph query language to Cypher (Neo4j), SQL/PGQ (DuckDB)
or Apache AGE, run it on the chosen backend, and feed the rows to
pluggable causal effect estimators.

Configuration is read from defaults, an optional YAML file (--config),
CAUSALRT_* environment variables and flags, in increasing precedence.

DuckDB is planned first but starts bare: SQL/PGQ queries need the duckpgq
extension and a property graph named by --duckdb-graph (default "pg").
Provide them through duckdb.setup in the config file or --duckdb-setup,
or use a database file that already defines the graph. Drop duckdb from
--backends to route queries elsewhere.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			opts.setupLogging(cmd.ErrOrStderr())
			return nil
		},
	}

	pf := cmd.PersistentFlags()
	pf.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	pf.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	pf.StringVarP(&opts.ConfigFile, "config", "c", "", "YAML config file")
	config.RegisterFlags(pf)

	cmd.AddCommand(NewParseCommand(opts))
	cmd.AddCommand(NewPlanCommand(opts))
	cmd.AddCommand(NewCompileCommand(opts))
	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewEstimateCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewPluginsCommand(opts))

	return cmd
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	cmd := NewRootCommand()
	if err := cmd.Execute(); err != nil {
		var exitErr *ExitError
		// Failures were already reported through the output formatter.
		if !errors.As(err, &exitErr) || exitErr.Code != ExitFailure {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		return GetExitCode(err)
	}
	return ExitSuccess
}

// setupLogging installs a text handler on w, at debug level with --verbose.
func (o *RootOptions) setupLogging(w io.Writer) {
	level := slog.LevelInfo
	if o.Verbose {
		level = slog.LevelDebug
	}
	o.logger = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(o.logger)
}

// Logger returns the CLI logger, slog.Default() before setup.
func (o *RootOptions) Logger() *slog.Logger {
	if o.logger == nil {
		return slog.Default()
	}
	return o.logger
}

// LoadConfig resolves the configuration for cmd: defaults, the config
// file, the environment, then any flags set on cmd.
func (o *RootOptions) LoadConfig(cmd *cobra.Command) (*config.Config, error) {
	if o.viper == nil {
		v, err := config.New()
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "configuration error", err)
		}
		o.viper = v
	}
	if err := config.BindFlags(o.viper, cmd.Flags()); err != nil {
		return nil, WrapExitError(ExitCommandError, "configuration error", err)
	}
	cfg, err := config.Load(o.viper, o.ConfigFile)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "configuration error", err)
	}
	return cfg, nil
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   o.Verbose,
	}
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

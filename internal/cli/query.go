package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// QueryInput holds the flags shared by commands that take a query.
type QueryInput struct {
	File    string // read the query from a file, "-" for stdin
	Backend string // preferred backend: "", "auto" or a backend tag
}

func (q *QueryInput) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&q.File, "file", "f", "", `read the query from a file ("-" for stdin)`)
	cmd.Flags().StringVarP(&q.Backend, "backend", "b", "auto", "preferred backend (auto|duckdb|neo4j|age)")
}

// read returns the query text from the single argument or from --file.
func (q *QueryInput) read(cmd *cobra.Command, args []string) (string, error) {
	switch {
	case len(args) == 1 && q.File != "":
		return "", NewExitError(ExitCommandError, "pass the query as an argument or with --file, not both")
	case len(args) == 1:
		return args[0], nil
	case q.File == "":
		return "", NewExitError(ExitCommandError, "a query is required")
	}

	var (
		data []byte
		err  error
	)
	if q.File == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(q.File)
	}
	if err != nil {
		return "", WrapExitError(ExitCommandError, fmt.Sprintf("failed to read query from %s", q.File), err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", NewExitError(ExitCommandError, fmt.Sprintf("query file %s is empty", q.File))
	}
	return text, nil
}

// Command causalrt compiles graph queries for Neo4j, DuckDB and Apache AGE,
// runs them and feeds the rows to causal effect estimators.
package main

import (
	"os"

	"github.com/roach88/causalrt/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}

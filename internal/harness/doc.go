// Package harness runs conformance scenarios for the query pipeline.
//
// A scenario compiles one DSL query for a set of backends, optionally
// executes it against a stub backend that returns canned rows, and checks
// assertions about the compiled text, the rows and any estimate. Compiled
// text is also compared against golden files.
//
// # Scenario Format
//
//	name: filtered_pairs
//	description: "WHERE folds into the path query"
//	query: "MATCH Person-[:KNOWS]->Person WHERE src.age > 18 HOPS 2 RETURN src, dst"
//	backends: [duckdb, neo4j, age]
//	execute:
//	  backend: duckdb
//	  columns: [src, dst]
//	  rows:
//	    - [alice, bob]
//	  plugin: dummy_ate
//	  seed: 7
//	assertions:
//	  - type: compiles
//	    backend: duckdb
//	  - type: fails
//	    backend: age
//	    kind: PlanError
//	  - type: order
//	    backend: neo4j
//	    texts: ["MATCH", "WHERE src.age > 18", "RETURN src, dst"]
//	  - type: row_count
//	    count: 1
//
// # Assertion Types
//
//   - compiles: the query lowers for backend
//   - fails: compiling for backend (or, without backend, executing) fails with kind
//   - contains: the compiled text for backend contains text
//   - order: texts appear in the compiled text in the given order
//   - row_count: the executed query returned count rows
//   - columns: the executed query returned exactly these columns
//   - estimate: the estimate contains every key of expect (subset match)
//
// # Deterministic Testing
//
// Every scenario runs with a step clock, sequential run ids and a fresh
// in-memory run log, so results and golden files are identical across runs.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/pairs.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(ctx, scenario)
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness

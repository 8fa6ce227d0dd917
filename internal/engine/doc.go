// Package engine orchestrates the query pipeline:
//
//	DSL text -> IR -> backend tag -> query text -> rows
//
// Parsing, planning and lowering are pure. Execution acquires one
// session from the chosen backend's connector per request and releases
// it on every exit path, including a panic while rows are normalised.
//
// No stage retries and no stage falls back to another backend: a failure
// is returned to the caller as the typed error of the stage that failed.
// Classify maps any returned error onto that taxonomy.
//
// Every Run, Extract and Estimate call is one run: it gets a run id, an
// OpenTelemetry span tree with one child span per stage, metrics, a log
// line, and a record in the optional Recorder whether it succeeds or not.
package engine

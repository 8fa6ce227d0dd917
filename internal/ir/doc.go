// Package ir provides the intermediate representation for causalrt graph queries.
//
// This package contains type definitions and pure helpers only. Every other
// internal package imports ir; ir imports nothing internal.
//
// The IR is a strict tree of four node kinds:
//
//	MatchPattern    leaf: bounded-hop single-edge-type pattern
//	Filter          restricts its input by a structured predicate
//	Project         selects and names output columns
//	ExtractDataset  marks its input as a dataset for an estimator plugin
//
// Node is a sealed interface. Code that needs to handle every node kind
// implements Visitor and dispatches through Walk, so adding a kind breaks
// the build of every generator until it handles the new kind.
//
// Key design constraints:
//   - Nodes are immutable values; constructors copy slices and maps
//   - Literal values are string, int or bool only (no floats, no nulls)
//   - Identity is structural: see Fingerprint and Equal
//   - Output field names are resolved through Schema, never guessed
package ir

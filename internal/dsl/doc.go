// Package dsl parses causalrt query text into an IR tree.
//
// Grammar (keywords case-insensitive, whitespace-insensitive):
//
//	query      := "MATCH" pattern ("WHERE" or_expr)? "HOPS" integer "RETURN" columns
//	pattern    := label "-" "[" ":" edge_type "]" "->" label
//	columns    := "*" | column ("," column)*
//	column     := field_ref ("AS" identifier)?
//	field_ref  := identifier ("." identifier)?
//	or_expr    := and_expr ("OR" and_expr)*
//	and_expr   := not_expr ("AND" not_expr)*
//	not_expr   := "NOT" not_expr | "(" or_expr ")" | comparison
//	comparison := operand op operand
//	operand    := field_ref | integer | "-" integer | string | "TRUE" | "FALSE"
//	op         := "=" | "<>" | "!=" | "<" | "<=" | ">" | ">="
//
// A successful parse yields Project(columns, MatchPattern) or, with a WHERE
// clause, Project(columns, Filter(predicate, MatchPattern)). "*" is the
// wildcard column list and produces a Project with no columns.
//
// Input is NFC-normalized before lexing; error offsets are rune offsets
// into the normalized text.
package dsl

package codegen

import "strings"

// reserved holds keywords of SQL/PGQ and Cypher. Generated text never
// quotes identifiers, so none of these may appear as one.
var reserved = makeWordSet(
	// SQL and SQL/PGQ
	"ALL", "ANALYSE", "ANALYZE", "AND", "ANY", "ARRAY", "AS", "ASC", "ASYMMETRIC",
	"BETWEEN", "BOTH", "BY", "CASE", "CAST", "CHECK", "COLLATE", "COLUMN", "COLUMNS",
	"CONSTRAINT", "CREATE", "CROSS", "CURRENT_DATE", "CURRENT_TIME",
	"CURRENT_TIMESTAMP", "CURRENT_USER", "DEFAULT", "DEFERRABLE", "DELETE", "DESC",
	"DISTINCT", "DO", "DROP", "ELSE", "END", "EXCEPT", "EXISTS", "FALSE", "FETCH",
	"FOR", "FOREIGN", "FROM", "FULL", "GRANT", "GRAPH_TABLE", "GROUP", "HAVING",
	"ILIKE", "IN", "INITIALLY", "INNER", "INSERT", "INTERSECT", "INTO", "IS", "JOIN",
	"LATERAL", "LEADING", "LEFT", "LIKE", "LIMIT", "NATURAL", "NOT", "NULL",
	"OFFSET", "ON", "ONLY", "OR", "ORDER", "OUTER", "OVER", "PARTITION", "PIVOT",
	"PLACING", "PRIMARY", "QUALIFY", "REFERENCES", "RETURNING", "RIGHT", "SELECT",
	"SET", "SHORTEST", "SOME", "SYMMETRIC", "TABLE", "THEN", "TO", "TRAILING",
	"TRUE", "UNION", "UNIQUE", "UNPIVOT", "UPDATE", "USING", "VALUES", "VARIADIC",
	"WHEN", "WHERE", "WINDOW", "WITH",
	// Cypher
	"CALL", "CONTAINS", "DETACH", "ENDS", "FOREACH", "MATCH", "MERGE", "OPTIONAL",
	"REMOVE", "RETURN", "SKIP", "STARTS", "UNWIND", "XOR", "YIELD",
)

func makeWordSet(words ...string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}

// IsReservedWord reports whether s is a keyword in any target query
// language. Case-insensitive.
func IsReservedWord(s string) bool {
	return reserved[strings.ToUpper(s)]
}

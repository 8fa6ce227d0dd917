package dsl

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/causalrt/internal/ir"
)

// Format renders an IR tree of the shape Parse produces back into query
// text. Parse(Format(n)) is structurally equal to n.
func Format(n ir.Node) (string, error) {
	proj, ok := n.(ir.Project)
	if !ok {
		return "", fmt.Errorf("format: root must be Project, got %s", kindOf(n))
	}

	var predicate ir.Expr
	input := proj.Input
	if f, ok := input.(ir.Filter); ok {
		predicate = f.Predicate
		input = f.Input
	}
	m, ok := input.(ir.MatchPattern)
	if !ok {
		return "", fmt.Errorf("format: expected MatchPattern below Project, got %s", kindOf(input))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "MATCH %s-[:%s]->%s", m.StartLabel, m.EdgeType, m.EndLabel)
	if predicate != nil {
		b.WriteString(" WHERE ")
		b.WriteString(ir.FormatExpr(predicate))
	}
	b.WriteString(" HOPS ")
	b.WriteString(strconv.Itoa(m.MaxHops))
	b.WriteString(" RETURN ")
	if proj.IsWildcard() {
		b.WriteString("*")
	} else {
		cols := make([]string, len(proj.Columns))
		for i, c := range proj.Columns {
			cols[i] = c.String()
		}
		b.WriteString(strings.Join(cols, ", "))
	}
	return b.String(), nil
}

func kindOf(n ir.Node) string {
	if n == nil {
		return "nil"
	}
	return n.Kind().String()
}

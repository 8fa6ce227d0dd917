package codegen

import (
	"strings"

	"github.com/roach88/causalrt/internal/backend"
	"github.com/roach88/causalrt/internal/ir"
)

// AGE lowers IR trees to Apache AGE: the Cypher statement wrapped in the
// cypher() set-returning function.
//
//	SELECT * FROM cypher('g', $$ <cypher> $$) AS (src agtype, dst agtype)
//
// AGE has no CALL subqueries, so Filter is outside its capabilities.
type AGE struct {
	graph string
}

// NewAGE creates the AGE generator for the named graph.
// An empty name selects DefaultGraph.
func NewAGE(graph string) *AGE {
	if graph == "" {
		graph = DefaultGraph
	}
	return &AGE{graph: graph}
}

func (*AGE) Backend() backend.Tag { return backend.AGE }

func (*AGE) Capabilities() ir.KindSet {
	return ir.NewKindSet(ir.KindMatchPattern, ir.KindProject, ir.KindExtractDataset)
}

func (g *AGE) Lower(node ir.Node) (string, error) {
	if err := precheck(g.Backend(), g.Capabilities(), node); err != nil {
		return "", err
	}
	if err := checkIdent(g.Backend(), ir.KindMatchPattern, "graph name", g.graph); err != nil {
		return "", err
	}
	q, err := ir.Walk[cypherQuery](node, cypherLowerer{tag: g.Backend()})
	if err != nil {
		return "", compileErr(g.Backend(), node.Kind(), err)
	}
	text := q.String()
	if strings.Contains(text, "$$") {
		return "", &CompileError{NodeKind: node.Kind().String(), Backend: g.Backend(), Reason: "query text may not contain $$"}
	}

	names := q.schema.Names()
	cols := make([]string, len(names))
	for i, n := range names {
		cols[i] = n + " agtype"
	}
	return "SELECT * FROM cypher('" + g.graph + "', $$\n" + indent(text) + "\n$$) AS (" + strings.Join(cols, ", ") + ")", nil
}

package codegen

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/causalrt/internal/backend"
	"github.com/roach88/causalrt/internal/ir"
)

// Cypher lowers IR trees to Neo4j Cypher.
//
//	MatchPattern  MATCH p = (src:A)-[:E*1..k]->(dst:B)
//	              WITH src, dst, min(length(p)) AS hops
//	Filter        WHERE on the open WITH, or CALL { ... } WITH * WHERE
//	Project       RETURN columns
//
// A query without a RETURN gets one listing every visible field.
type Cypher struct{}

// NewCypher creates the Cypher generator.
func NewCypher() *Cypher {
	return &Cypher{}
}

func (*Cypher) Backend() backend.Tag { return backend.Neo4j }

func (*Cypher) Capabilities() ir.KindSet { return ir.FullKindSet() }

func (g *Cypher) Lower(node ir.Node) (string, error) {
	if err := precheck(g.Backend(), g.Capabilities(), node); err != nil {
		return "", err
	}
	q, err := ir.Walk[cypherQuery](node, cypherLowerer{tag: g.Backend()})
	if err != nil {
		return "", compileErr(g.Backend(), node.Kind(), err)
	}
	return q.String(), nil
}

// cypherQuery is a partially built statement.
type cypherQuery struct {
	clauses   []string
	schema    ir.Schema
	open      bool // no RETURN yet
	whereable bool // last clause is a WITH without WHERE
}

func (q cypherQuery) String() string {
	clauses := q.clauses
	if q.open {
		clauses = append(clauses[:len(clauses):len(clauses)], "RETURN "+strings.Join(q.schema.Names(), ", "))
	}
	return strings.Join(clauses, "\n")
}

// subquery wraps the finished statement in CALL { }.
func (q cypherQuery) subquery() []string {
	return []string{"CALL {", indent(q.String()), "}"}
}

type cypherLowerer struct {
	tag backend.Tag
}

func (l cypherLowerer) VisitMatchPattern(m ir.MatchPattern) (cypherQuery, error) {
	for _, id := range []struct{ what, s string }{
		{"start label", m.StartLabel}, {"edge type", m.EdgeType}, {"end label", m.EndLabel},
	} {
		if err := checkIdent(l.tag, ir.KindMatchPattern, id.what, id.s); err != nil {
			return cypherQuery{}, err
		}
	}
	if m.MaxHops < 1 {
		return cypherQuery{}, &CompileError{NodeKind: ir.KindMatchPattern.String(), Backend: l.tag, Reason: "max hops must be >= 1"}
	}
	schema, err := ir.SchemaOf(m)
	if err != nil {
		return cypherQuery{}, err
	}
	return cypherQuery{
		clauses: []string{
			fmt.Sprintf("MATCH p = (%s:%s)-[:%s*1..%d]->(%s:%s)",
				ir.VarSrc, m.StartLabel, m.EdgeType, m.MaxHops, ir.VarDst, m.EndLabel),
			fmt.Sprintf("WITH %s, %s, min(length(p)) AS %s", ir.VarSrc, ir.VarDst, ir.VarHops),
		},
		schema:    schema,
		open:      true,
		whereable: true,
	}, nil
}

func (l cypherLowerer) VisitFilter(f ir.Filter) (cypherQuery, error) {
	in, err := ir.Walk[cypherQuery](f.Input, l)
	if err != nil {
		return cypherQuery{}, err
	}
	pred, err := ir.RenderExpr(f.Predicate, func(o ir.Operand) (string, error) {
		return l.operand(o, in.schema)
	})
	if err != nil {
		return cypherQuery{}, compileErr(l.tag, ir.KindFilter, err)
	}

	out := cypherQuery{schema: in.schema, open: true}
	switch {
	case in.open && in.whereable:
		out.clauses = append([]string(nil), in.clauses...)
		out.clauses[len(out.clauses)-1] += " WHERE " + pred
	case in.open:
		out.clauses = append(append([]string(nil), in.clauses...), "WITH * WHERE "+pred)
	default:
		out.clauses = append(in.subquery(), "WITH * WHERE "+pred)
	}
	return out, nil
}

func (l cypherLowerer) VisitProject(p ir.Project) (cypherQuery, error) {
	in, err := ir.Walk[cypherQuery](p.Input, l)
	if err != nil {
		return cypherQuery{}, err
	}
	schema, err := ir.SchemaOf(p)
	if err != nil {
		return cypherQuery{}, compileErr(l.tag, ir.KindProject, err)
	}

	cols := p.EffectiveColumns()
	items := make([]string, len(cols))
	for i, c := range cols {
		res, err := in.schema.Resolve(c.Ref)
		if err != nil {
			return cypherQuery{}, compileErr(l.tag, ir.KindProject, err)
		}
		if res.Prop != "" {
			if err := checkIdent(l.tag, ir.KindProject, "property", res.Prop); err != nil {
				return cypherQuery{}, err
			}
		}
		name := c.OutputName()
		if err := checkIdent(l.tag, ir.KindProject, "column name", name); err != nil {
			return cypherQuery{}, err
		}
		items[i] = aliased(cypherRef(res), name)
	}

	ret := "RETURN " + strings.Join(items, ", ")
	var clauses []string
	if in.open {
		clauses = append(append([]string(nil), in.clauses...), ret)
	} else {
		clauses = append(in.subquery(), ret)
	}
	return cypherQuery{clauses: clauses, schema: schema}, nil
}

func (l cypherLowerer) VisitExtractDataset(e ir.ExtractDataset) (cypherQuery, error) {
	return ir.Walk[cypherQuery](e.Input, l)
}

func (l cypherLowerer) operand(o ir.Operand, s ir.Schema) (string, error) {
	switch x := o.(type) {
	case ir.FieldRef:
		res, err := resolveScalar(l.tag, s, x)
		if err != nil {
			return "", err
		}
		return cypherRef(res), nil
	case ir.Literal:
		return cypherLiteral(l.tag, x.Value)
	default:
		return "", &CompileError{NodeKind: ir.KindFilter.String(), Backend: l.tag, Reason: fmt.Sprintf("unknown operand %T", o)}
	}
}

func cypherRef(res ir.Resolution) string {
	if res.Prop == "" {
		return res.Field.Name
	}
	return res.Field.Name + "." + res.Prop
}

// cypherLiteral renders a single-quoted Cypher literal; backslash and
// quote are backslash-escaped.
func cypherLiteral(tag backend.Tag, v ir.IRValue) (string, error) {
	switch val := v.(type) {
	case ir.IRString:
		if err := checkStringLiteral(tag, string(val)); err != nil {
			return "", err
		}
		s := strings.ReplaceAll(string(val), `\`, `\\`)
		s = strings.ReplaceAll(s, `'`, `\'`)
		return "'" + s + "'", nil
	case ir.IRInt:
		return strconv.FormatInt(int64(val), 10), nil
	case ir.IRBool:
		return strconv.FormatBool(bool(val)), nil
	default:
		return "", &CompileError{NodeKind: ir.KindFilter.String(), Backend: tag, Reason: fmt.Sprintf("unsupported literal %T", v)}
	}
}

func aliased(expr, name string) string {
	if expr == name {
		return expr
	}
	return expr + " AS " + name
}

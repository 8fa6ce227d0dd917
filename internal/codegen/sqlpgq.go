package codegen

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/causalrt/internal/backend"
	"github.com/roach88/causalrt/internal/ir"
)

// Defaults for the SQL/PGQ generator.
const (
	DefaultGraph     = "pg"
	DefaultKeyColumn = "id"
)

// SQLPGQ lowers IR trees to DuckDB SQL/PGQ (DuckPGQ extension).
//
//	MatchPattern  SELECT ... FROM GRAPH_TABLE (g MATCH p = ANY SHORTEST
//	              (src IS A)-[e IS E]->{1,k}(dst IS B) COLUMNS (...))
//	Project       folded into COLUMNS over a pattern, else a subquery
//	Filter        SELECT ... FROM (<input>) AS qN WHERE <predicate>
//
// Node variables are projected as their key column. A predicate over a
// node property asks the input relation for an extra column named
// var_prop, which the outer SELECT then drops.
type SQLPGQ struct {
	graph     string
	keyColumn string
}

// NewSQLPGQ creates the SQL/PGQ generator for the named property graph.
// Empty arguments select DefaultGraph and DefaultKeyColumn.
func NewSQLPGQ(graph, keyColumn string) *SQLPGQ {
	if graph == "" {
		graph = DefaultGraph
	}
	if keyColumn == "" {
		keyColumn = DefaultKeyColumn
	}
	return &SQLPGQ{graph: graph, keyColumn: keyColumn}
}

func (*SQLPGQ) Backend() backend.Tag { return backend.DuckDB }

func (*SQLPGQ) Capabilities() ir.KindSet { return ir.FullKindSet() }

func (g *SQLPGQ) Lower(node ir.Node) (string, error) {
	if err := precheck(g.Backend(), g.Capabilities(), node); err != nil {
		return "", err
	}
	if err := checkIdent(g.Backend(), ir.KindMatchPattern, "graph name", g.graph); err != nil {
		return "", err
	}
	if err := checkIdent(g.Backend(), ir.KindMatchPattern, "key column", g.keyColumn); err != nil {
		return "", err
	}
	text, err := ir.Walk[string](node, sqlLowerer{g: g, seq: new(int)})
	if err != nil {
		return "", compileErr(g.Backend(), node.Kind(), err)
	}
	return text, nil
}

// sqlLowerer lowers one node. want lists extra property columns the
// parent needs, resolved against this node's schema.
type sqlLowerer struct {
	g    *SQLPGQ
	want []ir.Resolution
	seq  *int // subquery alias counter, shared by one Lower call
}

func (l sqlLowerer) with(want []ir.Resolution) sqlLowerer {
	return sqlLowerer{g: l.g, want: want, seq: l.seq}
}

func (l sqlLowerer) tag() backend.Tag { return l.g.Backend() }

func (l sqlLowerer) VisitMatchPattern(m ir.MatchPattern) (string, error) {
	schema, err := ir.SchemaOf(m)
	if err != nil {
		return "", err
	}
	var items, names []string
	for _, f := range schema {
		expr, err := l.patternExpr(ir.Resolution{Field: f})
		if err != nil {
			return "", err
		}
		items = append(items, aliased(expr, f.Name))
		names = append(names, f.Name)
	}
	for _, w := range l.want {
		expr, err := l.patternExpr(w)
		if err != nil {
			return "", err
		}
		items = append(items, aliased(expr, w.Name()))
		names = append(names, w.Name())
	}
	return l.graphTable(m, names, items)
}

func (l sqlLowerer) VisitFilter(f ir.Filter) (string, error) {
	schema, err := ir.SchemaOf(f.Input)
	if err != nil {
		return "", err
	}

	var predWant []ir.Resolution
	pred, err := ir.RenderExpr(f.Predicate, func(o ir.Operand) (string, error) {
		switch x := o.(type) {
		case ir.FieldRef:
			res, err := resolveScalar(l.tag(), schema, x)
			if err != nil {
				return "", err
			}
			if res.Prop != "" {
				predWant = append(predWant, res)
			}
			return res.Name(), nil
		case ir.Literal:
			return sqlLiteral(l.tag(), x.Value)
		default:
			return "", fmt.Errorf("unknown operand %T", o)
		}
	})
	if err != nil {
		return "", compileErr(l.tag(), ir.KindFilter, err)
	}

	inner, err := ir.Walk[string](f.Input, l.with(mergeWants(l.want, predWant)))
	if err != nil {
		return "", err
	}
	names := append(schema.Names(), wantNames(l.want)...)
	return l.subquery(names, inner, pred), nil
}

func (l sqlLowerer) VisitProject(p ir.Project) (string, error) {
	if _, err := ir.SchemaOf(p); err != nil {
		return "", compileErr(l.tag(), ir.KindProject, err)
	}
	in, err := ir.SchemaOf(p.Input)
	if err != nil {
		return "", err
	}

	type output struct {
		src  ir.Resolution // in the input's schema
		name string
	}
	var outs []output
	for _, c := range p.EffectiveColumns() {
		res, err := in.Resolve(c.Ref)
		if err != nil {
			return "", compileErr(l.tag(), ir.KindProject, err)
		}
		name := c.OutputName()
		if err := checkIdent(l.tag(), ir.KindProject, "column name", name); err != nil {
			return "", err
		}
		outs = append(outs, output{src: res, name: name})
	}
	for _, w := range l.want {
		// w is a property of one of this node's node-valued columns; its
		// Origin is a bare variable in the input's namespace.
		res, err := in.Resolve(ir.FieldRef{Var: w.Field.Origin.Var, Prop: w.Prop})
		if err != nil {
			return "", compileErr(l.tag(), ir.KindProject, err)
		}
		for _, o := range outs {
			if o.name == w.Name() {
				return "", &CompileError{
					NodeKind: ir.KindProject.String(),
					Backend:  l.tag(),
					Reason:   fmt.Sprintf("column %q collides with property column for %s.%s", o.name, w.Field.Name, w.Prop),
				}
			}
		}
		outs = append(outs, output{src: res, name: w.Name()})
	}

	names := make([]string, len(outs))
	for i, o := range outs {
		names[i] = o.name
	}

	if m, ok := p.Input.(ir.MatchPattern); ok {
		items := make([]string, len(outs))
		for i, o := range outs {
			expr, err := l.patternExpr(o.src)
			if err != nil {
				return "", err
			}
			items[i] = aliased(expr, o.name)
		}
		return l.graphTable(m, names, items)
	}

	var childWant []ir.Resolution
	items := make([]string, len(outs))
	for i, o := range outs {
		if o.src.Prop != "" {
			childWant = append(childWant, o.src)
		}
		items[i] = aliased(o.src.Name(), o.name)
	}
	inner, err := ir.Walk[string](p.Input, l.with(mergeWants(nil, childWant)))
	if err != nil {
		return "", err
	}
	return l.subquery(items, inner, ""), nil
}

func (l sqlLowerer) VisitExtractDataset(e ir.ExtractDataset) (string, error) {
	return ir.Walk[string](e.Input, l)
}

// patternExpr maps a resolution against the pattern schema to a
// GRAPH_TABLE column expression.
func (l sqlLowerer) patternExpr(res ir.Resolution) (string, error) {
	switch {
	case res.Prop != "":
		if err := checkIdent(l.tag(), ir.KindMatchPattern, "property", res.Prop); err != nil {
			return "", err
		}
		return res.Field.Name + "." + res.Prop, nil
	case res.Field.Name == ir.VarHops:
		return "path_length(p)", nil
	default:
		return res.Field.Name + "." + l.g.keyColumn, nil
	}
}

func (l sqlLowerer) graphTable(m ir.MatchPattern, names, items []string) (string, error) {
	for _, id := range []struct{ what, s string }{
		{"start label", m.StartLabel}, {"edge type", m.EdgeType}, {"end label", m.EndLabel},
	} {
		if err := checkIdent(l.tag(), ir.KindMatchPattern, id.what, id.s); err != nil {
			return "", err
		}
	}
	if m.MaxHops < 1 {
		return "", &CompileError{NodeKind: ir.KindMatchPattern.String(), Backend: l.tag(), Reason: "max hops must be >= 1"}
	}
	return fmt.Sprintf(
		"SELECT %s FROM GRAPH_TABLE (%s MATCH p = ANY SHORTEST (%s IS %s)-[e IS %s]->{1,%d}(%s IS %s) COLUMNS (%s))",
		strings.Join(names, ", "), l.g.graph,
		ir.VarSrc, m.StartLabel, m.EdgeType, m.MaxHops, ir.VarDst, m.EndLabel,
		strings.Join(items, ", "),
	), nil
}

func (l sqlLowerer) subquery(items []string, inner, where string) string {
	*l.seq++
	s := fmt.Sprintf("SELECT %s FROM (\n%s\n) AS q%d", strings.Join(items, ", "), indent(inner), *l.seq)
	if where != "" {
		s += " WHERE " + where
	}
	return s
}

// mergeWants concatenates want lists, dropping repeated column names.
func mergeWants(a, b []ir.Resolution) []ir.Resolution {
	var out []ir.Resolution
	seen := make(map[string]bool)
	for _, list := range [][]ir.Resolution{a, b} {
		for _, w := range list {
			if !seen[w.Name()] {
				seen[w.Name()] = true
				out = append(out, w)
			}
		}
	}
	return out
}

func wantNames(want []ir.Resolution) []string {
	names := make([]string, len(want))
	for i, w := range want {
		names[i] = w.Name()
	}
	return names
}

// sqlLiteral renders a SQL literal; quotes are doubled.
func sqlLiteral(tag backend.Tag, v ir.IRValue) (string, error) {
	switch val := v.(type) {
	case ir.IRString:
		if err := checkStringLiteral(tag, string(val)); err != nil {
			return "", err
		}
		return "'" + strings.ReplaceAll(string(val), "'", "''") + "'", nil
	case ir.IRInt:
		return strconv.FormatInt(int64(val), 10), nil
	case ir.IRBool:
		if val {
			return "TRUE", nil
		}
		return "FALSE", nil
	default:
		return "", &CompileError{NodeKind: ir.KindFilter.String(), Backend: tag, Reason: fmt.Sprintf("unsupported literal %T", v)}
	}
}

package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindSet(t *testing.T) {
	s := NewKindSet(KindMatchPattern, KindProject)

	assert.True(t, s.Has(KindMatchPattern))
	assert.False(t, s.Has(KindFilter))
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, "{MatchPattern, Project}", s.String())
	assert.True(t, FullKindSet().Covers(s))
	assert.False(t, s.Covers(FullKindSet()))
	assert.Equal(t, NewKindSet(KindFilter, KindExtractDataset), FullKindSet().Minus(s))
	assert.Equal(t, "{}", KindSet(0).String())
}

func TestKinds(t *testing.T) {
	node := NewExtractDataset(
		NewProject(NewFilter(NewMatchPattern("A", "E", "B", 1), Cmp(Ref("hops"), OpEq, Int(1)))),
		"d", nil,
	)
	assert.Equal(t, FullKindSet(), Kinds(node))
	assert.Equal(t, NewKindSet(KindMatchPattern), Kinds(NewMatchPattern("A", "E", "B", 1)))
}

func TestPattern(t *testing.T) {
	m := NewMatchPattern("A", "E", "B", 3)
	got, ok := Pattern(NewProject(NewFilter(m, Cmp(Ref("hops"), OpLt, Int(2))), Col("src")))
	require.True(t, ok)
	assert.Equal(t, m, got)

	_, ok = Pattern(nil)
	assert.False(t, ok)
}

func TestConstructorsCopyInputs(t *testing.T) {
	cols := []Column{Col("src"), Col("dst")}
	p := NewProject(NewMatchPattern("A", "E", "B", 1), cols...)
	cols[0] = Col("hops")
	assert.Equal(t, "src", p.Columns[0].Ref.Var)

	hint := map[string]string{"src": "int"}
	e := NewExtractDataset(p, "d", hint)
	hint["src"] = "string"
	assert.Equal(t, "int", e.SchemaHint["src"])

	terms := []Expr{Cmp(Ref("hops"), OpEq, Int(1)), Cmp(Ref("hops"), OpEq, Int(2))}
	or := AnyOf(terms...)
	terms[0] = nil
	assert.NotNil(t, or.Terms[0])
}

func TestColumnNames(t *testing.T) {
	p := NewProject(NewMatchPattern("A", "E", "B", 1), Col("src"), Col("src", "age"), Col("dst").As("target"))

	assert.Equal(t, []string{"src", "src_age", "target"}, p.ColumnNames())
	assert.Equal(t, "src.age", p.Columns[1].String())
	assert.Equal(t, "dst AS target", p.Columns[2].String())
}

func TestWildcardProject(t *testing.T) {
	p := NewProject(NewMatchPattern("A", "E", "B", 1))

	assert.True(t, p.IsWildcard())
	assert.Equal(t, []Column{Col("src"), Col("dst")}, p.EffectiveColumns())
}

type kindNamer struct{}

func (kindNamer) VisitMatchPattern(MatchPattern) (string, error)     { return "m", nil }
func (kindNamer) VisitFilter(Filter) (string, error)                 { return "f", nil }
func (kindNamer) VisitProject(Project) (string, error)               { return "p", nil }
func (kindNamer) VisitExtractDataset(ExtractDataset) (string, error) { return "e", nil }

func TestWalkDispatch(t *testing.T) {
	m := NewMatchPattern("A", "E", "B", 1)
	tests := []struct {
		node Node
		want string
	}{
		{m, "m"},
		{NewFilter(m, nil), "f"},
		{NewProject(m), "p"},
		{NewExtractDataset(m, "d", nil), "e"},
	}
	for _, tt := range tests {
		got, err := Walk[string](tt.node, kindNamer{})
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	_, err := Walk[string](nil, kindNamer{})
	assert.Error(t, err)

	_, err = Walk[string](&m, kindNamer{})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Reason, "*ir.MatchPattern")
}

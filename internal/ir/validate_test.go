package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAccepts(t *testing.T) {
	m := NewMatchPattern("Person", "KNOWS", "Person", 2)
	tests := []struct {
		name string
		node Node
	}{
		{"pattern", m},
		{"scenario A", scenarioA()},
		{"filter over pattern", NewFilter(m, Cmp(Ref("src.age"), OpGt, Int(18)))},
		{"filter over project", NewFilter(scenarioA(), Cmp(Ref("src.age"), OpGt, Int(18)))},
		{"compound", NewFilter(m, AllOf(
			Cmp(Ref("hops"), OpLe, Int(2)),
			Not{Term: AnyOf(Cmp(Ref("dst.name"), OpEq, Str("bob")), Cmp(Ref("dst.active"), OpEq, Bool(false)))},
		))},
		{"extract", NewExtractDataset(scenarioA(), "pairs", map[string]string{"src": "int"})},
		{"field vs field", NewFilter(m, Cmp(Ref("src.age"), OpLt, Ref("dst.age")))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NoError(t, Validate(tt.node))
		})
	}
}

func TestValidateRejects(t *testing.T) {
	m := NewMatchPattern("Person", "KNOWS", "Person", 2)
	tests := []struct {
		name   string
		node   Node
		kind   string
		reason string
	}{
		{"nil", nil, "", "nil node"},
		{"zero hops", NewMatchPattern("A", "E", "B", 0), "MatchPattern", "max hops"},
		{"empty label", NewMatchPattern("", "E", "B", 1), "MatchPattern", "start label"},
		{"empty edge", NewMatchPattern("A", "", "B", 1), "MatchPattern", "edge type"},
		{"unknown field", NewFilter(m, Cmp(Ref("name"), OpEq, Str("x"))), "Filter", "unknown field"},
		{"node operand", NewFilter(m, Cmp(Ref("src"), OpEq, Int(1))), "Filter", "node variable"},
		{"hidden by project", NewFilter(NewProject(m, Col("dst")), Cmp(Ref("src.age"), OpGt, Int(1))), "Filter", "unknown field"},
		{"bad op", NewFilter(m, Cmp(Ref("hops"), Op("=="), Int(1))), "Filter", "invalid operator"},
		{"empty and", NewFilter(m, AllOf()), "Filter", "empty AND"},
		{"nil predicate", NewFilter(m, nil), "Filter", "nil predicate"},
		{"empty dataset name", NewExtractDataset(m, "", nil), "ExtractDataset", "dataset name"},
		{"empty column ref", NewProject(m, Column{}), "Project", "empty column"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.node)
			require.Error(t, err)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.kind, ve.NodeKind)
			assert.Contains(t, ve.Reason, tt.reason)
		})
	}
}

func TestValidationErrorMessage(t *testing.T) {
	err := &ValidationError{NodeKind: "Filter", Field: "src.x", Reason: "unknown field"}
	assert.Equal(t, "invalid IR Filter (src.x): unknown field", err.Error())
}

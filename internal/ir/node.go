package ir

import (
	"maps"
	"math/bits"
	"slices"
	"strings"
)

// Kind identifies an IR node variant.
type Kind uint8

const (
	KindMatchPattern Kind = iota
	KindFilter
	KindProject
	KindExtractDataset

	numKinds
)

// String returns the node kind name used in diagnostics.
func (k Kind) String() string {
	switch k {
	case KindMatchPattern:
		return "MatchPattern"
	case KindFilter:
		return "Filter"
	case KindProject:
		return "Project"
	case KindExtractDataset:
		return "ExtractDataset"
	default:
		return "Unknown"
	}
}

// AllKinds lists every node kind in declaration order.
func AllKinds() []Kind {
	return []Kind{KindMatchPattern, KindFilter, KindProject, KindExtractDataset}
}

// KindSet is a set of node kinds. The zero value is the empty set.
type KindSet uint8

// NewKindSet builds a set from the given kinds.
func NewKindSet(kinds ...Kind) KindSet {
	var s KindSet
	for _, k := range kinds {
		s = s.With(k)
	}
	return s
}

// FullKindSet contains every node kind.
func FullKindSet() KindSet {
	return NewKindSet(AllKinds()...)
}

// With returns s plus k.
func (s KindSet) With(k Kind) KindSet {
	return s | 1<<k
}

// Has reports whether k is in s.
func (s KindSet) Has(k Kind) bool {
	return s&(1<<k) != 0
}

// Covers reports whether every kind in other is also in s.
func (s KindSet) Covers(other KindSet) bool {
	return other&^s == 0
}

// Minus returns the kinds in s that are not in other.
func (s KindSet) Minus(other KindSet) KindSet {
	return s &^ other
}

// Len returns the number of kinds in s.
func (s KindSet) Len() int {
	return bits.OnesCount8(uint8(s))
}

// Kinds returns the members of s in declaration order.
func (s KindSet) Kinds() []Kind {
	var out []Kind
	for k := Kind(0); k < numKinds; k++ {
		if s.Has(k) {
			out = append(out, k)
		}
	}
	return out
}

// String renders the set as "{A, B}".
func (s KindSet) String() string {
	names := make([]string, 0, s.Len())
	for _, k := range s.Kinds() {
		names = append(names, k.String())
	}
	return "{" + strings.Join(names, ", ") + "}"
}

// Node is a node of the query IR.
//
// This is a sealed interface - only the four node types in this package
// implement it. Use Walk with a Visitor to handle every kind.
type Node interface {
	Kind() Kind
	irNode() // Marker method - seals interface to this package
}

// Pattern variable names bound by MatchPattern.
const (
	VarSrc  = "src"
	VarDst  = "dst"
	VarHops = "hops"
)

// MatchPattern is a bounded-length single-edge-type path pattern:
//
//	(src:StartLabel)-[:EdgeType*1..MaxHops]->(dst:EndLabel)
//
// It binds the node variables src and dst and the scalar hops, the
// shortest path length between them within the bound.
type MatchPattern struct {
	StartLabel string
	EdgeType   string
	EndLabel   string
	MaxHops    int
}

func (MatchPattern) irNode()    {}
func (MatchPattern) Kind() Kind { return KindMatchPattern }

// NewMatchPattern creates a MatchPattern.
func NewMatchPattern(start, edge, end string, maxHops int) MatchPattern {
	return MatchPattern{StartLabel: start, EdgeType: edge, EndLabel: end, MaxHops: maxHops}
}

// Filter keeps the rows of Input for which Predicate holds.
type Filter struct {
	Input     Node
	Predicate Expr
}

func (Filter) irNode()    {}
func (Filter) Kind() Kind { return KindFilter }

// NewFilter creates a Filter over input.
func NewFilter(input Node, predicate Expr) Filter {
	return Filter{Input: input, Predicate: predicate}
}

// Column is one projected output column.
type Column struct {
	Ref   FieldRef
	Alias string // optional output name
}

// Col is a shorthand for an unaliased column.
// Example: Col("src", "age") projects src.age as src_age.
func Col(v string, prop ...string) Column {
	ref := FieldRef{Var: v}
	if len(prop) > 0 {
		ref.Prop = prop[0]
	}
	return Column{Ref: ref}
}

// As returns c renamed to alias.
func (c Column) As(alias string) Column {
	c.Alias = alias
	return c
}

// OutputName is the name of the column in result rows.
func (c Column) OutputName() string {
	if c.Alias != "" {
		return c.Alias
	}
	return c.Ref.Name()
}

// String renders the column as written in the DSL.
func (c Column) String() string {
	if c.Alias != "" {
		return c.Ref.String() + " AS " + c.Alias
	}
	return c.Ref.String()
}

// Project selects Columns from Input in order.
// An empty Columns slice is the wildcard: both endpoint variables.
type Project struct {
	Input   Node
	Columns []Column
}

func (Project) irNode()    {}
func (Project) Kind() Kind { return KindProject }

// NewProject creates a Project over input. The columns slice is copied.
func NewProject(input Node, columns ...Column) Project {
	return Project{Input: input, Columns: slices.Clone(columns)}
}

// IsWildcard reports whether p projects all fields.
func (p Project) IsWildcard() bool {
	return len(p.Columns) == 0
}

// EffectiveColumns returns the projected columns, expanding the wildcard
// to the two endpoint variables.
func (p Project) EffectiveColumns() []Column {
	if p.IsWildcard() {
		return []Column{Col(VarSrc), Col(VarDst)}
	}
	return slices.Clone(p.Columns)
}

// ColumnNames returns the output names of the projected columns.
func (p Project) ColumnNames() []string {
	names := make([]string, len(p.Columns))
	for i, c := range p.Columns {
		names[i] = c.OutputName()
	}
	return names
}

// ExtractDataset materializes the rows of Input as a named dataset for a
// downstream estimator plugin. DatasetName and SchemaHint are metadata;
// they never appear in generated query text.
type ExtractDataset struct {
	Input       Node
	DatasetName string
	SchemaHint  map[string]string // field name -> declared type (advisory)
}

func (ExtractDataset) irNode()    {}
func (ExtractDataset) Kind() Kind { return KindExtractDataset }

// NewExtractDataset creates an ExtractDataset over input. The schema hint is copied.
func NewExtractDataset(input Node, name string, schemaHint map[string]string) ExtractDataset {
	var hint map[string]string
	if schemaHint != nil {
		hint = maps.Clone(schemaHint)
	}
	return ExtractDataset{Input: input, DatasetName: name, SchemaHint: hint}
}

// Input returns the child of n, or nil for a leaf.
func Input(n Node) Node {
	switch node := n.(type) {
	case Filter:
		return node.Input
	case Project:
		return node.Input
	case ExtractDataset:
		return node.Input
	default:
		return nil
	}
}

// Kinds returns the set of node kinds present in the tree rooted at n.
func Kinds(n Node) KindSet {
	var s KindSet
	for n != nil {
		s = s.With(n.Kind())
		n = Input(n)
	}
	return s
}

// Pattern returns the MatchPattern leaf of the tree rooted at n.
func Pattern(n Node) (MatchPattern, bool) {
	for n != nil {
		if m, ok := n.(MatchPattern); ok {
			return m, true
		}
		n = Input(n)
	}
	return MatchPattern{}, false
}

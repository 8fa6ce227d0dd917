package ir

import "strings"

// FieldKind distinguishes node-valued fields from scalar fields.
type FieldKind uint8

const (
	FieldScalar FieldKind = iota
	FieldNode             // property access field.prop is allowed
)

func (k FieldKind) String() string {
	if k == FieldNode {
		return "node"
	}
	return "scalar"
}

// Field is one column of a node's output schema.
type Field struct {
	Name   string
	Kind   FieldKind
	Origin FieldRef // the reference in the input's namespace that produced it
}

// Schema is the ordered output schema of a node.
type Schema []Field

// Names returns the field names in order.
func (s Schema) Names() []string {
	names := make([]string, len(s))
	for i, f := range s {
		names[i] = f.Name
	}
	return names
}

// Lookup finds a field by name.
func (s Schema) Lookup(name string) (Field, bool) {
	for _, f := range s {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// String renders the schema as "src:node, hops:scalar".
func (s Schema) String() string {
	parts := make([]string, len(s))
	for i, f := range s {
		parts[i] = f.Name + ":" + f.Kind.String()
	}
	return strings.Join(parts, ", ")
}

// Resolution is a field reference resolved against a schema: either a
// field itself (Prop empty) or a property of a node field.
type Resolution struct {
	Field Field
	Prop  string
}

// IsScalar reports whether the resolved value is a scalar.
func (r Resolution) IsScalar() bool {
	return r.Prop != "" || r.Field.Kind == FieldScalar
}

// Name is the flat column name for the resolved value: the field name,
// or "field_prop" for a property.
func (r Resolution) Name() string {
	if r.Prop == "" {
		return r.Field.Name
	}
	return r.Field.Name + "_" + r.Prop
}

// Resolve resolves ref against s. Rules, first match wins:
//  1. a bare reference names a field
//  2. a reference equal to some field's Origin resolves to that field
//  3. var.prop where var is a node field resolves to the property
func (s Schema) Resolve(ref FieldRef) (Resolution, error) {
	if ref.Prop == "" {
		if f, ok := s.Lookup(ref.Var); ok {
			return Resolution{Field: f}, nil
		}
	}
	for _, f := range s {
		if f.Origin == ref && ref.Prop != "" {
			return Resolution{Field: f}, nil
		}
	}
	if ref.Prop != "" {
		if f, ok := s.Lookup(ref.Var); ok {
			if f.Kind != FieldNode {
				return Resolution{}, &ValidationError{
					Field:  ref.String(),
					Reason: "property access on scalar field " + f.Name,
				}
			}
			return Resolution{Field: f, Prop: ref.Prop}, nil
		}
	}
	return Resolution{}, &ValidationError{
		Field:  ref.String(),
		Reason: "unknown field (visible: " + strings.Join(s.Names(), ", ") + ")",
	}
}

// SchemaOf computes the output schema of n.
//
// MatchPattern exposes src and dst (nodes) and hops (scalar). Filter and
// ExtractDataset pass their input's schema through. Project exposes its
// columns' output names; a column that resolves to a whole node keeps
// node kind so its properties stay reachable.
func SchemaOf(n Node) (Schema, error) {
	return Walk[Schema](n, schemaVisitor{})
}

type schemaVisitor struct{}

func (schemaVisitor) VisitMatchPattern(MatchPattern) (Schema, error) {
	return Schema{
		{Name: VarSrc, Kind: FieldNode, Origin: FieldRef{Var: VarSrc}},
		{Name: VarDst, Kind: FieldNode, Origin: FieldRef{Var: VarDst}},
		{Name: VarHops, Kind: FieldScalar, Origin: FieldRef{Var: VarHops}},
	}, nil
}

func (v schemaVisitor) VisitFilter(f Filter) (Schema, error) {
	return Walk[Schema](f.Input, v)
}

func (v schemaVisitor) VisitProject(p Project) (Schema, error) {
	in, err := Walk[Schema](p.Input, v)
	if err != nil {
		return nil, err
	}
	cols := p.EffectiveColumns()
	out := make(Schema, 0, len(cols))
	for _, c := range cols {
		res, err := in.Resolve(c.Ref)
		if err != nil {
			return nil, withKind(err, KindProject)
		}
		name := c.OutputName()
		if _, dup := out.Lookup(name); dup {
			return nil, &ValidationError{NodeKind: KindProject.String(), Field: name, Reason: "duplicate output column"}
		}
		kind := FieldScalar
		if !res.IsScalar() {
			kind = FieldNode
		}
		out = append(out, Field{Name: name, Kind: kind, Origin: c.Ref})
	}
	return out, nil
}

func (v schemaVisitor) VisitExtractDataset(e ExtractDataset) (Schema, error) {
	return Walk[Schema](e.Input, v)
}

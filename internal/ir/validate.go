package ir

import (
	"errors"
	"fmt"
)

// ValidationError reports a structurally invalid IR tree.
type ValidationError struct {
	NodeKind string // empty when the node itself is missing
	Field    string // offending field reference or column, if any
	Reason   string
}

func (e *ValidationError) Error() string {
	msg := "invalid IR"
	if e.NodeKind != "" {
		msg += " " + e.NodeKind
	}
	if e.Field != "" {
		msg += fmt.Sprintf(" (%s)", e.Field)
	}
	return msg + ": " + e.Reason
}

// withKind fills in NodeKind on a ValidationError that lacks one.
func withKind(err error, k Kind) error {
	var ve *ValidationError
	if errors.As(err, &ve) && ve.NodeKind == "" {
		cp := *ve
		cp.NodeKind = k.String()
		return &cp
	}
	return err
}

// Validate checks the structural invariants of the tree rooted at n:
// non-empty labels and dataset names, a hop bound of at least 1, unique
// output column names, and predicates that reference only fields visible
// from their input and compare scalars with scalar literals.
//
// Validate is a pure function with no side effects.
func Validate(n Node) error {
	_, err := Walk[Schema](n, validator{})
	return err
}

// validator computes schemas like schemaVisitor while checking each node.
type validator struct{}

func (validator) VisitMatchPattern(m MatchPattern) (Schema, error) {
	kind := KindMatchPattern.String()
	switch {
	case m.StartLabel == "":
		return nil, &ValidationError{NodeKind: kind, Reason: "empty start label"}
	case m.EdgeType == "":
		return nil, &ValidationError{NodeKind: kind, Reason: "empty edge type"}
	case m.EndLabel == "":
		return nil, &ValidationError{NodeKind: kind, Reason: "empty end label"}
	case m.MaxHops < 1:
		return nil, &ValidationError{NodeKind: kind, Reason: fmt.Sprintf("max hops must be >= 1, got %d", m.MaxHops)}
	}
	return schemaVisitor{}.VisitMatchPattern(m)
}

func (v validator) VisitFilter(f Filter) (Schema, error) {
	in, err := Walk[Schema](f.Input, v)
	if err != nil {
		return nil, err
	}
	if err := CheckPredicate(f.Predicate, in); err != nil {
		return nil, withKind(err, KindFilter)
	}
	return in, nil
}

func (v validator) VisitProject(p Project) (Schema, error) {
	if _, err := Walk[Schema](p.Input, v); err != nil {
		return nil, err
	}
	for _, c := range p.Columns {
		if c.Ref.Var == "" {
			return nil, &ValidationError{NodeKind: KindProject.String(), Reason: "empty column reference"}
		}
	}
	return schemaVisitor{}.VisitProject(p)
}

func (v validator) VisitExtractDataset(e ExtractDataset) (Schema, error) {
	if e.DatasetName == "" {
		return nil, &ValidationError{NodeKind: KindExtractDataset.String(), Reason: "empty dataset name"}
	}
	return Walk[Schema](e.Input, v)
}

// CheckPredicate verifies that every field reference in e resolves
// against s, that comparisons only involve scalar values, and that
// connectives are non-empty.
func CheckPredicate(e Expr, s Schema) error {
	switch x := e.(type) {
	case Compare:
		if !x.Op.Valid() {
			return &ValidationError{Reason: fmt.Sprintf("invalid operator %q", x.Op)}
		}
		for _, o := range []Operand{x.Left, x.Right} {
			if err := checkOperand(o, s); err != nil {
				return err
			}
		}
		return nil
	case And:
		return checkTerms(x.Terms, s, "AND")
	case Or:
		return checkTerms(x.Terms, s, "OR")
	case Not:
		return CheckPredicate(x.Term, s)
	case nil:
		return &ValidationError{Reason: "nil predicate"}
	default:
		return &ValidationError{Reason: fmt.Sprintf("unknown predicate type %T", e)}
	}
}

func checkTerms(terms []Expr, s Schema, op string) error {
	if len(terms) == 0 {
		return &ValidationError{Reason: "empty " + op}
	}
	for _, t := range terms {
		if err := CheckPredicate(t, s); err != nil {
			return err
		}
	}
	return nil
}

func checkOperand(o Operand, s Schema) error {
	switch x := o.(type) {
	case FieldRef:
		res, err := s.Resolve(x)
		if err != nil {
			return err
		}
		if !res.IsScalar() {
			return &ValidationError{Field: x.String(), Reason: "node variable cannot be compared; use a property"}
		}
		return nil
	case Literal:
		if !IsScalar(x.Value) {
			return &ValidationError{Reason: fmt.Sprintf("literal must be string, int or bool, got %T", x.Value)}
		}
		return nil
	case nil:
		return &ValidationError{Reason: "nil operand"}
	default:
		return &ValidationError{Reason: fmt.Sprintf("unknown operand type %T", o)}
	}
}

package ir

import (
	"fmt"
	"strconv"
	"strings"
)

// Expr is a boolean predicate over row fields.
//
// This is a sealed interface - only Compare, And, Or, and Not implement it.
// Generators render predicates themselves; no predicate text is ever
// spliced into generated queries verbatim.
type Expr interface {
	expr() // Marker method - seals interface to this package
}

// Operand is one side of a comparison: a field reference or a literal.
type Operand interface {
	operand()
}

// Op is a comparison operator.
type Op string

const (
	OpEq Op = "="
	OpNe Op = "<>"
	OpLt Op = "<"
	OpLe Op = "<="
	OpGt Op = ">"
	OpGe Op = ">="
)

// Valid reports whether op is one of the supported operators.
func (op Op) Valid() bool {
	switch op {
	case OpEq, OpNe, OpLt, OpLe, OpGt, OpGe:
		return true
	default:
		return false
	}
}

// ParseOp maps operator text to an Op. "!=" is accepted as "<>".
func ParseOp(s string) (Op, bool) {
	if s == "!=" {
		return OpNe, true
	}
	op := Op(s)
	return op, op.Valid()
}

// FieldRef references a row field: a bare variable ("src", "hops", an
// alias) or a property of a node variable ("src.age").
type FieldRef struct {
	Var  string
	Prop string // empty for a bare variable
}

func (FieldRef) operand() {}

// Ref parses "var" or "var.prop" without validating the parts.
func Ref(s string) FieldRef {
	v, p, _ := strings.Cut(s, ".")
	return FieldRef{Var: v, Prop: p}
}

// Name is the default output column name: "var" or "var_prop".
func (r FieldRef) Name() string {
	if r.Prop == "" {
		return r.Var
	}
	return r.Var + "_" + r.Prop
}

// String renders the reference in DSL syntax.
func (r FieldRef) String() string {
	if r.Prop == "" {
		return r.Var
	}
	return r.Var + "." + r.Prop
}

// Literal is a constant operand. Value must be IRString, IRInt or IRBool.
type Literal struct {
	Value IRValue
}

func (Literal) operand() {}

// Str, Int and Bool build literal operands.
func Str(s string) Literal { return Literal{Value: IRString(s)} }
func Int(n int64) Literal  { return Literal{Value: IRInt(n)} }
func Bool(b bool) Literal  { return Literal{Value: IRBool(b)} }

// Compare is a binary comparison.
type Compare struct {
	Left  Operand
	Op    Op
	Right Operand
}

func (Compare) expr() {}

// Cmp builds a comparison.
// Example: Cmp(Ref("src.age"), OpGt, Int(18))
func Cmp(left Operand, op Op, right Operand) Compare {
	return Compare{Left: left, Op: op, Right: right}
}

// And is a conjunction of two or more terms.
type And struct {
	Terms []Expr
}

func (And) expr() {}

// Or is a disjunction of two or more terms.
type Or struct {
	Terms []Expr
}

func (Or) expr() {}

// Not negates its term.
type Not struct {
	Term Expr
}

func (Not) expr() {}

// AllOf builds a conjunction; the terms slice is copied.
func AllOf(terms ...Expr) And {
	return And{Terms: append([]Expr(nil), terms...)}
}

// AnyOf builds a disjunction; the terms slice is copied.
func AnyOf(terms ...Expr) Or {
	return Or{Terms: append([]Expr(nil), terms...)}
}

// FieldRefs returns the distinct field references in e, in first-use order.
func FieldRefs(e Expr) []FieldRef {
	var refs []FieldRef
	seen := make(map[FieldRef]bool)
	add := func(o Operand) {
		if ref, ok := o.(FieldRef); ok && !seen[ref] {
			seen[ref] = true
			refs = append(refs, ref)
		}
	}
	var walk func(Expr)
	walk = func(e Expr) {
		switch x := e.(type) {
		case Compare:
			add(x.Left)
			add(x.Right)
		case And:
			for _, t := range x.Terms {
				walk(t)
			}
		case Or:
			for _, t := range x.Terms {
				walk(t)
			}
		case Not:
			walk(x.Term)
		}
	}
	walk(e)
	return refs
}

// Precedence levels used when rendering predicates.
const (
	precOr = iota + 1
	precAnd
	precNot
	precAtom
)

func precedence(e Expr) int {
	switch e.(type) {
	case Or:
		return precOr
	case And:
		return precAnd
	case Not:
		return precNot
	default:
		return precAtom
	}
}

// RenderExpr renders e with the minimal parentheses needed, delegating
// operands to the given function. Generators use it with their own
// operand rules; FormatExpr uses it with DSL rules.
func RenderExpr(e Expr, operand func(Operand) (string, error)) (string, error) {
	switch x := e.(type) {
	case Compare:
		if !x.Op.Valid() {
			return "", fmt.Errorf("invalid operator %q", x.Op)
		}
		l, err := operand(x.Left)
		if err != nil {
			return "", err
		}
		r, err := operand(x.Right)
		if err != nil {
			return "", err
		}
		return l + " " + string(x.Op) + " " + r, nil
	case And:
		return renderTerms(x.Terms, " AND ", precAnd, operand)
	case Or:
		return renderTerms(x.Terms, " OR ", precOr, operand)
	case Not:
		s, err := renderChild(x.Term, precNot, operand)
		if err != nil {
			return "", err
		}
		return "NOT " + s, nil
	case nil:
		return "", fmt.Errorf("nil predicate")
	default:
		return "", fmt.Errorf("unknown predicate type: %T", e)
	}
}

func renderTerms(terms []Expr, sep string, prec int, operand func(Operand) (string, error)) (string, error) {
	if len(terms) == 0 {
		return "", fmt.Errorf("empty%s", strings.TrimRight(sep, " "))
	}
	parts := make([]string, len(terms))
	for i, t := range terms {
		s, err := renderChild(t, prec, operand)
		if err != nil {
			return "", err
		}
		parts[i] = s
	}
	return strings.Join(parts, sep), nil
}

func renderChild(e Expr, parent int, operand func(Operand) (string, error)) (string, error) {
	s, err := RenderExpr(e, operand)
	if err != nil {
		return "", err
	}
	// Equal precedence also gets parentheses so NOT NOT and nested
	// conjunctions keep their tree shape when re-parsed.
	if precedence(e) <= parent && precedence(e) != precAtom {
		return "(" + s + ")", nil
	}
	return s, nil
}

// FormatExpr renders e in DSL syntax.
func FormatExpr(e Expr) string {
	s, err := RenderExpr(e, formatOperand)
	if err != nil {
		return "<invalid: " + err.Error() + ">"
	}
	return s
}

func formatOperand(o Operand) (string, error) {
	switch x := o.(type) {
	case FieldRef:
		return x.String(), nil
	case Literal:
		return FormatLiteral(x.Value)
	default:
		return "", fmt.Errorf("unknown operand type: %T", o)
	}
}

// FormatLiteral renders a scalar value in DSL syntax: strings single-quoted
// with doubled quotes, integers in decimal, booleans as TRUE/FALSE.
func FormatLiteral(v IRValue) (string, error) {
	switch val := v.(type) {
	case IRString:
		return "'" + strings.ReplaceAll(string(val), "'", "''") + "'", nil
	case IRInt:
		return strconv.FormatInt(int64(val), 10), nil
	case IRBool:
		if val {
			return "TRUE", nil
		}
		return "FALSE", nil
	default:
		return "", fmt.Errorf("literal must be string, int or bool, got %T", v)
	}
}

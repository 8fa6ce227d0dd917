// Package codegen lowers IR trees into backend-native query text.
//
// Each generator is a structural recursion over the tree through
// ir.Walk, with one lowering rule per node kind. Lowering is pure: the
// same tree always yields byte-identical text and the tree is never
// modified.
//
// Path semantics shared by every generator: a MatchPattern yields one row
// per distinct (src, dst) pair connected by 1..MaxHops edges of the given
// type, and hops is the length of the shortest such path.
//
// Nothing is interpolated unchecked. Labels, edge types, property names,
// aliases and graph names must be safe identifiers; literals are quoted
// per backend and strings carrying control characters are rejected.
package codegen

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/roach88/causalrt/internal/backend"
	"github.com/roach88/causalrt/internal/ir"
)

// Generator lowers IR trees for one backend.
type Generator interface {
	Backend() backend.Tag
	// Capabilities is the set of node kinds Lower accepts.
	Capabilities() ir.KindSet
	Lower(node ir.Node) (string, error)
}

// CompileError reports a tree the generator cannot lower: a node kind
// outside its capabilities, an unsafe identifier, or an invalid reference.
type CompileError struct {
	NodeKind string
	Backend  backend.Tag
	Reason   string
}

func (e *CompileError) Error() string {
	if e.NodeKind == "" {
		return fmt.Sprintf("compile %s: %s", e.Backend, e.Reason)
	}
	return fmt.Sprintf("compile %s: %s: %s", e.Backend, e.NodeKind, e.Reason)
}

// IsCompileError reports whether err is or wraps a *CompileError.
func IsCompileError(err error) bool {
	var ce *CompileError
	return errors.As(err, &ce)
}

var safeIdent = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// IsSafeIdentifier reports whether s may be interpolated into query text.
func IsSafeIdentifier(s string) bool {
	return safeIdent.MatchString(s)
}

func checkIdent(tag backend.Tag, kind ir.Kind, what, s string) error {
	if !IsSafeIdentifier(s) {
		return &CompileError{NodeKind: kind.String(), Backend: tag, Reason: fmt.Sprintf("unsafe %s %q", what, s)}
	}
	if IsReservedWord(s) {
		return &CompileError{NodeKind: kind.String(), Backend: tag, Reason: fmt.Sprintf("%s %q is a reserved word", what, s)}
	}
	return nil
}

// precheck rejects nil trees, trees containing kinds outside caps, and
// trees that fail ir.Validate.
func precheck(tag backend.Tag, caps ir.KindSet, node ir.Node) error {
	if node == nil {
		return &CompileError{Backend: tag, Reason: "nil node"}
	}
	if missing := ir.Kinds(node).Minus(caps); missing != 0 {
		return &CompileError{
			NodeKind: missing.Kinds()[0].String(),
			Backend:  tag,
			Reason:   "node kind not supported by this backend",
		}
	}
	if err := ir.Validate(node); err != nil {
		return compileErr(tag, node.Kind(), err)
	}
	return nil
}

// compileErr converts IR validation failures into CompileErrors.
func compileErr(tag backend.Tag, kind ir.Kind, err error) error {
	var ce *CompileError
	if errors.As(err, &ce) {
		return err
	}
	var ve *ir.ValidationError
	if errors.As(err, &ve) {
		reason := ve.Reason
		if ve.Field != "" {
			reason = ve.Field + ": " + reason
		}
		nk := ve.NodeKind
		if nk == "" {
			nk = kind.String()
		}
		return &CompileError{NodeKind: nk, Backend: tag, Reason: reason}
	}
	return &CompileError{NodeKind: kind.String(), Backend: tag, Reason: err.Error()}
}

// resolveScalar resolves a predicate operand and requires a scalar.
func resolveScalar(tag backend.Tag, s ir.Schema, ref ir.FieldRef) (ir.Resolution, error) {
	res, err := s.Resolve(ref)
	if err != nil {
		return ir.Resolution{}, compileErr(tag, ir.KindFilter, err)
	}
	if !res.IsScalar() {
		return ir.Resolution{}, &CompileError{
			NodeKind: ir.KindFilter.String(),
			Backend:  tag,
			Reason:   fmt.Sprintf("%s: node variable cannot be compared; use a property", ref),
		}
	}
	if res.Prop != "" {
		if err := checkIdent(tag, ir.KindFilter, "property", res.Prop); err != nil {
			return ir.Resolution{}, err
		}
	}
	return res, nil
}

// checkStringLiteral rejects strings that cannot be quoted safely.
func checkStringLiteral(tag backend.Tag, s string) error {
	for _, r := range s {
		if r < 0x20 || r == 0x7f {
			return &CompileError{
				NodeKind: ir.KindFilter.String(),
				Backend:  tag,
				Reason:   fmt.Sprintf("string literal contains control character %U", r),
			}
		}
	}
	return nil
}

// indent prefixes every line of s with two spaces.
func indent(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = "  " + l
	}
	return strings.Join(lines, "\n")
}

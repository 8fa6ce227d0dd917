package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical produces RFC 8785 canonical JSON for an IRValue.
// This is the only serialization used for structural identity.
//
// Differences from json.Marshal:
//  1. Object keys sorted by UTF-16 code units (not UTF-8 bytes)
//  2. No HTML escaping (< > & are NOT escaped)
//  3. Strings are NFC normalized
func MarshalCanonical(v IRValue) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeCanonical(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeCanonical(buf *bytes.Buffer, v IRValue) error {
	switch val := v.(type) {
	case IRString:
		return writeCanonicalString(buf, string(val))
	case IRInt:
		buf.WriteString(strconv.FormatInt(int64(val), 10))
	case IRBool:
		buf.WriteString(strconv.FormatBool(bool(val)))
	case IRArray:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, elem); err != nil {
				return fmt.Errorf("array[%d]: %w", i, err)
			}
		}
		buf.WriteByte(']')
	case IRObject:
		buf.WriteByte('{')
		for i, k := range val.SortedKeys() {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonicalString(buf, k); err != nil {
				return fmt.Errorf("key %q: %w", k, err)
			}
			buf.WriteByte(':')
			if err := writeCanonical(buf, val[k]); err != nil {
				return fmt.Errorf("value for key %q: %w", k, err)
			}
		}
		buf.WriteByte('}')
	case nil:
		return fmt.Errorf("null is forbidden in canonical JSON")
	default:
		return fmt.Errorf("unsupported type for canonical JSON: %T", v)
	}
	return nil
}

// writeCanonicalString writes s NFC-normalized as a JSON string.
// Only control characters, backslash and quote are escaped; U+2028 and
// U+2029 stay literal as RFC 8785 requires.
func writeCanonicalString(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(norm.NFC.String(s)); err != nil {
		return err
	}
	out := bytes.TrimSuffix(tmp.Bytes(), []byte{'\n'})
	buf.Write(unescapeLineSeparators(out))
	return nil
}

// unescapeLineSeparators turns the \u2028 and \u2029 escapes emitted by
// encoding/json back into literal characters, leaving \\u2028 (an escaped
// backslash followed by text) untouched.
func unescapeLineSeparators(data []byte) []byte {
	if !bytes.Contains(data, []byte(`\u202`)) {
		return data
	}
	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		if data[i] == '\\' && i+1 < len(data) {
			if i+5 < len(data) && data[i+1] == 'u' && string(data[i+2:i+5]) == "202" &&
				(data[i+5] == '8' || data[i+5] == '9') {
				if data[i+5] == '8' {
					out = append(out, "\u2028"...)
				} else {
					out = append(out, "\u2029"...)
				}
				i += 5
				continue
			}
			// Copy escape pairs whole so \\ never starts another escape.
			out = append(out, data[i], data[i+1])
			i++
			continue
		}
		out = append(out, data[i])
	}
	return out
}

// Encode converts a node tree into its canonical IRObject form.
//
//	{"kind":"Filter","input":{...},"predicate":{"op":">","left":{...},"right":{...}}}
func Encode(n Node) (IRObject, error) {
	return Walk[IRObject](n, encoder{})
}

type encoder struct{}

func (encoder) VisitMatchPattern(m MatchPattern) (IRObject, error) {
	return IRObject{
		"kind":        IRString(KindMatchPattern.String()),
		"start_label": IRString(m.StartLabel),
		"edge_type":   IRString(m.EdgeType),
		"end_label":   IRString(m.EndLabel),
		"max_hops":    IRInt(m.MaxHops),
	}, nil
}

func (e encoder) VisitFilter(f Filter) (IRObject, error) {
	in, err := Walk[IRObject](f.Input, e)
	if err != nil {
		return nil, err
	}
	pred, err := encodeExpr(f.Predicate)
	if err != nil {
		return nil, withKind(err, KindFilter)
	}
	return IRObject{
		"kind":      IRString(KindFilter.String()),
		"input":     in,
		"predicate": pred,
	}, nil
}

func (e encoder) VisitProject(p Project) (IRObject, error) {
	in, err := Walk[IRObject](p.Input, e)
	if err != nil {
		return nil, err
	}
	cols := make(IRArray, len(p.Columns))
	for i, c := range p.Columns {
		cols[i] = IRObject{
			"ref":   encodeRef(c.Ref),
			"alias": IRString(c.Alias),
		}
	}
	return IRObject{
		"kind":    IRString(KindProject.String()),
		"input":   in,
		"columns": cols,
	}, nil
}

func (e encoder) VisitExtractDataset(x ExtractDataset) (IRObject, error) {
	in, err := Walk[IRObject](x.Input, e)
	if err != nil {
		return nil, err
	}
	hint := make(IRObject, len(x.SchemaHint))
	for k, v := range x.SchemaHint {
		hint[k] = IRString(v)
	}
	return IRObject{
		"kind":         IRString(KindExtractDataset.String()),
		"input":        in,
		"dataset_name": IRString(x.DatasetName),
		"schema_hint":  hint,
	}, nil
}

func encodeRef(r FieldRef) IRObject {
	return IRObject{"var": IRString(r.Var), "prop": IRString(r.Prop)}
}

func encodeExpr(e Expr) (IRObject, error) {
	switch x := e.(type) {
	case Compare:
		l, err := encodeOperand(x.Left)
		if err != nil {
			return nil, err
		}
		r, err := encodeOperand(x.Right)
		if err != nil {
			return nil, err
		}
		return IRObject{"op": IRString(x.Op), "left": l, "right": r}, nil
	case And:
		return encodeTerms("and", x.Terms)
	case Or:
		return encodeTerms("or", x.Terms)
	case Not:
		t, err := encodeExpr(x.Term)
		if err != nil {
			return nil, err
		}
		return IRObject{"op": IRString("not"), "term": t}, nil
	case nil:
		return nil, &ValidationError{Reason: "nil predicate"}
	default:
		return nil, &ValidationError{Reason: fmt.Sprintf("unknown predicate type %T", e)}
	}
}

func encodeTerms(op string, terms []Expr) (IRObject, error) {
	arr := make(IRArray, len(terms))
	for i, t := range terms {
		enc, err := encodeExpr(t)
		if err != nil {
			return nil, err
		}
		arr[i] = enc
	}
	return IRObject{"op": IRString(op), "terms": arr}, nil
}

func encodeOperand(o Operand) (IRObject, error) {
	switch x := o.(type) {
	case FieldRef:
		return IRObject{"field": encodeRef(x)}, nil
	case Literal:
		if !IsScalar(x.Value) {
			return nil, &ValidationError{Reason: fmt.Sprintf("literal must be string, int or bool, got %T", x.Value)}
		}
		return IRObject{"literal": x.Value}, nil
	default:
		return nil, &ValidationError{Reason: fmt.Sprintf("unknown operand type %T", o)}
	}
}

// MarshalNode returns the canonical JSON encoding of a node tree.
func MarshalNode(n Node) ([]byte, error) {
	obj, err := Encode(n)
	if err != nil {
		return nil, err
	}
	return MarshalCanonical(obj)
}

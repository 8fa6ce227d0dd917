package store

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/roach88/causalrt/internal/ir"
)

// marshalColumns converts a column list to canonical JSON TEXT.
func marshalColumns(cols []string) (string, error) {
	arr := make(ir.IRArray, len(cols))
	for i, c := range cols {
		arr[i] = ir.IRString(c)
	}
	data, err := ir.MarshalCanonical(arr)
	if err != nil {
		return "", fmt.Errorf("marshal columns: %w", err)
	}
	return string(data), nil
}

// marshalHint converts a schema hint to canonical JSON TEXT. A nil hint
// is stored as {}.
func marshalHint(hint map[string]string) (string, error) {
	obj := make(ir.IRObject, len(hint))
	for k, v := range hint {
		obj[k] = ir.IRString(v)
	}
	data, err := ir.MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("marshal schema hint: %w", err)
	}
	return string(data), nil
}

// marshalResult converts a plugin result to JSON TEXT. Results may hold
// floats, which canonical IR JSON forbids, so encoding/json is used with
// HTML escaping disabled; map keys come out sorted.
func marshalResult(result map[string]any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(result); err != nil {
		return "", fmt.Errorf("marshal result: %w", err)
	}
	return string(bytes.TrimSuffix(buf.Bytes(), []byte{'\n'})), nil
}

func unmarshalColumns(s string) ([]string, error) {
	var cols []string
	if err := json.Unmarshal([]byte(s), &cols); err != nil {
		return nil, fmt.Errorf("unmarshal columns: %w", err)
	}
	if cols == nil {
		cols = []string{}
	}
	return cols, nil
}

func unmarshalHint(s string) (map[string]string, error) {
	hint := map[string]string{}
	if err := json.Unmarshal([]byte(s), &hint); err != nil {
		return nil, fmt.Errorf("unmarshal schema hint: %w", err)
	}
	return hint, nil
}

// unmarshalResult decodes numbers as json.Number so integers survive.
func unmarshalResult(s string) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()
	var result map[string]any
	if err := dec.Decode(&result); err != nil {
		return nil, fmt.Errorf("unmarshal result: %w", err)
	}
	return result, nil
}

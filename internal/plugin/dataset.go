package plugin

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"

	"github.com/roach88/causalrt/internal/backend"
)

// Dataset is a named table handed to plugins. Rows keep backend column
// order.
type Dataset struct {
	Name       string            `json:"name"`
	SchemaHint map[string]string `json:"schema_hint,omitempty"` // column -> int|float|number|string|bool
	Columns    []string          `json:"columns"`
	Rows       []backend.Row     `json:"rows"`
}

// NewDataset builds a dataset from backend rows. Columns are taken from
// the first row.
func NewDataset(name string, hint map[string]string, rows []backend.Row) *Dataset {
	ds := &Dataset{Name: name, Rows: rows}
	if len(hint) > 0 {
		ds.SchemaHint = make(map[string]string, len(hint))
		for k, v := range hint {
			ds.SchemaHint[k] = v
		}
	}
	if len(rows) > 0 {
		ds.Columns = append([]string(nil), rows[0].Columns...)
	}
	return ds
}

// Len returns the number of rows.
func (d *Dataset) Len() int { return len(d.Rows) }

// Column returns the values of one column, in row order.
func (d *Dataset) Column(name string) ([]any, error) {
	out := make([]any, len(d.Rows))
	for i, r := range d.Rows {
		v, ok := r.Get(name)
		if !ok {
			return nil, fmt.Errorf("dataset %q: row %d has no column %q", d.Name, i, name)
		}
		out[i] = v
	}
	return out, nil
}

// Float64s returns a numeric column as float64 values.
func (d *Dataset) Float64s(name string) ([]float64, error) {
	vals, err := d.Column(name)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(vals))
	for i, v := range vals {
		f, ok := toFloat(v)
		if !ok {
			return nil, fmt.Errorf("dataset %q: column %q row %d: %v is not numeric", d.Name, name, i, v)
		}
		out[i] = f
	}
	return out, nil
}

var hintTypes = map[string]string{
	"int":    "int",
	"float":  "float",
	"number": "number",
	"string": "string",
	"bool":   "bool",
}

// Validate checks every row against SchemaHint. Each hinted column must
// be present and hold a non-null value of the hinted type; unhinted
// columns are unconstrained.
func (d *Dataset) Validate() error {
	if len(d.SchemaHint) == 0 {
		return nil
	}
	ctx := cuecontext.New()
	schema, err := hintSchema(ctx, d.SchemaHint)
	if err != nil {
		return fmt.Errorf("dataset %q: %w", d.Name, err)
	}
	for i, r := range d.Rows {
		if len(r.Columns) != len(r.Values) {
			return fmt.Errorf("dataset %q: row %d: %d columns but %d values", d.Name, i, len(r.Columns), len(r.Values))
		}
		row := make(map[string]any, len(r.Columns))
		for j, c := range r.Columns {
			row[c] = cueValue(r.Values[j])
		}
		v := schema.Unify(ctx.Encode(row))
		if err := v.Validate(cue.Concrete(true)); err != nil {
			return fmt.Errorf("dataset %q: row %d: %s", d.Name, i, firstCUEError(err))
		}
	}
	return nil
}

// hintSchema compiles the hint into a CUE struct with one required
// field per hinted column.
func hintSchema(ctx *cue.Context, hint map[string]string) (cue.Value, error) {
	cols := make([]string, 0, len(hint))
	for c := range hint {
		cols = append(cols, c)
	}
	sort.Strings(cols)

	var b strings.Builder
	b.WriteString("{\n")
	for _, c := range cols {
		typ, ok := hintTypes[strings.ToLower(hint[c])]
		if !ok {
			return cue.Value{}, fmt.Errorf("column %q: unknown schema type %q", c, hint[c])
		}
		fmt.Fprintf(&b, "\t%s!: %s\n", strconv.Quote(c), typ)
	}
	b.WriteString("}")

	v := ctx.CompileString(b.String())
	if err := v.Err(); err != nil {
		return cue.Value{}, fmt.Errorf("schema hint: %s", firstCUEError(err))
	}
	return v, nil
}

// cueValue maps backend values onto types CUE encodes natively.
func cueValue(v any) any {
	switch x := v.(type) {
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n
		}
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = cueValue(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = cueValue(e)
		}
		return out
	default:
		return v
	}
}

func firstCUEError(err error) string {
	if errs := cueerrors.Errors(err); len(errs) > 0 {
		return errs[0].Error()
	}
	return err.Error()
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int8:
		return float64(x), true
	case int16:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint8:
		return float64(x), true
	case uint16:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

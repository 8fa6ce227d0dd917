package engine

import (
	"fmt"

	"github.com/roach88/causalrt/internal/backend"
	"github.com/roach88/causalrt/internal/dsl"
	"github.com/roach88/causalrt/internal/ir"
)

// Compiled is the output of parse, plan and lower.
type Compiled struct {
	Node        ir.Node     `json:"-"`
	Fingerprint string      `json:"fingerprint"`
	Backend     backend.Tag `json:"backend"`
	Query       string      `json:"compiled_query"`
}

// Compile parses text and lowers it for the chosen backend without
// executing it. Any backend with a generator is eligible, connected or not.
//
// Compile is pure: the same text and preference always produce the same
// query text.
func (e *Engine) Compile(text, preferred string) (*Compiled, error) {
	node, err := dsl.Parse(text)
	if err != nil {
		return nil, err
	}
	return e.CompileNode(node, preferred)
}

// CompileNode plans and lowers an IR tree.
func (e *Engine) CompileNode(node ir.Node, preferred string) (*Compiled, error) {
	tag, err := e.compilePlanner.Choose(node, preferred)
	if err != nil {
		return nil, err
	}
	query, err := e.lower(tag, node)
	if err != nil {
		return nil, err
	}
	return &Compiled{Node: node, Fingerprint: fingerprint(node), Backend: tag, Query: query}, nil
}

// Plan reports the backend a query would run on.
func (e *Engine) Plan(text, preferred string) (backend.Tag, error) {
	node, err := dsl.Parse(text)
	if err != nil {
		return "", err
	}
	return e.compilePlanner.Choose(node, preferred)
}

func (e *Engine) lower(tag backend.Tag, node ir.Node) (string, error) {
	g, ok := e.generators[tag]
	if !ok {
		return "", fmt.Errorf("no generator for backend %s", tag)
	}
	return g.Lower(node)
}

// fingerprint returns the IR fingerprint, or "" for a tree that cannot
// be encoded.
func fingerprint(node ir.Node) string {
	fp, err := ir.Fingerprint(node)
	if err != nil {
		return ""
	}
	return fp
}

// queryText renders node as DSL text for the run log, falling back to
// its canonical JSON for trees the DSL cannot express.
func queryText(node ir.Node) string {
	if text, err := dsl.Format(node); err == nil {
		return text
	}
	data, err := ir.MarshalNode(node)
	if err != nil {
		return ""
	}
	return string(data)
}

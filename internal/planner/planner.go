// Package planner chooses the backend that will run a query.
//
// Each candidate backend declares the set of IR node kinds its generator
// can lower. A backend qualifies for a tree when its set covers every
// kind in the tree. Without a caller preference the first qualifying
// candidate wins, so candidate order is the tie-break policy.
package planner

import (
	"fmt"
	"strings"

	"github.com/roach88/causalrt/internal/backend"
	"github.com/roach88/causalrt/internal/ir"
)

// Reason classifies a planning failure.
type Reason string

const (
	ReasonUnknownBackend Reason = "unknown_backend"
	ReasonUnavailable    Reason = "backend_unavailable"
	ReasonUnsupported    Reason = "unsupported_by_backend"
	ReasonNoBackend      Reason = "no_capable_backend"
)

// PlanError reports that no backend could be chosen.
type PlanError struct {
	Reason  Reason
	Backend string     // the preference involved, if any
	Missing ir.KindSet // node kinds the rejected backend(s) cannot lower
}

func (e *PlanError) Error() string {
	switch e.Reason {
	case ReasonUnknownBackend:
		return fmt.Sprintf("plan: unknown backend %q", e.Backend)
	case ReasonUnavailable:
		return fmt.Sprintf("plan: backend %q is not configured", e.Backend)
	case ReasonUnsupported:
		return fmt.Sprintf("plan: backend %q cannot lower %s", e.Backend, e.Missing)
	default:
		return fmt.Sprintf("plan: no backend can lower %s", e.Missing)
	}
}

// Candidate is a backend the planner may choose.
type Candidate struct {
	Tag          backend.Tag
	Capabilities ir.KindSet
}

// Planner picks a backend for an IR tree. It is immutable and safe for
// concurrent use.
type Planner struct {
	candidates []Candidate
}

// New creates a planner over the given candidates, in tie-break order.
// A tag listed twice keeps its first position.
func New(candidates ...Candidate) *Planner {
	p := &Planner{}
	seen := make(map[backend.Tag]bool)
	for _, c := range candidates {
		if seen[c.Tag] {
			continue
		}
		seen[c.Tag] = true
		p.candidates = append(p.candidates, c)
	}
	return p
}

// Candidates returns the planner's candidates in tie-break order.
func (p *Planner) Candidates() []Candidate {
	return append([]Candidate(nil), p.candidates...)
}

// Choose returns the backend that will run node.
//
// preferred may be empty or "auto" for no preference, or a backend tag.
// A preference is honored or the call fails; the planner never silently
// falls back to another backend.
func (p *Planner) Choose(node ir.Node, preferred string) (backend.Tag, error) {
	required := ir.Kinds(node)

	pref := strings.TrimSpace(preferred)
	if pref != "" && !strings.EqualFold(pref, backend.Auto) {
		tag, ok := backend.ParseTag(pref)
		if !ok {
			return "", &PlanError{Reason: ReasonUnknownBackend, Backend: preferred}
		}
		c, ok := p.lookup(tag)
		if !ok {
			return "", &PlanError{Reason: ReasonUnavailable, Backend: string(tag)}
		}
		if !c.Capabilities.Covers(required) {
			return "", &PlanError{
				Reason:  ReasonUnsupported,
				Backend: string(tag),
				Missing: required.Minus(c.Capabilities),
			}
		}
		return tag, nil
	}

	var missing ir.KindSet
	for _, c := range p.candidates {
		if c.Capabilities.Covers(required) {
			return c.Tag, nil
		}
		missing |= required.Minus(c.Capabilities)
	}
	if len(p.candidates) == 0 {
		missing = required
	}
	return "", &PlanError{Reason: ReasonNoBackend, Missing: missing}
}

func (p *Planner) lookup(tag backend.Tag) (Candidate, bool) {
	for _, c := range p.candidates {
		if c.Tag == tag {
			return c, true
		}
	}
	return Candidate{}, false
}

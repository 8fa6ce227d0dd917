package ir

import "fmt"

// Visitor handles each node kind. Walk calls exactly one method per node;
// the visitor recurses into inputs itself by calling Walk again.
//
// Every generator implements Visitor, so a new node kind cannot be added
// without every generator failing to compile until it handles it.
type Visitor[T any] interface {
	VisitMatchPattern(MatchPattern) (T, error)
	VisitFilter(Filter) (T, error)
	VisitProject(Project) (T, error)
	VisitExtractDataset(ExtractDataset) (T, error)
}

// Walk dispatches n to the visitor method for its kind.
func Walk[T any](n Node, v Visitor[T]) (T, error) {
	switch node := n.(type) {
	case MatchPattern:
		return v.VisitMatchPattern(node)
	case Filter:
		return v.VisitFilter(node)
	case Project:
		return v.VisitProject(node)
	case ExtractDataset:
		return v.VisitExtractDataset(node)
	case nil:
		var zero T
		return zero, &ValidationError{Reason: "nil node"}
	default:
		// Pointers to node values satisfy Node through their value methods.
		var zero T
		return zero, &ValidationError{Reason: fmt.Sprintf("unsupported node type %T", n)}
	}
}

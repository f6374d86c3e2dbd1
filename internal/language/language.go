package language

import (
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"
)

// DeferDirective is the directive name marking a fragment for incremental delivery.
const DeferDirective = "defer"

func ParseQuery(source string) (*QueryDocument, error) {
	doc, err := parser.ParseQuery(&ast.Source{Input: source})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// HasDefer reports whether any fragment in the document carries @defer.
// The executor still honors the directive's `if` argument at execution time;
// this is only a cheap syntactic check so transports can pick a framing.
func HasDefer(doc *QueryDocument) bool {
	for _, op := range doc.Operations {
		if selectionSetHasDefer(doc, op.SelectionSet, map[string]bool{}) {
			return true
		}
	}
	return false
}

func selectionSetHasDefer(doc *QueryDocument, set SelectionSet, visited map[string]bool) bool {
	for _, sel := range set {
		switch s := sel.(type) {
		case *Field:
			if selectionSetHasDefer(doc, s.SelectionSet, visited) {
				return true
			}
		case *InlineFragment:
			if s.Directives.ForName(DeferDirective) != nil {
				return true
			}
			if selectionSetHasDefer(doc, s.SelectionSet, visited) {
				return true
			}
		case *FragmentSpread:
			if s.Directives.ForName(DeferDirective) != nil {
				return true
			}
			if visited[s.Name] {
				continue
			}
			visited[s.Name] = true
			if fd := doc.Fragments.ForName(s.Name); fd != nil {
				if selectionSetHasDefer(doc, fd.SelectionSet, visited) {
					return true
				}
			}
		}
	}
	return false
}

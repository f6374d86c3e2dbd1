package executor

import (
	language "github.com/hnql/hnql/internal/language"
	schema "github.com/hnql/hnql/internal/schema"
)

// groupedFieldSet preserves field order while grouping by response name.
type groupedFieldSet struct {
	order  []string
	fields map[string][]*language.Field
}

type collectedField struct {
	ResponseName string
	Fields       []*language.Field
}

func newGroupedFieldSet() *groupedFieldSet {
	return &groupedFieldSet{fields: make(map[string][]*language.Field)}
}

func (g *groupedFieldSet) add(responseName string, field *language.Field) {
	if _, exists := g.fields[responseName]; !exists {
		g.order = append(g.order, responseName)
	}
	g.fields[responseName] = append(g.fields[responseName], field)
}

func (g *groupedFieldSet) orderedFields() []collectedField {
	result := make([]collectedField, 0, len(g.order))
	for _, name := range g.order {
		result = append(result, collectedField{ResponseName: name, Fields: g.fields[name]})
	}
	return result
}

// deferredSelection is a fragment's selection set held back by @defer.
type deferredSelection struct {
	selections language.SelectionSet
	label      string
}

// collectFields groups the selection set's fields by response name, in
// source order, expanding fragments whose type condition applies to
// objectType. Fragments carrying an active @defer are returned separately
// instead of being expanded in place.
func collectFields(state *executionState, objectType *schema.Type, selectionSet language.SelectionSet) (*groupedFieldSet, []deferredSelection) {
	grouped := newGroupedFieldSet()
	var deferred []deferredSelection
	visitedFragments := make(map[string]struct{})
	collectFieldsImpl(state, objectType, selectionSet, grouped, &deferred, visitedFragments)
	return grouped, deferred
}

func collectFieldsImpl(
	state *executionState,
	objectType *schema.Type,
	selectionSet language.SelectionSet,
	grouped *groupedFieldSet,
	deferred *[]deferredSelection,
	visitedFragments map[string]struct{},
) {
	for _, selection := range selectionSet {
		switch sel := selection.(type) {
		case *language.Field:
			if !shouldIncludeNode(state, sel.Directives) {
				continue
			}
			responseName := sel.Name
			if sel.Alias != "" {
				responseName = sel.Alias
			}
			grouped.add(responseName, sel)

		case *language.InlineFragment:
			if !shouldIncludeNode(state, sel.Directives) {
				continue
			}
			if sel.TypeCondition != "" && !state.schema.TypeApplies(objectType, sel.TypeCondition) {
				continue
			}
			if def, label := deferDirectiveInfo(state, sel.Directives); def {
				*deferred = append(*deferred, deferredSelection{selections: sel.SelectionSet, label: label})
				continue
			}
			collectFieldsImpl(state, objectType, sel.SelectionSet, grouped, deferred, visitedFragments)

		case *language.FragmentSpread:
			if !shouldIncludeNode(state, sel.Directives) {
				continue
			}
			fragment := state.document.Fragments.ForName(sel.Name)
			if fragment == nil {
				continue
			}
			if fragment.TypeCondition != "" && !state.schema.TypeApplies(objectType, fragment.TypeCondition) {
				continue
			}
			if def, label := deferDirectiveInfo(state, sel.Directives); def {
				*deferred = append(*deferred, deferredSelection{selections: fragment.SelectionSet, label: label})
				continue
			}
			if _, visited := visitedFragments[sel.Name]; visited {
				continue
			}
			visitedFragments[sel.Name] = struct{}{}
			collectFieldsImpl(state, objectType, fragment.SelectionSet, grouped, deferred, visitedFragments)
		}
	}
}

// shouldIncludeNode evaluates @skip and @include.
func shouldIncludeNode(state *executionState, directives language.DirectiveList) bool {
	for _, directive := range directives {
		switch directive.Name {
		case "skip":
			if directiveBoolArg(state, directive, "if", false) {
				return false
			}
		case "include":
			if !directiveBoolArg(state, directive, "if", true) {
				return false
			}
		}
	}
	return true
}

// deferDirectiveInfo reports whether a fragment's @defer is active and
// returns its label, if any.
func deferDirectiveInfo(state *executionState, directives language.DirectiveList) (bool, string) {
	for _, directive := range directives {
		if directive.Name != language.DeferDirective {
			continue
		}
		if !directiveBoolArg(state, directive, "if", true) {
			return false, ""
		}
		label := ""
		if arg := directive.Arguments.ForName("label"); arg != nil {
			if v, err := arg.Value.Value(state.variableValues); err == nil {
				if s, ok := v.(string); ok {
					label = s
				}
			}
		}
		return true, label
	}
	return false, ""
}

func directiveBoolArg(state *executionState, directive *language.Directive, name string, def bool) bool {
	arg := directive.Arguments.ForName(name)
	if arg == nil {
		return def
	}
	v, err := arg.Value.Value(state.variableValues)
	if err != nil {
		return def
	}
	if b, ok := v.(bool); ok {
		return b
	}
	return def
}

// selectedFieldNames flattens the merged sub-selection of an async field to
// the set of requested field names, expanding fragments one level into the
// named set. Used to hand the runtime a plain view of what the client asked
// for under this node.
func selectedFieldNames(state *executionState, fields []*language.Field) []string {
	seen := make(map[string]struct{})
	var names []string
	visitedFragments := make(map[string]struct{})
	var walk func(sels language.SelectionSet)
	walk = func(sels language.SelectionSet) {
		for _, selection := range sels {
			switch sel := selection.(type) {
			case *language.Field:
				if !shouldIncludeNode(state, sel.Directives) {
					continue
				}
				if _, ok := seen[sel.Name]; !ok {
					seen[sel.Name] = struct{}{}
					names = append(names, sel.Name)
				}
			case *language.InlineFragment:
				if !shouldIncludeNode(state, sel.Directives) {
					continue
				}
				walk(sel.SelectionSet)
			case *language.FragmentSpread:
				if !shouldIncludeNode(state, sel.Directives) {
					continue
				}
				if _, ok := visitedFragments[sel.Name]; ok {
					continue
				}
				visitedFragments[sel.Name] = struct{}{}
				if fragment := state.document.Fragments.ForName(sel.Name); fragment != nil {
					walk(fragment.SelectionSet)
				}
			}
		}
	}
	for _, f := range fields {
		walk(f.SelectionSet)
	}
	return names
}

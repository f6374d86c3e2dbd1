package introspection

import (
	"context"
	"fmt"
	"sort"

	executor "github.com/hnql/hnql/internal/executor"
	schema "github.com/hnql/hnql/internal/schema"
)

// Wrap layers introspection resolution over a base runtime. The schema must
// be the one returned by Extend; __schema and __type resolve against it, all
// other fields delegate to base.
func Wrap(base executor.Runtime, extended *schema.Schema) executor.Runtime {
	return &runtime{base: base, schema: extended}
}

type runtime struct {
	base   executor.Runtime
	schema *schema.Schema
}

func (r *runtime) ResolveSync(ctx context.Context, objectType, field string, source any, args map[string]any) (any, error) {
	switch src := source.(type) {
	case *schema.Schema:
		if v, ok := resolveSchemaField(src, field); ok {
			return v, nil
		}
	case *schema.Type:
		if v, ok := resolveTypeField(r.schema, src, field, args); ok {
			return v, nil
		}
	case *schema.TypeRef:
		if v, ok := resolveTypeRefField(r.schema, src, field, args); ok {
			return v, nil
		}
	case *schema.Field:
		if v, ok := resolveFieldField(src, field); ok {
			return v, nil
		}
	case *schema.InputValue:
		if v, ok := resolveInputValueField(src, field); ok {
			return v, nil
		}
	case *schema.EnumValue:
		if v, ok := resolveEnumValueField(src, field); ok {
			return v, nil
		}
	case *schema.Directive:
		if v, ok := resolveDirectiveField(src, field); ok {
			return v, nil
		}
	}

	if objectType == r.schema.QueryType {
		switch field {
		case "__schema":
			return r.schema, nil
		case "__type":
			name, _ := args["name"].(string)
			if t := r.schema.Types[name]; t != nil {
				return t, nil
			}
			return nil, nil
		}
	}

	return r.base.ResolveSync(ctx, objectType, field, source, args)
}

func (r *runtime) BatchResolveAsync(ctx context.Context, tasks []executor.AsyncResolveTask) []executor.AsyncResolveResult {
	return r.base.BatchResolveAsync(ctx, tasks)
}

func (r *runtime) ResolveType(ctx context.Context, abstractType string, value any) (string, error) {
	return r.base.ResolveType(ctx, abstractType, value)
}

func (r *runtime) SerializeLeafValue(ctx context.Context, typeName string, value any) (any, error) {
	return r.base.SerializeLeafValue(ctx, typeName, value)
}

func resolveSchemaField(sch *schema.Schema, field string) (any, bool) {
	switch field {
	case "description":
		return optString(sch.Description), true
	case "types":
		out := make([]*schema.Type, 0, len(sch.Types))
		for _, t := range sch.Types {
			out = append(out, t)
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
		return out, true
	case "queryType":
		return sch.GetQueryType(), true
	case "mutationType", "subscriptionType":
		return nil, true
	case "directives":
		out := make([]*schema.Directive, 0, len(sch.Directives))
		for _, d := range sch.Directives {
			out = append(out, d)
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
		return out, true
	}
	return nil, false
}

func resolveTypeField(sch *schema.Schema, t *schema.Type, field string, args map[string]any) (any, bool) {
	switch field {
	case "kind":
		return string(t.Kind), true
	case "name":
		return t.Name, true
	case "description":
		return optString(t.Description), true
	case "fields":
		if t.Kind != schema.TypeKindObject && t.Kind != schema.TypeKindInterface {
			return nil, true
		}
		out := make([]*schema.Field, 0, len(t.Fields))
		for _, f := range t.Fields {
			// Meta fields never appear in a type's field list.
			if len(f.Name) >= 2 && f.Name[:2] == "__" {
				continue
			}
			out = append(out, f)
		}
		return out, true
	case "interfaces":
		if t.Kind != schema.TypeKindObject {
			return nil, true
		}
		out := make([]*schema.Type, 0, len(t.Interfaces))
		for _, name := range t.Interfaces {
			if def := sch.Types[name]; def != nil {
				out = append(out, def)
			}
		}
		return out, true
	case "possibleTypes":
		if t.Kind != schema.TypeKindInterface {
			return nil, true
		}
		out := make([]*schema.Type, 0, len(t.PossibleTypes))
		for _, name := range t.PossibleTypes {
			if def := sch.Types[name]; def != nil {
				out = append(out, def)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
		return out, true
	case "enumValues":
		if t.Kind != schema.TypeKindEnum {
			return nil, true
		}
		return t.EnumValues, true
	case "inputFields", "ofType", "specifiedByURL":
		return nil, true
	}
	return nil, false
}

func resolveTypeRefField(sch *schema.Schema, tr *schema.TypeRef, field string, args map[string]any) (any, bool) {
	switch field {
	case "kind":
		switch tr.Kind {
		case schema.TypeRefKindNonNull:
			return "NON_NULL", true
		case schema.TypeRefKindList:
			return "LIST", true
		}
		if def := sch.Types[tr.Named]; def != nil {
			return string(def.Kind), true
		}
		return "SCALAR", true
	case "name":
		if tr.Kind != schema.TypeRefKindNamed {
			return nil, true
		}
		return tr.Named, true
	case "ofType":
		if tr.Kind == schema.TypeRefKindNonNull || tr.Kind == schema.TypeRefKindList {
			return tr.OfType, true
		}
		return nil, true
	default:
		// Named refs answer the remaining __Type fields via their definition.
		if tr.Kind == schema.TypeRefKindNamed {
			if def := sch.Types[tr.Named]; def != nil {
				return resolveTypeField(sch, def, field, args)
			}
		}
		return nil, true
	}
}

func resolveFieldField(f *schema.Field, field string) (any, bool) {
	switch field {
	case "name":
		return f.Name, true
	case "description":
		return optString(f.Description), true
	case "args":
		if f.Arguments == nil {
			return []*schema.InputValue{}, true
		}
		return f.Arguments, true
	case "type":
		return f.Type, true
	case "isDeprecated":
		return false, true
	case "deprecationReason":
		return nil, true
	}
	return nil, false
}

func resolveInputValueField(a *schema.InputValue, field string) (any, bool) {
	switch field {
	case "name":
		return a.Name, true
	case "description":
		return optString(a.Description), true
	case "type":
		return a.Type, true
	case "defaultValue":
		if a.DefaultValue == nil {
			return nil, true
		}
		return fmt.Sprintf("%v", a.DefaultValue), true
	}
	return nil, false
}

func resolveEnumValueField(ev *schema.EnumValue, field string) (any, bool) {
	switch field {
	case "name":
		return ev.Name, true
	case "description":
		return optString(ev.Description), true
	case "isDeprecated":
		return false, true
	case "deprecationReason":
		return nil, true
	}
	return nil, false
}

func resolveDirectiveField(d *schema.Directive, field string) (any, bool) {
	switch field {
	case "name":
		return d.Name, true
	case "description":
		return optString(d.Description), true
	case "isRepeatable":
		return false, true
	case "locations":
		return d.Locations, true
	case "args":
		if d.Arguments == nil {
			return []*schema.InputValue{}, true
		}
		return d.Arguments, true
	}
	return nil, false
}

func optString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

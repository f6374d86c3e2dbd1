package schema

import (
	"fmt"
	"strconv"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"
)

// BuildFromSDL parses an SDL document into an executable Schema. Builtin
// scalars and the include/skip/defer directives are always present; interface
// possible-types are derived from the object definitions.
func BuildFromSDL(sdl string) (*Schema, error) {
	doc, err := parser.ParseSchema(&ast.Source{Name: "schema.graphql", Input: sdl})
	if err != nil {
		return nil, err
	}

	s := &Schema{
		QueryType:  "Query",
		Types:      make(map[string]*Type),
		Directives: make(map[string]*Directive),
	}
	for _, t := range builtinScalars() {
		s.Types[t.Name] = t
	}
	for _, d := range builtinDirectives() {
		s.Directives[d.Name] = d
	}

	for _, sd := range doc.Schema {
		for _, op := range sd.OperationTypes {
			if op.Operation == ast.Query {
				s.QueryType = op.Type
			}
		}
	}

	for _, def := range doc.Definitions {
		t, err := buildDefinition(def)
		if err != nil {
			return nil, err
		}
		if t != nil {
			s.Types[t.Name] = t
		}
	}

	// Derive PossibleTypes on interfaces from the objects implementing them.
	for _, t := range s.Types {
		if t.Kind != TypeKindObject {
			continue
		}
		for _, ifaceName := range t.Interfaces {
			iface := s.Types[ifaceName]
			if iface == nil {
				return nil, fmt.Errorf("type %s implements unknown interface %s", t.Name, ifaceName)
			}
			iface.PossibleTypes = append(iface.PossibleTypes, t.Name)
		}
	}

	return s, nil
}

func buildDefinition(def *ast.Definition) (*Type, error) {
	switch def.Kind {
	case ast.Object, ast.Interface:
		kind := TypeKindObject
		if def.Kind == ast.Interface {
			kind = TypeKindInterface
		}
		t := &Type{Name: def.Name, Kind: kind, Description: def.Description}
		t.Interfaces = append(t.Interfaces, def.Interfaces...)
		for _, fd := range def.Fields {
			f := &Field{
				Name:        fd.Name,
				Description: fd.Description,
				Type:        buildTypeRef(fd.Type),
			}
			for _, ad := range fd.Arguments {
				f.Arguments = append(f.Arguments, &InputValue{
					Name:         ad.Name,
					Description:  ad.Description,
					Type:         buildTypeRef(ad.Type),
					DefaultValue: valueToGo(ad.DefaultValue),
				})
			}
			t.Fields = append(t.Fields, f)
		}
		return t, nil
	case ast.Enum:
		t := &Type{Name: def.Name, Kind: TypeKindEnum, Description: def.Description}
		for _, ev := range def.EnumValues {
			t.EnumValues = append(t.EnumValues, &EnumValue{Name: ev.Name, Description: ev.Description})
		}
		return t, nil
	case ast.Scalar:
		return &Type{Name: def.Name, Kind: TypeKindScalar, Description: def.Description}, nil
	default:
		return nil, fmt.Errorf("unsupported definition kind %s for %s", def.Kind, def.Name)
	}
}

func buildTypeRef(t *ast.Type) *TypeRef {
	if t == nil {
		return nil
	}
	var ref *TypeRef
	if t.NamedType != "" {
		ref = NamedType(t.NamedType)
	} else {
		ref = ListType(buildTypeRef(t.Elem))
	}
	if t.NonNull {
		ref = NonNullType(ref)
	}
	return ref
}

func valueToGo(v *ast.Value) any {
	if v == nil {
		return nil
	}
	switch v.Kind {
	case ast.IntValue:
		iv, _ := strconv.Atoi(v.Raw)
		return iv
	case ast.FloatValue:
		fv, _ := strconv.ParseFloat(v.Raw, 64)
		return fv
	case ast.StringValue, ast.BlockValue, ast.EnumValue:
		return v.Raw
	case ast.BooleanValue:
		return v.Raw == "true"
	default:
		return nil
	}
}

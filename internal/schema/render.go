package schema

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Render produces SDL from the Schema. Type names are emitted in
// lexicographic order so the output is deterministic.
func Render(s *Schema) string {
	if s == nil {
		return ""
	}
	var b strings.Builder

	names := make([]string, 0, len(s.Types))
	for name, t := range s.Types {
		if isBuiltinScalar(t) {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		t := s.Types[name]
		switch t.Kind {
		case TypeKindScalar:
			renderDescription(&b, t.Description, "")
			fmt.Fprintf(&b, "scalar %s\n\n", t.Name)
		case TypeKindEnum:
			renderDescription(&b, t.Description, "")
			fmt.Fprintf(&b, "enum %s {\n", t.Name)
			for _, v := range t.EnumValues {
				renderDescription(&b, v.Description, "  ")
				fmt.Fprintf(&b, "  %s\n", v.Name)
			}
			b.WriteString("}\n\n")
		case TypeKindObject:
			renderDescription(&b, t.Description, "")
			fmt.Fprintf(&b, "type %s", t.Name)
			renderImplements(&b, t.Interfaces)
			renderFields(&b, t.Fields)
		case TypeKindInterface:
			renderDescription(&b, t.Description, "")
			fmt.Fprintf(&b, "interface %s", t.Name)
			renderImplements(&b, t.Interfaces)
			renderFields(&b, t.Fields)
		}
	}

	dirNames := make([]string, 0, len(s.Directives))
	for name, d := range s.Directives {
		if d == includeDirective || d == skipDirective {
			continue
		}
		dirNames = append(dirNames, name)
	}
	sort.Strings(dirNames)
	for _, name := range dirNames {
		d := s.Directives[name]
		renderDescription(&b, d.Description, "")
		fmt.Fprintf(&b, "directive @%s", d.Name)
		renderArguments(&b, d.Arguments)
		fmt.Fprintf(&b, " on %s\n\n", strings.Join(d.Locations, " | "))
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}

func renderImplements(b *strings.Builder, interfaces []string) {
	if len(interfaces) > 0 {
		fmt.Fprintf(b, " implements %s", strings.Join(interfaces, " & "))
	}
}

func renderFields(b *strings.Builder, fields []*Field) {
	b.WriteString(" {\n")
	for _, f := range fields {
		renderDescription(b, f.Description, "  ")
		fmt.Fprintf(b, "  %s", f.Name)
		renderArguments(b, f.Arguments)
		fmt.Fprintf(b, ": %s\n", RenderTypeRef(f.Type))
	}
	b.WriteString("}\n\n")
}

func renderArguments(b *strings.Builder, args []*InputValue) {
	if len(args) == 0 {
		return
	}
	parts := make([]string, len(args))
	for i, a := range args {
		part := fmt.Sprintf("%s: %s", a.Name, RenderTypeRef(a.Type))
		if a.DefaultValue != nil {
			part += " = " + renderValue(a.DefaultValue)
		}
		parts[i] = part
	}
	fmt.Fprintf(b, "(%s)", strings.Join(parts, ", "))
}

// RenderTypeRef renders a type reference in SDL notation, e.g. "[Comment]!".
func RenderTypeRef(t *TypeRef) string {
	if t == nil {
		return ""
	}
	switch t.Kind {
	case TypeRefKindNonNull:
		return RenderTypeRef(t.OfType) + "!"
	case TypeRefKindList:
		return "[" + RenderTypeRef(t.OfType) + "]"
	default:
		return t.Named
	}
}

func renderValue(v any) string {
	switch val := v.(type) {
	case string:
		return strconv.Quote(val)
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	default:
		return fmt.Sprintf("%v", val)
	}
}

func renderDescription(b *strings.Builder, desc, indent string) {
	if desc == "" {
		return
	}
	fmt.Fprintf(b, "%s\"\"\"%s\"\"\"\n", indent, desc)
}

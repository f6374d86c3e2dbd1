package executor

import (
	"fmt"
	"math"
	"strconv"

	language "github.com/hnql/hnql/internal/language"
	schema "github.com/hnql/hnql/internal/schema"
)

// coerceVariableValues validates and coerces the request's variable values
// against the operation's variable definitions.
func coerceVariableValues(s *schema.Schema, operation *language.OperationDefinition, variableValues map[string]any) (map[string]any, error) {
	coerced := make(map[string]any)
	for _, varDef := range operation.VariableDefinitions {
		varName := varDef.Variable
		varType := typeRefFromAST(varDef.Type)
		if varType == nil {
			return nil, fmt.Errorf("unknown type for variable $%s", varName)
		}

		value, provided := variableValues[varName]
		if !provided {
			if varDef.DefaultValue != nil {
				dv, err := varDef.DefaultValue.Value(nil)
				if err != nil {
					return nil, fmt.Errorf("invalid default value for variable $%s: %w", varName, err)
				}
				coerced[varName] = dv
				continue
			}
			if schema.IsNonNull(varType) {
				return nil, fmt.Errorf("variable $%s of required type %s was not provided", varName, schema.RenderTypeRef(varType))
			}
			continue
		}

		cv, err := coerceInputValue(s, varType, value)
		if err != nil {
			return nil, fmt.Errorf("variable $%s got invalid value: %w", varName, err)
		}
		coerced[varName] = cv
	}
	return coerced, nil
}

// coerceArgumentValues coerces a field's literal and variable arguments
// against the field definition. Coercion failures are recorded as errors at
// the field's path and the argument is dropped.
func coerceArgumentValues(fieldDef *schema.Field, arguments language.ArgumentList, variableValues map[string]any, state *executionState, path Path) map[string]any {
	coerced := make(map[string]any)
	for _, argDef := range fieldDef.Arguments {
		astArg := arguments.ForName(argDef.Name)
		if astArg == nil {
			if argDef.DefaultValue != nil {
				coerced[argDef.Name] = argDef.DefaultValue
			} else if schema.IsNonNull(argDef.Type) {
				state.addError(fmt.Sprintf("Argument '%s' of required type %s was not provided", argDef.Name, schema.RenderTypeRef(argDef.Type)), path)
			}
			continue
		}

		raw, err := astArg.Value.Value(variableValues)
		if err != nil {
			state.addError(fmt.Sprintf("Argument '%s' got invalid value: %s", argDef.Name, err), path)
			continue
		}
		if raw == nil && astArg.Value.Kind == language.Variable {
			// Variable not provided; fall back to the argument default.
			if argDef.DefaultValue != nil {
				coerced[argDef.Name] = argDef.DefaultValue
			} else if schema.IsNonNull(argDef.Type) {
				state.addError(fmt.Sprintf("Argument '%s' of required type %s was not provided", argDef.Name, schema.RenderTypeRef(argDef.Type)), path)
			}
			continue
		}

		cv, err := coerceInputValue(state.schema, argDef.Type, raw)
		if err != nil {
			state.addError(fmt.Sprintf("Argument '%s' got invalid value: %s", argDef.Name, err), path)
			continue
		}
		coerced[argDef.Name] = cv
	}
	return coerced
}

// coerceInputValue coerces a runtime value against an input type.
func coerceInputValue(s *schema.Schema, t *schema.TypeRef, value any) (any, error) {
	if schema.IsNonNull(t) {
		if value == nil {
			return nil, fmt.Errorf("expected non-null value of type %s", schema.RenderTypeRef(t))
		}
		return coerceInputValue(s, schema.Unwrap(t), value)
	}
	if value == nil {
		return nil, nil
	}
	if schema.IsList(t) {
		inner := schema.Unwrap(t)
		items, ok := value.([]any)
		if !ok {
			// Single values coerce to a one-element list.
			cv, err := coerceInputValue(s, inner, value)
			if err != nil {
				return nil, err
			}
			return []any{cv}, nil
		}
		out := make([]any, len(items))
		for i, item := range items {
			cv, err := coerceInputValue(s, inner, item)
			if err != nil {
				return nil, fmt.Errorf("at index %d: %w", i, err)
			}
			out[i] = cv
		}
		return out, nil
	}

	named := schema.GetNamedType(t)
	switch named {
	case "Int":
		return coerceInt(value)
	case "Float":
		return coerceFloat(value)
	case "String":
		return coerceString(value)
	case "ID":
		return coerceID(value)
	case "Boolean":
		return coerceBoolean(value)
	}

	typeObj := s.Types[named]
	if typeObj != nil && typeObj.Kind == schema.TypeKindEnum {
		str, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("enum %s expects a string value, got %T", named, value)
		}
		for _, ev := range typeObj.EnumValues {
			if ev.Name == str {
				return str, nil
			}
		}
		return nil, fmt.Errorf("value %q does not exist in enum %s", str, named)
	}

	// Custom scalar: pass through.
	return value, nil
}

func coerceInt(value any) (any, error) {
	switch v := value.(type) {
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case float64:
		if v != math.Trunc(v) || v > math.MaxInt32 || v < math.MinInt32 {
			return nil, fmt.Errorf("cannot coerce %v to Int", v)
		}
		return int64(v), nil
	case string:
		return nil, fmt.Errorf("cannot coerce string %q to Int", v)
	}
	return nil, fmt.Errorf("cannot coerce %T to Int", value)
}

func coerceFloat(value any) (any, error) {
	switch v := value.(type) {
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case float64:
		return v, nil
	}
	return nil, fmt.Errorf("cannot coerce %T to Float", value)
}

func coerceString(value any) (any, error) {
	if s, ok := value.(string); ok {
		return s, nil
	}
	return nil, fmt.Errorf("cannot coerce %T to String", value)
}

// coerceID accepts strings and integers; integers serialize to their decimal
// string form.
func coerceID(value any) (any, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case float64:
		if v != math.Trunc(v) {
			return nil, fmt.Errorf("cannot coerce %v to ID", v)
		}
		return strconv.FormatInt(int64(v), 10), nil
	}
	return nil, fmt.Errorf("cannot coerce %T to ID", value)
}

func coerceBoolean(value any) (any, error) {
	if b, ok := value.(bool); ok {
		return b, nil
	}
	return nil, fmt.Errorf("cannot coerce %T to Boolean", value)
}

package schema

import (
	"sort"

	"github.com/m-mizutani/taskloop"
)

// RequiredFields returns the required property names of a tool in a stable
// order. Names listed in spec.Required win; parameters are never marked
// required implicitly.
func RequiredFields(spec *taskloop.ToolSpec) []string {
	required := make([]string, 0, len(spec.Required))
	required = append(required, spec.Required...)
	sort.Strings(required)
	return required
}

// ToolProperties converts the parameters of a tool into JSON Schema property
// definitions.
func ToolProperties(spec *taskloop.ToolSpec) map[string]any {
	props := make(map[string]any, len(spec.Parameters))
	for name, param := range spec.Parameters {
		props[name] = ParameterToJSONSchema(param)
	}
	return props
}

// ToolToJSONSchema converts a tool into an object schema describing its arguments.
func ToolToJSONSchema(spec *taskloop.ToolSpec) map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": ToolProperties(spec),
		"required":   RequiredFields(spec),
	}
}

// ParameterToJSONSchema converts taskloop.Parameter to a JSON Schema map.
// Provider specific adjustments are left to each client.
func ParameterToJSONSchema(param *taskloop.Parameter) map[string]any {
	schema := map[string]any{
		"type": string(param.Type),
	}

	if param.Description != "" {
		schema["description"] = param.Description
	}

	if param.Type == taskloop.TypeObject && param.Properties != nil {
		props := make(map[string]any, len(param.Properties))
		for name, prop := range param.Properties {
			props[name] = ParameterToJSONSchema(prop)
		}
		schema["properties"] = props
		if len(param.Required) > 0 {
			schema["required"] = param.Required
		}
	}

	if param.Type == taskloop.TypeArray && param.Items != nil {
		schema["items"] = ParameterToJSONSchema(param.Items)
	}

	if len(param.Enum) > 0 {
		schema["enum"] = param.Enum
	}

	return schema
}

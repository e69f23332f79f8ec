package taskloop

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
)

// ToolSpec is the schema of a tool that is exposed to the LLM.
type ToolSpec struct {
	// Name must be unique across the tool set.
	Name        string
	Description string
	Parameters  map[string]*Parameter
	Required    []string
}

// Validate validates the tool specification.
func (s *ToolSpec) Validate() error {
	eb := goerr.NewBuilder(goerr.V("tool", s.Name))
	if s.Name == "" {
		return eb.Wrap(ErrInvalidTool, "name is required")
	}

	for name, param := range s.Parameters {
		if err := param.Validate(); err != nil {
			return eb.Wrap(err, "invalid parameter", goerr.V("parameter", name))
		}
	}

	for _, req := range s.Required {
		if _, ok := s.Parameters[req]; !ok {
			return eb.Wrap(ErrInvalidTool, "required parameter is not defined", goerr.V("parameter", req))
		}
	}

	return nil
}

// ParameterType is the JSON schema type of a parameter.
type ParameterType string

const (
	TypeString  ParameterType = "string"
	TypeNumber  ParameterType = "number"
	TypeInteger ParameterType = "integer"
	TypeBoolean ParameterType = "boolean"
	TypeArray   ParameterType = "array"
	TypeObject  ParameterType = "object"
)

// Parameter is a parameter of a tool.
type Parameter struct {
	Type        ParameterType
	Description string

	// Enum is the list of allowed values for the parameter.
	Enum []string

	// Properties and Required describe an object parameter.
	Properties map[string]*Parameter
	Required   []string

	// Items describes the elements of an array parameter.
	Items *Parameter
}

// Validate validates the parameter.
func (p *Parameter) Validate() error {
	eb := goerr.NewBuilder(goerr.V("type", p.Type))

	switch p.Type {
	case TypeString, TypeNumber, TypeInteger, TypeBoolean:
	case TypeObject:
		if p.Properties == nil {
			return eb.Wrap(ErrInvalidParameter, "properties is required for object type")
		}
		for _, prop := range p.Properties {
			if err := prop.Validate(); err != nil {
				return eb.Wrap(err, "invalid property")
			}
		}
		for _, req := range p.Required {
			if _, ok := p.Properties[req]; !ok {
				return eb.Wrap(ErrInvalidParameter, "required field not found in properties", goerr.V("field", req))
			}
		}
	case TypeArray:
		if p.Items == nil {
			return eb.Wrap(ErrInvalidParameter, "items is required for array type")
		}
		if err := p.Items.Validate(); err != nil {
			return eb.Wrap(err, "invalid items")
		}
	case "":
		return eb.Wrap(ErrInvalidParameter, "type is required")
	default:
		return eb.Wrap(ErrInvalidParameter, "unsupported type")
	}

	return nil
}

// ToolSet is a set of tools.
// It's useful for providing a set of tools to the LLM.
type ToolSet interface {
	// Specs returns the specifications of the tools.
	Specs() []*ToolSpec

	// Run executes the tool identified by name. Even if the method returns an
	// error, the run continues: the error is passed to the LLM as the tool
	// result.
	Run(ctx context.Context, name string, args map[string]any) (map[string]any, error)
}

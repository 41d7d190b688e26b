package googleai

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/invopop/jsonschema"
	"github.com/suckgeun/mcp-sample/pkg/llms"
	"google.golang.org/genai"
)

// ConvertTools converts the function definitions to Gemini function declarations.
func ConvertTools(tools []llms.Tool) ([]*genai.Tool, error) {
	if len(tools) == 0 {
		return nil, nil
	}

	decls := make([]*genai.FunctionDeclaration, 0, len(tools))
	for i, tool := range tools {
		if tool.Type != "function" || tool.Function == nil {
			return nil, errors.Errorf("tool [%d]: unsupported type %q, want 'function'", i, tool.Type)
		}
		decl := &genai.FunctionDeclaration{
			Name:        tool.Function.Name,
			Description: tool.Function.Description,
		}
		if tool.Function.Parameters != nil {
			decl.Parameters = ConvertSchema(tool.Function.Parameters)
		}
		decls = append(decls, decl)
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}, nil
}

// ConvertSchema converts the JSON schema to a Gemini schema.
func ConvertSchema(js *jsonschema.Schema) *genai.Schema {
	if js == nil {
		return nil
	}
	s := &genai.Schema{
		Type:        convertType(js.Type),
		Description: js.Description,
		Required:    js.Required,
	}
	for _, e := range js.Enum {
		s.Enum = append(s.Enum, fmt.Sprint(e))
	}
	if js.Properties != nil {
		s.Properties = make(map[string]*genai.Schema, js.Properties.Len())
		for pair := js.Properties.Oldest(); pair != nil; pair = pair.Next() {
			s.Properties[pair.Key] = ConvertSchema(pair.Value)
			s.PropertyOrdering = append(s.PropertyOrdering, pair.Key)
		}
	}
	if js.Items != nil {
		s.Items = ConvertSchema(js.Items)
	}
	return s
}

func convertType(dt string) genai.Type {
	switch dt {
	case "object":
		return genai.TypeObject
	case "string":
		return genai.TypeString
	case "number":
		return genai.TypeNumber
	case "integer":
		return genai.TypeInteger
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	default:
		return genai.TypeUnspecified
	}
}

package tools

import (
	"context"
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/invopop/jsonschema"
	"github.com/suckgeun/mcp-sample/chatmodel"
	"github.com/suckgeun/mcp-sample/pkg/llms"
	"github.com/suckgeun/mcp-sample/pkg/llmutils"
)

//go:generate mockgen -source=tools.go -destination=../mocks/mocktools/tools_mock.gen.go -package mocktools

// ITool is a tool for the llm host to interact with different applications.
type ITool interface {
	// Name returns the name of the Tool.
	Name() string
	// Description returns the description of the tool, to be used in the prompt.
	// Should not exceed LLM model limit.
	Description() string
	// Parameters returns the JSON schema of the tool input, to be used in the prompt.
	Parameters() *jsonschema.Schema

	// Call executes the tool with the given input and returns the result.
	// If the tool fails to parse the input, it should return ErrFailedUnmarshalInput error.
	Call(context.Context, string) (string, error)
}

// Tool is an ITool with a typed Run method.
type Tool[I any, O any] interface {
	ITool
	Run(context.Context, *I) (*O, error)
}

// ToLLMTool returns the function definition of the tool.
func ToLLMTool(t ITool) llms.Tool {
	return llms.Tool{
		Type: "function",
		Function: &llms.FunctionDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		},
	}
}

// DecodeInput parses the tool arguments into v.
// The model may wrap JSON in text or backticks, so the JSON is cleaned first.
func DecodeInput[I any](input string, v *I) error {
	if err := json.Unmarshal(llmutils.CleanJSON([]byte(input)), v); err != nil {
		return errors.WithStack(chatmodel.ErrFailedUnmarshalInput)
	}
	return nil
}

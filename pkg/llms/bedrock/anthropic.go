package bedrock

import (
	"encoding/json"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/suckgeun/mcp-sample/pkg/llms"
)

// Ref: https://docs.aws.amazon.com/bedrock/latest/userguide/model-parameters-anthropic-claude-messages.html

const (
	// AnthropicVersion is the Messages API version on Bedrock
	AnthropicVersion = "bedrock-2023-05-31"
	// DefaultMaxTokens is required by the API
	DefaultMaxTokens = 4096

	roleUser      = "user"
	roleAssistant = "assistant"

	typeText       = "text"
	typeToolUse    = "tool_use"
	typeToolResult = "tool_result"
)

type inputContent struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   string          `json:"content,omitempty"`
}

type inputMessage struct {
	Role    string         `json:"role"`
	Content []inputContent `json:"content"`
}

type tool struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	InputSchema inputSchema `json:"input_schema"`
}

type inputSchema struct {
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties,omitempty"`
	Required   []string       `json:"required,omitempty"`
}

type anthropicInput struct {
	AnthropicVersion string          `json:"anthropic_version"`
	MaxTokens        int             `json:"max_tokens"`
	System           string          `json:"system,omitempty"`
	Messages         []*inputMessage `json:"messages"`
	Temperature      float64         `json:"temperature,omitempty"`
	Tools            []tool          `json:"tools,omitempty"`
}

type outputContent struct {
	Type  string          `json:"type"`
	Text  string          `json:"text,omitempty"`
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`
}

type anthropicOutput struct {
	ID         string          `json:"id"`
	Content    []outputContent `json:"content"`
	StopReason string          `json:"stop_reason"`
	Usage      struct {
		InputTokens  int64 `json:"input_tokens"`
		OutputTokens int64 `json:"output_tokens"`
	} `json:"usage"`
}

func (o *anthropicOutput) toContentResponse() (*llms.ContentResponse, error) {
	if len(o.Content) == 0 {
		return nil, errors.New("bedrock: no content in response")
	}
	choice := &llms.ContentChoice{
		StopReason: o.StopReason,
		GenerationInfo: map[string]any{
			"InputTokens":  o.Usage.InputTokens,
			"OutputTokens": o.Usage.OutputTokens,
			"TotalTokens":  o.Usage.InputTokens + o.Usage.OutputTokens,
			"ID":           o.ID,
		},
	}
	var text []string
	for _, c := range o.Content {
		switch c.Type {
		case typeText:
			text = append(text, c.Text)
		case typeToolUse:
			args := string(c.Input)
			if args == "" {
				args = "{}"
			}
			choice.ToolCalls = append(choice.ToolCalls, llms.ToolCall{
				ID:   c.ID,
				Type: "function",
				FunctionCall: &llms.FunctionCall{
					Name:      c.Name,
					Arguments: args,
				},
			})
		}
	}
	choice.Content = strings.Join(text, "\n")
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{choice}}, nil
}

func toTools(list []llms.Tool) []tool {
	var tools []tool
	for _, t := range list {
		if t.Function == nil {
			continue
		}
		schema := inputSchema{Type: "object"}
		if p := t.Function.Parameters; p != nil {
			if p.Properties != nil {
				schema.Properties = make(map[string]any)
				for pair := p.Properties.Oldest(); pair != nil; pair = pair.Next() {
					schema.Properties[pair.Key] = pair.Value
				}
			}
			schema.Required = p.Required
		}
		tools = append(tools, tool{
			Name:        t.Function.Name,
			Description: t.Function.Description,
			InputSchema: schema,
		})
	}
	return tools
}

// processMessages returns the messages and the system prompt.
// Consecutive messages of the same role are merged, as the API requires alternating roles.
func processMessages(messages []llms.Message) ([]*inputMessage, string, error) {
	var (
		out    []*inputMessage
		system []string
	)
	add := func(role string, c inputContent) {
		if n := len(out); n > 0 && out[n-1].Role == role {
			out[n-1].Content = append(out[n-1].Content, c)
			return
		}
		out = append(out, &inputMessage{Role: role, Content: []inputContent{c}})
	}

	for _, msg := range messages {
		for _, part := range msg.Parts {
			switch p := part.(type) {
			case llms.TextContent:
				switch msg.Role {
				case llms.RoleSystem:
					system = append(system, p.Text)
				case llms.RoleAI:
					if p.Text != "" {
						add(roleAssistant, inputContent{Type: typeText, Text: p.Text})
					}
				case llms.RoleHuman:
					add(roleUser, inputContent{Type: typeText, Text: p.Text})
				default:
					return nil, "", errors.Wrapf(llms.ErrUnexpectedRole, "bedrock: text of role %v", msg.Role)
				}
			case llms.ToolCall:
				args := json.RawMessage(p.Arguments())
				if len(args) == 0 {
					args = json.RawMessage("{}")
				}
				if !json.Valid(args) {
					return nil, "", errors.Errorf("bedrock: invalid arguments of tool call %s", p.ID)
				}
				add(roleAssistant, inputContent{Type: typeToolUse, ID: p.ID, Name: p.Name(), Input: args})
			case llms.ToolCallResponse:
				add(roleUser, inputContent{Type: typeToolResult, ToolUseID: p.ToolCallID, Content: p.Content})
			default:
				return nil, "", errors.Errorf("bedrock: unsupported part type: %T", part)
			}
		}
	}
	return out, strings.Join(system, "\n"), nil
}

package openai

import (
	"context"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/x/values"
	"github.com/openai/openai-go/v3/responses"
	"github.com/suckgeun/mcp-sample/pkg/llms"
	"github.com/suckgeun/mcp-sample/pkg/llms/openai/internal/openaiclient"
)

const (
	RoleSystem    = "system"
	RoleAssistant = "assistant"
	RoleUser      = "user"
)

var (
	// ErrEmptyResponse is returned when the model returned neither text nor tool calls.
	ErrEmptyResponse = openaiclient.ErrEmptyResponse
	// ErrMissingToken is returned when no API token is configured.
	ErrMissingToken = errors.New("missing the OpenAI API key, set it in the OPENAI_API_KEY environment variable")
)

// LLM is a llms.Model over the OpenAI Responses API.
type LLM struct {
	client    *openaiclient.Client
	maxTokens int
}

var _ llms.Model = (*LLM)(nil)

// New returns a new OpenAI LLM.
func New(opts ...Option) (*LLM, error) {
	o := &options{
		provider: ProviderOpenAI,
	}
	for _, opt := range opts {
		opt(o)
	}

	o.token = values.StringsCoalesce(o.token, os.Getenv(tokenEnvVarName))
	o.model = values.StringsCoalesce(o.model, os.Getenv(modelEnvVarName))
	o.baseURL = values.StringsCoalesce(o.baseURL, os.Getenv(baseURLEnvVarName))
	o.organization = values.StringsCoalesce(o.organization, os.Getenv(organizationEnvVarName))

	if o.token == "" {
		return nil, ErrMissingToken
	}
	if openaiclient.IsAzure(o.provider) && o.model == "" {
		return nil, errors.New("model is required for Azure provider")
	}

	c := openaiclient.New(o.provider, o.model, o.token, o.baseURL, o.organization, o.apiVersion, o.httpClient)
	return &LLM{
		client:    c,
		maxTokens: o.maxTokens,
	}, nil
}

// GetProviderType implements the Model interface.
func (o *LLM) GetProviderType() llms.ProviderType {
	return llms.ProviderType(o.client.Provider)
}

// Model returns the default model name.
func (o *LLM) Model() string {
	return values.StringsCoalesce(o.client.Model, openaiclient.DefaultChatModel)
}

// GenerateContent implements the Model interface.
func (o *LLM) GenerateContent(ctx context.Context, messages []llms.Message, options ...llms.CallOption) (*llms.ContentResponse, error) {
	opts := llms.CallOptions{
		MaxTokens: o.maxTokens,
	}
	for _, opt := range options {
		opt(&opts)
	}

	input, err := toInputItems(messages)
	if err != nil {
		return nil, err
	}

	req := &openaiclient.ResponseRequest{
		Model:           opts.Model,
		Input:           input,
		MaxOutputTokens: opts.MaxTokens,
		Metadata:        opts.Metadata,
		ToolChoice:      toToolChoice(opts.ToolChoice),
	}
	if opts.Temperature > 0 {
		req.Temperature = &opts.Temperature
	}
	for _, tool := range opts.Tools {
		t, err := toolFromTool(tool)
		if err != nil {
			return nil, errors.Wrap(err, "failed to convert llms tool to openai tool")
		}
		req.Tools = append(req.Tools, t)
	}

	result, err := o.client.CreateResponse(ctx, req)
	if err != nil {
		return nil, err
	}
	return toContentResponse(result)
}

// toInputItems converts the conversation to Responses API input items,
// preserving order: each tool call and tool result becomes its own item.
func toInputItems(messages []llms.Message) ([]openaiclient.InputItem, error) {
	items := make([]openaiclient.InputItem, 0, len(messages))
	for _, mc := range messages {
		switch mc.Role {
		case llms.RoleSystem, llms.RoleHuman:
			role := RoleUser
			if mc.Role == llms.RoleSystem {
				role = RoleSystem
			}
			items = append(items, openaiclient.InputItem{
				Type:    openaiclient.ItemTypeMessage,
				Role:    role,
				Content: textOf(mc),
			})
		case llms.RoleAI:
			if text := textOf(mc); text != "" {
				items = append(items, openaiclient.InputItem{
					Type:    openaiclient.ItemTypeMessage,
					Role:    RoleAssistant,
					Content: text,
				})
			}
			for _, tc := range mc.ToolCalls() {
				items = append(items, openaiclient.InputItem{
					Type:      openaiclient.ItemTypeFunctionCall,
					CallID:    tc.ID,
					Name:      tc.Name(),
					Arguments: tc.Arguments(),
				})
			}
		case llms.RoleTool:
			if len(mc.Parts) != 1 {
				return nil, errors.Errorf("expected exactly one part for role %v, got %v", mc.Role, len(mc.Parts))
			}
			p, ok := mc.Parts[0].(llms.ToolCallResponse)
			if !ok {
				return nil, errors.Errorf("expected part of type ToolCallResponse for role %v, got %T", mc.Role, mc.Parts[0])
			}
			output := p.Content
			items = append(items, openaiclient.InputItem{
				Type:   openaiclient.ItemTypeFunctionCallOutput,
				CallID: p.ToolCallID,
				Output: &output,
			})
		default:
			return nil, errors.Wrapf(llms.ErrUnexpectedRole, "role %v not supported", mc.Role)
		}
	}
	return items, nil
}

func textOf(mc llms.Message) string {
	var parts []string
	for _, p := range mc.Parts {
		if tp, ok := p.(llms.TextContent); ok {
			parts = append(parts, tp.Text)
		}
	}
	return strings.Join(parts, "\n")
}

func toContentResponse(result *responses.Response) (*llms.ContentResponse, error) {
	choice := &llms.ContentChoice{
		StopReason: string(result.Status),
		GenerationInfo: map[string]any{
			"InputTokens":  result.Usage.InputTokens,
			"OutputTokens": result.Usage.OutputTokens,
			"TotalTokens":  result.Usage.TotalTokens,
		},
	}
	if reason := string(result.IncompleteDetails.Reason); reason != "" {
		choice.StopReason = reason
	}

	var text strings.Builder
	for _, item := range result.Output {
		switch item.Type {
		case "message":
			for _, c := range item.AsMessage().Content {
				if c.Type == "output_text" {
					text.WriteString(c.Text)
				}
			}
		case "function_call":
			fc := item.AsFunctionCall()
			choice.ToolCalls = append(choice.ToolCalls, llms.ToolCall{
				ID:   fc.CallID,
				Type: "function",
				FunctionCall: &llms.FunctionCall{
					Name:      fc.Name,
					Arguments: fc.Arguments,
				},
			})
		}
	}
	choice.Content = text.String()

	if choice.Content == "" && len(choice.ToolCalls) == 0 {
		return nil, ErrEmptyResponse
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{choice}}, nil
}

// toolFromTool converts an llms.Tool to a FunctionTool.
func toolFromTool(t llms.Tool) (openaiclient.FunctionTool, error) {
	if t.Type != "function" || t.Function == nil {
		return openaiclient.FunctionTool{}, errors.Errorf("tool type %v not supported", t.Type)
	}
	tool := openaiclient.FunctionTool{
		Type:        "function",
		Name:        t.Function.Name,
		Description: t.Function.Description,
		Strict:      t.Function.Strict,
	}
	if t.Function.Parameters != nil {
		tool.Parameters = t.Function.Parameters
	}
	return tool, nil
}

func toToolChoice(choice any) any {
	switch c := choice.(type) {
	case llms.ToolChoice:
		if c.Function != nil {
			return map[string]string{"type": "function", "name": c.Function.Name}
		}
		return c.Type
	case *llms.ToolChoice:
		if c == nil {
			return nil
		}
		return toToolChoice(*c)
	default:
		return choice
	}
}

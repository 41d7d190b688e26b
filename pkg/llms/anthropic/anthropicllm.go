// Package anthropic implements llms.Model over the Anthropic Messages API.
package anthropic

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/x/values"
	"github.com/suckgeun/mcp-sample/pkg/llms"
)

var (
	ErrMissingToken           = errors.New("anthropic: missing API key, set it in the ANTHROPIC_API_KEY environment variable")
	ErrUnsupportedMessageType = errors.New("anthropic: unsupported message type")
	ErrInvalidContentType     = errors.New("anthropic: invalid content type")
)

// DefaultMaxTokens is required by the API
const DefaultMaxTokens = 4096

// LLM is the Anthropic model
type LLM struct {
	client  *anthropic.Client
	options *Options
}

var _ llms.Model = (*LLM)(nil)

// New returns the model.
// The token is read from ANTHROPIC_API_KEY if not provided.
func New(opts ...Option) (*LLM, error) {
	options := &Options{
		Token: os.Getenv(TokenEnvVarName),
	}
	for _, opt := range opts {
		opt(options)
	}

	if options.Token == "" {
		return nil, ErrMissingToken
	}
	if options.Model == "" {
		return nil, errors.New("anthropic: model is required")
	}

	sdkOpts := []option.RequestOption{
		option.WithAPIKey(options.Token),
		option.WithMaxRetries(2),
		option.WithRequestTimeout(5 * time.Minute),
	}
	if options.BaseURL != "" {
		sdkOpts = append(sdkOpts, option.WithBaseURL(options.BaseURL))
	}
	if options.HTTPClient != nil {
		sdkOpts = append(sdkOpts, option.WithHTTPClient(options.HTTPClient))
	}

	client := anthropic.NewClient(sdkOpts...)
	return &LLM{
		client:  &client,
		options: options,
	}, nil
}

// GetProviderType implements the Model interface.
func (o *LLM) GetProviderType() llms.ProviderType {
	return llms.ProviderAnthropic
}

// GenerateContent implements the Model interface.
// Text and tool calls of the response are returned in a single choice.
func (o *LLM) GenerateContent(ctx context.Context, messages []llms.Message, options ...llms.CallOption) (*llms.ContentResponse, error) {
	opts := llms.CallOptions{
		Model:     o.options.Model,
		MaxTokens: o.options.MaxTokens,
	}
	for _, opt := range options {
		opt(&opts)
	}

	sdkMessages, systemPrompt, err := ProcessMessages(messages)
	if err != nil {
		return nil, errors.WithMessage(err, "anthropic: failed to process messages")
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(opts.Model),
		Messages:  sdkMessages,
		MaxTokens: values.NumbersCoalesce(int64(opts.MaxTokens), DefaultMaxTokens),
	}
	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{
			{
				Type: "text",
				Text: systemPrompt,
			},
		}
	}
	if opts.Temperature > 0 {
		params.Temperature = anthropic.Float(opts.Temperature)
	}
	if tools := ToTools(opts.Tools); len(tools) > 0 {
		params.Tools = tools
	}

	result, err := o.client.Messages.New(ctx, params)
	if err != nil {
		return nil, errors.Wrap(err, "anthropic: failed to create message")
	}
	return toContentResponse(result)
}

func toContentResponse(result *anthropic.Message) (*llms.ContentResponse, error) {
	choice := &llms.ContentChoice{
		StopReason: string(result.StopReason),
		GenerationInfo: map[string]any{
			"InputTokens":  result.Usage.InputTokens,
			"OutputTokens": result.Usage.OutputTokens,
			"TotalTokens":  result.Usage.InputTokens + result.Usage.OutputTokens,
			"ID":           result.ID,
		},
	}

	var text []string
	for _, block := range result.Content {
		switch content := block.AsAny().(type) {
		case anthropic.TextBlock:
			text = append(text, content.Text)
		case anthropic.ToolUseBlock:
			args, err := json.Marshal(content.Input)
			if err != nil {
				return nil, errors.Wrap(err, "anthropic: failed to marshal tool use arguments")
			}
			choice.ToolCalls = append(choice.ToolCalls, llms.ToolCall{
				ID:   content.ID,
				Type: "function",
				FunctionCall: &llms.FunctionCall{
					Name:      content.Name,
					Arguments: string(args),
				},
			})
		}
	}
	choice.Content = strings.Join(text, "\n")

	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{choice},
	}, nil
}

// ToTools converts the function definitions to Anthropic tools.
func ToTools(tools []llms.Tool) []anthropic.ToolUnionParam {
	if len(tools) == 0 {
		return nil
	}

	sdkTools := make([]anthropic.ToolUnionParam, 0, len(tools))
	for _, tool := range tools {
		if tool.Function == nil {
			continue
		}
		inputSchema := anthropic.ToolInputSchemaParam{
			Type: "object",
		}
		if params := tool.Function.Parameters; params != nil {
			if params.Properties != nil {
				properties := make(map[string]any)
				for pair := params.Properties.Oldest(); pair != nil; pair = pair.Next() {
					properties[pair.Key] = pair.Value
				}
				inputSchema.Properties = properties
			}
			inputSchema.Required = params.Required
		}

		sdkTools = append(sdkTools, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        tool.Function.Name,
				Description: anthropic.String(tool.Function.Description),
				InputSchema: inputSchema,
			},
		})
	}
	return sdkTools
}

// ProcessMessages converts the conversation to Anthropic messages.
// System messages are joined into the returned system prompt.
// Consecutive tool results are sent in one user message, as the API requires.
func ProcessMessages(messages []llms.Message) ([]anthropic.MessageParam, string, error) {
	chatMessages := make([]anthropic.MessageParam, 0, len(messages))
	var (
		system  []string
		results []anthropic.ContentBlockParamUnion
	)
	flushResults := func() {
		if len(results) > 0 {
			chatMessages = append(chatMessages, anthropic.NewUserMessage(results...))
			results = nil
		}
	}

	for _, msg := range messages {
		if len(msg.Parts) == 0 {
			continue
		}
		if msg.Role != llms.RoleTool {
			flushResults()
		}

		switch msg.Role {
		case llms.RoleSystem:
			system = append(system, textOf(msg))
		case llms.RoleHuman:
			text := textOf(msg)
			if text == "" {
				return nil, "", errors.WithMessagef(ErrInvalidContentType, "anthropic: empty human message")
			}
			chatMessages = append(chatMessages, anthropic.NewUserMessage(anthropic.NewTextBlock(text)))
		case llms.RoleAI:
			m, err := aiMessage(msg)
			if err != nil {
				return nil, "", err
			}
			chatMessages = append(chatMessages, m)
		case llms.RoleTool:
			for _, part := range msg.Parts {
				tr, ok := part.(llms.ToolCallResponse)
				if !ok {
					return nil, "", errors.WithMessagef(ErrInvalidContentType, "anthropic: tool message part type: %T", part)
				}
				results = append(results, anthropic.NewToolResultBlock(tr.ToolCallID, tr.Content, false))
			}
		default:
			return nil, "", errors.WithMessagef(ErrUnsupportedMessageType, "anthropic: %v", msg.Role)
		}
	}
	flushResults()

	return chatMessages, strings.Join(system, "\n"), nil
}

func aiMessage(msg llms.Message) (anthropic.MessageParam, error) {
	var contents []anthropic.ContentBlockParamUnion
	for _, part := range msg.Parts {
		switch p := part.(type) {
		case llms.TextContent:
			if p.Text != "" {
				contents = append(contents, anthropic.NewTextBlock(p.Text))
			}
		case llms.ToolCall:
			args := json.RawMessage(values.StringsCoalesce(p.Arguments(), "{}"))
			if !json.Valid(args) {
				return anthropic.MessageParam{}, errors.Errorf("anthropic: invalid arguments of tool call %s", p.ID)
			}
			contents = append(contents, anthropic.NewToolUseBlock(p.ID, args, p.Name()))
		default:
			return anthropic.MessageParam{}, errors.Errorf("anthropic: unsupported AI message part type: %T", part)
		}
	}
	if len(contents) == 0 {
		return anthropic.MessageParam{}, errors.New("anthropic: no valid content in AI message")
	}
	return anthropic.NewAssistantMessage(contents...), nil
}

func textOf(msg llms.Message) string {
	var parts []string
	for _, p := range msg.Parts {
		if tp, ok := p.(llms.TextContent); ok {
			parts = append(parts, tp.Text)
		}
	}
	return strings.Join(parts, "\n")
}

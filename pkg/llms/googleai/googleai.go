// Package googleai implements llms.Model over the Gemini API.
package googleai

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/suckgeun/mcp-sample/pkg/llms"
	"google.golang.org/genai"
)

var (
	ErrMissingToken        = errors.New("googleai: missing API key, set it in the GEMINI_API_KEY environment variable")
	ErrNoContentInResponse = errors.New("googleai: no content in generation response")
)

// GoogleAI is the Gemini model
type GoogleAI struct {
	client *genai.Client
	opts   Options
}

var _ llms.Model = (*GoogleAI)(nil)

// New returns the Gemini model.
func New(ctx context.Context, opts ...Option) (*GoogleAI, error) {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	o.EnsureAuthPresent()
	if o.APIKey == "" {
		return nil, ErrMissingToken
	}

	cfg := &genai.ClientConfig{
		APIKey:     o.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: o.HTTPClient,
	}
	if o.BaseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: o.BaseURL}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "googleai: failed to create client")
	}
	return &GoogleAI{
		client: client,
		opts:   o,
	}, nil
}

// GetProviderType implements the Model interface.
func (g *GoogleAI) GetProviderType() llms.ProviderType {
	return llms.ProviderGoogleAI
}

// GenerateContent implements the Model interface.
func (g *GoogleAI) GenerateContent(ctx context.Context, messages []llms.Message, options ...llms.CallOption) (*llms.ContentResponse, error) {
	opts := llms.CallOptions{
		Model:       g.opts.DefaultModel,
		MaxTokens:   g.opts.MaxTokens,
		Temperature: g.opts.Temperature,
	}
	for _, opt := range options {
		opt(&opts)
	}

	config := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(opts.MaxTokens),
	}
	if opts.Temperature > 0 {
		t := float32(opts.Temperature)
		config.Temperature = &t
	}

	var err error
	if config.Tools, err = ConvertTools(opts.Tools); err != nil {
		return nil, err
	}

	history, system, err := ConvertMessages(messages)
	if err != nil {
		return nil, err
	}
	config.SystemInstruction = system

	resp, err := g.client.Models.GenerateContent(ctx, opts.Model, history, config)
	if err != nil {
		return nil, errors.Wrap(err, "googleai: failed to generate content")
	}
	if len(resp.Candidates) == 0 {
		return nil, ErrNoContentInResponse
	}
	return convertCandidate(resp.Candidates[0], resp.UsageMetadata)
}

// convertCandidate returns the text and the function calls of the candidate in one choice.
func convertCandidate(candidate *genai.Candidate, usage *genai.GenerateContentResponseUsageMetadata) (*llms.ContentResponse, error) {
	choice := &llms.ContentChoice{
		StopReason:     string(candidate.FinishReason),
		GenerationInfo: map[string]any{},
	}

	var text strings.Builder
	if candidate.Content != nil {
		for _, part := range candidate.Content.Parts {
			switch {
			case part.FunctionCall != nil:
				args, err := json.Marshal(part.FunctionCall.Args)
				if err != nil {
					return nil, errors.Wrap(err, "googleai: failed to marshal function call arguments")
				}
				choice.ToolCalls = append(choice.ToolCalls, llms.ToolCall{
					ID:   part.FunctionCall.ID,
					Type: "function",
					FunctionCall: &llms.FunctionCall{
						Name:      part.FunctionCall.Name,
						Arguments: string(args),
					},
				})
			case part.Text != "" && !part.Thought:
				text.WriteString(part.Text)
			}
		}
	}
	choice.Content = text.String()

	if usage != nil {
		choice.GenerationInfo["InputTokens"] = int64(usage.PromptTokenCount)
		choice.GenerationInfo["OutputTokens"] = int64(usage.CandidatesTokenCount + usage.ToolUsePromptTokenCount + usage.ThoughtsTokenCount)
		choice.GenerationInfo["TotalTokens"] = int64(usage.TotalTokenCount)
	}

	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{choice},
	}, nil
}

// ConvertMessages returns the conversation contents and the system instruction.
// Consecutive tool results are sent in one content.
func ConvertMessages(messages []llms.Message) ([]*genai.Content, *genai.Content, error) {
	var (
		history []*genai.Content
		system  *genai.Content
	)
	for _, msg := range messages {
		if len(msg.Parts) == 0 {
			continue
		}
		parts, err := convertParts(msg.Parts)
		if err != nil {
			return nil, nil, err
		}

		switch msg.Role {
		case llms.RoleSystem:
			if system == nil {
				system = &genai.Content{}
			}
			system.Parts = append(system.Parts, parts...)
		case llms.RoleHuman:
			history = append(history, &genai.Content{Role: genai.RoleUser, Parts: parts})
		case llms.RoleAI:
			history = append(history, &genai.Content{Role: genai.RoleModel, Parts: parts})
		case llms.RoleTool:
			if n := len(history); n > 0 && isFunctionResponse(history[n-1]) {
				history[n-1].Parts = append(history[n-1].Parts, parts...)
				continue
			}
			history = append(history, &genai.Content{Role: genai.RoleUser, Parts: parts})
		default:
			return nil, nil, errors.Wrapf(llms.ErrUnexpectedRole, "googleai: role %v not supported", msg.Role)
		}
	}
	return history, system, nil
}

func isFunctionResponse(c *genai.Content) bool {
	return c.Role == genai.RoleUser && len(c.Parts) > 0 && c.Parts[0].FunctionResponse != nil
}

func convertParts(parts []llms.ContentPart) ([]*genai.Part, error) {
	out := make([]*genai.Part, 0, len(parts))
	for _, part := range parts {
		switch p := part.(type) {
		case llms.TextContent:
			out = append(out, &genai.Part{Text: p.Text})
		case llms.ToolCall:
			var args map[string]any
			if a := p.Arguments(); a != "" {
				if err := json.Unmarshal([]byte(a), &args); err != nil {
					return nil, errors.Wrapf(err, "googleai: invalid arguments of tool call %s", p.ID)
				}
			}
			out = append(out, &genai.Part{
				FunctionCall: &genai.FunctionCall{
					ID:   p.ID,
					Name: p.Name(),
					Args: args,
				},
			})
		case llms.ToolCallResponse:
			out = append(out, &genai.Part{
				FunctionResponse: &genai.FunctionResponse{
					ID:   p.ToolCallID,
					Name: p.Name,
					Response: map[string]any{
						"output": p.Content,
					},
				},
			})
		default:
			return nil, errors.Errorf("googleai: unsupported part type: %T", part)
		}
	}
	return out, nil
}

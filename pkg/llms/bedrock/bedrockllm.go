// Package bedrock implements llms.Model for Anthropic models on AWS Bedrock.
package bedrock

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/x/values"
	"github.com/suckgeun/mcp-sample/pkg/llms"
)

// DefaultModel is the inference profile used when no model is configured
const DefaultModel = "us.anthropic.claude-sonnet-4-5-20250929-v1:0"

// ErrUnsupportedModel is returned for non Anthropic models
var ErrUnsupportedModel = errors.New("bedrock: only anthropic models are supported")

// InvokeAPI is the part of the Bedrock runtime client used by the model.
type InvokeAPI interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

type options struct {
	modelID   string
	region    string
	accessKey string
	secretKey string
	maxTokens int
	client    InvokeAPI
}

// Option configures the model
type Option func(*options)

// WithModel sets the model ID or inference profile.
func WithModel(modelID string) Option {
	return func(o *options) {
		o.modelID = modelID
	}
}

// WithRegion sets the AWS region.
func WithRegion(region string) Option {
	return func(o *options) {
		o.region = region
	}
}

// WithStaticCredentials sets the access keys, instead of the default credential chain.
func WithStaticCredentials(accessKey, secretKey string) Option {
	return func(o *options) {
		o.accessKey = accessKey
		o.secretKey = secretKey
	}
}

// WithMaxTokens sets the limit of the generated tokens.
func WithMaxTokens(n int) Option {
	return func(o *options) {
		o.maxTokens = n
	}
}

// WithClient sets the Bedrock runtime client.
func WithClient(client InvokeAPI) Option {
	return func(o *options) {
		o.client = client
	}
}

// LLM is the Bedrock model
type LLM struct {
	modelID   string
	maxTokens int
	client    InvokeAPI
}

var _ llms.Model = (*LLM)(nil)

// New returns the model.
// The AWS configuration is loaded from the environment, unless the client is provided.
func New(ctx context.Context, opts ...Option) (*LLM, error) {
	o := &options{
		modelID: DefaultModel,
	}
	for _, opt := range opts {
		opt(o)
	}

	if o.client == nil {
		var loadOpts []func(*config.LoadOptions) error
		if o.region != "" {
			loadOpts = append(loadOpts, config.WithRegion(o.region))
		}
		if o.accessKey != "" {
			loadOpts = append(loadOpts, config.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(o.accessKey, o.secretKey, "")))
		}
		cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
		if err != nil {
			return nil, errors.Wrap(err, "bedrock: failed to load AWS config")
		}
		o.client = bedrockruntime.NewFromConfig(cfg)
	}

	return &LLM{
		modelID:   o.modelID,
		maxTokens: o.maxTokens,
		client:    o.client,
	}, nil
}

// GetProviderType implements the Model interface.
func (l *LLM) GetProviderType() llms.ProviderType {
	return llms.ProviderBedrock
}

// GenerateContent implements the Model interface.
func (l *LLM) GenerateContent(ctx context.Context, messages []llms.Message, options ...llms.CallOption) (*llms.ContentResponse, error) {
	opts := llms.CallOptions{
		Model:     l.modelID,
		MaxTokens: l.maxTokens,
	}
	for _, opt := range options {
		opt(&opts)
	}
	if getProvider(opts.Model) != "anthropic" {
		return nil, errors.WithMessagef(ErrUnsupportedModel, "model %s", opts.Model)
	}

	msgs, system, err := processMessages(messages)
	if err != nil {
		return nil, err
	}

	input := anthropicInput{
		AnthropicVersion: AnthropicVersion,
		MaxTokens:        values.NumbersCoalesce(opts.MaxTokens, DefaultMaxTokens),
		System:           system,
		Messages:         msgs,
		Temperature:      opts.Temperature,
		Tools:            toTools(opts.Tools),
	}
	body, err := json.Marshal(input)
	if err != nil {
		return nil, errors.Wrap(err, "bedrock: failed to marshal request")
	}

	resp, err := l.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(opts.Model),
		Accept:      aws.String("application/json"),
		ContentType: aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return nil, errors.Wrap(err, "bedrock: failed to invoke model")
	}

	var output anthropicOutput
	if err = json.Unmarshal(resp.Body, &output); err != nil {
		return nil, errors.Wrap(err, "bedrock: failed to decode response")
	}
	return output.toContentResponse()
}

// getProvider returns the provider of the model ID,
// for inference profiles like us.anthropic.claude the region prefix is skipped.
func getProvider(modelID string) string {
	parts := strings.Split(modelID, ".")
	if len(parts) >= 3 && len(parts[0]) == 2 {
		return parts[1]
	}
	return parts[0]
}

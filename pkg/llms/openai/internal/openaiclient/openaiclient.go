package openaiclient

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/openai/openai-go/v3/responses"
)

const (
	DefaultBaseURL    = "https://api.openai.com/v1"
	DefaultChatModel  = "gpt-4.1"
	DefaultMaxTokens  = 16384
	DefaultAPIVersion = "2025-03-01-preview"
)

// ErrEmptyResponse is returned when the OpenAI API returns an empty response.
var ErrEmptyResponse = errors.New("empty response")

type ProviderType string

const (
	ProviderOpenAI     ProviderType = "OPENAI"
	ProviderAzure      ProviderType = "AZURE"
	ProviderAzureAD    ProviderType = "AZURE_AD"
	ProviderPerplexity ProviderType = "PERPLEXITY"
)

// Client is a client for the OpenAI Responses API.
type Client struct {
	Model    string
	Provider ProviderType

	token        string
	baseURL      string
	organization string
	httpClient   Doer

	// required when Provider is ProviderAzure or ProviderAzureAD
	apiVersion string
}

// Doer performs a HTTP request.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// New returns a new OpenAI client.
func New(provider ProviderType, model, token, baseURL, organization, apiVersion string, httpClient Doer) *Client {
	c := &Client{
		Model:        model,
		Provider:     provider,
		token:        token,
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		organization: organization,
		apiVersion:   apiVersion,
		httpClient:   httpClient,
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.httpClient == nil {
		c.httpClient = http.DefaultClient
	}
	if c.apiVersion == "" && IsAzure(provider) {
		c.apiVersion = DefaultAPIVersion
	}
	return c
}

// CreateResponse creates a response using the Responses API.
// The request is stateless: the full conversation is sent in Input.
func (c *Client) CreateResponse(ctx context.Context, r *ResponseRequest) (*responses.Response, error) {
	if r.Model == "" {
		if c.Model == "" {
			r.Model = DefaultChatModel
		} else {
			r.Model = c.Model
		}
	}
	if r.MaxOutputTokens == 0 {
		r.MaxOutputTokens = DefaultMaxTokens
	}
	return c.createResponse(ctx, r)
}

func IsAzure(apiType ProviderType) bool {
	return apiType == ProviderAzure || apiType == ProviderAzureAD
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if c.Provider == ProviderAzure {
		req.Header.Set("api-key", c.token)
	} else {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.organization != "" {
		req.Header.Set("OpenAI-Organization", c.organization)
	}
}

func (c *Client) buildURL(suffix string) string {
	if IsAzure(c.Provider) {
		// Azure serves /responses from the global endpoint,
		// the deployment name goes into the model field.
		return fmt.Sprintf("%s/openai%s?api-version=%s", c.baseURL, suffix, c.apiVersion)
	}
	return c.baseURL + suffix
}

type errorMessage struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

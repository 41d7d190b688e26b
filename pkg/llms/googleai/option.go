package googleai

import (
	"net/http"
	"os"
)

// TokenEnvVarName is the environment variable with the Gemini API key
const TokenEnvVarName = "GEMINI_API_KEY" //nolint:gosec

// Options is a set of options for the Gemini client.
type Options struct {
	APIKey       string
	BaseURL      string
	DefaultModel string
	MaxTokens    int
	Temperature  float64
	HTTPClient   *http.Client
}

// DefaultOptions returns the default options
func DefaultOptions() Options {
	return Options{
		DefaultModel: "gemini-2.5-flash",
		Temperature:  0.5,
	}
}

// EnsureAuthPresent reads the API key from GEMINI_API_KEY, or GOOGLE_API_KEY, if not set.
func (o *Options) EnsureAuthPresent() {
	if o.APIKey == "" {
		o.APIKey = os.Getenv(TokenEnvVarName)
	}
	if o.APIKey == "" {
		o.APIKey = os.Getenv("GOOGLE_API_KEY")
	}
}

// Option configures the client
type Option func(*Options)

// WithAPIKey passes the API key to the client.
func WithAPIKey(apiKey string) Option {
	return func(opts *Options) {
		opts.APIKey = apiKey
	}
}

// WithBaseURL overrides the API endpoint.
func WithBaseURL(baseURL string) Option {
	return func(opts *Options) {
		opts.BaseURL = baseURL
	}
}

// WithDefaultModel sets the model.
func WithDefaultModel(model string) Option {
	return func(opts *Options) {
		opts.DefaultModel = model
	}
}

// WithMaxTokens sets the limit of the generated tokens.
func WithMaxTokens(n int) Option {
	return func(opts *Options) {
		opts.MaxTokens = n
	}
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(opts *Options) {
		opts.HTTPClient = httpClient
	}
}

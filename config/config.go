// Package config provides the host configuration.
//
// The configuration is loaded once at startup and passed explicitly to the components
// that need it. Nothing modifies it after Load returns.
package config

import (
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/x/configloader"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/suckgeun/mcp-sample/pkg/llmfactory"
)

// ErrMissingCredentials is returned when a required credential is not configured.
var ErrMissingCredentials = errors.New("missing credentials")

// Environment variables with credentials
const (
	EnvOpenAIKey       = "OPENAI_API_KEY"
	EnvAnthropicKey    = "ANTHROPIC_API_KEY"
	EnvGeminiKey       = "GEMINI_API_KEY"
	EnvGoogleCSEKey    = "GOOGLE_CSE_API_KEY"
	EnvGoogleCSEID     = "GOOGLE_CSE_ID"
	EnvTavilyKey       = "TAVILY_API_KEY"
	DefaultModel       = "gpt-4.1"
	DefaultProvider    = "openai"
	DefaultStorePrefix = "mcp-sample"
)

// Config of the hosts and servers
type Config struct {
	// LogLevel specifies the global log level: TRACE|DEBUG|INFO|NOTICE|WARNING|ERROR
	LogLevel string `json:"log_level,omitempty" yaml:"log_level,omitempty"`
	// LLM specifies the model providers
	LLM llmfactory.Config `json:"llm" yaml:"llm"`
	// Providers specifies the tool providers, keyed by server name.
	Providers map[string]*ToolProvider `json:"providers" yaml:"providers" validate:"dive"`
	Search    Search                   `json:"search" yaml:"search"`
	Chat      Chat                     `json:"chat" yaml:"chat"`
	Analysis  Analysis                 `json:"analysis" yaml:"analysis"`
	Store     Store                    `json:"store" yaml:"store"`
}

// ToolProvider specifies how to start a tool provider subprocess.
type ToolProvider struct {
	Command string            `json:"command" yaml:"command" validate:"required"`
	Args    []string          `json:"args,omitempty" yaml:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty" yaml:"env,omitempty"`
}

// Search configures the search tool provider
type Search struct {
	// Backend is google or tavily
	Backend  string `json:"backend,omitempty" yaml:"backend,omitempty" validate:"omitempty,oneof=google tavily"`
	Count    int    `json:"count,omitempty" yaml:"count,omitempty" validate:"gte=0,lte=10"`
	Country  string `json:"country,omitempty" yaml:"country,omitempty"`
	Language string `json:"language,omitempty" yaml:"language,omitempty"`
}

// Chat configures the chat host
type Chat struct {
	SystemPrompt string `json:"system_prompt,omitempty" yaml:"system_prompt,omitempty"`
	// MaxToolCalls limits the tool calls of a single turn
	MaxToolCalls int `json:"max_tool_calls,omitempty" yaml:"max_tool_calls,omitempty" validate:"gte=0"`
	// Render prints the answers as markdown
	Render bool `json:"render,omitempty" yaml:"render,omitempty"`
}

// Analysis configures the company analysis loop
type Analysis struct {
	MaxIterations int `json:"max_iterations,omitempty" yaml:"max_iterations,omitempty" validate:"gte=0"`
	MaxStalled    int `json:"max_stalled,omitempty" yaml:"max_stalled,omitempty" validate:"gte=0"`
}

// Store configures the conversation store
type Store struct {
	// RedisURL specifies the Redis server, if empty the conversation is kept in memory.
	RedisURL string `json:"redis_url,omitempty" yaml:"redis_url,omitempty" validate:"omitempty,url"`
	Prefix   string `json:"prefix,omitempty" yaml:"prefix,omitempty"`
}

// Default returns the configuration used when no file is provided.
func Default() *Config {
	cfg := new(Config)
	cfg.applyDefaults()
	return cfg
}

// DefaultProviders returns the fetch and google_search tool providers.
func DefaultProviders() map[string]*ToolProvider {
	return map[string]*ToolProvider{
		"fetch": {
			Command: "uvx",
			Args:    []string{"mcp-server-fetch"},
		},
		"google_search": {
			Command: "google-search-server",
		},
	}
}

// Load returns the configuration from the file, with defaults applied.
// An empty file name returns Default.
func Load(file string) (*Config, error) {
	cfg := new(Config)
	if file != "" {
		if err := configloader.UnmarshalAndExpand(file, cfg); err != nil {
			return nil, errors.WithMessagef(err, "failed to load config %s", file)
		}
	}
	cfg.applyDefaults()

	if err := validator.New().Struct(cfg); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}
	return cfg, nil
}

// LoadDotEnv loads environment variables from the .env files that exist.
// Variables already set in the environment are not overridden.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return errors.Wrapf(err, "failed to load %s", f)
		}
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "INFO"
	}
	if len(c.LLM.Providers) == 0 {
		c.LLM.Providers = []*llmfactory.ProviderConfig{
			{
				Name:            DefaultProvider,
				DefaultModel:    DefaultModel,
				AvailableModels: []string{DefaultModel},
				OpenAI:          llmfactory.OpenAIConfig{APIType: "OPENAI"},
			},
		}
	}
	if c.LLM.DefaultProvider == "" {
		c.LLM.DefaultProvider = c.LLM.Providers[0].Name
	}
	if c.Providers == nil {
		c.Providers = DefaultProviders()
	}
	if c.Search.Backend == "" {
		c.Search.Backend = "google"
	}
	if c.Search.Count == 0 {
		c.Search.Count = 5
	}
	if c.Search.Country == "" {
		c.Search.Country = "jp"
	}
	if c.Search.Language == "" {
		c.Search.Language = "lang_ja"
	}
	if c.Chat.MaxToolCalls == 0 {
		c.Chat.MaxToolCalls = 32
	}
	if c.Analysis.MaxIterations == 0 {
		c.Analysis.MaxIterations = 20
	}
	if c.Analysis.MaxStalled == 0 {
		c.Analysis.MaxStalled = 3
	}
	if c.Store.Prefix == "" {
		c.Store.Prefix = DefaultStorePrefix
	}
}

// DefaultLLMProvider returns the configuration of the default model provider.
func (c *Config) DefaultLLMProvider() *llmfactory.ProviderConfig {
	for _, p := range c.LLM.Providers {
		if p.Name == c.LLM.DefaultProvider {
			return p
		}
	}
	if len(c.LLM.Providers) > 0 {
		return c.LLM.Providers[0]
	}
	return nil
}

// RequireLLMCredentials returns ErrMissingCredentials if the default provider has no token.
func (c *Config) RequireLLMCredentials() error {
	p := c.DefaultLLMProvider()
	if p == nil {
		return errors.Wrap(ErrMissingCredentials, "no LLM provider configured")
	}
	env := tokenEnv(p.OpenAI.APIType)
	if env == "" {
		// resolved by the cloud SDK credential chain
		return nil
	}
	if p.Token == "" && os.Getenv(env) == "" {
		return errors.Wrapf(ErrMissingCredentials, "%s is not set", env)
	}
	return nil
}

// RequireSearchCredentials returns ErrMissingCredentials if the search backend is not configured.
func (c *Config) RequireSearchCredentials() error {
	var missing []string
	vars := []string{EnvGoogleCSEKey, EnvGoogleCSEID}
	if c.Search.Backend == "tavily" {
		vars = []string{EnvTavilyKey}
	}
	for _, v := range vars {
		if os.Getenv(v) == "" {
			missing = append(missing, v)
		}
	}
	if len(missing) > 0 {
		return errors.Wrapf(ErrMissingCredentials, "%s is not set", strings.Join(missing, ", "))
	}
	return nil
}

// tokenEnv returns the environment variable with the API key of the provider type.
func tokenEnv(apiType string) string {
	switch strings.ToUpper(apiType) {
	case "ANTHROPIC":
		return EnvAnthropicKey
	case "GOOGLEAI", "GEMINI":
		return EnvGeminiKey
	case "BEDROCK":
		return ""
	default:
		return EnvOpenAIKey
	}
}

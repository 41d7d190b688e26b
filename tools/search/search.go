// Package search implements the web search tool.
// The tool is backend neutral: Google Custom Search and Tavily backends live in sub-packages.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
	"github.com/invopop/jsonschema"
	"github.com/suckgeun/mcp-sample/chatmodel"
	"github.com/suckgeun/mcp-sample/pkg/metricskey"
	"github.com/suckgeun/mcp-sample/pkg/schema"
	"github.com/suckgeun/mcp-sample/tools"
)

var logger = xlog.NewPackageLogger("github.com/suckgeun/mcp-sample", "search")

const (
	// ToolName is the name of the search tool
	ToolName = "google_search"
	// Description is the tool description, also used as the server instructions.
	Description = "google the given query, and return the first 5 results. treat the user as searching from japan, and prefer Japanese-language results."

	// DefaultCount is the maximum number of results returned by the tool.
	DefaultCount = 5
	// DefaultCountry is the country the user is searching from.
	DefaultCountry = "jp"
	// DefaultLanguage restricts the results to the language.
	DefaultLanguage = "lang_ja"
)

// Request is the request sent to a Backend.
type Request struct {
	Query    string
	Count    int
	Country  string
	Language string
}

// Entry is a single search result.
type Entry struct {
	Rank        int    `json:"rank" yaml:"rank"`
	Title       string `json:"title" yaml:"title"`
	Snippet     string `json:"snippet" yaml:"snippet"`
	URL         string `json:"url" yaml:"url"`
	Domain      string `json:"domain,omitempty" yaml:"domain,omitempty"`
	PublishedAt string `json:"published_at,omitempty" yaml:"published_at,omitempty"`
}

// Backend performs a web search.
type Backend interface {
	// Name returns the backend name, used in metrics and logs.
	Name() string
	// Search returns the results for the request.
	// It may return more results than requested.
	Search(ctx context.Context, req *Request) ([]*Entry, error)
}

// Input represents the tool input.
type Input struct {
	Query string `json:"query" yaml:"query" jsonschema:"title=query,description=The search query."`
}

// Output represents the tool output.
type Output struct {
	Query   string   `json:"query" yaml:"query"`
	Results []*Entry `json:"results" yaml:"results"`
}

// String returns the text returned to the model.
func (o *Output) String() string {
	if len(o.Results) == 0 {
		return fmt.Sprintf("No results found for %q.", o.Query)
	}
	js, _ := json.MarshalIndent(o.Results, "", "  ")
	return string(js)
}

// Tool is a tool that provides a web search functionality
type Tool struct {
	name        string
	description string
	count       int
	country     string
	language    string
	backend     Backend
}

// ensure Tool implements the tools.Tool interface
var _ tools.Tool[Input, Output] = (*Tool)(nil)

// Option configures the Tool
type Option func(*Tool)

// WithName sets the name of the tool.
func WithName(name string) Option {
	return func(t *Tool) {
		t.name = name
	}
}

// WithDescription sets the description of the tool.
func WithDescription(description string) Option {
	return func(t *Tool) {
		t.description = description
	}
}

// WithCount sets the maximum number of results.
func WithCount(count int) Option {
	return func(t *Tool) {
		if count > 0 {
			t.count = count
		}
	}
}

// WithLocale sets the country and language of the search.
func WithLocale(country, language string) Option {
	return func(t *Tool) {
		t.country = country
		t.language = language
	}
}

// New returns the search tool over the backend.
func New(backend Backend, opts ...Option) *Tool {
	t := &Tool{
		name:        ToolName,
		description: Description,
		count:       DefaultCount,
		country:     DefaultCountry,
		language:    DefaultLanguage,
		backend:     backend,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Tool) Name() string {
	return t.name
}

func (t *Tool) Description() string {
	return t.description
}

func (t *Tool) Parameters() *jsonschema.Schema {
	return schema.MustNew(reflect.TypeOf(Input{})).Parameters
}

// Run performs the search and caps the results.
func (t *Tool) Run(ctx context.Context, req *Input) (*Output, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, errors.Wrap(chatmodel.ErrFailedUnmarshalInput, "query is required")
	}

	started := time.Now()
	defer metricskey.PerfSearch.MeasureSince(started, t.backend.Name())

	list, err := t.backend.Search(ctx, &Request{
		Query:    query,
		Count:    t.count,
		Country:  t.country,
		Language: t.language,
	})
	if err != nil {
		metricskey.StatsSearchFailed.IncrCounter(1, t.backend.Name())
		return nil, err
	}

	if len(list) > t.count {
		list = list[:t.count]
	}
	for i, e := range list {
		e.Rank = i + 1
	}
	metricskey.StatsSearchResults.IncrCounter(float64(len(list)), t.backend.Name())

	logger.ContextKV(ctx, xlog.DEBUG,
		"status", "searched",
		"backend", t.backend.Name(),
		"query", query,
		"results", len(list),
	)

	return &Output{
		Query:   query,
		Results: list,
	}, nil
}

// Call runs the search. Backend failures are returned as text,
// so the model can decide how to continue.
func (t *Tool) Call(ctx context.Context, input string) (string, error) {
	var req Input
	if err := tools.DecodeInput(input, &req); err != nil {
		return "", err
	}
	out, err := t.Run(ctx, &req)
	if err != nil {
		if errors.Is(err, chatmodel.ErrFailedUnmarshalInput) {
			return "", err
		}
		logger.ContextKV(ctx, xlog.WARNING,
			"reason", "search",
			"backend", t.backend.Name(),
			"err", err.Error(),
		)
		return "search failed: " + err.Error(), nil
	}
	return out.String(), nil
}

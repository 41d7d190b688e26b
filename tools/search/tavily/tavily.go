// Package tavily implements the search backend over the Tavily search API.
package tavily

import (
	"context"
	"net/http"
	"os"

	"github.com/cockroachdb/errors"
	tavilygo "github.com/diverged/tavily-go"
	tavilyModels "github.com/diverged/tavily-go/models"
	"github.com/suckgeun/mcp-sample/tools/search"
)

const (
	// EnvAPIKey is the environment variable with the API key.
	EnvAPIKey = "TAVILY_API_KEY"
	// BackendName is the name of the backend
	BackendName = "tavily"
)

// Backend provides the web search over Tavily.
// Tavily has no country or language filters, they are ignored.
type Backend struct {
	apikey     string
	baseURL    string
	httpClient *http.Client
}

var _ search.Backend = (*Backend)(nil)

// New returns the backend, the API key is read from TAVILY_API_KEY.
func New() (*Backend, error) {
	apikey := os.Getenv(EnvAPIKey)
	if apikey == "" {
		return nil, errors.Errorf("%s is not set", EnvAPIKey)
	}
	return &Backend{
		apikey:     apikey,
		httpClient: http.DefaultClient,
	}, nil
}

func (b *Backend) WithBaseURL(baseURL string) *Backend {
	b.baseURL = baseURL
	return b
}

func (b *Backend) WithHTTPClient(client *http.Client) *Backend {
	b.httpClient = client
	return b
}

func (b *Backend) Name() string {
	return BackendName
}

func (b *Backend) Search(_ context.Context, req *search.Request) ([]*search.Entry, error) {
	client := tavilygo.NewClient(b.apikey)
	if b.baseURL != "" {
		client.BaseURL = b.baseURL
	}
	if b.httpClient != nil {
		client.HTTPClient = b.httpClient
	}

	resp, err := tavilygo.Search(client, tavilyModels.SearchRequest{
		Query:       req.Query,
		SearchDepth: "basic",
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to perform search")
	}

	list := make([]*search.Entry, 0, len(resp.Results))
	for i, r := range resp.Results {
		list = append(list, &search.Entry{
			Rank:    i + 1,
			Title:   r.Title,
			Snippet: r.Content,
			URL:     r.URL,
			Domain:  domain(r.URL),
		})
	}
	return list, nil
}

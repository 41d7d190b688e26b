// Package googlecse implements the search backend over the Google Custom Search JSON API.
package googlecse

import (
	"context"
	"encoding/json"
	"net/http"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/suckgeun/mcp-sample/tools/search"
	"google.golang.org/api/customsearch/v1"
	"google.golang.org/api/option"
)

const (
	// EnvAPIKey is the environment variable with the API key.
	EnvAPIKey = "GOOGLE_CSE_API_KEY"
	// EnvEngineID is the environment variable with the search engine ID.
	EnvEngineID = "GOOGLE_CSE_ID"

	// BackendName is the name of the backend
	BackendName = "google"
)

// Backend is the Google Custom Search backend
type Backend struct {
	engineID string
	svc      *customsearch.Service
}

var _ search.Backend = (*Backend)(nil)

// Option configures the Backend
type Option func(*options)

type options struct {
	apiKey     string
	engineID   string
	endpoint   string
	httpClient *http.Client
}

// WithAPIKey sets the API key, by default GOOGLE_CSE_API_KEY is used.
func WithAPIKey(key string) Option {
	return func(o *options) {
		o.apiKey = key
	}
}

// WithEngineID sets the search engine ID, by default GOOGLE_CSE_ID is used.
func WithEngineID(id string) Option {
	return func(o *options) {
		o.engineID = id
	}
}

// WithEndpoint overrides the API endpoint.
func WithEndpoint(endpoint string) Option {
	return func(o *options) {
		o.endpoint = endpoint
	}
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

// New returns the Google Custom Search backend.
func New(ctx context.Context, opts ...Option) (*Backend, error) {
	o := &options{
		apiKey:   os.Getenv(EnvAPIKey),
		engineID: os.Getenv(EnvEngineID),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.apiKey == "" {
		return nil, errors.Errorf("%s is not set", EnvAPIKey)
	}
	if o.engineID == "" {
		return nil, errors.Errorf("%s is not set", EnvEngineID)
	}

	copts := []option.ClientOption{
		option.WithAPIKey(o.apiKey),
	}
	if o.endpoint != "" {
		copts = append(copts, option.WithEndpoint(o.endpoint))
	}
	if o.httpClient != nil {
		copts = append(copts, option.WithHTTPClient(o.httpClient))
	}

	svc, err := customsearch.NewService(ctx, copts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create custom search service")
	}

	return &Backend{
		engineID: o.engineID,
		svc:      svc,
	}, nil
}

func (b *Backend) Name() string {
	return BackendName
}

// Search sends a single request to the cse.list API.
func (b *Backend) Search(ctx context.Context, req *search.Request) ([]*search.Entry, error) {
	call := b.svc.Cse.List().
		Q(req.Query).
		Cx(b.engineID)
	if req.Count > 0 {
		// the API accepts 1..10
		call = call.Num(int64(min(req.Count, 10)))
	}
	if req.Country != "" {
		call = call.Gl(req.Country)
	}
	if req.Language != "" {
		call = call.Lr(req.Language)
	}

	res, err := call.Context(ctx).Do()
	if err != nil {
		return nil, errors.WithStack(err)
	}

	list := make([]*search.Entry, 0, len(res.Items))
	for i, it := range res.Items {
		list = append(list, &search.Entry{
			Rank:        i + 1,
			Title:       it.Title,
			Snippet:     it.Snippet,
			URL:         it.Link,
			Domain:      it.DisplayLink,
			PublishedAt: publishedAt(it.Pagemap),
		})
	}
	return list, nil
}

type pagemap struct {
	Metatags []map[string]any `json:"metatags"`
}

// publishedAt returns the publish or update time from the first metatags entry.
func publishedAt(raw []byte) string {
	if len(raw) == 0 {
		return ""
	}
	var pm pagemap
	if err := json.Unmarshal(raw, &pm); err != nil || len(pm.Metatags) == 0 {
		return ""
	}
	for _, key := range []string{"article:published_time", "og:updated_time"} {
		if v, ok := pm.Metatags[0][key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

package googlecse_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suckgeun/mcp-sample/tools/search"
	"github.com/suckgeun/mcp-sample/tools/search/googlecse"
)

const responseJSON = `{
	"kind": "customsearch#search",
	"items": [
		{
			"title": "Go",
			"link": "https://go.dev/",
			"displayLink": "go.dev",
			"snippet": "Build simple, secure, scalable systems with Go.",
			"pagemap": {
				"metatags": [
					{"article:published_time": "2024-05-01T00:00:00Z", "og:updated_time": "2024-06-01"}
				]
			}
		},
		{
			"title": "Go Blog",
			"link": "https://go.dev/blog",
			"displayLink": "go.dev",
			"snippet": "The Go Blog",
			"pagemap": {
				"metatags": [{"og:updated_time": "2024-06-01"}]
			}
		},
		{
			"title": "No metatags",
			"link": "https://example.com/",
			"displayLink": "example.com",
			"snippet": "example"
		}
	]
}`

func Test_Search(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/customsearch/v1", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "golang", q.Get("q"))
		assert.Equal(t, "engine", q.Get("cx"))
		assert.Equal(t, "5", q.Get("num"))
		assert.Equal(t, "jp", q.Get("gl"))
		assert.Equal(t, "lang_ja", q.Get("lr"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(responseJSON))
	}))
	defer server.Close()

	ctx := context.Background()
	b, err := googlecse.New(ctx,
		googlecse.WithAPIKey("key"),
		googlecse.WithEngineID("engine"),
		googlecse.WithEndpoint(server.URL+"/"),
		googlecse.WithHTTPClient(server.Client()),
	)
	require.NoError(t, err)
	assert.Equal(t, googlecse.BackendName, b.Name())

	list, err := b.Search(ctx, &search.Request{
		Query:    "golang",
		Count:    5,
		Country:  "jp",
		Language: "lang_ja",
	})
	require.NoError(t, err)
	require.Len(t, list, 3)

	assert.Equal(t, &search.Entry{
		Rank:        1,
		Title:       "Go",
		Snippet:     "Build simple, secure, scalable systems with Go.",
		URL:         "https://go.dev/",
		Domain:      "go.dev",
		PublishedAt: "2024-05-01T00:00:00Z",
	}, list[0])
	assert.Equal(t, "2024-06-01", list[1].PublishedAt)
	assert.Equal(t, 3, list[2].Rank)
	assert.Empty(t, list[2].PublishedAt)
}

func Test_SearchFailed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":403,"message":"quota exceeded"}}`))
	}))
	defer server.Close()

	ctx := context.Background()
	b, err := googlecse.New(ctx,
		googlecse.WithAPIKey("key"),
		googlecse.WithEngineID("engine"),
		googlecse.WithEndpoint(server.URL+"/"),
		googlecse.WithHTTPClient(server.Client()),
	)
	require.NoError(t, err)

	tool := search.New(b)
	res, err := tool.Call(ctx, `{"query":"golang"}`)
	require.NoError(t, err)
	assert.Contains(t, res, "search failed: ")
	assert.Contains(t, res, "quota exceeded")
}

func Test_New(t *testing.T) {
	ctx := context.Background()
	t.Setenv(googlecse.EnvAPIKey, "")
	t.Setenv(googlecse.EnvEngineID, "")

	_, err := googlecse.New(ctx)
	assert.EqualError(t, err, "GOOGLE_CSE_API_KEY is not set")

	t.Setenv(googlecse.EnvAPIKey, "key")
	_, err = googlecse.New(ctx)
	assert.EqualError(t, err, "GOOGLE_CSE_ID is not set")

	t.Setenv(googlecse.EnvEngineID, "engine")
	_, err = googlecse.New(ctx)
	assert.NoError(t, err)
}

package search_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suckgeun/mcp-sample/chatmodel"
	"github.com/suckgeun/mcp-sample/pkg/llmutils"
	"github.com/suckgeun/mcp-sample/tools/search"
)

type fakeBackend struct {
	entries []*search.Entry
	err     error
	calls   int
	last    *search.Request
}

func (b *fakeBackend) Name() string { return "fake" }

func (b *fakeBackend) Search(_ context.Context, req *search.Request) ([]*search.Entry, error) {
	b.calls++
	b.last = req
	return b.entries, b.err
}

func entries(n int) []*search.Entry {
	var list []*search.Entry
	for i := range n {
		list = append(list, &search.Entry{
			Title:   fmt.Sprintf("title %d", i),
			Snippet: fmt.Sprintf("snippet %d", i),
			URL:     fmt.Sprintf("https://example.com/%d", i),
			Domain:  "example.com",
		})
	}
	return list
}

func Test_Tool(t *testing.T) {
	ctx := context.Background()
	b := &fakeBackend{}
	tool := search.New(b)

	assert.Equal(t, search.ToolName, tool.Name())
	assert.Equal(t, search.Description, tool.Description())

	params := llmutils.ToJSONIndent(tool.Parameters())
	expParams := `{
	"properties": {
		"query": {
			"type": "string",
			"title": "query",
			"description": "The search query."
		}
	},
	"type": "object",
	"required": [
		"query"
	]
}`
	assert.Equal(t, expParams, params)

	t.Run("cap", func(t *testing.T) {
		b.entries = entries(8)
		out, err := tool.Run(ctx, &search.Input{Query: " golang "})
		require.NoError(t, err)
		require.Len(t, out.Results, search.DefaultCount)
		for i, e := range out.Results {
			assert.Equal(t, i+1, e.Rank)
		}
		assert.Equal(t, "golang", b.last.Query)
		assert.Equal(t, 5, b.last.Count)
		assert.Equal(t, "jp", b.last.Country)
		assert.Equal(t, "lang_ja", b.last.Language)
	})

	t.Run("fewer", func(t *testing.T) {
		b.entries = entries(2)
		out, err := tool.Run(ctx, &search.Input{Query: "golang"})
		require.NoError(t, err)
		assert.Len(t, out.Results, 2)
		assert.Equal(t, "title 1", out.Results[1].Title)
	})

	t.Run("no results", func(t *testing.T) {
		b.entries = nil
		res, err := tool.Call(ctx, `{"query":"nothing here"}`)
		require.NoError(t, err)
		assert.Equal(t, `No results found for "nothing here".`, res)
	})

	t.Run("failed", func(t *testing.T) {
		b.entries = nil
		b.err = errors.New("googleapi: Error 403: quota exceeded")
		defer func() { b.err = nil }()

		res, err := tool.Call(ctx, `{"query":"golang"}`)
		require.NoError(t, err)
		assert.Equal(t, "search failed: googleapi: Error 403: quota exceeded", res)
	})

	t.Run("one call per request", func(t *testing.T) {
		b.entries = entries(1)
		calls := b.calls
		res, err := tool.Call(ctx, `{"query":"golang"}`)
		require.NoError(t, err)
		assert.Equal(t, calls+1, b.calls)
		assert.Contains(t, res, `"rank": 1`)
		assert.Contains(t, res, `"url": "https://example.com/0"`)
		assert.NotContains(t, res, "published_at")
	})

	t.Run("invalid input", func(t *testing.T) {
		calls := b.calls
		_, err := tool.Call(ctx, `plain string`)
		assert.True(t, errors.Is(err, chatmodel.ErrFailedUnmarshalInput))

		_, err = tool.Call(ctx, `{"query":"  "}`)
		assert.True(t, errors.Is(err, chatmodel.ErrFailedUnmarshalInput))
		assert.Equal(t, calls, b.calls)
	})
}

func Test_Options(t *testing.T) {
	b := &fakeBackend{entries: entries(5)}
	tool := search.New(b,
		search.WithName("web_search"),
		search.WithDescription("search the web"),
		search.WithCount(3),
		search.WithCount(0),
		search.WithLocale("us", "lang_en"),
	)
	assert.Equal(t, "web_search", tool.Name())
	assert.Equal(t, "search the web", tool.Description())

	out, err := tool.Run(context.Background(), &search.Input{Query: "golang"})
	require.NoError(t, err)
	assert.Len(t, out.Results, 3)
	assert.Equal(t, 3, b.last.Count)
	assert.Equal(t, "us", b.last.Country)
	assert.Equal(t, "lang_en", b.last.Language)
}

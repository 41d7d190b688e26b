package server_test

import (
	"context"
	"encoding/json"
	"testing"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suckgeun/mcp-sample/mcp/server"
	"github.com/suckgeun/mcp-sample/tools/search"
)

type fakeBackend struct {
	entries []*search.Entry
}

func (b *fakeBackend) Name() string { return "fake" }

func (b *fakeBackend) Search(context.Context, *search.Request) ([]*search.Entry, error) {
	return b.entries, nil
}

func connect(t *testing.T, srv *mcpsdk.Server) *mcpsdk.ClientSession {
	t.Helper()
	ctx := context.Background()
	serverTransport, clientTransport := mcpsdk.NewInMemoryTransports()

	ss, err := srv.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ss.Close() })

	client := mcpsdk.NewClient(&mcpsdk.Implementation{Name: "test-client", Version: "test"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cs.Close() })
	return cs
}

func Test_Server(t *testing.T) {
	ctx := context.Background()
	b := &fakeBackend{
		entries: []*search.Entry{{Title: "Go", URL: "https://go.dev", Snippet: "The Go language"}},
	}

	srv, err := server.New(server.Config{
		Name:         "google_search_server",
		Instructions: search.Description,
	}, search.New(b))
	require.NoError(t, err)

	cs := connect(t, srv)

	var names []string
	for tool, err := range cs.Tools(ctx, nil) {
		require.NoError(t, err)
		names = append(names, tool.Name)
		assert.Equal(t, search.Description, tool.Description)

		js, err := json.Marshal(tool.InputSchema)
		require.NoError(t, err)
		assert.Contains(t, string(js), `"required":["query"]`)
	}
	assert.Equal(t, []string{"google_search"}, names)

	res, err := cs.CallTool(ctx, &mcpsdk.CallToolParams{
		Name:      "google_search",
		Arguments: map[string]any{"query": "golang"},
	})
	require.NoError(t, err)
	assert.False(t, res.IsError)
	require.Len(t, res.Content, 1)
	text := res.Content[0].(*mcpsdk.TextContent).Text
	assert.Contains(t, text, `"title": "Go"`)

	b.entries = nil
	res, err = cs.CallTool(ctx, &mcpsdk.CallToolParams{
		Name:      "google_search",
		Arguments: map[string]any{"query": "nothing"},
	})
	require.NoError(t, err)
	assert.Equal(t, `No results found for "nothing".`, res.Content[0].(*mcpsdk.TextContent).Text)

	// input errors are returned as error results
	res, err = cs.CallTool(ctx, &mcpsdk.CallToolParams{
		Name:      "google_search",
		Arguments: map[string]any{"query": ""},
	})
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, res.Content[0].(*mcpsdk.TextContent).Text, "query is required")
}

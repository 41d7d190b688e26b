package anthropic_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/invopop/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suckgeun/mcp-sample/pkg/llms"
	"github.com/suckgeun/mcp-sample/pkg/llms/anthropic"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

const toolUseResponse = `{
  "id": "msg_01",
  "type": "message",
  "role": "assistant",
  "model": "claude-sonnet-4-5",
  "content": [
    {"type": "text", "text": "Let me search."},
    {"type": "tool_use", "id": "toolu_01", "name": "google_search", "input": {"query": "golang"}}
  ],
  "stop_reason": "tool_use",
  "usage": {"input_tokens": 12, "output_tokens": 7}
}`

const errorResponse = `{"type":"error","error":{"type":"invalid_request_error","message":"bad request"}}`

type recorded struct {
	path string
	body map[string]any
}

func newServer(t *testing.T, status int, reply string) (*httptest.Server, *recorded) {
	t.Helper()
	rec := &recorded{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.path = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &rec.body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(srv.Close)
	return srv, rec
}

func TestNew(t *testing.T) {
	t.Setenv(anthropic.TokenEnvVarName, "")
	_, err := anthropic.New(anthropic.WithModel("claude-sonnet-4-5"))
	assert.ErrorIs(t, err, anthropic.ErrMissingToken)

	_, err = anthropic.New(anthropic.WithToken("key"))
	assert.EqualError(t, err, "anthropic: model is required")

	llm, err := anthropic.New(anthropic.WithToken("key"), anthropic.WithModel("claude-sonnet-4-5"))
	require.NoError(t, err)
	assert.Equal(t, llms.ProviderAnthropic, llm.GetProviderType())
}

func TestGenerateContent_ToolUse(t *testing.T) {
	srv, rec := newServer(t, http.StatusOK, toolUseResponse)

	llm, err := anthropic.New(
		anthropic.WithToken("key"),
		anthropic.WithModel("claude-sonnet-4-5"),
		anthropic.WithBaseURL(srv.URL),
	)
	require.NoError(t, err)

	props := orderedmap.New[string, *jsonschema.Schema]()
	props.Set("query", &jsonschema.Schema{Type: "string"})
	tools := []llms.Tool{{
		Type: "function",
		Function: &llms.FunctionDefinition{
			Name:        "google_search",
			Description: "search the web",
			Parameters:  &jsonschema.Schema{Type: "object", Properties: props, Required: []string{"query"}},
		},
	}}

	msgs := []llms.Message{
		llms.MessageFromTextParts(llms.RoleSystem, "Be brief."),
		llms.MessageFromTextParts(llms.RoleHuman, "what is golang?"),
	}
	resp, err := llm.GenerateContent(context.Background(), msgs, llms.WithTools(tools))
	require.NoError(t, err)

	assert.Equal(t, "/v1/messages", rec.path)
	assert.Equal(t, "claude-sonnet-4-5", rec.body["model"])
	assert.EqualValues(t, anthropic.DefaultMaxTokens, rec.body["max_tokens"])
	require.Len(t, rec.body["messages"], 1)
	require.Len(t, rec.body["tools"], 1)

	require.Len(t, resp.Choices, 1)
	choice := resp.Choices[0]
	assert.Equal(t, "Let me search.", choice.Content)
	assert.Equal(t, "tool_use", choice.StopReason)
	require.Len(t, choice.ToolCalls, 1)
	assert.Equal(t, "toolu_01", choice.ToolCalls[0].ID)
	assert.Equal(t, "google_search", choice.ToolCalls[0].Name())
	assert.JSONEq(t, `{"query":"golang"}`, choice.ToolCalls[0].Arguments())
	assert.EqualValues(t, 19, choice.GenerationInfo["TotalTokens"])
}

func TestGenerateContent_Error(t *testing.T) {
	srv, _ := newServer(t, http.StatusBadRequest, errorResponse)

	llm, err := anthropic.New(
		anthropic.WithToken("key"),
		anthropic.WithModel("claude-sonnet-4-5"),
		anthropic.WithBaseURL(srv.URL),
	)
	require.NoError(t, err)

	_, err = llm.GenerateContent(context.Background(), []llms.Message{llms.MessageFromTextParts(llms.RoleHuman, "hi")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic: failed to create message")
}

func TestProcessMessages(t *testing.T) {
	call1 := llms.ToolCall{ID: "toolu_1", Type: "function", FunctionCall: &llms.FunctionCall{Name: "google_search", Arguments: `{"query":"a"}`}}
	call2 := llms.ToolCall{ID: "toolu_2", Type: "function", FunctionCall: &llms.FunctionCall{Name: "fetch__fetch", Arguments: `{"url":"https://go.dev"}`}}

	msgs := []llms.Message{
		llms.MessageFromTextParts(llms.RoleSystem, "Be brief."),
		llms.MessageFromTextParts(llms.RoleHuman, "question"),
		llms.MessageFromToolCalls(llms.RoleAI, call1, call2),
		llms.MessageFromToolResponse(llms.RoleTool, llms.ToolCallResponse{ToolCallID: "toolu_1", Name: "google_search", Content: "results"}),
		llms.MessageFromToolResponse(llms.RoleTool, llms.ToolCallResponse{ToolCallID: "toolu_2", Name: "fetch__fetch", Content: "page"}),
		llms.MessageFromTextParts(llms.RoleAI, "answer"),
	}

	out, system, err := anthropic.ProcessMessages(msgs)
	require.NoError(t, err)
	assert.Equal(t, "Be brief.", system)
	// the tool results are merged into one user message
	require.Len(t, out, 4)
	assert.Len(t, out[1].Content, 2)
	assert.Len(t, out[2].Content, 2)

	_, _, err = anthropic.ProcessMessages([]llms.Message{
		llms.MessageFromToolCalls(llms.RoleAI, llms.ToolCall{ID: "x", FunctionCall: &llms.FunctionCall{Name: "a", Arguments: "{"}}),
	})
	require.Error(t, err)
	assert.Equal(t, "anthropic: invalid arguments of tool call x", err.Error())
}

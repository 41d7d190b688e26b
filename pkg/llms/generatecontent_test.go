package llms_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suckgeun/mcp-sample/pkg/llms"
	"sigs.k8s.io/yaml"
)

func TestTextParts(t *testing.T) {
	t.Parallel()
	mc := llms.MessageFromTextParts(llms.RoleHuman, "a", "b", "c")
	assert.Equal(t, llms.Message{
		Role: llms.RoleHuman,
		Parts: []llms.ContentPart{
			llms.TextContent{Text: "a"},
			llms.TextContent{Text: "b"},
			llms.TextContent{Text: "c"},
		},
	}, mc)
	assert.Equal(t, "a\nb\nc\n", mc.GetContent())
}

func TestMessageFromToolCalls(t *testing.T) {
	t.Parallel()

	call := llms.ToolCall{
		ID:   "call_1",
		Type: "function",
		FunctionCall: &llms.FunctionCall{
			Name:      "google_search",
			Arguments: `{"query":"golang"}`,
		},
	}
	msg := llms.MessageFromToolCalls(llms.RoleAI, call)
	require.Len(t, msg.ToolCalls(), 1)
	assert.Equal(t, call, msg.ToolCalls()[0])
	assert.Equal(t, "google_search", msg.ToolCalls()[0].Name())

	// the message owns a copy of the function call
	call.FunctionCall.Name = "changed"
	assert.Equal(t, "google_search", msg.ToolCalls()[0].Name())

	assert.Empty(t, llms.ToolCall{}.Name())
	assert.Empty(t, llms.ToolCall{}.Arguments())
}

func TestMessage_JSON(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		msg     llms.Message
		js      string
		content string
	}{
		{
			"single text",
			llms.MessageFromTextParts(llms.RoleHuman, "hello"),
			`{"role":"human","text":"hello"}`,
			"hello\n",
		},
		{
			"text parts",
			llms.MessageFromTextParts(llms.RoleAI, "a", "b"),
			`{"role":"ai","parts":[{"type":"text","text":"a"},{"type":"text","text":"b"}]}`,
			"a\nb\n",
		},
		{
			"tool call",
			llms.MessageFromToolCalls(llms.RoleAI, llms.ToolCall{
				ID:           "call_1",
				Type:         "function",
				FunctionCall: &llms.FunctionCall{Name: "fetch__fetch", Arguments: `{"url":"https://go.dev"}`},
			}),
			`{"role":"ai","parts":[{"type":"tool_call","tool_call":{"function":{"name":"fetch__fetch","arguments":"{\"url\":\"https://go.dev\"}"},"id":"call_1","type":"function"}}]}`,
			`Tool Call: {"type":"tool_call","tool_call":{"function":{"name":"fetch__fetch","arguments":"{\"url\":\"https://go.dev\"}"},"id":"call_1","type":"function"}}` + "\n",
		},
		{
			"tool response",
			llms.MessageFromToolResponse(llms.RoleTool, llms.ToolCallResponse{
				ToolCallID: "call_1",
				Name:       "fetch__fetch",
				Content:    "page",
			}),
			`{"role":"tool","parts":[{"type":"tool_response","tool_response":{"tool_call_id":"call_1","name":"fetch__fetch","content":"page"}}]}`,
			`Response: {"type":"tool_response","tool_response":{"tool_call_id":"call_1","name":"fetch__fetch","content":"page"}}` + "\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			js, err := json.Marshal(tt.msg)
			require.NoError(t, err)
			assert.Equal(t, tt.js, string(js))
			assert.Equal(t, tt.content, tt.msg.GetContent())

			var msg llms.Message
			require.NoError(t, json.Unmarshal(js, &msg))
			assert.Equal(t, tt.msg, msg)
		})
	}
}

func TestMessage_YAML(t *testing.T) {
	t.Parallel()
	msgs := []llms.Message{
		llms.MessageFromTextParts(llms.RoleSystem, "Be brief."),
		llms.MessageFromToolCalls(llms.RoleAI, llms.ToolCall{
			ID:           "call_1",
			Type:         "function",
			FunctionCall: &llms.FunctionCall{Name: "google_search", Arguments: `{"query":"golang"}`},
		}),
		llms.MessageFromToolResponse(llms.RoleTool, llms.ToolCallResponse{
			ToolCallID: "call_1",
			Name:       "google_search",
			Content:    "1. The Go Programming Language",
		}),
	}

	ys, err := yaml.Marshal(msgs)
	require.NoError(t, err)
	assert.Contains(t, string(ys), "role: system")

	var decoded []llms.Message
	require.NoError(t, yaml.Unmarshal(ys, &decoded))
	assert.Equal(t, msgs, decoded)
}

func TestMessage_UnmarshalErrors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		js   string
		err  string
	}{
		{"no role", `{"text":"a"}`, "missing role: unexpected role"},
		{"unknown part", `{"role":"ai","parts":[{"type":"image"}]}`, "unknown content type: 'image'"},
		{"tool call without id", `{"role":"ai","parts":[{"type":"tool_call","tool_call":{"type":"function"}}]}`, "missing id field in ToolCall"},
		{"tool response without name", `{"role":"tool","parts":[{"type":"tool_response","tool_response":{"tool_call_id":"1"}}]}`, "missing name field in ToolCallResponse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var msg llms.Message
			err := json.Unmarshal([]byte(tt.js), &msg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.err)
		})
	}
}

package host_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/invopop/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suckgeun/mcp-sample/callbacks"
	"github.com/suckgeun/mcp-sample/chatmodel"
	"github.com/suckgeun/mcp-sample/host"
	"github.com/suckgeun/mcp-sample/mocks/mockllms"
	"github.com/suckgeun/mcp-sample/mocks/mocktools"
	"github.com/suckgeun/mcp-sample/pkg/llms"
	"github.com/suckgeun/mcp-sample/store"
	"github.com/suckgeun/mcp-sample/tools"
	"go.uber.org/mock/gomock"
)

type generateFunc func(ctx context.Context, messages []llms.Message, options ...llms.CallOption) (*llms.ContentResponse, error)

func chatContext() context.Context {
	return chatmodel.WithChatContext(context.Background(), chatmodel.NewChatContext(""))
}

func textResponse(text string) *llms.ContentResponse {
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: text, StopReason: "completed"}},
	}
}

func toolCallResponse(calls ...llms.ToolCall) *llms.ContentResponse {
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{ToolCalls: calls}},
	}
}

func toolCall(id, name, args string) llms.ToolCall {
	return llms.ToolCall{
		ID:           id,
		Type:         "function",
		FunctionCall: &llms.FunctionCall{Name: name, Arguments: args},
	}
}

func newModel(ctrl *gomock.Controller) *mockllms.MockModel {
	m := mockllms.NewMockModel(ctrl)
	m.EXPECT().GetProviderType().Return(llms.ProviderOpenAI).AnyTimes()
	return m
}

func newSearchTool(ctrl *gomock.Controller) *mocktools.MockITool {
	tool := mocktools.NewMockITool(ctrl)
	tool.EXPECT().Name().Return("google_search").AnyTimes()
	tool.EXPECT().Description().Return("search the web").AnyTimes()
	tool.EXPECT().Parameters().Return(&jsonschema.Schema{Type: "object"}).AnyTimes()
	return tool
}

func TestRun_NoToolCalls(t *testing.T) {
	ctrl := gomock.NewController(t)
	model := newModel(ctrl)
	model.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(textResponse("Hi there"), nil).
		Times(1)

	h := host.New(model, tools.NewRegistry())
	var out bytes.Buffer
	err := h.Run(chatContext(), strings.NewReader("hello\n"), &out)
	require.NoError(t, err)

	assert.Equal(t, "You: Assistant: Hi there\nYou: \n", out.String())
	assert.Equal(t, 1, strings.Count(out.String(), host.PromptAssistant))
	assert.Equal(t, host.StateTerminated, h.State())
}

func TestTurn_OneToolCall(t *testing.T) {
	ctrl := gomock.NewController(t)
	model := newModel(ctrl)
	search := newSearchTool(ctrl)
	search.EXPECT().Call(gomock.Any(), `{"query":"golang"}`).Return("1. The Go Programming Language", nil).Times(1)

	var payloads [][]llms.Message
	responses := []*llms.ContentResponse{
		toolCallResponse(toolCall("call_1", "google_search", `{"query":"golang"}`)),
		textResponse("Go is a programming language."),
	}
	model.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(generateFunc(func(ctx context.Context, messages []llms.Message, options ...llms.CallOption) (*llms.ContentResponse, error) {
			payloads = append(payloads, messages)
			var opts llms.CallOptions
			for _, o := range options {
				o(&opts)
			}
			require.Len(t, opts.Tools, 1)
			assert.Equal(t, "google_search", opts.Tools[0].Function.Name)
			assert.Equal(t, "gpt-4.1", opts.Model)

			resp := responses[0]
			responses = responses[1:]
			return resp, nil
		})).
		Times(2)

	ctx := chatContext()
	h := host.New(model, tools.NewRegistry(search), host.WithModel("gpt-4.1"), host.WithSystemPrompt("Be brief."))
	answer, err := h.Turn(ctx, "what is golang?")
	require.NoError(t, err)
	assert.Equal(t, "Go is a programming language.", answer)

	require.Len(t, payloads, 2)
	assert.Equal(t, llms.RoleSystem, payloads[0][0].Role)
	assert.Equal(t, "Be brief.\n", payloads[0][0].GetContent())
	require.Len(t, payloads[1], 4)
	assert.Equal(t, llms.RoleTool, payloads[1][3].Role)

	msgs, err := h.Messages(ctx)
	require.NoError(t, err)
	require.Len(t, msgs, 4)
	assert.Equal(t, llms.RoleHuman, msgs[0].Role)
	assert.Equal(t, llms.RoleAI, msgs[1].Role)
	require.Len(t, msgs[1].ToolCalls(), 1)
	assert.Equal(t, "call_1", msgs[1].ToolCalls()[0].ID)

	var results []llms.ToolCallResponse
	for _, m := range msgs {
		for _, p := range m.Parts {
			if r, ok := p.(llms.ToolCallResponse); ok {
				results = append(results, r)
			}
		}
	}
	require.Len(t, results, 1)
	assert.Equal(t, llms.ToolCallResponse{
		ToolCallID: "call_1",
		Name:       "google_search",
		Content:    "1. The Go Programming Language",
	}, results[0])
	assert.Equal(t, "Go is a programming language.\n", msgs[3].GetContent())
}

func TestRun_UnknownToolContinues(t *testing.T) {
	ctrl := gomock.NewController(t)
	model := newModel(ctrl)
	search := newSearchTool(ctrl)

	var toolResult string
	calls := 0
	model.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(generateFunc(func(ctx context.Context, messages []llms.Message, options ...llms.CallOption) (*llms.ContentResponse, error) {
			calls++
			switch calls {
			case 1:
				return toolCallResponse(toolCall("", "weather", `{"city":"Tokyo"}`)), nil
			case 2:
				last := messages[len(messages)-1]
				require.Equal(t, llms.RoleTool, last.Role)
				toolResult = last.Parts[0].(llms.ToolCallResponse).Content
				return textResponse("I cannot check the weather."), nil
			default:
				return textResponse("Bye"), nil
			}
		})).
		Times(3)

	var trace bytes.Buffer
	h := host.New(model, tools.NewRegistry(search), host.WithCallback(callbacks.NewPrinter(&trace, callbacks.ModeDefault)))
	var out bytes.Buffer
	err := h.Run(chatContext(), strings.NewReader("weather in Tokyo?\n\nthanks\nexit\nnot read\n"), &out)
	require.NoError(t, err)

	assert.Equal(t, `Tool "weather" is not available. Available tools: google_search.`, toolResult)
	assert.Equal(t, "You: Assistant: I cannot check the weather.\nYou: You: Assistant: Bye\nYou: ", out.String())
	assert.Contains(t, trace.String(), "Tool Not Found: weather (chat)")
}

func TestTurn_ToolErrorIsNotFatal(t *testing.T) {
	ctrl := gomock.NewController(t)
	model := newModel(ctrl)
	search := newSearchTool(ctrl)
	search.EXPECT().Call(gomock.Any(), gomock.Any()).Return("", errors.New("connection reset")).Times(1)
	search.EXPECT().Call(gomock.Any(), gomock.Any()).Return("", errors.WithStack(chatmodel.ErrFailedUnmarshalInput)).Times(1)

	var contents []string
	calls := 0
	model.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(generateFunc(func(ctx context.Context, messages []llms.Message, options ...llms.CallOption) (*llms.ContentResponse, error) {
			calls++
			if calls == 1 {
				return toolCallResponse(
					toolCall("a", "google_search", `{"query":"x"}`),
					toolCall("b", "GOOGLE_SEARCH", `{}`),
				), nil
			}
			for _, m := range messages[len(messages)-2:] {
				contents = append(contents, m.Parts[0].(llms.ToolCallResponse).Content)
			}
			return textResponse("done"), nil
		})).
		Times(2)

	h := host.New(model, tools.NewRegistry(search))
	answer, err := h.Turn(chatContext(), "search x")
	require.NoError(t, err)
	assert.Equal(t, "done", answer)
	require.Len(t, contents, 2)
	assert.Equal(t, "Tool call failed: connection reset", contents[0])
	assert.True(t, strings.HasPrefix(contents[1], "Invalid input for google_search: "), contents[1])
}

func TestRun_ModelErrorIsFatal(t *testing.T) {
	ctrl := gomock.NewController(t)
	model := newModel(ctrl)
	model.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, errors.New("401 Unauthorized")).
		Times(1)

	h := host.New(model, nil)
	var out bytes.Buffer
	err := h.Run(chatContext(), strings.NewReader("hello\nagain\n"), &out)
	require.Error(t, err)
	assert.Equal(t, "failed to generate content from LLM: 401 Unauthorized", err.Error())
	assert.Equal(t, "You: ", out.String())
	assert.Equal(t, host.StateTerminated, h.State())
}

func TestTurn_EmptyResponse(t *testing.T) {
	ctrl := gomock.NewController(t)
	model := newModel(ctrl)
	model.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(&llms.ContentResponse{}, nil)

	h := host.New(model, nil)
	_, err := h.Turn(chatContext(), "hello")
	assert.True(t, errors.Is(err, host.ErrEmptyResponse))
}

func TestTurn_ToolCallLimit(t *testing.T) {
	ctrl := gomock.NewController(t)
	model := newModel(ctrl)
	search := newSearchTool(ctrl)
	search.EXPECT().Call(gomock.Any(), gomock.Any()).Return("result", nil).Times(2)
	model.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(toolCallResponse(toolCall("", "google_search", `{"query":"again"}`)), nil).
		Times(3)

	ctx := chatContext()
	h := host.New(model, tools.NewRegistry(search), host.WithMaxToolCalls(2), host.WithName("loop"))
	_, err := h.Turn(ctx, "search forever")
	require.Error(t, err)
	assert.True(t, errors.Is(err, host.ErrToolCallLimit))
	assert.Equal(t, "host loop: 3 calls in one turn, limit 2: tool calls limit exceeded", err.Error())

	// the skipped call is answered, followed by the notice
	msgs, err := h.Messages(ctx)
	require.NoError(t, err)
	require.Len(t, msgs, 1+3*2+1)
	skipped := msgs[len(msgs)-2].Parts[0].(llms.ToolCallResponse)
	assert.Equal(t, msgs[len(msgs)-3].ToolCalls()[0].ID, skipped.ToolCallID)
	assert.Equal(t, "Tool call skipped: host loop: 3 calls in one turn, limit 2: tool calls limit exceeded", skipped.Content)
	assert.Equal(t, llms.MessageFromTextParts(llms.RoleAI, host.ToolCallLimitNotice), msgs[len(msgs)-1])
}

func TestRun_ToolCallLimitContinues(t *testing.T) {
	ctrl := gomock.NewController(t)
	model := newModel(ctrl)
	search := newSearchTool(ctrl)
	search.EXPECT().Call(gomock.Any(), gomock.Any()).Return("result", nil).Times(1)

	calls := 0
	model.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(generateFunc(func(ctx context.Context, messages []llms.Message, options ...llms.CallOption) (*llms.ContentResponse, error) {
			calls++
			if calls <= 2 {
				return toolCallResponse(toolCall("", "google_search", `{"query":"again"}`)), nil
			}
			return textResponse("Go is a language."), nil
		})).
		Times(3)

	h := host.New(model, tools.NewRegistry(search), host.WithMaxToolCalls(1))
	var out bytes.Buffer
	err := h.Run(chatContext(), strings.NewReader("search forever\nwhat is go?\nexit\n"), &out)
	require.NoError(t, err)
	assert.Equal(t, "You: Assistant: "+host.ToolCallLimitNotice+"\nYou: Assistant: Go is a language.\nYou: ", out.String())
	assert.Equal(t, host.StateTerminated, h.State())
}

func TestTurn_KeepsTextWithToolCalls(t *testing.T) {
	ctrl := gomock.NewController(t)
	model := newModel(ctrl)
	search := newSearchTool(ctrl)
	search.EXPECT().Call(gomock.Any(), gomock.Any()).Return("result", nil).Times(1)

	withText := toolCallResponse(toolCall("call_1", "google_search", `{"query":"golang"}`))
	withText.Choices[0].Content = "Let me search for it."
	model.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).Return(withText, nil).Times(1)
	model.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).Return(textResponse("done"), nil).Times(1)

	ctx := chatContext()
	h := host.New(model, tools.NewRegistry(search))
	_, err := h.Turn(ctx, "what is golang?")
	require.NoError(t, err)

	msgs, err := h.Messages(ctx)
	require.NoError(t, err)
	require.Len(t, msgs, 4)
	require.Len(t, msgs[1].Parts, 2)
	assert.Equal(t, llms.TextContent{Text: "Let me search for it."}, msgs[1].Parts[0])
	require.Len(t, msgs[1].ToolCalls(), 1)
	assert.Equal(t, "call_1", msgs[1].ToolCalls()[0].ID)
}

// brokenStore fails to read the conversation
type brokenStore struct {
	store.MessageStore
}

func (brokenStore) Messages(context.Context) ([]llms.Message, error) {
	return nil, errors.New("connection reset by peer")
}

func TestRun_StoreErrorIsFatal(t *testing.T) {
	ctrl := gomock.NewController(t)
	model := newModel(ctrl)

	h := host.New(model, nil, host.WithStore(brokenStore{store.NewMemoryStore()}))
	err := h.Run(chatContext(), strings.NewReader("hello\n"), &bytes.Buffer{})
	require.Error(t, err)
	assert.Equal(t, "failed to load conversation: connection reset by peer", err.Error())
}

func TestTurn_NoChatContext(t *testing.T) {
	ctrl := gomock.NewController(t)
	h := host.New(newModel(ctrl), nil)
	_, err := h.Turn(context.Background(), "hello")
	assert.True(t, errors.Is(err, chatmodel.ErrInvalidChatContext))
}

func TestRun_HistoryRoundTrip(t *testing.T) {
	ctrl := gomock.NewController(t)
	model := newModel(ctrl)

	var lastPayload []llms.Message
	answers := []string{"first answer", "second answer"}
	model.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(generateFunc(func(ctx context.Context, messages []llms.Message, options ...llms.CallOption) (*llms.ContentResponse, error) {
			lastPayload = messages
			a := answers[0]
			answers = answers[1:]
			return textResponse(a), nil
		})).
		Times(2)

	ctx := chatContext()
	st := store.NewMemoryStore()
	h := host.New(model, nil, host.WithStore(st))
	err := h.Run(ctx, strings.NewReader("one\ntwo\nQUIT\n"), &bytes.Buffer{})
	require.NoError(t, err)

	expected := []llms.Message{
		llms.MessageFromTextParts(llms.RoleHuman, "one"),
		llms.MessageFromTextParts(llms.RoleAI, "first answer"),
		llms.MessageFromTextParts(llms.RoleHuman, "two"),
		llms.MessageFromTextParts(llms.RoleAI, "second answer"),
	}
	history, err := st.Messages(ctx)
	require.NoError(t, err)
	assert.Equal(t, expected, history)
	assert.Equal(t, expected[:3], lastPayload)

	// the first question titles the chat
	info, err := st.GetChatInfo(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "one", info.Title)
}

func TestIsExitCommand(t *testing.T) {
	for _, s := range []string{"exit", "quit", " Exit ", "QUIT\n"} {
		assert.True(t, host.IsExitCommand(s), s)
	}
	for _, s := range []string{"", "exit now", "q", "bye"} {
		assert.False(t, host.IsExitCommand(s), s)
	}
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "AWAITING_USER_INPUT", host.StateAwaitingInput.String())
	assert.Equal(t, "PROCESSING_TURN", host.StateProcessingTurn.String())
	assert.Equal(t, "TERMINATED", host.StateTerminated.String())
	assert.Equal(t, "State(7)", host.State(7).String())
}

func TestMarkdownRenderer(t *testing.T) {
	r, err := host.NewMarkdownRenderer(80)
	require.NoError(t, err)
	out, err := r.Render("# Title\n\nSome **bold** text")
	require.NoError(t, err)
	assert.Contains(t, out, "Title")
	assert.Contains(t, out, "bold")

	out, err = host.PlainRenderer{}.Render("**as is**")
	require.NoError(t, err)
	assert.Equal(t, "**as is**", out)
}

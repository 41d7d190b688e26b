package host

import (
	"context"
	"strings"
	"time"

	"github.com/effective-security/x/values"
	"github.com/effective-security/xlog"
	"github.com/google/uuid"
	"github.com/suckgeun/mcp-sample/pkg/llms"
	"github.com/suckgeun/mcp-sample/pkg/metricskey"
	"github.com/suckgeun/mcp-sample/tools"
)

// ExecuteToolCalls dispatches the tool calls of the choice one at a time, in order.
// It returns the assistant message with the text and the calls of the choice,
// followed by one tool message per call.
// Calls without ID get a generated one, so every result can be matched to its call.
func ExecuteToolCalls(ctx context.Context, hostName string, registry *tools.Registry, cb Callback, choice *llms.ContentChoice) []llms.Message {
	return toolCallMessages(choice, func(tc llms.ToolCall) string {
		return dispatch(ctx, hostName, registry, cb, tc).Content
	})
}

// RejectToolCalls records the tool calls of the choice without running them,
// each call gets the reason as its result.
func RejectToolCalls(choice *llms.ContentChoice, reason string) []llms.Message {
	return toolCallMessages(choice, func(llms.ToolCall) string {
		return reason
	})
}

func toolCallMessages(choice *llms.ContentChoice, result func(llms.ToolCall) string) []llms.Message {
	if choice == nil || len(choice.ToolCalls) == 0 {
		return nil
	}

	parts := make([]llms.ContentPart, 0, len(choice.ToolCalls)+1)
	if text := strings.TrimSpace(choice.Content); text != "" {
		parts = append(parts, llms.TextContent{Text: choice.Content})
	}
	normalized := make([]llms.ToolCall, 0, len(choice.ToolCalls))
	for _, tc := range choice.ToolCalls {
		if tc.ID == "" {
			tc.ID = "call_" + uuid.NewString()
		}
		tc.Type = values.StringsCoalesce(tc.Type, "function")
		if tc.FunctionCall == nil {
			tc.FunctionCall = &llms.FunctionCall{}
		} else {
			fc := *tc.FunctionCall
			tc.FunctionCall = &fc
		}
		normalized = append(normalized, tc)
		parts = append(parts, tc)
	}

	messages := make([]llms.Message, 0, len(normalized)+1)
	messages = append(messages, llms.MessageFromParts(llms.RoleAI, parts...))
	for _, tc := range normalized {
		messages = append(messages, llms.MessageFromToolResponse(llms.RoleTool, llms.ToolCallResponse{
			ToolCallID: tc.ID,
			Name:       tc.Name(),
			Content:    result(tc),
		}))
	}
	return messages
}

func dispatch(ctx context.Context, hostName string, registry *tools.Registry, cb Callback, tc llms.ToolCall) tools.Result {
	name := tc.Name()
	args := tc.Arguments()

	if t, ok := registry.Lookup(name); ok && cb != nil {
		cb.OnToolStart(ctx, t, hostName, args)
	}

	started := time.Now()
	res := registry.Dispatch(ctx, tc)

	switch res.Kind {
	case tools.ResultUnknown:
		metricskey.StatsToolCallsNotFound.IncrCounter(1, name)
		logger.ContextKV(ctx, xlog.WARNING,
			"host", hostName,
			"status", "tool_not_found",
			"tool", name,
			"available_tools", registry.Names(),
		)
		if cb != nil {
			cb.OnToolNotFound(ctx, hostName, name)
		}
	case tools.ResultInvalidInput, tools.ResultFailed:
		metricskey.PerfToolCall.MeasureSince(started, res.Tool.Name())
		if res.Kind == tools.ResultInvalidInput {
			metricskey.StatsToolCallsInvalidInput.IncrCounter(1, res.Tool.Name())
		} else {
			metricskey.StatsToolCallsFailed.IncrCounter(1, res.Tool.Name())
		}
		logger.ContextKV(ctx, xlog.WARNING,
			"host", hostName,
			"status", "tool_call_failed",
			"tool", res.Tool.Name(),
			"kind", res.Kind.String(),
			"err", res.Err.Error(),
		)
		if cb != nil {
			cb.OnToolError(ctx, res.Tool, hostName, args, res.Err)
		}
	default:
		metricskey.PerfToolCall.MeasureSince(started, res.Tool.Name())
		metricskey.StatsToolCallsSucceeded.IncrCounter(1, res.Tool.Name())
		logger.ContextKV(ctx, xlog.DEBUG,
			"host", hostName,
			"status", "tool_call_response",
			"tool_call_id", tc.ID,
			"tool", res.Tool.Name(),
			"content_length", len(res.Content),
		)
		if cb != nil {
			cb.OnToolEnd(ctx, res.Tool, hostName, args, res.Content)
		}
	}
	return res
}

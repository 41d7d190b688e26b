package host

import (
	"context"

	"github.com/suckgeun/mcp-sample/pkg/llms"
	"github.com/suckgeun/mcp-sample/tools"
)

// Callback receives the events of a host run.
type Callback interface {
	OnTurnStart(ctx context.Context, hostName, input string)
	OnTurnEnd(ctx context.Context, hostName, input, answer string, messages []llms.Message)
	OnTurnError(ctx context.Context, hostName, input string, err error)

	OnLLMCallStart(ctx context.Context, hostName string, payload []llms.Message)
	OnLLMCallEnd(ctx context.Context, hostName string, resp *llms.ContentResponse)

	OnToolStart(ctx context.Context, tool tools.ITool, hostName, input string)
	OnToolEnd(ctx context.Context, tool tools.ITool, hostName, input, output string)
	OnToolError(ctx context.Context, tool tools.ITool, hostName, input string, err error)
	OnToolNotFound(ctx context.Context, hostName, tool string)
}

// Package callbacks provides host.Callback implementations: printer, logger,
// run statistics and fanout.
package callbacks

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/effective-security/xlog"
	"github.com/suckgeun/mcp-sample/host"
	"github.com/suckgeun/mcp-sample/pkg/llms"
	"github.com/suckgeun/mcp-sample/pkg/llmutils"
	"github.com/suckgeun/mcp-sample/tools"
)

// ensure that the callbacks implement the correct interfaces
var (
	_ host.Callback = (*Noop)(nil)
	_ host.Callback = (*Printer)(nil)
	_ host.Callback = (*PackageLogger)(nil)
	_ host.Callback = (*Fanout)(nil)
	_ host.Callback = (*Stats)(nil)
)

// Mode defines the mode for callback printing
type Mode int

const (
	// ModeDefault is the default mode for callback printing
	ModeDefault Mode = iota
	// ModeVerbose prints the outputs of the tools and the conversation at the end of a turn
	ModeVerbose
)

// Fanout is a callback handler that forwards the events to multiple callbacks.
type Fanout struct {
	callbacks []host.Callback
}

func NewFanout(callbacks ...host.Callback) *Fanout {
	return &Fanout{callbacks: callbacks}
}

func (l *Fanout) Add(callback host.Callback) {
	l.callbacks = append(l.callbacks, callback)
}

func (l *Fanout) OnTurnStart(ctx context.Context, hostName, input string) {
	for _, callback := range l.callbacks {
		callback.OnTurnStart(ctx, hostName, input)
	}
}

func (l *Fanout) OnTurnEnd(ctx context.Context, hostName, input, answer string, messages []llms.Message) {
	for _, callback := range l.callbacks {
		callback.OnTurnEnd(ctx, hostName, input, answer, messages)
	}
}

func (l *Fanout) OnTurnError(ctx context.Context, hostName, input string, err error) {
	for _, callback := range l.callbacks {
		callback.OnTurnError(ctx, hostName, input, err)
	}
}

func (l *Fanout) OnLLMCallStart(ctx context.Context, hostName string, payload []llms.Message) {
	for _, callback := range l.callbacks {
		callback.OnLLMCallStart(ctx, hostName, payload)
	}
}

func (l *Fanout) OnLLMCallEnd(ctx context.Context, hostName string, resp *llms.ContentResponse) {
	for _, callback := range l.callbacks {
		callback.OnLLMCallEnd(ctx, hostName, resp)
	}
}

func (l *Fanout) OnToolStart(ctx context.Context, tool tools.ITool, hostName, input string) {
	for _, callback := range l.callbacks {
		callback.OnToolStart(ctx, tool, hostName, input)
	}
}

func (l *Fanout) OnToolEnd(ctx context.Context, tool tools.ITool, hostName, input, output string) {
	for _, callback := range l.callbacks {
		callback.OnToolEnd(ctx, tool, hostName, input, output)
	}
}

func (l *Fanout) OnToolError(ctx context.Context, tool tools.ITool, hostName, input string, err error) {
	for _, callback := range l.callbacks {
		callback.OnToolError(ctx, tool, hostName, input, err)
	}
}

func (l *Fanout) OnToolNotFound(ctx context.Context, hostName, tool string) {
	for _, callback := range l.callbacks {
		callback.OnToolNotFound(ctx, hostName, tool)
	}
}

// Noop does nothing, embed it to implement a subset of the events.
type Noop struct{}

func (l *Noop) OnTurnStart(ctx context.Context, hostName, input string) {}
func (l *Noop) OnTurnEnd(ctx context.Context, hostName, input, answer string, messages []llms.Message) {
}
func (l *Noop) OnTurnError(ctx context.Context, hostName, input string, err error)              {}
func (l *Noop) OnLLMCallStart(ctx context.Context, hostName string, payload []llms.Message)     {}
func (l *Noop) OnLLMCallEnd(ctx context.Context, hostName string, resp *llms.ContentResponse)   {}
func (l *Noop) OnToolStart(ctx context.Context, tool tools.ITool, hostName, input string)       {}
func (l *Noop) OnToolEnd(ctx context.Context, tool tools.ITool, hostName, input, output string) {}
func (l *Noop) OnToolError(ctx context.Context, tool tools.ITool, hostName, input string, err error) {
}
func (l *Noop) OnToolNotFound(ctx context.Context, hostName, tool string) {}

// Printer is a callback handler that prints to the Writer.
type Printer struct {
	Out  io.Writer
	Mode Mode

	lock sync.Mutex
}

func NewPrinter(out io.Writer, mode Mode) *Printer {
	return &Printer{Out: out, Mode: mode}
}

func (l *Printer) OnTurnStart(ctx context.Context, hostName, input string) {
	l.lock.Lock()
	defer l.lock.Unlock()
	fmt.Fprintf(l.Out, "Turn Start: %s\n", hostName)
	fmt.Fprintf(l.Out, "Input: %s\n", input)
}

func (l *Printer) OnTurnEnd(ctx context.Context, hostName, input, answer string, messages []llms.Message) {
	l.lock.Lock()
	defer l.lock.Unlock()
	fmt.Fprintf(l.Out, "Turn End: %s, %d messages\n", hostName, len(messages))
	if l.Mode == ModeVerbose {
		llmutils.PrintMessages(l.Out, messages)
	}
}

func (l *Printer) OnTurnError(ctx context.Context, hostName, input string, err error) {
	l.lock.Lock()
	defer l.lock.Unlock()
	fmt.Fprintf(l.Out, "Turn Error: %s: %s\n", hostName, err.Error())
}

func (l *Printer) OnLLMCallStart(ctx context.Context, hostName string, payload []llms.Message) {
	l.lock.Lock()
	defer l.lock.Unlock()
	fmt.Fprintf(l.Out, "LLM Call: %s: %d messages\n", hostName, len(payload))
}

func (l *Printer) OnLLMCallEnd(ctx context.Context, hostName string, resp *llms.ContentResponse) {
	l.lock.Lock()
	defer l.lock.Unlock()
	calls := 0
	for _, choice := range resp.Choices {
		calls += len(choice.ToolCalls)
	}
	fmt.Fprintf(l.Out, "LLM Call End: %s: %d tool calls\n", hostName, calls)
}

func (l *Printer) OnToolStart(ctx context.Context, tool tools.ITool, hostName, input string) {
	l.lock.Lock()
	defer l.lock.Unlock()
	fmt.Fprintf(l.Out, "Tool Start: %s (%s)\n", tool.Name(), hostName)
	fmt.Fprintf(l.Out, "Input: %s\n", input)
}

func (l *Printer) OnToolEnd(ctx context.Context, tool tools.ITool, hostName, input, output string) {
	l.lock.Lock()
	defer l.lock.Unlock()
	fmt.Fprintf(l.Out, "Tool End: %s (%s)\n", tool.Name(), hostName)
	if l.Mode == ModeVerbose {
		fmt.Fprintf(l.Out, "Output: %s\n", output)
	}
}

func (l *Printer) OnToolError(ctx context.Context, tool tools.ITool, hostName, input string, err error) {
	l.lock.Lock()
	defer l.lock.Unlock()
	fmt.Fprintf(l.Out, "Tool Error: %s (%s): %s\n", tool.Name(), hostName, err.Error())
}

func (l *Printer) OnToolNotFound(ctx context.Context, hostName, tool string) {
	l.lock.Lock()
	defer l.lock.Unlock()
	fmt.Fprintf(l.Out, "Tool Not Found: %s (%s)\n", tool, hostName)
}

// PackageLogger is a callback handler that prints to the logger.
type PackageLogger struct {
	logger *xlog.PackageLogger
}

func NewPackageLogger(logger *xlog.PackageLogger) *PackageLogger {
	return &PackageLogger{logger: logger}
}

func (l *PackageLogger) OnTurnStart(ctx context.Context, hostName, input string) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "turn_start",
		"host", hostName,
		"input", llmutils.Truncate(input, 64),
	)
}

func (l *PackageLogger) OnTurnEnd(ctx context.Context, hostName, input, answer string, messages []llms.Message) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "turn_end",
		"host", hostName,
		"messages", len(messages),
		"result", llmutils.Truncate(answer, 64),
	)
}

func (l *PackageLogger) OnTurnError(ctx context.Context, hostName, input string, err error) {
	l.logger.ContextKV(ctx, xlog.ERROR,
		"event", "turn_error",
		"host", hostName,
		"err", err.Error(),
	)
}

func (l *PackageLogger) OnLLMCallStart(ctx context.Context, hostName string, payload []llms.Message) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "llm_call_start",
		"host", hostName,
		"messages", len(payload),
	)
}

func (l *PackageLogger) OnLLMCallEnd(ctx context.Context, hostName string, resp *llms.ContentResponse) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "llm_call_end",
		"host", hostName,
		"choices", len(resp.Choices),
	)
}

func (l *PackageLogger) OnToolStart(ctx context.Context, tool tools.ITool, hostName, input string) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "tool_start",
		"host", hostName,
		"tool", tool.Name(),
		"input", input,
	)
}

func (l *PackageLogger) OnToolEnd(ctx context.Context, tool tools.ITool, hostName, input, output string) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "tool_end",
		"host", hostName,
		"tool", tool.Name(),
		"output", llmutils.Truncate(output, 256),
	)
}

func (l *PackageLogger) OnToolError(ctx context.Context, tool tools.ITool, hostName, input string, err error) {
	l.logger.ContextKV(ctx, xlog.ERROR,
		"event", "tool_error",
		"host", hostName,
		"tool", tool.Name(),
		"err", err.Error(),
	)
}

func (l *PackageLogger) OnToolNotFound(ctx context.Context, hostName, tool string) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "tool_not_found",
		"host", hostName,
		"tool", tool,
	)
}

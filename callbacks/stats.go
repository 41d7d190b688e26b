package callbacks

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/suckgeun/mcp-sample/pkg/llms"
	"github.com/suckgeun/mcp-sample/pkg/llmutils"
	"github.com/suckgeun/mcp-sample/tools"
)

// TimeNowFn is used for the run duration
var TimeNowFn = time.Now

// RunStats are the counters of a run
type RunStats struct {
	Duration        time.Duration `json:"duration" yaml:"duration"`
	Turns           uint32        `json:"turns" yaml:"turns"`
	TurnsFailed     uint32        `json:"turns_failed" yaml:"turns_failed"`
	LLMCalls        uint32        `json:"llm_calls" yaml:"llm_calls"`
	LLMBytesOut     uint64        `json:"llm_bytes_out" yaml:"llm_bytes_out"`
	LLMBytesIn      uint64        `json:"llm_bytes_in" yaml:"llm_bytes_in"`
	LLMInputTokens  uint64        `json:"llm_input_tokens" yaml:"llm_input_tokens"`
	LLMOutputTokens uint64        `json:"llm_output_tokens" yaml:"llm_output_tokens"`
	ToolCalls       uint32        `json:"tool_calls" yaml:"tool_calls"`
	ToolCallsFailed uint32        `json:"tool_calls_failed" yaml:"tool_calls_failed"`
	ToolNotFound    uint32        `json:"tool_not_found" yaml:"tool_not_found"`
}

// Stats is a callback handler that counts the events of a run.
type Stats struct {
	Noop

	started time.Time
	stats   RunStats
	lock    sync.Mutex
}

func NewStats() *Stats {
	return &Stats{started: TimeNowFn()}
}

// Get returns the counters collected so far
func (l *Stats) Get() RunStats {
	l.lock.Lock()
	defer l.lock.Unlock()
	s := l.stats
	s.Duration = TimeNowFn().Sub(l.started)
	return s
}

// Print writes a one line summary
func (l *Stats) Print(w io.Writer) {
	s := l.Get()
	fmt.Fprintf(w, "LLM calls: %d, tool calls: %d (failed: %d, not found: %d), tokens: %d in / %d out, duration: %s\n",
		s.LLMCalls, s.ToolCalls, s.ToolCallsFailed, s.ToolNotFound,
		s.LLMInputTokens, s.LLMOutputTokens, s.Duration.Round(time.Millisecond))
}

func (l *Stats) OnTurnStart(ctx context.Context, hostName, input string) {
	l.lock.Lock()
	defer l.lock.Unlock()
	l.stats.Turns++
}

func (l *Stats) OnTurnError(ctx context.Context, hostName, input string, err error) {
	l.lock.Lock()
	defer l.lock.Unlock()
	l.stats.TurnsFailed++
}

func (l *Stats) OnLLMCallStart(ctx context.Context, hostName string, payload []llms.Message) {
	l.lock.Lock()
	defer l.lock.Unlock()
	l.stats.LLMCalls++
	l.stats.LLMBytesOut += llmutils.CountMessagesContentSize(payload)
}

func (l *Stats) OnLLMCallEnd(ctx context.Context, hostName string, resp *llms.ContentResponse) {
	in, out, _ := llmutils.CountTokens(resp)

	l.lock.Lock()
	defer l.lock.Unlock()
	l.stats.LLMBytesIn += llmutils.CountResponseContentSize(resp)
	l.stats.LLMInputTokens += uint64(in)
	l.stats.LLMOutputTokens += uint64(out)
}

func (l *Stats) OnToolStart(ctx context.Context, tool tools.ITool, hostName, input string) {
	l.lock.Lock()
	defer l.lock.Unlock()
	l.stats.ToolCalls++
}

func (l *Stats) OnToolError(ctx context.Context, tool tools.ITool, hostName, input string, err error) {
	l.lock.Lock()
	defer l.lock.Unlock()
	l.stats.ToolCallsFailed++
}

func (l *Stats) OnToolNotFound(ctx context.Context, hostName, tool string) {
	l.lock.Lock()
	defer l.lock.Unlock()
	l.stats.ToolCalls++
	l.stats.ToolNotFound++
}

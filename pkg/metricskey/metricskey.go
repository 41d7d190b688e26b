package metricskey

import "github.com/effective-security/metrics"

// Stats
var (
	// StatsLLMMessagesSent is base for counter metric for total messages sent to LLM
	StatsLLMMessagesSent = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_llm_messages_sent",
		Help:         "stats_llm_messages_sent provides total messages sent to LLM",
		RequiredTags: []string{"host", "model"},
	}

	StatsLLMBytesSent = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_llm_bytes_sent",
		Help:         "stats_llm_bytes_sent provides total bytes sent to LLM",
		RequiredTags: []string{"host", "model"},
	}

	StatsLLMBytesReceived = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_llm_bytes_received",
		Help:         "stats_llm_bytes_received provides total bytes received from LLM",
		RequiredTags: []string{"host", "model"},
	}

	StatsLLMInputTokens = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_llm_input_tokens",
		Help:         "stats_llm_input_tokens provides total input tokens sent to LLM",
		RequiredTags: []string{"host", "model"},
	}

	StatsLLMOutputTokens = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_llm_output_tokens",
		Help:         "stats_llm_output_tokens provides total output tokens received from LLM",
		RequiredTags: []string{"host", "model"},
	}

	StatsTurnsSucceeded = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_turns_succeeded",
		Help:         "stats_turns_succeeded provides total chat turns completed with a final answer",
		RequiredTags: []string{"host"},
	}

	StatsTurnsFailed = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_turns_failed",
		Help:         "stats_turns_failed provides total chat turns ended by an error",
		RequiredTags: []string{"host"},
	}

	StatsToolCallsSucceeded = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_tool_calls_succeeded",
		Help:         "stats_tool_calls_succeeded provides total tool calls succeeded",
		RequiredTags: []string{"tool"},
	}

	StatsToolCallsFailed = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_tool_calls_failed",
		Help:         "stats_tool_calls_failed provides total tool calls failed",
		RequiredTags: []string{"tool"},
	}

	StatsToolCallsNotFound = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_tool_calls_not_found",
		Help:         "stats_tool_calls_not_found provides total tool calls not found",
		RequiredTags: []string{"tool"},
	}

	StatsToolCallsInvalidInput = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_tool_calls_invalid_input",
		Help:         "stats_tool_calls_invalid_input provides total tool calls with arguments that failed to parse",
		RequiredTags: []string{"tool"},
	}

	StatsSearchResults = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_search_results",
		Help:         "stats_search_results provides total search results returned to the model",
		RequiredTags: []string{"backend"},
	}

	StatsSearchFailed = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_search_failed",
		Help:         "stats_search_failed provides total search requests failed",
		RequiredTags: []string{"backend"},
	}

	StatsAnalysisIterations = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_analysis_iterations",
		Help:         "stats_analysis_iterations provides total model iterations of the company analysis loop",
		RequiredTags: []string{"status"},
	}
)

// Perf
var (
	PerfTurn = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_turn",
		Help:         "perf_turn provides duration of a chat turn",
		RequiredTags: []string{"host"},
	}

	PerfToolCall = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_tool_call",
		Help:         "perf_tool_call provides duration of tool call",
		RequiredTags: []string{"tool"},
	}

	PerfSearch = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_search",
		Help:         "perf_search provides duration of search backend request",
		RequiredTags: []string{"backend"},
	}

	PerfAnalysisRun = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_analysis_run",
		Help:         "perf_analysis_run provides duration of company analysis",
		RequiredTags: []string{"status"},
	}
)

// Metrics returns slice of metrics from this repo
// keep sorted by name
var Metrics = []*metrics.Describe{
	&PerfAnalysisRun,
	&PerfSearch,
	&PerfToolCall,
	&PerfTurn,
	&StatsAnalysisIterations,
	&StatsLLMBytesReceived,
	&StatsLLMBytesSent,
	&StatsLLMInputTokens,
	&StatsLLMMessagesSent,
	&StatsLLMOutputTokens,
	&StatsSearchFailed,
	&StatsSearchResults,
	&StatsToolCallsFailed,
	&StatsToolCallsInvalidInput,
	&StatsToolCallsNotFound,
	&StatsToolCallsSucceeded,
	&StatsTurnsFailed,
	&StatsTurnsSucceeded,
}

package host

import (
	"context"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/x/values"
	"github.com/effective-security/xlog"
	"github.com/suckgeun/mcp-sample/chatmodel"
	"github.com/suckgeun/mcp-sample/pkg/llms"
	"github.com/suckgeun/mcp-sample/pkg/llmutils"
	"github.com/suckgeun/mcp-sample/pkg/metricskey"
	"github.com/suckgeun/mcp-sample/store"
	"github.com/suckgeun/mcp-sample/tools"
)

var logger = xlog.NewPackageLogger("github.com/suckgeun/mcp-sample", "host")

const (
	// DefaultName is the host name used in logs and metrics
	DefaultName = "chat"
	// DefaultMaxToolCalls is the limit of tool calls in one turn
	DefaultMaxToolCalls = 32
	// ToolCallLimitNotice is the answer recorded when a turn exceeds the tool calls limit
	ToolCallLimitNotice = "I stopped because this question needed too many tool calls. Please narrow it down and ask again."
)

var (
	// ErrToolCallLimit is returned when a turn requests more tool calls than allowed.
	ErrToolCallLimit = errors.New("tool calls limit exceeded")
	// ErrEmptyResponse is returned when the model response has no choices.
	ErrEmptyResponse = errors.New("model returned empty response")
)

// Option configures the Host
type Option func(*Host)

// WithName sets the host name, used in logs, metrics and callbacks.
func WithName(name string) Option {
	return func(h *Host) {
		h.name = name
	}
}

// WithSystemPrompt sets the system prompt sent as the first message of every model call.
func WithSystemPrompt(prompt string) Option {
	return func(h *Host) {
		h.systemPrompt = strings.TrimSpace(prompt)
	}
}

// WithMaxToolCalls sets the limit of tool calls in one turn.
func WithMaxToolCalls(limit int) Option {
	return func(h *Host) {
		h.maxToolCalls = limit
	}
}

// WithModel sets the model name passed in the call options.
func WithModel(model string) Option {
	return func(h *Host) {
		h.model = model
	}
}

// WithCallback sets the callback.
func WithCallback(cb Callback) Option {
	return func(h *Host) {
		h.callback = cb
	}
}

// WithStore sets the conversation store.
func WithStore(st store.MessageStore) Option {
	return func(h *Host) {
		h.store = st
	}
}

// WithRenderer sets the renderer of the answers printed by Run.
func WithRenderer(r Renderer) Option {
	return func(h *Host) {
		h.renderer = r
	}
}

// WithColor enables the colored labels printed by Run.
func WithColor(enabled bool) Option {
	return func(h *Host) {
		h.color = enabled
	}
}

// Host is the chat host.
// It keeps the conversation in the store, keyed by the chat ID of the context.
type Host struct {
	llm      llms.Model
	registry *tools.Registry
	store    store.MessageStore
	callback Callback
	renderer Renderer

	name         string
	model        string
	systemPrompt string
	maxToolCalls int
	color        bool

	state State
}

// New returns a host over the model and the registry.
// By default the conversation is kept in memory.
func New(llm llms.Model, registry *tools.Registry, opts ...Option) *Host {
	h := &Host{
		llm:      llm,
		registry: registry,
		name:     DefaultName,
		state:    StateAwaitingInput,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.registry == nil {
		h.registry = tools.NewRegistry()
	}
	if h.store == nil {
		h.store = store.NewMemoryStore()
	}
	if h.renderer == nil {
		h.renderer = PlainRenderer{}
	}
	h.maxToolCalls = values.NumbersCoalesce(h.maxToolCalls, DefaultMaxToolCalls)
	return h
}

// Name returns the host name.
func (h *Host) Name() string {
	return h.name
}

// State returns the state of the host loop.
func (h *Host) State() State {
	return h.state
}

// Messages returns the conversation of the chat in the context.
func (h *Host) Messages(ctx context.Context) ([]llms.Message, error) {
	return h.store.Messages(ctx)
}

// Turn processes one user input: the model is called with the conversation,
// the tool calls it requests are dispatched in order and their results appended,
// until the model replies with a text answer, which is returned.
// Errors of the model call are returned as is, the conversation keeps the messages
// appended before the failure.
func (h *Host) Turn(ctx context.Context, input string) (string, error) {
	if chatmodel.GetChatID(ctx) == "" {
		return "", errors.WithStack(chatmodel.ErrInvalidChatContext)
	}

	started := time.Now()
	defer metricskey.PerfTurn.MeasureSince(started, h.name)

	if h.callback != nil {
		h.callback.OnTurnStart(ctx, h.name, input)
	}

	answer, err := h.turn(ctx, input)
	if err != nil {
		metricskey.StatsTurnsFailed.IncrCounter(1, h.name)
		if h.callback != nil {
			h.callback.OnTurnError(ctx, h.name, input, err)
		}
		return "", err
	}

	metricskey.StatsTurnsSucceeded.IncrCounter(1, h.name)
	if h.callback != nil {
		// the turn is complete, a failed read only leaves the callback without history
		history, err := h.store.Messages(ctx)
		if err != nil {
			logger.ContextKV(ctx, xlog.WARNING, "host", h.name, "reason", "messages", "err", err.Error())
		}
		h.callback.OnTurnEnd(ctx, h.name, input, answer, history)
	}
	return answer, nil
}

func (h *Host) turn(ctx context.Context, input string) (string, error) {
	history, err := h.store.Messages(ctx)
	if err != nil {
		return "", errors.WithMessage(err, "failed to load conversation")
	}
	if len(history) == 0 {
		// the first question titles the chat
		if err := h.store.UpdateChat(ctx, llmutils.Truncate(input, 64), nil); err != nil {
			return "", errors.WithMessage(err, "failed to save chat")
		}
	}
	if err := h.store.Add(ctx, llms.MessageFromTextParts(llms.RoleHuman, input)); err != nil {
		return "", errors.WithMessage(err, "failed to save message")
	}

	var opts []llms.CallOption
	if h.model != "" {
		opts = append(opts, llms.WithModel(h.model))
	}
	if h.registry.Len() > 0 {
		opts = append(opts, llms.WithTools(h.registry.Definitions()))
	}

	toolCalls := 0
	for {
		resp, err := h.generate(ctx, opts...)
		if err != nil {
			return "", err
		}

		choice := resp.Choices[0]
		if len(choice.ToolCalls) == 0 {
			answer := choice.Content
			if err := h.store.Add(ctx, llms.MessageFromTextParts(llms.RoleAI, answer)); err != nil {
				return "", errors.WithMessage(err, "failed to save message")
			}
			logger.ContextKV(ctx, xlog.DEBUG,
				"host", h.name,
				"status", "final_answer",
				"tool_calls", toolCalls,
				"human", llmutils.Truncate(input, 64),
				"ai", llmutils.Truncate(answer, 64),
			)
			return answer, nil
		}

		toolCalls += len(choice.ToolCalls)
		if toolCalls > h.maxToolCalls {
			limitErr := errors.Wrapf(ErrToolCallLimit, "host %s: %d calls in one turn, limit %d", h.name, toolCalls, h.maxToolCalls)
			// the calls are answered, so the conversation stays valid for the next turn
			msgs := RejectToolCalls(choice, "Tool call skipped: "+limitErr.Error())
			msgs = append(msgs, llms.MessageFromTextParts(llms.RoleAI, ToolCallLimitNotice))
			if err := h.store.Add(ctx, msgs...); err != nil {
				return "", errors.WithMessage(err, "failed to save messages")
			}
			return "", limitErr
		}

		msgs := ExecuteToolCalls(ctx, h.name, h.registry, h.callback, choice)
		if err := h.store.Add(ctx, msgs...); err != nil {
			return "", errors.WithMessage(err, "failed to save messages")
		}
	}
}

// generate calls the model with the system prompt and the stored conversation
func (h *Host) generate(ctx context.Context, opts ...llms.CallOption) (*llms.ContentResponse, error) {
	var payload []llms.Message
	if h.systemPrompt != "" {
		payload = append(payload, llms.MessageFromTextParts(llms.RoleSystem, h.systemPrompt))
	}
	history, err := h.store.Messages(ctx)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to load conversation")
	}
	payload = append(payload, history...)

	return Generate(ctx, h.name, h.llm, h.callback, payload, opts...)
}

// Generate calls the model and records the call metrics.
// A response without choices is returned as ErrEmptyResponse.
func Generate(ctx context.Context, hostName string, llm llms.Model, cb Callback, payload []llms.Message, opts ...llms.CallOption) (*llms.ContentResponse, error) {
	var callOpts llms.CallOptions
	for _, opt := range opts {
		opt(&callOpts)
	}
	model := values.StringsCoalesce(callOpts.Model, string(llm.GetProviderType()))

	bytesSent := llmutils.CountMessagesContentSize(payload)
	metricskey.StatsLLMMessagesSent.IncrCounter(float64(len(payload)), hostName, model)
	metricskey.StatsLLMBytesSent.IncrCounter(float64(bytesSent), hostName, model)

	if cb != nil {
		cb.OnLLMCallStart(ctx, hostName, payload)
	}

	resp, err := llm.GenerateContent(ctx, payload, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate content from LLM")
	}
	if resp == nil || len(resp.Choices) == 0 {
		return nil, errors.Wrapf(ErrEmptyResponse, "host %s", hostName)
	}

	if cb != nil {
		cb.OnLLMCallEnd(ctx, hostName, resp)
	}

	metricskey.StatsLLMBytesReceived.IncrCounter(float64(llmutils.CountResponseContentSize(resp)), hostName, model)
	in, out, _ := llmutils.CountTokens(resp)
	metricskey.StatsLLMInputTokens.IncrCounter(float64(in), hostName, model)
	metricskey.StatsLLMOutputTokens.IncrCounter(float64(out), hostName, model)
	return resp, nil
}

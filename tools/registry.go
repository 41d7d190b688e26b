package tools

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
	"github.com/suckgeun/mcp-sample/chatmodel"
	"github.com/suckgeun/mcp-sample/pkg/llms"
)

var logger = xlog.NewPackageLogger("github.com/suckgeun/mcp-sample", "tools")

// ResultKind classifies the outcome of a dispatched tool call.
type ResultKind int

const (
	// ResultOK is returned when the tool returned its output.
	ResultOK ResultKind = iota
	// ResultUnknown is returned when no tool is registered with the requested name.
	ResultUnknown
	// ResultInvalidInput is returned when the tool could not parse the arguments.
	ResultInvalidInput
	// ResultFailed is returned when the tool returned an error.
	ResultFailed
)

func (k ResultKind) String() string {
	switch k {
	case ResultOK:
		return "ok"
	case ResultUnknown:
		return "unknown"
	case ResultInvalidInput:
		return "invalid_input"
	case ResultFailed:
		return "failed"
	}
	return fmt.Sprintf("ResultKind(%d)", int(k))
}

// Result is the outcome of Registry.Dispatch.
// Content is always set and is what the model receives as the tool output.
type Result struct {
	Kind    ResultKind
	Tool    ITool
	Content string
	Err     error
}

// Registry is a static set of tools, built once and never modified.
type Registry struct {
	list   []ITool
	byName map[string]ITool
}

// NewRegistry returns a registry of the tools.
// Names are matched case-insensitively, and the first tool registered with a name wins.
func NewRegistry(list ...ITool) *Registry {
	r := &Registry{
		byName: make(map[string]ITool, len(list)),
	}
	for _, t := range list {
		key := strings.ToLower(t.Name())
		if _, ok := r.byName[key]; ok {
			logger.KV(xlog.WARNING, "reason", "duplicate_tool", "tool", t.Name())
			continue
		}
		r.byName[key] = t
		r.list = append(r.list, t)
	}
	return r
}

// Tools returns the registered tools, in registration order.
func (r *Registry) Tools() []ITool {
	return slices.Clone(r.list)
}

// Names returns the names of the registered tools.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.list))
	for _, t := range r.list {
		names = append(names, t.Name())
	}
	return names
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	return len(r.list)
}

// Lookup returns the tool by name.
func (r *Registry) Lookup(name string) (ITool, bool) {
	t, ok := r.byName[strings.ToLower(name)]
	return t, ok
}

// Definitions returns the function definitions of the registered tools.
func (r *Registry) Definitions() []llms.Tool {
	defs := make([]llms.Tool, 0, len(r.list))
	for _, t := range r.list {
		defs = append(defs, ToLLMTool(t))
	}
	return defs
}

// Dispatch runs the tool call and classifies the outcome.
// It never returns an error: every outcome is described by the Result content.
func (r *Registry) Dispatch(ctx context.Context, call llms.ToolCall) Result {
	name := call.Name()
	t, ok := r.Lookup(name)
	if !ok {
		return Result{
			Kind: ResultUnknown,
			Content: fmt.Sprintf("Tool %q is not available. Available tools: %s.",
				name, strings.Join(r.Names(), ", ")),
			Err: errors.Newf("tool not found: %s", name),
		}
	}

	out, err := t.Call(ctx, call.Arguments())
	if err != nil {
		if errors.Is(err, chatmodel.ErrFailedUnmarshalInput) {
			return Result{
				Kind:    ResultInvalidInput,
				Tool:    t,
				Content: fmt.Sprintf("Invalid input for %s: %s", t.Name(), err.Error()),
				Err:     err,
			}
		}
		return Result{
			Kind:    ResultFailed,
			Tool:    t,
			Content: "Tool call failed: " + err.Error(),
			Err:     err,
		}
	}
	return Result{
		Kind:    ResultOK,
		Tool:    t,
		Content: out,
	}
}

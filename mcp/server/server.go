// Package server exposes tools.ITool values as an MCP server.
package server

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/suckgeun/mcp-sample/pkg/metricskey"
	"github.com/suckgeun/mcp-sample/tools"
)

var logger = xlog.NewPackageLogger("github.com/suckgeun/mcp-sample", "mcp/server")

// Config describes the server implementation
type Config struct {
	Name         string
	Version      string
	Instructions string
}

// New returns the MCP server with the tools registered.
func New(cfg Config, list ...tools.ITool) (*mcpsdk.Server, error) {
	version := cfg.Version
	if version == "" {
		version = "dev"
	}
	srv := mcpsdk.NewServer(&mcpsdk.Implementation{Name: cfg.Name, Version: version}, &mcpsdk.ServerOptions{
		Instructions: cfg.Instructions,
	})
	for _, t := range list {
		if err := AddTool(srv, t); err != nil {
			return nil, err
		}
	}
	return srv, nil
}

// AddTool registers the tool with the server.
// Tool errors are returned to the client as IsError results.
func AddTool(srv *mcpsdk.Server, t tools.ITool) error {
	inputSchema, err := toSchemaMap(t)
	if err != nil {
		return err
	}

	srv.AddTool(&mcpsdk.Tool{
		Name:        t.Name(),
		Description: t.Description(),
		InputSchema: inputSchema,
	}, func(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
		return callTool(ctx, t, req.Params.Arguments), nil
	})
	return nil
}

func callTool(ctx context.Context, t tools.ITool, args json.RawMessage) *mcpsdk.CallToolResult {
	started := time.Now()
	defer metricskey.PerfToolCall.MeasureSince(started, t.Name())

	input := string(args)
	if input == "" {
		input = "{}"
	}

	out, err := t.Call(ctx, input)
	if err != nil {
		metricskey.StatsToolCallsFailed.IncrCounter(1, t.Name())
		logger.ContextKV(ctx, xlog.ERROR,
			"tool", t.Name(),
			"err", err.Error(),
		)
		return &mcpsdk.CallToolResult{
			IsError: true,
			Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: err.Error()}},
		}
	}

	metricskey.StatsToolCallsSucceeded.IncrCounter(1, t.Name())
	logger.ContextKV(ctx, xlog.DEBUG,
		"status", "tool_called",
		"tool", t.Name(),
		"size", len(out),
	)
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: out}},
	}
}

// toSchemaMap returns the tool parameters as a plain JSON object.
func toSchemaMap(t tools.ITool) (map[string]any, error) {
	m := map[string]any{}
	if params := t.Parameters(); params != nil {
		js, err := json.Marshal(params)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to marshal schema of %s", t.Name())
		}
		if err = json.Unmarshal(js, &m); err != nil {
			return nil, errors.Wrapf(err, "failed to unmarshal schema of %s", t.Name())
		}
	}
	if _, ok := m["type"]; !ok {
		m["type"] = "object"
	}
	if _, ok := m["properties"]; !ok {
		m["properties"] = map[string]any{}
	}
	return m, nil
}

// ServeStdio runs the server over stdin/stdout until the client disconnects,
// or the context is cancelled.
func ServeStdio(ctx context.Context, srv *mcpsdk.Server) error {
	logger.ContextKV(ctx, xlog.INFO, "status", "serving", "transport", "stdio")
	err := srv.Run(ctx, &mcpsdk.StdioTransport{})
	if err != nil && !errors.Is(err, context.Canceled) {
		return errors.Wrap(err, "mcp server stopped")
	}
	return nil
}

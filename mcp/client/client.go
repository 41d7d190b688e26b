// Package client starts tool provider subprocesses, connects to them as an MCP client,
// and exposes their tools as tools.ITool values named <server>__<tool>.
package client

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"slices"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/suckgeun/mcp-sample/config"
	"github.com/suckgeun/mcp-sample/tools"
)

var logger = xlog.NewPackageLogger("github.com/suckgeun/mcp-sample", "mcp/client")

// Separator joins the server name and the tool name.
const Separator = "__"

// transportBuilder is overridden in tests to stub the subprocess transport.
var transportBuilder = buildTransport

// ToolName returns the unique name of the server tool.
func ToolName(server, tool string) string {
	return server + Separator + tool
}

// SplitToolName returns the server and the tool name.
func SplitToolName(name string) (server, tool string, ok bool) {
	return strings.Cut(name, Separator)
}

// Client holds the sessions with the tool providers.
type Client struct {
	impl     *mcpsdk.Client
	sessions []*session
}

type session struct {
	name  string
	cs    *mcpsdk.ClientSession
	tools []tools.ITool
}

// New returns a client without sessions.
func New(name, version string) *Client {
	if version == "" {
		version = "dev"
	}
	return &Client{
		impl: mcpsdk.NewClient(&mcpsdk.Implementation{Name: name, Version: version}, nil),
	}
}

// Start connects to every configured provider, in name order.
// The context must live as long as the sessions: it bounds the subprocesses.
// On error the sessions already started are closed.
func Start(ctx context.Context, name, version string, providers map[string]*config.ToolProvider) (*Client, error) {
	c := New(name, version)

	names := make([]string, 0, len(providers))
	for n := range providers {
		names = append(names, n)
	}
	sort.Strings(names)

	for _, n := range names {
		if _, err := c.Connect(ctx, n, providers[n]); err != nil {
			_ = c.Close()
			return nil, err
		}
	}
	return c, nil
}

// Connect starts the provider and lists its tools.
func (c *Client) Connect(ctx context.Context, name string, cfg *config.ToolProvider) ([]tools.ITool, error) {
	if strings.Contains(name, Separator) {
		return nil, errors.Errorf("invalid server name %q: must not contain %q", name, Separator)
	}
	transport, err := transportBuilder(ctx, cfg)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to build transport for %s", name)
	}
	cs, err := c.impl.Connect(ctx, transport, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to connect to %s", name)
	}

	s := &session{name: name, cs: cs}
	var names []string
	for t, err := range cs.Tools(ctx, nil) {
		if err != nil {
			_ = cs.Close()
			return nil, errors.Wrapf(err, "failed to list tools of %s", name)
		}
		rt, err := newRemoteTool(name, t, cs)
		if err != nil {
			_ = cs.Close()
			return nil, err
		}
		s.tools = append(s.tools, rt)
		names = append(names, t.Name)
	}
	c.sessions = append(c.sessions, s)

	logger.ContextKV(ctx, xlog.INFO,
		"status", "connected",
		"server", name,
		"tools", names,
	)
	return slices.Clone(s.tools), nil
}

// Tools returns the tools of all sessions.
func (c *Client) Tools() []tools.ITool {
	var list []tools.ITool
	for _, s := range c.sessions {
		list = append(list, s.tools...)
	}
	return list
}

// Describe returns one line per server, listing the names of its tools.
func (c *Client) Describe() []string {
	var lines []string
	for _, s := range c.sessions {
		var names []string
		for _, t := range s.tools {
			_, tool, _ := SplitToolName(t.Name())
			names = append(names, tool)
		}
		lines = append(lines, fmt.Sprintf("[%s] available tools → [%s]", s.name, strings.Join(names, ", ")))
	}
	return lines
}

// Close ends all sessions, which stops the subprocesses.
func (c *Client) Close() error {
	var errs []error
	for _, s := range c.sessions {
		if err := s.cs.Close(); err != nil {
			errs = append(errs, errors.Wrapf(err, "failed to close %s", s.name))
		}
	}
	c.sessions = nil
	return errors.Join(errs...)
}

func buildTransport(ctx context.Context, cfg *config.ToolProvider) (mcpsdk.Transport, error) {
	if cfg == nil || strings.TrimSpace(cfg.Command) == "" {
		return nil, errors.New("command is empty")
	}
	// #nosec G204 -- the command comes from the host configuration
	cmd := exec.CommandContext(ctx, cfg.Command, cfg.Args...)
	if len(cfg.Env) > 0 {
		cmd.Env = os.Environ()
		for k, v := range cfg.Env {
			cmd.Env = append(cmd.Env, k+"="+v)
		}
	}
	cmd.Stderr = os.Stderr
	return &mcpsdk.CommandTransport{Command: cmd}, nil
}

package client

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/invopop/jsonschema"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/suckgeun/mcp-sample/chatmodel"
	"github.com/suckgeun/mcp-sample/pkg/llmutils"
	"github.com/suckgeun/mcp-sample/pkg/schema"
	"github.com/suckgeun/mcp-sample/tools"
)

// RemoteTool forwards calls to a tool of an MCP server.
type RemoteTool struct {
	name        string
	remoteName  string
	description string
	params      *jsonschema.Schema
	cs          *mcpsdk.ClientSession
}

var _ tools.ITool = (*RemoteTool)(nil)

func newRemoteTool(server string, t *mcpsdk.Tool, cs *mcpsdk.ClientSession) (*RemoteTool, error) {
	rt := &RemoteTool{
		name:        ToolName(server, t.Name),
		remoteName:  t.Name,
		description: t.Description,
		cs:          cs,
	}
	if t.InputSchema != nil {
		s, err := schema.FromAny(t.InputSchema)
		if err != nil {
			return nil, errors.WithMessagef(err, "invalid input schema of %s", rt.name)
		}
		rt.params = s
	}
	return rt, nil
}

func (t *RemoteTool) Name() string {
	return t.name
}

func (t *RemoteTool) Description() string {
	return t.description
}

func (t *RemoteTool) Parameters() *jsonschema.Schema {
	return t.params
}

// Call forwards the JSON arguments and returns the text content of the result.
// A result flagged as error is returned as text, prefixed with "tool error: ".
func (t *RemoteTool) Call(ctx context.Context, input string) (string, error) {
	args := map[string]any{}
	if strings.TrimSpace(input) != "" {
		if err := json.Unmarshal(llmutils.CleanJSON([]byte(input)), &args); err != nil {
			return "", errors.WithStack(chatmodel.ErrFailedUnmarshalInput)
		}
	}

	res, err := t.cs.CallTool(ctx, &mcpsdk.CallToolParams{
		Name:      t.remoteName,
		Arguments: args,
	})
	if err != nil {
		return "", errors.Wrapf(err, "failed to call %s", t.name)
	}

	text := ContentText(res.Content)
	if res.IsError {
		return "tool error: " + text, nil
	}
	return text, nil
}

// ContentText concatenates the text content of the result.
// Non-text content is returned as JSON.
func ContentText(content []mcpsdk.Content) string {
	var parts []string
	for _, c := range content {
		switch v := c.(type) {
		case *mcpsdk.TextContent:
			parts = append(parts, v.Text)
		default:
			js, err := json.Marshal(v)
			if err == nil {
				parts = append(parts, string(js))
			}
		}
	}
	return strings.Join(parts, "\n")
}

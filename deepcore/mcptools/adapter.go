package mcptools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/deepline-systems/sdlcengine/deepcore/toolcall"
	"github.com/deepline-systems/sdlcengine/deepcore/typeutil"
)

// Caller is the slice of the MCP client the adapter needs. *client.Client
// satisfies it; tests substitute a fake.
type Caller interface {
	ListTools(ctx context.Context, req mcp.ListToolsRequest) (*mcp.ListToolsResult, error)
	CallTool(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)
}

var _ Caller = (*client.Client)(nil)

// Options tunes tool registration.
type Options struct {
	// Category is attached to every registered descriptor.
	Category string
	// Fallbacks maps tool names to secondary transports, typically direct
	// REST calls, used when the MCP call times out or fails.
	Fallbacks map[string]toolcall.TransportFunc
	// Translations maps tool names to argument translators for their
	// fallback transport.
	Translations map[string]toolcall.TranslateFunc
}

// RegisterTools lists the server's tools and registers each one in the
// registry with MCP as primary transport. Returns the number registered.
func RegisterTools(ctx context.Context, reg *toolcall.Registry, caller Caller, opts Options) (int, error) {
	result, err := caller.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return 0, fmt.Errorf("failed to list mcp tools: %w", err)
	}

	registered := 0
	for _, tool := range result.Tools {
		desc := &toolcall.Descriptor{
			Name:        tool.Name,
			Description: tool.Description,
			Category:    opts.Category,
			Schema:      marshalSchema(tool),
			Primary:     callTransport(caller, tool.Name),
		}
		if fb, ok := opts.Fallbacks[tool.Name]; ok {
			desc.Fallback = fb
			desc.TranslateArgs = opts.Translations[tool.Name]
		}
		if err := reg.Register(desc); err != nil {
			return registered, fmt.Errorf("failed to register tool %s: %w", tool.Name, err)
		}
		registered++
	}
	return registered, nil
}

// marshalSchema extracts the tool's input schema, or nil when the tool
// declares no parameters.
func marshalSchema(tool mcp.Tool) json.RawMessage {
	if len(tool.InputSchema.Properties) == 0 {
		return nil
	}
	data, err := json.Marshal(tool.InputSchema)
	if err != nil {
		return nil
	}
	return data
}

// callTransport wraps one MCP tool call as a TransportFunc.
func callTransport(caller Caller, name string) toolcall.TransportFunc {
	return func(ctx context.Context, args map[string]any) (map[string]any, error) {
		req := mcp.CallToolRequest{}
		req.Params.Name = name
		req.Params.Arguments = args

		result, err := caller.CallTool(ctx, req)
		if err != nil {
			return nil, err
		}
		text := resultText(result)
		if result.IsError {
			return nil, fmt.Errorf("tool %s returned an error: %s", name, text)
		}

		// Structured replies come back as JSON text; pass them through as a
		// payload when they parse to an object, otherwise wrap the raw text.
		var reply any
		if err := json.Unmarshal([]byte(text), &reply); err == nil {
			if payload, ok := typeutil.SafeMapStringAny(reply); ok {
				return payload, nil
			}
		}
		return map[string]any{"text": text}, nil
	}
}

// resultText extracts the text content from a tool result.
func resultText(r *mcp.CallToolResult) string {
	if r == nil || len(r.Content) == 0 {
		return ""
	}
	for _, c := range r.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

package mcptools

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepline-systems/sdlcengine/deepcore/testutil"
	"github.com/deepline-systems/sdlcengine/deepcore/toolcall"
)

// fakeCaller is a canned MCP server for adapter tests.
type fakeCaller struct {
	tools     []mcp.Tool
	callErr   error
	lastCall  *mcp.CallToolRequest
	replyText string
	replyErr  bool
}

func (f *fakeCaller) ListTools(ctx context.Context, req mcp.ListToolsRequest) (*mcp.ListToolsResult, error) {
	return &mcp.ListToolsResult{Tools: f.tools}, nil
}

func (f *fakeCaller) CallTool(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	f.lastCall = &req
	if f.callErr != nil {
		return nil, f.callErr
	}
	if f.replyErr {
		return mcp.NewToolResultError(f.replyText), nil
	}
	return mcp.NewToolResultText(f.replyText), nil
}

func workItemTool() mcp.Tool {
	return mcp.Tool{
		Name:        "workitem_get",
		Description: "Fetch one work item by id",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"id": map[string]any{"type": "integer"},
			},
			Required: []string{"id"},
		},
	}
}

func TestRegisterToolsAndInvoke(t *testing.T) {
	caller := &fakeCaller{
		tools:     []mcp.Tool{workItemTool()},
		replyText: `{"id": 7, "title": "fix login"}`,
	}
	reg := toolcall.NewRegistry()

	n, err := RegisterTools(context.Background(), reg, caller, Options{Category: "azure-devops"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	desc := reg.Get("workitem_get")
	require.NotNil(t, desc)
	assert.Equal(t, "azure-devops", desc.Category)

	inv := toolcall.NewInvoker(reg, testutil.NewMockLogger())
	result := inv.Invoke(context.Background(), "workitem_get", map[string]any{"id": 7}, time.Second)

	require.True(t, result.Success)
	assert.Equal(t, "primary", result.Transport)
	assert.Equal(t, float64(7), result.Payload["id"])
	assert.Equal(t, "fix login", result.Payload["title"])
	require.NotNil(t, caller.lastCall)
	assert.Equal(t, "workitem_get", caller.lastCall.Params.Name)
}

func TestRegisterToolsSchemaEnforced(t *testing.T) {
	caller := &fakeCaller{tools: []mcp.Tool{workItemTool()}, replyText: "{}"}
	reg := toolcall.NewRegistry()
	_, err := RegisterTools(context.Background(), reg, caller, Options{})
	require.NoError(t, err)

	inv := toolcall.NewInvoker(reg, testutil.NewMockLogger())
	result := inv.Invoke(context.Background(), "workitem_get", map[string]any{"id": "seven"}, time.Second)

	require.False(t, result.Success)
	assert.Equal(t, toolcall.KindInvalidArgs, result.Error.Kind)
	assert.Nil(t, caller.lastCall, "server must not be reached on schema violation")
}

func TestRegisterToolsFallbackUsedOnTransportError(t *testing.T) {
	caller := &fakeCaller{tools: []mcp.Tool{workItemTool()}, callErr: errors.New("pipe closed")}

	var fallbackArgs map[string]any
	reg := toolcall.NewRegistry()
	_, err := RegisterTools(context.Background(), reg, caller, Options{
		Fallbacks: map[string]toolcall.TransportFunc{
			"workitem_get": func(ctx context.Context, args map[string]any) (map[string]any, error) {
				fallbackArgs = args
				return map[string]any{"source": "rest"}, nil
			},
		},
		Translations: map[string]toolcall.TranslateFunc{
			"workitem_get": func(args map[string]any) map[string]any {
				return map[string]any{"workItemId": args["id"]}
			},
		},
	})
	require.NoError(t, err)

	inv := toolcall.NewInvoker(reg, testutil.NewMockLogger())
	result := inv.Invoke(context.Background(), "workitem_get", map[string]any{"id": 7}, time.Second)

	require.True(t, result.Success)
	assert.Equal(t, "fallback", result.Transport)
	assert.Equal(t, 7, fallbackArgs["workItemId"])
}

func TestToolErrorReplyIsTransportError(t *testing.T) {
	caller := &fakeCaller{tools: []mcp.Tool{workItemTool()}, replyErr: true, replyText: "work item not found"}
	reg := toolcall.NewRegistry()
	_, err := RegisterTools(context.Background(), reg, caller, Options{})
	require.NoError(t, err)

	inv := toolcall.NewInvoker(reg, testutil.NewMockLogger())
	result := inv.Invoke(context.Background(), "workitem_get", map[string]any{"id": 7}, time.Second)

	require.False(t, result.Success)
	assert.Contains(t, result.Error.Detail, "work item not found")
}

func TestPlainTextReplyWrapped(t *testing.T) {
	tool := mcp.Tool{Name: "ping", Description: "no params"}
	caller := &fakeCaller{tools: []mcp.Tool{tool}, replyText: "pong"}
	reg := toolcall.NewRegistry()
	_, err := RegisterTools(context.Background(), reg, caller, Options{})
	require.NoError(t, err)

	// Tools without parameters register without a schema.
	assert.Nil(t, reg.Get("ping").Schema)

	inv := toolcall.NewInvoker(reg, testutil.NewMockLogger())
	result := inv.Invoke(context.Background(), "ping", nil, time.Second)
	require.True(t, result.Success)
	assert.Equal(t, "pong", result.Payload["text"])
}

func TestArrayReplyWrappedAsText(t *testing.T) {
	tool := mcp.Tool{Name: "list_ids", Description: "no params"}
	caller := &fakeCaller{tools: []mcp.Tool{tool}, replyText: `[1, 2, 3]`}
	reg := toolcall.NewRegistry()
	_, err := RegisterTools(context.Background(), reg, caller, Options{})
	require.NoError(t, err)

	// Only JSON objects become structured payloads.
	inv := toolcall.NewInvoker(reg, testutil.NewMockLogger())
	result := inv.Invoke(context.Background(), "list_ids", nil, time.Second)
	require.True(t, result.Success)
	assert.Equal(t, `[1, 2, 3]`, result.Payload["text"])
}

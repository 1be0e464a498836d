// Package mcptools bridges MCP servers into the tool registry. Tools listed
// by a connected server become invokable descriptors, with MCP as the primary
// transport and optional caller-supplied REST fallbacks.
package mcptools

import (
	"context"
	"errors"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
)

// Transport selects how to reach the MCP server.
type Transport string

const (
	TransportStdio Transport = "stdio"
	TransportSSE   Transport = "sse"
)

// Config describes an MCP server connection.
type Config struct {
	Transport Transport
	// Command, Args and Env configure a stdio server process.
	Command string
	Args    []string
	Env     []string
	// SSEURL configures an SSE server.
	SSEURL string
	// ClientName is reported to the server during initialization.
	ClientName string
}

// Connect establishes and initializes an MCP client session.
func Connect(ctx context.Context, cfg Config) (*client.Client, error) {
	var cli *client.Client
	var err error

	switch cfg.Transport {
	case TransportStdio:
		if cfg.Command == "" {
			return nil, errors.New("command is empty")
		}
		cli, err = client.NewStdioMCPClient(cfg.Command, cfg.Env, cfg.Args...)
		if err != nil {
			return nil, err
		}
	case TransportSSE:
		if cfg.SSEURL == "" {
			return nil, errors.New("sse url is empty")
		}
		cli, err = client.NewSSEMCPClient(cfg.SSEURL)
		if err != nil {
			return nil, err
		}
	default:
		return nil, errors.New("unsupported mcp transport")
	}

	if err := cli.Start(ctx); err != nil {
		return nil, err
	}

	name := cfg.ClientName
	if name == "" {
		name = "sdlcengine"
	}
	initRequest := mcp.InitializeRequest{}
	initRequest.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initRequest.Params.ClientInfo = mcp.Implementation{
		Name:    name,
		Version: "1.0.0",
	}
	if _, err := cli.Initialize(ctx, initRequest); err != nil {
		return nil, err
	}
	return cli, nil
}

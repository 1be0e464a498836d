// Package agentcore provides the autonomous agent execution loop: given an
// objective and a toolset it repeatedly consults a reasoning oracle, executes
// requested tool calls, validates draft output, and reaches one of five
// decisions per iteration until a terminal one ends the run.
package agentcore

import (
	"context"

	"github.com/deepline-systems/sdlcengine/deepcore/toolcall"
)

// Logger is the canonical structured logging interface, shared with the tool
// layer so one implementation serves the whole engine.
type Logger = toolcall.Logger

// Message is one turn in the reasoning transcript.
type Message struct {
	Role    string `json:"role"` // "system", "user", "assistant", "tool"
	Content string `json:"content"`
}

// ToolRequest is one tool call proposed by the oracle.
type ToolRequest struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

// Completion is the oracle's answer to one reasoning turn.
// When ToolRequests is non-empty the agent acts before reasoning again;
// otherwise Text is treated as the draft output for this iteration.
type Completion struct {
	Text         string
	ToolRequests []ToolRequest
}

// CompletionRequest is the context handed to the oracle for one turn.
type CompletionRequest struct {
	System   string
	Messages []Message
	Tools    []toolcall.Summary
}

// Oracle is the reasoning collaborator. Implementations wrap an LLM or any
// other planner; the core only depends on this seam.
type Oracle interface {
	Complete(ctx context.Context, req CompletionRequest) (*Completion, error)
}

// OracleFunc adapts a function to the Oracle interface.
type OracleFunc func(ctx context.Context, req CompletionRequest) (*Completion, error)

// Complete implements Oracle.
func (f OracleFunc) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	return f(ctx, req)
}

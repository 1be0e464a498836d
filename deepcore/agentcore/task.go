package agentcore

import (
	"time"

	"github.com/deepline-systems/sdlcengine/deepcore/decision"
	"github.com/deepline-systems/sdlcengine/deepcore/validation"
)

const (
	// DefaultMaxIterations bounds the reasoning loop when a task does not set
	// its own budget.
	DefaultMaxIterations = 10

	// MaxSpawnDepth is the deepest level at which an agent may still run.
	// An agent at this depth gets its spawn requests converted to completion.
	MaxSpawnDepth = 2
)

// Task describes one unit of agent work.
type Task struct {
	// Name identifies the task in logs, metrics and spans. Usually the
	// pipeline stage name.
	Name string `json:"name"`

	// Objective is the instruction handed to the oracle on the first turn.
	Objective string `json:"objective"`

	// System is the system prompt for every oracle turn.
	System string `json:"system,omitempty"`

	// Tools restricts which registered tools the oracle may see and call.
	// Empty means the full registry.
	Tools []string `json:"tools,omitempty"`

	// Policy validates draft output each iteration. Nil skips validation.
	Policy *validation.Policy `json:"policy,omitempty"`

	// CompletionMarkers short-circuit the loop when one appears verbatim in
	// the draft output. The match is deterministic and outranks the oracle.
	CompletionMarkers []string `json:"completion_markers,omitempty"`

	// MinAutonomy is the confidence floor for autonomous completion. A
	// completion below it is downgraded to an approval request. Empty
	// disables the gate.
	MinAutonomy decision.ConfidenceLevel `json:"min_autonomy,omitempty"`

	// Feedback carries prior human or orchestrator guidance, injected ahead
	// of the objective on the first turn.
	Feedback []string `json:"feedback,omitempty"`

	// MaxIterations bounds REASON steps. Zero or negative applies the default.
	MaxIterations int `json:"max_iterations,omitempty"`

	// ToolTimeout is the per-call budget handed to the invoker. Zero applies
	// the invoker default.
	ToolTimeout time.Duration `json:"tool_timeout,omitempty"`

	// Depth is 0 for top-level agents and grows by one per spawned child.
	Depth int `json:"depth"`
}

func (t Task) withDefaults() Task {
	if t.MaxIterations <= 0 {
		t.MaxIterations = DefaultMaxIterations
	}
	if t.Name == "" {
		t.Name = "agent"
	}
	return t
}

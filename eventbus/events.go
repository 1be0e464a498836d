// Package eventbus provides an in-memory event bus for pipeline lifecycle
// notifications. Events fan out to all subscribers in a single process;
// telemetry, progress reporting and audit sinks attach here without the
// orchestrator knowing about them.
package eventbus

// Event is the protocol for all bus events.
type Event interface {
	// EventType returns the stable name used for subscription routing.
	EventType() string
}

// =============================================================================
// PIPELINE LIFECYCLE EVENTS
// =============================================================================

// PipelineStarted is emitted when a new pipeline run starts.
type PipelineStarted struct {
	RunID    string `json:"run_id"`
	Pipeline string `json:"pipeline"`
	Input    string `json:"input"`
}

func (e *PipelineStarted) EventType() string { return "PipelineStarted" }

// PipelineCompleted is emitted when a run reaches a terminal state.
type PipelineCompleted struct {
	RunID      string `json:"run_id"`
	Pipeline   string `json:"pipeline"`
	Status     string `json:"status"` // "completed", "pending_approval", "terminated"
	DurationMS int    `json:"duration_ms"`
}

func (e *PipelineCompleted) EventType() string { return "PipelineCompleted" }

// =============================================================================
// STAGE LIFECYCLE EVENTS
// =============================================================================

// StageStarted is emitted when a stage agent begins an attempt.
type StageStarted struct {
	RunID   string `json:"run_id"`
	Stage   string `json:"stage"`
	Attempt int    `json:"attempt"`
}

func (e *StageStarted) EventType() string { return "StageStarted" }

// StageCompleted is emitted when a stage produces an artifact.
type StageCompleted struct {
	RunID      string `json:"run_id"`
	Stage      string `json:"stage"`
	Confidence string `json:"confidence"`
	Iterations int    `json:"iterations"`
	DurationMS int    `json:"duration_ms"`
}

func (e *StageCompleted) EventType() string { return "StageCompleted" }

// StageFailed is emitted on a failed stage attempt.
type StageFailed struct {
	RunID   string `json:"run_id"`
	Stage   string `json:"stage"`
	Attempt int    `json:"attempt"`
	Error   string `json:"error"`
}

func (e *StageFailed) EventType() string { return "StageFailed" }

// StageSkipped is emitted when the failure breaker gives up on a stage.
type StageSkipped struct {
	RunID     string `json:"run_id"`
	Stage     string `json:"stage"`
	LastError string `json:"last_error"`
}

func (e *StageSkipped) EventType() string { return "StageSkipped" }

// ApprovalRequested is emitted when a run suspends for a human decision.
type ApprovalRequested struct {
	RunID      string `json:"run_id"`
	Stage      string `json:"stage"`
	Output     string `json:"output"`
	Confidence string `json:"confidence"`
}

func (e *ApprovalRequested) EventType() string { return "ApprovalRequested" }
